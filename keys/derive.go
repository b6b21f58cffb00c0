// Package keys derives chain addresses from raw private keys and signs
// messages and EVM transactions with them. The chain family is always an
// explicit argument; key bytes are never inspected to guess the chain.
package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/ed25519"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/paymesh/walletgate/types"
)

// KeyPair is the public side of a derived key.
type KeyPair struct {
	ChainFamily types.ChainFamily `json:"chainFamily"`

	// Address is the EIP-55 checksummed address (EVM) or the base58
	// public key (Solana).
	Address string `json:"address"`

	// PublicKey is the uncompressed 65-byte secp256k1 point (EVM) or
	// the 32-byte Ed25519 public key (Solana).
	PublicKey []byte `json:"publicKey"`
}

// Derive resolves the address and public key for a raw private key on the
// given chain family.
func Derive(family types.ChainFamily, privateKey string) (*KeyPair, error) {
	switch family {
	case types.ChainEVM:
		key, err := parseEVMKey(privateKey)
		if err != nil {
			return nil, err
		}
		return &KeyPair{
			ChainFamily: types.ChainEVM,
			Address:     crypto.PubkeyToAddress(key.PublicKey).Hex(),
			PublicKey:   crypto.FromECDSAPub(&key.PublicKey),
		}, nil

	case types.ChainSolana:
		key, err := parseSolanaKey(privateKey)
		if err != nil {
			return nil, err
		}
		pub := key.Public().(ed25519.PublicKey)
		return &KeyPair{
			ChainFamily: types.ChainSolana,
			Address:     solana.PublicKeyFromBytes(pub).String(),
			PublicKey:   append([]byte(nil), pub...),
		}, nil

	default:
		return nil, types.X402Error{
			Code:    types.ErrUnsupportedChainFamily,
			Message: fmt.Sprintf("unsupported chain family: %q", family),
		}
	}
}

// parseEVMKey decodes a 32-byte hex secp256k1 private key, with or
// without the 0x prefix.
func parseEVMKey(privateKey string) (*ecdsa.PrivateKey, error) {
	hexKey := strings.TrimPrefix(strings.TrimSpace(privateKey), "0x")

	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, types.X402Error{
			Code:    types.ErrInvalidKeyFormat,
			Message: "EVM private key must be hex encoded",
		}
	}
	if len(raw) != 32 {
		return nil, types.X402Error{
			Code:    types.ErrInvalidKeyLength,
			Message: fmt.Sprintf("EVM private key must be 32 bytes, got %d", len(raw)),
		}
	}

	key, err := crypto.ToECDSA(raw)
	if err != nil {
		return nil, types.X402Error{
			Code:    types.ErrInvalidKeyFormat,
			Message: fmt.Sprintf("invalid secp256k1 private key: %v", err),
		}
	}
	return key, nil
}

// parseSolanaKey decodes a base58 Ed25519 key: either the 64-byte full
// keypair (seed || public key) or the bare 32-byte seed.
func parseSolanaKey(privateKey string) (ed25519.PrivateKey, error) {
	raw, err := base58.Decode(strings.TrimSpace(privateKey))
	if err != nil {
		return nil, types.X402Error{
			Code:    types.ErrInvalidKeyFormat,
			Message: "Solana private key must be base58 encoded",
		}
	}

	var seed []byte
	switch len(raw) {
	case ed25519.PrivateKeySize: // 64: seed followed by public key
		seed = raw[:ed25519.SeedSize]
	case ed25519.SeedSize: // 32
		seed = raw
	default:
		return nil, types.X402Error{
			Code:    types.ErrInvalidKeyLength,
			Message: fmt.Sprintf("Solana private key must be 32 or 64 bytes, got %d", len(raw)),
		}
	}

	key := ed25519.NewKeyFromSeed(seed)
	if len(raw) == ed25519.PrivateKeySize && !bytes.Equal(key[ed25519.SeedSize:], raw[ed25519.SeedSize:]) {
		return nil, types.X402Error{
			Code:    types.ErrInvalidKeyFormat,
			Message: "Solana keypair public half does not match its seed",
		}
	}
	return key, nil
}
