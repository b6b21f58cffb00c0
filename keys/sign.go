package keys

import (
	"crypto/ed25519"
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/gagliardetto/solana-go"
	"github.com/mr-tron/base58"

	"github.com/paymesh/walletgate/evmtx"
	"github.com/paymesh/walletgate/types"
)

// SignedMessage is the result of signing a message input.
type SignedMessage struct {
	// Signature is 0x-prefixed r||s||v hex on EVM (v = 27 + recovery id)
	// and base58 on Solana.
	Signature string `json:"signature"`

	// Signer is the address the signature verifies against.
	Signer string `json:"signer"`

	// Source names the precedence rule that classified the input.
	Source DigestSource `json:"source"`
}

// SignMessage signs a message with a raw private key on the given chain
// family. EVM inputs go through ResolveMessageDigest and deterministic
// ECDSA; Solana inputs are signed as raw bytes with Ed25519.
func SignMessage(family types.ChainFamily, privateKey string, message any) (*SignedMessage, error) {
	switch family {
	case types.ChainEVM:
		return signEVMMessage(privateKey, message)
	case types.ChainSolana:
		return signSolanaMessage(privateKey, message)
	default:
		return nil, types.X402Error{
			Code:    types.ErrUnsupportedChainFamily,
			Message: fmt.Sprintf("unsupported chain family: %q", family),
		}
	}
}

func signEVMMessage(privateKey string, message any) (*SignedMessage, error) {
	key, err := parseEVMKey(privateKey)
	if err != nil {
		return nil, err
	}

	digest, source, err := ResolveMessageDigest(message)
	if err != nil {
		return nil, err
	}
	if len(digest) != 32 {
		return nil, types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("signing digest must be 32 bytes, got %d", len(digest)),
		}
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("failed to sign message: %v", err),
		}
	}
	sig[64] += 27

	return &SignedMessage{
		Signature: hexutil.Encode(sig),
		Signer:    crypto.PubkeyToAddress(key.PublicKey).Hex(),
		Source:    source,
	}, nil
}

func signSolanaMessage(privateKey string, message any) (*SignedMessage, error) {
	key, err := parseSolanaKey(privateKey)
	if err != nil {
		return nil, err
	}

	var raw []byte
	switch m := message.(type) {
	case string:
		raw = []byte(m)
	case []byte:
		raw = m
	default:
		return nil, types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("Solana messages are signed as raw bytes, got %T", message),
		}
	}

	sig := ed25519.Sign(key, raw)
	pub := key.Public().(ed25519.PublicKey)

	return &SignedMessage{
		Signature: base58.Encode(sig),
		Signer:    solana.PublicKeyFromBytes(pub).String(),
		Source:    DigestRaw,
	}, nil
}

// SignTransaction signs an EVM transaction built by the evmtx package and
// returns its terminal signed form.
func SignTransaction(privateKey string, tx *evmtx.Transaction) (*evmtx.SignedTransaction, error) {
	key, err := parseEVMKey(privateKey)
	if err != nil {
		return nil, err
	}

	digest, err := tx.SigningHash()
	if err != nil {
		return nil, err
	}

	sig, err := crypto.Sign(digest, key)
	if err != nil {
		return nil, types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("failed to sign transaction: %v", err),
		}
	}

	return tx.WithSignature(sig)
}
