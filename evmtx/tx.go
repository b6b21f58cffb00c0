// Package evmtx assembles and serializes EVM transactions by hand:
// Legacy with EIP-155 replay protection, EIP-2930 access list and
// EIP-1559 dynamic fee envelopes.
package evmtx

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/paymesh/walletgate/rlp"
	"github.com/paymesh/walletgate/types"
)

// TxType selects the transaction envelope.
type TxType uint8

const (
	LegacyTxType     TxType = 0x00
	AccessListTxType TxType = 0x01
	DynamicFeeTxType TxType = 0x02
)

// AccessTuple is one entry of an EIP-2930 access list.
type AccessTuple struct {
	Address     common.Address `json:"address"`
	StorageKeys []common.Hash  `json:"storageKeys"`
}

// Transaction holds the unsigned fields of an EVM transaction. A nil To
// means contract creation; nil amounts encode as zero. The zero value of
// Type is a legacy transaction.
type Transaction struct {
	Type    TxType
	ChainID *big.Int
	Nonce   uint64

	// Legacy and access-list fee.
	GasPrice *big.Int

	// Dynamic fee (EIP-1559).
	GasTipCap *big.Int
	GasFeeCap *big.Int

	Gas   uint64
	To    *common.Address
	Value *big.Int
	Data  []byte

	AccessList []AccessTuple
}

// SignedTransaction is the terminal form of a transaction: once built it
// carries the signature values and the full serialization, and is never
// signed again. Construct it through Transaction.WithSignature.
type SignedTransaction struct {
	tx      Transaction
	v, r, s *big.Int
	raw     []byte
	hash    common.Hash
}

// SigningHash returns the keccak-256 digest the sender signs: the RLP of
// the EIP-155 field list for legacy transactions, or the type byte
// followed by the typed payload for EIP-2930/1559.
func (tx *Transaction) SigningHash() ([]byte, error) {
	if tx.ChainID == nil || tx.ChainID.Sign() <= 0 {
		return nil, types.X402Error{Code: types.ErrInvalidPayload, Message: "transaction chainId is required"}
	}

	switch tx.Type {
	case LegacyTxType:
		payload, err := rlp.EncodeList(
			tx.Nonce,
			nonNil(tx.GasPrice),
			tx.Gas,
			tx.toBytes(),
			nonNil(tx.Value),
			tx.Data,
			tx.ChainID,
			uint64(0),
			uint64(0),
		)
		if err != nil {
			return nil, err
		}
		return crypto.Keccak256(payload), nil

	case AccessListTxType:
		payload, err := rlp.EncodeList(
			tx.ChainID,
			tx.Nonce,
			nonNil(tx.GasPrice),
			tx.Gas,
			tx.toBytes(),
			nonNil(tx.Value),
			tx.Data,
			tx.accessListItems(),
		)
		if err != nil {
			return nil, err
		}
		return crypto.Keccak256(append([]byte{byte(AccessListTxType)}, payload...)), nil

	case DynamicFeeTxType:
		payload, err := rlp.EncodeList(
			tx.ChainID,
			tx.Nonce,
			nonNil(tx.GasTipCap),
			nonNil(tx.GasFeeCap),
			tx.Gas,
			tx.toBytes(),
			nonNil(tx.Value),
			tx.Data,
			tx.accessListItems(),
		)
		if err != nil {
			return nil, err
		}
		return crypto.Keccak256(append([]byte{byte(DynamicFeeTxType)}, payload...)), nil

	default:
		return nil, types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: "unsupported transaction type",
			Data:    map[string]interface{}{"type": tx.Type},
		}
	}
}

// WithSignature attaches a 65-byte r||s||recoveryId signature and returns
// the signed, serialized transaction. The receiver is copied, not
// mutated; calling WithSignature again with a different signature yields
// an independent result.
func (tx *Transaction) WithSignature(sig []byte) (*SignedTransaction, error) {
	if tx.ChainID == nil || tx.ChainID.Sign() <= 0 {
		return nil, types.X402Error{Code: types.ErrInvalidPayload, Message: "transaction chainId is required"}
	}
	if len(sig) != 65 {
		return nil, types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: "signature must be 65 bytes",
			Data:    map[string]interface{}{"length": len(sig)},
		}
	}

	recID := sig[64]
	if recID >= 27 {
		recID -= 27
	}
	if recID > 1 {
		return nil, types.X402Error{Code: types.ErrInvalidPayload, Message: "invalid signature recovery id"}
	}

	r := new(big.Int).SetBytes(sig[:32])
	s := new(big.Int).SetBytes(sig[32:64])

	var v *big.Int
	if tx.Type == LegacyTxType {
		// EIP-155: v = chainId*2 + 35 + recoveryId.
		v = new(big.Int).Mul(tx.ChainID, big.NewInt(2))
		v.Add(v, big.NewInt(35+int64(recID)))
	} else {
		v = new(big.Int).SetUint64(uint64(recID))
	}

	signed := &SignedTransaction{tx: *tx, v: v, r: r, s: s}
	raw, err := signed.encode()
	if err != nil {
		return nil, err
	}
	signed.raw = raw
	signed.hash = common.BytesToHash(crypto.Keccak256(raw))
	return signed, nil
}

func (st *SignedTransaction) encode() ([]byte, error) {
	tx := &st.tx
	switch tx.Type {
	case LegacyTxType:
		return rlp.EncodeList(
			tx.Nonce,
			nonNil(tx.GasPrice),
			tx.Gas,
			tx.toBytes(),
			nonNil(tx.Value),
			tx.Data,
			st.v,
			st.r,
			st.s,
		)

	case AccessListTxType:
		payload, err := rlp.EncodeList(
			tx.ChainID,
			tx.Nonce,
			nonNil(tx.GasPrice),
			tx.Gas,
			tx.toBytes(),
			nonNil(tx.Value),
			tx.Data,
			tx.accessListItems(),
			st.v,
			st.r,
			st.s,
		)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(AccessListTxType)}, payload...), nil

	case DynamicFeeTxType:
		payload, err := rlp.EncodeList(
			tx.ChainID,
			tx.Nonce,
			nonNil(tx.GasTipCap),
			nonNil(tx.GasFeeCap),
			tx.Gas,
			tx.toBytes(),
			nonNil(tx.Value),
			tx.Data,
			tx.accessListItems(),
			st.v,
			st.r,
			st.s,
		)
		if err != nil {
			return nil, err
		}
		return append([]byte{byte(DynamicFeeTxType)}, payload...), nil

	default:
		return nil, types.X402Error{Code: types.ErrInvalidPayload, Message: "unsupported transaction type"}
	}
}

// Raw returns the full wire serialization (type byte included for typed
// transactions).
func (st *SignedTransaction) Raw() []byte {
	out := make([]byte, len(st.raw))
	copy(out, st.raw)
	return out
}

// RawHex returns the 0x-prefixed hex of Raw.
func (st *SignedTransaction) RawHex() string {
	return "0x" + common.Bytes2Hex(st.raw)
}

// Hash returns the transaction hash (keccak-256 of the serialization).
func (st *SignedTransaction) Hash() common.Hash {
	return st.hash
}

// Signature returns the attached v, r, s values.
func (st *SignedTransaction) Signature() (v, r, s *big.Int) {
	return new(big.Int).Set(st.v), new(big.Int).Set(st.r), new(big.Int).Set(st.s)
}

func (tx *Transaction) toBytes() []byte {
	if tx.To == nil {
		return []byte{}
	}
	return tx.To.Bytes()
}

func (tx *Transaction) accessListItems() []any {
	items := make([]any, len(tx.AccessList))
	for i, tuple := range tx.AccessList {
		keys := make([]any, len(tuple.StorageKeys))
		for j, k := range tuple.StorageKeys {
			keys[j] = k.Bytes()
		}
		items[i] = []any{tuple.Address.Bytes(), keys}
	}
	return items
}

func nonNil(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}
