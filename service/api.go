package service

import (
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/julienschmidt/httprouter"

	"github.com/paymesh/walletgate"
	"github.com/paymesh/walletgate/evmtx"
	"github.com/paymesh/walletgate/keys"
	"github.com/paymesh/walletgate/types"
)

// ServiceName is reported by the status and health probes.
const ServiceName = "walletgate"

const (
	StatusEndPnt  = "/status"  // status endpoint for LIVENESS probing
	HealthEndPnt  = "/health"  // health endpoint for READINESS probing
	MetricsEndPnt = "/metrics" // Prometheus metrics endpoint

	KeysDeriveEndPnt      = "/v1/keys/derive"
	SignMessageEndPnt     = "/v1/sign/message"
	SignTransactionEndPnt = "/v1/sign/transaction"

	HookKey   = ":hook"
	HooksPrfx = "/v1/hooks/" // payment-gated webhook endpoints
)

var hooksEndPnt = HooksPrfx + HookKey

// StatusResponse contains status response fields.
type StatusResponse struct {
	Message string `json:"message,omitempty"`
	Version string `json:"version,omitempty"`
	Service string `json:"service,omitempty"`
}

// Status implements the status request endpoint. Always returns OK.
func (s *Service) Status() httprouter.Handle {
	return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if err := respondWithJSON(w, http.StatusOK, &StatusResponse{Message: "OK", Version: walletgate.Version, Service: ServiceName}); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Errorf("respond error: %v", err))
		}
	})
}

// HealthResponse contains health probe response fields.
type HealthResponse struct {
	Version  string   `json:"version,omitempty"`
	Service  string   `json:"service,omitempty"`
	Failures []string `json:"failures"`
}

// Health reports readiness. Gated hooks need facilitator credentials to
// settle payments, so serving hooks without them is a failure condition.
func (s *Service) Health() httprouter.Handle {
	return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		health := &HealthResponse{
			Service: ServiceName,
			Version: walletgate.Version,
		}
		var failures = []string{}
		var httpCode = http.StatusOK

		if len(s.hooks) > 0 && (s.cfg.CDPKeyID == "" || s.cfg.CDPKeySecret == "") {
			failures = append(failures, "facilitator credentials not configured")
		}

		health.Failures = failures

		if len(health.Failures) > 0 {
			httpCode = http.StatusServiceUnavailable
		}

		if err := respondWithJSON(w, httpCode, health); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Errorf("respond error: %v", err))
		}
	})
}

// DeriveKeyRequest asks for the keypair derived from a raw private key.
type DeriveKeyRequest struct {
	ChainFamily string `json:"chainFamily"`
	PrivateKey  string `json:"privateKey"`
}

// DeriveKey implements the key derivation endpoint.
func (s *Service) DeriveKey() httprouter.Handle {
	return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req DeriveKeyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("could not unmarshal request JSON: %v", err))
			return
		}

		pair, err := keys.Derive(types.ChainFamily(req.ChainFamily), req.PrivateKey)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err)
			return
		}

		if err := respondWithJSON(w, http.StatusOK, pair); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Errorf("respond error: %v", err))
		}
	})
}

// SignMessageRequest carries a message for signing. Message may be a JSON
// string or an object with message/userOperationHash fields.
type SignMessageRequest struct {
	ChainFamily string          `json:"chainFamily"`
	PrivateKey  string          `json:"privateKey"`
	Message     json.RawMessage `json:"message"`
}

// SignMessage implements the message signing endpoint.
func (s *Service) SignMessage() httprouter.Handle {
	return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req SignMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("could not unmarshal request JSON: %v", err))
			return
		}
		if len(req.Message) == 0 {
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("message is required"))
			return
		}

		var message any
		if err := json.Unmarshal(req.Message, &message); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("could not unmarshal message: %v", err))
			return
		}

		signed, err := keys.SignMessage(types.ChainFamily(req.ChainFamily), req.PrivateKey, message)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err)
			return
		}

		if err := respondWithJSON(w, http.StatusOK, signed); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Errorf("respond error: %v", err))
		}
	})
}

// AccessListEntry mirrors one EIP-2930 access list tuple on the wire.
type AccessListEntry struct {
	Address     string   `json:"address"`
	StorageKeys []string `json:"storageKeys"`
}

// TxRequest is the wire form of an unsigned EVM transaction. Numeric
// fields accept decimal or 0x-prefixed hex strings.
type TxRequest struct {
	Type                 string            `json:"type,omitempty"`
	ChainID              string            `json:"chainId"`
	Nonce                uint64            `json:"nonce"`
	To                   string            `json:"to,omitempty"`
	Value                string            `json:"value,omitempty"`
	Gas                  uint64            `json:"gas"`
	GasPrice             string            `json:"gasPrice,omitempty"`
	MaxFeePerGas         string            `json:"maxFeePerGas,omitempty"`
	MaxPriorityFeePerGas string            `json:"maxPriorityFeePerGas,omitempty"`
	Data                 string            `json:"data,omitempty"`
	AccessList           []AccessListEntry `json:"accessList,omitempty"`
}

// SignTransactionRequest asks for an EVM transaction signature.
type SignTransactionRequest struct {
	PrivateKey  string    `json:"privateKey"`
	Transaction TxRequest `json:"transaction"`
}

// SignTransactionResponse carries the signed transaction hash and its
// RLP serialization, ready for eth_sendRawTransaction.
type SignTransactionResponse struct {
	Hash           string `json:"hash"`
	RawTransaction string `json:"rawTransaction"`
}

// SignTransaction implements the transaction signing endpoint.
func (s *Service) SignTransaction() httprouter.Handle {
	return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		var req SignTransactionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondWithError(w, http.StatusBadRequest, fmt.Errorf("could not unmarshal request JSON: %v", err))
			return
		}

		tx, err := buildTransaction(&req.Transaction)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err)
			return
		}

		signed, err := keys.SignTransaction(req.PrivateKey, tx)
		if err != nil {
			respondWithError(w, http.StatusBadRequest, err)
			return
		}

		resp := &SignTransactionResponse{
			Hash:           signed.Hash().Hex(),
			RawTransaction: signed.RawHex(),
		}
		if err := respondWithJSON(w, http.StatusOK, resp); err != nil {
			respondWithError(w, http.StatusInternalServerError, fmt.Errorf("respond error: %v", err))
		}
	})
}

// Hook dispatches to the payment-gated handler registered for the named
// webhook. Unknown names 404 before the payment gate runs, so nobody
// pays for an endpoint that does not exist.
func (s *Service) Hook() httprouter.Handle {
	return httprouter.Handle(func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		name := p.ByName(HookKey[1:])
		h, ok := s.hooks[name]
		if !ok {
			respondWithError(w, http.StatusNotFound, fmt.Errorf("unknown hook: %s", name))
			return
		}
		h.ServeHTTP(w, r)
	})
}

func buildTransaction(req *TxRequest) (*evmtx.Transaction, error) {
	txType, err := parseTxType(req)
	if err != nil {
		return nil, err
	}

	chainID, err := parseBigField("chainId", req.ChainID)
	if err != nil {
		return nil, err
	}
	value, err := parseBigField("value", req.Value)
	if err != nil {
		return nil, err
	}
	gasPrice, err := parseBigField("gasPrice", req.GasPrice)
	if err != nil {
		return nil, err
	}
	feeCap, err := parseBigField("maxFeePerGas", req.MaxFeePerGas)
	if err != nil {
		return nil, err
	}
	tipCap, err := parseBigField("maxPriorityFeePerGas", req.MaxPriorityFeePerGas)
	if err != nil {
		return nil, err
	}

	tx := &evmtx.Transaction{
		Type:      txType,
		ChainID:   chainID,
		Nonce:     req.Nonce,
		GasPrice:  gasPrice,
		GasTipCap: tipCap,
		GasFeeCap: feeCap,
		Gas:       req.Gas,
		Value:     value,
	}

	if req.To != "" {
		if !common.IsHexAddress(req.To) {
			return nil, fmt.Errorf("invalid to address: %s", req.To)
		}
		to := common.HexToAddress(req.To)
		tx.To = &to
	}

	if req.Data != "" {
		data, err := hexutil.Decode(req.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid data: %v", err)
		}
		tx.Data = data
	}

	for _, entry := range req.AccessList {
		if !common.IsHexAddress(entry.Address) {
			return nil, fmt.Errorf("invalid access list address: %s", entry.Address)
		}
		tuple := evmtx.AccessTuple{Address: common.HexToAddress(entry.Address)}
		for _, key := range entry.StorageKeys {
			tuple.StorageKeys = append(tuple.StorageKeys, common.HexToHash(key))
		}
		tx.AccessList = append(tx.AccessList, tuple)
	}

	return tx, nil
}

// parseTxType maps the wire type name to a transaction envelope. An
// empty type is inferred from the fee fields for convenience.
func parseTxType(req *TxRequest) (evmtx.TxType, error) {
	switch strings.ToLower(req.Type) {
	case "", "legacy":
		if req.Type == "" && (req.MaxFeePerGas != "" || req.MaxPriorityFeePerGas != "") {
			return evmtx.DynamicFeeTxType, nil
		}
		return evmtx.LegacyTxType, nil
	case "eip2930", "accesslist":
		return evmtx.AccessListTxType, nil
	case "eip1559", "dynamicfee":
		return evmtx.DynamicFeeTxType, nil
	default:
		return 0, fmt.Errorf("unsupported transaction type: %s", req.Type)
	}
}

func parseBigField(name, v string) (*big.Int, error) {
	if v == "" {
		return nil, nil
	}
	if strings.HasPrefix(v, "0x") || strings.HasPrefix(v, "0X") {
		b, err := hexutil.DecodeBig(v)
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %v", name, err)
		}
		return b, nil
	}
	b, ok := new(big.Int).SetString(v, 10)
	if !ok {
		return nil, fmt.Errorf("invalid %s: %s", name, v)
	}
	return b, nil
}
