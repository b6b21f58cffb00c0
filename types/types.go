// Package types holds the x402 wire types, the coded error type and the
// network/token registry shared by every walletgate component.
package types

import "fmt"

// X402Version represents the version of the x402 protocol
type X402Version int

const (
	X402Version1 X402Version = 1
)

// PaymentScheme represents different payment schemes
type PaymentScheme string

const (
	SchemeExact PaymentScheme = "exact"
)

// PaymentRequirements defines the requirements a resource server accepts for payment.
type PaymentRequirements struct {
	// Scheme of the payment protocol to use (e.g., "exact").
	Scheme string `json:"scheme"`

	// Network of the blockchain to send payment on (e.g., "base-sepolia").
	Network string `json:"network"`

	// Maximum amount required to pay for the resource in atomic units of the asset.
	// Represented as a string because Go does not support uint256.
	MaxAmountRequired string `json:"maxAmountRequired"`

	// URL of the resource to pay for.
	Resource string `json:"resource"`

	// Description of the resource being purchased.
	Description string `json:"description"`

	// MIME type of the resource response (e.g., "application/json").
	MimeType string `json:"mimeType"`

	// Output schema of the resource response, if applicable.
	OutputSchema map[string]interface{} `json:"outputSchema,omitempty"`

	// Address to which the payment must be sent.
	PayTo string `json:"payTo"`

	// Maximum time in seconds for the resource server to respond.
	MaxTimeoutSeconds int `json:"maxTimeoutSeconds"`

	// Address of the EIP-3009 compliant ERC20 contract (or SPL mint).
	Asset string `json:"asset"`

	// Extra information about payment details specific to the scheme.
	// For the `exact` scheme on EVM this carries the EIP-712 domain
	// `name` and `version` of the asset contract.
	Extra map[string]interface{} `json:"extra,omitempty"`
}

// Validate checks that the PaymentRequirements carries every field the
// exact scheme needs.
func (pr *PaymentRequirements) Validate() error {
	if pr.Scheme == "" {
		return fmt.Errorf("paymentRequirements.scheme is required")
	}

	if pr.Network == "" {
		return fmt.Errorf("paymentRequirements.network is required")
	}

	if pr.MaxAmountRequired == "" {
		return fmt.Errorf("paymentRequirements.maxAmountRequired is required")
	}

	if pr.PayTo == "" {
		return fmt.Errorf("paymentRequirements.payTo is required")
	}

	if pr.Asset == "" {
		return fmt.Errorf("paymentRequirements.asset is required")
	}

	if pr.MaxTimeoutSeconds <= 0 {
		return fmt.Errorf("paymentRequirements.maxTimeoutSeconds must be greater than 0")
	}

	return nil
}

// PaymentPayload is the decoded X-PAYMENT header: the client's payment
// proof for one of the advertised requirements.
type PaymentPayload struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version" validate:"required"`

	Scheme string `json:"scheme" validate:"required"`

	Network string `json:"network" validate:"required"`

	Payload EIP3009Payload `json:"payload" validate:"required"`
}

// EIP3009Payload carries the signed transfer authorization for the
// exact scheme.
type EIP3009Payload struct {
	// The 65-byte ECDSA signature (r||s||v) over the EIP-712 digest.
	Signature string `json:"signature" validate:"required"`

	Authorization EIP3009Authorization `json:"authorization" validate:"required"`
}

// EIP3009Authorization mirrors the transferWithAuthorization arguments.
type EIP3009Authorization struct {
	From        string `json:"from" validate:"required"`
	To          string `json:"to" validate:"required"`
	Value       string `json:"value" validate:"required"`       // uint256
	ValidAfter  string `json:"validAfter" validate:"required"`  // unix seconds
	ValidBefore string `json:"validBefore" validate:"required"` // unix seconds
	Nonce       string `json:"nonce" validate:"required"`       // bytes32
}

// X402Response represents a server response that includes supported payment options.
// It is the JSON body of every 402 reply.
type X402Response struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version"`

	// List of payment requirements that the resource server accepts.
	Accepts []PaymentRequirements `json:"accepts"`

	// Message from the resource server indicating any processing error.
	Error string `json:"error"`
}

// VerifyRequest represents the payload sent to a facilitator to verify a payment.
// Settlement uses the same body on the settle route.
type VerifyRequest struct {
	// Version of the x402 payment protocol.
	X402Version int `json:"x402Version"`

	// Decoded payment header from the client.
	PaymentPayload PaymentPayload `json:"paymentPayload"`

	// Payment requirements being verified against.
	PaymentRequirements PaymentRequirements `json:"paymentRequirements"`
}

// Validate checks that the VerifyRequest contains all required fields.
func (v *VerifyRequest) Validate() error {
	if v.X402Version <= 0 {
		return fmt.Errorf("x402Version must be greater than 0")
	}

	if v.PaymentPayload.Payload.Signature == "" {
		return fmt.Errorf("paymentPayload.payload.signature is required")
	}

	return v.PaymentRequirements.Validate()
}

// VerifyResponse represents the facilitator's verification result.
type VerifyResponse struct {
	// Indicates whether the payment is valid.
	IsValid bool `json:"isValid"`

	// Provides a reason if the payment is invalid, otherwise empty.
	InvalidReason string `json:"invalidReason,omitempty"`

	Payer string `json:"payer,omitempty"`
}

// SettleResponse represents the facilitator's settlement result.
type SettleResponse struct {
	Success bool `json:"success"`

	// Reason the settlement failed, when success is false.
	ErrorReason string `json:"errorReason,omitempty"`

	// Hash of the on-chain settlement transaction.
	Transaction string `json:"transaction,omitempty"`

	Network string `json:"network,omitempty"`

	Payer string `json:"payer,omitempty"`
}

// SettlementResult is the X-PAYMENT-RESPONSE header body attached to a
// released webhook response.
type SettlementResult struct {
	Success   bool   `json:"success"`
	TxHash    string `json:"txHash,omitempty"`
	NetworkId string `json:"networkId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Error types
type X402Error struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (e X402Error) Error() string {
	return e.Message
}

// Common error codes
const (
	ErrInvalidPayload         = "INVALID_PAYLOAD"
	ErrInvalidRequirements    = "INVALID_REQUIREMENTS"
	ErrMalformedTokenSpec     = "MALFORMED_TOKEN_SPEC"
	ErrUnsupportedNetwork     = "UNSUPPORTED_NETWORK"
	ErrUnsupportedAsset       = "UNSUPPORTED_ASSET"
	ErrDuplicateNetwork       = "DUPLICATE_NETWORK_CONFIG"
	ErrMalformedPaymentHeader = "MALFORMED_PAYMENT_HEADER"
	ErrInvalidKeyFormat       = "INVALID_KEY_FORMAT"
	ErrInvalidKeyLength       = "INVALID_KEY_LENGTH"
	ErrUnsupportedChainFamily = "UNSUPPORTED_CHAIN_FAMILY"
	ErrUnsupportedKeyType     = "UNSUPPORTED_KEY_TYPE"
	ErrVerificationFailed     = "VERIFICATION_FAILED"
	ErrSettlementFailed       = "SETTLEMENT_FAILED"
	ErrNetworkError           = "NETWORK_ERROR"
	ErrConfigError            = "CONFIG_ERROR"
)
