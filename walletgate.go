// Package walletgate gates HTTP workflows behind x402 payment proofs
// and signs messages and transactions across EVM and Solana chains.
package walletgate

import (
	"context"
	"net/http"
	"time"

	"github.com/paymesh/walletgate/facilitator"
	"github.com/paymesh/walletgate/logger"
	"github.com/paymesh/walletgate/metrics"
	"github.com/paymesh/walletgate/requirements"
	"github.com/paymesh/walletgate/types"
	"github.com/paymesh/walletgate/validation"
	"github.com/paymesh/walletgate/webhook"
)

// Gateway wires the payment requirements, header validation and
// facilitator calls into a reusable HTTP middleware.
type Gateway struct {
	accepts      []types.PaymentRequirements
	api          facilitator.API
	orchestrator *webhook.Orchestrator

	log       logger.Logger
	rec       metrics.Recorder
	validator *validation.Validator
	catalog   types.TokenCatalog

	creds          facilitator.Credentials
	facilitatorURL string
	timeout        time.Duration
}

// New builds a gateway from per-network payment configs. Each config
// names a token as "<network>:<symbol-or-address>" and a human amount
// that is scaled by the token's decimals.
func New(configs []requirements.PaymentConfig, opts ...Option) (*Gateway, error) {
	g := &Gateway{
		log:       logger.NoopLogger{},
		rec:       metrics.NoopRecorder{},
		validator: validation.New(),
		catalog:   types.DefaultTokenCatalog(),
	}
	for _, opt := range opts {
		opt(g)
	}

	accepts, err := requirements.NewBuilder(g.catalog).Build(configs)
	if err != nil {
		return nil, err
	}
	g.accepts = accepts

	if g.api == nil {
		g.api = facilitator.NewClient(g.creds,
			facilitator.WithBaseURL(g.facilitatorURL),
			facilitator.WithHTTPTimeout(g.timeout),
		)
	}

	g.orchestrator = webhook.NewOrchestrator(g.accepts, g.api,
		webhook.WithLogger(g.log),
		webhook.WithMetrics(g.rec),
		webhook.WithValidator(g.validator),
	)
	return g, nil
}

// Gate wraps next so it only serves once a payment proof has been
// validated, verified and settled.
func (g *Gateway) Gate(next http.Handler) http.Handler {
	return g.orchestrator.Gate(next)
}

// GateFunc is Gate for plain handler functions.
func (g *Gateway) GateFunc(next http.HandlerFunc) http.Handler {
	return g.orchestrator.Gate(next)
}

// Accepts returns the payment requirements advertised in 402
// challenges.
func (g *Gateway) Accepts() []types.PaymentRequirements {
	return g.accepts
}

// Verify checks a payment proof against the facilitator without
// settling it.
func (g *Gateway) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	return g.api.Verify(ctx, req)
}

// Settle executes a verified payment on-chain through the facilitator.
func (g *Gateway) Settle(ctx context.Context, req *types.VerifyRequest) (*types.SettleResponse, error) {
	return g.api.Settle(ctx, req)
}

// Version information
const (
	Version         = "1.0.0"
	ProtocolVersion = 1
)
