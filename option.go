package walletgate

import (
	"time"

	"github.com/paymesh/walletgate/facilitator"
	"github.com/paymesh/walletgate/logger"
	"github.com/paymesh/walletgate/metrics"
	"github.com/paymesh/walletgate/types"
	"github.com/paymesh/walletgate/validation"
)

type Option func(*Gateway)

func WithLogger(l logger.Logger) Option {
	return func(g *Gateway) {
		g.log = l
	}
}

func WithMetrics(r metrics.Recorder) Option {
	return func(g *Gateway) {
		g.rec = r
	}
}

// WithTimeout bounds each facilitator HTTP call.
func WithTimeout(t time.Duration) Option {
	return func(g *Gateway) {
		g.timeout = t
	}
}

// WithCredentials sets the CDP API key used to authenticate
// facilitator calls.
func WithCredentials(keyID, keySecret string) Option {
	return func(g *Gateway) {
		g.creds = facilitator.Credentials{KeyID: keyID, KeySecret: keySecret}
	}
}

// WithFacilitatorURL points the gateway at a non-default facilitator
// deployment.
func WithFacilitatorURL(baseURL string) Option {
	return func(g *Gateway) {
		g.facilitatorURL = baseURL
	}
}

// WithFacilitator replaces the facilitator client entirely, e.g. with
// a stub in tests.
func WithFacilitator(api facilitator.API) Option {
	return func(g *Gateway) {
		g.api = api
	}
}

// WithTokenCatalog replaces the built-in token catalog used to resolve
// payment token specs.
func WithTokenCatalog(catalog types.TokenCatalog) Option {
	return func(g *Gateway) {
		g.catalog = catalog
	}
}

// WithClock pins the time source used by payment window validation.
func WithClock(now func() time.Time) Option {
	return func(g *Gateway) {
		g.validator = validation.New().WithClock(now)
	}
}
