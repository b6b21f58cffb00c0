// Package requirements turns host payment configuration into the x402
// payment requirements advertised on 402 challenges.
package requirements

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"github.com/paymesh/walletgate/types"
)

// DefaultMaxTimeoutSeconds is advertised when a config does not set its
// own settlement timeout.
const DefaultMaxTimeoutSeconds = 60

// PaymentConfig is one accepted payment option, as configured by the host.
type PaymentConfig struct {
	// PaymentToken selects the network and asset as "network:asset",
	// e.g. "base-sepolia:usdc" or "solana:EPjFWdd5...".
	PaymentToken string `json:"paymentToken" yaml:"payment_token"`

	// PayTo is the address the payment must be sent to.
	PayTo string `json:"payTo" yaml:"pay_to"`

	// Amount is the human-readable price in whole tokens, e.g. "1.50".
	Amount string `json:"amount" yaml:"amount"`

	// Resource is the URL of the gated resource.
	Resource string `json:"resource" yaml:"resource"`

	Description string `json:"description,omitempty" yaml:"description"`

	MaxTimeoutSeconds int `json:"maxTimeoutSeconds,omitempty" yaml:"max_timeout_seconds"`

	OutputSchema map[string]interface{} `json:"outputSchema,omitempty" yaml:"output_schema"`
}

// Builder resolves payment configs against a token catalog.
type Builder struct {
	catalog types.TokenCatalog
}

// NewBuilder returns a Builder over the given catalog, falling back to
// the built-in USDC catalog when nil.
func NewBuilder(catalog types.TokenCatalog) *Builder {
	if catalog == nil {
		catalog = types.DefaultTokenCatalog()
	}
	return &Builder{catalog: catalog}
}

// Build converts the configs into payment requirements, one per config,
// in input order. The build is all-or-nothing: any invalid config or a
// duplicated network fails the whole set and returns zero requirements.
func (b *Builder) Build(configs []PaymentConfig) ([]types.PaymentRequirements, error) {
	if len(configs) == 0 {
		return nil, types.X402Error{
			Code:    types.ErrInvalidRequirements,
			Message: "at least one payment option is required",
		}
	}

	seen := make(map[types.Network]bool, len(configs))
	out := make([]types.PaymentRequirements, 0, len(configs))

	for _, cfg := range configs {
		req, network, err := b.buildOne(cfg)
		if err != nil {
			return nil, err
		}
		if seen[network] {
			return nil, types.X402Error{
				Code:    types.ErrDuplicateNetwork,
				Message: fmt.Sprintf("payment network %q is configured more than once", network),
			}
		}
		seen[network] = true
		out = append(out, *req)
	}
	return out, nil
}

func (b *Builder) buildOne(cfg PaymentConfig) (*types.PaymentRequirements, types.Network, error) {
	network, token, err := b.resolveToken(cfg.PaymentToken)
	if err != nil {
		return nil, "", err
	}

	if err := validateRecipient(network, cfg.PayTo); err != nil {
		return nil, "", err
	}

	atomic, err := ParseAmountWithDecimals(cfg.Amount, token.Decimals)
	if err != nil {
		return nil, "", types.X402Error{
			Code:    types.ErrInvalidRequirements,
			Message: fmt.Sprintf("invalid payment amount %q: %v", cfg.Amount, err),
		}
	}

	timeout := cfg.MaxTimeoutSeconds
	if timeout <= 0 {
		timeout = DefaultMaxTimeoutSeconds
	}

	description := cfg.Description
	if description == "" {
		description = fmt.Sprintf("%s %s on %s", cfg.Amount, token.Symbol, network)
	}

	req := &types.PaymentRequirements{
		Scheme:            string(types.SchemeExact),
		Network:           network.String(),
		MaxAmountRequired: atomic.String(),
		Resource:          cfg.Resource,
		Description:       description,
		MimeType:          "application/json",
		OutputSchema:      cfg.OutputSchema,
		PayTo:             cfg.PayTo,
		MaxTimeoutSeconds: timeout,
		Asset:             token.Address,
	}
	if token.Name != "" {
		req.Extra = map[string]interface{}{
			"name":    token.Name,
			"version": token.Version,
		}
	}
	return req, network, nil
}

// resolveToken splits a "network:asset" spec and looks both parts up in
// the catalog.
func (b *Builder) resolveToken(spec string) (types.Network, types.TokenInfo, error) {
	parts := strings.Split(spec, ":")
	if len(parts) != 2 || strings.TrimSpace(parts[0]) == "" || strings.TrimSpace(parts[1]) == "" {
		return "", types.TokenInfo{}, types.X402Error{
			Code:    types.ErrMalformedTokenSpec,
			Message: fmt.Sprintf("payment token must be \"network:asset\", got %q", spec),
		}
	}

	network, ok := types.ResolveNetwork(parts[0])
	if !ok {
		return "", types.TokenInfo{}, types.X402Error{
			Code:    types.ErrUnsupportedNetwork,
			Message: fmt.Sprintf("unsupported payment network: %q", strings.TrimSpace(parts[0])),
		}
	}

	token, ok := b.catalog.Find(network, parts[1])
	if !ok {
		return "", types.TokenInfo{}, types.X402Error{
			Code:    types.ErrUnsupportedAsset,
			Message: fmt.Sprintf("unsupported asset %q on network %q", strings.TrimSpace(parts[1]), network),
		}
	}
	return network, token, nil
}

// validateRecipient checks that the payout address fits the network's
// address format.
func validateRecipient(network types.Network, address string) error {
	if address == "" {
		return types.X402Error{
			Code:    types.ErrInvalidRequirements,
			Message: "payTo address is required",
		}
	}

	switch {
	case network.IsEVM():
		if !common.IsHexAddress(address) {
			return types.X402Error{
				Code:    types.ErrInvalidRequirements,
				Message: fmt.Sprintf("payTo %q is not a valid EVM address", address),
			}
		}
	case network.IsSolana():
		raw, err := base58.Decode(address)
		if err != nil || len(raw) != 32 {
			return types.X402Error{
				Code:    types.ErrInvalidRequirements,
				Message: fmt.Sprintf("payTo %q is not a valid Solana address", address),
			}
		}
	}
	return nil
}
