package requirements

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymesh/walletgate/types"
)

const (
	evmPayTo    = "0x384Aa214be0B279cbf211e9b2C992d8633F77848"
	solanaPayTo = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func errCode(t *testing.T, err error) string {
	t.Helper()
	var xerr types.X402Error
	require.ErrorAs(t, err, &xerr)
	return xerr.Code
}

func TestBuildSingleEVMRequirement(t *testing.T) {
	b := NewBuilder(nil)

	reqs, err := b.Build([]PaymentConfig{{
		PaymentToken: "base-sepolia:usdc",
		PayTo:        evmPayTo,
		Amount:       "1",
		Resource:     "https://hooks.example.com/order",
	}})
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, "exact", req.Scheme)
	assert.Equal(t, "base-sepolia", req.Network)
	assert.Equal(t, "1000000", req.MaxAmountRequired)
	assert.Equal(t, "0x036CbD53842c5426634e7929541eC2318f3dCF7e", req.Asset)
	assert.Equal(t, evmPayTo, req.PayTo)
	assert.Equal(t, "application/json", req.MimeType)
	assert.Equal(t, DefaultMaxTimeoutSeconds, req.MaxTimeoutSeconds)
	assert.Equal(t, "https://hooks.example.com/order", req.Resource)
	assert.Equal(t, map[string]interface{}{"name": "USDC", "version": "2"}, req.Extra)
	assert.Contains(t, req.Description, "1 USDC")

	require.NoError(t, req.Validate())
}

func TestBuildSolanaRequirement(t *testing.T) {
	b := NewBuilder(nil)

	reqs, err := b.Build([]PaymentConfig{{
		PaymentToken: "solana:usdc",
		PayTo:        solanaPayTo,
		Amount:       "0.25",
		Resource:     "https://hooks.example.com/mint",
	}})
	require.NoError(t, err)
	require.Len(t, reqs, 1)

	req := reqs[0]
	assert.Equal(t, "solana", req.Network)
	assert.Equal(t, "250000", req.MaxAmountRequired)
	assert.Equal(t, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", req.Asset)
	assert.Nil(t, req.Extra)
}

func TestBuildPreservesOrderAndOverrides(t *testing.T) {
	b := NewBuilder(nil)

	reqs, err := b.Build([]PaymentConfig{
		{
			PaymentToken:      "base:usdc",
			PayTo:             evmPayTo,
			Amount:            "2.50",
			Resource:          "https://hooks.example.com/a",
			Description:       "premium webhook",
			MaxTimeoutSeconds: 300,
		},
		{
			PaymentToken: "polygon:usdc",
			PayTo:        evmPayTo,
			Amount:       "1",
			Resource:     "https://hooks.example.com/a",
		},
	})
	require.NoError(t, err)
	require.Len(t, reqs, 2)

	assert.Equal(t, "base", reqs[0].Network)
	assert.Equal(t, "2500000", reqs[0].MaxAmountRequired)
	assert.Equal(t, "premium webhook", reqs[0].Description)
	assert.Equal(t, 300, reqs[0].MaxTimeoutSeconds)

	assert.Equal(t, "polygon", reqs[1].Network)
	assert.Equal(t, "1000000", reqs[1].MaxAmountRequired)
}

func TestBuildDuplicateNetworkFailsWhole(t *testing.T) {
	b := NewBuilder(nil)

	reqs, err := b.Build([]PaymentConfig{
		{PaymentToken: "base:usdc", PayTo: evmPayTo, Amount: "1", Resource: "https://x"},
		{PaymentToken: "Base:USDC", PayTo: evmPayTo, Amount: "2", Resource: "https://x"},
	})
	assert.Nil(t, reqs)
	assert.Equal(t, types.ErrDuplicateNetwork, errCode(t, err))
}

func TestBuildMalformedTokenSpec(t *testing.T) {
	b := NewBuilder(nil)

	for _, spec := range []string{"basesepolia", ":usdc", "base:", "base:usdc:extra", ""} {
		_, err := b.Build([]PaymentConfig{{PaymentToken: spec, PayTo: evmPayTo, Amount: "1"}})
		assert.Equalf(t, types.ErrMalformedTokenSpec, errCode(t, err), "spec %q", spec)
	}
}

func TestBuildUnknownNetworkAndAsset(t *testing.T) {
	b := NewBuilder(nil)

	_, err := b.Build([]PaymentConfig{{PaymentToken: "tron:usdc", PayTo: evmPayTo, Amount: "1"}})
	assert.Equal(t, types.ErrUnsupportedNetwork, errCode(t, err))

	_, err = b.Build([]PaymentConfig{{PaymentToken: "base:dai", PayTo: evmPayTo, Amount: "1"}})
	assert.Equal(t, types.ErrUnsupportedAsset, errCode(t, err))
}

func TestBuildRejectsBadRecipient(t *testing.T) {
	b := NewBuilder(nil)

	_, err := b.Build([]PaymentConfig{{PaymentToken: "base:usdc", PayTo: "not-an-address", Amount: "1"}})
	assert.Equal(t, types.ErrInvalidRequirements, errCode(t, err))

	_, err = b.Build([]PaymentConfig{{PaymentToken: "solana:usdc", PayTo: "0x384Aa214be0B279cbf211e9b2C992d8633F77848", Amount: "1"}})
	assert.Equal(t, types.ErrInvalidRequirements, errCode(t, err))

	_, err = b.Build([]PaymentConfig{{PaymentToken: "base:usdc", PayTo: "", Amount: "1"}})
	assert.Equal(t, types.ErrInvalidRequirements, errCode(t, err))
}

func TestBuildRejectsBadAmounts(t *testing.T) {
	b := NewBuilder(nil)

	for _, amount := range []string{"", "abc", "-1", "0.0000001"} {
		_, err := b.Build([]PaymentConfig{{PaymentToken: "base:usdc", PayTo: evmPayTo, Amount: amount}})
		assert.Equalf(t, types.ErrInvalidRequirements, errCode(t, err), "amount %q", amount)
	}
}

func TestBuildEmptyConfig(t *testing.T) {
	b := NewBuilder(nil)
	_, err := b.Build(nil)
	assert.Equal(t, types.ErrInvalidRequirements, errCode(t, err))
}

func TestParseAmountWithDecimals(t *testing.T) {
	tests := []struct {
		amount   string
		decimals int
		want     string
		wantErr  bool
	}{
		{"1", 6, "1000000", false},
		{"1.5", 6, "1500000", false},
		{"0.000001", 6, "1", false},
		{"0", 6, "0", false},
		{"2.50", 6, "2500000", false},
		{"1.2345678", 6, "", true},
		{"-1", 6, "", true},
		{"", 6, "", true},
		{"1e3", 6, "1000000000", false}, // decimal accepts scientific notation
	}

	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			got, err := ParseAmountWithDecimals(tt.amount, tt.decimals)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.String())
		})
	}
}
