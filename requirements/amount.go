package requirements

import (
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// ParseAmountWithDecimals parses a human-readable decimal amount and
// scales it into atomic units of a token with the given decimals. The
// scaled amount must land on a whole atomic unit.
func ParseAmountWithDecimals(amount string, decimals int) (*big.Int, error) {
	if amount == "" {
		return nil, fmt.Errorf("amount cannot be empty")
	}

	dec, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, fmt.Errorf("invalid amount format: %w", err)
	}
	if dec.IsNegative() {
		return nil, fmt.Errorf("amount cannot be negative")
	}

	scaled := dec.Shift(int32(decimals))
	if !scaled.IsInteger() {
		return nil, fmt.Errorf("amount %s has more than %d decimal places", amount, decimals)
	}

	return scaled.BigInt(), nil
}
