package validation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/holiman/uint256"

	"github.com/paymesh/walletgate/types"
)

// Result is the outcome of the business-rule checks. Findings accumulate;
// the payload is valid only when none were recorded.
type Result struct {
	Valid bool

	// Requirement is the advertised requirement the payload was checked
	// against, nil when its network matched none.
	Requirement *types.PaymentRequirements

	Findings []string
}

// Message joins the findings into the error string for a 402 body.
func (r *Result) Message() string {
	return strings.Join(r.Findings, "; ")
}

// ValidateBusinessRules checks a structurally complete payload against
// the advertised requirements. It is total: any input yields a Result,
// never an error or a panic, and every violated rule is reported.
func (v *Validator) ValidateBusinessRules(payload *types.PaymentPayload, accepts []types.PaymentRequirements) *Result {
	res := &Result{}
	auth := payload.Payload.Authorization

	if payload.X402Version != int(types.X402Version1) {
		res.record("unsupported x402 version: %d", payload.X402Version)
	}

	req := matchRequirement(payload.Network, accepts)
	if req == nil {
		res.record("unsupported payment network: %s", payload.Network)
	} else {
		res.Requirement = req

		if !strings.EqualFold(payload.Scheme, req.Scheme) {
			res.record("unsupported payment scheme: %s", payload.Scheme)
		}

		checkValue(res, auth.Value, req.MaxAmountRequired)
		checkRecipient(res, auth.To, req)
	}

	checkTimeWindow(res, auth.ValidAfter, auth.ValidBefore, v.now().Unix())

	res.Valid = len(res.Findings) == 0
	return res
}

func (r *Result) record(format string, args ...interface{}) {
	r.Findings = append(r.Findings, fmt.Sprintf(format, args...))
}

func matchRequirement(network string, accepts []types.PaymentRequirements) *types.PaymentRequirements {
	for i := range accepts {
		if strings.EqualFold(accepts[i].Network, network) {
			return &accepts[i]
		}
	}
	return nil
}

// checkValue compares the authorized value against the required amount
// as unsigned 256-bit integers.
func checkValue(res *Result, value, maxAmountRequired string) {
	v, err := uint256.FromDecimal(value)
	if err != nil {
		res.record("invalid payment value: %q", value)
		return
	}

	required, err := uint256.FromDecimal(maxAmountRequired)
	if err != nil {
		res.record("invalid maxAmountRequired in requirement: %q", maxAmountRequired)
		return
	}

	if v.Lt(required) {
		res.record("Value too low: %s < %s", v.Dec(), required.Dec())
	}
}

// checkRecipient compares the authorized recipient with the advertised
// payout address. EVM addresses compare case-insensitively.
func checkRecipient(res *Result, to string, req *types.PaymentRequirements) {
	if types.Network(req.Network).IsEVM() {
		if !strings.EqualFold(to, req.PayTo) {
			res.record("payment recipient mismatch: expected %s, got %s", req.PayTo, to)
		}
		return
	}
	if to != req.PayTo {
		res.record("payment recipient mismatch: expected %s, got %s", req.PayTo, to)
	}
}

// checkTimeWindow verifies now lies within [validAfter, validBefore].
// Findings name the violated bound.
func checkTimeWindow(res *Result, validAfter, validBefore string, now int64) {
	va, err := strconv.ParseInt(validAfter, 10, 64)
	if err != nil {
		res.record("invalid validAfter timestamp: %q", validAfter)
	} else if now < va {
		res.record("payment not yet valid: validAfter %d is in the future", va)
	}

	vb, err := strconv.ParseInt(validBefore, 10, 64)
	if err != nil {
		res.record("invalid validBefore timestamp: %q", validBefore)
	} else if now > vb {
		res.record("payment expired: validBefore %d has passed", vb)
	}
}
