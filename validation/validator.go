// Package validation performs the local checks on X-PAYMENT proof headers
// before anything is sent to the facilitator: base64/JSON decoding, shape
// validation and the business rules against the advertised requirements.
package validation

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/paymesh/walletgate/types"
)

// Validator decodes and checks payment headers. The zero value is not
// usable; construct it with New.
type Validator struct {
	validate *validator.Validate
	now      func() time.Time
}

// New returns a Validator using the wall clock.
func New() *Validator {
	v := validator.New()

	// Report field paths by their json names so findings match the wire
	// format ("payload.authorization.from", not "Payload.Authorization.From").
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return &Validator{validate: v, now: time.Now}
}

// WithClock replaces the time source. Intended for tests.
func (v *Validator) WithClock(now func() time.Time) *Validator {
	v.now = now
	return v
}

// DecodeHeader turns the raw X-PAYMENT header value into a payment
// payload. Any decoding failure is reported as a malformed header; JSON
// type mismatches name the offending field.
func (v *Validator) DecodeHeader(header string) (*types.PaymentPayload, error) {
	if strings.TrimSpace(header) == "" {
		return nil, types.X402Error{
			Code:    types.ErrMalformedPaymentHeader,
			Message: "payment header is empty",
		}
	}

	raw, err := decodeBase64(header)
	if err != nil {
		return nil, types.X402Error{
			Code:    types.ErrMalformedPaymentHeader,
			Message: "payment header is not valid base64",
		}
	}

	var payload types.PaymentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return nil, types.X402Error{
				Code:    types.ErrMalformedPaymentHeader,
				Message: fmt.Sprintf("payment header field %q must be a %s", fieldPath(typeErr), typeErr.Type),
			}
		}
		return nil, types.X402Error{
			Code:    types.ErrMalformedPaymentHeader,
			Message: "payment header is not valid JSON",
		}
	}
	return &payload, nil
}

// ValidateShape reports every missing required field of the payload,
// one finding per field. An empty result means the shape is complete.
func (v *Validator) ValidateShape(payload *types.PaymentPayload) []string {
	err := v.validate.Struct(payload)
	if err == nil {
		return nil
	}

	verrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return []string{fmt.Sprintf("invalid payment payload: %v", err)}
	}

	findings := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		// Namespace starts with the struct type name; drop it.
		path := fe.Namespace()
		if i := strings.Index(path, "."); i >= 0 {
			path = path[i+1:]
		}
		findings = append(findings, fmt.Sprintf("missing required field: %s", path))
	}
	return findings
}

// decodeBase64 accepts the standard alphabet and falls back to the URL
// alphabet, with and without padding.
func decodeBase64(s string) ([]byte, error) {
	if raw, err := base64.StdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	if raw, err := base64.URLEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	if raw, err := base64.RawStdEncoding.DecodeString(s); err == nil {
		return raw, nil
	}
	return base64.RawURLEncoding.DecodeString(s)
}

func fieldPath(e *json.UnmarshalTypeError) string {
	if e.Field != "" {
		return e.Field
	}
	return "(root)"
}
