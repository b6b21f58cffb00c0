package keys

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts"

	"github.com/paymesh/walletgate/types"
)

// DigestSource records which precedence rule classified a message input.
type DigestSource string

const (
	// DigestFromHashField: structured input carrying a pre-computed hash.
	DigestFromHashField DigestSource = "hash_field"
	// DigestFromPrefixedHex: 0x-prefixed string decoding to 32 bytes.
	DigestFromPrefixedHex DigestSource = "prefixed_hex"
	// DigestFromBareHex: unprefixed hex string of at least 64 chars.
	DigestFromBareHex DigestSource = "bare_hex"
	// DigestFromText: plain UTF-8 text, hashed as a personal message.
	DigestFromText DigestSource = "text"
	// DigestRaw: bytes signed as-is (Solana).
	DigestRaw DigestSource = "raw"
)

// ResolveMessageDigest classifies an EVM message input and returns the
// digest to sign. The precedence order is fixed:
//
//  1. a structured object carrying a "hash" or "userOperationHash" field
//     uses that hash verbatim
//  2. a string with a 0x prefix that decodes to exactly 32 bytes is a
//     pre-computed hash
//  3. a bare hex string of 64 or more characters that decodes cleanly is
//     a pre-computed hash
//  4. anything else is UTF-8 text, hashed with the
//     "\x19Ethereum Signed Message:\n" prefix (EIP-191)
//
// The classification itself never fails for strings; only structured
// objects without a usable hash field are an error.
func ResolveMessageDigest(message any) ([]byte, DigestSource, error) {
	switch m := message.(type) {
	case string:
		return resolveStringDigest(m)

	case map[string]interface{}:
		for _, field := range []string{"hash", "userOperationHash"} {
			raw, ok := m[field]
			if !ok {
				continue
			}
			str, ok := raw.(string)
			if !ok {
				return nil, "", types.X402Error{
					Code:    types.ErrInvalidPayload,
					Message: fmt.Sprintf("message field %q must be a string", field),
				}
			}
			digest, err := hex.DecodeString(strings.TrimPrefix(str, "0x"))
			if err != nil || len(digest) != 32 {
				return nil, "", types.X402Error{
					Code:    types.ErrInvalidPayload,
					Message: fmt.Sprintf("message field %q must be a 32-byte hex hash", field),
				}
			}
			return digest, DigestFromHashField, nil
		}
		return nil, "", types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: "structured message needs a hash or userOperationHash field",
		}

	default:
		return nil, "", types.X402Error{
			Code:    types.ErrInvalidPayload,
			Message: fmt.Sprintf("unsupported message type %T", message),
		}
	}
}

func resolveStringDigest(s string) ([]byte, DigestSource, error) {
	if strings.HasPrefix(s, "0x") {
		if digest, err := hex.DecodeString(s[2:]); err == nil && len(digest) == 32 {
			return digest, DigestFromPrefixedHex, nil
		}
		// Malformed 0x strings fall through to the text rule.
	} else if len(s) >= 64 && len(s)%2 == 0 {
		if digest, err := hex.DecodeString(s); err == nil {
			return digest, DigestFromBareHex, nil
		}
	}
	return accounts.TextHash([]byte(s)), DigestFromText, nil
}
