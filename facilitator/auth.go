package facilitator

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"

	"github.com/paymesh/walletgate/types"
)

// authTokenTTL bounds the lifetime of a facilitator bearer token. Tokens
// are built fresh for every call and never reused across verify/settle.
const authTokenTTL = 120 * time.Second

// Credentials is a CDP API key pair. KeySecret is either a PEM-encoded
// EC private key (signs ES256) or a base64-encoded 32-byte Ed25519 seed
// (signs EdDSA).
type Credentials struct {
	KeyID     string
	KeySecret string
}

func (c Credentials) validate() error {
	if c.KeyID == "" || c.KeySecret == "" {
		return types.X402Error{
			Code:    types.ErrConfigError,
			Message: "facilitator credentials are not configured",
		}
	}
	return nil
}

type authClaims struct {
	jwt.RegisteredClaims
	URI string `json:"uri"`
}

// BuildAuthToken signs a bearer token for a single facilitator call,
// bound to the exact method, host and path of that call.
func BuildAuthToken(creds Credentials, method, host, path string) (string, error) {
	if err := creds.validate(); err != nil {
		return "", err
	}

	key, alg, err := parseSigningKey(creds.KeySecret)
	if err != nil {
		return "", err
	}

	nonce, err := randomNonce()
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := authClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "cdp",
			Subject:   creds.KeyID,
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(authTokenTTL)),
		},
		URI: method + " " + host + path,
	}

	token := jwt.NewWithClaims(alg, claims)
	token.Header["kid"] = creds.KeyID
	token.Header["nonce"] = nonce

	signed, err := token.SignedString(key)
	if err != nil {
		return "", errors.Wrap(err, "sign facilitator auth token")
	}
	return signed, nil
}

// parseSigningKey maps the key secret onto a signing algorithm. A PEM
// body must hold an EC private key; everything else must decode to a
// raw Ed25519 seed.
func parseSigningKey(secret string) (interface{}, jwt.SigningMethod, error) {
	secret = strings.TrimSpace(secret)

	if strings.Contains(secret, "-----BEGIN") {
		key, err := jwt.ParseECPrivateKeyFromPEM([]byte(secret))
		if err != nil {
			return nil, nil, types.X402Error{
				Code:    types.ErrUnsupportedKeyType,
				Message: "facilitator key is PEM-encoded but not an EC private key",
			}
		}
		return key, jwt.SigningMethodES256, nil
	}

	seed, err := base64.StdEncoding.DecodeString(secret)
	if err != nil || len(seed) != ed25519.SeedSize {
		return nil, nil, types.X402Error{
			Code:    types.ErrUnsupportedKeyType,
			Message: "facilitator key is neither a PEM EC key nor a base64 32-byte Ed25519 seed",
		}
	}
	return ed25519.NewKeyFromSeed(seed), jwt.SigningMethodEdDSA, nil
}

func randomNonce() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", errors.Wrap(err, "generate auth token nonce")
	}
	return hex.EncodeToString(buf), nil
}
