package facilitator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/paymesh/walletgate/types"
)

// DefaultBaseURL targets the Coinbase CDP x402 facilitator.
const DefaultBaseURL = "https://api.cdp.coinbase.com/platform/v2/x402"

const defaultHTTPTimeout = 30 * time.Second

// API is the facilitator surface the webhook flow depends on. Callers
// that need a stub in tests implement this instead of Client.
type API interface {
	Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error)
	Settle(ctx context.Context, req *types.VerifyRequest) (*types.SettleResponse, error)
}

// Client calls the facilitator verify/settle endpoints over HTTPS,
// authenticating each request with a freshly built bearer token.
type Client struct {
	baseURL    string
	creds      Credentials
	httpClient *http.Client
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithBaseURL overrides the facilitator endpoint, e.g. for a sandbox
// deployment or a test server.
func WithBaseURL(baseURL string) ClientOption {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPTimeout bounds each verify/settle HTTP call.
func WithHTTPTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// NewClient builds a facilitator client against the CDP production
// endpoint unless WithBaseURL says otherwise.
func NewClient(creds Credentials, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: DefaultBaseURL,
		creds:   creds,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Verify asks the facilitator whether the payment proof is valid. Any
// transport or upstream failure is returned as an error; an invalid
// payment is an in-band result with IsValid false.
func (c *Client) Verify(ctx context.Context, req *types.VerifyRequest) (*types.VerifyResponse, error) {
	var out types.VerifyResponse
	if err := c.post(ctx, "verify", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Settle asks the facilitator to execute the transfer on-chain. A
// returned error means the call itself failed; a settlement rejection
// is an in-band result with Success false.
func (c *Client) Settle(ctx context.Context, req *types.VerifyRequest) (*types.SettleResponse, error) {
	var out types.SettleResponse
	if err := c.post(ctx, "settle", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) post(ctx context.Context, op string, in, out interface{}) error {
	body, err := json.Marshal(in)
	if err != nil {
		return errors.Wrapf(err, "marshal facilitator %s request", op)
	}

	endpoint := c.baseURL + "/" + op
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrapf(err, "build facilitator %s request", op)
	}

	token, err := c.authToken(httpReq)
	if err != nil {
		return err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return types.X402Error{
			Code:    types.ErrNetworkError,
			Message: fmt.Sprintf("facilitator %s call failed: %v", op, err),
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return types.X402Error{
			Code:    types.ErrNetworkError,
			Message: fmt.Sprintf("facilitator %s returned status %d: %s", op, resp.StatusCode, string(respBody)),
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return types.X402Error{
			Code:    types.ErrNetworkError,
			Message: fmt.Sprintf("decode facilitator %s response: %v", op, err),
		}
	}
	return nil
}

// authToken builds the single-use bearer token for one outbound call,
// bound to that call's method, host and path.
func (c *Client) authToken(req *http.Request) (string, error) {
	return BuildAuthToken(c.creds, req.Method, req.URL.Host, req.URL.Path)
}
