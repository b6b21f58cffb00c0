// Package wallet is a client for the hosted wallet platform that the
// signing flows feed: wallet creation, balances, token transfers, NFT
// mints and approval of pending transactions.
package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/paymesh/walletgate/keys"
	"github.com/paymesh/walletgate/types"
)

const defaultHTTPTimeout = 30 * time.Second

// Client talks to the wallet platform REST API. Every request carries
// the static API key; mutating requests get a fresh idempotency key.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: defaultHTTPTimeout,
		},
	}
}

// Wallet is a provisioned wallet keyed by its locator string.
type Wallet struct {
	Type       string `json:"type"`
	Address    string `json:"address"`
	LinkedUser string `json:"linkedUser,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
}

type CreateWalletRequest struct {
	Type       string         `json:"type"`
	LinkedUser string         `json:"linkedUser,omitempty"`
	Config     map[string]any `json:"config,omitempty"`
}

// Balance reports one token's holdings per chain, in atomic units.
type Balance struct {
	Token    string            `json:"token"`
	Decimals int               `json:"decimals"`
	Balances map[string]string `json:"balances"`
}

type TransferRequest struct {
	Recipient string `json:"recipient"`
	Amount    string `json:"amount"`
}

type Transfer struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Approval is one signer's signature over a pending transaction.
type Approval struct {
	Signer    string `json:"signer"`
	Signature string `json:"signature"`
}

type Transaction struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Hash   string `json:"hash,omitempty"`
}

type NFTMetadata struct {
	Name        string `json:"name"`
	Image       string `json:"image,omitempty"`
	Description string `json:"description,omitempty"`
}

type MintNFTRequest struct {
	Recipient string      `json:"recipient"`
	Metadata  NFTMetadata `json:"metadata"`
}

type NFT struct {
	ID       string            `json:"id"`
	ActionID string            `json:"actionId,omitempty"`
	OnChain  map[string]string `json:"onChain,omitempty"`
}

// CreateWallet provisions a wallet for a user.
func (c *Client) CreateWallet(ctx context.Context, req CreateWalletRequest) (*Wallet, error) {
	var out Wallet
	if err := c.do(ctx, http.MethodPost, "/wallets", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Balances fetches the wallet's holdings for the given tokens.
func (c *Client) Balances(ctx context.Context, locator string, tokens []string) ([]Balance, error) {
	path := "/wallets/" + url.PathEscape(locator) + "/balances"
	if len(tokens) > 0 {
		query := url.Values{}
		query.Set("tokens", strings.Join(tokens, ","))
		path += "?" + query.Encode()
	}

	var out []Balance
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Transfer moves tokens out of the wallet to a recipient locator.
func (c *Client) Transfer(ctx context.Context, locator, token string, req TransferRequest) (*Transfer, error) {
	path := "/wallets/" + url.PathEscape(locator) + "/tokens/" + url.PathEscape(token) + "/transfers"
	var out Transfer
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ApproveTransaction submits signer approvals for a pending
// transaction, typically built with SignApproval.
func (c *Client) ApproveTransaction(ctx context.Context, locator, transactionID string, approvals []Approval) (*Transaction, error) {
	path := "/wallets/" + url.PathEscape(locator) + "/transactions/" + url.PathEscape(transactionID) + "/approvals"
	body := map[string][]Approval{"approvals": approvals}

	var out Transaction
	if err := c.do(ctx, http.MethodPost, path, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MintNFT mints into a collection and delivers to the recipient
// locator.
func (c *Client) MintNFT(ctx context.Context, collectionID string, req MintNFTRequest) (*NFT, error) {
	path := "/collections/" + url.PathEscape(collectionID) + "/nfts"
	var out NFT
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SignApproval signs a pending transaction's message (usually its
// user-operation hash) with a local key and shapes the result for
// ApproveTransaction.
func SignApproval(family types.ChainFamily, privateKey, signerLocator string, message any) (Approval, error) {
	signed, err := keys.SignMessage(family, privateKey, message)
	if err != nil {
		return Approval{}, err
	}
	return Approval{
		Signer:    signerLocator,
		Signature: signed.Signature,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return errors.Wrap(err, "marshal wallet api request")
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return errors.Wrap(err, "build wallet api request")
	}

	req.Header.Set("X-API-KEY", c.apiKey)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if method != http.MethodGet {
		req.Header.Set("X-Idempotency-Key", uuid.NewString())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "call wallet api")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("wallet api returned status %d: %s", resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decode wallet api response")
	}
	return nil
}
