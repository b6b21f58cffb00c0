package wallet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/paymesh/walletgate/keys"
	"github.com/paymesh/walletgate/types"
)

const (
	testAPIKey  = "sk_staging_abc123"
	testLocator = "email:bob@example.com:evm-smart-wallet"
	testKeyHex  = "ac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
)

type capturedRequest struct {
	method         string
	path           string
	query          string
	apiKey         string
	idempotencyKey string
	contentType    string
	body           []byte
}

func capture(t *testing.T, status int, response string) (*httptest.Server, *capturedRequest) {
	t.Helper()
	got := &capturedRequest{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got.method = r.Method
		got.path = r.URL.Path
		got.query = r.URL.RawQuery
		got.apiKey = r.Header.Get("X-API-KEY")
		got.idempotencyKey = r.Header.Get("X-Idempotency-Key")
		got.contentType = r.Header.Get("Content-Type")
		got.body, _ = io.ReadAll(r.Body)
		w.WriteHeader(status)
		w.Write([]byte(response))
	}))
	t.Cleanup(srv.Close)
	return srv, got
}

func TestCreateWallet(t *testing.T) {
	srv, got := capture(t, http.StatusCreated, `{
		"type": "evm-smart-wallet",
		"address": "0x384Aa214be0B279cbf211e9b2C992d8633F77848",
		"linkedUser": "email:bob@example.com",
		"createdAt": "2025-04-01T10:00:00Z"
	}`)

	client := NewClient(srv.URL, testAPIKey)
	wallet, err := client.CreateWallet(context.Background(), CreateWalletRequest{
		Type:       "evm-smart-wallet",
		LinkedUser: "email:bob@example.com",
	})
	require.NoError(t, err)

	assert.Equal(t, http.MethodPost, got.method)
	assert.Equal(t, "/wallets", got.path)
	assert.Equal(t, testAPIKey, got.apiKey)
	assert.Equal(t, "application/json", got.contentType)

	_, err = uuid.Parse(got.idempotencyKey)
	assert.NoError(t, err, "idempotency key must be a uuid")

	var body CreateWalletRequest
	require.NoError(t, json.Unmarshal(got.body, &body))
	assert.Equal(t, "evm-smart-wallet", body.Type)
	assert.Equal(t, "email:bob@example.com", body.LinkedUser)

	assert.Equal(t, "0x384Aa214be0B279cbf211e9b2C992d8633F77848", wallet.Address)
	assert.Equal(t, "evm-smart-wallet", wallet.Type)
}

func TestIdempotencyKeysAreFreshPerRequest(t *testing.T) {
	seen := map[string]bool{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen[r.Header.Get("X-Idempotency-Key")] = true
		w.Write([]byte(`{"id":"t1","status":"pending"}`))
	}))
	t.Cleanup(srv.Close)

	client := NewClient(srv.URL, testAPIKey)
	for i := 0; i < 3; i++ {
		_, err := client.Transfer(context.Background(), testLocator, "usdc", TransferRequest{
			Recipient: "0x0000000000000000000000000000000000000001",
			Amount:    "100",
		})
		require.NoError(t, err)
	}
	assert.Len(t, seen, 3)
}

func TestBalances(t *testing.T) {
	srv, got := capture(t, http.StatusOK, `[
		{"token": "usdc", "decimals": 6, "balances": {"base-sepolia": "2500000", "total": "2500000"}}
	]`)

	client := NewClient(srv.URL, testAPIKey)
	balances, err := client.Balances(context.Background(), testLocator, []string{"usdc", "eth"})
	require.NoError(t, err)

	assert.Equal(t, http.MethodGet, got.method)
	assert.Equal(t, "/wallets/"+testLocator+"/balances", got.path)
	assert.Equal(t, "tokens=usdc%2Ceth", got.query)
	assert.Empty(t, got.idempotencyKey)

	require.Len(t, balances, 1)
	assert.Equal(t, "usdc", balances[0].Token)
	assert.Equal(t, 6, balances[0].Decimals)
	assert.Equal(t, "2500000", balances[0].Balances["total"])
}

func TestTransfer(t *testing.T) {
	srv, got := capture(t, http.StatusOK, `{"id": "transfer-9", "status": "pending"}`)

	client := NewClient(srv.URL, testAPIKey)
	transfer, err := client.Transfer(context.Background(), testLocator, "usdc", TransferRequest{
		Recipient: "base-sepolia:0x0000000000000000000000000000000000000001",
		Amount:    "1000000",
	})
	require.NoError(t, err)

	assert.Equal(t, "/wallets/"+testLocator+"/tokens/usdc/transfers", got.path)

	var body TransferRequest
	require.NoError(t, json.Unmarshal(got.body, &body))
	assert.Equal(t, "1000000", body.Amount)

	assert.Equal(t, "transfer-9", transfer.ID)
	assert.Equal(t, "pending", transfer.Status)
}

func TestApproveTransaction(t *testing.T) {
	srv, got := capture(t, http.StatusOK, `{"id": "tx-1", "status": "success", "hash": "0xfeed"}`)

	client := NewClient(srv.URL, testAPIKey)
	tx, err := client.ApproveTransaction(context.Background(), testLocator, "tx-1", []Approval{
		{Signer: "evm-keypair:0xf39F", Signature: "0xsig"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/wallets/"+testLocator+"/transactions/tx-1/approvals", got.path)

	var body map[string][]Approval
	require.NoError(t, json.Unmarshal(got.body, &body))
	require.Len(t, body["approvals"], 1)
	assert.Equal(t, "0xsig", body["approvals"][0].Signature)

	assert.Equal(t, "success", tx.Status)
	assert.Equal(t, "0xfeed", tx.Hash)
}

func TestMintNFT(t *testing.T) {
	srv, got := capture(t, http.StatusOK, `{
		"id": "nft-3",
		"actionId": "action-7",
		"onChain": {"status": "pending", "chain": "base-sepolia"}
	}`)

	client := NewClient(srv.URL, testAPIKey)
	nft, err := client.MintNFT(context.Background(), "collection-1", MintNFTRequest{
		Recipient: "email:bob@example.com:base-sepolia",
		Metadata:  NFTMetadata{Name: "Receipt #42"},
	})
	require.NoError(t, err)

	assert.Equal(t, "/collections/collection-1/nfts", got.path)
	assert.Equal(t, "nft-3", nft.ID)
	assert.Equal(t, "action-7", nft.ActionID)
	assert.Equal(t, "pending", nft.OnChain["status"])
}

func TestErrorsCarryUpstreamStatusAndBody(t *testing.T) {
	srv, _ := capture(t, http.StatusForbidden, `{"message":"invalid api key"}`)

	client := NewClient(srv.URL, "wrong-key")
	_, err := client.CreateWallet(context.Background(), CreateWalletRequest{Type: "evm-smart-wallet"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "invalid api key")
}

func TestSignApproval(t *testing.T) {
	message := map[string]any{
		"userOperationHash": "0x58b035e90107b0b1cbcb149db9b43e2ee461eaa0a6c2ddbbfd6d433bcaa4e31c",
	}

	approval, err := SignApproval(types.ChainEVM, testKeyHex, "evm-keypair:0xf39F", message)
	require.NoError(t, err)
	assert.Equal(t, "evm-keypair:0xf39F", approval.Signer)

	signed, err := keys.SignMessage(types.ChainEVM, testKeyHex, message)
	require.NoError(t, err)
	assert.Equal(t, signed.Signature, approval.Signature)
}

func TestSignApprovalPropagatesKeyErrors(t *testing.T) {
	_, err := SignApproval(types.ChainEVM, "zz-not-hex", "signer", "message")
	require.Error(t, err)
	var xerr types.X402Error
	require.ErrorAs(t, err, &xerr)
	assert.Equal(t, types.ErrInvalidKeyFormat, xerr.Code)
}
