package server_test

import (
	"context"
	"crypto/hmac"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/config"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/dispatch"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/server"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/session"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/signer"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/txstore"
	"github.com/Ashenafi-pixel/gamecrafter-wallet-bridge/upstream"
)

type staticResolver struct {
	creds session.Credentials
	err   error
}

func (s staticResolver) Resolve(ctx context.Context, playerID string) (session.Credentials, error) {
	return s.creds, s.err
}

// walletStub fakes the upstream casino wallet: verifies the signature
// over the received bytes and answers with a balance.
func walletStub(t *testing.T, secret string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		want := signer.Sign(body, secret)
		got := r.Header.Get(upstream.SignatureHeader)
		if !hmac.Equal([]byte(want), []byte(got)) {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error":"bad signature"}`))
			return
		}
		var payload map[string]string
		require.NoError(t, json.Unmarshal(body, &payload))
		_, _ = w.Write([]byte(`{"balance":970,"transaction_id":"` + payload["transaction_id"] + `"}`))
	}))
}

func newTestServer(t *testing.T, resolver session.Resolver) (*httptest.Server, *txstore.FileStore) {
	t.Helper()
	store := txstore.NewFileStore(t.TempDir())
	d := dispatch.New(zap.NewNop(), store, resolver, signer.JSON{}, upstream.New(2*time.Second), dispatch.Options{})
	srv := server.New(&config.Config{}, zap.NewNop(), d, store)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts, store
}

func postAction(t *testing.T, ts *httptest.Server, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(ts.URL+"/api/game-provider", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestServer_BetEndToEnd(t *testing.T) {
	wallet := walletStub(t, "s3cret")
	defer wallet.Close()

	ts, store := newTestServer(t, staticResolver{creds: session.Credentials{
		UserID: "u1", AuthToken: "s3cret", ClientURL: wallet.URL,
	}})

	resp := postAction(t, ts, `{
		"action":"bet","player_id":"p1","amount":30,"currency":"USD",
		"game_uuid":"g1","transaction_id":"t1","session_id":"s1","type":"bet"
	}`)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 970.0, body["balance"], "upstream answer relayed verbatim")
	assert.Equal(t, "t1", body["transaction_id"])

	records, err := store.Recent(context.Background(), 100)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, -30.0, records[0].Balance)
}

func TestServer_DuplicateBet(t *testing.T) {
	wallet := walletStub(t, "s3cret")
	defer wallet.Close()

	ts, store := newTestServer(t, staticResolver{creds: session.Credentials{
		UserID: "u1", AuthToken: "s3cret", ClientURL: wallet.URL,
	}})

	payload := `{"action":"bet","player_id":"p1","amount":30,"currency":"USD",
		"game_uuid":"g1","transaction_id":"t1","session_id":"s1","type":"bet"}`
	resp := postAction(t, ts, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp = postAction(t, ts, payload)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, -30.0, body["balance"], "duplicate answered from the ledger")

	records, _ := store.Recent(context.Background(), 100)
	assert.Len(t, records, 1)
}

func TestServer_ValidationError(t *testing.T) {
	ts, store := newTestServer(t, staticResolver{})

	resp := postAction(t, ts, `{"action":"bet","player_id":"p1","amount":30,"currency":"USD","session_id":"s1"}`)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var apiErr server.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "validation failed", apiErr.Error)
	assert.Contains(t, apiErr.Fields, "transaction_id")
	assert.Contains(t, apiErr.Fields, "game_uuid")

	records, _ := store.Recent(context.Background(), 100)
	assert.Empty(t, records)
}

func TestServer_BadJSON(t *testing.T) {
	ts, _ := newTestServer(t, staticResolver{})
	resp := postAction(t, ts, `{nope`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_SessionNotFound(t *testing.T) {
	ts, _ := newTestServer(t, staticResolver{err: session.ErrNotFound})

	resp := postAction(t, ts, `{"action":"bet","player_id":"ghost","amount":5,"currency":"USD",
		"game_uuid":"g1","transaction_id":"t9","session_id":"s1","type":"bet"}`)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)

	var apiErr server.APIError
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&apiErr))
	assert.Equal(t, "session not found", apiErr.Error)
}

func TestServer_UpstreamTimeout(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(500 * time.Millisecond)
	}))
	defer slow.Close()

	store := txstore.NewFileStore(t.TempDir())
	d := dispatch.New(zap.NewNop(), store,
		staticResolver{creds: session.Credentials{UserID: "u1", AuthToken: "x", ClientURL: slow.URL}},
		signer.JSON{}, upstream.New(50*time.Millisecond), dispatch.Options{})
	srv := server.New(&config.Config{}, zap.NewNop(), d, store)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp := postAction(t, ts, `{"action":"bet","player_id":"p1","amount":5,"currency":"USD",
		"game_uuid":"g1","transaction_id":"t1","session_id":"s1","type":"bet"}`)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)
}

func TestServer_Transactions(t *testing.T) {
	wallet := walletStub(t, "s3cret")
	defer wallet.Close()

	ts, _ := newTestServer(t, staticResolver{creds: session.Credentials{
		UserID: "u1", AuthToken: "s3cret", ClientURL: wallet.URL,
	}})

	for _, id := range []string{"t1", "t2"} {
		resp := postAction(t, ts, `{"action":"bet","player_id":"p1","amount":1,"currency":"USD",
			"game_uuid":"g1","transaction_id":"`+id+`","session_id":"s1","type":"bet"}`)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	}

	resp, err := http.Get(ts.URL + "/transactions")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var out struct {
		Success bool                  `json:"success"`
		Data    []txstore.Transaction `json:"data"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	assert.True(t, out.Success)
	require.Len(t, out.Data, 2)
	assert.Equal(t, "t2", out.Data[0].TransactionID, "newest first")
}

func TestServer_Health(t *testing.T) {
	ts, _ := newTestServer(t, staticResolver{})
	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
