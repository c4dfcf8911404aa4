package public_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ardanlabs/blockbank/app/services/ledger/handlers"
	"github.com/ardanlabs/blockbank/business/web/errs"
	"github.com/ardanlabs/blockbank/foundation/blockchain/genesis"
	"github.com/ardanlabs/blockbank/foundation/blockchain/ledger"
	"github.com/ardanlabs/blockbank/foundation/blockchain/worker"
	"github.com/ardanlabs/blockbank/foundation/events"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type receipt struct {
	ID          string `json:"id"`
	From        string `json:"from"`
	To          string `json:"to"`
	Amount      string `json:"amount"`
	Status      string `json:"status"`
	BlockNumber uint64 `json:"block_number"`
	BlockHash   string `json:"block_hash"`
}

func newServer(t *testing.T, difficulty uint, submitWait time.Duration) (http.Handler, *ledger.Ledger) {
	g := genesis.Default()
	g.Difficulty = difficulty
	g.Balances["alice"] = decimal.NewFromInt(100)

	l, err := ledger.New(ledger.Config{Genesis: g})
	require.NoError(t, err)
	t.Cleanup(func() { l.Shutdown() })

	worker.Run(l, nil)

	mux := handlers.PublicMux(handlers.MuxConfig{
		Log:        zap.NewNop().Sugar(),
		Ledger:     l,
		Evts:       events.New(),
		SubmitWait: submitWait,
	})

	return mux, l
}

func do(t *testing.T, h http.Handler, method string, path string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	return w
}

func TestSubmitTransaction(t *testing.T) {
	h, l := newServer(t, 1, 5*time.Second)

	w := do(t, h, http.MethodPost, "/v1/tx/submit", map[string]any{
		"from":   "alice",
		"to":     "bob",
		"amount": "40.5",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var got receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "sealed", got.Status)
	assert.Equal(t, uint64(1), got.BlockNumber)
	assert.Equal(t, "40.5", got.Amount)
	assert.NotEmpty(t, got.BlockHash)

	assert.True(t, l.Balance("bob").Equal(decimal.RequireFromString("40.5")))

	w = do(t, h, http.MethodGet, "/v1/tx/list/bob", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var list []receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &list))
	require.Len(t, list, 1)
	assert.Equal(t, got.ID, list[0].ID)

	w = do(t, h, http.MethodGet, "/v1/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var stats ledger.Stats
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, ledger.Stats{TotalBlocks: 2, TotalTransactions: 1, IsValid: true}, stats)
}

func TestSubmitRejected(t *testing.T) {
	h, l := newServer(t, 1, 5*time.Second)

	tt := []struct {
		name string
		body any
	}{
		{name: "negative", body: map[string]any{"from": "alice", "to": "bob", "amount": "-1"}},
		{name: "insufficient", body: map[string]any{"from": "alice", "to": "bob", "amount": "100.01"}},
		{name: "missing", body: map[string]any{"from": "alice", "amount": "1"}},
		{name: "unknown field", body: map[string]any{"from": "alice", "to": "bob", "amount": "1", "tip": 5}},
	}

	for _, tst := range tt {
		t.Run(tst.name, func(t *testing.T) {
			w := do(t, h, http.MethodPost, "/v1/tx/submit", tst.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			var resp errs.Response
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}

	assert.Equal(t, 1, l.Stats().TotalBlocks)
	assert.Equal(t, 0, l.MempoolLength())
}

func TestSubmitAccepted(t *testing.T) {
	h, l := newServer(t, 64, 50*time.Millisecond)

	w := do(t, h, http.MethodPost, "/v1/tx/submit", map[string]any{
		"from":   "alice",
		"to":     "bob",
		"amount": 10,
	})
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var got receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "pending", got.Status)
	assert.Equal(t, 1, l.MempoolLength())

	w = do(t, h, http.MethodGet, "/v1/tx/uncommitted/list", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var pending []receipt
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &pending))
	require.Len(t, pending, 1)
	assert.Equal(t, got.ID, pending[0].ID)
}

func TestQueries(t *testing.T) {
	h, _ := newServer(t, 1, 5*time.Second)

	w := do(t, h, http.MethodGet, "/v1/blocks/list", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var blocks []map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &blocks))
	require.Len(t, blocks, 1)
	assert.Equal(t, "0", blocks[0]["prev_block_hash"])

	w = do(t, h, http.MethodGet, "/v1/blocks/list/0", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/v1/blocks/list/7", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = do(t, h, http.MethodGet, "/v1/balances/list/alice", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var bals struct {
		Balances []struct {
			Account   string `json:"account"`
			Balance   string `json:"balance"`
			Available string `json:"available"`
		} `json:"balances"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &bals))
	require.Len(t, bals.Balances, 1)
	assert.Equal(t, "0", bals.Balances[0].Balance)
	assert.Equal(t, "100", bals.Balances[0].Available)

	w = do(t, h, http.MethodGet, "/v1/genesis/list", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(t, h, http.MethodGet, "/v1/tx/list/nobody", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
}
