package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/contextstore"
	"github.com/marketsignal/decisionengine/internal/decision"
	"github.com/marketsignal/decisionengine/internal/ledger/memory"
	"github.com/marketsignal/decisionengine/internal/marketcache"
	"github.com/marketsignal/decisionengine/internal/marketcontext"
	"github.com/marketsignal/decisionengine/internal/metrics"
	"github.com/marketsignal/decisionengine/internal/net/budget"
	"github.com/marketsignal/decisionengine/internal/net/ratelimit"
	"github.com/marketsignal/decisionengine/internal/orchestrator"
	"github.com/marketsignal/decisionengine/internal/providers"
	"github.com/marketsignal/decisionengine/internal/router"
	receiptmemory "github.com/marketsignal/decisionengine/internal/webhookreceipt/memory"
)

func testDeps(t *testing.T) Deps {
	t.Helper()
	cfg := config.MustLoadDefault()

	feedServer := httptest.NewServer(newQuoteMux())
	t.Cleanup(feedServer.Close)
	httpClient := feedServer.Client()

	rateLimits := ratelimit.NewManager()
	rateLimits.AddProvider("options", 100, 10)
	rateLimits.AddProvider("analytics", 100, 10)
	rateLimits.AddProvider("liquidity", 100, 10)

	budgets := budget.NewManager()
	budgets.AddProvider("options", 10000, 0, 0.8)
	budgets.AddProvider("analytics", 800, 0, 0.8)
	budgets.AddProvider("liquidity", 200, 0, 0.8)

	builder := marketcontext.NewBuilder(cfg.FeedTimeouts, cfg.CacheTTLs, marketcontext.Deps{
		Cache:      marketcache.NewMemoryCache(time.Minute),
		RateLimits: rateLimits,
		Budgets:    budgets,
		Options:    &providers.OptionsClient{Client: providers.Client{HTTP: httpClient, BaseURL: feedServer.URL}},
		Analytics:  &providers.AnalyticsClient{Client: providers.Client{HTTP: httpClient, BaseURL: feedServer.URL}},
		Liquidity:  &providers.LiquidityClient{Client: providers.Client{HTTP: httpClient, BaseURL: feedServer.URL}},
	})

	store := contextstore.New(cfg.Completeness)
	ledgerStore := memory.New()
	receiptStore := receiptmemory.New()
	reg := metrics.NewRegistry(prometheus.NewRegistry())

	orch := orchestrator.New(orchestrator.Deps{
		Cfg:      cfg,
		Store:    store,
		Builder:  builder,
		Engine:   decision.NewEngine(cfg),
		Ledger:   ledgerStore,
		Metrics:  reg,
		Receipts: receiptStore,
	})

	return Deps{
		Orchestrator:  orch,
		Ledger:        ledgerStore,
		Store:         store,
		Receipts:      receiptStore,
		Metrics:       reg,
		EngineVersion: cfg.Hash(),
	}
}

func newQuoteMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/options/BTC-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"putVolume":100,"callVolume":200,"ivPercentile":55,"optionVolume":300}`))
	})
	mux.HandleFunc("/analytics/BTC-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"closes":[100,101,102],"highs":[101,102,103],"lows":[99,100,101],"volumes":[10,20,30]}`))
	})
	mux.HandleFunc("/quote/BTC-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bid":99.97,"ask":100.03,"bidSize":5000,"askSize":5000,"volume":1000,"avgVolume20":900}`))
	})
	return mux
}

// newTestRouter builds the route table the same way NewServer does,
// without binding a listening socket, so handlers can be exercised
// directly through httptest.
func newTestRouter(deps Deps) *mux.Router {
	s := &Server{router: mux.NewRouter()}
	s.setupRoutes(deps)
	return s.router
}

func postJSON(t *testing.T, h http.Handler, path string, body map[string]any) *httptest.ResponseRecorder {
	t.Helper()
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(b))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestWebhook_PhaseDelivery_WaitsForMoreSources(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	rr := postJSON(t, r, "/api/webhooks/saty-phase", phasePayload())
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "context updated, waiting", resp["message"])
}

func TestWebhook_CompleteContext_ProducesDecision(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	postJSON(t, r, "/api/webhooks/saty-phase", phasePayload())
	rr := postJSON(t, r, "/api/webhooks/signals", rawSignalPayload())
	require.Equal(t, http.StatusOK, rr.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.NotNil(t, resp["decision"])
}

func TestWebhook_UnknownSource_Returns400(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	rr := postJSON(t, r, "/api/webhooks/signals", map[string]any{"foo": "bar"})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestWebhook_AuthRequired_RejectsUnsignedRequest(t *testing.T) {
	deps := testDeps(t)
	deps.Auth = router.AuthConfig{SignatureSecret: "shh"}
	r := newTestRouter(deps)

	rr := postJSON(t, r, "/api/webhooks/saty-phase", phasePayload())
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
}

func TestAdminDecisions_EmptyLedger_ReturnsEmptyList(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/decisions", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.EqualValues(t, 0, resp["count"])
}

func TestAdminPhaseCurrent_MissingSymbol_Returns400(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/phase/current", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestAdminPhaseCurrent_UnknownSymbol_Returns404(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/api/phase/current?symbol=ETH-USD", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestAdminPhaseCurrent_KnownSymbol_ReturnsSnapshot(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	postJSON(t, r, "/api/webhooks/saty-phase", phasePayload())

	req := httptest.NewRequest(http.MethodGet, "/api/phase/current?symbol=BTC-USD", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAdminWebhooksRecent_ReturnsRecordedDeliveries(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	postJSON(t, r, "/api/webhooks/saty-phase", phasePayload())

	req := httptest.NewRequest(http.MethodGet, "/api/webhooks/recent", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.EqualValues(t, 1, resp["count"])
}

func TestHealth_ReportsHealthy(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	var resp healthResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "healthy", resp.Status)
}

func TestNotFound_ReportsRoutePath(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/does/not/exist", nil)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.Equal(t, "/does/not/exist", resp["path"])
}

func TestCORS_AllowsLocalhostOrigin(t *testing.T) {
	deps := testDeps(t)
	r := newTestRouter(deps)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("Origin", "http://localhost:3000")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)

	assert.Equal(t, "http://localhost:3000", rr.Header().Get("Access-Control-Allow-Origin"))
}

func phasePayload() map[string]any {
	return map[string]any{
		"symbol":     "BTC-USD",
		"phase":      2,
		"phaseName":  "MARKUP",
		"volatility": "NORMAL",
		"confidence": 85.0,
		"bias":       "LONG",
	}
}

func rawSignalPayload() map[string]any {
	return map[string]any{
		"symbol":    "BTC-USD",
		"direction": "LONG",
		"aiScore":   9.0,
		"quality":   "EXTREME",
	}
}
