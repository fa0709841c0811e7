package marketcontext

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/marketcache"
	"github.com/marketsignal/decisionengine/internal/net/budget"
	"github.com/marketsignal/decisionengine/internal/net/ratelimit"
	"github.com/marketsignal/decisionengine/internal/providers"
)

func testBuilder(t *testing.T, mux *http.ServeMux) *Builder {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	httpClient := server.Client()
	rateLimits := ratelimit.NewManager()
	rateLimits.AddProvider(providerOptions, 100, 10)
	rateLimits.AddProvider(providerAnalytics, 100, 10)
	rateLimits.AddProvider(providerLiquidity, 100, 10)

	budgets := budget.NewManager()
	budgets.AddProvider(providerOptions, 10000, 0, 0.8)
	budgets.AddProvider(providerAnalytics, 800, 0, 0.8)
	budgets.AddProvider(providerLiquidity, 200, 0, 0.8)

	deps := Deps{
		Cache:      marketcache.NewMemoryCache(time.Minute),
		RateLimits: rateLimits,
		Budgets:    budgets,
		Options:    &providers.OptionsClient{Client: providers.Client{HTTP: httpClient, BaseURL: server.URL}},
		Analytics:  &providers.AnalyticsClient{Client: providers.Client{HTTP: httpClient, BaseURL: server.URL}},
		Liquidity:  &providers.LiquidityClient{Client: providers.Client{HTTP: httpClient, BaseURL: server.URL}},
	}

	feeds := config.FeedTimeouts{OptionsMS: 600, AnalyticsMS: 600, LiquidityMS: 600}
	ttls := config.CacheTTLs{QuoteMS: 60_000, IndicatorMS: 300_000, TimeSeriesMS: 900_000}
	return NewBuilder(feeds, ttls, deps)
}

func TestBuildContext_AllProvidersSucceed(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/options/BTC-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"putVolume":100,"callVolume":200,"ivPercentile":55,"optionVolume":300}`))
	})
	mux.HandleFunc("/analytics/BTC-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"closes":[100,101,102],"highs":[101,102,103],"lows":[99,100,101],"volumes":[10,20,30]}`))
	})
	mux.HandleFunc("/quote/BTC-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bid":99.9,"ask":100.1,"bidSize":500,"askSize":500,"volume":1000,"avgVolume20":900}`))
	})

	b := testBuilder(t, mux)
	mc, err := b.BuildContext(t.Context(), "BTC-USD")
	require.NoError(t, err)
	assert.Equal(t, 1.0, mc.Completeness)
	assert.Empty(t, mc.Errors)
	require.NotNil(t, mc.Options)
	require.NotNil(t, mc.Stats)
	require.NotNil(t, mc.Liquidity)
	assert.Equal(t, 0.5, mc.Options.PutCallRatio)
}

func TestBuildContext_PartialFailureDoesNotCancelSiblings(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/options/ETH-USD", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/analytics/ETH-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"closes":[100,101],"highs":[101,102],"lows":[99,100],"volumes":[10,20]}`))
	})
	mux.HandleFunc("/quote/ETH-USD", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"bid":99.9,"ask":100.1,"bidSize":500,"askSize":500,"volume":1000,"avgVolume20":900}`))
	})

	b := testBuilder(t, mux)
	mc, err := b.BuildContext(t.Context(), "ETH-USD")
	require.NoError(t, err)
	assert.InDelta(t, 2.0/3.0, mc.Completeness, 0.001)
	require.Len(t, mc.Errors, 1)
	assert.Nil(t, mc.Options)
	assert.NotNil(t, mc.Stats)
	assert.NotNil(t, mc.Liquidity)
}
