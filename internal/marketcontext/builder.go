// Package marketcontext implements the Market Context Builder (C6):
// parallel fan-out to the options, analytics, and liquidity providers,
// each independently rate-limited, budgeted, cached, and circuit-
// broken, merged into one MarketContext with typed fallback on
// failure.
package marketcontext

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/sony/gobreaker"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/domain/types"
	"github.com/marketsignal/decisionengine/internal/errcat"
	"github.com/marketsignal/decisionengine/internal/marketcache"
	"github.com/marketsignal/decisionengine/internal/net/budget"
	"github.com/marketsignal/decisionengine/internal/net/ratelimit"
	"github.com/marketsignal/decisionengine/internal/providers"
)

const (
	providerOptions   = "options"
	providerAnalytics = "analytics"
	providerLiquidity = "liquidity"
)

// Builder assembles a MarketContext for one symbol per request.
type Builder struct {
	feeds      config.FeedTimeouts
	ttls       config.CacheTTLs
	cache      marketcache.Cache
	rateLimits *ratelimit.Manager
	budgets    *budget.Manager
	breakers   map[string]*gobreaker.CircuitBreaker

	options   *providers.OptionsClient
	analytics *providers.AnalyticsClient
	liquidity *providers.LiquidityClient
}

// Deps bundles the Builder's collaborators, constructed once at
// startup and shared across requests (all are safe for concurrent use).
type Deps struct {
	Cache      marketcache.Cache
	RateLimits *ratelimit.Manager
	Budgets    *budget.Manager
	Options    *providers.OptionsClient
	Analytics  *providers.AnalyticsClient
	Liquidity  *providers.LiquidityClient
}

func NewBuilder(feeds config.FeedTimeouts, ttls config.CacheTTLs, deps Deps) *Builder {
	breakerFor := func(name string) *gobreaker.CircuitBreaker {
		return gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:        name,
			MaxRequests: 1,
			Interval:    time.Minute,
			Timeout:     30 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
		})
	}

	return &Builder{
		feeds:      feeds,
		ttls:       ttls,
		cache:      deps.Cache,
		rateLimits: deps.RateLimits,
		budgets:    deps.Budgets,
		breakers: map[string]*gobreaker.CircuitBreaker{
			providerOptions:   breakerFor(providerOptions),
			providerAnalytics: breakerFor(providerAnalytics),
			providerLiquidity: breakerFor(providerLiquidity),
		},
		options:   deps.Options,
		analytics: deps.Analytics,
		liquidity: deps.Liquidity,
	}
}

// sectionResult is one provider fan-out leg's outcome, collected over
// a buffered channel per spec §5 (structured concurrency, no
// cross-cancellation on partial failure).
type sectionResult struct {
	name  string
	apply func(*types.MarketContext)
	err   error
}

// BuildContext fans out to all three providers in parallel, each
// independently timed-out, rate-limited, budgeted, cached, and
// circuit-broken. A failing provider never cancels its siblings; its
// section is simply absent and an errors entry is recorded.
func (b *Builder) BuildContext(ctx context.Context, symbol string) (*types.MarketContext, error) {
	results := make(chan sectionResult, 3)
	var wg sync.WaitGroup

	wg.Add(3)
	go func() { defer wg.Done(); results <- b.fetchOptions(ctx, symbol) }()
	go func() { defer wg.Done(); results <- b.fetchAnalytics(ctx, symbol) }()
	go func() { defer wg.Done(); results <- b.fetchLiquidity(ctx, symbol) }()

	go func() {
		wg.Wait()
		close(results)
	}()

	mc := &types.MarketContext{FetchTime: time.Now().UTC()}
	succeeded := 0
	for res := range results {
		if res.err != nil {
			mc.Errors = append(mc.Errors, fmt.Sprintf("%s: %v", res.name, res.err))
			continue
		}
		res.apply(mc)
		succeeded++
	}
	mc.Completeness = float64(succeeded) / 3.0

	return mc, nil
}

func (b *Builder) fetchOptions(ctx context.Context, symbol string) sectionResult {
	key := marketcache.Key(providerOptions, "chain", symbol)
	if cached, ok := b.cache.Get(ctx, key); ok {
		var section types.OptionsSection
		if json.Unmarshal(cached, &section) == nil {
			return sectionResult{name: providerOptions, apply: func(mc *types.MarketContext) { mc.Options = &section }}
		}
	}

	if err := b.checkBudgetAndRate(ctx, providerOptions); err != nil {
		return sectionResult{name: providerOptions, err: err}
	}

	timeout := time.Duration(b.feeds.OptionsMS) * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := b.callWithBreaker(providerOptions, func(ctx context.Context) (any, error) {
		return b.options.Fetch(ctx, symbol)
	}, callCtx)
	if err != nil {
		return sectionResult{name: providerOptions, err: classifyError(err, callCtx)}
	}

	resp := raw.(*providers.RawOptionsResponse)
	pcr := putCallRatio(resp.PutVolume, resp.CallVolume)
	section := types.OptionsSection{
		PutCallRatio: pcr,
		IVPercentile: resp.IVPercentile,
		OptionVolume: resp.OptionVolume,
	}
	if len(resp.Chain) > 0 {
		section.GammaBias = gammaBiasFromChain(resp.Chain)
		section.MaxPain = maxPain(resp.Chain)
	} else {
		section.GammaBias = gammaBiasFromRatio(pcr)
	}

	if data, err := json.Marshal(section); err == nil {
		b.cache.Set(ctx, key, data, time.Duration(b.ttls.IndicatorMS)*time.Millisecond)
	}
	return sectionResult{name: providerOptions, apply: func(mc *types.MarketContext) { mc.Options = &section }}
}

func (b *Builder) fetchAnalytics(ctx context.Context, symbol string) sectionResult {
	key := marketcache.Key(providerAnalytics, "timeseries", symbol)
	if cached, ok := b.cache.Get(ctx, key); ok {
		var section types.StatsSection
		if json.Unmarshal(cached, &section) == nil {
			return sectionResult{name: providerAnalytics, apply: func(mc *types.MarketContext) { mc.Stats = &section }}
		}
	}

	if err := b.checkBudgetAndRate(ctx, providerAnalytics); err != nil {
		return sectionResult{name: providerAnalytics, err: err}
	}

	timeout := time.Duration(b.feeds.AnalyticsMS) * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := b.callWithBreaker(providerAnalytics, func(ctx context.Context) (any, error) {
		return b.analytics.Fetch(ctx, symbol)
	}, callCtx)
	if err != nil {
		return sectionResult{name: providerAnalytics, err: classifyError(err, callCtx)}
	}

	resp := raw.(*providers.RawAnalyticsResponse)
	section := types.StatsSection{
		ATR14:      wilderATR14(resp.Highs, resp.Lows, resp.Closes),
		RSI:        wilderRSI14(resp.Closes),
		RV20:       rv20(resp.Closes),
		TrendSlope: trendSlope(resp.Closes),
	}
	if len(resp.Volumes) > 0 {
		section.Volume = resp.Volumes[len(resp.Volumes)-1]
		if len(resp.Volumes) >= 20 {
			var sum float64
			window := resp.Volumes[len(resp.Volumes)-20:]
			for _, v := range window {
				sum += v
			}
			avg := sum / 20
			if avg > 0 {
				section.VolumeRatio = section.Volume / avg
			}
		}
	}

	if data, err := json.Marshal(section); err == nil {
		b.cache.Set(ctx, key, data, time.Duration(b.ttls.TimeSeriesMS)*time.Millisecond)
	}
	return sectionResult{name: providerAnalytics, apply: func(mc *types.MarketContext) { mc.Stats = &section }}
}

func (b *Builder) fetchLiquidity(ctx context.Context, symbol string) sectionResult {
	key := marketcache.Key(providerLiquidity, "quote", symbol)
	if cached, ok := b.cache.Get(ctx, key); ok {
		var section types.LiquiditySection
		if json.Unmarshal(cached, &section) == nil {
			return sectionResult{name: providerLiquidity, apply: func(mc *types.MarketContext) { mc.Liquidity = &section }}
		}
	}

	if err := b.checkBudgetAndRate(ctx, providerLiquidity); err != nil {
		return sectionResult{name: providerLiquidity, err: err}
	}

	timeout := time.Duration(b.feeds.LiquidityMS) * time.Millisecond
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	raw, err := b.callWithBreaker(providerLiquidity, func(ctx context.Context) (any, error) {
		return b.liquidity.Fetch(ctx, symbol)
	}, callCtx)
	if err != nil {
		return sectionResult{name: providerLiquidity, err: classifyError(err, callCtx)}
	}

	resp := raw.(*providers.RawLiquidityResponse)
	section := types.LiquiditySection{
		SpreadBps:     spreadBps(resp.Bid, resp.Ask),
		DepthScore:    depthScore(resp.BidSize, resp.AskSize),
		TradeVelocity: tradeVelocity(resp.Volume, resp.AvgVolume20),
		BidSize:       resp.BidSize,
		AskSize:       resp.AskSize,
	}

	if data, err := json.Marshal(section); err == nil {
		b.cache.Set(ctx, key, data, time.Duration(b.ttls.QuoteMS)*time.Millisecond)
	}
	return sectionResult{name: providerLiquidity, apply: func(mc *types.MarketContext) { mc.Liquidity = &section }}
}

// checkBudgetAndRate consults the daily budget then the per-minute
// rate limiter; either being exhausted skips the call entirely (a
// soft failure, per spec §4.5 step 2).
func (b *Builder) checkBudgetAndRate(ctx context.Context, provider string) error {
	if _, exhausted := b.budgets.Allow(provider).(*budget.BudgetExhaustedError); exhausted {
		return errcat.New(errcat.KindRateLimited, fmt.Sprintf("%s: daily budget exhausted", provider))
	}
	if !b.rateLimits.Allow(provider, provider) {
		return errcat.New(errcat.KindRateLimited, fmt.Sprintf("%s: per-minute rate limit exceeded", provider))
	}
	return nil
}

// callWithBreaker wraps one provider fetch in its gobreaker instance,
// consuming budget only once the call is actually attempted.
func (b *Builder) callWithBreaker(provider string, fn func(ctx context.Context) (any, error), ctx context.Context) (any, error) {
	breaker := b.breakers[provider]
	return breaker.Execute(func() (any, error) {
		_ = b.budgets.Consume(provider)
		return fn(ctx)
	})
}

// classifyError maps a raw provider error into the taxonomy kinds
// spec §4.5 step 4 names: timeout, rate-limited, 4xx, network, auth.
func classifyError(err error, ctx context.Context) error {
	if ctx.Err() == context.DeadlineExceeded {
		return errcat.New(errcat.KindTimeout, "provider call exceeded deadline")
	}
	if httpErr, ok := asHTTPError(err); ok {
		if httpErr.StatusCode == 401 {
			return errcat.New(errcat.KindAuthenticationFailed, "provider rejected credentials")
		}
		if httpErr.StatusCode == 429 {
			return errcat.New(errcat.KindRateLimited, "provider rate limit exceeded")
		}
		if httpErr.StatusCode >= 400 && httpErr.StatusCode < 500 {
			return errcat.New(errcat.KindAPIError, fmt.Sprintf("provider returned HTTP %d", httpErr.StatusCode))
		}
	}
	return errcat.New(errcat.KindNetworkError, err.Error())
}

func asHTTPError(err error) (*providers.HTTPError, bool) {
	httpErr, ok := err.(*providers.HTTPError)
	return httpErr, ok
}
