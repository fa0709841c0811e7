// Command engine runs the deterministic trading-decision engine: the
// webhook ingestion server (C10), the replay harness for captured
// webhook deliveries, and the database migration helpers.
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/marketsignal/decisionengine/internal/config"
	"github.com/marketsignal/decisionengine/internal/contextstore"
	"github.com/marketsignal/decisionengine/internal/decision"
	httpapi "github.com/marketsignal/decisionengine/internal/interfaces/http"
	enginelog "github.com/marketsignal/decisionengine/internal/log"
	"github.com/marketsignal/decisionengine/internal/infrastructure/db"
	ledgermemory "github.com/marketsignal/decisionengine/internal/ledger/memory"
	ledgerpostgres "github.com/marketsignal/decisionengine/internal/ledger/postgres"
	"github.com/marketsignal/decisionengine/internal/marketcache"
	"github.com/marketsignal/decisionengine/internal/marketcontext"
	"github.com/marketsignal/decisionengine/internal/metrics"
	"github.com/marketsignal/decisionengine/internal/net/budget"
	"github.com/marketsignal/decisionengine/internal/net/circuit"
	clientnet "github.com/marketsignal/decisionengine/internal/net/client"
	"github.com/marketsignal/decisionengine/internal/net/ratelimit"
	"github.com/marketsignal/decisionengine/internal/orchestrator"
	"github.com/marketsignal/decisionengine/internal/providers"
	"github.com/marketsignal/decisionengine/internal/router"
	receiptmemory "github.com/marketsignal/decisionengine/internal/webhookreceipt/memory"
)

func main() {
	zerolog.TimeFieldFormat = time.RFC3339
	root := &cobra.Command{
		Use:   "engine",
		Short: "Deterministic trading-decision engine",
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newReplayCmd())
	root.AddCommand(newMigrateCmd())

	if err := root.Execute(); err != nil {
		zlog.Fatal().Err(err).Msg("engine: fatal")
	}
}

func newServeCmd() *cobra.Command {
	var configPath string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the webhook ingestion and admin HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(configPath)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to engine config YAML (defaults to the built-in config)")
	return cmd
}

func runServe(configPath string) error {
	cfg, err := loadEngineConfig(configPath)
	if err != nil {
		return err
	}
	zlog.Info().Str("config_hash", cfg.Hash()).Msg("engine: config loaded")

	dbManager, err := connectDatabase()
	if err != nil {
		return fmt.Errorf("engine: database setup: %w", err)
	}
	defer dbManager.Close()

	builder, err := buildMarketContextBuilder(cfg)
	if err != nil {
		return fmt.Errorf("engine: market context builder: %w", err)
	}

	store := contextstore.New(cfg.Completeness)
	reg := metrics.NewRegistry(prometheus.NewRegistry())

	ledgerStore := dbManager.Ledger()
	if ledgerStore == nil {
		zlog.Warn().Msg("engine: PG_ENABLED not set, ledger is in-memory and will not survive a restart")
		ledgerStore = ledgermemory.New()
	}
	receiptStore := dbManager.Receipts()
	if receiptStore == nil {
		receiptStore = receiptmemory.New()
	}

	orch := orchestrator.New(orchestrator.Deps{
		Cfg:          cfg,
		Store:        store,
		Builder:      builder,
		Engine:       decision.NewEngine(cfg),
		Ledger:       ledgerStore,
		Metrics:      reg,
		Receipts:     receiptStore,
		DecisionOnly: os.Getenv("ENGINE_MODE") == "test",
	})

	auth := router.AuthConfig{
		SignatureSecret: os.Getenv("WEBHOOK_SIGNATURE_SECRET"),
		BearerToken:     os.Getenv("WEBHOOK_BEARER_TOKEN"),
	}

	server, err := httpapi.NewServer(httpapi.DefaultServerConfig(), httpapi.Deps{
		Orchestrator:  orch,
		Ledger:        ledgerStore,
		Store:         store,
		Receipts:      receiptStore,
		Metrics:       reg,
		Auth:          auth,
		EngineVersion: cfg.Hash(),
	})
	if err != nil {
		return err
	}

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()
	zlog.Info().Str("addr", server.Address()).Msg("engine: serving")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return fmt.Errorf("server error: %w", err)
	case sig := <-quit:
		zlog.Info().Str("signal", sig.String()).Msg("engine: shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func newReplayCmd() *cobra.Command {
	var configPath string
	var quiet bool
	cmd := &cobra.Command{
		Use:   "replay <captured-webhooks.jsonl>",
		Short: "Replay a file of captured webhook deliveries (one JSON object per line) through the decision pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReplay(args[0], configPath, quiet)
		},
	}
	cmd.Flags().StringVar(&configPath, "config", "", "path to engine config YAML (defaults to the built-in config)")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "suppress per-step progress output")
	return cmd
}

func runReplay(path, configPath string, quiet bool) error {
	cfg, err := loadEngineConfig(configPath)
	if err != nil {
		return err
	}

	file, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("engine: opening replay file: %w", err)
	}
	defer file.Close()

	lines, err := countLines(path)
	if err != nil {
		return fmt.Errorf("engine: counting replay lines: %w", err)
	}

	progressCfg := enginelog.DefaultProgressConfig()
	if quiet {
		progressCfg = enginelog.QuietProgressConfig()
	}
	progress := enginelog.NewProgressIndicator("replay", lines, progressCfg)

	builder, err := buildMarketContextBuilder(cfg)
	if err != nil {
		return fmt.Errorf("engine: market context builder: %w", err)
	}

	store := contextstore.New(cfg.Completeness)
	reg := metrics.NewRegistry(prometheus.NewRegistry())
	ledgerStore := ledgermemory.New()
	receiptStore := receiptmemory.New()

	orch := orchestrator.New(orchestrator.Deps{
		Cfg:          cfg,
		Store:        store,
		Builder:      builder,
		Engine:       decision.NewEngine(cfg),
		Ledger:       ledgerStore,
		Metrics:      reg,
		Receipts:     receiptStore,
		DecisionOnly: true,
	})

	ctx := context.Background()
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var processed, decided, failed int
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var raw map[string]any
		if err := json.Unmarshal(line, &raw); err != nil {
			progress.UpdateWithMessage(processed, fmt.Sprintf("skipping malformed line: %v", err))
			processed++
			continue
		}

		resp, err := orch.ProcessWebhook(ctx, raw)
		processed++
		if err != nil {
			failed++
			progress.UpdateWithMessage(processed, fmt.Sprintf("error: %v", err))
			continue
		}
		if resp.Decision != nil {
			decided++
		}
		progress.Update(processed)
	}
	if err := scanner.Err(); err != nil {
		progress.Fail(err.Error())
		return fmt.Errorf("engine: reading replay file: %w", err)
	}

	progress.FinishWithMessage(fmt.Sprintf("%d processed, %d decisions, %d errors", processed, decided, failed))
	return nil
}

func countLines(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	count := 0
	for scanner.Scan() {
		if len(scanner.Bytes()) > 0 {
			count++
		}
	}
	return count, scanner.Err()
}

func newMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the ledger/receipt database schema",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List the embedded migration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := ledgerpostgres.PendingMigrations()
			if err != nil {
				return err
			}
			for _, name := range names {
				fmt.Println(name)
			}
			return nil
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply the embedded migrations against PG_DSN",
		RunE: func(cmd *cobra.Command, args []string) error {
			dbManager, err := connectDatabase()
			if err != nil {
				return err
			}
			defer dbManager.Close()
			if !dbManager.IsEnabled() {
				return fmt.Errorf("PG_ENABLED=true and PG_DSN must be set to run migrations")
			}

			ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
			defer cancel()
			applied, err := ledgerpostgres.Migrate(ctx, dbManager.DB())
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Printf("applied %s\n", name)
			}
			return nil
		},
	})
	return cmd
}

func loadEngineConfig(configPath string) (*config.Engine, error) {
	if configPath == "" {
		return config.MustLoadDefault(), nil
	}
	return config.Load(configPath)
}

func connectDatabase() (*db.Manager, error) {
	cfg := db.DefaultConfig()
	cfg.Enabled = os.Getenv("PG_ENABLED") == "true"
	cfg.DSN = os.Getenv("PG_DSN")
	return db.NewManager(cfg)
}

// buildMarketContextBuilder wires the three provider feeds behind
// net/client's Wrapper (HTTP-level response caching and circuit
// breaking on the actual transport) while the Market Context Builder
// keeps its own rate-limit/budget admission gate in front of that
// transport, sized from the same provider config. The two layers
// track independent counters, so neither double-consumes the other's
// budget.
func buildMarketContextBuilder(cfg *config.Engine) (*marketcontext.Builder, error) {
	providersCfg := config.DefaultProvidersConfig()

	gateRateLimits := ratelimit.NewManager()
	gateBudgets := budget.NewManager()

	transportRateLimits := ratelimit.NewManager()
	transportBudgets := budget.NewManager()
	transportCircuits := circuit.NewManager()

	cache := buildCache()

	clientMgr := clientnet.NewManager(transportRateLimits, transportCircuits, transportBudgets, cache, &providersCfg.Global)

	httpClients := make(map[string]*http.Client, len(providersCfg.Providers))
	for name, providerCfg := range providersCfg.Providers {
		providerCfg := providerCfg
		gateRateLimits.AddProvider(name, float64(providerCfg.RPS), providerCfg.Burst)
		gateBudgets.AddProvider(name, int64(providerCfg.DailyBudget), 0, 0.8)

		transportRateLimits.AddProvider(name, float64(providerCfg.RPS), providerCfg.Burst)
		transportBudgets.AddProvider(name, int64(providerCfg.DailyBudget), 0, 0.8)
		transportCircuits.AddProvider(name, circuit.Config{
			FailureThreshold: providerCfg.Circuit.FailureThreshold,
			SuccessThreshold: providerCfg.Circuit.SuccessThreshold,
			Timeout:          providerCfg.GetMaxBackoff(),
			RequestTimeout:   providerCfg.GetRequestTimeout(),
		})

		clientMgr.AddProvider(name, &providerCfg)
		httpClient, ok := clientMgr.GetClient(name)
		if !ok {
			return nil, fmt.Errorf("provider %s: client not registered", name)
		}
		httpClients[name] = httpClient
	}

	optionsCfg := providersCfg.Providers["options"]
	analyticsCfg := providersCfg.Providers["analytics"]
	liquidityCfg := providersCfg.Providers["liquidity"]

	return marketcontext.NewBuilder(cfg.FeedTimeouts, cfg.CacheTTLs, marketcontext.Deps{
		Cache:      marketcache.NewMemoryCache(time.Minute),
		RateLimits: gateRateLimits,
		Budgets:    gateBudgets,
		Options:    &providers.OptionsClient{Client: providers.Client{HTTP: httpClients["options"], BaseURL: optionsCfg.BaseURL}},
		Analytics:  &providers.AnalyticsClient{Client: providers.Client{HTTP: httpClients["analytics"], BaseURL: analyticsCfg.BaseURL}},
		Liquidity:  &providers.LiquidityClient{Client: providers.Client{HTTP: httpClients["liquidity"], BaseURL: liquidityCfg.BaseURL}},
	}), nil
}

func buildCache() clientnet.Cache {
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: addr})
		return marketcache.NewRedisCache(rdb)
	}
	return marketcache.NewMemoryCache(time.Minute)
}
