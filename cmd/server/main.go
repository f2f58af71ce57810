// Package main runs the token audit HTTP service:
// - POST /audit: payment gate → code, supply and market pillars → verdict
// - /health, /status, /metrics
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"solana-token-audit/internal/audit"
	"solana-token-audit/internal/config"
	"solana-token-audit/internal/market"
	"solana-token-audit/internal/observability"
	"solana-token-audit/internal/payment"
	"solana-token-audit/internal/pillars"
	"solana-token-audit/internal/server"
	"solana-token-audit/internal/solana"
	"solana-token-audit/internal/storage"
	"solana-token-audit/internal/storage/memory"
	"solana-token-audit/internal/storage/migrations"
	pgstore "solana-token-audit/internal/storage/postgres"
	redisstore "solana-token-audit/internal/storage/redis"
)

func main() {
	// Setup logger
	logger := log.New(os.Stdout, "[audit] ", log.LstdFlags|log.Lshortfile)

	// The config file must be known before flags can default from it.
	configFile := configPath(os.Args[1:])

	cfg, err := config.Load(configFile)
	if err != nil {
		logger.Fatalf("Failed to load config: %v", err)
	}

	// Parse flags (config values as defaults)
	flag.String("config", configFile, "Optional YAML config file (env CONFIG_FILE)")
	flag.StringVar(&cfg.HTTPAddr, "addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", cfg.RPCEndpoint, "Solana JSON-RPC endpoint (Helius DAS)")
	flag.StringVar(&cfg.TreasuryWallet, "treasury", cfg.TreasuryWallet, "Treasury wallet receiving payments")
	flag.BoolVar(&cfg.PaymentRequired, "payment-required", cfg.PaymentRequired, "Require a SOL payment per audit")
	flag.BoolVar(&cfg.SimulateBypass, "simulate-bypass", cfg.SimulateBypass, "Skip payment for addresses containing SIMULATE")
	flag.DurationVar(&cfg.ProviderTimeout, "provider-timeout", cfg.ProviderTimeout, "Per-call provider timeout")
	flag.StringVar(&cfg.ReplayStore, "replay-store", cfg.ReplayStore, "Replay store: memory, postgres or redis")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.RedisURL, "redis-url", cfg.RedisURL, "Redis URL")
	flag.DurationVar(&cfg.ReplayTTL, "replay-ttl", cfg.ReplayTTL, "Redis replay key TTL (0 = forever)")

	flag.Parse()

	if err := cfg.Validate(); err != nil {
		logger.Fatalf("Invalid configuration: %v", err)
	}
	for _, w := range cfg.Warnings() {
		logger.Printf("WARNING: %s", w)
	}

	// Create context with cancellation
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	metrics := observability.NewMetrics(observability.DefaultNamespace)

	// Create replay store
	store, cleanup, err := createSignatureStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create replay store: %v", err)
	}
	defer cleanup()

	if n, err := store.Len(ctx); err == nil {
		metrics.SetConsumedSignatures(n)
	}

	// Providers
	rpc := solana.NewHTTPClient(cfg.RPCURL(),
		solana.WithTimeout(cfg.ProviderTimeout),
		solana.WithObserver(func(method string, elapsed time.Duration, err error) {
			metrics.RecordProviderCall("rpc", method, elapsed, err)
		}),
	)

	providerHTTP := &http.Client{Timeout: cfg.ProviderTimeout}
	gecko := market.NewGeckoClient(
		market.WithBaseURL(cfg.GeckoBaseURL),
		market.WithNetwork(cfg.GeckoNetwork),
		market.WithHTTPClient(providerHTTP),
	)
	prices := market.NewPriceClient(cfg.PriceBaseURL, providerHTTP)

	analyzer := pillars.NewAnalyzer(pillars.Options{
		RPC:       rpc,
		Market:    &observedMarket{source: gecko, metrics: metrics},
		Timeout:   cfg.ProviderTimeout,
		Logger:    log.New(os.Stdout, "[pillars] ", log.LstdFlags),
		OnDegrade: metrics.RecordDegraded,
	})

	verifier := payment.NewVerifier(payment.Config{
		RPC:         rpc,
		Store:       store,
		Treasury:    cfg.TreasuryWallet,
		RequiredSOL: cfg.PaymentSOL,
		Logger:      log.New(os.Stdout, "[payment] ", log.LstdFlags),
	})

	auditor := audit.New(audit.Options{
		Pillars:         analyzer,
		Verifier:        verifier,
		PaymentRequired: cfg.PaymentRequired,
		AllowSimulate:   cfg.SimulateBypass,
		Recorder:        metrics,
		Logger:          logger,
	})

	srv := server.New(server.Options{
		Auditor:     auditor,
		Gated:       cfg.PaymentRequired,
		RequiredSOL: cfg.PaymentSOL,
		Treasury:    cfg.TreasuryWallet,
		Price:       prices,
		Signatures:  store,
		Gauge:       metrics,
		Metrics:     metrics.Handler(),
		Logger:      logger,
	})

	logger.Printf("Payment required: %v (%s SOL to %s), replay store: %s",
		cfg.PaymentRequired, cfg.PaymentSOL, cfg.TreasuryWallet, cfg.ReplayStore)

	if err := srv.ListenAndServe(ctx, cfg.HTTPAddr); err != nil {
		logger.Fatalf("Server error: %v", err)
	}

	logger.Println("Shutdown complete")
}

// createSignatureStore opens the configured replay store.
func createSignatureStore(ctx context.Context, cfg *config.Config, logger *log.Logger) (storage.SignatureStore, func(), error) {
	switch cfg.ReplayStore {
	case config.StorePostgres:
		pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, err
		}
		if err := migrations.RunPostgresMigrations(ctx, pool); err != nil {
			pool.Close()
			return nil, nil, fmt.Errorf("run migrations: %w", err)
		}
		logger.Println("Using PostgreSQL replay store")
		return pgstore.NewSignatureStore(pool), pool.Close, nil

	case config.StoreRedis:
		client, err := redisstore.NewClient(ctx, cfg.RedisURL)
		if err != nil {
			return nil, nil, err
		}
		logger.Printf("Using Redis replay store (ttl %v)", cfg.ReplayTTL)
		return redisstore.NewSignatureStore(client, cfg.ReplayTTL), func() { client.Close() }, nil

	default:
		logger.Println("Using in-memory replay store")
		return memory.NewSignatureStore(), func() {}, nil
	}
}

// configPath finds -config in args without parsing the remaining flags.
func configPath(args []string) string {
	path := os.Getenv("CONFIG_FILE")
	for i := 0; i < len(args); i++ {
		arg := strings.TrimLeft(args[i], "-")
		switch {
		case arg == "config" && i+1 < len(args):
			path = args[i+1]
			i++
		case strings.HasPrefix(arg, "config="):
			path = strings.TrimPrefix(arg, "config=")
		}
	}
	return path
}

// observedMarket records market provider latency.
type observedMarket struct {
	source  pillars.MarketSource
	metrics *observability.Metrics
}

func (m *observedMarket) GetToken(ctx context.Context, address string) (*market.TokenAttributes, error) {
	start := time.Now()
	attrs, err := m.source.GetToken(ctx, address)
	m.metrics.RecordProviderCall("geckoterminal", "token", time.Since(start), err)
	return attrs, err
}
