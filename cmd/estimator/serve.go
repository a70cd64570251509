package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/meridianhealth/estimator/internal/chain"
	"github.com/meridianhealth/estimator/internal/config"
	"github.com/meridianhealth/estimator/internal/fetchers"
	"github.com/meridianhealth/estimator/internal/httpclient"
	"github.com/meridianhealth/estimator/internal/logging"
	"github.com/meridianhealth/estimator/internal/matcher"
	"github.com/meridianhealth/estimator/internal/orchestrator"
	"github.com/meridianhealth/estimator/internal/ratestore"
	"github.com/meridianhealth/estimator/internal/resilience"
	"github.com/meridianhealth/estimator/internal/specialtycache"
	"github.com/meridianhealth/estimator/internal/telemetry"
	"github.com/meridianhealth/estimator/internal/tokencache"
)

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "", "path to config file")
	fs.Parse(args)

	loader := config.NewLoader()
	if *configPath != "" {
		loader = loader.WithConfigPath(*configPath)
	}
	cfg, err := loader.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger, err := logging.New(logging.Config{Level: cfg.Log.Level, Format: cfg.Log.Format, OutputPaths: cfg.Log.OutputPaths})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting estimator", zap.String("version", Version), zap.String("git_commit", GitCommit))

	providers, err := telemetry.Init(cfg.Telemetry, logger)
	if err != nil {
		logger.Warn("failed to initialize telemetry", zap.Error(err))
	}
	defer providers.Shutdown(context.Background())

	server, err := buildServer(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	if err := server.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}
	server.WaitForShutdown()
	logger.Info("estimator stopped")
}

// buildServer wires the token cache, resilient HTTP clients, rate store,
// specialty cache, matcher, and handler chain into one Orchestrator, then
// hands it to the HTTP server.
func buildServer(cfg *config.Config, logger *zap.Logger) (*Server, error) {
	issuer := tokencache.NewOAuthIssuer(cfg.Token.URL, cfg.Token.ClientID, cfg.Token.ClientSecret, nil)
	tokens := tokencache.New(issuer, logger)

	retryPolicy := resilience.RetryPolicy{
		MaxAttempts: cfg.Resilience.RetryMaxAttempts,
		MinDelay:    secondsToDuration(cfg.Resilience.BackoffMinSec),
		MaxDelay:    secondsToDuration(cfg.Resilience.BackoffMaxSec),
		Jitter:      true,
	}
	breakerCfg := resilience.BreakerConfig{
		Threshold:        cfg.Resilience.CircuitThreshold,
		CooldownPeriod:   secondsToDuration(cfg.Resilience.CircuitCooldownSec),
		HalfOpenMaxCalls: cfg.Resilience.HalfOpenMaxCalls,
	}

	metrics := telemetry.NewMetrics(cfg.Telemetry.ServiceName)

	benefitsClient := httpclient.NewClient(httpclient.Config{
		Name: "benefits", BaseURL: cfg.Benefits.BaseURL, Timeout: cfg.Benefits.Timeout,
		Breaker: breakerCfg, Retry: retryPolicy, InsecureTLS: cfg.Benefits.InsecureTLS,
	}, tokens, logger)
	metrics.WatchBreaker("benefits", benefitsClient.Breaker())

	accumulatorsClient := httpclient.NewClient(httpclient.Config{
		Name: "accumulators", BaseURL: cfg.Accumulators.BaseURL, Timeout: cfg.Accumulators.Timeout,
		Breaker: breakerCfg, Retry: retryPolicy, InsecureTLS: cfg.Accumulators.InsecureTLS,
	}, tokens, logger)
	metrics.WatchBreaker("accumulators", accumulatorsClient.Breaker())

	db, err := gorm.Open(postgres.Open(cfg.RateDB.DSN), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open rate store: %w", err)
	}
	if err := ratestore.Migrate(db); err != nil {
		return nil, fmt.Errorf("migrate rate store: %w", err)
	}
	store := ratestore.New(db, logger)

	var specialty *specialtycache.Cache
	if cfg.SpecialtyCache.Addr != "" {
		specialty, err = specialtycache.New(context.Background(), specialtycache.Config{
			Addr: cfg.SpecialtyCache.Addr, Password: cfg.SpecialtyCache.Password, DB: cfg.SpecialtyCache.DB,
			SetKey: cfg.SpecialtyCache.SetKey, RefreshInterval: cfg.SpecialtyCache.RefreshInterval,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("init specialty cache: %w", err)
		}
		specialty.Start()
	}

	orc := &orchestrator.Orchestrator{
		Benefits:     fetchers.NewBenefitsFetcher(benefitsClient, cfg.Benefits.BenefitProductType, cfg.Benefits.PlanIdentifier),
		Accumulators: fetchers.NewAccumulatorsFetcher(accumulatorsClient),
		Rates:        fetchers.NewRateFetcher(store),
		Matcher:      matcher.NewPassThrough(),
		Specialty:    specialty,
		Chain:        chain.NewChain(),
		Metrics:      metrics,
		Logger:       logger,
	}

	return NewServer(cfg, orc, metrics, logger), nil
}

func secondsToDuration(s int) time.Duration { return time.Duration(s) * time.Second }
