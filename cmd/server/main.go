package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/platformbuilds/ga4-insights/internal/api"
	"github.com/platformbuilds/ga4-insights/internal/assistant/intent"
	"github.com/platformbuilds/ga4-insights/internal/assistant/orchestrator"
	"github.com/platformbuilds/ga4-insights/internal/config"
	"github.com/platformbuilds/ga4-insights/internal/logging"
	"github.com/platformbuilds/ga4-insights/internal/metrics"
	"github.com/platformbuilds/ga4-insights/internal/schema"
	"github.com/platformbuilds/ga4-insights/internal/services"
	"github.com/platformbuilds/ga4-insights/internal/tracing"
	"github.com/platformbuilds/ga4-insights/internal/validation"
	"github.com/platformbuilds/ga4-insights/pkg/logger"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		log.Fatalf("Failed to load .env: %v", err)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := logger.New(cfg.LogLevel)
	defer func() { _ = logger.Sync() }()
	logger.Info("Starting GA4 insights", "version", config.ServiceVersion, "environment", cfg.Environment)
	logger.Debug("Effective configuration", "config", cfg.ToJSON())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	svcLog := logging.FromCoreLogger(logger)

	// Credentials are read and checked exactly once.
	creds := services.NewCredentialStore(cfg.GA4)
	if _, err := creds.Load(); err != nil {
		logger.Fatal("Failed to load GA4 credentials", "error", err)
	}
	if acct, err := creds.Account(); err == nil {
		logger.Info("GA4 credentials loaded", "client_email", acct.ClientEmail, "property", cfg.GA4.PropertyID)
	}

	registry, err := schema.LoadFile(cfg.Schema.AllowListFile)
	if err != nil {
		logger.Fatal("Failed to load schema allow-list", "file", cfg.Schema.AllowListFile, "error", err)
	}
	logger.Info("Schema registry initialized",
		"metrics", len(registry.Metrics()),
		"dimensions", len(registry.Dimensions()),
		"filter_keys", len(registry.FilterKeys()))
	if unlisted := intent.Unlisted(registry); len(unlisted) > 0 {
		logger.Warn("Name corrections target names outside the allow-list; questions using them will fail validation",
			"names", unlisted)
	}

	ga4, err := services.NewGA4Service(ctx, cfg.GA4, creds, svcLog)
	if err != nil {
		logger.Fatal("Failed to initialize GA4 service", "error", err)
	}

	llm, err := services.NewLLMService(cfg.LLM, svcLog)
	if err != nil {
		logger.Fatal("Failed to initialize language model", "provider", cfg.LLM.Provider, "error", err)
	}
	logger.Info("Language model configured", "provider", llm.GetProviderName(), "model", llm.GetModelName())

	tracer := tracing.Noop()
	if cfg.Monitoring.TracingEnabled {
		tp, err := tracing.NewTracerProvider(ctx, config.ServiceName, config.ServiceVersion, cfg.Monitoring.OTLPEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracing", "endpoint", cfg.Monitoring.OTLPEndpoint, "error", err)
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := tp.Shutdown(shutdownCtx); err != nil {
				logger.Error("Failed to flush traces", "error", err)
			}
		}()
		tracer = tracing.NewPipelineTracer(config.ServiceName)
		logger.Info("Tracing enabled", "endpoint", cfg.Monitoring.OTLPEndpoint)
	}

	clock := clockwork.NewRealClock()
	orch, err := orchestrator.New(orchestrator.Deps{
		Validator:        validation.NewWithClock(registry, clock),
		Backend:          ga4,
		LLM:              llm,
		ExtractionPrompt: cfg.LLM.ExtractionPrompt,
		SummaryPrompt:    cfg.LLM.SummaryPrompt,
		Logger:           svcLog,
		Tracer:           tracer,
		Clock:            clock,
	})
	if err != nil {
		logger.Fatal("Failed to initialize orchestrator", "error", err)
	}

	metrics.ConfigInfo.WithLabelValues(config.ServiceVersion, llm.GetProviderName(), llm.GetModelName()).Set(1)

	apiServer := api.NewServer(cfg, logger, orch, registry, creds, llm)
	if err := apiServer.Start(ctx); err != nil {
		logger.Error("Server failed", "error", err)
		return
	}

	logger.Info("GA4 insights shutdown complete")
}
