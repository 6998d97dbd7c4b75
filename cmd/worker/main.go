// Package main provides the entry point for the medical report Temporal worker.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.temporal.io/sdk/client"

	"github.com/pablopedrosap/medical-ai-template/internal/ai"
	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/gate"
	"github.com/pablopedrosap/medical-ai-template/internal/jobstore"
	"github.com/pablopedrosap/medical-ai-template/internal/literature"
	"github.com/pablopedrosap/medical-ai-template/internal/normalize"
	"github.com/pablopedrosap/medical-ai-template/internal/observability"
	"github.com/pablopedrosap/medical-ai-template/internal/report"
	"github.com/pablopedrosap/medical-ai-template/internal/resilience"
	"github.com/pablopedrosap/medical-ai-template/internal/temporal"
	"github.com/pablopedrosap/medical-ai-template/internal/temporal/activities"
	"github.com/pablopedrosap/medical-ai-template/internal/temporal/workflows"
	"github.com/pablopedrosap/medical-ai-template/internal/textclean"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if err := cfg.ValidateProviders(); err != nil {
		return fmt.Errorf("config validation failed: %w", err)
	}

	// Set up structured logging.
	logger := observability.NewLogger(observability.LoggingConfig{
		Level:      cfg.Logging.Level,
		Format:     cfg.Logging.Format,
		Output:     cfg.Logging.Output,
		AddSource:  cfg.Logging.AddSource,
		TimeFormat: cfg.Logging.TimeFormat,
	})
	logger = logger.With().Str("component", "worker").Logger()
	logger.Info().Msg("medical-report-service worker starting")

	// Set up context with graceful shutdown via OS signals.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Create metrics.
	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics("medical_report")
	}

	// Provider clients. Gemini handles vision OCR; OpenAI handles
	// classification, extraction, question planning, and synthesis;
	// Perplexity handles literature search.
	geminiClient := ai.NewGeminiClient(ai.GeminiConfig{
		APIKey:  cfg.Providers.Gemini.APIKey,
		Model:   cfg.Providers.Gemini.Model,
		BaseURL: cfg.Providers.Gemini.BaseURL,
	}, cfg.OCR.Timeout)

	openaiClient := ai.NewOpenAIClient(ai.OpenAIConfig{
		APIKey:  cfg.Providers.OpenAI.APIKey,
		Model:   cfg.Providers.OpenAI.Model,
		BaseURL: cfg.Providers.OpenAI.BaseURL,
	}, cfg.Extraction.Timeout)

	perplexityClient := ai.NewPerplexityClient(ai.PerplexityConfig{
		APIKey:  cfg.Providers.Perplexity.APIKey,
		Model:   cfg.Providers.Perplexity.Model,
		BaseURL: cfg.Providers.Perplexity.BaseURL,
	}, cfg.Literature.Timeout)

	// Pipeline components.
	normalizer := normalize.New(cfg.OCR, logger, metrics)
	cleaner := textclean.New(cfg.TextCleaning)
	capabilityGate := gate.New(cfg.OCR, cfg.Literature, metrics)
	caller := resilience.NewCaller(cfg.Retry, logger, metrics)
	planner := literature.NewPlanner(openaiClient, cfg.Literature, logger)
	builder := report.NewBuilder()
	store := jobstore.NewMemoryStore()

	// Create Temporal client.
	temporalClient, err := client.Dial(client.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
		Logger:    observability.NewTemporalLogger(logger),
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer temporalClient.Close()
	logger.Info().
		Str("host_port", cfg.Temporal.HostPort).
		Str("namespace", cfg.Temporal.Namespace).
		Msg("temporal client connected")

	// Create WorkerManager.
	workerConfig := temporal.DefaultWorkerConfig(cfg.Temporal.TaskQueue)
	manager, err := temporal.NewWorkerManager(temporalClient, workerConfig)
	if err != nil {
		return fmt.Errorf("create worker manager: %w", err)
	}

	// Register the workflow and activity structs.
	manager.RegisterWorkflow(workflows.ReportWorkflow)

	pipelineActivities := activities.NewPipelineActivities(activities.PipelineDeps{
		Normalizer:  normalizer,
		Cleaner:     cleaner,
		Gate:        capabilityGate,
		Caller:      caller,
		OCR:         geminiClient,
		Classifier:  openaiClient,
		Extractor:   openaiClient,
		Planner:     planner,
		Searcher:    perplexityClient,
		Synthesizer: openaiClient,
		Builder:     builder,
		Metrics:     metrics,
	}, cfg)
	statusActivities := activities.NewStatusActivities(store, metrics)

	manager.RegisterActivity(pipelineActivities)
	manager.RegisterActivity(statusActivities)

	// Expose metrics and health on a separate listener.
	var metricsServer *http.Server
	errCh := make(chan error, 1)
	if cfg.Metrics.Enabled {
		r := chi.NewRouter()
		r.Use(middleware.Recoverer)
		r.Handle(cfg.Metrics.Path, promhttp.Handler())
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusOK)
			fmt.Fprintln(w, "ok")
		})
		metricsServer = &http.Server{
			Addr:         cfg.Server.MetricsAddress(),
			Handler:      r,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		}
		go func() {
			logger.Info().
				Str("address", metricsServer.Addr).
				Msg("metrics server starting")
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("metrics server error: %w", err)
			}
		}()
		defer func() {
			shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer shutdownCancel()
			if err := metricsServer.Shutdown(shutdownCtx); err != nil {
				logger.Error().Err(err).Msg("metrics server shutdown error")
			}
		}()
	}

	// Surface metrics listener failures without waiting on the worker.
	go func() {
		select {
		case err := <-errCh:
			logger.Error().Err(err).Msg("server error")
			stop()
		case <-ctx.Done():
		}
	}()

	logger.Info().
		Str("task_queue", cfg.Temporal.TaskQueue).
		Msg("starting temporal worker")

	// Start the worker and block until context is cancelled.
	if err := manager.Start(ctx); err != nil {
		if ctx.Err() != nil {
			logger.Info().Msg("worker stopped via signal")
			return nil
		}
		return fmt.Errorf("worker error: %w", err)
	}

	return nil
}
