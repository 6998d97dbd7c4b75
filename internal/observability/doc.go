// Package observability provides logging and metrics support for the
// medical report pipeline service.
//
// # Overview
//
// The observability package provides:
//
//   - Structured logging with zerolog
//   - Prometheus metrics for jobs, stages, pages, and capability calls
//   - Context helpers for propagating observability data
//
// # Logging
//
// Create a logger from configuration:
//
//	cfg := observability.LoggingConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    Output:    "stdout",
//	    AddSource: true,
//	}
//
//	logger := observability.NewLogger(cfg)
//	logger.Info().Str("job_id", jobID).Msg("job started")
//
// Add stage context to logger:
//
//	logger = observability.WithStageContext(logger, jobID, "ocr")
//
// # Metrics
//
// Initialize metrics:
//
//	metrics := observability.NewMetrics("medreport")
//
// Record metrics:
//
//	metrics.RecordJobStarted()
//	metrics.RecordCapabilityAttempt("ocr", "gemini-2.0-flash", "success", 1.2)
//	metrics.RecordPages(8, 2)
//
// # Context Helpers
//
// Store and retrieve job context:
//
//	ctx = observability.WithJobID(ctx, jobID)
//	ctx = observability.WithStage(ctx, "extraction")
//
//	jobID := observability.JobIDFromContext(ctx)
//	stage := observability.StageFromContext(ctx)
//
// # Standard Fields
//
// Common fields used across the service:
//
//   - job_id: Report job identifier
//   - stage: Pipeline stage (ocr, classification, extraction, literature, synthesis)
//   - document_id: Source document identifier
//   - capability: Remote capability name
//   - model: Provider model identifier
//   - attempt: Retry attempt number
//
// # Thread Safety
//
// All components are safe for concurrent use from multiple goroutines.
package observability
