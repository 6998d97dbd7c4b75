// Package main provides an operator CLI that submits case documents as a
// report job, follows its progress, and writes the rendered report.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/pablopedrosap/medical-ai-template/internal/config"
	"github.com/pablopedrosap/medical-ai-template/internal/domain"
	"github.com/pablopedrosap/medical-ai-template/internal/report"
	"github.com/pablopedrosap/medical-ai-template/internal/temporal"
	"github.com/pablopedrosap/medical-ai-template/internal/temporal/workflows"
)

const progressPollInterval = 5 * time.Second

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()

	reportType := flag.String("type", "", "report template override (expert_opinion, claim_response, case_summary)")
	output := flag.String("o", "", "output file for the rendered report (default: stdout)")
	cancelAfter := flag.Duration("cancel-after", 0, "cancel the job after this duration (0 disables)")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] <document>...\n\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		return fmt.Errorf("at least one document path is required")
	}

	override := domain.ReportType(*reportType)
	if *reportType != "" && !override.Valid() {
		return fmt.Errorf("unknown report type %q", *reportType)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	documents, err := readDocuments(flag.Args())
	if err != nil {
		return err
	}

	temporalClient, err := temporal.NewClient(cfg.Temporal)
	if err != nil {
		return err
	}
	workflowClient := temporal.NewReportWorkflowClient(temporalClient, cfg.Temporal.TaskQueue)
	defer workflowClient.Close()

	input := temporal.ReportWorkflowInput{
		JobID:      uuid.New(),
		Documents:  documents,
		ReportType: override,
	}

	workflowID, runID, err := workflowClient.StartReportWorkflow(ctx, workflows.ReportWorkflow, input)
	if err != nil {
		return fmt.Errorf("start job: %w", err)
	}
	fmt.Fprintf(os.Stderr, "job %s started (workflow %s, %d documents)\n", input.JobID, workflowID, len(documents))

	if *cancelAfter > 0 {
		timer := time.AfterFunc(*cancelAfter, func() {
			fmt.Fprintln(os.Stderr, "cancel deadline reached, signalling job")
			if err := workflowClient.CancelJob(context.Background(), workflowID, runID); err != nil {
				fmt.Fprintf(os.Stderr, "cancel job: %v\n", err)
			}
		})
		defer timer.Stop()
	}

	// Follow progress until the workflow result arrives.
	resultCh := make(chan error, 1)
	var result workflows.ReportWorkflowResult
	go func() {
		resultCh <- workflowClient.GetWorkflowResult(ctx, workflowID, runID, &result)
	}()

	ticker := time.NewTicker(progressPollInterval)
	defer ticker.Stop()

	lastLine := ""
	for {
		select {
		case err := <-resultCh:
			if err != nil {
				return fmt.Errorf("job failed: %w", err)
			}
			return writeReport(&result, *output)
		case <-ticker.C:
			snapshot, err := workflowClient.QueryProgress(ctx, workflowID, runID)
			if err != nil {
				// Queries race with workflow completion; the result channel
				// settles the outcome.
				continue
			}
			line := formatProgress(snapshot)
			if line != lastLine {
				fmt.Fprintln(os.Stderr, line)
				lastLine = line
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// readDocuments loads each path into a Document, inferring the format from
// the file name.
func readDocuments(paths []string) ([]domain.Document, error) {
	documents := make([]domain.Document, 0, len(paths))
	for _, path := range paths {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read document %s: %w", path, err)
		}
		name := filepath.Base(path)
		format := domain.FormatFromFilename(name)
		if format == "" {
			return nil, fmt.Errorf("unsupported document format: %s", name)
		}
		documents = append(documents, domain.Document{
			ID:      uuid.New(),
			Name:    name,
			Format:  format,
			Content: content,
		})
	}
	return documents, nil
}

func formatProgress(s *domain.ProgressSnapshot) string {
	if s.CurrentStage != "" {
		return fmt.Sprintf("[%3d%%] %s (%s)", s.PercentEstimate, s.Phase, s.CurrentStage)
	}
	return fmt.Sprintf("[%3d%%] %s", s.PercentEstimate, s.Phase)
}

// writeReport renders the final report and writes it to the output path or
// stdout.
func writeReport(result *workflows.ReportWorkflowResult, output string) error {
	fmt.Fprintf(os.Stderr, "job %s completed: %d pages processed (%d degraded), %d/%d questions answered\n",
		result.JobID, result.PagesProcessed, result.PagesDegraded,
		result.QuestionsAnswered, result.QuestionsPlanned)

	markdown, err := report.Render(result.Report)
	if err != nil {
		return fmt.Errorf("render report: %w", err)
	}

	if output == "" {
		fmt.Println(markdown)
		return nil
	}
	if err := os.WriteFile(output, []byte(markdown), 0o644); err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	fmt.Fprintf(os.Stderr, "report written to %s\n", output)
	return nil
}
