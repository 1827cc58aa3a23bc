package simdata

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/uxlens/uxlens/pkg/logger"
)

// File permission constants.
const (
	directoryPermission = 0750
)

// Run executes the complete seeding pass.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{
		StartTime: time.Now(),
	}

	logger.Get().Info(ctx, "starting session seeding",
		logger.String("baseURL", config.BaseURL),
		logger.Int("sessions", config.NumSessions),
		logger.String("blockID", config.BlockID),
		logger.String("runID", config.RunID),
		logger.Int("workers", config.Workers),
		logger.String("timeout", config.Timeout.String()),
		logger.Any("verbose", config.Verbose))

	// Step 1: Check service health
	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	// Step 2: Generate session scripts
	scripts, err := generateScripts(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("script generation failed: %w", err)
	}

	// Step 3: Submit events, sessions, and answers
	if err := submitScripts(ctx, config, scripts, stats); err != nil {
		return fmt.Errorf("submission failed: %w", err)
	}

	// Step 4: Wait for the ingest workers to drain the queue
	logger.Get().Info(ctx, "waiting for events to be processed")
	time.Sleep(ProcessingDelay)

	// Step 5: Retrieve reports
	client := newHTTPClient(config.Timeout)
	summary, err := fetchSummary(ctx, client, config)
	if err != nil {
		return fmt.Errorf("summary retrieval failed: %w", err)
	}
	stats.SummarySessions = summary.Sessions

	graph, err := fetchFlow(ctx, client, config)
	if err != nil {
		return fmt.Errorf("flow retrieval failed: %w", err)
	}
	stats.FlowEdgesRetrieved = len(graph.Edges)

	// Step 6: Verify results
	if err := verifyResults(ctx, config, scripts, summary, graph); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	// Step 7: Save scripts to file
	if err := saveScriptsToFile(ctx, config, scripts); err != nil {
		logger.Get().Warn(ctx, "failed to save scripts to file", logger.Error(err))
	}

	// Final statistics
	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)

	displayFinalStats(stats)

	logger.Get().Info(ctx, "seeding completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/healthz"

	resp, err := client.Get(ctx, url)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close response body", logger.Error(err))
		}
	}()

	// Accept any 200 response as healthy (the endpoint serves Prometheus metrics)
	if resp.StatusCode != StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}

	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// saveScriptsToFile saves the generated session scripts to a JSON file.
func saveScriptsToFile(ctx context.Context, config *Config, scripts []Script) error {
	if len(scripts) == 0 {
		return fmt.Errorf("no scripts to save")
	}

	// Determine output filename
	filename := config.OutputFile
	if filename == "" {
		timestamp := time.Now().Format("20060102_150405")
		filename = "seeded_sessions_" + timestamp + ".json"
	}

	// Ensure the directory exists
	dir := filepath.Dir(filename)
	if dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(context.Background(), "failed to close file", logger.Error(err))
		}
	}()

	// Write JSON array, one script per line
	if _, err := file.WriteString("[\n"); err != nil {
		return fmt.Errorf("failed to write opening bracket: %w", err)
	}

	for i := range scripts {
		jsonData, err := marshalScript(&scripts[i])
		if err != nil {
			return fmt.Errorf("failed to marshal script %d: %w", i, err)
		}

		if _, err := file.Write(jsonData); err != nil {
			return fmt.Errorf("failed to write script %d: %w", i, err)
		}

		if i < len(scripts)-1 {
			if _, err := file.WriteString(","); err != nil {
				return fmt.Errorf("failed to write comma: %w", err)
			}
		}
		_, _ = file.WriteString("\n")
	}

	if _, err := file.WriteString("]\n"); err != nil {
		return fmt.Errorf("failed to write closing bracket: %w", err)
	}

	logger.Get().Info(ctx, "scripts saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats prints the final seeding statistics.
func displayFinalStats(stats *Stats) {
	var successRate, eventsPerSecond float64

	if stats.EventsGenerated > 0 {
		successRate = float64(stats.EventsAccepted) / float64(stats.EventsGenerated) * PercentageMultiplier
	}

	if stats.Duration > 0 {
		eventsPerSecond = float64(stats.EventsAccepted) / stats.Duration.Seconds()
	}

	logger.Get().Info(context.Background(), "final statistics",
		logger.Int("sessionsGenerated", stats.SessionsGenerated),
		logger.Int("eventsGenerated", stats.EventsGenerated),
		logger.Int("eventsAccepted", stats.EventsAccepted),
		logger.Int("eventsDuplicate", stats.EventsDuplicate),
		logger.Int("eventsRejected", stats.EventsRejected),
		logger.Int("batchesFailed", stats.BatchesFailed),
		logger.Int("sessionsSubmitted", stats.SessionsSubmitted),
		logger.Int("answersSubmitted", stats.AnswersSubmitted),
		logger.Int("summarySessions", stats.SummarySessions),
		logger.Int("flowEdges", stats.FlowEdgesRetrieved),
		logger.String("duration", stats.Duration.String()),
		logger.Float64("acceptRate", successRate),
		logger.Float64("eventsPerSecond", eventsPerSecond))
}
