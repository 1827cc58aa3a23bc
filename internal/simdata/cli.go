package simdata

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/uxlens/uxlens/pkg/logger"
)

// File permission constants.
const (
	logFilePermission = 0600
)

// SetupLogging configures logging to both console and file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string) error {
	// Initialize the logger first
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	if logFile == "" {
		timestamp := time.Now().Format("20060102_150405")
		logFile = "seed_log_" + timestamp + ".log"
	}

	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	multiWriter := io.MultiWriter(os.Stdout, file)
	log.SetOutput(multiWriter)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	logger.Get().Info(context.Background(), "logging to file", logger.String("logFile", logFile))
	return nil
}

// ShowHelp prints usage information for the session seeding tool.
func ShowHelp() {
	os.Stdout.WriteString(`UXLens Session Seeder
=====================

A concurrent tool that seeds the UXLens reporting service with simulated
usability-test sessions and checks the resulting reports.

Usage:
  go run cmd/seed-sessions/main.go [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -sessions int
        Number of sessions to simulate (default 1000)
  -block string
        Block id the sessions belong to (default "block-sim")
  -run string
        Run id the sessions belong to (default "run-sim")
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -output string
        Output file for generated sessions (default: seeded_sessions_TIMESTAMP.json)
  -log string
        Log file for seeding output (default: seed_log_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  # Seed with default settings
  go run cmd/seed-sessions/main.go

  # Seed a specific block with custom parameters
  go run cmd/seed-sessions/main.go -sessions 5000 -block block-7 -run run-42

  # Seed with verbose output
  go run cmd/seed-sessions/main.go -verbose -sessions 200
`)
}
