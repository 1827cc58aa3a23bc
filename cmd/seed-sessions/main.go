package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/uxlens/uxlens/internal/simdata"
)

// Default configuration constants.
const (
	defaultNumSessions = 1000
	defaultWorkers     = 2 // multiplier for runtime.NumCPU()
	defaultTimeout     = 30 * time.Second
	defaultSeedTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL     = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numSessions = flag.Int("sessions", defaultNumSessions, "Number of sessions to simulate")
		blockID     = flag.String("block", "block-sim", "Block id the sessions belong to")
		runID       = flag.String("run", "run-sim", "Run id the sessions belong to")
		workers     = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout     = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		outputFile  = flag.String("output", "", "Output file for generated sessions (default: seeded_sessions_TIMESTAMP.json)")
		logFile     = flag.String("log", "", "Log file for seeding output (default: seed_log_TIMESTAMP.log)")
		verbose     = flag.Bool("verbose", false, "Enable verbose logging")
		help        = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		simdata.ShowHelp()
		return
	}

	// Setup logging
	if err := simdata.SetupLogging(*logFile); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		return
	}

	// Create context with timeout
	ctx, cancel := context.WithTimeout(context.Background(), defaultSeedTimeout)
	defer cancel()

	// Create seeding configuration
	config := &simdata.Config{
		BaseURL:     *baseURL,
		NumSessions: *numSessions,
		BlockID:     *blockID,
		RunID:       *runID,
		Workers:     *workers,
		Timeout:     *timeout,
		OutputFile:  *outputFile,
		LogFile:     *logFile,
		Verbose:     *verbose,
	}

	// Run the seeding pass
	if err := simdata.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Seeding failed: " + err.Error() + "\n")
		return
	}
}
