package simdata

import (
	"context"
	"fmt"

	"github.com/uxlens/uxlens/pkg/logger"
)

// verifyResults checks the reports against the generated outcome mix.
func verifyResults(ctx context.Context, config *Config, scripts []Script, summary *Summary, graph *FlowGraph) error {
	logger.Get().Info(ctx, "verifying results")

	if summary == nil {
		return fmt.Errorf("no summary to verify")
	}

	expected := countOutcomes(scripts)

	if summary.Sessions != len(scripts) {
		logger.Get().Warn(ctx, "summary session count mismatch",
			logger.Int("expected", len(scripts)),
			logger.Int("got", summary.Sessions))
	}

	// Completed and aborted counts come from explicit terminal events, so
	// they must match exactly once the queue has drained. Closed counts
	// depend on the inactivity clock and can lag.
	if summary.Outcomes.Completed != expected["completed"] {
		return fmt.Errorf("completed count mismatch: expected %d, got %d",
			expected["completed"], summary.Outcomes.Completed)
	}
	if summary.Outcomes.Aborted != expected["aborted"] {
		return fmt.Errorf("aborted count mismatch: expected %d, got %d",
			expected["aborted"], summary.Outcomes.Aborted)
	}

	if err := verifyFlowGraph(graph, len(scripts)); err != nil {
		return fmt.Errorf("flow graph verification failed: %w", err)
	}

	displaySummary(ctx, config, summary, expected)

	logger.Get().Info(ctx, "result verification completed")
	return nil
}

// verifyFlowGraph checks the structural invariants of the flow report.
func verifyFlowGraph(graph *FlowGraph, sessions int) error {
	if graph == nil {
		return fmt.Errorf("no flow graph to verify")
	}

	startNodes := 0
	for _, node := range graph.Nodes {
		if node.Kind == "start" {
			startNodes++
		}
	}
	if startNodes != 1 {
		return fmt.Errorf("expected exactly one start node, got %d", startNodes)
	}

	// Every session contributes at least one lane out of the start node.
	fromStart := map[string]bool{}
	for _, edge := range graph.Edges {
		for _, node := range graph.Nodes {
			if node.ID == edge.From && node.Kind == "start" {
				fromStart[edge.SessionID] = true
			}
		}
	}
	if len(fromStart) != sessions {
		return fmt.Errorf("expected %d session lanes out of the start node, got %d",
			sessions, len(fromStart))
	}

	return nil
}

// countOutcomes tallies the generated outcome mix.
func countOutcomes(scripts []Script) map[string]int {
	counts := map[string]int{}
	for i := range scripts {
		counts[scripts[i].Outcome]++
	}
	return counts
}

// displaySummary logs the retrieved summary next to the generated mix.
func displaySummary(ctx context.Context, config *Config, summary *Summary, expected map[string]int) {
	logger.Get().Info(ctx, "block summary",
		logger.String("blockID", config.BlockID),
		logger.Int("sessions", summary.Sessions),
		logger.Int("completed", summary.Outcomes.Completed),
		logger.Int("aborted", summary.Outcomes.Aborted),
		logger.Int("closed", summary.Outcomes.Closed),
		logger.Int("inProgress", summary.Outcomes.InProgress),
		logger.Float64("completionRate", summary.CompletionRate),
		logger.Float64("meanSeconds", summary.MeanSeconds),
		logger.Float64("medianSeconds", summary.MedianSeconds),
		logger.Int("expectedCompleted", expected["completed"]),
		logger.Int("expectedAborted", expected["aborted"]),
		logger.Int("expectedClosed", expected["closed"]))
}
