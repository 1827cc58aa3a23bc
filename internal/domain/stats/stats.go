// Package stats computes aggregate scalars over classified sessions and
// typed answers.
//
// Conventions are deliberate and pinned by tests: rates over zero sessions
// are 0 rather than NaN, and the median is the lower median, the element at
// floor(n/2) of the ascending-sorted list, never an average of the middle
// pair.
package stats

import (
	"sort"

	"github.com/uxlens/uxlens/internal/domain/classify"
	"github.com/uxlens/uxlens/internal/domain/types"
)

// Count tallies outcomes across classified sessions.
func Count(outcomes map[string]classify.Status) types.OutcomeCounts {
	var c types.OutcomeCounts
	for _, status := range outcomes {
		switch status {
		case classify.StatusCompleted:
			c.Completed++
		case classify.StatusAborted:
			c.Aborted++
		case classify.StatusClosed:
			c.Closed++
		case classify.StatusInProgress:
			c.InProgress++
		}
	}
	return c
}

// Rate divides part by total, defining 0/0 as 0.
func Rate(part, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total)
}

// Mean averages the values, 0 on an empty list.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// Median returns the lower median: the element at index floor(n/2) of the
// ascending-sorted values. For [1,2,3,4] that is index 2, value 3. Returns
// 0 on an empty list. The input slice is not modified.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// ScaleAggregate builds a per-value histogram and mean over ordinal answer
// values. Values outside [minValue, maxValue] are excluded from both the
// histogram and the mean, never clamped; the excluded count is reported so
// callers can surface data-quality issues.
func ScaleAggregate(values []int, minValue, maxValue int) (histogram map[int]int, mean float64, excluded int) {
	histogram = make(map[int]int)
	sum := 0
	kept := 0
	for _, v := range values {
		if v < minValue || v > maxValue {
			excluded++
			continue
		}
		histogram[v]++
		sum += v
		kept++
	}
	if kept > 0 {
		mean = float64(sum) / float64(kept)
	}
	return histogram, mean, excluded
}
