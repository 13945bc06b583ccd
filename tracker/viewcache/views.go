package viewcache

import (
	"github.com/AntonStoeckl/lifecycle-tracker-go/tracker"
)

// outlierFactor is the multiple of the mean above which a timing sample counts as an outlier.
const outlierFactor = 1.5

// CountSummary aggregates event counts over one subject's history.
type CountSummary struct {
	Total      int
	Initial    int
	NonInitial int
}

// TimingStats summarises one named timing field over a subject's history.
// Outliers are the samples above OutlierThreshold (1.5x the mean).
// Zero value for a history without samples of the field.
type TimingStats struct {
	Field            string
	Samples          int
	Mean             float64
	OutlierThreshold float64
	Outliers         []float64
}

/*** Pure projection functions - one per view kind, free of caching concerns ***/

// projectEventsOf returns the category-filtered subsequence of the history.
func projectEventsOf(history *tracker.History, category tracker.CategoryString) tracker.LifecycleEvents {
	filtered := make(tracker.LifecycleEvents, 0)
	for _, event := range history.Events() {
		if event.Category == category {
			filtered = append(filtered, event)
		}
	}

	return filtered
}

// projectHasCategory reports whether any event of the category was recorded.
func projectHasCategory(history *tracker.History, category tracker.CategoryString) bool {
	return history.CountOf(category) > 0
}

// projectCounts aggregates total, initial, and non-initial event counts.
func projectCounts(history *tracker.History) CountSummary {
	initial := history.CountOf(tracker.CategoryInitial)

	return CountSummary{
		Total:      history.Len(),
		Initial:    initial,
		NonInitial: history.Len() - initial,
	}
}

// projectLastCategory returns the category of the most recent event, or "" for an empty history.
func projectLastCategory(history *tracker.History) tracker.CategoryString {
	last, ok := history.Last()
	if !ok {
		return ""
	}

	return last.Category
}

// projectTimingStats computes mean and outliers for one named timing field.
func projectTimingStats(history *tracker.History, field string) TimingStats {
	stats := TimingStats{Field: field}

	var sum float64
	var samples []float64

	for _, event := range history.Events() {
		if value, ok := event.TimingValue(field); ok {
			samples = append(samples, value)
			sum += value
		}
	}

	if len(samples) == 0 {
		return stats
	}

	stats.Samples = len(samples)
	stats.Mean = sum / float64(len(samples))
	stats.OutlierThreshold = stats.Mean * outlierFactor

	for _, value := range samples {
		if value > stats.OutlierThreshold {
			stats.Outliers = append(stats.Outliers, value)
		}
	}

	return stats
}
