// Package analytics derives views and aggregates from an event snapshot.
//
// Every function here is pure: it reads its input, never modifies it, and
// returns freshly allocated results.
package analytics

import (
	"sort"
	"strings"
	"time"

	"file-monitor-dashboard/internal/model"
)

var severityByPattern = map[string]string{
	"CRITICAL_INTRUSION_PATTERN": "critical",
	"MASS_CHANGE_SUSPECTED":      "mass-change",
	"RAPID_DELETE_SPIKE":         "delete-spike",
	"SUSPICIOUS_EXTENSION":       "suspicious-extension",
}

// Filter returns the events matching every set criterion.
func Filter(events []model.FileEvent, criteria model.FilterCriteria) []model.FileEvent {
	search := strings.ToLower(strings.TrimSpace(criteria.Search))

	out := make([]model.FileEvent, 0, len(events))
	for _, event := range events {
		if criteria.HighRiskOnly && event.RiskLevel != model.RiskHigh {
			continue
		}
		if criteria.HoneypotOnly && !event.HoneypotTriggered {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(event.Path), search) {
			continue
		}
		out = append(out, event)
	}
	return out
}

// Distribution counts events per risk level. Empty buckets stay at zero.
func Distribution(events []model.FileEvent) model.RiskDistribution {
	dist := model.RiskDistribution{Total: len(events)}
	for _, event := range events {
		switch event.RiskLevel {
		case model.RiskLow:
			dist.Low++
		case model.RiskMedium:
			dist.Medium++
		case model.RiskHigh:
			dist.High++
		}
		if event.HoneypotTriggered {
			dist.Honeypot++
		}
	}
	return dist
}

// ChartSlices turns a distribution into pie chart slices, dropping empty ones.
func ChartSlices(dist model.RiskDistribution) []model.RiskSlice {
	all := []model.RiskSlice{
		{Level: model.RiskLow, Name: "Low", Count: dist.Low},
		{Level: model.RiskMedium, Name: "Medium", Count: dist.Medium},
		{Level: model.RiskHigh, Name: "High", Count: dist.High},
	}

	out := make([]model.RiskSlice, 0, len(all))
	for _, slice := range all {
		if slice.Count > 0 {
			out = append(out, slice)
		}
	}
	return out
}

// Timeline groups events into one-minute buckets, oldest first. Events with
// an unparseable timestamp are left out. Labels are HH:MM in loc.
func Timeline(events []model.FileEvent, loc *time.Location) []model.TimelineBucket {
	if loc == nil {
		loc = time.Local
	}

	counts := make(map[time.Time]int)
	for _, event := range events {
		ts, ok := model.ParseTimestamp(event.Timestamp)
		if !ok {
			continue
		}
		counts[ts.Truncate(time.Minute)]++
	}

	out := make([]model.TimelineBucket, 0, len(counts))
	for minute, count := range counts {
		out = append(out, model.TimelineBucket{
			Minute: minute,
			Label:  minute.In(loc).Format("15:04"),
			Count:  count,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Minute.Before(out[j].Minute)
	})
	return out
}

// Patterns counts every note across events, most frequent first and
// alphabetical among equals.
func Patterns(events []model.FileEvent) []model.PatternCount {
	counts := make(map[string]int)
	for _, event := range events {
		for _, note := range event.Notes {
			counts[note]++
		}
	}

	out := make([]model.PatternCount, 0, len(counts))
	for pattern, count := range counts {
		out = append(out, model.PatternCount{
			Pattern:  pattern,
			Count:    count,
			Severity: Severity(pattern),
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Pattern < out[j].Pattern
	})
	return out
}

// Severity maps a known pattern to its display class.
func Severity(pattern string) string {
	if class, ok := severityByPattern[pattern]; ok {
		return class
	}
	return "default"
}

// Summarize computes every aggregate of one snapshot.
func Summarize(events []model.FileEvent, loc *time.Location) model.Analytics {
	dist := Distribution(events)
	return model.Analytics{
		Distribution: dist,
		RiskChart:    ChartSlices(dist),
		Timeline:     Timeline(events, loc),
		Patterns:     Patterns(events),
	}
}
