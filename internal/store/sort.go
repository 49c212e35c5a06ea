package store

import (
	"slices"
	"strings"
	"time"

	"file-monitor-dashboard/internal/model"
)

// SortEvents returns a copy of events ordered newest first. Events whose
// timestamp does not parse go last, ordered by their raw value descending.
// Equal keys keep the order the backend returned.
func SortEvents(events []model.FileEvent) []model.FileEvent {
	type keyed struct {
		event  model.FileEvent
		parsed bool
		at     time.Time
	}

	items := make([]keyed, len(events))
	for i, event := range events {
		ts, ok := model.ParseTimestamp(event.Timestamp)
		items[i] = keyed{event: event, parsed: ok, at: ts}
	}

	slices.SortStableFunc(items, func(a, b keyed) int {
		switch {
		case a.parsed && b.parsed:
			return b.at.Compare(a.at)
		case a.parsed:
			return -1
		case b.parsed:
			return 1
		default:
			return strings.Compare(b.event.Timestamp, a.event.Timestamp)
		}
	})

	out := make([]model.FileEvent, len(items))
	for i, item := range items {
		out[i] = item.event
	}
	return out
}
