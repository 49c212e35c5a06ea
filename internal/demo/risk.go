package demo

import (
	"path/filepath"
	"slices"
	"strings"
	"time"

	"file-monitor-dashboard/internal/model"
)

const (
	EventCreated  = "CREATED"
	EventModified = "MODIFIED"
	EventDeleted  = "DELETED"

	NoteMassChange        = "MASS_CHANGE_SUSPECTED"
	NoteDeleteSpike       = "RAPID_DELETE_SPIKE"
	NoteSuspiciousExt     = "SUSPICIOUS_EXTENSION"
	NoteCriticalIntrusion = "CRITICAL_INTRUSION_PATTERN"

	behaviorWindow      = 10 * time.Second
	massChangeThreshold = 30
	deleteSpikeLimit    = 15
)

var defaultSuspiciousExtensions = []string{"exe", "dll", "bat", "ps1", "jar", "sh"}

type stamp struct {
	at        time.Time
	eventType string
}

// analyzer annotates events with behavior notes over a sliding window.
// It is not safe for concurrent use; the backend serializes calls.
type analyzer struct {
	suspicious map[string]struct{}
	recent     []stamp
}

func newAnalyzer(extensions []string) *analyzer {
	if len(extensions) == 0 {
		extensions = defaultSuspiciousExtensions
	}
	set := make(map[string]struct{}, len(extensions))
	for _, ext := range extensions {
		set[strings.ToLower(strings.TrimPrefix(ext, "."))] = struct{}{}
	}
	return &analyzer{suspicious: set}
}

func (a *analyzer) annotate(event *model.FileEvent, at time.Time) {
	a.recent = append(a.recent, stamp{at: at, eventType: event.EventType})
	threshold := at.Add(-behaviorWindow)
	drop := 0
	for drop < len(a.recent) && a.recent[drop].at.Before(threshold) {
		drop++
	}
	a.recent = a.recent[drop:]

	deletes := 0
	for _, s := range a.recent {
		if s.eventType == EventDeleted {
			deletes++
		}
	}

	notes := slices.Clone(event.Notes)
	addNote := func(note string) {
		if !slices.Contains(notes, note) {
			notes = append(notes, note)
		}
	}
	if len(a.recent) > massChangeThreshold {
		addNote(NoteMassChange)
	}
	if deletes > deleteSpikeLimit {
		addNote(NoteDeleteSpike)
	}
	if a.suspiciousExtension(event) {
		addNote(NoteSuspiciousExt)
	}
	if event.HoneypotTriggered && slices.Contains(notes, NoteMassChange) {
		addNote(NoteCriticalIntrusion)
	}
	event.Notes = notes
}

func (a *analyzer) suspiciousExtension(event *model.FileEvent) bool {
	if event.EventType != EventCreated && event.EventType != EventModified {
		return false
	}
	ext := strings.TrimPrefix(filepath.Ext(event.Path), ".")
	if ext == "" {
		return false
	}
	_, ok := a.suspicious[strings.ToLower(ext)]
	return ok
}

// score assigns a risk score and level from the event type, honeypot flag and notes.
func score(event model.FileEvent) (int, model.RiskLevel) {
	if slices.Contains(event.Notes, NoteCriticalIntrusion) {
		return 100, model.RiskHigh
	}

	value := 0
	switch event.EventType {
	case EventCreated:
		value = 15
	case EventModified:
		value = 25
	case EventDeleted:
		value = 20
	}
	if event.HoneypotTriggered {
		value = 95
	}
	if slices.Contains(event.Notes, NoteMassChange) {
		value += 20
	}
	if slices.Contains(event.Notes, NoteDeleteSpike) {
		value += 25
	}
	if slices.Contains(event.Notes, NoteSuspiciousExt) {
		value += 30
	}
	value = min(value, 100)

	switch {
	case value <= 30:
		return value, model.RiskLow
	case value <= 70:
		return value, model.RiskMedium
	default:
		return value, model.RiskHigh
	}
}
