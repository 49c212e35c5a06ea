// Package store owns the dashboard's client-side state.
//
// Every slice of state (events, watch status, health, honeypot, report, UI) is
// replaced as a whole by exactly one method; nothing outside the store mutates
// it. Readers receive copies whose slices are never written again, so they can
// be used without holding the lock.
package store

import (
	"context"
	"sync"
	"time"

	"file-monitor-dashboard/internal/model"
)

type Topic string

const (
	TopicEvents      Topic = "events"
	TopicWatchStatus Topic = "watch_status"
	TopicHealth      Topic = "health"
	TopicHoneypot    Topic = "honeypot"
	TopicReport      Topic = "report"
	TopicUI          Topic = "ui"
)

// Change is published after a slice of state has been replaced.
type Change struct {
	Topic      Topic     `json:"topic"`
	Generation uint64    `json:"generation"`
	At         time.Time `json:"at"`
}

// State is the complete application state at one instant.
type State struct {
	Events          []model.FileEvent
	Generation      uint64
	EventsUpdatedAt time.Time
	HasEvents       bool

	WatchStatus *model.WatchStatus
	Health      *model.HealthResponse
	Honeypot    *model.HoneypotStatus
	Report      *model.ReportSummary

	ActiveTab      string
	Theme          string
	DirectoryInput string
	Filter         model.FilterCriteria
	ErrorMessage   string
	Toast          string
	ToastExpires   time.Time
	Loading        map[string]bool
}

type Store struct {
	mu    sync.RWMutex
	state State
	now   func() time.Time
	// busy counts overlapping runs per command; Loading mirrors busy > 0.
	busy map[string]int

	subMu sync.RWMutex
	subs  map[chan Change]struct{}
}

func New(initialTab, theme string) *Store {
	return &Store{
		state: State{
			Events:    []model.FileEvent{},
			ActiveTab: initialTab,
			Theme:     theme,
			Loading:   map[string]bool{},
		},
		now:  time.Now,
		busy: make(map[string]int),
		subs: make(map[chan Change]struct{}),
	}
}

// State returns a copy of the current state. Expired toasts are omitted.
func (s *Store) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := s.state
	out.Loading = make(map[string]bool, len(s.state.Loading))
	for name, busy := range s.state.Loading {
		out.Loading[name] = busy
	}
	if out.Toast != "" && !s.now().Before(out.ToastExpires) {
		out.Toast = ""
		out.ToastExpires = time.Time{}
	}
	return out
}

// Events returns the current snapshot and its generation.
func (s *Store) Events() ([]model.FileEvent, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Events, s.state.Generation
}

// ReplaceEvents swaps in a new event snapshot. The caller must not modify
// events afterwards.
func (s *Store) ReplaceEvents(events []model.FileEvent) uint64 {
	if events == nil {
		events = []model.FileEvent{}
	}

	s.mu.Lock()
	s.state.Events = events
	s.state.Generation++
	s.state.EventsUpdatedAt = s.now().UTC()
	s.state.HasEvents = true
	generation := s.state.Generation
	s.mu.Unlock()

	s.publish(TopicEvents, generation)
	return generation
}

func (s *Store) ReplaceWatchStatus(status model.WatchStatus) {
	s.replace(TopicWatchStatus, func(st *State) { st.WatchStatus = &status })
}

func (s *Store) ReplaceHealth(health model.HealthResponse) {
	s.replace(TopicHealth, func(st *State) { st.Health = &health })
}

func (s *Store) ReplaceHoneypot(status model.HoneypotStatus) {
	s.replace(TopicHoneypot, func(st *State) { st.Honeypot = &status })
}

func (s *Store) ReplaceReport(report model.ReportSummary) {
	s.replace(TopicReport, func(st *State) { st.Report = &report })
}

func (s *Store) SetError(message string) {
	s.replace(TopicUI, func(st *State) { st.ErrorMessage = message })
}

func (s *Store) DismissError() {
	s.SetError("")
}

func (s *Store) ShowToast(message string, ttl time.Duration) {
	expires := s.now().Add(ttl)
	s.replace(TopicUI, func(st *State) {
		st.Toast = message
		st.ToastExpires = expires
	})
}

// SetLoading marks one run of command as started or finished. Runs of the same
// command may overlap; the flag clears only when the last one finishes.
func (s *Store) SetLoading(command string, busy bool) {
	s.replace(TopicUI, func(st *State) {
		if busy {
			s.busy[command]++
		} else if s.busy[command] > 0 {
			s.busy[command]--
		}
		if s.busy[command] == 0 {
			delete(s.busy, command)
		}

		loading := make(map[string]bool, len(s.busy))
		for name := range s.busy {
			loading[name] = true
		}
		st.Loading = loading
	})
}

func (s *Store) SetActiveTab(tab string) {
	s.replace(TopicUI, func(st *State) { st.ActiveTab = tab })
}

func (s *Store) SetDirectoryInput(directory string) {
	s.replace(TopicUI, func(st *State) { st.DirectoryInput = directory })
}

func (s *Store) SetFilter(filter model.FilterCriteria) {
	s.replace(TopicUI, func(st *State) { st.Filter = filter })
}

// ToggleTheme flips between light and dark and returns the new theme.
func (s *Store) ToggleTheme() string {
	var theme string
	s.replace(TopicUI, func(st *State) {
		if st.Theme == "dark" {
			st.Theme = "light"
		} else {
			st.Theme = "dark"
		}
		theme = st.Theme
	})
	return theme
}

func (s *Store) replace(topic Topic, mutate func(*State)) {
	s.mu.Lock()
	mutate(&s.state)
	generation := s.state.Generation
	s.mu.Unlock()

	s.publish(topic, generation)
}

// Subscribe delivers changes until ctx is done. Slow subscribers miss changes
// rather than blocking writers.
func (s *Store) Subscribe(ctx context.Context, buffer int) <-chan Change {
	if buffer <= 0 {
		buffer = 16
	}
	ch := make(chan Change, buffer)

	s.subMu.Lock()
	s.subs[ch] = struct{}{}
	s.subMu.Unlock()

	go func() {
		<-ctx.Done()
		s.subMu.Lock()
		delete(s.subs, ch)
		s.subMu.Unlock()
		close(ch)
	}()

	return ch
}

func (s *Store) publish(topic Topic, generation uint64) {
	change := Change{Topic: topic, Generation: generation, At: s.now().UTC()}

	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for ch := range s.subs {
		select {
		case ch <- change:
		default:
		}
	}
}
