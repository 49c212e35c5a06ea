package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-monitor-dashboard/internal/model"
)

func event(path, ts string) model.FileEvent {
	return model.FileEvent{Path: path, Timestamp: ts, EventType: "MODIFY", RiskLevel: model.RiskLow}
}

func paths(events []model.FileEvent) []string {
	out := make([]string, len(events))
	for i, e := range events {
		out[i] = e.Path
	}
	return out
}

func TestSortEventsNewestFirst(t *testing.T) {
	t1 := event("t1", "2026-10-19T10:00:01Z")
	t2 := event("t2", "2026-10-19T10:00:02Z")
	t3 := event("t3", "2026-10-19T10:00:03Z")

	sorted := SortEvents([]model.FileEvent{t2, t1, t3})

	assert.Equal(t, []string{"t3", "t2", "t1"}, paths(sorted))
}

func TestSortEventsComparesInstantsAcrossZones(t *testing.T) {
	early := event("early", "2026-10-19T12:00:00+02:00")
	late := event("late", "2026-10-19T10:30:00Z")

	sorted := SortEvents([]model.FileEvent{early, late})

	assert.Equal(t, []string{"late", "early"}, paths(sorted))
}

func TestSortEventsKeepsBackendOrderForTies(t *testing.T) {
	a := event("a", "2026-10-19T10:00:00Z")
	b := event("b", "2026-10-19T10:00:00Z")
	c := event("c", "2026-10-19T10:00:00.000Z")

	sorted := SortEvents([]model.FileEvent{a, b, c})

	assert.Equal(t, []string{"a", "b", "c"}, paths(sorted))
}

func TestSortEventsPlacesUnparseableLast(t *testing.T) {
	good := event("good", "2026-10-19T10:00:00Z")
	badA := event("bad-a", "not-a-time-a")
	badB := event("bad-b", "not-a-time-b")

	sorted := SortEvents([]model.FileEvent{badA, good, badB})

	assert.Equal(t, []string{"good", "bad-b", "bad-a"}, paths(sorted))
}

func TestSortEventsDoesNotMutateInput(t *testing.T) {
	input := []model.FileEvent{event("t1", "2026-10-19T10:00:01Z"), event("t2", "2026-10-19T10:00:02Z")}

	_ = SortEvents(input)

	assert.Equal(t, []string{"t1", "t2"}, paths(input))
}

func TestReplaceEventsBumpsGeneration(t *testing.T) {
	s := New("events", "light")

	g1 := s.ReplaceEvents([]model.FileEvent{event("a", "2026-10-19T10:00:00Z")})
	g2 := s.ReplaceEvents(nil)

	events, generation := s.Events()
	assert.Equal(t, g2, generation)
	assert.Greater(t, g2, g1)
	assert.NotNil(t, events)
	assert.Empty(t, events)
	assert.True(t, s.State().HasEvents)
}

func TestSlicesAreReplacedIndependently(t *testing.T) {
	s := New("control", "light")
	dir := "/srv/data"

	s.ReplaceWatchStatus(model.WatchStatus{Running: true, Directory: &dir, TotalEventsProcessed: 4})
	s.ReplaceHealth(model.HealthResponse{Status: "UP"})
	s.ReplaceEvents([]model.FileEvent{event("a", "2026-10-19T10:00:00Z")})
	s.ReplaceWatchStatus(model.WatchStatus{Running: false})

	state := s.State()
	require.NotNil(t, state.WatchStatus)
	assert.False(t, state.WatchStatus.Running)
	assert.Nil(t, state.WatchStatus.Directory)
	require.NotNil(t, state.Health)
	assert.Equal(t, "UP", state.Health.Status)
	assert.Len(t, state.Events, 1)
}

func TestToastExpires(t *testing.T) {
	s := New("control", "light")
	now := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	s.ShowToast("Events cleared", 3*time.Second)
	assert.Equal(t, "Events cleared", s.State().Toast)

	now = now.Add(3 * time.Second)
	assert.Empty(t, s.State().Toast)
}

func TestLoadingFlagsAreIndependent(t *testing.T) {
	s := New("control", "light")

	s.SetLoading("start_watch", true)
	s.SetLoading("refresh_report", true)
	s.SetLoading("start_watch", false)

	assert.Equal(t, map[string]bool{"refresh_report": true}, s.State().Loading)
}

func TestLoadingFlagStaysUntilLastOverlappingRunEnds(t *testing.T) {
	s := New("control", "light")

	s.SetLoading("download_report", true)
	s.SetLoading("download_report", true)
	s.SetLoading("download_report", false)
	assert.Equal(t, map[string]bool{"download_report": true}, s.State().Loading)

	s.SetLoading("download_report", false)
	assert.Empty(t, s.State().Loading)

	s.SetLoading("download_report", false)
	s.SetLoading("download_report", true)
	assert.Equal(t, map[string]bool{"download_report": true}, s.State().Loading)
}

func TestStateCopyIsDetached(t *testing.T) {
	s := New("control", "light")
	s.SetLoading("stop_watch", true)

	state := s.State()
	state.Loading["stop_watch"] = false
	state.Loading["injected"] = true

	assert.Equal(t, map[string]bool{"stop_watch": true}, s.State().Loading)
}

func TestToggleThemeAndErrorBanner(t *testing.T) {
	s := New("control", "light")

	assert.Equal(t, "dark", s.ToggleTheme())
	assert.Equal(t, "light", s.ToggleTheme())

	s.SetError("Backend unreachable")
	assert.Equal(t, "Backend unreachable", s.State().ErrorMessage)
	s.DismissError()
	assert.Empty(t, s.State().ErrorMessage)
}

func TestSubscribeReceivesChanges(t *testing.T) {
	s := New("control", "light")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	ch := s.Subscribe(ctx, 4)
	generation := s.ReplaceEvents([]model.FileEvent{})

	select {
	case change := <-ch:
		assert.Equal(t, TopicEvents, change.Topic)
		assert.Equal(t, generation, change.Generation)
	case <-time.After(time.Second):
		t.Fatalf("expected a change notification")
	}

	cancel()
	require.Eventually(t, func() bool {
		_, open := <-ch
		return !open
	}, time.Second, 5*time.Millisecond)
}
