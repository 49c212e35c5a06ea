package demo

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-monitor-dashboard/internal/backend"
	"file-monitor-dashboard/internal/model"
)

func newDemo(t *testing.T, opts Options) (*Backend, *backend.Client) {
	t.Helper()
	demo := New(opts)
	srv := httptest.NewServer(demo)
	t.Cleanup(func() {
		srv.Close()
		_ = demo.Close()
	})
	return demo, backend.NewClient(srv.URL, 2*time.Second)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(20 * time.Millisecond)
	}
	t.Fatalf("condition not met before deadline")
}

func TestScoreFollowsRiskRules(t *testing.T) {
	cases := []struct {
		name  string
		event model.FileEvent
		score int
		level model.RiskLevel
	}{
		{"created", model.FileEvent{EventType: EventCreated}, 15, model.RiskLow},
		{"modified", model.FileEvent{EventType: EventModified}, 25, model.RiskLow},
		{"suspicious", model.FileEvent{EventType: EventCreated, Notes: []string{NoteSuspiciousExt}}, 45, model.RiskMedium},
		{"delete spike", model.FileEvent{EventType: EventDeleted, Notes: []string{NoteMassChange, NoteDeleteSpike}}, 65, model.RiskMedium},
		{"honeypot", model.FileEvent{EventType: EventModified, HoneypotTriggered: true}, 95, model.RiskHigh},
		{"capped", model.FileEvent{EventType: EventModified, HoneypotTriggered: true, Notes: []string{NoteSuspiciousExt}}, 100, model.RiskHigh},
		{"critical", model.FileEvent{EventType: EventCreated, Notes: []string{NoteCriticalIntrusion}}, 100, model.RiskHigh},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, level := score(tc.event)
			assert.Equal(t, tc.score, got)
			assert.Equal(t, tc.level, level)
		})
	}
}

func TestAnalyzerFlagsBurstsWithinWindow(t *testing.T) {
	a := newAnalyzer(nil)
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	var last model.FileEvent
	for i := 0; i < 31; i++ {
		last = model.FileEvent{Path: "/data/f.txt", EventType: EventDeleted, HoneypotTriggered: i == 30}
		a.annotate(&last, start.Add(time.Duration(i)*100*time.Millisecond))
	}

	assert.Contains(t, last.Notes, NoteMassChange)
	assert.Contains(t, last.Notes, NoteDeleteSpike)
	assert.Contains(t, last.Notes, NoteCriticalIntrusion)

	later := model.FileEvent{Path: "/data/g.txt", EventType: EventCreated}
	a.annotate(&later, start.Add(time.Minute))
	assert.Empty(t, later.Notes)
}

func TestAnalyzerFlagsSuspiciousExtension(t *testing.T) {
	a := newAnalyzer([]string{".EXE"})

	created := model.FileEvent{Path: "/data/setup.exe", EventType: EventCreated}
	a.annotate(&created, time.Now())
	deleted := model.FileEvent{Path: "/data/setup.exe", EventType: EventDeleted}
	a.annotate(&deleted, time.Now())

	assert.Equal(t, []string{NoteSuspiciousExt}, created.Notes)
	assert.Empty(t, deleted.Notes)
}

func TestStartWatchRejectsMissingDirectory(t *testing.T) {
	_, client := newDemo(t, Options{})
	missing := filepath.Join(t.TempDir(), "missing")

	_, err := client.StartWatch(context.Background(), missing)

	var apiErr *backend.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "Directory does not exist: "+missing, apiErr.Message)
}

func TestWatchProducesEventsAndHoneypotTriggers(t *testing.T) {
	_, client := newDemo(t, Options{})
	ctx := context.Background()
	dir := t.TempDir()

	resp, err := client.StartWatch(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, dir, resp.Directory)

	status, err := client.WatchStatus(ctx)
	require.NoError(t, err)
	assert.True(t, status.Running)
	require.NotNil(t, status.StartedAt)

	honeypot, err := client.HoneypotStatus(ctx)
	require.NoError(t, err)
	require.Equal(t, len(baitFiles), honeypot.DeployedCount)
	require.NotNil(t, honeypot.TrapFolderName)
	assert.Equal(t, DefaultTrapFolder, *honeypot.TrapFolderName)

	target := filepath.Join(dir, "notes.txt")
	require.NoError(t, os.WriteFile(target, []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(honeypot.DeployedPaths[0], []byte("tampered"), 0o644))

	var events []model.FileEvent
	waitFor(t, func() bool {
		events, err = client.Events(ctx)
		require.NoError(t, err)
		return slices.ContainsFunc(events, func(e model.FileEvent) bool { return e.Path == target }) &&
			slices.ContainsFunc(events, func(e model.FileEvent) bool { return e.HoneypotTriggered })
	})
	for _, event := range events {
		if event.HoneypotTriggered {
			assert.Equal(t, model.RiskHigh, event.RiskLevel)
		}
	}

	_, err = client.StopWatch(ctx)
	require.NoError(t, err)
	_, statErr := os.Stat(filepath.Join(dir, DefaultTrapFolder))
	assert.True(t, os.IsNotExist(statErr))

	status, err = client.WatchStatus(ctx)
	require.NoError(t, err)
	assert.False(t, status.Running)
}

func TestEventsAreNewestFirstAndClearable(t *testing.T) {
	demo, client := newDemo(t, Options{})
	ctx := context.Background()
	demo.record("/data/a.txt", EventCreated, false)
	demo.record("/data/b.txt", EventModified, false)

	events, err := client.Events(ctx)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "/data/b.txt", events[0].Path)

	cleared, err := client.ClearEvents(ctx)
	require.NoError(t, err)
	assert.True(t, cleared.Cleared)

	events, err = client.Events(ctx)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestPickFolderWithoutDirectoryReturnsNoContent(t *testing.T) {
	_, client := newDemo(t, Options{})

	path, ok, err := client.PickFolder(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, path)
}

func TestPickFolderReturnsConfiguredDirectory(t *testing.T) {
	_, client := newDemo(t, Options{PickDirectory: "/srv/shared"})

	path, ok, err := client.PickFolder(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/srv/shared", path)
}

func TestReportSummarizesEvents(t *testing.T) {
	demo, client := newDemo(t, Options{})
	demo.record("/data/run.sh", EventCreated, false)
	demo.record("/data/.sys_trap/passwords.txt", EventModified, true)

	report, err := client.Report(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(2), report.TotalEvents)
	assert.Equal(t, int64(1), report.HoneypotTriggers)
	assert.Equal(t, int64(1), report.MediumRiskCount)
	assert.Equal(t, int64(1), report.HighRiskCount)
	assert.Equal(t, []string{NoteSuspiciousExt}, report.DetectedPatterns)
}

func TestReportExportsAreComplete(t *testing.T) {
	demo, client := newDemo(t, Options{})
	demo.record("/data/(draft).txt", EventCreated, false)
	ctx := context.Background()

	pdf, err := client.Download(ctx, backend.ExportPDF)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf.Data, []byte("%PDF-1.4")))
	assert.True(t, bytes.HasSuffix(pdf.Data, []byte("%%EOF\n")))
	assert.Contains(t, string(pdf.Data), `\(draft\)`)

	xlsx, err := client.Download(ctx, backend.ExportExcel)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(xlsx.Data, []byte("PK")))
	assert.Equal(t, "file-behavior-report.xlsx", xlsx.Filename)
}
