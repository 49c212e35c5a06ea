package commands

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"file-monitor-dashboard/internal/backend"
	"file-monitor-dashboard/internal/metrics"
	"file-monitor-dashboard/internal/model"
	"file-monitor-dashboard/internal/repository"
	"file-monitor-dashboard/internal/store"
)

type fakeBackend struct {
	startErr    error
	stopErr     error
	clearErr    error
	clearCalls  int
	report      model.ReportSummary
	export      backend.Export
	downloadErr error
	picked      string
	// omitDirectory mimics a backend that omits the directory.
	omitDirectory bool
	// gates, when set, hold Download until the kind's channel is closed.
	gates   map[backend.ExportKind]chan struct{}
	started chan backend.ExportKind
}

func (f *fakeBackend) StartWatch(ctx context.Context, directory string) (model.StartWatchResponse, error) {
	if f.startErr != nil {
		return model.StartWatchResponse{}, f.startErr
	}
	if f.omitDirectory {
		return model.StartWatchResponse{Message: "Watcher started"}, nil
	}
	return model.StartWatchResponse{Message: "Watcher started", Directory: directory}, nil
}

func (f *fakeBackend) StopWatch(ctx context.Context) (model.StopWatchResponse, error) {
	return model.StopWatchResponse{Stopped: true}, f.stopErr
}

func (f *fakeBackend) ClearEvents(ctx context.Context) (model.ClearEventsResponse, error) {
	f.clearCalls++
	if f.clearErr != nil {
		return model.ClearEventsResponse{}, f.clearErr
	}
	return model.ClearEventsResponse{Cleared: true}, nil
}

func (f *fakeBackend) Report(ctx context.Context) (model.ReportSummary, error) {
	return f.report, nil
}

func (f *fakeBackend) Download(ctx context.Context, kind backend.ExportKind) (backend.Export, error) {
	if gate, ok := f.gates[kind]; ok {
		f.started <- kind
		<-gate
	}
	return f.export, f.downloadErr
}

func (f *fakeBackend) PickFolder(ctx context.Context) (string, bool, error) {
	return f.picked, f.picked != "", nil
}

type fakeSync struct {
	refreshes int
	cleared   int
	tab       string
}

func (f *fakeSync) RefreshWatchStatus(ctx context.Context) error {
	f.refreshes++
	return nil
}

func (f *fakeSync) ClearLocalEvents() {
	f.cleared++
}

func (f *fakeSync) SetActiveTab(tab string) {
	f.tab = tab
}

type fixture struct {
	cmds    *Commands
	backend *fakeBackend
	sync    *fakeSync
	store   *store.Store
	audit   *repository.CommandRepository
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	db, err := repository.Open(":memory:")
	require.NoError(t, err)

	fb := &fakeBackend{}
	fs := &fakeSync{}
	st := store.New("control", "light")
	audit := repository.NewCommandRepository(db)
	return fixture{
		cmds:    New(fb, fs, st, metrics.New(), audit, 3*time.Second, nil),
		backend: fb,
		sync:    fs,
		store:   st,
		audit:   audit,
	}
}

func TestStartWatchRefreshesStatus(t *testing.T) {
	f := newFixture(t)

	resp, err := f.cmds.StartWatch(context.Background(), "/srv/data")

	require.NoError(t, err)
	assert.Equal(t, "/srv/data", resp.Directory)
	assert.Equal(t, 1, f.sync.refreshes)
	assert.Equal(t, "/srv/data", f.store.State().DirectoryInput)
	assert.Empty(t, f.store.State().Loading)
}

func TestStartWatchKeepsInputWhenBackendOmitsDirectory(t *testing.T) {
	f := newFixture(t)
	f.backend.omitDirectory = true
	f.cmds.SetDirectoryInput("/srv/data")

	resp, err := f.cmds.StartWatch(context.Background(), "/srv/data")

	require.NoError(t, err)
	assert.Empty(t, resp.Directory)
	assert.Equal(t, "/srv/data", f.store.State().DirectoryInput)
}

func TestStartWatchFailureSurfacesBanner(t *testing.T) {
	f := newFixture(t)
	f.backend.startErr = &backend.APIError{StatusCode: http.StatusBadRequest, Message: "Invalid directory path: ::"}

	_, err := f.cmds.StartWatch(context.Background(), "::")

	require.Error(t, err)
	assert.Equal(t, "Invalid directory path: ::", f.store.State().ErrorMessage)
	assert.Zero(t, f.sync.refreshes)

	records, err := f.audit.Recent(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
	assert.Equal(t, StartWatch, records[0].Command)
}

func TestStopWatchShowsToast(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.cmds.StopWatch(context.Background()))

	assert.Equal(t, "Watcher stopped successfully", f.store.State().Toast)
	assert.Equal(t, 1, f.sync.refreshes)
}

func TestClearEventsRequiresConfirmation(t *testing.T) {
	f := newFixture(t)

	err := f.cmds.ClearEvents(context.Background(), false)

	var validationErr *backend.ValidationError
	require.True(t, errors.As(err, &validationErr))
	assert.Zero(t, f.backend.clearCalls)
	assert.Zero(t, f.sync.cleared)
}

func TestClearEventsEmptiesLocalSnapshot(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.cmds.ClearEvents(context.Background(), true))

	assert.Equal(t, 1, f.backend.clearCalls)
	assert.Equal(t, 1, f.sync.cleared)
	assert.Equal(t, "Events cleared", f.store.State().Toast)
}

func TestClearEventsFailureKeepsLocalSnapshot(t *testing.T) {
	f := newFixture(t)
	f.backend.clearErr = &backend.APIError{StatusCode: http.StatusInternalServerError, Message: "request failed with status 500"}

	require.Error(t, f.cmds.ClearEvents(context.Background(), true))

	assert.Zero(t, f.sync.cleared)
	assert.Equal(t, "request failed with status 500", f.store.State().ErrorMessage)
}

func TestNewCommandDismissesPreviousError(t *testing.T) {
	f := newFixture(t)
	f.store.SetError("stale failure")

	_, err := f.cmds.RefreshReport(context.Background())

	require.NoError(t, err)
	assert.Empty(t, f.store.State().ErrorMessage)
}

func TestRefreshReportStoresSummary(t *testing.T) {
	f := newFixture(t)
	f.backend.report = model.ReportSummary{TotalEvents: 9, DetectedPatterns: []string{"MASS_CHANGE_SUSPECTED"}}

	report, err := f.cmds.RefreshReport(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(9), report.TotalEvents)
	require.NotNil(t, f.store.State().Report)
	assert.Equal(t, int64(9), f.store.State().Report.TotalEvents)
}

func TestSaveReportWritesFile(t *testing.T) {
	f := newFixture(t)
	f.backend.export = backend.Export{Filename: "file-behavior-report.pdf", ContentType: "application/pdf", Data: []byte("%PDF-1.7")}
	dir := t.TempDir()

	target, err := f.cmds.SaveReport(context.Background(), backend.ExportPDF, dir)

	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "file-behavior-report.pdf"), target)
	data, err := os.ReadFile(target)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7", string(data))
}

func TestSaveReportFailureLeavesNoFile(t *testing.T) {
	f := newFixture(t)
	f.backend.downloadErr = &backend.DownloadError{Filename: "file-behavior-report.pdf", StatusCode: http.StatusInternalServerError}
	dir := t.TempDir()

	_, err := f.cmds.SaveReport(context.Background(), backend.ExportPDF, dir)

	require.Error(t, err)
	assert.Equal(t, "Failed to download file-behavior-report.pdf", f.store.State().ErrorMessage)
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestPickFolderUpdatesDirectoryInput(t *testing.T) {
	f := newFixture(t)
	f.backend.picked = "/home/ops/watched"

	path, ok, err := f.cmds.PickFolder(context.Background())

	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "/home/ops/watched", path)
	assert.Equal(t, "/home/ops/watched", f.store.State().DirectoryInput)
}

func TestPickFolderWithoutSelectionKeepsInput(t *testing.T) {
	f := newFixture(t)
	f.store.SetDirectoryInput("/srv/data")

	_, ok, err := f.cmds.PickFolder(context.Background())

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "/srv/data", f.store.State().DirectoryInput)
}

func TestSelectTabValidatesName(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.cmds.SelectTab("events"))
	assert.Equal(t, "events", f.sync.tab)
	assert.Error(t, f.cmds.SelectTab("settings"))
}

func TestOverlappingDownloadsKeepLoadingUntilBothFinish(t *testing.T) {
	f := newFixture(t)
	f.backend.export = backend.Export{Filename: "file-behavior-report.pdf", Data: []byte("%PDF")}
	f.backend.gates = map[backend.ExportKind]chan struct{}{
		backend.ExportPDF:   make(chan struct{}),
		backend.ExportExcel: make(chan struct{}),
	}
	f.backend.started = make(chan backend.ExportKind, 2)

	done := map[backend.ExportKind]chan struct{}{
		backend.ExportPDF:   make(chan struct{}),
		backend.ExportExcel: make(chan struct{}),
	}
	var wg sync.WaitGroup
	for kind, finished := range done {
		kind, finished := kind, finished
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer close(finished)
			_, _ = f.cmds.Download(context.Background(), kind)
		}()
	}
	<-f.backend.started
	<-f.backend.started

	close(f.backend.gates[backend.ExportPDF])
	<-done[backend.ExportPDF]
	assert.True(t, f.store.State().Loading[DownloadReport], "excel download still running")

	close(f.backend.gates[backend.ExportExcel])
	wg.Wait()
	assert.Empty(t, f.store.State().Loading)
}
