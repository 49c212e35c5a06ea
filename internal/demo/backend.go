// Package demo runs an in-process file-monitor backend for demonstration mode.
//
// It speaks the same HTTP API as the real backend and produces events from a
// real directory watched with fsnotify, so the dashboard can be exercised
// without any external service.
package demo

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-chi/chi/v5"

	"file-monitor-dashboard/internal/model"
)

const (
	serviceName      = "File Behavior Monitor"
	recentEventLimit = 200
	defaultMaxEvents = 5000
)

type Options struct {
	TrapFolder           string
	SuspiciousExtensions []string
	// PickDirectory is returned by the folder picker. Empty means nothing is picked.
	PickDirectory string
	MaxEvents     int
	Logger        *slog.Logger
}

type Backend struct {
	opts   Options
	logger *slog.Logger
	router chi.Router
	now    func() time.Time

	lifeMu sync.Mutex

	mu        sync.Mutex
	events    []model.FileEvent
	analyzer  *analyzer
	honeypot  *honeypot
	trapPaths []string
	running   bool
	directory string
	startedAt time.Time
	processed int64
	watcher   *fsnotify.Watcher
	done      chan struct{}
}

func New(opts Options) *Backend {
	if opts.MaxEvents <= 0 {
		opts.MaxEvents = defaultMaxEvents
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	b := &Backend{
		opts:     opts,
		logger:   logger.With("component", "demo-backend"),
		now:      time.Now,
		events:   []model.FileEvent{},
		analyzer: newAnalyzer(opts.SuspiciousExtensions),
		honeypot: newHoneypot(opts.TrapFolder),
	}

	r := chi.NewRouter()
	r.Get("/health", b.handleHealth)
	r.Post("/watch/start", b.handleStart)
	r.Get("/watch/status", b.handleStatus)
	r.Post("/watch/stop", b.handleStop)
	r.Get("/events", b.handleEvents)
	r.Delete("/events", b.handleClear)
	r.Get("/report", b.handleReport)
	r.Get("/report/pdf", b.handlePDF)
	r.Get("/report/excel", b.handleExcel)
	r.Get("/honeypot/status", b.handleHoneypot)
	r.Get("/system/pick-folder", b.handlePickFolder)
	b.router = r

	return b
}

func (b *Backend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	b.router.ServeHTTP(w, r)
}

// badRequest carries a message shown to the operator as-is.
type badRequest struct {
	message string
}

func (e *badRequest) Error() string {
	return e.message
}

// StartWatching begins watching directory and deploys the honeypot. Any
// previous watch is stopped first. It returns the absolute directory.
func (b *Backend) StartWatching(directory string) (string, error) {
	directory = strings.TrimSpace(directory)
	if directory == "" {
		return "", &badRequest{message: "'directory' is required and must not be blank"}
	}
	abs, err := filepath.Abs(directory)
	if err != nil {
		return "", &badRequest{message: "Invalid directory path: " + directory}
	}
	info, err := os.Stat(abs)
	if err != nil {
		return "", &badRequest{message: "Directory does not exist: " + abs}
	}
	if !info.IsDir() {
		return "", &badRequest{message: "Path is not a directory: " + abs}
	}

	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()

	b.stopLocked()

	trapPaths, err := b.honeypot.deploy(abs)
	if err != nil {
		_ = b.honeypot.cleanup(abs)
		return "", fmt.Errorf("deploy honeypot: %w", err)
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		_ = b.honeypot.cleanup(abs)
		return "", fmt.Errorf("create watcher: %w", err)
	}
	for _, path := range []string{abs, b.honeypot.trapFolder(abs)} {
		if err := watcher.Add(path); err != nil {
			_ = watcher.Close()
			_ = b.honeypot.cleanup(abs)
			return "", fmt.Errorf("watch %s: %w", path, err)
		}
	}

	done := make(chan struct{})
	b.mu.Lock()
	b.running = true
	b.directory = abs
	b.startedAt = b.now().UTC()
	b.processed = 0
	b.trapPaths = trapPaths
	b.watcher = watcher
	b.done = done
	b.mu.Unlock()

	go b.watchLoop(watcher, abs, done)

	b.logger.Info("started watching directory", "directory", abs)
	return abs, nil
}

// StopWatching stops the watcher and removes the honeypot. It is a no-op when
// nothing is watched.
func (b *Backend) StopWatching() {
	b.lifeMu.Lock()
	defer b.lifeMu.Unlock()
	b.stopLocked()
}

// Close stops watching. The backend stays usable.
func (b *Backend) Close() error {
	b.StopWatching()
	return nil
}

func (b *Backend) stopLocked() {
	b.mu.Lock()
	watcher, done, directory := b.watcher, b.done, b.directory
	b.running = false
	b.trapPaths = nil
	b.watcher = nil
	b.done = nil
	b.mu.Unlock()

	if watcher == nil {
		return
	}
	_ = watcher.Close()
	<-done

	if err := b.honeypot.cleanup(directory); err != nil {
		b.logger.Warn("failed to remove honeypot", "directory", directory, "error", err)
	}
	b.logger.Info("stopped watching directory", "directory", directory)
}

func (b *Backend) watchLoop(watcher *fsnotify.Watcher, root string, done chan struct{}) {
	defer close(done)
	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			b.handleFsEvent(watcher, root, event)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			b.logger.Warn("watcher error", "directory", root, "error", err)
		}
	}
}

func (b *Backend) handleFsEvent(watcher *fsnotify.Watcher, root string, event fsnotify.Event) {
	var eventType string
	switch {
	case event.Has(fsnotify.Create):
		eventType = EventCreated
	case event.Has(fsnotify.Write):
		eventType = EventModified
	case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
		eventType = EventDeleted
	default:
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if b.watcher != watcher {
		return
	}
	path := filepath.Clean(event.Name)
	b.recordLocked(path, eventType, b.honeypot.contains(root, path))
}

func (b *Backend) record(path, eventType string, honeypotTriggered bool) model.FileEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.recordLocked(path, eventType, honeypotTriggered)
}

func (b *Backend) recordLocked(path, eventType string, honeypotTriggered bool) model.FileEvent {
	now := b.now().UTC()
	event := model.FileEvent{
		Path:              path,
		Timestamp:         now.Format(time.RFC3339Nano),
		EventType:         eventType,
		HoneypotTriggered: honeypotTriggered,
		Notes:             []string{},
	}
	b.analyzer.annotate(&event, now)
	event.RiskScore, event.RiskLevel = score(event)

	b.events = append(b.events, event)
	if overflow := len(b.events) - b.opts.MaxEvents; overflow > 0 {
		b.events = append([]model.FileEvent(nil), b.events[overflow:]...)
	}
	b.processed++
	return event
}

// recentEvents returns up to limit events, newest first.
func (b *Backend) recentEvents(limit int) []model.FileEvent {
	b.mu.Lock()
	defer b.mu.Unlock()

	n := min(limit, len(b.events))
	out := make([]model.FileEvent, 0, n)
	for i := len(b.events) - 1; i >= len(b.events)-n; i-- {
		out = append(out, b.events[i])
	}
	return out
}

func (b *Backend) status() model.WatchStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	out := model.WatchStatus{Running: b.running, TotalEventsProcessed: b.processed}
	if b.directory != "" {
		directory := b.directory
		out.Directory = &directory
	}
	if !b.startedAt.IsZero() {
		started := b.startedAt.Format(time.RFC3339Nano)
		out.StartedAt = &started
	}
	return out
}

func (b *Backend) honeypotStatus() model.HoneypotStatus {
	b.mu.Lock()
	defer b.mu.Unlock()

	folder := b.honeypot.folderName
	out := model.HoneypotStatus{
		Enabled:        true,
		DeployOnStart:  true,
		CleanupOnStop:  true,
		TrapFolderName: &folder,
		DeployedPaths:  append([]string{}, b.trapPaths...),
	}
	out.DeployedCount = len(out.DeployedPaths)
	if b.running {
		directory := b.directory
		out.WatchedDirectory = &directory
	}
	return out
}

func (b *Backend) clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = []model.FileEvent{}
}

func (b *Backend) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, model.HealthResponse{
		Status:    "UP",
		Service:   serviceName,
		Timestamp: b.now().UTC().Format(time.RFC3339Nano),
	})
}

func (b *Backend) handleStart(w http.ResponseWriter, r *http.Request) {
	var req model.StartWatchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "'directory' is required and must not be blank")
		return
	}

	directory, err := b.StartWatching(req.Directory)
	if err != nil {
		var bad *badRequest
		if errors.As(err, &bad) {
			writeError(w, http.StatusBadRequest, bad.message)
			return
		}
		b.logger.Error("failed to start watcher", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start watcher")
		return
	}
	writeJSON(w, http.StatusOK, model.StartWatchResponse{Message: "Watcher started", Directory: directory})
}

func (b *Backend) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.status())
}

func (b *Backend) handleStop(w http.ResponseWriter, r *http.Request) {
	b.StopWatching()
	writeJSON(w, http.StatusOK, model.StopWatchResponse{Stopped: true})
}

func (b *Backend) handleEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.recentEvents(recentEventLimit))
}

func (b *Backend) handleClear(w http.ResponseWriter, r *http.Request) {
	b.clear()
	writeJSON(w, http.StatusOK, model.ClearEventsResponse{Cleared: true})
}

func (b *Backend) handleHoneypot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, b.honeypotStatus())
}

func (b *Backend) handlePickFolder(w http.ResponseWriter, r *http.Request) {
	if strings.TrimSpace(b.opts.PickDirectory) == "" {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, model.PickFolderResponse{Path: b.opts.PickDirectory})
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
