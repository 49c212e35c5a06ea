package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"

	"file-monitor-dashboard/internal/backend"
	"file-monitor-dashboard/internal/model"
	"file-monitor-dashboard/internal/repository"
	"file-monitor-dashboard/internal/store"
)

const (
	maxVisibleHoneypotPaths = 10
	defaultTrapFolder       = ".sys_trap"
	defaultCommandLimit     = 50
	maxCommandLimit         = 500

	streamPath      = "/api/v1/stream"
	streamBuffer    = 32
	streamKeepAlive = 15 * time.Second
)

type dashboardReader interface {
	Snapshot(filter model.FilterCriteria) (model.DashboardSnapshot, bool)
	Ready() bool
	Filter() model.FilterCriteria
	SetFilter(filter model.FilterCriteria)
	Subscribe(ctx context.Context, buffer int) <-chan store.Change
}

type commander interface {
	StartWatch(ctx context.Context, directory string) (model.StartWatchResponse, error)
	StopWatch(ctx context.Context) error
	ClearEvents(ctx context.Context, confirmed bool) error
	RefreshReport(ctx context.Context) (model.ReportSummary, error)
	Download(ctx context.Context, kind backend.ExportKind) (backend.Export, error)
	PickFolder(ctx context.Context) (string, bool, error)
	SelectTab(tab string) error
	ToggleTheme() string
	DismissError()
	SetDirectoryInput(directory string)
}

type auditReader interface {
	Recent(ctx context.Context, limit int) ([]repository.CommandRecord, error)
}

// API hosts the dashboard endpoints, the operator commands and the static UI.
type API struct {
	reader       dashboardReader
	commands     commander
	audit        auditReader
	metrics      http.Handler
	pageTitle    string
	pollInterval time.Duration
	router       http.Handler
	handler      http.Handler
}

type Options struct {
	PageTitle    string
	PollInterval time.Duration
	Audit        auditReader
	Metrics      http.Handler
	StaticDir    string
}

func New(reader dashboardReader, commands commander, opts Options) *API {
	api := &API{
		reader:       reader,
		commands:     commands,
		audit:        opts.Audit,
		metrics:      opts.Metrics,
		pageTitle:    opts.PageTitle,
		pollInterval: opts.PollInterval,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) { methodNotAllowed(w) })

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/dashboard", api.handleDashboard)
		r.Get("/events", api.handleEvents)
		r.Delete("/events", api.handleClearEvents)
		r.Get("/analytics", api.handleAnalytics)
		r.Get("/filter", api.handleGetFilter)
		r.Put("/filter", api.handleSetFilter)
		r.Put("/directory", api.handleSetDirectory)
		r.Get("/stream", api.handleStream)
		r.Post("/watch/start", api.handleStartWatch)
		r.Post("/watch/stop", api.handleStopWatch)
		r.Get("/report", api.handleReport)
		r.Post("/report/refresh", api.handleRefreshReport)
		r.Get("/report/{format}", api.handleDownload)
		r.Post("/pick-folder", api.handlePickFolder)
		r.Put("/tab", api.handleSelectTab)
		r.Post("/theme/toggle", api.handleToggleTheme)
		r.Delete("/banner", api.handleDismissBanner)
		r.Get("/commands", api.handleCommands)
	})
	r.Get("/healthz", api.handleHealthz)
	r.Get("/readyz", api.handleReadyz)
	if api.metrics != nil {
		r.Handle("/metrics", api.metrics)
	}
	if opts.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(opts.StaticDir)))
	}

	api.router = r
	api.handler = gzhttp.GzipHandler(r)
	return api
}

// ServeHTTP compresses every response except the change stream, whose events
// must reach the client as soon as they are written.
func (a *API) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path == streamPath {
		a.router.ServeHTTP(w, r)
		return
	}
	a.handler.ServeHTTP(w, r)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	filter, err := a.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, ok := a.reader.Snapshot(filter)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, dashboardResponse{
		DashboardSnapshot: snapshot,
		PageTitle:         a.pageTitle,
		PollIntervalMS:    a.pollInterval.Milliseconds(),
		HoneypotPanel:     newHoneypotPanel(snapshot.Honeypot, queryBool(r, "expandHoneypot")),
	})
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := a.filterFromQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	snapshot, ok := a.reader.Snapshot(filter)
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}

	rows := make([]eventRow, len(snapshot.Events))
	for i, event := range snapshot.Events {
		rows[i] = eventRow{FileEvent: event, RowKey: event.Key()}
	}

	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, eventsResponse{
		Events:     rows,
		Shown:      len(snapshot.Events),
		Total:      snapshot.TotalEvents,
		Filter:     snapshot.Filter,
		Generation: snapshot.Generation,
		Stale:      snapshot.Stale,
	})
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.reader.Snapshot(a.reader.Filter())
	if !ok {
		writeError(w, http.StatusServiceUnavailable, "snapshot unavailable")
		return
	}
	w.Header().Set("Cache-Control", "no-store")
	writeJSON(w, http.StatusOK, snapshot.Analytics)
}

func (a *API) handleGetFilter(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.reader.Filter())
}

// handleSetFilter replaces the stored filter used by requests that carry no
// filter parameters of their own.
func (a *API) handleSetFilter(w http.ResponseWriter, r *http.Request) {
	var filter model.FilterCriteria
	if err := decodeBody(w, r, &filter); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.reader.SetFilter(filter)
	writeJSON(w, http.StatusOK, filter)
}

func (a *API) handleSetDirectory(w http.ResponseWriter, r *http.Request) {
	var req model.StartWatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	a.commands.SetDirectoryInput(req.Directory)
	writeJSON(w, http.StatusOK, map[string]string{"directory": req.Directory})
}

// handleStream pushes a server-sent event for every state change until the
// client goes away. Each event is named after the replaced slice of state.
func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Time{})

	changes := a.reader.Subscribe(r.Context(), streamBuffer)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		return
	}

	keepAlive := time.NewTicker(streamKeepAlive)
	defer keepAlive.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case change, ok := <-changes:
			if !ok {
				return
			}
			data, err := json.Marshal(change)
			if err != nil {
				return
			}
			if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", change.Topic, data); err != nil {
				return
			}
		case <-keepAlive.C:
			if _, err := io.WriteString(w, ": keep-alive\n\n"); err != nil {
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func (a *API) handleClearEvents(w http.ResponseWriter, r *http.Request) {
	if err := a.commands.ClearEvents(r.Context(), queryBool(r, "confirm")); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ClearEventsResponse{Cleared: true})
}

func (a *API) handleStartWatch(w http.ResponseWriter, r *http.Request) {
	var req model.StartWatchRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp, err := a.commands.StartWatch(r.Context(), req.Directory)
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleStopWatch(w http.ResponseWriter, r *http.Request) {
	if err := a.commands.StopWatch(r.Context()); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, model.StopWatchResponse{Message: "Watcher stopped successfully", Stopped: true})
}

func (a *API) handleReport(w http.ResponseWriter, r *http.Request) {
	snapshot, ok := a.reader.Snapshot(a.reader.Filter())
	if !ok || snapshot.Report == nil {
		writeError(w, http.StatusNotFound, "no report loaded")
		return
	}
	writeJSON(w, http.StatusOK, snapshot.Report)
}

func (a *API) handleRefreshReport(w http.ResponseWriter, r *http.Request) {
	report, err := a.commands.RefreshReport(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *API) handleDownload(w http.ResponseWriter, r *http.Request) {
	kind, err := backend.ParseExportKind(chi.URLParam(r, "format"))
	if err != nil {
		writeCommandError(w, err)
		return
	}

	export, err := a.commands.Download(r.Context(), kind)
	if err != nil {
		writeCommandError(w, err)
		return
	}

	w.Header().Set("Content-Type", export.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(export.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(export.Data)
}

func (a *API) handlePickFolder(w http.ResponseWriter, r *http.Request) {
	path, ok, err := a.commands.PickFolder(r.Context())
	if err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, pickFolderResponse{Path: path, Picked: ok})
}

func (a *API) handleSelectTab(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Tab string `json:"tab"`
	}
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := a.commands.SelectTab(req.Tab); err != nil {
		writeCommandError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"tab": req.Tab})
}

func (a *API) handleToggleTheme(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"theme": a.commands.ToggleTheme()})
}

func (a *API) handleDismissBanner(w http.ResponseWriter, r *http.Request) {
	a.commands.DismissError()
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleCommands(w http.ResponseWriter, r *http.Request) {
	if a.audit == nil {
		writeJSON(w, http.StatusOK, []repository.CommandRecord{})
		return
	}

	limit := defaultCommandLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(parsed, maxCommandLimit)
	}

	records, err := a.audit.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load command history")
		return
	}
	writeJSON(w, http.StatusOK, records)
}

func (a *API) handleHealthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
}

func (a *API) handleReadyz(w http.ResponseWriter, r *http.Request) {
	if !a.reader.Ready() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]bool{"ready": false})
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"ready": true})
}

// filterFromQuery reads highRisk, honeypot and search. When none is present
// the stored filter applies. A filter given in the query only shapes this
// response; PUT /api/v1/filter changes the stored one.
func (a *API) filterFromQuery(r *http.Request) (model.FilterCriteria, error) {
	query := r.URL.Query()
	if !query.Has("highRisk") && !query.Has("honeypot") && !query.Has("search") {
		return a.reader.Filter(), nil
	}

	var filter model.FilterCriteria
	var err error
	if filter.HighRiskOnly, err = parseBool(query.Get("highRisk")); err != nil {
		return model.FilterCriteria{}, fmt.Errorf("invalid highRisk: %w", err)
	}
	if filter.HoneypotOnly, err = parseBool(query.Get("honeypot")); err != nil {
		return model.FilterCriteria{}, fmt.Errorf("invalid honeypot: %w", err)
	}
	filter.Search = query.Get("search")
	return filter, nil
}

func parseBool(raw string) (bool, error) {
	if raw == "" {
		return false, nil
	}
	return strconv.ParseBool(raw)
}

func queryBool(r *http.Request, name string) bool {
	value, err := parseBool(r.URL.Query().Get(name))
	return err == nil && value
}

func decodeBody(w http.ResponseWriter, r *http.Request, out any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeCommandError maps command failures to a status code and the banner text.
func writeCommandError(w http.ResponseWriter, err error) {
	status := http.StatusBadGateway
	var validationErr *backend.ValidationError
	var apiErr *backend.APIError
	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
	case errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500:
		status = apiErr.StatusCode
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	}
	writeError(w, status, backend.ErrorMessage(err))
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

type dashboardResponse struct {
	model.DashboardSnapshot
	PageTitle      string         `json:"page_title"`
	PollIntervalMS int64          `json:"poll_interval_ms"`
	HoneypotPanel  *honeypotPanel `json:"honeypot_panel"`
}

// eventRow is an event plus the key the UI uses to identify its row.
type eventRow struct {
	model.FileEvent
	RowKey string `json:"key"`
}

type eventsResponse struct {
	Events     []eventRow           `json:"events"`
	Shown      int                  `json:"shown"`
	Total      int                  `json:"total"`
	Filter     model.FilterCriteria `json:"filter"`
	Generation uint64               `json:"generation"`
	Stale      bool                 `json:"stale"`
}

type pickFolderResponse struct {
	Path   string `json:"path"`
	Picked bool   `json:"picked"`
}

// honeypotPanel is the display form of the honeypot status: long path lists
// are cut to the first few entries unless expanded.
type honeypotPanel struct {
	Enabled          bool     `json:"enabled"`
	TrapFolderName   string   `json:"trap_folder_name"`
	WatchedDirectory string   `json:"watched_directory"`
	DeployedCount    int      `json:"deployed_count"`
	VisiblePaths     []string `json:"visible_paths"`
	HiddenPaths      int      `json:"hidden_paths"`
}

func newHoneypotPanel(status *model.HoneypotStatus, expand bool) *honeypotPanel {
	if status == nil {
		return nil
	}

	panel := &honeypotPanel{
		Enabled:        status.Enabled,
		TrapFolderName: defaultTrapFolder,
		DeployedCount:  status.DeployedCount,
		VisiblePaths:   status.DeployedPaths,
	}
	if status.TrapFolderName != nil && strings.TrimSpace(*status.TrapFolderName) != "" {
		panel.TrapFolderName = *status.TrapFolderName
	}
	if status.WatchedDirectory != nil {
		panel.WatchedDirectory = *status.WatchedDirectory
	}
	if panel.VisiblePaths == nil {
		panel.VisiblePaths = []string{}
	}
	if !expand && len(panel.VisiblePaths) > maxVisibleHoneypotPaths {
		panel.HiddenPaths = len(panel.VisiblePaths) - maxVisibleHoneypotPaths
		panel.VisiblePaths = panel.VisiblePaths[:maxVisibleHoneypotPaths]
	}
	return panel
}
