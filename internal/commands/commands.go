// Package commands implements operator actions against the backend.
//
// Commands are independent of each other: each one tracks its own loading
// flag, reports its own failure on the error banner, and is recorded in the
// audit trail. Nothing prevents two commands from running at once.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"file-monitor-dashboard/internal/backend"
	"file-monitor-dashboard/internal/metrics"
	"file-monitor-dashboard/internal/model"
	"file-monitor-dashboard/internal/repository"
	"file-monitor-dashboard/internal/store"
)

const (
	StartWatch     = "start_watch"
	StopWatch      = "stop_watch"
	ClearEvents    = "clear_events"
	RefreshReport  = "refresh_report"
	DownloadReport = "download_report"
	PickFolder     = "pick_folder"
)

var validTabs = map[string]struct{}{
	"control": {},
	"events":  {},
	"reports": {},
}

// Backend is the command side of the backend API.
type Backend interface {
	StartWatch(ctx context.Context, directory string) (model.StartWatchResponse, error)
	StopWatch(ctx context.Context) (model.StopWatchResponse, error)
	ClearEvents(ctx context.Context) (model.ClearEventsResponse, error)
	Report(ctx context.Context) (model.ReportSummary, error)
	Download(ctx context.Context, kind backend.ExportKind) (backend.Export, error)
	PickFolder(ctx context.Context) (string, bool, error)
}

// StateSync refreshes or resets the polled state after a command.
type StateSync interface {
	RefreshWatchStatus(ctx context.Context) error
	ClearLocalEvents()
	SetActiveTab(tab string)
}

type AuditLog interface {
	Create(ctx context.Context, record *repository.CommandRecord) error
}

type Commands struct {
	backend  Backend
	sync     StateSync
	store    *store.Store
	metrics  *metrics.Metrics
	audit    AuditLog
	toastTTL time.Duration
	logger   *slog.Logger
}

func New(b Backend, sync StateSync, st *store.Store, m *metrics.Metrics, audit AuditLog, toastTTL time.Duration, logger *slog.Logger) *Commands {
	if logger == nil {
		logger = slog.Default()
	}
	return &Commands{
		backend:  b,
		sync:     sync,
		store:    st,
		metrics:  m,
		audit:    audit,
		toastTTL: toastTTL,
		logger:   logger,
	}
}

func (c *Commands) StartWatch(ctx context.Context, directory string) (model.StartWatchResponse, error) {
	var resp model.StartWatchResponse
	err := c.run(ctx, StartWatch, directory, func() error {
		var err error
		resp, err = c.backend.StartWatch(ctx, directory)
		if err != nil {
			return err
		}
		if resp.Directory != "" {
			c.store.SetDirectoryInput(resp.Directory)
		}
		return c.sync.RefreshWatchStatus(ctx)
	})
	return resp, err
}

func (c *Commands) StopWatch(ctx context.Context) error {
	return c.run(ctx, StopWatch, "", func() error {
		if _, err := c.backend.StopWatch(ctx); err != nil {
			return err
		}
		c.store.ShowToast("Watcher stopped successfully", c.toastTTL)
		return c.sync.RefreshWatchStatus(ctx)
	})
}

// ClearEvents deletes every event on the backend. confirmed must be true; the
// local snapshot is emptied as soon as the backend accepts.
func (c *Commands) ClearEvents(ctx context.Context, confirmed bool) error {
	return c.run(ctx, ClearEvents, "", func() error {
		if !confirmed {
			return &backend.ValidationError{Message: "Clearing events requires confirmation."}
		}
		if _, err := c.backend.ClearEvents(ctx); err != nil {
			return err
		}
		c.sync.ClearLocalEvents()
		c.store.ShowToast("Events cleared", c.toastTTL)
		return nil
	})
}

func (c *Commands) RefreshReport(ctx context.Context) (model.ReportSummary, error) {
	var report model.ReportSummary
	err := c.run(ctx, RefreshReport, "", func() error {
		var err error
		report, err = c.backend.Report(ctx)
		if err != nil {
			return err
		}
		c.store.ReplaceReport(report)
		return nil
	})
	return report, err
}

// Download fetches a complete report export without saving it.
func (c *Commands) Download(ctx context.Context, kind backend.ExportKind) (backend.Export, error) {
	var export backend.Export
	err := c.run(ctx, DownloadReport, string(kind), func() error {
		var err error
		export, err = c.backend.Download(ctx, kind)
		return err
	})
	return export, err
}

// SaveReport downloads an export and writes it into dir.
func (c *Commands) SaveReport(ctx context.Context, kind backend.ExportKind, dir string) (string, error) {
	var target string
	err := c.run(ctx, DownloadReport, string(kind), func() error {
		export, err := c.backend.Download(ctx, kind)
		if err != nil {
			return err
		}
		target, err = export.Save(dir)
		if err != nil {
			return err
		}
		c.store.ShowToast(fmt.Sprintf("Saved %s", target), c.toastTTL)
		return nil
	})
	return target, err
}

// PickFolder asks the backend host for a directory and keeps it as the
// pending directory input. ok is false when nothing was picked.
func (c *Commands) PickFolder(ctx context.Context) (string, bool, error) {
	var path string
	var ok bool
	err := c.run(ctx, PickFolder, "", func() error {
		var err error
		path, ok, err = c.backend.PickFolder(ctx)
		if err != nil {
			return err
		}
		if ok {
			c.store.SetDirectoryInput(path)
		}
		return nil
	})
	return path, ok, err
}

func (c *Commands) SelectTab(tab string) error {
	if _, ok := validTabs[tab]; !ok {
		return &backend.ValidationError{Message: fmt.Sprintf("unknown tab %q", tab)}
	}
	c.sync.SetActiveTab(tab)
	return nil
}

func (c *Commands) ToggleTheme() string {
	return c.store.ToggleTheme()
}

func (c *Commands) DismissError() {
	c.store.DismissError()
}

func (c *Commands) SetDirectoryInput(directory string) {
	c.store.SetDirectoryInput(directory)
}

func (c *Commands) run(ctx context.Context, name, argument string, fn func() error) error {
	c.store.SetLoading(name, true)
	c.store.DismissError()
	started := time.Now()

	err := fn()

	c.store.SetLoading(name, false)
	c.metrics.ObserveCommand(name, err)

	record := &repository.CommandRecord{
		ID:         uuid.NewString(),
		Command:    name,
		Argument:   argument,
		Success:    err == nil,
		DurationMs: time.Since(started).Milliseconds(),
		CreatedAt:  started.UTC(),
	}
	if err != nil {
		record.Error = err.Error()
		c.store.SetError(backend.ErrorMessage(err))
		c.logger.Warn("command failed", "command", name, "error", err)
	} else {
		c.logger.Info("command completed", "command", name, "argument", argument)
	}

	if c.audit != nil {
		if auditErr := c.audit.Create(context.WithoutCancel(ctx), record); auditErr != nil {
			c.logger.Error("failed to record command", "command", name, "error", auditErr)
		}
	}

	return err
}
