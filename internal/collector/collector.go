package collector

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"file-monitor-dashboard/internal/analytics"
	"file-monitor-dashboard/internal/backend"
	"file-monitor-dashboard/internal/metrics"
	"file-monitor-dashboard/internal/model"
	"file-monitor-dashboard/internal/poller"
	"file-monitor-dashboard/internal/store"
)

const (
	PollerEvents      = "events"
	PollerWatchStatus = "watch_status"
	PollerHoneypot    = "honeypot"
	PollerHealth      = "health"

	// TabEvents is the tab whose visibility drives the events poller.
	TabEvents = "events"
)

// Source is the part of the backend API polled on a schedule.
type Source interface {
	Health(ctx context.Context) (model.HealthResponse, error)
	WatchStatus(ctx context.Context) (model.WatchStatus, error)
	Events(ctx context.Context) ([]model.FileEvent, error)
	HoneypotStatus(ctx context.Context) (model.HoneypotStatus, error)
}

type Intervals struct {
	Events   time.Duration
	Status   time.Duration
	Honeypot time.Duration
	Health   time.Duration
}

// Collector keeps the store in sync with the backend using one poller per
// slice of state. Each poller only ever replaces its own slice.
type Collector struct {
	source    Source
	store     *store.Store
	engine    *analytics.Engine
	metrics   *metrics.Metrics
	intervals Intervals
	logger    *slog.Logger

	base   context.Context
	cancel context.CancelFunc

	events      *poller.Poller
	watchStatus *poller.Poller
	honeypot    *poller.Poller
	health      *poller.Poller

	stopOnce sync.Once
}

func New(source Source, st *store.Store, engine *analytics.Engine, m *metrics.Metrics, intervals Intervals, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(context.Background())

	c := &Collector{
		source:    source,
		store:     st,
		engine:    engine,
		metrics:   m,
		intervals: intervals,
		logger:    logger,
		base:      base,
		cancel:    cancel,
	}

	opts := []poller.Option{poller.WithLogger(logger), poller.WithErrorHook(c.pollFailed)}
	c.events = poller.New(base, PollerEvents, intervals.Events, c.pollAction(PollerEvents, c.fetchEvents, func() *poller.Poller { return c.events }), opts...)
	c.watchStatus = poller.New(base, PollerWatchStatus, intervals.Status, c.pollAction(PollerWatchStatus, c.fetchWatchStatus, func() *poller.Poller { return c.watchStatus }), opts...)
	c.honeypot = poller.New(base, PollerHoneypot, intervals.Honeypot, c.pollAction(PollerHoneypot, c.fetchHoneypot, func() *poller.Poller { return c.honeypot }), opts...)
	c.health = poller.New(base, PollerHealth, intervals.Health, c.pollAction(PollerHealth, c.fetchHealth, func() *poller.Poller { return c.health }), opts...)

	return c
}

// Start enables the always-on pollers and the events poller when its tab is
// active. Everything stops when ctx is done.
func (c *Collector) Start(ctx context.Context) {
	c.watchStatus.SetEnabled(true)
	c.honeypot.SetEnabled(true)
	c.health.SetEnabled(true)
	c.events.SetEnabled(c.store.State().ActiveTab == TabEvents)

	go func() {
		<-ctx.Done()
		c.Stop()
	}()
}

// Stop disables all pollers, cancels in-flight requests and waits for them.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() {
		for _, p := range c.pollers() {
			p.SetEnabled(false)
		}
		c.cancel()
		for _, p := range c.pollers() {
			p.Stop()
		}
	})
}

func (c *Collector) pollers() []*poller.Poller {
	return []*poller.Poller{c.events, c.watchStatus, c.honeypot, c.health}
}

// SetActiveTab switches tabs; the events poller only runs on the events tab.
func (c *Collector) SetActiveTab(tab string) {
	c.store.SetActiveTab(tab)
	c.events.SetEnabled(tab == TabEvents)
}

// Filter returns the filter criteria last chosen by the operator.
func (c *Collector) Filter() model.FilterCriteria {
	return c.store.State().Filter
}

func (c *Collector) SetFilter(filter model.FilterCriteria) {
	c.store.SetFilter(filter)
}

// Subscribe streams store changes until ctx is done.
func (c *Collector) Subscribe(ctx context.Context, buffer int) <-chan store.Change {
	return c.store.Subscribe(ctx, buffer)
}

func (c *Collector) Ready() bool {
	state := c.store.State()
	return state.WatchStatus != nil || state.Health != nil
}

// RefreshWatchStatus fetches the watch status outside the schedule.
func (c *Collector) RefreshWatchStatus(ctx context.Context) error {
	apply, err := c.fetchWatchStatus(ctx)
	if err != nil {
		return err
	}
	c.watchStatus.Override(apply)
	return nil
}

// ClearLocalEvents empties the snapshot right away and drops any events poll
// that was already in flight.
func (c *Collector) ClearLocalEvents() {
	c.events.Override(func() {
		c.store.ReplaceEvents([]model.FileEvent{})
		c.observeEvents(nil)
	})
}

// Snapshot builds the view-model for dashboard clients.
func (c *Collector) Snapshot(filter model.FilterCriteria) (model.DashboardSnapshot, bool) {
	state := c.store.State()
	if state.WatchStatus == nil && state.Health == nil && !state.HasEvents {
		return model.DashboardSnapshot{}, false
	}

	view := c.engine.View(state.Events, state.Generation, filter)

	out := model.DashboardSnapshot{
		GeneratedAt:    time.Now().UTC(),
		Generation:     state.Generation,
		ActiveTab:      state.ActiveTab,
		DirectoryInput: state.DirectoryInput,
		Theme:          state.Theme,
		Health:         state.Health,
		WatchStatus:    state.WatchStatus,
		Honeypot:       state.Honeypot,
		Report:         state.Report,
		Filter:         filter,
		Events:         view.Events,
		TotalEvents:    len(state.Events),
		Analytics:      view.Analytics,
		Loading:        state.Loading,
	}
	if state.ErrorMessage != "" {
		message := state.ErrorMessage
		out.ErrorMessage = &message
	}
	if state.Toast != "" {
		toast := state.Toast
		out.ToastMessage = &toast
	}
	if state.HasEvents {
		updated := state.EventsUpdatedAt
		out.EventsUpdatedAt = &updated
		if c.events.Enabled() && time.Since(updated) > 2*c.events.Interval() {
			out.Stale = true
		}
	}

	return out, true
}

func (c *Collector) pollAction(name string, fetch func(context.Context) (func(), error), owner func() *poller.Poller) poller.Action {
	return func(ctx context.Context, tick poller.Tick) error {
		c.metrics.PollsTotal.WithLabelValues(name).Inc()
		started := time.Now()
		apply, err := fetch(ctx)
		c.metrics.PollDuration.WithLabelValues(name).Observe(time.Since(started).Seconds())
		if err != nil {
			return err
		}

		if !owner().Commit(tick, apply) {
			c.metrics.StaleDiscards.WithLabelValues(name).Inc()
		}
		return nil
	}
}

// pollFailed raises the banner only for failures that are still the freshest
// outcome of their poller; a failure overtaken by a newer result, or arriving
// after the poller was disabled, is counted and dropped.
func (c *Collector) pollFailed(name string, tick poller.Tick, err error) {
	c.metrics.PollFailures.WithLabelValues(name).Inc()
	p := c.poller(name)
	if p == nil {
		return
	}
	if !p.Observe(tick, func() { c.store.SetError(backend.ErrorMessage(err)) }) {
		c.metrics.StaleDiscards.WithLabelValues(name).Inc()
	}
}

func (c *Collector) poller(name string) *poller.Poller {
	for _, p := range c.pollers() {
		if p.Name() == name {
			return p
		}
	}
	return nil
}

func (c *Collector) fetchEvents(ctx context.Context) (func(), error) {
	events, err := c.source.Events(ctx)
	if err != nil {
		return nil, err
	}
	sorted := store.SortEvents(events)
	return func() {
		c.store.ReplaceEvents(sorted)
		c.observeEvents(sorted)
	}, nil
}

func (c *Collector) fetchWatchStatus(ctx context.Context) (func(), error) {
	status, err := c.source.WatchStatus(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		c.store.ReplaceWatchStatus(status)
		if status.Running {
			c.metrics.WatcherRunning.Set(1)
		} else {
			c.metrics.WatcherRunning.Set(0)
		}
	}, nil
}

func (c *Collector) fetchHoneypot(ctx context.Context) (func(), error) {
	status, err := c.source.HoneypotStatus(ctx)
	if err != nil {
		return nil, err
	}
	return func() { c.store.ReplaceHoneypot(status) }, nil
}

func (c *Collector) fetchHealth(ctx context.Context) (func(), error) {
	health, err := c.source.Health(ctx)
	if err != nil {
		return nil, err
	}
	return func() { c.store.ReplaceHealth(health) }, nil
}

func (c *Collector) observeEvents(events []model.FileEvent) {
	dist := analytics.Distribution(events)
	c.metrics.EventsInView.Set(float64(dist.Total))
	c.metrics.HoneypotTrigger.Set(float64(dist.Honeypot))
}
