// Package poller runs refresh actions on a fixed cadence.
//
// A Poller invokes its action immediately when enabled and then on every
// interval until disabled. Invocations are never serialized: a slow action may
// still be running when the next tick fires. Each invocation carries a Tick
// token, and results are applied through Commit so that late or out-of-order
// completions are discarded instead of overwriting fresher state.
package poller

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Tick identifies one invocation. Epoch changes on every activation, Seq grows
// with every invocation of the poller.
type Tick struct {
	Epoch uint64
	Seq   uint64
}

type Action func(ctx context.Context, tick Tick) error

// ErrorHook observes failed invocations. The tick lets the hook decide, via
// Observe, whether the failure is still the freshest outcome.
type ErrorHook func(name string, tick Tick, err error)

// Poller is one independently scheduled refresh loop.
type Poller struct {
	name   string
	base   context.Context
	logger *slog.Logger

	mu            sync.Mutex
	action        Action
	interval      time.Duration
	onError       ErrorHook
	enabled       bool
	stopped       bool
	stopLoop      context.CancelFunc
	loopDone      chan struct{}
	epoch         uint64
	seq           uint64
	lastCommitted uint64

	commitMu sync.Mutex
	inflight sync.WaitGroup
}

type Option func(*Poller)

func WithLogger(logger *slog.Logger) Option {
	return func(p *Poller) { p.logger = logger }
}

func WithErrorHook(hook ErrorHook) Option {
	return func(p *Poller) { p.onError = hook }
}

// New creates a disabled poller. Actions run on base, so disabling a poller
// does not cancel requests that are already in flight.
func New(base context.Context, name string, interval time.Duration, action Action, opts ...Option) *Poller {
	if interval <= 0 {
		interval = time.Second
	}
	p := &Poller{
		name:     name,
		base:     base,
		logger:   slog.Default(),
		action:   action,
		interval: interval,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Poller) Name() string {
	return p.name
}

func (p *Poller) Enabled() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enabled
}

func (p *Poller) Interval() time.Duration {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.interval
}

// SetInterval changes the cadence. An already scheduled tick keeps its time.
func (p *Poller) SetInterval(interval time.Duration) {
	if interval <= 0 {
		return
	}
	p.mu.Lock()
	p.interval = interval
	p.mu.Unlock()
}

// SetAction replaces the refresh action used by subsequent invocations.
func (p *Poller) SetAction(action Action) {
	p.mu.Lock()
	p.action = action
	p.mu.Unlock()
}

// SetEnabled starts or stops the schedule. Enabling fires immediately and
// begins a new epoch; disabling cancels every future tick.
func (p *Poller) SetEnabled(enabled bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if enabled == p.enabled || (enabled && p.stopped) {
		return
	}
	p.enabled = enabled

	if !enabled {
		p.stopLoop()
		p.stopLoop = nil
		p.logger.Debug("poller disabled", "poller", p.name)
		return
	}

	p.epoch++
	loopCtx, cancel := context.WithCancel(p.base)
	p.stopLoop = cancel
	done := make(chan struct{})
	p.loopDone = done

	p.logger.Debug("poller enabled", "poller", p.name, "interval", p.interval)
	p.fireLocked()
	go p.loop(loopCtx, done, p.interval)
}

func (p *Poller) loop(ctx context.Context, done chan struct{}, interval time.Duration) {
	defer close(done)

	timer := time.NewTimer(interval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		p.mu.Lock()
		if ctx.Err() != nil {
			p.mu.Unlock()
			return
		}
		p.fireLocked()
		next := p.interval
		p.mu.Unlock()

		timer.Reset(next)
	}
}

// fireLocked starts one invocation. p.mu must be held.
func (p *Poller) fireLocked() {
	p.seq++
	tick := Tick{Epoch: p.epoch, Seq: p.seq}
	action := p.action
	onError := p.onError

	p.inflight.Add(1)
	go func() {
		defer p.inflight.Done()
		if action == nil {
			return
		}
		if err := action(p.base, tick); err != nil {
			p.logger.Warn("poll failed", "poller", p.name, "seq", tick.Seq, "error", err)
			if onError != nil {
				onError(p.name, tick, err)
			}
		}
	}()
}

// Commit runs apply only if tick is the freshest result of the current
// activation. Commits of one poller never run concurrently.
func (p *Poller) Commit(tick Tick, apply func()) bool {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	p.mu.Lock()
	fresh := p.enabled && tick.Epoch == p.epoch && tick.Seq > p.lastCommitted
	if fresh {
		p.lastCommitted = tick.Seq
	}
	p.mu.Unlock()

	if !fresh {
		p.logger.Debug("discarding stale poll result", "poller", p.name, "epoch", tick.Epoch, "seq", tick.Seq)
		return false
	}

	apply()
	return true
}

// Observe runs apply only if tick would still be accepted by Commit, without
// marking it committed. A later, successful invocation of the same activation
// can therefore still commit. Used to surface failures that are not stale.
func (p *Poller) Observe(tick Tick, apply func()) bool {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	p.mu.Lock()
	fresh := p.enabled && tick.Epoch == p.epoch && tick.Seq > p.lastCommitted
	p.mu.Unlock()

	if !fresh {
		p.logger.Debug("discarding stale poll failure", "poller", p.name, "epoch", tick.Epoch, "seq", tick.Seq)
		return false
	}

	apply()
	return true
}

// Invalidate discards every invocation started so far. Used when a command
// replaces the poller's slice of state directly.
func (p *Poller) Invalidate() {
	p.Override(func() {})
}

// Override applies a result obtained outside the schedule, such as a refresh
// triggered by a command. Invocations already started are discarded.
func (p *Poller) Override(apply func()) {
	p.commitMu.Lock()
	defer p.commitMu.Unlock()

	p.mu.Lock()
	if p.seq > p.lastCommitted {
		p.lastCommitted = p.seq
	}
	p.mu.Unlock()

	apply()
}

// Stop disables the poller for good and waits for the loop and in-flight
// invocations. A stopped poller ignores later SetEnabled(true) calls.
func (p *Poller) Stop() {
	p.mu.Lock()
	p.stopped = true
	done := p.loopDone
	p.mu.Unlock()

	p.SetEnabled(false)
	if done != nil {
		<-done
	}
	p.inflight.Wait()
}
