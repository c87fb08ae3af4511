// Package poller schedules the per-station poll loops. Every station
// gets its own repeating job; jobs for different stations run
// concurrently and a slow fetch for one station never delays another.
package poller

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/kpouget/wunderground2prom/errors"
)

// Task is one station's fetch-then-record unit of work. Poll must
// handle its own failures; the scheduler never inspects outcomes.
type Task interface {
	Name() string
	Poll(ctx context.Context)
}

// Poller runs one repeating job per task at a fixed service-wide
// interval. The first poll of every task fires immediately at Start so
// metrics populate without waiting a full interval.
type Poller struct {
	tasks    []Task
	interval time.Duration
	logger   *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running atomic.Bool
}

// New creates a poller for the given tasks.
func New(tasks []Task, interval time.Duration, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Poller{
		tasks:    tasks,
		interval: interval,
		logger:   logger.With("component", "poller"),
	}
}

// Initialize validates the poller configuration.
func (p *Poller) Initialize() error {
	if len(p.tasks) == 0 {
		return errors.WrapInvalid(errors.ErrNoStations, "Poller", "Initialize", "task validation")
	}
	if p.interval <= 0 {
		return errors.WrapInvalid(
			fmt.Errorf("interval %s: %w", p.interval, errors.ErrInvalidConfig),
			"Poller", "Initialize", "interval validation")
	}
	return nil
}

// Start launches one immediate poll per task and then hands the cadence
// to the cron scheduler. Idempotent while running.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.running.Load() {
		return nil
	}

	pollCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.cron = cron.New()

	for _, task := range p.tasks {
		run := p.tickFunc(pollCtx, task)

		if _, err := p.cron.AddFunc(fmt.Sprintf("@every %s", p.interval), run); err != nil {
			cancel()
			return errors.WrapFatal(err, "Poller", "Start", "job scheduling")
		}

		// First tick fires now, not after a full interval.
		p.wg.Add(1)
		go func() {
			defer p.wg.Done()
			run()
		}()
	}

	p.cron.Start()
	p.running.Store(true)

	p.logger.Info("polling started", "tasks", len(p.tasks), "interval", p.interval)
	return nil
}

// tickFunc wraps a task with the overlap guard: a tick that would start
// while the previous one for the same task is still in flight is
// skipped, so no task ever accumulates more than one outstanding fetch.
func (p *Poller) tickFunc(ctx context.Context, task Task) func() {
	var inflight atomic.Bool
	return func() {
		if !inflight.CompareAndSwap(false, true) {
			p.logger.Warn("poll tick skipped, previous still in flight", "task", task.Name())
			return
		}
		defer inflight.Store(false)

		if ctx.Err() != nil {
			return
		}
		task.Poll(ctx)
	}
}

// Stop cancels in-flight polls and waits for them to drain, up to the
// given timeout.
func (p *Poller) Stop(timeout time.Duration) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running.Load() {
		return nil
	}
	p.running.Store(false)

	p.cancel()
	stopCtx := p.cron.Stop()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		<-stopCtx.Done()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(timeout):
		return errors.WrapTransient(
			fmt.Errorf("stop timeout after %v", timeout),
			"Poller", "Stop", "graceful shutdown")
	}

	p.logger.Info("polling stopped")
	return nil
}

// Running reports whether the poller has been started and not stopped.
// The metrics server's readiness check uses this.
func (p *Poller) Running() bool {
	return p.running.Load()
}
