// Package worker runs the janitor: periodic sweeps that drop expired
// drafts, their staged files and the in-memory form state that outlived
// them.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/DukeRupert/shopdesk/internal/metrics"
)

// Worker runs every registered job on a fixed interval.
type Worker struct {
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	handlers []JobHandler
	disabled map[string]bool

	// Synchronization
	wg     sync.WaitGroup
	stopCh chan struct{}
}

// New creates a new Worker with the given configuration.
// The worker must be started with Start() and stopped with Stop().
func New(config Config, logger *slog.Logger) (*Worker, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &Worker{
		config:   config,
		logger:   logger,
		now:      time.Now,
		disabled: make(map[string]bool),
		stopCh:   make(chan struct{}),
	}, nil
}

// Register adds a job to the worker. A job with the same Type replaces
// the earlier one. Call this before Start().
func (w *Worker) Register(handler JobHandler) {
	w.mu.Lock()
	defer w.mu.Unlock()

	jobType := handler.Type()
	for i, h := range w.handlers {
		if h.Type() == jobType {
			w.logger.Warn("Overwriting existing handler", "job_type", jobType)
			w.handlers[i] = handler
			return
		}
	}
	w.handlers = append(w.handlers, handler)
	w.logger.Debug("Registered job handler", "job_type", jobType)
}

// Start runs one sweep immediately and then one per Interval until Stop
// is called or ctx is done.
func (w *Worker) Start(ctx context.Context) {
	w.wg.Add(1)
	go w.run(ctx)

	w.logger.Info("Janitor started", "interval", w.config.Interval, "jobs", len(w.handlers))
}

// Stop signals the loop to stop and waits for the running sweep.
// It respects the configured ShutdownTimeout.
func (w *Worker) Stop() {
	w.logger.Info("Stopping janitor...")
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		w.logger.Info("Janitor stopped gracefully")
	case <-time.After(w.config.ShutdownTimeout):
		w.logger.Warn("Janitor shutdown timeout exceeded, a sweep may still be running")
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()

	ticker := time.NewTicker(w.config.Interval)
	defer ticker.Stop()

	w.Sweep(ctx)
	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep(ctx)
		}
	}
}

// Sweep runs every enabled job once, in registration order. A failing job
// does not stop the others.
func (w *Worker) Sweep(ctx context.Context) {
	now := w.now()

	w.mu.Lock()
	jobs := make([]JobHandler, 0, len(w.handlers))
	for _, h := range w.handlers {
		if !w.disabled[h.Type()] {
			jobs = append(jobs, h)
		}
	}
	w.mu.Unlock()

	for _, h := range jobs {
		w.execute(ctx, h, now)
	}
}

func (w *Worker) execute(ctx context.Context, h JobHandler, now time.Time) {
	jobType := h.Type()
	logger := w.logger.With("job_type", jobType)

	jobCtx, cancel := context.WithTimeout(ctx, w.config.JobTimeout)
	defer cancel()

	start := time.Now()
	if err := h.Handle(jobCtx, now); err != nil {
		metrics.JobFailed(jobType)
		if IsPermanent(err) {
			logger.Warn("Job failed with permanent error, disabling", "error", err)
			w.mu.Lock()
			w.disabled[jobType] = true
			w.mu.Unlock()
			return
		}
		logger.Error("Job failed", "error", err)
		return
	}
	metrics.JobCompleted(jobType, time.Since(start))
}
