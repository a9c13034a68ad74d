package retention

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
)

const defaultInterval = 24 * time.Hour

// Job is one purge step executed by the worker.
type Job interface {
	Name() string
	Run(ctx context.Context) error
}

type WorkerParams struct {
	Logger   *logger.Logger
	Jobs     []Job
	Lock     Lock
	Metrics  *metrics.JobMetrics
	Interval time.Duration
}

// Worker runs every job once per interval while holding the lock.
type Worker struct {
	logg     *logger.Logger
	jobs     []Job
	lock     Lock
	metrics  *metrics.JobMetrics
	interval time.Duration
}

func NewWorker(params WorkerParams) (*Worker, error) {
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Lock == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "lock required")
	}
	jobs := make([]Job, 0, len(params.Jobs))
	for _, job := range params.Jobs {
		if job != nil {
			jobs = append(jobs, job)
		}
	}
	interval := params.Interval
	if interval <= 0 {
		interval = defaultInterval
	}
	return &Worker{
		logg:     params.Logger,
		jobs:     jobs,
		lock:     params.Lock,
		metrics:  params.Metrics,
		interval: interval,
	}, nil
}

// Run executes a cycle immediately and then on every tick until ctx ends.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.RunOnce(ctx); err != nil {
		w.logg.Error(ctx, "retention cycle failed", err)
	}
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.RunOnce(ctx); err != nil {
				w.logg.Error(ctx, "retention cycle failed", err)
			}
		}
	}
}

// RunOnce runs every job a single time. A failing job does not stop the rest.
func (w *Worker) RunOnce(ctx context.Context) error {
	locked, err := w.lock.Acquire(ctx)
	if err != nil {
		return err
	}
	if !locked {
		w.logg.Info(ctx, "another retention worker holds the lock; skipping cycle")
		return nil
	}
	defer func() {
		if err := w.lock.Release(ctx); err != nil {
			w.logg.Error(ctx, "failed to release retention lock", err)
		}
	}()

	for _, job := range w.jobs {
		w.runJob(ctx, job)
	}
	return nil
}

func (w *Worker) runJob(ctx context.Context, job Job) {
	jobCtx := w.logg.WithFields(ctx, map[string]any{
		"job":   job.Name(),
		"event": "retention.job",
	})
	start := time.Now()
	err := job.Run(jobCtx)
	duration := time.Since(start)
	w.metrics.ObserveRun(job.Name(), duration, err)
	jobCtx = w.logg.WithField(jobCtx, "duration_ms", duration.Milliseconds())
	if err != nil {
		w.logg.Error(jobCtx, "job failed", err)
		return
	}
	w.logg.Info(jobCtx, "job completed")
}
