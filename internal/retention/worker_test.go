package retention

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/uniformhub-backend/internal/access/accesstest"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
)

type heldLock struct {
	held     bool
	releases int
}

func (l *heldLock) Acquire(context.Context) (bool, error) {
	if l.held {
		return false, nil
	}
	l.held = true
	return true, nil
}

func (l *heldLock) Release(context.Context) error {
	l.held = false
	l.releases++
	return nil
}

type countingJob struct {
	name string
	err  error
	runs int
}

func (j *countingJob) Name() string { return j.name }

func (j *countingJob) Run(context.Context) error {
	j.runs++
	return j.err
}

func TestWorkerRunsEveryJobDespiteFailures(t *testing.T) {
	ok := &countingJob{name: "ok"}
	broken := &countingJob{name: "broken", err: errors.New("boom")}
	after := &countingJob{name: "after"}
	lock := &heldLock{}
	reg := prometheus.NewRegistry()

	worker, err := NewWorker(WorkerParams{
		Logger:   accesstest.Logger(),
		Jobs:     []Job{ok, nil, broken, after},
		Lock:     lock,
		Metrics:  metrics.NewJobMetrics(reg),
	})
	require.NoError(t, err)

	require.NoError(t, worker.RunOnce(context.Background()))
	assert.Equal(t, 1, ok.runs)
	assert.Equal(t, 1, broken.runs)
	assert.Equal(t, 1, after.runs)
	assert.Equal(t, 1, lock.releases)
	assert.False(t, lock.held)

	assert.Equal(t, map[string]float64{"after/ok": 1, "broken/error": 1, "ok/ok": 1}, jobRuns(t, reg))
}

func jobRuns(t *testing.T, reg *prometheus.Registry) map[string]float64 {
	t.Helper()
	families, err := reg.Gather()
	require.NoError(t, err)
	runs := map[string]float64{}
	for _, family := range families {
		if family.GetName() != "job_runs_total" {
			continue
		}
		for _, metric := range family.GetMetric() {
			labels := map[string]string{}
			for _, pair := range metric.GetLabel() {
				labels[pair.GetName()] = pair.GetValue()
			}
			runs[labels["job"]+"/"+labels["result"]] = metric.GetCounter().GetValue()
		}
	}
	return runs
}

func TestWorkerSkipsCycleWhenLockIsHeld(t *testing.T) {
	job := &countingJob{name: "purge"}
	lock := &heldLock{held: true}
	worker, err := NewWorker(WorkerParams{
		Logger:   accesstest.Logger(),
		Jobs:     []Job{job},
		Lock:     lock,
	})
	require.NoError(t, err)

	require.NoError(t, worker.RunOnce(context.Background()))
	assert.Zero(t, job.runs)
	assert.Zero(t, lock.releases)
}

type signalJob struct {
	ran chan struct{}
}

func (j *signalJob) Name() string { return "signal" }

func (j *signalJob) Run(context.Context) error {
	j.ran <- struct{}{}
	return nil
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	job := &signalJob{ran: make(chan struct{}, 1)}
	worker, err := NewWorker(WorkerParams{
		Logger:   accesstest.Logger(),
		Jobs:     []Job{job},
		Lock:     &heldLock{},
		Interval: time.Hour,
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	select {
	case <-job.ran:
	case <-time.After(time.Second):
		t.Fatal("first cycle did not run")
	}
	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}

func TestNewWorkerRequiresDependencies(t *testing.T) {
	_, err := NewWorker(WorkerParams{Lock: &heldLock{}})
	assert.Error(t, err)
	_, err = NewWorker(WorkerParams{Logger: accesstest.Logger()})
	assert.Error(t, err)
}
