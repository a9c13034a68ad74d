package retention

import (
	"context"
	"time"

	pkgerrors "github.com/angelmondragon/uniformhub-backend/pkg/errors"
	"github.com/angelmondragon/uniformhub-backend/pkg/logger"
	"github.com/angelmondragon/uniformhub-backend/pkg/metrics"
)

const defaultRetentionDays = 30

// ReadPurger deletes read rows created before cutoff. Both notification
// repositories satisfy it.
type ReadPurger interface {
	DeleteReadBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type PurgeJobParams struct {
	Name    string
	Logger  *logger.Logger
	Purger  ReadPurger
	Days    int
	Metrics *metrics.JobMetrics
	Now     func() time.Time
}

// PurgeJob removes read notifications older than the retention window.
// Unread rows are kept regardless of age.
type PurgeJob struct {
	name    string
	logg    *logger.Logger
	purger  ReadPurger
	days    int
	metrics *metrics.JobMetrics
	now     func() time.Time
}

func NewPurgeJob(params PurgeJobParams) (*PurgeJob, error) {
	if params.Name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "job name required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	if params.Purger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "purger required")
	}
	days := params.Days
	if days <= 0 {
		days = defaultRetentionDays
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &PurgeJob{
		name:    params.Name,
		logg:    params.Logger,
		purger:  params.Purger,
		days:    days,
		metrics: params.Metrics,
		now:     now,
	}, nil
}

func (j *PurgeJob) Name() string { return j.name }

// Cutoff is the instant before which read rows are purged.
func (j *PurgeJob) Cutoff() time.Time {
	return j.now().UTC().AddDate(0, 0, -j.days)
}

func (j *PurgeJob) Run(ctx context.Context) error {
	cutoff := j.Cutoff()
	deleted, err := j.purger.DeleteReadBefore(ctx, cutoff)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, j.name)
	}
	j.metrics.AddDeleted(j.name, deleted)
	logCtx := j.logg.WithFields(ctx, map[string]any{
		"cutoff":         cutoff,
		"retention_days": j.days,
		"rows_deleted":   deleted,
	})
	j.logg.Info(logCtx, "purge complete")
	return nil
}
