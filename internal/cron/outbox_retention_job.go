package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/glowcart/glowcart-backend/pkg/logger"
)

const (
	defaultOutboxRetention = 30 * 24 * time.Hour
	defaultPruneBatch      = 1000
	// maxPruneRounds bounds one run; whatever is left waits for the next one.
	maxPruneRounds = 50
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPruner interface {
	PruneBefore(ctx context.Context, tx *gorm.DB, cutoff time.Time, minAttemptCount, limit int) (int64, error)
}

type OutboxRetentionJobParams struct {
	Logger     *logger.Logger
	DB         txRunner
	Repository outboxPruner
	Retention  time.Duration
	// BatchSize rows are deleted per transaction.
	BatchSize int
	// MinAttempts is the publisher's terminal attempt count; unpublished rows
	// at or past it are abandoned and pruned with the published ones.
	MinAttempts int
}

// outboxRetentionJob deletes old outbox rows in short transactions so a large
// backlog never holds one long lock on the table.
type outboxRetentionJob struct {
	logg        *logger.Logger
	db          txRunner
	repo        outboxPruner
	retention   time.Duration
	batchSize   int
	minAttempts int
	now         func() time.Time
}

func NewOutboxRetentionJob(params OutboxRetentionJobParams) (Job, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.DB == nil:
		return nil, errors.New("db runner required")
	case params.Repository == nil:
		return nil, errors.New("outbox repository required")
	case params.MinAttempts <= 0:
		return nil, errors.New("min attempts must be positive")
	}
	job := &outboxRetentionJob{
		logg:        params.Logger,
		db:          params.DB,
		repo:        params.Repository,
		retention:   params.Retention,
		batchSize:   params.BatchSize,
		minAttempts: params.MinAttempts,
		now:         time.Now,
	}
	if job.retention <= 0 {
		job.retention = defaultOutboxRetention
	}
	if job.batchSize <= 0 {
		job.batchSize = defaultPruneBatch
	}
	return job, nil
}

func (j *outboxRetentionJob) Name() string { return "outbox-retention" }

func (j *outboxRetentionJob) Run(ctx context.Context) error {
	cutoff := j.now().UTC().Add(-j.retention)

	var total int64
	rounds, drained := 0, false
	for !drained && rounds < maxPruneRounds {
		if err := ctx.Err(); err != nil {
			return err
		}
		var deleted int64
		err := j.db.WithTx(ctx, func(tx *gorm.DB) error {
			n, err := j.repo.PruneBefore(ctx, tx, cutoff, j.minAttempts, j.batchSize)
			deleted = n
			return err
		})
		if err != nil {
			return fmt.Errorf("outbox retention: prune failed after %d rows: %w", total, err)
		}
		rounds++
		total += deleted
		drained = deleted < int64(j.batchSize)
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"cutoff":       cutoff,
		"rows_deleted": total,
		"rounds":       rounds,
		"drained":      drained,
	}), "outbox retention complete")
	return nil
}
