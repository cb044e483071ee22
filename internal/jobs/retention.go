// Package jobs holds the service's scheduled background work.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

// RetentionJob periodically removes address registrations that have not
// been used within the retention period. Removal is safe: the carrier
// keeps the registration, and the cache re-learns the identifier on the
// next use.
type RetentionJob struct {
	book      *addressbook.Book
	schedule  string
	retention time.Duration
	cron      *cron.Cron
	logger    *otelzap.Logger
}

// NewRetentionJob creates the cleanup job. schedule is a standard
// 5-field cron expression; a non-positive retention falls back to the
// address book's default.
func NewRetentionJob(book *addressbook.Book, schedule string, retention time.Duration, logger *otelzap.Logger) *RetentionJob {
	if retention <= 0 {
		retention = addressbook.DefaultRetention
	}
	return &RetentionJob{
		book:      book,
		schedule:  schedule,
		retention: retention,
		cron:      cron.New(),
		logger:    logger,
	}
}

// Start schedules the job and begins running it.
func (j *RetentionJob) Start() error {
	_, err := j.cron.AddFunc(j.schedule, func() {
		if err := j.RunOnce(context.Background()); err != nil {
			j.logger.Error("Address retention cleanup failed", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	j.cron.Start()
	j.logger.Info("Address retention job started",
		zap.String("schedule", j.schedule),
		zap.Duration("retention", j.retention),
	)
	return nil
}

// Stop stops the job, waiting for an in-flight run to finish.
func (j *RetentionJob) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
	j.logger.Info("Address retention job stopped")
}

// RunOnce executes a single cleanup pass.
func (j *RetentionJob) RunOnce(ctx context.Context) error {
	removed, err := j.book.Cleanup(ctx, j.retention)
	if err != nil {
		return err
	}
	j.logger.Info("Address retention cleanup completed",
		zap.Int64("removed", removed),
	)
	return nil
}
