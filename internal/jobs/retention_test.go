package jobs_test

import (
	"context"
	"testing"
	"time"

	"github.com/shipmux/shipmux/internal/jobs"
	"github.com/shipmux/shipmux/pkg/addressbook"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/opentelemetry-go-extra/otelzap"
	"go.uber.org/zap"
)

type staticRegistrar struct{}

func (staticRegistrar) RegisterAddress(ctx context.Context, canonicalAddress string, contact addressbook.Contact) (string, error) {
	return "ext-1", nil
}

func TestRetentionJob_RunOnce(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	book := addressbook.New(addressbook.NewMemoryStore(), addressbook.Contact{Name: "Ops"}, logger)
	book.RegisterCarrier("acme", staticRegistrar{})

	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	now := base
	book.SetClock(func() time.Time { return now })

	_, err := book.GetOrCreate(context.Background(), "acme", "12 High St, Toronto")
	require.NoError(t, err)

	job := jobs.NewRetentionJob(book, "0 3 * * *", 30*24*time.Hour, logger)

	// Inside the retention window: nothing to remove.
	now = base.Add(29 * 24 * time.Hour)
	require.NoError(t, job.RunOnce(context.Background()))
	stats, err := book.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Count)

	// Past the window: the stale registration goes.
	now = base.Add(31 * 24 * time.Hour)
	require.NoError(t, job.RunOnce(context.Background()))
	stats, err = book.Stats(context.Background())
	require.NoError(t, err)
	assert.Zero(t, stats.Count)
}

func TestRetentionJob_DefaultsRetention(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	book := addressbook.New(addressbook.NewMemoryStore(), addressbook.Contact{}, logger)

	job := jobs.NewRetentionJob(book, "0 3 * * *", 0, logger)
	require.NoError(t, job.RunOnce(context.Background()))
}

func TestRetentionJob_StartStop(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	book := addressbook.New(addressbook.NewMemoryStore(), addressbook.Contact{}, logger)

	job := jobs.NewRetentionJob(book, "0 3 * * *", time.Hour, logger)
	require.NoError(t, job.Start())
	job.Stop()
}

func TestRetentionJob_BadSchedule(t *testing.T) {
	logger := otelzap.New(zap.NewNop())
	book := addressbook.New(addressbook.NewMemoryStore(), addressbook.Contact{}, logger)

	job := jobs.NewRetentionJob(book, "not a schedule", time.Hour, logger)
	assert.Error(t, job.Start())
}
