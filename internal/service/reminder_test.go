package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/clock"
	"github.com/bagiro44/baby-tracker/internal/service"
)

func TestRescheduleComputesDueTimes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(12, 0)))

	// Not due a minute before the lead-time mark.
	due, err := f.scheduler.PollDue(ctx, ts(14, 29))
	require.NoError(t, err)
	assert.Empty(t, due)

	// Due-soon fires once 14:30 has passed; due-now not yet.
	due, err = f.scheduler.PollDue(ctx, ts(14, 31))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, internal.FeedingDueSoon, due[0].Kind)
	assert.Equal(t, ts(14, 30), due[0].ScheduledAt)
}

func TestRescheduleIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(12, 0)))
	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(12, 0)))

	due, err := f.scheduler.PollDue(ctx, ts(15, 0))
	require.NoError(t, err)
	assert.Len(t, due, 2, "a repeat reschedule must leave exactly one pair")
}

func TestRescheduleSupersedes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(10, 0)))
	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(13, 0)))

	due, err := f.scheduler.PollDue(ctx, ts(23, 0))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, ts(15, 30), due[0].ScheduledAt, "due-soon must derive from the 13:00 feeding")
	assert.Equal(t, ts(16, 0), due[1].ScheduledAt)
}

func TestConcurrentReschedulesLeaveOnePair(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two caregivers logging feedings at once must not stack pairs;
	// whichever reschedule lands last owns the pending pair.
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(minute int) {
			defer wg.Done()
			assert.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(10, minute)))
		}(i)
	}
	wg.Wait()

	due, err := f.scheduler.PollDue(ctx, ts(23, 0))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, internal.FeedingDueSoon, due[0].Kind)
	assert.Equal(t, internal.FeedingDueNow, due[1].Kind)
}

func TestSupersessionLeavesOtherSubjectsAlone(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(10, 0)))
	require.NoError(t, f.scheduler.Reschedule(ctx, 2, ts(11, 0)))

	due, err := f.scheduler.PollDue(ctx, ts(23, 0))
	require.NoError(t, err)
	assert.Len(t, due, 4)
}

func TestPollDueOrdering(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 2, ts(11, 0)))
	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(10, 0)))

	due, err := f.scheduler.PollDue(ctx, ts(23, 0))
	require.NoError(t, err)
	require.Len(t, due, 4)
	for i := 1; i < len(due); i++ {
		assert.False(t, due[i].ScheduledAt.Before(due[i-1].ScheduledAt), "due reminders must come back ascending")
	}
}

func TestMarkSentIdempotent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(12, 0)))
	due, err := f.scheduler.PollDue(ctx, ts(15, 0))
	require.NoError(t, err)
	require.NotEmpty(t, due)

	id := due[0].ID
	require.NoError(t, f.scheduler.MarkSent(ctx, id))
	require.NoError(t, f.scheduler.MarkSent(ctx, id), "marking twice must be a no-op")

	due, err = f.scheduler.PollDue(ctx, ts(15, 0))
	require.NoError(t, err)
	for _, r := range due {
		assert.NotEqual(t, id, r.ID)
	}
}

func TestPurgeSentRespectsRetention(t *testing.T) {
	fs := newTestStorage(t)
	clk := &clock.Fake{Current: ts(12, 0)}
	scheduler := service.NewReminderScheduler(fs, clk, 3*time.Hour, 30*time.Minute, 7, internal.NopLogger{})
	ctx := context.Background()

	require.NoError(t, scheduler.Reschedule(ctx, 1, ts(0, 0)))
	due, err := scheduler.PollDue(ctx, ts(12, 0))
	require.NoError(t, err)
	for _, r := range due {
		require.NoError(t, scheduler.MarkSent(ctx, r.ID))
	}

	// Within retention: nothing goes.
	n, err := scheduler.PurgeSent(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	// Ten days later both sent reminders are past retention.
	clk.Advance(10 * 24 * time.Hour)
	n, err = scheduler.PurgeSent(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
}
