package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/service"
)

func newPollerFixture(t *testing.T) (*fixture, *service.Poller) {
	t.Helper()
	f := newFixture(t)
	poller := service.NewPoller(f.scheduler, f.fs, f.sink, f.clk, time.Minute, internal.NopLogger{})
	return f, poller
}

func TestPollerDeliversDueReminders(t *testing.T) {
	f, poller := newPollerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.fs.CreateSubject(ctx, &internal.Subject{Name: "Leo", BirthDate: ts(0, 0), Gender: internal.GenderMale}))
	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(8, 0)))

	f.clk.Current = ts(11, 0) // both reminders due
	poller.Tick(ctx)

	assert.Equal(t, []internal.ReminderKind{internal.FeedingDueSoon, internal.FeedingDueNow}, f.sink.deliveredKinds())

	// Delivered reminders are sent; nothing left pending.
	due, err := f.scheduler.PollDue(ctx, ts(23, 0))
	require.NoError(t, err)
	assert.Empty(t, due)
}

func TestPollerSkipsFutureReminders(t *testing.T) {
	f, poller := newPollerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(12, 0)))

	f.clk.Current = ts(13, 0)
	poller.Tick(ctx)

	assert.Empty(t, f.sink.deliveredKinds())
}

func TestPollerRetriesFailedDelivery(t *testing.T) {
	f, poller := newPollerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(8, 0)))
	f.clk.Current = ts(11, 0)

	f.sink.failDeliver = true
	poller.Tick(ctx)
	assert.Empty(t, f.sink.deliveredKinds())

	// Still pending, so the next cycle retries and succeeds.
	f.sink.failDeliver = false
	poller.Tick(ctx)
	assert.Len(t, f.sink.deliveredKinds(), 2)

	// And once sent, a further cycle does not deliver again.
	poller.Tick(ctx)
	assert.Len(t, f.sink.deliveredKinds(), 2)
}

func TestPollerRunStopsOnCancel(t *testing.T) {
	f := newFixture(t)
	poller := service.NewPoller(f.scheduler, f.fs, f.sink, f.clk, 5*time.Millisecond, internal.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		poller.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poller did not stop after cancel")
	}
}

func TestPollerPurgesOldSentReminders(t *testing.T) {
	f, poller := newPollerFixture(t)
	ctx := context.Background()

	require.NoError(t, f.scheduler.Reschedule(ctx, 1, ts(8, 0)))
	f.clk.Current = ts(11, 0)
	poller.Tick(ctx)
	require.Len(t, f.sink.deliveredKinds(), 2)

	// Once the sent reminders fall out of the retention window, the
	// next cycle purges them and a manual purge finds nothing left.
	f.clk.Advance(10 * 24 * time.Hour)
	poller.Tick(ctx)

	n, err := f.scheduler.PurgeSent(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}
