package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/clock"
	"github.com/bagiro44/baby-tracker/internal/service"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

type captureSink struct {
	mu          sync.Mutex
	announced   []string
	delivered   []internal.ReminderKind
	failDeliver bool
}

func (s *captureSink) Announce(ctx context.Context, subjectID int64, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.announced = append(s.announced, message)
	return nil
}

func (s *captureSink) Deliver(ctx context.Context, subjectID int64, kind internal.ReminderKind, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failDeliver {
		return assert.AnError
	}
	s.delivered = append(s.delivered, kind)
	return nil
}

func (s *captureSink) deliveredKinds() []internal.ReminderKind {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]internal.ReminderKind, len(s.delivered))
	copy(out, s.delivered)
	return out
}

func newTestStorage(t *testing.T) *storage.FileStorage {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.NewFileStorage(
		filepath.Join(dir, "events.json"),
		filepath.Join(dir, "reminders.json"),
		filepath.Join(dir, "subjects.json"),
		filepath.Join(dir, "states.json"),
		internal.NopLogger{},
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = fs.Close() })
	return fs
}

type fixture struct {
	fs        *storage.FileStorage
	clk       *clock.Fake
	sink      *captureSink
	scheduler *service.ReminderScheduler
	engine    *service.SessionEngine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	fs := newTestStorage(t)
	clk := &clock.Fake{Current: time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)}
	sink := &captureSink{}
	scheduler := service.NewReminderScheduler(fs, clk, 3*time.Hour, 30*time.Minute, 7, internal.NopLogger{})
	engine := service.NewSessionEngine(fs, scheduler, sink, clk, internal.NopLogger{})
	return &fixture{fs: fs, clk: clk, sink: sink, scheduler: scheduler, engine: engine}
}

func ts(h, m int) time.Time {
	return time.Date(2025, 3, 10, h, m, 0, 0, time.UTC)
}

func TestStartIntervalConflict(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := ts(9, 0)
	_, err := f.engine.StartInterval(ctx, 1, internal.KindBreast, 7, &at)
	require.NoError(t, err)

	again := ts(9, 10)
	_, err = f.engine.StartInterval(ctx, 1, internal.KindBreast, 7, &again)
	assert.ErrorIs(t, err, internal.ErrSessionAlreadyOpen)

	events, err := f.fs.EventsInWindow(ctx, 1, ts(0, 0))
	require.NoError(t, err)
	assert.Len(t, events, 1, "the rejected start must not be recorded")
}

func TestEndIntervalWithoutStart(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, _, err := f.engine.EndInterval(ctx, 1, internal.KindSleep, 7, nil, "")
	assert.ErrorIs(t, err, internal.ErrNoOpenSession)

	events, err := f.fs.EventsInWindow(ctx, 1, ts(0, 0))
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestEndIntervalDuration(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	startAt := ts(14, 0)
	_, err := f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &startAt)
	require.NoError(t, err)

	endAt := ts(14, 45)
	ev, minutes, err := f.engine.EndInterval(ctx, 1, internal.KindSleep, 7, &endAt, "")
	require.NoError(t, err)
	assert.Equal(t, 45, minutes)
	require.NotNil(t, ev.Duration)
	assert.Equal(t, 45, *ev.Duration)
}

func TestEndBeforeStartRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	startAt := ts(14, 0)
	_, err := f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &startAt)
	require.NoError(t, err)

	endAt := ts(13, 30)
	_, _, err = f.engine.EndInterval(ctx, 1, internal.KindSleep, 7, &endAt, "")
	assert.ErrorIs(t, err, internal.ErrInvalidInput)

	// Still open, and no end event was written.
	events, err := f.fs.EventsInWindow(ctx, 1, ts(0, 0))
	require.NoError(t, err)
	assert.Len(t, events, 1)
}

func TestZeroMinuteSessionAllowed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := ts(10, 0)
	_, err := f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &at)
	require.NoError(t, err)

	_, minutes, err := f.engine.EndInterval(ctx, 1, internal.KindSleep, 7, &at, "")
	require.NoError(t, err)
	assert.Equal(t, 0, minutes)

	// An end at the exact start timestamp closes the session for real.
	open, err := f.fs.OpenInterval(ctx, 1, internal.EventSleepStart, internal.EventSleepEnd)
	require.NoError(t, err)
	assert.Nil(t, open)

	later := ts(10, 30)
	_, err = f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &later)
	require.NoError(t, err)
}

func TestDifferentKindsIndependent(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, nil)
	require.NoError(t, err)
	_, err = f.engine.StartInterval(ctx, 1, internal.KindBreast, 7, nil)
	require.NoError(t, err, "a sleep session must not block a breastfeeding session")
}

func TestReopenAfterClose(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	startAt := ts(9, 0)
	_, err := f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &startAt)
	require.NoError(t, err)
	endAt := ts(10, 0)
	_, _, err = f.engine.EndInterval(ctx, 1, internal.KindSleep, 7, &endAt, "")
	require.NoError(t, err)

	nextStart := ts(11, 0)
	_, err = f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &nextStart)
	assert.NoError(t, err)
}

func TestBreastEndRequiresSide(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := ts(9, 0)
	_, err := f.engine.StartInterval(ctx, 1, internal.KindBreast, 7, &at)
	require.NoError(t, err)

	endAt := ts(9, 20)
	_, _, err = f.engine.EndInterval(ctx, 1, internal.KindBreast, 7, &endAt, "")
	assert.ErrorIs(t, err, internal.ErrInvalidInput)

	ev, minutes, err := f.engine.EndInterval(ctx, 1, internal.KindBreast, 7, &endAt, service.BreastLeft)
	require.NoError(t, err)
	assert.Equal(t, 20, minutes)
	assert.Equal(t, service.BreastLeft, ev.Notes)
}

func TestBackdatedStartAccepted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Clock says 12:00 but the nap actually began at 11:15.
	startAt := ts(11, 15)
	ev, err := f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &startAt)
	require.NoError(t, err)
	assert.Equal(t, startAt, ev.Timestamp)
}

func TestBottleFeedingReschedulesReminders(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	at := ts(12, 0)
	_, err := f.engine.LogBottle(ctx, 1, 7, &service.BottleRequest{AmountML: 60, Timestamp: &at})
	require.NoError(t, err)

	due, err := f.scheduler.PollDue(ctx, ts(15, 0))
	require.NoError(t, err)
	require.Len(t, due, 2)
	assert.Equal(t, internal.FeedingDueSoon, due[0].Kind)
	assert.Equal(t, ts(14, 30), due[0].ScheduledAt)
	assert.Equal(t, internal.FeedingDueNow, due[1].Kind)
	assert.Equal(t, ts(15, 0), due[1].ScheduledAt)
}

func TestLogInstantRejectsIntervalTypes(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.engine.LogInstant(ctx, &internal.Event{SubjectID: 1, Type: internal.EventSleepStart, Actor: 7})
	assert.ErrorIs(t, err, internal.ErrInvalidInput)
}

func TestAnnouncementsEmitted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	startAt := ts(14, 0)
	_, err := f.engine.StartInterval(ctx, 1, internal.KindSleep, 7, &startAt)
	require.NoError(t, err)
	endAt := ts(14, 45)
	_, _, err = f.engine.EndInterval(ctx, 1, internal.KindSleep, 7, &endAt, "")
	require.NoError(t, err)

	require.Len(t, f.sink.announced, 2)
	assert.Contains(t, f.sink.announced[0], "14:00")
	assert.Contains(t, f.sink.announced[1], "45m")
}
