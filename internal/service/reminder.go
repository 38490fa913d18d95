package service

import (
	"context"
	"fmt"
	"time"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/clock"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

// ReminderScheduler derives feeding reminders from the latest bottle
// feeding. A reschedule supersedes the subject's unsent reminders.
type ReminderScheduler struct {
	reminders storage.ReminderRepository
	clock     clock.Clock
	interval  time.Duration // nominal gap between feedings
	lead      time.Duration // how early the "due soon" nudge fires
	retention int           // days sent reminders are kept
	logger    internal.Logger
}

func NewReminderScheduler(reminders storage.ReminderRepository, clk clock.Clock, interval, lead time.Duration, retentionDays int, logger internal.Logger) *ReminderScheduler {
	return &ReminderScheduler{
		reminders: reminders,
		clock:     clk,
		interval:  interval,
		lead:      lead,
		retention: retentionDays,
		logger:    logger,
	}
}

// Reschedule replaces the subject's pending feeding reminders with a
// fresh due-soon/due-now pair computed from feedingAt. Atomic at the
// storage layer; the last reschedule wins.
func (s *ReminderScheduler) Reschedule(ctx context.Context, subjectID int64, feedingAt time.Time) error {
	now := s.clock.Now()
	pair := []*internal.Reminder{
		{SubjectID: subjectID, Kind: internal.FeedingDueSoon, ScheduledAt: feedingAt.Add(s.interval - s.lead), CreatedAt: now},
		{SubjectID: subjectID, Kind: internal.FeedingDueNow, ScheduledAt: feedingAt.Add(s.interval), CreatedAt: now},
	}
	if err := s.reminders.Replace(ctx, subjectID, pair); err != nil {
		s.logger.Errorf("failed to reschedule reminders for subject %d: %v", subjectID, err)
		return err
	}
	s.logger.Debugf("reminders for subject %d rescheduled from feeding at %s", subjectID, feedingAt.Format(time.RFC3339))
	return nil
}

// PollDue returns every pending reminder scheduled at or before now,
// ascending by scheduled time. The caller delivers and then MarkSent.
func (s *ReminderScheduler) PollDue(ctx context.Context, now time.Time) ([]internal.Reminder, error) {
	return s.reminders.Due(ctx, now)
}

// MarkSent is idempotent.
func (s *ReminderScheduler) MarkSent(ctx context.Context, id int64) error {
	return s.reminders.MarkSent(ctx, id)
}

// PurgeSent drops sent reminders past the retention window.
func (s *ReminderScheduler) PurgeSent(ctx context.Context) (int64, error) {
	cutoff := s.clock.Now().AddDate(0, 0, -s.retention)
	return s.reminders.PurgeSent(ctx, cutoff)
}

// NextFeeding returns when the next feeding is nominally due given the
// last bottle feeding, or nil when none has been logged yet.
func (s *ReminderScheduler) NextFeeding(lastFeeding *internal.Event) *time.Time {
	if lastFeeding == nil {
		return nil
	}
	next := lastFeeding.Timestamp.Add(s.interval)
	return &next
}

// Message renders the user-facing reminder text.
func (s *ReminderScheduler) Message(r internal.Reminder, subjectName string) string {
	if r.Kind == internal.FeedingDueSoon {
		return fmt.Sprintf("Feeding %s in %d minutes!", subjectName, int(s.lead.Minutes()))
	}
	return fmt.Sprintf("Time to feed %s!", subjectName)
}
