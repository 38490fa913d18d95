package storage

import (
	"context"
	"time"

	"github.com/bagiro44/baby-tracker/internal"
)

// EventRepository is an append-only event log per subject. AppendStart
// and CloseInterval are the atomic check-and-write paths that keep the
// at-most-one-open-session invariant under concurrent writers.
type EventRepository interface {
	// Append assigns a strictly increasing ID and stores the event.
	Append(ctx context.Context, ev *internal.Event) error

	// LastOfType returns the most recent event of the type by
	// timestamp, or (nil, nil) when there is none.
	LastOfType(ctx context.Context, subjectID int64, typ internal.EventType) (*internal.Event, error)

	// OpenInterval returns the most recent startType event with no
	// strictly later endType event for the subject, or (nil, nil).
	OpenInterval(ctx context.Context, subjectID int64, startType, endType internal.EventType) (*internal.Event, error)

	// EventsInWindow returns events with Timestamp >= since, newest
	// first.
	EventsInWindow(ctx context.Context, subjectID int64, since time.Time) ([]internal.Event, error)

	// AppendStart inserts ev only if no interval of (ev.Type, endType)
	// is open for the subject, atomically. Returns
	// internal.ErrSessionAlreadyOpen otherwise.
	AppendStart(ctx context.Context, ev *internal.Event, endType internal.EventType) error

	// CloseInterval atomically finds the open start, fills end.Duration
	// with the floored minute span, and inserts end. Returns the paired
	// start event. internal.ErrNoOpenSession when nothing is open,
	// internal.ErrInvalidInput when end.Timestamp precedes the start.
	CloseInterval(ctx context.Context, subjectID int64, startType, endType internal.EventType, end *internal.Event) (*internal.Event, error)
}

// ReminderRepository persists pending reminders. Replace is the
// supersession step and must be atomic with respect to concurrent
// Replace calls and to Due readers.
type ReminderRepository interface {
	// Replace deletes unsent reminders of the given reminders' kinds
	// for the subject, then inserts the new ones, as one operation.
	Replace(ctx context.Context, subjectID int64, reminders []*internal.Reminder) error

	// Due returns unsent reminders with ScheduledAt <= now across all
	// subjects, ascending by ScheduledAt.
	Due(ctx context.Context, now time.Time) ([]internal.Reminder, error)

	// MarkSent flips Sent exactly once; marking an already sent
	// reminder is a no-op.
	MarkSent(ctx context.Context, id int64) error

	// PurgeSent removes sent reminders created before the cutoff and
	// reports how many were deleted.
	PurgeSent(ctx context.Context, olderThan time.Time) (int64, error)
}

type SubjectRepository interface {
	CreateSubject(ctx context.Context, s *internal.Subject) error
	GetSubject(ctx context.Context, id int64) (*internal.Subject, error)
	// ListSubjects returns subjects oldest first, so the first entry is
	// the "current" one in the single-child case.
	ListSubjects(ctx context.Context) ([]internal.Subject, error)
	UpdateGender(ctx context.Context, id int64, gender internal.Gender) error
}

// StateRepository stores per-user conversation state: replace on
// update, delete on completion.
type StateRepository interface {
	SetState(ctx context.Context, st *internal.UserState) error
	GetState(ctx context.Context, userID int64) (*internal.UserState, error)
	ClearState(ctx context.Context, userID int64) error
}

// UserRepository resolves caregiver tokens to users. Backed by the
// users table; rows are provisioned by the operator.
type UserRepository interface {
	GetUserByToken(ctx context.Context, token string) (*internal.User, error)
}
