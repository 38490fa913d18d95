package service

import (
	"context"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/clock"
	"github.com/bagiro44/baby-tracker/internal/notify"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

var validate = validator.New()

const (
	BreastLeft  = "left"
	BreastRight = "right"
)

// --- Request Structs ---

type StartIntervalRequest struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type EndIntervalRequest struct {
	Timestamp *time.Time `json:"timestamp,omitempty"`
	Side      string     `json:"side,omitempty" validate:"omitempty,oneof=left right"`
}

type BottleRequest struct {
	AmountML  int        `json:"amount_ml" validate:"required,gt=0,lte=500"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type WeightRequest struct {
	Grams     int        `json:"grams" validate:"required,gt=0,lte=30000"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

type DiaperRequest struct {
	Kind      string     `json:"kind" validate:"required,oneof=wet dirty mixed"`
	Timestamp *time.Time `json:"timestamp,omitempty"`
}

func ValidateEndIntervalRequest(req *EndIntervalRequest) error { return validate.Struct(req) }
func ValidateBottleRequest(req *BottleRequest) error           { return validate.Struct(req) }
func ValidateWeightRequest(req *WeightRequest) error           { return validate.Struct(req) }
func ValidateDiaperRequest(req *DiaperRequest) error           { return validate.Struct(req) }

// SessionEngine enforces at most one open session per (subject, kind).
// The check-and-write happens inside the store so concurrent callers
// cannot race past it.
type SessionEngine struct {
	events    storage.EventRepository
	scheduler *ReminderScheduler
	sink      notify.Sink
	clock     clock.Clock
	logger    internal.Logger
}

func NewSessionEngine(events storage.EventRepository, scheduler *ReminderScheduler, sink notify.Sink, clk clock.Clock, logger internal.Logger) *SessionEngine {
	return &SessionEngine{events: events, scheduler: scheduler, sink: sink, clock: clk, logger: logger}
}

func (e *SessionEngine) at(override *time.Time) time.Time {
	if override != nil {
		return *override
	}
	return e.clock.Now()
}

// StartInterval opens a sleep or breastfeeding session. A session of
// the same kind already open is a conflict; sessions of different
// kinds are independent.
func (e *SessionEngine) StartInterval(ctx context.Context, subjectID int64, kind internal.IntervalKind, actor int64, at *time.Time) (*internal.Event, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown interval kind %q", internal.ErrInvalidInput, kind)
	}
	ev := internal.NewStartEvent(subjectID, kind, actor, e.at(at))
	if err := e.events.AppendStart(ctx, ev, kind.EndType()); err != nil {
		return nil, err
	}
	e.announce(ctx, subjectID, startMessage(kind, ev.Timestamp))
	return ev, nil
}

// EndInterval closes the open session of the kind and returns the end
// event plus the duration in whole minutes. internal.ErrNoOpenSession
// when nothing is open; an end before the open start is rejected with
// internal.ErrInvalidInput and writes nothing.
func (e *SessionEngine) EndInterval(ctx context.Context, subjectID int64, kind internal.IntervalKind, actor int64, at *time.Time, extra string) (*internal.Event, int, error) {
	if !kind.Valid() {
		return nil, 0, fmt.Errorf("%w: unknown interval kind %q", internal.ErrInvalidInput, kind)
	}
	if kind == internal.KindBreast && extra != BreastLeft && extra != BreastRight {
		return nil, 0, fmt.Errorf("%w: breast side must be %q or %q", internal.ErrInvalidInput, BreastLeft, BreastRight)
	}
	if kind == internal.KindSleep && extra != "" {
		return nil, 0, fmt.Errorf("%w: sleep sessions carry no side", internal.ErrInvalidInput)
	}

	end := internal.NewEndEvent(subjectID, kind, actor, e.at(at), extra)
	start, err := e.events.CloseInterval(ctx, subjectID, kind.StartType(), kind.EndType(), end)
	if err != nil {
		return nil, 0, err
	}
	minutes := *end.Duration
	e.announce(ctx, subjectID, endMessage(kind, start.Timestamp, minutes, extra))
	return end, minutes, nil
}

// LogInstant appends a bottle feeding, weight, or diaper event. A
// bottle feeding also reschedules the subject's feeding reminders.
func (e *SessionEngine) LogInstant(ctx context.Context, ev *internal.Event) (*internal.Event, error) {
	switch ev.Type {
	case internal.EventBottleFeeding, internal.EventWeight, internal.EventDiaper:
	default:
		return nil, fmt.Errorf("%w: %q is not an instant event type", internal.ErrInvalidInput, ev.Type)
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = e.clock.Now()
	}
	if err := e.events.Append(ctx, ev); err != nil {
		return nil, err
	}
	e.announce(ctx, ev.SubjectID, instantMessage(ev))

	if ev.Type == internal.EventBottleFeeding {
		if err := e.scheduler.Reschedule(ctx, ev.SubjectID, ev.Timestamp); err != nil {
			// The feeding itself is already persisted; the log is
			// append-only and not rolled back.
			return ev, err
		}
	}
	return ev, nil
}

func (e *SessionEngine) LogBottle(ctx context.Context, subjectID, actor int64, req *BottleRequest) (*internal.Event, error) {
	return e.LogInstant(ctx, internal.NewBottleEvent(subjectID, actor, req.AmountML, e.at(req.Timestamp)))
}

func (e *SessionEngine) LogWeight(ctx context.Context, subjectID, actor int64, req *WeightRequest) (*internal.Event, error) {
	return e.LogInstant(ctx, internal.NewWeightEvent(subjectID, actor, req.Grams, e.at(req.Timestamp)))
}

func (e *SessionEngine) LogDiaper(ctx context.Context, subjectID, actor int64, req *DiaperRequest) (*internal.Event, error) {
	return e.LogInstant(ctx, internal.NewDiaperEvent(subjectID, actor, req.Kind, e.at(req.Timestamp)))
}

func (e *SessionEngine) announce(ctx context.Context, subjectID int64, message string) {
	if err := e.sink.Announce(ctx, subjectID, message); err != nil {
		e.logger.Warnf("failed to announce event for subject %d: %v", subjectID, err)
	}
}

// --- Notification texts ---

func formatMinutes(minutes int) string {
	if minutes >= 60 {
		return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

func startMessage(kind internal.IntervalKind, ts time.Time) string {
	if kind == internal.KindBreast {
		return fmt.Sprintf("Breastfeeding started at %s", ts.Format("15:04"))
	}
	return fmt.Sprintf("Fell asleep at %s", ts.Format("15:04"))
}

func endMessage(kind internal.IntervalKind, startedAt time.Time, minutes int, extra string) string {
	if kind == internal.KindBreast {
		return fmt.Sprintf("Breastfeeding finished (%s side, %s)", extra, formatMinutes(minutes))
	}
	return fmt.Sprintf("Woke up, slept %s since %s", formatMinutes(minutes), startedAt.Format("15:04"))
}

func instantMessage(ev *internal.Event) string {
	switch ev.Type {
	case internal.EventBottleFeeding:
		return fmt.Sprintf("Bottle feeding: %d ml at %s", *ev.Amount, ev.Timestamp.Format("15:04"))
	case internal.EventWeight:
		return fmt.Sprintf("Weight: %d g", *ev.Amount)
	default:
		return fmt.Sprintf("Diaper change (%s) at %s", ev.Notes, ev.Timestamp.Format("15:04"))
	}
}
