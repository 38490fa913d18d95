package internal

import "time"

type Gender string

const (
	GenderMale    Gender = "male"
	GenderFemale  Gender = "female"
	GenderUnknown Gender = "unknown"
)

// Subject is a tracked child. Immutable after onboarding except for
// gender correction.
type Subject struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	BirthDate time.Time `json:"birth_date"`
	Gender    Gender    `json:"gender"`
	CreatedAt time.Time `json:"created_at"`
}

type EventType string

const (
	EventSleepStart    EventType = "sleep_start"
	EventSleepEnd      EventType = "sleep_end"
	EventBreastStart   EventType = "breast_feeding_start"
	EventBreastEnd     EventType = "breast_feeding_end"
	EventBottleFeeding EventType = "bottle_feeding"
	EventWeight        EventType = "weight"
	EventDiaper        EventType = "diaper"
)

// IntervalKind names an activity tracked as a paired start/end.
type IntervalKind string

const (
	KindSleep  IntervalKind = "sleep"
	KindBreast IntervalKind = "breast"
)

func (k IntervalKind) StartType() EventType {
	if k == KindBreast {
		return EventBreastStart
	}
	return EventSleepStart
}

func (k IntervalKind) EndType() EventType {
	if k == KindBreast {
		return EventBreastEnd
	}
	return EventSleepEnd
}

func (k IntervalKind) Valid() bool {
	return k == KindSleep || k == KindBreast
}

// Event is an immutable log record. Timestamp may be backdated;
// CreatedAt is when the record was written.
type Event struct {
	ID        int64     `json:"id"`
	SubjectID int64     `json:"subject_id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Actor     int64     `json:"actor"`
	Amount    *int      `json:"amount,omitempty"`
	Duration  *int      `json:"duration,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func NewStartEvent(subjectID int64, kind IntervalKind, actor int64, ts time.Time) *Event {
	return &Event{SubjectID: subjectID, Type: kind.StartType(), Timestamp: ts, Actor: actor}
}

func NewEndEvent(subjectID int64, kind IntervalKind, actor int64, ts time.Time, notes string) *Event {
	return &Event{SubjectID: subjectID, Type: kind.EndType(), Timestamp: ts, Actor: actor, Notes: notes}
}

func NewBottleEvent(subjectID, actor int64, amountML int, ts time.Time) *Event {
	return &Event{SubjectID: subjectID, Type: EventBottleFeeding, Timestamp: ts, Actor: actor, Amount: &amountML}
}

func NewWeightEvent(subjectID, actor int64, grams int, ts time.Time) *Event {
	return &Event{SubjectID: subjectID, Type: EventWeight, Timestamp: ts, Actor: actor, Amount: &grams}
}

func NewDiaperEvent(subjectID, actor int64, kind string, ts time.Time) *Event {
	return &Event{SubjectID: subjectID, Type: EventDiaper, Timestamp: ts, Actor: actor, Notes: kind}
}

// DurationMinutes floors the span to whole minutes. Callers guarantee
// end is not before start.
func DurationMinutes(start, end time.Time) int {
	return int(end.Sub(start) / time.Minute)
}

type ReminderKind string

const (
	FeedingDueSoon ReminderKind = "feeding_due_soon"
	FeedingDueNow  ReminderKind = "feeding_due_now"
)

// Reminder lifecycle: pending -> sent -> purged after retention.
// Sent is write-once true.
type Reminder struct {
	ID          int64        `json:"id"`
	SubjectID   int64        `json:"subject_id"`
	Kind        ReminderKind `json:"kind"`
	ScheduledAt time.Time    `json:"scheduled_at"`
	Sent        bool         `json:"sent"`
	CreatedAt   time.Time    `json:"created_at"`
}

// User is a caregiver allowed to log events. ID doubles as the actor
// recorded on every event.
type User struct {
	ID    int64  `json:"id"`
	Token string `json:"token"`
	Name  string `json:"name"`
}

// UserState persists a mid-wizard conversation step so multi-step input
// survives a restart. Replace on update, delete on completion.
type UserState struct {
	UserID    int64             `json:"user_id"`
	State     string            `json:"state"`
	Data      map[string]string `json:"data,omitempty"`
	UpdatedAt time.Time         `json:"updated_at"`
}
