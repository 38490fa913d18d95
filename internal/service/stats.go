package service

import (
	"context"
	"time"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/clock"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

// OpenSession describes an in-progress interval. Its running duration
// is reported separately and never folded into the closed-session
// totals.
type OpenSession struct {
	StartedAt time.Time `json:"started_at"`
	Minutes   int       `json:"minutes"`
}

type IntervalStats struct {
	Sessions     int             `json:"sessions"`
	TotalMinutes int             `json:"total_minutes"`
	LastEnd      *internal.Event `json:"last_end,omitempty"`
	Open         *OpenSession    `json:"open,omitempty"`
}

type BottleStats struct {
	Count       int             `json:"count"`
	TotalML     int             `json:"total_ml"`
	Last        *internal.Event `json:"last,omitempty"`
	NextFeeding *time.Time      `json:"next_feeding,omitempty"`
	DueNow      bool            `json:"due_now"`
}

type BreastStats struct {
	IntervalStats
	BySide map[string]int `json:"by_side"`
}

type Summary struct {
	SubjectID   int64           `json:"subject_id"`
	WindowStart time.Time       `json:"window_start"`
	Bottle      BottleStats     `json:"bottle"`
	Sleep       IntervalStats   `json:"sleep"`
	Breast      BreastStats     `json:"breast"`
	DiaperCount int             `json:"diaper_count"`
	LastWeight  *internal.Event `json:"last_weight,omitempty"`
}

// StatsAggregator folds the event log over a window. Pure reads; the
// same events and clock produce the same summary.
type StatsAggregator struct {
	events    storage.EventRepository
	scheduler *ReminderScheduler
	clock     clock.Clock
}

func NewStatsAggregator(events storage.EventRepository, scheduler *ReminderScheduler, clk clock.Clock) *StatsAggregator {
	return &StatsAggregator{events: events, scheduler: scheduler, clock: clk}
}

// SummarizeLast summarizes the trailing window ending at the clock's
// current time.
func (a *StatsAggregator) SummarizeLast(ctx context.Context, subjectID int64, window time.Duration) (*Summary, error) {
	return a.Summarize(ctx, subjectID, a.clock.Now().Add(-window))
}

func (a *StatsAggregator) Summarize(ctx context.Context, subjectID int64, windowStart time.Time) (*Summary, error) {
	events, err := a.events.EventsInWindow(ctx, subjectID, windowStart)
	if err != nil {
		return nil, err
	}

	now := a.clock.Now()
	sum := &Summary{
		SubjectID:   subjectID,
		WindowStart: windowStart,
		Breast:      BreastStats{BySide: map[string]int{}},
	}

	// EventsInWindow is newest first; fold oldest to newest so starts
	// precede their ends.
	for i := len(events) - 1; i >= 0; i-- {
		ev := events[i]
		switch ev.Type {
		case internal.EventBottleFeeding:
			sum.Bottle.Count++
			if ev.Amount != nil {
				sum.Bottle.TotalML += *ev.Amount
			}
			cp := ev
			sum.Bottle.Last = &cp

		case internal.EventSleepEnd:
			if ev.Duration != nil {
				sum.Sleep.Sessions++
				sum.Sleep.TotalMinutes += *ev.Duration
				cp := ev
				sum.Sleep.LastEnd = &cp
			}

		case internal.EventBreastEnd:
			if ev.Duration != nil {
				sum.Breast.Sessions++
				sum.Breast.TotalMinutes += *ev.Duration
				cp := ev
				sum.Breast.LastEnd = &cp
				if ev.Notes != "" {
					sum.Breast.BySide[ev.Notes]++
				}
			}

		case internal.EventDiaper:
			sum.DiaperCount++

		case internal.EventWeight:
			cp := ev
			sum.LastWeight = &cp
		}
	}

	// Open sessions may have started before the window; ask the store
	// rather than the fold.
	for _, kind := range []internal.IntervalKind{internal.KindSleep, internal.KindBreast} {
		open, err := a.events.OpenInterval(ctx, subjectID, kind.StartType(), kind.EndType())
		if err != nil {
			return nil, err
		}
		if open == nil {
			continue
		}
		running := &OpenSession{StartedAt: open.Timestamp, Minutes: internal.DurationMinutes(open.Timestamp, now)}
		if kind == internal.KindSleep {
			sum.Sleep.Open = running
		} else {
			sum.Breast.Open = running
		}
	}

	// Next feeding derives from the last bottle feeding overall, not
	// just the window.
	lastBottle, err := a.events.LastOfType(ctx, subjectID, internal.EventBottleFeeding)
	if err != nil {
		return nil, err
	}
	if next := a.scheduler.NextFeeding(lastBottle); next != nil {
		sum.Bottle.NextFeeding = next
		sum.Bottle.DueNow = !next.After(now)
	}

	return sum, nil
}
