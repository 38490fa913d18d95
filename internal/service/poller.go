package service

import (
	"context"
	"time"

	"github.com/bagiro44/baby-tracker/internal"
	"github.com/bagiro44/baby-tracker/internal/clock"
	"github.com/bagiro44/baby-tracker/internal/notify"
	"github.com/bagiro44/baby-tracker/internal/storage"
)

const purgeEvery = 24 * time.Hour

// Poller drives reminder delivery on a fixed interval. Delivery is
// at-least-once: a reminder is marked sent only after the sink accepts
// it, so a failed delivery stays pending for the next cycle.
type Poller struct {
	scheduler *ReminderScheduler
	subjects  storage.SubjectRepository
	sink      notify.Sink
	clock     clock.Clock
	interval  time.Duration
	logger    internal.Logger
	lastPurge time.Time
}

func NewPoller(scheduler *ReminderScheduler, subjects storage.SubjectRepository, sink notify.Sink, clk clock.Clock, interval time.Duration, logger internal.Logger) *Poller {
	return &Poller{
		scheduler: scheduler,
		subjects:  subjects,
		sink:      sink,
		clock:     clk,
		interval:  interval,
		logger:    logger,
	}
}

// Run loops until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Infof("reminder poller started, interval %s", p.interval)
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("reminder poller stopped")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick processes one polling cycle. Exported so tests can step the
// poller without the ticker.
func (p *Poller) Tick(ctx context.Context) {
	now := p.clock.Now()
	due, err := p.scheduler.PollDue(ctx, now)
	if err != nil {
		p.logger.Errorf("failed to poll due reminders: %v", err)
		return
	}

	for _, r := range due {
		msg := p.scheduler.Message(r, p.subjectName(ctx, r.SubjectID))
		if err := p.sink.Deliver(ctx, r.SubjectID, r.Kind, msg); err != nil {
			// Leave it pending; the next cycle retries.
			p.logger.Warnf("failed to deliver reminder %d: %v", r.ID, err)
			continue
		}
		if err := p.scheduler.MarkSent(ctx, r.ID); err != nil {
			p.logger.Errorf("failed to mark reminder %d sent: %v", r.ID, err)
		}
	}

	if now.Sub(p.lastPurge) >= purgeEvery {
		if n, err := p.scheduler.PurgeSent(ctx); err != nil {
			p.logger.Errorf("failed to purge sent reminders: %v", err)
		} else if n > 0 {
			p.logger.Infof("purged %d sent reminders", n)
		}
		p.lastPurge = now
	}
}

func (p *Poller) subjectName(ctx context.Context, subjectID int64) string {
	sub, err := p.subjects.GetSubject(ctx, subjectID)
	if err != nil {
		return "the baby"
	}
	return sub.Name
}
