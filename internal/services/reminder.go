package services

import (
	"context"
	"time"

	"github.com/mixel34p/Yo-kaidle-sub002/internal/logging"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/models"
	"github.com/mixel34p/Yo-kaidle-sub002/internal/notify"
)

// ReminderScheduler sends the daily "new Yo-kai" push at a fixed wall-clock time.
type ReminderScheduler struct {
	push   *PushService
	hour   int
	minute int
	loc    *time.Location
	logger *logging.Logger
	now    func() time.Time
}

func NewReminderScheduler(push *PushService, hour, minute int, loc *time.Location, logger *logging.Logger) *ReminderScheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &ReminderScheduler{push: push, hour: hour, minute: minute, loc: loc, logger: logger, now: time.Now}
}

func (r *ReminderScheduler) Run(ctx context.Context) {
	for {
		next := nextReminder(r.now(), r.hour, r.minute, r.loc)
		r.logger.Debugf("[reminder] next daily reminder at %s", next.Format(time.RFC3339))
		timer := time.NewTimer(time.Until(next))
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		res, err := r.push.Send(ctx, models.SendRequest{Title: notify.DefaultTitle, Body: notify.DefaultBody, Tag: notify.DefaultTag, URL: notify.DefaultURL})
		if err != nil {
			r.logger.Warnf("[reminder] daily push failed: %v", err)
			continue
		}
		r.logger.Infof("[reminder] daily push delivered to %d/%d subscribers", res.Sent, res.Total)
	}
}

// nextReminder returns the first hour:minute in loc strictly after now.
func nextReminder(now time.Time, hour, minute int, loc *time.Location) time.Time {
	local := now.In(loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), hour, minute, 0, 0, loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, hour, minute, 0, 0, loc)
	}
	return next
}
