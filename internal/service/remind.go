package service

import (
	"fmt"
	"time"

	"github.com/voyagen/guidevault/internal/epg"
	"github.com/voyagen/guidevault/internal/models"
	"github.com/voyagen/guidevault/internal/reminder"
)

// Remind arms a reminder for eventID on channelID. An empty eventID picks
// the next programme to start on the channel. A zero lead uses the
// scheduler's default. The handle is nil when the reminder fired at once.
func (g *Guide) Remind(channelID, eventID string, lead time.Duration) (*reminder.Handle, models.EPGEvent, error) {
	s := g.deps.Reminders
	if s == nil {
		return nil, models.EPGEvent{}, ErrNoReminders
	}
	ch, ok := epg.Find(g.current().guide, channelID)
	if !ok {
		return nil, models.EPGEvent{}, fmt.Errorf("%w: %s", ErrChannelNotFound, channelID)
	}

	var target *models.EPGEvent
	if eventID == "" {
		now := g.opts.Now()
		for i := range ch.Events {
			if ch.Events[i].Start.After(now) {
				target = &ch.Events[i]
				break
			}
		}
		if target == nil {
			return nil, models.EPGEvent{}, fmt.Errorf("%w on %s", ErrNoUpcomingEvent, channelID)
		}
	} else {
		for i := range ch.Events {
			if ch.Events[i].ID == eventID {
				target = &ch.Events[i]
				break
			}
		}
		if target == nil {
			return nil, models.EPGEvent{}, fmt.Errorf("%w: %s", ErrEventNotFound, eventID)
		}
	}

	var (
		h   *reminder.Handle
		err error
	)
	title := reminderTitle(ch, *target)
	if lead == 0 {
		h, err = s.ScheduleDefault(target.Start, title)
	} else {
		h, err = s.Schedule(target.Start, title, lead)
	}
	switch {
	case err != nil:
		g.deps.Metrics.IncReminder("failed")
	case h == nil:
		g.deps.Metrics.IncReminder("immediate")
	default:
		g.deps.Metrics.IncReminder("armed")
	}
	return h, *target, err
}

// CancelReminder disarms a pending reminder.
func (g *Guide) CancelReminder(id string) bool {
	if g.deps.Reminders == nil {
		return false
	}
	ok := g.deps.Reminders.CancelByID(id)
	if ok {
		g.deps.Metrics.IncReminder("cancelled")
	}
	return ok
}

// Reminders lists pending reminders.
func (g *Guide) Reminders() []reminder.Handle {
	if g.deps.Reminders == nil {
		return []reminder.Handle{}
	}
	return g.deps.Reminders.Pending()
}

func reminderTitle(ch models.EPGChannel, ev models.EPGEvent) string {
	if ch.Name == "" {
		return ev.Title
	}
	return ev.Title + " (" + ch.Name + ")"
}
