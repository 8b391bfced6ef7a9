package epg

import (
	"time"

	"github.com/voyagen/guidevault/internal/models"
)

// Find returns the channel with the given ID.
func Find(guide []models.EPGChannel, channelID string) (models.EPGChannel, bool) {
	for _, ch := range guide {
		if ch.ID == channelID {
			return ch, true
		}
	}
	return models.EPGChannel{}, false
}

// NowNext returns the programme airing on channelID at now and the one after
// it. Events must already be sorted by start. Both results are nil when the
// channel is unknown, has no events, or its schedule lies entirely in the past.
// When events overlap, the earliest-starting one containing now wins.
func NowNext(guide []models.EPGChannel, channelID string, now time.Time) (current, next *models.EPGEvent) {
	ch, ok := Find(guide, channelID)
	if !ok {
		return nil, nil
	}
	return nowNext(ch.Events, now)
}

func nowNext(events []models.EPGEvent, now time.Time) (current, next *models.EPGEvent) {
	for i := range events {
		ev := events[i]
		if ev.Contains(now) {
			current = &ev
			if i+1 < len(events) {
				n := events[i+1]
				next = &n
			}
			return current, next
		}
		if ev.Start.After(now) {
			return nil, &ev
		}
	}
	return nil, nil
}

// NowNextAll answers NowNext for every channel of guide, in guide order.
func NowNextAll(guide []models.EPGChannel, now time.Time) []models.NowPlaying {
	out := make([]models.NowPlaying, 0, len(guide))
	for _, ch := range guide {
		cur, nxt := nowNext(ch.Events, now)
		out = append(out, models.NowPlaying{
			ChannelID:   ch.ID,
			ChannelName: ch.Name,
			Current:     cur,
			Next:        nxt,
		})
	}
	return out
}
