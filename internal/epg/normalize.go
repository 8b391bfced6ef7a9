package epg

import (
	"sort"
	"time"

	"github.com/voyagen/guidevault/internal/models"
)

// Canonical returns t as a canonical instant: UTC, millisecond precision,
// no monotonic reading.
func Canonical(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// Normalize converts every event to canonical UTC instants, drops events whose
// start or end is missing or that do not end after they start, and sorts each
// channel's events by start. It is idempotent and does not modify chs.
func Normalize(chs []models.EPGChannel) []models.EPGChannel {
	out := make([]models.EPGChannel, 0, len(chs))
	for _, ch := range chs {
		events := make([]models.EPGEvent, 0, len(ch.Events))
		for _, ev := range ch.Events {
			if ev.Start.IsZero() || ev.End.IsZero() {
				continue
			}
			ev.Start = Canonical(ev.Start)
			ev.End = Canonical(ev.End)
			if !ev.End.After(ev.Start) {
				continue
			}
			events = append(events, ev)
		}
		SortEvents(events)
		ch.Events = events
		out = append(out, ch)
	}
	return out
}

// SortEvents stably sorts events in place by start.
func SortEvents(events []models.EPGEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Start.Before(events[j].Start)
	})
}

// sortedCopy returns the events sorted by start without touching the input.
func sortedCopy(events []models.EPGEvent) []models.EPGEvent {
	out := make([]models.EPGEvent, len(events))
	copy(out, events)
	SortEvents(out)
	return out
}

// EventCount returns the total number of events across chs.
func EventCount(chs []models.EPGChannel) int {
	n := 0
	for _, ch := range chs {
		n += len(ch.Events)
	}
	return n
}
