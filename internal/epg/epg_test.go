package epg

import (
	"fmt"
	"testing"
	"time"

	"github.com/voyagen/guidevault/internal/models"
)

func at(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func ev(id, start, end string) models.EPGEvent {
	return models.EPGEvent{ID: id, Title: id, Start: at(start), End: at(end)}
}

func seqIDs() IDFunc {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func assertSorted(t *testing.T, chs []models.EPGChannel) {
	t.Helper()
	for _, ch := range chs {
		for i := 1; i < len(ch.Events); i++ {
			if ch.Events[i].Start.Before(ch.Events[i-1].Start) {
				t.Fatalf("channel %s: event %d starts before event %d", ch.ID, i, i-1)
			}
		}
	}
}
