package models

import "time"

// EPGEvent is a scheduled programme on one channel.
// A zero Start or End marks an instant that could not be parsed.
type EPGEvent struct {
	ID          string    `json:"id"`
	ChannelID   string    `json:"channelId"`
	Title       string    `json:"title"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Description string    `json:"description,omitempty"`
}

// Duration returns End - Start.
func (e EPGEvent) Duration() time.Duration {
	return e.End.Sub(e.Start)
}

// Contains reports whether t falls within [Start, End], both ends inclusive.
func (e EPGEvent) Contains(t time.Time) bool {
	return !t.Before(e.Start) && !t.After(e.End)
}

// EPGChannel is the schedule for one channel. Events are sorted by Start
// once the channel has been through normalize, merge or offset.
type EPGChannel struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Logo          string     `json:"logo,omitempty"`
	OffsetMinutes int        `json:"offsetMinutes,omitempty"`
	Events        []EPGEvent `json:"events"`
}

// Clone returns a copy of c that shares no event storage with it.
func (c EPGChannel) Clone() EPGChannel {
	out := c
	out.Events = make([]EPGEvent, len(c.Events))
	copy(out.Events, c.Events)
	return out
}

// NowPlaying is the current and next programme for a channel.
type NowPlaying struct {
	ChannelID   string    `json:"channelId"`
	ChannelName string    `json:"channelName,omitempty"`
	Current     *EPGEvent `json:"current,omitempty"`
	Next        *EPGEvent `json:"next,omitempty"`
}
