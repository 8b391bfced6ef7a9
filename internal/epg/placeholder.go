package epg

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/voyagen/guidevault/internal/models"
)

// ErrInvalidPolicy is returned for a placeholder policy outside its valid range.
var ErrInvalidPolicy = errors.New("invalid placeholder policy")

// channelSpacing keeps placeholder events of different channels from sharing
// byte-identical timestamps.
const channelSpacing = 500 * time.Millisecond

// IDFunc generates a unique event id.
type IDFunc func() string

// PlaceholderPolicy controls placeholder generation. Zero values take defaults.
type PlaceholderPolicy struct {
	StartHour           int       `yaml:"start_hour"`            // 0-23, default 6
	SlotCount           int       `yaml:"slot_count"`            // default 12
	SlotDurationMinutes int       `yaml:"slot_duration_minutes"` // default 60
	BaseDay             time.Time `yaml:"-"`                     // default today
}

// DefaultPlaceholderPolicy returns the 06:00, 12 x 60 minute policy.
func DefaultPlaceholderPolicy() PlaceholderPolicy {
	return PlaceholderPolicy{StartHour: 6, SlotCount: 12, SlotDurationMinutes: 60}
}

// Validate reports whether the policy can be used as-is.
func (p PlaceholderPolicy) Validate() error {
	if p.StartHour < 0 || p.StartHour > 23 {
		return fmt.Errorf("%w: start hour %d (must be 0-23)", ErrInvalidPolicy, p.StartHour)
	}
	if p.SlotCount < 0 {
		return fmt.Errorf("%w: slot count %d", ErrInvalidPolicy, p.SlotCount)
	}
	if p.SlotDurationMinutes < 0 {
		return fmt.Errorf("%w: slot duration %d", ErrInvalidPolicy, p.SlotDurationMinutes)
	}
	return nil
}

func (p PlaceholderPolicy) withDefaults() PlaceholderPolicy {
	if p.SlotCount == 0 {
		p.SlotCount = 12
	}
	if p.SlotDurationMinutes == 0 {
		p.SlotDurationMinutes = 60
	}
	if p.BaseDay.IsZero() {
		p.BaseDay = time.Now()
	}
	return p
}

// Placeholders synthesizes a contiguous schedule for every roster channel.
// Channel i starts at BaseDay StartHour:00:00 plus i*500ms; each slot lasts
// SlotDurationMinutes. newID generates event ids (uuid when nil).
func Placeholders(roster []models.Channel, p PlaceholderPolicy, newID IDFunc) ([]models.EPGChannel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	if newID == nil {
		newID = uuid.NewString
	}

	day := p.BaseDay
	base := time.Date(day.Year(), day.Month(), day.Day(), p.StartHour, 0, 0, 0, day.Location())
	slot := time.Duration(p.SlotDurationMinutes) * time.Minute

	out := make([]models.EPGChannel, 0, len(roster))
	for i, ch := range roster {
		out = append(out, models.EPGChannel{
			ID:     ch.ID,
			Name:   ch.Name,
			Logo:   ch.Logo,
			Events: placeholderEvents(ch, base.Add(time.Duration(i)*channelSpacing), slot, p.SlotCount, newID),
		})
	}
	return out, nil
}

func placeholderEvents(ch models.Channel, start time.Time, slot time.Duration, count int, newID IDFunc) []models.EPGEvent {
	events := make([]models.EPGEvent, 0, count)
	for n := 0; n < count; n++ {
		s := start.Add(time.Duration(n) * slot)
		title := ch.Name + " • Live"
		if n > 0 {
			title = fmt.Sprintf("%s • Episode %d", ch.Name, n)
		}
		events = append(events, models.EPGEvent{
			ID:          newID(),
			ChannelID:   ch.ID,
			Title:       title,
			Start:       Canonical(s),
			End:         Canonical(s.Add(slot)),
			Description: fmt.Sprintf("%s placeholder program %d", ch.Name, n+1),
		})
	}
	return events
}

// FillEmpty replaces every guide channel that has no events with a
// placeholder schedule. The placeholder slot offset follows the channel's
// roster index; channels absent from the roster are left empty.
func FillEmpty(guide []models.EPGChannel, roster []models.Channel, p PlaceholderPolicy, newID IDFunc) ([]models.EPGChannel, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	p = p.withDefaults()
	if newID == nil {
		newID = uuid.NewString
	}

	index := make(map[string]int, len(roster))
	for i, ch := range roster {
		if _, ok := index[ch.ID]; !ok {
			index[ch.ID] = i
		}
	}

	day := p.BaseDay
	base := time.Date(day.Year(), day.Month(), day.Day(), p.StartHour, 0, 0, 0, day.Location())
	slot := time.Duration(p.SlotDurationMinutes) * time.Minute

	out := make([]models.EPGChannel, 0, len(guide))
	for _, ch := range guide {
		i, inRoster := index[ch.ID]
		if len(ch.Events) > 0 || !inRoster {
			out = append(out, ch.Clone())
			continue
		}
		src := roster[i]
		src.ID, src.Name = ch.ID, ch.Name
		ch.Events = placeholderEvents(src, base.Add(time.Duration(i)*channelSpacing), slot, p.SlotCount, newID)
		out = append(out, ch)
	}
	return out, nil
}
