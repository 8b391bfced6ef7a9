package epg

import (
	"time"

	"github.com/voyagen/guidevault/internal/models"
)

// AdjustOffset shifts every event of ch by minutes (negative moves earlier)
// and adds minutes to its cumulative OffsetMinutes.
func AdjustOffset(ch models.EPGChannel, minutes int) models.EPGChannel {
	shift := time.Duration(minutes) * time.Minute
	out := ch.Clone()
	for i := range out.Events {
		out.Events[i].Start = out.Events[i].Start.Add(shift)
		out.Events[i].End = out.Events[i].End.Add(shift)
	}
	SortEvents(out.Events)
	out.OffsetMinutes += minutes
	return out
}

// AdjustChannelOffset applies AdjustOffset to the channel with the given ID
// and returns the new guide. ok is false when no channel has that ID.
func AdjustChannelOffset(guide []models.EPGChannel, channelID string, minutes int) (out []models.EPGChannel, ok bool) {
	out = make([]models.EPGChannel, len(guide))
	copy(out, guide)
	for i, ch := range out {
		if ch.ID == channelID {
			out[i] = AdjustOffset(ch, minutes)
			ok = true
		}
	}
	return out, ok
}

// Remapping renames a guide channel. Empty fields keep the current value.
type Remapping struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name,omitempty"`
}

// Remap applies mapping, keyed by current channel ID, to chs. A remapped
// channel's events follow it to the new ID.
func Remap(chs []models.EPGChannel, mapping map[string]Remapping) []models.EPGChannel {
	out := make([]models.EPGChannel, 0, len(chs))
	for _, ch := range chs {
		m, ok := mapping[ch.ID]
		if !ok {
			out = append(out, ch)
			continue
		}
		ch = ch.Clone()
		if m.Name != "" {
			ch.Name = m.Name
		}
		if m.ID != "" && m.ID != ch.ID {
			ch.ID = m.ID
			for i := range ch.Events {
				ch.Events[i].ChannelID = m.ID
			}
		}
		out = append(out, ch)
	}
	return out
}
