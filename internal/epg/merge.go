package epg

import (
	"strings"

	"github.com/voyagen/guidevault/internal/models"
)

// MergeOptions controls Merge. The zero value emits an empty shell for every
// roster channel without guide data.
type MergeOptions struct {
	SkipPlaceholderShells bool
}

// Merge reconciles guide with roster. Each roster channel, in roster order,
// takes the first unconsumed guide entry with the same ID, else the first
// unconsumed entry whose name matches case-insensitively. A match is emitted
// under the roster channel's ID, so every roster ID is present in the
// result. Unmatched roster channels become empty shells unless
// opts.SkipPlaceholderShells is set. Guide entries nobody claimed are
// appended afterwards so their schedules survive roster changes. The result
// never repeats an ID.
func Merge(guide []models.EPGChannel, roster []models.Channel, opts MergeOptions) []models.EPGChannel {
	consumed := make([]bool, len(guide))
	byID := make(map[string][]int, len(guide))
	byName := make(map[string][]int, len(guide))
	for i, ch := range guide {
		byID[ch.ID] = append(byID[ch.ID], i)
		if name := strings.ToLower(ch.Name); name != "" {
			byName[name] = append(byName[name], i)
		}
	}

	take := func(candidates []int) int {
		for _, i := range candidates {
			if !consumed[i] {
				consumed[i] = true
				return i
			}
		}
		return -1
	}

	out := make([]models.EPGChannel, 0, len(roster)+len(guide))
	emitted := make(map[string]struct{}, len(roster)+len(guide))
	emit := func(ch models.EPGChannel) {
		if _, dup := emitted[ch.ID]; dup {
			return
		}
		emitted[ch.ID] = struct{}{}
		out = append(out, ch)
	}

	for _, rc := range roster {
		idx := take(byID[rc.ID])
		if idx < 0 && rc.Name != "" {
			idx = take(byName[strings.ToLower(rc.Name)])
		}
		if idx < 0 {
			if !opts.SkipPlaceholderShells {
				emit(models.EPGChannel{ID: rc.ID, Name: rc.Name, Logo: rc.Logo, Events: []models.EPGEvent{}})
			}
			continue
		}

		m := guide[idx]
		matched := models.EPGChannel{
			ID:            rc.ID,
			Name:          m.Name,
			Logo:          m.Logo,
			OffsetMinutes: m.OffsetMinutes,
			Events:        sortedCopy(m.Events),
		}
		if matched.ID == "" {
			matched.ID = m.ID
		}
		if matched.ID != m.ID {
			for i := range matched.Events {
				matched.Events[i].ChannelID = matched.ID
			}
		}
		if matched.Name == "" {
			matched.Name = rc.Name
		}
		if matched.Logo == "" {
			matched.Logo = rc.Logo
		}
		emit(matched)
	}

	for i, ch := range guide {
		if consumed[i] {
			continue
		}
		orphan := ch
		orphan.Events = sortedCopy(ch.Events)
		emit(orphan)
	}
	return out
}
