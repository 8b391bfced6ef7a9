package service

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/voyagen/guidevault/internal/models"
)

// RunTicker refreshes the now/next view every interval until ctx is
// cancelled, handing each result to onTick when it is non-nil.
func (g *Guide) RunTicker(ctx context.Context, interval time.Duration, onTick func([]models.NowPlaying)) {
	t := time.NewTicker(interval)
	defer t.Stop()

	tick := func() {
		view := g.WhatsOn(g.opts.Now())
		airing := 0
		for _, np := range view {
			if np.Current != nil {
				airing++
			}
		}
		log.Debug().Int("channels", len(view)).Int("airing", airing).Msg("now/next refreshed")
		if onTick != nil {
			onTick(view)
		}
	}

	tick()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			tick()
		}
	}
}
