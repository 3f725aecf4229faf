package replay

import (
	"context"

	log "github.com/sirupsen/logrus"

	"github.com/theirongolddev/agentcost/internal/genai"
	"github.com/theirongolddev/agentcost/internal/source"
)

// Follow drives every call appended to a live transcript through gen as it
// arrives. It blocks until ctx is cancelled or the follower fails, and
// returns the totals of everything driven so far.
func Follow(ctx context.Context, f *source.Follower, rec *Generator, gen genai.ContentGenerator) (Stats, error) {
	var total Stats
	err := f.Run(ctx, func(calls []source.Call) {
		stats, err := Drive(ctx, rec, gen, calls)
		total.Calls += stats.Calls
		total.Chunks += stats.Chunks
		total.Responses += stats.Responses
		if err != nil {
			if ctx.Err() == nil {
				log.WithError(err).Warn("replay: driving followed calls")
			}
			return
		}
		log.WithField("calls", stats.Calls).WithField("chunks", stats.Chunks).Debug("replay: followed calls priced")
	})
	return total, err
}
