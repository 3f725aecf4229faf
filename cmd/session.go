package cmd

import (
	"time"

	"github.com/theirongolddev/agentcost/internal/cli"
	"github.com/theirongolddev/agentcost/internal/genai"
	"github.com/theirongolddev/agentcost/internal/replay"
	"github.com/theirongolddev/agentcost/internal/session"
)

// liveSession wires a replay generator behind the cost-tracking decorator,
// recording into a fresh tracker.
type liveSession struct {
	tracker *session.Tracker
	rec     *replay.Generator
	gen     *genai.CostTrackingGenerator
}

func newLiveSession() (*liveSession, error) {
	calc, err := newCalculator()
	if err != nil {
		return nil, err
	}
	tracker := session.New()
	rec := replay.New()
	return &liveSession{
		tracker: tracker,
		rec:     rec,
		gen:     genai.NewCostTracking(rec, flagModel, calc, tracker),
	}, nil
}

func (s *liveSession) summary(title string, stats replay.Stats) string {
	priced := s.tracker.Len()
	return cli.RenderSessionSummary(cli.SessionSummary{
		Title:     title,
		SessionID: s.tracker.ID(),
		Duration:  time.Since(s.tracker.StartedAt()),
		Calls:     stats.Calls,
		Records:   priced,
		Unpriced:  stats.Responses - priced,
		TotalCost: s.tracker.TotalCost(),
	})
}
