// Package monitor serves live session cost over HTTP.
package monitor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/theirongolddev/agentcost/internal/model"
	"github.com/theirongolddev/agentcost/internal/pipeline"
	"github.com/theirongolddev/agentcost/internal/session"
)

// EventCostUpdate is the type of the event published for every recorded
// breakdown.
const EventCostUpdate = "cost_update"

// Config controls the monitor runtime behavior.
type Config struct {
	Addr         string
	EventsBuffer int
	Source       string // transcript being followed, for status only
}

// Snapshot is a compact cost state for status and event payloads.
type Snapshot struct {
	At           time.Time `json:"at"`
	Records      int       `json:"records"`
	BilledInput  int64     `json:"billed_input"`
	OutputTokens int64     `json:"output_tokens"`
	CachedTokens int64     `json:"cached_tokens"`
	TotalCostUSD float64   `json:"total_cost_usd"`
	CacheHitRate float64   `json:"cache_hit_rate"`
}

// Event is emitted whenever the session records a breakdown.
type Event struct {
	ID        int64                `json:"id"`
	Type      string               `json:"type"`
	Timestamp time.Time            `json:"timestamp"`
	Breakdown *model.CostBreakdown `json:"breakdown,omitempty"`
	Snapshot  Snapshot             `json:"snapshot"`
}

// Status is served at /v1/status.
type Status struct {
	SessionID       string    `json:"session_id"`
	StartedAt       time.Time `json:"started_at"`
	LastUpdateAt    time.Time `json:"last_update_at,omitempty"`
	Source          string    `json:"source,omitempty"`
	Summary         Snapshot  `json:"summary"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Breakdowns is served at /v1/breakdowns.
type Breakdowns struct {
	Breakdowns []model.CostBreakdown `json:"breakdowns"`
	Tiers      []model.TierStats     `json:"tiers"`
	TotalCost  float64               `json:"total_cost"`
}

// Service publishes tracker updates as events, metrics and HTTP endpoints.
type Service struct {
	cfg     Config
	tracker *session.Tracker
	metrics *Metrics

	unsubscribe func()

	mu           sync.RWMutex
	lastUpdateAt time.Time
	snapshot     Snapshot
	nextEventID  int64
	events       []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a monitor subscribed to tracker. Call Close to detach it.
func New(cfg Config, tracker *session.Tracker) *Service {
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}

	s := &Service{
		cfg:     cfg,
		tracker: tracker,
		metrics: NewMetrics(),
		subs:    make(map[int]chan Event),
	}
	s.snapshot = snapshotOf(tracker.History(), time.Now())
	s.unsubscribe = tracker.Subscribe(s.onRecord)
	return s
}

// Close detaches the monitor from its tracker.
func (s *Service) Close() {
	s.unsubscribe()
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/breakdowns", s.handleBreakdowns)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	mux.Handle("/metrics", s.metrics.Handler())
	return mux
}

// Run serves the HTTP API until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// Open streams end with ctx so Shutdown does not wait on them.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	log.WithField("addr", s.cfg.Addr).Info("monitor: listening")

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		log.Info("monitor: shutting down")
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return fmt.Errorf("monitor http server: %w", err)
	}
}

// onRecord runs on the recording goroutine, so it must not block.
func (s *Service) onRecord(history []model.CostBreakdown) {
	if len(history) == 0 {
		return
	}
	now := time.Now()
	latest := history[len(history)-1]

	s.mu.Lock()
	snap := s.snapshot
	if snap.Records == len(history)-1 {
		snap.add(latest)
		snap.At = now
	} else {
		// Records landed between the seed and Subscribe; rebuild.
		snap = snapshotOf(history, now)
	}
	s.snapshot = snap
	s.lastUpdateAt = now
	s.nextEventID++
	ev := Event{
		ID:        s.nextEventID,
		Type:      EventCostUpdate,
		Timestamp: now,
		Breakdown: &latest,
		Snapshot:  snap,
	}
	s.mu.Unlock()

	s.metrics.Observe(latest)
	s.metrics.SetSessionCost(snap.TotalCostUSD)
	s.publishEvent(ev)
}

func snapshotOf(history []model.CostBreakdown, at time.Time) Snapshot {
	snap := Snapshot{At: at}
	for _, b := range history {
		snap.add(b)
	}
	return snap
}

func (snap *Snapshot) add(b model.CostBreakdown) {
	snap.Records++
	snap.BilledInput += b.BilledInput
	snap.OutputTokens += b.OutputTokens
	snap.CachedTokens += b.CachedTokens
	snap.TotalCostUSD += b.TotalCost
	snap.CacheHitRate = pipeline.CacheHitRate(snap.CachedTokens, snap.BilledInput+snap.CachedTokens)
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		SessionID:       s.tracker.ID(),
		StartedAt:       s.tracker.StartedAt(),
		LastUpdateAt:    s.lastUpdateAt,
		Source:          s.cfg.Source,
		Summary:         s.snapshot,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.status())
}

func (s *Service) handleBreakdowns(w http.ResponseWriter, _ *http.Request) {
	history := s.tracker.History()
	resp := Breakdowns{
		Breakdowns: history,
		Tiers:      pipeline.AggregateTiers(history),
		TotalCost:  pipeline.Totals(history).TotalCost,
	}
	if resp.Breakdowns == nil {
		resp.Breakdowns = []model.CostBreakdown{}
	}
	writeJSON(w, resp)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	writeSSE(w, Event{
		Type:      "snapshot",
		Timestamp: time.Now(),
		Snapshot:  s.status().Summary,
	})
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Debug("monitor: writing response")
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	if ev.ID > 0 {
		_, _ = fmt.Fprintf(w, "id: %d\n", ev.ID)
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
