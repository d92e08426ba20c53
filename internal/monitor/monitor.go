package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solsignal/solsignal/internal/classify"
	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/dispatch"
	"github.com/solsignal/solsignal/internal/feeds"
	"github.com/solsignal/solsignal/internal/gate"
	"github.com/solsignal/solsignal/internal/market"
	"github.com/solsignal/solsignal/internal/notify"
	"github.com/solsignal/solsignal/internal/token"
	"github.com/solsignal/solsignal/internal/tracker"
)

// ---------------------------------------------------------------------------
// Monitor: discovery loop and live-refresh scheduler
// ---------------------------------------------------------------------------

// Monitor owns the two periodic loops: discovery (feeds, gate,
// classify, dispatch) and live refresh (re-fetch, re-render, edit).
// Both run on the same goroutine, so the dedup ledger and active-alert
// table are mutated from a single owner.
type Monitor struct {
	config config.MonitorConfig
	alerts config.AlertsConfig

	feeds      *feeds.Client
	stream     *feeds.LaunchStream // nil when the launch stream is disabled
	market     *market.Client
	solPrice   *market.SOLPrice
	gate       *gate.Gate
	classifier *classify.Classifier
	dispatcher *dispatch.Dispatcher
	tracker    *tracker.Tracker
	channel    notify.Channel

	// Stats.
	cycles       atomic.Int64
	candidates   atomic.Int64
	rejected     atomic.Int64
	refreshTicks atomic.Int64
	editsOK      atomic.Int64
	editsNoop    atomic.Int64
	editsFailed  atomic.Int64
	cyclePanics  atomic.Int64
}

// Deps bundles the monitor's collaborators.
type Deps struct {
	Feeds      *feeds.Client
	Stream     *feeds.LaunchStream
	Market     *market.Client
	SOLPrice   *market.SOLPrice
	Gate       *gate.Gate
	Classifier *classify.Classifier
	Dispatcher *dispatch.Dispatcher
	Tracker    *tracker.Tracker
	Channel    notify.Channel
}

func New(cfg config.MonitorConfig, alerts config.AlertsConfig, deps Deps) *Monitor {
	return &Monitor{
		config:     cfg,
		alerts:     alerts,
		feeds:      deps.Feeds,
		stream:     deps.Stream,
		market:     deps.Market,
		solPrice:   deps.SOLPrice,
		gate:       deps.Gate,
		classifier: deps.Classifier,
		dispatcher: deps.Dispatcher,
		tracker:    deps.Tracker,
		channel:    deps.Channel,
	}
}

// Preload runs one gateway fetch and marks every discovered mint
// without dispatching, so tokens already live at boot are never
// announced. Only strictly new mints alert after this point.
func (m *Monitor) Preload(ctx context.Context) {
	cands := m.feeds.FetchCandidates(ctx)
	marked := 0
	for _, c := range cands {
		if m.tracker.MarkSeen(c.Mint) {
			marked++
		}
	}
	log.Info().
		Str("component", "monitor").
		Int("fetched", len(cands)).
		Int("marked", marked).
		Msg("dedup ledger preloaded, existing tokens will not alert")
}

// Run drives both loops until the context is cancelled.
func (m *Monitor) Run(ctx context.Context) {
	var streamCh <-chan token.Candidate
	if m.stream != nil {
		streamCh = m.stream.Start(ctx)
	}

	pollTicker := time.NewTicker(m.config.PollInterval())
	defer pollTicker.Stop()
	updateTicker := time.NewTicker(m.config.UpdateInterval())
	defer updateTicker.Stop()

	log.Info().
		Str("component", "monitor").
		Dur("poll_interval", m.config.PollInterval()).
		Dur("update_interval", m.config.UpdateInterval()).
		Dur("update_budget", m.config.UpdateBudget()).
		Bool("stream", m.stream != nil).
		Msg("monitor started")

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("component", "monitor").Msg("monitor stopped")
			return
		case <-pollTicker.C:
			m.safeCycle(ctx, "discovery", m.discoveryCycle)
		case <-updateTicker.C:
			m.safeCycle(ctx, "refresh", m.refreshCycle)
		case cand, ok := <-streamCh:
			if !ok {
				streamCh = nil
				continue
			}
			m.safeCycle(ctx, "stream", func(ctx context.Context) {
				m.processCandidate(ctx, cand)
			})
		}
	}
}

// safeCycle runs one cycle with panic containment. A crashed cycle is
// logged and the loop continues on its next tick.
func (m *Monitor) safeCycle(ctx context.Context, name string, fn func(context.Context)) {
	defer func() {
		if r := recover(); r != nil {
			m.cyclePanics.Add(1)
			log.Error().
				Str("component", "monitor").
				Str("cycle", name).
				Interface("panic", r).
				Msg("cycle panicked, continuing on next tick")
		}
	}()
	fn(ctx)
}

// ---------------------------------------------------------------------------
// Discovery
// ---------------------------------------------------------------------------

func (m *Monitor) discoveryCycle(ctx context.Context) {
	m.cycles.Add(1)
	cands := m.feeds.FetchCandidates(ctx)
	if len(cands) == 0 {
		return
	}

	batchSize := m.alerts.BatchSize
	if batchSize <= 0 {
		batchSize = len(cands)
	}
	pause := time.Duration(m.alerts.BatchPauseMs) * time.Millisecond

	for i, cand := range cands {
		if ctx.Err() != nil {
			return
		}
		if i > 0 && i%batchSize == 0 && pause > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(pause):
			}
		}
		m.processCandidate(ctx, cand)
	}
}

// processCandidate runs one candidate through dedup, gate, classify
// and dispatch.
func (m *Monitor) processCandidate(ctx context.Context, cand token.Candidate) {
	m.candidates.Add(1)
	if m.tracker.Seen(cand.Mint) {
		return
	}

	res := m.gate.Check(ctx, cand)
	if !res.Passed {
		m.rejected.Add(1)
		return
	}

	cls := m.classifier.Classify(cand, res.Pairs, res.Best)

	// Historical policy: mark before dispatch, so a total send failure
	// permanently suppresses the launch. alerts.mark_after_send moves
	// the mark into the dispatcher, after the first accepted send.
	if !m.alerts.MarkAfterSend {
		if !m.tracker.MarkSeen(cand.Mint) {
			return
		}
	}

	m.dispatcher.Dispatch(ctx, cand, cls, res.Best)
}

// ---------------------------------------------------------------------------
// Live refresh
// ---------------------------------------------------------------------------

func (m *Monitor) refreshCycle(ctx context.Context) {
	tick := m.refreshTicks.Add(1)

	// The quote price moves slowly, refresh it on a much longer
	// cadence than the alerts themselves.
	if n := int64(m.config.SOLPriceEveryNTicks); n > 0 && tick%n == 0 {
		if err := m.solPrice.Refresh(ctx); err != nil {
			log.Warn().Err(err).Str("component", "monitor").Msg("quote price refresh failed, keeping cached value")
		}
	}

	now := time.Now()
	for _, alert := range m.tracker.Active() {
		if ctx.Err() != nil {
			return
		}
		if now.Sub(alert.DispatchedAt) >= m.config.UpdateBudget() {
			m.expireAlert(ctx, alert)
			continue
		}
		m.refreshAlert(ctx, alert)
	}
}

// refreshAlert re-fetches live market data and edits every delivered
// message in place.
func (m *Monitor) refreshAlert(ctx context.Context, alert *tracker.Alert) {
	var best *token.Pair
	pairs, err := m.market.TokenPairs(ctx, alert.Mint)
	if err != nil {
		log.Debug().
			Err(err).
			Str("component", "monitor").
			Str("mint", alert.Mint.Short()).
			Msg("live pair fetch failed, rendering with last known figures")
	} else {
		best = market.BestPair(pairs)
	}

	content := notify.Render(notify.RenderInput{
		Candidate:      alert.Candidate,
		Classification: alert.Classification,
		Pair:           best,
		BaselineLiq:    alert.BaselineLiq,
		DispatchedAt:   alert.DispatchedAt,
		UpdateInterval: m.config.UpdateInterval(),
		UpdateBudget:   m.config.UpdateBudget(),
	})
	m.editAll(ctx, alert, content)
}

// expireAlert issues the final "tracking ended" edit and evicts the
// alert. The mint stays in the dedup ledger forever.
func (m *Monitor) expireAlert(ctx context.Context, alert *tracker.Alert) {
	content := notify.Render(notify.RenderInput{
		Candidate:      alert.Candidate,
		Classification: alert.Classification,
		BaselineLiq:    alert.BaselineLiq,
		DispatchedAt:   alert.DispatchedAt,
		Ended:          true,
	})
	m.editAll(ctx, alert, content)
	m.tracker.Evict(alert.Mint)

	log.Info().
		Str("component", "monitor").
		Str("mint", alert.Mint.Short()).
		Str("symbol", alert.Candidate.Symbol).
		Msg("live refresh budget spent, alert retired")
}

// editAll applies content to every delivery handle, isolating
// failures per destination. An unchanged-content edit is a no-op.
func (m *Monitor) editAll(ctx context.Context, alert *tracker.Alert, content notify.Content) {
	for _, d := range alert.Deliveries {
		err := m.channel.Edit(ctx, d.Handle, content)
		switch {
		case err == nil:
			m.editsOK.Add(1)
		case errors.Is(err, notify.ErrNotModified):
			m.editsNoop.Add(1)
		default:
			m.editsFailed.Add(1)
			log.Warn().
				Err(err).
				Str("component", "monitor").
				Str("mint", alert.Mint.Short()).
				Int("topic", d.Handle.TopicID).
				Msg("edit failed, continuing with remaining destinations")
		}
	}
}

// Stats is a point-in-time monitor summary.
type Stats struct {
	DiscoveryCycles int64 `json:"discovery_cycles"`
	Candidates      int64 `json:"candidates"`
	Rejected        int64 `json:"rejected"`
	RefreshTicks    int64 `json:"refresh_ticks"`
	EditsOK         int64 `json:"edits_ok"`
	EditsNoop       int64 `json:"edits_noop"`
	EditsFailed     int64 `json:"edits_failed"`
	CyclePanics     int64 `json:"cycle_panics"`
}

func (m *Monitor) Stats() Stats {
	return Stats{
		DiscoveryCycles: m.cycles.Load(),
		Candidates:      m.candidates.Load(),
		Rejected:        m.rejected.Load(),
		RefreshTicks:    m.refreshTicks.Load(),
		EditsOK:         m.editsOK.Load(),
		EditsNoop:       m.editsNoop.Load(),
		EditsFailed:     m.editsFailed.Load(),
		CyclePanics:     m.cyclePanics.Load(),
	}
}
