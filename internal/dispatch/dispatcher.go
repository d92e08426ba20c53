package dispatch

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/solsignal/solsignal/internal/classify"
	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/notify"
	"github.com/solsignal/solsignal/internal/route"
	"github.com/solsignal/solsignal/internal/token"
	"github.com/solsignal/solsignal/internal/tracker"
)

// ---------------------------------------------------------------------------
// Dispatcher: fans a vetted launch out to its routed destinations
// ---------------------------------------------------------------------------

// Dispatcher renders an alert once and sends it to every destination
// the router resolves for the candidate's tier. Destination failures
// are isolated: one bad topic never blocks the rest.
type Dispatcher struct {
	config  config.AlertsConfig
	monitor config.MonitorConfig

	channel notify.Channel
	router  *route.Router
	tracker *tracker.Tracker
	limiter *rate.Limiter

	dispatched  atomic.Int64
	sendsOK     atomic.Int64
	sendsFailed atomic.Int64
	dropped     atomic.Int64
}

func New(alerts config.AlertsConfig, monitor config.MonitorConfig, channel notify.Channel, router *route.Router, trk *tracker.Tracker) *Dispatcher {
	rps := alerts.SendsPerSecond
	if rps <= 0 {
		rps = 3.0
	}
	return &Dispatcher{
		config:  alerts,
		monitor: monitor,
		channel: channel,
		router:  router,
		tracker: trk,
		limiter: rate.NewLimiter(rate.Limit(rps), 1),
	}
}

// Dispatch sends the alert for a vetted candidate. By default the
// caller has already marked the mint in the dedup ledger, so a total
// send failure permanently suppresses the launch. With
// alerts.mark_after_send the mint is marked here instead, only once a
// destination accepted the message, and a total failure leaves it
// eligible for the next cycle.
//
// Returns the registered alert, or nil when every send failed.
func (d *Dispatcher) Dispatch(ctx context.Context, cand token.Candidate, cls classify.Classification, pair *token.Pair) *tracker.Alert {
	now := time.Now()
	content := notify.Render(notify.RenderInput{
		Candidate:      cand,
		Classification: cls,
		Pair:           pair,
		DispatchedAt:   now,
		UpdateInterval: d.monitor.UpdateInterval(),
		UpdateBudget:   d.monitor.UpdateBudget(),
	})

	dests := d.router.Route(cand.FollowerTier)
	deliveries := make([]tracker.Delivery, 0, len(dests))
	for _, dest := range dests {
		if err := d.limiter.Wait(ctx); err != nil {
			break
		}
		handle, err := d.channel.Send(ctx, dest, content)
		if err != nil {
			d.sendsFailed.Add(1)
			log.Warn().
				Err(err).
				Str("component", "dispatch").
				Str("mint", cand.Mint.Short()).
				Int("topic", dest.TopicID).
				Msg("send failed, continuing with remaining destinations")
			continue
		}
		d.sendsOK.Add(1)
		deliveries = append(deliveries, tracker.Delivery{Destination: dest, Handle: handle})
	}

	if len(deliveries) == 0 {
		d.dropped.Add(1)
		log.Error().
			Str("component", "dispatch").
			Str("mint", cand.Mint.Short()).
			Int("destinations", len(dests)).
			Msg("alert dropped, every destination send failed")
		return nil
	}

	if d.config.MarkAfterSend {
		d.tracker.MarkSeen(cand.Mint)
	}

	baseline := cand.Market.LiquidityUSD
	if pair != nil && pair.LiquidityUSD.IsPositive() {
		baseline = pair.LiquidityUSD
	}

	alert := &tracker.Alert{
		ID:             uuid.New(),
		Mint:           cand.Mint,
		Candidate:      cand,
		Classification: cls,
		Deliveries:     deliveries,
		BaselineLiq:    baseline,
		DispatchedAt:   now,
	}
	d.tracker.Register(alert)

	d.dispatched.Add(1)
	log.Info().
		Str("component", "dispatch").
		Str("mint", cand.Mint.Short()).
		Str("symbol", cand.Symbol).
		Str("kind", string(cls.Kind)).
		Str("tier", cand.FollowerTier.Display()).
		Int("delivered", len(deliveries)).
		Int("destinations", len(dests)).
		Msg("alert dispatched")
	return alert
}

// Stats is a point-in-time dispatcher summary.
type Stats struct {
	Dispatched  int64 `json:"dispatched"`
	SendsOK     int64 `json:"sends_ok"`
	SendsFailed int64 `json:"sends_failed"`
	Dropped     int64 `json:"dropped"`
}

func (d *Dispatcher) Stats() Stats {
	return Stats{
		Dispatched:  d.dispatched.Load(),
		SendsOK:     d.sendsOK.Load(),
		SendsFailed: d.sendsFailed.Load(),
		Dropped:     d.dropped.Load(),
	}
}
