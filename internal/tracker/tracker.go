package tracker

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/solsignal/solsignal/internal/classify"
	"github.com/solsignal/solsignal/internal/notify"
	"github.com/solsignal/solsignal/internal/route"
	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Tracker: dedup ledger and live-alert table
// ---------------------------------------------------------------------------

// Delivery is one successfully sent message for an alert.
type Delivery struct {
	Destination route.Destination
	Handle      notify.Handle
}

// Alert is a dispatched launch under live refresh. Fields are owned by
// the tracker and must be read through snapshots while registered.
type Alert struct {
	ID             uuid.UUID
	Mint           token.Mint
	Candidate      token.Candidate
	Classification classify.Classification
	Deliveries     []Delivery
	BaselineLiq    decimal.Decimal
	DispatchedAt   time.Time
}

// Tracker remembers every mint it has processed (at-most-once across
// the process lifetime) and holds the alerts still receiving edits.
// All state is in-memory; a restart starts a fresh ledger.
type Tracker struct {
	mu     sync.Mutex
	seen   map[token.Mint]struct{}
	active map[token.Mint]*Alert

	registered atomic.Int64
	evicted    atomic.Int64
}

func New() *Tracker {
	return &Tracker{
		seen:   make(map[token.Mint]struct{}),
		active: make(map[token.Mint]*Alert),
	}
}

// Seen reports whether the mint was already marked this process.
func (t *Tracker) Seen(mint token.Mint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.seen[mint]
	return ok
}

// MarkSeen records the mint in the dedup ledger. It returns false if
// the mint was already present, which lets callers claim a mint
// exactly once even across overlapping feed results.
func (t *Tracker) MarkSeen(mint token.Mint) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.seen[mint]; ok {
		return false
	}
	t.seen[mint] = struct{}{}
	return true
}

// Register puts a dispatched alert under live refresh.
func (t *Tracker) Register(a *Alert) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	t.mu.Lock()
	t.active[a.Mint] = a
	n := len(t.active)
	t.mu.Unlock()

	t.registered.Add(1)
	log.Debug().
		Str("component", "tracker").
		Str("mint", a.Mint.Short()).
		Str("alert_id", a.ID.String()).
		Int("active", n).
		Msg("alert registered for live refresh")
}

// Active returns a snapshot of the alerts currently under refresh.
func (t *Tracker) Active() []*Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]*Alert, 0, len(t.active))
	for _, a := range t.active {
		out = append(out, a)
	}
	return out
}

// ActiveCount returns the number of alerts under refresh.
func (t *Tracker) ActiveCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.active)
}

// Evict removes an alert from the refresh set. The dedup ledger entry
// stays, so the mint will never alert again this process.
func (t *Tracker) Evict(mint token.Mint) {
	t.mu.Lock()
	a, ok := t.active[mint]
	if ok {
		delete(t.active, mint)
	}
	t.mu.Unlock()
	if !ok {
		return
	}

	t.evicted.Add(1)
	log.Debug().
		Str("component", "tracker").
		Str("mint", mint.Short()).
		Str("alert_id", a.ID.String()).
		Dur("tracked_for", time.Since(a.DispatchedAt)).
		Msg("alert evicted from live refresh")
}

// Expired returns the active alerts whose refresh budget has elapsed.
func (t *Tracker) Expired(now time.Time, budget time.Duration) []*Alert {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []*Alert
	for _, a := range t.active {
		if now.Sub(a.DispatchedAt) >= budget {
			out = append(out, a)
		}
	}
	return out
}

// Stats is a point-in-time tracker summary.
type Stats struct {
	SeenTotal  int   `json:"seen_total"`
	Active     int   `json:"active"`
	Registered int64 `json:"registered"`
	Evicted    int64 `json:"evicted"`
}

func (t *Tracker) Stats() Stats {
	t.mu.Lock()
	seen, active := len(t.seen), len(t.active)
	t.mu.Unlock()
	return Stats{
		SeenTotal:  seen,
		Active:     active,
		Registered: t.registered.Load(),
		Evicted:    t.evicted.Load(),
	}
}
