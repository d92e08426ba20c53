package gate

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Eligibility Gate: short-circuiting filter chain, fail-closed on the
// hard stages (age, safety)
// ---------------------------------------------------------------------------

// MarketData is the per-mint pair lookup the gate depends on.
type MarketData interface {
	TokenPairs(ctx context.Context, mint token.Mint) ([]token.Pair, error)
}

// SafetyReports is the per-mint risk report lookup.
type SafetyReports interface {
	Report(ctx context.Context, mint token.Mint) (*token.SafetyReport, error)
}

// QuotePrice exposes the shared SOL/USD price.
type QuotePrice interface {
	Price() decimal.Decimal
}

// ExcludePredicate rejects candidates whose venue set matches a
// discouraged pattern. It returns a human-readable reason when it
// fires. The default rule rejects tokens observed on a bonding-curve
// venue and Raydium simultaneously.
type ExcludePredicate func(pairs []token.Pair) (bool, string)

// DefaultExclude is the historical bonding-curve-to-Raydium rule.
func DefaultExclude(pairs []token.Pair) (bool, string) {
	var onCurve, onRaydium bool
	for _, p := range pairs {
		switch strings.ToLower(p.DEX) {
		case "pumpfun":
			onCurve = true
		case "raydium":
			onRaydium = true
		}
	}
	if onCurve && onRaydium {
		return true, "bonding-curve token already migrated to raydium"
	}
	return false, ""
}

// Result is the outcome of one gate evaluation. On a pass it carries
// the fetched pairs, the selected best pair, and the safety report so
// later stages of the pipeline do not re-fetch them.
type Result struct {
	Passed bool   `json:"passed"`
	Stage  string `json:"stage,omitempty"`  // stage that rejected, empty on pass
	Reason string `json:"reason,omitempty"`

	Pairs  []token.Pair        `json:"-"`
	Best   *token.Pair         `json:"-"`
	Report *token.SafetyReport `json:"-"`
}

// Gate evaluates candidates against the eligibility chain.
type Gate struct {
	config  config.GateConfig
	market  MarketData
	safety  SafetyReports
	quote   QuotePrice
	exclude ExcludePredicate
	debug   bool

	allowed map[string]bool

	// Stats.
	totalChecked atomic.Int64
	totalPassed  atomic.Int64
	stageCounts  sync.Map // stage name -> *atomic.Int64
}

// New creates an eligibility gate. A nil exclude predicate installs
// the default rule.
func New(cfg config.GateConfig, market MarketData, safety SafetyReports, quote QuotePrice, exclude ExcludePredicate, debug bool) *Gate {
	if exclude == nil {
		exclude = DefaultExclude
	}
	allowed := make(map[string]bool, len(cfg.AllowedVenues))
	for _, v := range cfg.AllowedVenues {
		allowed[strings.ToLower(v)] = true
	}
	return &Gate{
		config:  cfg,
		market:  market,
		safety:  safety,
		quote:   quote,
		exclude: exclude,
		debug:   debug,
		allowed: allowed,
	}
}

// Check runs the filter chain. Any stage failure aborts evaluation.
func (g *Gate) Check(ctx context.Context, cand token.Candidate) Result {
	g.totalChecked.Add(1)

	// Stage 1: tradable market on an allow-listed venue.
	pairs, err := g.market.TokenPairs(ctx, cand.Mint)
	if err != nil {
		return g.reject(cand, "market", fmt.Sprintf("pair lookup failed: %v", err), nil)
	}
	best := g.bestAllowed(pairs)
	if best == nil {
		return g.reject(cand, "market", "no pool on an allow-listed venue", pairs)
	}

	// Stage 2: anti-pattern exclusion.
	if hit, reason := g.exclude(pairs); hit {
		return g.reject(cand, "exclusion", reason, pairs)
	}

	// Stage 3: liquidity floor.
	floor := g.LiquidityFloor()
	if best.LiquidityUSD.LessThan(floor) {
		return g.reject(cand, "liquidity",
			fmt.Sprintf("liquidity %s below floor %s", best.LiquidityUSD, floor), pairs)
	}

	// Stage 4: age window. A missing or future launch timestamp is
	// corrupt data, not a pass-through.
	launched := cand.LaunchedAt
	if launched.IsZero() {
		launched = best.CreatedAt
	}
	if launched.IsZero() {
		return g.reject(cand, "age", "no launch timestamp", pairs)
	}
	age := time.Since(launched)
	if age < 0 {
		return g.reject(cand, "age", "launch timestamp in the future", pairs)
	}
	maxAge := time.Duration(g.config.MaxAgeMinutes) * time.Minute
	if age > maxAge {
		return g.reject(cand, "age", fmt.Sprintf("age %s exceeds max %s", age.Round(time.Second), maxAge), pairs)
	}

	// Stage 5: safety gate, fail-closed on a missing report.
	report, err := g.safety.Report(ctx, cand.Mint)
	if err != nil {
		return g.reject(cand, "safety", fmt.Sprintf("report fetch failed: %v", err), pairs)
	}
	if report == nil {
		return g.reject(cand, "safety", "no safety report", pairs)
	}
	if !report.Clean() {
		return g.reject(cand, "safety",
			fmt.Sprintf("unsafe: freeze=%v mint=%v lp=%v",
				report.FreezeDisabled, report.MintDisabled, report.LPSafe()), pairs)
	}

	g.totalPassed.Add(1)
	return Result{Passed: true, Pairs: pairs, Best: best, Report: report}
}

// LiquidityFloor returns max(MinLiquidityUnits * SOL price, AbsoluteFloorUSD).
// The absolute floor keeps the threshold sane when the quote price feed
// is stale or wrong.
func (g *Gate) LiquidityFloor() decimal.Decimal {
	scaled := decimal.NewFromFloat(g.config.MinLiquidityUnits).Mul(g.quote.Price())
	abs := decimal.NewFromFloat(g.config.AbsoluteFloorUSD)
	if scaled.GreaterThan(abs) {
		return scaled
	}
	return abs
}

// bestAllowed returns the allow-listed pair with the greatest
// liquidity, first-encountered on ties.
func (g *Gate) bestAllowed(pairs []token.Pair) *token.Pair {
	var best *token.Pair
	for i := range pairs {
		if !g.allowed[strings.ToLower(pairs[i].DEX)] {
			continue
		}
		if best == nil || pairs[i].LiquidityUSD.GreaterThan(best.LiquidityUSD) {
			best = &pairs[i]
		}
	}
	return best
}

func (g *Gate) reject(cand token.Candidate, stage, reason string, pairs []token.Pair) Result {
	val, _ := g.stageCounts.LoadOrStore(stage, &atomic.Int64{})
	val.(*atomic.Int64).Add(1)
	if g.debug {
		log.Debug().
			Str("mint", cand.Mint.Short()).
			Str("symbol", cand.Symbol).
			Str("stage", stage).
			Str("reason", reason).
			Msg("gate: candidate rejected")
	}
	return Result{Stage: stage, Reason: reason, Pairs: pairs}
}

// Stats returns gate counters.
type Stats struct {
	TotalChecked int64            `json:"total_checked"`
	TotalPassed  int64            `json:"total_passed"`
	PassRate     float64          `json:"pass_rate_pct"`
	StageCounts  map[string]int64 `json:"stage_counts"`
}

func (g *Gate) Stats() Stats {
	checked := g.totalChecked.Load()
	passed := g.totalPassed.Load()
	rate := 0.0
	if checked > 0 {
		rate = float64(passed) / float64(checked) * 100
	}
	counts := make(map[string]int64)
	g.stageCounts.Range(func(key, value any) bool {
		counts[key.(string)] = value.(*atomic.Int64).Load()
		return true
	})
	return Stats{
		TotalChecked: checked,
		TotalPassed:  passed,
		PassRate:     rate,
		StageCounts:  counts,
	}
}
