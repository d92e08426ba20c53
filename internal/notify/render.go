package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solsignal/solsignal/internal/classify"
	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Alert renderer: one template for initial sends and live updates
// ---------------------------------------------------------------------------

const separator = "――――――――――――――――――――――"

// RenderInput collects everything the template needs. Pair and
// BaselineLiquidity are optional: a nil pair falls back to the
// candidate's own snapshot, a zero baseline suppresses the drift line.
type RenderInput struct {
	Candidate      token.Candidate
	Classification classify.Classification
	Pair           *token.Pair
	BaselineLiq    decimal.Decimal
	DispatchedAt   time.Time
	UpdateInterval time.Duration
	UpdateBudget   time.Duration
	Ended          bool // final "tracking ended" render
}

// Render builds the alert content. The same template serves the first
// send and every live refresh; only the live figures change, so an
// unchanged market state renders byte-identical content and the edit
// becomes a no-op.
func Render(in RenderInput) Content {
	cand := in.Candidate
	m := liveSnapshot(cand, in.Pair)

	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	header := "🌐 *New Launch*"
	if in.Classification.Kind == classify.KindGraduated {
		platform := in.Classification.Platform
		if platform == "" {
			platform = classify.PlatformUnknown
		}
		header = fmt.Sprintf("🎓 *Graduated Launch* — %s", platform)
	}
	line(header)
	line(separator)
	line("🪙 *%s* $%s", cand.Name, cand.Symbol)
	line("👤 *Dev:* %s", cand.Creator)
	line("👥 *Followers:* %s", cand.FollowerTier.Display())
	line("👀 *Followed by:* %s", followedBy(cand.TaggedAccounts))
	line(separator)
	line("💰 *Market Cap:* %s", fmtUSD(m.MarketCapUSD))
	line("👥 *Holders:* %s", fmtCount(m.Holders))
	line("📈 *24h Change:* %s", orDash(m.Change24hPct))
	line("📊 *Vol 24h:* %s  |  *1h:* %s  |  *5m:* %s",
		fmtUSD(m.Volume24hUSD), fmtUSD(m.Volume1hUSD), fmtUSD(m.Volume5mUSD))
	line("💧 *Liquidity:* %s%s", fmtUSD(m.LiquidityUSD), drift(m.LiquidityUSD, in.BaselineLiq))
	if cand.GraduationPct > 0 {
		line("🎓 *Graduation:* %.0f%%", cand.GraduationPct)
	}
	line("📋 *Contract:*")
	line("`%s`", cand.Mint)
	line(separator)
	line("🕐 Launched: %s", launchedAgo(cand.LaunchedAt))

	switch {
	case in.Ended:
		b.WriteString("⚫ Tracking ended")
	default:
		b.WriteString(fmt.Sprintf("🔴 LIVE — updates every %s for %s",
			shortDuration(in.UpdateInterval), shortDuration(in.UpdateBudget)))
	}

	return Content{
		Text:     b.String(),
		Buttons:  buttons(cand),
		PhotoURL: cand.LogoURL,
	}
}

// liveSnapshot overlays live pair figures on the candidate's snapshot.
func liveSnapshot(cand token.Candidate, pair *token.Pair) token.MarketSnapshot {
	m := cand.Market
	if pair == nil {
		return m
	}
	if pair.MarketCapUSD.IsPositive() {
		m.MarketCapUSD = pair.MarketCapUSD
	}
	if pair.LiquidityUSD.IsPositive() {
		m.LiquidityUSD = pair.LiquidityUSD
	}
	if pair.Volume24hUSD.IsPositive() {
		m.Volume24hUSD = pair.Volume24hUSD
	}
	if pair.Volume1hUSD.IsPositive() {
		m.Volume1hUSD = pair.Volume1hUSD
	}
	if pair.Volume5mUSD.IsPositive() {
		m.Volume5mUSD = pair.Volume5mUSD
	}
	if pair.Change24hPct != "" {
		m.Change24hPct = pair.Change24hPct
	}
	return m
}

// drift renders the liquidity move against the dispatch baseline.
func drift(current, baseline decimal.Decimal) string {
	if !baseline.IsPositive() || !current.IsPositive() {
		return ""
	}
	pct := current.Sub(baseline).Div(baseline).Mul(decimal.NewFromInt(100))
	f, _ := pct.Round(1).Float64()
	if f >= 0 {
		return fmt.Sprintf("  (▲ %.1f%%)", f)
	}
	return fmt.Sprintf("  (▼ %.1f%%)", -f)
}

func followedBy(accounts []token.TaggedAccount) string {
	if len(accounts) == 0 {
		return "Not followed by anyone"
	}
	parts := make([]string, 0, len(accounts))
	for _, a := range accounts {
		entry := fmt.Sprintf("[%s](%s)", a.Name, a.ProfileURL)
		if a.Followers > 0 {
			entry += " (" + fmtFollowers(a.Followers) + ")"
		}
		parts = append(parts, entry)
	}
	return strings.Join(parts, ", ")
}

func buttons(cand token.Candidate) [][]Button {
	mint := string(cand.Mint)
	rows := [][]Button{
		{
			{Text: "🌐 Anoncoin", URL: "https://anoncoin.it/token/" + mint},
			{Text: "📊 DexScreener", URL: "https://dexscreener.com/solana/" + mint},
		},
		{
			{Text: "⚡ Photon", URL: "https://photon-sol.tinyastro.io/en/lp/" + mint},
			{Text: "🔍 Axiom", URL: "https://axiom.trade/t/" + mint + "?chain=sol"},
		},
	}
	var socials []Button
	if cand.Socials.Twitter != "" {
		socials = append(socials, Button{Text: "🐦 Twitter", URL: cand.Socials.Twitter})
	}
	if cand.Socials.Telegram != "" {
		socials = append(socials, Button{Text: "✈️ Telegram", URL: cand.Socials.Telegram})
	}
	if cand.Socials.Website != "" {
		socials = append(socials, Button{Text: "🌍 Website", URL: cand.Socials.Website})
	}
	if len(socials) > 0 {
		rows = append(rows, socials)
	}
	return rows
}

// ---------------------------------------------------------------------------
// Formatting helpers
// ---------------------------------------------------------------------------

var (
	million  = decimal.NewFromInt(1_000_000)
	thousand = decimal.NewFromInt(1_000)
)

func fmtUSD(d decimal.Decimal) string {
	if !d.IsPositive() {
		return "—"
	}
	switch {
	case d.GreaterThanOrEqual(million):
		f, _ := d.Div(million).Float64()
		return fmt.Sprintf("$%.2fM", f)
	case d.GreaterThanOrEqual(thousand):
		f, _ := d.Div(thousand).Float64()
		return fmt.Sprintf("$%.1fK", f)
	default:
		f, _ := d.Float64()
		return fmt.Sprintf("$%.2f", f)
	}
}

func fmtCount(n int64) string {
	if n <= 0 {
		return "0"
	}
	s := fmt.Sprintf("%d", n)
	var out []byte
	for i, c := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, c)
	}
	return string(out)
}

func fmtFollowers(n int64) string {
	switch {
	case n >= 1_000_000:
		return fmt.Sprintf("%.1fM", float64(n)/1_000_000)
	case n >= 1_000:
		return fmt.Sprintf("%.0fK", float64(n)/1_000)
	default:
		return fmt.Sprintf("%d", n)
	}
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func launchedAgo(t time.Time) string {
	if t.IsZero() {
		return "—"
	}
	secs := int(time.Since(t).Seconds())
	if secs < 0 {
		secs = -secs
	}
	switch {
	case secs < 60:
		return fmt.Sprintf("%ds ago", secs)
	case secs < 3600:
		return fmt.Sprintf("%dm %ds ago", secs/60, secs%60)
	default:
		return fmt.Sprintf("%dh %dm ago", secs/3600, (secs%3600)/60)
	}
}

func shortDuration(d time.Duration) string {
	if d >= time.Hour && d%time.Hour == 0 {
		return fmt.Sprintf("%dh", d/time.Hour)
	}
	if d >= time.Minute && d%time.Minute == 0 {
		return fmt.Sprintf("%dm", d/time.Minute)
	}
	return fmt.Sprintf("%ds", int(d.Seconds()))
}
