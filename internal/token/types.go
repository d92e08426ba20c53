package token

import (
	"time"

	"github.com/shopspring/decimal"
)

// Mint is a Solana token mint address (base58 string).
type Mint string

// Short returns a truncated mint for log output.
func (m Mint) Short() string {
	if len(m) > 8 {
		return string(m[:8])
	}
	return string(m)
}

// ---------------------------------------------------------------------------
// Candidate: a freshly discovered launch, not yet vetted
// ---------------------------------------------------------------------------

// Candidate is a token discovered by the feed gateway within one
// discovery cycle. It is ephemeral: once dispatched it is retained only
// inside the tracked alert.
type Candidate struct {
	Mint     Mint   `json:"mint"`
	Name     string `json:"name"`   // "Unknown" when absent
	Symbol   string `json:"symbol"` // "???" when absent
	Creator  string `json:"creator,omitempty"`

	FollowerTier   FollowerTier    `json:"follower_tier"`
	TaggedAccounts []TaggedAccount `json:"tagged_accounts,omitempty"`

	Market     MarketSnapshot `json:"market"`
	LaunchedAt time.Time      `json:"launched_at"` // zero = unknown

	Socials        SocialLinks `json:"socials"`
	LogoURL        string      `json:"logo_url,omitempty"`
	GraduationPct  float64     `json:"graduation_pct,omitempty"`
	SourcePlatform string      `json:"source_platform,omitempty"` // non-empty when the feed itself is a bonding-curve venue
}

// TaggedAccount is a notable account associated with a launch.
type TaggedAccount struct {
	Name       string `json:"name"`
	Handle     string `json:"handle"`
	ProfileURL string `json:"profile_url,omitempty"`
	Followers  int64  `json:"followers,omitempty"`
}

// SocialLinks holds the optional social/web links attached to a launch.
type SocialLinks struct {
	Twitter  string `json:"twitter,omitempty"`
	Telegram string `json:"telegram,omitempty"`
	Website  string `json:"website,omitempty"`
}

// MarketSnapshot is the best-known market state for a token. Every
// field is independently optional; zero decimals mean "unknown".
type MarketSnapshot struct {
	PriceUSD     decimal.Decimal `json:"price_usd"`
	MarketCapUSD decimal.Decimal `json:"market_cap_usd"`
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
	Volume24hUSD decimal.Decimal `json:"volume_24h_usd"`
	Volume1hUSD  decimal.Decimal `json:"volume_1h_usd"`
	Volume5mUSD  decimal.Decimal `json:"volume_5m_usd"`
	Change24hPct string          `json:"change_24h_pct,omitempty"`
	Holders      int64           `json:"holders,omitempty"`
}

// ---------------------------------------------------------------------------
// Pair: one trading market for a token on a specific venue
// ---------------------------------------------------------------------------

// Pair describes a pool/pair returned by the market-data provider,
// already filtered to the Solana chain.
type Pair struct {
	PairAddress  string          `json:"pair_address"`
	DEX          string          `json:"dex"` // raydium|pumpfun|orca|meteora|...
	BaseMint     Mint            `json:"base_mint"`
	QuoteMint    Mint            `json:"quote_mint"`
	PriceUSD     decimal.Decimal `json:"price_usd"`
	LiquidityUSD decimal.Decimal `json:"liquidity_usd"`
	MarketCapUSD decimal.Decimal `json:"market_cap_usd"`
	Volume24hUSD decimal.Decimal `json:"volume_24h_usd"`
	Volume1hUSD  decimal.Decimal `json:"volume_1h_usd"`
	Volume5mUSD  decimal.Decimal `json:"volume_5m_usd"`
	Change24hPct string          `json:"change_24h_pct,omitempty"`
	Txns24h      int64           `json:"txns_24h,omitempty"`
	CreatedAt    time.Time       `json:"created_at"` // zero = unknown
	Socials      SocialLinks     `json:"socials"`
}

// ---------------------------------------------------------------------------
// SafetyReport: externally supplied risk assessment
// ---------------------------------------------------------------------------

// SafetyReport is the risk assessment for a mint, derived from the
// safety provider's named risk flags.
type SafetyReport struct {
	Mint  Mint     `json:"mint"`
	Risks []string `json:"risks"`

	FreezeDisabled bool `json:"freeze_disabled"`
	MintDisabled   bool `json:"mint_disabled"`
	LPBurned       bool `json:"lp_burned"`
	LPLocked       bool `json:"lp_locked"`
}

// LPSafe returns true if the LP is confirmed burned or locked.
func (r SafetyReport) LPSafe() bool {
	return r.LPBurned || r.LPLocked
}

// Clean returns true if every hard safety condition holds.
func (r SafetyReport) Clean() bool {
	return r.FreezeDisabled && r.MintDisabled && r.LPSafe()
}
