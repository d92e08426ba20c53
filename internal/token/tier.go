package token

import "strings"

// FollowerTier is the categorical follower-count bucket of the
// launching account, as reported by the upstream feed. Tiers are
// strictly ordered; routing breadth grows monotonically with the tier.
type FollowerTier string

const (
	Tier0   FollowerTier = "0-1k"
	Tier1K  FollowerTier = "1k+"
	Tier10K FollowerTier = "10k+"
	Tier25K FollowerTier = "25k+"
	Tier50K FollowerTier = "50k+"
	Tier100K FollowerTier = "100k+"
	Tier250K FollowerTier = "250k+"
	Tier500K FollowerTier = "500k+"
	Tier1M  FollowerTier = "1m+"
	Tier5M  FollowerTier = "5m+"
	Tier10M FollowerTier = "10m+"
	Tier15M FollowerTier = "15m+"
)

// tierRank gives each tier its position in the ordering. Unknown tiers
// rank lowest so they fall back to the broadest-only routing.
var tierRank = map[FollowerTier]int{
	Tier0: 0, Tier1K: 1, Tier10K: 2, Tier25K: 3,
	Tier50K: 4, Tier100K: 5, Tier250K: 6, Tier500K: 7,
	Tier1M: 8, Tier5M: 9, Tier10M: 10, Tier15M: 11,
}

// tierDisplay matches the upstream board's display strings.
var tierDisplay = map[FollowerTier]string{
	Tier0: "⚪ 0-1k", Tier1K: "🟢 1k+", Tier10K: "🟢 10k+", Tier25K: "🔵 25k+",
	Tier50K: "🔵 50k+", Tier100K: "🟣 100k+", Tier250K: "🟣 250k+", Tier500K: "🟠 500k+",
	Tier1M: "🔴 1M+", Tier5M: "🔴 5M+", Tier10M: "🔴 10M+", Tier15M: "🔴 15M+",
}

// ParseTier normalizes a raw feed tier string. Empty or unrecognized
// input maps to the lowest tier rather than rejecting the candidate.
func ParseTier(s string) FollowerTier {
	t := FollowerTier(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := tierRank[t]; ok {
		return t
	}
	return Tier0
}

// Rank returns the tier's position in the ordering (0 = lowest).
func (t FollowerTier) Rank() int {
	return tierRank[t]
}

// AtLeast reports whether t is at or above other in the tier ordering.
func (t FollowerTier) AtLeast(other FollowerTier) bool {
	return tierRank[t] >= tierRank[other]
}

// Display returns the human-readable tier label with its color marker.
func (t FollowerTier) Display() string {
	if d, ok := tierDisplay[t]; ok {
		return d
	}
	return "⚪ " + string(t)
}
