package classify

import (
	"strings"

	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Launch Classifier: direct listing vs. bonding-curve graduation
// ---------------------------------------------------------------------------

// Kind is the launch path of a candidate.
type Kind string

const (
	KindDirect    Kind = "direct"
	KindGraduated Kind = "graduated"
)

// PlatformUnknown marks a graduation whose origin platform could not
// be identified.
const PlatformUnknown = "Unknown"

// Classification is the classifier's verdict.
type Classification struct {
	Kind     Kind   `json:"kind"`
	Platform string `json:"platform,omitempty"` // set when graduated
}

// venueKeywords maps venue identifier substrings to bonding-curve
// platform display names.
var venueKeywords = map[string]string{
	"pumpfun":  "Pump.fun",
	"pumpswap": "Pump.fun",
	"moonshot": "Moonshot",
	"launchpad": "Raydium LaunchLab",
	"launchlab": "Raydium LaunchLab",
	"boop":     "Boop",
	"daos":     "daos.fun",
}

// domainKeywords maps social/website domains to bonding-curve
// platforms, used when no venue matches.
var domainKeywords = map[string]string{
	"pump.fun":      "Pump.fun",
	"moonshot":      "Moonshot",
	"boop.fun":      "Boop",
	"daos.fun":      "daos.fun",
	"letsbonk.fun":  "Bonk.fun",
}

// Classifier determines the launch path from a candidate's venue set.
type Classifier struct {
	allowed map[string]bool
}

// New creates a classifier. allowedVenues is the gate's venue
// allow-list, needed for the multi-venue migration heuristic.
func New(allowedVenues []string) *Classifier {
	allowed := make(map[string]bool, len(allowedVenues))
	for _, v := range allowedVenues {
		allowed[strings.ToLower(v)] = true
	}
	return &Classifier{allowed: allowed}
}

// Classify inspects a candidate and its pairs. Signals in priority
// order: the candidate's own source feed, venue identifier keywords,
// bonding-curve domains on the best pair's links, then the multi-venue
// presence heuristic. No signal means a direct listing.
func (c *Classifier) Classify(cand token.Candidate, pairs []token.Pair, best *token.Pair) Classification {
	// A candidate from a bonding-curve source feed is graduated by
	// construction.
	if cand.SourcePlatform != "" {
		return Classification{Kind: KindGraduated, Platform: cand.SourcePlatform}
	}

	for _, p := range pairs {
		dex := strings.ToLower(p.DEX)
		for kw, platform := range venueKeywords {
			if strings.Contains(dex, kw) {
				return Classification{Kind: KindGraduated, Platform: platform}
			}
		}
	}

	if best != nil {
		for _, link := range []string{best.Socials.Website, best.Socials.Twitter, best.Socials.Telegram} {
			l := strings.ToLower(link)
			if l == "" {
				continue
			}
			for domain, platform := range domainKeywords {
				if strings.Contains(l, domain) {
					return Classification{Kind: KindGraduated, Platform: platform}
				}
			}
		}
	}

	// Trading on an allow-listed venue plus somewhere off-list implies
	// a migration from somewhere, even if we cannot name it.
	var onAllowed, offAllowed bool
	for _, p := range pairs {
		if c.allowed[strings.ToLower(p.DEX)] {
			onAllowed = true
		} else {
			offAllowed = true
		}
	}
	if onAllowed && offAllowed {
		return Classification{Kind: KindGraduated, Platform: PlatformUnknown}
	}

	return Classification{Kind: KindDirect}
}
