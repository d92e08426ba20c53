package classify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/solsignal/solsignal/internal/token"
)

var allowedVenues = []string{"raydium", "orca", "meteora", "pumpswap"}

func pair(dex string) token.Pair {
	return token.Pair{PairAddress: dex + "-pair", DEX: dex}
}

func TestClassify_DirectWhenNoSignal(t *testing.T) {
	c := New(allowedVenues)
	pairs := []token.Pair{pair("raydium")}

	cls := c.Classify(token.Candidate{}, pairs, &pairs[0])
	assert.Equal(t, KindDirect, cls.Kind)
	assert.Empty(t, cls.Platform)
}

func TestClassify_SourcePlatformShortCircuits(t *testing.T) {
	c := New(allowedVenues)
	cand := token.Candidate{SourcePlatform: "Pump.fun"}

	cls := c.Classify(cand, nil, nil)
	assert.Equal(t, KindGraduated, cls.Kind)
	assert.Equal(t, "Pump.fun", cls.Platform)
}

func TestClassify_VenueKeyword(t *testing.T) {
	c := New(allowedVenues)
	cases := map[string]string{
		"pumpswap":          "Pump.fun",
		"moonshot":          "Moonshot",
		"raydium-launchlab": "Raydium LaunchLab",
		"boopdotfun":        "Boop",
	}
	for dex, platform := range cases {
		pairs := []token.Pair{pair(dex)}
		cls := c.Classify(token.Candidate{}, pairs, &pairs[0])
		assert.Equalf(t, KindGraduated, cls.Kind, "dex %s", dex)
		assert.Equalf(t, platform, cls.Platform, "dex %s", dex)
	}
}

func TestClassify_DomainOnBestPairLinks(t *testing.T) {
	c := New(allowedVenues)
	pairs := []token.Pair{pair("raydium")}
	pairs[0].Socials.Website = "https://pump.fun/coin/abc123"

	cls := c.Classify(token.Candidate{}, pairs, &pairs[0])
	assert.Equal(t, KindGraduated, cls.Kind)
	assert.Equal(t, "Pump.fun", cls.Platform)
}

func TestClassify_DomainOnTwitterLink(t *testing.T) {
	c := New(allowedVenues)
	pairs := []token.Pair{pair("orca")}
	pairs[0].Socials.Twitter = "https://x.com/letsbonk_fun?url=letsbonk.fun"

	cls := c.Classify(token.Candidate{}, pairs, &pairs[0])
	assert.Equal(t, KindGraduated, cls.Kind)
	assert.Equal(t, "Bonk.fun", cls.Platform)
}

func TestClassify_MultiVenueHeuristic(t *testing.T) {
	c := New(allowedVenues)
	pairs := []token.Pair{pair("raydium"), pair("someobscuredex")}

	cls := c.Classify(token.Candidate{}, pairs, &pairs[0])
	assert.Equal(t, KindGraduated, cls.Kind)
	assert.Equal(t, PlatformUnknown, cls.Platform)
}

func TestClassify_OffListOnlyIsDirect(t *testing.T) {
	// Off-list with no allow-listed pair gives no migration signal.
	c := New(allowedVenues)
	pairs := []token.Pair{pair("someobscuredex")}

	cls := c.Classify(token.Candidate{}, pairs, nil)
	assert.Equal(t, KindDirect, cls.Kind)
}

func TestClassify_VenueKeywordBeatsHeuristic(t *testing.T) {
	c := New(allowedVenues)
	pairs := []token.Pair{pair("raydium"), pair("moonshot")}

	cls := c.Classify(token.Candidate{}, pairs, &pairs[0])
	assert.Equal(t, KindGraduated, cls.Kind)
	assert.Equal(t, "Moonshot", cls.Platform)
}
