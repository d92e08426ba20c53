package feeds

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solsignal/solsignal/internal/token"
)

func TestNormalize_MissingAddressRejected(t *testing.T) {
	var d feedDoc
	_, ok := d.normalize()
	assert.False(t, ok)
}

func TestNormalize_SentinelDefaults(t *testing.T) {
	var d feedDoc
	d.Token.Address = "mint-a"

	cand, ok := d.normalize()
	require.True(t, ok)
	assert.Equal(t, "Unknown", cand.Name)
	assert.Equal(t, "???", cand.Symbol)
	assert.Equal(t, "Unknown", cand.Creator)
	assert.Equal(t, token.Tier0, cand.FollowerTier)
	assert.True(t, cand.LaunchedAt.IsZero())
}

func TestNormalize_CreatorFallsBackToUserName(t *testing.T) {
	var d feedDoc
	d.Token.Address = "mint-a"
	d.UserID.UserName = "devhandle"

	cand, _ := d.normalize()
	assert.Equal(t, "devhandle", cand.Creator)
}

func TestNormalize_TaggedAccountsCapped(t *testing.T) {
	var d feedDoc
	d.Token.Address = "mint-a"
	for i := 0; i < 5; i++ {
		d.MetaData.TagUserProfiles = append(d.MetaData.TagUserProfiles, struct {
			Name           string `json:"name"`
			UserName       string `json:"userName"`
			ProfileURL     string `json:"profileURL"`
			FollowersCount int64  `json:"followersCount"`
		}{UserName: "acct", FollowersCount: 10})
	}

	cand, _ := d.normalize()
	assert.Len(t, cand.TaggedAccounts, maxTaggedAccounts)
	assert.Equal(t, "acct", cand.TaggedAccounts[0].Name, "name falls back to handle")
	assert.Equal(t, "https://x.com/acct", cand.TaggedAccounts[0].ProfileURL)
}

func TestFlexDecimal_Variants(t *testing.T) {
	var payload struct {
		A flexDecimal `json:"a"`
		B flexDecimal `json:"b"`
		C flexDecimal `json:"c"`
		D flexDecimal `json:"d"`
	}
	raw := `{"a": 1234.5, "b": "$12,500", "c": null, "d": "n/a"}`
	require.NoError(t, json.Unmarshal([]byte(raw), &payload))

	assert.True(t, payload.A.Decimal().Equal(decimal.NewFromFloat(1234.5)))
	assert.True(t, payload.B.Decimal().Equal(decimal.NewFromInt(12500)))
	assert.True(t, payload.C.Decimal().IsZero())
	assert.True(t, payload.D.Decimal().IsZero(), "junk display strings decode as unknown")
}

func TestNormalize_LogoFromFirstMedia(t *testing.T) {
	var d feedDoc
	d.Token.Address = "mint-a"
	d.Media = append(d.Media, struct {
		ThumbnailURL string `json:"thumbnailUrl"`
	}{ThumbnailURL: "https://cdn.example/logo.png"})

	cand, _ := d.normalize()
	assert.Equal(t, "https://cdn.example/logo.png", cand.LogoURL)
}
