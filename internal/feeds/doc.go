package feeds

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Feed document: upstream payload shape and normalization
// ---------------------------------------------------------------------------

// feedEnvelope is the wrapped success shape: {status:true,data:{docs:[...]}}.
type feedEnvelope struct {
	Status bool `json:"status"`
	Data   struct {
		Docs []feedDoc `json:"docs"`
	} `json:"data"`
}

// feedDoc is one launch document as the feed reports it.
type feedDoc struct {
	Token struct {
		Address              string      `json:"address"`
		Name                 string      `json:"name"`
		Symbol               string      `json:"symbol"`
		MarketCap            flexDecimal `json:"marketCap"`
		Holders              int64       `json:"holders"`
		GraduationPercentage float64     `json:"graduationPercentage"`
		PriceChange24Hrs     string      `json:"priceChange24Hrs"`
		Volume24Hrs          flexDecimal `json:"volume24Hrs"`
		Volume1Hrs           flexDecimal `json:"volume1Hrs"`
		Volume5Mins          flexDecimal `json:"volume5Mins"`
	} `json:"token"`
	UserID struct {
		Name     string `json:"name"`
		UserName string `json:"userName"`
		Twitter  struct {
			FollowersFormatted string `json:"followersFormatted"`
		} `json:"twitter"`
	} `json:"userId"`
	MetaData struct {
		TagUserProfiles []struct {
			Name           string `json:"name"`
			UserName       string `json:"userName"`
			ProfileURL     string `json:"profileURL"`
			FollowersCount int64  `json:"followersCount"`
		} `json:"tagUserProfiles"`
		TwitterLink  string `json:"twitterLink"`
		TelegramLink string `json:"telegramLink"`
		WebsiteLink  string `json:"websiteLink"`
	} `json:"metaData"`
	AddedOn string `json:"addedOn"`
	Media   []struct {
		ThumbnailURL string `json:"thumbnailUrl"`
	} `json:"media"`
}

// maxTaggedAccounts caps the displayed "followed by" list.
const maxTaggedAccounts = 3

// normalize converts a raw feed document into a Candidate. Missing
// display fields fall back to sentinels; a missing address returns ok=false.
func (d feedDoc) normalize() (token.Candidate, bool) {
	mint := token.Mint(d.Token.Address)
	if mint == "" {
		return token.Candidate{}, false
	}

	cand := token.Candidate{
		Mint:          mint,
		Name:          d.Token.Name,
		Symbol:        d.Token.Symbol,
		Creator:       d.UserID.Name,
		FollowerTier:  token.ParseTier(d.UserID.Twitter.FollowersFormatted),
		GraduationPct: d.Token.GraduationPercentage,
		Market: token.MarketSnapshot{
			MarketCapUSD: d.Token.MarketCap.Decimal(),
			Volume24hUSD: d.Token.Volume24Hrs.Decimal(),
			Volume1hUSD:  d.Token.Volume1Hrs.Decimal(),
			Volume5mUSD:  d.Token.Volume5Mins.Decimal(),
			Change24hPct: d.Token.PriceChange24Hrs,
			Holders:      d.Token.Holders,
		},
		Socials: token.SocialLinks{
			Twitter:  d.MetaData.TwitterLink,
			Telegram: d.MetaData.TelegramLink,
			Website:  d.MetaData.WebsiteLink,
		},
	}
	if cand.Name == "" {
		cand.Name = "Unknown"
	}
	if cand.Symbol == "" {
		cand.Symbol = "???"
	}
	if cand.Creator == "" {
		cand.Creator = d.UserID.UserName
	}
	if cand.Creator == "" {
		cand.Creator = "Unknown"
	}

	for _, t := range d.MetaData.TagUserProfiles {
		if len(cand.TaggedAccounts) >= maxTaggedAccounts {
			break
		}
		acct := token.TaggedAccount{
			Name:       t.Name,
			Handle:     t.UserName,
			ProfileURL: t.ProfileURL,
			Followers:  t.FollowersCount,
		}
		if acct.Name == "" {
			acct.Name = t.UserName
		}
		if acct.ProfileURL == "" && acct.Handle != "" {
			acct.ProfileURL = "https://x.com/" + acct.Handle
		}
		cand.TaggedAccounts = append(cand.TaggedAccounts, acct)
	}

	if ts, err := time.Parse(time.RFC3339, d.AddedOn); err == nil {
		cand.LaunchedAt = ts
	}

	if len(d.Media) > 0 {
		cand.LogoURL = d.Media[0].ThumbnailURL
	}

	return cand, true
}

// flexDecimal decodes a decimal that the feed may report as a JSON
// number or a formatted string ("$12,345.67").
type flexDecimal struct {
	val decimal.Decimal
}

func (f *flexDecimal) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || string(data) == "null" {
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.NewReplacer("$", "", ",", "").Replace(strings.TrimSpace(s))
		if s == "" {
			return nil
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			// Unparseable display string: treat as unknown, not an error.
			return nil
		}
		f.val = d
		return nil
	}
	d, err := decimal.NewFromString(string(data))
	if err != nil {
		return nil
	}
	f.val = d
	return nil
}

// Decimal returns the decoded value, zero when unknown.
func (f flexDecimal) Decimal() decimal.Decimal {
	return f.val
}
