package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// DexScreener client: per-mint pool/pair lookup filtered to one chain
// https://docs.dexscreener.com/api/reference
// ---------------------------------------------------------------------------

// Client queries the market-data provider for a token's trading pairs.
type Client struct {
	baseURL    string
	chainID    string
	httpClient *http.Client

	// Stats.
	lookupCount atomic.Int64
	errorCount  atomic.Int64
	emptyCount  atomic.Int64
}

// NewClient creates a market-data client.
func NewClient(cfg config.MarketConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		chainID: cfg.ChainID,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// pairsResponse is the provider's token lookup payload.
type pairsResponse struct {
	Pairs []struct {
		ChainID     string `json:"chainId"`
		DexID       string `json:"dexId"`
		PairAddress string `json:"pairAddress"`
		BaseToken   struct {
			Address string `json:"address"`
		} `json:"baseToken"`
		QuoteToken struct {
			Address string `json:"address"`
		} `json:"quoteToken"`
		PriceUSD  string `json:"priceUsd"`
		Liquidity struct {
			USD float64 `json:"usd"`
		} `json:"liquidity"`
		MarketCap float64 `json:"marketCap"`
		FDV       float64 `json:"fdv"`
		Volume    struct {
			H24 float64 `json:"h24"`
			H1  float64 `json:"h1"`
			M5  float64 `json:"m5"`
		} `json:"volume"`
		PriceChange struct {
			H24 float64 `json:"h24"`
		} `json:"priceChange"`
		Txns struct {
			H24 struct {
				Buys  int64 `json:"buys"`
				Sells int64 `json:"sells"`
			} `json:"h24"`
		} `json:"txns"`
		PairCreatedAt int64 `json:"pairCreatedAt"` // unix millis
		Info          struct {
			Websites []struct {
				URL string `json:"url"`
			} `json:"websites"`
			Socials []struct {
				Type string `json:"type"`
				URL  string `json:"url"`
			} `json:"socials"`
		} `json:"info"`
	} `json:"pairs"`
}

// TokenPairs returns every pair for a mint on the configured chain.
// An empty result with nil error means the token has no tracked market.
func (c *Client) TokenPairs(ctx context.Context, mint token.Mint) ([]token.Pair, error) {
	c.lookupCount.Add(1)

	url := fmt.Sprintf("%s/latest/dex/tokens/%s", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("market: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("market: lookup HTTP error: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("market: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("market: lookup HTTP %d", resp.StatusCode)
	}

	var parsed pairsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("market: parse response: %w", err)
	}

	var pairs []token.Pair
	for _, p := range parsed.Pairs {
		if p.ChainID != c.chainID {
			continue
		}
		price, _ := decimal.NewFromString(p.PriceUSD)
		mc := p.MarketCap
		if mc == 0 {
			mc = p.FDV
		}
		pair := token.Pair{
			PairAddress:  p.PairAddress,
			DEX:          p.DexID,
			BaseMint:     token.Mint(p.BaseToken.Address),
			QuoteMint:    token.Mint(p.QuoteToken.Address),
			PriceUSD:     price,
			LiquidityUSD: decimal.NewFromFloat(p.Liquidity.USD),
			MarketCapUSD: decimal.NewFromFloat(mc),
			Volume24hUSD: decimal.NewFromFloat(p.Volume.H24),
			Volume1hUSD:  decimal.NewFromFloat(p.Volume.H1),
			Volume5mUSD:  decimal.NewFromFloat(p.Volume.M5),
			Change24hPct: fmt.Sprintf("%.2f%%", p.PriceChange.H24),
			Txns24h:      p.Txns.H24.Buys + p.Txns.H24.Sells,
		}
		if p.PairCreatedAt > 0 {
			pair.CreatedAt = time.UnixMilli(p.PairCreatedAt)
		}
		if len(p.Info.Websites) > 0 {
			pair.Socials.Website = p.Info.Websites[0].URL
		}
		for _, s := range p.Info.Socials {
			switch s.Type {
			case "twitter":
				pair.Socials.Twitter = s.URL
			case "telegram":
				pair.Socials.Telegram = s.URL
			}
		}
		pairs = append(pairs, pair)
	}

	if len(pairs) == 0 {
		c.emptyCount.Add(1)
		log.Debug().Str("mint", mint.Short()).Msg("market: no pairs on chain")
	}
	return pairs, nil
}

// BestPair returns the pair with the greatest current liquidity.
// Ties keep the first-encountered pair. Nil when the list is empty.
func BestPair(pairs []token.Pair) *token.Pair {
	var best *token.Pair
	for i := range pairs {
		if best == nil || pairs[i].LiquidityUSD.GreaterThan(best.LiquidityUSD) {
			best = &pairs[i]
		}
	}
	return best
}

// Stats returns market-data client counters.
type Stats struct {
	LookupCount int64 `json:"lookup_count"`
	ErrorCount  int64 `json:"error_count"`
	EmptyCount  int64 `json:"empty_count"`
}

func (c *Client) Stats() Stats {
	return Stats{
		LookupCount: c.lookupCount.Load(),
		ErrorCount:  c.errorCount.Load(),
		EmptyCount:  c.emptyCount.Load(),
	}
}
