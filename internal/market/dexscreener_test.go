package market

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/token"
)

const pairsPayload = `{
	"pairs": [
		{
			"chainId": "solana",
			"dexId": "raydium",
			"pairAddress": "pair-sol",
			"baseToken": {"address": "mint-a"},
			"quoteToken": {"address": "So11111111111111111111111111111111111111112"},
			"priceUsd": "0.0042",
			"liquidity": {"usd": 15000.5},
			"fdv": 420000,
			"volume": {"h24": 90000, "h1": 4000, "m5": 250},
			"priceChange": {"h24": 12.34},
			"txns": {"h24": {"buys": 120, "sells": 80}},
			"pairCreatedAt": 1756500000000,
			"info": {
				"websites": [{"url": "https://example.com"}],
				"socials": [{"type": "twitter", "url": "https://x.com/example"}]
			}
		},
		{
			"chainId": "ethereum",
			"dexId": "uniswap",
			"pairAddress": "pair-eth",
			"liquidity": {"usd": 999999}
		}
	]
}`

func marketClient(url string) *Client {
	return NewClient(config.MarketConfig{BaseURL: url, ChainID: "solana", TimeoutSeconds: 2})
}

func TestTokenPairs_FiltersChainAndParses(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/mint-a", r.URL.Path)
		fmt.Fprint(w, pairsPayload)
	}))
	defer srv.Close()

	pairs, err := marketClient(srv.URL).TokenPairs(context.Background(), "mint-a")
	require.NoError(t, err)
	require.Len(t, pairs, 1, "off-chain pairs must be dropped")

	p := pairs[0]
	assert.Equal(t, "raydium", p.DEX)
	assert.Equal(t, token.Mint("mint-a"), p.BaseMint)
	assert.True(t, p.PriceUSD.Equal(decimal.NewFromFloat(0.0042)))
	assert.True(t, p.LiquidityUSD.Equal(decimal.NewFromFloat(15000.5)))
	assert.True(t, p.MarketCapUSD.Equal(decimal.NewFromInt(420000)), "FDV backs up a missing market cap")
	assert.Equal(t, "12.34%", p.Change24hPct)
	assert.Equal(t, int64(200), p.Txns24h)
	assert.False(t, p.CreatedAt.IsZero())
	assert.Equal(t, "https://example.com", p.Socials.Website)
	assert.Equal(t, "https://x.com/example", p.Socials.Twitter)
}

func TestTokenPairs_HTTPErrorSurfaced(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := marketClient(srv.URL)
	_, err := c.TokenPairs(context.Background(), "mint-a")
	assert.Error(t, err)
	assert.Equal(t, int64(1), c.Stats().ErrorCount)
}

func TestTokenPairs_NullPairs(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"pairs": null}`)
	}))
	defer srv.Close()

	pairs, err := marketClient(srv.URL).TokenPairs(context.Background(), "mint-a")
	require.NoError(t, err)
	assert.Empty(t, pairs)
}

func TestBestPair_MaxLiquidityFirstTie(t *testing.T) {
	pairs := []token.Pair{
		{PairAddress: "a", LiquidityUSD: decimal.NewFromInt(100)},
		{PairAddress: "b", LiquidityUSD: decimal.NewFromInt(300)},
		{PairAddress: "c", LiquidityUSD: decimal.NewFromInt(300)},
	}
	best := BestPair(pairs)
	require.NotNil(t, best)
	assert.Equal(t, "b", best.PairAddress)

	assert.Nil(t, BestPair(nil))
}

func TestSOLPrice_SeededAndRefreshed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"solana": {"usd": 152.3}}`)
	}))
	defer srv.Close()

	p := NewSOLPrice(config.MarketConfig{SOLPriceURL: srv.URL, DefaultSOLPrice: 140, TimeoutSeconds: 2})
	assert.True(t, p.Price().Equal(decimal.NewFromInt(140)))
	assert.True(t, p.UpdatedAt().IsZero())

	require.NoError(t, p.Refresh(context.Background()))
	assert.True(t, p.Price().Equal(decimal.NewFromFloat(152.3)))
	assert.False(t, p.UpdatedAt().IsZero())
}

func TestSOLPrice_FailedRefreshKeepsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewSOLPrice(config.MarketConfig{SOLPriceURL: srv.URL, DefaultSOLPrice: 140, TimeoutSeconds: 2})
	assert.Error(t, p.Refresh(context.Background()))
	assert.True(t, p.Price().Equal(decimal.NewFromInt(140)))
}
