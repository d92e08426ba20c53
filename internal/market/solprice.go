package market

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/solsignal/solsignal/internal/config"
)

// ---------------------------------------------------------------------------
// SOL price cache: shared quote-currency price on a slow cadence
// ---------------------------------------------------------------------------

// SOLPrice caches the SOL/USD price used by liquidity threshold math.
// It is seeded with a configured default so the engine keeps a sane
// floor even when the price feed is unreachable.
type SOLPrice struct {
	url        string
	httpClient *http.Client

	mu        sync.RWMutex
	price     decimal.Decimal
	updatedAt time.Time
}

// NewSOLPrice creates a price cache seeded with the default price.
func NewSOLPrice(cfg config.MarketConfig) *SOLPrice {
	return &SOLPrice{
		url: cfg.SOLPriceURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
		price: decimal.NewFromFloat(cfg.DefaultSOLPrice),
	}
}

// Price returns the cached SOL/USD price.
func (p *SOLPrice) Price() decimal.Decimal {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.price
}

// UpdatedAt returns when the price was last refreshed from the feed.
// Zero means the seed default is still in use.
func (p *SOLPrice) UpdatedAt() time.Time {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.updatedAt
}

// Refresh fetches the current price. A failed refresh keeps the cached
// value; the stale price is logged, never fatal.
func (p *SOLPrice) Refresh(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		return fmt.Errorf("solprice: create request: %w", err)
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		log.Warn().Err(err).Msg("solprice: refresh failed, keeping cached price")
		return fmt.Errorf("solprice: fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("solprice: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("solprice: HTTP %d", resp.StatusCode)
	}

	var parsed struct {
		Solana struct {
			USD float64 `json:"usd"`
		} `json:"solana"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return fmt.Errorf("solprice: parse response: %w", err)
	}
	if parsed.Solana.USD <= 0 {
		return fmt.Errorf("solprice: zero/negative price")
	}

	p.mu.Lock()
	p.price = decimal.NewFromFloat(parsed.Solana.USD)
	p.updatedAt = time.Now()
	p.mu.Unlock()

	log.Info().Float64("usd", parsed.Solana.USD).Msg("solprice: refreshed")
	return nil
}
