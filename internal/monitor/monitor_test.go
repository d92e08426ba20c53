package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solsignal/solsignal/internal/classify"
	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/dispatch"
	"github.com/solsignal/solsignal/internal/feeds"
	"github.com/solsignal/solsignal/internal/gate"
	"github.com/solsignal/solsignal/internal/market"
	"github.com/solsignal/solsignal/internal/notify"
	"github.com/solsignal/solsignal/internal/route"
	"github.com/solsignal/solsignal/internal/token"
	"github.com/solsignal/solsignal/internal/tracker"
)

// recordingChannel captures sends and edits with optional canned errors.
type recordingChannel struct {
	mu        sync.Mutex
	sends     []notify.Content
	edits     []notify.Content
	editErr   error
	nextMsgID int
}

func (c *recordingChannel) Send(_ context.Context, dest route.Destination, content notify.Content) (notify.Handle, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sends = append(c.sends, content)
	c.nextMsgID++
	return notify.Handle{MessageID: c.nextMsgID, TopicID: dest.TopicID}, nil
}

func (c *recordingChannel) Edit(context.Context, notify.Handle, notify.Content) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.editErr != nil {
		return c.editErr
	}
	c.edits = append(c.edits, notify.Content{})
	return nil
}

func (c *recordingChannel) Ping(context.Context) (string, error) { return "test-bot", nil }

func (c *recordingChannel) sendCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sends)
}

type cleanSafety struct{}

func (cleanSafety) Report(_ context.Context, mint token.Mint) (*token.SafetyReport, error) {
	return &token.SafetyReport{Mint: mint, FreezeDisabled: true, MintDisabled: true, LPBurned: true}, nil
}

// feedPayload is one launch document wrapped in the feed envelope,
// launched recently with a 500k-follower creator.
func feedPayload(mint string) string {
	return fmt.Sprintf(`{"status": true, "data": {"docs": [{
		"token": {"address": %q, "name": "E2E Token", "symbol": "E2E"},
		"userId": {"name": "dev", "twitter": {"followersFormatted": "500k+"}},
		"addedOn": %q
	}]}}`, mint, time.Now().Add(-time.Hour).UTC().Format(time.RFC3339))
}

// marketPayload is a single raydium pair above the liquidity floor.
func marketPayload() string {
	return fmt.Sprintf(`{"pairs": [{
		"chainId": "solana",
		"dexId": "raydium",
		"pairAddress": "pair-1",
		"priceUsd": "0.001",
		"liquidity": {"usd": 150},
		"fdv": 50000,
		"pairCreatedAt": %d
	}]}`, time.Now().Add(-time.Hour).UnixMilli())
}

type harness struct {
	monitor *Monitor
	channel *recordingChannel
	tracker *tracker.Tracker
}

func newHarness(t *testing.T, feedURL, marketURL string) *harness {
	t.Helper()

	monitorCfg := config.MonitorConfig{
		PollIntervalSeconds:   1,
		UpdateIntervalSeconds: 1,
		UpdateBudgetMinutes:   60,
		SOLPriceEveryNTicks:   1000, // keep the price feed out of these tests
	}
	alertsCfg := config.AlertsConfig{SendsPerSecond: 1000, BatchSize: 10, BatchPauseMs: 1}
	gateCfg := config.GateConfig{
		AllowedVenues:     []string{"raydium", "orca", "meteora", "pumpswap"},
		MinLiquidityUnits: 1.0,
		AbsoluteFloorUSD:  10.0,
		MaxAgeMinutes:     120,
	}
	telegramCfg := config.TelegramConfig{
		TopicAll: 1, Topic50K: 50, Topic100K: 100, Topic500K: 500, Topic1M: 1000, Topic10M: 10000,
	}

	feedClient := feeds.NewClient(config.FeedsConfig{
		Endpoints:      []config.FeedEndpoint{{URL: feedURL, Authoritative: true}},
		TimeoutSeconds: 2,
	})
	marketClient := market.NewClient(config.MarketConfig{
		BaseURL: marketURL, ChainID: "solana", TimeoutSeconds: 2,
	})
	solPrice := market.NewSOLPrice(config.MarketConfig{DefaultSOLPrice: 100, TimeoutSeconds: 1})

	channel := &recordingChannel{}
	trk := tracker.New()
	eligibility := gate.New(gateCfg, marketClient, cleanSafety{}, solPrice, nil, false)
	dispatcher := dispatch.New(alertsCfg, monitorCfg, channel, route.New(telegramCfg), trk)

	mon := New(monitorCfg, alertsCfg, Deps{
		Feeds:      feedClient,
		Market:     marketClient,
		SOLPrice:   solPrice,
		Gate:       eligibility,
		Classifier: classify.New(gateCfg.AllowedVenues),
		Dispatcher: dispatcher,
		Tracker:    trk,
		Channel:    channel,
	})
	return &harness{monitor: mon, channel: channel, tracker: trk}
}

func staticServer(t *testing.T, payload string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, payload)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDiscoveryCycle_AtMostOncePerMint(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-e2e"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)
	ctx := context.Background()

	h.monitor.discoveryCycle(ctx)
	first := h.channel.sendCount()
	assert.Equal(t, 4, first, "500k tier fans out to all, 50k, 100k, 500k")

	// The same feed answer on later cycles must not dispatch again.
	h.monitor.discoveryCycle(ctx)
	h.monitor.discoveryCycle(ctx)
	assert.Equal(t, first, h.channel.sendCount())
	assert.Equal(t, 1, h.tracker.ActiveCount())
}

func TestPreload_SuppressesExistingTokens(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-preloaded"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)
	ctx := context.Background()

	h.monitor.Preload(ctx)
	assert.True(t, h.tracker.Seen("mint-preloaded"))

	h.monitor.discoveryCycle(ctx)
	assert.Zero(t, h.channel.sendCount(), "preloaded mints never alert")
}

func TestRefreshCycle_EditsActiveAlert(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-e2e"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)
	ctx := context.Background()

	h.monitor.discoveryCycle(ctx)
	require.Equal(t, 1, h.tracker.ActiveCount())

	h.monitor.refreshCycle(ctx)
	assert.Equal(t, 1, h.tracker.ActiveCount(), "inside the budget the alert stays tracked")
	stats := h.monitor.Stats()
	assert.Equal(t, int64(4), stats.EditsOK, "every delivered message gets the refresh edit")
}

func TestRefreshCycle_EditNoopNotAnError(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-e2e"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)
	ctx := context.Background()

	h.monitor.discoveryCycle(ctx)
	h.channel.editErr = notify.ErrNotModified
	h.monitor.refreshCycle(ctx)

	stats := h.monitor.Stats()
	assert.Equal(t, int64(4), stats.EditsNoop)
	assert.Zero(t, stats.EditsFailed)
}

func TestRefreshCycle_EvictsPastBudget(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-e2e"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)
	ctx := context.Background()

	h.monitor.discoveryCycle(ctx)
	active := h.tracker.Active()
	require.Len(t, active, 1)

	// Just inside the budget: still refreshed.
	active[0].DispatchedAt = time.Now().Add(-time.Hour + 5*time.Second)
	h.monitor.refreshCycle(ctx)
	assert.Equal(t, 1, h.tracker.ActiveCount())

	// Past the budget: final edit, then gone for good.
	active[0].DispatchedAt = time.Now().Add(-time.Hour - 5*time.Second)
	h.monitor.refreshCycle(ctx)
	assert.Zero(t, h.tracker.ActiveCount())
	assert.True(t, h.tracker.Seen("mint-e2e"), "eviction keeps the dedup entry")

	h.monitor.refreshCycle(ctx)
	assert.Zero(t, h.tracker.ActiveCount(), "an evicted alert is never revisited")
}

func TestDiscoveryCycle_GateRejectionDispatchesNothing(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-dry"))
	// Liquidity below the $100 floor (1.0 unit at the $100 default quote).
	mkt := staticServer(t, `{"pairs": [{
		"chainId": "solana", "dexId": "raydium", "pairAddress": "p",
		"liquidity": {"usd": 50}, "pairCreatedAt": 1756500000000
	}]}`)
	h := newHarness(t, feed.URL, mkt.URL)

	h.monitor.discoveryCycle(context.Background())
	assert.Zero(t, h.channel.sendCount())
	assert.Zero(t, h.tracker.ActiveCount())
	assert.False(t, h.tracker.Seen("mint-dry"), "rejected candidates stay unmarked for re-evaluation")
}

func TestSafeCycle_ContainsPanics(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-e2e"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)

	h.monitor.safeCycle(context.Background(), "discovery", func(context.Context) {
		panic("boom")
	})
	assert.Equal(t, int64(1), h.monitor.Stats().CyclePanics)
}

func TestEndToEnd_AlertLifecycle(t *testing.T) {
	feed := staticServer(t, feedPayload("mint-e2e"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)
	ctx := context.Background()

	// Discovery: gate passes, four destinations receive the alert.
	h.monitor.discoveryCycle(ctx)
	require.Equal(t, 4, h.channel.sendCount())
	require.Equal(t, 1, h.tracker.ActiveCount())
	assert.Contains(t, h.channel.sends[0].Text, "E2E Token")

	active := h.tracker.Active()
	require.Len(t, active, 1)
	assert.Equal(t, classify.KindDirect, active[0].Classification.Kind)
	assert.True(t, active[0].BaselineLiq.Equal(decimal.NewFromInt(150)))

	// At least one live refresh before expiry.
	h.monitor.refreshCycle(ctx)
	require.GreaterOrEqual(t, h.monitor.Stats().EditsOK, int64(4))

	// Simulated budget expiry removes the alert.
	active[0].DispatchedAt = time.Now().Add(-2 * time.Hour)
	h.monitor.refreshCycle(ctx)
	assert.Zero(t, h.tracker.ActiveCount())

	// A later discovery of the same mint stays silent.
	h.monitor.discoveryCycle(ctx)
	assert.Equal(t, 4, h.channel.sendCount())
}

func TestRender_ContainsTierRouting(t *testing.T) {
	// The rendered alert shows the tier that drove the routing.
	feed := staticServer(t, feedPayload("mint-e2e"))
	mkt := staticServer(t, marketPayload())
	h := newHarness(t, feed.URL, mkt.URL)

	h.monitor.discoveryCycle(context.Background())
	require.NotEmpty(t, h.channel.sends)
	assert.True(t, strings.Contains(h.channel.sends[0].Text, "500k+"))
}
