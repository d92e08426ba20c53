package safety

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Safety-report client: per-mint risk flags from the report provider
// ---------------------------------------------------------------------------

// Risk names the provider uses for the hard gate conditions.
const (
	riskFreezeEnabled = "freeze authority still enabled"
	riskMintEnabled   = "mint authority still enabled"
)

// lpSafePctThreshold is the minimum burned/locked share of LP supply
// for the pool to count as safe.
const lpSafePctThreshold = 90.0

// Client fetches safety reports.
type Client struct {
	baseURL    string
	httpClient *http.Client

	// Stats.
	reportCount  atomic.Int64
	missingCount atomic.Int64
	errorCount   atomic.Int64
}

// NewClient creates a safety-report client.
func NewClient(cfg config.SafetyConfig) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// reportResponse is the provider's summary payload.
type reportResponse struct {
	Risks []struct {
		Name        string `json:"name"`
		Level       string `json:"level"`
		Description string `json:"description"`
	} `json:"risks"`
	Markets []struct {
		LP struct {
			LPLockedPct float64 `json:"lpLockedPct"`
			LPBurnedPct float64 `json:"lpBurnedPct"`
		} `json:"lp"`
	} `json:"markets"`
}

// Report fetches the safety report for a mint. A 404 returns
// (nil, nil): no report exists, which the gate treats as a rejection.
func (c *Client) Report(ctx context.Context, mint token.Mint) (*token.SafetyReport, error) {
	url := fmt.Sprintf("%s/v1/tokens/%s/report/summary", c.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("safety: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("safety: report HTTP error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		c.missingCount.Add(1)
		log.Debug().Str("mint", mint.Short()).Msg("safety: no report for mint")
		return nil, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("safety: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("safety: report HTTP %d", resp.StatusCode)
	}

	var parsed reportResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		c.errorCount.Add(1)
		return nil, fmt.Errorf("safety: parse report: %w", err)
	}

	report := &token.SafetyReport{
		Mint:           mint,
		FreezeDisabled: true,
		MintDisabled:   true,
	}
	for _, r := range parsed.Risks {
		report.Risks = append(report.Risks, r.Name)
		switch strings.ToLower(r.Name) {
		case riskFreezeEnabled:
			report.FreezeDisabled = false
		case riskMintEnabled:
			report.MintDisabled = false
		}
	}
	for _, m := range parsed.Markets {
		if m.LP.LPBurnedPct >= lpSafePctThreshold {
			report.LPBurned = true
		}
		if m.LP.LPLockedPct >= lpSafePctThreshold {
			report.LPLocked = true
		}
	}

	c.reportCount.Add(1)
	return report, nil
}

// Stats returns safety client counters.
type Stats struct {
	ReportCount  int64 `json:"report_count"`
	MissingCount int64 `json:"missing_count"`
	ErrorCount   int64 `json:"error_count"`
}

func (c *Client) Stats() Stats {
	return Stats{
		ReportCount:  c.reportCount.Load(),
		MissingCount: c.missingCount.Load(),
		ErrorCount:   c.errorCount.Load(),
	}
}
