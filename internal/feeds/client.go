package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Feed Gateway: ordered endpoint fallback with per-mint first-hit merge
// ---------------------------------------------------------------------------

// browserHeaders mimic the upstream board's own frontend; the feed API
// rejects requests without them.
var browserHeaders = map[string]string{
	"User-Agent": "Mozilla/5.0 (Windows NT 10.0; Win64; x64) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/122.0.0.0 Safari/537.36",
	"Accept":          "application/json, text/plain, */*",
	"Accept-Language": "en-US,en;q=0.9",
	"Origin":          "https://anoncoin.it",
	"Referer":         "https://anoncoin.it/board",
}

// Client queries the upstream feed endpoints with ordered fallback.
type Client struct {
	endpoints  []config.FeedEndpoint
	httpClient *http.Client

	// Stats.
	fetchCount   atomic.Int64
	docCount     atomic.Int64
	emptyFetches atomic.Int64
}

// NewClient creates a feed gateway client.
func NewClient(cfg config.FeedsConfig) *Client {
	return &Client{
		endpoints: cfg.Endpoints,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

// FetchCandidates queries every configured endpoint in order and
// returns the merged candidate list. It never returns an error: an
// endpoint that fails or answers with an unrecognized payload is
// skipped, and only exhausting every endpoint without a single
// document is surfaced as a warning.
//
// Within one call the first endpoint to report a mint wins; later
// endpoints never overwrite it. An authoritative (sorted-by-recency)
// endpoint that returns documents ends the fallback chain, since the
// remaining endpoints are supplementary discovery feeds.
func (c *Client) FetchCandidates(ctx context.Context) []token.Candidate {
	c.fetchCount.Add(1)

	seen := make(map[token.Mint]bool)
	var out []token.Candidate

	for _, ep := range c.endpoints {
		docs, ok := c.fetchDocs(ctx, ep.URL)
		if !ok {
			continue
		}

		for _, doc := range docs {
			cand, valid := doc.normalize()
			if !valid || seen[cand.Mint] {
				continue
			}
			seen[cand.Mint] = true
			out = append(out, cand)
		}

		if len(docs) > 0 {
			log.Debug().Str("url", ep.URL).Int("docs", len(docs)).Msg("feeds: endpoint ok")
			if ep.Authoritative {
				break
			}
		}
	}

	if len(out) == 0 {
		c.emptyFetches.Add(1)
		log.Warn().Int("endpoints", len(c.endpoints)).Msg("feeds: all endpoints failed or empty")
		return nil
	}

	c.docCount.Add(int64(len(out)))
	return out
}

// fetchDocs performs one bounded request and decodes either the
// wrapped envelope or a bare document list.
func (c *Client) fetchDocs(ctx context.Context, url string) ([]feedDoc, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("feeds: build request failed")
		return nil, false
	}
	for k, v := range browserHeaders {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("feeds: fetch failed")
		return nil, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Debug().Int("status", resp.StatusCode).Str("url", url).Msg("feeds: non-200 response")
		return nil, false
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		log.Debug().Err(err).Str("url", url).Msg("feeds: read body failed")
		return nil, false
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, false
	}

	// Wrapped success object.
	if trimmed[0] == '{' {
		var env feedEnvelope
		if err := json.Unmarshal(trimmed, &env); err != nil || !env.Status {
			log.Debug().Str("url", url).Msg("feeds: unrecognized object payload")
			return nil, false
		}
		return env.Data.Docs, true
	}

	// Bare document list.
	if trimmed[0] == '[' {
		var docs []feedDoc
		if err := json.Unmarshal(trimmed, &docs); err != nil {
			log.Debug().Err(err).Str("url", url).Msg("feeds: unrecognized list payload")
			return nil, false
		}
		return docs, true
	}

	return nil, false
}

// Stats holds feed gateway counters.
type Stats struct {
	FetchCount   int64 `json:"fetch_count"`
	DocCount     int64 `json:"doc_count"`
	EmptyFetches int64 `json:"empty_fetches"`
}

func (c *Client) Stats() Stats {
	return Stats{
		FetchCount:   c.fetchCount.Load(),
		DocCount:     c.docCount.Load(),
		EmptyFetches: c.emptyFetches.Load(),
	}
}
