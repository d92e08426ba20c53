package route

import (
	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Tier Router: monotonic tier-to-topic fan-out
// ---------------------------------------------------------------------------

// Destination is an addressable notification target: a topic thread
// inside the configured group. TopicID zero means "no specific topic"
// (a plain group message).
type Destination struct {
	TopicID int `json:"topic_id"`
}

// DefaultDestination is the sentinel used when no topics are
// configured at all.
var DefaultDestination = Destination{}

// threshold binds a tier floor to its configured topic.
type threshold struct {
	tier  token.FollowerTier
	topic int
}

// Router maps follower tiers to destination topic lists.
type Router struct {
	all        int
	thresholds []threshold // ascending tier order
}

// New creates a router from the Telegram topic configuration.
// Unconfigured (zero) topics are skipped.
func New(cfg config.TelegramConfig) *Router {
	r := &Router{all: cfg.TopicAll}
	for _, t := range []threshold{
		{token.Tier50K, cfg.Topic50K},
		{token.Tier100K, cfg.Topic100K},
		{token.Tier500K, cfg.Topic500K},
		{token.Tier1M, cfg.Topic1M},
		{token.Tier10M, cfg.Topic10M},
	} {
		if t.topic != 0 {
			r.thresholds = append(r.thresholds, t)
		}
	}
	return r
}

// Route returns the ordered destination list for a tier. The "all"
// topic always comes first; every threshold at or below the tier
// appends its topic in ascending order. The result is deduplicated
// preserving first-seen order, so a topic shared between thresholds
// receives a single copy. With nothing configured the sentinel
// destination is returned so the alert still reaches the group.
func (r *Router) Route(tier token.FollowerTier) []Destination {
	var topics []int
	if r.all != 0 {
		topics = append(topics, r.all)
	}
	for _, t := range r.thresholds {
		if tier.AtLeast(t.tier) {
			topics = append(topics, t.topic)
		}
	}

	seen := make(map[int]bool, len(topics))
	var out []Destination
	for _, id := range topics {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, Destination{TopicID: id})
	}

	if len(out) == 0 {
		return []Destination{DefaultDestination}
	}
	return out
}

// Topics returns every configured topic ID, "all" first.
func (r *Router) Topics() []int {
	var out []int
	if r.all != 0 {
		out = append(out, r.all)
	}
	for _, t := range r.thresholds {
		out = append(out, t.topic)
	}
	return out
}
