package notify

import (
	"context"
	"errors"

	"github.com/solsignal/solsignal/internal/route"
)

// ---------------------------------------------------------------------------
// Notification channel: abstract send/edit transport
// ---------------------------------------------------------------------------

// ErrNotModified is returned by Edit when the rendered content is
// byte-identical to the message's current content. Callers treat it as
// a no-op, not a failure.
var ErrNotModified = errors.New("notify: message not modified")

// Handle identifies one delivered message so it can be edited in place.
type Handle struct {
	MessageID int  `json:"message_id"`
	TopicID   int  `json:"topic_id"`
	HasPhoto  bool `json:"has_photo"` // photo messages edit the caption, not the text
}

// Button is one inline link button.
type Button struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

// Content is a rendered alert body plus its button rows and optional
// photo. The same Content shape serves initial sends and live edits.
type Content struct {
	Text     string     `json:"text"`
	Buttons  [][]Button `json:"buttons,omitempty"`
	PhotoURL string     `json:"photo_url,omitempty"`
}

/// Channel is the outbound transport. Both operations are best-effort:
// failures are isolated to the destination or handle affected.
type Channel interface {
	// Send delivers content to a destination and returns the handle
	// for later edits.
	Send(ctx context.Context, dest route.Destination, content Content) (Handle, error)

	// Edit replaces a previously sent message's content in place.
	// Returns ErrNotModified when nothing changed.
	Edit(ctx context.Context, h Handle, content Content) error

	// Ping verifies the transport credential at startup and returns
	// the authenticated identity.
	Ping(ctx context.Context) (string, error)
}
