package feeds

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solsignal/solsignal/internal/token"
)

// ---------------------------------------------------------------------------
// Launch Stream: bonding-curve new-token feed via WebSocket
// Candidates from this feed carry the source platform, which is enough
// for the classifier to call them graduated launches.
// ---------------------------------------------------------------------------

// StreamConfig configures the launch stream.
type StreamConfig struct {
	Endpoint         string `yaml:"endpoint"`
	Platform         string `yaml:"platform"` // display name attached to candidates
	ReconnectDelayMs int    `yaml:"reconnect_delay_ms"`
}

// DefaultStreamConfig returns defaults for the Pump.fun portal feed.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Endpoint:         "wss://pumpportal.fun/api/data",
		Platform:         "Pump.fun",
		ReconnectDelayMs: 1000,
	}
}

// launchEvent is one new-token message from the stream.
type launchEvent struct {
	Mint   string `json:"mint"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
	URI    string `json:"uri"`
}

// LaunchStream subscribes to a bonding-curve platform's new-token feed
// and emits Candidates on a buffered channel drained by the monitor.
type LaunchStream struct {
	config StreamConfig

	mu   sync.Mutex
	conn *websocket.Conn

	candCh chan token.Candidate
	closed atomic.Bool

	// Stats.
	messagesRecv atomic.Int64
	launchesSeen atomic.Int64
	reconnects   atomic.Int64
	connected    atomic.Bool
}

// NewLaunchStream creates a launch stream client.
func NewLaunchStream(config StreamConfig) *LaunchStream {
	return &LaunchStream{
		config: config,
		candCh: make(chan token.Candidate, 256),
	}
}

// Start connects and begins streaming. Returns the candidate channel;
// the run loop reconnects with exponential backoff until ctx ends.
func (s *LaunchStream) Start(ctx context.Context) <-chan token.Candidate {
	go s.runLoop(ctx)
	return s.candCh
}

func (s *LaunchStream) runLoop(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("stream: run loop panic recovered")
		}
		s.disconnect()
		if s.closed.CompareAndSwap(false, true) {
			close(s.candCh)
		}
	}()

	delay := time.Duration(s.config.ReconnectDelayMs) * time.Millisecond
	const maxDelay = 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if err := s.connect(ctx); err != nil {
			log.Warn().Err(err).Str("endpoint", s.config.Endpoint).Msg("stream: connect failed")
			s.reconnects.Add(1)
			select {
			case <-time.After(delay):
				delay *= 2
				if delay > maxDelay {
					delay = maxDelay
				}
			case <-ctx.Done():
				return
			}
			continue
		}

		delay = time.Duration(s.config.ReconnectDelayMs) * time.Millisecond
		s.readLoop(ctx)
	}
}

func (s *LaunchStream) connect(ctx context.Context) error {
	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, s.config.Endpoint, nil)
	if err != nil {
		return err
	}

	// Subscribe to new-token events.
	sub := map[string]any{"method": "subscribeNewToken"}
	if err := conn.WriteJSON(sub); err != nil {
		conn.Close()
		return err
	}

	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.connected.Store(true)

	log.Info().Str("endpoint", s.config.Endpoint).Str("platform", s.config.Platform).
		Msg("stream: connected")
	return nil
}

func (s *LaunchStream) disconnect() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn != nil {
		s.conn.Close()
		s.conn = nil
	}
	s.connected.Store(false)
}

func (s *LaunchStream) readLoop(ctx context.Context) {
	defer s.disconnect()

	// Close the socket on cancellation so a blocked read returns.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			s.disconnect()
		case <-done:
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		s.mu.Lock()
		conn := s.conn
		s.mu.Unlock()
		if conn == nil {
			return
		}

		conn.SetReadDeadline(time.Now().Add(90 * time.Second))
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			log.Warn().Err(err).Msg("stream: read failed, reconnecting")
			s.reconnects.Add(1)
			return
		}
		s.messagesRecv.Add(1)

		var ev launchEvent
		if err := json.Unmarshal(data, &ev); err != nil || ev.Mint == "" {
			continue
		}
		s.launchesSeen.Add(1)

		cand := token.Candidate{
			Mint:           token.Mint(ev.Mint),
			Name:           ev.Name,
			Symbol:         ev.Symbol,
			Creator:        "Unknown",
			FollowerTier:   token.Tier0,
			LaunchedAt:     time.Now(),
			SourcePlatform: s.config.Platform,
		}
		if cand.Name == "" {
			cand.Name = "Unknown"
		}
		if cand.Symbol == "" {
			cand.Symbol = "???"
		}

		select {
		case s.candCh <- cand:
		default:
			// Channel full: the monitor is behind, drop rather than block.
			log.Debug().Str("mint", cand.Mint.Short()).Msg("stream: candidate dropped, buffer full")
		}
	}
}

// StreamStats returns launch stream counters.
type StreamStats struct {
	MessagesRecv int64 `json:"messages_recv"`
	LaunchesSeen int64 `json:"launches_seen"`
	Reconnects   int64 `json:"reconnects"`
	Connected    bool  `json:"connected"`
}

func (s *LaunchStream) Stats() StreamStats {
	return StreamStats{
		MessagesRecv: s.messagesRecv.Load(),
		LaunchesSeen: s.launchesSeen.Load(),
		Reconnects:   s.reconnects.Load(),
		Connected:    s.connected.Load(),
	}
}
