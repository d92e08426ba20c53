package feeds

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solsignal/solsignal/internal/token"
)

func launchStreamServer(t *testing.T, messages []string) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		// Drain the subscribe message first.
		_, sub, err := conn.ReadMessage()
		require.NoError(t, err)
		assert.Contains(t, string(sub), "subscribeNewToken")

		for _, m := range messages {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(m)))
		}
		// Hold the connection open until the client goes away.
		conn.ReadMessage()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestLaunchStream_EmitsCandidates(t *testing.T) {
	srv := launchStreamServer(t, []string{
		`{"message": "Successfully subscribed"}`,
		`{"mint": "mint-ws", "name": "Streamed", "symbol": "STRM"}`,
	})

	cfg := DefaultStreamConfig()
	cfg.Endpoint = wsURL(srv)
	s := NewLaunchStream(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch := s.Start(ctx)

	select {
	case cand := <-ch:
		assert.Equal(t, token.Mint("mint-ws"), cand.Mint)
		assert.Equal(t, "Streamed", cand.Name)
		assert.Equal(t, "STRM", cand.Symbol)
		assert.Equal(t, "Pump.fun", cand.SourcePlatform)
		assert.Equal(t, token.Tier0, cand.FollowerTier)
		assert.False(t, cand.LaunchedAt.IsZero())
	case <-ctx.Done():
		t.Fatal("no candidate before timeout")
	}

	assert.GreaterOrEqual(t, s.Stats().MessagesRecv, int64(2))
	assert.Equal(t, int64(1), s.Stats().LaunchesSeen)
}

func TestLaunchStream_MissingNameFallsToSentinels(t *testing.T) {
	srv := launchStreamServer(t, []string{`{"mint": "mint-bare"}`})

	cfg := DefaultStreamConfig()
	cfg.Endpoint = wsURL(srv)
	s := NewLaunchStream(cfg)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	ch := s.Start(ctx)

	select {
	case cand := <-ch:
		assert.Equal(t, "Unknown", cand.Name)
		assert.Equal(t, "???", cand.Symbol)
	case <-ctx.Done():
		t.Fatal("no candidate before timeout")
	}
}

func TestLaunchStream_ChannelClosesOnCancel(t *testing.T) {
	srv := launchStreamServer(t, nil)

	cfg := DefaultStreamConfig()
	cfg.Endpoint = wsURL(srv)
	s := NewLaunchStream(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	ch := s.Start(ctx)
	cancel()

	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel must close after shutdown")
	case <-time.After(5 * time.Second):
		t.Fatal("channel did not close")
	}
}
