package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solsignal/solsignal/internal/classify"
	"github.com/solsignal/solsignal/internal/config"
	"github.com/solsignal/solsignal/internal/dispatch"
	"github.com/solsignal/solsignal/internal/feeds"
	"github.com/solsignal/solsignal/internal/gate"
	"github.com/solsignal/solsignal/internal/market"
	"github.com/solsignal/solsignal/internal/monitor"
	"github.com/solsignal/solsignal/internal/notify"
	"github.com/solsignal/solsignal/internal/route"
	"github.com/solsignal/solsignal/internal/safety"
	"github.com/solsignal/solsignal/internal/tracker"
)

func main() {
	// 1. Parse flags.
	configPath := flag.String("config", "config/config.yaml", "Path to configuration file")
	debug := flag.Bool("debug", false, "Log per-candidate gate rejections")
	flag.Parse()

	// 2. Load configuration.
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config from %s: %v\n", *configPath, err)
		os.Exit(1)
	}
	if *debug {
		cfg.General.Debug = true
	}

	// 3. Setup logging.
	setupLogging(cfg.General)

	log.Info().Msg("=============================================")
	log.Info().Msg("SolSignal Launch Monitor - Starting")
	log.Info().Msg("DISCOVER -> GATE -> CLASSIFY -> ALERT -> TRACK")
	log.Info().Msg("=============================================")

	log.Info().
		Str("instance_id", cfg.General.InstanceID).
		Bool("debug", cfg.General.Debug).
		Int("feed_endpoints", len(cfg.Feeds.Endpoints)).
		Bool("launch_stream", cfg.Feeds.LaunchStreamEnabled).
		Strs("allowed_venues", cfg.Gate.AllowedVenues).
		Float64("min_liquidity_units", cfg.Gate.MinLiquidityUnits).
		Float64("absolute_floor_usd", cfg.Gate.AbsoluteFloorUSD).
		Int("max_age_minutes", cfg.Gate.MaxAgeMinutes).
		Bool("mark_after_send", cfg.Alerts.MarkAfterSend).
		Msg("Configuration loaded")

	// 3b. Validate configuration.
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Configuration validation failed")
	}

	// 4. Create the notification channel and verify the credential.
	// An invalid bot token is the only startup error that terminates
	// the process.
	telegram, err := notify.NewTelegram(cfg.Telegram)
	if err != nil {
		log.Fatal().Err(err).Msg("Telegram channel init failed")
	}
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 10*time.Second)
	identity, err := telegram.Ping(pingCtx)
	pingCancel()
	if err != nil {
		log.Fatal().Err(err).Msg("Telegram credential check failed")
	}
	log.Info().Str("bot", identity).Msg("Telegram channel connected")

	// 5. Create providers.
	feedClient := feeds.NewClient(cfg.Feeds)
	marketClient := market.NewClient(cfg.Market)
	safetyClient := safety.NewClient(cfg.Safety)
	solPrice := market.NewSOLPrice(cfg.Market)

	var stream *feeds.LaunchStream
	if cfg.Feeds.LaunchStreamEnabled {
		streamCfg := feeds.DefaultStreamConfig()
		if cfg.Feeds.LaunchStreamEndpoint != "" {
			streamCfg.Endpoint = cfg.Feeds.LaunchStreamEndpoint
		}
		if cfg.Feeds.LaunchStreamPlatform != "" {
			streamCfg.Platform = cfg.Feeds.LaunchStreamPlatform
		}
		stream = feeds.NewLaunchStream(streamCfg)
		log.Info().Str("endpoint", streamCfg.Endpoint).Msg("Launch stream enabled")
	}

	// 6. Create the pipeline.
	eligibility := gate.New(cfg.Gate, marketClient, safetyClient, solPrice, nil, cfg.General.Debug)
	classifier := classify.New(cfg.Gate.AllowedVenues)
	router := route.New(cfg.Telegram)
	trk := tracker.New()
	dispatcher := dispatch.New(cfg.Alerts, cfg.Monitor, telegram, router, trk)

	mon := monitor.New(cfg.Monitor, cfg.Alerts, monitor.Deps{
		Feeds:      feedClient,
		Stream:     stream,
		Market:     marketClient,
		SOLPrice:   solPrice,
		Gate:       eligibility,
		Classifier: classifier,
		Dispatcher: dispatcher,
		Tracker:    trk,
		Channel:    telegram,
	})

	// 7. Setup context and signal handling.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		log.Warn().Str("signal", sig.String()).Msg("Shutdown signal received")
		cancel()
	}()

	// 8. Warm the quote price and preload the dedup ledger, so tokens
	// already live at boot never alert.
	if err := solPrice.Refresh(ctx); err != nil {
		log.Warn().Err(err).Msg("Initial SOL price fetch failed, using default")
	}
	mon.Preload(ctx)

	// 9. Startup banner in the main topic.
	telegram.Announce(ctx, cfg.Telegram.TopicAll, fmt.Sprintf(
		"🟢 SolSignal online\nSOL: $%s | watching %d feeds | topics: %d",
		solPrice.Price().Round(2), len(cfg.Feeds.Endpoints), len(router.Topics())))

	// 10. Start the monitor.
	monDone := make(chan struct{})
	go func() {
		defer close(monDone)
		mon.Run(ctx)
	}()

	// 11. HTTP health/stats endpoint.
	server := statsServer(cfg, feedClient, stream, marketClient, safetyClient, eligibility, dispatcher, trk, mon, telegram)
	go func() {
		<-ctx.Done()
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		server.Shutdown(shutdownCtx)
	}()
	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server started (health + stats)")
		if srvErr := server.ListenAndServe(); srvErr != nil && srvErr != http.ErrServerClosed {
			log.Error().Err(srvErr).Msg("HTTP server error")
		}
	}()

	// 12. Periodic stats logging.
	go func() {
		ticker := time.NewTicker(60 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fs := feedClient.Stats()
				ms := mon.Stats()
				ds := dispatcher.Stats()
				ts := trk.Stats()
				log.Info().
					Int64("feed_fetches", fs.FetchCount).
					Int64("candidates", ms.Candidates).
					Int64("rejected", ms.Rejected).
					Int64("dispatched", ds.Dispatched).
					Int64("edits_ok", ms.EditsOK).
					Int64("edits_noop", ms.EditsNoop).
					Int("active_alerts", ts.Active).
					Int("seen_total", ts.SeenTotal).
					Msg("[STATS]")
			}
		}
	}()

	log.Info().Msg("SolSignal Launch Monitor - Running")

	// 13. Block until shutdown.
	<-ctx.Done()
	<-monDone

	// 14. Final stats.
	ds := dispatcher.Stats()
	ts := trk.Stats()
	ms := mon.Stats()
	log.Info().
		Int64("dispatched", ds.Dispatched).
		Int64("sends_ok", ds.SendsOK).
		Int64("sends_failed", ds.SendsFailed).
		Int64("dropped", ds.Dropped).
		Int64("edits_ok", ms.EditsOK).
		Int64("edits_failed", ms.EditsFailed).
		Int("seen_total", ts.SeenTotal).
		Int64("cycle_panics", ms.CyclePanics).
		Msg("SolSignal Launch Monitor - Final Statistics")

	log.Info().Msg("SolSignal Launch Monitor - Shutdown complete")
}

func statsServer(
	cfg *config.Config,
	feedClient *feeds.Client,
	stream *feeds.LaunchStream,
	marketClient *market.Client,
	safetyClient *safety.Client,
	eligibility *gate.Gate,
	dispatcher *dispatch.Dispatcher,
	trk *tracker.Tracker,
	mon *monitor.Monitor,
	telegram *notify.Telegram,
) *http.Server {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"status":        "ok",
			"instance_id":   cfg.General.InstanceID,
			"active_alerts": trk.ActiveCount(),
		})
	})

	mux.HandleFunc("/stats", func(w http.ResponseWriter, _ *http.Request) {
		combined := map[string]any{
			"feeds":    feedClient.Stats(),
			"market":   marketClient.Stats(),
			"safety":   safetyClient.Stats(),
			"gate":     eligibility.Stats(),
			"dispatch": dispatcher.Stats(),
			"tracker":  trk.Stats(),
			"monitor":  mon.Stats(),
			"telegram": telegram.Stats(),
		}
		if stream != nil {
			combined["stream"] = stream.Stats()
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(combined)
	})

	return &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func setupLogging(general config.GeneralConfig) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnixMicro
	level, err := zerolog.ParseLevel(general.LogLevel)
	if err != nil {
		level = zerolog.InfoLevel
	}
	if general.Debug && level > zerolog.DebugLevel {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if general.LogFormat == "text" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).
			With().Timestamp().Str("service", "solsignal").
			Str("instance", general.InstanceID).Logger()
	} else {
		log.Logger = zerolog.New(os.Stdout).
			With().Timestamp().Str("service", "solsignal").
			Str("instance", general.InstanceID).Logger()
	}
}
