// Command livebridge tails a YouTube live stream's chat and republishes each
// message, in order, to stdout and (when configured) to a Minecraft server
// over RCON as tellraw broadcasts.
//
// It:
//   - Loads configuration and initializes structured logging.
//   - Optionally resolves video metadata through the official Data API.
//   - Bootstraps a live chat session from the watch page and polls the
//     innertube continuation endpoint until the stream ends or fails.
//   - Exposes a minimal HTTP server with /healthz, /readyz, /status, /metrics.
//
// Shutdown is graceful on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/tkhrdev/livebridge/chat"
	"github.com/tkhrdev/livebridge/config"
	"github.com/tkhrdev/livebridge/minecraft"
	"github.com/tkhrdev/livebridge/server"
	"github.com/tkhrdev/livebridge/telemetry"
	"github.com/tkhrdev/livebridge/youtubeapi"
)

func main() {
	// Load .env file if present (local dev convenience only; production relies on real env)
	_ = godotenv.Load()

	// Configure logging (level + format). Defaults: level=info, format=text.
	lvl := slog.LevelInfo
	switch strings.ToLower(os.Getenv("LOG_LEVEL")) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	case "info", "":
		// keep default
	default:
		tmp := slog.New(slog.NewTextHandler(os.Stderr, nil))
		tmp.Warn("unknown LOG_LEVEL, using info", slog.String("value", os.Getenv("LOG_LEVEL")))
	}
	var handler slog.Handler
	switch strings.ToLower(os.Getenv("LOG_FORMAT")) {
	case "json":
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	default:
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	}
	slog.SetDefault(slog.New(handler))

	cfg, err := config.Load()
	if err != nil {
		slog.Error("config load failed", slog.Any("err", err))
		os.Exit(1)
	}
	if err := cfg.ValidateStreamReady(); err != nil {
		slog.Error("config invalid", slog.Any("err", err))
		os.Exit(1)
	}

	// Metrics / telemetry init
	telemetry.Init()
	shutdownTracing, err := telemetry.InitTracing("livebridge", "1.0.0")
	if err != nil {
		slog.Error("tracing initialization failed", slog.Any("err", err))
		os.Exit(1)
	}
	defer shutdownTracing()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Observability server comes up before bootstrap so liveness probes pass
	// while the watch page is being fetched.
	handlers := server.NewHandlers(cfg.VideoID)
	srv := &http.Server{
		Addr:              cfg.ServerAddr,
		Handler:           server.NewMux(handlers),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		slog.Info("http server listening", slog.String("addr", cfg.ServerAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("http server error", slog.Any("err", err))
		}
	}()

	// Best-effort: resolve video metadata via the official Data API when a key
	// is provided. Failure never blocks the bridge.
	if cfg.DataAPIKey != "" {
		mctx, cancel := context.WithTimeout(ctx, 8*time.Second)
		if meta, err := youtubeapi.LookupVideo(mctx, cfg.DataAPIKey, cfg.VideoID); err != nil {
			slog.Warn("video metadata lookup failed", slog.Any("err", err))
		} else {
			handlers.SetVideoMeta(meta)
			slog.Info("video resolved",
				slog.String("title", meta.Title),
				slog.String("channel", meta.ChannelTitle),
				slog.String("live_status", meta.LiveStatus))
		}
		cancel()
	}

	client := &youtubeapi.InnertubeClient{HTTPClient: &http.Client{Timeout: cfg.HTTPTimeout}}
	session, err := client.BootstrapSession(ctx, cfg.VideoID)
	if err != nil {
		slog.Error("session bootstrap failed", slog.String("video_id", cfg.VideoID), slog.Any("err", err))
		os.Exit(1)
	}
	slog.Info("session bootstrapped", slog.String("client_version", session.ClientVersion))

	streamer := chat.NewStreamer(client, session, cfg.PollMaxDelay)
	handlers.SetStreamer(streamer)

	var sinks []chat.Sink
	if err := cfg.ValidateForwardReady(); err != nil {
		slog.Info("rcon forwarding disabled", slog.Any("reason", err))
	} else {
		mc := minecraft.New(cfg.RCONAddr, cfg.RCONPassword)
		defer func() {
			if err := mc.Close(); err != nil {
				slog.Warn("rcon close failed", slog.Any("err", err))
			}
		}()
		sinks = append(sinks, mc)
		slog.Info("rcon forwarding enabled", slog.String("addr", cfg.RCONAddr))
	}

	err = chat.Relay(ctx, streamer, sinks...)
	switch {
	case err == nil:
		slog.Info("live chat stream ended")
	case errors.Is(err, context.Canceled):
		slog.Info("shutdown requested")
	default:
		slog.Error("live chat session failed", slog.Any("err", err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("http server shutdown failed", slog.Any("err", err))
	}
}
