package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/crogers2287/chatterbox-player/internal/config"
	"github.com/crogers2287/chatterbox-player/internal/fragment"
	"github.com/crogers2287/chatterbox-player/internal/observability"
	"github.com/crogers2287/chatterbox-player/internal/playback"
	"github.com/crogers2287/chatterbox-player/internal/player"
	"github.com/crogers2287/chatterbox-player/internal/resilience"
	"github.com/crogers2287/chatterbox-player/internal/synth"
	"github.com/crogers2287/chatterbox-player/internal/voice"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize structured logger
	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	text := strings.TrimSpace(strings.Join(os.Args[1:], " "))
	if text == "" {
		fmt.Fprintln(os.Stderr, "Usage: chatterbox-player <text to synthesize>")
		os.Exit(1)
	}

	logger.Info().
		Str("server_url", cfg.ServerURL).
		Str("port", cfg.Port).
		Bool("playback", cfg.PlaybackEnabled).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Chatterbox stream player starting")

	params := synth.Params{
		Text:         text,
		VoiceID:      cfg.VoiceID,
		Exaggeration: cfg.Exaggeration,
		Temperature:  cfg.Temperature,
		CFGWeight:    cfg.CFGWeight,
		ChunkSize:    cfg.ChunkSize,
	}

	// Resolve a saved voice profile if one is configured
	if cfg.Voice != "" {
		store, err := voice.NewStore(cfg.VoicesDir, logger)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to open voice store")
		}
		profile, err := store.Resolve(cfg.Voice)
		if err != nil {
			logger.Fatal().Err(err).Str("voice", cfg.Voice).Msg("Failed to resolve voice")
		}
		params.VoiceID = profile.ID
		if profile.Exaggeration != 0 {
			params.Exaggeration = profile.Exaggeration
		}
		if profile.Temperature != 0 {
			params.Temperature = profile.Temperature
		}
		if profile.CFGWeight != 0 {
			params.CFGWeight = profile.CFGWeight
		}
		logger.Info().Str("voice_id", profile.ID).Str("name", profile.Name).Msg("Resolved saved voice")
	}

	// Pick the playback platform
	var platform fragment.Platform
	if cfg.PlaybackEnabled {
		platform = playback.NewSpeakerPlatform(logger)
	} else {
		platform = playback.NewNullPlatform()
	}

	p := player.New(cfg, platform, logger)
	defer p.Close()

	// Local HTTP server for health/readiness/metrics
	serverCheck := observability.ServerHealthCheck(cfg.ServerURL, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", observability.HealthCheckHandler())
	mux.HandleFunc("/ready", observability.ReadinessHandler(serverCheck))
	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("HTTP server failed to start")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Wait for the inference server before opening the stream
	waitCfg := &resilience.RetryConfig{
		MaxAttempts:       cfg.ServerWaitAttempts,
		InitialBackoff:    cfg.ServerWaitBackoff(),
		MaxBackoff:        5 * time.Second,
		BackoffMultiplier: 2.0,
		Jitter:            true,
	}
	err = resilience.Retry(ctx, func(ctx context.Context) error {
		ok, err := serverCheck(ctx)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("server not healthy")
		}
		return nil
	}, waitCfg)
	if err != nil {
		logger.Fatal().Err(err).Str("server_url", cfg.ServerURL).Msg("Inference server unreachable")
	}

	if err := p.StartStreaming(params); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start streaming")
	}

	if err := p.Wait(ctx); err != nil && ctx.Err() == nil {
		logger.Error().Err(err).Msg("Stream failed; keeping received fragments")
	}

	status := p.Status()
	frags := p.Fragments()
	logger.Info().
		Stringer("status", status).
		Int("fragments", len(frags)).
		Msg("Stream finished")

	if m := p.Metrics(); m != nil {
		logger.Info().
			Float64("first_fragment_latency_s", m.FirstFragmentLatency).
			Float64("total_latency_s", m.TotalLatency).
			Float64("rtf", m.RealTimeFactor).
			Float64("audio_duration_s", m.TotalAudioDuration).
			Int("fragments_generated", m.FragmentsGenerated).
			Msg("Synthesis metrics")
	}

	// Partial results from an errored stream are still exportable
	if cfg.OutputPath != "" && len(frags) > 0 {
		if err := p.SaveTo(cfg.OutputPath); err != nil {
			logger.Error().Err(err).Str("path", cfg.OutputPath).Msg("Failed to write output file")
		} else {
			logger.Info().Str("path", cfg.OutputPath).Msg("Wrote assembled audio")
		}
	}

	// Let any in-flight playback drain before shutting down
	if cfg.PlaybackEnabled {
		waitForPlayback(ctx, p)
	}

	logger.Info().Msg("Shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("HTTP server forced to shutdown")
	}

	logger.Info().Msg("Exited gracefully")
}

// waitForPlayback blocks until the sequencer goes idle or ctx is done
func waitForPlayback(ctx context.Context, p *player.Player) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if state, _ := p.PlaybackState(); state == playback.Stopped {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}
