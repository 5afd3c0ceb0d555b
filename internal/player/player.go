// Package player exposes the single public surface for driving streamed
// synthesis playback: start/cancel streaming, play/pause/stop, download,
// and read-only observers over fragments, metrics, and session status.
package player

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/crogers2287/chatterbox-player/internal/config"
	"github.com/crogers2287/chatterbox-player/internal/export"
	"github.com/crogers2287/chatterbox-player/internal/fragment"
	"github.com/crogers2287/chatterbox-player/internal/playback"
	"github.com/crogers2287/chatterbox-player/internal/stream"
	"github.com/crogers2287/chatterbox-player/internal/synth"
)

// Player composes the decoder, store, sequencer, stream controller, and
// export assembler behind one facade. It owns the playback platform and
// guarantees every playable handle is released on session replacement,
// explicit stop, or Close.
type Player struct {
	cfg      *config.Config
	logger   zerolog.Logger
	platform fragment.Platform

	store      *fragment.Store
	sequencer  *playback.Sequencer
	controller *stream.Controller
}

// New creates a player on the given playback platform. The platform is an
// injected resource so tests (and headless hosts) can run without a speaker.
func New(cfg *config.Config, platform fragment.Platform, logger zerolog.Logger) *Player {
	store := fragment.NewStore()
	sequencer := playback.NewSequencer(store, cfg.AutoAdvance, logger)
	decoder := fragment.NewDecoder(platform, cfg.DurationProbeTimeout(), logger)
	controller := stream.NewController(cfg.ServerURL, nil, decoder, store, sequencer, cfg.AutoPlay, logger)

	return &Player{
		cfg:        cfg,
		logger:     logger,
		platform:   platform,
		store:      store,
		sequencer:  sequencer,
		controller: controller,
	}
}

// StartStreaming opens a stream for the given synthesis parameters. Any
// prior session is cancelled and its fragments released first.
func (p *Player) StartStreaming(params synth.Params) error {
	return p.controller.Start(params)
}

// Cancel closes the live stream connection. Idempotent.
func (p *Player) Cancel() {
	p.controller.Cancel()
}

// PlayAll replays every received fragment from the first, in order
func (p *Player) PlayAll() {
	p.sequencer.PlayAll()
}

// PauseCurrent pauses the currently playing fragment
func (p *Player) PauseCurrent() {
	p.sequencer.Pause()
}

// StopAll stops playback and resets every fragment to its start
func (p *Player) StopAll() {
	p.sequencer.StopAll()
}

// SetAutoAdvance toggles advancing to the next fragment on natural end
func (p *Player) SetAutoAdvance(on bool) {
	p.sequencer.SetAutoAdvance(on)
}

// Download assembles all received fragments into one artifact. Partial
// results from an errored stream are still exportable.
func (p *Player) Download() ([]byte, error) {
	return export.Assemble(p.store.All())
}

// SaveTo assembles the fragments and writes the artifact to path
func (p *Player) SaveTo(path string) error {
	return export.WriteFile(path, p.store.All())
}

// Fragments returns the received fragments in arrival order
func (p *Player) Fragments() []*fragment.Fragment {
	return p.store.All()
}

// Metrics returns the latest server-reported metrics, nil before any update
func (p *Player) Metrics() *stream.Metrics {
	return p.controller.Metrics()
}

// Status returns the current session status
func (p *Player) Status() stream.Status {
	return p.controller.Status()
}

// LastError returns the error that terminated the session, if any
func (p *Player) LastError() error {
	return p.controller.LastError()
}

// PlaybackState returns the sequencer state and current sequence id
func (p *Player) PlaybackState() (playback.State, int) {
	return p.sequencer.State()
}

// Wait blocks until the current session reaches a terminal status or ctx is
// done. Returns the session's terminating error, if any.
func (p *Player) Wait(ctx context.Context) error {
	select {
	case <-p.controller.Done():
		return p.controller.LastError()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close cancels any live stream, stops playback, and releases every
// playable handle and the platform itself.
func (p *Player) Close() error {
	p.controller.Cancel()
	p.sequencer.StopAll()
	p.store.Reset()
	return p.platform.Close()
}
