package playback

import (
	"bytes"
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"
	"github.com/gopxl/beep/v2/wav"
	"github.com/rs/zerolog"

	"github.com/crogers2287/chatterbox-player/internal/fragment"
)

const (
	speakerBufferSize = 250 * time.Millisecond
	resampleQuality   = 4
)

// SpeakerPlatform builds playable handles backed by the system audio device.
// The speaker is initialized lazily with the sample rate of the first handle;
// later handles with a different rate are resampled to it.
//
// The platform is an explicit resource owned by the player facade: create
// one per player, close it on teardown.
type SpeakerPlatform struct {
	logger zerolog.Logger

	mu          sync.Mutex
	initialized bool
	sampleRate  beep.SampleRate
}

// NewSpeakerPlatform creates a platform that plays through the default output device
func NewSpeakerPlatform(logger zerolog.Logger) *SpeakerPlatform {
	return &SpeakerPlatform{logger: logger}
}

// NewHandle decodes raw WAV bytes into a playable handle
func (p *SpeakerPlatform) NewHandle(raw []byte, sampleRate int) (fragment.Handle, error) {
	streamer, format, err := wav.Decode(bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("failed to decode wav: %w", err)
	}

	if err := p.ensureSpeaker(format.SampleRate); err != nil {
		streamer.Close()
		return nil, err
	}

	return &speakerHandle{
		platform: p,
		streamer: streamer,
		format:   format,
	}, nil
}

func (p *SpeakerPlatform) ensureSpeaker(rate beep.SampleRate) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.initialized {
		return nil
	}
	if err := speaker.Init(rate, rate.N(speakerBufferSize)); err != nil {
		return fmt.Errorf("failed to initialize speaker: %w", err)
	}
	p.initialized = true
	p.sampleRate = rate
	p.logger.Debug().Int("sample_rate", int(rate)).Msg("Speaker initialized")
	return nil
}

// SampleRate returns the rate the speaker was initialized with
func (p *SpeakerPlatform) SampleRate() beep.SampleRate {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.sampleRate
}

// Close tears down the audio device
func (p *SpeakerPlatform) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.initialized {
		speaker.Clear()
		speaker.Close()
		p.initialized = false
	}
	return nil
}

// speakerHandle owns one decoded streamer queued on the shared speaker mixer
type speakerHandle struct {
	platform *SpeakerPlatform

	mu        sync.Mutex
	streamer  beep.StreamSeekCloser
	format    beep.Format
	ctrl      *beep.Ctrl
	queued    bool
	cancelled bool
	closed    bool
	gen       int // bumped per queued Ctrl so stale mixer callbacks are ignored
}

func (h *speakerHandle) Play(onEnd func()) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return fmt.Errorf("handle is closed")
	}

	// Resume if the streamer is already queued and merely paused. A handle
	// that was stopped still looks queued until the mixer callback fires,
	// but its Ctrl is detached; it must be re-queued, not resumed.
	if h.queued && h.ctrl != nil && !h.cancelled {
		ctrl := h.ctrl
		h.mu.Unlock()
		speaker.Lock()
		ctrl.Paused = false
		speaker.Unlock()
		return nil
	}

	var s beep.Streamer = h.streamer
	if rate := h.platform.SampleRate(); rate != 0 && h.format.SampleRate != rate {
		s = beep.Resample(resampleQuality, h.format.SampleRate, rate, h.streamer)
	}
	h.ctrl = &beep.Ctrl{Streamer: s}
	h.queued = true
	h.cancelled = false
	h.gen++
	gen := h.gen
	ctrl := h.ctrl
	h.mu.Unlock()

	speaker.Play(beep.Seq(ctrl, beep.Callback(func() {
		h.mu.Lock()
		if h.gen != gen {
			// A newer Ctrl owns the handle state now
			h.mu.Unlock()
			return
		}
		cancelled := h.cancelled
		h.cancelled = false
		h.queued = false
		h.ctrl = nil
		h.mu.Unlock()

		// The callback runs on the mixer goroutine with the speaker locked;
		// onEnd may queue the next fragment, so it must run elsewhere.
		if !cancelled && onEnd != nil {
			go onEnd()
		}
	})))
	return nil
}

func (h *speakerHandle) Pause() {
	h.mu.Lock()
	ctrl := h.ctrl
	h.mu.Unlock()
	if ctrl == nil {
		return
	}
	speaker.Lock()
	ctrl.Paused = true
	speaker.Unlock()
}

func (h *speakerHandle) Stop() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	ctrl := h.ctrl
	if h.queued {
		h.cancelled = true
	}
	streamer := h.streamer
	h.mu.Unlock()

	if ctrl != nil {
		// Detaching the streamer ends the queued sequence; the end callback
		// sees cancelled and stays silent.
		speaker.Lock()
		ctrl.Streamer = nil
		speaker.Unlock()
	}
	if streamer != nil {
		if err := streamer.Seek(0); err != nil {
			// Position reset is best effort; the next Play decodes from wherever
			// the seek left off.
			return
		}
	}
}

func (h *speakerHandle) Close() error {
	h.Stop()

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if h.streamer != nil {
		err := h.streamer.Close()
		h.streamer = nil
		return err
	}
	return nil
}
