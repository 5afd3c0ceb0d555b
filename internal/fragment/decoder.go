package fragment

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/go-audio/wav"
	"github.com/rs/zerolog"
)

// DecodeError marks a fragment payload that could not be turned into audio.
// The stream controller drops the fragment and keeps the session alive.
type DecodeError struct {
	SequenceID int
	Err        error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode fragment %d: %v", e.SequenceID, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// WireData is one audio fragment as it arrives off the stream
type WireData struct {
	SequenceID int
	Payload    string // Base64-encoded WAV container
	SampleRate int
}

// Decoder converts wire-format fragments into playable fragments
type Decoder struct {
	platform     Platform
	probeTimeout time.Duration
	logger       zerolog.Logger
}

// NewDecoder creates a decoder that builds handles on the given platform.
// probeTimeout bounds the best-effort duration probe.
func NewDecoder(platform Platform, probeTimeout time.Duration, logger zerolog.Logger) *Decoder {
	return &Decoder{
		platform:     platform,
		probeTimeout: probeTimeout,
		logger:       logger,
	}
}

// Decode turns wire data into a Fragment. A malformed base64 payload, an
// empty byte buffer, or a handle the platform refuses to build all return a
// *DecodeError. A failed duration probe does not: the fragment comes back
// with an unknown duration.
func (d *Decoder) Decode(wire WireData) (*Fragment, error) {
	raw, err := base64.StdEncoding.DecodeString(wire.Payload)
	if err != nil {
		return nil, &DecodeError{SequenceID: wire.SequenceID, Err: fmt.Errorf("invalid base64 payload: %w", err)}
	}
	if len(raw) == 0 {
		return nil, &DecodeError{SequenceID: wire.SequenceID, Err: fmt.Errorf("empty audio payload")}
	}

	handle, err := d.platform.NewHandle(raw, wire.SampleRate)
	if err != nil {
		return nil, &DecodeError{SequenceID: wire.SequenceID, Err: fmt.Errorf("platform rejected audio: %w", err)}
	}

	frag := New(wire.SequenceID, raw, wire.SampleRate, handle)

	if dur, ok := d.probeDuration(raw); ok {
		frag.setDuration(dur)
	} else {
		d.logger.Debug().
			Int("sequence_id", wire.SequenceID).
			Msg("Duration probe failed or timed out, keeping duration unknown")
	}

	return frag, nil
}

// probeDuration reads the WAV header to find the fragment duration. Probing
// is best-effort: container metadata is unreliable enough across encoders
// that a failure here must never block stream consumption, so the parse runs
// off to the side under a bounded wait.
func (d *Decoder) probeDuration(raw []byte) (time.Duration, bool) {
	type result struct {
		dur time.Duration
		err error
	}
	done := make(chan result, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: fmt.Errorf("panic probing duration: %v", r)}
			}
		}()
		dec := wav.NewDecoder(bytes.NewReader(raw))
		dur, err := dec.Duration()
		done <- result{dur: dur, err: err}
	}()

	timer := time.NewTimer(d.probeTimeout)
	defer timer.Stop()

	select {
	case res := <-done:
		if res.err != nil || res.dur <= 0 {
			return 0, false
		}
		return res.dur, true
	case <-timer.C:
		return 0, false
	}
}
