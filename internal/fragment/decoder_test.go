package fragment

import (
	"bytes"
	"encoding/base64"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func newTestDecoder(platform Platform) *Decoder {
	return NewDecoder(platform, 2*time.Second, zerolog.Nop())
}

func TestDecode_ValidPayload(t *testing.T) {
	raw := makeWAV(24000, 24000) // one second of silence
	wire := WireData{
		SequenceID: 1,
		Payload:    base64.StdEncoding.EncodeToString(raw),
		SampleRate: 24000,
	}

	frag, err := newTestDecoder(&fakePlatform{}).Decode(wire)
	if err != nil {
		t.Fatalf("Expected decode to succeed, got %v", err)
	}
	if frag.SequenceID != 1 {
		t.Errorf("Expected sequence id 1, got %d", frag.SequenceID)
	}
	if !bytes.Equal(frag.Raw, raw) {
		t.Error("Expected decoded raw bytes to match the WAV container")
	}
	if frag.Handle() == nil {
		t.Error("Expected decoded fragment to carry a playable handle")
	}

	dur, ok := frag.Duration()
	if !ok {
		t.Fatal("Expected duration probe to succeed on a valid WAV header")
	}
	if dur != time.Second {
		t.Errorf("Expected 1s duration, got %v", dur)
	}
}

func TestDecode_InvalidBase64(t *testing.T) {
	wire := WireData{SequenceID: 3, Payload: "not!valid!base64!!", SampleRate: 24000}

	_, err := newTestDecoder(&fakePlatform{}).Decode(wire)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected a DecodeError, got %v", err)
	}
	if decodeErr.SequenceID != 3 {
		t.Errorf("Expected sequence id 3 in error, got %d", decodeErr.SequenceID)
	}
}

func TestDecode_EmptyPayload(t *testing.T) {
	wire := WireData{SequenceID: 1, Payload: "", SampleRate: 24000}

	_, err := newTestDecoder(&fakePlatform{}).Decode(wire)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected a DecodeError for empty payload, got %v", err)
	}
}

func TestDecode_PlatformRejects(t *testing.T) {
	platform := &fakePlatform{err: errors.New("unsupported codec")}
	wire := WireData{
		SequenceID: 2,
		Payload:    base64.StdEncoding.EncodeToString(makeWAV(24000, 100)),
		SampleRate: 24000,
	}

	_, err := newTestDecoder(platform).Decode(wire)
	var decodeErr *DecodeError
	if !errors.As(err, &decodeErr) {
		t.Fatalf("Expected a DecodeError when the platform rejects audio, got %v", err)
	}
	if decodeErr.SequenceID != 2 {
		t.Errorf("Expected sequence id 2 in error, got %d", decodeErr.SequenceID)
	}
}

func TestDecode_UnknownDurationIsNotFatal(t *testing.T) {
	// Payload decodes as base64 but is not a WAV container; the probe fails
	// and the fragment still comes back playable.
	wire := WireData{
		SequenceID: 4,
		Payload:    base64.StdEncoding.EncodeToString([]byte("definitely not audio")),
		SampleRate: 24000,
	}

	frag, err := newTestDecoder(&fakePlatform{}).Decode(wire)
	if err != nil {
		t.Fatalf("Expected decode to succeed despite failed probe, got %v", err)
	}
	if _, ok := frag.Duration(); ok {
		t.Error("Expected duration to be unknown for a non-WAV payload")
	}
}
