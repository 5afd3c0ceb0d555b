package fragment

import (
	"sync"
	"time"
)

// PlayState tracks where a fragment is in its playback lifecycle.
// Mutated only by the playback sequencer.
type PlayState int

const (
	StateIdle PlayState = iota
	StatePlaying
	StateFinished
)

func (s PlayState) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StatePlaying:
		return "PLAYING"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Handle is an ownership-exclusive handle to a platform audio object built
// from a fragment's raw bytes. The real implementation sits on the speaker;
// tests substitute fakes.
type Handle interface {
	// Play starts or resumes playback from the current position. onEnd is
	// invoked exactly once when the fragment reaches its natural end; it is
	// NOT invoked on Pause or Stop.
	Play(onEnd func()) error

	// Pause halts playback without resetting position.
	Pause()

	// Stop halts playback and resets position to the start.
	Stop()

	// Close releases the underlying audio object. The handle must not be
	// used after Close.
	Close() error
}

// Platform constructs playable handles from decoded audio. The player facade
// owns the platform instance and passes it to the decoder; there is no
// package-level audio state.
type Platform interface {
	NewHandle(raw []byte, sampleRate int) (Handle, error)
	Close() error
}

// Fragment is one decoded audio unit received from the stream.
// Raw bytes are owned exclusively by the fragment once created.
type Fragment struct {
	SequenceID int
	Raw        []byte
	SampleRate int

	handle Handle

	mu            sync.Mutex
	state         PlayState
	duration      time.Duration
	durationKnown bool
}

// New creates a fragment owning the given raw bytes and playable handle
func New(sequenceID int, raw []byte, sampleRate int, handle Handle) *Fragment {
	return &Fragment{
		SequenceID: sequenceID,
		Raw:        raw,
		SampleRate: sampleRate,
		handle:     handle,
	}
}

// Handle returns the fragment's playable handle (nil after release)
func (f *Fragment) Handle() Handle {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.handle
}

// State returns the current playback state
func (f *Fragment) State() PlayState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// SetState updates the playback state. Sequencer use only.
func (f *Fragment) SetState(s PlayState) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

// Duration returns the probed duration. ok is false when the probe failed or
// timed out; an unknown duration is not zero.
func (f *Fragment) Duration() (d time.Duration, ok bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.duration, f.durationKnown
}

func (f *Fragment) setDuration(d time.Duration) {
	f.mu.Lock()
	f.duration = d
	f.durationKnown = true
	f.mu.Unlock()
}

// Release closes and detaches the playable handle. Safe to call twice.
func (f *Fragment) Release() {
	f.mu.Lock()
	h := f.handle
	f.handle = nil
	f.mu.Unlock()
	if h != nil {
		h.Close()
	}
}
