package playback

import (
	"fmt"
	"sync"

	"github.com/crogers2287/chatterbox-player/internal/fragment"
)

// NullPlatform builds handles that produce no sound. Used for export-only
// runs on hosts without an audio device; sequencing still works, fragments
// just "end" immediately.
type NullPlatform struct{}

// NewNullPlatform creates a silent playback platform
func NewNullPlatform() *NullPlatform {
	return &NullPlatform{}
}

// NewHandle returns a silent handle for the given audio
func (p *NullPlatform) NewHandle(raw []byte, sampleRate int) (fragment.Handle, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty audio buffer")
	}
	return &nullHandle{}, nil
}

// Close is a no-op
func (p *NullPlatform) Close() error { return nil }

type nullHandle struct {
	mu     sync.Mutex
	closed bool
}

func (h *nullHandle) Play(onEnd func()) error {
	h.mu.Lock()
	closed := h.closed
	h.mu.Unlock()
	if closed {
		return fmt.Errorf("handle is closed")
	}
	if onEnd != nil {
		go onEnd()
	}
	return nil
}

func (h *nullHandle) Pause() {}

func (h *nullHandle) Stop() {}

func (h *nullHandle) Close() error {
	h.mu.Lock()
	h.closed = true
	h.mu.Unlock()
	return nil
}
