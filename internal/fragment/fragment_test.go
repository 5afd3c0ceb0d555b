package fragment

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"sync"
)

// fakeHandle implements Handle for tests without touching real audio output
type fakeHandle struct {
	mu     sync.Mutex
	plays  int
	pauses int
	stops  int
	closed bool
	onEnd  func()
}

func (h *fakeHandle) Play(onEnd func()) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.plays++
	h.onEnd = onEnd
	return nil
}

func (h *fakeHandle) Pause() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.pauses++
}

func (h *fakeHandle) Stop() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.stops++
}

func (h *fakeHandle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.closed = true
	return nil
}

func (h *fakeHandle) isClosed() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.closed
}

// fakePlatform builds fakeHandles and can be told to reject audio
type fakePlatform struct {
	mu      sync.Mutex
	err     error
	handles []*fakeHandle
}

func (p *fakePlatform) NewHandle(raw []byte, sampleRate int) (Handle, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return nil, p.err
	}
	h := &fakeHandle{}
	p.handles = append(p.handles, h)
	return h, nil
}

func (p *fakePlatform) Close() error { return nil }

// makeWAV builds a minimal 16-bit mono PCM WAV container
func makeWAV(sampleRate, numSamples int) []byte {
	dataLen := numSamples * 2
	buf := &bytes.Buffer{}
	buf.WriteString("RIFF")
	binary.Write(buf, binary.LittleEndian, uint32(36+dataLen))
	buf.WriteString("WAVE")
	buf.WriteString("fmt ")
	binary.Write(buf, binary.LittleEndian, uint32(16))
	binary.Write(buf, binary.LittleEndian, uint16(1)) // PCM
	binary.Write(buf, binary.LittleEndian, uint16(1)) // mono
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate))
	binary.Write(buf, binary.LittleEndian, uint32(sampleRate*2))
	binary.Write(buf, binary.LittleEndian, uint16(2))
	binary.Write(buf, binary.LittleEndian, uint16(16))
	buf.WriteString("data")
	binary.Write(buf, binary.LittleEndian, uint32(dataLen))
	buf.Write(make([]byte, dataLen))
	return buf.Bytes()
}

// payload makes a recognizable raw buffer for a sequence id
func payload(id int) []byte {
	return []byte(fmt.Sprintf("audio-%d", id))
}
