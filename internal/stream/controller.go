package stream

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/crogers2287/chatterbox-player/internal/fragment"
	"github.com/crogers2287/chatterbox-player/internal/observability"
	"github.com/crogers2287/chatterbox-player/internal/playback"
	"github.com/crogers2287/chatterbox-player/internal/synth"
)

const (
	streamEndpoint = "/synthesize-stream"

	// Base64 WAV chunks run large; the scanner must fit a whole event line.
	scanBufferSize  = 64 * 1024
	maxEventPayload = 16 * 1024 * 1024
)

// Controller owns the server-sent-event connection lifecycle: it opens the
// stream, dispatches each arriving event, and tears the connection down on
// completion, error, or cancellation. At most one session is live at a time;
// starting a new stream cancels and disposes the previous one synchronously
// before the new connection opens.
type Controller struct {
	baseURL  string
	client   *http.Client
	decoder  *fragment.Decoder
	store    *fragment.Store
	seq      *playback.Sequencer
	autoPlay bool
	logger   zerolog.Logger

	mu      sync.RWMutex
	session *session
}

// session is the state of one stream from Start to a terminal status
type session struct {
	id      string
	cancel  context.CancelFunc
	tracker *observability.StreamTracker
	logger  zerolog.Logger

	mu      sync.RWMutex
	status  Status
	lastErr error
	metrics *Metrics
	done    chan struct{}
}

func (s *session) setStatus(st Status) {
	s.mu.Lock()
	if !s.status.Terminal() {
		s.status = st
	}
	s.mu.Unlock()
}

// terminate moves the session to a terminal status. Returns false if the
// session already terminated, making every terminal transition idempotent.
func (s *session) terminate(st Status, err error) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.status.Terminal() {
		return false
	}
	s.status = st
	s.lastErr = err
	close(s.done)
	return true
}

func (s *session) currentStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

func (s *session) setMetrics(m *Metrics) {
	s.mu.Lock()
	s.metrics = m
	s.mu.Unlock()
}

func (s *session) currentMetrics() *Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.metrics
}

// NewController creates a stream controller feeding the given store and
// sequencer. autoPlay plays the first fragment of each session as soon as it
// is appended.
func NewController(baseURL string, client *http.Client, decoder *fragment.Decoder, store *fragment.Store, seq *playback.Sequencer, autoPlay bool, logger zerolog.Logger) *Controller {
	if client == nil {
		// Streams are long-lived; no overall timeout
		client = &http.Client{}
	}
	return &Controller{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   client,
		decoder:  decoder,
		store:    store,
		seq:      seq,
		autoPlay: autoPlay,
		logger:   logger,
	}
}

// Start opens a new streaming session. Any previous session is cancelled
// and its fragments released before the new connection opens, so the store
// never mixes fragments from two sessions.
func (c *Controller) Start(params synth.Params) error {
	if err := params.Validate(); err != nil {
		return fmt.Errorf("invalid synthesis params: %w", err)
	}

	c.mu.Lock()
	if old := c.session; old != nil {
		c.teardown(old)
	}
	c.seq.StopAll()
	c.store.Reset()

	streamID := observability.NewStreamID()
	ctx, cancel := context.WithCancel(context.Background())
	sess := &session{
		id:      streamID,
		cancel:  cancel,
		tracker: observability.NewStreamTracker(streamID),
		logger:  c.logger.With().Str("stream_id", streamID).Logger(),
		status:  Idle,
		done:    make(chan struct{}),
	}
	c.session = sess
	c.mu.Unlock()

	go c.run(ctx, sess, params)
	return nil
}

// teardown cancels a session synchronously. Caller holds c.mu.
func (c *Controller) teardown(old *session) {
	old.cancel()
	if old.terminate(Cancelled, nil) {
		old.tracker.RecordEnd("cancelled")
		old.logger.Info().Msg("Session superseded by new stream")
	}
}

// Cancel closes the live connection and marks the session cancelled. Safe to
// call at any time, including after the session already terminated.
func (c *Controller) Cancel() {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil {
		return
	}
	sess.cancel()
	if sess.terminate(Cancelled, nil) {
		sess.tracker.RecordEnd("cancelled")
		sess.logger.Info().Msg("Stream cancelled")
	}
}

// Status returns the current session status (Idle when none was started)
func (c *Controller) Status() Status {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil {
		return Idle
	}
	return sess.currentStatus()
}

// Metrics returns the latest aggregate metrics, nil before the first update
func (c *Controller) Metrics() *Metrics {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil {
		return nil
	}
	return sess.currentMetrics()
}

// LastError returns the error that terminated the session, if any
func (c *Controller) LastError() error {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil {
		return nil
	}
	sess.mu.RLock()
	defer sess.mu.RUnlock()
	return sess.lastErr
}

// Done returns a channel closed when the current session reaches a terminal
// status. Returns a closed channel when no session was ever started.
func (c *Controller) Done() <-chan struct{} {
	c.mu.RLock()
	sess := c.session
	c.mu.RUnlock()
	if sess == nil {
		ch := make(chan struct{})
		close(ch)
		return ch
	}
	return sess.done
}

// run drives one session from connection to a terminal status
func (c *Controller) run(ctx context.Context, sess *session, params synth.Params) {
	sess.setStatus(Connecting)

	reqURL := c.baseURL + streamEndpoint + "?" + params.Values().Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		c.fail(sess, fmt.Errorf("failed to create stream request: %w", err))
		return
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	resp, err := c.client.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.fail(sess, fmt.Errorf("failed to open stream: %w", err))
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.fail(sess, fmt.Errorf("stream request returned status %d", resp.StatusCode))
		return
	}

	sess.setStatus(Streaming)
	sess.logger.Info().Str("url", reqURL).Msg("Stream connected")

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, scanBufferSize), maxEventPayload)

	var eventName string
	var data strings.Builder

	for scanner.Scan() {
		line := scanner.Text()

		switch {
		case line == "":
			// Blank line ends one event
			if eventName != "" || data.Len() > 0 {
				c.dispatch(sess, eventName, data.String())
			}
			eventName = ""
			data.Reset()

		case strings.HasPrefix(line, "event:"):
			eventName = strings.TrimSpace(strings.TrimPrefix(line, "event:"))

		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))

		case strings.HasPrefix(line, ":"):
			// Comment line, keep-alive

		default:
			sess.logger.Debug().Str("line", line).Msg("Ignoring unrecognized stream line")
		}

		if sess.currentStatus().Terminal() {
			return
		}
	}

	if err := scanner.Err(); err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		c.fail(sess, fmt.Errorf("stream read error: %w", err))
		return
	}

	// EOF without a done event: the server went away mid-stream
	c.fail(sess, fmt.Errorf("stream ended without completion event"))
}

// dispatch routes one complete server-sent event
func (c *Controller) dispatch(sess *session, event, data string) {
	switch event {
	case "audio_chunk":
		c.handleAudioChunk(sess, data)

	case "done":
		c.handleDone(sess)

	case "error":
		c.handleError(sess, data)

	default:
		sess.logger.Debug().Str("event", event).Msg("Ignoring unknown stream event")
	}
}

// handleAudioChunk decodes and appends one fragment. A malformed event is
// dropped and logged; it never aborts an otherwise-healthy stream.
func (c *Controller) handleAudioChunk(sess *session, data string) {
	if sess.currentStatus().Terminal() {
		// A superseding stream owns the store now
		return
	}

	var ev chunkEvent
	if err := json.Unmarshal([]byte(data), &ev); err != nil {
		sess.logger.Warn().Err(err).Msg("Dropping malformed audio_chunk event")
		observability.RecordError("event_parse_error", "stream")
		return
	}

	frag, err := c.decoder.Decode(fragment.WireData{
		SequenceID: ev.ChunkID,
		Payload:    ev.AudioChunk,
		SampleRate: ev.SampleRate,
	})
	if err != nil {
		sess.logger.Warn().Err(err).Int("chunk_id", ev.ChunkID).Msg("Dropping undecodable fragment")
		sess.tracker.RecordDecodeError()
		return
	}

	// Decoding can outlast the session. Start swaps sessions and resets the
	// store while holding c.mu, so the append only lands if this session
	// still owns the store at append time.
	c.mu.RLock()
	if c.session != sess {
		c.mu.RUnlock()
		sess.logger.Debug().Int("chunk_id", ev.ChunkID).Msg("Dropping fragment decoded after session was superseded")
		frag.Release()
		return
	}
	appended := c.store.Append(frag)
	c.mu.RUnlock()

	if !appended {
		// Original fragment is kept so already-played audio is not replayed
		sess.logger.Warn().Int("chunk_id", ev.ChunkID).Msg("Dropping duplicate fragment")
		sess.tracker.RecordDuplicate()
		frag.Release()
		return
	}
	sess.tracker.RecordFragment(len(frag.Raw))

	if ev.Metrics != nil {
		sess.setMetrics(ev.Metrics)
	}

	if c.store.Len() == 1 && c.autoPlay {
		c.seq.Play(frag)
	}

	sess.logger.Debug().
		Int("chunk_id", ev.ChunkID).
		Int("bytes", len(frag.Raw)).
		Msg("Fragment appended")
}

func (c *Controller) handleDone(sess *session) {
	if !sess.terminate(Completed, nil) {
		return
	}
	sess.tracker.RecordEnd("completed")

	appended := c.store.Len()
	if m := sess.currentMetrics(); m != nil && m.FragmentsGenerated != appended {
		// A mismatch signals dropped or duplicate events
		sess.logger.Warn().
			Int("reported", m.FragmentsGenerated).
			Int("appended", appended).
			Msg("Fragment count mismatch at stream end")
		observability.RecordError("fragment_count_mismatch", "stream")
	}

	sess.logger.Info().Int("fragments", appended).Msg("Stream completed")
	sess.cancel()
}

// handleError marks the session errored. Fatal: resuming a TTS stream
// mid-way is not well-defined without server support, so there is no
// automatic retry; the caller must start a new stream. Fragments already
// received stay playable and exportable.
func (c *Controller) handleError(sess *session, data string) {
	msg := data
	var ev errorEvent
	if err := json.Unmarshal([]byte(data), &ev); err == nil {
		if ev.Message != "" {
			msg = ev.Message
		} else if ev.Detail != "" {
			msg = ev.Detail
		}
	}

	streamErr := fmt.Errorf("server stream error: %s", msg)
	if !sess.terminate(Errored, streamErr) {
		return
	}
	sess.tracker.RecordEnd("errored")
	observability.RecordError("stream_error", "stream")
	sess.logger.Error().Str("message", msg).Msg("Stream errored")
	sess.cancel()
}

// fail marks the session errored from a transport-level failure
func (c *Controller) fail(sess *session, err error) {
	if !sess.terminate(Errored, err) {
		return
	}
	sess.tracker.RecordEnd("errored")
	observability.RecordError("transport_error", "stream")
	sess.logger.Error().Err(err).Msg("Stream transport failure")
	sess.cancel()
}
