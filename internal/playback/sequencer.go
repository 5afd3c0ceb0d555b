package playback

import (
	"sync"

	"github.com/rs/zerolog"

	"github.com/crogers2287/chatterbox-player/internal/fragment"
	"github.com/crogers2287/chatterbox-player/internal/observability"
)

// State represents the sequencer's playback state
type State int

const (
	Stopped State = iota
	Playing
	Paused
)

func (s State) String() string {
	switch s {
	case Stopped:
		return "STOPPED"
	case Playing:
		return "PLAYING"
	case Paused:
		return "PAUSED"
	default:
		return "UNKNOWN"
	}
}

// noCurrent marks "no fragment selected"; server sequence ids start at 1
const noCurrent = -1

// Sequencer drives fragment-by-fragment playback over the store: one
// fragment plays at a time, with optional auto-advance to sequence id+1 on
// natural end. Pause and natural end are distinguished so that an explicit
// pause never triggers an advance.
type Sequencer struct {
	store  *fragment.Store
	logger zerolog.Logger

	mu          sync.Mutex
	state       State
	currentID   int
	autoAdvance bool // user-toggleable setting, default on
	chainActive bool // PlayAll forces advancing for the duration of its chain
}

// NewSequencer creates a sequencer over the given store
func NewSequencer(store *fragment.Store, autoAdvance bool, logger zerolog.Logger) *Sequencer {
	return &Sequencer{
		store:       store,
		logger:      logger,
		state:       Stopped,
		currentID:   noCurrent,
		autoAdvance: autoAdvance,
	}
}

// SetAutoAdvance toggles advancing to the next sequence id on natural end
func (s *Sequencer) SetAutoAdvance(on bool) {
	s.mu.Lock()
	s.autoAdvance = on
	s.mu.Unlock()
}

// State returns the sequencer state and the current sequence id (-1 if none)
func (s *Sequencer) State() (State, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state, s.currentID
}

// Play starts (or resumes) the given fragment. If a different fragment is
// currently playing it is stopped first; only one fragment plays at a time.
func (s *Sequencer) Play(f *fragment.Fragment) {
	s.mu.Lock()
	if (s.state == Playing || s.state == Paused) && s.currentID != f.SequenceID {
		if cur, ok := s.store.Get(s.currentID); ok {
			if h := cur.Handle(); h != nil {
				h.Stop()
			}
			cur.SetState(fragment.StateIdle)
		}
	}

	resuming := s.state == Paused && s.currentID == f.SequenceID
	s.state = Playing
	s.currentID = f.SequenceID
	s.mu.Unlock()

	f.SetState(fragment.StatePlaying)

	h := f.Handle()
	if h == nil {
		s.logger.Warn().Int("sequence_id", f.SequenceID).Msg("Fragment has no playable handle, skipping")
		f.SetState(fragment.StateIdle)
		s.mu.Lock()
		s.state = Stopped
		s.currentID = noCurrent
		s.chainActive = false
		s.mu.Unlock()
		return
	}

	if err := h.Play(func() { s.onFragmentEnd(f) }); err != nil {
		s.logger.Error().Err(err).Int("sequence_id", f.SequenceID).Msg("Failed to start playback")
		observability.RecordError("playback_start_error", "sequencer")
		f.SetState(fragment.StateIdle)
		s.mu.Lock()
		s.state = Stopped
		s.currentID = noCurrent
		s.chainActive = false
		s.mu.Unlock()
		return
	}

	if !resuming {
		observability.RecordFragmentPlayed()
		s.logger.Debug().Int("sequence_id", f.SequenceID).Msg("Fragment playback started")
	}
}

// onFragmentEnd handles the natural end of a fragment
func (s *Sequencer) onFragmentEnd(f *fragment.Fragment) {
	s.mu.Lock()
	if s.state != Playing || s.currentID != f.SequenceID {
		// Stale callback: the sequencer moved on (pause, stop, or a new
		// stream) before this end arrived. Leave the fragment's state alone.
		s.mu.Unlock()
		return
	}
	f.SetState(fragment.StateFinished)

	var next *fragment.Fragment
	if s.autoAdvance || s.chainActive {
		if n, ok := s.store.Get(f.SequenceID + 1); ok {
			next = n
		}
	}

	if next == nil {
		// Either advancing is off, or sequence id+1 is missing. A gap means
		// stop and wait rather than guess at the next fragment.
		s.state = Stopped
		s.currentID = noCurrent
		s.chainActive = false
		s.mu.Unlock()
		s.logger.Debug().Int("sequence_id", f.SequenceID).Msg("Playback chain ended")
		return
	}
	s.mu.Unlock()

	s.Play(next)
}

// Pause halts the currently playing fragment without resetting its position.
// An explicitly paused fragment never auto-advances.
func (s *Sequencer) Pause() {
	s.mu.Lock()
	if s.state != Playing {
		s.mu.Unlock()
		return
	}
	id := s.currentID
	s.state = Paused
	s.chainActive = false
	s.mu.Unlock()

	if f, ok := s.store.Get(id); ok {
		if h := f.Handle(); h != nil {
			h.Pause()
		}
		f.SetState(fragment.StateIdle)
	}
	s.logger.Debug().Int("sequence_id", id).Msg("Playback paused")
}

// StopAll halts every playing fragment, resets positions to the start, and
// returns the sequencer to Stopped.
func (s *Sequencer) StopAll() {
	s.mu.Lock()
	id := s.currentID
	s.state = Stopped
	s.currentID = noCurrent
	s.chainActive = false
	s.mu.Unlock()

	for _, f := range s.store.All() {
		if f.State() == fragment.StatePlaying || f.SequenceID == id {
			if h := f.Handle(); h != nil {
				h.Stop()
			}
			f.SetState(fragment.StateIdle)
		}
	}
	s.logger.Debug().Msg("Playback stopped")
}

// PlayAll restarts playback from the first-arrived fragment with advancing
// forced on for the duration of this chain, regardless of the auto-advance
// setting.
func (s *Sequencer) PlayAll() {
	s.StopAll()

	first, ok := s.store.First()
	if !ok {
		s.logger.Debug().Msg("PlayAll with no fragments")
		return
	}

	s.mu.Lock()
	s.chainActive = true
	s.mu.Unlock()

	s.Play(first)
}
