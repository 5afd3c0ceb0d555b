// Package voice persists saved voice profiles: a voices.json list plus an
// audio_files directory holding reference clips.
package voice

import (
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Profile is one saved voice configuration
type Profile struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"createdAt"`
	ReferenceFile string    `json:"voiceReferenceFile,omitempty"` // Path to the stored reference clip

	// Per-voice synthesis parameter overrides
	Exaggeration float64 `json:"exaggeration,omitempty"`
	Temperature  float64 `json:"temperature,omitempty"`
	CFGWeight    float64 `json:"cfg_weight,omitempty"`
}

// Store manages voice profiles under a storage directory
type Store struct {
	dir      string
	audioDir string
	listPath string
	logger   zerolog.Logger
	mu       sync.Mutex
}

// NewStore opens (creating if needed) a voice store rooted at dir
func NewStore(dir string, logger zerolog.Logger) (*Store, error) {
	audioDir := filepath.Join(dir, "audio_files")
	if err := os.MkdirAll(audioDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create voice storage dir: %w", err)
	}

	s := &Store{
		dir:      dir,
		audioDir: audioDir,
		listPath: filepath.Join(dir, "voices.json"),
		logger:   logger,
	}

	if _, err := os.Stat(s.listPath); os.IsNotExist(err) {
		if err := s.writeList(nil); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// List returns every saved voice profile
func (s *Store) List() ([]Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readList()
}

// Get looks up a profile by id
func (s *Store) Get(id string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voices, err := s.readList()
	if err != nil {
		return nil, err
	}
	for i := range voices {
		if voices[i].ID == id {
			return &voices[i], nil
		}
	}
	return nil, fmt.Errorf("voice %q not found", id)
}

// Resolve finds a profile by id or, failing that, by name
func (s *Store) Resolve(idOrName string) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	voices, err := s.readList()
	if err != nil {
		return nil, err
	}
	for i := range voices {
		if voices[i].ID == idOrName {
			return &voices[i], nil
		}
	}
	for i := range voices {
		if voices[i].Name == idOrName {
			return &voices[i], nil
		}
	}
	return nil, fmt.Errorf("voice %q not found", idOrName)
}

// Save stores a profile, overwriting any existing profile with the same id.
// referenceData optionally carries the reference clip, either raw bytes or a
// base64 data URL; it is written to the audio directory and only the path is
// kept in voices.json.
func (s *Store) Save(p Profile, referenceData []byte) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if p.ID == "" {
		p.ID = newVoiceID()
	}
	if p.CreatedAt.IsZero() {
		p.CreatedAt = time.Now()
	}

	if len(referenceData) > 0 {
		raw, err := decodeReference(referenceData)
		if err != nil {
			return nil, err
		}
		path := filepath.Join(s.audioDir, p.ID+".wav")
		if err := os.WriteFile(path, raw, 0o644); err != nil {
			return nil, fmt.Errorf("failed to write reference audio: %w", err)
		}
		p.ReferenceFile = path
	}

	voices, err := s.readList()
	if err != nil {
		return nil, err
	}

	replaced := false
	for i := range voices {
		if voices[i].ID == p.ID {
			voices[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		voices = append(voices, p)
	}

	if err := s.writeList(voices); err != nil {
		return nil, err
	}
	s.logger.Info().Str("voice_id", p.ID).Str("name", p.Name).Msg("Voice profile saved")
	return &p, nil
}

// Delete removes a profile and its reference clip
func (s *Store) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	voices, err := s.readList()
	if err != nil {
		return err
	}

	kept := voices[:0]
	var removed *Profile
	for i := range voices {
		if voices[i].ID == id {
			removed = &voices[i]
			continue
		}
		kept = append(kept, voices[i])
	}
	if removed == nil {
		return fmt.Errorf("voice %q not found", id)
	}

	if err := s.writeList(kept); err != nil {
		return err
	}
	if removed.ReferenceFile != "" {
		if err := os.Remove(removed.ReferenceFile); err != nil && !os.IsNotExist(err) {
			s.logger.Warn().Err(err).Str("voice_id", id).Msg("Failed to remove reference audio")
		}
	}
	return nil
}

func (s *Store) readList() ([]Profile, error) {
	data, err := os.ReadFile(s.listPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read voices list: %w", err)
	}
	var voices []Profile
	if err := json.Unmarshal(data, &voices); err != nil {
		return nil, fmt.Errorf("failed to parse voices list: %w", err)
	}
	return voices, nil
}

func (s *Store) writeList(voices []Profile) error {
	if voices == nil {
		voices = []Profile{}
	}
	data, err := json.MarshalIndent(voices, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode voices list: %w", err)
	}
	if err := os.WriteFile(s.listPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write voices list: %w", err)
	}
	return nil
}

// decodeReference accepts either raw audio bytes or a base64 data URL
func decodeReference(data []byte) ([]byte, error) {
	str := string(data)
	if strings.HasPrefix(str, "data:") {
		idx := strings.Index(str, "base64,")
		if idx < 0 {
			return nil, fmt.Errorf("unsupported data URL encoding")
		}
		raw, err := base64.StdEncoding.DecodeString(str[idx+len("base64,"):])
		if err != nil {
			return nil, fmt.Errorf("invalid base64 reference audio: %w", err)
		}
		return raw, nil
	}
	return data, nil
}

// newVoiceID generates ids in the original "<unix-millis>-<short-hex>" shape
func newVoiceID() string {
	u := uuid.New()
	return fmt.Sprintf("%d-%.7s", time.Now().UnixMilli(), hex.EncodeToString(u[:]))
}
