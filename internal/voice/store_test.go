package voice

import (
	"bytes"
	"encoding/base64"
	"os"
	"testing"

	"github.com/rs/zerolog"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatalf("Expected store creation to succeed, got %v", err)
	}
	return s
}

func TestSave_RoundTrip(t *testing.T) {
	store := newTestStore(t)

	ref := []byte("reference-clip-bytes")
	saved, err := store.Save(Profile{Name: "Narrator", Exaggeration: 0.7}, ref)
	if err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}
	if saved.ID == "" {
		t.Error("Expected an id to be assigned")
	}
	if saved.CreatedAt.IsZero() {
		t.Error("Expected CreatedAt to be set")
	}
	if saved.ReferenceFile == "" {
		t.Fatal("Expected a reference file path")
	}

	data, err := os.ReadFile(saved.ReferenceFile)
	if err != nil {
		t.Fatalf("Expected reference clip on disk, got %v", err)
	}
	if !bytes.Equal(data, ref) {
		t.Error("Expected reference clip bytes to round-trip")
	}

	got, err := store.Get(saved.ID)
	if err != nil {
		t.Fatalf("Expected Get to find the saved voice, got %v", err)
	}
	if got.Name != "Narrator" {
		t.Errorf("Expected name Narrator, got %q", got.Name)
	}
	if got.Exaggeration != 0.7 {
		t.Errorf("Expected exaggeration 0.7, got %v", got.Exaggeration)
	}

	voices, err := store.List()
	if err != nil {
		t.Fatalf("Expected List to succeed, got %v", err)
	}
	if len(voices) != 1 {
		t.Errorf("Expected 1 voice, got %d", len(voices))
	}
}

func TestSave_DataURLReference(t *testing.T) {
	store := newTestStore(t)

	ref := []byte("wav-bytes")
	dataURL := "data:audio/wav;base64," + base64.StdEncoding.EncodeToString(ref)
	saved, err := store.Save(Profile{Name: "Clone"}, []byte(dataURL))
	if err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	data, err := os.ReadFile(saved.ReferenceFile)
	if err != nil {
		t.Fatalf("Expected reference clip on disk, got %v", err)
	}
	if !bytes.Equal(data, ref) {
		t.Error("Expected data URL payload to be decoded before writing")
	}
}

func TestSave_OverwritesSameID(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(Profile{Name: "First"}, nil)
	if err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}
	if _, err := store.Save(Profile{ID: saved.ID, Name: "Renamed"}, nil); err != nil {
		t.Fatalf("Expected overwrite to succeed, got %v", err)
	}

	voices, _ := store.List()
	if len(voices) != 1 {
		t.Fatalf("Expected 1 voice after overwrite, got %d", len(voices))
	}
	if voices[0].Name != "Renamed" {
		t.Errorf("Expected renamed profile, got %q", voices[0].Name)
	}
}

func TestResolve_ByIDAndName(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(Profile{Name: "Narrator"}, nil)
	if err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	byID, err := store.Resolve(saved.ID)
	if err != nil || byID.ID != saved.ID {
		t.Errorf("Expected resolve by id to find the voice, got %v", err)
	}
	byName, err := store.Resolve("Narrator")
	if err != nil || byName.ID != saved.ID {
		t.Errorf("Expected resolve by name to find the voice, got %v", err)
	}
	if _, err := store.Resolve("missing"); err == nil {
		t.Error("Expected resolve of unknown voice to fail")
	}
}

func TestDelete(t *testing.T) {
	store := newTestStore(t)

	saved, err := store.Save(Profile{Name: "Ephemeral"}, []byte("clip"))
	if err != nil {
		t.Fatalf("Expected save to succeed, got %v", err)
	}

	if err := store.Delete(saved.ID); err != nil {
		t.Fatalf("Expected delete to succeed, got %v", err)
	}
	if _, err := store.Get(saved.ID); err == nil {
		t.Error("Expected Get to miss after delete")
	}
	if _, err := os.Stat(saved.ReferenceFile); !os.IsNotExist(err) {
		t.Error("Expected reference clip to be removed with the profile")
	}

	if err := store.Delete("missing"); err == nil {
		t.Error("Expected delete of unknown voice to fail")
	}
}
