package fragment

import (
	"bytes"
	"testing"
)

func TestStore_AppendPreservesArrivalOrder(t *testing.T) {
	store := NewStore()

	// Out-of-sequence arrival must not be reordered
	for _, id := range []int{2, 1, 3} {
		if !store.Append(New(id, payload(id), 24000, &fakeHandle{})) {
			t.Errorf("Expected append of fragment %d to succeed", id)
		}
	}

	if store.Len() != 3 {
		t.Errorf("Expected 3 fragments, got %d", store.Len())
	}

	all := store.All()
	want := []int{2, 1, 3}
	for i, id := range want {
		if all[i].SequenceID != id {
			t.Errorf("Expected fragment %d at position %d, got %d", id, i, all[i].SequenceID)
		}
	}

	for _, id := range want {
		f, ok := store.Get(id)
		if !ok {
			t.Fatalf("Expected Get(%d) to find fragment", id)
		}
		if !bytes.Equal(f.Raw, payload(id)) {
			t.Errorf("Expected fragment %d to keep its raw bytes", id)
		}
	}
}

func TestStore_DuplicateKeepsOriginal(t *testing.T) {
	store := NewStore()

	original := New(1, []byte("original"), 24000, &fakeHandle{})
	if !store.Append(original) {
		t.Fatal("Expected first append to succeed")
	}

	dup := New(1, []byte("impostor"), 24000, &fakeHandle{})
	if store.Append(dup) {
		t.Error("Expected duplicate sequence id to be rejected")
	}

	if store.Len() != 1 {
		t.Errorf("Expected 1 fragment after duplicate, got %d", store.Len())
	}
	f, _ := store.Get(1)
	if string(f.Raw) != "original" {
		t.Errorf("Expected original raw bytes to survive, got %q", f.Raw)
	}
}

func TestStore_First(t *testing.T) {
	store := NewStore()

	if _, ok := store.First(); ok {
		t.Error("Expected First on empty store to report no fragment")
	}

	store.Append(New(5, payload(5), 24000, &fakeHandle{}))
	store.Append(New(1, payload(1), 24000, &fakeHandle{}))

	first, ok := store.First()
	if !ok {
		t.Fatal("Expected First to find a fragment")
	}
	if first.SequenceID != 5 {
		t.Errorf("Expected first-arrived fragment 5, got %d", first.SequenceID)
	}
}

func TestStore_ResetReleasesHandles(t *testing.T) {
	store := NewStore()

	handles := []*fakeHandle{{}, {}}
	store.Append(New(1, payload(1), 24000, handles[0]))
	store.Append(New(2, payload(2), 24000, handles[1]))

	store.Reset()

	if store.Len() != 0 {
		t.Errorf("Expected empty store after reset, got %d fragments", store.Len())
	}
	if _, ok := store.Get(1); ok {
		t.Error("Expected Get to miss after reset")
	}
	for i, h := range handles {
		if !h.isClosed() {
			t.Errorf("Expected handle %d to be closed on reset", i)
		}
	}
}

func TestFragment_ReleaseIsIdempotent(t *testing.T) {
	h := &fakeHandle{}
	f := New(1, payload(1), 24000, h)

	f.Release()
	f.Release()

	if !h.isClosed() {
		t.Error("Expected handle to be closed after release")
	}
	if f.Handle() != nil {
		t.Error("Expected handle to be detached after release")
	}
}
