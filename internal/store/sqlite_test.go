package store

import (
	"io"
	"log/slog"
	"path/filepath"
	"testing"
)

// newTestStore creates an in-memory SQLite store for testing
func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(":memory:", slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestNew(t *testing.T) {
	s := newTestStore(t)

	if s.db == nil {
		t.Error("expected db to be initialized")
	}
	if s.logger == nil {
		t.Error("expected logger to be initialized")
	}
}

func TestLoadStateNoProgress(t *testing.T) {
	s := newTestStore(t)

	st, err := s.LoadState("job-without-history")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if st != nil {
		t.Errorf("expected nil state for unknown job, got %+v", st)
	}
}

func TestSaveAndLoadState(t *testing.T) {
	s := newTestStore(t)

	st := &State{
		JobID:              "job-abc",
		LastCompletedIndex: 12,
		MaxIndex:           277,
		OutputDir:          "/data/takeout",
		DelaySeconds:       5,
	}
	if err := s.SaveState(st); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if st.UpdatedAt.IsZero() {
		t.Error("expected UpdatedAt to be set by SaveState")
	}

	loaded, err := s.LoadState("job-abc")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected state, got nil")
	}
	if loaded.LastCompletedIndex != 12 {
		t.Errorf("LastCompletedIndex = %d, want 12", loaded.LastCompletedIndex)
	}
	if loaded.MaxIndex != 277 {
		t.Errorf("MaxIndex = %d, want 277", loaded.MaxIndex)
	}
	if loaded.OutputDir != "/data/takeout" {
		t.Errorf("OutputDir = %q, want /data/takeout", loaded.OutputDir)
	}
	if loaded.DelaySeconds != 5 {
		t.Errorf("DelaySeconds = %d, want 5", loaded.DelaySeconds)
	}
}

func TestSaveStateUpsertAdvancesMarker(t *testing.T) {
	s := newTestStore(t)

	st := &State{JobID: "job-abc", LastCompletedIndex: 1, MaxIndex: 277, OutputDir: "/d", DelaySeconds: 5}
	for i := 1; i <= 4; i++ {
		st.LastCompletedIndex = i
		if err := s.SaveState(st); err != nil {
			t.Fatalf("SaveState(%d) failed: %v", i, err)
		}
	}

	loaded, err := s.LoadState("job-abc")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.LastCompletedIndex != 4 {
		t.Errorf("LastCompletedIndex = %d, want 4", loaded.LastCompletedIndex)
	}
}

func TestStatePerJobIsolation(t *testing.T) {
	s := newTestStore(t)

	a := &State{JobID: "job-a", LastCompletedIndex: 3, MaxIndex: 10, OutputDir: "/a", DelaySeconds: 1}
	b := &State{JobID: "job-b", LastCompletedIndex: 7, MaxIndex: 20, OutputDir: "/b", DelaySeconds: 2}
	if err := s.SaveState(a); err != nil {
		t.Fatalf("SaveState(a) failed: %v", err)
	}
	if err := s.SaveState(b); err != nil {
		t.Fatalf("SaveState(b) failed: %v", err)
	}

	loaded, err := s.LoadState("job-a")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded.LastCompletedIndex != 3 || loaded.OutputDir != "/a" {
		t.Errorf("job-a state contaminated: %+v", loaded)
	}
}

func TestDeleteState(t *testing.T) {
	s := newTestStore(t)

	st := &State{JobID: "job-abc", LastCompletedIndex: 1, MaxIndex: 277, OutputDir: "/d", DelaySeconds: 5}
	if err := s.SaveState(st); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := s.DeleteState("job-abc"); err != nil {
		t.Fatalf("DeleteState failed: %v", err)
	}

	loaded, err := s.LoadState("job-abc")
	if err != nil {
		t.Fatalf("LoadState failed: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil after delete, got %+v", loaded)
	}
}

func TestStateSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "progress.db")
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s1, err := New(dbPath, logger)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	st := &State{JobID: "job-abc", LastCompletedIndex: 42, MaxIndex: 277, OutputDir: "/d", DelaySeconds: 5}
	if err := s1.SaveState(st); err != nil {
		t.Fatalf("SaveState failed: %v", err)
	}
	if err := s1.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	// Simulated restart: a fresh process must see the marker.
	s2, err := New(dbPath, logger)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()

	loaded, err := s2.LoadState("job-abc")
	if err != nil {
		t.Fatalf("LoadState after reopen failed: %v", err)
	}
	if loaded == nil || loaded.LastCompletedIndex != 42 {
		t.Errorf("state after reopen = %+v, want LastCompletedIndex 42", loaded)
	}
}
