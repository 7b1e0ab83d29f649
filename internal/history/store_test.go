package history

import (
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestRecordAndRecent(t *testing.T) {
	s := newTestStore(t)

	if err := s.Record("dev", ActionCreate, "8 GB, ubuntu:24.04"); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("dev", ActionStart, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}
	if err := s.Record("build", ActionStop, ""); err != nil {
		t.Fatalf("Record: %v", err)
	}

	events, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("len = %d, want 3", len(events))
	}
	// Most recent first.
	if events[0].PublicName != "build" || events[0].Action != ActionStop {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[2].Action != ActionCreate || events[2].Detail != "8 GB, ubuntu:24.04" {
		t.Errorf("events[2] = %+v", events[2])
	}
	if events[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not recorded")
	}
	if time.Since(events[0].CreatedAt) > time.Minute {
		t.Errorf("CreatedAt = %v, want roughly now", events[0].CreatedAt)
	}
}

func TestRecentHonorsLimit(t *testing.T) {
	s := newTestStore(t)
	for i := 0; i < 5; i++ {
		if err := s.Record("dev", ActionStart, ""); err != nil {
			t.Fatal(err)
		}
	}
	events, err := s.Recent(2)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 2 {
		t.Errorf("len = %d, want 2", len(events))
	}
}

func TestRecentEmptyStore(t *testing.T) {
	s := newTestStore(t)
	events, err := s.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(events) != 0 {
		t.Errorf("len = %d, want 0", len(events))
	}
}

func TestStoreReopens(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "history.db")
	s, err := NewStore(dbPath)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Record("dev", ActionCreate, ""); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s2, err := NewStore(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	events, err := s2.Recent(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(events) != 1 {
		t.Errorf("len after reopen = %d, want 1", len(events))
	}
}
