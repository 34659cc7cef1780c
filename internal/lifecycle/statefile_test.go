package lifecycle

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestStateFileRoundTrip(t *testing.T) {
	s := NewStateFile(filepath.Join(t.TempDir(), "servers.json"))
	e := StateEntry{PID: 42, Port: 18012, ModelPath: "/models/a.gguf", LogPath: "/logs/a.log", StartedAt: time.Now().UTC()}
	if err := s.Put("a", e); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get("a")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.PID != e.PID || got.Port != e.Port || got.ModelPath != e.ModelPath {
		t.Fatalf("entry mismatch: %+v", got)
	}
	if err := s.Delete("a"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := s.Get("a"); ok {
		t.Fatalf("entry must be gone")
	}
	// Deleting again is a no-op.
	if err := s.Delete("a"); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestStateFileMissingIsEmpty(t *testing.T) {
	s := NewStateFile(filepath.Join(t.TempDir(), "servers.json"))
	all, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("expected empty, got %v", all)
	}
}

func TestStateFileCorruptIsEmpty(t *testing.T) {
	p := filepath.Join(t.TempDir(), "servers.json")
	if err := os.WriteFile(p, []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	s := NewStateFile(p)
	all, err := s.All()
	if err != nil {
		t.Fatalf("all: %v", err)
	}
	if len(all) != 0 {
		t.Fatalf("corrupt file must read as empty, got %v", all)
	}
}

func TestStateFileClear(t *testing.T) {
	s := NewStateFile(filepath.Join(t.TempDir(), "servers.json"))
	_ = s.Put("a", StateEntry{PID: 1})
	_ = s.Put("b", StateEntry{PID: 2})
	if err := s.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	all, _ := s.All()
	if len(all) != 0 {
		t.Fatalf("expected empty after clear, got %v", all)
	}
}
