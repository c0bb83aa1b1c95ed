package store

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	s, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Source: "NDI", Mode: "NETWORK", OSCTarget: "127.0.0.1:8000"}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if _, err := uuid.Parse(sess.ID); err != nil {
		t.Errorf("Create() should assign a UUID, got %q", sess.ID)
	}
	if sess.StartedAt.IsZero() {
		t.Error("Create() should set StartedAt")
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}

	if got.Source != "NDI" || got.Mode != "NETWORK" || got.OSCTarget != "127.0.0.1:8000" {
		t.Errorf("GetByID() = %+v", got)
	}
	if got.EndedAt != nil {
		t.Error("new session should not have EndedAt")
	}
}

func TestSessionRepository_InvalidMode(t *testing.T) {
	s := newTestStore(t)

	err := s.Sessions().Create(&Session{Source: "NDI", Mode: "SATELLITE"})
	if err == nil {
		t.Error("Create() should reject an unknown mode")
	}
}

func TestSessionRepository_GetByID_NotFound(t *testing.T) {
	s := newTestStore(t)

	_, err := s.Sessions().GetByID("missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("GetByID() error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_End(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	sess := &Session{Source: "Camera 0", Mode: "LOCAL_CAMERA"}
	if err := repo.Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := repo.End(sess.ID, 120); err != nil {
		t.Fatalf("End() error = %v", err)
	}

	got, err := repo.GetByID(sess.ID)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if got.Frames != 120 {
		t.Errorf("Frames = %d, want 120", got.Frames)
	}
	if got.EndedAt == nil {
		t.Fatal("EndedAt should be set after End()")
	}

	if err := repo.End("missing", 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("End() on missing session error = %v, want ErrNotFound", err)
	}
}

func TestSessionRepository_ListNewestFirst(t *testing.T) {
	s := newTestStore(t)
	repo := s.Sessions()

	base := time.Now().Add(-time.Hour)
	for i, source := range []string{"first", "second", "third"} {
		sess := &Session{Source: source, Mode: "NETWORK", StartedAt: base.Add(time.Duration(i) * time.Minute)}
		if err := repo.Create(sess); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
	}

	sessions, err := repo.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(sessions) != 3 {
		t.Fatalf("List() returned %d sessions, want 3", len(sessions))
	}
	if sessions[0].Source != "third" || sessions[2].Source != "first" {
		t.Errorf("List() order = %s, %s, %s", sessions[0].Source, sessions[1].Source, sessions[2].Source)
	}
}

func TestSessionRepository_DeleteCascades(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Source: "NDI", Mode: "NETWORK"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}
	if err := s.Observations().Create(sess.ID, 1, pinchingHands()); err != nil {
		t.Fatalf("Observations().Create() error = %v", err)
	}

	if err := s.Sessions().Delete(sess.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}

	n, err := s.Observations().CountBySessionID(sess.ID)
	if err != nil {
		t.Fatalf("CountBySessionID() error = %v", err)
	}
	if n != 0 {
		t.Errorf("observations should be deleted with their session, found %d", n)
	}

	if err := s.Sessions().Delete(sess.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
}
