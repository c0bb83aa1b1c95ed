package store

import (
	"testing"

	"github.com/ayusman/mudra/internal/hand"
)

func TestRecorder(t *testing.T) {
	s := newTestStore(t)

	rec, err := NewRecorder(s, Session{Source: "Camera 0", Mode: "LOCAL_CAMERA", OSCTarget: "127.0.0.1:8000"}, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	rec.Broadcast(pinchingHands())
	rec.Broadcast(nil)
	rec.Broadcast(pinchingHands()[:1])

	if rec.Frames() != 3 {
		t.Errorf("Frames() = %d, want 3", rec.Frames())
	}

	if err := rec.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second Close() error = %v", err)
	}

	// Broadcasts after Close are ignored.
	rec.Broadcast(pinchingHands())

	sess, err := s.Sessions().GetByID(rec.SessionID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if sess.Frames != 3 {
		t.Errorf("session frames = %d, want 3", sess.Frames)
	}
	if sess.EndedAt == nil {
		t.Error("session should be ended")
	}

	records, err := s.Observations().GetBySessionID(rec.SessionID())
	if err != nil {
		t.Fatalf("GetBySessionID() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("recorded %d observations, want 3", len(records))
	}
	if records[2].Frame != 3 {
		t.Errorf("last observation frame = %d, want 3", records[2].Frame)
	}
}

func TestRecorder_WriteErrorIsNotFatal(t *testing.T) {
	s := newTestStore(t)

	rec, err := NewRecorder(s, Session{Source: "NDI", Mode: "NETWORK"}, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	s.Close()

	// The database is gone; Broadcast logs and carries on.
	rec.Broadcast([]hand.Observation{{HandID: 0}})
	if rec.Frames() != 1 {
		t.Errorf("Frames() = %d, want 1", rec.Frames())
	}
}

func TestRecorder_SetSource(t *testing.T) {
	s := newTestStore(t)

	rec, err := NewRecorder(s, Session{Mode: "DISCONNECTED", OSCTarget: "127.0.0.1:8000"}, nil)
	if err != nil {
		t.Fatalf("NewRecorder() error = %v", err)
	}

	if err := rec.SetSource("NDI", "NETWORK"); err != nil {
		t.Fatalf("SetSource() error = %v", err)
	}

	sess, err := s.Sessions().GetByID(rec.SessionID())
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if sess.Source != "NDI" || sess.Mode != "NETWORK" {
		t.Errorf("session source = %q mode = %q", sess.Source, sess.Mode)
	}

	if err := rec.SetSource("NDI", "SATELLITE"); err == nil {
		t.Error("SetSource() should reject an unknown mode")
	}
}
