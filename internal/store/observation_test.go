package store

import (
	"testing"

	"github.com/ayusman/mudra/internal/hand"
)

func pinchingHands() []hand.Observation {
	return []hand.Observation{
		{HandID: 0, Center: hand.Point{X: 0.5, Y: 0.5}, PinchLength: 0.03, PinchAngle: 90, IsPinching: true},
		{HandID: 1, Center: hand.Point{X: 0.25, Y: 0.75}, PinchLength: 0.2, PinchAngle: -45},
	}
}

func TestObservationRepository_CreateAndGet(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Source: "NDI", Mode: "NETWORK"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	repo := s.Observations()
	if err := repo.Create(sess.ID, 2, pinchingHands()[:1]); err != nil {
		t.Fatalf("Create() frame 2 error = %v", err)
	}
	if err := repo.Create(sess.ID, 1, pinchingHands()); err != nil {
		t.Fatalf("Create() frame 1 error = %v", err)
	}

	records, err := repo.GetBySessionID(sess.ID)
	if err != nil {
		t.Fatalf("GetBySessionID() error = %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("GetBySessionID() returned %d records, want 3", len(records))
	}

	first := records[0]
	if first.Frame != 1 || first.HandID != 0 {
		t.Errorf("records not in frame order: first = frame %d hand %d", first.Frame, first.HandID)
	}
	if !first.IsPinching || first.PinchLength != 0.03 || first.PinchAngle != 90 {
		t.Errorf("first record = %+v", first)
	}
	if first.CenterX != 0.5 || first.CenterY != 0.5 {
		t.Errorf("center = (%v, %v), want (0.5, 0.5)", first.CenterX, first.CenterY)
	}
	if records[1].IsPinching {
		t.Error("second hand should not be pinching")
	}
	if records[2].Frame != 2 {
		t.Errorf("last record frame = %d, want 2", records[2].Frame)
	}
}

func TestObservationRepository_EmptyFrameWritesNothing(t *testing.T) {
	s := newTestStore(t)

	sess := &Session{Source: "NDI", Mode: "NETWORK"}
	if err := s.Sessions().Create(sess); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	if err := s.Observations().Create(sess.ID, 1, nil); err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	n, err := s.Observations().CountBySessionID(sess.ID)
	if err != nil {
		t.Fatalf("CountBySessionID() error = %v", err)
	}
	if n != 0 {
		t.Errorf("count = %d, want 0", n)
	}
}

func TestObservationRepository_UnknownSession(t *testing.T) {
	s := newTestStore(t)

	if err := s.Observations().Create("missing", 1, pinchingHands()); err == nil {
		t.Error("Create() should fail for an unknown session")
	}
}
