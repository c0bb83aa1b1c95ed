package store

import (
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/ayusman/mudra/internal/hand"
)

// Recorder writes every broadcast frame into one session.
type Recorder struct {
	store   *Store
	session *Session
	log     *zap.Logger

	mu     sync.Mutex
	frames int
	closed bool
}

// NewRecorder starts a session for sess.
func NewRecorder(s *Store, sess Session, log *zap.Logger) (*Recorder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := s.Sessions().Create(&sess); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	log.Info("recording session", zap.String("session", sess.ID), zap.String("db", s.Path()))
	return &Recorder{store: s, session: &sess, log: log}, nil
}

// SessionID returns the recorded session's ID.
func (r *Recorder) SessionID() string {
	return r.session.ID
}

// SetSource updates the session once the tracker knows its source.
func (r *Recorder) SetSource(source, mode string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.store.Sessions().SetSource(r.session.ID, source, mode); err != nil {
		return fmt.Errorf("update session source: %w", err)
	}
	r.session.Source = source
	r.session.Mode = mode
	return nil
}

// Broadcast stores one frame's observations. Write errors are logged.
func (r *Recorder) Broadcast(observations []hand.Observation) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.frames++

	if err := r.store.Observations().Create(r.session.ID, r.frames, observations); err != nil {
		r.log.Warn("record observations", zap.Int("frame", r.frames), zap.Error(err))
	}
}

// Frames returns the number of frames seen.
func (r *Recorder) Frames() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.frames
}

// Close ends the session. It does not close the store.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true
	return r.store.Sessions().End(r.session.ID, r.frames)
}
