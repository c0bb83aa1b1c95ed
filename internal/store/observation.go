package store

import (
	"database/sql"
	"time"

	"github.com/ayusman/mudra/internal/hand"
)

// ObservationRecord is one stored hand observation.
type ObservationRecord struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"session_id"`
	Frame       int       `json:"frame"`
	HandID      int       `json:"hand_id"`
	CenterX     float64   `json:"center_x"`
	CenterY     float64   `json:"center_y"`
	PinchLength float64   `json:"pinch_length"`
	PinchAngle  float64   `json:"pinch_angle"`
	IsPinching  bool      `json:"is_pinching"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// ObservationRepository stores observations per session.
type ObservationRepository struct {
	db *sql.DB
}

// Observations returns the observation repository for this store.
func (s *Store) Observations() *ObservationRepository {
	return &ObservationRepository{db: s.db}
}

// Create inserts one frame's observations in a single transaction.
func (r *ObservationRepository) Create(sessionID string, frame int, observations []hand.Observation) error {
	if len(observations) == 0 {
		return nil
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO observations
		 (session_id, frame, hand_id, center_x, center_y, pinch_length, pinch_angle, is_pinching, recorded_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, o := range observations {
		pinching := 0
		if o.IsPinching {
			pinching = 1
		}
		if _, err := stmt.Exec(sessionID, frame, o.HandID, o.Center.X, o.Center.Y,
			o.PinchLength, o.PinchAngle, pinching, now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// GetBySessionID retrieves a session's observations in frame order.
func (r *ObservationRepository) GetBySessionID(sessionID string) ([]ObservationRecord, error) {
	rows, err := r.db.Query(
		`SELECT id, session_id, frame, hand_id, center_x, center_y, pinch_length, pinch_angle, is_pinching, recorded_at
		 FROM observations
		 WHERE session_id = ?
		 ORDER BY frame, hand_id`,
		sessionID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []ObservationRecord
	for rows.Next() {
		var o ObservationRecord
		var pinching int
		if err := rows.Scan(&o.ID, &o.SessionID, &o.Frame, &o.HandID, &o.CenterX, &o.CenterY,
			&o.PinchLength, &o.PinchAngle, &pinching, &o.RecordedAt); err != nil {
			return nil, err
		}
		o.IsPinching = pinching == 1
		records = append(records, o)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

// CountBySessionID returns how many observations a session has.
func (r *ObservationRepository) CountBySessionID(sessionID string) (int, error) {
	var n int
	err := r.db.QueryRow(`SELECT COUNT(*) FROM observations WHERE session_id = ?`, sessionID).Scan(&n)
	return n, err
}
