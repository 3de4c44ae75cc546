package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Run is one control session from startup to stop.
type Run struct {
	ID         string     `json:"id"`
	Sink       string     `json:"sink"`
	StartedAt  time.Time  `json:"started_at"`
	EndedAt    *time.Time `json:"ended_at,omitempty"`
	Frames     int64      `json:"frames"`
	Detected   int64      `json:"detected"`
	Updates    int64      `json:"updates"`
	FinalLevel *float64   `json:"final_level,omitempty"`
	EndReason  string     `json:"end_reason,omitempty"`
}

// Event marks the frame at which a run entered a phase.
type Event struct {
	Phase string    `json:"phase"`
	Frame uint64    `json:"frame"`
	At    time.Time `json:"at"`
}

// RunRepository provides access to recorded runs.
type RunRepository struct {
	db *sql.DB
}

// Runs returns the run repository for this store.
func (s *Store) Runs() *RunRepository {
	return &RunRepository{db: s.db}
}

// Create inserts a new run. An empty ID is filled with a fresh UUID and a
// zero StartedAt with the current time.
func (r *RunRepository) Create(run *Run) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}

	_, err := r.db.Exec(
		`INSERT INTO runs (id, sink, started_at) VALUES (?, ?, ?)`,
		run.ID, run.Sink, run.StartedAt,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	return nil
}

// Finish stores the closing counters of a run together with its phase events.
func (r *RunRepository) Finish(run *Run, events []Event) error {
	if run.EndedAt == nil {
		now := time.Now()
		run.EndedAt = &now
	}

	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var final sql.NullFloat64
	if run.FinalLevel != nil {
		final = sql.NullFloat64{Float64: *run.FinalLevel, Valid: true}
	}

	result, err := tx.Exec(
		`UPDATE runs
		 SET ended_at = ?, frames = ?, detected = ?, updates = ?, final_level = ?, end_reason = ?
		 WHERE id = ?`,
		*run.EndedAt, run.Frames, run.Detected, run.Updates, final, run.EndReason, run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := result.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}

	stmt, err := tx.Prepare(`INSERT INTO run_events (run_id, phase, frame, at) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range events {
		if _, err := stmt.Exec(run.ID, e.Phase, int64(e.Frame), e.At); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
	}

	return tx.Commit()
}

// Get retrieves a run by its ID.
func (r *RunRepository) Get(id string) (*Run, error) {
	row := r.db.QueryRow(
		`SELECT id, sink, started_at, ended_at, frames, detected, updates, final_level, end_reason
		 FROM runs WHERE id = ?`,
		id,
	)

	run, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return run, nil
}

// List returns the most recent runs first. A limit <= 0 returns all runs.
func (r *RunRepository) List(limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}

	rows, err := r.db.Query(
		`SELECT id, sink, started_at, ended_at, frames, detected, updates, final_level, end_reason
		 FROM runs ORDER BY started_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return runs, nil
}

// Events returns the phase events of a run in the order they happened.
func (r *RunRepository) Events(runID string) ([]Event, error) {
	rows, err := r.db.Query(
		`SELECT phase, frame, at FROM run_events WHERE run_id = ? ORDER BY id`,
		runID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var frame int64
		if err := rows.Scan(&e.Phase, &frame, &e.At); err != nil {
			return nil, err
		}
		e.Frame = uint64(frame)
		events = append(events, e)
	}

	return events, rows.Err()
}

// Delete removes a run and its events.
func (r *RunRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM runs WHERE id = ?`, id)
	if err != nil {
		return err
	}

	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	run := &Run{}
	var ended sql.NullTime
	var final sql.NullFloat64

	err := s.Scan(&run.ID, &run.Sink, &run.StartedAt, &ended,
		&run.Frames, &run.Detected, &run.Updates, &final, &run.EndReason)
	if err != nil {
		return nil, err
	}

	if ended.Valid {
		t := ended.Time
		run.EndedAt = &t
	}
	if final.Valid {
		v := final.Float64
		run.FinalLevel = &v
	}
	return run, nil
}
