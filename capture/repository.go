// Package capture persists periodic counter readings to sqlite, grouped into
// sessions so that counts from different runs don't get mixed together.
package capture

import (
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

//go:embed schema.sql
var schema string

type Session struct {
	Id        int64
	Uuid      uuid.UUID
	Label     string
	StartedAt time.Time
}

type Sample struct {
	Id        int64
	SessionId int64
	SampledAt time.Time
	Count     int64
}

type Repository struct {
	Db *sql.DB
}

// NewRepository applies the schema and wraps the database handle.
func NewRepository(db *sql.DB) (*Repository, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("Couldn't initialise database:\n%w", err)
	}
	return &Repository{Db: db}, nil
}

func (r *Repository) Close() error {
	return r.Db.Close()
}

func (r *Repository) Transact(f func(tx *sql.Tx) error) error {
	tx, err := r.Db.Begin()
	if err != nil {
		return fmt.Errorf("Couldn't begin transaction:\n%w", err)
	}
	if err := f(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

func (r *Repository) CreateSession(label string) (*Session, error) {
	s := Session{
		Uuid:      uuid.New(),
		Label:     label,
		StartedAt: time.Now(),
	}

	res, err := r.Db.Exec(`
		INSERT INTO capture_session (uuid, label, started_at)
		VALUES (?, ?, ?)`, s.Uuid.String(), s.Label, s.StartedAt.Unix())
	if err != nil {
		return nil, fmt.Errorf("Couldn't create session:\n%w", err)
	}
	if s.Id, err = res.LastInsertId(); err != nil {
		return nil, fmt.Errorf("Couldn't read session id:\n%w", err)
	}

	return &s, nil
}

// GetSession returns the session with the given uuid, or nil if there isn't
// one.
func (r *Repository) GetSession(u uuid.UUID) (*Session, error) {
	row := r.Db.QueryRow(`
		SELECT id, label, started_at
		FROM capture_session
		WHERE uuid = ?`, u.String())

	s := Session{Uuid: u}
	var startedAt int64
	if err := row.Scan(&s.Id, &s.Label, &startedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("Failed to read session:\n%w", err)
	}
	s.StartedAt = time.Unix(startedAt, 0)

	return &s, nil
}

func (r *Repository) ListSessions() ([]Session, error) {
	rows, err := r.Db.Query(`
		SELECT id, uuid, label, started_at
		FROM capture_session
		ORDER BY started_at`)
	if err != nil {
		return nil, fmt.Errorf("Query execution failed:\n%w", err)
	}
	defer rows.Close()

	sessions := []Session{}
	for rows.Next() {
		s := Session{}
		var uuidString string
		var startedAt int64
		if err := rows.Scan(&s.Id, &uuidString, &s.Label, &startedAt); err != nil {
			return nil, fmt.Errorf("Row scanning failed:\n%w", err)
		}
		s.Uuid = uuid.MustParse(uuidString)
		s.StartedAt = time.Unix(startedAt, 0)
		sessions = append(sessions, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Error iterating rows:\n%w", err)
	}

	return sessions, nil
}

func (r *Repository) RecordSample(sessionId int64, at time.Time, count int64) error {
	_, err := r.Db.Exec(`
		INSERT INTO capture_sample (session_id, sampled_at, count)
		VALUES (?, ?, ?)`, sessionId, at.Unix(), count)
	if err != nil {
		return fmt.Errorf("Couldn't record sample:\n%w", err)
	}
	return nil
}

func (r *Repository) SamplesForSession(sessionId int64) ([]Sample, error) {
	rows, err := r.Db.Query(`
		SELECT id, session_id, sampled_at, count
		FROM capture_sample
		WHERE session_id = ?
		ORDER BY sampled_at`, sessionId)
	if err != nil {
		return nil, fmt.Errorf("Query execution failed:\n%w", err)
	}
	defer rows.Close()

	samples := []Sample{}
	for rows.Next() {
		s := Sample{}
		var sampledAt int64
		if err := rows.Scan(&s.Id, &s.SessionId, &sampledAt, &s.Count); err != nil {
			return nil, fmt.Errorf("Row scanning failed:\n%w", err)
		}
		s.SampledAt = time.Unix(sampledAt, 0)
		samples = append(samples, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("Error iterating rows:\n%w", err)
	}

	return samples, nil
}
