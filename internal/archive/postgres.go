package archive

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Schema is the SQL DDL for the sessions table. Execute it via
// [PostgresStore.Migrate] or apply it manually during deployment.
const Schema = `
CREATE TABLE IF NOT EXISTS sessions (
    session_id   TEXT PRIMARY KEY,
    learner_name TEXT NOT NULL DEFAULT '',
    nationality  TEXT NOT NULL DEFAULT '',
    transcript   TEXT NOT NULL,
    report       TEXT NOT NULL,
    score        TEXT NOT NULL DEFAULT '0',
    clarity      TEXT NOT NULL DEFAULT '-',
    naturalness  TEXT NOT NULL DEFAULT '-',
    created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS idx_sessions_created_at ON sessions(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_sessions_learner ON sessions(learner_name);
`

// defaultListLimit bounds List when the caller passes a non-positive limit.
const defaultListLimit = 50

// DB is the database interface used by [PostgresStore]. Both *pgxpool.Pool
// and *pgx.Conn satisfy this interface.
type DB interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PostgresStore is a [Store] backed by a PostgreSQL database.
type PostgresStore struct {
	db DB
}

// Compile-time interface check.
var _ Store = (*PostgresStore)(nil)

// NewPostgresStore creates a new [PostgresStore] that uses the given database
// connection or pool. The caller is responsible for calling
// [PostgresStore.Migrate] to ensure the schema exists before issuing queries.
func NewPostgresStore(db DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// Migrate executes the [Schema] DDL against the database, creating the
// sessions table and indexes if they do not already exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("archive: migrate: %w", err)
	}
	return nil
}

// Save implements [Store]. Re-saving the same session ID replaces the row.
func (s *PostgresStore) Save(ctx context.Context, e *Entry) error {
	const query = `
		INSERT INTO sessions (
			session_id, learner_name, nationality, transcript, report,
			score, clarity, naturalness
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		ON CONFLICT (session_id) DO UPDATE SET
			learner_name = EXCLUDED.learner_name,
			nationality = EXCLUDED.nationality,
			transcript = EXCLUDED.transcript,
			report = EXCLUDED.report,
			score = EXCLUDED.score,
			clarity = EXCLUDED.clarity,
			naturalness = EXCLUDED.naturalness
		RETURNING created_at`

	err := s.db.QueryRow(ctx, query,
		e.SessionID, e.LearnerName, e.Nationality, e.Transcript, e.Report,
		e.Score, e.Clarity, e.Naturalness,
	).Scan(&e.CreatedAt)
	if err != nil {
		return fmt.Errorf("archive: save %q: %w", e.SessionID, err)
	}
	return nil
}

// List implements [Store], returning the newest sessions first.
func (s *PostgresStore) List(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	const query = `
		SELECT session_id, learner_name, nationality, transcript, report,
		       score, clarity, naturalness, created_at
		FROM sessions
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(
			&e.SessionID, &e.LearnerName, &e.Nationality, &e.Transcript, &e.Report,
			&e.Score, &e.Clarity, &e.Naturalness, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("archive: list scan: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("archive: list: %w", err)
	}
	return entries, nil
}

// Ping implements [Store] with a trivial round-trip query.
func (s *PostgresStore) Ping(ctx context.Context) error {
	var one int
	if err := s.db.QueryRow(ctx, "SELECT 1").Scan(&one); err != nil {
		return fmt.Errorf("archive: ping: %w", err)
	}
	return nil
}
