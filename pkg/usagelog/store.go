// Package usagelog persists admission decisions to a local SQLite database
// for offline inspection and abuse analysis. Subjects are stored as hashes,
// never as raw user IDs or addresses.
package usagelog

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver
)

// Event is one recorded admission decision.
type Event struct {
	ID          int64
	Timestamp   time.Time
	SubjectHash string
	Class       string
	Tier        string
	Status      string
	Reason      string
}

// Store is the SQLite-backed event log.
type Store struct {
	db *sql.DB

	insertStmt *sql.Stmt
	purgeStmt  *sql.Stmt
}

// StoreConfig configures the SQLite store.
type StoreConfig struct {
	// Path is the SQLite database file.
	Path string

	// BusyTimeout is how long to wait for locks before failing.
	// Default: 5 seconds
	BusyTimeout time.Duration
}

// NewStore opens (or creates) the event database at the configured path.
func NewStore(cfg StoreConfig) (*Store, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("db path cannot be empty")
	}
	if cfg.BusyTimeout == 0 {
		cfg.BusyTimeout = 5 * time.Second
	}

	// modernc.org/sqlite takes pragmas as _pragma=name(value) pairs; the
	// mattn-style _journal_mode form is silently ignored by this driver.
	dsn := fmt.Sprintf("%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(%d)&_pragma=synchronous(NORMAL)",
		cfg.Path, int(cfg.BusyTimeout.Milliseconds()))

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite only supports a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	s := &Store{db: db}

	if err := s.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	if err := s.prepareStatements(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to prepare statements: %w", err)
	}

	return s, nil
}

func (s *Store) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS admission_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		subject_hash TEXT NOT NULL,
		class TEXT NOT NULL,
		tier TEXT NOT NULL,
		status TEXT NOT NULL,
		reason TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_admission_events_ts ON admission_events(ts);
	CREATE INDEX IF NOT EXISTS idx_admission_events_subject ON admission_events(subject_hash, ts);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *Store) prepareStatements() error {
	var err error

	s.insertStmt, err = s.db.Prepare(`
		INSERT INTO admission_events (ts, subject_hash, class, tier, status, reason)
		VALUES (?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	s.purgeStmt, err = s.db.Prepare(`
		DELETE FROM admission_events WHERE ts < ?
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare purge: %w", err)
	}

	return nil
}

// Insert writes one event.
func (s *Store) Insert(ctx context.Context, e Event) error {
	_, err := s.insertStmt.ExecContext(ctx,
		e.Timestamp.UnixMilli(), e.SubjectHash, e.Class, e.Tier, e.Status, e.Reason)
	if err != nil {
		return fmt.Errorf("failed to insert event: %w", err)
	}
	return nil
}

// PurgeBefore deletes all events older than the cutoff and returns how many
// rows were removed.
func (s *Store) PurgeBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.purgeStmt.ExecContext(ctx, cutoff.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to purge events: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return n, nil
}

// RecentBySubject returns up to limit events for a hashed subject, newest
// first.
func (s *Store) RecentBySubject(ctx context.Context, subjectHash string, limit int) ([]Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, ts, subject_hash, class, tier, status, reason
		FROM admission_events
		WHERE subject_hash = ?
		ORDER BY ts DESC, id DESC
		LIMIT ?
	`, subjectHash, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var e Event
		var ts int64
		if err := rows.Scan(&e.ID, &ts, &e.SubjectHash, &e.Class, &e.Tier, &e.Status, &e.Reason); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		e.Timestamp = time.UnixMilli(ts).UTC()
		events = append(events, e)
	}
	return events, rows.Err()
}

// Count returns the total number of stored events.
func (s *Store) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM admission_events`).Scan(&n)
	return n, err
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the prepared statements and the database handle.
func (s *Store) Close() error {
	if s.insertStmt != nil {
		s.insertStmt.Close()
	}
	if s.purgeStmt != nil {
		s.purgeStmt.Close()
	}
	return s.db.Close()
}
