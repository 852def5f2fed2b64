// Package audit persists degraded-mode events in a dedicated SQLite
// database so operators can see when and why stale responses were served.
package audit

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	"github.com/stanza-ai/stanza/pkg/models"
	_ "modernc.org/sqlite"
)

// Store writes and queries audit events.
type Store struct {
	db            *sql.DB
	retentionDays int
	done          chan struct{}
	wg            sync.WaitGroup
}

// New opens the audit SQLite database and creates the schema. A positive
// retentionDays starts an hourly cleanup of events older than that.
func New(path string, retentionDays int) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate audit db: %w", err)
	}

	s := &Store{
		db:            db,
		retentionDays: retentionDays,
		done:          make(chan struct{}),
	}

	if retentionDays > 0 {
		s.wg.Add(1)
		go s.retentionLoop()
	}

	return s, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS audit_events (
		id          TEXT PRIMARY KEY,
		kind        TEXT NOT NULL,
		endpoint    TEXT,
		fingerprint TEXT,
		reason      TEXT NOT NULL,
		from_state  TEXT,
		to_state    TEXT,
		age_ms      INTEGER,
		created_at  DATETIME NOT NULL DEFAULT (datetime('now'))
	)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_kind ON audit_events(kind)`)
	if err != nil {
		return err
	}
	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_created ON audit_events(created_at)`)
	return err
}

// Record inserts one audit event.
func (s *Store) Record(ctx context.Context, ev models.AuditEvent) error {
	if s == nil || s.db == nil {
		return nil
	}
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO audit_events
		(id, kind, endpoint, fingerprint, reason, from_state, to_state, age_ms, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		ev.ID, ev.Kind, ev.Endpoint, ev.Fingerprint, ev.Reason,
		ev.FromState, ev.ToState, ev.AgeMs, ev.CreatedAt,
	)
	return err
}

// Query returns audit events matching the given options, newest first.
func (s *Store) Query(ctx context.Context, opts models.AuditQueryOpts) ([]models.AuditEvent, error) {
	q := `SELECT id, kind, endpoint, fingerprint, reason, from_state, to_state, age_ms, created_at
		FROM audit_events WHERE 1=1`
	var args []any

	if opts.Kind != "" {
		q += " AND kind = ?"
		args = append(args, opts.Kind)
	}
	if !opts.Since.IsZero() {
		q += " AND created_at >= ?"
		args = append(args, opts.Since)
	}

	q += " ORDER BY created_at DESC"

	limit := opts.Limit
	if limit <= 0 {
		limit = 100
	}
	q += " LIMIT ?"
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query audit: %w", err)
	}
	defer rows.Close()

	var events []models.AuditEvent
	for rows.Next() {
		var ev models.AuditEvent
		var endpoint, fingerprint, fromState, toState sql.NullString
		var ageMs sql.NullInt64
		if err := rows.Scan(
			&ev.ID, &ev.Kind, &endpoint, &fingerprint, &ev.Reason,
			&fromState, &toState, &ageMs, &ev.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan audit row: %w", err)
		}
		ev.Endpoint = endpoint.String
		ev.Fingerprint = fingerprint.String
		ev.FromState = fromState.String
		ev.ToState = toState.String
		ev.AgeMs = ageMs.Int64
		events = append(events, ev)
	}
	return events, rows.Err()
}

// Stats returns aggregate counts grouped by kind and day.
func (s *Store) Stats(ctx context.Context) ([]models.AuditStat, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT kind, date(created_at) as day, count(*) as cnt
		 FROM audit_events GROUP BY kind, day ORDER BY day DESC, kind`)
	if err != nil {
		return nil, fmt.Errorf("audit stats: %w", err)
	}
	defer rows.Close()

	var stats []models.AuditStat
	for rows.Next() {
		var st models.AuditStat
		var day sql.NullString
		if err := rows.Scan(&st.Kind, &day, &st.Count); err != nil {
			return nil, fmt.Errorf("scan audit stat: %w", err)
		}
		st.Day = day.String
		stats = append(stats, st)
	}
	return stats, rows.Err()
}

// Cleanup deletes events older than the configured retention period.
func (s *Store) Cleanup(ctx context.Context) (int64, error) {
	cutoff := time.Now().AddDate(0, 0, -s.retentionDays)
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM audit_events WHERE created_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("audit cleanup: %w", err)
	}
	return res.RowsAffected()
}

// Close stops the retention goroutine and closes the database.
func (s *Store) Close() error {
	close(s.done)
	s.wg.Wait()
	return s.db.Close()
}

func (s *Store) retentionLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			_, _ = s.Cleanup(context.Background())
		}
	}
}
