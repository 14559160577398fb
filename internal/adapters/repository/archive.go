package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/okian/kartpos/internal/domain/finishgrid"
	"github.com/okian/kartpos/internal/domain/position"
	"github.com/okian/kartpos/internal/domain/session"
	"github.com/okian/kartpos/pkg/logger"
	_ "modernc.org/sqlite"
)

const schema = `
	CREATE TABLE IF NOT EXISTS sessions (
		id                TEXT PRIMARY KEY,
		started           TEXT NOT NULL,
		stopped           TEXT,
		records           INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS session_records (
		session_id        TEXT NOT NULL,
		elapsed           DOUBLE NOT NULL,
		position          INTEGER NOT NULL,
		PRIMARY KEY (session_id, elapsed),
		FOREIGN KEY (session_id) REFERENCES sessions(id)
	);
	CREATE TABLE IF NOT EXISTS finish_results (
		image             TEXT NOT NULL,
		player            TEXT NOT NULL,
		rank              INTEGER,
		found             BOOLEAN NOT NULL,
		timestamp         TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);
`

// Archive keeps every persisted session and every finish-grid result in a
// SQLite database.
type Archive struct {
	db     *sql.DB
	logger logger.Logger
}

// SessionSummary is one row of the sessions table.
type SessionSummary struct {
	ID      string
	Started time.Time
	Stopped time.Time
	Records int
}

// OpenArchive opens or creates the archive at path.
func OpenArchive(path string, opts ...Option) (*Archive, error) {
	o := buildOptions("archive", opts)
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %w", ErrArchive, path, err)
	}
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("%w: create schema: %w", ErrArchive, err)
	}
	return &Archive{db: db, logger: o.logger}, nil
}

// Close closes the database.
func (a *Archive) Close() error { return a.db.Close() }

// Save stores the session and its records, replacing an earlier copy of
// the same session.
func (a *Archive) Save(ctx context.Context, s *session.Session) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrArchive, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	var stopped any
	if !s.Stopped.IsZero() {
		stopped = s.Stopped.UTC().Format(time.RFC3339Nano)
	}
	if _, err = tx.ExecContext(ctx,
		`INSERT OR REPLACE INTO sessions (id, started, stopped, records) VALUES (?, ?, ?, ?)`,
		s.ID, s.Started.UTC().Format(time.RFC3339Nano), stopped, s.Len(),
	); err != nil {
		return fmt.Errorf("%w: insert session: %w", ErrArchive, err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM session_records WHERE session_id = ?`, s.ID); err != nil {
		return fmt.Errorf("%w: clear records: %w", ErrArchive, err)
	}
	for _, rec := range s.Records() {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO session_records (session_id, elapsed, position) VALUES (?, ?, ?)`,
			s.ID, rec.Elapsed, int(rec.Position),
		); err != nil {
			return fmt.Errorf("%w: insert record: %w", ErrArchive, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrArchive, err)
	}
	a.logger.Debug(ctx, "session archived", logger.String("session", s.ID), logger.Int("records", s.Len()))
	return nil
}

// SaveFinishResult stores the per-player outcome for one image.
func (a *Archive) SaveFinishResult(ctx context.Context, image string, res finishgrid.Result) (err error) {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("%w: begin: %w", ErrArchive, err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	for _, pr := range res {
		var rank any
		if pr.Found {
			rank = int(pr.Rank)
		}
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO finish_results (image, player, rank, found) VALUES (?, ?, ?, ?)`,
			image, pr.Player, rank, pr.Found,
		); err != nil {
			return fmt.Errorf("%w: insert finish result: %w", ErrArchive, err)
		}
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("%w: commit: %w", ErrArchive, err)
	}
	return nil
}

// Sessions lists archived sessions, oldest first.
func (a *Archive) Sessions(ctx context.Context) ([]SessionSummary, error) {
	rows, err := a.db.QueryContext(ctx, `SELECT id, started, stopped, records FROM sessions ORDER BY started`)
	if err != nil {
		return nil, fmt.Errorf("%w: query sessions: %w", ErrArchive, err)
	}
	defer rows.Close()

	var out []SessionSummary
	for rows.Next() {
		var (
			sum     SessionSummary
			started string
			stopped sql.NullString
		)
		if err := rows.Scan(&sum.ID, &started, &stopped, &sum.Records); err != nil {
			return nil, fmt.Errorf("%w: scan session: %w", ErrArchive, err)
		}
		if sum.Started, err = time.Parse(time.RFC3339Nano, started); err != nil {
			return nil, fmt.Errorf("%w: parse started: %w", ErrArchive, err)
		}
		if stopped.Valid {
			if sum.Stopped, err = time.Parse(time.RFC3339Nano, stopped.String); err != nil {
				return nil, fmt.Errorf("%w: parse stopped: %w", ErrArchive, err)
			}
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// SessionRecords returns the records of one session in time order.
func (a *Archive) SessionRecords(ctx context.Context, id string) ([]session.Record, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT elapsed, position FROM session_records WHERE session_id = ? ORDER BY elapsed`, id)
	if err != nil {
		return nil, fmt.Errorf("%w: query records: %w", ErrArchive, err)
	}
	defer rows.Close()

	var out []session.Record
	for rows.Next() {
		var (
			rec session.Record
			pos int
		)
		if err := rows.Scan(&rec.Elapsed, &pos); err != nil {
			return nil, fmt.Errorf("%w: scan record: %w", ErrArchive, err)
		}
		rec.Position = position.Label(pos)
		out = append(out, rec)
	}
	return out, rows.Err()
}

// FinishResults returns the stored results for image in insertion order.
func (a *Archive) FinishResults(ctx context.Context, image string) (finishgrid.Result, error) {
	rows, err := a.db.QueryContext(ctx,
		`SELECT player, rank, found FROM finish_results WHERE image = ? ORDER BY rowid`, image)
	if err != nil {
		return nil, fmt.Errorf("%w: query finish results: %w", ErrArchive, err)
	}
	defer rows.Close()

	var out finishgrid.Result
	for rows.Next() {
		var (
			pr   finishgrid.PlayerResult
			rank sql.NullInt64
		)
		if err := rows.Scan(&pr.Player, &rank, &pr.Found); err != nil {
			return nil, fmt.Errorf("%w: scan finish result: %w", ErrArchive, err)
		}
		if rank.Valid {
			pr.Rank = position.Label(rank.Int64)
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}
