package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/lib/pq"
	"modernc.org/sqlite"
)

// Extended result code for a primary key collision.
const sqliteConstraintPrimaryKey = 1555

type dialect struct {
	name   string
	schema string
	// rebind turns ? placeholders into the driver's form.
	rebind func(string) string
	// timeArg converts a timestamp to the column's bind value.
	timeArg func(time.Time) any
}

var sqliteDialect = dialect{
	name: "sqlite",
	schema: `
	CREATE TABLE IF NOT EXISTS snapshots (
		revision    INTEGER PRIMARY KEY,
		format      TEXT NOT NULL,
		state       BLOB NOT NULL,
		ledger_head TEXT NOT NULL DEFAULT '',
		saved_at    TEXT NOT NULL
	);`,
	rebind:  func(q string) string { return q },
	timeArg: func(t time.Time) any { return t.UTC().Format(time.RFC3339Nano) },
}

var postgresDialect = dialect{
	name: "postgres",
	schema: `
	CREATE TABLE IF NOT EXISTS snapshots (
		revision    BIGINT PRIMARY KEY,
		format      TEXT NOT NULL,
		state       BYTEA NOT NULL,
		ledger_head TEXT NOT NULL DEFAULT '',
		saved_at    TIMESTAMPTZ NOT NULL
	);`,
	rebind:  dollarPlaceholders,
	timeArg: func(t time.Time) any { return t.UTC() },
}

func dollarPlaceholders(q string) string {
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// SQLStore keeps snapshot history in a snapshots table. Each save inserts
// a new row whose revision is the primary key.
type SQLStore struct {
	db    *sql.DB
	d     dialect
	clock func() time.Time
}

// NewSQLiteStore opens the snapshot table on a modernc.org/sqlite database,
// creating it if needed.
func NewSQLiteStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	return newSQLStore(ctx, db, sqliteDialect)
}

// NewPostgresStore opens the snapshot table on a lib/pq database,
// creating it if needed.
func NewPostgresStore(ctx context.Context, db *sql.DB) (*SQLStore, error) {
	return newSQLStore(ctx, db, postgresDialect)
}

func newSQLStore(ctx context.Context, db *sql.DB, d dialect) (*SQLStore, error) {
	s := &SQLStore{db: db, d: d, clock: time.Now}
	if _, err := db.ExecContext(ctx, d.schema); err != nil {
		return nil, fmt.Errorf("%s snapshot schema: %w", d.name, err)
	}
	return s, nil
}

const selectSnapshot = `SELECT revision, format, state, ledger_head, saved_at FROM snapshots`

func (s *SQLStore) Load(ctx context.Context) (Snapshot, error) {
	row := s.db.QueryRowContext(ctx, selectSnapshot+` ORDER BY revision DESC LIMIT 1`)
	snap, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, ErrNotFound
	}
	if err != nil {
		return Snapshot{}, fmt.Errorf("load snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLStore) Save(ctx context.Context, snap Snapshot) (Snapshot, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var current int64
	if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(revision), 0) FROM snapshots`).Scan(&current); err != nil {
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	if err := checkRevision(current, snap.Revision); err != nil {
		return Snapshot{}, err
	}

	snap.Revision = current + 1
	snap.SavedAt = s.clock().UTC()
	_, err = tx.ExecContext(ctx,
		s.d.rebind(`INSERT INTO snapshots (revision, format, state, ledger_head, saved_at) VALUES (?, ?, ?, ?, ?)`),
		snap.Revision, snap.Format, []byte(snap.State), snap.LedgerHead, s.d.timeArg(snap.SavedAt),
	)
	if err != nil {
		if isDuplicateKey(err) {
			return Snapshot{}, fmt.Errorf("%w: revision %d was written concurrently", ErrConflict, snap.Revision)
		}
		return Snapshot{}, fmt.Errorf("failed to insert snapshot: %w", err)
	}
	if err := tx.Commit(); err != nil {
		if isDuplicateKey(err) {
			return Snapshot{}, fmt.Errorf("%w: revision %d was written concurrently", ErrConflict, snap.Revision)
		}
		return Snapshot{}, fmt.Errorf("save snapshot: %w", err)
	}
	return snap, nil
}

func (s *SQLStore) History(ctx context.Context, limit int) ([]Snapshot, error) {
	rows, err := s.db.QueryContext(ctx, s.d.rebind(selectSnapshot+` ORDER BY revision DESC LIMIT ?`), limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Snapshot
	for rows.Next() {
		snap, err := scanSnapshot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, snap)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// Prune deletes all but the newest keep snapshots.
func (s *SQLStore) Prune(ctx context.Context, keep int) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		s.d.rebind(`DELETE FROM snapshots WHERE revision <= (SELECT COALESCE(MAX(revision), 0) FROM snapshots) - ?`),
		keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune snapshots: %w", err)
	}
	return res.RowsAffected()
}

func (s *SQLStore) Close() error { return s.db.Close() }

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (Snapshot, error) {
	var (
		snap  Snapshot
		state []byte
		saved timestamp
	)
	if err := row.Scan(&snap.Revision, &snap.Format, &state, &snap.LedgerHead, &saved); err != nil {
		return Snapshot{}, err
	}
	snap.State = state
	snap.SavedAt = time.Time(saved)
	return snap, nil
}

// timestamp scans both TIMESTAMPTZ columns and RFC 3339 text.
type timestamp time.Time

func (t *timestamp) Scan(src any) error {
	switch v := src.(type) {
	case time.Time:
		*t = timestamp(v.UTC())
		return nil
	case string:
		return t.parse(v)
	case []byte:
		return t.parse(string(v))
	case nil:
		*t = timestamp{}
		return nil
	}
	return fmt.Errorf("unsupported timestamp type %T", src)
}

func (t *timestamp) parse(s string) error {
	parsed, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return err
	}
	*t = timestamp(parsed.UTC())
	return nil
}

func isDuplicateKey(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		return liteErr.Code() == sqliteConstraintPrimaryKey
	}
	return false
}
