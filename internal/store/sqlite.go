package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/aid/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	// Pragmas are per connection; one connection also serializes writers.
	db.SetMaxOpenConns(1)
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

// Expiry is stored as unix milliseconds so comparisons are numeric.
const sqliteMigration = `
CREATE TABLE IF NOT EXISTS verification_cache (
	fingerprint TEXT PRIMARY KEY,
	result      TEXT NOT NULL,
	created_at  INTEGER NOT NULL,
	expires_at  INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verification_cache_expires_at ON verification_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) GetResult(ctx context.Context, fingerprint string) (*Entry, error) {
	var (
		data      string
		expiresAt int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT result, expires_at FROM verification_cache WHERE fingerprint = ? AND expires_at > ?`,
		fingerprint, s.now().UnixMilli(),
	).Scan(&data, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get result")
	}
	r, err := unmarshalResult("sqlite", []byte(data))
	if err != nil {
		return nil, err
	}
	return &Entry{Result: r, ExpiresAt: time.UnixMilli(expiresAt).UTC()}, nil
}

func (s *SQLiteStore) PutResult(ctx context.Context, fingerprint string, result *model.VerificationResult, ttl time.Duration) error {
	data, err := marshalResult("sqlite", result)
	if err != nil {
		return err
	}
	now := s.now()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO verification_cache (fingerprint, result, created_at, expires_at) VALUES (?, ?, ?, ?)
		 ON CONFLICT(fingerprint) DO UPDATE SET
			result = excluded.result,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at`,
		fingerprint, string(data), now.UnixMilli(), now.Add(ttl).UnixMilli(),
	)
	return eris.Wrap(err, "sqlite: put result")
}

func (s *SQLiteStore) DeleteExpired(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM verification_cache WHERE expires_at <= ?`, s.now().UnixMilli(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT count(*) FROM verification_cache WHERE expires_at > ?`, s.now().UnixMilli(),
	).Scan(&n)
	return n, eris.Wrap(err, "sqlite: count")
}
