package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/db"
	"github.com/sells-group/aid/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

var resultUpsert = db.UpsertConfig{
	Table:        "verification_cache",
	Columns:      []string{"fingerprint", "result", "created_at", "expires_at"},
	ConflictKeys: []string{"fingerprint"},
}

// preparedStatements lists queries prepared on each new connection.
var preparedStatements = map[string]string{
	"get_result":     `SELECT result, expires_at FROM verification_cache WHERE fingerprint = $1 AND expires_at > now()`,
	"delete_expired": `DELETE FROM verification_cache WHERE expires_at <= now()`,
	"count_results":  `SELECT count(*) FROM verification_cache WHERE expires_at > now()`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS verification_cache (
	fingerprint TEXT PRIMARY KEY,
	result      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_verification_cache_expires_at ON verification_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetResult(ctx context.Context, fingerprint string) (*Entry, error) {
	var (
		data      []byte
		expiresAt time.Time
	)
	err := s.pool.QueryRow(ctx,
		`SELECT result, expires_at FROM verification_cache WHERE fingerprint = $1 AND expires_at > now()`,
		fingerprint,
	).Scan(&data, &expiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get result")
	}
	r, err := unmarshalResult("postgres", data)
	if err != nil {
		return nil, err
	}
	return &Entry{Result: r, ExpiresAt: expiresAt}, nil
}

func (s *PostgresStore) PutResult(ctx context.Context, fingerprint string, result *model.VerificationResult, ttl time.Duration) error {
	data, err := marshalResult("postgres", result)
	if err != nil {
		return err
	}
	now := time.Now().UTC()
	if err := db.Upsert(ctx, s.pool, resultUpsert, []any{fingerprint, data, now, now.Add(ttl)}); err != nil {
		return eris.Wrap(err, "postgres: put result")
	}
	return nil
}

func (s *PostgresStore) DeleteExpired(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM verification_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired")
	}
	return int(tag.RowsAffected()), nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx,
		`SELECT count(*) FROM verification_cache WHERE expires_at > now()`,
	).Scan(&n)
	return n, eris.Wrap(err, "postgres: count")
}
