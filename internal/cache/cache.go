// Package cache stores verification results by request fingerprint so
// repeated submissions are answered without re-scoring.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/aid/internal/config"
	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/store"
)

// Cache is safe for concurrent use. A miss is (nil, false, nil).
type Cache interface {
	Get(ctx context.Context, fingerprint string) (*model.VerificationResult, bool, error)
	Set(ctx context.Context, fingerprint string, result *model.VerificationResult) error
	// Len returns the number of unexpired entries.
	Len(ctx context.Context) (int, error)
	// Purge drops expired entries and returns how many were removed.
	Purge(ctx context.Context) (int, error)
	Close() error
}

// Fingerprint hashes response, content and prompt with length prefixes so
// that moving text between fields never collides.
func Fingerprint(response, content, prompt string) string {
	h := sha256.New()
	var size [8]byte
	for _, field := range []string{response, content, prompt} {
		binary.BigEndian.PutUint64(size[:], uint64(len(field)))
		h.Write(size[:])
		h.Write([]byte(field))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// New builds the cache selected by cfg. It returns nil when caching is
// disabled. Persistent backends are fronted by an in-process memory tier.
func New(ctx context.Context, cfg config.CacheConfig) (Cache, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	var (
		st  store.Store
		err error
	)
	switch cfg.Backend {
	case "", "memory":
		return NewMemory(cfg.TTL, cfg.MaxEntries), nil
	case "sqlite":
		st, err = store.NewSQLite(cfg.SQLitePath)
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("cache: unknown backend %q", cfg.Backend)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "cache: open %s backend", cfg.Backend)
	}
	if err := st.Migrate(ctx); err != nil {
		st.Close() //nolint:errcheck
		return nil, eris.Wrapf(err, "cache: migrate %s backend", cfg.Backend)
	}

	zap.L().Info("cache: persistent backend ready",
		zap.String("backend", cfg.Backend),
		zap.Duration("ttl", cfg.TTL),
	)
	return NewTiered(NewMemory(cfg.TTL, cfg.MaxEntries), NewPersistent(st, cfg.TTL)), nil
}

func expiry(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(ttl)
}
