package cache

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/store"
)

// Persistent adapts a store.Store to the Cache interface.
type Persistent struct {
	store store.Store
	ttl   time.Duration
}

// NewPersistent wraps st. A non-positive ttl stores entries for 100 years.
func NewPersistent(st store.Store, ttl time.Duration) *Persistent {
	if ttl <= 0 {
		ttl = 100 * 365 * 24 * time.Hour
	}
	return &Persistent{store: st, ttl: ttl}
}

func (p *Persistent) Get(ctx context.Context, fingerprint string) (*model.VerificationResult, bool, error) {
	r, _, ok, err := p.GetWithExpiry(ctx, fingerprint)
	return r, ok, err
}

// GetWithExpiry is Get plus the instant the stored entry expires.
func (p *Persistent) GetWithExpiry(ctx context.Context, fingerprint string) (*model.VerificationResult, time.Time, bool, error) {
	e, err := p.store.GetResult(ctx, fingerprint)
	if err != nil || e == nil {
		return nil, time.Time{}, false, err
	}
	return e.Result, e.ExpiresAt, true, nil
}

func (p *Persistent) Set(ctx context.Context, fingerprint string, result *model.VerificationResult) error {
	return p.store.PutResult(ctx, fingerprint, result, p.ttl)
}

func (p *Persistent) Len(ctx context.Context) (int, error) {
	return p.store.Count(ctx)
}

func (p *Persistent) Purge(ctx context.Context) (int, error) {
	return p.store.DeleteExpired(ctx)
}

func (p *Persistent) Close() error {
	return p.store.Close()
}

// expiringCache is a backend that reports when each entry expires.
type expiringCache interface {
	GetWithExpiry(ctx context.Context, fingerprint string) (*model.VerificationResult, time.Time, bool, error)
}

// Tiered answers from a memory front when it can and falls back to a
// shared backend, filling the front on a backend hit. A filled entry keeps
// the backend's expiry, so the front never extends an entry's lifetime.
type Tiered struct {
	front *Memory
	back  Cache
}

// NewTiered combines a memory front with a backend cache.
func NewTiered(front *Memory, back Cache) *Tiered {
	return &Tiered{front: front, back: back}
}

func (t *Tiered) Get(ctx context.Context, fingerprint string) (*model.VerificationResult, bool, error) {
	if r, ok, _ := t.front.Get(ctx, fingerprint); ok {
		return r, true, nil
	}
	eb, ok := t.back.(expiringCache)
	if !ok {
		r, ok, err := t.back.Get(ctx, fingerprint)
		if err != nil || !ok {
			return nil, false, err
		}
		_ = t.front.Set(ctx, fingerprint, r)
		return r, true, nil
	}

	r, expiresAt, ok, err := eb.GetWithExpiry(ctx, fingerprint)
	if err != nil || !ok {
		return nil, false, err
	}
	if limit := expiry(t.front.now(), t.front.ttl); !limit.IsZero() && limit.Before(expiresAt) {
		expiresAt = limit
	}
	_ = t.front.SetUntil(ctx, fingerprint, r, expiresAt)
	return r, true, nil
}

// Set writes the front first so the value is served locally even when the
// backend write fails.
func (t *Tiered) Set(ctx context.Context, fingerprint string, result *model.VerificationResult) error {
	_ = t.front.Set(ctx, fingerprint, result)
	return t.back.Set(ctx, fingerprint, result)
}

func (t *Tiered) Len(ctx context.Context) (int, error) {
	return t.back.Len(ctx)
}

func (t *Tiered) Purge(ctx context.Context) (int, error) {
	if n, _ := t.front.Purge(ctx); n > 0 {
		zap.L().Debug("cache: purged memory tier", zap.Int("entries", n))
	}
	return t.back.Purge(ctx)
}

func (t *Tiered) Close() error {
	return t.back.Close()
}
