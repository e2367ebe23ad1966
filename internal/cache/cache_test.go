package cache

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/aid/internal/config"
	"github.com/sells-group/aid/internal/model"
	"github.com/sells-group/aid/internal/store"
)

func result(combined float64) *model.VerificationResult {
	return &model.VerificationResult{
		CombinedScore: combined,
		Passed:        combined >= 0.6,
		Relevance:     model.ScoreResult{Value: 0.7, Interpretation: "engages directly with the topic"},
	}
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("response", "content", "prompt")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("response", "content", "prompt"))

	assert.NotEqual(t, a, Fingerprint("response", "content", "prompt "))
	assert.NotEqual(t, Fingerprint("ab", "c", ""), Fingerprint("a", "bc", ""), "fields are length-prefixed")
	assert.NotEqual(t, Fingerprint("x", "", ""), Fingerprint("", "x", ""))
}

func TestMemory_HitReturnsSamePointer(t *testing.T) {
	m := NewMemory(time.Hour, 10)
	ctx := context.Background()
	want := result(0.7)

	require.NoError(t, m.Set(ctx, "fp", want))
	got, ok, err := m.Get(ctx, "fp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, want, got)

	_, ok, err = m.Get(ctx, "other")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemory_TTL(t *testing.T) {
	m := NewMemory(time.Hour, 0)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "fp", result(0.7)))

	now = now.Add(59 * time.Minute)
	_, ok, _ := m.Get(ctx, "fp")
	assert.True(t, ok)

	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, "fp")
	assert.False(t, ok)

	n, err := m.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestMemory_ZeroTTLNeverExpires(t *testing.T) {
	m := NewMemory(0, 0)
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "fp", result(0.7)))
	now = now.Add(24 * 365 * time.Hour)
	_, ok, _ := m.Get(ctx, "fp")
	assert.True(t, ok)
}

func TestMemory_EvictsOldestBeyondMaxEntries(t *testing.T) {
	m := NewMemory(time.Hour, 2)
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "a", result(0.1)))
	require.NoError(t, m.Set(ctx, "b", result(0.2)))
	require.NoError(t, m.Set(ctx, "a", result(0.3))) // rewrite moves a to the back
	require.NoError(t, m.Set(ctx, "c", result(0.4)))

	_, ok, _ := m.Get(ctx, "b")
	assert.False(t, ok)
	got, ok, _ := m.Get(ctx, "a")
	require.True(t, ok)
	assert.Equal(t, 0.3, got.CombinedScore)
	_, ok, _ = m.Get(ctx, "c")
	assert.True(t, ok)

	n, _ := m.Len(ctx)
	assert.Equal(t, 2, n)
}

func TestMemory_Purge(t *testing.T) {
	m := NewMemory(time.Minute, 0)
	now := time.Now()
	m.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "old", result(0.5)))
	now = now.Add(2 * time.Minute)
	require.NoError(t, m.Set(ctx, "new", result(0.5)))

	n, err := m.Purge(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	left, _ := m.Len(ctx)
	assert.Equal(t, 1, left)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory(time.Hour, 50)
	ctx := context.Background()
	done := make(chan struct{})
	for i := range 8 {
		go func(i int) {
			defer func() { done <- struct{}{} }()
			for j := range 100 {
				fp := Fingerprint("r", "c", string(rune('a'+(i*j)%26)))
				_ = m.Set(ctx, fp, result(0.5))
				_, _, _ = m.Get(ctx, fp)
			}
		}(i)
	}
	for range 8 {
		<-done
	}
	n, _ := m.Len(ctx)
	assert.LessOrEqual(t, n, 50)
}

type failingCache struct{ err error }

func (f failingCache) Get(context.Context, string) (*model.VerificationResult, bool, error) {
	return nil, false, f.err
}
func (f failingCache) Set(context.Context, string, *model.VerificationResult) error { return f.err }
func (f failingCache) Len(context.Context) (int, error)                              { return 0, f.err }
func (f failingCache) Purge(context.Context) (int, error)                            { return 0, f.err }
func (f failingCache) Close() error                                                  { return nil }

func TestTiered_BackendFailureStillServesFront(t *testing.T) {
	boom := errors.New("database is locked")
	tc := NewTiered(NewMemory(time.Hour, 10), failingCache{err: boom})
	ctx := context.Background()

	_, ok, err := tc.Get(ctx, "fp")
	assert.False(t, ok)
	assert.ErrorIs(t, err, boom)

	want := result(0.7)
	assert.ErrorIs(t, tc.Set(ctx, "fp", want), boom)

	got, ok, err := tc.Get(ctx, "fp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Same(t, want, got)
}

// clockStore is an in-memory store.Store whose expiry follows a shared clock.
type clockStore struct {
	now     *time.Time
	entries map[string]store.Entry
}

func (s *clockStore) GetResult(_ context.Context, fp string) (*store.Entry, error) {
	e, ok := s.entries[fp]
	if !ok || !s.now.Before(e.ExpiresAt) {
		return nil, nil
	}
	return &e, nil
}

func (s *clockStore) PutResult(_ context.Context, fp string, r *model.VerificationResult, ttl time.Duration) error {
	s.entries[fp] = store.Entry{Result: r, ExpiresAt: s.now.Add(ttl)}
	return nil
}

func (s *clockStore) DeleteExpired(context.Context) (int, error) { return 0, nil }
func (s *clockStore) Count(context.Context) (int, error)         { return len(s.entries), nil }
func (s *clockStore) Ping(context.Context) error                 { return nil }
func (s *clockStore) Migrate(context.Context) error              { return nil }
func (s *clockStore) Close() error                               { return nil }

func TestTiered_FrontKeepsBackendExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	written := now

	// Another process wrote the entry at t0.
	st := &clockStore{now: &now, entries: map[string]store.Entry{}}
	require.NoError(t, st.PutResult(ctx, "fp", result(0.7), time.Hour))

	front := NewMemory(time.Hour, 10)
	front.now = func() time.Time { return now }
	tc := NewTiered(front, NewPersistent(st, time.Hour))

	now = written.Add(59 * time.Minute)
	_, ok, err := tc.Get(ctx, "fp")
	require.NoError(t, err)
	require.True(t, ok, "backend hit fills the front")

	now = written.Add(time.Hour)
	_, ok, err = tc.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok, "front entry expires with the backend row")

	now = written.Add(110 * time.Minute)
	_, ok, err = tc.Get(ctx, "fp")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestTiered_FrontTTLCapsBackendExpiry(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	st := &clockStore{now: &now, entries: map[string]store.Entry{}}
	require.NoError(t, st.PutResult(ctx, "fp", result(0.7), 24*time.Hour))

	front := NewMemory(time.Hour, 10)
	front.now = func() time.Time { return now }
	tc := NewTiered(front, NewPersistent(st, 24*time.Hour))

	_, ok, _ := tc.Get(ctx, "fp")
	require.True(t, ok)

	// Drop the row so only the front can answer.
	delete(st.entries, "fp")
	now = now.Add(30 * time.Minute)
	_, ok, _ = tc.Get(ctx, "fp")
	assert.True(t, ok)
	now = now.Add(30 * time.Minute)
	_, ok, _ = tc.Get(ctx, "fp")
	assert.False(t, ok)
}

func TestMemory_SetUntil(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	m := NewMemory(time.Hour, 10)
	m.now = func() time.Time { return now }

	require.NoError(t, m.Set(ctx, "fp", result(0.7)))
	require.NoError(t, m.SetUntil(ctx, "fp", result(0.7), now.Add(-time.Second)))
	_, ok, _ := m.Get(ctx, "fp")
	assert.False(t, ok, "an already expired write drops the old entry")

	require.NoError(t, m.SetUntil(ctx, "fp", result(0.7), now.Add(10*time.Minute)))
	now = now.Add(9 * time.Minute)
	_, ok, _ = m.Get(ctx, "fp")
	assert.True(t, ok)
	now = now.Add(time.Minute)
	_, ok, _ = m.Get(ctx, "fp")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, c)

	c, err = New(ctx, config.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Hour, MaxEntries: 5})
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, c)

	_, err = New(ctx, config.CacheConfig{Enabled: true, Backend: "redis"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown backend "redis"`)
}

func TestNew_SQLiteRoundTrip(t *testing.T) {
	ctx := context.Background()
	cfg := config.CacheConfig{
		Enabled:    true,
		Backend:    "sqlite",
		TTL:        time.Hour,
		MaxEntries: 10,
		SQLitePath: filepath.Join(t.TempDir(), "cache.db"),
	}

	c, err := New(ctx, cfg)
	require.NoError(t, err)
	require.IsType(t, &Tiered{}, c)
	require.NoError(t, c.Set(ctx, "fp", result(0.8)))
	require.NoError(t, c.Close())

	// A fresh process sees the persisted entry through the backend.
	c, err = New(ctx, cfg)
	require.NoError(t, err)
	defer c.Close() //nolint:errcheck

	got, ok, err := c.Get(ctx, "fp")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.8, got.CombinedScore)
	assert.Equal(t, "engages directly with the topic", got.Relevance.Interpretation)

	n, err := c.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}
