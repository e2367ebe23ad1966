package cache

import (
	"container/list"
	"context"
	"sync"
	"time"

	"github.com/sells-group/aid/internal/model"
)

type memoryEntry struct {
	fingerprint string
	result      *model.VerificationResult
	expiresAt   time.Time // zero never expires
}

// Memory is an in-process cache bounded by TTL and entry count. It stores
// the result pointer, so a hit returns the identical value.
type Memory struct {
	ttl        time.Duration
	maxEntries int
	now        func() time.Time

	mu      sync.Mutex
	entries map[string]*list.Element
	order   *list.List // oldest write at the front
}

// NewMemory creates a memory cache. maxEntries <= 0 means unbounded.
func NewMemory(ttl time.Duration, maxEntries int) *Memory {
	return &Memory{
		ttl:        ttl,
		maxEntries: maxEntries,
		now:        time.Now,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (m *Memory) Get(_ context.Context, fingerprint string) (*model.VerificationResult, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	el, ok := m.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	e := el.Value.(*memoryEntry)
	if m.expired(e) {
		m.remove(el)
		return nil, false, nil
	}
	return e.result, true, nil
}

func (m *Memory) Set(ctx context.Context, fingerprint string, result *model.VerificationResult) error {
	return m.SetUntil(ctx, fingerprint, result, expiry(m.now(), m.ttl))
}

// SetUntil stores result with an absolute expiry. A zero expiresAt never
// expires; one already in the past drops any existing entry.
func (m *Memory) SetUntil(_ context.Context, fingerprint string, result *model.VerificationResult, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.entries[fingerprint]; ok {
		m.remove(el)
	}
	e := &memoryEntry{fingerprint: fingerprint, result: result, expiresAt: expiresAt}
	if m.expired(e) {
		return nil
	}
	m.entries[fingerprint] = m.order.PushBack(e)

	if m.maxEntries > 0 && m.order.Len() > m.maxEntries {
		m.purgeLocked()
		for m.order.Len() > m.maxEntries {
			m.remove(m.order.Front())
		}
	}
	return nil
}

func (m *Memory) Len(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.purgeLocked()
	return m.order.Len(), nil
}

func (m *Memory) Purge(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.purgeLocked(), nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) purgeLocked() int {
	n := 0
	for el := m.order.Front(); el != nil; {
		next := el.Next()
		if m.expired(el.Value.(*memoryEntry)) {
			m.remove(el)
			n++
		}
		el = next
	}
	return n
}

func (m *Memory) expired(e *memoryEntry) bool {
	return !e.expiresAt.IsZero() && !m.now().Before(e.expiresAt)
}

func (m *Memory) remove(el *list.Element) {
	m.order.Remove(el)
	delete(m.entries, el.Value.(*memoryEntry).fingerprint)
}
