// Package store persists verification results for the shared result cache.
package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/aid/internal/model"
)

// Store is a keyed, TTL-bounded result store. Implementations upsert per
// key atomically so concurrent writers of one fingerprint are safe.
type Store interface {
	// GetResult returns nil and no error when the fingerprint is missing or
	// expired.
	GetResult(ctx context.Context, fingerprint string) (*Entry, error)
	PutResult(ctx context.Context, fingerprint string, result *model.VerificationResult, ttl time.Duration) error
	DeleteExpired(ctx context.Context) (int, error)
	// Count returns the number of unexpired entries.
	Count(ctx context.Context) (int, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

// Entry is a stored result with the instant its row expires.
type Entry struct {
	Result    *model.VerificationResult
	ExpiresAt time.Time
}

func marshalResult(backend string, r *model.VerificationResult) ([]byte, error) {
	if r == nil {
		return nil, eris.Errorf("%s: nil result", backend)
	}
	data, err := json.Marshal(r)
	if err != nil {
		return nil, eris.Wrapf(err, "%s: marshal result", backend)
	}
	return data, nil
}

func unmarshalResult(backend string, data []byte) (*model.VerificationResult, error) {
	var r model.VerificationResult
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, eris.Wrapf(err, "%s: unmarshal result", backend)
	}
	return &r, nil
}
