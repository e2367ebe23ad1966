package db

import (
	"context"
	"fmt"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpsert(t *testing.T) {
	sql, err := BuildUpsert(UpsertConfig{
		Table:        "verification_cache",
		Columns:      []string{"fingerprint", "result", "expires_at"},
		ConflictKeys: []string{"fingerprint"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "verification_cache" ("fingerprint", "result", "expires_at") VALUES ($1, $2, $3) `+
			`ON CONFLICT ("fingerprint") DO UPDATE SET "result" = EXCLUDED."result", "expires_at" = EXCLUDED."expires_at"`,
		sql)
}

func TestBuildUpsert_ExplicitUpdateCols(t *testing.T) {
	sql, err := BuildUpsert(UpsertConfig{
		Table:        "aid.verification_cache",
		Columns:      []string{"fingerprint", "result"},
		ConflictKeys: []string{"fingerprint"},
		UpdateCols:   []string{},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, `INSERT INTO "aid"."verification_cache"`)
	assert.Contains(t, sql, "DO NOTHING")
}

func TestBuildUpsert_NoColumns(t *testing.T) {
	_, err := BuildUpsert(UpsertConfig{
		Table:        "verification_cache",
		ConflictKeys: []string{"fingerprint"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no columns specified")
}

func TestBuildUpsert_NoConflictKeys(t *testing.T) {
	_, err := BuildUpsert(UpsertConfig{
		Table:   "verification_cache",
		Columns: []string{"fingerprint", "result"},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no conflict keys specified")
}

func TestUpsert(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := UpsertConfig{
		Table:        "verification_cache",
		Columns:      []string{"fingerprint", "result"},
		ConflictKeys: []string{"fingerprint"},
	}
	mock.ExpectExec(`INSERT INTO "verification_cache"`).
		WithArgs("abc", []byte(`{}`)).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, Upsert(context.Background(), mock, cfg, []any{"abc", []byte(`{}`)}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpsert_Errors(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	cfg := UpsertConfig{
		Table:        "verification_cache",
		Columns:      []string{"fingerprint", "result"},
		ConflictKeys: []string{"fingerprint"},
	}

	err = Upsert(context.Background(), mock, cfg, []any{"abc"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 values for 2 columns")

	mock.ExpectExec(`INSERT INTO "verification_cache"`).
		WithArgs("abc", "x").
		WillReturnError(fmt.Errorf("permission denied"))
	err = Upsert(context.Background(), mock, cfg, []any{"abc", "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db: upsert into verification_cache")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSanitizeTable(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"simple", `"simple"`},
		{"aid.verification_cache", `"aid"."verification_cache"`},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := sanitizeTable(tt.input)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestQuoteAndJoin(t *testing.T) {
	result := quoteAndJoin([]string{"id", "name", "value"})
	assert.Equal(t, `"id", "name", "value"`, result)
}
