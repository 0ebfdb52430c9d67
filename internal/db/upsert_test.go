package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUpsert_Postgres(t *testing.T) {
	t.Parallel()
	sql, err := BuildUpsert(Postgres, UpsertConfig{
		Table:         "bills",
		Columns:       []string{"id", "provider", "account_number", "record"},
		ConflictKeys:  []string{"provider", "account_number"},
		ConflictWhere: "account_number <> 'UNKNOWN'",
		Returning:     []string{"id"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "bills" ("id", "provider", "account_number", "record") VALUES ($1, $2, $3, $4) `+
			`ON CONFLICT ("provider", "account_number") WHERE account_number <> 'UNKNOWN' `+
			`DO UPDATE SET "id" = EXCLUDED."id", "record" = EXCLUDED."record" RETURNING "id"`,
		sql)
}

func TestBuildUpsert_SQLiteExplicitUpdateCols(t *testing.T) {
	t.Parallel()
	sql, err := BuildUpsert(SQLite, UpsertConfig{
		Table:        "bills",
		Columns:      []string{"id", "provider", "record"},
		ConflictKeys: []string{"provider"},
		UpdateCols:   []string{"record"},
	})
	require.NoError(t, err)
	assert.Equal(t,
		`INSERT INTO "bills" ("id", "provider", "record") VALUES (?, ?, ?) ON CONFLICT ("provider") DO UPDATE SET "record" = EXCLUDED."record"`,
		sql)
}

func TestBuildUpsert_OnlyKeysDoesNothing(t *testing.T) {
	t.Parallel()
	sql, err := BuildUpsert(Postgres, UpsertConfig{
		Table:        "seen",
		Columns:      []string{"hash"},
		ConflictKeys: []string{"hash"},
	})
	require.NoError(t, err)
	assert.Contains(t, sql, "DO NOTHING")
}

func TestBuildUpsert_Errors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  UpsertConfig
		want string
	}{
		{"no table", UpsertConfig{Columns: []string{"id"}, ConflictKeys: []string{"id"}}, "no table specified"},
		{"no columns", UpsertConfig{Table: "t", ConflictKeys: []string{"id"}}, "no columns specified"},
		{"no keys", UpsertConfig{Table: "t", Columns: []string{"id"}}, "no conflict keys specified"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := BuildUpsert(Postgres, tt.cfg)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestPlaceholder(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "$3", Postgres.Placeholder(3))
	assert.Equal(t, "?", SQLite.Placeholder(3))
}

func TestSanitizeTable(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"simple"`, sanitizeTable("simple"))
	assert.Equal(t, `"billing"."bills"`, sanitizeTable("billing.bills"))
}

func TestQuoteAndJoin(t *testing.T) {
	t.Parallel()
	assert.Equal(t, `"id", "name", "value"`, quoteAndJoin([]string{"id", "name", "value"}))
}
