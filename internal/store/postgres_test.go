package store

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/billscan/internal/db"
	"github.com/sells-group/billscan/internal/model"
)

var pgNow = time.Date(2026, time.January, 2, 3, 4, 5, 0, time.UTC)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	s := newPostgresStore(mock)
	s.now = func() time.Time { return pgNow }
	return s, mock
}

func TestPostgresStore_Migrate(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS bills`).
		WillReturnResult(pgxmock.NewResult("CREATE", 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecord(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO "bills" .* ON CONFLICT \("provider", "account_number", "bill_date", "document_type"\) WHERE account_number <> 'UNKNOWN' DO UPDATE SET .* RETURNING "id"`).
		WithArgs(
			pgxmock.AnyArg(), "duke-energy", "910176500588", "2025-12-31", "bill",
			140.14, false, "/bills/duke.pdf", pgxmock.AnyArg(), pgNow, pgNow,
		).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow("existing-id"))

	id, err := s.SaveRecord(context.Background(), dukeRecord(140.14))
	require.NoError(t, err)
	assert.Equal(t, "existing-id", id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_SaveRecordError(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`INSERT INTO "bills"`).
		WithArgs(
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
		).
		WillReturnError(errors.New("connection refused"))

	_, err := s.SaveRecord(context.Background(), dukeRecord(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: save record")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecord(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	data, err := json.Marshal(dukeRecord(140.14))
	require.NoError(t, err)

	mock.ExpectQuery(`SELECT id, record, created_at, updated_at FROM bills WHERE id = \$1`).
		WithArgs("abc").
		WillReturnRows(pgxmock.NewRows([]string{"id", "record", "created_at", "updated_at"}).
			AddRow("abc", data, pgNow, pgNow))

	got, err := s.GetRecord(context.Background(), "abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", got.ID)
	assert.Equal(t, "910176500588", got.Record.AccountNumber)
	assert.Equal(t, pgNow, got.UpdatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetRecordNotFound(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM bills WHERE id = \$1`).
		WithArgs("nonexistent").
		WillReturnError(pgx.ErrNoRows)

	_, err := s.GetRecord(context.Background(), "nonexistent")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecords(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	data, err := json.Marshal(dukeRecord(140.14))
	require.NoError(t, err)
	yes := true

	mock.ExpectQuery(`WHERE 1=1 AND provider = \$1 AND requires_attention = \$2 ORDER BY bill_date DESC, updated_at DESC LIMIT \$3 OFFSET \$4`).
		WithArgs("duke-energy", true, 5, 10).
		WillReturnRows(pgxmock.NewRows([]string{"id", "record", "created_at", "updated_at"}).
			AddRow("a", data, pgNow, pgNow).
			AddRow("b", data, pgNow, pgNow))

	got, err := s.ListRecords(context.Background(), RecordFilter{
		Provider:          "duke-energy",
		RequiresAttention: &yes,
		Limit:             5,
		Offset:            10,
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[1].ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListRecordsDefaultLimit(t *testing.T) {
	t.Parallel()
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`WHERE 1=1 ORDER BY .* LIMIT \$1$`).
		WithArgs(defaultListLimit).
		WillReturnRows(pgxmock.NewRows([]string{"id", "record", "created_at", "updated_at"}))

	got, err := s.ListRecords(context.Background(), RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListQuery_SQLitePlaceholders(t *testing.T) {
	t.Parallel()
	q, args := listQuery(db.SQLite, RecordFilter{DocumentType: model.DocumentBill})
	assert.Contains(t, q, "document_type = ? ")
	assert.Contains(t, q, "LIMIT ?")
	assert.Equal(t, []any{"bill", defaultListLimit}, args)
}
