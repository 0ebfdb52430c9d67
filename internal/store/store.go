// Package store persists parsed bill records in SQLite or Postgres.
package store

import (
	"context"
	"embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/billscan/internal/config"
	"github.com/sells-group/billscan/internal/db"
	"github.com/sells-group/billscan/internal/model"
)

//go:embed migrations/*.sql
var migrations embed.FS

// ErrNotFound is returned by GetRecord for an unknown id.
var ErrNotFound = eris.New("store: record not found")

// defaultListLimit caps ListRecords when the filter sets no limit.
const defaultListLimit = 100

// RecordFilter specifies criteria for listing records. Zero values match all.
type RecordFilter struct {
	Provider          string             `json:"provider,omitempty"`
	AccountNumber     string             `json:"account_number,omitempty"`
	DocumentType      model.DocumentType `json:"document_type,omitempty"`
	RequiresAttention *bool              `json:"requires_attention,omitempty"`
	Limit             int                `json:"limit,omitempty"`
	Offset            int                `json:"offset,omitempty"`
}

// StoredRecord is a record with its persistence metadata.
type StoredRecord struct {
	ID        string           `json:"id"`
	Record    model.BillRecord `json:"record"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// Store defines record persistence.
//
// SaveRecord upserts on (provider, account_number, bill_date,
// document_type), so re-parsing a bill replaces the earlier row and keeps its
// id. Records whose account number is the sentinel are always inserted.
type Store interface {
	SaveRecord(ctx context.Context, rec model.BillRecord) (string, error)
	GetRecord(ctx context.Context, id string) (*StoredRecord, error)
	ListRecords(ctx context.Context, filter RecordFilter) ([]StoredRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the store named by cfg.Driver and applies migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		s   Store
		err error
	)
	switch cfg.Driver {
	case "sqlite":
		s, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		s, err = NewPostgres(ctx, cfg.DatabaseURL, &PoolConfig{MaxConns: cfg.MaxConns, MinConns: cfg.MinConns})
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := s.Migrate(ctx); err != nil {
		s.Close() //nolint:errcheck
		return nil, err
	}
	return s, nil
}

var recordColumns = []string{
	"id", "provider", "account_number", "bill_date", "document_type",
	"amount_due", "requires_attention", "source_path", "record",
	"created_at", "updated_at",
}

func upsertSQL(d db.Dialect) string {
	q, err := db.BuildUpsert(d, db.UpsertConfig{
		Table:         "bills",
		Columns:       recordColumns,
		ConflictKeys:  []string{"provider", "account_number", "bill_date", "document_type"},
		ConflictWhere: fmt.Sprintf("account_number <> '%s'", model.Sentinel),
		UpdateCols:    []string{"amount_due", "requires_attention", "source_path", "record", "updated_at"},
		Returning:     []string{"id"},
	})
	if err != nil {
		// The config above is static; an error here is a programming bug.
		panic(err)
	}
	return q
}

// recordArgs returns the upsert arguments for rec in recordColumns order.
func recordArgs(id string, rec model.BillRecord, now time.Time) ([]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, eris.Wrap(err, "store: marshal record")
	}
	billDate := ""
	if rec.BillDate != nil {
		billDate = rec.BillDate.String()
	}
	return []any{
		id, rec.Provider, rec.AccountNumber, billDate, string(rec.DocumentType),
		rec.AmountDue, rec.RequiresAttention, rec.SourcePath, data,
		now, now,
	}, nil
}

const selectRecord = `SELECT id, record, created_at, updated_at FROM bills`

// listQuery renders the filtered, paged SELECT for d.
func listQuery(d db.Dialect, f RecordFilter) (string, []any) {
	query := selectRecord + ` WHERE 1=1`
	var args []any
	add := func(clause string, v any) {
		args = append(args, v)
		query += fmt.Sprintf(" AND %s = %s", clause, d.Placeholder(len(args)))
	}

	if f.Provider != "" {
		add("provider", f.Provider)
	}
	if f.AccountNumber != "" {
		add("account_number", f.AccountNumber)
	}
	if f.DocumentType != "" {
		add("document_type", string(f.DocumentType))
	}
	if f.RequiresAttention != nil {
		add("requires_attention", *f.RequiresAttention)
	}
	query += ` ORDER BY bill_date DESC, updated_at DESC`

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	args = append(args, limit)
	query += " LIMIT " + d.Placeholder(len(args))
	if f.Offset > 0 {
		args = append(args, f.Offset)
		query += " OFFSET " + d.Placeholder(len(args))
	}
	return query, args
}

func decodeRecord(id string, data []byte, created, updated time.Time) (StoredRecord, error) {
	out := StoredRecord{ID: id, CreatedAt: created.UTC(), UpdatedAt: updated.UTC()}
	if err := json.Unmarshal(data, &out.Record); err != nil {
		return StoredRecord{}, eris.Wrapf(err, "store: unmarshal record %s", id)
	}
	return out, nil
}
