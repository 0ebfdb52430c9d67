package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/billscan/internal/db"
	"github.com/sells-group/billscan/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db     *sql.DB
	upsert string
	now    func() time.Time
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			conn.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: conn, upsert: upsertSQL(db.SQLite), now: time.Now}, nil
}

// Migrate creates the bills table and its indexes.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	ddl, err := migrations.ReadFile("migrations/sqlite.sql")
	if err != nil {
		return eris.Wrap(err, "sqlite: read migration")
	}
	_, err = s.db.ExecContext(ctx, string(ddl))
	return eris.Wrap(err, "sqlite: migrate")
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SaveRecord implements Store.
func (s *SQLiteStore) SaveRecord(ctx context.Context, rec model.BillRecord) (string, error) {
	args, err := recordArgs(uuid.New().String(), rec, s.now().UTC())
	if err != nil {
		return "", err
	}
	args[8] = string(args[8].([]byte))

	var id string
	if err := s.db.QueryRowContext(ctx, s.upsert, args...).Scan(&id); err != nil {
		return "", eris.Wrap(err, "sqlite: save record")
	}
	return id, nil
}

// GetRecord implements Store.
func (s *SQLiteStore) GetRecord(ctx context.Context, id string) (*StoredRecord, error) {
	row := s.db.QueryRowContext(ctx, selectRecord+` WHERE id = ?`, id)
	out, err := scanSQLite(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get record %s", id)
	}
	return &out, nil
}

// ListRecords implements Store.
func (s *SQLiteStore) ListRecords(ctx context.Context, filter RecordFilter) ([]StoredRecord, error) {
	query, args := listQuery(db.SQLite, filter)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list records")
	}
	defer rows.Close() //nolint:errcheck

	var out []StoredRecord
	for rows.Next() {
		rec, err := scanSQLite(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate records")
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLite(row scannable) (StoredRecord, error) {
	var (
		id               string
		data             string
		created, updated time.Time
	)
	if err := row.Scan(&id, &data, &created, &updated); err != nil {
		return StoredRecord{}, err
	}
	return decodeRecord(id, []byte(data), created, updated)
}
