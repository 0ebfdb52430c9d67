package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/billscan/internal/db"
	"github.com/sells-group/billscan/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
	upsert  string
	now     func() time.Time
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	zap.L().Info("postgres: connected",
		zap.Int32("max_conns", maxConns),
		zap.Int32("min_conns", minConns),
	)
	return newPostgresStore(pool), nil
}

func newPostgresStore(pool db.Pool) *PostgresStore {
	return &PostgresStore{
		pool:    pool,
		closeFn: pool.Close,
		upsert:  upsertSQL(db.Postgres),
		now:     time.Now,
	}
}

// Migrate creates the bills table and its indexes.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	ddl, err := migrations.ReadFile("migrations/postgres.sql")
	if err != nil {
		return eris.Wrap(err, "postgres: read migration")
	}
	_, err = s.pool.Exec(ctx, string(ddl))
	return eris.Wrap(err, "postgres: migrate")
}

// Close releases the pool.
func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

// SaveRecord implements Store.
func (s *PostgresStore) SaveRecord(ctx context.Context, rec model.BillRecord) (string, error) {
	args, err := recordArgs(uuid.New().String(), rec, s.now().UTC())
	if err != nil {
		return "", err
	}

	var id string
	if err := s.pool.QueryRow(ctx, s.upsert, args...).Scan(&id); err != nil {
		return "", eris.Wrap(err, "postgres: save record")
	}
	return id, nil
}

// GetRecord implements Store.
func (s *PostgresStore) GetRecord(ctx context.Context, id string) (*StoredRecord, error) {
	row := s.pool.QueryRow(ctx, selectRecord+` WHERE id = $1`, id)
	out, err := scanPostgres(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get record %s", id)
	}
	return &out, nil
}

// ListRecords implements Store.
func (s *PostgresStore) ListRecords(ctx context.Context, filter RecordFilter) ([]StoredRecord, error) {
	query, args := listQuery(db.Postgres, filter)
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list records")
	}
	defer rows.Close()

	var out []StoredRecord
	for rows.Next() {
		rec, err := scanPostgres(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: iterate records")
}

func scanPostgres(row pgx.Row) (StoredRecord, error) {
	var (
		id               string
		data             []byte
		created, updated time.Time
	)
	if err := row.Scan(&id, &data, &created, &updated); err != nil {
		return StoredRecord{}, err
	}
	return decodeRecord(id, data, created, updated)
}
