package postgres

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"corePools/internal/model"
)

const schema = `
CREATE TABLE IF NOT EXISTS core_pools (
	chain      TEXT        NOT NULL,
	pool_id    TEXT        NOT NULL,
	symbol     TEXT        NOT NULL,
	source     TEXT        NOT NULL,
	run_id     UUID        NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (chain, pool_id)
);

CREATE TABLE IF NOT EXISTS core_pool_runs (
	run_id      UUID        PRIMARY KEY,
	pool_count  INTEGER     NOT NULL,
	chain_count INTEGER     NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL
);
`

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Store persists core pool snapshots in Postgres.
type Store struct {
	db DB
}

// Run describes a stored snapshot.
type Run struct {
	ID         string
	PoolCount  int
	ChainCount int
	CreatedAt  time.Time
}

func NewStore(ctx context.Context, dsn string) (*Store, error) {
	if dsn == "" {
		return nil, fmt.Errorf("pg dsn is required")
	}
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return NewStoreWithDB(pool), nil
}

func NewStoreWithDB(db DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// PutCorePools replaces the stored pools of every chain in the snapshot and records the run.
// Chains and pool ids are written in sorted order.
func (s *Store) PutCorePools(ctx context.Context, snapshot model.Snapshot) error {
	if snapshot.RunID == "" {
		return fmt.Errorf("snapshot run id required")
	}
	createdAt := snapshot.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	chains := snapshot.Pools.Chains()
	for _, chain := range chains {
		if _, err := tx.Exec(ctx, `DELETE FROM core_pools WHERE chain = $1`, chain); err != nil {
			_ = tx.Rollback(ctx)
			return fmt.Errorf("clear %s: %w", chain, err)
		}

		ids := make([]string, 0, len(snapshot.Pools[chain]))
		for id := range snapshot.Pools[chain] {
			ids = append(ids, id)
		}
		sort.Strings(ids)

		for _, id := range ids {
			_, err := tx.Exec(ctx, `
				INSERT INTO core_pools (chain, pool_id, symbol, source, run_id, updated_at)
				VALUES ($1, $2, $3, $4, $5, $6)
			`, chain, id, snapshot.Pools[chain][id], string(snapshot.Source(chain, id)), snapshot.RunID, createdAt)
			if err != nil {
				_ = tx.Rollback(ctx)
				return fmt.Errorf("insert %s %s: %w", chain, id, err)
			}
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO core_pool_runs (run_id, pool_count, chain_count, created_at)
		VALUES ($1, $2, $3, $4)
	`, snapshot.RunID, snapshot.Pools.Count(), len(chains), createdAt)
	if err != nil {
		_ = tx.Rollback(ctx)
		return fmt.Errorf("record run: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LastRun returns the most recent stored run. ok is false when no run was recorded yet.
func (s *Store) LastRun(ctx context.Context) (Run, bool, error) {
	var run Run
	row := s.db.QueryRow(ctx, `
		SELECT run_id::text, pool_count, chain_count, created_at
		FROM core_pool_runs
		ORDER BY created_at DESC
		LIMIT 1
	`)
	if err := row.Scan(&run.ID, &run.PoolCount, &run.ChainCount, &run.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Run{}, false, nil
		}
		return Run{}, false, fmt.Errorf("last run: %w", err)
	}
	return run, true, nil
}
