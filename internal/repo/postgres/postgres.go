package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/hamed0406/pushfailover/internal/domain"
	"github.com/hamed0406/pushfailover/internal/repo"
)

var _ repo.ResultStore = (*Store)(nil)

// Schema is applied by Migrate; every statement is idempotent.
const Schema = `
CREATE TABLE IF NOT EXISTS check_results (
  id          BIGSERIAL PRIMARY KEY,
  target      TEXT NOT NULL,
  up          BOOLEAN NOT NULL,
  latency_ms  BIGINT NOT NULL,
  failure     TEXT NOT NULL DEFAULT '',
  status      TEXT NOT NULL,
  pushed      BOOLEAN NOT NULL,
  rotation    TEXT NOT NULL DEFAULT '',
  checked_at  TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_check_results_target_time ON check_results (target, checked_at DESC);
`

type Store struct {
	pool *pgxpool.Pool
	log  *zap.Logger
}

func New(ctx context.Context, dsn string, log *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("pgxpool.New: %w", err)
	}
	ctxPing, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(ctxPing); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{pool: pool, log: log}, nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, Schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	s.log.Info("schema_applied", zap.String("table", "check_results"))
	return nil
}

func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *Store) Append(ctx context.Context, r *domain.CheckResult) error {
	if r.CheckedAt.IsZero() {
		r.CheckedAt = time.Now().UTC()
	}
	_, err := s.pool.Exec(ctx,
		`INSERT INTO check_results
		   (target, up, latency_ms, failure, status, pushed, rotation, checked_at)
		 VALUES
		   ($1, $2, $3, $4, $5, $6, $7, $8)`,
		r.Target, r.Up, r.LatencyMS, r.Failure, r.Status, r.Pushed, r.Rotation, r.CheckedAt,
	)
	if err != nil {
		return fmt.Errorf("insert result: %w", err)
	}
	return nil
}

func (s *Store) Latest(ctx context.Context) ([]domain.CheckResult, error) {
	return s.query(ctx, `
SELECT DISTINCT ON (target)
       target, up, latency_ms, failure, status, pushed, rotation, checked_at
  FROM check_results
 ORDER BY target, checked_at DESC`)
}

func (s *Store) History(ctx context.Context, target string, limit int) ([]domain.CheckResult, error) {
	if limit <= 0 {
		limit = 100
	}
	return s.query(ctx, `
SELECT target, up, latency_ms, failure, status, pushed, rotation, checked_at
  FROM check_results
 WHERE target = $1
 ORDER BY checked_at DESC
 LIMIT $2`, target, limit)
}

func (s *Store) query(ctx context.Context, sql string, args ...any) ([]domain.CheckResult, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	var out []domain.CheckResult
	for rows.Next() {
		var r domain.CheckResult
		if err := rows.Scan(&r.Target, &r.Up, &r.LatencyMS, &r.Failure, &r.Status, &r.Pushed, &r.Rotation, &r.CheckedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
