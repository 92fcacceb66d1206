package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"paygate/internal/model"
)

var processedSchema = []string{
	`create table if not exists processed_payment (
		correlation_id text primary key,
		processor      text not null,
		amount         double precision not null,
		requested_at   timestamptz not null
	)`,
	`create index if not exists idx_processed_payment_range
		on processed_payment (processor, requested_at)`,
}

// PostgresStore persists processed payments in a relational table keyed by
// correlation id, so idempotency rides on the primary key.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(ctx context.Context, databaseURL string) (*PostgresStore, error) {
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse database url: %w", err)
	}

	cfg.MaxConns = 50
	cfg.MinConns = 5
	cfg.MaxConnLifetime = time.Minute * 30
	cfg.MaxConnIdleTime = time.Minute * 5

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("database ping failed: %w", err)
	}

	for _, stmt := range processedSchema {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return nil, fmt.Errorf("failed to ensure schema: %w", err)
		}
	}

	return &PostgresStore{pool: pool}, nil
}

func (s *PostgresStore) Record(ctx context.Context, processor model.ProcessorType, correlationID string, amount float64, requestedAt time.Time) error {
	query := `insert into processed_payment (correlation_id, processor, amount, requested_at)
		  values ($1, $2, $3, $4)
		  on conflict (correlation_id) do nothing`

	_, err := s.pool.Exec(ctx, query, correlationID, string(processor), amount, requestedAt.UTC())
	return err
}

func (s *PostgresStore) SumInRange(ctx context.Context, processor model.ProcessorType, from, to time.Time) (model.ProcessorSummary, error) {
	query := `select count(1), coalesce(sum(amount), 0)
		  from processed_payment
		  where processor = $1 and requested_at between $2 and $3`

	var summary model.ProcessorSummary
	err := s.pool.QueryRow(ctx, query, string(processor), from.UTC(), to.UTC()).
		Scan(&summary.TotalRequests, &summary.TotalAmount)
	if err != nil {
		return model.ProcessorSummary{}, err
	}
	summary.TotalAmount = model.RoundAmount(summary.TotalAmount)
	return summary, nil
}

func (s *PostgresStore) Purge(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `truncate processed_payment`)
	return err
}

func (s *PostgresStore) Close() {
	s.pool.Close()
}
