package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"paygate/internal/model"
)

var sqliteSchema = []string{
	`create table if not exists processed_payment (
		correlation_id text primary key,
		processor      text not null,
		amount         real not null,
		requested_at   integer not null
	)`,
	`create index if not exists idx_processed_payment_range
		on processed_payment (processor, requested_at)`,
}

// SQLiteStore is an embedded single-node backing. Timestamps are stored as
// UnixNano integers so range boundaries stay exact.
type SQLiteStore struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteStore, error) {
	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Record(ctx context.Context, processor model.ProcessorType, correlationID string, amount float64, requestedAt time.Time) error {
	query := `insert or ignore into processed_payment (correlation_id, processor, amount, requested_at)
		  values (?, ?, ?, ?)`

	_, err := s.db.ExecContext(ctx, query, correlationID, string(processor), amount, requestedAt.UTC().UnixNano())
	return err
}

func (s *SQLiteStore) SumInRange(ctx context.Context, processor model.ProcessorType, from, to time.Time) (model.ProcessorSummary, error) {
	query := `select count(1), coalesce(sum(amount), 0)
		  from processed_payment
		  where processor = ? and requested_at between ? and ?`

	var summary model.ProcessorSummary
	err := s.db.QueryRowContext(ctx, query, string(processor), from.UTC().UnixNano(), to.UTC().UnixNano()).
		Scan(&summary.TotalRequests, &summary.TotalAmount)
	if err != nil {
		return model.ProcessorSummary{}, err
	}
	summary.TotalAmount = model.RoundAmount(summary.TotalAmount)
	return summary, nil
}

func (s *SQLiteStore) Purge(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `delete from processed_payment`)
	return err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
