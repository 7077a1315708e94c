package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/douoai/jijin/internal/domain/model"
)

const priceColumns = `price_usd, price_cny, exchange_rate, change_percent, change_amount, close_price, open_price, timestamp`

// PoolOptions настройки пула соединений
type PoolOptions struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type PostgresAdapter struct {
	db *sqlx.DB
}

func NewPostgresAdapter(ctx context.Context, connStr string, opts PoolOptions) (*PostgresAdapter, error) {
	db, err := sqlx.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if opts.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(opts.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresAdapter{db: db}, nil
}

// NewPostgresAdapterWithDB wraps an already opened handle.
func NewPostgresAdapterWithDB(db *sqlx.DB) *PostgresAdapter {
	return &PostgresAdapter{db: db}
}

func (a *PostgresAdapter) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS gold_prices (
		id BIGSERIAL PRIMARY KEY,
		price_usd DOUBLE PRECISION NOT NULL,
		price_cny DOUBLE PRECISION NOT NULL,
		exchange_rate DOUBLE PRECISION NOT NULL,
		change_percent DOUBLE PRECISION,
		change_amount DOUBLE PRECISION,
		close_price DOUBLE PRECISION,
		open_price DOUBLE PRECISION,
		timestamp BIGINT NOT NULL,
		created_at TIMESTAMPTZ DEFAULT NOW()
	);
	CREATE INDEX IF NOT EXISTS idx_gold_prices_timestamp ON gold_prices(timestamp);
	`
	if _, err := a.db.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("failed to init schema: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) InsertPrice(ctx context.Context, rec model.PriceRecord) error {
	query := `
	INSERT INTO gold_prices (` + priceColumns + `)
	VALUES (:price_usd, :price_cny, :exchange_rate, :change_percent, :change_amount, :close_price, :open_price, :timestamp)
	`
	if _, err := a.db.NamedExecContext(ctx, query, rec); err != nil {
		return fmt.Errorf("failed to insert price: %w", err)
	}
	return nil
}

func (a *PostgresAdapter) PricesSince(ctx context.Context, sinceMs int64, limit int) ([]model.PriceRecord, error) {
	query := `
	SELECT ` + priceColumns + `
	FROM gold_prices
	WHERE timestamp >= $1
	ORDER BY timestamp ASC
	LIMIT $2
	`
	rows := []model.PriceRecord{}
	if err := a.db.SelectContext(ctx, &rows, query, sinceMs, limit); err != nil {
		return nil, fmt.Errorf("failed to query prices: %w", err)
	}
	return rows, nil
}

func (a *PostgresAdapter) LatestPrice(ctx context.Context) (*model.PriceRecord, error) {
	query := `
	SELECT ` + priceColumns + `
	FROM gold_prices
	ORDER BY timestamp DESC
	LIMIT 1
	`
	var rec model.PriceRecord
	if err := a.db.GetContext(ctx, &rec, query); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query latest price: %w", err)
	}
	return &rec, nil
}

func (a *PostgresAdapter) DeletePricesBefore(ctx context.Context, beforeMs int64) (int64, error) {
	res, err := a.db.ExecContext(ctx, `DELETE FROM gold_prices WHERE timestamp < $1`, beforeMs)
	if err != nil {
		return 0, fmt.Errorf("failed to delete old prices: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return n, nil
}

func (a *PostgresAdapter) Ping(ctx context.Context) error {
	return a.db.PingContext(ctx)
}

func (a *PostgresAdapter) Close() error {
	return a.db.Close()
}
