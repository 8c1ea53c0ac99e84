// Package db открывает подключение к PostgreSQL через драйвер pgx.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
)

// RetryDelays задаёт паузы между повторными попытками подключения.
var RetryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// ConnectDB открывает пул соединений и проверяет его, повторяя попытки
// с паузами из RetryDelays. Возвращает последнюю ошибку, если все попытки неудачны.
func ConnectDB(ctx context.Context, dsn string, sugar *zap.SugaredLogger) (*sql.DB, error) {
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(10)
	conn.SetConnMaxLifetime(30 * time.Minute)

	if err := PingWithRetry(ctx, conn, sugar); err != nil {
		conn.Close()
		return nil, err
	}

	return conn, nil
}

// PingWithRetry проверяет соединение, повторяя попытки с паузами из RetryDelays.
func PingWithRetry(ctx context.Context, conn *sql.DB, sugar *zap.SugaredLogger) error {
	err := conn.PingContext(ctx)
	if err == nil {
		return nil
	}

	for i, delay := range RetryDelays {
		sugar.Warnw("Database ping failed, retrying", "attempt", i+1, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return fmt.Errorf("database ping cancelled: %w", ctx.Err())
		case <-time.After(delay):
		}

		if err = conn.PingContext(ctx); err == nil {
			sugar.Infow("Database connected after retry", "attempts", i+1)
			return nil
		}
	}

	return fmt.Errorf("failed to ping database: %w", err)
}
