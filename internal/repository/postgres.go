// Package repository содержит журнал проверок ИНН в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/mmeshcher/inn-checker/internal/model"
	"github.com/mmeshcher/inn-checker/internal/validation"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var defaultRetryDelays = []time.Duration{1 * time.Second, 3 * time.Second, 5 * time.Second}

// PostgresRepository хранит журнал проверок в PostgreSQL.
type PostgresRepository struct {
	pool        *pgxpool.Pool
	retryDelays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	r := &PostgresRepository{pool: pool, retryDelays: defaultRetryDelays}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.retryDelays) {
			break
		}

		timer := time.NewTimer(r.retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// SaveChecks сохраняет пачку проверок одной транзакцией.
func (r *PostgresRepository) SaveChecks(ctx context.Context, checks []model.Check) error {
	if len(checks) == 0 {
		return nil
	}

	return r.withRetry(ctx, func() error {
		return r.saveChecks(ctx, checks)
	})
}

func (r *PostgresRepository) saveChecks(ctx context.Context, checks []model.Check) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for _, c := range checks {
		batch.Queue(
			`INSERT INTO inn_checks (number, payer_type, result, checked_at) VALUES ($1, $2, $3, $4)`,
			c.Number, string(c.PayerType), string(c.Result), c.CheckedAt,
		)
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert checks: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}

	return nil
}

// GetChecksByNumber возвращает последние проверки номера, новые первыми.
func (r *PostgresRepository) GetChecksByNumber(ctx context.Context, number string, limit int) ([]model.Check, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT number, payer_type, result, checked_at
		 FROM inn_checks
		 WHERE number = $1
		 ORDER BY checked_at DESC, id DESC
		 LIMIT $2`,
		number, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("select checks: %w", err)
	}
	defer rows.Close()

	var res []model.Check
	for rows.Next() {
		var (
			num       string
			payerType string
			result    string
			checkedAt time.Time
		)
		if err := rows.Scan(&num, &payerType, &result, &checkedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}

		res = append(res, model.Check{
			Number:    num,
			PayerType: validation.PayerType(payerType),
			Result:    validation.Result(result),
			CheckedAt: checkedAt,
		})
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}

// GetStats возвращает количество проверок в журнале по каждому результату.
func (r *PostgresRepository) GetStats(ctx context.Context) (*model.Stats, error) {
	rows, err := r.pool.Query(ctx, `SELECT result, COUNT(*) FROM inn_checks GROUP BY result`)
	if err != nil {
		return nil, fmt.Errorf("select stats: %w", err)
	}
	defer rows.Close()

	var stats model.Stats
	for rows.Next() {
		var (
			result string
			count  int64
		)
		if err := rows.Scan(&result, &count); err != nil {
			return nil, fmt.Errorf("scan stats: %w", err)
		}

		switch validation.Result(result) {
		case validation.ResultValid:
			stats.Valid = count
		case validation.ResultInvalid:
			stats.Invalid = count
		}
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &stats, nil
}
