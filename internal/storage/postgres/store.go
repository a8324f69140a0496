package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	log "github.com/sirupsen/logrus"
)

const (
	defaultConnTimeout     = 5 * time.Second
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 10
	defaultConnMaxLifetime = 30 * time.Minute
	defaultConnMaxIdleTime = 5 * time.Minute

	// DefaultConnectAttempts и DefaultConnectRetryDelay: поведение при старте, пока БД поднимается.
	DefaultConnectAttempts   = 5
	DefaultConnectRetryDelay = 5 * time.Second
)

var errStoreNotInitialized = errors.New("postgres store is not initialized")

// Store: пул соединений к PostgreSQL, общий для репозиториев инвентаря и задач.
type Store struct {
	db *sql.DB
}

// Open открывает пул и проверяет доступность базы одним ping.
func Open(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres connection: %w", err)
	}
	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return &Store{db: db}, nil
}

// OpenWithRetry повторяет Open до attempts раз с паузой delay.
func OpenWithRetry(ctx context.Context, dsn string, attempts int, delay time.Duration, logger *log.Entry) (*Store, error) {
	if attempts < 1 {
		attempts = 1
	}
	if logger == nil {
		logger = log.WithField("component", "postgres")
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		store, err := Open(ctx, dsn)
		if err == nil {
			if attempt > 1 {
				logger.WithField("attempt", attempt).Info("connected to postgres")
			}
			return store, nil
		}
		lastErr = err
		if attempt == attempts {
			break
		}

		logger.WithError(err).WithFields(log.Fields{
			"attempt":  attempt,
			"attempts": attempts,
			"retry_in": delay.String(),
		}).Warn("postgres is not reachable yet")

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
	return nil, fmt.Errorf("connect to postgres after %d attempts: %w", attempts, lastErr)
}

// DB возвращает пул для низкоуровневого доступа (миграции, тесты).
func (s *Store) DB() *sql.DB {
	return s.db
}

// Ping проверяет доступность базы; используется health-проверкой.
func (s *Store) Ping(ctx context.Context) error {
	if s == nil || s.db == nil {
		return errStoreNotInitialized
	}

	pingCtx, cancel := context.WithTimeout(ctx, defaultConnTimeout)
	defer cancel()
	return s.db.PingContext(pingCtx)
}

// EnsureSchema применяет все up-миграции.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return s.MigrateUp(ctx, 0)
}

// Close закрывает пул.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
