package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/messaging/kafka"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/scheduler"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/throttle"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/upsert"
)

// Поддерживаемые хранилища.
const (
	StorageDriverMemory   = "memory"
	StorageDriverPostgres = "postgres"
)

// Config описывает настройки запуска сервиса синхронизации.
type Config struct {
	HTTPAddr    string
	MetricsAddr string
	// GRPCAddr: адрес gRPC health; пустая строка отключает сервер.
	GRPCAddr string

	StorageDriver       string
	PostgresDSN         string
	PostgresAutoMigrate bool

	ProviderBaseURL     string
	ProviderAPIKey      string
	ProviderTimeout     time.Duration
	ProviderMinInterval time.Duration

	// Timezone задаёт календарь расчёта дат и расписания.
	Timezone  string
	TxTimeout time.Duration
	TxMaxWait time.Duration

	SchedulerEnabled bool
	CronSpecs        map[domain.JobName]string
	// SyncFreshnessMaxAge: возраст последнего sync_today, после которого /healthz отдаёт degraded.
	SyncFreshnessMaxAge time.Duration

	KafkaBrokers string
	KafkaTopic   string

	OTLPEndpoint string
	ServiceName  string

	AdminRateLimitPerMinute int
}

// DefaultConfig возвращает конфигурацию для локального запуска: память, mock-провайдер, без Kafka.
func DefaultConfig() Config {
	tx := upsert.DefaultTxOptions()
	return Config{
		HTTPAddr:                ":3000",
		MetricsAddr:             ":9090",
		GRPCAddr:                ":50051",
		StorageDriver:           StorageDriverMemory,
		PostgresAutoMigrate:     true,
		ProviderTimeout:         20 * time.Second,
		ProviderMinInterval:     throttle.DefaultInterval,
		Timezone:                "UTC",
		TxTimeout:               tx.Timeout,
		TxMaxWait:               tx.MaxWait,
		SchedulerEnabled:        true,
		CronSpecs:               scheduler.DefaultSpecs(),
		SyncFreshnessMaxAge:     time.Hour,
		KafkaTopic:              kafka.TopicSyncEvents,
		ServiceName:             "inventory-sync",
		AdminRateLimitPerMinute: 30,
	}
}

// Validate проверяет согласованность настроек.
func (c Config) Validate() error {
	var errs []error

	switch c.StorageDriver {
	case StorageDriverMemory:
	case StorageDriverPostgres:
		if strings.TrimSpace(c.PostgresDSN) == "" {
			errs = append(errs, errors.New("postgres dsn is required for postgres storage driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("unsupported storage driver %q", c.StorageDriver))
	}

	if strings.TrimSpace(c.HTTPAddr) == "" {
		errs = append(errs, errors.New("http addr is required"))
	}
	if c.ProviderMinInterval < 0 {
		errs = append(errs, errors.New("provider min interval must be >= 0"))
	}
	if c.TxTimeout <= 0 || c.TxMaxWait <= 0 {
		errs = append(errs, errors.New("transaction timeout and max wait must be > 0"))
	} else if c.TxMaxWait >= c.TxTimeout {
		errs = append(errs, fmt.Errorf("transaction max wait %s must be shorter than timeout %s", c.TxMaxWait, c.TxTimeout))
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		errs = append(errs, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err))
	}
	for name := range c.CronSpecs {
		if !name.Known() {
			errs = append(errs, fmt.Errorf("%w: %s", domain.ErrInvalidJobName, name))
		}
	}

	return errors.Join(errs...)
}

// Location возвращает часовой пояс синхронизации; пустое значение: UTC.
func (c Config) Location() (*time.Location, error) {
	if c.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(c.Timezone)
}

// TxOptions собирает параметры транзакции записи слота.
func (c Config) TxOptions() domain.TxOptions {
	opts := upsert.DefaultTxOptions()
	if c.TxTimeout > 0 {
		opts.Timeout = c.TxTimeout
	}
	if c.TxMaxWait > 0 {
		opts.MaxWait = c.TxMaxWait
	}
	return opts
}
