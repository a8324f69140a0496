package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// EnvLogLevel: уровень логирования logrus, читается в cmd.
const EnvLogLevel = "LOG_LEVEL"

const (
	envHTTPAddr             = "HTTP_ADDR"
	envMetricsAddr          = "METRICS_ADDR"
	envGRPCAddr             = "GRPC_ADDR"
	envStorageDriver        = "STORAGE_DRIVER"
	envPostgresDSN          = "POSTGRES_DSN"
	envPostgresAutoMigrate  = "POSTGRES_AUTO_MIGRATE"
	envProviderBaseURL      = "PROVIDER_BASE_URL"
	envProviderAPIKey       = "PROVIDER_API_KEY"
	envProviderTimeout      = "PROVIDER_TIMEOUT"
	envProviderMinInterval  = "PROVIDER_MIN_INTERVAL"
	envSyncTimezone         = "SYNC_TIMEZONE"
	envSyncTxTimeout        = "SYNC_TX_TIMEOUT"
	envSyncTxMaxWait        = "SYNC_TX_MAX_WAIT"
	envSyncFreshnessMaxAge  = "SYNC_FRESHNESS_MAX_AGE"
	envCronSync30Days       = "CRON_SYNC_30_DAYS"
	envCronSync7Days        = "CRON_SYNC_7_DAYS"
	envCronSyncToday        = "CRON_SYNC_TODAY"
	envSchedulerEnabled     = "SCHEDULER_ENABLED"
	envKafkaBrokers         = "KAFKA_BROKERS"
	envKafkaTopic           = "KAFKA_TOPIC"
	envOTLPEndpoint         = "OTEL_EXPORTER_OTLP_ENDPOINT"
	envAdminRateLimitPerMin = "ADMIN_RATE_LIMIT_PER_MINUTE"
)

// EnvLookup совместим с os.LookupEnv.
type EnvLookup func(key string) (string, bool)

// ConfigFromEnv накладывает переменные окружения на DefaultConfig.
// Некорректные значения не роняют запуск: остаётся значение по умолчанию, а в warnings попадает причина.
func ConfigFromEnv(lookup EnvLookup) (Config, []string) {
	cfg := DefaultConfig()
	var warnings []string
	warn := func(key string, err error) {
		warnings = append(warnings, fmt.Sprintf("%s: %v, using default", key, err))
	}

	stringVars := map[string]*string{
		envHTTPAddr:        &cfg.HTTPAddr,
		envMetricsAddr:     &cfg.MetricsAddr,
		envProviderBaseURL: &cfg.ProviderBaseURL,
		envProviderAPIKey:  &cfg.ProviderAPIKey,
		envSyncTimezone:    &cfg.Timezone,
		envKafkaBrokers:    &cfg.KafkaBrokers,
		envKafkaTopic:      &cfg.KafkaTopic,
		envOTLPEndpoint:    &cfg.OTLPEndpoint,
		envPostgresDSN:     &cfg.PostgresDSN,
	}
	for key, target := range stringVars {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*target = strings.TrimSpace(v)
		}
	}

	// GRPC_ADDR="" явно отключает gRPC сервер.
	if v, ok := lookup(envGRPCAddr); ok {
		cfg.GRPCAddr = strings.TrimSpace(v)
	}
	if v, ok := lookup(envStorageDriver); ok && strings.TrimSpace(v) != "" {
		cfg.StorageDriver = strings.ToLower(strings.TrimSpace(v))
	}

	boolVars := map[string]*bool{
		envPostgresAutoMigrate: &cfg.PostgresAutoMigrate,
		envSchedulerEnabled:    &cfg.SchedulerEnabled,
	}
	for key, target := range boolVars {
		if v, ok := lookup(key); ok {
			parsed, err := parseBool(v)
			if err != nil {
				warn(key, err)
				continue
			}
			*target = parsed
		}
	}

	positive := func(d time.Duration) bool { return d > 0 }
	durationVars := []struct {
		key    string
		target *time.Duration
		valid  func(time.Duration) bool
		reason string
	}{
		{envProviderTimeout, &cfg.ProviderTimeout, positive, "must be > 0"},
		{envProviderMinInterval, &cfg.ProviderMinInterval, func(d time.Duration) bool { return d >= 0 }, "must be >= 0"},
		{envSyncTxTimeout, &cfg.TxTimeout, positive, "must be > 0"},
		{envSyncTxMaxWait, &cfg.TxMaxWait, positive, "must be > 0"},
		{envSyncFreshnessMaxAge, &cfg.SyncFreshnessMaxAge, positive, "must be > 0"},
	}
	for _, dv := range durationVars {
		if v, ok := lookup(dv.key); ok {
			parsed, err := parseDuration(v, dv.valid, dv.reason)
			if err != nil {
				warn(dv.key, err)
				continue
			}
			*dv.target = parsed
		}
	}

	if v, ok := lookup(envAdminRateLimitPerMin); ok {
		parsed, err := parseInt(v, func(n int) bool { return n > 0 }, "must be > 0")
		if err != nil {
			warn(envAdminRateLimitPerMin, err)
		} else {
			cfg.AdminRateLimitPerMinute = parsed
		}
	}

	// Пустое выражение отключает задачу.
	specs := map[string]domain.JobName{
		envCronSync30Days: domain.JobSyncNext30Days,
		envCronSync7Days:  domain.JobSyncNext7Days,
		envCronSyncToday:  domain.JobSyncToday,
	}
	for key, job := range specs {
		if v, ok := lookup(key); ok {
			cfg.CronSpecs[job] = strings.TrimSpace(v)
		}
	}

	return cfg, warnings
}

func parseBool(raw string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "true", "yes", "on":
		return true, nil
	case "0", "false", "no", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid bool %q", raw)
	}
}

func parseInt(raw string, valid func(int) bool, reason string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid int %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("%d %s", value, reason)
	}
	return value, nil
}

func parseDuration(raw string, valid func(time.Duration) bool, reason string) (time.Duration, error) {
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", raw)
	}
	if !valid(value) {
		return 0, fmt.Errorf("%s %s", value, reason)
	}
	return value, nil
}
