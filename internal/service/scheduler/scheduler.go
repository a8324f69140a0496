// Package scheduler запускает именованные задачи синхронизации по cron-расписанию.
package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// JobRunner выполняет задачу по имени.
type JobRunner interface {
	RunJob(ctx context.Context, name domain.JobName, force bool) (domain.SyncResult, error)
}

// DefaultSpecs возвращает расписание по умолчанию. 30 дней в полночь, 7 дней каждые 4 часа, сегодня каждые 15 минут.
func DefaultSpecs() map[domain.JobName]string {
	return map[domain.JobName]string{
		domain.JobSyncNext30Days: "0 0 * * *",
		domain.JobSyncNext7Days:  "0 */4 * * *",
		domain.JobSyncToday:      "*/15 * * * *",
	}
}

// Scheduler: обёртка над robfig/cron.
type Scheduler struct {
	cron   *cron.Cron
	runner JobRunner
	// ctx: контекст жизни приложения, в нём выполняются задачи.
	ctx    context.Context
	logger *log.Entry
	jobs   []domain.JobName
}

// New регистрирует задачи. Пустое выражение отключает задачу.
func New(ctx context.Context, runner JobRunner, specs map[domain.JobName]string, loc *time.Location, logger *log.Entry) (*Scheduler, error) {
	if logger == nil {
		logger = log.WithField("component", "scheduler")
	}
	if loc == nil {
		loc = time.UTC
	}
	cl := cronLogger{entry: logger}
	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithLogger(cl),
			cron.WithChain(cron.SkipIfStillRunning(cl), cron.Recover(cl)),
		),
		runner: runner,
		ctx:    ctx,
		logger: logger,
	}

	names := make([]domain.JobName, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	for _, name := range names {
		spec := specs[name]
		if spec == "" {
			logger.WithField("job", name).Info("job has no schedule, not registered")
			continue
		}
		if !name.Known() {
			return nil, fmt.Errorf("%w: %s", domain.ErrInvalidJobName, name)
		}
		if _, err := s.cron.AddFunc(spec, s.jobFunc(name)); err != nil {
			return nil, fmt.Errorf("schedule %s with %q: %w", name, spec, err)
		}
		s.jobs = append(s.jobs, name)
		logger.WithFields(log.Fields{"job": name, "spec": spec}).Info("job scheduled")
	}
	return s, nil
}

func (s *Scheduler) jobFunc(name domain.JobName) func() {
	return func() {
		if s.ctx.Err() != nil {
			return
		}
		if _, err := s.runner.RunJob(s.ctx, name, false); err != nil {
			s.logger.WithError(err).WithField("job", name).Error("scheduled job failed")
		}
	}
}

// Jobs возвращает зарегистрированные задачи.
func (s *Scheduler) Jobs() []domain.JobName {
	return append([]domain.JobName(nil), s.jobs...)
}

// Start запускает планировщик в фоне.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop останавливает планировщик и ждёт завершения выполняющихся задач или отмены ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// cronLogger адаптирует logrus к cron.Logger.
type cronLogger struct {
	entry *log.Entry
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.entry.WithFields(toFields(keysAndValues)).Debug(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.entry.WithError(err).WithFields(toFields(keysAndValues)).Error(msg)
}

func toFields(keysAndValues []interface{}) log.Fields {
	fields := make(log.Fields, len(keysAndValues)/2)
	for i := 0; i+1 < len(keysAndValues); i += 2 {
		fields[fmt.Sprint(keysAndValues[i])] = keysAndValues[i+1]
	}
	return fields
}

var _ cron.Logger = cronLogger{}
