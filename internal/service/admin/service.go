// Package admin реализует операции управления задачами синхронизации.
package admin

import (
	"context"
	"fmt"
	"sync"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
	"github.com/vladislavdragonenkov/inventory-sync/internal/service/jobgate"
)

// SyncRunner: часть оркестратора, нужная для ручного запуска.
type SyncRunner interface {
	RunJob(ctx context.Context, name domain.JobName, force bool) (domain.SyncResult, error)
	SyncNextXDays(ctx context.Context, days int) (domain.SyncResult, error)
}

// Service управляет задачами синхронизации и разовыми запусками.
type Service struct {
	gate   *jobgate.Gate
	runner SyncRunner
	// appCtx переживает HTTP-запрос, в нём выполняются запущенные вручную задачи.
	appCtx context.Context
	logger *log.Entry
	wg     sync.WaitGroup
}

// NewService создаёт Service.
func NewService(appCtx context.Context, gate *jobgate.Gate, runner SyncRunner, logger *log.Entry) *Service {
	if logger == nil {
		logger = log.WithField("component", "job-control")
	}
	return &Service{
		gate:   gate,
		runner: runner,
		appCtx: appCtx,
		logger: logger,
	}
}

// ListJobs возвращает страницу задач; неположительные page и limit заменяются на 1 и 10.
func (s *Service) ListJobs(ctx context.Context, page, limit int) (domain.Page[domain.CronJob], error) {
	return s.gate.List(ctx, domain.PageRequest{Page: page, Limit: limit})
}

// ToggleJob включает или выключает задачу.
func (s *Service) ToggleJob(ctx context.Context, name string, enabled bool) (string, error) {
	job := domain.JobName(name)
	if err := s.gate.SetEnabled(ctx, job, enabled); err != nil {
		return "", err
	}
	state := "disabled"
	if enabled {
		state = "enabled"
	}
	return fmt.Sprintf("Cron %s is now %s", job, state), nil
}

// TriggerJob запускает задачу принудительно и не дожидается окончания.
func (s *Service) TriggerJob(_ context.Context, name string) (string, error) {
	job, err := domain.ParseJobName(name)
	if err != nil {
		return "", err
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		result, err := s.runner.RunJob(s.appCtx, job, true)
		if err != nil {
			s.logger.WithError(err).WithField("job", job).Error("triggered job failed")
			return
		}
		s.logger.WithFields(log.Fields{"job": job, "run_id": result.RunID}).Info("triggered job finished")
	}()

	return fmt.Sprintf("Triggered %s successfully", job), nil
}

// SyncNextXDays синхронно выполняет синхронизацию на days дней.
func (s *Service) SyncNextXDays(ctx context.Context, days int) (string, error) {
	if err := domain.ValidateHorizon(days); err != nil {
		return "", err
	}
	if _, err := s.runner.SyncNextXDays(ctx, days); err != nil {
		return "", fmt.Errorf("sync next %d days: %w", days, err)
	}
	return fmt.Sprintf("Synced %d-day inventory successfully", days), nil
}

// Wait ждёт завершения задач, запущенных через TriggerJob.
func (s *Service) Wait() {
	s.wg.Wait()
}
