// Package jobgate хранит и проверяет флаги включения именованных задач синхронизации.
package jobgate

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// Gate: обёртка над CronJobRepository с проверкой имён задач.
type Gate struct {
	repo   domain.CronJobRepository
	logger *log.Entry
}

// NewGate создаёт Gate.
func NewGate(repo domain.CronJobRepository, logger *log.Entry) *Gate {
	if logger == nil {
		logger = log.WithField("component", "job-gate")
	}
	return &Gate{repo: repo, logger: logger}
}

// IsEnabled сообщает, можно ли запускать задачу.
// Неизвестная задача и ошибка хранилища трактуются как «выключена».
func (g *Gate) IsEnabled(ctx context.Context, name domain.JobName) bool {
	job, err := g.repo.Get(ctx, name)
	if err != nil {
		g.logger.WithError(err).WithField("job", name).Warn("job gate lookup failed, treating job as disabled")
		return false
	}
	return job.Enabled
}

// Get возвращает состояние задачи.
func (g *Gate) Get(ctx context.Context, name domain.JobName) (domain.CronJob, error) {
	if !name.Known() {
		return domain.CronJob{}, fmt.Errorf("%w: %s", domain.ErrJobNotFound, name)
	}
	return g.repo.Get(ctx, name)
}

// SetEnabled включает или выключает задачу.
func (g *Gate) SetEnabled(ctx context.Context, name domain.JobName, enabled bool) error {
	if !name.Known() {
		return fmt.Errorf("%w: %s", domain.ErrJobNotFound, name)
	}
	if err := g.repo.SetEnabled(ctx, name, enabled); err != nil {
		return fmt.Errorf("set job %s enabled=%t: %w", name, enabled, err)
	}
	g.logger.WithFields(log.Fields{"job": name, "enabled": enabled}).Info("job toggled")
	return nil
}

// RecordExecution сохраняет время последнего запуска задачи.
func (g *Gate) RecordExecution(ctx context.Context, name domain.JobName, at time.Time) error {
	if err := g.repo.SetLastExecuted(ctx, name, at); err != nil {
		return fmt.Errorf("record job %s execution: %w", name, err)
	}
	return nil
}

// List возвращает страницу задач.
func (g *Gate) List(ctx context.Context, req domain.PageRequest) (domain.Page[domain.CronJob], error) {
	req = req.Normalize()
	jobs, total, err := g.repo.List(ctx, req.Offset(), req.Limit)
	if err != nil {
		return domain.Page[domain.CronJob]{}, fmt.Errorf("list jobs: %w", err)
	}
	return domain.Page[domain.CronJob]{
		Data:        jobs,
		TotalLength: total,
		Page:        req.Page,
		Limit:       req.Limit,
	}, nil
}
