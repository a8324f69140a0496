package memory

import (
	"context"
	"sync"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

type cronJobRepositoryInMemory struct {
	mu    sync.RWMutex
	order []domain.JobName
	items map[domain.JobName]domain.CronJob
}

// NewCronJobRepository возвращает репозиторий с тремя известными задачами, включёнными по умолчанию.
func NewCronJobRepository() domain.CronJobRepository {
	now := time.Now().UTC()
	r := &cronJobRepositoryInMemory{
		items: make(map[domain.JobName]domain.CronJob),
	}
	for _, name := range domain.KnownJobs() {
		r.order = append(r.order, name)
		r.items[name] = domain.CronJob{
			Name:      name,
			Enabled:   true,
			CreatedAt: now,
			UpdatedAt: now,
		}
	}
	return r
}

func (r *cronJobRepositoryInMemory) Get(_ context.Context, name domain.JobName) (domain.CronJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	job, ok := r.items[name]
	if !ok {
		return domain.CronJob{}, domain.ErrJobNotFound
	}
	return cloneCronJob(job), nil
}

func (r *cronJobRepositoryInMemory) List(_ context.Context, offset, limit int) ([]domain.CronJob, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := len(r.order)
	if offset < 0 {
		offset = 0
	}
	if offset >= total {
		return []domain.CronJob{}, total, nil
	}
	end := total
	if limit > 0 && offset+limit < total {
		end = offset + limit
	}

	result := make([]domain.CronJob, 0, end-offset)
	for _, name := range r.order[offset:end] {
		result = append(result, cloneCronJob(r.items[name]))
	}
	return result, total, nil
}

func (r *cronJobRepositoryInMemory) SetEnabled(_ context.Context, name domain.JobName, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.items[name]
	if !ok {
		return domain.ErrJobNotFound
	}
	job.Enabled = enabled
	job.UpdatedAt = time.Now().UTC()
	r.items[name] = job
	return nil
}

func (r *cronJobRepositoryInMemory) SetLastExecuted(_ context.Context, name domain.JobName, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.items[name]
	if !ok {
		return domain.ErrJobNotFound
	}
	at = at.UTC()
	job.LastExecuted = &at
	job.UpdatedAt = time.Now().UTC()
	r.items[name] = job
	return nil
}

func cloneCronJob(job domain.CronJob) domain.CronJob {
	if job.LastExecuted != nil {
		at := *job.LastExecuted
		job.LastExecuted = &at
	}
	return job
}

var _ domain.CronJobRepository = (*cronJobRepositoryInMemory)(nil)
