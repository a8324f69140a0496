package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// CronJobRepository хранит флаги включения задач в таблице cron_jobs.
type CronJobRepository struct {
	store *Store
}

// NewCronJobRepository создаёт репозиторий задач.
func NewCronJobRepository(store *Store) *CronJobRepository {
	return &CronJobRepository{store: store}
}

func (r *CronJobRepository) Get(ctx context.Context, name domain.JobName) (domain.CronJob, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT name, is_enabled, last_executed, created_at, updated_at
		FROM cron_jobs
		WHERE name = $1
	`, string(name))

	job, err := scanCronJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.CronJob{}, domain.ErrJobNotFound
	}
	if err != nil {
		return domain.CronJob{}, fmt.Errorf("get cron job %s: %w", name, err)
	}
	return job, nil
}

func (r *CronJobRepository) List(ctx context.Context, offset, limit int) ([]domain.CronJob, int, error) {
	var total int
	if err := r.store.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM cron_jobs`).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count cron jobs: %w", err)
	}

	rows, err := r.store.db.QueryContext(ctx, `
		SELECT name, is_enabled, last_executed, created_at, updated_at
		FROM cron_jobs
		ORDER BY name
		OFFSET $1
		LIMIT $2
	`, offset, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("list cron jobs: %w", err)
	}
	defer rows.Close()

	jobs := make([]domain.CronJob, 0, limit)
	for rows.Next() {
		job, err := scanCronJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan cron job: %w", err)
		}
		jobs = append(jobs, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate cron jobs: %w", err)
	}
	return jobs, total, nil
}

func (r *CronJobRepository) SetEnabled(ctx context.Context, name domain.JobName, enabled bool) error {
	res, err := r.store.db.ExecContext(ctx, `
		UPDATE cron_jobs SET is_enabled = $2, updated_at = NOW() WHERE name = $1
	`, string(name), enabled)
	if err != nil {
		return fmt.Errorf("update cron job %s: %w", name, err)
	}
	return requireAffected(res, name)
}

func (r *CronJobRepository) SetLastExecuted(ctx context.Context, name domain.JobName, at time.Time) error {
	res, err := r.store.db.ExecContext(ctx, `
		UPDATE cron_jobs SET last_executed = $2, updated_at = NOW() WHERE name = $1
	`, string(name), at.UTC())
	if err != nil {
		return fmt.Errorf("update cron job %s: %w", name, err)
	}
	return requireAffected(res, name)
}

func requireAffected(res sql.Result, name domain.JobName) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		return domain.ErrJobNotFound
	}
	return nil
}

func scanCronJob(row rowScanner) (domain.CronJob, error) {
	var (
		job          domain.CronJob
		name         string
		lastExecuted sql.NullTime
	)
	if err := row.Scan(&name, &job.Enabled, &lastExecuted, &job.CreatedAt, &job.UpdatedAt); err != nil {
		return domain.CronJob{}, err
	}
	job.Name = domain.JobName(name)
	if lastExecuted.Valid {
		at := lastExecuted.Time.UTC()
		job.LastExecuted = &at
	}
	return job, nil
}

var _ domain.CronJobRepository = (*CronJobRepository)(nil)
