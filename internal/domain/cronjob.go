package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobName: имя именованной задачи синхронизации.
type JobName string

const (
	JobSyncNext30Days JobName = "syncNext30Days"
	JobSyncNext7Days  JobName = "syncNext7Days"
	JobSyncToday      JobName = "syncToday"
)

const (
	MinHorizonDays = 1
	MaxHorizonDays = 60
)

var jobHorizons = map[JobName]int{
	JobSyncNext30Days: 30,
	JobSyncNext7Days:  7,
	JobSyncToday:      1,
}

// KnownJobs возвращает все именованные задачи в фиксированном порядке.
func KnownJobs() []JobName {
	return []JobName{JobSyncNext30Days, JobSyncNext7Days, JobSyncToday}
}

// Horizon возвращает горизонт (в днях), привязанный к задаче.
func (n JobName) Horizon() (int, bool) {
	h, ok := jobHorizons[n]
	return h, ok
}

// Known сообщает, является ли имя одной из трёх задач.
func (n JobName) Known() bool {
	_, ok := jobHorizons[n]
	return ok
}

// ParseJobName принимает только точные имена известных задач.
func ParseJobName(s string) (JobName, error) {
	name := JobName(strings.TrimSpace(s))
	if !name.Known() {
		return "", fmt.Errorf("%w: %q", ErrInvalidJobName, s)
	}
	return name, nil
}

// ValidateHorizon проверяет, что горизонт лежит в [MinHorizonDays, MaxHorizonDays].
func ValidateHorizon(days int) error {
	if days < MinHorizonDays || days > MaxHorizonDays {
		return fmt.Errorf("%w: got %d", ErrInvalidHorizon, days)
	}
	return nil
}

// CronJob хранит флаг включения задачи и время её последнего запуска.
type CronJob struct {
	Name         JobName    `json:"name"`
	Enabled      bool       `json:"isEnabled"`
	LastExecuted *time.Time `json:"lastExecuted"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// Page: страница результатов с общим количеством записей.
type Page[T any] struct {
	Data        []T `json:"data"`
	TotalLength int `json:"totalLength"`
	Page        int `json:"page"`
	Limit       int `json:"limit"`
}

const (
	DefaultPage  = 1
	DefaultLimit = 10
)

// PageRequest: параметры постраничной выборки.
type PageRequest struct {
	Page  int
	Limit int
}

// Normalize подставляет значения по умолчанию для неположительных параметров.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.Limit < 1 {
		p.Limit = DefaultLimit
	}
	return p
}

// Offset возвращает смещение первой записи страницы.
func (p PageRequest) Offset() int {
	n := p.Normalize()
	return (n.Page - 1) * n.Limit
}
