package domain

import "time"

// SyncResult: итог одного цикла синхронизации.
type SyncResult struct {
	RunID   string  `json:"runId"`
	Job     JobName `json:"job,omitempty"`
	Horizon int     `json:"horizon"`
	Forced  bool    `json:"forced"`
	// Skipped: цикл не выполнялся, потому что задача выключена.
	Skipped bool `json:"skipped"`

	Products      int `json:"products"`
	DatesPlanned  int `json:"datesPlanned"`
	FetchFailures int `json:"fetchFailures"`
	EmptyFetches  int `json:"emptyFetches"`
	SlotsUpserted int `json:"slotsUpserted"`
	SlotFailures  int `json:"slotFailures"`

	StartedAt  time.Time `json:"startedAt"`
	FinishedAt time.Time `json:"finishedAt"`
}

// Duration возвращает длительность цикла.
func (r SyncResult) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Partial сообщает, были ли в цикле изолированные сбои отдельных единиц работы.
func (r SyncResult) Partial() bool {
	return r.FetchFailures > 0 || r.SlotFailures > 0
}
