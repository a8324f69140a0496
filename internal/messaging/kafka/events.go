package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// EventType: тип события жизненного цикла синхронизации.
type EventType string

const (
	EventTypeSyncCompleted EventType = "sync.completed"
	EventTypeSyncSkipped   EventType = "sync.skipped"
	EventTypeSyncFailed    EventType = "sync.failed"
)

// TopicSyncEvents: топик по умолчанию для событий синхронизации.
const TopicSyncEvents = "inventory.sync.events"

// HeaderEventType дублирует тип события в заголовке сообщения для фильтрации без разбора тела.
const HeaderEventType = "x-event-type"

// SyncEvent: итог цикла синхронизации в виде сообщения Kafka.
type SyncEvent struct {
	EventType     EventType `json:"event_type"`
	RunID         string    `json:"run_id"`
	Job           string    `json:"job,omitempty"`
	Horizon       int       `json:"horizon"`
	Forced        bool      `json:"forced"`
	Products      int       `json:"products"`
	DatesPlanned  int       `json:"dates_planned"`
	FetchFailures int       `json:"fetch_failures"`
	EmptyFetches  int       `json:"empty_fetches"`
	SlotsUpserted int       `json:"slots_upserted"`
	SlotFailures  int       `json:"slot_failures"`
	Error         string    `json:"error,omitempty"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Timestamp     time.Time `json:"timestamp"`
}

// NewSyncEvent строит событие по итогу цикла.
func NewSyncEvent(result domain.SyncResult, cycleErr error) *SyncEvent {
	event := &SyncEvent{
		EventType:     EventTypeSyncCompleted,
		RunID:         result.RunID,
		Job:           string(result.Job),
		Horizon:       result.Horizon,
		Forced:        result.Forced,
		Products:      result.Products,
		DatesPlanned:  result.DatesPlanned,
		FetchFailures: result.FetchFailures,
		EmptyFetches:  result.EmptyFetches,
		SlotsUpserted: result.SlotsUpserted,
		SlotFailures:  result.SlotFailures,
		StartedAt:     result.StartedAt,
		FinishedAt:    result.FinishedAt,
		Timestamp:     time.Now().UTC(),
	}
	switch {
	case cycleErr != nil:
		event.EventType = EventTypeSyncFailed
		event.Error = cycleErr.Error()
	case result.Skipped:
		event.EventType = EventTypeSyncSkipped
	}
	return event
}

// ParseSyncEvent разбирает сообщение из топика событий синхронизации.
func ParseSyncEvent(message *sarama.ConsumerMessage) (*SyncEvent, error) {
	var event SyncEvent
	if err := json.Unmarshal(message.Value, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal sync event: %w", err)
	}
	return &event, nil
}
