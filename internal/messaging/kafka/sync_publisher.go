package kafka

import (
	"context"

	"github.com/IBM/sarama"

	"github.com/vladislavdragonenkov/inventory-sync/internal/domain"
)

// SyncPublisher публикует итоги циклов синхронизации, ключ сообщения: run id.
type SyncPublisher struct {
	producer *Producer
	topic    string
}

// NewSyncPublisher создаёт publisher; пустой topic заменяется на TopicSyncEvents.
func NewSyncPublisher(producer *Producer, topic string) *SyncPublisher {
	if topic == "" {
		topic = TopicSyncEvents
	}
	return &SyncPublisher{producer: producer, topic: topic}
}

// PublishSyncResult отправляет sync.completed, sync.skipped или sync.failed.
func (p *SyncPublisher) PublishSyncResult(ctx context.Context, result domain.SyncResult, cycleErr error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event := NewSyncEvent(result, cycleErr)
	return p.producer.PublishEvent(p.topic, result.RunID, event, sarama.RecordHeader{
		Key:   []byte(HeaderEventType),
		Value: []byte(event.EventType),
	})
}

var _ domain.SyncEventPublisher = (*SyncPublisher)(nil)
