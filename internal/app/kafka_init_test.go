package app

import (
	"reflect"
	"testing"

	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/inventory-sync/internal/service/syncer"
)

func TestInitKafkaProducer_EmptyBrokers(t *testing.T) {
	logger := log.WithField("test", "kafka")

	for _, brokers := range []string{"", " , ,"} {
		producer, err := initKafkaProducer(brokers, logger)
		if err != nil {
			t.Errorf("expected no error for brokers %q, got %v", brokers, err)
		}
		if producer != nil {
			t.Errorf("expected nil producer for brokers %q", brokers)
		}
	}
}

func TestSplitBrokers(t *testing.T) {
	got := splitBrokers("broker1:9092, broker2:9092,,broker3:9092 ")
	want := []string{"broker1:9092", "broker2:9092", "broker3:9092"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestNewSyncPublisher_WithoutProducerIsNoop(t *testing.T) {
	if _, ok := newSyncPublisher(nil, "inventory.sync.events").(syncer.NoopPublisher); !ok {
		t.Fatal("expected no-op publisher when kafka is not configured")
	}
}

func TestCloseKafka_NilProducer(_ *testing.T) {
	// Не должно паниковать
	closeKafka(nil, log.WithField("test", "kafka"))
}
