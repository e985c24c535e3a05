package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"
	"github.com/google/uuid"

	"github.com/supplyline/go-sellers-cache/internal/sellers/domain"
)

const (
	TopicDocumentRefreshed = "sellers.document.refreshed"
	TopicDocumentFailed    = "sellers.document.failed"
)

// KafkaPublisher announces refresh outcomes so the surrounding approval
// workflow can react to documents appearing, changing, or breaking.
type KafkaPublisher struct {
	producer sarama.SyncProducer
}

func NewKafkaPublisher(brokers []string) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create producer: %w", err)
	}

	return &KafkaPublisher{producer: producer}, nil
}

func (p *KafkaPublisher) PublishDocumentRefreshed(ctx context.Context,
	record *domain.CacheRecord, sellerCount int) error {

	event := map[string]interface{}{
		"event_id":   uuid.NewString(),
		"event_type": "document_refreshed",
		"timestamp":  record.UpdatedAt,
		"data": map[string]interface{}{
			"domain":       record.Domain,
			"status":       record.Status,
			"status_code":  record.StatusCode,
			"seller_count": sellerCount,
			"updated_at":   record.UpdatedAt,
		},
	}

	return p.publish(TopicDocumentRefreshed, record.Domain, event)
}

func (p *KafkaPublisher) PublishDocumentFailed(ctx context.Context,
	record *domain.CacheRecord) error {

	event := map[string]interface{}{
		"event_id":   uuid.NewString(),
		"event_type": "document_failed",
		"timestamp":  record.UpdatedAt,
		"data": map[string]interface{}{
			"domain":      record.Domain,
			"status":      record.Status,
			"status_code": record.StatusCode,
			"error_code":  record.ErrorCode(),
			"error":       record.ErrorMessage,
			"updated_at":  record.UpdatedAt,
		},
	}

	return p.publish(TopicDocumentFailed, record.Domain, event)
}

func (p *KafkaPublisher) publish(topic, key string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}

	_, _, err = p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}

	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NoopPublisher stands in when no brokers are configured.
type NoopPublisher struct{}

func NewNoopPublisher() *NoopPublisher {
	return &NoopPublisher{}
}

func (p *NoopPublisher) PublishDocumentRefreshed(ctx context.Context,
	record *domain.CacheRecord, sellerCount int) error {
	return nil
}

func (p *NoopPublisher) PublishDocumentFailed(ctx context.Context,
	record *domain.CacheRecord) error {
	return nil
}

func (p *NoopPublisher) Close() error {
	return nil
}
