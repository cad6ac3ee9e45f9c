package producer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Avdeenko/Classifieds-backend/internal/domain"
	"github.com/Avdeenko/Classifieds-backend/pkg/logger"
	"github.com/IBM/sarama"
)

// Топики событий подписок
const (
	TopicSubscriptionCreated  = "subscription.created"
	TopicSubscriptionCanceled = "subscription.canceled"
)

// SubscriptionEvent представляет событие подписки для Kafka
type SubscriptionEvent struct {
	SubscriptionID string    `json:"subscription_id"`
	UserID         string    `json:"user_id"`
	PlanID         string    `json:"plan_id,omitempty"`
	Provider       string    `json:"provider"`
	ExternalID     string    `json:"external_id"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

// SubscriptionProducer интерфейс для отправки событий подписок
type SubscriptionProducer interface {
	PublishSubscriptionCreated(ctx context.Context, sub *domain.Subscription) error
	PublishSubscriptionCanceled(ctx context.Context, sub *domain.Subscription) error
	Close() error
}

type kafkaSubscriptionProducer struct {
	producer sarama.SyncProducer
	log      *logger.Logger
}

// NewKafkaSubscriptionProducer создает новый продюсер событий подписок
func NewKafkaSubscriptionProducer(producer sarama.SyncProducer, log *logger.Logger) SubscriptionProducer {
	return &kafkaSubscriptionProducer{
		producer: producer,
		log:      log,
	}
}

// PublishSubscriptionCreated публикует событие об активации подписки
func (p *kafkaSubscriptionProducer) PublishSubscriptionCreated(ctx context.Context, sub *domain.Subscription) error {
	return p.publishEvent(ctx, TopicSubscriptionCreated, sub)
}

// PublishSubscriptionCanceled публикует событие об отмене подписки
func (p *kafkaSubscriptionProducer) PublishSubscriptionCanceled(ctx context.Context, sub *domain.Subscription) error {
	return p.publishEvent(ctx, TopicSubscriptionCanceled, sub)
}

// publishEvent публикует событие подписки в Kafka. Ключ сообщения -
// идентификатор пользователя: все события одного пользователя попадают
// в одну партицию и сохраняют порядок.
func (p *kafkaSubscriptionProducer) publishEvent(ctx context.Context, topic string, sub *domain.Subscription) error {
	event := SubscriptionEvent{
		SubscriptionID: sub.ID.String(),
		UserID:         sub.UserID.String(),
		Provider:       sub.Provider,
		ExternalID:     sub.ExternalID,
		Status:         string(sub.Status),
		Timestamp:      time.Now(),
	}
	if sub.PlanID != nil {
		event.PlanID = sub.PlanID.String()
	}

	messageValue, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription event: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: topic,
		Key:   sarama.StringEncoder(sub.UserID.String()),
		Value: sarama.ByteEncoder(messageValue),
		Headers: []sarama.RecordHeader{
			{
				Key:   []byte("event_type"),
				Value: []byte(topic),
			},
		},
		Timestamp: time.Now(),
	}

	partition, offset, err := p.producer.SendMessage(message)
	if err != nil {
		return fmt.Errorf("failed to publish subscription event: %w", err)
	}

	p.log.Infow("Published subscription event",
		"topic", topic,
		"partition", partition,
		"offset", offset,
		"subscriptionID", sub.ID,
	)
	return nil
}

// Close закрывает продюсер
func (p *kafkaSubscriptionProducer) Close() error {
	return p.producer.Close()
}
