package handler

import (
	"encoding/json"
	"fmt"

	"github.com/Astemirdum/biblio-service/pkg/kafka"
	"github.com/IBM/sarama"
	"go.uber.org/zap"
)

// Consumer feeds lifecycle events from Kafka into the stats store.
type Consumer struct {
	stats StatsService
	log   *zap.Logger
}

func NewConsumer(stats StatsService, log *zap.Logger) *Consumer {
	return &Consumer{
		stats: stats,
		log:   log.Named("consumer"),
	}
}

func (consumer *Consumer) Setup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (consumer *Consumer) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case message, ok := <-claim.Messages():
			if !ok {
				consumer.log.Warn("message channel was closed")
				return nil
			}
			var event kafka.LoanEvent
			if err := json.Unmarshal(message.Value, &event); err != nil {
				// a malformed message never becomes valid, skip it
				consumer.log.Error("unmarshal event", zap.Error(err))
				session.MarkMessage(message, "")
				continue
			}

			// an unsaved event stays unmarked so the next session redelivers it
			if err := consumer.stats.SaveEvent(session.Context(), event); err != nil {
				consumer.log.Error("stats.SaveEvent", zap.Error(err))
				return fmt.Errorf("stats.SaveEvent %w", err)
			}

			consumer.log.Debug("message claimed",
				zap.String("type", string(event.EventType)),
				zap.Time("timestamp", message.Timestamp),
				zap.String("topic", message.Topic))
			session.MarkMessage(message, "")
		case <-session.Context().Done():
			return nil
		}
	}
}
