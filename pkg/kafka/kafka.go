package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Config struct {
	Addrs []string `envconfig:"KAFKA_ADDRS"`
}

func (c Config) Enabled() bool {
	return len(c.Addrs) > 0
}

const (
	LoanEventsTopic    = "biblio.loan-events"
	StatsConsumerGroup = "biblio-stats"
)

type EventType string

const (
	EventRequestSubmitted EventType = "REQUEST_SUBMITTED"
	EventRequestCancelled EventType = "REQUEST_CANCELLED"
	EventRequestApproved  EventType = "REQUEST_APPROVED"
	EventRequestRejected  EventType = "REQUEST_REJECTED"
	EventLoanReturned     EventType = "LOAN_RETURNED"
)

// LoanEvent is published after a lifecycle transition commits.
type LoanEvent struct {
	Timestamp time.Time `json:"timestamp"`
	EventType EventType `json:"eventType"`
	SchoolID  string    `json:"schoolId"`
	UserID    string    `json:"userId"`
	BookID    string    `json:"bookId"`
	RequestID string    `json:"requestId,omitempty"`
	LoanID    string    `json:"loanId,omitempty"`
	ActorID   string    `json:"actorId"`
}

func NewProducer(cfg Config) (sarama.SyncProducer, error) {
	defaultCfg := sarama.NewConfig()

	defaultCfg.Producer.RequiredAcks = sarama.WaitForAll
	defaultCfg.Producer.Return.Successes = true

	return sarama.NewSyncProducer(cfg.Addrs, defaultCfg)
}

func NewConsumer(cfg Config, group string) (sarama.ConsumerGroup, error) {
	defaultCfg := sarama.NewConfig()
	defaultCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	defaultCfg.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}

	return sarama.NewConsumerGroup(cfg.Addrs, group, defaultCfg)
}

// Consume keeps the group session alive until ctx is done, rejoining after rebalances.
func Consume(ctx context.Context, group sarama.ConsumerGroup, handler sarama.ConsumerGroupHandler, log *zap.Logger, topics ...string) {
	for {
		if err := group.Consume(ctx, topics, handler); err != nil {
			if errors.Is(err, sarama.ErrClosedConsumerGroup) {
				return
			}
			log.Error("kafka.Consume", zap.Error(err))
		}
		if ctx.Err() != nil {
			return
		}
	}
}

// Publisher sends lifecycle events to a topic.
type Publisher struct {
	producer sarama.SyncProducer
	topic    string
}

func NewPublisher(producer sarama.SyncProducer, topic string) *Publisher {
	return &Publisher{producer: producer, topic: topic}
}

func (p *Publisher) Publish(_ context.Context, event LoanEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.SchoolID),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err = p.producer.SendMessage(msg); err != nil {
		return errors.Wrap(err, "producer.SendMessage")
	}
	return nil
}
