package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// KafkaPublisher writes events keyed by product id, so all changes of one
// product land on the same partition in order.
type KafkaPublisher struct {
	w *kafka.Writer
}

func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, writeTimeout time.Duration) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers configured")
	}

	// kafka.Writer connects lazily; dial once so an unreachable broker shows
	// up at startup instead of on the first stock change.
	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		return nil, fmt.Errorf("dial kafka %s: %w", brokers[0], err)
	}
	_ = conn.Close()

	return &KafkaPublisher{
		w: &kafka.Writer{
			Addr:                   kafka.TCP(brokers...),
			Topic:                  topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
			BatchSize:              1,
			BatchTimeout:           10 * time.Millisecond,
			MaxAttempts:            1,
			WriteTimeout:           writeTimeout,
		},
	}, nil
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev StockChangeEvent) error {
	msg, err := kafkaMessage(ev, uuid.NewString())
	if err != nil {
		return err
	}
	if err := p.w.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write to %s: %w", p.w.Topic, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.w.Close()
}

func kafkaMessage(ev StockChangeEvent, eventID string) (kafka.Message, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("marshal %s: %w", EventTypeStockChanged, err)
	}

	return kafka.Message{
		Key:   []byte(ev.ProductID),
		Value: body,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(EventTypeStockChanged)},
			{Key: "event-id", Value: []byte(eventID)},
		},
	}, nil
}
