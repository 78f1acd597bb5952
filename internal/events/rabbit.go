package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

const rabbitDialTimeout = 5 * time.Second

// RabbitPublisher sends events to a durable queue through the default
// exchange.
type RabbitPublisher struct {
	conn  *amqp.Connection
	queue string

	mu sync.Mutex
	ch *amqp.Channel
}

func NewRabbitPublisher(ctx context.Context, url, queue string, log *zap.Logger) (*RabbitPublisher, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if log == nil {
		log = zap.NewNop()
	}

	// DefaultDial puts a deadline on the AMQP handshake as well.
	conn, err := amqp.DialConfig(url, amqp.Config{
		Dial:      amqp.DefaultDial(rabbitDialTimeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	go watchClose(conn.NotifyClose(make(chan *amqp.Error, 1)), queue, log)

	return &RabbitPublisher{conn: conn, ch: ch, queue: queue}, nil
}

func (p *RabbitPublisher) Publish(ctx context.Context, ev StockChangeEvent) error {
	msg, err := amqpPublishing(ev, uuid.NewString(), time.Now())
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("publish to %s: %w", p.queue, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	_ = p.ch.Close()
	return p.conn.Close()
}

// watchClose logs when the broker drops the connection. Publishes fail from
// then on until the process reconnects on restart.
func watchClose(closed <-chan *amqp.Error, queue string, log *zap.Logger) {
	err, ok := <-closed
	if !ok || err == nil {
		return
	}
	log.Warn("rabbitmq connection closed, stock change events will be dropped",
		zap.String("queue", queue),
		zap.Int("code", err.Code),
		zap.String("reason", err.Reason),
	)
}

func amqpPublishing(ev StockChangeEvent, eventID string, now time.Time) (amqp.Publishing, error) {
	body, err := json.Marshal(ev)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal %s: %w", EventTypeStockChanged, err)
	}

	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    eventID,
		Type:         EventTypeStockChanged,
		Timestamp:    now.UTC(),
		Body:         body,
	}, nil
}
