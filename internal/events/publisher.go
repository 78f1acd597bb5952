// Package events publishes stock-change notifications to a message broker.
//
// Delivery is best effort: one attempt per event, no retries, and failures
// are logged rather than returned to the code that changed the stock.
package events

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"GlobalBooks/internal/config"
)

var ErrUnavailable = errors.New("event publisher unavailable")

type Publisher interface {
	Publish(ctx context.Context, ev StockChangeEvent) error
	Close() error
}

// Init connects the publisher selected by cfg.Broker. It is meant to run
// once at startup. On failure the returned Publisher is an Unavailable one,
// so callers can keep serving with event delivery degraded.
func Init(ctx context.Context, cfg config.Events, log *zap.Logger) (Publisher, error) {
	var (
		pub Publisher
		err error
	)

	switch cfg.Broker {
	case config.BrokerRabbitMQ:
		pub, err = NewRabbitPublisher(ctx, cfg.RabbitURL, cfg.RabbitQueue, log)
	case config.BrokerKafka:
		pub, err = NewKafkaPublisher(ctx, cfg.KafkaBrokers, cfg.KafkaTopic, cfg.PublishTimeout)
	case config.BrokerNone:
		log.Info("event broker disabled")
		return Unavailable{Reason: errors.New("broker disabled by configuration")}, nil
	default:
		err = fmt.Errorf("unknown broker %q", cfg.Broker)
	}

	if err != nil {
		return Unavailable{Reason: err}, fmt.Errorf("init %s publisher: %w", cfg.Broker, err)
	}

	log.Info("event publisher ready", zap.String("broker", cfg.Broker))
	return pub, nil
}

// Unavailable is the publisher used when the broker could not be reached at
// startup. Every Publish fails with ErrUnavailable.
type Unavailable struct {
	Reason error
}

func (u Unavailable) Publish(context.Context, StockChangeEvent) error {
	if u.Reason == nil {
		return ErrUnavailable
	}
	return fmt.Errorf("%w: %v", ErrUnavailable, u.Reason)
}

func (Unavailable) Close() error { return nil }
