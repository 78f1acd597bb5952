package events

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestWatchClose_LogsBrokerDisconnect(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)

	closed := make(chan *amqp.Error, 1)
	closed <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "CONNECTION_FORCED - broker forced connection closure"}

	watchClose(closed, "catalog_stock_updates", zap.New(core))

	entries := logs.All()
	require.Len(t, entries, 1)
	fields := entries[0].ContextMap()
	assert.Equal(t, "catalog_stock_updates", fields["queue"])
	assert.Equal(t, int64(amqp.ConnectionForced), fields["code"])
}

func TestWatchClose_QuietOnGracefulClose(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)

	closed := make(chan *amqp.Error)
	close(closed)

	watchClose(closed, "catalog_stock_updates", zap.New(core))

	assert.Zero(t, logs.Len())
}
