package events

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

const (
	defaultBuffer         = 256
	defaultWorkers        = 1
	defaultPublishTimeout = 3 * time.Second

	resultPublished = "published"
	resultFailed    = "failed"
	resultDropped   = "dropped"
)

type DispatcherOptions struct {
	Buffer         int
	Workers        int
	PublishTimeout time.Duration

	Log      *zap.Logger
	Registry prometheus.Registerer
}

// Dispatcher hands events to a Publisher on background workers. Dispatch
// never blocks: when the buffer is full or the dispatcher is closed the
// event is dropped and counted.
type Dispatcher struct {
	pub     Publisher
	timeout time.Duration
	log     *zap.Logger
	results *prometheus.CounterVec

	mu     sync.RWMutex
	closed bool
	queue  chan StockChangeEvent

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewDispatcher(pub Publisher, opts DispatcherOptions) *Dispatcher {
	if opts.Buffer <= 0 {
		opts.Buffer = defaultBuffer
	}
	if opts.Workers <= 0 {
		opts.Workers = defaultWorkers
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = defaultPublishTimeout
	}
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	d := &Dispatcher{
		pub:     pub,
		timeout: opts.PublishTimeout,
		log:     opts.Log,
		queue:   make(chan StockChangeEvent, opts.Buffer),
		ctx:     ctx,
		cancel:  cancel,
	}

	if opts.Registry != nil {
		d.results = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_events_total",
				Help: "Stock change events by delivery result",
			},
			[]string{"result"},
		)
		opts.Registry.MustRegister(d.results)
	}

	d.wg.Add(opts.Workers)
	for i := 0; i < opts.Workers; i++ {
		go d.worker()
	}
	return d
}

// Dispatch queues ev for publishing and reports whether it was accepted.
func (d *Dispatcher) Dispatch(ev StockChangeEvent) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		d.drop(ev, "dispatcher closed")
		return false
	}

	select {
	case d.queue <- ev:
		return true
	default:
		d.drop(ev, "buffer full")
		return false
	}
}

// Close stops intake and waits for queued events to be published. When ctx
// expires first, the remaining publishes are cancelled and ctx's error is
// returned without waiting for the workers.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if d.closed {
		d.mu.Unlock()
		return nil
	}
	d.closed = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.cancel()
		return nil
	case <-ctx.Done():
		d.cancel()
		return ctx.Err()
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for ev := range d.queue {
		d.publish(ev)
	}
}

func (d *Dispatcher) publish(ev StockChangeEvent) {
	ctx, cancel := context.WithTimeout(d.ctx, d.timeout)
	defer cancel()

	start := time.Now()
	if err := d.safePublish(ctx, ev); err != nil {
		d.count(resultFailed)
		d.log.Warn("stock change event not delivered",
			zap.Error(err),
			zap.String("product_id", ev.ProductID),
			zap.Int("previous_quantity", ev.PreviousQuantity),
			zap.Int("new_quantity", ev.NewQuantity),
		)
		return
	}

	d.count(resultPublished)
	d.log.Debug("stock change event published",
		zap.String("product_id", ev.ProductID),
		zap.Duration("took", time.Since(start)),
	)
}

func (d *Dispatcher) safePublish(ctx context.Context, ev StockChangeEvent) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("publisher panic: %v", rec)
		}
	}()
	return d.pub.Publish(ctx, ev)
}

func (d *Dispatcher) drop(ev StockChangeEvent, reason string) {
	d.count(resultDropped)
	d.log.Warn("stock change event dropped",
		zap.String("reason", reason),
		zap.String("product_id", ev.ProductID),
		zap.Int("new_quantity", ev.NewQuantity),
	)
}

func (d *Dispatcher) count(result string) {
	if d.results != nil {
		d.results.WithLabelValues(result).Inc()
	}
}
