package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"GlobalBooks/internal/events"
)

// EventSink receives stock change events. Dispatch must not block.
type EventSink interface {
	Dispatch(ev events.StockChangeEvent) bool
}

type Service struct {
	store   Store
	sink    EventSink
	log     *zap.Logger
	now     func() time.Time
	updates *prometheus.CounterVec
}

type Option func(*Service)

// WithRegistry counts stock update outcomes in reg.
func WithRegistry(reg prometheus.Registerer) Option {
	return func(s *Service) {
		s.updates = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "catalog_stock_updates_total",
				Help: "Stock update requests by outcome",
			},
			[]string{"outcome"},
		)
		reg.MustRegister(s.updates)
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, sink EventSink, log *zap.Logger, opts ...Option) (*Service, error) {
	if store == nil {
		return nil, errors.New("catalog: product store is required")
	}
	if log == nil {
		log = zap.NewNop()
	}

	s := &Service{
		store: store,
		sink:  sink,
		log:   log,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) GetProduct(ctx context.Context, id string) (Product, error) {
	p, ok, err := s.store.Get(ctx, id)
	if err != nil {
		return Product{}, err
	}
	if !ok {
		return Product{}, ErrNotFound
	}
	return p, nil
}

func (s *Service) GetAllProducts(ctx context.Context) ([]Product, error) {
	products, err := s.store.List(ctx)
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []Product{}
	}
	return products, nil
}

// UpdateProductStock overwrites the quantity of one product and announces
// the change. The result never depends on whether the announcement reaches
// the broker.
func (s *Service) UpdateProductStock(ctx context.Context, id string, qty int) StockUpdateResult {
	res := s.updateStock(ctx, id, qty)
	if s.updates != nil {
		s.updates.WithLabelValues(res.Outcome.String()).Inc()
	}
	return res
}

func (s *Service) updateStock(ctx context.Context, id string, qty int) StockUpdateResult {
	if _, ok, err := s.store.Get(ctx, id); err != nil {
		return s.internalError(id, "lookup", err)
	} else if !ok {
		return notFound(id)
	}

	if qty < 0 {
		return invalidQuantity(id, qty)
	}

	change, err := s.store.SetQuantity(ctx, id, qty)
	switch {
	case errors.Is(err, ErrNotFound):
		return notFound(id)
	case errors.Is(err, ErrInvalidQuantity):
		return invalidQuantity(id, qty)
	case err != nil:
		return s.internalError(id, "set quantity", err)
	}

	s.emit(events.NewStockChangeEvent(id, change.Previous, change.Product.Quantity, s.now()))

	p := change.Product
	return StockUpdateResult{
		Outcome:   OutcomeSuccess,
		Message:   fmt.Sprintf("Stock updated successfully for product %s. New quantity: %d", id, p.Quantity),
		ProductID: id,
		Product:   &p,
	}
}

func (s *Service) emit(ev events.StockChangeEvent) {
	if s.sink == nil {
		return
	}
	defer func() {
		if rec := recover(); rec != nil {
			s.log.Error("event sink panicked", zap.Any("panic", rec), zap.String("product_id", ev.ProductID))
		}
	}()

	if !s.sink.Dispatch(ev) {
		s.log.Warn("stock change event not queued", zap.String("product_id", ev.ProductID))
	}
}

func (s *Service) internalError(id, op string, err error) StockUpdateResult {
	s.log.Error("stock update failed", zap.String("op", op), zap.String("product_id", id), zap.Error(err))
	return StockUpdateResult{
		Outcome:   OutcomeInternalError,
		Message:   "Error updating stock",
		ProductID: id,
	}
}

func notFound(id string) StockUpdateResult {
	return StockUpdateResult{
		Outcome:   OutcomeNotFound,
		Message:   "Product not found: " + id,
		ProductID: id,
	}
}

func invalidQuantity(id string, qty int) StockUpdateResult {
	return StockUpdateResult{
		Outcome:   OutcomeInvalidQuantity,
		Message:   fmt.Sprintf("Quantity cannot be negative: %d", qty),
		ProductID: id,
	}
}
