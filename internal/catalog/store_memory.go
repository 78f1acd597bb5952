package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

type memEntry struct {
	mu sync.Mutex
	p  Product
}

// MemStore keeps one mutex per product. The map lock is only taken for
// writing while seeding, so quantity updates of different products never
// wait on each other.
type MemStore struct {
	mu    sync.RWMutex
	order []string
	m     map[string]*memEntry
}

func NewMemStore(seed ...Product) (*MemStore, error) {
	s := &MemStore{m: make(map[string]*memEntry, len(seed))}
	for _, p := range seed {
		if err := s.Add(p); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Add inserts a new product at the end of the listing order.
func (s *MemStore) Add(p Product) error {
	switch {
	case p.ID == "":
		return errors.New("product id is required")
	case p.Quantity < 0:
		return fmt.Errorf("product %s: %w", p.ID, ErrInvalidQuantity)
	case p.Price.IsNegative():
		return fmt.Errorf("product %s: price must not be negative", p.ID)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.m[p.ID]; ok {
		return fmt.Errorf("product %s already exists", p.ID)
	}
	s.m[p.ID] = &memEntry{p: p}
	s.order = append(s.order, p.ID)
	return nil
}

func (s *MemStore) Ping(context.Context) error { return nil }

func (s *MemStore) Get(_ context.Context, id string) (Product, bool, error) {
	e, ok := s.entry(id)
	if !ok {
		return Product{}, false, nil
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.p, true, nil
}

func (s *MemStore) List(context.Context) ([]Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Product, 0, len(s.order))
	for _, id := range s.order {
		e := s.m[id]
		e.mu.Lock()
		out = append(out, e.p)
		e.mu.Unlock()
	}
	return out, nil
}

func (s *MemStore) SetQuantity(_ context.Context, id string, qty int) (StockChange, error) {
	if qty < 0 {
		return StockChange{}, ErrInvalidQuantity
	}

	e, ok := s.entry(id)
	if !ok {
		return StockChange{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	prev := e.p.Quantity
	e.p.Quantity = qty
	return StockChange{Previous: prev, Product: e.p}, nil
}

func (s *MemStore) entry(id string) (*memEntry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.m[id]
	return e, ok
}
