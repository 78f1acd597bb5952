package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func newSeededMemStore(t *testing.T) *MemStore {
	t.Helper()
	s, err := NewMemStore(Seed()...)
	if err != nil {
		t.Fatalf("NewMemStore: %v", err)
	}
	return s
}

func TestMemStore_AddValidates(t *testing.T) {
	s, _ := NewMemStore()

	tests := map[string]Product{
		"empty id":       {ID: "", Quantity: 1},
		"negative qty":   {ID: "x", Quantity: -1},
		"negative price": {ID: "y", Price: decimal.NewFromInt(-1)},
	}
	for name, p := range tests {
		t.Run(name, func(t *testing.T) {
			if err := s.Add(p); err == nil {
				t.Fatalf("expected error for %+v", p)
			}
		})
	}

	if err := s.Add(Product{ID: "dup"}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := s.Add(Product{ID: "dup"}); err == nil {
		t.Fatalf("expected duplicate id to be rejected")
	}
}

func TestMemStore_ListKeepsInsertionOrder(t *testing.T) {
	s := newSeededMemStore(t)
	ctx := context.Background()

	first, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}

	want := []string{"p1", "p2", "p3", "p4"}
	if len(first) != len(want) {
		t.Fatalf("len=%d want=%d", len(first), len(want))
	}
	for i, p := range first {
		if p.ID != want[i] {
			t.Fatalf("position %d: id=%s want=%s", i, p.ID, want[i])
		}
	}

	if _, err := s.SetQuantity(ctx, "p3", 99); err != nil {
		t.Fatalf("set: %v", err)
	}
	second, _ := s.List(ctx)
	for i, p := range second {
		if p.ID != want[i] {
			t.Fatalf("order changed after mutation: %v", second)
		}
	}
	if second[2].Quantity != 99 {
		t.Fatalf("quantity not visible in list: %d", second[2].Quantity)
	}
}

func TestMemStore_SetQuantity(t *testing.T) {
	s := newSeededMemStore(t)
	ctx := context.Background()

	change, err := s.SetQuantity(ctx, "p1", 4)
	if err != nil {
		t.Fatalf("set: %v", err)
	}
	if change.Previous != 10 || change.Product.Quantity != 4 {
		t.Fatalf("change=%+v", change)
	}
	if change.Product.Name != "Clean Architecture" {
		t.Fatalf("other fields changed: %+v", change.Product)
	}

	if _, err := s.SetQuantity(ctx, "p1", -3); !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("err=%v want ErrInvalidQuantity", err)
	}
	if _, err := s.SetQuantity(ctx, "missing", 3); !errors.Is(err, ErrNotFound) {
		t.Fatalf("err=%v want ErrNotFound", err)
	}

	p, ok, _ := s.Get(ctx, "p1")
	if !ok || p.Quantity != 4 {
		t.Fatalf("get after failed updates: %+v ok=%v", p, ok)
	}
}

func TestMemStore_ConcurrentSameID(t *testing.T) {
	s := newSeededMemStore(t)
	ctx := context.Background()

	const n = 64
	var wg sync.WaitGroup
	prevs := make(chan int, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(q int) {
			defer wg.Done()
			change, err := s.SetQuantity(ctx, "p2", q)
			if err != nil {
				t.Errorf("set %d: %v", q, err)
				return
			}
			prevs <- change.Previous
		}(100 + i)
	}
	wg.Wait()
	close(prevs)

	p, _, _ := s.Get(ctx, "p2")
	if p.Quantity < 100 || p.Quantity >= 100+n {
		t.Fatalf("final quantity %d is not one of the requested values", p.Quantity)
	}

	// Each write observed a distinct predecessor: the initial 25 plus every
	// requested value except the last one written.
	seen := map[int]bool{}
	for prev := range prevs {
		if seen[prev] {
			t.Fatalf("previous quantity %d observed twice, updates were not serialized", prev)
		}
		seen[prev] = true
	}
	if !seen[25] || seen[p.Quantity] {
		t.Fatalf("unexpected predecessor chain: %v final=%d", seen, p.Quantity)
	}
}

func TestMemStore_DifferentIDsDoNotBlock(t *testing.T) {
	s := newSeededMemStore(t)
	ctx := context.Background()

	held, _ := s.entry("p1")
	held.mu.Lock()
	defer held.mu.Unlock()

	done := make(chan error, 1)
	go func() {
		_, err := s.SetQuantity(ctx, "p2", 1)
		done <- err
	}()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("set p2: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatalf("update of p2 blocked while p1 was locked")
	}
}
