package catalog

import (
	"context"
	"errors"
)

var (
	ErrNotFound        = errors.New("product not found")
	ErrInvalidQuantity = errors.New("quantity must not be negative")
)

// Store holds the products. SetQuantity must be atomic per product and must
// not serialize updates of different products.
type Store interface {
	Get(ctx context.Context, id string) (Product, bool, error)
	List(ctx context.Context) ([]Product, error)
	SetQuantity(ctx context.Context, id string, qty int) (StockChange, error)
	Ping(ctx context.Context) error
}
