package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const (
	pingTimeout  = 1 * time.Second
	queryTimeout = 3 * time.Second

	productColumns = `id, name, description, price::text, quantity`
)

// DBPool is the subset of *pgxpool.Pool the store uses.
type DBPool interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

type PostgresStore struct {
	pool DBPool
}

func NewPostgresStore(pool DBPool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return withTimeout(ctx, pingTimeout, s.pool.Ping)
}

func (s *PostgresStore) List(ctx context.Context) ([]Product, error) {
	var out []Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		rows, err := s.pool.Query(ctx, `
			SELECT `+productColumns+`
			FROM products
			ORDER BY position ASC, id ASC
		`)
		if err != nil {
			return err
		}
		defer rows.Close()

		out = make([]Product, 0, 16)
		for rows.Next() {
			p, err := scanProduct(rows)
			if err != nil {
				return err
			}
			out = append(out, p)
		}
		return rows.Err()
	})

	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (Product, bool, error) {
	var p Product

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		var err error
		p, err = scanProduct(s.pool.QueryRow(ctx, `
			SELECT `+productColumns+`
			FROM products
			WHERE id = $1
		`, id))
		return err
	})

	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, false, nil
	}
	if err != nil {
		return Product{}, false, fmt.Errorf("get product %s: %w", id, err)
	}
	return p, true, nil
}

// SetQuantity locks the product row for the duration of a short transaction,
// so concurrent writers of the same product queue up while other products
// stay untouched.
func (s *PostgresStore) SetQuantity(ctx context.Context, id string, qty int) (StockChange, error) {
	if qty < 0 {
		return StockChange{}, ErrInvalidQuantity
	}

	var change StockChange

	err := withTimeout(ctx, queryTimeout, func(ctx context.Context) error {
		tx, err := s.pool.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin: %w", err)
		}
		defer func() { _ = tx.Rollback(ctx) }()

		p, err := scanProduct(tx.QueryRow(ctx, `
			SELECT `+productColumns+`
			FROM products
			WHERE id = $1
			FOR UPDATE
		`, id))
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return fmt.Errorf("lock product: %w", err)
		}

		if _, err := tx.Exec(ctx, `
			UPDATE products
			SET quantity = $2, updated_at = now()
			WHERE id = $1
		`, id, qty); err != nil {
			return fmt.Errorf("update quantity: %w", err)
		}

		if err := tx.Commit(ctx); err != nil {
			return fmt.Errorf("commit: %w", err)
		}

		change.Previous = p.Quantity
		p.Quantity = qty
		change.Product = p
		return nil
	})

	if err != nil {
		return StockChange{}, err
	}
	return change, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (Product, error) {
	var (
		p     Product
		price string
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &price, &p.Quantity); err != nil {
		return Product{}, err
	}

	d, err := decimal.NewFromString(price)
	if err != nil {
		return Product{}, fmt.Errorf("parse price of %s: %w", p.ID, err)
	}
	p.Price = d
	return p, nil
}

func withTimeout(parent context.Context, d time.Duration, fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(parent, d)
	defer cancel()
	return fn(ctx)
}
