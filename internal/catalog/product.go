package catalog

import "github.com/shopspring/decimal"

func init() {
	// Prices go over the wire as JSON numbers, not strings.
	decimal.MarshalJSONWithoutQuotes = true
}

type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Quantity    int             `json:"quantity"`
}

// StockChange is the outcome of an atomic quantity overwrite.
type StockChange struct {
	Previous int
	Product  Product
}

// Seed is the catalog loaded into the in-memory store at startup. The SQL
// migrations insert the same rows.
func Seed() []Product {
	return []Product{
		{ID: "p1", Name: "Clean Architecture", Description: "A craftsman's guide to software structure and design", Price: decimal.RequireFromString("32.50"), Quantity: 10},
		{ID: "p2", Name: "Designing Data-Intensive Applications", Description: "The big ideas behind reliable, scalable systems", Price: decimal.RequireFromString("45.99"), Quantity: 25},
		{ID: "p3", Name: "The Go Programming Language", Description: "Donovan and Kernighan", Price: decimal.RequireFromString("38.00"), Quantity: 7},
		{ID: "p4", Name: "Enterprise Integration Patterns", Description: "Designing, building and deploying messaging solutions", Price: decimal.RequireFromString("54.25"), Quantity: 0},
	}
}
