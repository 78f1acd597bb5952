package events

import "time"

const EventTypeStockChanged = "StockChanged"

// StockChangeEvent is emitted after a product's quantity has been overwritten.
type StockChangeEvent struct {
	ProductID        string `json:"productId"`
	PreviousQuantity int    `json:"previousQuantity"`
	NewQuantity      int    `json:"newQuantity"`
	Timestamp        string `json:"timestamp"`
}

func NewStockChangeEvent(productID string, previous, next int, at time.Time) StockChangeEvent {
	return StockChangeEvent{
		ProductID:        productID,
		PreviousQuantity: previous,
		NewQuantity:      next,
		Timestamp:        at.UTC().Format(time.RFC3339Nano),
	}
}
