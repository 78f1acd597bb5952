package catalog

import "net/http"

type Outcome int

const (
	OutcomeSuccess Outcome = iota
	OutcomeNotFound
	OutcomeInvalidQuantity
	OutcomeInternalError
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeNotFound:
		return "not_found"
	case OutcomeInvalidQuantity:
		return "invalid_quantity"
	case OutcomeInternalError:
		return "internal_error"
	default:
		return "unknown"
	}
}

// HTTPStatus maps an outcome onto the status code of the stock endpoint.
func (o Outcome) HTTPStatus() int {
	switch o {
	case OutcomeSuccess:
		return http.StatusOK
	case OutcomeNotFound:
		return http.StatusNotFound
	case OutcomeInvalidQuantity:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// StockUpdateResult is the value UpdateProductStock returns instead of an
// error. Product is only set on success.
type StockUpdateResult struct {
	Outcome   Outcome
	Message   string
	ProductID string
	Product   *Product
}

func (r StockUpdateResult) OK() bool { return r.Outcome == OutcomeSuccess }
