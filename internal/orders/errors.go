package orders

import (
	"errors"
	"fmt"

	"github.com/ariefcatur/go-digital-market/internal/pricing"
)

var (
	ErrInvalidInput       = errors.New("invalid input")
	ErrProductUnavailable = errors.New("product not found or inactive")
	ErrOutOfStock         = errors.New("product out of stock")
	ErrPersistence        = errors.New("persistence failure")
	// ErrContention means the conditional stock decrement or the transaction
	// lost a race. Nothing was committed and the call may be retried.
	ErrContention = errors.New("contention on product stock")
)

// PersistenceError wraps a store failure. It matches both ErrPersistence and
// the underlying cause with errors.Is.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence failure: %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() []error { return []error{ErrPersistence, e.Err} }

func persistence(op string, err error) error {
	if err == nil {
		return nil
	}
	return &PersistenceError{Op: op, Err: err}
}

// KindOf maps err to a stable, transport-neutral kind.
func KindOf(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidInput):
		return "invalid_input"
	case errors.Is(err, ErrProductUnavailable):
		return "product_unavailable"
	case errors.Is(err, ErrOutOfStock):
		return "out_of_stock"
	case errors.Is(err, ErrContention):
		return "contention"
	case errors.Is(err, pricing.ErrInvalidPricingInput):
		return "invalid_pricing_input"
	default:
		return "persistence_failure"
	}
}
