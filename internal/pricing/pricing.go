// Package pricing computes the discounted sale price of a product and the
// platform commission taken from it.
//
// Values are kept at full precision. Rounding to cents happens only when a
// value leaves the system (see Round2 and Present).
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultCommissionRate is the platform cut applied when none is configured.
var DefaultCommissionRate = decimal.RequireFromString("0.05")

var ErrInvalidPricingInput = errors.New("invalid pricing input")

var (
	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Quote is the outcome of pricing a single unit.
type Quote struct {
	TotalPrice decimal.Decimal
	Commission decimal.Decimal
}

type Engine struct {
	rate decimal.Decimal
}

// New returns an Engine taking commissionRate (a fraction, 0.05 = 5%) of every sale.
func New(commissionRate decimal.Decimal) (Engine, error) {
	if commissionRate.IsNegative() || commissionRate.GreaterThan(one) {
		return Engine{}, fmt.Errorf("%w: commission rate %s outside [0,1]", ErrInvalidPricingInput, commissionRate)
	}
	return Engine{rate: commissionRate}, nil
}

func (e Engine) CommissionRate() decimal.Decimal { return e.rate }

// Price applies discountPercent to listPrice and derives the commission.
// A zero discount means no discount; callers coalesce a missing discount to zero.
func (e Engine) Price(listPrice, discountPercent decimal.Decimal) (Quote, error) {
	if listPrice.IsNegative() {
		return Quote{}, fmt.Errorf("%w: negative price %s", ErrInvalidPricingInput, listPrice)
	}
	if discountPercent.IsNegative() || discountPercent.GreaterThan(hundred) {
		return Quote{}, fmt.Errorf("%w: discount %s outside [0,100]", ErrInvalidPricingInput, discountPercent)
	}

	total := listPrice.Mul(hundred.Sub(discountPercent)).Div(hundred)
	return Quote{
		TotalPrice: total,
		Commission: total.Mul(e.rate),
	}, nil
}

// Round2 rounds d to cents, half away from zero.
func Round2(d decimal.Decimal) decimal.Decimal { return d.Round(2) }

// Present renders d as a JSON number with exactly two decimals.
func Present(d decimal.Decimal) json.Number { return json.Number(d.StringFixed(2)) }
