package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"
)

const (
	DefaultProductType  = "Robux"
	DefaultDeliveryTime = "5-15 минут"
	DefaultStock        = 1
)

var (
	ErrInvalidProduct = errors.New("invalid product")
	ErrSellerNotFound = errors.New("seller not found")
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Listing is one orderable product as shown to buyers.
type Listing struct {
	ID           int64
	ProductType  string
	Amount       int
	Price        decimal.Decimal
	Discount     decimal.Decimal
	DeliveryTime string
	Stock        int
	Seller       string
	Rating       decimal.Decimal // zero when the seller has no rating yet
	Reviews      int
}

// NewProduct is the input for Create. Nil optional fields take defaults.
type NewProduct struct {
	SellerID     int64            `json:"seller_id" validate:"gt=0"`
	ProductType  string           `json:"product_type" validate:"max=50"`
	Amount       int              `json:"amount" validate:"gt=0"`
	Price        *decimal.Decimal `json:"price" validate:"required"`
	Discount     *decimal.Decimal `json:"discount"`
	DeliveryTime string           `json:"delivery_time" validate:"max=100"`
	Stock        *int             `json:"stock" validate:"omitnil,gte=0"`
}

// Normalize trims labels, fills defaults and checks the product. It returns
// an error wrapping ErrInvalidProduct.
func (p NewProduct) Normalize() (NewProduct, error) {
	p.ProductType = strings.TrimSpace(p.ProductType)
	p.DeliveryTime = strings.TrimSpace(p.DeliveryTime)
	if err := validate.Struct(p); err != nil {
		return NewProduct{}, fmt.Errorf("%w: %v", ErrInvalidProduct, err)
	}
	if p.Price.IsNegative() {
		return NewProduct{}, fmt.Errorf("%w: price %s is negative", ErrInvalidProduct, p.Price)
	}
	if !hasCents(*p.Price) {
		return NewProduct{}, fmt.Errorf("%w: price %s has more than 2 decimal places", ErrInvalidProduct, p.Price)
	}

	if p.ProductType == "" {
		p.ProductType = DefaultProductType
	}
	if p.DeliveryTime == "" {
		p.DeliveryTime = DefaultDeliveryTime
	}
	if p.Discount == nil {
		zero := decimal.Zero
		p.Discount = &zero
	}
	if p.Discount.IsNegative() || p.Discount.GreaterThan(decimal.NewFromInt(100)) {
		return NewProduct{}, fmt.Errorf("%w: discount %s outside [0,100]", ErrInvalidProduct, p.Discount)
	}
	if !hasCents(*p.Discount) {
		return NewProduct{}, fmt.Errorf("%w: discount %s has more than 2 decimal places", ErrInvalidProduct, p.Discount)
	}
	if p.Stock == nil {
		stock := DefaultStock
		p.Stock = &stock
	}
	return p, nil
}

// hasCents reports whether d fits the NUMERIC(_,2) columns without rounding.
// Trailing zeros are fine: 1.500 is stored as 1.50.
func hasCents(d decimal.Decimal) bool {
	return d.Equal(d.Round(2))
}
