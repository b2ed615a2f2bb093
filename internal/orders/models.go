package orders

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Product is the slice of a catalog row the order transaction needs.
type Product struct {
	ID              int64
	SellerID        int64
	ProductType     string
	Amount          int
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal // zero when the catalog has no discount
	Stock           int
	Active          bool
}

// Order is an immutable snapshot taken when the sale was committed.
type Order struct {
	ID                    int64
	ProductID             int64
	SellerID              int64
	BuyerEmail            string
	RobloxUsername        string
	Amount                int
	TotalPrice            decimal.Decimal // full precision
	Commission            decimal.Decimal // full precision
	CommissionDestination string
	Status                Status
	CreatedAt             time.Time
}

type PlaceOrderInput struct {
	ProductID      int64  `json:"product_id" validate:"gt=0"`
	BuyerEmail     string `json:"buyer_email" validate:"required,max=254,email"`
	RobloxUsername string `json:"roblox_username" validate:"required,max=50"`
}

func (in PlaceOrderInput) normalized() PlaceOrderInput {
	in.BuyerEmail = strings.TrimSpace(in.BuyerEmail)
	in.RobloxUsername = strings.TrimSpace(in.RobloxUsername)
	return in
}

// Receipt is what the buyer gets back. Money is already rounded to cents.
type Receipt struct {
	OrderID               int64
	SellerID              int64
	TotalPrice            decimal.Decimal
	Commission            decimal.Decimal
	CommissionDestination string
}
