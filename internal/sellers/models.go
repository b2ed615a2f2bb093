package sellers

import (
	"errors"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	ErrInvalidInput       = errors.New("invalid seller input")
	ErrAlreadyExists      = errors.New("seller already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrNotFound           = errors.New("seller not found")
)

// Seller is the public profile; it never carries the password hash.
type Seller struct {
	ID         int64
	Username   string
	Email      string
	CardNumber string
	Rating     decimal.Decimal
	TotalSales int
}

type Registration struct {
	Username   string `json:"username" validate:"required,max=50"`
	Email      string `json:"email" validate:"required,max=254,email"`
	Password   string `json:"password" validate:"required,min=8,max=72"`
	CardNumber string `json:"card_number" validate:"omitempty,max=32,numeric"`
}

func (r Registration) normalized() Registration {
	r.Username = strings.TrimSpace(r.Username)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.CardNumber = strings.ReplaceAll(strings.TrimSpace(r.CardNumber), " ", "")
	return r
}
