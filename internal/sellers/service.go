package sellers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Store persists sellers. Insert returns ErrAlreadyExists on a duplicate
// username or email; ByEmail returns ErrNotFound.
type Store interface {
	Insert(ctx context.Context, r Registration, passwordHash string) (Seller, error)
	ByEmail(ctx context.Context, email string) (Seller, string, error)
	IncrementSales(ctx context.Context, sellerID int64, by int) error
}

type Service struct {
	store Store
	cost  int
	log   zerolog.Logger
	// compared against when the email is unknown, so both failures cost one bcrypt run
	dummyHash []byte
}

func NewService(store Store, cost int, log zerolog.Logger) (*Service, error) {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	dummy, err := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), cost)
	if err != nil {
		return nil, fmt.Errorf("bcrypt cost %d: %w", cost, err)
	}
	return &Service{store: store, cost: cost, log: log, dummyHash: dummy}, nil
}

func (s *Service) Register(ctx context.Context, r Registration) (Seller, error) {
	r = r.normalized()
	if err := validate.Struct(r); err != nil {
		return Seller{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(r.Password), s.cost)
	if errors.Is(err, bcrypt.ErrPasswordTooLong) {
		return Seller{}, fmt.Errorf("%w: password longer than 72 bytes", ErrInvalidInput)
	}
	if err != nil {
		return Seller{}, fmt.Errorf("hash password: %w", err)
	}
	seller, err := s.store.Insert(ctx, r, string(hash))
	if err != nil {
		return Seller{}, err
	}
	s.log.Info().Int64("seller_id", seller.ID).Str("username", seller.Username).Msg("seller registered")
	return seller, nil
}

func (s *Service) Login(ctx context.Context, email, password string) (Seller, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return Seller{}, fmt.Errorf("%w: email and password are required", ErrInvalidInput)
	}
	seller, hash, err := s.store.ByEmail(ctx, email)
	if errors.Is(err, ErrNotFound) {
		_ = bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return Seller{}, ErrInvalidCredentials
	}
	if err != nil {
		return Seller{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return Seller{}, ErrInvalidCredentials
	}
	return seller, nil
}

// RecordSale adds one completed sale to the seller's counter.
func (s *Service) RecordSale(ctx context.Context, sellerID int64) error {
	if sellerID <= 0 {
		return fmt.Errorf("%w: seller id %d", ErrInvalidInput, sellerID)
	}
	return s.store.IncrementSales(ctx, sellerID, 1)
}
