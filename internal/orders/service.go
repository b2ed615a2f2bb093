package orders

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-digital-market/internal/pricing"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type Config struct {
	CommissionDestination string
	// MaxAttempts bounds retries of a placement that failed with ErrContention.
	MaxAttempts int
}

// Service owns order placement and the ledger read path.
type Service struct {
	store   Store
	pricing pricing.Engine
	cfg     Config
	log     zerolog.Logger
}

func NewService(store Store, engine pricing.Engine, cfg Config, log zerolog.Logger) *Service {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 1
	}
	return &Service{
		store:   store,
		pricing: engine,
		cfg:     cfg,
		log:     log.With().Str("component", "orders").Logger(),
	}
}

// PlaceOrder sells one unit of the product: it checks availability, prices the
// unit, records a pending order and decrements stock, all or nothing.
func (s *Service) PlaceOrder(ctx context.Context, in PlaceOrderInput) (Receipt, error) {
	in = in.normalized()
	if err := validate.Struct(in); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	var (
		placed Order
		err    error
	)
	for attempt := 1; attempt <= s.cfg.MaxAttempts; attempt++ {
		placed, err = s.placeOnce(ctx, in)
		if !errors.Is(err, ErrContention) || ctx.Err() != nil {
			break
		}
		s.log.Debug().Int64("product_id", in.ProductID).Int("attempt", attempt).Msg("order placement contended, retrying")
	}
	if err != nil {
		return Receipt{}, err
	}

	s.log.Info().
		Int64("order_id", placed.ID).
		Int64("product_id", placed.ProductID).
		Int64("seller_id", placed.SellerID).
		Str("total_price", placed.TotalPrice.String()).
		Msg("order placed")

	return Receipt{
		OrderID:               placed.ID,
		SellerID:              placed.SellerID,
		TotalPrice:            pricing.Round2(placed.TotalPrice),
		Commission:            pricing.Round2(placed.Commission),
		CommissionDestination: placed.CommissionDestination,
	}, nil
}

func (s *Service) placeOnce(ctx context.Context, in PlaceOrderInput) (Order, error) {
	var placed Order
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		p, err := tx.GetActiveProduct(ctx, in.ProductID)
		if err != nil {
			return err
		}
		if p.Stock < 1 {
			return fmt.Errorf("%w: product %d", ErrOutOfStock, p.ID)
		}

		q, err := s.pricing.Price(p.Price, p.DiscountPercent)
		if err != nil {
			return fmt.Errorf("product %d: %w", p.ID, err)
		}

		o := Order{
			ProductID:             p.ID,
			SellerID:              p.SellerID,
			BuyerEmail:            in.BuyerEmail,
			RobloxUsername:        in.RobloxUsername,
			Amount:                p.Amount,
			TotalPrice:            q.TotalPrice,
			Commission:            q.Commission,
			CommissionDestination: s.cfg.CommissionDestination,
			Status:                StatusPending,
		}
		if err := tx.InsertOrder(ctx, &o); err != nil {
			return err
		}
		if err := tx.DecrementStock(ctx, p.ID, 1); err != nil {
			return err
		}
		placed = o
		return nil
	})
	return placed, err
}

// ListOrdersForSeller returns every order of the seller, newest first.
func (s *Service) ListOrdersForSeller(ctx context.Context, sellerID int64) ([]Order, error) {
	if sellerID <= 0 {
		return nil, fmt.Errorf("%w: seller id must be positive", ErrInvalidInput)
	}
	out, err := s.store.OrdersBySeller(ctx, sellerID)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}

// ListRecentOrders returns the newest RecentOrdersLimit orders across all sellers.
func (s *Service) ListRecentOrders(ctx context.Context) ([]Order, error) {
	out, err := s.store.RecentOrders(ctx, RecentOrdersLimit)
	if err != nil {
		return nil, err
	}
	if out == nil {
		out = []Order{}
	}
	return out, nil
}
