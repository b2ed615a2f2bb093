package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type Repo struct{ DB *pgxpool.Pool }

// ListAvailable returns active products with stock left, newest first.
func (r *Repo) ListAvailable(ctx context.Context) ([]Listing, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT p.id, p.product_type, p.amount, p.price::text, COALESCE(p.discount, 0)::text,
		       p.delivery_time, p.stock, s.username, COALESCE(s.rating, 0)::text,
		       (SELECT COUNT(*) FROM reviews rv WHERE rv.seller_id = p.seller_id)
		FROM products p
		JOIN sellers s ON s.id = p.seller_id
		WHERE p.is_active = true AND p.stock > 0
		ORDER BY p.created_at DESC, p.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	out := []Listing{}
	for rows.Next() {
		var (
			l                       Listing
			price, discount, rating string
		)
		if err := rows.Scan(&l.ID, &l.ProductType, &l.Amount, &price, &discount,
			&l.DeliveryTime, &l.Stock, &l.Seller, &rating, &l.Reviews); err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		if l.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("decode price of product %d: %w", l.ID, err)
		}
		if l.Discount, err = decimal.NewFromString(discount); err != nil {
			return nil, fmt.Errorf("decode discount of product %d: %w", l.ID, err)
		}
		if l.Rating, err = decimal.NewFromString(rating); err != nil {
			return nil, fmt.Errorf("decode rating of product %d: %w", l.ID, err)
		}
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return out, nil
}

// Create validates p, applies defaults and inserts it. It returns the new id.
func (r *Repo) Create(ctx context.Context, p NewProduct) (int64, error) {
	p, err := p.Normalize()
	if err != nil {
		return 0, err
	}

	var id int64
	err = r.DB.QueryRow(ctx, `
		INSERT INTO products (seller_id, product_type, amount, price, discount, delivery_time, stock)
		VALUES ($1, $2, $3, $4::numeric, $5::numeric, $6, $7)
		RETURNING id`,
		p.SellerID, p.ProductType, p.Amount, p.Price.String(), p.Discount.String(), p.DeliveryTime, *p.Stock,
	).Scan(&id)
	var pgErr *pgconn.PgError
	switch {
	case errors.As(err, &pgErr) && pgErr.Code == "23503":
		return 0, fmt.Errorf("%w: %d", ErrSellerNotFound, p.SellerID)
	case errors.As(err, &pgErr) && pgErr.Code == "23514":
		return 0, fmt.Errorf("%w: %s", ErrInvalidProduct, pgErr.ConstraintName)
	case errors.Is(err, pgx.ErrNoRows):
		return 0, fmt.Errorf("insert product: no id returned")
	case err != nil:
		return 0, fmt.Errorf("insert product: %w", err)
	}
	return id, nil
}
