package sellers

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

var _ Store = (*Repo)(nil)

func (r *Repo) Insert(ctx context.Context, reg Registration, passwordHash string) (Seller, error) {
	s := Seller{Username: reg.Username, Email: reg.Email, CardNumber: reg.CardNumber, Rating: decimal.Zero}
	err := r.DB.QueryRow(ctx, `
		INSERT INTO sellers (username, email, password_hash, card_number)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, reg.Username, reg.Email, passwordHash, reg.CardNumber).Scan(&s.ID)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return Seller{}, fmt.Errorf("%w: %s", ErrAlreadyExists, pgErr.ConstraintName)
	}
	if err != nil {
		return Seller{}, fmt.Errorf("insert seller: %w", err)
	}
	return s, nil
}

func (r *Repo) ByEmail(ctx context.Context, email string) (Seller, string, error) {
	var (
		s            Seller
		rating, hash string
	)
	err := r.DB.QueryRow(ctx, `
		SELECT id, username, email, card_number, COALESCE(rating, 0)::text, total_sales, password_hash
		FROM sellers
		WHERE email = $1`, email).
		Scan(&s.ID, &s.Username, &s.Email, &s.CardNumber, &rating, &s.TotalSales, &hash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Seller{}, "", ErrNotFound
	}
	if err != nil {
		return Seller{}, "", fmt.Errorf("select seller: %w", err)
	}
	if s.Rating, err = decimal.NewFromString(rating); err != nil {
		return Seller{}, "", fmt.Errorf("decode rating of seller %d: %w", s.ID, err)
	}
	return s, hash, nil
}

func (r *Repo) IncrementSales(ctx context.Context, sellerID int64, by int) error {
	ct, err := r.DB.Exec(ctx, `UPDATE sellers SET total_sales = total_sales + $2 WHERE id = $1`, sellerID, by)
	if err != nil {
		return fmt.Errorf("increment sales: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, sellerID)
	}
	return nil
}
