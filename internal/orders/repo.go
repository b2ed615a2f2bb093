package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// Repo is the PostgreSQL Store. Money columns travel as text so that NUMERIC
// precision survives the round trip into decimal.Decimal.
type Repo struct{ DB *pgxpool.Pool }

var _ Store = (*Repo)(nil)

const orderColumns = `id, product_id, seller_id, buyer_email, roblox_username, amount,
	total_price::text, commission::text, commission_card, status, created_at`

func (r *Repo) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return classify("begin tx", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(ctx, &pgTx{tx: tx}); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return classify("commit", err)
	}
	return nil
}

type pgTx struct{ tx pgx.Tx }

// GetActiveProduct locks the product row until the transaction ends, so price
// and stock cannot change between the read and the commit.
func (t *pgTx) GetActiveProduct(ctx context.Context, id int64) (Product, error) {
	var (
		p               Product
		price, discount string
	)
	err := t.tx.QueryRow(ctx, `
		SELECT id, seller_id, product_type, amount, price::text, COALESCE(discount, 0)::text, stock, is_active
		FROM products
		WHERE id = $1 AND is_active = true
		FOR UPDATE`, id).
		Scan(&p.ID, &p.SellerID, &p.ProductType, &p.Amount, &price, &discount, &p.Stock, &p.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, fmt.Errorf("%w: product %d", ErrProductUnavailable, id)
	}
	if err != nil {
		return Product{}, classify("select product", err)
	}
	if p.Price, err = decimal.NewFromString(price); err != nil {
		return Product{}, persistence("decode price", err)
	}
	if p.DiscountPercent, err = decimal.NewFromString(discount); err != nil {
		return Product{}, persistence("decode discount", err)
	}
	return p, nil
}

func (t *pgTx) DecrementStock(ctx context.Context, id int64, by int) error {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2
		WHERE id = $1 AND is_active = true AND stock >= $2`, id, by)
	if err != nil {
		return classify("decrement stock", err)
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: conditional decrement of product %d matched no row", ErrContention, id)
	}
	return nil
}

func (t *pgTx) InsertOrder(ctx context.Context, o *Order) error {
	err := t.tx.QueryRow(ctx, `
		INSERT INTO orders (product_id, seller_id, buyer_email, roblox_username, amount,
		                    total_price, commission, commission_card, status)
		VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8, $9)
		RETURNING id, created_at`,
		o.ProductID, o.SellerID, o.BuyerEmail, o.RobloxUsername, o.Amount,
		o.TotalPrice.String(), o.Commission.String(), o.CommissionDestination, string(o.Status),
	).Scan(&o.ID, &o.CreatedAt)
	if err != nil {
		return classify("insert order", err)
	}
	return nil
}

func (r *Repo) OrdersBySeller(ctx context.Context, sellerID int64) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+`
		FROM orders
		WHERE seller_id = $1
		ORDER BY created_at DESC, id DESC`, sellerID)
	if err != nil {
		return nil, classify("list seller orders", err)
	}
	return scanOrders(rows)
}

func (r *Repo) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	rows, err := r.DB.Query(ctx, `SELECT `+orderColumns+`
		FROM orders
		ORDER BY created_at DESC, id DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, classify("list recent orders", err)
	}
	return scanOrders(rows)
}

func scanOrders(rows pgx.Rows) ([]Order, error) {
	defer rows.Close()

	out := []Order{}
	for rows.Next() {
		var (
			o                 Order
			total, commission string
			status            string
			createdAt         time.Time
		)
		if err := rows.Scan(&o.ID, &o.ProductID, &o.SellerID, &o.BuyerEmail, &o.RobloxUsername, &o.Amount,
			&total, &commission, &o.CommissionDestination, &status, &createdAt); err != nil {
			return nil, persistence("scan order", err)
		}
		var err error
		if o.TotalPrice, err = decimal.NewFromString(total); err != nil {
			return nil, persistence("decode total_price", err)
		}
		if o.Commission, err = decimal.NewFromString(commission); err != nil {
			return nil, persistence("decode commission", err)
		}
		o.Status = Status(status)
		if !o.Status.Valid() {
			return nil, persistence("scan order", fmt.Errorf("order %d has unknown status %q", o.ID, status))
		}
		o.CreatedAt = createdAt
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, classify("iterate orders", err)
	}
	return out, nil
}

// classify turns serialization failures and deadlocks into ErrContention and
// everything else into a PersistenceError.
func classify(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "40001", "40P01":
			return fmt.Errorf("%s: %w: %v", op, ErrContention, err)
		}
	}
	return persistence(op, err)
}
