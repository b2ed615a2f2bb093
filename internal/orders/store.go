package orders

import "context"

// RecentOrdersLimit caps ListRecentOrders.
const RecentOrdersLimit = 100

// Tx is one atomic unit against the catalog and the ledger. Nothing done
// through a Tx is visible to others until the surrounding InTx returns nil.
type Tx interface {
	// GetActiveProduct returns ErrProductUnavailable when the product is
	// missing or deactivated.
	GetActiveProduct(ctx context.Context, id int64) (Product, error)
	// DecrementStock succeeds only if the pre-decrement stock is >= by,
	// otherwise it returns ErrContention.
	DecrementStock(ctx context.Context, id int64, by int) error
	// InsertOrder assigns o.ID and o.CreatedAt.
	InsertOrder(ctx context.Context, o *Order) error
}

type Store interface {
	// InTx runs fn in a single transaction. It commits when fn returns nil and
	// rolls back otherwise; the error from fn is returned unchanged.
	InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
	OrdersBySeller(ctx context.Context, sellerID int64) ([]Order, error)
	RecentOrders(ctx context.Context, limit int) ([]Order, error)
}
