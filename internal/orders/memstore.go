package orders

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// MemStore is an in-process Store for local runs and tests. Transactions are
// serialized behind one mutex and their writes are buffered until commit.
type MemStore struct {
	mu       sync.Mutex
	products map[int64]Product
	orders   []Order
	nextID   int64
	now      func() time.Time
}

var _ Store = (*MemStore)(nil)

func NewMemStore() *MemStore {
	return &MemStore{
		products: make(map[int64]Product),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// PutProduct inserts or replaces a catalog row.
func (m *MemStore) PutProduct(p Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
}

func (m *MemStore) Product(id int64) (Product, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	return p, ok
}

func (m *MemStore) OrderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *MemStore) InTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return persistence("begin tx", err)
	}
	tx := &memTx{store: m, stock: make(map[int64]int), nextID: m.nextID}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return persistence("commit", err)
	}

	for id, stock := range tx.stock {
		p := m.products[id]
		p.Stock = stock
		m.products[id] = p
	}
	m.orders = append(m.orders, tx.orders...)
	m.nextID = tx.nextID
	return nil
}

type memTx struct {
	store  *MemStore
	stock  map[int64]int
	orders []Order
	nextID int64
}

func (t *memTx) GetActiveProduct(_ context.Context, id int64) (Product, error) {
	p, ok := t.store.products[id]
	if !ok || !p.Active {
		return Product{}, fmt.Errorf("%w: product %d", ErrProductUnavailable, id)
	}
	if s, ok := t.stock[id]; ok {
		p.Stock = s
	}
	return p, nil
}

func (t *memTx) DecrementStock(ctx context.Context, id int64, by int) error {
	p, err := t.GetActiveProduct(ctx, id)
	if err != nil || p.Stock < by {
		return fmt.Errorf("%w: conditional decrement of product %d matched no row", ErrContention, id)
	}
	t.stock[id] = p.Stock - by
	return nil
}

func (t *memTx) InsertOrder(_ context.Context, o *Order) error {
	t.nextID++
	o.ID = t.nextID
	o.CreatedAt = t.store.now()
	t.orders = append(t.orders, *o)
	return nil
}

func (m *MemStore) OrdersBySeller(ctx context.Context, sellerID int64) ([]Order, error) {
	return m.list(ctx, func(o Order) bool { return o.SellerID == sellerID }, 0)
}

func (m *MemStore) RecentOrders(ctx context.Context, limit int) ([]Order, error) {
	return m.list(ctx, func(Order) bool { return true }, limit)
}

func (m *MemStore) list(ctx context.Context, keep func(Order) bool, limit int) ([]Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, persistence("list orders", err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	out := []Order{}
	for _, o := range m.orders {
		if keep(o) {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID > out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
