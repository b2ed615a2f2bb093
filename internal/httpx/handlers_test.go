package httpx

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/go-digital-market/internal/catalog"
	"github.com/ariefcatur/go-digital-market/internal/sellers"
)

type memCatalog struct {
	listings []catalog.Listing
	created  []catalog.NewProduct
	sellers  map[int64]bool
}

func (c *memCatalog) ListAvailable(context.Context) ([]catalog.Listing, error) {
	return c.listings, nil
}

func (c *memCatalog) Create(_ context.Context, p catalog.NewProduct) (int64, error) {
	p, err := p.Normalize()
	if err != nil {
		return 0, err
	}
	if !c.sellers[p.SellerID] {
		return 0, catalog.ErrSellerNotFound
	}
	c.created = append(c.created, p)
	return int64(len(c.created)), nil
}

func TestProducts_List(t *testing.T) {
	cat := &memCatalog{listings: []catalog.Listing{{
		ID: 3, ProductType: "Robux", Amount: 800,
		Price: decimal.RequireFromString("99.9"), Discount: decimal.RequireFromString("12.5"),
		DeliveryTime: "5-15 минут", Stock: 4, Seller: "nova",
		Rating: decimal.RequireFromString("4.8"), Reviews: 12,
	}}}
	r := NewRouter(zerolog.Nop(), time.Second, nil)
	(&ProductsHandler{Catalog: cat, Log: zerolog.Nop()}).Register(r)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/products", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"products":[{
		"id": 3, "name": "Robux", "amount": 800, "price": 99.90, "discount": 12.5,
		"deliveryTime": "5-15 минут", "stock": 4, "seller": "nova", "rating": 4.80, "reviews": 12
	}]}`, rec.Body.String())
}

func TestProducts_Create(t *testing.T) {
	cat := &memCatalog{sellers: map[int64]bool{5: true}}
	r := NewRouter(zerolog.Nop(), time.Second, nil)
	(&ProductsHandler{Catalog: cat, Log: zerolog.Nop()}).Register(r)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"seller_id":5,"amount":800,"price":99.9}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"product_id":1}`, rec.Body.String())
	require.Len(t, cat.created, 1)
	assert.Equal(t, catalog.DefaultProductType, cat.created[0].ProductType)
	assert.Equal(t, "99.9", cat.created[0].Price.String())

	assert.Equal(t, http.StatusBadRequest, post(`{"seller_id":5,"price":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`{"seller_id":5,"amount":1,"price":1,"discount":150}`).Code)
	assert.Equal(t, http.StatusNotFound, post(`{"seller_id":6,"amount":1,"price":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, post(`not json`).Code)
}

type memAccounts struct {
	registered map[string]sellers.Registration
}

func (a *memAccounts) Register(_ context.Context, r sellers.Registration) (sellers.Seller, error) {
	if r.Username == "" || r.Email == "" || len(r.Password) < 8 {
		return sellers.Seller{}, sellers.ErrInvalidInput
	}
	if _, ok := a.registered[r.Email]; ok {
		return sellers.Seller{}, sellers.ErrAlreadyExists
	}
	a.registered[r.Email] = r
	return sellers.Seller{ID: int64(len(a.registered)), Username: r.Username, Email: r.Email, CardNumber: r.CardNumber}, nil
}

func (a *memAccounts) Login(_ context.Context, email, password string) (sellers.Seller, error) {
	r, ok := a.registered[email]
	if !ok || r.Password != password {
		return sellers.Seller{}, sellers.ErrInvalidCredentials
	}
	return sellers.Seller{
		ID: 1, Username: r.Username, Email: r.Email, CardNumber: r.CardNumber,
		Rating: decimal.RequireFromString("4.5"), TotalSales: 3,
	}, nil
}

func TestSellers_RegisterAndLogin(t *testing.T) {
	r := NewRouter(zerolog.Nop(), time.Second, nil)
	(&SellersHandler{Sellers: &memAccounts{registered: map[string]sellers.Registration{}}, Log: zerolog.Nop()}).Register(r)

	post := func(body string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/sellers", strings.NewReader(body)))
		return rec
	}

	rec := post(`{"username":"nova","email":"nova@example.com","password":"12345678","card_number":"4111"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"success":true,"seller":{"id":1,"username":"nova","email":"nova@example.com"}}`, rec.Body.String())

	rec = post(`{"action":"register","username":"nova","email":"nova@example.com","password":"12345678"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = post(`{"action":"register","username":"nova"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = post(`{"action":"login","email":"nova@example.com","password":"12345678"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	var resp struct {
		Success bool `json:"success"`
		Seller  struct {
			ID         int64       `json:"id"`
			Rating     json.Number `json:"rating"`
			TotalSales int         `json:"total_sales"`
			CardNumber string      `json:"card_number"`
		} `json:"seller"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, json.Number("4.50"), resp.Seller.Rating)
	assert.Equal(t, 3, resp.Seller.TotalSales)
	assert.Equal(t, "4111", resp.Seller.CardNumber)

	rec = post(`{"action":"login","email":"nova@example.com","password":"wrong-one"}`)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = post(`{"action":"delete"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(1, 2, time.Minute)
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	rl.now = func() time.Time { return now }

	assert.True(t, rl.Allow("10.0.0.1"))
	assert.True(t, rl.Allow("10.0.0.1"))
	assert.False(t, rl.Allow("10.0.0.1"), "burst exhausted")
	assert.True(t, rl.Allow("10.0.0.2"), "buckets are per client")

	now = now.Add(time.Second)
	assert.True(t, rl.Allow("10.0.0.1"), "refilled after one second")

	now = now.Add(2 * time.Minute)
	rl.Allow("10.0.0.3")
	assert.Len(t, rl.clients, 1, "idle clients swept")
}

func TestRateLimiter_Middleware(t *testing.T) {
	rl := NewRateLimiter(0.001, 1, time.Minute)
	r := NewRouter(zerolog.Nop(), time.Second, nil)
	(&SellersHandler{
		Sellers: &memAccounts{registered: map[string]sellers.Registration{}},
		Log:     zerolog.Nop(),
		Limit:   rl.Middleware,
	}).Register(r)

	send := func() int {
		req := httptest.NewRequest(http.MethodPost, "/sellers", strings.NewReader(`{"action":"login","email":"a@b.co","password":"12345678"}`))
		req.RemoteAddr = "192.0.2.10:5555"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}
	assert.Equal(t, http.StatusUnauthorized, send())
	assert.Equal(t, http.StatusTooManyRequests, send())
}
