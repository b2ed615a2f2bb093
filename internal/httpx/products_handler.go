package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-digital-market/internal/catalog"
	"github.com/ariefcatur/go-digital-market/internal/pricing"
)

type Catalog interface {
	ListAvailable(ctx context.Context) ([]catalog.Listing, error)
	Create(ctx context.Context, p catalog.NewProduct) (int64, error)
}

type ProductsHandler struct {
	Catalog Catalog
	Log     zerolog.Logger
	Timeout time.Duration
}

type productView struct {
	ID           int64       `json:"id"`
	Name         string      `json:"name"`
	Amount       int         `json:"amount"`
	Price        json.Number `json:"price"`
	Discount     json.Number `json:"discount"`
	DeliveryTime string      `json:"deliveryTime"`
	Stock        int         `json:"stock"`
	Seller       string      `json:"seller"`
	Rating       json.Number `json:"rating"`
	Reviews      int         `json:"reviews"`
}

func (h *ProductsHandler) Register(r chi.Router) {
	r.Get("/products", h.list)
	r.Post("/products", h.create)
}

func (h *ProductsHandler) list(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := storeContext(r, h.Timeout)
	defer cancel()

	ls, err := h.Catalog.ListAvailable(ctx)
	if err != nil {
		logFrom(r, h.Log).Error().Err(err).Msg("list products")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	out := make([]productView, 0, len(ls))
	for _, l := range ls {
		out = append(out, productView{
			ID:           l.ID,
			Name:         l.ProductType,
			Amount:       l.Amount,
			Price:        pricing.Present(l.Price),
			Discount:     json.Number(l.Discount.String()),
			DeliveryTime: l.DeliveryTime,
			Stock:        l.Stock,
			Seller:       l.Seller,
			Rating:       pricing.Present(l.Rating),
			Reviews:      l.Reviews,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": out})
}

func (h *ProductsHandler) create(w http.ResponseWriter, r *http.Request) {
	var in catalog.NewProduct
	if !decodeJSON(w, r, &in) {
		return
	}

	ctx, cancel := storeContext(r, h.Timeout)
	defer cancel()

	id, err := h.Catalog.Create(ctx, in)
	switch {
	case errors.Is(err, catalog.ErrInvalidProduct):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, catalog.ErrSellerNotFound):
		writeError(w, http.StatusNotFound, "Seller not found")
	case err != nil:
		logFrom(r, h.Log).Error().Err(err).Int64("seller_id", in.SellerID).Msg("create product")
		writeError(w, http.StatusInternalServerError, "internal error")
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "product_id": id})
	}
}
