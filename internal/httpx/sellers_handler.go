package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"github.com/ariefcatur/go-digital-market/internal/pricing"
	"github.com/ariefcatur/go-digital-market/internal/sellers"
)

type SellerAccounts interface {
	Register(ctx context.Context, r sellers.Registration) (sellers.Seller, error)
	Login(ctx context.Context, email, password string) (sellers.Seller, error)
}

type SellersHandler struct {
	Sellers SellerAccounts
	Log     zerolog.Logger
	Timeout time.Duration
	Limit   func(http.Handler) http.Handler
}

type sellerRequest struct {
	Action string `json:"action"`
	sellers.Registration
}

type sellerView struct {
	ID         int64       `json:"id"`
	Username   string      `json:"username"`
	Email      string      `json:"email"`
	Rating     json.Number `json:"rating,omitempty"`
	TotalSales *int        `json:"total_sales,omitempty"`
	CardNumber string      `json:"card_number,omitempty"`
}

func (h *SellersHandler) Register(r chi.Router) {
	limited(r, h.Limit).Post("/sellers", h.post)
}

// post dispatches on action: "register" (the default) or "login".
func (h *SellersHandler) post(w http.ResponseWriter, r *http.Request) {
	var req sellerRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	ctx, cancel := storeContext(r, h.Timeout)
	defer cancel()

	switch req.Action {
	case "", "register":
		s, err := h.Sellers.Register(ctx, req.Registration)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{
			"success": true,
			"seller":  sellerView{ID: s.ID, Username: s.Username, Email: s.Email},
		})
	case "login":
		s, err := h.Sellers.Login(ctx, req.Email, req.Password)
		if err != nil {
			h.writeError(w, r, err)
			return
		}
		sales := s.TotalSales
		writeJSON(w, http.StatusOK, map[string]any{
			"success": true,
			"seller": sellerView{
				ID:         s.ID,
				Username:   s.Username,
				Email:      s.Email,
				Rating:     pricing.Present(s.Rating),
				TotalSales: &sales,
				CardNumber: s.CardNumber,
			},
		})
	default:
		writeError(w, http.StatusBadRequest, "unknown action")
	}
}

func (h *SellersHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, sellers.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, sellers.ErrAlreadyExists):
		writeError(w, http.StatusConflict, "Seller with this username or email already exists")
	case errors.Is(err, sellers.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
	default:
		logFrom(r, h.Log).Error().Err(err).Msg("seller request")
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
