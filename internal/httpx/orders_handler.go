package httpx

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-digital-market/internal/kafka"
	"github.com/ariefcatur/go-digital-market/internal/metrics"
	"github.com/ariefcatur/go-digital-market/internal/orders"
	"github.com/ariefcatur/go-digital-market/internal/pricing"
	"github.com/ariefcatur/go-digital-market/internal/redisx"
)

type OrderService interface {
	PlaceOrder(ctx context.Context, in orders.PlaceOrderInput) (orders.Receipt, error)
	ListOrdersForSeller(ctx context.Context, sellerID int64) ([]orders.Order, error)
	ListRecentOrders(ctx context.Context) ([]orders.Order, error)
}

type EventPublisher interface {
	Publish(ctx context.Context, key, value []byte, headers ...kafkago.Header) error
}

type ListCache interface {
	Get(ctx context.Context, sellerID int64) ([]byte, bool, error)
	Set(ctx context.Context, sellerID int64, body []byte) error
	Invalidate(ctx context.Context, sellerID int64) error
}

type IdempotencyStore interface {
	Begin(ctx context.Context, key, fingerprint string) ([]byte, error)
	Complete(ctx context.Context, key, fingerprint string, body []byte) error
	Abort(ctx context.Context, key string) error
}

// OrdersHandler serves /orders. Events, Cache, Idem and Limit are optional.
type OrdersHandler struct {
	Orders  OrderService
	Events  EventPublisher
	Cache   ListCache
	Idem    IdempotencyStore
	Metrics *metrics.Metrics
	Log     zerolog.Logger
	Service string
	Timeout time.Duration
	Limit   func(http.Handler) http.Handler
}

type placeOrderResponse struct {
	Success        bool        `json:"success"`
	OrderID        int64       `json:"order_id"`
	TotalPrice     json.Number `json:"total_price"`
	Commission     json.Number `json:"commission"`
	CommissionCard string      `json:"commission_card"`
	Idempotent     bool        `json:"idempotent,omitempty"`
}

type orderView struct {
	ID             int64       `json:"id"`
	BuyerEmail     string      `json:"buyer_email"`
	RobloxUsername string      `json:"roblox_username"`
	Amount         int         `json:"amount"`
	TotalPrice     json.Number `json:"total_price"`
	Commission     json.Number `json:"commission"`
	Status         string      `json:"status"`
	CreatedAt      string      `json:"created_at"`
}

type listOrdersResponse struct {
	Orders []orderView `json:"orders"`
}

func (h *OrdersHandler) Register(r chi.Router) {
	limited(r, h.Limit).Post("/orders", h.placeOrder)
	r.Get("/orders", h.listOrders)
}

func (h *OrdersHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	log := logFrom(r, h.Log)

	var in orders.PlaceOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	idemKey := r.Header.Get("Idempotency-Key")
	var fingerprint string
	claimed := false
	if idemKey != "" && h.Idem != nil {
		fingerprint = requestFingerprint(in)
		replay, err := h.Idem.Begin(r.Context(), idemKey, fingerprint)
		switch {
		case errors.Is(err, redisx.ErrInProgress):
			writeJSON(w, http.StatusConflict, errorResponse{Error: "request with this Idempotency-Key is in progress", Retryable: true})
			return
		case errors.Is(err, redisx.ErrKeyReused):
			writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
				Error: "Idempotency-Key was already used for a different request",
				Kind:  "idempotency_key_reused",
			})
			return
		case err != nil:
			// Redis trouble degrades to a plain, non-idempotent request.
			log.Warn().Err(err).Msg("idempotency begin")
		case replay != nil:
			h.replay(w, replay, log)
			return
		default:
			claimed = true
		}
	}

	ctx, cancel := storeContext(r, h.Timeout)
	defer cancel()

	start := time.Now()
	receipt, err := h.Orders.PlaceOrder(ctx, in)
	h.Metrics.PlaceDuration.Observe(time.Since(start).Seconds())

	// cleanup must happen even if the client went away
	bg := context.WithoutCancel(r.Context())
	if err != nil {
		if claimed {
			if aerr := h.Idem.Abort(bg, idemKey); aerr != nil {
				log.Warn().Err(aerr).Msg("idempotency abort")
			}
		}
		h.writeOrderError(w, err, in, log)
		return
	}
	h.Metrics.OrdersPlaced.Inc()

	resp := placeOrderResponse{
		Success:        true,
		OrderID:        receipt.OrderID,
		TotalPrice:     pricing.Present(receipt.TotalPrice),
		Commission:     pricing.Present(receipt.Commission),
		CommissionCard: receipt.CommissionDestination,
	}
	body, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("encode receipt")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	if claimed {
		if err := h.Idem.Complete(bg, idemKey, fingerprint, body); err != nil {
			log.Warn().Err(err).Msg("idempotency complete")
		}
	}
	if h.Cache != nil {
		if err := h.Cache.Invalidate(bg, receipt.SellerID); err != nil {
			log.Warn().Err(err).Int64("seller_id", receipt.SellerID).Msg("invalidate order cache")
		}
	}
	h.publishPlaced(bg, receipt, middleware.GetReqID(r.Context()), log)

	writeRaw(w, http.StatusCreated, body)
}

// requestFingerprint identifies the order request an Idempotency-Key was
// first used for. It hashes the decoded input, so formatting of the body
// does not matter.
func requestFingerprint(in orders.PlaceOrderInput) string {
	b, _ := json.Marshal(in)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func (h *OrdersHandler) replay(w http.ResponseWriter, stored []byte, log *zerolog.Logger) {
	var resp placeOrderResponse
	if err := json.Unmarshal(stored, &resp); err != nil {
		log.Error().Err(err).Msg("decode stored idempotent response")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	resp.Idempotent = true
	writeJSON(w, http.StatusOK, resp)
}

func (h *OrdersHandler) publishPlaced(ctx context.Context, receipt orders.Receipt, traceID string, log *zerolog.Logger) {
	if h.Events == nil {
		return
	}
	env, err := orders.NewOrderPlaced(receipt, h.Service, traceID)
	if err == nil {
		ctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		err = h.Events.Publish(ctx, orders.PartitionKey(receipt.OrderID), kafkax.MustMarshal(env),
			kafkax.EventHeaders(orders.EventOrderPlaced, env.EventVersion)...)
	}
	if err != nil {
		h.Metrics.EventsDropped.Inc()
		log.Warn().Err(err).Int64("order_id", receipt.OrderID).Msg("publish OrderPlaced")
	}
}

func (h *OrdersHandler) writeOrderError(w http.ResponseWriter, err error, in orders.PlaceOrderInput, log *zerolog.Logger) {
	kind := orders.KindOf(err)
	h.Metrics.OrdersFailed.WithLabelValues(kind).Inc()

	resp := errorResponse{Kind: kind}
	var code int
	switch kind {
	case "invalid_input":
		code, resp.Error = http.StatusBadRequest, err.Error()
	case "product_unavailable":
		code, resp.Error = http.StatusNotFound, "Product not found or inactive"
	case "out_of_stock":
		code, resp.Error = http.StatusConflict, "Product out of stock"
	case "contention":
		code, resp.Error, resp.Retryable = http.StatusConflict, "Product is being ordered by someone else, try again", true
	default:
		code, resp.Error = http.StatusInternalServerError, "internal error"
		log.Error().Err(err).Str("kind", kind).Int64("product_id", in.ProductID).Msg("place order")
	}
	writeJSON(w, code, resp)
}

func (h *OrdersHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	log := logFrom(r, h.Log)

	var sellerID int64
	if raw := r.URL.Query().Get("seller_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "seller_id must be a positive integer", Kind: "invalid_input"})
			return
		}
		sellerID = id
	}

	ctx, cancel := storeContext(r, h.Timeout)
	defer cancel()

	if h.Cache != nil {
		body, ok, err := h.Cache.Get(ctx, sellerID)
		switch {
		case err != nil:
			h.Metrics.CacheRequests.WithLabelValues("error").Inc()
			log.Warn().Err(err).Msg("order cache get")
		case ok:
			h.Metrics.CacheRequests.WithLabelValues("hit").Inc()
			writeRaw(w, http.StatusOK, body)
			return
		default:
			h.Metrics.CacheRequests.WithLabelValues("miss").Inc()
		}
	}

	var (
		list []orders.Order
		err  error
	)
	if sellerID > 0 {
		list, err = h.Orders.ListOrdersForSeller(ctx, sellerID)
	} else {
		list, err = h.Orders.ListRecentOrders(ctx)
	}
	if err != nil {
		log.Error().Err(err).Int64("seller_id", sellerID).Msg("list orders")
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error", Kind: orders.KindOf(err)})
		return
	}

	resp := listOrdersResponse{Orders: make([]orderView, 0, len(list))}
	for _, o := range list {
		resp.Orders = append(resp.Orders, orderView{
			ID:             o.ID,
			BuyerEmail:     o.BuyerEmail,
			RobloxUsername: o.RobloxUsername,
			Amount:         o.Amount,
			TotalPrice:     pricing.Present(o.TotalPrice),
			Commission:     pricing.Present(o.Commission),
			Status:         string(o.Status),
			CreatedAt:      o.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	body, err := json.Marshal(resp)
	if err != nil {
		log.Error().Err(err).Msg("encode orders")
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if h.Cache != nil {
		if err := h.Cache.Set(ctx, sellerID, body); err != nil {
			log.Warn().Err(err).Msg("order cache set")
		}
	}
	writeRaw(w, http.StatusOK, body)
}
