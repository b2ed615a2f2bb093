package orders

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const EventOrderPlaced = "OrderPlaced"

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // order id
	Payload       json.RawMessage `json:"payload"`
}

// OrderPlacedPayload carries money as 2dp strings, the same values the buyer saw.
type OrderPlacedPayload struct {
	OrderID               int64  `json:"order_id"`
	SellerID              int64  `json:"seller_id"`
	TotalPrice            string `json:"total_price"`
	Commission            string `json:"commission"`
	CommissionDestination string `json:"commission_card"`
}

// NewOrderPlaced builds the envelope published after a receipt is committed.
func NewOrderPlaced(r Receipt, producer, traceID string) (Envelope, error) {
	payload, err := json.Marshal(OrderPlacedPayload{
		OrderID:               r.OrderID,
		SellerID:              r.SellerID,
		TotalPrice:            r.TotalPrice.StringFixed(2),
		Commission:            r.Commission.StringFixed(2),
		CommissionDestination: r.CommissionDestination,
	})
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		EventID:       uuid.NewString(),
		EventType:     EventOrderPlaced,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      producer,
		TraceID:       traceID,
		CorrelationID: OrderKey(r.OrderID),
		Payload:       payload,
	}, nil
}
