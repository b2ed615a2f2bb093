package sales

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/ariefcatur/go-digital-market/internal/kafka"
	"github.com/ariefcatur/go-digital-market/internal/orders"
)

type Deduper interface {
	Claim(ctx context.Context, eventID string) (bool, error)
	Release(ctx context.Context, eventID string) error
}

type Recorder interface {
	RecordSale(ctx context.Context, sellerID int64) error
}

// Service projects OrderPlaced events onto seller sales counters.
type Service struct {
	Dedup   Deduper
	Sellers Recorder
	Log     zerolog.Logger
}

// HandleOrderPlaced is installed as the consumer handler. An error makes the
// consumer retry the message; undecodable messages are dropped.
func (s *Service) HandleOrderPlaced(ctx context.Context, m kafkago.Message) error {
	if t := kafkax.Header(m, "x-event-type"); t != "" && t != orders.EventOrderPlaced {
		return nil
	}

	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		// a message that can never decode is skipped, not retried forever
		s.Log.Error().Err(err).Int64("offset", m.Offset).Msg("drop undecodable envelope")
		return nil
	}
	if env.EventType != orders.EventOrderPlaced {
		return nil
	}
	p, err := kafkax.UnwrapPayload[orders.OrderPlacedPayload](env.Payload)
	if err != nil {
		s.Log.Error().Err(err).Str("event_id", env.EventID).Msg("drop undecodable payload")
		return nil
	}

	first, err := s.Dedup.Claim(ctx, env.EventID)
	if err != nil {
		return fmt.Errorf("dedup %s: %w", env.EventID, err)
	}
	if !first {
		s.Log.Debug().Str("event_id", env.EventID).Msg("duplicate event skipped")
		return nil
	}

	if err := s.Sellers.RecordSale(ctx, p.SellerID); err != nil {
		if rerr := s.Dedup.Release(ctx, env.EventID); rerr != nil {
			s.Log.Warn().Err(rerr).Str("event_id", env.EventID).Msg("release dedup key")
		}
		return fmt.Errorf("record sale for order %d: %w", p.OrderID, err)
	}
	s.Log.Info().
		Str("event_id", env.EventID).
		Str("trace_id", env.TraceID).
		Int64("order_id", p.OrderID).
		Int64("seller_id", p.SellerID).
		Msg("sale recorded")
	return nil
}
