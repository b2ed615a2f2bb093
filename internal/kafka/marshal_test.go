package kafka

import (
	"encoding/json"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventHeadersRoundTrip(t *testing.T) {
	m := kafka.Message{Headers: EventHeaders("OrderPlaced", 1)}

	assert.Equal(t, "OrderPlaced", Header(m, "x-event-type"))
	assert.Equal(t, "1", Header(m, "x-event-version"))
	assert.Empty(t, Header(m, "x-missing"))
}

func TestUnwrapPayload(t *testing.T) {
	type payload struct {
		OrderID int64 `json:"order_id"`
	}

	p, err := UnwrapPayload[payload](json.RawMessage(`{"order_id":42}`))
	require.NoError(t, err)
	assert.Equal(t, int64(42), p.OrderID)

	_, err = UnwrapPayload[payload](json.RawMessage(`{"order_id":"x"}`))
	assert.Error(t, err)
}

func TestMustMarshalPanicsOnUnsupported(t *testing.T) {
	assert.JSONEq(t, `{"a":1}`, string(MustMarshal(map[string]int{"a": 1})))
	assert.Panics(t, func() { MustMarshal(make(chan int)) })
}
