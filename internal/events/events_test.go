package events

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBrokers(t *testing.T) {
	assert.Equal(t, []string{"a:9092", "b:9092"}, ParseBrokers(" a:9092, ,b:9092 "))
	assert.Empty(t, ParseBrokers(""))
}

func TestNew(t *testing.T) {
	evt := New(TypeOrderCreated, "order-1", "user-1", map[string]any{"code": "abc"})

	assert.NotEmpty(t, evt.EventID)
	assert.False(t, evt.OccurredAt.IsZero())

	data, err := json.Marshal(evt)
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "order.created", decoded["type"])
	assert.Equal(t, "order-1", decoded["order_id"])
	assert.Equal(t, "user-1", decoded["user_id"])
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), New(TypeOrderDeleted, "o", "u", nil)))
	assert.NoError(t, p.Close())
}
