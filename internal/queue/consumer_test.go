package queue

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHandleMessageWritesOneLine(t *testing.T) {
	var buf bytes.Buffer
	ev := OrderCreatedEvent{
		EventID:   "e-1",
		OrderID:   5,
		UserID:    2,
		Tickets:   []TicketEvent{{TicketID: 1, JourneyID: 10, Cargo: 2, Seat: 14}},
		CreatedAt: time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
	}
	body, err := json.Marshal(ev)
	require.NoError(t, err)

	require.NoError(t, handleMessage(body, newSink(&buf)))

	var line map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "order created", line["msg"])
	assert.Equal(t, float64(5), line["order_id"])
	assert.Equal(t, []interface{}{"10/2/14"}, line["tickets"])
}

func TestHandleMessageRejectsBadPayload(t *testing.T) {
	var buf bytes.Buffer
	assert.Error(t, handleMessage([]byte("{"), newSink(&buf)))
	assert.Error(t, handleMessage([]byte(`{"user_id":1}`), newSink(&buf)))
	assert.Zero(t, buf.Len())
}

func TestNewOrderLogCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "orders.log")
	sink, closeFn, err := newOrderLog(path)
	require.NoError(t, err)
	defer closeFn()
	assert.NotNil(t, sink)
	assert.FileExists(t, path)
}

func TestSleepHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.False(t, sleep(ctx, time.Hour))
	assert.True(t, sleep(context.Background(), time.Millisecond))
}
