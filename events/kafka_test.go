package events

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tablebook/model"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestEncode(t *testing.T) {
	ev := NewReservationEvent(ReservationCreated, model.Reservation{
		ReservationID: 42, UserID: 1, RestaurantID: 5, Status: model.StatusPending,
	}, 1)

	msg, err := encode(ev)
	require.NoError(t, err)
	assert.Equal(t, "42", string(msg.Key))

	var decoded Event
	require.NoError(t, json.Unmarshal(msg.Value, &decoded))
	assert.Equal(t, ev.ID, decoded.ID)
	assert.Equal(t, ReservationCreated, decoded.Type)
	assert.Equal(t, uint(42), decoded.ReservationID)
	assert.Equal(t, model.StatusPending, decoded.Status)
}

// closedAddr returns a local address nothing listens on.
func closedAddr(t *testing.T) string {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())
	return addr
}

func TestKafkaPublisherDoesNotWaitForBroker(t *testing.T) {
	var logs syncBuffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelWarn}))
	p := NewKafkaPublisher([]string{closedAddr(t)}, "reservation-events", logger)
	t.Cleanup(func() { _ = p.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	err := p.Publish(ctx, NewReservationEvent(ReservationDeleted, model.Reservation{ReservationID: 3}, 1))
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)

	assert.Eventually(t, func() bool {
		return strings.Contains(logs.String(), "deliver reservation event failed")
	}, 15*time.Second, 50*time.Millisecond)
}
