package webhooks

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

// enqueueEvent queues a payload shaped like the raw webhook body, which is
// what the HTTP layer hands to Requeue.
func enqueueEvent(t *testing.T, retries *RetryStore, id, eventType string) {
	t.Helper()
	payload := []byte(`{"id":"` + id + `","type":"` + eventType + `","data":{"object":{"id":"cus_1"}}}`)
	require.NoError(t, retries.Enqueue(context.Background(), payload))
}

func TestWorkerDrainsQueue(t *testing.T) {
	retries := setupRetryStore(t)
	d := NewDispatcher(retries, 3, zap.NewNop())

	var handled []string
	d.On("customer.created", func(_ context.Context, e stripe.Event) error {
		handled = append(handled, e.ID)
		return nil
	})

	enqueueEvent(t, retries, "evt_1", "customer.created")
	enqueueEvent(t, retries, "evt_2", "customer.created")

	w := NewWorker(d, retries, time.Minute, zap.NewNop())
	w.drain(context.Background())

	assert.Equal(t, []string{"evt_1", "evt_2"}, handled)

	depth, err := retries.QueueDepth(context.Background())
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestWorkerRequeuesOnFailure(t *testing.T) {
	retries := setupRetryStore(t)
	d := NewDispatcher(retries, 5, zap.NewNop())
	d.On("customer.created", func(context.Context, stripe.Event) error {
		return errors.New("downstream unavailable")
	})

	enqueueEvent(t, retries, "evt_1", "customer.created")

	w := NewWorker(d, retries, time.Minute, zap.NewNop())
	w.drain(context.Background())

	// The payload went back on the queue for the next tick.
	depth, err := retries.QueueDepth(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), depth)
}

func TestWorkerDropsDeadLetteredEvents(t *testing.T) {
	retries := setupRetryStore(t)
	d := NewDispatcher(retries, 1, zap.NewNop())
	d.On("customer.created", func(context.Context, stripe.Event) error {
		return errors.New("downstream unavailable")
	})

	enqueueEvent(t, retries, "evt_1", "customer.created")
	enqueueEvent(t, retries, "evt_1", "customer.created")
	enqueueEvent(t, retries, "evt_1", "customer.created")

	w := NewWorker(d, retries, time.Minute, zap.NewNop())
	ctx := context.Background()

	// First drain fails the only allowed attempt and requeues.
	w.drain(ctx)
	// Subsequent drains exhaust the budget and drop the event.
	w.drain(ctx)
	w.drain(ctx)
	w.drain(ctx)

	dead, err := retries.DeadLetters(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"evt_1"}, dead)

	depth, err := retries.QueueDepth(ctx)
	require.NoError(t, err)
	assert.Zero(t, depth)
}

func TestWorkerSkipsUndecodablePayloads(t *testing.T) {
	retries := setupRetryStore(t)
	d := NewDispatcher(retries, 3, zap.NewNop())

	var handled int
	d.On("customer.created", func(context.Context, stripe.Event) error {
		handled++
		return nil
	})

	require.NoError(t, retries.Enqueue(context.Background(), []byte("not json")))
	enqueueEvent(t, retries, "evt_1", "customer.created")

	w := NewWorker(d, retries, time.Minute, zap.NewNop())
	w.drain(context.Background())

	assert.Equal(t, 1, handled)
}

func TestWorkerRunStopsOnCancel(t *testing.T) {
	retries := setupRetryStore(t)
	d := NewDispatcher(retries, 3, zap.NewNop())
	w := NewWorker(d, retries, time.Millisecond, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop after cancel")
	}
}
