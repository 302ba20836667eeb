package webhooks

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"
)

// Worker drains the redelivery queue in the background. Events land there
// when their handler failed on the HTTP path; the worker re-dispatches them
// against the same retry budget until they succeed or dead-letter.
type Worker struct {
	dispatcher *Dispatcher
	retries    *RetryStore
	interval   time.Duration
	log        *zap.Logger
}

// NewWorker creates a worker that polls the queue every interval.
func NewWorker(dispatcher *Dispatcher, retries *RetryStore, interval time.Duration, log *zap.Logger) *Worker {
	return &Worker{
		dispatcher: dispatcher,
		retries:    retries,
		interval:   interval,
		log:        log,
	}
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	w.log.Info("redelivery worker started", zap.Duration("interval", w.interval))
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info("redelivery worker stopped")
			return
		case <-ticker.C:
			w.drain(ctx)
		}
	}
}

// drain processes queued payloads until the queue is empty or a delivery
// fails again. On failure the payload goes back to the end of the queue and
// the worker backs off until the next tick.
func (w *Worker) drain(ctx context.Context) {
	for {
		payload, err := w.retries.Dequeue(ctx)
		if err != nil {
			w.log.Warn("dequeue failed", zap.Error(err))
			return
		}
		if payload == nil {
			return
		}

		var event stripe.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			w.log.Warn("dropping undecodable payload", zap.Error(err))
			continue
		}

		if err := w.dispatcher.Dispatch(ctx, event); err != nil {
			if errors.Is(err, ErrTooManyAttempts) {
				// Already dead-lettered, nothing left to redeliver.
				continue
			}
			if err := w.retries.Enqueue(ctx, payload); err != nil {
				w.log.Error("requeue failed, event lost",
					zap.String("id", event.ID), zap.Error(err))
			}
			return
		}
	}
}
