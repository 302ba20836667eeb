package webhooks

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v79"
	"go.uber.org/zap"

	"github.com/graphbill/graphbill/internal/payments"
)

// ErrTooManyAttempts is returned when an event exhausted its retry budget
// and was dead-lettered.
var ErrTooManyAttempts = errors.New("too many delivery attempts")

// Handler processes one verified provider event.
type Handler func(ctx context.Context, event stripe.Event) error

// Dispatcher routes events to handlers registered per event type. Event
// types with no handler are acknowledged and ignored; the provider sends
// far more types than this system consumes.
type Dispatcher struct {
	handlers    map[string]Handler
	retries     *RetryStore
	maxAttempts int64
	log         *zap.Logger
}

// NewDispatcher creates a dispatcher with the given retry budget.
func NewDispatcher(retries *RetryStore, maxAttempts int64, log *zap.Logger) *Dispatcher {
	return &Dispatcher{
		handlers:    make(map[string]Handler),
		retries:     retries,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// On registers the handler for an event type, replacing any previous one.
func (d *Dispatcher) On(eventType string, handler Handler) {
	d.handlers[eventType] = handler
}

// Dispatch runs the handler for an event. A handler error propagates so the
// HTTP layer returns a failure status and the provider redelivers; once the
// retry budget is exhausted the event is dead-lettered instead.
func (d *Dispatcher) Dispatch(ctx context.Context, event stripe.Event) error {
	handler, ok := d.handlers[string(event.Type)]
	if !ok {
		d.log.Debug("ignoring unhandled event type", zap.String("type", string(event.Type)))
		return nil
	}

	attempts, err := d.retries.Increment(ctx, event.ID)
	if err != nil {
		return fmt.Errorf("tracking attempts for event %s: %w", event.ID, err)
	}
	if attempts > d.maxAttempts {
		if err := d.retries.MarkDead(ctx, event.ID); err != nil {
			return fmt.Errorf("dead-lettering event %s: %w", event.ID, err)
		}
		d.log.Warn("event exhausted retry budget",
			zap.String("id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Int64("attempts", attempts))
		return fmt.Errorf("%w: event %s", ErrTooManyAttempts, event.ID)
	}

	if err := handler(ctx, event); err != nil {
		d.log.Error("event handler failed",
			zap.String("id", event.ID),
			zap.String("type", string(event.Type)),
			zap.Int64("attempt", attempts),
			zap.Error(err))
		return err
	}

	if err := d.retries.Clear(ctx, event.ID); err != nil {
		return fmt.Errorf("clearing attempts for event %s: %w", event.ID, err)
	}
	d.log.Info("processed event",
		zap.String("id", event.ID),
		zap.String("type", string(event.Type)))
	return nil
}

// Requeue schedules a raw event payload for background redelivery.
func (d *Dispatcher) Requeue(ctx context.Context, payload []byte) error {
	return d.retries.Enqueue(ctx, payload)
}

// RegisterSyncHandlers wires the provider event types this system consumes
// to the corresponding sync services.
func RegisterSyncHandlers(d *Dispatcher, syncer *payments.Syncer) {
	syncByID := func(sync func(context.Context, string) error) Handler {
		return func(ctx context.Context, event stripe.Event) error {
			id, ok := event.Data.Object["id"].(string)
			if !ok {
				return fmt.Errorf("event %s payload has no object id", event.ID)
			}
			return sync(ctx, id)
		}
	}

	for _, eventType := range []string{"customer.created", "customer.updated"} {
		d.On(eventType, syncByID(syncer.SyncCustomer))
	}
	for _, eventType := range []string{"product.created", "product.updated"} {
		d.On(eventType, syncByID(syncer.SyncProduct))
	}
	for _, eventType := range []string{"price.created", "price.updated"} {
		d.On(eventType, syncByID(syncer.SyncPrice))
	}
	for _, eventType := range []string{
		"customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted",
	} {
		d.On(eventType, syncByID(syncer.SyncSubscription))
	}
	for _, eventType := range []string{"invoice.finalized", "invoice.paid", "invoice.payment_failed"} {
		d.On(eventType, syncByID(syncer.SyncInvoice))
	}
}
