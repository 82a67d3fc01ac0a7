package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"

	"github.com/iliyamo/domain-marketplace/internal/queue"
)

// Dispatcher hands a verified event over to processing that outlives the
// webhook request.  Dispatch must return quickly; processing errors are
// never reported through it.
type Dispatcher interface {
	Dispatch(ctx context.Context, ev stripe.Event, payload []byte) error
}

// BackgroundDispatcher processes each event on its own goroutine inside
// this process.  Panics are recovered and logged; Shutdown waits for
// in-flight events.
type BackgroundDispatcher struct {
	runner *EventRunner
	base   context.Context
	log    zerolog.Logger
	wg     sync.WaitGroup
}

// NewBackgroundDispatcher returns a dispatcher whose goroutines run under
// base rather than under the request context.
func NewBackgroundDispatcher(base context.Context, runner *EventRunner, log zerolog.Logger) *BackgroundDispatcher {
	return &BackgroundDispatcher{runner: runner, base: base, log: log.With().Str("component", "dispatcher").Logger()}
}

func (d *BackgroundDispatcher) Dispatch(_ context.Context, ev stripe.Event, _ []byte) error {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		defer func() {
			if p := recover(); p != nil {
				d.log.Error().Str("event_id", ev.ID).Str("panic", fmt.Sprint(p)).
					Bytes("stack", debug.Stack()).Msg("event processing panicked")
			}
		}()
		_ = d.runner.Run(d.base, ev)
	}()
	return nil
}

// Wait blocks until every dispatched event finished processing.
func (d *BackgroundDispatcher) Wait() {
	d.wg.Wait()
}

// Shutdown waits for in-flight events until ctx expires.
func (d *BackgroundDispatcher) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// BillingPublisher stores events on the durable queue.
type BillingPublisher interface {
	Publish(ctx context.Context, ev queue.BillingEvent) error
}

// QueueDispatcher publishes events to RabbitMQ for the background consumer.
// When publishing fails the event is handed to fallback so that an already
// acknowledged delivery is not lost.
type QueueDispatcher struct {
	pub      BillingPublisher
	fallback Dispatcher
	log      zerolog.Logger
}

func NewQueueDispatcher(pub BillingPublisher, fallback Dispatcher, log zerolog.Logger) *QueueDispatcher {
	return &QueueDispatcher{pub: pub, fallback: fallback, log: log.With().Str("component", "dispatcher").Logger()}
}

func (d *QueueDispatcher) Dispatch(ctx context.Context, ev stripe.Event, payload []byte) error {
	msg := queue.BillingEvent{
		ID:         ev.ID,
		Type:       string(ev.Type),
		Payload:    payload,
		ReceivedAt: time.Now().UTC(),
	}
	err := d.pub.Publish(context.WithoutCancel(ctx), msg)
	if err == nil {
		return nil
	}
	d.log.Warn().Err(err).Str("event_id", ev.ID).Msg("queue unavailable; processing in-process")
	return d.fallback.Dispatch(ctx, ev, payload)
}
