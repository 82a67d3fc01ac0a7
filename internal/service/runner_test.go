package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"

	"github.com/iliyamo/domain-marketplace/internal/payment"
	"github.com/iliyamo/domain-marketplace/internal/queue"
)

// flakyProcessor fails the first failures calls with err.
type flakyProcessor struct {
	calls    atomic.Int32
	failures int32
	err      error
}

func (p *flakyProcessor) ProcessIncomingEvent(context.Context, stripe.Event) error {
	n := p.calls.Add(1)
	if n <= p.failures {
		return p.err
	}
	return nil
}

func testEvent() stripe.Event {
	return stripe.Event{ID: "evt_1", Type: stripe.EventType(payment.EventCheckoutCompleted)}
}

func TestEventRunner_RetriesThenSucceeds(t *testing.T) {
	proc := &flakyProcessor{failures: 2, err: errors.New("db timeout")}
	r := NewEventRunner(proc, 3, time.Millisecond, zerolog.Nop())

	require.NoError(t, r.Run(context.Background(), testEvent()))
	require.EqualValues(t, 3, proc.calls.Load())
}

func TestEventRunner_Exhaustion(t *testing.T) {
	boom := errors.New("registrar down")
	proc := &flakyProcessor{failures: 100, err: boom}
	r := NewEventRunner(proc, 3, time.Millisecond, zerolog.Nop())

	var exhausted stripe.Event
	r.OnExhausted = func(ev stripe.Event, err error) {
		exhausted = ev
		require.ErrorIs(t, err, boom)
	}

	err := r.Run(context.Background(), testEvent())
	require.ErrorIs(t, err, boom)
	require.EqualValues(t, 3, proc.calls.Load())
	require.Equal(t, "evt_1", exhausted.ID)
}

func TestEventRunner_PermanentErrorStopsImmediately(t *testing.T) {
	proc := &flakyProcessor{failures: 100, err: payment.ErrMalformedEvent}
	r := NewEventRunner(proc, 3, time.Millisecond, zerolog.Nop())

	require.ErrorIs(t, r.Run(context.Background(), testEvent()), payment.ErrMalformedEvent)
	require.EqualValues(t, 1, proc.calls.Load())
}

func TestEventRunner_HandleBillingEvent(t *testing.T) {
	proc := &flakyProcessor{}
	r := NewEventRunner(proc, 3, time.Millisecond, zerolog.Nop())

	payload, err := json.Marshal(map[string]any{"id": "evt_1", "type": "checkout.session.completed", "data": map[string]any{"object": map[string]any{}}})
	require.NoError(t, err)
	require.NoError(t, r.HandleBillingEvent(context.Background(), queue.BillingEvent{ID: "evt_1", Payload: payload}))
	require.EqualValues(t, 1, proc.calls.Load())

	err = r.HandleBillingEvent(context.Background(), queue.BillingEvent{ID: "evt_2", Payload: json.RawMessage(`"nope"`)})
	require.ErrorIs(t, err, payment.ErrMalformedEvent)
}
