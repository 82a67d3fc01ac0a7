package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"

	"github.com/iliyamo/domain-marketplace/internal/metrics"
	"github.com/iliyamo/domain-marketplace/internal/payment"
	"github.com/iliyamo/domain-marketplace/internal/queue"
	"github.com/iliyamo/domain-marketplace/internal/utils"
)

// EventProcessor applies one payment event.
type EventProcessor interface {
	ProcessIncomingEvent(ctx context.Context, ev stripe.Event) error
}

// EventRunner runs an EventProcessor with a bounded number of attempts.
// The whole event is re-processed on every attempt; this is safe because
// the processor's writes are upserts.
type EventRunner struct {
	proc        EventProcessor
	maxAttempts int
	interval    time.Duration
	log         zerolog.Logger

	// OnExhausted, when set, is called once an event failed every attempt
	// or failed permanently.
	OnExhausted func(ev stripe.Event, err error)
}

// NewEventRunner returns a runner making up to maxAttempts attempts, the
// first retry waiting about interval.
func NewEventRunner(proc EventProcessor, maxAttempts int, interval time.Duration, log zerolog.Logger) *EventRunner {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if interval <= 0 {
		interval = 500 * time.Millisecond
	}
	return &EventRunner{
		proc:        proc,
		maxAttempts: maxAttempts,
		interval:    interval,
		log:         log.With().Str("component", "event-runner").Logger(),
	}
}

// Run processes ev, retrying transient failures with exponential backoff.
// The returned error is the last processing error once attempts are
// exhausted; it has already been logged and counted.
func (r *EventRunner) Run(ctx context.Context, ev stripe.Event) error {
	evType := string(ev.Type)
	log := r.log.With().Str("event_id", ev.ID).Str("event_type", evType).Logger()
	start := time.Now()

	attempt := 0
	op := func() error {
		attempt++
		metrics.WebhookAttempts.WithLabelValues(evType).Inc()
		err := r.proc.ProcessIncomingEvent(ctx, ev)
		if err == nil {
			return nil
		}
		if isPermanent(err) {
			log.Warn().Err(err).Int("attempt", attempt).Msg("event processing failed permanently")
			return backoff.Permanent(err)
		}
		log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", r.maxAttempts).Msg("event processing attempt failed")
		return err
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = r.interval
	bo.MaxInterval = 10 * r.interval
	bo.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(r.maxAttempts-1)), ctx)

	err := backoff.Retry(op, policy)
	if err == nil {
		metrics.WebhookEvents.WithLabelValues(evType, "processed").Inc()
		metrics.WebhookLatency.WithLabelValues(evType, "processed").Observe(time.Since(start).Seconds())
		if attempt > 1 {
			log.Info().Int("attempts", attempt).Msg("event processed after retry")
		}
		return nil
	}

	metrics.WebhookEvents.WithLabelValues(evType, "failed").Inc()
	metrics.WebhookLatency.WithLabelValues(evType, "failed").Observe(time.Since(start).Seconds())
	log.Error().Err(err).Int("attempts", attempt).Msg("event processing exhausted; manual follow-up required")
	if r.OnExhausted != nil {
		r.OnExhausted(ev, err)
	}
	return err
}

// HandleBillingEvent lets the runner consume events from the queue.
func (r *EventRunner) HandleBillingEvent(ctx context.Context, msg queue.BillingEvent) error {
	var ev stripe.Event
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		return errors.Join(payment.ErrMalformedEvent, err)
	}
	return r.Run(ctx, ev)
}

func isPermanent(err error) bool {
	return payment.IsPermanent(err) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, utils.ErrInvalidDomainFormat) ||
		errors.Is(err, context.Canceled)
}
