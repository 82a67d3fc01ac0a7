package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// Handler processes one billing event.  A returned error means the message
// cannot be handled at all; retries belong inside the handler.
type Handler interface {
	HandleBillingEvent(ctx context.Context, ev BillingEvent) error
}

// Consumer reads BillingQueueName and hands each message to a Handler.
type Consumer struct {
	url      string
	handler  Handler
	log      zerolog.Logger
	prefetch int
}

// NewConsumer returns a Consumer for the broker at url.
func NewConsumer(url string, h Handler, log zerolog.Logger) *Consumer {
	return &Consumer{
		url:      url,
		handler:  h,
		log:      log.With().Str("component", "billing-consumer").Logger(),
		prefetch: 10,
	}
}

// Run consumes until ctx is cancelled, reconnecting with exponential delay
// whenever the broker connection is lost.
func (c *Consumer) Run(ctx context.Context) error {
	delay := time.Second
	for {
		conn, err := amqp.Dial(c.url)
		if err != nil {
			c.log.Warn().Err(err).Dur("retry_in", delay).Msg("dial broker failed")
			if !sleep(ctx, delay) {
				return ctx.Err()
			}
			if delay < 30*time.Second {
				delay *= 2
			}
			continue
		}
		delay = time.Second

		err = c.consume(ctx, conn)
		_ = conn.Close()
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.Warn().Err(err).Msg("consume loop ended; reconnecting")
		if !sleep(ctx, 2*time.Second) {
			return ctx.Err()
		}
	}
}

func (c *Consumer) consume(ctx context.Context, conn *amqp.Connection) error {
	ch, err := conn.Channel()
	if err != nil {
		return errors.Wrap(err, "open channel")
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(c.prefetch, 0, false); err != nil {
		c.log.Warn().Err(err).Msg("set QoS failed")
	}
	if err := declare(ch); err != nil {
		return err
	}
	msgs, err := ch.ConsumeWithContext(ctx, BillingQueueName, "", false, false, false, false, nil)
	if err != nil {
		return errors.Wrap(err, "consume")
	}

	for d := range msgs {
		if err := c.handle(ctx, d.Body); err != nil {
			c.log.Error().Err(err).Str("message_id", d.MessageId).Msg("billing event rejected")
			_ = d.Nack(false, false) // do not requeue, avoids tight redelivery loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func (c *Consumer) handle(ctx context.Context, body []byte) error {
	var ev BillingEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return errors.Wrap(err, "unmarshal billing event")
	}
	return c.handler.HandleBillingEvent(ctx, ev)
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
