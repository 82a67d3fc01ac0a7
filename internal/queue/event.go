// Package queue carries verified payment events from the webhook endpoint to
// the background processor over RabbitMQ.
package queue

import (
	"encoding/json"
	"time"
)

// BillingQueueName is the durable queue holding verified payment events.
const BillingQueueName = "billing.events"

// BillingEvent is published once a webhook delivery passed signature
// verification.  Payload is the provider's event JSON, unchanged, so that the
// consumer can decode it exactly as the HTTP handler would have.
type BillingEvent struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	Payload    json.RawMessage `json:"payload"`
	ReceivedAt time.Time       `json:"received_at"`
}
