// Package payment wraps the Stripe API for the reconciler: webhook
// signature verification, event decoding and the few lookups needed to
// resolve tiers and customer emails.  stripe-go types stop at this package
// and the service layer.
package payment

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"
	"github.com/stripe/stripe-go/v79/webhook"
)

var (
	// ErrInvalidSignature is returned when a webhook payload cannot be
	// authenticated with the configured endpoint secret.
	ErrInvalidSignature = errors.New("invalid webhook signature")
	// ErrMalformedEvent is returned when an event's object cannot be decoded
	// into the type its event type implies.
	ErrMalformedEvent = errors.New("malformed event payload")
	// ErrNoPrice is returned when an invoice or subscription has no priced
	// line item.
	ErrNoPrice = errors.New("no price on billing object")
)

// Gateway verifies inbound events and performs read-only lookups against
// the Stripe API.
type Gateway struct {
	api           *client.API
	webhookSecret string
}

// NewGateway builds a Gateway.  The API client is created once and shared;
// nothing in this package uses stripe-go's global client.
func NewGateway(secretKey, webhookSecret string) *Gateway {
	sc := &client.API{}
	sc.Init(secretKey, nil)
	return &Gateway{api: sc, webhookSecret: webhookSecret}
}

// VerifyEvent authenticates payload against the Stripe-Signature header and
// decodes it.  API version mismatches between the account and the library
// are tolerated since only a handful of stable fields are read.
func (g *Gateway) VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error) {
	ev, err := webhook.ConstructEventWithOptions(payload, signatureHeader, g.webhookSecret,
		webhook.ConstructEventOptions{IgnoreAPIVersionMismatch: true})
	if err != nil {
		return stripe.Event{}, fmt.Errorf("%w: %w", ErrInvalidSignature, err)
	}
	return ev, nil
}

// InvoicePriceID returns the price id of the first line item of an invoice.
func (g *Gateway) InvoicePriceID(ctx context.Context, invoiceID string) (string, error) {
	params := &stripe.InvoiceParams{}
	params.Context = ctx
	inv, err := g.api.Invoices.Get(invoiceID, params)
	if err != nil {
		return "", errors.Wrapf(err, "get invoice %s", invoiceID)
	}
	if inv.Lines == nil || len(inv.Lines.Data) == 0 || inv.Lines.Data[0].Price == nil {
		return "", ErrNoPrice
	}
	return inv.Lines.Data[0].Price.ID, nil
}

// SubscriptionPriceID returns the price id of the first item of a
// subscription.
func (g *Gateway) SubscriptionPriceID(ctx context.Context, subscriptionID string) (string, error) {
	params := &stripe.SubscriptionParams{}
	params.Context = ctx
	sub, err := g.api.Subscriptions.Get(subscriptionID, params)
	if err != nil {
		return "", errors.Wrapf(err, "get subscription %s", subscriptionID)
	}
	id := FirstItemPriceID(sub)
	if id == "" {
		return "", ErrNoPrice
	}
	return id, nil
}

// CustomerEmail returns the email stored on a Stripe customer.
func (g *Gateway) CustomerEmail(ctx context.Context, customerID string) (string, error) {
	params := &stripe.CustomerParams{}
	params.Context = ctx
	c, err := g.api.Customers.Get(customerID, params)
	if err != nil {
		return "", errors.Wrapf(err, "get customer %s", customerID)
	}
	return c.Email, nil
}
