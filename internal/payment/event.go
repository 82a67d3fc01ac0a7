package payment

import (
	"encoding/json"
	"fmt"

	"github.com/stripe/stripe-go/v79"
)

// Event types the reconciler acts on.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionCreated = "customer.subscription.created"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// Checkout session modes.
const (
	ModeSubscription = "subscription"
	ModePayment      = "payment"
)

// DecodeCheckoutSession extracts the checkout session carried by ev.
func DecodeCheckoutSession(ev stripe.Event) (*stripe.CheckoutSession, error) {
	var s stripe.CheckoutSession
	if err := decode(ev, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// DecodeSubscription extracts the subscription carried by ev.
func DecodeSubscription(ev stripe.Event) (*stripe.Subscription, error) {
	var s stripe.Subscription
	if err := decode(ev, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decode(ev stripe.Event, out any) error {
	if ev.Data == nil || len(ev.Data.Raw) == 0 {
		return fmt.Errorf("%w: %s has no data", ErrMalformedEvent, ev.ID)
	}
	if err := json.Unmarshal(ev.Data.Raw, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedEvent, err)
	}
	return nil
}

// CustomerID returns the id of an expandable customer reference.
func CustomerID(c *stripe.Customer) string {
	if c == nil {
		return ""
	}
	return c.ID
}

// FirstItemPriceID returns the price id of the first subscription item.
func FirstItemPriceID(sub *stripe.Subscription) string {
	if sub == nil || sub.Items == nil || len(sub.Items.Data) == 0 || sub.Items.Data[0].Price == nil {
		return ""
	}
	return sub.Items.Data[0].Price.ID
}

// SessionEmail returns the best known email of the paying customer.
func SessionEmail(s *stripe.CheckoutSession) string {
	if s.CustomerDetails != nil && s.CustomerDetails.Email != "" {
		return s.CustomerDetails.Email
	}
	return s.CustomerEmail
}
