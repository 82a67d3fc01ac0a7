package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v79"
)

func TestDecodeSubscription(t *testing.T) {
	raw := json.RawMessage(`{
	  "id": "sub_1",
	  "customer": "cus_1",
	  "status": "active",
	  "cancel_at_period_end": true,
	  "current_period_end": 1767225600,
	  "items": {"data": [{"id": "si_1", "price": {"id": "price_pro"}}]}
	}`)
	ev := stripe.Event{ID: "evt_2", Type: EventSubscriptionUpdated, Data: &stripe.EventData{Raw: raw}}

	sub, err := DecodeSubscription(ev)
	require.NoError(t, err)
	require.Equal(t, "sub_1", sub.ID)
	require.Equal(t, "cus_1", CustomerID(sub.Customer))
	require.True(t, sub.CancelAtPeriodEnd)
	require.Equal(t, int64(1767225600), sub.CurrentPeriodEnd)
	require.Equal(t, "price_pro", FirstItemPriceID(sub))
}

func TestDecodeMalformed(t *testing.T) {
	_, err := DecodeSubscription(stripe.Event{ID: "evt_3"})
	require.ErrorIs(t, err, ErrMalformedEvent)

	ev := stripe.Event{ID: "evt_4", Data: &stripe.EventData{Raw: json.RawMessage(`[1,2]`)}}
	_, err = DecodeCheckoutSession(ev)
	require.ErrorIs(t, err, ErrMalformedEvent)
}

func TestIsPermanent(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "plain error", err: errors.New("db down"), want: false},
		{name: "malformed", err: fmt.Errorf("wrap: %w", ErrMalformedEvent), want: true},
		{name: "stripe not found", err: &stripe.Error{HTTPStatusCode: 404, Code: stripe.ErrorCodeResourceMissing}, want: true},
		{name: "stripe rate limit", err: &stripe.Error{HTTPStatusCode: 429, Code: stripe.ErrorCodeRateLimit}, want: false},
		{name: "stripe outage", err: &stripe.Error{HTTPStatusCode: 503}, want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, IsPermanent(tc.err))
		})
	}
}
