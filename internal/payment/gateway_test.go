package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

func sign(t *testing.T, payload []byte, secret string) string {
	t.Helper()
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

const checkoutPayload = `{
  "id": "evt_1",
  "object": "event",
  "api_version": "2019-01-01",
  "type": "checkout.session.completed",
  "data": {"object": {
    "id": "cs_1",
    "object": "checkout.session",
    "mode": "subscription",
    "customer": "cus_1",
    "subscription": "sub_1",
    "invoice": "in_1",
    "client_reference_id": "user-a",
    "customer_details": {"email": "a@x.io"},
    "metadata": {"product": "subscription"}
  }}
}`

func TestGateway_VerifyEvent(t *testing.T) {
	g := NewGateway("sk_test", testSecret)
	payload := []byte(checkoutPayload)

	ev, err := g.VerifyEvent(payload, sign(t, payload, testSecret))
	require.NoError(t, err)
	require.Equal(t, "evt_1", ev.ID)
	require.Equal(t, EventCheckoutCompleted, string(ev.Type))

	s, err := DecodeCheckoutSession(ev)
	require.NoError(t, err)
	require.Equal(t, ModeSubscription, string(s.Mode))
	require.Equal(t, "cus_1", CustomerID(s.Customer))
	require.Equal(t, "sub_1", s.Subscription.ID)
	require.Equal(t, "in_1", s.Invoice.ID)
	require.Equal(t, "user-a", s.ClientReferenceID)
	require.Equal(t, "a@x.io", SessionEmail(s))
}

func TestGateway_VerifyEventRejectsBadSignature(t *testing.T) {
	g := NewGateway("sk_test", testSecret)
	payload := []byte(checkoutPayload)

	cases := []struct {
		name   string
		header string
	}{
		{name: "wrong secret", header: sign(t, payload, "whsec_other")},
		{name: "missing header", header: ""},
		{name: "garbage header", header: "t=abc,v1=zz"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := g.VerifyEvent(payload, tc.header)
			require.ErrorIs(t, err, ErrInvalidSignature)
		})
	}
}
