package payment

import (
	"errors"
	"net/http"

	"github.com/stripe/stripe-go/v79"
)

// IsPermanent reports whether retrying err cannot succeed: malformed events
// and Stripe client errors other than throttling.  Everything else,
// including network failures and errors from other dependencies, is
// treated as transient.
func IsPermanent(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedEvent) || errors.Is(err, ErrInvalidSignature) {
		return true
	}
	var se *stripe.Error
	if !errors.As(err, &se) {
		return false
	}
	switch se.Code {
	case stripe.ErrorCodeRateLimit, stripe.ErrorCodeLockTimeout:
		return false
	}
	return se.HTTPStatusCode >= http.StatusBadRequest && se.HTTPStatusCode < http.StatusInternalServerError &&
		se.HTTPStatusCode != http.StatusTooManyRequests
}
