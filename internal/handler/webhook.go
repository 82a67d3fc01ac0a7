package handler

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/stripe/stripe-go/v79"

	"github.com/iliyamo/domain-marketplace/internal/metrics"
	"github.com/iliyamo/domain-marketplace/internal/service"
)

// maxWebhookBody bounds the payment webhook payload.
const maxWebhookBody = 1 << 16

// EventVerifier authenticates a raw webhook payload.
type EventVerifier interface {
	VerifyEvent(payload []byte, signatureHeader string) (stripe.Event, error)
}

// WebhookHandler acknowledges verified payment events and hands them to a
// dispatcher.  Processing never happens on the request goroutine.
type WebhookHandler struct {
	verifier   EventVerifier
	dispatcher service.Dispatcher
	log        zerolog.Logger
}

// NewWebhookHandler constructs a WebhookHandler and panics on nil
// dependencies.
func NewWebhookHandler(verifier EventVerifier, dispatcher service.Dispatcher, log zerolog.Logger) *WebhookHandler {
	if verifier == nil || dispatcher == nil {
		panic("nil dependency passed to NewWebhookHandler")
	}
	return &WebhookHandler{verifier: verifier, dispatcher: dispatcher, log: log}
}

// Stripe handles POST /v1/webhooks/stripe.  A bad signature is a 400 with no
// side effects.  Once verified the event is acknowledged with 200 whatever
// the processing outcome.
func (h *WebhookHandler) Stripe(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	ev, err := h.verifier.VerifyEvent(payload, c.Request().Header.Get("Stripe-Signature"))
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		h.log.Warn().Err(err).Msg("webhook signature rejected")
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	}

	log := h.log.With().Str("event_id", ev.ID).Str("event_type", string(ev.Type)).Logger()
	if err := h.dispatcher.Dispatch(c.Request().Context(), ev, payload); err != nil {
		log.Error().Err(err).Msg("event dispatch failed")
	} else {
		log.Debug().Msg("event accepted")
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
