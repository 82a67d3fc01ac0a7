package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/domain-marketplace/internal/handler"
	"github.com/iliyamo/domain-marketplace/internal/middleware"
)

// RegisterPublic registers unauthenticated endpoints: the offer form, guarded
// by the origin check and the rate limiter, and the payment webhook, which
// authenticates through its signature instead.
func RegisterPublic(e *echo.Echo, offers *handler.OfferHandler, webhook *handler.WebhookHandler, origins []string, limiter echo.MiddlewareFunc) {
	mws := []echo.MiddlewareFunc{middleware.RequireOrigin(origins)}
	if limiter != nil {
		mws = append(mws, limiter)
	}
	e.POST("/v1/offers", offers.Submit, mws...)
	e.POST("/v1/webhooks/stripe", webhook.Stripe)
}
