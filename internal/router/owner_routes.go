package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/domain-marketplace/internal/handler"
	"github.com/iliyamo/domain-marketplace/internal/middleware"
)

// OwnerDeps carries the handlers and middleware of the dashboard API.
type OwnerDeps struct {
	Domains   *handler.DomainHandler
	Offers    *handler.OfferHandler
	JWTSecret string
	Origins   []string
	// Cache wraps read endpoints; it must run after JWT verification.
	Cache echo.MiddlewareFunc
}

// RegisterOwner registers the domain owner endpoints under /v1.  Every route
// requires a valid session token and, for state-changing methods, an
// allowed Origin.
func RegisterOwner(e *echo.Echo, d OwnerDeps) {
	g := e.Group("/v1",
		middleware.JWTAuth(d.JWTSecret),
		middleware.RequireOrigin(d.Origins),
	)
	cache := d.Cache
	if cache == nil {
		cache = func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	g.GET("/domains", d.Domains.List, cache)
	g.POST("/domains", d.Domains.Add)
	g.DELETE("/domains/:name", d.Domains.Remove)
	g.PUT("/domains/:name/notifications", d.Domains.UpdateNotifications)
	g.POST("/domains/:name/verify", d.Domains.Verify)
	g.GET("/domains/:name/offers", d.Domains.Offers, cache)
	g.DELETE("/offers/:id", d.Offers.Delete)
}
