package handler

import (
	"context"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/middleware"
	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/service"
)

// Onboarder registers a domain for the authenticated user.
type Onboarder interface {
	AddDomain(ctx context.Context, userID, rawName string) (*model.Domain, error)
}

// DomainService is the owner-side domain management API.
type DomainService interface {
	List(ctx context.Context, userID string) ([]*model.Domain, error)
	Remove(ctx context.Context, userID, rawName string) error
	UpdateNotifications(ctx context.Context, userID, rawName string, in service.NotificationSettings) (*model.Domain, error)
	Verify(ctx context.Context, userID, rawName string) (service.VerifyResult, error)
}

// DomainHandler serves the dashboard endpoints of domain owners.  Every
// route expects JWTAuth to have run.
type DomainHandler struct {
	onboarding Onboarder
	domains    DomainService
	offers     OfferService
	log        zerolog.Logger
}

// NewDomainHandler constructs a DomainHandler and panics on nil dependencies.
func NewDomainHandler(onboarding Onboarder, domains DomainService, offers OfferService, log zerolog.Logger) *DomainHandler {
	if onboarding == nil || domains == nil || offers == nil {
		panic("nil service passed to NewDomainHandler")
	}
	return &DomainHandler{onboarding: onboarding, domains: domains, offers: offers, log: log}
}

type addDomainRequest struct {
	Domain string `json:"domain"`
}

type notificationsRequest struct {
	Frequency []model.NotifyFrequency `json:"frequency"`
	Threshold *decimal.Decimal        `json:"threshold"`
}

// List handles GET /v1/domains.
func (h *DomainHandler) List(c echo.Context) error {
	doms, err := h.domains.List(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return writeError(c, h.log, err)
	}
	if doms == nil {
		doms = []*model.Domain{}
	}
	return c.JSON(http.StatusOK, echo.Map{"domains": doms})
}

// Add handles POST /v1/domains and runs the onboarding flow.
func (h *DomainHandler) Add(c echo.Context) error {
	var req addDomainRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	dom, err := h.onboarding.AddDomain(c.Request().Context(), middleware.UserID(c), req.Domain)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, dom)
}

// Remove handles DELETE /v1/domains/:name.
func (h *DomainHandler) Remove(c echo.Context) error {
	if err := h.domains.Remove(c.Request().Context(), middleware.UserID(c), c.Param("name")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// UpdateNotifications handles PUT /v1/domains/:name/notifications.
func (h *DomainHandler) UpdateNotifications(c echo.Context) error {
	var req notificationsRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	dom, err := h.domains.UpdateNotifications(c.Request().Context(), middleware.UserID(c), c.Param("name"),
		service.NotificationSettings{Frequency: req.Frequency, Threshold: req.Threshold})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, dom)
}

// Verify handles POST /v1/domains/:name/verify.
func (h *DomainHandler) Verify(c echo.Context) error {
	res, err := h.domains.Verify(c.Request().Context(), middleware.UserID(c), c.Param("name"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Offers handles GET /v1/domains/:name/offers.  Offer tokens belong to the
// bidder and are not shown to the owner.
func (h *DomainHandler) Offers(c echo.Context) error {
	offers, err := h.offers.List(c.Request().Context(), middleware.UserID(c), c.Param("name"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	out := make([]model.Offer, 0, len(offers))
	for _, o := range offers {
		cp := *o
		cp.Token = ""
		out = append(out, cp)
	}
	return c.JSON(http.StatusOK, echo.Map{"offers": out})
}
