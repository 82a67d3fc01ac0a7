package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/domain-marketplace/internal/middleware"
	"github.com/iliyamo/domain-marketplace/internal/model"
	"github.com/iliyamo/domain-marketplace/internal/service"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// OfferService accepts bids from visitors and exposes them to owners.
type OfferService interface {
	Submit(ctx context.Context, in service.SubmitOffer) (*model.Offer, error)
	List(ctx context.Context, userID, rawName string) ([]*model.Offer, error)
	Delete(ctx context.Context, userID, offerID string) error
}

// OfferHandler serves the public offer form and owner offer deletion.
type OfferHandler struct {
	offers OfferService
	log    zerolog.Logger
}

// NewOfferHandler constructs an OfferHandler and panics on a nil service.
func NewOfferHandler(offers OfferService, log zerolog.Logger) *OfferHandler {
	if offers == nil {
		panic("nil service passed to NewOfferHandler")
	}
	return &OfferHandler{offers: offers, log: log}
}

// SubmitOfferDTO is the public offer form.
type SubmitOfferDTO struct {
	Domain      string          `json:"domain" validate:"required,max=253"`
	Email       string          `json:"email" validate:"required,email,max=254"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description" validate:"max=2000"`
}

// Normalize trims user input in place.
func (d *SubmitOfferDTO) Normalize() {
	d.Domain = strings.TrimSpace(d.Domain)
	d.Email = strings.TrimSpace(d.Email)
	d.Description = strings.TrimSpace(d.Description)
}

// Ok validates the DTO and returns per-field messages when it is invalid.
func (d *SubmitOfferDTO) Ok() (map[string]string, bool) {
	d.Normalize()
	errs := map[string]string{}
	if err := validate.Struct(d); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok {
			for _, fe := range verrs {
				errs[strings.ToLower(fe.Field())] = fe.Tag()
			}
		} else {
			errs["body"] = err.Error()
		}
	}
	switch {
	case !d.Amount.IsPositive():
		errs["amount"] = "gt"
	case !model.ValidOfferAmount(d.Amount):
		errs["amount"] = "decimal(12,2)"
	}
	return errs, len(errs) == 0
}

// Submit handles POST /v1/offers.
func (h *OfferHandler) Submit(c echo.Context) error {
	var dto SubmitOfferDTO
	if err := c.Bind(&dto); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if fields, ok := dto.Ok(); !ok {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid offer", "fields": fields})
	}
	offer, err := h.offers.Submit(c.Request().Context(), service.SubmitOffer{
		Domain:      dto.Domain,
		Email:       dto.Email,
		Amount:      dto.Amount,
		Description: dto.Description,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(http.StatusCreated, offer)
}

// Delete handles DELETE /v1/offers/:id for the owner of the offer's domain.
func (h *OfferHandler) Delete(c echo.Context) error {
	if err := h.offers.Delete(c.Request().Context(), middleware.UserID(c), c.Param("id")); err != nil {
		return writeError(c, h.log, err)
	}
	return c.NoContent(http.StatusNoContent)
}
