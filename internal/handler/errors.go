package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/iliyamo/domain-marketplace/internal/service"
	"github.com/iliyamo/domain-marketplace/internal/utils"
)

// writeError maps service errors to HTTP responses.  Anything unrecognised
// is logged and reported as a generic 500.
func writeError(c echo.Context, log zerolog.Logger, err error) error {
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
	case errors.Is(err, utils.ErrInvalidDomainFormat):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": utils.ErrInvalidDomainFormat.Error()})
	case errors.Is(err, service.ErrInvalidInput):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrDomainBusy):
		return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrDomainBusy.Error()})
	case errors.Is(err, service.ErrRegistrationConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": service.ErrRegistrationConflict.Error()})
	case errors.Is(err, service.ErrRegistrationFailed):
		log.Warn().Err(err).Str("path", c.Path()).Msg("registration failed")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": service.ErrRegistrationFailed.Error()})
	case errors.Is(err, service.ErrExternalService):
		log.Warn().Err(err).Str("path", c.Path()).Msg("upstream failure")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "upstream service unavailable"})
	default:
		log.Error().Err(err).Str("path", c.Path()).Msg("request failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
