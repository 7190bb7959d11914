package handler

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/logger"
	"github.com/iliyamo/cinego/internal/service"
)

// respond maps a service error onto a status and a JSON body. Unknown
// errors are logged and reported as 500 without details.
func respond(c echo.Context, log *logger.Logger, err error) error {
	var unavailable *service.UnavailableError
	switch {
	case errors.As(err, &unavailable):
		return c.JSON(http.StatusConflict, echo.Map{"error": "seats unavailable", "unavailable": unavailable.Seats})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrLedgerBusy):
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "seat map busy, try again"})
	case errors.Is(err, service.ErrProvider):
		log.WithError(err).Error("payment provider failure")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "payment provider unavailable"})
	case errors.Is(err, service.ErrUpstream):
		log.WithError(err).Error("upstream failure")
		return c.JSON(http.StatusBadGateway, echo.Map{"error": "movie catalog unavailable"})
	case errors.Is(err, service.ErrInvalidSignature):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid signature"})
	case errors.Is(err, service.ErrWebhookNotConfigured):
		log.WithError(err).Error("webhook rejected")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "webhook not configured"})
	}
	log.WithError(err).Error("request failed", "path", c.Path())
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
}
