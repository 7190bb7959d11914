package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinego/internal/logger"
)

// maxWebhookBody bounds what is read from the provider.
const maxWebhookBody = 64 << 10

type WebhookProcessor interface {
	Handle(ctx context.Context, payload []byte, signature string) error
}

// WebhookHandler receives payment provider callbacks. The body must be read
// raw: signature verification runs over the exact bytes sent.
type WebhookHandler struct {
	Confirmer WebhookProcessor
	Log       *logger.Logger
}

// NewWebhookHandler builds the payment webhook endpoint.
func NewWebhookHandler(p WebhookProcessor, log *logger.Logger) *WebhookHandler {
	return &WebhookHandler{Confirmer: p, Log: log.WithComponent("webhook-http")}
}

// Payment hands the raw body and signature header to the confirmer.
func (h *WebhookHandler) Payment(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "unreadable body"})
	}
	sig := c.Request().Header.Get("Stripe-Signature")
	if err := h.Confirmer.Handle(c.Request().Context(), payload, sig); err != nil {
		return respond(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
