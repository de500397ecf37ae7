package handlers

import (
	"errors"
	"io"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/gemcraft/storefront/internal/events"
	"github.com/gemcraft/storefront/internal/logging"
	"github.com/gemcraft/storefront/internal/orders"
	"github.com/gemcraft/storefront/internal/payments"
)

type WebhookHandler struct {
	Orders   *orders.Service
	Secret   []byte
	Producer *events.Producer
}

// HandlePayment receives signed gateway events and drives the order state
// machine. An unmatched correlation key is logged and dropped; the gateway's
// own redelivery is the only retry.
func (h *WebhookHandler) HandlePayment(c echo.Context) error {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "unreadable payload")
	}

	sig := c.Request().Header.Get(payments.SignatureHeader)
	if err := payments.VerifySignature(body, sig, h.Secret); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid webhook signature")
	}

	ev, err := payments.ParseEvent(body)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed event payload")
	}

	ctx := c.Request().Context()
	log := logging.FromContext(ctx)

	switch ev.Type {
	case payments.EventPaymentSucceeded:
		err = h.Orders.PaymentSucceeded(ctx, ev.IntentID(), ev.Data.Object.Amount)
	case payments.EventPaymentFailed, payments.EventPaymentCanceled:
		err = h.Orders.PaymentFailed(ctx, ev.IntentID())
	case payments.EventChargeSucceeded:
		card := ev.Data.Object.PaymentMethodDetails.Card
		err = h.Orders.ChargeSucceeded(ctx, ev.IntentID(), card.Brand, card.Last4)
	case payments.EventDisputeCreated:
		err = h.Orders.Dispute(ctx, ev.IntentID(), ev.Data.Object.Reason)
	default:
		log.Info("ignoring webhook event", "type", ev.Type, "event_id", ev.ID)
		return c.JSON(http.StatusOK, echo.Map{"received": true})
	}

	if err != nil {
		if errors.Is(err, orders.ErrNoMatch) {
			log.Warn("webhook event matched no order",
				"type", ev.Type, "event_id", ev.ID, "intent", ev.IntentID())
			return c.JSON(http.StatusOK, echo.Map{"received": true})
		}
		log.Error("webhook processing failed", "type", ev.Type, "event_id", ev.ID, "error", err)
		return echo.NewHTTPError(http.StatusInternalServerError, "webhook processing failed")
	}

	publish(c, h.Producer, events.TopicOrderEvents, ev.IntentID(), map[string]any{
		"type":   "payment_event",
		"event":  ev.Type,
		"intent": ev.IntentID(),
	})

	return c.JSON(http.StatusOK, echo.Map{"received": true})
}
