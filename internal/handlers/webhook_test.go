package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"github.com/gemcraft/storefront/internal/models"
	"github.com/gemcraft/storefront/internal/payments"
)

var webhookSecret = []byte("whsec_test")

func (env *testEnv) doWebhook(h *WebhookHandler, payload []byte, sig string) (*httptest.ResponseRecorder, error) {
	env.T.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payment", bytes.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	if sig != "" {
		req.Header.Set(payments.SignatureHeader, sig)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, h.HandlePayment(c)
}

func webhookEvent(t *testing.T, eventType, objectID string, amount int64) []byte {
	t.Helper()
	payload, err := json.Marshal(map[string]any{
		"id":   "evt_test",
		"type": eventType,
		"data": map[string]any{"object": map[string]any{
			"id":     objectID,
			"amount": amount,
		}},
	})
	require.NoError(t, err)
	return payload
}

func TestWebhookRejectsBadSignature(t *testing.T) {
	env := newTestEnv(t)
	h := &WebhookHandler{Orders: env.Orders, Secret: webhookSecret}
	payload := webhookEvent(t, payments.EventPaymentSucceeded, "pi_123", 10000)

	_, err := env.doWebhook(h, payload, "deadbeef")
	requireHTTPError(t, err, http.StatusBadRequest)

	_, err = env.doWebhook(h, payload, "")
	requireHTTPError(t, err, http.StatusBadRequest)
}

func TestWebhookConfirmsOrder(t *testing.T) {
	env := newTestEnv(t)
	h := &WebhookHandler{Orders: env.Orders, Secret: webhookSecret}

	order := models.Order{
		UserID:      1,
		PaymentInfo: models.PaymentInfo{PaymentIntentID: "pi_123"},
		Pricing:     models.Pricing{Total: 100},
	}
	require.NoError(t, env.Orders.Create(t.Context(), &order))

	payload := webhookEvent(t, payments.EventPaymentSucceeded, "pi_123", 10000)
	rec, err := env.doWebhook(h, payload, payments.Sign(payload, webhookSecret))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Order
	require.NoError(t, env.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderConfirmed, got.Status)
	require.Equal(t, models.PaymentSucceeded, got.PaymentStatus)
}

func TestWebhookUnmatchedEventIsAcknowledged(t *testing.T) {
	env := newTestEnv(t)
	h := &WebhookHandler{Orders: env.Orders, Secret: webhookSecret}

	payload := webhookEvent(t, payments.EventPaymentSucceeded, "pi_ghost", 99999)
	rec, err := env.doWebhook(h, payload, payments.Sign(payload, webhookSecret))
	require.NoError(t, err, "an unmatched event is dropped, not retried against us")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookIgnoresUnknownEventTypes(t *testing.T) {
	env := newTestEnv(t)
	h := &WebhookHandler{Orders: env.Orders, Secret: webhookSecret}

	payload := webhookEvent(t, "customer.created", "cus_1", 0)
	rec, err := env.doWebhook(h, payload, payments.Sign(payload, webhookSecret))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestWebhookFailureCancelsOrder(t *testing.T) {
	env := newTestEnv(t)
	h := &WebhookHandler{Orders: env.Orders, Secret: webhookSecret}

	order := models.Order{
		UserID:      1,
		PaymentInfo: models.PaymentInfo{PaymentIntentID: "pi_123"},
		Pricing:     models.Pricing{Total: 100},
	}
	require.NoError(t, env.Orders.Create(t.Context(), &order))

	payload := webhookEvent(t, payments.EventPaymentFailed, "pi_123", 0)
	_, err := env.doWebhook(h, payload, payments.Sign(payload, webhookSecret))
	require.NoError(t, err)

	var got models.Order
	require.NoError(t, env.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderCancelled, got.Status)
	require.Equal(t, models.PaymentFailed, got.PaymentStatus)
}
