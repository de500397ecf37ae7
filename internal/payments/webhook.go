// Package payments defines the inbound contract with the payment gateway:
// an HMAC-signed JSON event envelope. Intent creation and card handling live
// entirely on the gateway's side.
package payments

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
)

const SignatureHeader = "X-Webhook-Signature"

var ErrBadSignature = errors.New("webhook signature mismatch")

// Event types the order lifecycle reacts to.
const (
	EventPaymentSucceeded = "payment_intent.succeeded"
	EventPaymentFailed    = "payment_intent.payment_failed"
	EventPaymentCanceled  = "payment_intent.canceled"
	EventChargeSucceeded  = "charge.succeeded"
	EventDisputeCreated   = "charge.dispute.created"
)

type Event struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object Object `json:"object"`
	} `json:"data"`
}

// Object is the union of the gateway object fields the handlers read.
// PaymentIntent is set on charge and dispute objects; on payment-intent
// events the intent id is the object's own ID.
type Object struct {
	ID            string `json:"id"`
	Amount        int64  `json:"amount"`
	Status        string `json:"status"`
	PaymentIntent string `json:"payment_intent"`
	Reason        string `json:"reason"`

	PaymentMethodDetails struct {
		Card struct {
			Brand string `json:"brand"`
			Last4 string `json:"last4"`
		} `json:"card"`
	} `json:"payment_method_details"`
}

// IntentID returns the payment-intent correlation key for any event shape.
func (e Event) IntentID() string {
	if e.Data.Object.PaymentIntent != "" {
		return e.Data.Object.PaymentIntent
	}
	return e.Data.Object.ID
}

// VerifySignature checks the hex HMAC-SHA256 of the raw payload against the
// shared secret. Constant-time comparison; any mismatch is fatal for the
// request before state changes.
func VerifySignature(payload []byte, signature string, secret []byte) error {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	expected := mac.Sum(nil)

	got, err := hex.DecodeString(signature)
	if err != nil {
		return ErrBadSignature
	}
	if !hmac.Equal(expected, got) {
		return ErrBadSignature
	}
	return nil
}

// Sign produces the signature header value for a payload. Used by tests and
// by the gateway simulator in development.
func Sign(payload, secret []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

func ParseEvent(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	return ev, nil
}
