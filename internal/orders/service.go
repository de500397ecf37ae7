package orders

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/models"
)

var (
	// ErrNoMatch means a webhook event could not be correlated with any
	// order; the event is dropped (at-most-once, the gateway redelivers).
	ErrNoMatch   = errors.New("no matching order")
	ErrNotFound  = errors.New("order not found")
	ErrBadField  = errors.New("invalid field value")
	errExhausted = errors.New("could not generate a unique order number")
)

const (
	numberPrefix   = "GC"
	suffixLen      = 4
	suffixAlphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
)

type Service struct {
	DB  *gorm.DB
	Now func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// GenerateOrderNumber builds prefix + millisecond fragment + random suffix.
// The suffix de-collides orders created within the same millisecond.
func GenerateOrderNumber(t time.Time) string {
	frag := strings.ToUpper(strconv.FormatInt(t.UnixMilli(), 36))
	var b strings.Builder
	b.WriteString(numberPrefix)
	b.WriteByte('-')
	b.WriteString(frag)
	b.WriteByte('-')
	for i := 0; i < suffixLen; i++ {
		n, err := rand.Int(rand.Reader, big.NewInt(int64(len(suffixAlphabet))))
		if err != nil {
			// crypto/rand only fails when the platform source is broken;
			// fall back to a clock-derived index.
			n = big.NewInt(time.Now().UnixNano() % int64(len(suffixAlphabet)))
		}
		b.WriteByte(suffixAlphabet[n.Int64()])
	}
	return b.String()
}

func (s *Service) newOrderNumber(ctx context.Context) (string, error) {
	for attempt := 0; attempt < 5; attempt++ {
		number := GenerateOrderNumber(s.now())
		var count int64
		if err := s.DB.WithContext(ctx).Model(&models.Order{}).
			Where("order_number = ?", number).Count(&count).Error; err != nil {
			return "", fmt.Errorf("check order number: %w", err)
		}
		if count == 0 {
			return number, nil
		}
	}
	return "", errExhausted
}

// Create persists a new order in pending/pending with a store-validated
// unique order number.
func (s *Service) Create(ctx context.Context, order *models.Order) error {
	number, err := s.newOrderNumber(ctx)
	if err != nil {
		return err
	}
	order.OrderNumber = number
	order.Status = models.OrderPending
	order.PaymentStatus = models.PaymentPending
	if err := s.DB.WithContext(ctx).Create(order).Error; err != nil {
		return fmt.Errorf("create order: %w", err)
	}
	return nil
}

// findByIntent locates the order a gateway event belongs to. When the intent
// id matches nothing (the order row may not have committed when the callback
// arrived), it falls back to an exact total match against the most recent
// pending order. That fallback is ambiguous when several pending orders share
// a total; "most recent wins" is the only tie-break.
func (s *Service) findByIntent(ctx context.Context, intentID string, amountCents int64) (*models.Order, error) {
	var order models.Order
	err := s.DB.WithContext(ctx).
		Where("pay_payment_intent_id = ?", intentID).
		First(&order).Error
	if err == nil {
		return &order, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("load order: %w", err)
	}

	if amountCents <= 0 {
		return nil, ErrNoMatch
	}
	total := float64(amountCents) / 100
	err = s.DB.WithContext(ctx).
		Where("status = ? AND price_total = ?", models.OrderPending, total).
		Order("created_at DESC").
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoMatch
		}
		return nil, fmt.Errorf("load order: %w", err)
	}
	return &order, nil
}

// PaymentSucceeded moves the matched order to confirmed/succeeded. The
// update is filtered on the pending status, so a redelivered event finds
// zero rows and the call stays idempotent.
func (s *Service) PaymentSucceeded(ctx context.Context, intentID string, amountCents int64) error {
	order, err := s.findByIntent(ctx, intentID, amountCents)
	if err != nil {
		return err
	}
	if order.Status == models.OrderConfirmed && order.PaymentStatus == models.PaymentSucceeded {
		return nil
	}
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderPending).
		Updates(map[string]any{
			"status":                models.OrderConfirmed,
			"payment_status":        models.PaymentSucceeded,
			"pay_payment_intent_id": intentID,
		})
	if res.Error != nil {
		return fmt.Errorf("confirm order: %w", res.Error)
	}
	return nil
}

// PaymentFailed moves the matched order to cancelled/failed.
func (s *Service) PaymentFailed(ctx context.Context, intentID string) error {
	order, err := s.findByIntent(ctx, intentID, 0)
	if err != nil {
		return err
	}
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ? AND status = ?", order.ID, models.OrderPending).
		Updates(map[string]any{
			"status":         models.OrderCancelled,
			"payment_status": models.PaymentFailed,
		})
	if res.Error != nil {
		return fmt.Errorf("cancel order: %w", res.Error)
	}
	return nil
}

// ChargeSucceeded back-fills the redacted card summary without touching the
// order status.
func (s *Service) ChargeSucceeded(ctx context.Context, intentID, brand, last4 string) error {
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("pay_payment_intent_id = ?", intentID).
		Updates(map[string]any{
			"pay_card_brand": brand,
			"pay_card_last4": last4,
		})
	if res.Error != nil {
		return fmt.Errorf("backfill card details: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNoMatch
	}
	return nil
}

// Dispute marks the order disputed and appends the reason to its notes.
func (s *Service) Dispute(ctx context.Context, intentID, reason string) error {
	order, err := s.findByIntent(ctx, intentID, 0)
	if err != nil {
		return err
	}
	notes := order.Notes
	if notes != "" {
		notes += "\n"
	}
	notes += "Dispute opened: " + reason
	res := s.DB.WithContext(ctx).Model(&models.Order{}).
		Where("id = ?", order.ID).
		Updates(map[string]any{
			"status": models.OrderDisputed,
			"notes":  notes,
		})
	if res.Error != nil {
		return fmt.Errorf("mark disputed: %w", res.Error)
	}
	return nil
}

// Admin-updatable fields. Anything else in an update payload is dropped, not
// errored.
var allowedUpdateFields = map[string]struct{}{
	"status":            {},
	"paymentStatus":     {},
	"trackingNumber":    {},
	"estimatedDelivery": {},
	"notes":             {},
}

// AdminUpdate applies a back-office edit restricted to the allowed field set,
// validating enum values before persisting.
func (s *Service) AdminUpdate(ctx context.Context, orderNumber string, fields map[string]any) (*models.Order, error) {
	updates := map[string]any{}
	for key, raw := range fields {
		if _, ok := allowedUpdateFields[key]; !ok {
			continue
		}
		switch key {
		case "status":
			v, _ := raw.(string)
			status, ok := models.ParseOrderStatus(v)
			if !ok {
				return nil, fmt.Errorf("%w: status %q", ErrBadField, v)
			}
			updates["status"] = status
		case "paymentStatus":
			v, _ := raw.(string)
			status, ok := models.ParsePaymentStatus(v)
			if !ok {
				return nil, fmt.Errorf("%w: paymentStatus %q", ErrBadField, v)
			}
			updates["payment_status"] = status
		case "trackingNumber":
			v, _ := raw.(string)
			updates["tracking_number"] = v
		case "estimatedDelivery":
			v, _ := raw.(string)
			t, err := time.Parse(time.RFC3339, v)
			if err != nil {
				return nil, fmt.Errorf("%w: estimatedDelivery %q", ErrBadField, v)
			}
			updates["estimated_delivery"] = t
		case "notes":
			v, _ := raw.(string)
			updates["notes"] = v
		}
	}

	var order models.Order
	if err := s.DB.WithContext(ctx).
		Where("order_number = ?", orderNumber).
		First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("load order: %w", err)
	}

	if len(updates) > 0 {
		if err := s.DB.WithContext(ctx).Model(&order).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("update order: %w", err)
		}
	}

	if err := s.DB.WithContext(ctx).Preload("Items").
		First(&order, order.ID).Error; err != nil {
		return nil, fmt.Errorf("reload order: %w", err)
	}
	return &order, nil
}
