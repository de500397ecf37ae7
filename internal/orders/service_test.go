package orders

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/gemcraft/storefront/internal/models"
)

func newOrderTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.AutoMigrate(&models.Order{}, &models.OrderItem{}))
	return db
}

func TestGenerateOrderNumberFormat(t *testing.T) {
	now := time.Now()
	number := GenerateOrderNumber(now)

	parts := strings.Split(number, "-")
	require.Len(t, parts, 3)
	require.Equal(t, "GC", parts[0])
	require.Equal(t, strings.ToUpper(parts[1]), parts[1])
	require.Len(t, parts[2], 4)
	for _, r := range parts[2] {
		require.Contains(t, suffixAlphabet, string(r))
	}

	// The random suffix keeps two orders from the same millisecond apart.
	require.NotEqual(t, GenerateOrderNumber(now), GenerateOrderNumber(now))
}

func TestCreateStartsPending(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	order := models.Order{UserID: 1, Pricing: models.Pricing{Total: 100}}

	require.NoError(t, svc.Create(context.Background(), &order))
	require.NotEmpty(t, order.OrderNumber)
	require.Equal(t, models.OrderPending, order.Status)
	require.Equal(t, models.PaymentPending, order.PaymentStatus)
}

func createTestOrder(t *testing.T, svc *Service, intentID string, total float64) *models.Order {
	t.Helper()
	order := models.Order{
		UserID:      1,
		PaymentInfo: models.PaymentInfo{PaymentIntentID: intentID},
		Pricing:     models.Pricing{Total: total},
	}
	require.NoError(t, svc.Create(context.Background(), &order))
	return &order
}

func TestPaymentSucceededByIntent(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "pi_123", 150)

	require.NoError(t, svc.PaymentSucceeded(ctx, "pi_123", 15000))

	var got models.Order
	require.NoError(t, svc.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderConfirmed, got.Status)
	require.Equal(t, models.PaymentSucceeded, got.PaymentStatus)
}

func TestPaymentSucceededIsIdempotent(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "pi_123", 150)

	require.NoError(t, svc.PaymentSucceeded(ctx, "pi_123", 15000))
	require.NoError(t, svc.PaymentSucceeded(ctx, "pi_123", 15000), "redelivery is a no-op")

	// A shipped order is never pulled back by a late redelivery.
	require.NoError(t, svc.DB.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("status", models.OrderShipped).Error)
	require.NoError(t, svc.PaymentSucceeded(ctx, "pi_123", 15000))

	var got models.Order
	require.NoError(t, svc.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderShipped, got.Status)
}

func TestPaymentSucceededAmountFallback(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "", 249.99)

	require.NoError(t, svc.PaymentSucceeded(ctx, "pi_late", 24999))

	var got models.Order
	require.NoError(t, svc.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderConfirmed, got.Status)
	require.Equal(t, "pi_late", got.PaymentInfo.PaymentIntentID, "the intent id is back-filled")
}

func TestPaymentSucceededNoMatch(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	createTestOrder(t, svc, "", 100)

	err := svc.PaymentSucceeded(context.Background(), "pi_unknown", 99999)
	require.ErrorIs(t, err, ErrNoMatch)
}

func TestPaymentFailed(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "pi_fail", 80)

	require.NoError(t, svc.PaymentFailed(ctx, "pi_fail"))

	var got models.Order
	require.NoError(t, svc.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderCancelled, got.Status)
	require.Equal(t, models.PaymentFailed, got.PaymentStatus)
}

func TestChargeSucceededBackfillsCard(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "pi_123", 150)
	require.NoError(t, svc.PaymentSucceeded(ctx, "pi_123", 15000))

	require.NoError(t, svc.ChargeSucceeded(ctx, "pi_123", "visa", "4242"))

	var got models.Order
	require.NoError(t, svc.DB.First(&got, order.ID).Error)
	require.Equal(t, "visa", got.PaymentInfo.CardBrand)
	require.Equal(t, "4242", got.PaymentInfo.CardLast4)
	require.Equal(t, models.OrderConfirmed, got.Status, "card backfill leaves the status alone")

	require.ErrorIs(t, svc.ChargeSucceeded(ctx, "pi_other", "visa", "0000"), ErrNoMatch)
}

func TestDispute(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "pi_123", 150)
	require.NoError(t, svc.DB.Model(&models.Order{}).
		Where("id = ?", order.ID).
		Update("notes", "gift wrap requested").Error)

	require.NoError(t, svc.Dispute(ctx, "pi_123", "fraudulent"))

	var got models.Order
	require.NoError(t, svc.DB.First(&got, order.ID).Error)
	require.Equal(t, models.OrderDisputed, got.Status)
	require.Equal(t, "gift wrap requested\nDispute opened: fraudulent", got.Notes)
}

func TestAdminUpdate(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "pi_123", 150)

	eta := time.Now().Add(72 * time.Hour).UTC().Truncate(time.Second)
	got, err := svc.AdminUpdate(ctx, order.OrderNumber, map[string]any{
		"status":            "shipped",
		"trackingNumber":    "1Z999",
		"estimatedDelivery": eta.Format(time.RFC3339),
		"orderNumber":       "HACKED",
		"userId":            42,
	})
	require.NoError(t, err)
	require.Equal(t, models.OrderShipped, got.Status)
	require.Equal(t, "1Z999", got.TrackingNumber)
	require.NotNil(t, got.EstimatedDelivery)
	require.True(t, got.EstimatedDelivery.Equal(eta))
	require.Equal(t, order.OrderNumber, got.OrderNumber, "unknown fields are dropped, not applied")
	require.Equal(t, uint(1), got.UserID)
}

func TestAdminUpdateRejectsBadValues(t *testing.T) {
	svc := &Service{DB: newOrderTestDB(t)}
	ctx := context.Background()
	order := createTestOrder(t, svc, "pi_123", 150)

	_, err := svc.AdminUpdate(ctx, order.OrderNumber, map[string]any{"status": "teleported"})
	require.ErrorIs(t, err, ErrBadField)

	_, err = svc.AdminUpdate(ctx, order.OrderNumber, map[string]any{"paymentStatus": "maybe"})
	require.ErrorIs(t, err, ErrBadField)

	_, err = svc.AdminUpdate(ctx, order.OrderNumber, map[string]any{"estimatedDelivery": "tomorrow"})
	require.ErrorIs(t, err, ErrBadField)

	_, err = svc.AdminUpdate(ctx, "GC-MISSING-XXXX", map[string]any{"notes": "hello"})
	require.ErrorIs(t, err, ErrNotFound)
}
