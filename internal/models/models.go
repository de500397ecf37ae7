package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func ParseRole(s string) (Role, bool) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, true
	case RoleAdmin:
		return RoleAdmin, true
	}
	return "", false
}

type User struct {
	ID            uint       `gorm:"primaryKey;autoIncrement" json:"id"`
	Email         string     `gorm:"unique;not null"          json:"email"`
	PasswordHash  string     `gorm:"not null"                 json:"-"`
	FirstName     string     `json:"firstName"`
	LastName      string     `json:"lastName"`
	Role          Role       `gorm:"not null;default:user"    json:"role"`
	RefreshToken  *string    `json:"-"`
	LoginAttempts int        `gorm:"default:0"                json:"-"`
	LockUntil     *time.Time `json:"-"`
	IsActive      bool       `gorm:"default:true"             json:"isActive"`
	LastLoginAt   *time.Time `json:"lastLoginAt"`
	CreatedAt     time.Time  `json:"createdAt"`
	UpdatedAt     time.Time  `json:"updatedAt"`
}

type OrderStatus string

const (
	OrderPending    OrderStatus = "pending"
	OrderConfirmed  OrderStatus = "confirmed"
	OrderProcessing OrderStatus = "processing"
	OrderShipped    OrderStatus = "shipped"
	OrderDelivered  OrderStatus = "delivered"
	OrderCancelled  OrderStatus = "cancelled"
	OrderRefunded   OrderStatus = "refunded"
	OrderDisputed   OrderStatus = "disputed"
)

func ParseOrderStatus(s string) (OrderStatus, bool) {
	switch OrderStatus(s) {
	case OrderPending, OrderConfirmed, OrderProcessing, OrderShipped,
		OrderDelivered, OrderCancelled, OrderRefunded, OrderDisputed:
		return OrderStatus(s), true
	}
	return "", false
}

type PaymentStatus string

const (
	PaymentPending        PaymentStatus = "pending"
	PaymentSucceeded      PaymentStatus = "succeeded"
	PaymentFailed         PaymentStatus = "failed"
	PaymentRequiresAction PaymentStatus = "requires_action"
	PaymentRefunded       PaymentStatus = "refunded"
)

func ParsePaymentStatus(s string) (PaymentStatus, bool) {
	switch PaymentStatus(s) {
	case PaymentPending, PaymentSucceeded, PaymentFailed,
		PaymentRequiresAction, PaymentRefunded:
		return PaymentStatus(s), true
	}
	return "", false
}

type ShippingAddress struct {
	FullName string `json:"fullName"`
	Line1    string `json:"line1"`
	Line2    string `json:"line2"`
	City     string `json:"city"`
	State    string `json:"state"`
	Zip      string `json:"zip"`
	Country  string `json:"country"`
	Phone    string `json:"phone"`
}

// PaymentInfo holds only the redacted card summary, never full card data.
type PaymentInfo struct {
	PaymentIntentID string `gorm:"index" json:"paymentIntentId"`
	CardBrand       string `json:"cardBrand"`
	CardLast4       string `json:"cardLast4"`
}

type Pricing struct {
	Subtotal float64 `json:"subtotal"`
	Shipping float64 `json:"shipping"`
	Tax      float64 `json:"tax"`
	Total    float64 `json:"total"`
}

type Order struct {
	ID                uint            `gorm:"primaryKey;autoIncrement"        json:"id"`
	OrderNumber       string          `gorm:"unique;not null"                 json:"orderNumber"`
	UserID            uint            `gorm:"index;not null"                  json:"userId"`
	Items             []OrderItem     `gorm:"foreignKey:OrderID"              json:"items"`
	ShippingAddress   ShippingAddress `gorm:"embedded;embeddedPrefix:ship_"   json:"shippingAddress"`
	PaymentInfo       PaymentInfo     `gorm:"embedded;embeddedPrefix:pay_"    json:"paymentInfo"`
	Pricing           Pricing         `gorm:"embedded;embeddedPrefix:price_"  json:"pricing"`
	Status            OrderStatus     `gorm:"not null;default:pending;index"  json:"status"`
	PaymentStatus     PaymentStatus   `gorm:"not null;default:pending"        json:"paymentStatus"`
	TrackingNumber    string          `json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `json:"estimatedDelivery,omitempty"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"createdAt"`
	UpdatedAt         time.Time       `json:"updatedAt"`
}

// OrderItem is a snapshot of a purchased line at checkout time, not a live
// reference into the catalog tables.
type OrderItem struct {
	ID            uint    `gorm:"primaryKey;autoIncrement" json:"id"`
	OrderID       uint    `gorm:"index;not null"           json:"orderId"`
	ProductID     uint    `gorm:"not null"                 json:"productId"`
	Category      string  `gorm:"not null"                 json:"category"`
	Name          string  `json:"name"`
	SKU           string  `json:"sku"`
	Metal         string  `json:"metal,omitempty"`
	Size          string  `json:"size,omitempty"`
	Price         float64 `gorm:"not null"                 json:"price"`
	Quantity      uint    `gorm:"default:1"                json:"quantity"`
	Customization *string `json:"customization,omitempty"`
}
