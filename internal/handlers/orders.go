package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/cart"
	"github.com/gemcraft/storefront/internal/events"
	authmw "github.com/gemcraft/storefront/internal/middleware/auth"
	"github.com/gemcraft/storefront/internal/models"
	"github.com/gemcraft/storefront/internal/orders"
)

type OrderHandler struct {
	DB       *gorm.DB
	Orders   *orders.Service
	Producer *events.Producer

	TaxRate          float64
	FlatShipping     float64
	FreeShippingOver float64
}

// Checkout creates a pending order from the submitted cart. Line items are
// snapshotted; later catalog edits never touch placed orders.
func (h *OrderHandler) Checkout(c echo.Context) error {
	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var req struct {
		Items           []cart.Item            `json:"items"`
		ShippingAddress models.ShippingAddress `json:"shippingAddress"`
		PaymentIntentID string                 `json:"paymentIntentId"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}
	if len(req.Items) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "no items in cart")
	}
	if req.ShippingAddress.Line1 == "" || req.ShippingAddress.FullName == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "shipping address is required")
	}

	items := cart.Merge(req.Items, time.Now())

	subtotal := cart.Subtotal(items)
	shipping := h.FlatShipping
	if subtotal >= h.FreeShippingOver {
		shipping = 0
	}
	tax := round2(subtotal * h.TaxRate)
	total := round2(subtotal + shipping + tax)

	orderItems := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		oi := models.OrderItem{
			ProductID: it.ProductID,
			Category:  it.Category,
			Name:      it.Name,
			Metal:     it.Metal,
			Size:      it.Size,
			Price:     it.Price,
			Quantity:  it.Quantity,
		}
		if it.Customization != nil && it.Customization.IsCustomized {
			if data, err := json.Marshal(it.Customization); err == nil {
				s := string(data)
				oi.Customization = &s
			}
		}
		orderItems = append(orderItems, oi)
	}

	order := models.Order{
		UserID:          userID,
		Items:           orderItems,
		ShippingAddress: req.ShippingAddress,
		PaymentInfo:     models.PaymentInfo{PaymentIntentID: req.PaymentIntentID},
		Pricing: models.Pricing{
			Subtotal: subtotal,
			Shipping: shipping,
			Tax:      tax,
			Total:    total,
		},
	}
	if err := h.Orders.Create(c.Request().Context(), &order); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create order")
	}

	publish(c, h.Producer, events.TopicOrderEvents, fmt.Sprint(userID), map[string]any{
		"type":        "order_created",
		"userID":      userID,
		"orderNumber": order.OrderNumber,
		"total":       order.Pricing.Total,
	})

	return c.JSON(http.StatusCreated, order)
}

// ListMine returns the authenticated buyer's orders, newest first.
func (h *OrderHandler) ListMine(c echo.Context) error {
	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var list []models.Order
	err := h.DB.Preload("Items").
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&list).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load orders")
	}
	return c.JSON(http.StatusOK, list)
}

// GetMine returns one of the buyer's orders by order number.
func (h *OrderHandler) GetMine(c echo.Context) error {
	userID, ok := authmw.UserID(c)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}

	var order models.Order
	err := h.DB.Preload("Items").
		Where("order_number = ? AND user_id = ?", c.Param("number"), userID).
		First(&order).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load order")
	}
	return c.JSON(http.StatusOK, order)
}

// AdminList pages through all orders for the back office.
func (h *OrderHandler) AdminList(c echo.Context) error {
	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	q := h.DB.Model(&models.Order{})
	if status := c.QueryParam("status"); status != "" {
		parsed, ok := models.ParseOrderStatus(status)
		if !ok {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid status filter")
		}
		q = q.Where("status = ?", parsed)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load orders")
	}

	var list []models.Order
	err := q.Preload("Items").
		Order("created_at DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&list).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load orders")
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	return c.JSON(http.StatusOK, echo.Map{
		"data": list,
		"meta": echo.Map{
			"page":        page,
			"limit":       limit,
			"total":       total,
			"totalPages":  totalPages,
			"hasNextPage": int64(page) < totalPages,
		},
	})
}

// AdminUpdate edits an order within the allowed field set; unknown fields in
// the payload are dropped silently.
func (h *OrderHandler) AdminUpdate(c echo.Context) error {
	var fields map[string]any
	if err := c.Bind(&fields); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	order, err := h.Orders.AdminUpdate(c.Request().Context(), c.Param("number"), fields)
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "order not found")
		case errors.Is(err, orders.ErrBadField):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		default:
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to update order")
		}
	}

	publish(c, h.Producer, events.TopicOrderEvents, order.OrderNumber, map[string]any{
		"type":        "order_updated",
		"orderNumber": order.OrderNumber,
		"status":      order.Status,
	})

	return c.JSON(http.StatusOK, order)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
