package handlers

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/cart"
	"github.com/gemcraft/storefront/internal/catalog"
)

type CartHandler struct {
	DB *gorm.DB
}

// MergeCart canonicalizes a client-held cart: duplicate off-the-shelf lines
// collapse into one with summed quantity, customized lines stay distinct, and
// every line is repriced from the store.
func (h *CartHandler) MergeCart(c echo.Context) error {
	var req struct {
		Items []cart.Item `json:"items"`
	}
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	merged := cart.Merge(req.Items, time.Now())

	for i := range merged {
		price, err := h.currentPrice(&merged[i])
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return echo.NewHTTPError(http.StatusBadRequest, "cart references an unavailable product")
			}
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to price cart")
		}
		merged[i].Price = price
	}

	return c.JSON(http.StatusOK, echo.Map{
		"items":    merged,
		"subtotal": cart.Subtotal(merged),
	})
}

// currentPrice reprices a line from the store: sale price when one is set,
// stone plus setting for customized builds.
func (h *CartHandler) currentPrice(it *cart.Item) (float64, error) {
	if it.Customization != nil && it.Customization.IsCustomized {
		var total float64
		if st := it.Customization.Stone; st != nil {
			p, err := h.lookupPrice(st.Category, st.ID)
			if err != nil {
				return 0, err
			}
			total += p
		}
		if se := it.Customization.Setting; se != nil {
			p, err := h.lookupPrice("settings", se.ID)
			if err != nil {
				return 0, err
			}
			total += p
		}
		return total, nil
	}
	return h.lookupPrice(it.Category, it.ProductID)
}

func (h *CartHandler) lookupPrice(category string, id uint) (float64, error) {
	spec, ok := catalog.Lookup(category)
	if !ok {
		return 0, gorm.ErrRecordNotFound
	}
	var row struct {
		Price     float64
		SalePrice *float64
	}
	err := h.DB.Table(spec.Table).
		Select("price, sale_price").
		Where("id = ? AND is_active = ? AND is_available = ?", id, true, true).
		Take(&row).Error
	if err != nil {
		return 0, err
	}
	if row.SalePrice != nil {
		return *row.SalePrice, nil
	}
	return row.Price, nil
}
