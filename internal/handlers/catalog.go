package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/catalog"
)

type CatalogHandler struct {
	DB *gorm.DB
}

// List serves /api/products/:category/:segment. The segment is either "all"
// or a dimension-value shorthand like metal-rose-gold; explicit query
// parameters override whatever the segment implies.
func (h *CatalogHandler) List(c echo.Context) error {
	spec, ok := catalog.Lookup(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product category")
	}

	q, err := catalog.Build(spec, c.Param("segment"), c.QueryParams())
	if err != nil {
		if errors.Is(err, catalog.ErrBadSegment) {
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		return echo.NewHTTPError(http.StatusBadRequest, "invalid listing request")
	}

	var total int64
	if err := q.Scope(h.DB.Model(spec.Model())).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load "+spec.Key)
	}

	items := spec.Slice()
	if err := q.Apply(h.DB.Model(spec.Model())).Find(items).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load "+spec.Key)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": catalog.NewPageMeta(q.Page, q.Limit, total),
	})
}

// Get serves a single storefront-visible product.
func (h *CatalogHandler) Get(c echo.Context) error {
	spec, ok := catalog.Lookup(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product category")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	item := spec.Model()
	err = h.DB.Where("id = ? AND is_active = ? AND is_available = ?", id, true, true).
		First(item).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load "+spec.Key)
	}
	return c.JSON(http.StatusOK, item)
}
