package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/catalog"
	"github.com/gemcraft/storefront/internal/events"
	"github.com/gemcraft/storefront/internal/models"
)

// AdminCatalogHandler is the back-office CRUD surface over every product
// category. The storefront never writes catalog rows.
type AdminCatalogHandler struct {
	DB       *gorm.DB
	Producer *events.Producer
}

type catalogRecord interface {
	Base() *models.CatalogBase
}

func (h *AdminCatalogHandler) Create(c echo.Context) error {
	spec, ok := catalog.Lookup(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product category")
	}

	item := spec.Model()
	if err := c.Bind(item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	base := item.(catalogRecord).Base()
	base.ID = 0
	if base.Name == "" || base.Price <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "name and a positive price are required")
	}
	if err := base.Gallery.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.DB.Create(item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to create "+spec.Key)
	}

	publish(c, h.Producer, events.TopicProductEvents, spec.Key, map[string]any{
		"type":      "product_created",
		"category":  spec.Key,
		"productID": base.ID,
		"name":      base.Name,
	})

	return c.JSON(http.StatusCreated, item)
}

func (h *AdminCatalogHandler) Update(c echo.Context) error {
	spec, ok := catalog.Lookup(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product category")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	item := spec.Model()
	if err := h.DB.First(item, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "product not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load "+spec.Key)
	}

	if err := c.Bind(item); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	base := item.(catalogRecord).Base()
	base.ID = uint(id)
	if err := base.Gallery.Validate(); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	if err := h.DB.Save(item).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to update "+spec.Key)
	}

	publish(c, h.Producer, events.TopicProductEvents, spec.Key, map[string]any{
		"type":      "product_updated",
		"category":  spec.Key,
		"productID": base.ID,
		"name":      base.Name,
	})

	return c.JSON(http.StatusOK, item)
}

func (h *AdminCatalogHandler) Delete(c echo.Context) error {
	spec, ok := catalog.Lookup(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product category")
	}
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid product id")
	}

	if err := h.DB.Delete(spec.Model(), id).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to delete "+spec.Key)
	}

	publish(c, h.Producer, events.TopicProductEvents, spec.Key, map[string]any{
		"type":      "product_deleted",
		"category":  spec.Key,
		"productID": id,
	})

	return c.NoContent(http.StatusNoContent)
}

// AdminList returns all rows of a category including inactive ones, unlike
// the storefront listing.
func (h *AdminCatalogHandler) List(c echo.Context) error {
	spec, ok := catalog.Lookup(c.Param("category"))
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown product category")
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 1 || limit > 100 {
		limit = spec.DefaultLimit
	}

	var total int64
	if err := h.DB.Model(spec.Model()).Count(&total).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load "+spec.Key)
	}

	items := spec.Slice()
	err := h.DB.Model(spec.Model()).
		Order("id DESC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(items).Error
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to load "+spec.Key)
	}

	return c.JSON(http.StatusOK, echo.Map{
		"data": items,
		"meta": catalog.NewPageMeta(page, limit, total),
	})
}
