package handlers

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/gemcraft/storefront/internal/models"
)

func TestAdminCreateProduct(t *testing.T) {
	env := newTestEnv(t)
	h := &AdminCatalogHandler{DB: env.DB}

	rec, c := env.doJSONRequest(http.MethodPost, "/api/admin/necklaces", map[string]any{
		"name":  "Pearl Strand",
		"sku":   "NCK-001",
		"price": 450,
		"metal": "Yellow Gold",
		"gallery": map[string]any{
			"Yellow Gold": []string{"a.jpg", "b.jpg"},
		},
	})
	c.SetParamNames("category")
	c.SetParamValues("necklaces")
	require.NoError(t, h.Create(c))
	require.Equal(t, http.StatusCreated, rec.Code)

	var got models.Necklace
	decodeBody(t, rec, &got)
	require.NotZero(t, got.ID)
	require.Equal(t, "Pearl Strand", got.Name)

	var count int64
	require.NoError(t, env.DB.Model(&models.Necklace{}).Count(&count).Error)
	require.EqualValues(t, 1, count)
}

func TestAdminCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	h := &AdminCatalogHandler{DB: env.DB}

	_, c := env.doJSONRequest(http.MethodPost, "/api/admin/necklaces", map[string]any{"price": 100})
	c.SetParamNames("category")
	c.SetParamValues("necklaces")
	requireHTTPError(t, h.Create(c), http.StatusBadRequest)

	_, c = env.doJSONRequest(http.MethodPost, "/api/admin/necklaces", map[string]any{"name": "Free", "price": 0})
	c.SetParamNames("category")
	c.SetParamValues("necklaces")
	requireHTTPError(t, h.Create(c), http.StatusBadRequest)

	_, c = env.doJSONRequest(http.MethodPost, "/api/admin/necklaces", map[string]any{
		"name": "Odd Gallery", "price": 100,
		"gallery": map[string]any{"Copper": []string{"a.jpg"}},
	})
	c.SetParamNames("category")
	c.SetParamValues("necklaces")
	requireHTTPError(t, h.Create(c), http.StatusBadRequest)

	_, c = env.doJSONRequest(http.MethodPost, "/api/admin/snowglobes", map[string]any{"name": "X", "price": 1})
	c.SetParamNames("category")
	c.SetParamValues("snowglobes")
	requireHTTPError(t, h.Create(c), http.StatusNotFound)
}

func TestAdminUpdateProduct(t *testing.T) {
	env := newTestEnv(t)
	h := &AdminCatalogHandler{DB: env.DB}

	require.NoError(t, env.DB.Create(&models.Earring{
		CatalogBase: models.CatalogBase{Name: "Studs", Price: 200, IsActive: true, IsAvailable: true},
		Metal:       "White Gold",
	}).Error)

	rec, c := env.doJSONRequest(http.MethodPatch, "/api/admin/earrings/1", map[string]any{
		"name":  "Diamond Studs",
		"price": 250,
	})
	c.SetParamNames("category", "id")
	c.SetParamValues("earrings", "1")
	require.NoError(t, h.Update(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var got models.Earring
	require.NoError(t, env.DB.First(&got, 1).Error)
	require.Equal(t, "Diamond Studs", got.Name)
	require.Equal(t, 250.0, got.Price)
	require.Equal(t, "White Gold", got.Metal, "unmentioned fields keep their values")

	_, c = env.doJSONRequest(http.MethodPatch, "/api/admin/earrings/42", map[string]any{"name": "Ghost"})
	c.SetParamNames("category", "id")
	c.SetParamValues("earrings", "42")
	requireHTTPError(t, h.Update(c), http.StatusNotFound)
}

func TestAdminDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	h := &AdminCatalogHandler{DB: env.DB}

	require.NoError(t, env.DB.Create(&models.Gemstone{
		CatalogBase: models.CatalogBase{Name: "Sapphire", Price: 900, IsActive: true, IsAvailable: true},
		Kind:        "Sapphire",
	}).Error)

	rec, c := env.doJSONRequest(http.MethodDelete, "/api/admin/gemstones/1", nil)
	c.SetParamNames("category", "id")
	c.SetParamValues("gemstones", "1")
	require.NoError(t, h.Delete(c))
	require.Equal(t, http.StatusNoContent, rec.Code)

	var count int64
	require.NoError(t, env.DB.Model(&models.Gemstone{}).Count(&count).Error)
	require.Zero(t, count)
}

func TestAdminListIncludesHiddenRows(t *testing.T) {
	env := newTestEnv(t)
	h := &AdminCatalogHandler{DB: env.DB}

	require.NoError(t, env.DB.Create(&models.Bracelet{
		CatalogBase: models.CatalogBase{Name: "Live", Price: 100, IsActive: true, IsAvailable: true},
	}).Error)
	require.NoError(t, env.DB.Create(&models.Bracelet{
		CatalogBase: models.CatalogBase{Name: "Hidden", Price: 100, IsActive: false, IsAvailable: false},
	}).Error)

	rec, c := env.doJSONRequest(http.MethodGet, "/api/admin/bracelets", nil)
	c.SetParamNames("category")
	c.SetParamValues("bracelets")
	require.NoError(t, h.List(c))

	var resp struct {
		Data []models.Bracelet `json:"data"`
	}
	decodeBody(t, rec, &resp)
	require.Len(t, resp.Data, 2, "the back office sees hidden rows too")
}
