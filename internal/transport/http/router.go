package httpserver

import (
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/gemcraft/storefront/internal/handlers"
	authmw "github.com/gemcraft/storefront/internal/middleware/auth"
	"github.com/gemcraft/storefront/internal/middleware/csrf"
)

type Deps struct {
	DB           *gorm.DB
	Gate         *authmw.Gate
	AuthHandler  *handlers.AuthHandler
	Catalog      *handlers.CatalogHandler
	Cart         *handlers.CartHandler
	Orders       *handlers.OrderHandler
	AdminCatalog *handlers.AdminCatalogHandler
	Webhook      *handlers.WebhookHandler
	Search       *handlers.SearchHandler
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	api := e.Group("/api")

	// Auth routes manage their own verification and sit outside the gate.
	auth := api.Group("/auth")
	auth.POST("/register", d.AuthHandler.Register)
	auth.POST("/login", d.AuthHandler.Login)
	auth.POST("/refresh", d.AuthHandler.Refresh)
	auth.POST("/logout", d.AuthHandler.Logout)
	auth.POST("/logout-all", d.AuthHandler.LogoutAll, d.Gate.RequireAuth())

	products := api.Group("/products")
	products.GET("/:category/item/:id", d.Catalog.Get)
	products.GET("/:category/:segment", d.Catalog.List)

	api.GET("/search", d.Search.Search)

	api.POST("/cart/merge", d.Cart.MergeCart)

	orders := api.Group("/orders", d.Gate.RequireAuth())
	orders.POST("", d.Orders.Checkout)
	orders.GET("", d.Orders.ListMine)
	orders.GET("/:number", d.Orders.GetMine)

	admin := api.Group("/admin", d.Gate.RequireAdmin(), csrf.Middleware(csrf.DefaultConfig()))
	admin.GET("/orders", d.Orders.AdminList)
	admin.PATCH("/orders/:number", d.Orders.AdminUpdate)
	admin.GET("/:category", d.AdminCatalog.List)
	admin.POST("/:category", d.AdminCatalog.Create)
	admin.PATCH("/:category/:id", d.AdminCatalog.Update)
	admin.DELETE("/:category/:id", d.AdminCatalog.Delete)

	api.POST("/webhooks/payment", d.Webhook.HandlePayment)
}
