package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/elastic/go-elasticsearch/v9"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/gemcraft/storefront/internal/config"
	"github.com/gemcraft/storefront/internal/events"
	"github.com/gemcraft/storefront/internal/handlers"
	"github.com/gemcraft/storefront/internal/logging"
	authmw "github.com/gemcraft/storefront/internal/middleware/auth"
	"github.com/gemcraft/storefront/internal/orders"
	"github.com/gemcraft/storefront/internal/search"
	"github.com/gemcraft/storefront/internal/service/token"
	"github.com/gemcraft/storefront/internal/session"
	httpserver "github.com/gemcraft/storefront/internal/transport/http"
)

func main() {
	configuration, err := config.LoadConfig()
	if err != nil {
		log.Fatal(err)
	}
	config.MustNonEmpty(configuration.JWT_SECRET, "JWT_SECRET")
	config.MustNonEmpty(configuration.REFRESH_SECRET, "REFRESH_SECRET")
	config.MustNonEmpty(configuration.WEBHOOK_SECRET, "WEBHOOK_SECRET")

	logger := logging.New(configuration.LogLevel)

	db, err := config.InitDB(configuration)
	if err != nil {
		log.Fatalf("database init error: %v", err)
	}

	var sessions session.Store
	var registry *session.Registry
	if configuration.SESSION_BACKEND == "redis" {
		client := config.NewRedisClient(configuration)
		if client == nil {
			log.Fatal("SESSION_BACKEND=redis but redis is unreachable")
		}
		sessions = session.NewRedisStore(client, 2*time.Hour)
	} else {
		registry = session.NewRegistry(2*time.Hour, 10*time.Minute)
		sessions = registry
	}

	var producer *events.Producer
	if len(configuration.KAFKA_BROKERS) > 0 {
		producer = events.NewProducer(configuration.KAFKA_BROKERS)
	}

	var esClient *elasticsearch.Client
	if configuration.ES_URL != "" {
		esClient, err = search.NewClient(configuration)
		if err != nil {
			log.Fatalf("elasticsearch init error: %v", err)
		}
	}

	tokenSvc := &token.Service{
		DB:            db,
		JWTSecret:     []byte(configuration.JWT_SECRET),
		RefreshSecret: []byte(configuration.REFRESH_SECRET),
		Sessions:      sessions,
	}
	orderSvc := &orders.Service{DB: db}

	e := echo.New()
	e.HideBanner = true
	e.Pre(middleware.RemoveTrailingSlash())
	e.Use(middleware.Recover(), middleware.RequestID(), logging.RequestLogger(logger))

	deps := httpserver.Deps{
		DB:          db,
		Gate:        &authmw.Gate{Tokens: tokenSvc},
		AuthHandler: &handlers.AuthHandler{DB: db, Tokens: tokenSvc, Producer: producer},
		Catalog:     &handlers.CatalogHandler{DB: db},
		Cart:        &handlers.CartHandler{DB: db},
		Orders: &handlers.OrderHandler{
			DB:               db,
			Orders:           orderSvc,
			Producer:         producer,
			TaxRate:          configuration.TaxRate,
			FlatShipping:     configuration.FlatShipping,
			FreeShippingOver: configuration.FreeShippingOver,
		},
		AdminCatalog: &handlers.AdminCatalogHandler{DB: db, Producer: producer},
		Webhook: &handlers.WebhookHandler{
			Orders:   orderSvc,
			Secret:   []byte(configuration.WEBHOOK_SECRET),
			Producer: producer,
		},
		Search: &handlers.SearchHandler{ES: esClient, Index: configuration.ES_INDEX},
	}
	httpserver.Register(e, &deps)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", configuration.ServerPort),
		Handler:      e,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()
	logger.Info("server started", "port", configuration.ServerPort)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server shutdown error", "error", err)
	}

	if registry != nil {
		registry.Close()
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka close error", "error", err)
		}
	}
	if sqlDB, err := db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			logger.Error("db close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
}
