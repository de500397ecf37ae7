package handlers

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/gemcraft/storefront/internal/events"
)

// publish fans a domain event out to kafka. Failures are logged and never
// fail the request; with no producer wired (tests) it is a no-op.
func publish(c echo.Context, p *events.Producer, topic, key string, event map[string]any) {
	if p == nil {
		return
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()
	if err := p.PublishEvent(ctx, topic, key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}
