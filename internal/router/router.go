// Package router wires the HTTP surface: public health/login endpoints and
// the JWT-protected, role-gated lifecycle routes.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/home-service-booking/internal/config"
	"github.com/iliyamo/home-service-booking/internal/handler"
	"github.com/iliyamo/home-service-booking/internal/middleware"
	"github.com/iliyamo/home-service-booking/internal/model"
)

// Handlers groups everything RegisterRoutes needs.
type Handlers struct {
	Auth          *handler.AuthHandler
	Bookings      *handler.BookingHandler
	Warranty      *handler.WarrantyHandler
	Notifications *handler.NotificationHandler
}

// RegisterRoutes attaches all routes to the Echo instance.  The rate
// limiter degrades to a pass-through when Redis is unavailable.
func RegisterRoutes(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	e.GET("/healthz", handler.Health)
	e.POST("/v1/auth/login", h.Auth.Login)

	v1 := e.Group("/v1")
	v1.Use(middleware.JWTAuth(cfg.JWTSecret))
	v1.Use(middleware.RequireRole(model.RoleClient, model.RoleProvider, model.RoleAdmin))
	v1.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	v1.GET("/me", h.Auth.Me)

	// Booking lifecycle.
	v1.POST("/bookings", h.Bookings.Create, middleware.RequireRole(model.RoleClient))
	v1.GET("/bookings", h.Bookings.List)
	v1.GET("/bookings/:id", h.Bookings.Get)
	v1.POST("/bookings/:id/assign", h.Bookings.Assign, middleware.RequireRole(model.RoleAdmin))
	v1.POST("/bookings/:id/accept", h.Bookings.Accept, middleware.RequireRole(model.RoleProvider))
	v1.POST("/bookings/:id/reject", h.Bookings.Reject, middleware.RequireRole(model.RoleProvider))
	v1.POST("/bookings/:id/cancel", h.Bookings.Cancel)
	v1.POST("/bookings/:id/in_progress", h.Bookings.Start, middleware.RequireRole(model.RoleProvider))
	v1.POST("/bookings/:id/complete", h.Bookings.Complete, middleware.RequireRole(model.RoleProvider))
	v1.POST("/bookings/:id/extra-services", h.Bookings.AddExtra, middleware.RequireRole(model.RoleProvider))
	v1.POST("/bookings/:id/extra-services/confirm", h.Bookings.ConfirmExtras, middleware.RequireRole(model.RoleClient))

	// Warranty lifecycle.
	v1.POST("/warranty", h.Warranty.Create, middleware.RequireRole(model.RoleClient))
	v1.GET("/warranty", h.Warranty.List, middleware.RequireRole(model.RoleAdmin))
	v1.GET("/warranty/client", h.Warranty.ListClient, middleware.RequireRole(model.RoleClient))
	v1.GET("/warranty/agent", h.Warranty.ListAgent, middleware.RequireRole(model.RoleProvider))
	v1.PATCH("/warranty/:id/admin", h.Warranty.AdminAction, middleware.RequireRole(model.RoleAdmin))
	v1.PATCH("/warranty/:id/agent", h.Warranty.AgentAction, middleware.RequireRole(model.RoleProvider))

	// Notification read/ack surface.
	v1.GET("/notifications", h.Notifications.List)
	v1.PUT("/notifications/:id/read", h.Notifications.MarkRead)
	v1.PUT("/notifications/read-all", h.Notifications.MarkAllRead)
	v1.DELETE("/notifications/:id", h.Notifications.Delete)
}
