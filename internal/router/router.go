package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/freetravelapp/freetravel-server/internal/config"
	"github.com/freetravelapp/freetravel-server/internal/handler"
	"github.com/freetravelapp/freetravel-server/internal/middleware"
)

// Handlers bundles every handler the router wires up.
type Handlers struct {
	Auth          *handler.AuthHandler
	Users         *handler.UserHandler
	Routes        *handler.RouteHandler
	Requests      *handler.RequestHandler
	Notifications *handler.NotificationHandler
	Conversations *handler.ConversationHandler
	Reports       *handler.ReportHandler
}

// RegisterRoutes registers routes that do not require authentication on
// the provided Echo instance.  Currently it exposes only a health check.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAPI registers the full API surface.  Unauthenticated
// operations live under /v1/auth, protected endpoints under /v1 behind
// the JWT middleware, and moderation endpoints additionally require the
// admin claim.  The Redis-backed token bucket shapes traffic on every
// /v1 route; the response cache is applied only to the active-route
// listing because chat and notifications are client-polled and must
// stay fresh.
func RegisterAPI(e *echo.Echo, h Handlers, jwtSecret string, rdb *redis.Client) {
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb)

	// Account lifecycle: register, confirm by emailed code, login.
	g := e.Group("/v1/auth", limiter)
	g.POST("/register", h.Auth.Register)
	g.POST("/confirm", h.Auth.Confirm)
	g.POST("/login", h.Auth.Login)

	auth := e.Group("/v1")
	auth.Use(limiter)
	auth.Use(middleware.JWTAuth(jwtSecret))

	auth.GET("/me", h.Auth.Me)

	// Profiles and ratings.
	auth.GET("/users/:username", h.Users.Profile)
	auth.POST("/users/:username/comments", h.Users.AddComment)
	auth.DELETE("/users/me", h.Users.DeleteMe)

	// Routes.
	auth.POST("/routes", h.Routes.Create)
	auth.GET("/routes", h.Routes.List, cache)
	auth.PATCH("/routes/:id/complete", h.Routes.Complete)

	// Ride requests.
	auth.POST("/requests", h.Requests.Create)
	auth.GET("/requests", h.Requests.ListMine)
	auth.PATCH("/requests/:id", h.Requests.Decide)

	// Notifications.
	auth.GET("/notifications/:username", h.Notifications.ListForUser)
	auth.PATCH("/notifications/:id", h.Notifications.Update)

	// Conversations and messages.
	auth.POST("/conversations/start", h.Conversations.Start)
	auth.GET("/conversations", h.Conversations.List)
	auth.GET("/conversations/:id/messages", h.Conversations.Messages)
	auth.POST("/conversations/:id/messages", h.Conversations.Send)
	auth.PATCH("/conversations/:id/read", h.Conversations.MarkRead)

	// Reports.  Filing is open to every authenticated user; moderation
	// requires the admin claim.
	auth.POST("/reports", h.Reports.Create)

	admin := auth.Group("", middleware.RequireAdmin())
	admin.PATCH("/reports/:id/status", h.Reports.UpdateStatus)
}
