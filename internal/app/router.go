package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"carpool/internal/handler"
	"carpool/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	UserHandler    *handler.UserHandler
	RideHandler    *handler.RideHandler
	RequestHandler *handler.RequestHandler
	BookingHandler *handler.BookingHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
	JWTSecret      string
	DevTokens      bool
}

// NewRouter creates a new Gin router with all routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	router := gin.New()

	// Global middleware.
	router.Use(gin.Recovery())
	router.Use(gin.Logger())
	router.Use(middleware.CORSMiddleware())

	if deps.NewRelicApp != nil {
		router.Use(nrgin.Middleware(deps.NewRelicApp))
	}

	if deps.RedisClient != nil {
		router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))
	}

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")

	// Public routes.
	{
		v1.POST("/users", deps.UserHandler.Register)
		if deps.DevTokens {
			// Unauthenticated email-to-token exchange, local development
			// only. Production token issuance is the identity provider's
			// job.
			v1.POST("/auth/token", deps.UserHandler.Token)
		}
		v1.GET("/users/:id", deps.UserHandler.Get)
		v1.GET("/rides", deps.RideHandler.GetAll)
		v1.GET("/rides/search", deps.RideHandler.Search)
		v1.GET("/rides/:id", deps.RideHandler.GetRide)
		v1.GET("/rides/:id/summary", deps.RideHandler.GetRideSummary)
	}

	// Authenticated routes.
	authed := v1.Group("")
	authed.Use(middleware.AuthMiddleware(deps.JWTSecret))
	{
		authed.GET("/me", deps.UserHandler.GetMe)

		// Ride lifecycle. Driver only, enforced in the service layer.
		authed.POST("/rides", deps.RideHandler.CreateRide)
		authed.GET("/me/rides", deps.RideHandler.GetMine)
		authed.POST("/rides/:id/cancel", deps.RideHandler.CancelRide)
		authed.POST("/rides/:id/start", deps.RideHandler.StartRide)
		authed.POST("/rides/:id/complete", deps.RideHandler.CompleteRide)
		authed.GET("/rides/:id/bookings", deps.RideHandler.GetRideBookings)

		// Seat requests.
		authed.POST("/requests", deps.RequestHandler.Create)
		authed.GET("/me/requests", deps.RequestHandler.GetMine)
		authed.GET("/me/driver/requests", deps.RequestHandler.GetIncoming)
		authed.GET("/me/driver/requests/count", deps.RequestHandler.GetIncomingCount)
		authed.POST("/requests/:id/accept", deps.RequestHandler.Accept)
		authed.POST("/requests/:id/decline", deps.RequestHandler.Decline)
		authed.POST("/requests/:id/viewed", deps.RequestHandler.MarkViewed)
		authed.DELETE("/requests/:id", deps.RequestHandler.Cancel)

		// Bookings.
		authed.POST("/bookings", deps.BookingHandler.Create)
		authed.GET("/me/bookings", deps.BookingHandler.GetMine)
		authed.GET("/bookings/:id", deps.BookingHandler.Get)
		authed.POST("/bookings/:id/confirm", deps.BookingHandler.Confirm)
		authed.POST("/bookings/:id/reject", deps.BookingHandler.Reject)
		authed.POST("/bookings/:id/cancel", deps.BookingHandler.Cancel)
		authed.POST("/bookings/:id/complete", deps.BookingHandler.Complete)
		authed.POST("/bookings/:id/rate", deps.BookingHandler.Rate)
	}

	return router
}
