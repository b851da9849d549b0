package app

import (
	"github.com/gin-gonic/gin"
	"github.com/newrelic/go-agent/v3/integrations/nrgin"
	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/handler"
	"dispatch/internal/middleware"
)

// RouterDeps contains all dependencies needed for the router.
type RouterDeps struct {
	BookingHandler *handler.BookingHandler
	RosterHandler  *handler.RosterHandler
	DriverHandler  *handler.DriverHandler
	RedisClient    *redis.Client
	NewRelicApp    *newrelic.Application
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

	router.Use(middleware.IdempotencyMiddleware(deps.RedisClient))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// API v1 routes.
	v1 := router.Group("/v1")
	{
		// Booking routes (dispatcher console).
		bookings := v1.Group("/bookings")
		{
			bookings.POST("", deps.BookingHandler.Create)
			bookings.GET("", deps.BookingHandler.List)
			bookings.GET("/:id", deps.BookingHandler.Get)
			bookings.PATCH("/:id", deps.BookingHandler.Update)
			bookings.POST("/:id/assign", deps.BookingHandler.Assign)
			bookings.POST("/:id/auto-assign", deps.BookingHandler.AutoAssign)
			bookings.POST("/:id/status", deps.BookingHandler.ChangeStatus)
			bookings.POST("/:id/complete", deps.BookingHandler.Complete)
			bookings.GET("/:id/audit", deps.BookingHandler.Audit)
		}

		v1.GET("/flat-rates", deps.BookingHandler.FlatRates)

		// Roster routes.
		actives := v1.Group("/actives")
		{
			actives.POST("", deps.RosterHandler.Add)
			actives.GET("", deps.RosterHandler.List)
			actives.GET("/:id", deps.RosterHandler.Get)
			actives.PATCH("/:id", deps.RosterHandler.Update)
			actives.POST("/:id/status", deps.RosterHandler.SetStatus)
			actives.GET("/:id/history", deps.RosterHandler.History)
		}

		// Driver app routes.
		driver := v1.Group("/driver")
		{
			driver.GET("/current", deps.DriverHandler.Current)
			driver.POST("/presence", deps.DriverHandler.UpdatePresence)
			driver.POST("/flagdown", deps.DriverHandler.Flagdown)
			driver.POST("/bookings/:id/ack", deps.DriverHandler.Acknowledge)
			driver.POST("/bookings/:id/decline", deps.DriverHandler.Decline)
			driver.POST("/bookings/:id/status", deps.DriverHandler.ChangeStatus)
			driver.POST("/bookings/:id/location", deps.DriverHandler.ReportLocation)
			driver.POST("/bookings/:id/complete", deps.DriverHandler.Complete)
		}
	}

	return router
}
