package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/newrelic/go-agent/v3/newrelic"
	"github.com/redis/go-redis/v9"

	"dispatch/internal/app"
	"dispatch/internal/config"
	"dispatch/internal/geo"
	"dispatch/internal/handler"
	internalRedis "dispatch/internal/redis"
	"dispatch/internal/repository/postgres"
	"dispatch/internal/service"
)

func main() {
	// Load configuration.
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Initialize New Relic first so the database driver can be instrumented.
	var nrApp *newrelic.Application
	var err error
	if cfg.NewRelic.Enabled && cfg.NewRelic.LicenseKey != "" {
		nrApp, err = newrelic.NewApplication(
			newrelic.ConfigAppName(cfg.NewRelic.AppName),
			newrelic.ConfigLicense(cfg.NewRelic.LicenseKey),
			newrelic.ConfigDistributedTracerEnabled(true),
			newrelic.ConfigAppLogForwardingEnabled(true),
		)
		if err != nil {
			log.Printf("failed to initialize New Relic: %v", err)
		} else {
			log.Printf("New Relic enabled: app=%s", cfg.NewRelic.AppName)
		}
	}

	db, err := app.NewDatabase(ctx, cfg.Database, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Connected to PostgreSQL")

	redisClient, err := app.NewRedisClient(ctx, cfg.Redis, nrApp)
	if err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	log.Println("Connected to Redis")

	// Geocoding is optional; without a key bookings fall back to
	// straight-line distance estimates.
	var geocoder geo.Geocoder
	if cfg.Maps.APIKey != "" {
		geocoder, err = geo.NewMapsGeocoder(cfg.Maps.APIKey)
		if err != nil {
			log.Fatalf("failed to initialize maps client: %v", err)
		}
		log.Println("Google Maps geocoding enabled")
	}

	server := wireServer(db, redisClient, geocoder, nrApp, cfg)

	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("server error: %v", err)
		}
	}()

	// Graceful shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// wireServer wires all dependencies and returns the HTTP server.
func wireServer(db *sql.DB, redisClient *redis.Client, geocoder geo.Geocoder, nrApp *newrelic.Application, cfg *config.Config) *http.Server {
	// Redis stores.
	locationStore := internalRedis.NewLocationStore(redisClient)
	lockStore := internalRedis.NewLockStore(redisClient)
	cacheStore := internalRedis.NewCacheStore(redisClient)
	notifier := internalRedis.NewNotifier(redisClient)

	// Repositories.
	activeRepo := postgres.NewActiveRepository(db)
	bookingRepo := postgres.NewBookingRepository(db)
	fareRepo := postgres.NewFareRepository(db)
	settingsRepo := postgres.NewSettingsRepository(db)

	// Services.
	pushService := service.NewPushService()
	rosterService := service.NewRosterService(activeRepo, locationStore, cacheStore, notifier)
	dispatchService := service.NewDispatchService(bookingRepo, activeRepo, settingsRepo, locationStore, lockStore, cacheStore, notifier, pushService)
	bookingService := service.NewBookingService(bookingRepo, activeRepo, settingsRepo, fareRepo, geocoder, dispatchService, notifier)
	fareService := service.NewFareService(bookingRepo, fareRepo, notifier)

	// Handlers.
	bookingHandler := handler.NewBookingHandler(bookingService, dispatchService, fareService)
	rosterHandler := handler.NewRosterHandler(rosterService)
	driverHandler := handler.NewDriverHandler(bookingService, dispatchService, fareService, rosterService)

	router := app.NewRouter(app.RouterDeps{
		BookingHandler: bookingHandler,
		RosterHandler:  rosterHandler,
		DriverHandler:  driverHandler,
		RedisClient:    redisClient,
		NewRelicApp:    nrApp,
	})

	return &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}
}
