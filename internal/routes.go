package internal

import (
	"time"

	"log/slog"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "storepulse/api/v1"
	"storepulse/internal/carts"
	"storepulse/internal/config"
	"storepulse/internal/metrics"
	"storepulse/internal/settings"
	"storepulse/internal/tracker"
	"storepulse/internal/transients"
)

// publicCORSConfig is the CORS setup shared by the public tracking
// endpoints, permissive so storefront pages can post cross-origin.
var publicCORSConfig = &cors.Config{
	AllowOrigins: "*",
	AllowMethods: "POST,GET,OPTIONS",
	AllowHeaders: "Origin, Content-Type, Accept, Authorization, Referrer, User-Agent",
}

// MountAppRoutes mounts all application routes using cartridge's route API
func MountAppRoutes(srv *cartridge.Server) {
	cfg := config.GetConfig()
	logger := srv.GetLogger()
	dbManager := srv.GetDBManager()

	metricStore := metrics.NewStore(dbManager, logger)
	transientStore := transients.NewStore(dbManager, logger)
	cartStore := carts.NewStore(transientStore, cfg.CartSnapshotTTL())
	notifier := tracker.NewNotifier(logger)
	t := tracker.NewTracker(metricStore, transientStore, cartStore, notifier, cfg, logger)

	// Without a storefront URL the engine cannot attribute traffic or
	// trust referrers. Disable tracking and leave a notice for the
	// operator instead of counting garbage.
	if cfg.SiteURL == "" && cfg.IsProduction() {
		logger.Warn("No storefront URL configured, tracking disabled")
		t.Disable()
		if err := settings.RaiseNotice(dbManager.GetConnection(), settings.NoticeMissingStorefront); err != nil {
			logger.Error("Failed to raise missing storefront notice", slog.Any("error", err))
		}
	}

	trackHandler := v1.NewTrackHandler(t, cfg)
	metricsHandler := v1.NewMetricsHandler(metricStore)
	noticesHandler := v1.NewNoticesHandler()

	// Rate limiting only bites in production; in development and test
	// it would interfere with exercising the endpoints
	conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
		return func(c *fiber.Ctx) error {
			if cfg.IsProduction() {
				return limiter(c)
			}
			return c.Next()
		}
	}

	// 120/min per IP absorbs legitimate storefront traffic while
	// keeping scripted abuse out
	publicRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
		cartridgemiddleware.WithMax(120),
		cartridgemiddleware.WithDuration(time.Minute),
	))

	publicAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		WriteConcurrency: false,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	readAPIConfig := &cartridge.RouteConfig{
		EnableCORS:       true,
		CustomMiddleware: []fiber.Handler{publicRateLimiter},
		CORSConfig:       publicCORSConfig,
	}

	// Health check endpoint
	srv.Get("/_health", HealthIndexAction)
	srv.Head("/_health", HealthIndexAction)

	// === PUBLIC API ROUTES ===
	srv.Post("/api/v1/track", trackHandler.TrackAction, publicAPIConfig)
	srv.Options("/api/v1/track", func(ctx *cartridge.Context) error {
		return ctx.SendStatus(fiber.StatusNoContent)
	}, publicAPIConfig)

	// === READ API ROUTES ===
	srv.Get("/api/v1/metrics/:entity", metricsHandler.GetCounterAction, readAPIConfig)
	srv.Get("/api/v1/metrics/:entity/summary", metricsHandler.GetSummaryAction, readAPIConfig)

	// === OPERATOR ROUTES ===
	srv.Get("/api/v1/notices", noticesHandler.ListAction, readAPIConfig)
	srv.Delete("/api/v1/notices/:name", noticesHandler.ClearAction, readAPIConfig)
}

// HealthIndexAction reports process liveness and database reachability.
func HealthIndexAction(ctx *cartridge.Context) error {
	db := ctx.DB()

	sqlDB, err := db.DB()
	if err == nil {
		err = sqlDB.Ping()
	}
	if err != nil {
		ctx.Logger.Error("Health check failed", slog.Any("error", err))
		return ctx.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "unhealthy",
		})
	}

	return ctx.JSON(fiber.Map{
		"status": "ok",
	})
}
