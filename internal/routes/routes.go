package routes

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/nagaralert/alerthub/internal/config"
	"github.com/nagaralert/alerthub/internal/handlers"
	"github.com/nagaralert/alerthub/internal/middleware"
	"github.com/nagaralert/alerthub/internal/models"
	"gorm.io/gorm"
)

// Handlers bundles everything the route table mounts.
type Handlers struct {
	Auth       *handlers.AuthHandler
	Health     *handlers.HealthHandler
	Profile    *handlers.ProfileHandler
	Alert      *handlers.AlertHandler
	Engagement *handlers.EngagementHandler
	Moderation *handlers.ModerationHandler
	Geocode    *handlers.GeocodeHandler
	Analysis   *handlers.AnalysisHandler
	Live       *handlers.LiveHandler
}

func perIP(limit int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               limit,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}

func Setup(app *fiber.App, cfg *config.Config, db *gorm.DB, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(perIP(60))

	api.Get("/health", h.Health.Check)

	// Auth-specific rate limit: 10 req/min per IP (stricter)
	auth := api.Group("/auth")
	auth.Use(perIP(10))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/refresh", h.Auth.Refresh)
	auth.Post("/logout", middleware.JWTProtected(cfg), h.Auth.Logout)
	auth.Delete("/account", middleware.JWTProtected(cfg), h.Auth.DeleteAccount)

	api.Get("/profile", middleware.JWTProtected(cfg), h.Profile.Get)
	api.Put("/profile", middleware.JWTProtected(cfg), h.Profile.Update)

	// Alerts: reads and submissions accept anonymous callers. The profile is
	// loaded so staff can read alerts that are not yet public.
	optional := []fiber.Handler{middleware.OptionalJWT(cfg), middleware.LoadProfile(db)}
	alerts := api.Group("/alerts")
	alerts.Get("/", h.Alert.List)
	alerts.Post("/", append(optional, h.Alert.Create)...)
	alerts.Get("/:id", append(optional, h.Alert.Get)...)
	alerts.Get("/:id/comments", append(optional, h.Engagement.ListComments)...)
	alerts.Post("/:id/comments", middleware.JWTProtected(cfg), middleware.LoadProfile(db), h.Engagement.AddComment)
	alerts.Post("/:id/vote", middleware.JWTProtected(cfg), h.Engagement.Vote)
	alerts.Get("/:id/vote", middleware.JWTProtected(cfg), h.Engagement.MyVote)

	api.Get("/me/alerts", middleware.JWTProtected(cfg), h.Alert.Mine)

	// Nominatim asks for at most one request per second per client; 20/min keeps us well inside it.
	geocode := api.Group("/geocode", perIP(20))
	geocode.Get("/search", h.Geocode.Search)
	geocode.Get("/reverse", h.Geocode.Reverse)

	api.Post("/analysis/alert", perIP(20), h.Analysis.AnalyzeAlert)

	// Staff panel: the role is re-read from profiles on every request.
	admin := api.Group("/admin", middleware.JWTProtected(cfg), middleware.StaffRequired(db))
	admin.Get("/alerts", h.Moderation.ListAlerts)
	admin.Patch("/alerts/:id", h.Alert.Update)
	admin.Post("/alerts/:id/verify", h.Moderation.Verify)
	admin.Post("/alerts/:id/reject", h.Moderation.Reject)
	admin.Post("/alerts/:id/resolve", h.Moderation.Resolve)
	admin.Delete("/alerts/:id", h.Moderation.Delete)
	admin.Get("/actions", h.Moderation.ListActions)
	admin.Get("/analytics", h.Moderation.Analytics)
	admin.Get("/live", h.Live.Upgrade, h.Live.Stream())

	admin.Put("/profiles/:id/role", middleware.RoleRequired(db, models.RoleAdmin), h.Profile.SetRole)
}
