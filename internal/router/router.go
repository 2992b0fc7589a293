package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/karsu-its/ijara-api/internal/config"
	"github.com/karsu-its/ijara-api/internal/handler"
	"github.com/karsu-its/ijara-api/internal/middleware"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler         *handler.AuthHandler
	StudentHandler      *handler.StudentHandler
	PermissionHandler   *handler.PermissionHandler
	ApartmentHandler    *handler.ApartmentHandler
	ReviewHandler       *handler.ReviewHandler
	StatsHandler        *handler.StatsHandler
	NotificationHandler *handler.NotificationHandler
	ChatHandler         *handler.ChatHandler
	SyncHandler         *handler.SyncHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	studentOnly := middleware.RequireRole(middleware.RoleStudent)
	tutorOnly := middleware.RequireRole(middleware.RoleTutor)
	staffOnly := middleware.RequireRole(middleware.RoleTutor, middleware.RoleFacultyAdmin, middleware.RoleAdmin)
	adminOnly := middleware.RequireRole(middleware.RoleAdmin)

	// Logins are rate limited per client to slow brute forcing.
	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("auth", 20, time.Minute))
		deps.AuthHandler.Register(auth)

		protected := api.Group("/auth", jwtMiddleware, tutorOnly)
		deps.AuthHandler.RegisterProtected(protected)
	}

	// Roster profiles
	if deps.StudentHandler != nil {
		students := api.Group("/students", jwtMiddleware)
		deps.StudentHandler.RegisterStudent(students.Group("", studentOnly))
		deps.StudentHandler.RegisterStaff(students.Group("", staffOnly))
	}

	// Review rounds
	if deps.PermissionHandler != nil {
		permissions := api.Group("/permissions", jwtMiddleware)
		deps.PermissionHandler.RegisterTutor(permissions.Group("", tutorOnly))
		deps.PermissionHandler.RegisterStudent(permissions.Group("", studentOnly))
	}

	// Housing submissions and verdicts
	if deps.ApartmentHandler != nil {
		apartments := api.Group("/apartments", jwtMiddleware)
		deps.ApartmentHandler.RegisterStudent(apartments.Group("", studentOnly))
		deps.ApartmentHandler.RegisterTutor(apartments.Group("", staffOnly))

		if deps.ReviewHandler != nil {
			deps.ReviewHandler.Register(apartments.Group("", tutorOnly))
		}
	}

	// Statistics dashboards
	if deps.StatsHandler != nil {
		stats := api.Group("/stats", jwtMiddleware, staffOnly)
		deps.StatsHandler.Register(stats)
	}

	// Notification feeds
	if deps.NotificationHandler != nil {
		notifications := api.Group("/notifications", jwtMiddleware)
		deps.NotificationHandler.RegisterStudent(notifications.Group("", studentOnly))
		deps.NotificationHandler.RegisterTutor(notifications.Group("/tutor", tutorOnly))
	}

	// Tutor broadcast chat
	if deps.ChatHandler != nil {
		chat := api.Group("/chat", jwtMiddleware)
		deps.ChatHandler.Register(chat)
	}

	// Roster sync administration
	if deps.SyncHandler != nil {
		sync := api.Group("/sync", jwtMiddleware, adminOnly)
		deps.SyncHandler.Register(sync)
	}
}
