package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/learnhub-api/internal/config"
	"github.com/noah-isme/learnhub-api/internal/handler"
	"github.com/noah-isme/learnhub-api/internal/middleware"
	"github.com/noah-isme/learnhub-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	CourseHandler       *handler.CourseHandler
	EnrollmentHandler   *handler.EnrollmentHandler
	CouponHandler       *handler.CouponHandler
	PaymentHandler      *handler.PaymentHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
	HealthChecks        map[string]handler.DependencyCheck
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	// Common v1 group for health & headers
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthChecks))

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}
	requireUser := middleware.WithAuth(func(c *fiber.Ctx) error { return c.Next() }, middleware.AuthOptions{RequireUser: true})

	v2 := app.Group("/api/v2")

	// Catalog
	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(v2.Group("/courses"))
	}

	// Enrollments & lesson progress
	if deps.EnrollmentHandler != nil {
		deps.EnrollmentHandler.Register(v2.Group("/enrollments", jwtMiddleware, requireUser))
		deps.EnrollmentHandler.RegisterLessons(v2.Group("/lessons", jwtMiddleware, requireUser))
	}

	// Coupons
	if deps.CouponHandler != nil {
		deps.CouponHandler.Register(v2.Group("/coupons", jwtMiddleware, requireUser))
		deps.CouponHandler.RegisterAdmin(v2.Group("/admin/coupons", jwtMiddleware, middleware.RequireRole(middleware.RoleAdmin)))
	}

	// Payments: gateway callbacks carry their own HMAC and bypass JWT.
	if deps.PaymentHandler != nil {
		payments := v2.Group("/payments")
		deps.PaymentHandler.RegisterCallbacks(payments)

		limiter := middleware.RateLimit("payments", cfg.PaymentRateLimit, time.Minute)
		deps.PaymentHandler.Register(payments, limiter, jwtMiddleware, requireUser)
	}

	// Notifications
	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(v2.Group("/notifications", jwtMiddleware, requireUser))
	}
}
