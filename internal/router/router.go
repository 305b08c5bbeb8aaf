package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/aruna-lms-api/internal/config"
	"github.com/noah-isme/aruna-lms-api/internal/handler"
	"github.com/noah-isme/aruna-lms-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AttachmentHandler *handler.AttachmentHandler
	GradingHandler    *handler.GradingHandler
	CourseHandler     *handler.CourseHandler
	DashboardHandler  *handler.DashboardHandler
	MaterialHandler   *handler.MaterialHandler
	JWTMiddleware     fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg))
	api.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	if deps.AttachmentHandler != nil {
		attachments := api.Group("/attachments", jwtMiddleware)
		deps.AttachmentHandler.Register(attachments)
	}

	if deps.GradingHandler != nil {
		submissions := api.Group("/submissions", jwtMiddleware)
		deps.GradingHandler.Register(submissions)
	}

	if deps.CourseHandler != nil {
		courses := api.Group("/courses", jwtMiddleware)
		deps.CourseHandler.Register(courses)
	}

	if deps.DashboardHandler != nil {
		trainees := api.Group("/trainees", jwtMiddleware)
		deps.DashboardHandler.Register(trainees)
	}

	if deps.MaterialHandler != nil {
		materials := api.Group("/materials", jwtMiddleware)
		deps.MaterialHandler.Register(materials)
	}
}
