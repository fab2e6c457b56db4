package middleware

import (
	"io"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/rs/zerolog"
)

// Config customises the middleware registration pipeline.
type Config struct {
	Logger       *zerolog.Logger
	AllowOrigins string
}

// Register attaches the common middlewares used across the API.
func Register(app *fiber.App, cfg Config) {
	requestLogger := zerolog.New(io.Discard)
	if cfg.Logger != nil {
		requestLogger = *cfg.Logger
	}
	if cfg.AllowOrigins == "" {
		cfg.AllowOrigins = "*"
	}

	app.Use(recover.New())
	app.Use(CorrelationID(requestLogger))
	app.Use(Observability(requestLogger))
	app.Use(cors.New(cors.Config{
		AllowOrigins:  cfg.AllowOrigins,
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, " + CorrelationHeader,
		ExposeHeaders: CorrelationHeader,
		AllowMethods:  "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
}
