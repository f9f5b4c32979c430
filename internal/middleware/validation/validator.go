package validation

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Coarse request screening in front of the handlers: content-type allowlist
// and size caps on the free-text fields that end up inside LLM prompts.
// Field-level semantics stay in the services.

type Config struct {
	MaxFieldLength      int
	MaxTranscriptItems  int
	AllowedContentTypes []string
	Logger              *zap.Logger
}

func Middleware(cfg Config) fiber.Handler {
	if cfg.MaxFieldLength == 0 {
		cfg.MaxFieldLength = 2000
	}
	if cfg.MaxTranscriptItems == 0 {
		cfg.MaxTranscriptItems = 100
	}
	if len(cfg.AllowedContentTypes) == 0 {
		cfg.AllowedContentTypes = []string{"application/json"}
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		if c.Method() != fiber.MethodPost {
			return c.Next()
		}

		contentType := c.Get("Content-Type")
		if contentType != "" && !isAllowed(contentType, cfg.AllowedContentTypes) {
			return c.Status(fiber.StatusUnsupportedMediaType).JSON(fiber.Map{
				"error": "Unsupported content type",
			})
		}

		var req map[string]interface{}
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid JSON format",
			})
		}

		for _, field := range []string{"role", "level", "techstack", "type"} {
			if value, ok := req[field].(string); ok && len(value) > cfg.MaxFieldLength {
				cfg.Logger.Warn("Oversized request field",
					zap.String("field", field),
					zap.Int("length", len(value)),
					zap.String("path", c.Path()),
				)
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Field " + field + " exceeds maximum length",
				})
			}
		}

		for _, field := range []string{"questions", "answers"} {
			if items, ok := req[field].([]interface{}); ok && len(items) > cfg.MaxTranscriptItems {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "Field " + field + " exceeds maximum item count",
				})
			}
		}

		return c.Next()
	}
}

func isAllowed(contentType string, allowed []string) bool {
	for _, a := range allowed {
		if strings.Contains(contentType, a) {
			return true
		}
	}
	return false
}
