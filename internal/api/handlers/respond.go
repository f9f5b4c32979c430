package handlers

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/voiceprep/backend/pkg/apperrors"
)

// respondError translates a service error into the JSON error body. Raw
// provider output rides along for generation/parse failures so operators can
// see what the model actually returned.
func respondError(c *fiber.Ctx, err error) error {
	body := fiber.Map{}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		body["error"] = appErr.Message
		if appErr.Raw != "" {
			body["rawResponse"] = appErr.Raw
		}
	} else {
		body["error"] = "Internal server error"
		body["details"] = err.Error()
	}

	return c.Status(apperrors.HTTPStatus(err)).JSON(body)
}
