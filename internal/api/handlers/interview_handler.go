package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/interview"
	"github.com/voiceprep/backend/pkg/logger"
)

type InterviewHandler struct {
	service *interview.Service
}

func NewInterviewHandler(service *interview.Service) *InterviewHandler {
	return &InterviewHandler{
		service: service,
	}
}

// Generate serves both request shapes of the generation endpoint: without an
// action it generates and persists a new interview, with action "fetch" it
// returns the interview the voice handoff should continue with.
func (h *InterviewHandler) Generate(c *fiber.Ctx) error {
	var req struct {
		Action      string `json:"action"`
		Type        string `json:"type"`
		Role        string `json:"role"`
		Level       string `json:"level"`
		TechStack   string `json:"techstack"`
		Amount      int    `json:"amount"`
		UserID      string `json:"userid"`
		InterviewID string `json:"interviewId"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	if req.Action == "fetch" {
		result, err := h.service.Fetch(c.Context(), req.UserID, req.InterviewID)
		if err != nil {
			logger.Error("Failed to fetch interview", zap.Error(err))
			return respondError(c, err)
		}

		return c.JSON(fiber.Map{
			"questions":   result.Questions,
			"interviewId": result.InterviewID,
			"role":        result.Role,
			"level":       result.Level,
			"techstack":   result.TechStack,
		})
	}

	result, err := h.service.Generate(c.Context(), interview.GenerateRequest{
		Type:      req.Type,
		Role:      req.Role,
		Level:     req.Level,
		TechStack: req.TechStack,
		Amount:    req.Amount,
		UserID:    req.UserID,
	})
	if err != nil {
		logger.Error("Failed to generate interview", zap.Error(err))
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"questions":   result.Questions,
		"interviewId": result.InterviewID,
		"role":        result.Role,
		"level":       result.Level,
		"techstack":   result.TechStack,
	})
}

// List returns the user's finalized interviews for the profile view.
func (h *InterviewHandler) List(c *fiber.Ctx) error {
	userID := c.Query("userid")
	limit := c.QueryInt("limit", 20)

	interviews, err := h.service.List(c.Context(), userID, limit)
	if err != nil {
		logger.Error("Failed to list interviews", zap.Error(err))
		return respondError(c, err)
	}

	items := make([]fiber.Map, 0, len(interviews))
	for _, iv := range interviews {
		items = append(items, fiber.Map{
			"interviewId":   iv.ID,
			"role":          iv.Role,
			"level":         iv.Level,
			"type":          iv.Type,
			"techstack":     iv.TechStack,
			"questionCount": len(iv.Questions),
			"createdAt":     iv.CreatedAt.Unix(),
		})
	}

	return c.JSON(fiber.Map{
		"success":    true,
		"interviews": items,
	})
}
