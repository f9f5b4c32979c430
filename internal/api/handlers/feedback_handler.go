package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/feedback"
	"github.com/voiceprep/backend/pkg/apperrors"
	"github.com/voiceprep/backend/pkg/logger"
)

type FeedbackHandler struct {
	service *feedback.Service
}

func NewFeedbackHandler(service *feedback.Service) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
	}
}

func (h *FeedbackHandler) Generate(c *fiber.Ctx) error {
	var req struct {
		InterviewID string   `json:"interviewId"`
		Questions   []string `json:"questions"`
		Answers     []string `json:"answers"`
		Role        string   `json:"role"`
		Level       string   `json:"level"`
		TechStack   string   `json:"techstack"`
	}

	if err := c.BodyParser(&req); err != nil {
		logger.Error("Failed to parse request body", zap.Error(err))
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	fb, err := h.service.Generate(c.Context(), feedback.GenerateRequest{
		InterviewID: req.InterviewID,
		Questions:   req.Questions,
		Answers:     req.Answers,
		Role:        req.Role,
		Level:       req.Level,
		TechStack:   req.TechStack,
	})
	if err != nil {
		logger.Error("Failed to generate feedback",
			zap.String("interview_id", req.InterviewID),
			zap.Error(err),
		)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"feedback":    fb,
		"interviewId": req.InterviewID,
		"role":        req.Role,
		"level":       req.Level,
		"techstack":   req.TechStack,
	})
}

func (h *FeedbackHandler) Get(c *fiber.Ctx) error {
	interviewID := c.Query("interviewId")

	result, err := h.service.Get(c.Context(), interviewID)
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"success": false,
				"error":   "Interview feedback not found",
			})
		}
		logger.Error("Failed to load feedback",
			zap.String("interview_id", interviewID),
			zap.Error(err),
		)
		return respondError(c, err)
	}

	return c.JSON(fiber.Map{
		"success":     true,
		"interviewId": result.InterviewID,
		"role":        result.Role,
		"level":       result.Level,
		"techstack":   result.TechStack,
		"feedback":    result.Feedback,
	})
}
