package handlers

import (
	"context"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/metrics"
	"github.com/voiceprep/backend/internal/session"
	"github.com/voiceprep/backend/pkg/logger"
)

// SessionHandler bridges the browser's voice SDK to the orchestrator. The
// client relays SDK events as JSON frames; the orchestrator answers with the
// commands to execute. One orchestrator run per connection.
type SessionHandler struct {
	interviews           session.InterviewFetcher
	feedback             session.FeedbackCreator
	generationWorkflow   string
	interviewerAssistant string
}

func NewSessionHandler(interviews session.InterviewFetcher, feedback session.FeedbackCreator, generationWorkflow, interviewerAssistant string) *SessionHandler {
	return &SessionHandler{
		interviews:           interviews,
		feedback:             feedback,
		generationWorkflow:   generationWorkflow,
		interviewerAssistant: interviewerAssistant,
	}
}

func (h *SessionHandler) Upgrade(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

func (h *SessionHandler) HandleConnection(c *websocket.Conn) {
	defer c.Close()

	userID := c.Query("userid")
	if userID == "" {
		c.WriteJSON(session.Command{
			Type:    session.CommandAlert,
			Message: "Missing required identifier (userid)",
		})
		return
	}

	cfg := session.Config{
		UserID:               userID,
		UserName:             c.Query("username"),
		GenerationWorkflow:   h.generationWorkflow,
		InterviewerAssistant: h.interviewerAssistant,
	}

	// an explicit interviewId skips generation and replays that interview
	if interviewID := c.Query("interviewId"); interviewID != "" {
		fetched, err := h.interviews.Fetch(context.Background(), userID, interviewID)
		if err != nil {
			logger.Error("Failed to preload interview for session",
				zap.String("interview_id", interviewID),
				zap.Error(err),
			)
		} else if fetched.InterviewID != "" {
			cfg.InterviewID = fetched.InterviewID
			cfg.Questions = fetched.Questions
			cfg.Role = fetched.Role
			cfg.Level = fetched.Level
			cfg.TechStack = strings.Join(fetched.TechStack, ", ")
		}
	}

	orch := session.NewOrchestrator(cfg, h.interviews, h.feedback)

	metrics.ActiveSessions.Inc()
	defer metrics.ActiveSessions.Dec()

	logger.Info("Voice session bridge connected", zap.String("user_id", userID))
	defer logger.Info("Voice session bridge closed", zap.String("user_id", userID))

	for {
		var ev session.Event
		if err := c.ReadJSON(&ev); err != nil {
			logger.Debug("Session bridge read ended", zap.Error(err))
			return
		}

		for _, cmd := range orch.HandleEvent(context.Background(), ev) {
			if err := c.WriteJSON(cmd); err != nil {
				logger.Error("Failed to write session command", zap.Error(err))
				return
			}
		}

		if orch.Status() == session.StatusFinished {
			return
		}
	}
}
