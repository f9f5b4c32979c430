package interview

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/llm"
	"github.com/voiceprep/backend/internal/metrics"
	"github.com/voiceprep/backend/internal/storage/models"
	"github.com/voiceprep/backend/pkg/apperrors"
	"github.com/voiceprep/backend/pkg/logger"
)

type QuestionGenerator interface {
	GenerateQuestions(ctx context.Context, req llm.QuestionRequest) ([]string, error)
}

type Store interface {
	InsertInterview(interview *models.Interview) error
	GetInterview(id string) (*models.Interview, error)
	LatestInterview(userID string) (*models.Interview, error)
	ListInterviews(userID string, limit int) ([]models.Interview, error)
}

type Cache interface {
	GetLatestInterview(ctx context.Context, userID string) (*models.Interview, bool, error)
	SetLatestInterview(ctx context.Context, userID string, interview *models.Interview) error
	InvalidateLatestInterview(ctx context.Context, userID string) error
}

type Service struct {
	store         Store
	generator     QuestionGenerator
	cache         Cache
	defaultAmount int
	maxAmount     int
}

// NewService wires the question-generation flow. cache may be nil, which
// disables the latest-interview cache without changing behavior.
func NewService(store Store, generator QuestionGenerator, cache Cache, defaultAmount, maxAmount int) *Service {
	if defaultAmount <= 0 {
		defaultAmount = 5
	}
	if maxAmount <= 0 {
		maxAmount = 20
	}
	return &Service{
		store:         store,
		generator:     generator,
		cache:         cache,
		defaultAmount: defaultAmount,
		maxAmount:     maxAmount,
	}
}

type GenerateRequest struct {
	Type      string
	Role      string
	Level     string
	TechStack string
	Amount    int
	UserID    string
}

type GenerateResult struct {
	InterviewID string
	Questions   []string
	Role        string
	Level       string
	TechStack   []string
}

func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*GenerateResult, error) {
	if req.UserID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "missing required identifier (userid)")
	}

	amount := req.Amount
	if amount <= 0 {
		amount = s.defaultAmount
	}
	if amount > s.maxAmount {
		amount = s.maxAmount
	}

	start := time.Now()
	questions, err := s.generator.GenerateQuestions(ctx, llm.QuestionRequest{
		Role:      req.Role,
		Level:     req.Level,
		TechStack: req.TechStack,
		Type:      req.Type,
		Amount:    amount,
	})
	metrics.GenerationDuration.WithLabelValues("questions").Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}

	interview := &models.Interview{
		ID:        uuid.New().String(),
		UserID:    req.UserID,
		Role:      req.Role,
		Level:     req.Level,
		Type:      req.Type,
		TechStack: splitTechStack(req.TechStack),
		Questions: questions,
		Finalized: true,
		CreatedAt: time.Now(),
	}

	if err := s.store.InsertInterview(interview); err != nil {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to save interview", err)
	}

	if s.cache != nil {
		if err := s.cache.InvalidateLatestInterview(ctx, req.UserID); err != nil {
			logger.Warn("Failed to invalidate latest-interview cache", zap.Error(err))
		}
	}

	metrics.InterviewsGenerated.Inc()
	metrics.QuestionsPerInterview.Observe(float64(len(questions)))

	logger.Info("Interview created",
		zap.String("interview_id", interview.ID),
		zap.String("user_id", req.UserID),
		zap.String("role", req.Role),
		zap.Int("questions", len(questions)),
	)

	return &GenerateResult{
		InterviewID: interview.ID,
		Questions:   questions,
		Role:        interview.Role,
		Level:       interview.Level,
		TechStack:   interview.TechStack,
	}, nil
}

type FetchResult struct {
	InterviewID string
	Questions   []string
	Role        string
	Level       string
	TechStack   []string
}

// Fetch returns the interview the voice handoff should continue with. An
// explicit interviewID takes priority for exact lookup; otherwise the user's
// most recent finalized interview wins. "Nothing found" is a normal empty
// result, not an error.
func (s *Service) Fetch(ctx context.Context, userID, interviewID string) (*FetchResult, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "missing required identifier (userid)")
	}

	var interview *models.Interview
	var err error

	if interviewID != "" {
		interview, err = s.store.GetInterview(interviewID)
		if err != nil {
			return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to load interview", err)
		}
	} else {
		interview, err = s.latest(ctx, userID)
		if err != nil {
			return nil, err
		}
	}

	if interview == nil || !interview.Finalized {
		logger.Info("No finalized interview found", zap.String("user_id", userID))
		return &FetchResult{Questions: []string{}}, nil
	}

	return &FetchResult{
		InterviewID: interview.ID,
		Questions:   interview.Questions,
		Role:        interview.Role,
		Level:       interview.Level,
		TechStack:   interview.TechStack,
	}, nil
}

func (s *Service) latest(ctx context.Context, userID string) (*models.Interview, error) {
	if s.cache != nil {
		cached, hit, err := s.cache.GetLatestInterview(ctx, userID)
		if err != nil {
			logger.Warn("Latest-interview cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("latest_interview").Inc()
			return cached, nil
		} else {
			metrics.CacheMisses.WithLabelValues("latest_interview").Inc()
		}
	}

	interview, err := s.store.LatestInterview(userID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to query latest interview", err)
	}

	if interview != nil && s.cache != nil {
		if err := s.cache.SetLatestInterview(ctx, userID, interview); err != nil {
			logger.Warn("Failed to cache latest interview", zap.Error(err))
		}
	}

	return interview, nil
}

func (s *Service) List(ctx context.Context, userID string, limit int) ([]models.Interview, error) {
	if userID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "missing required identifier (userid)")
	}
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	interviews, err := s.store.ListInterviews(userID, limit)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to list interviews", err)
	}

	return interviews, nil
}

func splitTechStack(techstack string) []string {
	parts := strings.Split(techstack, ",")
	stack := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			stack = append(stack, trimmed)
		}
	}
	return stack
}
