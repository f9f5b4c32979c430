package feedback

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/llm"
	"github.com/voiceprep/backend/internal/metrics"
	"github.com/voiceprep/backend/internal/storage/models"
	"github.com/voiceprep/backend/pkg/apperrors"
	"github.com/voiceprep/backend/pkg/logger"
)

type Generator interface {
	GenerateFeedback(ctx context.Context, req llm.FeedbackRequest) (*models.Feedback, string, error)
}

type Store interface {
	UpsertResult(result *models.InterviewResult) error
	GetResult(interviewID string) (*models.InterviewResult, error)
}

type Cache interface {
	GetResult(ctx context.Context, interviewID string) (*models.InterviewResult, bool, error)
	SetResult(ctx context.Context, result *models.InterviewResult) error
	InvalidateResult(ctx context.Context, interviewID string) error
}

type Service struct {
	store     Store
	generator Generator
	cache     Cache
}

func NewService(store Store, generator Generator, cache Cache) *Service {
	return &Service{
		store:     store,
		generator: generator,
		cache:     cache,
	}
}

type GenerateRequest struct {
	InterviewID string
	Questions   []string
	Answers     []string
	Role        string
	Level       string
	TechStack   string
}

// Generate validates the transcript, asks the model for the structured
// review and upserts it keyed by interview id, so a retry overwrites the
// prior result instead of duplicating it. Validation failures never reach
// the text-generation provider.
func (s *Service) Generate(ctx context.Context, req GenerateRequest) (*models.Feedback, error) {
	if err := validate(req); err != nil {
		return nil, err
	}

	start := time.Now()
	fb, _, err := s.generator.GenerateFeedback(ctx, llm.FeedbackRequest{
		Role:      req.Role,
		Level:     req.Level,
		TechStack: req.TechStack,
		Questions: req.Questions,
		Answers:   req.Answers,
	})
	metrics.GenerationDuration.WithLabelValues("feedback").Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.FeedbackGenerated.WithLabelValues("error").Inc()
		return nil, err
	}

	result := &models.InterviewResult{
		InterviewID: req.InterviewID,
		Role:        req.Role,
		Level:       req.Level,
		TechStack:   req.TechStack,
		Questions:   req.Questions,
		Answers:     req.Answers,
		Feedback:    *fb,
		FinalScore:  fb.Score,
		CreatedAt:   time.Now(),
	}

	if err := s.store.UpsertResult(result); err != nil {
		metrics.FeedbackGenerated.WithLabelValues("error").Inc()
		return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to save feedback", err)
	}

	if s.cache != nil {
		if err := s.cache.SetResult(ctx, result); err != nil {
			logger.Warn("Failed to cache feedback result", zap.Error(err))
		}
	}

	metrics.FeedbackGenerated.WithLabelValues("success").Inc()
	metrics.FeedbackScore.Observe(float64(fb.Score))

	logger.Info("Feedback saved",
		zap.String("interview_id", req.InterviewID),
		zap.Int("score", fb.Score),
	)

	return fb, nil
}

func validate(req GenerateRequest) error {
	if req.InterviewID == "" {
		return apperrors.New(apperrors.KindValidation, "missing interviewId")
	}
	if len(req.Questions) == 0 {
		return apperrors.New(apperrors.KindValidation, "missing interview questions")
	}
	if len(req.Answers) == 0 {
		return apperrors.New(apperrors.KindValidation, "missing interview answers")
	}
	if len(req.Questions) != len(req.Answers) {
		return apperrors.Newf(apperrors.KindValidation,
			"question and answer counts do not match: %d questions, %d answers",
			len(req.Questions), len(req.Answers))
	}
	return nil
}

// Get returns the stored result for an interview. Reads go through the cache
// when one is configured; a miss falls back to the document store and
// repopulates the cache.
func (s *Service) Get(ctx context.Context, interviewID string) (*models.InterviewResult, error) {
	if interviewID == "" {
		return nil, apperrors.New(apperrors.KindValidation, "missing interviewId query parameter")
	}

	if s.cache != nil {
		cached, hit, err := s.cache.GetResult(ctx, interviewID)
		if err != nil {
			logger.Warn("Feedback cache read failed", zap.Error(err))
		} else if hit {
			metrics.CacheHits.WithLabelValues("result").Inc()
			return cached, nil
		} else {
			metrics.CacheMisses.WithLabelValues("result").Inc()
		}
	}

	result, err := s.store.GetResult(interviewID)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.KindPersistence, "failed to load feedback", err)
	}
	if result == nil {
		return nil, apperrors.New(apperrors.KindNotFound, "Interview feedback not found")
	}

	if s.cache != nil {
		if err := s.cache.SetResult(ctx, result); err != nil {
			logger.Warn("Failed to cache feedback result", zap.Error(err))
		}
	}

	return result, nil
}
