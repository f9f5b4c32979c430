package metrics

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	InterviewsGenerated = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "voiceprep_interviews_generated_total",
			Help: "Total interviews created through question generation",
		},
	)

	QuestionsPerInterview = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voiceprep_questions_per_interview",
			Help:    "Number of questions generated per interview",
			Buckets: []float64{1, 3, 5, 8, 10, 15, 20},
		},
	)

	FeedbackGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceprep_feedback_generated_total",
			Help: "Total feedback generation attempts by outcome",
		},
		[]string{"status"},
	)

	FeedbackScore = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "voiceprep_feedback_score",
			Help:    "Distribution of interview scores out of 10",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10},
		},
	)

	LLMTokensUsed = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceprep_llm_tokens_used",
			Help: "Total LLM tokens used",
		},
		[]string{"model", "type"},
	)

	GenerationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "voiceprep_generation_duration_seconds",
			Help:    "Duration of LLM-backed operations in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"operation"},
	)

	SessionTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceprep_session_transitions_total",
			Help: "Orchestrator phase transitions",
		},
		[]string{"phase"},
	)

	ActiveSessions = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "voiceprep_active_sessions",
			Help: "Currently connected voice session bridges",
		},
	)

	CacheHits = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceprep_cache_hits_total",
			Help: "Total cache hits",
		},
		[]string{"cache_type"},
	)

	CacheMisses = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "voiceprep_cache_misses_total",
			Help: "Total cache misses",
		},
		[]string{"cache_type"},
	)
)

func Init() {
	prometheus.MustRegister(InterviewsGenerated)
	prometheus.MustRegister(QuestionsPerInterview)
	prometheus.MustRegister(FeedbackGenerated)
	prometheus.MustRegister(FeedbackScore)
	prometheus.MustRegister(LLMTokensUsed)
	prometheus.MustRegister(GenerationDuration)
	prometheus.MustRegister(SessionTransitions)
	prometheus.MustRegister(ActiveSessions)
	prometheus.MustRegister(CacheHits)
	prometheus.MustRegister(CacheMisses)
}

func MetricsHandler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.Handler())
}
