package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/metrics"
	"github.com/voiceprep/backend/internal/storage/models"
	"github.com/voiceprep/backend/pkg/apperrors"
	"github.com/voiceprep/backend/pkg/circuitbreaker"
	"github.com/voiceprep/backend/pkg/logger"
	"github.com/voiceprep/backend/pkg/retry"
)

type Client struct {
	client      *openai.Client
	model       string
	temperature float32
	maxTokens   int
	timeout     time.Duration
	cb          *circuitbreaker.CircuitBreaker
	retryConfig retry.Config
}

type QuestionRequest struct {
	Role      string
	Level     string
	TechStack string
	Type      string
	Amount    int
}

type FeedbackRequest struct {
	Role      string
	Level     string
	TechStack string
	Questions []string
	Answers   []string
}

func NewClient(apiKey, model string, temperature float32, maxTokens, timeoutSec int) *Client {
	client := openai.NewClient(apiKey)

	cb := circuitbreaker.New("llm", circuitbreaker.Config{
		MaxRequests:      5,
		Interval:         time.Minute,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
		SuccessThreshold: 2,
		Logger:           logger.GetLogger(),
	})

	retryConfig := retry.Config{
		MaxAttempts:    3,
		InitialDelay:   500 * time.Millisecond,
		MaxDelay:       5 * time.Second,
		Multiplier:     2.0,
		JitterFraction: 0.1,
		Logger:         logger.GetLogger(),
	}

	if timeoutSec <= 0 {
		timeoutSec = 30
	}

	logger.Info("LLM client initialized", zap.String("model", model))

	return &Client{
		client:      client,
		model:       model,
		temperature: temperature,
		maxTokens:   maxTokens,
		timeout:     time.Duration(timeoutSec) * time.Second,
		cb:          cb,
		retryConfig: retryConfig,
	}
}

func (c *Client) complete(ctx context.Context, systemPrompt, userPrompt string, temperature float32) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var messages []openai.ChatCompletionMessage
	if systemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userPrompt,
	})

	var content string

	err := c.cb.Execute(ctx, func() error {
		return retry.Do(ctx, c.retryConfig, func() error {
			resp, err := c.client.CreateChatCompletion(
				ctx,
				openai.ChatCompletionRequest{
					Model:       c.model,
					Messages:    messages,
					Temperature: temperature,
					MaxTokens:   c.maxTokens,
				},
			)

			if err != nil {
				return fmt.Errorf("failed to create completion: %w", err)
			}

			metrics.LLMTokensUsed.WithLabelValues(c.model, "prompt").Add(float64(resp.Usage.PromptTokens))
			metrics.LLMTokensUsed.WithLabelValues(c.model, "completion").Add(float64(resp.Usage.CompletionTokens))

			logger.Debug("LLM completion generated",
				zap.Int("prompt_tokens", resp.Usage.PromptTokens),
				zap.Int("completion_tokens", resp.Usage.CompletionTokens),
			)

			content = resp.Choices[0].Message.Content
			return nil
		})
	})

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", apperrors.Wrap(apperrors.KindTimeout, "text generation timed out", err)
		}
		return "", apperrors.Wrap(apperrors.KindGeneration, "text generation failed", err)
	}

	return content, nil
}

// GenerateQuestions asks the model for exactly amount interview questions and
// parses them as a JSON array of strings. A response that cannot be parsed is
// a generation failure carrying the raw text; it is never silently replaced
// with an empty list.
func (c *Client) GenerateQuestions(ctx context.Context, req QuestionRequest) ([]string, error) {
	prompt := fmt.Sprintf(`Prepare questions for a job interview.
The job role is %s.
The job experience level is %s.
The tech stack used in the job is %s.
The focus between behavioural and technical questions should lean towards: %s.
The amount of questions required is %d.
Please return only the questions, without any additional text.
The questions are going to be read by a voice assistant, so do not use "/" or "*" or any other special characters which might break the voice assistant.
Return the questions formatted like this: ["Question 1", "Question 2", "Question 3"]
Thank you!`, req.Role, req.Level, req.TechStack, req.Type, req.Amount)

	content, err := c.complete(ctx, "", prompt, c.temperature)
	if err != nil {
		return nil, err
	}

	questions, err := parseQuestionList(content)
	if err != nil {
		logger.Error("Failed to parse generated questions",
			zap.Error(err),
			zap.String("raw_response", content),
		)
		return nil, apperrors.WithRaw(apperrors.KindGeneration, "model returned an unparseable question list", content)
	}

	logger.Info("Questions generated",
		zap.String("role", req.Role),
		zap.Int("count", len(questions)),
	)

	return questions, nil
}

func parseQuestionList(content string) ([]string, error) {
	span, ok := ExtractJSONArray(content)
	if !ok {
		return nil, fmt.Errorf("no JSON array found in response")
	}

	var questions []string
	if err := json.Unmarshal([]byte(span), &questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal question array: %w", err)
	}

	if len(questions) == 0 {
		return nil, fmt.Errorf("question array is empty")
	}

	for i, q := range questions {
		if strings.TrimSpace(q) == "" {
			return nil, fmt.Errorf("question %d is blank", i+1)
		}
	}

	return questions, nil
}

const feedbackSystemInstruction = `You are an expert technical interviewer and performance reviewer. Your task is to analyze the provided interview transcript and generate comprehensive, constructive feedback.`

// GenerateFeedback interleaves each question with its positionally matched
// answer, issues one completion and parses the strict-JSON review. Callers
// must validate that questions and answers align before calling.
func (c *Client) GenerateFeedback(ctx context.Context, req FeedbackRequest) (*models.Feedback, string, error) {
	transcript := formatTranscript(req.Questions, req.Answers)

	prompt := fmt.Sprintf(`Analyze the following interview session for a %s %s role focusing on the %s stack.

--- INTERVIEW TRANSCRIPT ---
%s
--- END OF TRANSCRIPT ---

Generate the final output in STRICT, VALID, RFC 8259 JSON format. Do not include any text outside the JSON object.

{
    "score_out_of_10": [A single integer number from 1 to 10],
    "summary": "[A concise, one-paragraph summary of the user's overall performance]",
    "technical_feedback": "[A bulleted list of 3-5 specific technical strengths and weaknesses]",
    "behavioral_feedback": "[A bulleted list of 3-5 specific communication and soft skill observations]",
    "next_steps": "[A short paragraph suggesting 2-3 concrete steps the user should take to improve their skills and interview performance]"
}`, req.Level, req.Role, req.TechStack, transcript)

	content, err := c.complete(ctx, feedbackSystemInstruction, prompt, 0.3)
	if err != nil {
		return nil, "", err
	}

	feedback, err := parseFeedback(content)
	if err != nil {
		logger.Error("Failed to parse generated feedback",
			zap.Error(err),
			zap.String("raw_response", content),
		)
		return nil, content, apperrors.WithRaw(apperrors.KindParse, "model returned unparseable feedback JSON", content)
	}

	logger.Info("Feedback generated",
		zap.String("role", req.Role),
		zap.Int("score", feedback.Score),
	)

	return feedback, content, nil
}

func formatTranscript(questions, answers []string) string {
	var b strings.Builder
	for i, question := range questions {
		if i > 0 {
			b.WriteString("\n\n---\n\n")
		}
		fmt.Fprintf(&b, "### Question %d:\n%s\n\n### User Answer:\n%s", i+1, question, answers[i])
	}
	return b.String()
}

func parseFeedback(content string) (*models.Feedback, error) {
	span, ok := ExtractJSONObject(content)
	if !ok {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	var raw struct {
		Score              json.Number `json:"score_out_of_10"`
		Summary            string      `json:"summary"`
		TechnicalFeedback  string      `json:"technical_feedback"`
		BehavioralFeedback string      `json:"behavioral_feedback"`
		NextSteps          string      `json:"next_steps"`
	}

	if err := json.Unmarshal([]byte(span), &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feedback object: %w", err)
	}

	score, err := raw.Score.Int64()
	if err != nil {
		return nil, fmt.Errorf("score is not an integer: %w", err)
	}
	if score < 1 || score > 10 {
		return nil, fmt.Errorf("score %d out of range", score)
	}

	if raw.Summary == "" {
		return nil, fmt.Errorf("feedback summary is missing")
	}

	return &models.Feedback{
		Score:              int(score),
		Summary:            raw.Summary,
		TechnicalFeedback:  raw.TechnicalFeedback,
		BehavioralFeedback: raw.BehavioralFeedback,
		NextSteps:          raw.NextSteps,
	}, nil
}
