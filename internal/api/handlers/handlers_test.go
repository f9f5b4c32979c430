package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceprep/backend/internal/feedback"
	"github.com/voiceprep/backend/internal/interview"
	"github.com/voiceprep/backend/internal/llm"
	"github.com/voiceprep/backend/internal/storage/models"
	"github.com/voiceprep/backend/pkg/apperrors"
)

type fakeQuestionGenerator struct {
	questions []string
	err       error
}

func (g *fakeQuestionGenerator) GenerateQuestions(ctx context.Context, req llm.QuestionRequest) ([]string, error) {
	if g.err != nil {
		return nil, g.err
	}
	return g.questions, nil
}

type fakeFeedbackGenerator struct {
	feedback *models.Feedback
	err      error
}

func (g *fakeFeedbackGenerator) GenerateFeedback(ctx context.Context, req llm.FeedbackRequest) (*models.Feedback, string, error) {
	if g.err != nil {
		return nil, "", g.err
	}
	return g.feedback, "", nil
}

type memoryStore struct {
	interviews map[string]*models.Interview
	results    map[string]*models.InterviewResult
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		interviews: make(map[string]*models.Interview),
		results:    make(map[string]*models.InterviewResult),
	}
}

func (s *memoryStore) InsertInterview(iv *models.Interview) error {
	copied := *iv
	s.interviews[iv.ID] = &copied
	return nil
}

func (s *memoryStore) GetInterview(id string) (*models.Interview, error) {
	return s.interviews[id], nil
}

func (s *memoryStore) LatestInterview(userID string) (*models.Interview, error) {
	var latest *models.Interview
	for _, iv := range s.interviews {
		if iv.UserID != userID || !iv.Finalized {
			continue
		}
		if latest == nil || iv.CreatedAt.After(latest.CreatedAt) {
			latest = iv
		}
	}
	return latest, nil
}

func (s *memoryStore) ListInterviews(userID string, limit int) ([]models.Interview, error) {
	var out []models.Interview
	for _, iv := range s.interviews {
		if iv.UserID == userID && iv.Finalized && len(out) < limit {
			out = append(out, *iv)
		}
	}
	return out, nil
}

func (s *memoryStore) UpsertResult(result *models.InterviewResult) error {
	copied := *result
	s.results[result.InterviewID] = &copied
	return nil
}

func (s *memoryStore) GetResult(interviewID string) (*models.InterviewResult, error) {
	return s.results[interviewID], nil
}

func newInterviewApp(store *memoryStore, gen *fakeQuestionGenerator) *fiber.App {
	svc := interview.NewService(store, gen, nil, 5, 20)
	handler := NewInterviewHandler(svc)

	app := fiber.New()
	app.Post("/api/v1/interviews/generate", handler.Generate)
	app.Get("/api/v1/interviews", handler.List)
	return app
}

func newFeedbackApp(store *memoryStore, gen *fakeFeedbackGenerator) *fiber.App {
	svc := feedback.NewService(store, gen, nil)
	handler := NewFeedbackHandler(svc)

	app := fiber.New()
	app.Post("/api/v1/feedback", handler.Generate)
	app.Get("/api/v1/feedback", handler.Get)
	return app
}

func postJSON(t *testing.T, app *fiber.App, path string, body interface{}) (int, map[string]interface{}) {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(t, resp.Body)
}

func getJSON(t *testing.T, app *fiber.App, path string) (int, map[string]interface{}) {
	t.Helper()

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, path, nil))
	require.NoError(t, err)
	defer resp.Body.Close()

	return resp.StatusCode, decodeBody(t, resp.Body)
}

func decodeBody(t *testing.T, r io.Reader) map[string]interface{} {
	t.Helper()

	var body map[string]interface{}
	require.NoError(t, json.NewDecoder(r).Decode(&body))
	return body
}

func TestGenerateInterview_Success(t *testing.T) {
	store := newMemoryStore()
	app := newInterviewApp(store, &fakeQuestionGenerator{questions: []string{"Q1", "Q2"}})

	status, body := postJSON(t, app, "/api/v1/interviews/generate", fiber.Map{
		"type":      "technical",
		"role":      "Backend Engineer",
		"level":     "Senior",
		"techstack": "Go, Postgres",
		"amount":    2,
		"userid":    "u1",
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.NotEmpty(t, body["interviewId"])
	assert.Len(t, body["questions"], 2)
	assert.Len(t, store.interviews, 1)
}

func TestGenerateInterview_MissingUserID(t *testing.T) {
	app := newInterviewApp(newMemoryStore(), &fakeQuestionGenerator{questions: []string{"Q1"}})

	status, body := postJSON(t, app, "/api/v1/interviews/generate", fiber.Map{
		"role": "Backend Engineer",
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing required identifier (userid)", body["error"])
}

func TestGenerateInterview_ParseFailureIncludesRaw(t *testing.T) {
	gen := &fakeQuestionGenerator{
		err: apperrors.WithRaw(apperrors.KindGeneration, "Failed to parse question list", "Sure! Here are your questions..."),
	}
	app := newInterviewApp(newMemoryStore(), gen)

	status, body := postJSON(t, app, "/api/v1/interviews/generate", fiber.Map{
		"userid": "u1",
	})

	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Equal(t, "Failed to parse question list", body["error"])
	assert.Equal(t, "Sure! Here are your questions...", body["rawResponse"])
}

func TestFetchInterview_ReturnsLatest(t *testing.T) {
	store := newMemoryStore()
	app := newInterviewApp(store, &fakeQuestionGenerator{questions: []string{"Q1"}})

	status, created := postJSON(t, app, "/api/v1/interviews/generate", fiber.Map{
		"userid": "u1",
		"role":   "SRE",
	})
	require.Equal(t, http.StatusOK, status)

	status, body := postJSON(t, app, "/api/v1/interviews/generate", fiber.Map{
		"action": "fetch",
		"userid": "u1",
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, created["interviewId"], body["interviewId"])
	assert.Len(t, body["questions"], 1)
}

func TestFetchInterview_EmptyStateIsOK(t *testing.T) {
	app := newInterviewApp(newMemoryStore(), &fakeQuestionGenerator{})

	status, body := postJSON(t, app, "/api/v1/interviews/generate", fiber.Map{
		"action": "fetch",
		"userid": "u1",
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Empty(t, body["interviewId"])
	assert.Len(t, body["questions"], 0)
}

func TestListInterviews(t *testing.T) {
	store := newMemoryStore()
	app := newInterviewApp(store, &fakeQuestionGenerator{questions: []string{"Q1"}})

	status, _ := postJSON(t, app, "/api/v1/interviews/generate", fiber.Map{
		"userid": "u1",
		"role":   "SRE",
	})
	require.Equal(t, http.StatusOK, status)

	status, body := getJSON(t, app, "/api/v1/interviews?userid=u1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	interviews, ok := body["interviews"].([]interface{})
	require.True(t, ok)
	require.Len(t, interviews, 1)

	item := interviews[0].(map[string]interface{})
	assert.Equal(t, "SRE", item["role"])
	assert.Equal(t, float64(1), item["questionCount"])
}

func TestGenerateFeedback_Success(t *testing.T) {
	store := newMemoryStore()
	gen := &fakeFeedbackGenerator{feedback: &models.Feedback{
		Score:   7,
		Summary: "Solid overall.",
	}}
	app := newFeedbackApp(store, gen)

	status, body := postJSON(t, app, "/api/v1/feedback", fiber.Map{
		"interviewId": "int-1",
		"questions":   []string{"Q1"},
		"answers":     []string{"A1"},
		"role":        "Backend Engineer",
	})

	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "int-1", body["interviewId"])

	fb, ok := body["feedback"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(7), fb["score_out_of_10"])
	require.NotNil(t, store.results["int-1"])
}

func TestGenerateFeedback_CountMismatch(t *testing.T) {
	app := newFeedbackApp(newMemoryStore(), &fakeFeedbackGenerator{})

	status, body := postJSON(t, app, "/api/v1/feedback", fiber.Map{
		"interviewId": "int-1",
		"questions":   []string{"Q1", "Q2"},
		"answers":     []string{"A1"},
	})

	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "question and answer counts do not match: 2 questions, 1 answers", body["error"])
}

func TestGetFeedback_NotFound(t *testing.T) {
	app := newFeedbackApp(newMemoryStore(), &fakeFeedbackGenerator{})

	status, body := getJSON(t, app, "/api/v1/feedback?interviewId=missing")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "Interview feedback not found", body["error"])
}

func TestGetFeedback_RoundTrip(t *testing.T) {
	store := newMemoryStore()
	gen := &fakeFeedbackGenerator{feedback: &models.Feedback{Score: 9, Summary: "excellent"}}
	app := newFeedbackApp(store, gen)

	status, _ := postJSON(t, app, "/api/v1/feedback", fiber.Map{
		"interviewId": "int-1",
		"questions":   []string{"Q1"},
		"answers":     []string{"A1"},
	})
	require.Equal(t, http.StatusOK, status)

	status, body := getJSON(t, app, "/api/v1/feedback?interviewId=int-1")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, true, body["success"])

	fb, ok := body["feedback"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, float64(9), fb["score_out_of_10"])
	assert.Equal(t, "excellent", fb["summary"])
}

func TestGetFeedback_MissingQueryParam(t *testing.T) {
	app := newFeedbackApp(newMemoryStore(), &fakeFeedbackGenerator{})

	status, body := getJSON(t, app, "/api/v1/feedback")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing interviewId query parameter", body["error"])
}
