package session

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/voiceprep/backend/internal/feedback"
	"github.com/voiceprep/backend/internal/interview"
	"github.com/voiceprep/backend/internal/storage/models"
)

type fakeFetcher struct {
	result *interview.FetchResult
	err    error
	calls  int
}

func (f *fakeFetcher) Fetch(ctx context.Context, userID, interviewID string) (*interview.FetchResult, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

type fakeFeedback struct {
	requests []feedback.GenerateRequest
	err      error
}

func (f *fakeFeedback) Generate(ctx context.Context, req feedback.GenerateRequest) (*models.Feedback, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	return &models.Feedback{Score: 7, Summary: "ok"}, nil
}

func newTestOrchestrator(fetcher *fakeFetcher, fb *fakeFeedback) *Orchestrator {
	return NewOrchestrator(Config{
		UserID:               "u1",
		UserName:             "Alex",
		GenerationWorkflow:   "wf-generate",
		InterviewerAssistant: "asst-interviewer",
	}, fetcher, fb)
}

func commandOfType(t *testing.T, cmds []Command, typ CommandType) Command {
	t.Helper()
	for _, cmd := range cmds {
		if cmd.Type == typ {
			return cmd
		}
	}
	t.Fatalf("no %s command in %v", typ, cmds)
	return Command{}
}

func hasCommand(cmds []Command, typ CommandType) bool {
	for _, cmd := range cmds {
		if cmd.Type == typ {
			return true
		}
	}
	return false
}

func TestOrchestrator_FullHandoff(t *testing.T) {
	fetcher := &fakeFetcher{result: &interview.FetchResult{
		InterviewID: "abc",
		Questions:   []string{"Q1", "Q2"},
		Role:        "Backend Engineer",
		Level:       "Senior",
		TechStack:   []string{"Go", "Postgres"},
	}}
	fb := &fakeFeedback{}
	ctx := context.Background()

	o := newTestOrchestrator(fetcher, fb)
	assert.Equal(t, StatusInactive, o.Status())
	assert.Equal(t, PhaseAwaitingGeneration, o.Phase())

	// user presses start: generation call begins
	cmds := o.HandleEvent(ctx, Event{Type: EventStart})
	assert.Equal(t, StatusConnecting, o.Status())
	start := commandOfType(t, cmds, CommandStartCall)
	assert.Equal(t, CallModeGenerate, start.Mode)
	assert.Equal(t, "wf-generate", start.Assistant)
	assert.Equal(t, "u1", start.Variables["userid"])

	o.HandleEvent(ctx, Event{Type: EventCallStarted})
	assert.Equal(t, StatusActive, o.Status())

	// generation call chatter should not leak into the interview pairing
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "assistant", Transcript: "What role are you preparing for?", Final: true})
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "user", Transcript: "Backend engineer", Final: true})

	// generation call ends: fetch binds the interview and the second call starts
	cmds = o.HandleEvent(ctx, Event{Type: EventCallEnded})
	require.Equal(t, 1, fetcher.calls)
	assert.Equal(t, "abc", o.InterviewID())
	assert.Equal(t, StatusConnecting, o.Status())
	assert.Equal(t, PhaseAwaitingInterview, o.Phase())

	start = commandOfType(t, cmds, CommandStartCall)
	assert.Equal(t, CallModeInterview, start.Mode)
	assert.Equal(t, "asst-interviewer", start.Assistant)
	assert.Equal(t, "- Q1\n- Q2", start.Variables["questions"])
	assert.Equal(t, "abc", start.Variables["interviewId"])

	o.HandleEvent(ctx, Event{Type: EventCallStarted})
	assert.Equal(t, StatusActive, o.Status())
	assert.Equal(t, PhaseInProgress, o.Phase())

	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "assistant", Transcript: "Q1", Final: true})
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "user", Transcript: "Answer one.", Final: true})
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "assistant", Transcript: "Q2", Final: true})
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "user", Transcript: "Answer two.", Final: true})

	cmds = o.HandleEvent(ctx, Event{Type: EventCallEnded})
	assert.Equal(t, StatusFinished, o.Status())
	assert.Equal(t, PhaseComplete, o.Phase())

	// fetch ran exactly once for the whole run
	assert.Equal(t, 1, fetcher.calls)

	require.Len(t, fb.requests, 1)
	assert.Equal(t, "abc", fb.requests[0].InterviewID)
	assert.Equal(t, []string{"Q1", "Q2"}, fb.requests[0].Questions)
	assert.Equal(t, []string{"Answer one.", "Answer two."}, fb.requests[0].Answers)
	assert.Equal(t, "Backend Engineer", fb.requests[0].Role)
	assert.Equal(t, "Go, Postgres", fb.requests[0].TechStack)

	nav := commandOfType(t, cmds, CommandNavigate)
	assert.Equal(t, "/feedback/abc", nav.Path)
}

func TestOrchestrator_EmptyFetchFallsBackToInactive(t *testing.T) {
	fetcher := &fakeFetcher{result: &interview.FetchResult{Questions: []string{}}}
	fb := &fakeFeedback{}
	ctx := context.Background()

	o := newTestOrchestrator(fetcher, fb)
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})

	cmds := o.HandleEvent(ctx, Event{Type: EventCallEnded})
	assert.Equal(t, StatusInactive, o.Status())
	assert.True(t, hasCommand(cmds, CommandAlert))
	assert.False(t, hasCommand(cmds, CommandStartCall))
	assert.Empty(t, o.InterviewID())
	assert.Empty(t, fb.requests)
}

func TestOrchestrator_FetchErrorFallsBackToInactive(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("store down")}
	ctx := context.Background()

	o := newTestOrchestrator(fetcher, &fakeFeedback{})
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})

	cmds := o.HandleEvent(ctx, Event{Type: EventCallEnded})
	assert.Equal(t, StatusInactive, o.Status())
	assert.True(t, hasCommand(cmds, CommandAlert))
}

func TestOrchestrator_DisconnectWithoutInterviewNavigatesHome(t *testing.T) {
	fetcher := &fakeFetcher{}
	fb := &fakeFeedback{}
	ctx := context.Background()

	o := newTestOrchestrator(fetcher, fb)
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})

	cmds := o.HandleEvent(ctx, Event{Type: EventDisconnect})
	assert.Equal(t, StatusFinished, o.Status())
	assert.True(t, hasCommand(cmds, CommandStopCall))
	nav := commandOfType(t, cmds, CommandNavigate)
	assert.Equal(t, "/", nav.Path)
	assert.Empty(t, fb.requests)
}

func TestOrchestrator_FeedbackFailureNavigatesHome(t *testing.T) {
	fetcher := &fakeFetcher{result: &interview.FetchResult{
		InterviewID: "abc",
		Questions:   []string{"Q1"},
	}}
	fb := &fakeFeedback{err: errors.New("llm down")}
	ctx := context.Background()

	o := newTestOrchestrator(fetcher, fb)
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})
	o.HandleEvent(ctx, Event{Type: EventCallEnded})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "assistant", Transcript: "Q1", Final: true})
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "user", Transcript: "A1", Final: true})

	cmds := o.HandleEvent(ctx, Event{Type: EventCallEnded})
	require.Len(t, fb.requests, 1)
	nav := commandOfType(t, cmds, CommandNavigate)
	assert.Equal(t, "/", nav.Path)
}

func TestOrchestrator_PresetInterviewSkipsGeneration(t *testing.T) {
	fetcher := &fakeFetcher{}
	fb := &fakeFeedback{}
	ctx := context.Background()

	o := NewOrchestrator(Config{
		UserID:               "u1",
		InterviewID:          "pre-1",
		Questions:            []string{"Q1"},
		Role:                 "SRE",
		InterviewerAssistant: "asst-interviewer",
	}, fetcher, fb)
	assert.Equal(t, PhaseAwaitingInterview, o.Phase())

	cmds := o.HandleEvent(ctx, Event{Type: EventStart})
	start := commandOfType(t, cmds, CommandStartCall)
	assert.Equal(t, CallModeInterview, start.Mode)
	assert.Equal(t, "pre-1", start.Variables["interviewId"])
	assert.Zero(t, fetcher.calls)
}

func TestOrchestrator_StartWhileActiveIsIgnored(t *testing.T) {
	fetcher := &fakeFetcher{}
	ctx := context.Background()

	o := newTestOrchestrator(fetcher, &fakeFeedback{})
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})

	cmds := o.HandleEvent(ctx, Event{Type: EventStart})
	assert.Empty(t, cmds)
	assert.Equal(t, StatusActive, o.Status())
}

func TestOrchestrator_SpeechEventsArePresentationalOnly(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(&fakeFetcher{}, &fakeFeedback{})
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})

	cmds := o.HandleEvent(ctx, Event{Type: EventSpeechStarted})
	require.Len(t, cmds, 1)
	assert.True(t, cmds[0].Speaking)
	assert.Equal(t, StatusActive, o.Status())

	cmds = o.HandleEvent(ctx, Event{Type: EventSpeechEnded})
	require.Len(t, cmds, 1)
	assert.False(t, cmds[0].Speaking)
}

func TestOrchestrator_VoiceErrorLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(&fakeFetcher{}, &fakeFeedback{})
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})

	cmds := o.HandleEvent(ctx, Event{Type: EventError, Error: "mic denied"})
	assert.Empty(t, cmds)
	assert.Equal(t, StatusActive, o.Status())
}

func TestOrchestrator_NonFinalTranscriptIgnored(t *testing.T) {
	ctx := context.Background()
	o := newTestOrchestrator(&fakeFetcher{}, &fakeFeedback{})
	o.HandleEvent(ctx, Event{Type: EventStart})
	o.HandleEvent(ctx, Event{Type: EventCallStarted})

	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "user", Transcript: "partial", Final: false})
	o.HandleEvent(ctx, Event{Type: EventTranscript, Role: "user", Transcript: "final", Final: true})

	transcript := o.Transcript()
	require.Len(t, transcript, 1)
	assert.Equal(t, "final", transcript[0].Content)
}

func TestPairTranscript_MultiTurnAnswers(t *testing.T) {
	questions, answers := PairTranscript([]models.TranscriptEntry{
		{Role: models.RoleSystem, Content: "session start"},
		{Role: models.RoleUser, Content: "hello?"},
		{Role: models.RoleAssistant, Content: "Q1"},
		{Role: models.RoleUser, Content: "part one."},
		{Role: models.RoleUser, Content: "part two."},
		{Role: models.RoleAssistant, Content: "Q2"},
	})

	assert.Equal(t, []string{"Q1", "Q2"}, questions)
	assert.Equal(t, []string{"part one. part two.", ""}, answers)
}

func TestPairTranscript_Empty(t *testing.T) {
	questions, answers := PairTranscript(nil)
	assert.Empty(t, questions)
	assert.Empty(t, answers)
}
