package session

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/feedback"
	"github.com/voiceprep/backend/internal/interview"
	"github.com/voiceprep/backend/internal/metrics"
	"github.com/voiceprep/backend/internal/storage/models"
	"github.com/voiceprep/backend/pkg/logger"
)

type Status string

const (
	StatusInactive   Status = "inactive"
	StatusConnecting Status = "connecting"
	StatusActive     Status = "active"
	StatusFinished   Status = "finished"
)

// Phase makes the handoff progress explicit instead of inferring it from
// whether an interview id happens to be bound.
type Phase string

const (
	PhaseAwaitingGeneration Phase = "awaiting_generation"
	PhaseAwaitingInterview  Phase = "awaiting_interview"
	PhaseInProgress         Phase = "in_progress"
	PhaseComplete           Phase = "complete"
)

type InterviewFetcher interface {
	Fetch(ctx context.Context, userID, interviewID string) (*interview.FetchResult, error)
}

type FeedbackCreator interface {
	Generate(ctx context.Context, req feedback.GenerateRequest) (*models.Feedback, error)
}

type Config struct {
	UserID   string
	UserName string

	// Preset interview data skips the generation call entirely and starts
	// directly in the interview phase.
	InterviewID string
	Questions   []string
	Role        string
	Level       string
	TechStack   string

	GenerationWorkflow   string
	InterviewerAssistant string
}

// Orchestrator is the single consumer of one voice session's event stream.
// It owns only transient state: call status, handoff phase, the transcript
// buffer and the bound interview identifier. At most one call is active at a
// time, and the interview id is never rebound within a run.
type Orchestrator struct {
	cfg        Config
	interviews InterviewFetcher
	feedback   FeedbackCreator

	status      Status
	phase       Phase
	interviewID string
	questions   []string
	role        string
	level       string
	techStack   string
	transcript  []models.TranscriptEntry
}

func NewOrchestrator(cfg Config, interviews InterviewFetcher, fb FeedbackCreator) *Orchestrator {
	o := &Orchestrator{
		cfg:        cfg,
		interviews: interviews,
		feedback:   fb,
		status:     StatusInactive,
		phase:      PhaseAwaitingGeneration,
	}

	if cfg.InterviewID != "" && len(cfg.Questions) > 0 {
		o.interviewID = cfg.InterviewID
		o.questions = cfg.Questions
		o.role = cfg.Role
		o.level = cfg.Level
		o.techStack = cfg.TechStack
		o.phase = PhaseAwaitingInterview
	}

	return o
}

func (o *Orchestrator) Status() Status { return o.status }
func (o *Orchestrator) Phase() Phase   { return o.phase }

func (o *Orchestrator) InterviewID() string { return o.interviewID }

func (o *Orchestrator) Transcript() []models.TranscriptEntry {
	out := make([]models.TranscriptEntry, len(o.transcript))
	copy(out, o.transcript)
	return out
}

// HandleEvent advances the state machine and returns the commands the client
// must execute. Events arrive sequentially; there is no concurrent access
// within one session.
func (o *Orchestrator) HandleEvent(ctx context.Context, ev Event) []Command {
	switch ev.Type {
	case EventStart:
		return o.handleStart()
	case EventCallStarted:
		return o.handleCallStarted()
	case EventTranscript:
		o.handleTranscript(ev)
		return nil
	case EventSpeechStarted:
		return []Command{{Type: CommandSpeaking, Speaking: true}}
	case EventSpeechEnded:
		return []Command{{Type: CommandSpeaking, Speaking: false}}
	case EventError:
		// voice errors are logged only; the user can retry or disconnect
		logger.Error("Voice session error",
			zap.String("user_id", o.cfg.UserID),
			zap.String("error", ev.Error),
		)
		return nil
	case EventCallEnded:
		return o.handleCallEnded(ctx)
	case EventDisconnect:
		return o.handleDisconnect(ctx)
	default:
		logger.Warn("Unknown session event", zap.String("type", string(ev.Type)))
		return nil
	}
}

func (o *Orchestrator) handleStart() []Command {
	if o.status != StatusInactive {
		logger.Warn("Start requested while a call is already underway",
			zap.String("status", string(o.status)),
		)
		return nil
	}

	cmds := o.setStatus(StatusConnecting)

	if o.phase == PhaseAwaitingInterview {
		return append(cmds, o.startInterviewCall())
	}

	return append(cmds, Command{
		Type:      CommandStartCall,
		Mode:      CallModeGenerate,
		Assistant: o.cfg.GenerationWorkflow,
		Variables: map[string]string{
			"username": o.cfg.UserName,
			"userid":   o.cfg.UserID,
		},
	})
}

func (o *Orchestrator) handleCallStarted() []Command {
	if o.status != StatusConnecting {
		return nil
	}

	cmds := o.setStatus(StatusActive)

	if o.phase == PhaseAwaitingInterview {
		o.setPhase(PhaseInProgress)
	}

	return cmds
}

func (o *Orchestrator) handleTranscript(ev Event) {
	if !ev.Final || o.status != StatusActive {
		return
	}

	o.transcript = append(o.transcript, models.TranscriptEntry{
		Role:    models.TranscriptRole(ev.Role),
		Content: ev.Transcript,
	})
}

func (o *Orchestrator) handleCallEnded(ctx context.Context) []Command {
	if o.status != StatusActive && o.status != StatusConnecting {
		return nil
	}

	if o.phase == PhaseAwaitingGeneration {
		return o.handoff(ctx)
	}

	return o.finish(ctx)
}

func (o *Orchestrator) handleDisconnect(ctx context.Context) []Command {
	if o.status == StatusInactive || o.status == StatusFinished {
		return nil
	}

	cmds := []Command{{Type: CommandStopCall}}
	return append(cmds, o.finish(ctx)...)
}

// handoff runs after the generation call ends: load the interview the
// generation workflow just persisted, bind it and immediately start the
// interview call. An empty fetch drops back to inactive with a visible
// message; an interview call is never started with no questions.
func (o *Orchestrator) handoff(ctx context.Context) []Command {
	fetched, err := o.interviews.Fetch(ctx, o.cfg.UserID, "")
	if err != nil || fetched == nil || fetched.InterviewID == "" || len(fetched.Questions) == 0 {
		if err != nil {
			logger.Error("Interview fetch after generation failed", zap.Error(err))
		} else {
			logger.Warn("Generation call ended but no interview was found",
				zap.String("user_id", o.cfg.UserID),
			)
		}

		cmds := o.setStatus(StatusInactive)
		return append(cmds, Command{
			Type:    CommandAlert,
			Message: "We could not load your generated interview. Please try again.",
		})
	}

	o.interviewID = fetched.InterviewID
	o.questions = fetched.Questions
	o.role = fetched.Role
	o.level = fetched.Level
	o.techStack = strings.Join(fetched.TechStack, ", ")
	// the generation call's conversation must not leak into the answer
	// pairing for the interview that follows
	o.transcript = nil
	o.setPhase(PhaseAwaitingInterview)

	logger.Info("Interview bound, starting interview call",
		zap.String("interview_id", o.interviewID),
		zap.Int("questions", len(o.questions)),
	)

	cmds := o.setStatus(StatusConnecting)
	return append(cmds, o.startInterviewCall())
}

func (o *Orchestrator) startInterviewCall() Command {
	formatted := make([]string, len(o.questions))
	for i, q := range o.questions {
		formatted[i] = "- " + q
	}

	return Command{
		Type:      CommandStartCall,
		Mode:      CallModeInterview,
		Assistant: o.cfg.InterviewerAssistant,
		Variables: map[string]string{
			"questions":   strings.Join(formatted, "\n"),
			"interviewId": o.interviewID,
		},
	}
}

func (o *Orchestrator) finish(ctx context.Context) []Command {
	cmds := o.setStatus(StatusFinished)
	o.setPhase(PhaseComplete)

	if o.interviewID == "" {
		return append(cmds, Command{Type: CommandNavigate, Path: "/"})
	}

	questions, answers := PairTranscript(o.transcript)
	if len(questions) == 0 {
		logger.Warn("Interview ended without any question turns",
			zap.String("interview_id", o.interviewID),
		)
		return append(cmds, Command{Type: CommandNavigate, Path: "/"})
	}

	_, err := o.feedback.Generate(ctx, feedback.GenerateRequest{
		InterviewID: o.interviewID,
		Questions:   questions,
		Answers:     answers,
		Role:        o.role,
		Level:       o.level,
		TechStack:   o.techStack,
	})
	if err != nil {
		logger.Error("Feedback generation failed",
			zap.String("interview_id", o.interviewID),
			zap.Error(err),
		)
		return append(cmds, Command{Type: CommandNavigate, Path: "/"})
	}

	return append(cmds, Command{
		Type: CommandNavigate,
		Path: fmt.Sprintf("/feedback/%s", o.interviewID),
	})
}

func (o *Orchestrator) setStatus(status Status) []Command {
	if o.status == status {
		return nil
	}
	o.status = status
	return []Command{{Type: CommandStatus, Status: status}}
}

func (o *Orchestrator) setPhase(phase Phase) {
	if o.phase == phase {
		return
	}
	o.phase = phase
	metrics.SessionTransitions.WithLabelValues(string(phase)).Inc()
}

// PairTranscript builds index-aligned question and answer lists from the raw
// transcript. The voice session tags no relationship between turns, so an
// assistant turn opens a question and every user turn up to the next
// assistant turn forms its answer. Turns before the first question and
// system turns are dropped; a question the user never answered pairs with an
// empty string.
func PairTranscript(transcript []models.TranscriptEntry) ([]string, []string) {
	var questions, answers []string

	for _, entry := range transcript {
		switch entry.Role {
		case models.RoleAssistant:
			questions = append(questions, entry.Content)
			answers = append(answers, "")
		case models.RoleUser:
			if len(answers) == 0 {
				continue
			}
			last := len(answers) - 1
			if answers[last] == "" {
				answers[last] = entry.Content
			} else {
				answers[last] = answers[last] + " " + entry.Content
			}
		}
	}

	return questions, answers
}
