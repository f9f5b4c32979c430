package models

import "time"

// Interview is a finalized set of generated questions for one user. Questions
// are immutable once the record exists.
type Interview struct {
	ID        string
	UserID    string
	Role      string
	Level     string
	Type      string
	TechStack []string
	Questions []string
	Finalized bool
	CreatedAt time.Time
}

// Feedback is the structured review the model produces for one completed
// interview. Score is an integer between 1 and 10.
type Feedback struct {
	Score              int    `json:"score_out_of_10"`
	Summary            string `json:"summary"`
	TechnicalFeedback  string `json:"technical_feedback"`
	BehavioralFeedback string `json:"behavioral_feedback"`
	NextSteps          string `json:"next_steps"`
}

// InterviewResult stores the feedback together with the transcript it was
// derived from, keyed by interview so a regenerate overwrites rather than
// duplicates.
type InterviewResult struct {
	InterviewID string
	Role        string
	Level       string
	TechStack   string
	Questions   []string
	Answers     []string
	Feedback    Feedback
	FinalScore  int
	CreatedAt   time.Time
}

type TranscriptRole string

const (
	RoleUser      TranscriptRole = "user"
	RoleAssistant TranscriptRole = "assistant"
	RoleSystem    TranscriptRole = "system"
)

// TranscriptEntry is one finalized utterance from the voice session, in
// arrival order. Entries are never reordered or deduplicated.
type TranscriptEntry struct {
	Role    TranscriptRole
	Content string
}
