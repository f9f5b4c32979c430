package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/storage/models"
	"github.com/voiceprep/backend/pkg/logger"
)

type Client struct {
	db *sql.DB
}

func NewClient(dbPath string) (*Client, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	_, err = db.Exec("PRAGMA journal_mode = WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	logger.Info("SQLite client initialized", zap.String("path", dbPath))

	return &Client{db: db}, nil
}

func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) InitSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS interviews (
		id TEXT PRIMARY KEY,
		user_id TEXT NOT NULL,
		role TEXT NOT NULL,
		level TEXT NOT NULL,
		type TEXT,
		techstack TEXT NOT NULL,
		questions TEXT NOT NULL,
		finalized INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_interviews_user ON interviews(user_id);
	CREATE INDEX IF NOT EXISTS idx_interviews_created ON interviews(created_at);

	CREATE TABLE IF NOT EXISTS interview_results (
		interview_id TEXT PRIMARY KEY,
		role TEXT,
		level TEXT,
		techstack TEXT,
		questions TEXT NOT NULL,
		answers TEXT NOT NULL,
		feedback TEXT NOT NULL,
		final_score INTEGER,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_results_created ON interview_results(created_at);
	`

	_, err := c.db.Exec(schema)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	logger.Info("SQLite schema initialized")
	return nil
}

func (c *Client) InsertInterview(interview *models.Interview) error {
	techstackJSON, err := json.Marshal(interview.TechStack)
	if err != nil {
		return fmt.Errorf("failed to marshal techstack: %w", err)
	}
	questionsJSON, err := json.Marshal(interview.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}

	finalized := 0
	if interview.Finalized {
		finalized = 1
	}

	query := `
		INSERT INTO interviews (id, user_id, role, level, type, techstack, questions, finalized, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = c.db.Exec(
		query,
		interview.ID,
		interview.UserID,
		interview.Role,
		interview.Level,
		interview.Type,
		string(techstackJSON),
		string(questionsJSON),
		finalized,
		interview.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to insert interview: %w", err)
	}

	logger.Debug("Interview inserted",
		zap.String("interview_id", interview.ID),
		zap.String("user_id", interview.UserID),
	)
	return nil
}

// GetInterview returns nil when no interview exists with the given id.
func (c *Client) GetInterview(id string) (*models.Interview, error) {
	query := `
		SELECT id, user_id, role, level, type, techstack, questions, finalized, created_at
		FROM interviews
		WHERE id = ?
	`

	interview, err := c.scanInterview(c.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return interview, err
}

// LatestInterview returns the most recent finalized interview for the user,
// or nil when none exists. Ties on created_at fall back to insertion order.
func (c *Client) LatestInterview(userID string) (*models.Interview, error) {
	query := `
		SELECT id, user_id, role, level, type, techstack, questions, finalized, created_at
		FROM interviews
		WHERE user_id = ? AND finalized = 1
		ORDER BY created_at DESC, rowid DESC
		LIMIT 1
	`

	interview, err := c.scanInterview(c.db.QueryRow(query, userID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return interview, err
}

func (c *Client) ListInterviews(userID string, limit int) ([]models.Interview, error) {
	query := `
		SELECT id, user_id, role, level, type, techstack, questions, finalized, created_at
		FROM interviews
		WHERE user_id = ? AND finalized = 1
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?
	`

	rows, err := c.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list interviews: %w", err)
	}
	defer rows.Close()

	var interviews []models.Interview
	for rows.Next() {
		interview, err := c.scanInterview(rows)
		if err != nil {
			return nil, err
		}
		interviews = append(interviews, *interview)
	}

	return interviews, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func (c *Client) scanInterview(row rowScanner) (*models.Interview, error) {
	var interview models.Interview
	var techstackJSON, questionsJSON string
	var finalized int
	var createdAt int64

	err := row.Scan(
		&interview.ID,
		&interview.UserID,
		&interview.Role,
		&interview.Level,
		&interview.Type,
		&techstackJSON,
		&questionsJSON,
		&finalized,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, err
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan interview: %w", err)
	}

	if err := json.Unmarshal([]byte(techstackJSON), &interview.TechStack); err != nil {
		return nil, fmt.Errorf("failed to unmarshal techstack: %w", err)
	}
	if err := json.Unmarshal([]byte(questionsJSON), &interview.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}

	interview.Finalized = finalized == 1
	interview.CreatedAt = time.Unix(createdAt, 0)

	return &interview, nil
}

// UpsertResult writes the feedback for an interview, overwriting any prior
// result for the same interview id. Last write wins.
func (c *Client) UpsertResult(result *models.InterviewResult) error {
	questionsJSON, err := json.Marshal(result.Questions)
	if err != nil {
		return fmt.Errorf("failed to marshal questions: %w", err)
	}
	answersJSON, err := json.Marshal(result.Answers)
	if err != nil {
		return fmt.Errorf("failed to marshal answers: %w", err)
	}
	feedbackJSON, err := json.Marshal(result.Feedback)
	if err != nil {
		return fmt.Errorf("failed to marshal feedback: %w", err)
	}

	query := `
		INSERT INTO interview_results (interview_id, role, level, techstack, questions, answers, feedback, final_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(interview_id) DO UPDATE SET
			role = excluded.role,
			level = excluded.level,
			techstack = excluded.techstack,
			questions = excluded.questions,
			answers = excluded.answers,
			feedback = excluded.feedback,
			final_score = excluded.final_score,
			created_at = excluded.created_at
	`

	_, err = c.db.Exec(
		query,
		result.InterviewID,
		result.Role,
		result.Level,
		result.TechStack,
		string(questionsJSON),
		string(answersJSON),
		string(feedbackJSON),
		result.FinalScore,
		result.CreatedAt.Unix(),
	)

	if err != nil {
		return fmt.Errorf("failed to upsert interview result: %w", err)
	}

	logger.Info("Interview result stored",
		zap.String("interview_id", result.InterviewID),
		zap.Int("final_score", result.FinalScore),
	)
	return nil
}

func (c *Client) GetResult(interviewID string) (*models.InterviewResult, error) {
	query := `
		SELECT interview_id, role, level, techstack, questions, answers, feedback, final_score, created_at
		FROM interview_results
		WHERE interview_id = ?
	`

	var result models.InterviewResult
	var questionsJSON, answersJSON, feedbackJSON string
	var createdAt int64

	err := c.db.QueryRow(query, interviewID).Scan(
		&result.InterviewID,
		&result.Role,
		&result.Level,
		&result.TechStack,
		&questionsJSON,
		&answersJSON,
		&feedbackJSON,
		&result.FinalScore,
		&createdAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get interview result: %w", err)
	}

	if err := json.Unmarshal([]byte(questionsJSON), &result.Questions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal questions: %w", err)
	}
	if err := json.Unmarshal([]byte(answersJSON), &result.Answers); err != nil {
		return nil, fmt.Errorf("failed to unmarshal answers: %w", err)
	}
	if err := json.Unmarshal([]byte(feedbackJSON), &result.Feedback); err != nil {
		return nil, fmt.Errorf("failed to unmarshal feedback: %w", err)
	}

	result.CreatedAt = time.Unix(createdAt, 0)

	return &result, nil
}
