package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/voiceprep/backend/internal/storage/models"
	"github.com/voiceprep/backend/pkg/logger"
)

// Client caches the two hot read paths: feedback lookups by interview id and
// the latest-interview query per user. Both are invalidated on write, so a
// nil *Client (cache disabled) only costs extra document-store reads.
type Client struct {
	client *redis.Client
	ttl    time.Duration
}

func NewClient(host string, port int, password string, db int, ttl time.Duration) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client, ttl: ttl}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

func resultKey(interviewID string) string {
	return fmt.Sprintf("result:%s", interviewID)
}

func latestKey(userID string) string {
	return fmt.Sprintf("latest:%s", userID)
}

func (c *Client) SetResult(ctx context.Context, result *models.InterviewResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal result: %w", err)
	}

	err = c.client.Set(ctx, resultKey(result.InterviewID), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to cache result: %w", err)
	}

	logger.Debug("Result cached", zap.String("interview_id", result.InterviewID))
	return nil
}

func (c *Client) GetResult(ctx context.Context, interviewID string) (*models.InterviewResult, bool, error) {
	data, err := c.client.Get(ctx, resultKey(interviewID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached result: %w", err)
	}

	var result models.InterviewResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached result: %w", err)
	}

	logger.Debug("Result cache hit", zap.String("interview_id", interviewID))
	return &result, true, nil
}

func (c *Client) InvalidateResult(ctx context.Context, interviewID string) error {
	return c.client.Del(ctx, resultKey(interviewID)).Err()
}

func (c *Client) SetLatestInterview(ctx context.Context, userID string, interview *models.Interview) error {
	data, err := json.Marshal(interview)
	if err != nil {
		return fmt.Errorf("failed to marshal interview: %w", err)
	}

	err = c.client.Set(ctx, latestKey(userID), data, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to cache latest interview: %w", err)
	}

	return nil
}

func (c *Client) GetLatestInterview(ctx context.Context, userID string) (*models.Interview, bool, error) {
	data, err := c.client.Get(ctx, latestKey(userID)).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cached interview: %w", err)
	}

	var interview models.Interview
	if err := json.Unmarshal(data, &interview); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal cached interview: %w", err)
	}

	logger.Debug("Latest interview cache hit", zap.String("user_id", userID))
	return &interview, true, nil
}

func (c *Client) InvalidateLatestInterview(ctx context.Context, userID string) error {
	return c.client.Del(ctx, latestKey(userID)).Err()
}
