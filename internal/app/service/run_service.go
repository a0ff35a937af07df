package service

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"time"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// RunStatus tracks an async test-run job through its TTL-bounded lifetime.
const (
	RunStatusPending   = "pending"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)

const runResultKeyPrefix = "run:result:"

// RunJob is the queue payload for one ad-hoc test run. These runs are
// ephemeral: they never touch submissions, progress or stats.
type RunJob struct {
	JobID       string  `json:"job_id"`
	UserID      string  `json:"user_id"`
	QuestionID  string  `json:"question_id"`
	Language    string  `json:"language"`
	Code        string  `json:"code"`
	CustomInput *string `json:"custom_input,omitempty"`
}

// RunResult is what the worker stores under the job's result key.
type RunResult struct {
	JobID       string          `json:"job_id"`
	Status      string          `json:"status"`
	Error       string          `json:"error,omitempty"`
	Verdicts    json.RawMessage `json:"verdicts,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
}

// RunService enqueues ad-hoc test runs onto the Redis queue and reads their
// results back. Results live only for the configured TTL.
type RunService struct {
	questionRepo repository.QuestionRepository
	rdb          *redis.Client
	queueName    string
	resultTTL    time.Duration
}

func NewRunService(questionRepo repository.QuestionRepository, rdb *redis.Client, queueName string, resultTTL time.Duration) *RunService {
	return &RunService{
		questionRepo: questionRepo,
		rdb:          rdb,
		queueName:    queueName,
		resultTTL:    resultTTL,
	}
}

type RunCodeRequest struct {
	Language    string  `json:"language"`
	Code        string  `json:"code"`
	CustomInput *string `json:"custom_input,omitempty"`
}

// EnqueueRun validates the request, marks the job pending and pushes it onto
// the queue. The caller polls GetRunResult with the returned job ID.
func (s *RunService) EnqueueRun(ctx context.Context, userID, questionID string, req RunCodeRequest) (string, error) {
	if strings.TrimSpace(req.Code) == "" {
		return "", common.Errorf("code is required: %w", common.ErrBadRequest)
	}
	if req.Language == "" {
		return "", common.Errorf("language is required: %w", common.ErrBadRequest)
	}

	question, err := s.questionRepo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return "", common.Errorf("question not found: %w", err)
	}
	if question.Type != model.QuestionTypeProgramming {
		return "", common.Errorf("test runs are only available for programming questions: %w", common.ErrBadRequest)
	}

	job := RunJob{
		JobID:       uuid.NewString(),
		UserID:      userID,
		QuestionID:  questionID,
		Language:    req.Language,
		Code:        req.Code,
		CustomInput: req.CustomInput,
	}
	payload, err := json.Marshal(job)
	if err != nil {
		return "", common.Errorf("failed to marshal run job: %w", err)
	}

	pending, err := json.Marshal(RunResult{JobID: job.JobID, Status: RunStatusPending})
	if err != nil {
		return "", common.Errorf("failed to marshal pending result: %w", err)
	}
	if err := s.rdb.Set(ctx, runResultKeyPrefix+job.JobID, pending, s.resultTTL).Err(); err != nil {
		return "", common.Errorf("failed to mark run pending: %w", err)
	}
	if err := s.rdb.LPush(ctx, s.queueName, payload).Err(); err != nil {
		return "", common.Errorf("failed to enqueue run job: %w", err)
	}

	log.Printf("INFO: run job %s enqueued (user %s, question %s)", job.JobID, userID, questionID)
	return job.JobID, nil
}

// GetRunResult returns the job's current state. Expired or unknown jobs
// surface as not found.
func (s *RunService) GetRunResult(ctx context.Context, jobID string) (*RunResult, error) {
	data, err := s.rdb.Get(ctx, runResultKeyPrefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, common.Errorf("run result not found or expired: %w", common.ErrNotFound)
		}
		return nil, common.Errorf("failed to read run result: %w", err)
	}

	var result RunResult
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, common.Errorf("failed to decode run result: %w", err)
	}
	return &result, nil
}

// StoreRunResult writes a terminal result under the job's key, refreshing the
// TTL so callers have the full window to read it.
func (s *RunService) StoreRunResult(ctx context.Context, result RunResult) error {
	data, err := json.Marshal(result)
	if err != nil {
		return common.Errorf("failed to marshal run result: %w", err)
	}
	if err := s.rdb.Set(ctx, runResultKeyPrefix+result.JobID, data, s.resultTTL).Err(); err != nil {
		return common.Errorf("failed to store run result: %w", err)
	}
	return nil
}
