package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// stubQuestionRepo overrides only the lookups the run path needs.
type stubQuestionRepo struct {
	repository.QuestionRepository
	question *model.Question
}

func (s *stubQuestionRepo) FindQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	if s.question == nil || s.question.ID != id {
		return nil, common.ErrNotFound
	}
	return s.question, nil
}

func newRunServiceForTest(t *testing.T, question *model.Question) (*RunService, *miniredis.Miniredis, *redis.Client) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	svc := NewRunService(&stubQuestionRepo{question: question}, rdb, "test_run_queue", 10*time.Minute)
	return svc, mr, rdb
}

func TestEnqueueRunPushesJobAndPendingResult(t *testing.T) {
	ctx := context.Background()
	question := &model.Question{ID: "q1", Type: model.QuestionTypeProgramming}
	svc, _, rdb := newRunServiceForTest(t, question)

	jobID, err := svc.EnqueueRun(ctx, "user-1", "q1", RunCodeRequest{
		Language: "python",
		Code:     "print(1)",
	})
	if err != nil {
		t.Fatalf("EnqueueRun: %v", err)
	}
	if jobID == "" {
		t.Fatal("expected a job id")
	}

	payload, err := rdb.RPop(ctx, "test_run_queue").Result()
	if err != nil {
		t.Fatalf("queue should hold the job: %v", err)
	}
	var job RunJob
	if err := json.Unmarshal([]byte(payload), &job); err != nil {
		t.Fatalf("bad job payload: %v", err)
	}
	if job.JobID != jobID || job.QuestionID != "q1" || job.UserID != "user-1" {
		t.Errorf("unexpected job: %+v", job)
	}

	result, err := svc.GetRunResult(ctx, jobID)
	if err != nil {
		t.Fatalf("GetRunResult: %v", err)
	}
	if result.Status != RunStatusPending {
		t.Errorf("fresh job should be pending, got %s", result.Status)
	}

	if ttl, err := rdb.TTL(ctx, runResultKeyPrefix+jobID).Result(); err != nil || ttl <= 0 || ttl > 10*time.Minute {
		t.Errorf("result key should carry a TTL, got %v (%v)", ttl, err)
	}
}

func TestEnqueueRunRejectsMCQ(t *testing.T) {
	question := &model.Question{ID: "q1", Type: model.QuestionTypeMCQ}
	svc, _, _ := newRunServiceForTest(t, question)

	_, err := svc.EnqueueRun(context.Background(), "user-1", "q1", RunCodeRequest{Language: "python", Code: "x"})
	if !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("expected bad request, got %v", err)
	}
}

func TestEnqueueRunValidatesInput(t *testing.T) {
	question := &model.Question{ID: "q1", Type: model.QuestionTypeProgramming}
	svc, _, _ := newRunServiceForTest(t, question)

	if _, err := svc.EnqueueRun(context.Background(), "u", "q1", RunCodeRequest{Language: "python"}); !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("missing code: expected bad request, got %v", err)
	}
	if _, err := svc.EnqueueRun(context.Background(), "u", "q1", RunCodeRequest{Code: "x"}); !errors.Is(err, common.ErrBadRequest) {
		t.Errorf("missing language: expected bad request, got %v", err)
	}
	if _, err := svc.EnqueueRun(context.Background(), "u", "missing", RunCodeRequest{Language: "python", Code: "x"}); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("unknown question: expected not found, got %v", err)
	}
}

func TestGetRunResultExpired(t *testing.T) {
	question := &model.Question{ID: "q1", Type: model.QuestionTypeProgramming}
	svc, mr, _ := newRunServiceForTest(t, question)

	jobID, err := svc.EnqueueRun(context.Background(), "user-1", "q1", RunCodeRequest{Language: "python", Code: "x"})
	if err != nil {
		t.Fatalf("EnqueueRun: %v", err)
	}

	mr.FastForward(11 * time.Minute)

	if _, err := svc.GetRunResult(context.Background(), jobID); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expired result should be not found, got %v", err)
	}
}

func TestStoreRunResultRoundTrip(t *testing.T) {
	question := &model.Question{ID: "q1", Type: model.QuestionTypeProgramming}
	svc, _, _ := newRunServiceForTest(t, question)

	now := time.Now()
	stored := RunResult{
		JobID:       "job-1",
		Status:      RunStatusCompleted,
		Verdicts:    json.RawMessage(`[{"test_case_id":"tc-1","passed":true}]`),
		CompletedAt: &now,
	}
	if err := svc.StoreRunResult(context.Background(), stored); err != nil {
		t.Fatalf("StoreRunResult: %v", err)
	}

	got, err := svc.GetRunResult(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetRunResult: %v", err)
	}
	if got.Status != RunStatusCompleted || len(got.Verdicts) == 0 {
		t.Errorf("unexpected result: %+v", got)
	}
}
