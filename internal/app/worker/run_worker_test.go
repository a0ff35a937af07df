package worker

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"cohortly/internal/app/service"
	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"
	"cohortly/internal/judge"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// echoJudge answers every execution with its stdin, so verdicts are
// predictable without a real judge.
type echoJudge struct{}

func (echoJudge) Execute(ctx context.Context, req judge.ExecutionRequest) judge.ExecutionResult {
	return judge.ExecutionResult{
		Stdout: req.Stdin,
		Status: judge.Status{ID: judge.StatusIDAccepted, Description: "Accepted"},
	}
}

func (e echoJudge) SubmitBatch(ctx context.Context, reqs []judge.ExecutionRequest) ([]string, error) {
	tokens := make([]string, len(reqs))
	for i := range reqs {
		tokens[i] = reqs[i].Stdin
	}
	return tokens, nil
}

func (e echoJudge) PollBatch(ctx context.Context, tokens []string) ([]judge.ExecutionResult, error) {
	out := make([]judge.ExecutionResult, len(tokens))
	for i, tok := range tokens {
		out[i] = e.Execute(ctx, judge.ExecutionRequest{Stdin: tok})
	}
	return out, nil
}

type stubQuestionRepo struct {
	repository.QuestionRepository
	question  *model.Question
	testCases []model.TestCase
}

func (s *stubQuestionRepo) FindQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	if s.question == nil || s.question.ID != id {
		return nil, common.ErrNotFound
	}
	return s.question, nil
}

func (s *stubQuestionRepo) GetTestCasesByQuestionID(ctx context.Context, questionID string) ([]model.TestCase, error) {
	return s.testCases, nil
}

func newWorkerForTest(t *testing.T, repo *stubQuestionRepo) (*RunWorker, *service.RunService) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })

	runService := service.NewRunService(repo, rdb, "test_run_queue", 10*time.Minute)
	scheduler := judge.NewScheduler(echoJudge{}, 10, time.Millisecond, 3)
	w := NewRunWorker(rdb, repo, runService, scheduler, judge.ClassifyOptions{}, "test_run_queue")
	return w, runService
}

func TestProcessJobRunsVisibleTestCases(t *testing.T) {
	repo := &stubQuestionRepo{
		question: &model.Question{ID: "q1", Type: model.QuestionTypeProgramming},
		testCases: []model.TestCase{
			{ID: "tc-1", Input: "1", ExpectedOutput: "1"},
			{ID: "tc-2", Input: "2", ExpectedOutput: "999"},
			{ID: "tc-hidden", Input: "3", ExpectedOutput: "3", Hidden: true},
		},
	}
	w, runService := newWorkerForTest(t, repo)

	payload, _ := json.Marshal(service.RunJob{
		JobID:      "job-1",
		UserID:     "user-1",
		QuestionID: "q1",
		Language:   "python",
		Code:       "code",
	})
	w.processJob(context.Background(), payload)

	result, err := runService.GetRunResult(context.Background(), "job-1")
	if err != nil {
		t.Fatalf("GetRunResult: %v", err)
	}
	if result.Status != service.RunStatusCompleted {
		t.Fatalf("expected completed, got %s (%s)", result.Status, result.Error)
	}

	var verdicts []judge.TestCaseVerdict
	if err := json.Unmarshal(result.Verdicts, &verdicts); err != nil {
		t.Fatalf("bad verdicts payload: %v", err)
	}
	if len(verdicts) != 2 {
		t.Fatalf("hidden cases must not run, got %d verdicts", len(verdicts))
	}
	if !verdicts[0].Passed {
		t.Errorf("echoed output should pass: %+v", verdicts[0])
	}
	if verdicts[1].Passed {
		t.Errorf("mismatched output should fail: %+v", verdicts[1])
	}
}

func TestProcessJobCustomInputSkipsTestCases(t *testing.T) {
	repo := &stubQuestionRepo{
		question:  &model.Question{ID: "q1", Type: model.QuestionTypeProgramming},
		testCases: []model.TestCase{{ID: "tc-1", Input: "1", ExpectedOutput: "1"}},
	}
	w, runService := newWorkerForTest(t, repo)

	input := "custom stdin"
	payload, _ := json.Marshal(service.RunJob{
		JobID:       "job-2",
		QuestionID:  "q1",
		Language:    "python",
		Code:        "code",
		CustomInput: &input,
	})
	w.processJob(context.Background(), payload)

	result, err := runService.GetRunResult(context.Background(), "job-2")
	if err != nil {
		t.Fatalf("GetRunResult: %v", err)
	}

	var verdicts []judge.TestCaseVerdict
	if err := json.Unmarshal(result.Verdicts, &verdicts); err != nil {
		t.Fatalf("bad verdicts payload: %v", err)
	}
	if len(verdicts) != 1 || verdicts[0].TestCaseID != "custom" {
		t.Fatalf("expected a single custom run, got %+v", verdicts)
	}
	if verdicts[0].ActualOutput != "custom stdin" {
		t.Errorf("custom input should reach the judge, got %q", verdicts[0].ActualOutput)
	}
}

func TestProcessJobNoRunnableInputs(t *testing.T) {
	repo := &stubQuestionRepo{
		question:  &model.Question{ID: "q1", Type: model.QuestionTypeProgramming},
		testCases: []model.TestCase{{ID: "tc-1", Input: "1", ExpectedOutput: "1", Hidden: true}},
	}
	w, runService := newWorkerForTest(t, repo)

	payload, _ := json.Marshal(service.RunJob{JobID: "job-3", QuestionID: "q1", Language: "python", Code: "code"})
	w.processJob(context.Background(), payload)

	result, err := runService.GetRunResult(context.Background(), "job-3")
	if err != nil {
		t.Fatalf("GetRunResult: %v", err)
	}
	if result.Status != service.RunStatusFailed {
		t.Errorf("expected failed, got %s", result.Status)
	}
	if result.Error == "" {
		t.Error("failure should carry an error message")
	}
}
