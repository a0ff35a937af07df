package judge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
)

// fakeClient scripts batch behavior for the scheduler. Each SubmitBatch call
// consumes one entry from the script.
type fakeClient struct {
	submitCalls int
	script      []fakeBatch
	polls       map[string]ExecutionResult
	pollsBefore map[string]int // extra non-terminal polls per token
}

type fakeBatch struct {
	submitErr error
	results   []ExecutionResult
}

func newFakeClient(script ...fakeBatch) *fakeClient {
	return &fakeClient{
		script:      script,
		polls:       make(map[string]ExecutionResult),
		pollsBefore: make(map[string]int),
	}
}

func (f *fakeClient) Execute(ctx context.Context, req ExecutionRequest) ExecutionResult {
	panic("not used by the scheduler")
}

func (f *fakeClient) SubmitBatch(ctx context.Context, reqs []ExecutionRequest) ([]string, error) {
	batch := f.script[f.submitCalls]
	f.submitCalls++
	if batch.submitErr != nil {
		return nil, batch.submitErr
	}
	tokens := make([]string, len(reqs))
	for i := range reqs {
		tokens[i] = fmt.Sprintf("tok-%d-%d", f.submitCalls, i)
		f.polls[tokens[i]] = batch.results[i]
	}
	return tokens, nil
}

func (f *fakeClient) PollBatch(ctx context.Context, tokens []string) ([]ExecutionResult, error) {
	out := make([]ExecutionResult, len(tokens))
	for i, tok := range tokens {
		if f.pollsBefore[tok] > 0 {
			f.pollsBefore[tok]--
			out[i] = ExecutionResult{Status: Status{ID: StatusIDProcessing, Description: "Processing"}}
			continue
		}
		out[i] = f.polls[tok]
	}
	return out, nil
}

func passResult(stdout string) ExecutionResult {
	return ExecutionResult{Stdout: stdout, Status: Status{ID: StatusIDAccepted, Description: "Accepted"}}
}

func manyResults(n int) []ExecutionResult {
	out := make([]ExecutionResult, n)
	for i := range out {
		out[i] = passResult("ok")
	}
	return out
}

func manyCases(n int) []TestCaseRun {
	out := make([]TestCaseRun, n)
	for i := range out {
		out[i] = TestCaseRun{TestCaseID: fmt.Sprintf("tc-%d", i), Input: "in", ExpectedOutput: "ok"}
	}
	return out
}

func testScheduler(c Client, batchSize int) *Scheduler {
	return NewScheduler(c, batchSize, time.Millisecond, 3)
}

func TestSchedulerPreservesOrderAcrossBatches(t *testing.T) {
	client := newFakeClient(
		fakeBatch{results: manyResults(10)},
		fakeBatch{results: manyResults(10)},
		fakeBatch{results: manyResults(5)},
	)
	s := testScheduler(client, 10)

	cases := manyCases(25)
	verdicts := s.RunTestCases(context.Background(), "python", "code", cases, ClassifyOptions{})

	if len(verdicts) != 25 {
		t.Fatalf("expected 25 verdicts, got %d", len(verdicts))
	}
	for i, v := range verdicts {
		if v.TestCaseID != cases[i].TestCaseID {
			t.Fatalf("verdict %d out of order: got %s", i, v.TestCaseID)
		}
		if !v.Passed {
			t.Errorf("verdict %d: expected pass, got %q", i, v.Error)
		}
	}
	if client.submitCalls != 3 {
		t.Errorf("expected 3 batches, got %d", client.submitCalls)
	}
}

func TestSchedulerWaitsOutNonTerminalPolls(t *testing.T) {
	client := newFakeClient(fakeBatch{results: manyResults(2)})
	client.pollsBefore["tok-1-0"] = 1
	s := testScheduler(client, 10)

	// First poll sees a processing entry, second sees everything terminal.
	verdicts := s.RunTestCases(context.Background(), "python", "code", manyCases(2), ClassifyOptions{})
	if len(verdicts) != 2 {
		t.Fatalf("expected 2 verdicts, got %d", len(verdicts))
	}
	for _, v := range verdicts {
		if !v.Passed {
			t.Errorf("expected pass, got %q", v.Error)
		}
	}
}

func TestSchedulerCompileFailureSkipsLaterBatches(t *testing.T) {
	compileFail := ExecutionResult{
		Status:        Status{ID: StatusIDCompilationError, Description: "Compilation Error"},
		CompileOutput: "missing semicolon",
	}
	first := manyResults(10)
	first[3] = compileFail

	client := newFakeClient(fakeBatch{results: first})
	s := testScheduler(client, 10)

	verdicts := s.RunTestCases(context.Background(), "cpp", "code", manyCases(25), ClassifyOptions{})
	if len(verdicts) != 25 {
		t.Fatalf("expected 25 verdicts, got %d", len(verdicts))
	}
	if client.submitCalls != 1 {
		t.Fatalf("later batches must not be dispatched after a compile failure, got %d submits", client.submitCalls)
	}
	for i := 10; i < 25; i++ {
		if verdicts[i].Passed {
			t.Fatalf("skipped verdict %d must fail", i)
		}
		if !strings.Contains(verdicts[i].Error, "missing semicolon") {
			t.Errorf("skipped verdict %d should carry the compile error, got %q", i, verdicts[i].Error)
		}
		if verdicts[i].StatusID != StatusIDCompilationError {
			t.Errorf("skipped verdict %d should replicate the compile status, got %d", i, verdicts[i].StatusID)
		}
	}
}

func TestSchedulerSubmitErrorFailsBatchOnly(t *testing.T) {
	client := newFakeClient(
		fakeBatch{submitErr: errors.New("connection refused")},
		fakeBatch{results: manyResults(5)},
	)
	s := testScheduler(client, 10)

	verdicts := s.RunTestCases(context.Background(), "python", "code", manyCases(15), ClassifyOptions{})
	if len(verdicts) != 15 {
		t.Fatalf("expected 15 verdicts, got %d", len(verdicts))
	}
	for i := 0; i < 10; i++ {
		if verdicts[i].Passed {
			t.Fatalf("verdict %d must fail after a submit error", i)
		}
		if !strings.Contains(verdicts[i].Error, "connection refused") {
			t.Errorf("verdict %d should carry the transport error, got %q", i, verdicts[i].Error)
		}
	}
	for i := 10; i < 15; i++ {
		if !verdicts[i].Passed {
			t.Errorf("verdict %d: later batch should still run, got %q", i, verdicts[i].Error)
		}
	}
}

func TestSchedulerPollTimeoutFailsWholeBatch(t *testing.T) {
	// One entry in the first batch never turns terminal within the budget.
	first := manyResults(10)
	first[0] = ExecutionResult{Status: Status{ID: StatusIDProcessing, Description: "Processing"}}
	client := newFakeClient(
		fakeBatch{results: first},
		fakeBatch{results: manyResults(5)},
	)
	s := testScheduler(client, 10)

	verdicts := s.RunTestCases(context.Background(), "python", "code", manyCases(15), ClassifyOptions{})
	if len(verdicts) != 15 {
		t.Fatalf("expected 15 verdicts, got %d", len(verdicts))
	}
	for i := 0; i < 10; i++ {
		if verdicts[i].Passed {
			t.Fatalf("verdict %d must fail after a poll timeout", i)
		}
		if !strings.Contains(verdicts[i].Error, "timed out") {
			t.Errorf("verdict %d should carry a timeout error, got %q", i, verdicts[i].Error)
		}
		if verdicts[i].StatusID != StatusIDTimeLimit {
			t.Errorf("verdict %d should report a time limit status, got %d", i, verdicts[i].StatusID)
		}
		if verdicts[i].ActualOutput != "" {
			t.Errorf("verdict %d should have empty output, got %q", i, verdicts[i].ActualOutput)
		}
	}
	for i := 10; i < 15; i++ {
		if !verdicts[i].Passed {
			t.Errorf("verdict %d: later batch should still run, got %q", i, verdicts[i].Error)
		}
	}
}
