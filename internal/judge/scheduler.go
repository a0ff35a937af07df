package judge

import (
	"context"
	"time"
)

// TestCaseRun is one unit of work for the scheduler: the stdin to execute
// against and the output to compare with.
type TestCaseRun struct {
	TestCaseID     string
	Input          string
	ExpectedOutput string
}

// TestCaseVerdict pairs a test case with its classified outcome. The
// scheduler guarantees one verdict per input run, in the same order.
// StatusID carries the judge's terminal status so downstream consumers can
// classify failures without parsing the error text.
type TestCaseVerdict struct {
	TestCaseID      string  `json:"test_case_id"`
	Passed          bool    `json:"passed"`
	StatusID        int     `json:"status_id,omitempty"`
	ActualOutput    string  `json:"actual_output"`
	ExpectedOutput  string  `json:"expected_output"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	MemoryKb        int     `json:"memory_kb"`
}

// Scheduler fans a submission out over its test cases in fixed-size batches.
// Batches run sequentially; each one is polled with linearly growing delays
// until every member is terminal or the attempt budget runs out.
type Scheduler struct {
	client          Client
	batchSize       int
	pollBaseDelay   time.Duration
	maxPollAttempts int
}

func NewScheduler(client Client, batchSize int, pollBaseDelay time.Duration, maxPollAttempts int) *Scheduler {
	if batchSize <= 0 {
		batchSize = 10
	}
	if pollBaseDelay <= 0 {
		pollBaseDelay = 2 * time.Second
	}
	if maxPollAttempts <= 0 {
		maxPollAttempts = 20
	}
	return &Scheduler{
		client:          client,
		batchSize:       batchSize,
		pollBaseDelay:   pollBaseDelay,
		maxPollAttempts: maxPollAttempts,
	}
}

// RunTestCases executes the code against every test case and classifies the
// outcomes. A batch whose polling budget runs out fails every case in it with
// an explicit timeout error; later batches still run. A compilation failure
// short-circuits: remaining batches are never dispatched and their cases
// inherit the compile verdict.
func (s *Scheduler) RunTestCases(ctx context.Context, language, code string, cases []TestCaseRun, opts ClassifyOptions) []TestCaseVerdict {
	verdicts := make([]TestCaseVerdict, 0, len(cases))
	var compileFailure *ExecutionResult

	for start := 0; start < len(cases); start += s.batchSize {
		end := start + s.batchSize
		if end > len(cases) {
			end = len(cases)
		}
		batch := cases[start:end]

		if compileFailure != nil {
			for _, tc := range batch {
				verdicts = append(verdicts, s.classifyOne(tc, *compileFailure, opts))
			}
			continue
		}

		results, timedOut := s.runBatch(ctx, language, code, batch)
		if timedOut {
			for _, tc := range batch {
				verdicts = append(verdicts, TestCaseVerdict{
					TestCaseID:     tc.TestCaseID,
					Passed:         false,
					StatusID:       StatusIDTimeLimit,
					ExpectedOutput: tc.ExpectedOutput,
					Error:          "Execution timed out before the judge reported a result.",
				})
			}
			continue
		}

		for i, tc := range batch {
			verdicts = append(verdicts, s.classifyOne(tc, results[i], opts))
			if results[i].CompileFailed() && compileFailure == nil {
				r := results[i]
				compileFailure = &r
			}
		}
	}
	return verdicts
}

func (s *Scheduler) classifyOne(tc TestCaseRun, res ExecutionResult, opts ClassifyOptions) TestCaseVerdict {
	v := Classify(res, tc.ExpectedOutput, opts)
	return TestCaseVerdict{
		TestCaseID:      tc.TestCaseID,
		Passed:          v.Passed,
		StatusID:        res.Status.ID,
		ActualOutput:    v.Output,
		ExpectedOutput:  tc.ExpectedOutput,
		Error:           v.Error,
		ExecutionTimeMs: v.TimeMillis,
		MemoryKb:        v.MemoryKb,
	}
}

// runBatch dispatches one batch and polls it to completion. The bool result
// reports whether the polling budget was exhausted.
func (s *Scheduler) runBatch(ctx context.Context, language, code string, batch []TestCaseRun) ([]ExecutionResult, bool) {
	reqs := make([]ExecutionRequest, len(batch))
	for i, tc := range batch {
		reqs[i] = ExecutionRequest{Language: language, SourceCode: code, Stdin: tc.Input}
	}

	tokens, err := s.client.SubmitBatch(ctx, reqs)
	if err != nil {
		results := make([]ExecutionResult, len(batch))
		for i := range results {
			results[i] = transportFailure(err)
		}
		return results, false
	}

	for attempt := 1; attempt <= s.maxPollAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, true
		case <-time.After(s.pollBaseDelay * time.Duration(attempt)):
		}

		results, err := s.client.PollBatch(ctx, tokens)
		if err != nil {
			continue
		}
		if len(results) != len(batch) {
			continue
		}

		done := true
		for _, r := range results {
			if !r.Terminal() {
				done = false
				break
			}
		}
		if done {
			return results, false
		}
	}
	return nil, true
}
