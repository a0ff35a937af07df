package judge

import (
	"context"
)

// Judge0-style status identifiers. Anything above StatusIDProcessing is a
// terminal state; both backends normalize onto this taxonomy.
const (
	StatusIDInQueue          = 1
	StatusIDProcessing       = 2
	StatusIDAccepted         = 3
	StatusIDWrongAnswer      = 4
	StatusIDTimeLimit        = 5
	StatusIDCompilationError = 6
	StatusIDRuntimeError     = 11
	StatusIDInternalError    = 13
)

// ExecutionRequest is one ephemeral run of source code against a stdin. It is
// constructed per test case and never persisted.
type ExecutionRequest struct {
	Language   string
	SourceCode string
	Stdin      string
}

type Status struct {
	ID          int    `json:"id"`
	Description string `json:"description"`
}

// ExecutionResult is the normalized judge output. Transport failures are
// represented here too (exit code 1, error text in Stderr, internal-error
// status) so that execution failures never cross the client boundary as
// Go errors.
type ExecutionResult struct {
	Stdout         string
	Stderr         string
	CompileOutput  string
	ExitStatusCode int
	Status         Status
	TimeMillis     float64
	MemoryKb       int
}

// Terminal reports whether the judge has finished processing this run.
func (r ExecutionResult) Terminal() bool {
	return r.Status.ID > StatusIDProcessing
}

// CompileFailed reports a compilation failure, which is a property of the
// source alone and therefore dooms every remaining test case.
func (r ExecutionResult) CompileFailed() bool {
	return r.Status.ID == StatusIDCompilationError
}

// Client is the transport adapter for one external judge backend. Both the
// synchronous execute-and-wait flavor and the submit-then-poll flavor hide
// behind this interface; the BatchScheduler owns the polling policy.
type Client interface {
	// Execute runs one request to completion, blocking or polling as the
	// backend requires. Failures come back inside the result.
	Execute(ctx context.Context, req ExecutionRequest) ExecutionResult

	// SubmitBatch dispatches one batch and returns one opaque token per
	// request, order-preserving and of the same cardinality.
	SubmitBatch(ctx context.Context, reqs []ExecutionRequest) ([]string, error)

	// PollBatch fetches the current state for the given tokens,
	// order-preserving. Entries that are not yet Terminal are still queued
	// or running on the judge.
	PollBatch(ctx context.Context, tokens []string) ([]ExecutionResult, error)
}

// transportFailure wraps a transport-level error as a terminal result.
func transportFailure(err error) ExecutionResult {
	msg := "judge request failed"
	if err != nil {
		msg = err.Error()
	}
	return ExecutionResult{
		Stderr:         msg,
		ExitStatusCode: 1,
		Status:         Status{ID: StatusIDInternalError, Description: "Internal Error"},
	}
}
