package model

import "time"

type SubmissionType string

const (
	SubmissionTypeMCQ         SubmissionType = "mcq"
	SubmissionTypeProgramming SubmissionType = "programming"
)

type SubmissionStatus string

const (
	StatusPending           SubmissionStatus = "pending"
	StatusAccepted          SubmissionStatus = "accepted"
	StatusWrongAnswer       SubmissionStatus = "wrong_answer"
	StatusCompilationError  SubmissionStatus = "compilation_error"
	StatusRuntimeError      SubmissionStatus = "runtime_error"
	StatusTimeLimitExceeded SubmissionStatus = "time_limit_exceeded"
)

// ValidStatus reports whether s is one of the persistable submission statuses.
func ValidStatus(s SubmissionStatus) bool {
	switch s {
	case StatusPending, StatusAccepted, StatusWrongAnswer,
		StatusCompilationError, StatusRuntimeError, StatusTimeLimitExceeded:
		return true
	}
	return false
}

// Submission is one graded attempt at a question. It is append-only: once
// written it is never mutated, only removed by administrative cascades.
type Submission struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	QuestionID string         `json:"question_id"`
	ModuleID   string         `json:"module_id"`
	CohortID   string         `json:"cohort_id"`
	Type       SubmissionType `json:"submission_type"`

	// MCQ attempts.
	SelectedOptionID *string `json:"selected_option_id,omitempty"`

	// Programming attempts.
	Code     *string `json:"code,omitempty"`
	Language *string `json:"language,omitempty"`

	Status          SubmissionStatus `json:"status"`
	TestCaseResults []TestCaseResult `json:"test_case_results,omitempty"`
	ExecutionTimeMs float64          `json:"execution_time_ms"`
	MemoryKb        int              `json:"memory_kb"`
	IsCorrect       bool             `json:"is_correct"`
	Score           int              `json:"score"`
	SubmittedAt     time.Time        `json:"submitted_at"`

	UserUsername *string `json:"user_username,omitempty"` // for display
}

// TestCaseResult is one outcome per test case, embedded in a Submission.
type TestCaseResult struct {
	ID              string  `json:"id"`
	SubmissionID    string  `json:"submission_id"`
	TestCaseID      string  `json:"test_case_id"`
	Passed          bool    `json:"passed"`
	ActualOutput    string  `json:"actual_output"`
	ExpectedOutput  string  `json:"expected_output"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMs float64 `json:"execution_time_ms"`
	MemoryKb        int     `json:"memory_kb"`
}
