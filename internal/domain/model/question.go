package model

import "time"

type QuestionType string

const (
	QuestionTypeMCQ         QuestionType = "mcq"
	QuestionTypeProgramming QuestionType = "programming"
)

type Question struct {
	ID          string       `json:"id"`
	ModuleID    string       `json:"module_id"`
	Title       string       `json:"title"`
	Slug        string       `json:"slug"`
	Description string       `json:"description"`
	Type        QuestionType `json:"type"`
	Marks       int          `json:"marks"`
	// Limits passed through to the judge for programming questions.
	TimeLimitMs   int `json:"time_limit_ms"`
	MemoryLimitKb int `json:"memory_limit_kb"`

	Options   []Option   `json:"options,omitempty"`
	TestCases []TestCase `json:"test_cases,omitempty"` // hidden cases are admin/judge-only

	Stats     QuestionStats `json:"stats"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// Option is one MCQ choice. IsCorrect is zeroed on learner-facing reads so a
// correct flag never reaches a non-admin caller; admin reads keep it.
type Option struct {
	ID         string `json:"id"`
	QuestionID string `json:"question_id"`
	Text       string `json:"text"`
	IsCorrect  bool   `json:"is_correct"`
	SortOrder  int    `json:"sort_order"`
}

type TestCase struct {
	ID             string  `json:"id"`
	QuestionID     string  `json:"question_id"`
	Input          string  `json:"input"`
	ExpectedOutput string  `json:"expected_output"`
	Hidden         bool    `json:"hidden"`
	Explanation    *string `json:"explanation,omitempty"`
	SortOrder      int     `json:"sort_order"`
}

// QuestionStats are shared aggregate counters updated in the same transaction
// as each submission write.
type QuestionStats struct {
	TotalSubmissions    int     `json:"total_submissions"`
	AcceptedSubmissions int     `json:"accepted_submissions"`
	AcceptanceRate      float64 `json:"acceptance_rate"`
}
