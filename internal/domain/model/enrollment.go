package model

import "time"

type EnrollmentStatus string

const (
	EnrollmentApplied   EnrollmentStatus = "applied"
	EnrollmentEnrolled  EnrollmentStatus = "enrolled"
	EnrollmentCompleted EnrollmentStatus = "completed"
)

// Enrollment is a learner's membership and progress record within a cohort.
// There is exactly one per (user, cohort) pair, and this service is the sole
// writer of the embedded progress entries.
type Enrollment struct {
	ID       string           `json:"id"`
	UserID   string           `json:"user_id"`
	CohortID string           `json:"cohort_id"`
	Status   EnrollmentStatus `json:"status"`

	ModuleProgress   []ModuleProgress   `json:"module_progress"`
	QuestionProgress []QuestionProgress `json:"question_progress"`

	TotalScore  int        `json:"total_score"`
	Rank        *int       `json:"rank,omitempty"`
	EnrolledAt  *time.Time `json:"enrolled_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`

	UserUsername *string `json:"user_username,omitempty"` // for display

	// CompletedModules is a display count populated by leaderboard queries;
	// it is not stored.
	CompletedModules int `json:"completed_modules,omitempty"`
}

// QuestionProgress is monotonic: attempts only grows, bestScore only grows,
// and solved never reverts to false.
type QuestionProgress struct {
	QuestionID string     `json:"question_id"`
	Attempts   int        `json:"attempts"`
	Solved     bool       `json:"solved"`
	BestScore  int        `json:"best_score"`
	SolvedAt   *time.Time `json:"solved_at,omitempty"`
}

// ModuleProgress is derived state, recomputed from the QuestionProgress
// entries belonging to the module's live question set.
type ModuleProgress struct {
	ModuleID           string     `json:"module_id"`
	QuestionsCompleted int        `json:"questions_completed"`
	TotalQuestions     int        `json:"total_questions"`
	Score              int        `json:"score"`
	Completed          bool       `json:"completed"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`
}

// FindQuestionProgress returns a pointer into the enrollment's progress slice,
// or nil when the question has never been attempted.
func (e *Enrollment) FindQuestionProgress(questionID string) *QuestionProgress {
	for i := range e.QuestionProgress {
		if e.QuestionProgress[i].QuestionID == questionID {
			return &e.QuestionProgress[i]
		}
	}
	return nil
}

// FindModuleProgress returns a pointer into the enrollment's progress slice,
// or nil when no entry exists for the module yet.
func (e *Enrollment) FindModuleProgress(moduleID string) *ModuleProgress {
	for i := range e.ModuleProgress {
		if e.ModuleProgress[i].ModuleID == moduleID {
			return &e.ModuleProgress[i]
		}
	}
	return nil
}
