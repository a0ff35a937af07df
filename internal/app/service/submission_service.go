package service

import (
	"context"
	"database/sql"
	"log"
	"strings"
	"time"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"
	"cohortly/internal/judge"

	"github.com/google/uuid"
)

const (
	maxSubmissionList = 100
	maxOwnAttempts    = 20
)

// SubmissionService records answers: MCQ attempts are checked against the
// stored options; programming attempts carry the test case results the caller
// obtained from the test-run pipeline and are persisted as reported, without
// re-executing the code. Every recorded submission then flows through the
// progress fold and a leaderboard recompute.
type SubmissionService struct {
	submissionRepo repository.SubmissionRepository
	questionRepo   repository.QuestionRepository
	cohortRepo     repository.CohortRepository
	progress       *ProgressService
	leaderboard    *LeaderboardService
	db             *sql.DB // For transactions
}

func NewSubmissionService(
	submissionRepo repository.SubmissionRepository,
	questionRepo repository.QuestionRepository,
	cohortRepo repository.CohortRepository,
	progress *ProgressService,
	leaderboard *LeaderboardService,
	db *sql.DB,
) *SubmissionService {
	return &SubmissionService{
		submissionRepo: submissionRepo,
		questionRepo:   questionRepo,
		cohortRepo:     cohortRepo,
		progress:       progress,
		leaderboard:    leaderboard,
		db:             db,
	}
}

// SubmittedTestCaseResult is one execution outcome reported by the caller.
// The field set matches the verdicts the test-run endpoint returns, so a
// client can forward them unchanged.
type SubmittedTestCaseResult struct {
	TestCaseID      string  `json:"test_case_id"`
	Passed          bool    `json:"passed"`
	StatusID        int     `json:"status_id,omitempty"`
	ActualOutput    string  `json:"actual_output,omitempty"`
	ExpectedOutput  string  `json:"expected_output,omitempty"`
	Error           string  `json:"error,omitempty"`
	ExecutionTimeMs float64 `json:"execution_time_ms,omitempty"`
	MemoryKb        int     `json:"memory_kb,omitempty"`
}

type SubmitAnswerRequest struct {
	SelectedOptionID *string                   `json:"selected_option_id,omitempty"`
	Code             *string                   `json:"code,omitempty"`
	Language         *string                   `json:"language,omitempty"`
	IsCorrect        bool                      `json:"is_correct,omitempty"`
	TestCaseResults  []SubmittedTestCaseResult `json:"test_case_results,omitempty"`
}

// SubmitAnswer evaluates one attempt and persists it together with the
// question counters. The enrollment fold and the leaderboard resort happen
// after the submission commit, so a fold failure never loses the attempt.
func (s *SubmissionService) SubmitAnswer(ctx context.Context, userID, cohortID, moduleID, questionID string, req SubmitAnswerRequest) (*model.Submission, error) {
	question, err := s.validateTarget(ctx, userID, cohortID, moduleID, questionID)
	if err != nil {
		return nil, err
	}

	submission := &model.Submission{
		ID:          uuid.NewString(),
		UserID:      userID,
		QuestionID:  questionID,
		ModuleID:    moduleID,
		CohortID:    cohortID,
		Status:      model.StatusPending,
		SubmittedAt: time.Now(),
	}

	switch question.Type {
	case model.QuestionTypeMCQ:
		if err := s.evaluateMCQSubmission(ctx, submission, question, req); err != nil {
			return nil, err
		}
	case model.QuestionTypeProgramming:
		if err := recordProgrammingSubmission(submission, question, req); err != nil {
			return nil, err
		}
	default:
		return nil, common.Errorf("question has unknown type %q: %w", question.Type, common.ErrInternalServer)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.CreateSubmission(ctx, tx, submission); err != nil {
		return nil, err
	}
	if len(submission.TestCaseResults) > 0 {
		if err := s.submissionRepo.CreateTestCaseResults(ctx, tx, submission.TestCaseResults); err != nil {
			return nil, err
		}
	}
	if err := s.questionRepo.RecordSubmissionOutcome(ctx, tx, questionID, submission.IsCorrect); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	if _, err := s.progress.Apply(ctx, submission, question); err != nil {
		log.Printf("ERROR: failed to apply progress for submission %s: %v", submission.ID, err)
		return nil, err
	}
	if err := s.leaderboard.Recompute(ctx, cohortID); err != nil {
		// The submission and progress are already durable; ranks catch up
		// on the next recompute.
		log.Printf("WARN: leaderboard recompute failed for cohort %s: %v", cohortID, err)
	}

	log.Printf("INFO: submission %s evaluated as %s (user %s, question %s)", submission.ID, submission.Status, userID, questionID)
	return submission, nil
}

// validateTarget checks the cohort/module/question hierarchy and that the
// caller is enrolled.
func (s *SubmissionService) validateTarget(ctx context.Context, userID, cohortID, moduleID, questionID string) (*model.Question, error) {
	cohort, err := s.cohortRepo.FindCohortByID(ctx, cohortID)
	if err != nil {
		return nil, common.Errorf("cohort not found: %w", err)
	}
	if cohort.IsDraft {
		return nil, common.Errorf("cohort is not published: %w", common.ErrForbidden)
	}

	module, err := s.cohortRepo.FindModuleByID(ctx, moduleID)
	if err != nil {
		return nil, common.Errorf("module not found: %w", err)
	}
	if module.CohortID != cohortID {
		return nil, common.Errorf("module does not belong to this cohort: %w", common.ErrBadRequest)
	}

	question, err := s.questionRepo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return nil, common.Errorf("question not found: %w", err)
	}
	if question.ModuleID != moduleID {
		return nil, common.Errorf("question does not belong to this module: %w", common.ErrBadRequest)
	}

	enrollment, err := s.progress.GetProgress(ctx, userID, cohortID)
	if err != nil {
		return nil, common.Errorf("user is not enrolled in this cohort: %w", common.ErrForbidden)
	}
	if enrollment.Status == model.EnrollmentApplied {
		return nil, common.Errorf("enrollment is not active yet: %w", common.ErrForbidden)
	}
	return question, nil
}

func (s *SubmissionService) evaluateMCQSubmission(ctx context.Context, sub *model.Submission, question *model.Question, req SubmitAnswerRequest) error {
	if req.SelectedOptionID == nil || *req.SelectedOptionID == "" {
		return common.Errorf("selected_option_id is required for mcq questions: %w", common.ErrBadRequest)
	}

	options, err := s.questionRepo.GetOptionsByQuestionID(ctx, question.ID)
	if err != nil {
		return common.Errorf("failed to load options: %w", err)
	}

	correct, err := evaluateMCQ(options, *req.SelectedOptionID)
	if err != nil {
		return err
	}

	sub.Type = model.SubmissionTypeMCQ
	sub.SelectedOptionID = req.SelectedOptionID
	sub.IsCorrect = correct
	if correct {
		sub.Status = model.StatusAccepted
		sub.Score = question.Marks
	} else {
		sub.Status = model.StatusWrongAnswer
	}
	return nil
}

// evaluateMCQ checks the selected option against the question's option set.
// Selecting an option that does not belong to the question is a bad request,
// not a wrong answer.
func evaluateMCQ(options []model.Option, selectedOptionID string) (bool, error) {
	for _, opt := range options {
		if opt.ID == selectedOptionID {
			return opt.IsCorrect, nil
		}
	}
	return false, common.Errorf("selected option does not belong to this question: %w", common.ErrBadRequest)
}

// recordProgrammingSubmission fills the submission from the caller-reported
// execution results. The correctness flag and the per-test-case results are
// the system of record; the code is never re-executed here, the test-run
// pipeline produced these verdicts ahead of time.
func recordProgrammingSubmission(sub *model.Submission, question *model.Question, req SubmitAnswerRequest) error {
	if req.Code == nil || strings.TrimSpace(*req.Code) == "" {
		return common.Errorf("code is required for programming questions: %w", common.ErrBadRequest)
	}
	if req.Language == nil || *req.Language == "" {
		return common.Errorf("language is required for programming questions: %w", common.ErrBadRequest)
	}
	if len(req.TestCaseResults) == 0 {
		return common.Errorf("test_case_results are required for programming questions: %w", common.ErrBadRequest)
	}

	sub.Type = model.SubmissionTypeProgramming
	sub.Code = req.Code
	sub.Language = req.Language

	for _, res := range req.TestCaseResults {
		if res.ExecutionTimeMs > sub.ExecutionTimeMs {
			sub.ExecutionTimeMs = res.ExecutionTimeMs
		}
		if res.MemoryKb > sub.MemoryKb {
			sub.MemoryKb = res.MemoryKb
		}
		sub.TestCaseResults = append(sub.TestCaseResults, model.TestCaseResult{
			ID:              uuid.NewString(),
			SubmissionID:    sub.ID,
			TestCaseID:      res.TestCaseID,
			Passed:          res.Passed,
			ActualOutput:    res.ActualOutput,
			ExpectedOutput:  res.ExpectedOutput,
			Error:           res.Error,
			ExecutionTimeMs: res.ExecutionTimeMs,
			MemoryKb:        res.MemoryKb,
		})
	}

	sub.IsCorrect = req.IsCorrect
	if req.IsCorrect {
		sub.Status = model.StatusAccepted
		sub.Score = question.Marks
	} else {
		sub.Status = deriveStatus(req.TestCaseResults)
	}
	return nil
}

// deriveStatus maps the reported results to a single submission status. The
// first failing result decides the class, preferring its judge status id and
// falling back to the error text when no status was reported.
func deriveStatus(results []SubmittedTestCaseResult) model.SubmissionStatus {
	allPassed := len(results) > 0
	var first *SubmittedTestCaseResult
	for i := range results {
		if !results[i].Passed {
			allPassed = false
			if first == nil {
				first = &results[i]
			}
		}
	}
	if allPassed {
		return model.StatusAccepted
	}
	if first == nil {
		return model.StatusRuntimeError
	}

	if first.StatusID != 0 {
		switch first.StatusID {
		case judge.StatusIDAccepted, judge.StatusIDWrongAnswer:
			// Ran clean but the output did not match.
			return model.StatusWrongAnswer
		case judge.StatusIDCompilationError:
			return model.StatusCompilationError
		case judge.StatusIDTimeLimit:
			return model.StatusTimeLimitExceeded
		default:
			return model.StatusRuntimeError
		}
	}

	switch {
	case strings.Contains(first.Error, "Compilation"):
		return model.StatusCompilationError
	case strings.Contains(first.Error, "Time Limit"), strings.Contains(first.Error, "timed out"):
		return model.StatusTimeLimitExceeded
	case strings.Contains(first.Error, "Output mismatch"):
		return model.StatusWrongAnswer
	default:
		return model.StatusRuntimeError
	}
}

// ListQuestionSubmissions returns recent submissions for a question within a
// cohort, newest first, capped to keep the response bounded.
func (s *SubmissionService) ListQuestionSubmissions(ctx context.Context, questionID, cohortID string) ([]model.Submission, error) {
	return s.submissionRepo.ListByQuestionAndCohort(ctx, questionID, cohortID, maxSubmissionList)
}

// ListOwnAttempts returns the caller's recent attempts at a question.
func (s *SubmissionService) ListOwnAttempts(ctx context.Context, userID, questionID string) ([]model.Submission, error) {
	return s.submissionRepo.ListByUserAndQuestion(ctx, userID, questionID, maxOwnAttempts)
}

// GetSubmission returns one submission with its test case results. Only the
// owner or an admin may read it.
func (s *SubmissionService) GetSubmission(ctx context.Context, id, requesterID, requesterRole string) (*model.Submission, error) {
	sub, err := s.submissionRepo.FindSubmissionByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.UserID != requesterID && requesterRole != model.RoleAdmin {
		return nil, common.Errorf("submission belongs to another user: %w", common.ErrForbidden)
	}
	results, err := s.submissionRepo.GetTestCaseResultsBySubmissionID(ctx, id)
	if err != nil {
		return nil, err
	}
	sub.TestCaseResults = results
	return sub, nil
}
