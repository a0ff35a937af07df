package service

import (
	"context"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"
)

// ContentService serves the read side of the catalog: cohorts, modules and
// questions. Learner-facing views are sanitized so option correctness and
// hidden test cases never leave the server.
type ContentService struct {
	cohortRepo   repository.CohortRepository
	questionRepo repository.QuestionRepository
}

func NewContentService(cohortRepo repository.CohortRepository, questionRepo repository.QuestionRepository) *ContentService {
	return &ContentService{cohortRepo: cohortRepo, questionRepo: questionRepo}
}

func (s *ContentService) ListCohorts(ctx context.Context, includeDrafts bool) ([]model.Cohort, error) {
	return s.cohortRepo.ListCohorts(ctx, includeDrafts)
}

// GetCohort returns a cohort with its modules in sort order.
func (s *ContentService) GetCohort(ctx context.Context, cohortID string, includeDrafts bool) (*model.Cohort, []model.Module, error) {
	cohort, err := s.cohortRepo.FindCohortByID(ctx, cohortID)
	if err != nil {
		return nil, nil, common.Errorf("cohort not found: %w", err)
	}
	if cohort.IsDraft && !includeDrafts {
		return nil, nil, common.Errorf("cohort is not published: %w", common.ErrNotFound)
	}
	modules, err := s.cohortRepo.ListModulesByCohortID(ctx, cohortID)
	if err != nil {
		return nil, nil, common.Errorf("failed to list modules: %w", err)
	}
	return cohort, modules, nil
}

func (s *ContentService) ListQuestions(ctx context.Context, moduleID string) ([]model.Question, error) {
	if _, err := s.cohortRepo.FindModuleByID(ctx, moduleID); err != nil {
		return nil, common.Errorf("module not found: %w", err)
	}
	return s.questionRepo.ListQuestionsByModuleID(ctx, moduleID)
}

// GetQuestion returns one question with its options and test cases. For
// non-admin callers the options are stripped of correctness and only visible
// test cases are included.
func (s *ContentService) GetQuestion(ctx context.Context, questionID string, isAdmin bool) (*model.Question, error) {
	question, err := s.questionRepo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return nil, common.Errorf("question not found: %w", err)
	}

	options, err := s.questionRepo.GetOptionsByQuestionID(ctx, questionID)
	if err != nil {
		return nil, common.Errorf("failed to load options: %w", err)
	}
	testCases, err := s.questionRepo.GetTestCasesByQuestionID(ctx, questionID)
	if err != nil {
		return nil, common.Errorf("failed to load test cases: %w", err)
	}

	if isAdmin {
		question.Options = options
		question.TestCases = testCases
		return question, nil
	}
	question.Options = sanitizeOptions(options)
	question.TestCases = visibleTestCases(testCases)
	return question, nil
}

// sanitizeOptions drops the correctness flag from learner-facing options.
func sanitizeOptions(options []model.Option) []model.Option {
	out := make([]model.Option, len(options))
	for i, opt := range options {
		opt.IsCorrect = false
		out[i] = opt
	}
	return out
}

func visibleTestCases(testCases []model.TestCase) []model.TestCase {
	var out []model.TestCase
	for _, tc := range testCases {
		if !tc.Hidden {
			out = append(out, tc)
		}
	}
	return out
}
