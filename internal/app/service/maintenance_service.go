package service

import (
	"context"
	"database/sql"
	"log"

	"cohortly/internal/common"
	"cohortly/internal/domain/repository"
)

// MaintenanceService performs the administrative cascade deletes. Each delete
// removes the entity together with its dependent submissions and progress
// entries in a single transaction, then triggers a leaderboard recompute so
// stale ranks do not linger.
type MaintenanceService struct {
	cohortRepo     repository.CohortRepository
	questionRepo   repository.QuestionRepository
	submissionRepo repository.SubmissionRepository
	enrollmentRepo repository.EnrollmentRepository
	leaderboard    *LeaderboardService
	db             *sql.DB
}

func NewMaintenanceService(
	cohortRepo repository.CohortRepository,
	questionRepo repository.QuestionRepository,
	submissionRepo repository.SubmissionRepository,
	enrollmentRepo repository.EnrollmentRepository,
	leaderboard *LeaderboardService,
	db *sql.DB,
) *MaintenanceService {
	return &MaintenanceService{
		cohortRepo:     cohortRepo,
		questionRepo:   questionRepo,
		submissionRepo: submissionRepo,
		enrollmentRepo: enrollmentRepo,
		leaderboard:    leaderboard,
		db:             db,
	}
}

// DeleteQuestion removes a question, its submissions and every enrollment's
// progress entry for it, shrinks the module's question total and recomputes
// the affected scores.
func (s *MaintenanceService) DeleteQuestion(ctx context.Context, questionID string) error {
	question, err := s.questionRepo.FindQuestionByID(ctx, questionID)
	if err != nil {
		return common.Errorf("question not found: %w", err)
	}
	module, err := s.cohortRepo.FindModuleByID(ctx, question.ModuleID)
	if err != nil {
		return common.Errorf("module not found: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.cascadeQuestionDelete(ctx, tx, module.CohortID, module.ID, questionID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("INFO: question %s deleted (module %s)", questionID, module.ID)
	return s.leaderboard.Recompute(ctx, module.CohortID)
}

// cascadeQuestionDelete runs the ordered deletes for one question. Aggregates
// are recomputed last so the rebuild only sees surviving questions.
func (s *MaintenanceService) cascadeQuestionDelete(ctx context.Context, tx *sql.Tx, cohortID, moduleID, questionID string) error {
	if err := s.submissionRepo.DeleteByQuestionIDs(ctx, tx, []string{questionID}); err != nil {
		return err
	}
	if err := s.enrollmentRepo.RemoveQuestionProgress(ctx, tx, cohortID, []string{questionID}); err != nil {
		return err
	}
	if err := s.enrollmentRepo.DecrementModuleTotalQuestions(ctx, tx, cohortID, moduleID, 1); err != nil {
		return err
	}
	if err := s.questionRepo.DeleteQuestion(ctx, tx, questionID); err != nil {
		return err
	}
	return s.enrollmentRepo.RecomputeAggregates(ctx, tx, cohortID)
}

// DeleteModule removes a module, its questions, their submissions and every
// enrollment's progress entries for them.
func (s *MaintenanceService) DeleteModule(ctx context.Context, moduleID string) error {
	module, err := s.cohortRepo.FindModuleByID(ctx, moduleID)
	if err != nil {
		return common.Errorf("module not found: %w", err)
	}
	questionIDs, err := s.questionRepo.ListQuestionIDsByModuleID(ctx, moduleID)
	if err != nil {
		return common.Errorf("failed to list module questions: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.cascadeModuleDelete(ctx, tx, module.CohortID, moduleID, questionIDs); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("INFO: module %s deleted (%d questions, cohort %s)", moduleID, len(questionIDs), module.CohortID)
	return s.leaderboard.Recompute(ctx, module.CohortID)
}

func (s *MaintenanceService) cascadeModuleDelete(ctx context.Context, tx *sql.Tx, cohortID, moduleID string, questionIDs []string) error {
	if err := s.submissionRepo.DeleteByQuestionIDs(ctx, tx, questionIDs); err != nil {
		return err
	}
	if err := s.enrollmentRepo.RemoveQuestionProgress(ctx, tx, cohortID, questionIDs); err != nil {
		return err
	}
	if err := s.enrollmentRepo.RemoveModuleProgress(ctx, tx, cohortID, moduleID); err != nil {
		return err
	}
	if err := s.questionRepo.DeleteQuestionsByModuleID(ctx, tx, moduleID); err != nil {
		return err
	}
	if err := s.cohortRepo.DeleteModule(ctx, tx, moduleID); err != nil {
		return err
	}
	return s.enrollmentRepo.RecomputeAggregates(ctx, tx, cohortID)
}

// DeleteCohort removes a cohort and everything under it: modules, questions,
// submissions and enrollments.
func (s *MaintenanceService) DeleteCohort(ctx context.Context, cohortID string) error {
	if _, err := s.cohortRepo.FindCohortByID(ctx, cohortID); err != nil {
		return common.Errorf("cohort not found: %w", err)
	}
	modules, err := s.cohortRepo.ListModulesByCohortID(ctx, cohortID)
	if err != nil {
		return common.Errorf("failed to list modules: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.submissionRepo.DeleteByCohortID(ctx, tx, cohortID); err != nil {
		return err
	}
	if err := s.enrollmentRepo.DeleteByCohortID(ctx, tx, cohortID); err != nil {
		return err
	}
	for _, m := range modules {
		if err := s.questionRepo.DeleteQuestionsByModuleID(ctx, tx, m.ID); err != nil {
			return err
		}
	}
	if err := s.cohortRepo.DeleteModulesByCohortID(ctx, tx, cohortID); err != nil {
		return err
	}
	if err := s.cohortRepo.DeleteCohort(ctx, tx, cohortID); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("INFO: cohort %s deleted (%d modules)", cohortID, len(modules))
	return nil
}
