package service

import (
	"context"
	"database/sql"
	"log"
	"time"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
	"cohortly/internal/domain/repository"

	"github.com/google/uuid"
)

// ProgressService owns the enrollment progress fold: per-question attempt
// counters, derived module progress, the cohort total score and the
// cohort-completed transition. Writes for one (user, cohort) pair are
// serialized through a keyed mutex so concurrent submissions cannot
// interleave their read-modify-write cycles.
type ProgressService struct {
	enrollmentRepo repository.EnrollmentRepository
	questionRepo   repository.QuestionRepository
	cohortRepo     repository.CohortRepository
	db             *sql.DB
	locks          *common.KeyedMutex
}

func NewProgressService(
	enrollmentRepo repository.EnrollmentRepository,
	questionRepo repository.QuestionRepository,
	cohortRepo repository.CohortRepository,
	db *sql.DB,
) *ProgressService {
	return &ProgressService{
		enrollmentRepo: enrollmentRepo,
		questionRepo:   questionRepo,
		cohortRepo:     cohortRepo,
		db:             db,
		locks:          common.NewKeyedMutex(),
	}
}

// Enroll creates the enrollment record with a module progress entry per
// existing module, so progress views never have holes.
func (s *ProgressService) Enroll(ctx context.Context, userID, cohortID string) (*model.Enrollment, error) {
	cohort, err := s.cohortRepo.FindCohortByID(ctx, cohortID)
	if err != nil {
		return nil, common.Errorf("cohort not found: %w", err)
	}
	if cohort.IsDraft || !cohort.IsActive {
		return nil, common.Errorf("cohort is not open for enrollment: %w", common.ErrForbidden)
	}

	modules, err := s.cohortRepo.ListModulesByCohortID(ctx, cohortID)
	if err != nil {
		return nil, common.Errorf("failed to list modules: %w", err)
	}

	now := time.Now()
	enrollment := &model.Enrollment{
		ID:         uuid.NewString(),
		UserID:     userID,
		CohortID:   cohortID,
		Status:     model.EnrollmentEnrolled,
		EnrolledAt: &now,
	}
	for _, m := range modules {
		total, err := s.questionRepo.CountQuestionsByModuleID(ctx, m.ID)
		if err != nil {
			return nil, common.Errorf("failed to count questions: %w", err)
		}
		enrollment.ModuleProgress = append(enrollment.ModuleProgress, model.ModuleProgress{
			ModuleID:       m.ID,
			TotalQuestions: total,
		})
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.enrollmentRepo.CreateEnrollment(ctx, tx, enrollment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("INFO: user %s enrolled in cohort %s", userID, cohortID)
	return enrollment, nil
}

// GetProgress returns the caller's enrollment with both progress collections.
func (s *ProgressService) GetProgress(ctx context.Context, userID, cohortID string) (*model.Enrollment, error) {
	return s.enrollmentRepo.FindByUserAndCohort(ctx, userID, cohortID)
}

// Apply folds one evaluated submission into the submitter's enrollment and
// persists the result. It returns the updated enrollment.
func (s *ProgressService) Apply(ctx context.Context, sub *model.Submission, question *model.Question) (*model.Enrollment, error) {
	unlock := s.locks.Lock(sub.UserID + "|" + sub.CohortID)
	defer unlock()

	enrollment, err := s.enrollmentRepo.FindByUserAndCohort(ctx, sub.UserID, sub.CohortID)
	if err != nil {
		return nil, common.Errorf("enrollment not found: %w", err)
	}

	moduleQuestionIDs, err := s.questionRepo.ListQuestionIDsByModuleID(ctx, sub.ModuleID)
	if err != nil {
		return nil, common.Errorf("failed to list module questions: %w", err)
	}
	moduleCount, err := s.cohortRepo.CountModulesByCohortID(ctx, sub.CohortID)
	if err != nil {
		return nil, common.Errorf("failed to count cohort modules: %w", err)
	}

	foldSubmission(enrollment, sub, moduleQuestionIDs, moduleCount, time.Now())

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, common.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := s.enrollmentRepo.SaveProgress(ctx, tx, enrollment); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, common.Errorf("failed to commit transaction: %w", err)
	}
	return enrollment, nil
}

// foldSubmission applies one submission outcome to an enrollment in memory.
// Question progress is monotonic: attempts only grow, solved never reverts,
// bestScore only improves. Module progress is recomputed from the module's
// live question set, and completion timestamps are written exactly once.
func foldSubmission(e *model.Enrollment, sub *model.Submission, moduleQuestionIDs []string, cohortModuleCount int, now time.Time) {
	qp := e.FindQuestionProgress(sub.QuestionID)
	if qp == nil {
		e.QuestionProgress = append(e.QuestionProgress, model.QuestionProgress{QuestionID: sub.QuestionID})
		qp = &e.QuestionProgress[len(e.QuestionProgress)-1]
	}

	qp.Attempts++
	if sub.IsCorrect && !qp.Solved {
		qp.Solved = true
		qp.SolvedAt = &now
	}
	if sub.Score > qp.BestScore {
		qp.BestScore = sub.Score
		if sub.IsCorrect {
			qp.SolvedAt = &now
		}
	}

	mp := e.FindModuleProgress(sub.ModuleID)
	if mp == nil {
		e.ModuleProgress = append(e.ModuleProgress, model.ModuleProgress{ModuleID: sub.ModuleID})
		mp = &e.ModuleProgress[len(e.ModuleProgress)-1]
	}
	mp.TotalQuestions = len(moduleQuestionIDs)

	inModule := make(map[string]bool, len(moduleQuestionIDs))
	for _, id := range moduleQuestionIDs {
		inModule[id] = true
	}
	mp.QuestionsCompleted = 0
	mp.Score = 0
	for i := range e.QuestionProgress {
		p := &e.QuestionProgress[i]
		if !inModule[p.QuestionID] {
			continue
		}
		if p.Solved {
			mp.QuestionsCompleted++
		}
		mp.Score += p.BestScore
	}
	if !mp.Completed && mp.TotalQuestions > 0 && mp.QuestionsCompleted >= mp.TotalQuestions {
		mp.Completed = true
		mp.CompletedAt = &now
	}

	e.TotalScore = 0
	for _, p := range e.QuestionProgress {
		e.TotalScore += p.BestScore
	}

	completedModules := 0
	for _, p := range e.ModuleProgress {
		if p.Completed {
			completedModules++
		}
	}
	if e.Status != model.EnrollmentCompleted && cohortModuleCount > 0 && completedModules >= cohortModuleCount {
		e.Status = model.EnrollmentCompleted
		e.CompletedAt = &now
	}
}
