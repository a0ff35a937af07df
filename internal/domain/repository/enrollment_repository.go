package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"

	"github.com/jackc/pgx/v5/pgconn"
)

type EnrollmentRepository interface {
	CreateEnrollment(ctx context.Context, tx *sql.Tx, enrollment *model.Enrollment) error
	FindByUserAndCohort(ctx context.Context, userID, cohortID string) (*model.Enrollment, error)
	// ListByCohort returns enrollments ordered by total score descending with
	// enrollment age as the tiebreaker, usernames and completed-module counts
	// included. Progress arrays are not loaded.
	ListByCohort(ctx context.Context, cohortID string) ([]model.Enrollment, error)

	// SaveProgress persists the enrollment's score, status and both progress
	// collections as one unit. Callers serialize per (user, cohort).
	SaveProgress(ctx context.Context, tx *sql.Tx, enrollment *model.Enrollment) error
	UpdateRank(ctx context.Context, tx *sql.Tx, enrollmentID string, rank int) error

	RemoveQuestionProgress(ctx context.Context, tx *sql.Tx, cohortID string, questionIDs []string) error
	RemoveModuleProgress(ctx context.Context, tx *sql.Tx, cohortID, moduleID string) error
	DecrementModuleTotalQuestions(ctx context.Context, tx *sql.Tx, cohortID, moduleID string, by int) error
	// RecomputeAggregates rebuilds every enrollment's total score and module
	// counters from the surviving question progress rows. Callers run it after
	// removing progress entries so scores never reference deleted questions.
	RecomputeAggregates(ctx context.Context, tx *sql.Tx, cohortID string) error
	DeleteByCohortID(ctx context.Context, tx *sql.Tx, cohortID string) error
}

type pgEnrollmentRepository struct {
	db *sql.DB
}

func NewPgEnrollmentRepository(db *sql.DB) EnrollmentRepository {
	return &pgEnrollmentRepository{db: db}
}

func (r *pgEnrollmentRepository) CreateEnrollment(ctx context.Context, tx *sql.Tx, e *model.Enrollment) error {
	query := `INSERT INTO enrollments (id, user_id, cohort_id, status, total_score, enrolled_at)
	          VALUES ($1, $2, $3, $4, $5, $6)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, e.ID, e.UserID, e.CohortID, e.Status, e.TotalScore, e.EnrolledAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, e.ID, e.UserID, e.CohortID, e.Status, e.TotalScore, e.EnrolledAt)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("user is already enrolled in this cohort: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgEnrollmentRepository.CreateEnrollment: %w", err)
	}

	mpQuery := `INSERT INTO module_progress (enrollment_id, module_id, questions_completed, total_questions, score, completed)
	            VALUES ($1, $2, $3, $4, $5, $6)`
	for _, mp := range e.ModuleProgress {
		if tx != nil {
			_, err = tx.ExecContext(ctx, mpQuery, e.ID, mp.ModuleID, mp.QuestionsCompleted, mp.TotalQuestions, mp.Score, mp.Completed)
		} else {
			_, err = r.db.ExecContext(ctx, mpQuery, e.ID, mp.ModuleID, mp.QuestionsCompleted, mp.TotalQuestions, mp.Score, mp.Completed)
		}
		if err != nil {
			return fmt.Errorf("pgEnrollmentRepository.CreateEnrollment module progress: %w", err)
		}
	}
	return nil
}

func (r *pgEnrollmentRepository) FindByUserAndCohort(ctx context.Context, userID, cohortID string) (*model.Enrollment, error) {
	query := `SELECT e.id, e.user_id, e.cohort_id, e.status, e.total_score, e.rank,
	                 e.enrolled_at, e.completed_at, e.created_at, e.updated_at, u.username
	          FROM enrollments e
	          JOIN users u ON e.user_id = u.id
	          WHERE e.user_id = $1 AND e.cohort_id = $2`

	e := &model.Enrollment{}
	err := r.db.QueryRowContext(ctx, query, userID, cohortID).Scan(
		&e.ID, &e.UserID, &e.CohortID, &e.Status, &e.TotalScore, &e.Rank,
		&e.EnrolledAt, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt, &e.UserUsername,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgEnrollmentRepository.FindByUserAndCohort: %w", err)
	}

	if e.QuestionProgress, err = r.loadQuestionProgress(ctx, e.ID); err != nil {
		return nil, err
	}
	if e.ModuleProgress, err = r.loadModuleProgress(ctx, e.ID); err != nil {
		return nil, err
	}
	return e, nil
}

func (r *pgEnrollmentRepository) loadQuestionProgress(ctx context.Context, enrollmentID string) ([]model.QuestionProgress, error) {
	query := `SELECT question_id, attempts, solved, best_score, solved_at
	          FROM question_progress WHERE enrollment_id = $1`

	rows, err := r.db.QueryContext(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("pgEnrollmentRepository.loadQuestionProgress: %w", err)
	}
	defer rows.Close()

	var progress []model.QuestionProgress
	for rows.Next() {
		var qp model.QuestionProgress
		if err := rows.Scan(&qp.QuestionID, &qp.Attempts, &qp.Solved, &qp.BestScore, &qp.SolvedAt); err != nil {
			return nil, fmt.Errorf("pgEnrollmentRepository.loadQuestionProgress scan: %w", err)
		}
		progress = append(progress, qp)
	}
	return progress, rows.Err()
}

func (r *pgEnrollmentRepository) loadModuleProgress(ctx context.Context, enrollmentID string) ([]model.ModuleProgress, error) {
	query := `SELECT module_id, questions_completed, total_questions, score, completed, completed_at
	          FROM module_progress WHERE enrollment_id = $1`

	rows, err := r.db.QueryContext(ctx, query, enrollmentID)
	if err != nil {
		return nil, fmt.Errorf("pgEnrollmentRepository.loadModuleProgress: %w", err)
	}
	defer rows.Close()

	var progress []model.ModuleProgress
	for rows.Next() {
		var mp model.ModuleProgress
		if err := rows.Scan(&mp.ModuleID, &mp.QuestionsCompleted, &mp.TotalQuestions, &mp.Score, &mp.Completed, &mp.CompletedAt); err != nil {
			return nil, fmt.Errorf("pgEnrollmentRepository.loadModuleProgress scan: %w", err)
		}
		progress = append(progress, mp)
	}
	return progress, rows.Err()
}

func (r *pgEnrollmentRepository) ListByCohort(ctx context.Context, cohortID string) ([]model.Enrollment, error) {
	query := `SELECT e.id, e.user_id, e.cohort_id, e.status, e.total_score, e.rank,
	                 e.enrolled_at, e.completed_at, e.created_at, e.updated_at, u.username,
	                 (SELECT COUNT(*) FROM module_progress mp WHERE mp.enrollment_id = e.id AND mp.completed) AS completed_modules
	          FROM enrollments e
	          JOIN users u ON e.user_id = u.id
	          WHERE e.cohort_id = $1
	          ORDER BY e.total_score DESC, e.created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, cohortID)
	if err != nil {
		return nil, fmt.Errorf("pgEnrollmentRepository.ListByCohort: %w", err)
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		var e model.Enrollment
		if err := rows.Scan(
			&e.ID, &e.UserID, &e.CohortID, &e.Status, &e.TotalScore, &e.Rank,
			&e.EnrolledAt, &e.CompletedAt, &e.CreatedAt, &e.UpdatedAt, &e.UserUsername,
			&e.CompletedModules,
		); err != nil {
			return nil, fmt.Errorf("pgEnrollmentRepository.ListByCohort scan: %w", err)
		}
		enrollments = append(enrollments, e)
	}
	return enrollments, rows.Err()
}

func (r *pgEnrollmentRepository) SaveProgress(ctx context.Context, tx *sql.Tx, e *model.Enrollment) error {
	query := `UPDATE enrollments SET status = $1, total_score = $2, completed_at = $3, updated_at = CURRENT_TIMESTAMP
	          WHERE id = $4`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, e.Status, e.TotalScore, e.CompletedAt, e.ID)
	} else {
		_, err = r.db.ExecContext(ctx, query, e.Status, e.TotalScore, e.CompletedAt, e.ID)
	}
	if err != nil {
		return fmt.Errorf("pgEnrollmentRepository.SaveProgress: %w", err)
	}

	qpQuery := `INSERT INTO question_progress (enrollment_id, question_id, attempts, solved, best_score, solved_at)
	            VALUES ($1, $2, $3, $4, $5, $6)
	            ON CONFLICT (enrollment_id, question_id) DO UPDATE SET
	              attempts = EXCLUDED.attempts, solved = EXCLUDED.solved,
	              best_score = EXCLUDED.best_score, solved_at = EXCLUDED.solved_at`
	for _, qp := range e.QuestionProgress {
		if tx != nil {
			_, err = tx.ExecContext(ctx, qpQuery, e.ID, qp.QuestionID, qp.Attempts, qp.Solved, qp.BestScore, qp.SolvedAt)
		} else {
			_, err = r.db.ExecContext(ctx, qpQuery, e.ID, qp.QuestionID, qp.Attempts, qp.Solved, qp.BestScore, qp.SolvedAt)
		}
		if err != nil {
			return fmt.Errorf("pgEnrollmentRepository.SaveProgress question progress: %w", err)
		}
	}

	mpQuery := `INSERT INTO module_progress (enrollment_id, module_id, questions_completed, total_questions, score, completed, completed_at)
	            VALUES ($1, $2, $3, $4, $5, $6, $7)
	            ON CONFLICT (enrollment_id, module_id) DO UPDATE SET
	              questions_completed = EXCLUDED.questions_completed, total_questions = EXCLUDED.total_questions,
	              score = EXCLUDED.score, completed = EXCLUDED.completed, completed_at = EXCLUDED.completed_at`
	for _, mp := range e.ModuleProgress {
		if tx != nil {
			_, err = tx.ExecContext(ctx, mpQuery, e.ID, mp.ModuleID, mp.QuestionsCompleted, mp.TotalQuestions, mp.Score, mp.Completed, mp.CompletedAt)
		} else {
			_, err = r.db.ExecContext(ctx, mpQuery, e.ID, mp.ModuleID, mp.QuestionsCompleted, mp.TotalQuestions, mp.Score, mp.Completed, mp.CompletedAt)
		}
		if err != nil {
			return fmt.Errorf("pgEnrollmentRepository.SaveProgress module progress: %w", err)
		}
	}
	return nil
}

func (r *pgEnrollmentRepository) UpdateRank(ctx context.Context, tx *sql.Tx, enrollmentID string, rank int) error {
	query := `UPDATE enrollments SET rank = $1, updated_at = CURRENT_TIMESTAMP WHERE id = $2`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, rank, enrollmentID)
	} else {
		_, err = r.db.ExecContext(ctx, query, rank, enrollmentID)
	}
	if err != nil {
		return fmt.Errorf("pgEnrollmentRepository.UpdateRank: %w", err)
	}
	return nil
}

func (r *pgEnrollmentRepository) RemoveQuestionProgress(ctx context.Context, tx *sql.Tx, cohortID string, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return nil
	}
	query := `DELETE FROM question_progress
	          WHERE question_id = ANY($2)
	            AND enrollment_id IN (SELECT id FROM enrollments WHERE cohort_id = $1)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, cohortID, questionIDs)
	} else {
		_, err = r.db.ExecContext(ctx, query, cohortID, questionIDs)
	}
	if err != nil {
		return fmt.Errorf("pgEnrollmentRepository.RemoveQuestionProgress: %w", err)
	}
	return nil
}

func (r *pgEnrollmentRepository) RemoveModuleProgress(ctx context.Context, tx *sql.Tx, cohortID, moduleID string) error {
	query := `DELETE FROM module_progress
	          WHERE module_id = $2
	            AND enrollment_id IN (SELECT id FROM enrollments WHERE cohort_id = $1)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, cohortID, moduleID)
	} else {
		_, err = r.db.ExecContext(ctx, query, cohortID, moduleID)
	}
	if err != nil {
		return fmt.Errorf("pgEnrollmentRepository.RemoveModuleProgress: %w", err)
	}
	return nil
}

func (r *pgEnrollmentRepository) DecrementModuleTotalQuestions(ctx context.Context, tx *sql.Tx, cohortID, moduleID string, by int) error {
	query := `UPDATE module_progress SET total_questions = GREATEST(total_questions - $3, 0)
	          WHERE module_id = $2
	            AND enrollment_id IN (SELECT id FROM enrollments WHERE cohort_id = $1)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, cohortID, moduleID, by)
	} else {
		_, err = r.db.ExecContext(ctx, query, cohortID, moduleID, by)
	}
	if err != nil {
		return fmt.Errorf("pgEnrollmentRepository.DecrementModuleTotalQuestions: %w", err)
	}
	return nil
}

func (r *pgEnrollmentRepository) RecomputeAggregates(ctx context.Context, tx *sql.Tx, cohortID string) error {
	// Completion flags are left alone; the progress fold owns those and writes
	// completed_at exactly once.
	statements := []string{
		`UPDATE module_progress mp
		 SET questions_completed = (SELECT COUNT(*) FROM question_progress qp
		                            JOIN questions q ON q.id = qp.question_id
		                            WHERE qp.enrollment_id = mp.enrollment_id
		                              AND q.module_id = mp.module_id AND qp.solved),
		     score = COALESCE((SELECT SUM(qp.best_score) FROM question_progress qp
		                       JOIN questions q ON q.id = qp.question_id
		                       WHERE qp.enrollment_id = mp.enrollment_id
		                         AND q.module_id = mp.module_id), 0)
		 WHERE mp.enrollment_id IN (SELECT id FROM enrollments WHERE cohort_id = $1)`,
		`UPDATE enrollments e
		 SET total_score = COALESCE((SELECT SUM(qp.best_score) FROM question_progress qp
		                             WHERE qp.enrollment_id = e.id), 0),
		     updated_at = CURRENT_TIMESTAMP
		 WHERE e.cohort_id = $1`,
	}
	for _, query := range statements {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, cohortID)
		} else {
			_, err = r.db.ExecContext(ctx, query, cohortID)
		}
		if err != nil {
			return fmt.Errorf("pgEnrollmentRepository.RecomputeAggregates: %w", err)
		}
	}
	return nil
}

func (r *pgEnrollmentRepository) DeleteByCohortID(ctx context.Context, tx *sql.Tx, cohortID string) error {
	statements := []string{
		`DELETE FROM question_progress WHERE enrollment_id IN (SELECT id FROM enrollments WHERE cohort_id = $1)`,
		`DELETE FROM module_progress WHERE enrollment_id IN (SELECT id FROM enrollments WHERE cohort_id = $1)`,
		`DELETE FROM enrollments WHERE cohort_id = $1`,
	}
	for _, query := range statements {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, cohortID)
		} else {
			_, err = r.db.ExecContext(ctx, query, cohortID)
		}
		if err != nil {
			return fmt.Errorf("pgEnrollmentRepository.DeleteByCohortID: %w", err)
		}
	}
	return nil
}
