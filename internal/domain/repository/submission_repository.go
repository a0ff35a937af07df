package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"cohortly/internal/common"
	"cohortly/internal/domain/model"
)

type SubmissionRepository interface {
	CreateSubmission(ctx context.Context, tx *sql.Tx, submission *model.Submission) error
	CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error
	FindSubmissionByID(ctx context.Context, id string) (*model.Submission, error)
	GetTestCaseResultsBySubmissionID(ctx context.Context, submissionID string) ([]model.TestCaseResult, error)
	ListByQuestionAndCohort(ctx context.Context, questionID, cohortID string, limit int) ([]model.Submission, error)
	ListByUserAndQuestion(ctx context.Context, userID, questionID string, limit int) ([]model.Submission, error)
	DeleteByQuestionIDs(ctx context.Context, tx *sql.Tx, questionIDs []string) error
	DeleteByCohortID(ctx context.Context, tx *sql.Tx, cohortID string) error
}

type pgSubmissionRepository struct {
	db *sql.DB
}

func NewPgSubmissionRepository(db *sql.DB) SubmissionRepository {
	return &pgSubmissionRepository{db: db}
}

func (r *pgSubmissionRepository) CreateSubmission(ctx context.Context, tx *sql.Tx, s *model.Submission) error {
	query := `INSERT INTO submissions (id, user_id, question_id, module_id, cohort_id, submission_type,
	            selected_option_id, code, language, status, execution_time_ms, memory_kb, is_correct, score, submitted_at)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, s.ID, s.UserID, s.QuestionID, s.ModuleID, s.CohortID, s.Type,
			s.SelectedOptionID, s.Code, s.Language, s.Status, s.ExecutionTimeMs, s.MemoryKb, s.IsCorrect, s.Score, s.SubmittedAt)
	} else {
		_, err = r.db.ExecContext(ctx, query, s.ID, s.UserID, s.QuestionID, s.ModuleID, s.CohortID, s.Type,
			s.SelectedOptionID, s.Code, s.Language, s.Status, s.ExecutionTimeMs, s.MemoryKb, s.IsCorrect, s.Score, s.SubmittedAt)
	}
	if err != nil {
		return fmt.Errorf("pgSubmissionRepository.CreateSubmission: %w", err)
	}
	return nil
}

func (r *pgSubmissionRepository) CreateTestCaseResults(ctx context.Context, tx *sql.Tx, results []model.TestCaseResult) error {
	query := `INSERT INTO submission_test_results (id, submission_id, test_case_id, passed, actual_output, expected_output, error, execution_time_ms, memory_kb)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, res := range results {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, res.ID, res.SubmissionID, res.TestCaseID, res.Passed,
				res.ActualOutput, res.ExpectedOutput, res.Error, res.ExecutionTimeMs, res.MemoryKb)
		} else {
			_, err = r.db.ExecContext(ctx, query, res.ID, res.SubmissionID, res.TestCaseID, res.Passed,
				res.ActualOutput, res.ExpectedOutput, res.Error, res.ExecutionTimeMs, res.MemoryKb)
		}
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.CreateTestCaseResults: %w", err)
		}
	}
	return nil
}

func (r *pgSubmissionRepository) FindSubmissionByID(ctx context.Context, id string) (*model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.question_id, s.module_id, s.cohort_id, s.submission_type,
	                 s.selected_option_id, s.code, s.language, s.status, s.execution_time_ms, s.memory_kb,
	                 s.is_correct, s.score, s.submitted_at, u.username
	          FROM submissions s
	          JOIN users u ON s.user_id = u.id
	          WHERE s.id = $1`

	s := &model.Submission{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&s.ID, &s.UserID, &s.QuestionID, &s.ModuleID, &s.CohortID, &s.Type,
		&s.SelectedOptionID, &s.Code, &s.Language, &s.Status, &s.ExecutionTimeMs, &s.MemoryKb,
		&s.IsCorrect, &s.Score, &s.SubmittedAt, &s.UserUsername,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgSubmissionRepository.FindSubmissionByID: %w", err)
	}
	return s, nil
}

func (r *pgSubmissionRepository) GetTestCaseResultsBySubmissionID(ctx context.Context, submissionID string) ([]model.TestCaseResult, error) {
	query := `SELECT id, submission_id, test_case_id, passed, actual_output, expected_output, error, execution_time_ms, memory_kb
	          FROM submission_test_results WHERE submission_id = $1`

	rows, err := r.db.QueryContext(ctx, query, submissionID)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResultsBySubmissionID: %w", err)
	}
	defer rows.Close()

	var results []model.TestCaseResult
	for rows.Next() {
		var res model.TestCaseResult
		if err := rows.Scan(&res.ID, &res.SubmissionID, &res.TestCaseID, &res.Passed,
			&res.ActualOutput, &res.ExpectedOutput, &res.Error, &res.ExecutionTimeMs, &res.MemoryKb); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.GetTestCaseResultsBySubmissionID scan: %w", err)
		}
		results = append(results, res)
	}
	return results, rows.Err()
}

func (r *pgSubmissionRepository) ListByQuestionAndCohort(ctx context.Context, questionID, cohortID string, limit int) ([]model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.question_id, s.module_id, s.cohort_id, s.submission_type,
	                 s.selected_option_id, s.code, s.language, s.status, s.execution_time_ms, s.memory_kb,
	                 s.is_correct, s.score, s.submitted_at, u.username
	          FROM submissions s
	          JOIN users u ON s.user_id = u.id
	          WHERE s.question_id = $1 AND s.cohort_id = $2
	          ORDER BY s.submitted_at DESC
	          LIMIT $3`

	return r.list(ctx, query, questionID, cohortID, limit)
}

func (r *pgSubmissionRepository) ListByUserAndQuestion(ctx context.Context, userID, questionID string, limit int) ([]model.Submission, error) {
	query := `SELECT s.id, s.user_id, s.question_id, s.module_id, s.cohort_id, s.submission_type,
	                 s.selected_option_id, s.code, s.language, s.status, s.execution_time_ms, s.memory_kb,
	                 s.is_correct, s.score, s.submitted_at, u.username
	          FROM submissions s
	          JOIN users u ON s.user_id = u.id
	          WHERE s.user_id = $1 AND s.question_id = $2
	          ORDER BY s.submitted_at DESC
	          LIMIT $3`

	return r.list(ctx, query, userID, questionID, limit)
}

func (r *pgSubmissionRepository) list(ctx context.Context, query string, args ...any) ([]model.Submission, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("pgSubmissionRepository.list: %w", err)
	}
	defer rows.Close()

	var submissions []model.Submission
	for rows.Next() {
		var s model.Submission
		if err := rows.Scan(
			&s.ID, &s.UserID, &s.QuestionID, &s.ModuleID, &s.CohortID, &s.Type,
			&s.SelectedOptionID, &s.Code, &s.Language, &s.Status, &s.ExecutionTimeMs, &s.MemoryKb,
			&s.IsCorrect, &s.Score, &s.SubmittedAt, &s.UserUsername,
		); err != nil {
			return nil, fmt.Errorf("pgSubmissionRepository.list scan: %w", err)
		}
		submissions = append(submissions, s)
	}
	return submissions, rows.Err()
}

func (r *pgSubmissionRepository) DeleteByQuestionIDs(ctx context.Context, tx *sql.Tx, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return nil
	}
	statements := []string{
		`DELETE FROM submission_test_results WHERE submission_id IN (SELECT id FROM submissions WHERE question_id = ANY($1))`,
		`DELETE FROM submissions WHERE question_id = ANY($1)`,
	}
	for _, query := range statements {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, questionIDs)
		} else {
			_, err = r.db.ExecContext(ctx, query, questionIDs)
		}
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.DeleteByQuestionIDs: %w", err)
		}
	}
	return nil
}

func (r *pgSubmissionRepository) DeleteByCohortID(ctx context.Context, tx *sql.Tx, cohortID string) error {
	statements := []string{
		`DELETE FROM submission_test_results WHERE submission_id IN (SELECT id FROM submissions WHERE cohort_id = $1)`,
		`DELETE FROM submissions WHERE cohort_id = $1`,
	}
	for _, query := range statements {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, cohortID)
		} else {
			_, err = r.db.ExecContext(ctx, query, cohortID)
		}
		if err != nil {
			return fmt.Errorf("pgSubmissionRepository.DeleteByCohortID: %w", err)
		}
	}
	return nil
}
