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

type QuestionRepository interface {
	CreateQuestion(ctx context.Context, tx *sql.Tx, question *model.Question) error
	FindQuestionByID(ctx context.Context, id string) (*model.Question, error)
	ListQuestionsByModuleID(ctx context.Context, moduleID string) ([]model.Question, error)
	ListQuestionIDsByModuleID(ctx context.Context, moduleID string) ([]string, error)
	CountQuestionsByModuleID(ctx context.Context, moduleID string) (int, error)

	AddOptions(ctx context.Context, tx *sql.Tx, questionID string, options []model.Option) error
	GetOptionsByQuestionID(ctx context.Context, questionID string) ([]model.Option, error)

	AddTestCases(ctx context.Context, tx *sql.Tx, questionID string, testCases []model.TestCase) error
	GetTestCasesByQuestionID(ctx context.Context, questionID string) ([]model.TestCase, error)

	// RecordSubmissionOutcome bumps the question counters and recomputes the
	// acceptance rate in one statement so concurrent submissions never lose
	// an increment.
	RecordSubmissionOutcome(ctx context.Context, tx *sql.Tx, questionID string, accepted bool) error

	DeleteQuestion(ctx context.Context, tx *sql.Tx, id string) error
	DeleteQuestionsByModuleID(ctx context.Context, tx *sql.Tx, moduleID string) error
}

type pgQuestionRepository struct {
	db *sql.DB
}

func NewPgQuestionRepository(db *sql.DB) QuestionRepository {
	return &pgQuestionRepository{db: db}
}

func (r *pgQuestionRepository) CreateQuestion(ctx context.Context, tx *sql.Tx, q *model.Question) error {
	query := `INSERT INTO questions (id, module_id, title, slug, description, type, marks, time_limit_ms, memory_limit_kb)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, q.ID, q.ModuleID, q.Title, q.Slug, q.Description, q.Type, q.Marks, q.TimeLimitMs, q.MemoryLimitKb)
	} else {
		_, err = r.db.ExecContext(ctx, query, q.ID, q.ModuleID, q.Title, q.Slug, q.Description, q.Type, q.Marks, q.TimeLimitMs, q.MemoryLimitKb)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("question with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgQuestionRepository.CreateQuestion: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) FindQuestionByID(ctx context.Context, id string) (*model.Question, error) {
	query := `SELECT id, module_id, title, slug, description, type, marks, time_limit_ms, memory_limit_kb,
	                 total_submissions, accepted_submissions, acceptance_rate, created_at, updated_at
	          FROM questions WHERE id = $1`

	question := &model.Question{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&question.ID, &question.ModuleID, &question.Title, &question.Slug, &question.Description,
		&question.Type, &question.Marks, &question.TimeLimitMs, &question.MemoryLimitKb,
		&question.Stats.TotalSubmissions, &question.Stats.AcceptedSubmissions, &question.Stats.AcceptanceRate,
		&question.CreatedAt, &question.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgQuestionRepository.FindQuestionByID: %w", err)
	}
	return question, nil
}

func (r *pgQuestionRepository) ListQuestionsByModuleID(ctx context.Context, moduleID string) ([]model.Question, error) {
	query := `SELECT id, module_id, title, slug, description, type, marks, time_limit_ms, memory_limit_kb,
	                 total_submissions, accepted_submissions, acceptance_rate, created_at, updated_at
	          FROM questions WHERE module_id = $1 ORDER BY created_at ASC`

	rows, err := r.db.QueryContext(ctx, query, moduleID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListQuestionsByModuleID: %w", err)
	}
	defer rows.Close()

	var questions []model.Question
	for rows.Next() {
		var q model.Question
		if err := rows.Scan(
			&q.ID, &q.ModuleID, &q.Title, &q.Slug, &q.Description,
			&q.Type, &q.Marks, &q.TimeLimitMs, &q.MemoryLimitKb,
			&q.Stats.TotalSubmissions, &q.Stats.AcceptedSubmissions, &q.Stats.AcceptanceRate,
			&q.CreatedAt, &q.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListQuestionsByModuleID scan: %w", err)
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

func (r *pgQuestionRepository) ListQuestionIDsByModuleID(ctx context.Context, moduleID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id FROM questions WHERE module_id = $1`, moduleID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.ListQuestionIDsByModuleID: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.ListQuestionIDsByModuleID scan: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *pgQuestionRepository) CountQuestionsByModuleID(ctx context.Context, moduleID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM questions WHERE module_id = $1`, moduleID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgQuestionRepository.CountQuestionsByModuleID: %w", err)
	}
	return count, nil
}

func (r *pgQuestionRepository) AddOptions(ctx context.Context, tx *sql.Tx, questionID string, options []model.Option) error {
	query := `INSERT INTO question_options (id, question_id, text, is_correct, sort_order)
	          VALUES ($1, $2, $3, $4, $5)`

	for _, opt := range options {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, opt.ID, questionID, opt.Text, opt.IsCorrect, opt.SortOrder)
		} else {
			_, err = r.db.ExecContext(ctx, query, opt.ID, questionID, opt.Text, opt.IsCorrect, opt.SortOrder)
		}
		if err != nil {
			return fmt.Errorf("pgQuestionRepository.AddOptions: %w", err)
		}
	}
	return nil
}

func (r *pgQuestionRepository) GetOptionsByQuestionID(ctx context.Context, questionID string) ([]model.Option, error) {
	query := `SELECT id, question_id, text, is_correct, sort_order
	          FROM question_options WHERE question_id = $1 ORDER BY sort_order ASC`

	rows, err := r.db.QueryContext(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.GetOptionsByQuestionID: %w", err)
	}
	defer rows.Close()

	var options []model.Option
	for rows.Next() {
		var opt model.Option
		if err := rows.Scan(&opt.ID, &opt.QuestionID, &opt.Text, &opt.IsCorrect, &opt.SortOrder); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.GetOptionsByQuestionID scan: %w", err)
		}
		options = append(options, opt)
	}
	return options, rows.Err()
}

func (r *pgQuestionRepository) AddTestCases(ctx context.Context, tx *sql.Tx, questionID string, testCases []model.TestCase) error {
	query := `INSERT INTO test_cases (id, question_id, input, expected_output, hidden, explanation, sort_order)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`

	for _, tc := range testCases {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, tc.ID, questionID, tc.Input, tc.ExpectedOutput, tc.Hidden, tc.Explanation, tc.SortOrder)
		} else {
			_, err = r.db.ExecContext(ctx, query, tc.ID, questionID, tc.Input, tc.ExpectedOutput, tc.Hidden, tc.Explanation, tc.SortOrder)
		}
		if err != nil {
			return fmt.Errorf("pgQuestionRepository.AddTestCases: %w", err)
		}
	}
	return nil
}

func (r *pgQuestionRepository) GetTestCasesByQuestionID(ctx context.Context, questionID string) ([]model.TestCase, error) {
	query := `SELECT id, question_id, input, expected_output, hidden, explanation, sort_order
	          FROM test_cases WHERE question_id = $1 ORDER BY sort_order ASC`

	rows, err := r.db.QueryContext(ctx, query, questionID)
	if err != nil {
		return nil, fmt.Errorf("pgQuestionRepository.GetTestCasesByQuestionID: %w", err)
	}
	defer rows.Close()

	var testCases []model.TestCase
	for rows.Next() {
		var tc model.TestCase
		if err := rows.Scan(&tc.ID, &tc.QuestionID, &tc.Input, &tc.ExpectedOutput, &tc.Hidden, &tc.Explanation, &tc.SortOrder); err != nil {
			return nil, fmt.Errorf("pgQuestionRepository.GetTestCasesByQuestionID scan: %w", err)
		}
		testCases = append(testCases, tc)
	}
	return testCases, rows.Err()
}

func (r *pgQuestionRepository) RecordSubmissionOutcome(ctx context.Context, tx *sql.Tx, questionID string, accepted bool) error {
	query := `UPDATE questions SET
	            total_submissions = total_submissions + 1,
	            accepted_submissions = accepted_submissions + CASE WHEN $2 THEN 1 ELSE 0 END,
	            acceptance_rate = (accepted_submissions + CASE WHEN $2 THEN 1 ELSE 0 END) * 100.0 / (total_submissions + 1),
	            updated_at = CURRENT_TIMESTAMP
	          WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, questionID, accepted)
	} else {
		_, err = r.db.ExecContext(ctx, query, questionID, accepted)
	}
	if err != nil {
		return fmt.Errorf("pgQuestionRepository.RecordSubmissionOutcome: %w", err)
	}
	return nil
}

func (r *pgQuestionRepository) DeleteQuestion(ctx context.Context, tx *sql.Tx, id string) error {
	statements := []string{
		`DELETE FROM question_options WHERE question_id = $1`,
		`DELETE FROM test_cases WHERE question_id = $1`,
		`DELETE FROM questions WHERE id = $1`,
	}
	for _, query := range statements {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, id)
		} else {
			_, err = r.db.ExecContext(ctx, query, id)
		}
		if err != nil {
			return fmt.Errorf("pgQuestionRepository.DeleteQuestion: %w", err)
		}
	}
	return nil
}

func (r *pgQuestionRepository) DeleteQuestionsByModuleID(ctx context.Context, tx *sql.Tx, moduleID string) error {
	statements := []string{
		`DELETE FROM question_options WHERE question_id IN (SELECT id FROM questions WHERE module_id = $1)`,
		`DELETE FROM test_cases WHERE question_id IN (SELECT id FROM questions WHERE module_id = $1)`,
		`DELETE FROM questions WHERE module_id = $1`,
	}
	for _, query := range statements {
		var err error
		if tx != nil {
			_, err = tx.ExecContext(ctx, query, moduleID)
		} else {
			_, err = r.db.ExecContext(ctx, query, moduleID)
		}
		if err != nil {
			return fmt.Errorf("pgQuestionRepository.DeleteQuestionsByModuleID: %w", err)
		}
	}
	return nil
}
