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

type CohortRepository interface {
	CreateCohort(ctx context.Context, tx *sql.Tx, cohort *model.Cohort) error
	FindCohortByID(ctx context.Context, id string) (*model.Cohort, error)
	FindCohortBySlug(ctx context.Context, slug string) (*model.Cohort, error)
	ListCohorts(ctx context.Context, includeDrafts bool) ([]model.Cohort, error)
	DeleteCohort(ctx context.Context, tx *sql.Tx, id string) error

	CreateModule(ctx context.Context, tx *sql.Tx, module *model.Module) error
	FindModuleByID(ctx context.Context, id string) (*model.Module, error)
	ListModulesByCohortID(ctx context.Context, cohortID string) ([]model.Module, error)
	CountModulesByCohortID(ctx context.Context, cohortID string) (int, error)
	DeleteModule(ctx context.Context, tx *sql.Tx, id string) error
	DeleteModulesByCohortID(ctx context.Context, tx *sql.Tx, cohortID string) error
}

type pgCohortRepository struct {
	db *sql.DB
}

func NewPgCohortRepository(db *sql.DB) CohortRepository {
	return &pgCohortRepository{db: db}
}

func (r *pgCohortRepository) CreateCohort(ctx context.Context, tx *sql.Tx, c *model.Cohort) error {
	query := `INSERT INTO cohorts (id, title, slug, description, start_date, end_date, is_active, is_draft)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.StartDate, c.EndDate, c.IsActive, c.IsDraft)
	} else {
		_, err = r.db.ExecContext(ctx, query, c.ID, c.Title, c.Slug, c.Description, c.StartDate, c.EndDate, c.IsActive, c.IsDraft)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("cohort with this slug already exists: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgCohortRepository.CreateCohort: %w", err)
	}
	return nil
}

func (r *pgCohortRepository) FindCohortByID(ctx context.Context, id string) (*model.Cohort, error) {
	query := `SELECT id, title, slug, description, start_date, end_date, is_active, is_draft, created_at, updated_at
	          FROM cohorts WHERE id = $1`

	cohort := &model.Cohort{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&cohort.ID, &cohort.Title, &cohort.Slug, &cohort.Description,
		&cohort.StartDate, &cohort.EndDate, &cohort.IsActive, &cohort.IsDraft,
		&cohort.CreatedAt, &cohort.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCohortRepository.FindCohortByID: %w", err)
	}
	return cohort, nil
}

func (r *pgCohortRepository) FindCohortBySlug(ctx context.Context, slug string) (*model.Cohort, error) {
	query := `SELECT id, title, slug, description, start_date, end_date, is_active, is_draft, created_at, updated_at
	          FROM cohorts WHERE slug = $1`

	cohort := &model.Cohort{}
	err := r.db.QueryRowContext(ctx, query, slug).Scan(
		&cohort.ID, &cohort.Title, &cohort.Slug, &cohort.Description,
		&cohort.StartDate, &cohort.EndDate, &cohort.IsActive, &cohort.IsDraft,
		&cohort.CreatedAt, &cohort.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCohortRepository.FindCohortBySlug: %w", err)
	}
	return cohort, nil
}

func (r *pgCohortRepository) ListCohorts(ctx context.Context, includeDrafts bool) ([]model.Cohort, error) {
	query := `SELECT id, title, slug, description, start_date, end_date, is_active, is_draft, created_at, updated_at
	          FROM cohorts`
	if !includeDrafts {
		query += ` WHERE is_draft = FALSE`
	}
	query += ` ORDER BY start_date DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("pgCohortRepository.ListCohorts: %w", err)
	}
	defer rows.Close()

	var cohorts []model.Cohort
	for rows.Next() {
		var c model.Cohort
		if err := rows.Scan(
			&c.ID, &c.Title, &c.Slug, &c.Description,
			&c.StartDate, &c.EndDate, &c.IsActive, &c.IsDraft,
			&c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgCohortRepository.ListCohorts scan: %w", err)
		}
		cohorts = append(cohorts, c)
	}
	return cohorts, rows.Err()
}

func (r *pgCohortRepository) DeleteCohort(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM cohorts WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgCohortRepository.DeleteCohort: %w", err)
	}
	return nil
}

func (r *pgCohortRepository) CreateModule(ctx context.Context, tx *sql.Tx, m *model.Module) error {
	query := `INSERT INTO modules (id, cohort_id, title, description, sort_order)
	          VALUES ($1, $2, $3, $4, $5)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, m.ID, m.CohortID, m.Title, m.Description, m.SortOrder)
	} else {
		_, err = r.db.ExecContext(ctx, query, m.ID, m.CohortID, m.Title, m.Description, m.SortOrder)
	}
	if err != nil {
		return fmt.Errorf("pgCohortRepository.CreateModule: %w", err)
	}
	return nil
}

func (r *pgCohortRepository) FindModuleByID(ctx context.Context, id string) (*model.Module, error) {
	query := `SELECT id, cohort_id, title, description, sort_order, created_at, updated_at
	          FROM modules WHERE id = $1`

	module := &model.Module{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&module.ID, &module.CohortID, &module.Title, &module.Description,
		&module.SortOrder, &module.CreatedAt, &module.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgCohortRepository.FindModuleByID: %w", err)
	}
	return module, nil
}

func (r *pgCohortRepository) ListModulesByCohortID(ctx context.Context, cohortID string) ([]model.Module, error) {
	query := `SELECT id, cohort_id, title, description, sort_order, created_at, updated_at
	          FROM modules WHERE cohort_id = $1 ORDER BY sort_order ASC`

	rows, err := r.db.QueryContext(ctx, query, cohortID)
	if err != nil {
		return nil, fmt.Errorf("pgCohortRepository.ListModulesByCohortID: %w", err)
	}
	defer rows.Close()

	var modules []model.Module
	for rows.Next() {
		var m model.Module
		if err := rows.Scan(
			&m.ID, &m.CohortID, &m.Title, &m.Description,
			&m.SortOrder, &m.CreatedAt, &m.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("pgCohortRepository.ListModulesByCohortID scan: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (r *pgCohortRepository) CountModulesByCohortID(ctx context.Context, cohortID string) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM modules WHERE cohort_id = $1`, cohortID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("pgCohortRepository.CountModulesByCohortID: %w", err)
	}
	return count, nil
}

func (r *pgCohortRepository) DeleteModule(ctx context.Context, tx *sql.Tx, id string) error {
	query := `DELETE FROM modules WHERE id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, id)
	} else {
		_, err = r.db.ExecContext(ctx, query, id)
	}
	if err != nil {
		return fmt.Errorf("pgCohortRepository.DeleteModule: %w", err)
	}
	return nil
}

func (r *pgCohortRepository) DeleteModulesByCohortID(ctx context.Context, tx *sql.Tx, cohortID string) error {
	query := `DELETE FROM modules WHERE cohort_id = $1`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, cohortID)
	} else {
		_, err = r.db.ExecContext(ctx, query, cohortID)
	}
	if err != nil {
		return fmt.Errorf("pgCohortRepository.DeleteModulesByCohortID: %w", err)
	}
	return nil
}
