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

// Users are provisioned by the identity service; this repository only reads
// them, plus a create used by fixture loading.
type UserRepository interface {
	CreateUser(ctx context.Context, tx *sql.Tx, user *model.User) error
	FindUserByID(ctx context.Context, id string) (*model.User, error)
	FindUserByUsername(ctx context.Context, username string) (*model.User, error)
}

type pgUserRepository struct {
	db *sql.DB
}

func NewPgUserRepository(db *sql.DB) UserRepository {
	return &pgUserRepository{db: db}
}

func (r *pgUserRepository) CreateUser(ctx context.Context, tx *sql.Tx, u *model.User) error {
	query := `INSERT INTO users (id, username, email, role) VALUES ($1, $2, $3, $4)`

	var err error
	if tx != nil {
		_, err = tx.ExecContext(ctx, query, u.ID, u.Username, u.Email, u.Role)
	} else {
		_, err = r.db.ExecContext(ctx, query, u.ID, u.Username, u.Email, u.Role)
	}
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("username or email already taken: %w", common.ErrConflict)
		}
		return fmt.Errorf("pgUserRepository.CreateUser: %w", err)
	}
	return nil
}

func (r *pgUserRepository) FindUserByID(ctx context.Context, id string) (*model.User, error) {
	query := `SELECT id, username, email, role, created_at, updated_at FROM users WHERE id = $1`

	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindUserByID: %w", err)
	}
	return user, nil
}

func (r *pgUserRepository) FindUserByUsername(ctx context.Context, username string) (*model.User, error) {
	query := `SELECT id, username, email, role, created_at, updated_at FROM users WHERE username = $1`

	user := &model.User{}
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.Email, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("pgUserRepository.FindUserByUsername: %w", err)
	}
	return user, nil
}
