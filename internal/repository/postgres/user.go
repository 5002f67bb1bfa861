package postgres

import (
	"context"
	"database/sql"

	"mercado/internal/domain"
	"mercado/pkg/errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// UserRepository reads platform accounts. This service never writes users
// beyond seeding; registration lives elsewhere.
type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *domain.User) error {
	query := `
		INSERT INTO users (id, email, password_hash, nombre, rol, created_at)
		VALUES (:id, :email, :password_hash, :nombre, :rol, :created_at)
	`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return errors.Wrap(err, "failed to create user")
	}
	return nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, email, password_hash, nombre, rol, created_at FROM users WHERE id = $1`
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to find user")
	}
	return &user, nil
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user domain.User
	query := `SELECT id, email, password_hash, nombre, rol, created_at FROM users WHERE email = $1`
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if err == sql.ErrNoRows {
			return nil, errors.ErrUserNotFound
		}
		return nil, errors.Wrap(err, "failed to find user")
	}
	return &user, nil
}

// HasRole reports whether the account exists and holds the given role.
func (r *UserRepository) HasRole(ctx context.Context, userID uuid.UUID, rol domain.Rol) (bool, error) {
	var match bool
	query := `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1 AND rol = $2)`
	if err := r.db.GetContext(ctx, &match, query, userID, rol); err != nil {
		return false, errors.Wrap(err, "failed to check user role")
	}
	return match, nil
}
