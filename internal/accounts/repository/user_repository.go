package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ElizavetaP/bankapp/shared/models"
)

var ErrUserNotFound = errors.New("user not found")

type UserRepository struct {
	db *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (login, password, first_name, last_name, email, birth_date, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.Login, user.PasswordHash, user.FirstName, user.LastName,
		user.Email, user.BirthDate, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByLogin(ctx context.Context, login string) (*models.User, error) {
	query := `
		SELECT login, password, first_name, last_name, email, birth_date, created_at, updated_at
		FROM users
		WHERE login = $1
	`
	var user models.User
	err := r.db.QueryRowContext(ctx, query, login).Scan(
		&user.Login, &user.PasswordHash, &user.FirstName, &user.LastName,
		&user.Email, &user.BirthDate, &user.CreatedAt, &user.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (r *UserRepository) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)`, login).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

// ExistsByLoginTx is the in-transaction variant used by the saga executor so
// the check shares the executor's snapshot.
func (r *UserRepository) ExistsByLoginTx(tx *sql.Tx, login string) (bool, error) {
	var exists bool
	err := tx.QueryRow(`SELECT EXISTS(SELECT 1 FROM users WHERE login = $1)`, login).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check user existence: %w", err)
	}
	return exists, nil
}

func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	query := `
		UPDATE users
		SET first_name = $2, last_name = $3, email = $4, birth_date = $5, updated_at = $6
		WHERE login = $1
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Login, user.FirstName, user.LastName, user.Email, user.BirthDate, user.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, login, passwordHash string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET password = $2, updated_at = NOW() WHERE login = $1`,
		login, passwordHash,
	)
	if err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}
	return nil
}
