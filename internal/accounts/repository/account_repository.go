package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/shared/models"
)

var ErrAccountNotFound = errors.New("account not found")

// AccountRepository persists accounts and the processed_sagas dedup table.
// Balance mutations always go through a *sql.Tx supplied by the caller so
// they commit together with the outcome outbox row.
type AccountRepository struct {
	db *sql.DB
}

func NewAccountRepository(db *sql.DB) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *models.Account) error {
	query := `
		INSERT INTO accounts (user_login, currency, balance, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		account.UserLogin, account.Currency, account.Balance,
		account.CreatedAt, account.UpdatedAt,
	).Scan(&account.ID)
	if err != nil {
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}

func (r *AccountRepository) ExistsByLoginAndCurrency(ctx context.Context, login, currency string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM accounts WHERE user_login = $1 AND currency = $2)`,
		login, currency).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check account existence: %w", err)
	}
	return exists, nil
}

func (r *AccountRepository) ListByLogin(ctx context.Context, login string) ([]models.Account, error) {
	query := `
		SELECT id, user_login, currency, balance, created_at, updated_at
		FROM accounts
		WHERE user_login = $1
		ORDER BY currency
	`
	rows, err := r.db.QueryContext(ctx, query, login)
	if err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []models.Account
	for rows.Next() {
		var a models.Account
		if err := rows.Scan(&a.ID, &a.UserLogin, &a.Currency, &a.Balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list accounts: %w", err)
	}
	return accounts, nil
}

// GetForUpdate locks the account row for the duration of tx so two
// concurrent sagas on the same account serialize their balance updates.
func (r *AccountRepository) GetForUpdate(tx *sql.Tx, login, currency string) (*models.Account, error) {
	query := `
		SELECT id, user_login, currency, balance, created_at, updated_at
		FROM accounts
		WHERE user_login = $1 AND currency = $2
		FOR UPDATE
	`
	var a models.Account
	err := tx.QueryRow(query, login, currency).Scan(
		&a.ID, &a.UserLogin, &a.Currency, &a.Balance, &a.CreatedAt, &a.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) UpdateBalance(tx *sql.Tx, id int64, balance decimal.Decimal) error {
	result, err := tx.Exec(
		`UPDATE accounts SET balance = $2, updated_at = NOW() WHERE id = $1`,
		id, balance,
	)
	if err != nil {
		return fmt.Errorf("failed to update balance: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return ErrAccountNotFound
	}
	return nil
}

// MarkSagaProcessed records sagaID in the dedup table inside tx. It returns
// false when the saga was already recorded, meaning this is a duplicate
// delivery and the balance mutation must not be applied again.
func (r *AccountRepository) MarkSagaProcessed(tx *sql.Tx, sagaID string) (bool, error) {
	result, err := tx.Exec(
		`INSERT INTO processed_sagas (saga_id, processed_at) VALUES ($1, NOW())
		 ON CONFLICT (saga_id) DO NOTHING`,
		sagaID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to record processed saga: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows > 0, nil
}
