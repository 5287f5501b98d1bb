package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/ElizavetaP/bankapp/shared/models"
)

// ErrNotFound is returned when no cash operation matches the lookup.
var ErrNotFound = errors.New("cash operation not found")

// OperationRepository persists cash operations (the requester-side saga
// instances) in PostgreSQL.
type OperationRepository struct {
	db *sql.DB
}

func NewOperationRepository(db *sql.DB) *OperationRepository {
	return &OperationRepository{db: db}
}

// Create inserts the operation using tx so it commits atomically with the
// outbox row written in the same transaction. The generated id is written
// back into op.
func (r *OperationRepository) Create(tx *sql.Tx, op *models.CashOperation) error {
	query := `
		INSERT INTO cash_operations
			(user_login, currency, amount, operation_type, saga_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`
	err := tx.QueryRow(query,
		op.UserLogin, op.Currency, op.Amount, string(op.OperationType),
		op.SagaID, string(op.Status), op.CreatedAt, op.UpdatedAt,
	).Scan(&op.ID)
	if err != nil {
		return fmt.Errorf("failed to create cash operation: %w", err)
	}
	return nil
}

func (r *OperationRepository) GetBySagaID(ctx context.Context, sagaID string) (*models.CashOperation, error) {
	query := `
		SELECT id, user_login, currency, amount, operation_type, saga_id,
		       status, COALESCE(error_message, ''), created_at, updated_at
		FROM cash_operations
		WHERE saga_id = $1
	`
	var op models.CashOperation
	var opType, status string
	err := r.db.QueryRowContext(ctx, query, sagaID).Scan(
		&op.ID, &op.UserLogin, &op.Currency, &op.Amount, &opType,
		&op.SagaID, &status, &op.ErrorMessage, &op.CreatedAt, &op.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get cash operation: %w", err)
	}
	op.OperationType = models.OperationType(opType)
	op.Status = models.SagaStatus(status)
	return &op, nil
}

// MarkTerminal moves a PENDING operation to a terminal status. It returns
// false when no row changed, which means the operation either does not exist
// or already reached a terminal status; the guard on status makes replaying
// the same response a no-op.
func (r *OperationRepository) MarkTerminal(ctx context.Context, sagaID string, status models.SagaStatus, errorMessage string) (bool, error) {
	query := `
		UPDATE cash_operations
		SET status = $2, error_message = NULLIF($3, ''), updated_at = NOW()
		WHERE saga_id = $1 AND status = 'PENDING'
	`
	result, err := r.db.ExecContext(ctx, query, sagaID, string(status), errorMessage)
	if err != nil {
		return false, fmt.Errorf("failed to update cash operation status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to check rows affected: %w", err)
	}
	return rows > 0, nil
}
