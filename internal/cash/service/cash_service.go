package service

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/internal/cash/repository"
	"github.com/ElizavetaP/bankapp/shared/models"
	"github.com/ElizavetaP/bankapp/shared/outbox"
	"github.com/ElizavetaP/bankapp/shared/saga"
)

// OperationRequest is a validated deposit or withdrawal request.
type OperationRequest struct {
	Login    string
	Currency string
	Value    decimal.Decimal
}

// operationStore and outboxAppender are the slices of the repositories the
// service needs; they keep the transaction boundary in one place and make
// the service testable.
type operationStore interface {
	Create(tx *sql.Tx, op *models.CashOperation) error
	GetBySagaID(ctx context.Context, sagaID string) (*models.CashOperation, error)
}

type outboxAppender interface {
	Append(tx *sql.Tx, eventType string, payload any) error
}

// CashService initiates cash operation sagas. Deposit and Withdraw return
// immediately with a PENDING operation; the final outcome is observed by
// re-reading the operation once accounts-service has responded.
type CashService struct {
	db     *sql.DB
	ops    operationStore
	outbox outboxAppender
}

func NewCashService(db *sql.DB, ops *repository.OperationRepository, ob *outbox.Store) *CashService {
	return &CashService{db: db, ops: ops, outbox: ob}
}

func (s *CashService) Deposit(ctx context.Context, req OperationRequest) (*models.CashOperation, error) {
	return s.process(ctx, req, models.OperationDeposit)
}

func (s *CashService) Withdraw(ctx context.Context, req OperationRequest) (*models.CashOperation, error) {
	return s.process(ctx, req, models.OperationWithdraw)
}

// process creates the PENDING operation and its balance-update-requested
// outbox row in one transaction. If either insert fails the transaction
// rolls back and neither the operation nor any message intent exists.
func (s *CashService) process(ctx context.Context, req OperationRequest, opType models.OperationType) (*models.CashOperation, error) {
	if !req.Value.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than zero")
	}
	if !models.IsSupportedCurrency(req.Currency) {
		return nil, fmt.Errorf("unsupported currency: %s", req.Currency)
	}

	sagaID := uuid.NewString()
	log.Printf("Starting %s saga: sagaId=%s, user=%s, amount=%s",
		opType, sagaID, req.Login, req.Value)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	op := &models.CashOperation{
		UserLogin:     req.Login,
		Currency:      req.Currency,
		Amount:        req.Value,
		OperationType: opType,
		SagaID:        sagaID,
		Status:        models.SagaPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.ops.Create(tx, op); err != nil {
		return nil, err
	}

	// Sign convention: the executor applies the amount as-is, so a
	// withdrawal is sent negated.
	amount := req.Value
	if opType == models.OperationWithdraw {
		amount = amount.Neg()
	}
	event := saga.BalanceUpdateRequestedEvent{
		SagaID:        sagaID,
		OperationID:   op.ID,
		Login:         req.Login,
		Currency:      req.Currency,
		Amount:        amount,
		OperationType: string(opType),
	}
	if err := s.outbox.Append(tx, saga.BalanceUpdateRequested, event); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit cash operation: %w", err)
	}
	log.Printf("Saga event saved to outbox: sagaId=%s", sagaID)
	return op, nil
}

// GetOperation returns the saga instance for status polling.
func (s *CashService) GetOperation(ctx context.Context, sagaID string) (*models.CashOperation, error) {
	return s.ops.GetBySagaID(ctx, sagaID)
}
