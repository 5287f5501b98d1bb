package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/internal/accounts/repository"
	"github.com/ElizavetaP/bankapp/shared/models"
	"github.com/ElizavetaP/bankapp/shared/outbox"
	"github.com/ElizavetaP/bankapp/shared/saga"
)

// BalanceUpdateError is a business rejection of a balance update. It is
// created exactly once, at the failure site, already tagged with the wire
// error code; nothing downstream re-classifies it.
type BalanceUpdateError struct {
	Code    saga.ErrorCode
	Message string
}

func (e *BalanceUpdateError) Error() string {
	return e.Message
}

type accountStore interface {
	GetForUpdate(tx *sql.Tx, login, currency string) (*models.Account, error)
	UpdateBalance(tx *sql.Tx, id int64, balance decimal.Decimal) error
	MarkSagaProcessed(tx *sql.Tx, sagaID string) (bool, error)
}

type userStore interface {
	ExistsByLoginTx(tx *sql.Tx, login string) (bool, error)
}

type outboxAppender interface {
	Append(tx *sql.Tx, eventType string, payload any) error
}

type balanceCache interface {
	Invalidate(ctx context.Context, login string)
}

// BalanceUpdateService is the saga executor: it applies a requested balance
// change and writes the outcome event to its own outbox in the same
// transaction. The dedup insert into processed_sagas makes duplicate
// deliveries of the same saga a no-op.
type BalanceUpdateService struct {
	db       *sql.DB
	accounts accountStore
	users    userStore
	outbox   outboxAppender
	cache    balanceCache
}

func NewBalanceUpdateService(
	db *sql.DB,
	accounts *repository.AccountRepository,
	users *repository.UserRepository,
	ob *outbox.Store,
	cache *repository.BalanceCache,
) *BalanceUpdateService {
	return &BalanceUpdateService{db: db, accounts: accounts, users: users, outbox: ob, cache: cache}
}

// ProcessBalanceUpdate handles one balance-update-requested event. A
// business rejection commits a failed outcome event; an infrastructure error
// rolls everything back and is returned so the bus redelivers the request.
func (s *BalanceUpdateService) ProcessBalanceUpdate(ctx context.Context, event saga.BalanceUpdateRequestedEvent) error {
	log.Printf("Processing balance update: sagaId=%s, login=%s, amount=%s",
		event.SagaID, event.Login, event.Amount)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	applied, err := s.accounts.MarkSagaProcessed(tx, event.SagaID)
	if err != nil {
		return err
	}
	if !applied {
		log.Printf("Saga %s already processed, skipping duplicate request", event.SagaID)
		return nil
	}

	newBalance, err := s.apply(tx, event)
	if err != nil {
		var rejection *BalanceUpdateError
		if !errors.As(err, &rejection) {
			// Infrastructure fault: roll back and let the bus redeliver.
			return err
		}
		log.Printf("Balance update rejected: sagaId=%s, code=%s: %s",
			event.SagaID, rejection.Code, rejection.Message)
		failed := saga.BalanceUpdateFailedEvent{
			SagaID:       event.SagaID,
			OperationID:  event.OperationID,
			Login:        event.Login,
			ErrorMessage: rejection.Message,
			ErrorCode:    rejection.Code,
		}
		if err := s.outbox.Append(tx, saga.BalanceUpdateFailed, failed); err != nil {
			return err
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit rejection: %w", err)
		}
		return nil
	}

	success := saga.BalanceUpdatedEvent{
		SagaID:      event.SagaID,
		OperationID: event.OperationID,
		Login:       event.Login,
		Currency:    event.Currency,
		NewBalance:  newBalance,
	}
	if err := s.outbox.Append(tx, saga.BalanceUpdated, success); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit balance update: %w", err)
	}

	s.cache.Invalidate(ctx, event.Login)
	log.Printf("Balance updated: sagaId=%s, newBalance=%s", event.SagaID, newBalance)
	return nil
}

// apply mutates the account inside tx and returns the new balance. Business
// rejections come back as *BalanceUpdateError; anything else is an
// infrastructure error.
func (s *BalanceUpdateService) apply(tx *sql.Tx, event saga.BalanceUpdateRequestedEvent) (decimal.Decimal, error) {
	exists, err := s.users.ExistsByLoginTx(tx, event.Login)
	if err != nil {
		return decimal.Zero, err
	}
	if !exists {
		return decimal.Zero, &BalanceUpdateError{
			Code:    saga.CodeUserNotFound,
			Message: fmt.Sprintf("user not found: %s", event.Login),
		}
	}

	account, err := s.accounts.GetForUpdate(tx, event.Login, event.Currency)
	if errors.Is(err, repository.ErrAccountNotFound) {
		return decimal.Zero, &BalanceUpdateError{
			Code:    saga.CodeAccountNotFound,
			Message: fmt.Sprintf("account not found: %s %s", event.Login, event.Currency),
		}
	}
	if err != nil {
		return decimal.Zero, err
	}

	newBalance := account.Balance.Add(event.Amount)
	if newBalance.IsNegative() {
		return decimal.Zero, &BalanceUpdateError{
			Code:    saga.CodeInsufficientFunds,
			Message: "insufficient funds",
		}
	}

	if err := s.accounts.UpdateBalance(tx, account.ID, newBalance); err != nil {
		return decimal.Zero, err
	}
	return newBalance, nil
}
