// Package saga defines the wire contract between cash-service and
// accounts-service: event type tags, payload shapes and the error codes an
// executor failure is classified into. Both services depend on this package
// and nothing here may change without coordinating the two sides.
package saga

import "github.com/shopspring/decimal"

// Event type tags stored in the outbox event_type column.
const (
	BalanceUpdateRequested = "SAGA_BALANCE_UPDATE_REQUESTED"
	BalanceUpdated         = "SAGA_BALANCE_UPDATED"
	BalanceUpdateFailed    = "SAGA_BALANCE_UPDATE_FAILED"
)

// Default bus topics. Each service resolves event types to topics through
// its configuration; these are the fallback values.
const (
	DefaultTopicBalanceUpdateRequested = "saga.balance.update.requested"
	DefaultTopicBalanceUpdated         = "saga.balance.updated"
	DefaultTopicBalanceUpdateFailed    = "saga.balance.update.failed"
)

// ErrorCode classifies an executor-side failure. Produced exactly once, at
// the failure site, and carried verbatim in BalanceUpdateFailedEvent.
type ErrorCode string

const (
	CodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"
	CodeAccountNotFound   ErrorCode = "ACCOUNT_NOT_FOUND"
	CodeUserNotFound      ErrorCode = "USER_NOT_FOUND"
	CodeUnknownError      ErrorCode = "UNKNOWN_ERROR"
)

// BalanceUpdateRequestedEvent asks accounts-service to apply a signed amount
// to the account identified by (login, currency). Amount is negative for a
// withdrawal and positive for a deposit.
type BalanceUpdateRequestedEvent struct {
	SagaID        string          `json:"sagaId"`
	OperationID   int64           `json:"operationId"`
	Login         string          `json:"login"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	OperationType string          `json:"operationType"`
}

// BalanceUpdatedEvent is the success response carrying the balance after the
// update was applied.
type BalanceUpdatedEvent struct {
	SagaID      string          `json:"sagaId"`
	OperationID int64           `json:"operationId"`
	Login       string          `json:"login"`
	Currency    string          `json:"currency"`
	NewBalance  decimal.Decimal `json:"newBalance"`
}

// BalanceUpdateFailedEvent is the failure response. ErrorMessage is
// human-readable; ErrorCode is the machine-readable classification.
type BalanceUpdateFailedEvent struct {
	SagaID       string    `json:"sagaId"`
	OperationID  int64     `json:"operationId"`
	Login        string    `json:"login"`
	ErrorMessage string    `json:"errorMessage"`
	ErrorCode    ErrorCode `json:"errorCode"`
}
