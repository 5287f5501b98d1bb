package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OperationType distinguishes the two cash operation kinds.
type OperationType string

const (
	OperationDeposit  OperationType = "DEPOSIT"
	OperationWithdraw OperationType = "WITHDRAW"
)

// SagaStatus is the lifecycle status of a cash operation saga.
// COMPLETED and FAILED are terminal. COMPENSATED exists in the schema but no
// transition currently enters it.
type SagaStatus string

const (
	SagaPending     SagaStatus = "PENDING"
	SagaCompleted   SagaStatus = "COMPLETED"
	SagaFailed      SagaStatus = "FAILED"
	SagaCompensated SagaStatus = "COMPENSATED"
)

// Terminal reports whether no further transition may leave the status.
func (s SagaStatus) Terminal() bool {
	return s == SagaCompleted || s == SagaFailed || s == SagaCompensated
}

// CashOperation is the requester-side saga instance: one row per deposit or
// withdrawal, correlated with the accounts-service response via SagaID.
type CashOperation struct {
	ID            int64           `json:"id"`
	UserLogin     string          `json:"userLogin"`
	Currency      string          `json:"currency"`
	Amount        decimal.Decimal `json:"amount"`
	OperationType OperationType   `json:"operationType"`
	SagaID        string          `json:"sagaId"`
	Status        SagaStatus      `json:"status"`
	ErrorMessage  string          `json:"errorMessage,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

type User struct {
	Login        string    `json:"login"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"firstName"`
	LastName     string    `json:"lastName"`
	Email        string    `json:"email"`
	BirthDate    time.Time `json:"birthDate"`
	CreatedAt    time.Time `json:"createdTimestamp"`
	UpdatedAt    time.Time `json:"updatedTimestamp"`
}

type Account struct {
	ID        int64           `json:"id"`
	UserLogin string          `json:"-"`
	Currency  string          `json:"currency"`
	Balance   decimal.Decimal `json:"balance"`
	CreatedAt time.Time       `json:"createdTimestamp"`
	UpdatedAt time.Time       `json:"updatedTimestamp"`
}

// AccountView is the Redis-cached projection of an account balance.
type AccountView struct {
	Currency string          `json:"currency"`
	Balance  decimal.Decimal `json:"balance"`
}

// SupportedCurrencies lists the currencies an account can be opened in.
var SupportedCurrencies = []string{"RUB", "USD", "EUR", "CNY"}

func IsSupportedCurrency(code string) bool {
	for _, c := range SupportedCurrencies {
		if c == code {
			return true
		}
	}
	return false
}
