package service

import (
	"context"
	"database/sql/driver"
	"errors"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/internal/cash/repository"
	"github.com/ElizavetaP/bankapp/shared/models"
	"github.com/ElizavetaP/bankapp/shared/outbox"
	"github.com/ElizavetaP/bankapp/shared/saga"
)

// payloadContains matches an SQL argument whose string form contains the
// given fragment. Used to check the encoded outbox payload.
type payloadContains string

func (p payloadContains) Match(v driver.Value) bool {
	s, ok := v.(string)
	return ok && strings.Contains(s, string(p))
}

func newTestService(t *testing.T) (*CashService, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	svc := NewCashService(db, repository.NewOperationRepository(db), outbox.NewStore(db))
	return svc, mock, func() { db.Close() }
}

func TestDepositWritesOperationAndOutboxInOneTransaction(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cash_operations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(saga.BalanceUpdateRequested, payloadContains(`"amount":"100"`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	op, err := svc.Deposit(context.Background(), OperationRequest{
		Login:    "alice",
		Currency: "USD",
		Value:    decimal.RequireFromString("100.00"),
	})
	if err != nil {
		t.Fatalf("deposit failed: %v", err)
	}
	if op.Status != models.SagaPending {
		t.Errorf("expected PENDING, got %s", op.Status)
	}
	if op.ID != 7 {
		t.Errorf("expected operation id 7, got %d", op.ID)
	}
	if op.SagaID == "" {
		t.Error("expected a saga id to be generated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestWithdrawNegatesAmountOnTheWire(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cash_operations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(8)))
	mock.ExpectExec("INSERT INTO outbox_events").
		WithArgs(saga.BalanceUpdateRequested, payloadContains(`"amount":"-50"`), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	op, err := svc.Withdraw(context.Background(), OperationRequest{
		Login:    "bob",
		Currency: "USD",
		Value:    decimal.RequireFromString("50.00"),
	})
	if err != nil {
		t.Fatalf("withdraw failed: %v", err)
	}
	// The stored operation keeps the unsigned amount; only the wire event
	// carries the sign.
	if !op.Amount.Equal(decimal.RequireFromString("50.00")) {
		t.Errorf("expected stored amount 50.00, got %s", op.Amount)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestProcessRollsBackWhenOutboxAppendFails(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cash_operations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(9)))
	mock.ExpectExec("INSERT INTO outbox_events").
		WillReturnError(errors.New("disk full"))
	mock.ExpectRollback()

	_, err := svc.Deposit(context.Background(), OperationRequest{
		Login:    "alice",
		Currency: "USD",
		Value:    decimal.RequireFromString("1.00"),
	})
	if err == nil {
		t.Fatal("expected deposit to fail")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("transaction was not rolled back: %v", err)
	}
}

func TestProcessRejectsInvalidRequests(t *testing.T) {
	svc, mock, done := newTestService(t)
	defer done()

	cases := []struct {
		name string
		req  OperationRequest
	}{
		{"zero amount", OperationRequest{Login: "alice", Currency: "USD", Value: decimal.Zero}},
		{"negative amount", OperationRequest{Login: "alice", Currency: "USD", Value: decimal.RequireFromString("-5")}},
		{"unsupported currency", OperationRequest{Login: "alice", Currency: "GBP", Value: decimal.RequireFromString("5")}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := svc.Deposit(context.Background(), tc.req); err == nil {
				t.Error("expected validation error")
			}
		})
	}
	// Validation failures must not open a transaction.
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unexpected database access: %v", err)
	}
}
