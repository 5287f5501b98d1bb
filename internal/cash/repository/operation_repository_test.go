package repository

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/shopspring/decimal"

	"github.com/ElizavetaP/bankapp/shared/models"
)

func newRepo(t *testing.T) (*OperationRepository, *sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewOperationRepository(db), db, mock
}

func TestCreateScansGeneratedID(t *testing.T) {
	repo, db, mock := newRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery("INSERT INTO cash_operations").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
	mock.ExpectCommit()

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	op := &models.CashOperation{
		UserLogin:     "alice",
		Currency:      "USD",
		Amount:        decimal.RequireFromString("10.00"),
		OperationType: models.OperationDeposit,
		SagaID:        "saga-1",
		Status:        models.SagaPending,
		CreatedAt:     time.Now(),
		UpdatedAt:     time.Now(),
	}
	if err := repo.Create(tx, op); err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if op.ID != 42 {
		t.Errorf("expected id 42 written back, got %d", op.ID)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit failed: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkTerminalUpdatesPendingRow(t *testing.T) {
	repo, _, mock := newRepo(t)

	mock.ExpectExec("UPDATE cash_operations").
		WithArgs("saga-1", "COMPLETED", "").
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := repo.MarkTerminal(context.Background(), "saga-1", models.SagaCompleted, "")
	if err != nil {
		t.Fatalf("mark terminal failed: %v", err)
	}
	if !updated {
		t.Error("expected the pending row to be updated")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestMarkTerminalReportsNoChangeForTerminalRow(t *testing.T) {
	repo, _, mock := newRepo(t)

	mock.ExpectExec("UPDATE cash_operations").
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := repo.MarkTerminal(context.Background(), "saga-1", models.SagaFailed, "x")
	if err != nil {
		t.Fatalf("mark terminal failed: %v", err)
	}
	if updated {
		t.Error("expected no change when the status guard does not match")
	}
}

func TestGetBySagaIDNotFound(t *testing.T) {
	repo, _, mock := newRepo(t)

	mock.ExpectQuery("FROM cash_operations").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetBySagaID(context.Background(), "missing")
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}
