package listener

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/ElizavetaP/bankapp/internal/cash/repository"
	"github.com/ElizavetaP/bankapp/shared/models"
)

// ---- fake operation store ----

type terminalCall struct {
	sagaID  string
	status  models.SagaStatus
	message string
}

type fakeOperationStore struct {
	operations map[string]*models.CashOperation
	calls      []terminalCall
	failWith   error
}

func newFakeStore(ops ...*models.CashOperation) *fakeOperationStore {
	store := &fakeOperationStore{operations: make(map[string]*models.CashOperation)}
	for _, op := range ops {
		store.operations[op.SagaID] = op
	}
	return store
}

func (f *fakeOperationStore) MarkTerminal(ctx context.Context, sagaID string, status models.SagaStatus, errorMessage string) (bool, error) {
	if f.failWith != nil {
		return false, f.failWith
	}
	f.calls = append(f.calls, terminalCall{sagaID, status, errorMessage})
	op, ok := f.operations[sagaID]
	if !ok || op.Status != models.SagaPending {
		return false, nil
	}
	op.Status = status
	op.ErrorMessage = errorMessage
	return true, nil
}

func (f *fakeOperationStore) GetBySagaID(ctx context.Context, sagaID string) (*models.CashOperation, error) {
	op, ok := f.operations[sagaID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return op, nil
}

func pendingOp(sagaID string) *models.CashOperation {
	return &models.CashOperation{SagaID: sagaID, UserLogin: "alice", Status: models.SagaPending}
}

// ---- tests ----

func TestHandleSuccessCompletesOperation(t *testing.T) {
	store := newFakeStore(pendingOp("saga-1"))
	l := &ResponseListener{ops: store}

	payload := []byte(`{"sagaId":"saga-1","operationId":1,"login":"alice","currency":"USD","newBalance":"100.00"}`)
	if err := l.HandleSuccess(context.Background(), payload); err != nil {
		t.Fatalf("handle success failed: %v", err)
	}
	if got := store.operations["saga-1"].Status; got != models.SagaCompleted {
		t.Errorf("expected COMPLETED, got %s", got)
	}
}

func TestHandleFailureFailsOperationWithMessage(t *testing.T) {
	store := newFakeStore(pendingOp("saga-2"))
	l := &ResponseListener{ops: store}

	payload := []byte(`{"sagaId":"saga-2","operationId":2,"login":"bob","errorMessage":"insufficient funds","errorCode":"INSUFFICIENT_FUNDS"}`)
	if err := l.HandleFailure(context.Background(), payload); err != nil {
		t.Fatalf("handle failure failed: %v", err)
	}
	op := store.operations["saga-2"]
	if op.Status != models.SagaFailed {
		t.Errorf("expected FAILED, got %s", op.Status)
	}
	if op.ErrorMessage != "insufficient funds" {
		t.Errorf("expected error message to be stored, got %q", op.ErrorMessage)
	}
}

func TestReplayedTerminalEventIsNoOp(t *testing.T) {
	store := newFakeStore(pendingOp("saga-3"))
	l := &ResponseListener{ops: store}

	payload := []byte(`{"sagaId":"saga-3","operationId":3,"login":"alice","currency":"USD","newBalance":"10.00"}`)
	if err := l.HandleSuccess(context.Background(), payload); err != nil {
		t.Fatalf("first delivery failed: %v", err)
	}
	if err := l.HandleSuccess(context.Background(), payload); err != nil {
		t.Fatalf("replay must not error: %v", err)
	}
	if got := store.operations["saga-3"].Status; got != models.SagaCompleted {
		t.Errorf("replay changed status to %s", got)
	}

	// A late conflicting failure must not overwrite the terminal status.
	failed := []byte(`{"sagaId":"saga-3","operationId":3,"login":"alice","errorMessage":"x","errorCode":"UNKNOWN_ERROR"}`)
	if err := l.HandleFailure(context.Background(), failed); err != nil {
		t.Fatalf("late failure must be dropped: %v", err)
	}
	if got := store.operations["saga-3"].Status; got != models.SagaCompleted {
		t.Errorf("terminal status was overwritten: %s", got)
	}
}

func TestUnknownSagaIsLoggedAndDropped(t *testing.T) {
	store := newFakeStore()
	l := &ResponseListener{ops: store}

	payload := []byte(`{"sagaId":"no-such-saga","operationId":9,"login":"alice","currency":"USD","newBalance":"1.00"}`)
	if err := l.HandleSuccess(context.Background(), payload); err != nil {
		t.Errorf("correlation fault must not error (would block redelivery forever): %v", err)
	}
}

func TestUndecodablePayloadIsDropped(t *testing.T) {
	l := &ResponseListener{ops: newFakeStore()}
	if err := l.HandleSuccess(context.Background(), []byte("not json")); err != nil {
		t.Errorf("expected undecodable payload to be dropped: %v", err)
	}
	if err := l.HandleFailure(context.Background(), []byte("{")); err != nil {
		t.Errorf("expected undecodable payload to be dropped: %v", err)
	}
}

func TestInfrastructureErrorIsReturnedForRedelivery(t *testing.T) {
	store := newFakeStore(pendingOp("saga-4"))
	store.failWith = fmt.Errorf("connection reset")
	l := &ResponseListener{ops: store}

	payload := []byte(`{"sagaId":"saga-4","operationId":4,"login":"alice","currency":"USD","newBalance":"5.00"}`)
	err := l.HandleSuccess(context.Background(), payload)
	if err == nil {
		t.Fatal("expected the error to propagate so the bus redelivers")
	}
	if !errors.Is(err, store.failWith) {
		t.Errorf("unexpected error: %v", err)
	}
}
