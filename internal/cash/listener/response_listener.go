// Package listener consumes the saga response topics and moves cash
// operations to their terminal status.
package listener

import (
	"context"
	"encoding/json"
	"errors"
	"log"

	"github.com/ElizavetaP/bankapp/internal/cash/repository"
	"github.com/ElizavetaP/bankapp/shared/models"
	"github.com/ElizavetaP/bankapp/shared/saga"
)

// operationStore is the slice of the operation repository the listener needs.
type operationStore interface {
	MarkTerminal(ctx context.Context, sagaID string, status models.SagaStatus, errorMessage string) (bool, error)
	GetBySagaID(ctx context.Context, sagaID string) (*models.CashOperation, error)
}

// ResponseListener handles success and failure responses from
// accounts-service. Both handlers are idempotent: a redelivered terminal
// event leaves the operation unchanged.
type ResponseListener struct {
	ops operationStore
}

func NewResponseListener(ops *repository.OperationRepository) *ResponseListener {
	return &ResponseListener{ops: ops}
}

// HandleSuccess processes a balance-updated event: PENDING -> COMPLETED.
func (l *ResponseListener) HandleSuccess(ctx context.Context, payload []byte) error {
	var event saga.BalanceUpdatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		// A payload that cannot be decoded will never decode; drop it.
		log.Printf("Dropping undecodable success response: %v", err)
		return nil
	}
	log.Printf("Received success saga response: sagaId=%s, newBalance=%s",
		event.SagaID, event.NewBalance)
	return l.finish(ctx, event.SagaID, models.SagaCompleted, "")
}

// HandleFailure processes a balance-update-failed event: PENDING -> FAILED.
func (l *ResponseListener) HandleFailure(ctx context.Context, payload []byte) error {
	var event saga.BalanceUpdateFailedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("Dropping undecodable failure response: %v", err)
		return nil
	}
	log.Printf("Received failed saga response: sagaId=%s, errorCode=%s",
		event.SagaID, event.ErrorCode)
	return l.finish(ctx, event.SagaID, models.SagaFailed, event.ErrorMessage)
}

func (l *ResponseListener) finish(ctx context.Context, sagaID string, status models.SagaStatus, errorMessage string) error {
	updated, err := l.ops.MarkTerminal(ctx, sagaID, status, errorMessage)
	if err != nil {
		// Infrastructure fault: leave the message unacknowledged so the bus
		// redelivers it.
		return err
	}
	if updated {
		log.Printf("Operation status updated: sagaId=%s, status=%s", sagaID, status)
		return nil
	}

	// Nothing changed: either a replayed terminal response or a response
	// for a saga this service never started.
	op, err := l.ops.GetBySagaID(ctx, sagaID)
	if errors.Is(err, repository.ErrNotFound) {
		log.Printf("Correlation fault: response for unknown sagaId=%s, dropping", sagaID)
		return nil
	}
	if err != nil {
		return err
	}
	log.Printf("Operation %s already %s, ignoring duplicate response", sagaID, op.Status)
	return nil
}
