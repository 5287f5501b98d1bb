// Package listener consumes balance-update requests from cash-service and
// hands them to the saga executor.
package listener

import (
	"context"
	"encoding/json"
	"log"

	"github.com/ElizavetaP/bankapp/internal/accounts/service"
	"github.com/ElizavetaP/bankapp/shared/saga"
)

type balanceProcessor interface {
	ProcessBalanceUpdate(ctx context.Context, event saga.BalanceUpdateRequestedEvent) error
}

// SagaListener decodes balance-update-requested events. Undecodable payloads
// are logged and dropped; processing errors are returned so the bus
// redelivers the message.
type SagaListener struct {
	processor balanceProcessor
}

func NewSagaListener(processor *service.BalanceUpdateService) *SagaListener {
	return &SagaListener{processor: processor}
}

func (l *SagaListener) HandleBalanceUpdateRequest(ctx context.Context, payload []byte) error {
	var event saga.BalanceUpdateRequestedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		log.Printf("Dropping undecodable saga request: %v", err)
		return nil
	}
	log.Printf("Received saga request: sagaId=%s, login=%s", event.SagaID, event.Login)
	return l.processor.ProcessBalanceUpdate(ctx, event)
}
