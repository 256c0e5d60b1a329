package postgres

import (
	"context"
	"fmt"
	"time"
)

// WebhookLog records processed gateway callbacks in sys_webhook_events.
// The (event_id, document_id) key makes a replayed callback a no-op.
type WebhookLog struct {
	txManager *TxManager
	kind      string
}

// NewWebhookLog creates a webhook log for one callback kind
// (payment, payout).
func NewWebhookLog(txManager *TxManager, kind string) *WebhookLog {
	return &WebhookLog{txManager: txManager, kind: kind}
}

// Record stores the callback and reports whether this is its first delivery.
// Call it inside the unit of work that applies the callback so a failed
// apply leaves no record behind.
func (w *WebhookLog) Record(ctx context.Context, eventID, documentID string) (bool, error) {
	tag, err := w.txManager.GetQuerier(ctx).Exec(ctx, `
		INSERT INTO sys_webhook_events (event_id, document_id, kind, received_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (event_id, document_id) DO NOTHING
	`, eventID, documentID, w.kind, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
