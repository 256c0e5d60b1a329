package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"

	"glasserp/internal/core/events"
	"glasserp/internal/core/id"
	"glasserp/pkg/logger"
)

// OutboxStatus represents the state of an outbox message.
type OutboxStatus string

const (
	OutboxStatusPending   OutboxStatus = "pending"
	OutboxStatusPublished OutboxStatus = "published"
	OutboxStatusFailed    OutboxStatus = "failed"
)

// MaxOutboxAttempts is the number of deliveries before a message is marked failed.
const MaxOutboxAttempts = 10

// OutboxMessage is an after-commit delivery that failed and waits for retry.
type OutboxMessage struct {
	ID          id.ID        `db:"id"`
	Observer    string       `db:"observer"`
	EventType   string       `db:"event_type"`
	Payload     []byte       `db:"payload"`
	Status      OutboxStatus `db:"status"`
	RetryCount  int          `db:"retry_count"`
	LastError   *string      `db:"last_error"`
	NextRetryAt *time.Time   `db:"next_retry_at"`
	CreatedAt   time.Time    `db:"created_at"`
	PublishedAt *time.Time   `db:"published_at"`
}

// Outbox parks failed observer deliveries. It implements events.FailureSink.
type Outbox struct {
	txManager *TxManager
}

var _ events.FailureSink = (*Outbox)(nil)

// NewOutbox creates a new outbox.
func NewOutbox(txManager *TxManager) *Outbox {
	return &Outbox{txManager: txManager}
}

// Park stores one failed delivery. It runs on the pool, never inside the
// request's transaction, which has already committed.
func (o *Outbox) Park(ctx context.Context, observer, eventName string, payload []byte, cause error) error {
	now := time.Now().UTC()
	next := now.Add(backoff(0))
	msg := cause.Error()
	_, err := o.txManager.Pool().Exec(ctx, `
		INSERT INTO sys_outbox (id, observer, event_type, payload, status, retry_count, last_error, next_retry_at, created_at)
		VALUES ($1, $2, $3, $4, $5, 0, $6, $7, $8)
	`, id.New(), observer, eventName, payload, OutboxStatusPending, msg, next, now)
	if err != nil {
		return fmt.Errorf("insert outbox message: %w", err)
	}
	return nil
}

// OutboxHandler redelivers one parked message.
type OutboxHandler func(ctx context.Context, msg *OutboxMessage) error

// OutboxRelay retries parked deliveries. Used by the background worker.
type OutboxRelay struct {
	txManager *TxManager
	batchSize int
	handler   OutboxHandler
}

// NewOutboxRelay creates a new outbox relay.
func NewOutboxRelay(txManager *TxManager, batchSize int, handler OutboxHandler) *OutboxRelay {
	return &OutboxRelay{
		txManager: txManager,
		batchSize: batchSize,
		handler:   handler,
	}
}

// ProcessBatch locks due messages, redelivers them and records the outcome.
// Returns the number of messages delivered.
func (r *OutboxRelay) ProcessBatch(ctx context.Context) (int, error) {
	processed := 0
	err := r.txManager.RunInTransaction(ctx, func(ctx context.Context) error {
		var messages []*OutboxMessage
		err := pgxscan.Select(ctx, r.txManager.GetQuerier(ctx), &messages, `
			SELECT id, observer, event_type, payload, status, retry_count,
			       last_error, next_retry_at, created_at, published_at
			FROM sys_outbox
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= NOW())
			ORDER BY created_at
			LIMIT $2
			FOR UPDATE SKIP LOCKED
		`, OutboxStatusPending, r.batchSize)
		if err != nil {
			return fmt.Errorf("fetch outbox messages: %w", err)
		}

		for _, msg := range messages {
			if err := r.processMessage(ctx, msg); err != nil {
				logger.Warn(ctx, "outbox redelivery failed",
					"observer", msg.Observer,
					"event", msg.EventType,
					"attempt", msg.RetryCount+1,
					"error", err,
				)
				continue
			}
			processed++
		}
		return nil
	})
	return processed, err
}

func (r *OutboxRelay) processMessage(ctx context.Context, msg *OutboxMessage) error {
	q := r.txManager.GetQuerier(ctx)

	if err := r.handler(ctx, msg); err != nil {
		status := OutboxStatusPending
		if msg.RetryCount+1 >= MaxOutboxAttempts {
			status = OutboxStatusFailed
		}
		_, updateErr := q.Exec(ctx, `
			UPDATE sys_outbox
			SET retry_count = retry_count + 1,
			    last_error = $1,
			    next_retry_at = $2,
			    status = $3
			WHERE id = $4
		`, err.Error(), time.Now().UTC().Add(backoff(msg.RetryCount+1)), status, msg.ID)
		if updateErr != nil {
			return fmt.Errorf("update failed message: %w", updateErr)
		}
		return err
	}

	_, err := q.Exec(ctx, `
		UPDATE sys_outbox
		SET status = $1, published_at = $2
		WHERE id = $3
	`, OutboxStatusPublished, time.Now().UTC(), msg.ID)
	return err
}

// PurgePublished removes delivered messages older than olderThan.
func (r *OutboxRelay) PurgePublished(ctx context.Context, olderThan time.Duration) (int64, error) {
	tag, err := r.txManager.Pool().Exec(ctx, `
		DELETE FROM sys_outbox WHERE status = $1 AND published_at < $2
	`, OutboxStatusPublished, time.Now().UTC().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("purge outbox: %w", err)
	}
	return tag.RowsAffected(), nil
}

// backoff is 30s doubled per attempt, capped at one hour.
func backoff(attempt int) time.Duration {
	d := 30 * time.Second
	for i := 0; i < attempt && d < time.Hour; i++ {
		d *= 2
	}
	if d > time.Hour {
		d = time.Hour
	}
	return d
}
