// Package events is the in-process event bus. Services stage domain events
// while mutating documents; the bus hands them to observers (ledger, audit,
// notifications, metrics) either inside the unit of work or after commit.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"glasserp/internal/core/tx"
	"glasserp/pkg/logger"
)

// Event is a fact that already happened to a document.
type Event interface {
	EventName() string
}

// Handler observes one event.
type Handler func(ctx context.Context, e Event) error

// Stage selects when an observer runs.
type Stage int

const (
	// InTx observers run before commit; an error aborts the whole unit of work.
	InTx Stage = iota
	// AfterCommit observers are best-effort; failures are parked for retry.
	AfterCommit
)

// FailureSink parks after-commit deliveries that failed so a worker can retry them.
type FailureSink interface {
	Park(ctx context.Context, observer, eventName string, payload []byte, cause error) error
}

type subscription struct {
	observer string
	handler  Handler
}

// Bus dispatches staged events to observers.
type Bus struct {
	mu       sync.RWMutex
	inTx     map[string][]subscription
	after    map[string][]subscription
	failures FailureSink
}

// NewBus creates an empty bus. sink may be nil (failures are only logged).
func NewBus(sink FailureSink) *Bus {
	return &Bus{
		inTx:     make(map[string][]subscription),
		after:    make(map[string][]subscription),
		failures: sink,
	}
}

// SetFailureSink replaces the sink used for failed after-commit deliveries.
func (b *Bus) SetFailureSink(sink FailureSink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failures = sink
}

// Subscribe registers handler under observer for the named events.
func (b *Bus) Subscribe(stage Stage, observer string, handler Handler, names ...string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	target := b.inTx
	if stage == AfterCommit {
		target = b.after
	}
	for _, name := range names {
		target[name] = append(target[name], subscription{observer: observer, handler: handler})
	}
}

// UnitOfWork runs fn in a transaction. Events staged by fn are delivered to
// InTx observers before commit and to AfterCommit observers once committed.
func (b *Bus) UnitOfWork(ctx context.Context, txm tx.Manager, fn func(ctx context.Context, out *Staged) error) error {
	var staged Staged
	err := txm.RunInTransaction(ctx, func(ctx context.Context) error {
		staged = staged[:0]
		if err := fn(ctx, &staged); err != nil {
			return err
		}
		return b.DispatchInTx(ctx, staged)
	})
	if err != nil {
		return err
	}
	b.DispatchAfterCommit(ctx, staged)
	return nil
}

// DispatchInTx delivers events to InTx observers and stops at the first error.
func (b *Bus) DispatchInTx(ctx context.Context, staged []Event) error {
	for _, e := range staged {
		for _, sub := range b.subscribers(b.inTx, e.EventName()) {
			if err := sub.handler(ctx, e); err != nil {
				return fmt.Errorf("%s handling %s: %w", sub.observer, e.EventName(), err)
			}
		}
	}
	return nil
}

// DispatchAfterCommit delivers events to AfterCommit observers. Failures are
// logged and parked in the failure sink; they never reach the caller.
func (b *Bus) DispatchAfterCommit(ctx context.Context, staged []Event) {
	for _, e := range staged {
		for _, sub := range b.subscribers(b.after, e.EventName()) {
			if err := sub.handler(ctx, e); err != nil {
				b.park(ctx, sub.observer, e, err)
			}
		}
	}
}

// Redeliver decodes a parked payload and hands it to the named after-commit observer only.
func (b *Bus) Redeliver(ctx context.Context, observer, eventName string, payload []byte) error {
	e, err := Decode(eventName, payload)
	if err != nil {
		return err
	}
	for _, sub := range b.subscribers(b.after, eventName) {
		if sub.observer == observer {
			return sub.handler(ctx, e)
		}
	}
	return fmt.Errorf("no observer %q for %s", observer, eventName)
}

func (b *Bus) subscribers(m map[string][]subscription, name string) []subscription {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return m[name]
}

func (b *Bus) park(ctx context.Context, observer string, e Event, cause error) {
	logger.Warn(ctx, "event observer failed",
		"observer", observer,
		"event", e.EventName(),
		"error", cause,
	)

	b.mu.RLock()
	sink := b.failures
	b.mu.RUnlock()
	if sink == nil {
		return
	}

	payload, err := json.Marshal(e)
	if err != nil {
		logger.Error(ctx, "marshal parked event", "event", e.EventName(), "error", err)
		return
	}
	if err := sink.Park(ctx, observer, e.EventName(), payload, cause); err != nil {
		logger.Error(ctx, "park event", "observer", observer, "event", e.EventName(), "error", err)
	}
}

// Staged collects events raised inside a unit of work.
type Staged []Event

// Add stages events.
func (s *Staged) Add(e ...Event) {
	*s = append(*s, e...)
}

// Audit stages an audit record for a mutating action.
func (s *Staged) Audit(action, module, recordID string, oldData, newData any) {
	s.Add(Audited{
		Action:   action,
		Module:   module,
		RecordID: recordID,
		OldData:  oldData,
		NewData:  newData,
	})
}
