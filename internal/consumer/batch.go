package consumer

import (
	"context"
	"errors"
	"log"

	"github.com/nedlia/placement-api/internal/coordination/idempotency"
	"github.com/nedlia/placement-api/pkg/apperror"
)

// Event is one delivery in a batch. The event ID doubles as the
// idempotency key, so redeliveries of an already-applied event replay
// instead of re-executing.
type Event struct {
	ID        string
	Principal string
	Payload   []byte
}

// Handler applies a single event's side effect.
type Handler func(ctx context.Context, event Event) (*idempotency.Response, error)

// BatchResult reports which events the caller should redeliver.
type BatchResult struct {
	FailedIDs []string `json:"failed_ids"`
}

// Processor consumes event batches through the idempotency coordinator.
type Processor struct {
	coord  *idempotency.Coordinator
	handle Handler
}

// NewProcessor creates a batch processor around the given handler.
func NewProcessor(coord *idempotency.Coordinator, handle Handler) *Processor {
	return &Processor{coord: coord, handle: handle}
}

// ProcessBatch applies every event in order and returns the IDs that
// failed transiently. Permanent failures (malformed or rejected events)
// are logged and dropped: redelivering them can never succeed, and
// reporting them as failed would poison the batch forever. An event held
// by a concurrent reservation is reported failed so it is redelivered
// after the other worker finishes or its reservation expires.
func (p *Processor) ProcessBatch(ctx context.Context, events []Event) *BatchResult {
	result := &BatchResult{FailedIDs: []string{}}

	for _, event := range events {
		if err := p.processOne(ctx, event); err != nil {
			if errors.Is(err, apperror.ErrIdempotencyConflict) {
				result.FailedIDs = append(result.FailedIDs, event.ID)
				continue
			}
			if apperror.IsClientError(err) {
				log.Printf("consumer: dropping event %s: %v", event.ID, err)
				continue
			}
			result.FailedIDs = append(result.FailedIDs, event.ID)
		}
	}

	return result
}

func (p *Processor) processOne(ctx context.Context, event Event) (err error) {
	// One panicking event must not take down the rest of the batch.
	defer func() {
		if r := recover(); r != nil {
			log.Printf("consumer: panic processing event %s: %v", event.ID, r)
			err = apperror.ErrInternal
		}
	}()

	_, err = p.coord.Execute(ctx, event.Principal, event.ID, event.Payload, func(ctx context.Context) (*idempotency.Response, error) {
		return p.handle(ctx, event)
	})
	return err
}
