package idempotency

import (
	"context"
	"time"
)

// Store holds per-key idempotency records with TTL-based expiry. Every
// method is a single atomic operation against the backing store; callers
// never read-then-write.
type Store interface {
	// Reserve atomically reads-or-creates the record for (principal, key).
	// If no live record exists, rec is written with the processing TTL and
	// acquired is true. Otherwise the existing record is returned and
	// acquired is false; rec is not written.
	Reserve(ctx context.Context, rec *Record, processingTTL time.Duration) (acquired bool, existing *Record, err error)

	// Finalize transitions the record to completed with the handler's
	// response, extending its expiry to recordTTL. It applies only while the
	// record is still processing and owned by the given reservation token;
	// otherwise it reports false and changes nothing.
	Finalize(ctx context.Context, principal, key, owner string, responseStatus int, responseBody string, recordTTL time.Duration) (bool, error)

	// Release deletes the reservation so a legitimate retry can re-execute.
	// It applies only while the record is owned by the given token.
	Release(ctx context.Context, principal, key, owner string) error
}
