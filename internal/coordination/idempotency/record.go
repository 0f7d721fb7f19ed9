// Package idempotency implements the check/reserve/finalize protocol that
// guarantees at-most-once side effects for retried writes. Per-key records
// live in a shared atomic store; every mutation is a single compare-and-set
// so concurrent workers on different processes cannot race each other.
package idempotency

import "time"

// Status is the lifecycle state of an idempotency record.
type Status string

const (
	// StatusProcessing marks a reservation whose handler is still in flight.
	StatusProcessing Status = "processing"
	// StatusCompleted marks a finalized record carrying the cached response.
	StatusCompleted Status = "completed"
)

// Record is the per-(principal, key) entry in the idempotency store.
// Fingerprint is immutable once first set; a later request with the same key
// but a different fingerprint is a client error, never silently accepted.
type Record struct {
	Key         string `json:"key"`
	Principal   string `json:"principal"`
	Fingerprint string `json:"fingerprint"`
	Status      Status `json:"status"`

	// Owner is a reservation token held by the first writer. Finalize and
	// Release only apply when the caller still owns the reservation, so a
	// late writer whose reservation was reclaimed cannot clobber a newer one.
	Owner string `json:"owner,omitempty"`

	// Captured only when Status is StatusCompleted.
	ResponseStatus int    `json:"response_status,omitempty"`
	ResponseBody   string `json:"response_body,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// IsExpired checks if the record has expired
func (r *Record) IsExpired(now time.Time) bool {
	return now.After(r.ExpiresAt)
}
