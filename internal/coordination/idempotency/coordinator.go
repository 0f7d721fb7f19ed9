package idempotency

import (
	"context"
	"log"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/nedlia/placement-api/pkg/apperror"
)

// Idempotency keys are client-supplied opaque strings, scoped per principal.
var keyPattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{16,128}$`)

// Response is what a handler produced for a coordinated request.
type Response struct {
	Status int
	Body   string
}

// Result is what the coordinator returns: either the handler's fresh
// response or a replay of the finalized record.
type Result struct {
	Status   int
	Body     string
	Replayed bool
}

// Handler is the business operation guarded by the coordinator. It runs at
// most once per (principal, key, fingerprint) triple that ultimately
// succeeds.
type Handler func(ctx context.Context) (*Response, error)

// Config holds the coordinator's TTL policy.
type Config struct {
	// RecordTTL governs how long a completed record (and its cached
	// response) stays replayable. Default 24h.
	RecordTTL time.Duration

	// ProcessingTTL is the operator-defined staleness window after which a
	// stuck processing reservation is reclaimable. It must comfortably
	// exceed the slowest expected handler run.
	ProcessingTTL time.Duration
}

// Coordinator orchestrates the check/reserve/finalize protocol around a
// handler invocation. Store unavailability fails closed: skipping the
// reservation would void the at-most-once guarantee.
type Coordinator struct {
	store Store
	cfg   Config

	now func() time.Time // for testing
}

// NewCoordinator creates an idempotency coordinator over the given store.
func NewCoordinator(store Store, cfg Config) *Coordinator {
	if cfg.RecordTTL <= 0 {
		cfg.RecordTTL = 24 * time.Hour
	}
	if cfg.ProcessingTTL <= 0 {
		cfg.ProcessingTTL = 5 * time.Minute
	}
	return &Coordinator{store: store, cfg: cfg, now: time.Now}
}

// ValidateKey checks the client-supplied key against the accepted syntax.
func ValidateKey(key string) error {
	if key == "" {
		return apperror.ErrIdempotencyKeyMissing
	}
	if !keyPattern.MatchString(key) {
		return apperror.ErrIdempotencyKeyInvalid
	}
	return nil
}

// Execute runs handler under the idempotency protocol for (principal, key).
//
// Exactly one concurrent caller per key wins the reservation and invokes the
// handler. Every other caller observes either the in-flight reservation
// (idempotency-conflict) or the finalized record: a replay when the payload
// fingerprint matches, idempotency-key-reused when it does not.
func (c *Coordinator) Execute(ctx context.Context, principal, key string, payload []byte, handler Handler) (*Result, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	fingerprint := Fingerprint(payload)
	owner := uuid.New().String()
	now := c.now().UTC()

	rec := &Record{
		Key:         key,
		Principal:   principal,
		Fingerprint: fingerprint,
		Status:      StatusProcessing,
		Owner:       owner,
		CreatedAt:   now,
		ExpiresAt:   now.Add(c.cfg.ProcessingTTL),
	}

	acquired, existing, err := c.store.Reserve(ctx, rec, c.cfg.ProcessingTTL)
	if err != nil {
		return nil, apperror.ErrStoreUnavailable.WithDetail("idempotency reservation failed")
	}

	if !acquired {
		return c.resolveExisting(existing, fingerprint)
	}

	resp, err := c.runHandler(ctx, principal, key, owner, handler)
	if err != nil {
		// Handler failures are never finalized; the reservation is released
		// so a legitimate retry can re-execute.
		c.release(ctx, principal, key, owner)
		return nil, err
	}

	if resp.Status >= 400 {
		// Error responses are not cached either, for the same reason.
		c.release(ctx, principal, key, owner)
		return &Result{Status: resp.Status, Body: resp.Body}, nil
	}

	finalized, err := c.store.Finalize(ctx, principal, key, owner, resp.Status, resp.Body, c.cfg.RecordTTL)
	if err != nil {
		// The side effect already happened, so the response is returned.
		// The reservation is left in place: retries see a conflict until the
		// processing TTL reclaims it, preserving at-most-once.
		log.Printf("idempotency: finalize failed for principal=%s key=%s: %v", principal, key, err)
		return &Result{Status: resp.Status, Body: resp.Body}, nil
	}
	if !finalized {
		// Reservation was reclaimed while the handler ran; the processing
		// TTL is shorter than this handler's runtime.
		log.Printf("idempotency: lost reservation for principal=%s key=%s before finalize", principal, key)
	}

	return &Result{Status: resp.Status, Body: resp.Body}, nil
}

// runHandler invokes the handler, releasing the reservation before
// re-panicking if it panics. A panicked handler is a handler failure: the
// key must be retryable immediately, not stuck behind a dead processing
// reservation until the TTL reclaims it.
func (c *Coordinator) runHandler(ctx context.Context, principal, key, owner string, handler Handler) (resp *Response, err error) {
	defer func() {
		if r := recover(); r != nil {
			c.release(ctx, principal, key, owner)
			panic(r)
		}
	}()
	return handler(ctx)
}

func (c *Coordinator) resolveExisting(existing *Record, fingerprint string) (*Result, error) {
	if existing.Status == StatusProcessing {
		return nil, apperror.ErrIdempotencyConflict
	}

	if existing.Fingerprint != fingerprint {
		return nil, apperror.ErrIdempotencyKeyReused
	}

	return &Result{
		Status:   existing.ResponseStatus,
		Body:     existing.ResponseBody,
		Replayed: true,
	}, nil
}

func (c *Coordinator) release(ctx context.Context, principal, key, owner string) {
	if err := c.store.Release(ctx, principal, key, owner); err != nil {
		log.Printf("idempotency: release failed for principal=%s key=%s: %v", principal, key, err)
	}
}
