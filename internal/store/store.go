package store

import (
	"context"
	"errors"

	"github.com/punchamoorthee/idempay/internal/models"
)

var (
	// ErrKeyExists is returned by TryCreate when a record for the key
	// already exists. Callers treat it as losing the first-writer race.
	ErrKeyExists = errors.New("idempotency key already exists")

	// ErrNotFound is returned by Get when no record exists for the key.
	ErrNotFound = errors.New("payment record not found")

	// ErrStateConflict is returned by the conditional updates when the
	// record is no longer in the expected prior state.
	ErrStateConflict = errors.New("payment record state changed concurrently")
)

// PaymentStore is the durable record store for payment attempts. It is the
// only shared mutable resource in the system; TryCreate and the conditional
// Mark* updates are the sole serialization points between concurrent
// requests on the same key.
//
// Implementations must be safe for concurrent use.
type PaymentStore interface {
	// TryCreate atomically inserts a new record, failing with ErrKeyExists
	// if one already exists for the key. This must be a single atomic
	// operation at the storage layer, never a check-then-insert pair.
	TryCreate(ctx context.Context, rec *models.PaymentRecord) error

	// Get returns the record for the key, or ErrNotFound.
	Get(ctx context.Context, key string) (*models.PaymentRecord, error)

	// MarkProcessing transitions FAILED -> PROCESSING for a retry.
	// Returns ErrStateConflict if the record is not currently FAILED.
	MarkProcessing(ctx context.Context, key string) error

	// MarkFailed transitions PROCESSING -> FAILED.
	// Returns ErrStateConflict if the record is not currently PROCESSING.
	MarkFailed(ctx context.Context, key string) error

	// MarkCompleted transitions PROCESSING -> COMPLETED, persisting the
	// transaction id and the exact response payload to replay later.
	// Returns ErrStateConflict if the record is not currently PROCESSING.
	MarkCompleted(ctx context.Context, key, transactionID string, responseBody []byte) error
}
