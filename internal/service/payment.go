package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/punchamoorthee/idempay/internal/bank"
	"github.com/punchamoorthee/idempay/internal/events"
	"github.com/punchamoorthee/idempay/internal/models"
	"github.com/punchamoorthee/idempay/internal/store"
)

var (
	ErrFingerprintMismatch = errors.New("key reuse with different request data")
	ErrInFlight            = errors.New("payment is still processing")
	ErrConcurrentRequest   = errors.New("concurrent request detected")
	ErrRecordCorrupt       = errors.New("stored payment record is corrupt")
)

// ResultStatus classifies the outcome of a Submit call.
type ResultStatus string

const (
	// ResultCompleted is a fresh successful payment.
	ResultCompleted ResultStatus = "completed"
	// ResultReplayed is a duplicate of an already-completed payment;
	// Response carries the originally committed payload.
	ResultReplayed ResultStatus = "replayed"
	// ResultFailed is a downstream bank failure; the key may be retried.
	ResultFailed ResultStatus = "failed"
	// ResultLost means the payment committed but the response was lost in
	// transit. A retry with the same key replays the committed payload.
	ResultLost ResultStatus = "lost_response"
)

// PaymentResult is what Submit hands the transport layer. Response is set
// for ResultCompleted and ResultReplayed only.
type PaymentResult struct {
	Status   ResultStatus
	Response *models.PaymentResponse
}

// PaymentService coordinates the idempotency protocol: it owns every
// lifecycle transition of a payment record and guarantees the downstream
// effect runs at most once per key.
type PaymentService struct {
	store     store.PaymentStore
	gateway   bank.Gateway
	publisher events.Publisher
}

func NewPaymentService(s store.PaymentStore, g bank.Gateway, p events.Publisher) *PaymentService {
	return &PaymentService{store: s, gateway: g, publisher: p}
}

// Submit runs one payment attempt through the idempotency state machine.
//
// Protocol errors (fingerprint mismatch, in-flight duplicate, lost race)
// come back as sentinel errors; everything that reached the downstream
// effect comes back as a PaymentResult.
func (s *PaymentService) Submit(ctx context.Context, req models.PaymentRequest) (*PaymentResult, error) {
	key := req.IdempotencyKey
	fingerprint := Fingerprint(key, req.Amount)

	rec, err := s.store.Get(ctx, key)
	switch {
	case err == nil:
		// Fingerprint validation takes priority over all state branching.
		if rec.Fingerprint != "" && rec.Fingerprint != fingerprint {
			log.Printf("Fingerprint mismatch for key %q", key)
			return nil, ErrFingerprintMismatch
		}

		switch rec.State {
		case models.StateCompleted:
			return s.replay(rec)

		case models.StateProcessing:
			return nil, ErrInFlight

		case models.StateFailed:
			// Retry: reclaim the record. The update is conditional on the
			// FAILED state observed above; losing it means another retry won.
			if err := s.store.MarkProcessing(ctx, key); err != nil {
				if errors.Is(err, store.ErrStateConflict) {
					return nil, ErrConcurrentRequest
				}
				return nil, fmt.Errorf("reclaiming failed record: %w", err)
			}

		default:
			return nil, fmt.Errorf("%w: unknown state %q", ErrRecordCorrupt, rec.State)
		}

	case errors.Is(err, store.ErrNotFound):
		// First request for this key. The atomic create is the only
		// protection against two first-writers racing.
		newRec := &models.PaymentRecord{
			IdempotencyKey: key,
			Amount:         req.Amount,
			Fingerprint:    fingerprint,
			State:          models.StateProcessing,
		}
		if err := s.store.TryCreate(ctx, newRec); err != nil {
			if errors.Is(err, store.ErrKeyExists) {
				return nil, ErrConcurrentRequest
			}
			return nil, fmt.Errorf("creating payment record: %w", err)
		}

	default:
		return nil, fmt.Errorf("looking up payment record: %w", err)
	}

	return s.process(ctx, req)
}

// process executes the downstream effect exactly once for this call and
// commits the outcome. The record is held in PROCESSING for the duration.
func (s *PaymentService) process(ctx context.Context, req models.PaymentRequest) (*PaymentResult, error) {
	key := req.IdempotencyKey

	auth, err := s.gateway.Charge(ctx, key, req.Amount, req.SimulatedOutcome)
	if err != nil {
		// Genuine downstream failure or internal error: only the FAILED
		// state is committed, leaving the key retryable.
		if markErr := s.store.MarkFailed(ctx, key); markErr != nil {
			log.Printf("Failed to mark key %q as FAILED: %v", key, markErr)
		}
		s.emit(key, "", req.Amount, models.StateFailed)

		if errors.Is(err, bank.ErrDeclined) {
			log.Printf("Bank declined payment for key %q", key)
			return &PaymentResult{Status: ResultFailed}, nil
		}
		return nil, fmt.Errorf("charging payment for key %q: %w", key, err)
	}

	resp := &models.PaymentResponse{
		Message:        "Payment successful",
		TransactionID:  auth.TransactionID,
		Amount:         req.Amount,
		State:          models.StateCompleted,
		IdempotencyKey: key,
	}
	body, err := json.Marshal(resp)
	if err != nil {
		return nil, fmt.Errorf("encoding response payload: %w", err)
	}

	// Commit COMPLETED before deciding what the caller sees. From here on,
	// storage and caller-visible outcome can diverge only in the lost
	// response case.
	if err := s.store.MarkCompleted(ctx, key, auth.TransactionID, body); err != nil {
		// Release the key for a later retry rather than leaving it wedged
		// in PROCESSING. A conflict here means the record moved under us,
		// in which case it is not ours to roll back.
		if !errors.Is(err, store.ErrStateConflict) {
			if markErr := s.store.MarkFailed(ctx, key); markErr != nil {
				log.Printf("Failed to release key %q after commit failure: %v", key, markErr)
			}
		}
		return nil, fmt.Errorf("committing completion for key %q: %w", key, err)
	}
	s.emit(key, auth.TransactionID, req.Amount, models.StateCompleted)

	if req.SimulatedOutcome == models.OutcomeNetworkError {
		log.Printf("Simulating lost response for key %q: payment committed, response dropped", key)
		return &PaymentResult{Status: ResultLost}, nil
	}

	log.Printf("Payment completed for key %q, transaction %s", key, auth.TransactionID)
	return &PaymentResult{Status: ResultCompleted, Response: resp}, nil
}

// replay reproduces the committed payload for a duplicate caller, altering
// only the message to flag the replay. The record is not mutated.
func (s *PaymentService) replay(rec *models.PaymentRecord) (*PaymentResult, error) {
	if len(rec.ResponseBody) == 0 {
		return nil, fmt.Errorf("%w: completed record for key %q has no response body", ErrRecordCorrupt, rec.IdempotencyKey)
	}

	var resp models.PaymentResponse
	if err := json.Unmarshal(rec.ResponseBody, &resp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRecordCorrupt, err)
	}
	resp.Message = "Transaction already performed"

	log.Printf("Replaying completed payment for key %q, transaction %s", rec.IdempotencyKey, rec.TransactionID)
	return &PaymentResult{Status: ResultReplayed, Response: &resp}, nil
}

// GetPayment returns the current record for a key.
func (s *PaymentService) GetPayment(ctx context.Context, key string) (*models.PaymentRecord, error) {
	return s.store.Get(ctx, key)
}

func (s *PaymentService) emit(key, transactionID string, amount int64, state models.PaymentState) {
	event := events.Event{
		IdempotencyKey: key,
		TransactionID:  transactionID,
		Amount:         amount,
		State:          state,
		OccurredAt:     time.Now(),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("Failed to publish payment event for key %q: %v", key, err)
	}
}
