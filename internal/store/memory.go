package store

import (
	"context"
	"sync"
	"time"

	"github.com/punchamoorthee/idempay/internal/models"
)

// MemoryStore is an in-memory PaymentStore for tests and single-process
// deployments. It offers the same atomic-create and conditional-update
// guarantees as the Postgres backend, serialized by a mutex.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]*models.PaymentRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*models.PaymentRecord)}
}

func (s *MemoryStore) TryCreate(ctx context.Context, rec *models.PaymentRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.records[rec.IdempotencyKey]; exists {
		return ErrKeyExists
	}

	cp := *rec
	now := time.Now()
	cp.CreatedAt = now
	cp.UpdatedAt = now
	s.records[rec.IdempotencyKey] = &cp
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (*models.PaymentRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]
	if !exists {
		return nil, ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (s *MemoryStore) MarkProcessing(ctx context.Context, key string) error {
	return s.transition(key, models.StateFailed, func(rec *models.PaymentRecord) {
		rec.State = models.StateProcessing
	})
}

func (s *MemoryStore) MarkFailed(ctx context.Context, key string) error {
	return s.transition(key, models.StateProcessing, func(rec *models.PaymentRecord) {
		rec.State = models.StateFailed
	})
}

func (s *MemoryStore) MarkCompleted(ctx context.Context, key, transactionID string, responseBody []byte) error {
	return s.transition(key, models.StateProcessing, func(rec *models.PaymentRecord) {
		rec.State = models.StateCompleted
		rec.TransactionID = transactionID
		rec.ResponseBody = append([]byte(nil), responseBody...)
	})
}

func (s *MemoryStore) transition(key string, expected models.PaymentState, apply func(*models.PaymentRecord)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.records[key]
	if !exists || rec.State != expected {
		return ErrStateConflict
	}
	apply(rec)
	rec.UpdatedAt = time.Now()
	return nil
}
