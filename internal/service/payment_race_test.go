package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/idempay/internal/events"
	"github.com/punchamoorthee/idempay/internal/models"
	"github.com/punchamoorthee/idempay/internal/store"
)

// scriptedStore returns canned records and transition results, used to force
// interleavings the in-memory store resolves too quickly to observe.
type scriptedStore struct {
	store.PaymentStore
	getRecord          *models.PaymentRecord
	markProcessingErr  error
	markProcessingHits int
}

func (s *scriptedStore) Get(ctx context.Context, key string) (*models.PaymentRecord, error) {
	if s.getRecord != nil {
		cp := *s.getRecord
		return &cp, nil
	}
	return s.PaymentStore.Get(ctx, key)
}

func (s *scriptedStore) MarkProcessing(ctx context.Context, key string) error {
	s.markProcessingHits++
	return s.markProcessingErr
}

func TestRetryLosesFailedToProcessingRace(t *testing.T) {
	// Another retry flips the record FAILED -> PROCESSING between this
	// request's read and its conditional update. The loser must back off
	// instead of charging a second time.
	gw := &countingGateway{}
	st := &scriptedStore{
		PaymentStore: store.NewMemoryStore(),
		getRecord: &models.PaymentRecord{
			IdempotencyKey: "k-race",
			Amount:         100,
			Fingerprint:    Fingerprint("k-race", 100),
			State:          models.StateFailed,
		},
		markProcessingErr: store.ErrStateConflict,
	}
	svc := NewPaymentService(st, gw, events.NoopPublisher{})

	_, err := svc.Submit(context.Background(), models.PaymentRequest{
		IdempotencyKey: "k-race", Amount: 100, SimulatedOutcome: models.OutcomeSuccess,
	})
	assert.ErrorIs(t, err, ErrConcurrentRequest)
	assert.Equal(t, 1, st.markProcessingHits)
	assert.EqualValues(t, 0, gw.count())
}

func TestReplayOfCorruptCompletedRecord(t *testing.T) {
	tests := []struct {
		name string
		body json.RawMessage
	}{
		{name: "missing_body", body: nil},
		{name: "invalid_json", body: json.RawMessage(`{"message":`)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			gw := &countingGateway{}
			st := &scriptedStore{
				PaymentStore: store.NewMemoryStore(),
				getRecord: &models.PaymentRecord{
					IdempotencyKey: "k-corrupt",
					Amount:         100,
					Fingerprint:    Fingerprint("k-corrupt", 100),
					State:          models.StateCompleted,
					TransactionID:  "tx-1",
					ResponseBody:   tc.body,
				},
			}
			svc := NewPaymentService(st, gw, events.NoopPublisher{})

			_, err := svc.Submit(context.Background(), models.PaymentRequest{
				IdempotencyKey: "k-corrupt", Amount: 100, SimulatedOutcome: models.OutcomeSuccess,
			})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrRecordCorrupt)
			assert.EqualValues(t, 0, gw.count())
		})
	}
}
