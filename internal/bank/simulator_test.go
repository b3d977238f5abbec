package bank

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/idempay/internal/models"
)

func TestSimulatorCharge(t *testing.T) {
	s := NewSimulator(0)
	ctx := context.Background()

	auth, err := s.Charge(ctx, "k1", 100, models.OutcomeSuccess)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.TransactionID)

	// Each successful charge yields a fresh transaction id.
	auth2, err := s.Charge(ctx, "k1", 100, models.OutcomeSuccess)
	require.NoError(t, err)
	assert.NotEqual(t, auth.TransactionID, auth2.TransactionID)
}

func TestSimulatorDeclines(t *testing.T) {
	s := NewSimulator(0)

	auth, err := s.Charge(context.Background(), "k1", 100, models.OutcomeBankFailure)
	assert.ErrorIs(t, err, ErrDeclined)
	assert.Nil(t, auth)
}

func TestSimulatorNetworkErrorStillAuthorizes(t *testing.T) {
	// The response loss is modeled downstream of the bank; the charge
	// itself succeeds.
	s := NewSimulator(0)

	auth, err := s.Charge(context.Background(), "k1", 100, models.OutcomeNetworkError)
	require.NoError(t, err)
	assert.NotEmpty(t, auth.TransactionID)
}

func TestSimulatorRespectsContext(t *testing.T) {
	s := NewSimulator(time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	_, err := s.Charge(ctx, "k1", 100, models.OutcomeSuccess)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
