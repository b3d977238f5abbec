package bank

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/punchamoorthee/idempay/internal/models"
)

// ErrDeclined is the downstream failure the caller may retry with the
// same idempotency key.
var ErrDeclined = errors.New("bank declined the payment")

// Authorization is the result of a successful downstream charge.
type Authorization struct {
	TransactionID string
}

// Gateway is the downstream payment processor. Exactly one Charge call is
// made per coordinator execution; the coordinator guarantees at most one
// execution per idempotency key.
type Gateway interface {
	Charge(ctx context.Context, key string, amount int64, outcome models.SimulatedOutcome) (*Authorization, error)
}

// Simulator is a scripted Gateway. The delay models the latency of a real
// bank call and is spent while the record is held in PROCESSING state.
//
// A NETWORK_ERROR outcome still succeeds here: the loss happens to the
// response after the effect, and is modeled by the coordinator.
type Simulator struct {
	Delay time.Duration
}

func NewSimulator(delay time.Duration) *Simulator {
	return &Simulator{Delay: delay}
}

func (s *Simulator) Charge(ctx context.Context, key string, amount int64, outcome models.SimulatedOutcome) (*Authorization, error) {
	if s.Delay > 0 {
		select {
		case <-time.After(s.Delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if outcome == models.OutcomeBankFailure {
		return nil, ErrDeclined
	}

	return &Authorization{TransactionID: uuid.NewString()}, nil
}
