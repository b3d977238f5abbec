package models

import (
	"encoding/json"
	"time"
)

// PaymentState is the lifecycle state of a payment attempt.
type PaymentState string

const (
	StateProcessing PaymentState = "PROCESSING"
	StateFailed     PaymentState = "FAILED"
	StateCompleted  PaymentState = "COMPLETED"
)

// SimulatedOutcome drives the downstream bank simulation for a single call.
// It is deliberately excluded from the request fingerprint so a failed
// attempt can be retried with a different outcome.
type SimulatedOutcome string

const (
	OutcomeSuccess      SimulatedOutcome = "SUCCESS"
	OutcomeBankFailure  SimulatedOutcome = "BANK_FAILURE"
	OutcomeNetworkError SimulatedOutcome = "NETWORK_ERROR"
)

func (o SimulatedOutcome) Valid() bool {
	switch o {
	case OutcomeSuccess, OutcomeBankFailure, OutcomeNetworkError:
		return true
	}
	return false
}

// PaymentRequest is the payload from the client.
type PaymentRequest struct {
	IdempotencyKey   string           `json:"idempotency_key"`
	Amount           int64            `json:"amount"`
	SimulatedOutcome SimulatedOutcome `json:"simulated_outcome,omitempty"`
}

// PaymentResponse is the canonical success payload. It is persisted verbatim
// on completion and replayed to duplicate callers.
type PaymentResponse struct {
	Message        string       `json:"message"`
	TransactionID  string       `json:"transaction_id"`
	Amount         int64        `json:"amount"`
	State          PaymentState `json:"state"`
	IdempotencyKey string       `json:"idempotency_key"`
}

// PaymentRecord is the durable state of one idempotency key.
// TransactionID and ResponseBody are set only in COMPLETED state.
type PaymentRecord struct {
	IdempotencyKey string          `json:"idempotency_key"`
	Amount         int64           `json:"amount"`
	Fingerprint    string          `json:"request_fingerprint"`
	State          PaymentState    `json:"state"`
	TransactionID  string          `json:"transaction_id,omitempty"`
	ResponseBody   json.RawMessage `json:"response_body,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
