package domain

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// Outcome classifies one callback delivery.
type Outcome string

const (
	OutcomeDuplicate     Outcome = "duplicate_ignored"
	OutcomeSuccess       Outcome = "processed_success"
	OutcomeFailure       Outcome = "processed_failure"
	OutcomeUnprocessable Outcome = "unprocessable"
)

// Payment status query states for client polling.
const (
	StatePending = "pending"
	StateSuccess = "success"
	StateFailed  = "failed"
)

type InitiateRequest struct {
	Phone     string                     `json:"phone"`
	Amount    decimal.Decimal            `json:"amount"`
	Reference string                     `json:"reference"`
	Breakdown map[string]decimal.Decimal `json:"breakdown,omitempty"`
}

type InitiateResponse struct {
	MerchantRequestID string `json:"merchant_request_id,omitempty"`
	CheckoutRequestID string `json:"checkout_request_id,omitempty"`
	// Raw is the provider response passed through unmodified.
	Raw []byte `json:"-"`
}

type StatusRequest struct {
	CheckoutRequestID string
}

type StatusResponse struct {
	State   string `json:"state"`
	Message string `json:"message,omitempty"`
	Receipt string `json:"receipt,omitempty"`
}

type Service interface {
	// Initiate calls the provider push API and stores correlation data for
	// the asynchronous callback. It never writes to the payment ledger.
	Initiate(context.Context, InitiateRequest) (InitiateResponse, error)
	// HandleCallback reconciles one provider callback delivery. The returned
	// error is for logging; callers acknowledge the provider regardless.
	HandleCallback(context.Context, CallbackEnvelope) (Outcome, error)
	// Status is a pure read for client-side polling.
	Status(context.Context, StatusRequest) (StatusResponse, error)
}

var (
	ErrInvalidPhone      = errors.New("invalid_phone")
	ErrInvalidAmount     = errors.New("invalid_amount")
	ErrInvalidReference  = errors.New("invalid_reference")
	ErrInvalidCheckoutID = errors.New("invalid_checkout_request_id")
	ErrProviderRejected  = errors.New("provider_rejected")
)
