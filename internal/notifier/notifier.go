// Package notifier sends confirmation messages to payers. Delivery is fire
// and forget; a send failure is logged by the caller and never affects
// committed financial state.
package notifier

import "context"

// Provider sends one message to one phone number.
type Provider interface {
	Send(ctx context.Context, phone, message string) error
}

// NoOp drops every message. Used when no SMS gateway is configured.
type NoOp struct{}

func (NoOp) Send(context.Context, string, string) error { return nil }
