// Package correlation bridges the push initiation call and the asynchronous
// provider callback, which may not echo back the account reference or the
// contribution breakdown. Entries are best effort and time bounded; their
// absence must never prevent a payment from being recorded.
package correlation

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultTTL bounds how long an entry outlives its push initiation.
const DefaultTTL = 24 * time.Hour

// Entry is the correlation value stored under a checkout request id.
type Entry struct {
	AccountReference string                     `json:"account_reference"`
	Breakdown        map[string]decimal.Decimal `json:"breakdown,omitempty"`
}

// Store is a shared key-value store with TTL semantics. Multiple server
// instances must observe the same store for callback reconciliation to see
// entries written by a sibling instance.
type Store interface {
	Put(ctx context.Context, checkoutRequestID string, entry Entry) error
	// Get returns nil when no entry exists or it has expired.
	Get(ctx context.Context, checkoutRequestID string) (*Entry, error)
	Delete(ctx context.Context, checkoutRequestID string) error
}
