package domain

import (
	"context"

	"gorm.io/gorm"
)

type Repository interface {
	// InsertConfirmed inserts a confirmed payment, returning false when a row
	// for the same checkout_request_id already exists. A receipt-number
	// constraint violation surfaces as an error for the caller to classify.
	InsertConfirmed(ctx context.Context, db *gorm.DB, payment *Payment) (bool, error)
	// ExistsByCorrelation reports whether any payment exists for the checkout
	// id or, when non-empty, the receipt number.
	ExistsByCorrelation(ctx context.Context, db *gorm.DB, checkoutRequestID, receiptNumber string) (bool, error)
	// UpsertFailed records a failed push keyed by checkout_request_id,
	// updating the existing row instead of duplicating it.
	UpsertFailed(ctx context.Context, db *gorm.DB, payment *Payment) error
	FindByCheckoutID(ctx context.Context, db *gorm.DB, checkoutRequestID string) (*Payment, error)
}
