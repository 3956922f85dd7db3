package domain

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
)

type ListContributionRequest struct {
	MemberID  string
	PaymentID string
}

type ListContributionResponse struct {
	Contributions []Contribution `json:"contributions"`
}

type SummaryRequest struct {
	From *time.Time
	To   *time.Time
}

type SummaryResponse struct {
	From   time.Time       `json:"from"`
	To     time.Time       `json:"to"`
	Totals []CategoryTotal `json:"totals"`
}

type Service interface {
	// Record inserts a contribution on the caller's transaction handle. The
	// reconciliation flow is the only writer.
	Record(ctx context.Context, tx *gorm.DB, contribution *Contribution) error
	List(context.Context, ListContributionRequest) (ListContributionResponse, error)
	Summary(context.Context, SummaryRequest) (SummaryResponse, error)
}

var (
	ErrInvalidMemberID  = errors.New("invalid_member_id")
	ErrInvalidPaymentID = errors.New("invalid_payment_id")
	ErrInvalidType      = errors.New("invalid_contribution_type")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrMissingFilter    = errors.New("missing_filter")
)
