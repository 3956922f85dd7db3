package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CreatePledgeRequest struct {
	MemberID     string     `json:"member_id"`
	AccountType  string     `json:"account_type"`
	PledgeAmount string     `json:"pledge_amount"`
	PledgeDate   *time.Time `json:"pledge_date"`
	TargetDate   *time.Time `json:"target_date"`
}

type ListPledgeRequest struct {
	MemberID string
	Status   string
}

type ListPledgeResponse struct {
	Pledges []Pledge `json:"pledges"`
}

type CancelPledgeRequest struct {
	ID string
}

type Service interface {
	Create(context.Context, CreatePledgeRequest) (Pledge, error)
	List(context.Context, ListPledgeRequest) (ListPledgeResponse, error)
	Cancel(context.Context, CancelPledgeRequest) (Pledge, error)
	// ApplyContribution walks the member's open pledges for a category oldest
	// first and decrements them until the contribution amount is consumed.
	// Leftover amount beyond the open pledges is ignored. Runs on the caller's
	// transaction handle.
	ApplyContribution(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, accountType string, amount decimal.Decimal) error
}

var (
	ErrInvalidMemberID    = errors.New("invalid_member_id")
	ErrInvalidAccountType = errors.New("invalid_account_type")
	ErrInvalidAmount      = errors.New("invalid_amount")
	ErrInvalidID          = errors.New("invalid_id")
	ErrNotFound           = errors.New("not_found")
	ErrNotActive          = errors.New("pledge_not_active")
)
