package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

const (
	StatusActive    = "active"
	StatusFulfilled = "fulfilled"
	StatusCancelled = "cancelled"
)

type Pledge struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	MemberID        snowflake.ID    `gorm:"not null;index" json:"member_id"`
	AccountType     string          `gorm:"not null" json:"account_type"`
	PledgeAmount    decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"pledge_amount"`
	FulfilledAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"fulfilled_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"remaining_amount"`
	PledgeDate      time.Time       `gorm:"not null" json:"pledge_date"`
	TargetDate      *time.Time      `json:"target_date,omitempty"`
	Status          string          `gorm:"not null;default:active" json:"status"`
	CreatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
