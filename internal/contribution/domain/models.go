package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Contribution categories. Pledges use the same category names for their
// account types so decrements can match on equality.
const (
	TypeTithe        = "Tithe"
	TypeOffering     = "Offering"
	TypeDevelopment  = "Development"
	TypeThanksgiving = "Thanksgiving"
	TypeFirstFruit   = "FirstFruit"
	TypeOthers       = "Others"
)

const (
	StatusCompleted = "completed"
	StatusPending   = "pending"
	StatusFailed    = "failed"
)

const MethodMpesa = "mpesa"

// ValidType reports whether the category is one of the known contribution
// categories.
func ValidType(contributionType string) bool {
	switch contributionType {
	case TypeTithe, TypeOffering, TypeDevelopment, TypeThanksgiving, TypeFirstFruit, TypeOthers:
		return true
	}
	return false
}

type Contribution struct {
	ID               snowflake.ID    `gorm:"primaryKey" json:"id"`
	MemberID         snowflake.ID    `gorm:"not null;index" json:"member_id"`
	PaymentID        snowflake.ID    `gorm:"not null;index" json:"payment_id"`
	ContributionType string          `gorm:"not null" json:"contribution_type"`
	Amount           decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"`
	ReferenceNumber  string          `gorm:"not null" json:"reference_number"`
	PaymentMethod    string          `gorm:"not null" json:"payment_method"`
	ContributionDate time.Time       `gorm:"not null" json:"contribution_date"`
	Status           string          `gorm:"not null;default:completed" json:"status"`
	CreatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}
