package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CategoryTotal struct {
	ContributionType string          `json:"contribution_type"`
	Total            decimal.Decimal `json:"total"`
	Count            int64           `json:"count"`
}

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, contribution *Contribution) error
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]*Contribution, error)
	ListByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]*Contribution, error)
	Summary(ctx context.Context, db *gorm.DB, from, to time.Time) ([]CategoryTotal, error)
}
