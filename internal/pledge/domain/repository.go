package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, pledge *Pledge) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Pledge, error)
	ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, status string) ([]*Pledge, error)
	// FindOpenForDecrement returns active pledges with remaining balance for a
	// member and category, ordered oldest pledge first with id as tie-break.
	FindOpenForDecrement(ctx context.Context, db *gorm.DB, memberID snowflake.ID, accountType string) ([]*Pledge, error)
	// Decrement applies a clipped amount to one pledge, keeping
	// fulfilled + remaining equal to the pledge amount and flipping status to
	// fulfilled when the remaining balance reaches zero.
	Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, amount decimal.Decimal) error
	UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error
}
