package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/kanisahq/kanisa/pkg/db/pagination"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, member *Member) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Member, error)
	FindByMemberNumber(ctx context.Context, db *gorm.DB, memberNumber string) (*Member, error)
	List(ctx context.Context, db *gorm.DB, filter ListMemberFilter, page pagination.Pagination) ([]*Member, error)
}
