package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kanisahq/kanisa/internal/pledge/domain"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, pledge *domain.Pledge) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO pledges (id, member_id, account_type, pledge_amount, fulfilled_amount, remaining_amount,
		                      pledge_date, target_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		pledge.ID,
		pledge.MemberID,
		pledge.AccountType,
		pledge.PledgeAmount,
		pledge.FulfilledAmount,
		pledge.RemainingAmount,
		pledge.PledgeDate,
		pledge.TargetDate,
		pledge.Status,
		pledge.CreatedAt,
		pledge.UpdatedAt,
	).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Pledge, error) {
	var pledge domain.Pledge
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, account_type, pledge_amount, fulfilled_amount, remaining_amount,
		        pledge_date, target_date, status, created_at, updated_at
		 FROM pledges WHERE id = ?`,
		id,
	).Scan(&pledge).Error
	if err != nil {
		return nil, err
	}
	if pledge.ID == 0 {
		return nil, nil
	}
	return &pledge, nil
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID, status string) ([]*domain.Pledge, error) {
	var pledges []*domain.Pledge
	stmt := db.WithContext(ctx).
		Model(&domain.Pledge{}).
		Where("member_id = ?", memberID)
	if status != "" {
		stmt = stmt.Where("status = ?", status)
	}
	err := stmt.
		Order("pledge_date asc, id asc").
		Find(&pledges).Error
	if err != nil {
		return nil, err
	}
	return pledges, nil
}

func (r *repo) FindOpenForDecrement(ctx context.Context, db *gorm.DB, memberID snowflake.ID, accountType string) ([]*domain.Pledge, error) {
	var pledges []*domain.Pledge
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, account_type, pledge_amount, fulfilled_amount, remaining_amount,
		        pledge_date, target_date, status, created_at, updated_at
		 FROM pledges
		 WHERE member_id = ? AND account_type = ? AND status = ? AND remaining_amount > 0
		 ORDER BY pledge_date asc, id asc`,
		memberID,
		accountType,
		domain.StatusActive,
	).Scan(&pledges).Error
	if err != nil {
		return nil, err
	}
	return pledges, nil
}

func (r *repo) Decrement(ctx context.Context, db *gorm.DB, id snowflake.ID, amount decimal.Decimal) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE pledges
		 SET fulfilled_amount = fulfilled_amount + ?,
		     remaining_amount = remaining_amount - ?,
		     status = CASE WHEN remaining_amount - ? <= 0 THEN ? ELSE status END,
		     updated_at = ?
		 WHERE id = ? AND status = ? AND remaining_amount >= ?`,
		amount,
		amount,
		amount,
		domain.StatusFulfilled,
		time.Now().UTC(),
		id,
		domain.StatusActive,
		amount,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotActive
	}
	return nil
}

func (r *repo) UpdateStatus(ctx context.Context, db *gorm.DB, id snowflake.ID, status string) error {
	res := db.WithContext(ctx).Exec(
		`UPDATE pledges SET status = ?, updated_at = ? WHERE id = ?`,
		status,
		time.Now().UTC(),
		id,
	)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}
