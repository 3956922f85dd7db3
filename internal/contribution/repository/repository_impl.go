package repository

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kanisahq/kanisa/internal/contribution/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, contribution *domain.Contribution) error {
	return db.WithContext(ctx).Exec(
		`INSERT INTO contributions (id, member_id, payment_id, contribution_type, amount, reference_number,
		                            payment_method, contribution_date, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		contribution.ID,
		contribution.MemberID,
		contribution.PaymentID,
		contribution.ContributionType,
		contribution.Amount,
		contribution.ReferenceNumber,
		contribution.PaymentMethod,
		contribution.ContributionDate,
		contribution.Status,
		contribution.CreatedAt,
		contribution.UpdatedAt,
	).Error
}

func (r *repo) ListByMember(ctx context.Context, db *gorm.DB, memberID snowflake.ID) ([]*domain.Contribution, error) {
	var contributions []*domain.Contribution
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, payment_id, contribution_type, amount, reference_number,
		        payment_method, contribution_date, status, created_at, updated_at
		 FROM contributions WHERE member_id = ?
		 ORDER BY contribution_date desc, id desc`,
		memberID,
	).Scan(&contributions).Error
	if err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *repo) ListByPayment(ctx context.Context, db *gorm.DB, paymentID snowflake.ID) ([]*domain.Contribution, error) {
	var contributions []*domain.Contribution
	err := db.WithContext(ctx).Raw(
		`SELECT id, member_id, payment_id, contribution_type, amount, reference_number,
		        payment_method, contribution_date, status, created_at, updated_at
		 FROM contributions WHERE payment_id = ?
		 ORDER BY id asc`,
		paymentID,
	).Scan(&contributions).Error
	if err != nil {
		return nil, err
	}
	return contributions, nil
}

func (r *repo) Summary(ctx context.Context, db *gorm.DB, from, to time.Time) ([]domain.CategoryTotal, error) {
	var totals []domain.CategoryTotal
	err := db.WithContext(ctx).Raw(
		`SELECT contribution_type, SUM(amount) AS total, COUNT(*) AS count
		 FROM contributions
		 WHERE status = ? AND contribution_date >= ? AND contribution_date <= ?
		 GROUP BY contribution_type
		 ORDER BY contribution_type asc`,
		domain.StatusCompleted,
		from,
		to,
	).Scan(&totals).Error
	if err != nil {
		return nil, err
	}
	return totals, nil
}
