package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kanisahq/kanisa/internal/contribution/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("contribution.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Record(ctx context.Context, tx *gorm.DB, contribution *domain.Contribution) error {
	if contribution.MemberID == 0 {
		return domain.ErrInvalidMemberID
	}
	if contribution.PaymentID == 0 {
		return domain.ErrInvalidPaymentID
	}
	if !domain.ValidType(contribution.ContributionType) {
		return domain.ErrInvalidType
	}
	if contribution.Amount.IsNegative() || contribution.Amount.IsZero() {
		return domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	if contribution.ID == 0 {
		contribution.ID = s.genID.Generate()
	}
	if contribution.ContributionDate.IsZero() {
		contribution.ContributionDate = now
	}
	if contribution.PaymentMethod == "" {
		contribution.PaymentMethod = domain.MethodMpesa
	}
	if contribution.Status == "" {
		contribution.Status = domain.StatusCompleted
	}
	contribution.CreatedAt = now
	contribution.UpdatedAt = now

	return s.repo.Insert(ctx, tx, contribution)
}

func (s *Service) List(ctx context.Context, req domain.ListContributionRequest) (domain.ListContributionResponse, error) {
	memberRaw := strings.TrimSpace(req.MemberID)
	paymentRaw := strings.TrimSpace(req.PaymentID)

	var (
		items []*domain.Contribution
		err   error
	)
	switch {
	case paymentRaw != "":
		paymentID, parseErr := snowflake.ParseString(paymentRaw)
		if parseErr != nil || paymentID == 0 {
			return domain.ListContributionResponse{}, domain.ErrInvalidPaymentID
		}
		items, err = s.repo.ListByPayment(ctx, s.db, paymentID)
	case memberRaw != "":
		memberID, parseErr := snowflake.ParseString(memberRaw)
		if parseErr != nil || memberID == 0 {
			return domain.ListContributionResponse{}, domain.ErrInvalidMemberID
		}
		items, err = s.repo.ListByMember(ctx, s.db, memberID)
	default:
		return domain.ListContributionResponse{}, domain.ErrMissingFilter
	}
	if err != nil {
		return domain.ListContributionResponse{}, err
	}

	contributions := make([]domain.Contribution, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		contributions = append(contributions, *item)
	}

	return domain.ListContributionResponse{Contributions: contributions}, nil
}

func (s *Service) Summary(ctx context.Context, req domain.SummaryRequest) (domain.SummaryResponse, error) {
	now := time.Now().UTC()
	from := now.AddDate(0, -1, 0)
	to := now
	if req.From != nil {
		from = req.From.UTC()
	}
	if req.To != nil {
		to = req.To.UTC()
	}

	totals, err := s.repo.Summary(ctx, s.db, from, to)
	if err != nil {
		return domain.SummaryResponse{}, err
	}

	return domain.SummaryResponse{From: from, To: to, Totals: totals}, nil
}
