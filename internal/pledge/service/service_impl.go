package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	contributiondomain "github.com/kanisahq/kanisa/internal/contribution/domain"
	"github.com/kanisahq/kanisa/internal/pledge/domain"
	"github.com/shopspring/decimal"
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
		log:   p.Log.Named("pledge.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreatePledgeRequest) (domain.Pledge, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.Pledge{}, domain.ErrInvalidMemberID
	}

	accountType := strings.TrimSpace(req.AccountType)
	if !contributiondomain.ValidType(accountType) {
		return domain.Pledge{}, domain.ErrInvalidAccountType
	}

	amount, err := decimal.NewFromString(strings.TrimSpace(req.PledgeAmount))
	if err != nil || amount.LessThanOrEqual(decimal.Zero) {
		return domain.Pledge{}, domain.ErrInvalidAmount
	}

	now := time.Now().UTC()
	pledgeDate := now
	if req.PledgeDate != nil {
		pledgeDate = req.PledgeDate.UTC()
	}

	pledge := domain.Pledge{
		ID:              s.genID.Generate(),
		MemberID:        memberID,
		AccountType:     accountType,
		PledgeAmount:    amount,
		FulfilledAmount: decimal.Zero,
		RemainingAmount: amount,
		PledgeDate:      pledgeDate,
		TargetDate:      req.TargetDate,
		Status:          domain.StatusActive,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err := s.repo.Insert(ctx, s.db, &pledge); err != nil {
		return domain.Pledge{}, err
	}

	return pledge, nil
}

func (s *Service) List(ctx context.Context, req domain.ListPledgeRequest) (domain.ListPledgeResponse, error) {
	memberID, err := snowflake.ParseString(strings.TrimSpace(req.MemberID))
	if err != nil || memberID == 0 {
		return domain.ListPledgeResponse{}, domain.ErrInvalidMemberID
	}

	items, err := s.repo.ListByMember(ctx, s.db, memberID, strings.TrimSpace(req.Status))
	if err != nil {
		return domain.ListPledgeResponse{}, err
	}

	pledges := make([]domain.Pledge, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		pledges = append(pledges, *item)
	}

	return domain.ListPledgeResponse{Pledges: pledges}, nil
}

func (s *Service) Cancel(ctx context.Context, req domain.CancelPledgeRequest) (domain.Pledge, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Pledge{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Pledge{}, err
	}
	if item == nil {
		return domain.Pledge{}, domain.ErrNotFound
	}
	if item.Status != domain.StatusActive {
		return domain.Pledge{}, domain.ErrNotActive
	}

	if err := s.repo.UpdateStatus(ctx, s.db, id, domain.StatusCancelled); err != nil {
		return domain.Pledge{}, err
	}

	item.Status = domain.StatusCancelled
	return *item, nil
}

func (s *Service) ApplyContribution(ctx context.Context, tx *gorm.DB, memberID snowflake.ID, accountType string, amount decimal.Decimal) error {
	if memberID == 0 {
		return domain.ErrInvalidMemberID
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return nil
	}

	pledges, err := s.repo.FindOpenForDecrement(ctx, tx, memberID, accountType)
	if err != nil {
		return err
	}

	remaining := amount
	for _, pledge := range pledges {
		if remaining.LessThanOrEqual(decimal.Zero) {
			break
		}
		step := decimal.Min(remaining, pledge.RemainingAmount)
		if step.LessThanOrEqual(decimal.Zero) {
			continue
		}
		if err := s.repo.Decrement(ctx, tx, pledge.ID, step); err != nil {
			return err
		}
		s.log.Info("pledge decremented",
			zap.String("pledge_id", pledge.ID.String()),
			zap.String("member_id", memberID.String()),
			zap.String("account_type", accountType),
			zap.String("amount", step.String()),
		)
		remaining = remaining.Sub(step)
	}

	if remaining.GreaterThan(decimal.Zero) && len(pledges) > 0 {
		s.log.Debug("contribution exceeds open pledges",
			zap.String("member_id", memberID.String()),
			zap.String("account_type", accountType),
			zap.String("leftover", remaining.String()),
		)
	}

	return nil
}
