package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/kanisahq/kanisa/internal/member/domain"
	"github.com/kanisahq/kanisa/pkg/db"
	"github.com/kanisahq/kanisa/pkg/db/pagination"
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
		log:   p.Log.Named("member.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

func (s *Service) Create(ctx context.Context, req domain.CreateMemberRequest) (domain.Member, error) {
	memberNumber := strings.ToUpper(strings.TrimSpace(req.MemberNumber))
	if memberNumber == "" {
		return domain.Member{}, domain.ErrInvalidMemberNumber
	}

	fullName := strings.TrimSpace(req.FullName)
	if fullName == "" {
		return domain.Member{}, domain.ErrInvalidFullName
	}

	phone := strings.TrimSpace(req.Phone)
	if phone == "" {
		return domain.Member{}, domain.ErrInvalidPhone
	}

	now := time.Now().UTC()
	member := domain.Member{
		ID:           s.genID.Generate(),
		MemberNumber: memberNumber,
		FullName:     fullName,
		Phone:        phone,
		Email:        strings.TrimSpace(req.Email),
		Residence:    strings.TrimSpace(req.Residence),
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.repo.Insert(ctx, s.db, &member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return domain.Member{}, domain.ErrMemberNumberTaken
		}
		return domain.Member{}, err
	}

	return member, nil
}

func (s *Service) GetByID(ctx context.Context, req domain.GetMemberRequest) (domain.Member, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(req.ID))
	if err != nil || id == 0 {
		return domain.Member{}, domain.ErrInvalidID
	}

	item, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Member{}, err
	}
	if item == nil {
		return domain.Member{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) GetByMemberNumber(ctx context.Context, memberNumber string) (domain.Member, error) {
	memberNumber = strings.TrimSpace(memberNumber)
	if memberNumber == "" {
		return domain.Member{}, domain.ErrInvalidMemberNumber
	}

	item, err := s.repo.FindByMemberNumber(ctx, s.db, memberNumber)
	if err != nil {
		return domain.Member{}, err
	}
	if item == nil {
		return domain.Member{}, domain.ErrNotFound
	}

	return *item, nil
}

func (s *Service) List(ctx context.Context, req domain.ListMemberRequest) (domain.ListMemberResponse, error) {
	filter := domain.ListMemberFilter{
		MemberNumber: strings.TrimSpace(req.MemberNumber),
		Phone:        strings.TrimSpace(req.Phone),
	}

	pageSize := req.PageSize
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.List(ctx, s.db, filter, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  int(pageSize),
	})
	if err != nil {
		return domain.ListMemberResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(member *domain.Member) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        member.ID.String(),
			CreatedAt: member.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if pageInfo != nil && pageInfo.HasMore && len(items) > int(pageSize) {
		items = items[:pageSize]
	}

	members := make([]domain.Member, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}

	resp := domain.ListMemberResponse{Members: members}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}

	return resp, nil
}
