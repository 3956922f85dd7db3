package domain

import (
	"context"
	"errors"

	"github.com/kanisahq/kanisa/pkg/db/pagination"
)

type CreateMemberRequest struct {
	MemberNumber string `json:"member_number"`
	FullName     string `json:"full_name"`
	Phone        string `json:"phone"`
	Email        string `json:"email"`
	Residence    string `json:"residence"`
}

type GetMemberRequest struct {
	ID string
}

type ListMemberRequest struct {
	PageToken    string
	PageSize     int32
	MemberNumber string
	Phone        string
}

type ListMemberFilter struct {
	MemberNumber string
	Phone        string
}

type ListMemberResponse struct {
	pagination.PageInfo
	Members []Member `json:"members"`
}

type Service interface {
	Create(context.Context, CreateMemberRequest) (Member, error)
	GetByID(context.Context, GetMemberRequest) (Member, error)
	GetByMemberNumber(ctx context.Context, memberNumber string) (Member, error)
	List(context.Context, ListMemberRequest) (ListMemberResponse, error)
}

var (
	ErrInvalidMemberNumber = errors.New("invalid_member_number")
	ErrInvalidFullName     = errors.New("invalid_full_name")
	ErrInvalidPhone        = errors.New("invalid_phone")
	ErrInvalidID           = errors.New("invalid_id")
	ErrMemberNumberTaken   = errors.New("member_number_taken")
	ErrNotFound            = errors.New("not_found")
)
