package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type CreateCompanyRequest struct {
	Name string `json:"name"`
}

type AddMemberRequest struct {
	CompanyID snowflake.ID `json:"company_id"`
	UserID    snowflake.ID `json:"user_id"`
	Role      Role         `json:"role"`
}

type Service interface {
	Create(ctx context.Context, req CreateCompanyRequest) (Company, error)
	AddMember(ctx context.Context, req AddMemberRequest) (CompanyMember, error)
	ListMembers(ctx context.Context, companyID snowflake.ID) ([]CompanyMember, error)
}

var (
	ErrInvalidName    = errors.New("missing_input")
	ErrInvalidRole    = errors.New("invalid_role")
	ErrMemberExists   = errors.New("member_exists")
	ErrCompanyMissing = errors.New("not_found")
)
