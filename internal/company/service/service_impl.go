package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/indielance/cra/internal/company/domain"
	"github.com/indielance/cra/pkg/db"
	"github.com/indielance/cra/pkg/repository"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node

	companyrepo repository.Repository[companydomain.Company]
	memberrepo  repository.Repository[companydomain.CompanyMember]
}

func NewService(p ServiceParam) companydomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("company.service"),
		genID: p.GenID,

		companyrepo: repository.ProvideStore[companydomain.Company](p.DB),
		memberrepo:  repository.ProvideStore[companydomain.CompanyMember](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req companydomain.CreateCompanyRequest) (companydomain.Company, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return companydomain.Company{}, companydomain.ErrInvalidName
	}

	now := time.Now().UTC()
	company := companydomain.Company{
		ID:        s.genID.Generate(),
		Name:      name,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.companyrepo.Create(ctx, &company); err != nil {
		return companydomain.Company{}, err
	}
	return company, nil
}

func (s *Service) AddMember(ctx context.Context, req companydomain.AddMemberRequest) (companydomain.CompanyMember, error) {
	if req.CompanyID == 0 || req.UserID == 0 {
		return companydomain.CompanyMember{}, companydomain.ErrInvalidName
	}
	if !companydomain.ValidRole(req.Role) {
		return companydomain.CompanyMember{}, companydomain.ErrInvalidRole
	}

	company, err := s.companyrepo.FindOne(ctx, &companydomain.Company{ID: req.CompanyID})
	if err != nil {
		return companydomain.CompanyMember{}, err
	}
	if company == nil {
		return companydomain.CompanyMember{}, companydomain.ErrCompanyMissing
	}

	member := companydomain.CompanyMember{
		ID:        s.genID.Generate(),
		CompanyID: req.CompanyID,
		UserID:    req.UserID,
		Role:      req.Role,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.memberrepo.Create(ctx, &member); err != nil {
		if db.IsDuplicateKeyErr(err) {
			return companydomain.CompanyMember{}, companydomain.ErrMemberExists
		}
		return companydomain.CompanyMember{}, err
	}
	return member, nil
}

func (s *Service) ListMembers(ctx context.Context, companyID snowflake.ID) ([]companydomain.CompanyMember, error) {
	items, err := s.memberrepo.Find(ctx, &companydomain.CompanyMember{CompanyID: companyID})
	if err != nil {
		return nil, err
	}

	members := make([]companydomain.CompanyMember, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		members = append(members, *item)
	}
	return members, nil
}
