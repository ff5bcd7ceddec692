package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	companydomain "github.com/indielance/cra/internal/company/domain"
	missiondomain "github.com/indielance/cra/internal/mission/domain"
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

	missionrepo repository.Repository[missiondomain.Mission]
}

func NewService(p ServiceParam) missiondomain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("mission.service"),
		genID: p.GenID,

		missionrepo: repository.ProvideStore[missiondomain.Mission](p.DB),
	}
}

func (s *Service) Create(ctx context.Context, req missiondomain.CreateMissionRequest) (missiondomain.Mission, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" || req.CompanyID == 0 {
		return missiondomain.Mission{}, missiondomain.ErrInvalidName
	}
	kind := req.Kind
	if kind == "" {
		kind = missiondomain.KindTimeBased
	}
	if !missiondomain.ValidKind(kind) {
		return missiondomain.Mission{}, missiondomain.ErrInvalidKind
	}

	var mission missiondomain.Mission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var company companydomain.Company
		if err := tx.First(&company, "id = ?", req.CompanyID).Error; err != nil {
			if err == gorm.ErrRecordNotFound {
				return missiondomain.ErrCompanyMissing
			}
			return err
		}

		now := time.Now().UTC()
		mission = missiondomain.Mission{
			ID:        s.genID.Generate(),
			Name:      name,
			Kind:      kind,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if err := tx.Create(&mission).Error; err != nil {
			return err
		}

		link := missiondomain.CompanyMission{
			ID:        s.genID.Generate(),
			CompanyID: req.CompanyID,
			MissionID: mission.ID,
			CreatedAt: now,
		}
		return tx.Create(&link).Error
	})
	if err != nil {
		return missiondomain.Mission{}, err
	}
	return mission, nil
}

func (s *Service) ListByCompany(ctx context.Context, companyID snowflake.ID) ([]missiondomain.Mission, error) {
	var missions []missiondomain.Mission
	err := s.db.WithContext(ctx).
		Joins("JOIN company_missions cm ON cm.mission_id = missions.id").
		Where("cm.company_id = ?", companyID).
		Order("missions.created_at ASC").
		Find(&missions).Error
	if err != nil {
		return nil, err
	}
	return missions, nil
}
