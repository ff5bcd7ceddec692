// Package seed bootstraps demo data for local development: one company,
// an independent member, a client member, and a time-based mission. It is
// idempotent and keyed on the demo company name.
package seed

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"
	"gorm.io/gorm"

	companydomain "github.com/indielance/cra/internal/company/domain"
	missiondomain "github.com/indielance/cra/internal/mission/domain"
)

const (
	demoCompanyName = "Demo Studio"
	demoMissionName = "Backend Development"

	// Fixed user ids so a local client can authenticate with a known
	// X-User-ID without a signup flow.
	demoIndependentID snowflake.ID = 1001
	demoClientID      snowflake.ID = 1002
)

// EnsureDemoData creates the demo fixtures when they are absent.
func EnsureDemoData(db *gorm.DB, node *snowflake.Node, log *zap.Logger) error {
	if db == nil {
		return errors.New("seed database handle is required")
	}

	ctx := context.Background()
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		company, created, err := ensureCompany(tx, node)
		if err != nil {
			return err
		}
		if !created {
			return nil
		}

		if err := ensureMember(tx, node, company.ID, demoIndependentID, companydomain.RoleIndependent); err != nil {
			return err
		}
		if err := ensureMember(tx, node, company.ID, demoClientID, companydomain.RoleClient); err != nil {
			return err
		}
		if err := ensureMission(tx, node, company.ID); err != nil {
			return err
		}

		log.Info("demo data seeded",
			zap.String("company", demoCompanyName),
			zap.String("independent_user", demoIndependentID.String()),
			zap.String("client_user", demoClientID.String()),
		)
		return nil
	})
}

func ensureCompany(tx *gorm.DB, node *snowflake.Node) (companydomain.Company, bool, error) {
	var company companydomain.Company
	err := tx.Where("name = ?", demoCompanyName).First(&company).Error
	if err == nil {
		return company, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return company, false, err
	}

	company = companydomain.Company{
		ID:   node.Generate(),
		Name: demoCompanyName,
	}
	if err := tx.Create(&company).Error; err != nil {
		return company, false, err
	}
	return company, true, nil
}

func ensureMember(tx *gorm.DB, node *snowflake.Node, companyID, userID snowflake.ID, role companydomain.Role) error {
	member := companydomain.CompanyMember{
		ID:        node.Generate(),
		CompanyID: companyID,
		UserID:    userID,
		Role:      role,
	}
	return tx.Create(&member).Error
}

func ensureMission(tx *gorm.DB, node *snowflake.Node, companyID snowflake.ID) error {
	mission := missiondomain.Mission{
		ID:   node.Generate(),
		Name: demoMissionName,
		Kind: missiondomain.KindTimeBased,
	}
	if err := tx.Create(&mission).Error; err != nil {
		return err
	}
	link := missiondomain.CompanyMission{
		ID:        node.Generate(),
		CompanyID: companyID,
		MissionID: mission.ID,
	}
	return tx.Create(&link).Error
}
