// Package access consolidates the company-role join queries that decide
// which reports and missions a user may see or act on.
package access

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"

	companydomain "github.com/indielance/cra/internal/company/domain"
	cradomain "github.com/indielance/cra/internal/cra/domain"
)

// IDSet is the typed result of an accessibility query.
type IDSet map[snowflake.ID]struct{}

// Contains reports membership.
func (s IDSet) Contains(id snowflake.ID) bool {
	_, ok := s[id]
	return ok
}

type ControlParam struct {
	fx.In

	DB  *gorm.DB
	Log *zap.Logger
}

// Control answers authorization questions from company-role memberships.
// All methods are read-only; they run on the transaction handle they are
// given so guards observe the same snapshot as the write that follows.
type Control struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewControl(p ControlParam) *Control {
	return &Control{
		db:  p.DB,
		log: p.Log.Named("cra.access"),
	}
}

// WithTrx returns a Control bound to tx.
func (c *Control) WithTrx(tx *gorm.DB) *Control {
	return &Control{db: tx, log: c.log}
}

var qualifyingRoles = []companydomain.Role{
	companydomain.RoleIndependent,
	companydomain.RoleClient,
}

// AccessibleReportIDs resolves every report the user can see: reports they
// created, plus reports reachable through user -> company -> mission ->
// report membership joins.
func (c *Control) AccessibleReportIDs(ctx context.Context, userID snowflake.ID) (IDSet, error) {
	var ids []snowflake.ID
	err := c.db.WithContext(ctx).
		Table("cras").
		Where("created_by = ?", userID).
		Pluck("id", &ids).Error
	if err != nil {
		return nil, err
	}

	var joined []snowflake.ID
	err = c.db.WithContext(ctx).
		Table("cra_missions").
		Select("cra_missions.cra_id").
		Joins("JOIN company_missions ON company_missions.mission_id = cra_missions.mission_id").
		Joins("JOIN company_members ON company_members.company_id = company_missions.company_id").
		Where("company_members.user_id = ? AND company_members.role IN ?", userID, qualifyingRoles).
		Pluck("cra_missions.cra_id", &joined).Error
	if err != nil {
		return nil, err
	}

	set := make(IDSet, len(ids)+len(joined))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	for _, id := range joined {
		set[id] = struct{}{}
	}
	return set, nil
}

// AccessibleMissionIDs resolves every mission the user can bill against
// through a qualifying company role.
func (c *Control) AccessibleMissionIDs(ctx context.Context, userID snowflake.ID) (IDSet, error) {
	var ids []snowflake.ID
	err := c.db.WithContext(ctx).
		Table("company_missions").
		Select("company_missions.mission_id").
		Joins("JOIN company_members ON company_members.company_id = company_missions.company_id").
		Where("company_members.user_id = ? AND company_members.role IN ?", userID, qualifyingRoles).
		Pluck("company_missions.mission_id", &ids).Error
	if err != nil {
		return nil, err
	}

	set := make(IDSet, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// AuthorizeAccess grants read access to the report's creator, or to anyone
// holding a qualifying role in a company whose mission is attached to the
// report.
func (c *Control) AuthorizeAccess(ctx context.Context, userID snowflake.ID, cra *cradomain.Cra) error {
	if cra.CreatedBy == userID {
		return nil
	}

	var n int64
	err := c.db.WithContext(ctx).
		Table("cra_missions").
		Joins("JOIN company_missions ON company_missions.mission_id = cra_missions.mission_id").
		Joins("JOIN company_members ON company_members.company_id = company_missions.company_id").
		Where("cra_missions.cra_id = ?", cra.ID).
		Where("company_members.user_id = ? AND company_members.role IN ?", userID, qualifyingRoles).
		Count(&n).Error
	if err != nil {
		return err
	}
	if n == 0 {
		return cradomain.ErrForbidden
	}
	return nil
}

// AuthorizeModification grants write access only to the creator of a draft
// report. Non-draft states surface a status-specific conflict.
func (c *Control) AuthorizeModification(userID snowflake.ID, cra *cradomain.Cra) error {
	if cra.CreatedBy != userID {
		return cradomain.ErrForbidden
	}
	switch cra.Status {
	case cradomain.CraStatusDraft:
		return nil
	case cradomain.CraStatusSubmitted:
		return cradomain.ErrReportSubmitted
	default:
		return cradomain.ErrReportLocked
	}
}

// HasIndependentRole reports whether the user holds an independent role in
// at least one company. Required to open a new report.
func (c *Control) HasIndependentRole(ctx context.Context, userID snowflake.ID) (bool, error) {
	var n int64
	err := c.db.WithContext(ctx).
		Table("company_members").
		Where("user_id = ? AND role = ?", userID, companydomain.RoleIndependent).
		Count(&n).Error
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var Module = fx.Module("cra.access",
	fx.Provide(NewControl),
)
