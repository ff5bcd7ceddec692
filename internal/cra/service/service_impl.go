// Package service implements the CRA lifecycle engine: report state
// transitions, entry mutation, duplicate prevention, and aggregate
// recalculation, each operation inside exactly one database transaction
// holding a row lock on the target report.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	auditdomain "github.com/indielance/cra/internal/audit/domain"
	"github.com/indielance/cra/internal/clock"
	"github.com/indielance/cra/internal/cra/access"
	cradomain "github.com/indielance/cra/internal/cra/domain"
	"github.com/indielance/cra/internal/cra/validation"
	"github.com/indielance/cra/internal/identity"
	missiondomain "github.com/indielance/cra/internal/mission/domain"
	"github.com/indielance/cra/internal/result"
	"github.com/indielance/cra/pkg/db"
	"github.com/indielance/cra/pkg/repository"
)

type ServiceParam struct {
	fx.In

	DB        *gorm.DB
	Log       *zap.Logger
	GenID     *snowflake.Node
	Clock     clock.Clock
	Validator *validation.Engine
	Access    *access.Control
	Audit     auditdomain.Service
}

type Service struct {
	db        *gorm.DB
	log       *zap.Logger
	genID     *snowflake.Node
	clock     clock.Clock
	validator *validation.Engine
	access    *access.Control
	audit     auditdomain.Service

	crarepo repository.Repository[cradomain.Cra]
}

func NewService(p ServiceParam) cradomain.Service {
	return &Service{
		db:        p.DB,
		log:       p.Log.Named("cra.service"),
		genID:     p.GenID,
		clock:     p.Clock,
		validator: p.Validator,
		access:    p.Access,
		audit:     p.Audit,

		crarepo: repository.ProvideStore[cradomain.Cra](p.DB),
	}
}

func (s *Service) CreateReport(ctx context.Context, actor identity.Actor, req cradomain.CreateReportRequest) result.Result[cradomain.Cra] {
	cra, err := s.createReport(ctx, actor, req)
	if err != nil {
		return result.Fail[cradomain.Cra](s.failureFor(err, "cra"))
	}
	s.recordAudit(ctx, actor, "cra.created", "cra", cra.ID.String(), map[string]any{
		"month":    cra.Month,
		"year":     cra.Year,
		"currency": cra.Currency,
	})
	return result.OK(cra)
}

func (s *Service) createReport(ctx context.Context, actor identity.Actor, req cradomain.CreateReportRequest) (cradomain.Cra, error) {
	if err := s.validator.ValidateMonth(req.Month); err != nil {
		return cradomain.Cra{}, err
	}
	if err := s.validator.ValidateYear(req.Year); err != nil {
		return cradomain.Cra{}, err
	}
	currency, err := s.validator.ValidateCurrency(req.Currency)
	if err != nil {
		return cradomain.Cra{}, err
	}

	ok, err := s.access.HasIndependentRole(ctx, actor.ID)
	if err != nil {
		return cradomain.Cra{}, err
	}
	if !ok {
		return cradomain.Cra{}, cradomain.ErrForbidden
	}

	now := s.clock.Now()
	cra := cradomain.Cra{
		ID:        s.genID.Generate(),
		Month:     req.Month,
		Year:      req.Year,
		Currency:  currency,
		Status:    cradomain.CraStatusDraft,
		CreatedBy: actor.ID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.crarepo.Create(ctx, &cra); err != nil {
		return cradomain.Cra{}, err
	}
	return cra, nil
}

func (s *Service) GetReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[cradomain.Cra] {
	cra, err := s.getReport(ctx, actor, id)
	if err != nil {
		return result.Fail[cradomain.Cra](s.failureFor(err, "cra"))
	}
	return result.OK(*cra)
}

func (s *Service) getReport(ctx context.Context, actor identity.Actor, id snowflake.ID) (*cradomain.Cra, error) {
	cra, err := s.crarepo.FindOne(ctx, &cradomain.Cra{ID: id})
	if err != nil {
		return nil, err
	}
	if cra == nil {
		return nil, cradomain.ErrNotFound
	}
	if err := s.access.AuthorizeAccess(ctx, actor.ID, cra); err != nil {
		return nil, err
	}
	return cra, nil
}

func (s *Service) ListReports(ctx context.Context, actor identity.Actor) result.Result[[]cradomain.Cra] {
	ids, err := s.access.AccessibleReportIDs(ctx, actor.ID)
	if err != nil {
		return result.Fail[[]cradomain.Cra](s.failureFor(err, "cra"))
	}
	if len(ids) == 0 {
		return result.OK([]cradomain.Cra{})
	}

	flat := make([]snowflake.ID, 0, len(ids))
	for id := range ids {
		flat = append(flat, id)
	}

	var cras []cradomain.Cra
	err = s.db.WithContext(ctx).
		Where("id IN ?", flat).
		Order("year DESC, month DESC, id DESC").
		Find(&cras).Error
	if err != nil {
		return result.Fail[[]cradomain.Cra](s.failureFor(err, "cra"))
	}
	return result.OK(cras)
}

func (s *Service) SubmitReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[cradomain.Cra] {
	var cra cradomain.Cra
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.reportForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := s.access.AuthorizeModification(actor.ID, locked); err != nil {
			return err
		}

		count, err := s.activeEntryCount(tx, id)
		if err != nil {
			return err
		}
		if count == 0 {
			return cradomain.ErrNoEntries
		}

		now := s.clock.Now()
		if err := tx.Model(locked).Updates(map[string]any{
			"status":     cradomain.CraStatusSubmitted,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		locked.Status = cradomain.CraStatusSubmitted
		locked.UpdatedAt = now
		cra = *locked
		return nil
	})
	if err != nil {
		return result.Fail[cradomain.Cra](s.failureFor(err, "cra"))
	}
	s.recordAudit(ctx, actor, "cra.submitted", "cra", cra.ID.String(), map[string]any{
		"total_days":   cra.TotalDays.String(),
		"total_amount": cra.TotalAmount,
	})
	return result.OK(cra)
}

func (s *Service) LockReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[cradomain.Cra] {
	var cra cradomain.Cra
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.reportForUpdate(tx, id)
		if err != nil {
			return err
		}
		if locked.CreatedBy != actor.ID {
			return cradomain.ErrForbidden
		}
		if !locked.Status.CanTransitionTo(cradomain.CraStatusLocked) {
			return invalidTransitionFailure(locked.Status, cradomain.CraStatusLocked)
		}

		now := s.clock.Now()
		if err := tx.Model(locked).Updates(map[string]any{
			"status":     cradomain.CraStatusLocked,
			"locked_at":  now,
			"updated_at": now,
		}).Error; err != nil {
			return err
		}
		locked.Status = cradomain.CraStatusLocked
		locked.LockedAt = &now
		locked.UpdatedAt = now

		if err := s.writeSnapshot(tx, locked, now); err != nil {
			return err
		}
		cra = *locked
		return nil
	})
	if err != nil {
		return result.Fail[cradomain.Cra](s.failureFor(err, "cra"))
	}
	s.recordAudit(ctx, actor, "cra.locked", "cra", cra.ID.String(), map[string]any{
		"total_days":   cra.TotalDays.String(),
		"total_amount": cra.TotalAmount,
		"locked_at":    cra.LockedAt.Format(time.RFC3339),
	})
	return result.OK(cra)
}

func (s *Service) DestroyReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[cradomain.Cra] {
	var cra cradomain.Cra
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.reportForUpdate(tx, id)
		if err != nil {
			return err
		}
		if err := s.access.AuthorizeModification(actor.ID, locked); err != nil {
			return err
		}

		// Entries survive for audit; only the report and its attachments go.
		if err := tx.Where("cra_id = ?", id).Delete(&cradomain.CraEntryGuard{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cra_id = ?", id).Delete(&cradomain.CraEntryLink{}).Error; err != nil {
			return err
		}
		if err := tx.Where("cra_id = ?", id).Delete(&cradomain.CraMission{}).Error; err != nil {
			return err
		}
		if err := tx.Delete(&cradomain.Cra{}, "id = ?", id).Error; err != nil {
			return err
		}
		cra = *locked
		return nil
	})
	if err != nil {
		return result.Fail[cradomain.Cra](s.failureFor(err, "cra"))
	}
	s.recordAudit(ctx, actor, "cra.destroyed", "cra", cra.ID.String(), nil)
	return result.OK(cra)
}

func (s *Service) AttachMission(ctx context.Context, actor identity.Actor, craID, missionID snowflake.ID) result.Result[cradomain.CraMission] {
	if missionID == 0 {
		return result.Fail[cradomain.CraMission](s.failureFor(cradomain.ErrMissingInput, "mission"))
	}

	var link cradomain.CraMission
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := s.reportForUpdate(tx, craID)
		if err != nil {
			return err
		}
		if err := s.access.AuthorizeModification(actor.ID, locked); err != nil {
			return err
		}

		var mission missiondomain.Mission
		if err := tx.First(&mission, "id = ?", missionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return cradomain.ErrMissionMissing
			}
			return err
		}

		reachable, err := s.access.WithTrx(tx).AccessibleMissionIDs(ctx, actor.ID)
		if err != nil {
			return err
		}
		if !reachable.Contains(missionID) {
			return cradomain.ErrForbidden
		}

		link = cradomain.CraMission{
			ID:        s.genID.Generate(),
			CraID:     craID,
			MissionID: missionID,
			CreatedAt: s.clock.Now(),
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&link)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return cradomain.ErrMissionLinked
		}
		return nil
	})
	if err != nil {
		return result.Fail[cradomain.CraMission](s.failureFor(err, "mission"))
	}
	s.recordAudit(ctx, actor, "cra.mission_attached", "cra", craID.String(), map[string]any{
		"mission_id": missionID.String(),
	})
	return result.OK(link)
}

// reportForUpdate fetches the report under a row lock so concurrent
// submits, locks, and entry mutations serialize on the report row.
func (s *Service) reportForUpdate(tx *gorm.DB, id snowflake.ID) (*cradomain.Cra, error) {
	var cra cradomain.Cra
	if err := db.ForUpdate(tx).First(&cra, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cradomain.ErrNotFound
		}
		return nil, err
	}
	return &cra, nil
}

func (s *Service) activeEntryCount(tx *gorm.DB, craID snowflake.ID) (int64, error) {
	var n int64
	err := tx.
		Table("cra_entries").
		Joins("JOIN cra_entry_links ON cra_entry_links.entry_id = cra_entries.id").
		Where("cra_entry_links.cra_id = ?", craID).
		Where("cra_entries.deleted_at IS NULL").
		Count(&n).Error
	return n, err
}

func (s *Service) recordAudit(ctx context.Context, actor identity.Actor, action, targetType, targetID string, metadata map[string]any) {
	if err := s.audit.Record(ctx, actor.ID, action, targetType, &targetID, metadata); err != nil {
		s.log.Warn("audit record failed", zap.String("action", action), zap.Error(err))
	}
}

func invalidTransitionFailure(from, to cradomain.CraStatus) *result.Failure {
	return result.Conflict("invalid_transition",
		fmt.Sprintf("cannot transition report from %s to %s", from, to)).
		WithResource("cra").
		WithDetails(map[string]any{"from": string(from), "to": string(to)})
}

var Module = fx.Module("cra.service",
	fx.Provide(NewService),
)
