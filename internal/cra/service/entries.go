package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	cradomain "github.com/indielance/cra/internal/cra/domain"
	"github.com/indielance/cra/internal/cra/validation"
	"github.com/indielance/cra/internal/identity"
	"github.com/indielance/cra/internal/result"
)

func (s *Service) CreateEntry(ctx context.Context, actor identity.Actor, req cradomain.CreateEntryRequest) result.Result[cradomain.CraEntry] {
	entry, err := s.createEntry(ctx, actor, req)
	if err != nil {
		return result.Fail[cradomain.CraEntry](s.failureFor(err, "cra_entry"))
	}
	s.recordAudit(ctx, actor, "cra.entry_created", "cra_entry", entry.ID.String(), map[string]any{
		"cra_id":   req.CraID.String(),
		"date":     entry.EntryDate.Format(validation.DateLayout),
		"quantity": entry.Quantity.String(),
	})
	return result.OK(entry)
}

func (s *Service) createEntry(ctx context.Context, actor identity.Actor, req cradomain.CreateEntryRequest) (cradomain.CraEntry, error) {
	if req.CraID == 0 {
		return cradomain.CraEntry{}, cradomain.ErrMissingInput
	}
	date, err := s.validator.ValidateDate(req.Date)
	if err != nil {
		return cradomain.CraEntry{}, err
	}
	if err := s.validator.ValidateQuantity(req.Quantity); err != nil {
		return cradomain.CraEntry{}, err
	}
	if err := s.validator.ValidateUnitPrice(req.UnitPrice); err != nil {
		return cradomain.CraEntry{}, err
	}
	description := strings.TrimSpace(req.Description)
	if err := s.validator.ValidateDescription(description); err != nil {
		return cradomain.CraEntry{}, err
	}

	var entry cradomain.CraEntry
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cra, err := s.reportForUpdate(tx, req.CraID)
		if err != nil {
			return err
		}
		if cra.CreatedBy != actor.ID {
			return cradomain.ErrForbidden
		}
		if cra.Status != cradomain.CraStatusDraft {
			return cradomain.ErrInvalidState
		}

		if req.MissionID != 0 {
			onReport, err := s.missionOnReport(tx, req.CraID, req.MissionID)
			if err != nil {
				return err
			}
			if !onReport {
				return cradomain.ErrMissionNotLinked
			}
		}

		// The join-based check catches duplicates early; the guard row's
		// unique index is what actually closes the race.
		dup, err := s.isDuplicate(tx, req.CraID, req.MissionID, date, 0)
		if err != nil {
			return err
		}
		if dup {
			return cradomain.ErrDuplicateEntry
		}

		now := s.clock.Now()
		entry = cradomain.CraEntry{
			ID:        s.genID.Generate(),
			EntryDate: date,
			Quantity:  req.Quantity,
			UnitPrice: req.UnitPrice,
			CreatedBy: actor.ID,
			CreatedAt: now,
			UpdatedAt: now,
			MissionID: req.MissionID,
		}
		if description != "" {
			entry.Description = &description
		}
		if err := tx.Create(&entry).Error; err != nil {
			return err
		}

		link := cradomain.CraEntryLink{
			ID:        s.genID.Generate(),
			CraID:     req.CraID,
			EntryID:   entry.ID,
			CreatedAt: now,
		}
		if err := tx.Create(&link).Error; err != nil {
			return err
		}

		if req.MissionID != 0 {
			em := cradomain.EntryMission{
				ID:        s.genID.Generate(),
				EntryID:   entry.ID,
				MissionID: req.MissionID,
				CreatedAt: now,
			}
			if err := tx.Create(&em).Error; err != nil {
				return err
			}
		}

		if err := s.insertGuard(tx, req.CraID, req.MissionID, date, entry.ID); err != nil {
			return err
		}
		return s.recalculate(tx, cra)
	})
	if err != nil {
		return cradomain.CraEntry{}, err
	}
	return entry, nil
}

func (s *Service) UpdateEntry(ctx context.Context, actor identity.Actor, req cradomain.UpdateEntryRequest) result.Result[cradomain.CraEntry] {
	entry, err := s.updateEntry(ctx, actor, req)
	if err != nil {
		return result.Fail[cradomain.CraEntry](s.failureFor(err, "cra_entry"))
	}
	s.recordAudit(ctx, actor, "cra.entry_updated", "cra_entry", entry.ID.String(), map[string]any{
		"cra_id": req.CraID.String(),
	})
	return result.OK(entry)
}

func (s *Service) updateEntry(ctx context.Context, actor identity.Actor, req cradomain.UpdateEntryRequest) (cradomain.CraEntry, error) {
	if req.CraID == 0 || req.EntryID == 0 {
		return cradomain.CraEntry{}, cradomain.ErrMissingInput
	}

	var updated cradomain.CraEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cra, err := s.reportForUpdate(tx, req.CraID)
		if err != nil {
			return err
		}
		if cra.CreatedBy != actor.ID {
			return cradomain.ErrForbidden
		}
		if cra.Status != cradomain.CraStatusDraft {
			return cradomain.ErrInvalidTransition
		}

		entry, err := s.entryOnReport(tx, req.CraID, req.EntryID, false)
		if err != nil {
			return err
		}

		date := entry.EntryDate
		if req.Date != nil {
			date, err = s.validator.ValidateDate(*req.Date)
			if err != nil {
				return err
			}
		}
		quantity := entry.Quantity
		if req.Quantity != nil {
			quantity = *req.Quantity
		}
		unitPrice := entry.UnitPrice
		if req.UnitPrice != nil {
			unitPrice = *req.UnitPrice
		}
		missionID := entry.MissionID
		if req.MissionID != nil {
			missionID = *req.MissionID
		}
		description := entry.Description
		if req.Description != nil {
			trimmed := strings.TrimSpace(*req.Description)
			if trimmed == "" {
				description = nil
			} else {
				description = &trimmed
			}
		}

		if err := s.validator.ValidateQuantity(quantity); err != nil {
			return err
		}
		if err := s.validator.ValidateUnitPrice(unitPrice); err != nil {
			return err
		}
		if description != nil {
			if err := s.validator.ValidateDescription(*description); err != nil {
				return err
			}
		}

		if missionID != 0 && missionID != entry.MissionID {
			onReport, err := s.missionOnReport(tx, req.CraID, missionID)
			if err != nil {
				return err
			}
			if !onReport {
				return cradomain.ErrMissionNotLinked
			}
		}

		triplesChanged := !date.Equal(entry.EntryDate) || missionID != entry.MissionID
		if triplesChanged {
			dup, err := s.isDuplicate(tx, req.CraID, missionID, date, entry.ID)
			if err != nil {
				return err
			}
			if dup {
				return cradomain.ErrDuplicateEntry
			}
		}

		now := s.clock.Now()
		if err := tx.Model(entry).Updates(map[string]any{
			"entry_date":  date,
			"quantity":    quantity,
			"unit_price":  unitPrice,
			"description": description,
			"updated_at":  now,
		}).Error; err != nil {
			return err
		}

		if missionID != entry.MissionID {
			if err := tx.Where("entry_id = ?", entry.ID).Delete(&cradomain.EntryMission{}).Error; err != nil {
				return err
			}
			if missionID != 0 {
				em := cradomain.EntryMission{
					ID:        s.genID.Generate(),
					EntryID:   entry.ID,
					MissionID: missionID,
					CreatedAt: now,
				}
				if err := tx.Create(&em).Error; err != nil {
					return err
				}
			}
		}

		if triplesChanged {
			if err := s.dropGuard(tx, req.CraID, entry.ID); err != nil {
				return err
			}
			if err := s.insertGuard(tx, req.CraID, missionID, date, entry.ID); err != nil {
				return err
			}
		}

		entry.EntryDate = date
		entry.Quantity = quantity
		entry.UnitPrice = unitPrice
		entry.Description = description
		entry.MissionID = missionID
		entry.UpdatedAt = now
		updated = *entry

		return s.recalculate(tx, cra)
	})
	if err != nil {
		return cradomain.CraEntry{}, err
	}
	return updated, nil
}

func (s *Service) DeleteEntry(ctx context.Context, actor identity.Actor, craID, entryID snowflake.ID) result.Result[cradomain.CraEntry] {
	entry, err := s.deleteEntry(ctx, actor, craID, entryID)
	if err != nil {
		return result.Fail[cradomain.CraEntry](s.failureFor(err, "cra_entry"))
	}
	s.recordAudit(ctx, actor, "cra.entry_deleted", "cra_entry", entry.ID.String(), map[string]any{
		"cra_id": craID.String(),
	})
	return result.OK(entry)
}

func (s *Service) deleteEntry(ctx context.Context, actor identity.Actor, craID, entryID snowflake.ID) (cradomain.CraEntry, error) {
	if craID == 0 || entryID == 0 {
		return cradomain.CraEntry{}, cradomain.ErrMissingInput
	}

	var deleted cradomain.CraEntry
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		cra, err := s.reportForUpdate(tx, craID)
		if err != nil {
			return err
		}
		if cra.CreatedBy != actor.ID {
			return cradomain.ErrForbidden
		}
		if cra.Status != cradomain.CraStatusDraft {
			return cradomain.ErrInvalidTransition
		}

		entry, err := s.entryOnReport(tx, craID, entryID, false)
		if err != nil {
			return err
		}

		// Soft delete: the row keeps its data and stays fetchable by id.
		if err := tx.Delete(entry).Error; err != nil {
			return err
		}
		if err := s.dropGuard(tx, craID, entry.ID); err != nil {
			return err
		}
		if err := s.recalculate(tx, cra); err != nil {
			return err
		}

		deleted = *entry
		deleted.DeletedAt = gorm.DeletedAt{Time: s.clock.Now(), Valid: true}
		return nil
	})
	if err != nil {
		return cradomain.CraEntry{}, err
	}
	return deleted, nil
}

func (s *Service) GetEntry(ctx context.Context, actor identity.Actor, craID, entryID snowflake.ID) result.Result[cradomain.CraEntry] {
	cra, err := s.getReport(ctx, actor, craID)
	if err != nil {
		return result.Fail[cradomain.CraEntry](s.failureFor(err, "cra"))
	}

	entry, err := s.entryOnReport(s.db.WithContext(ctx), cra.ID, entryID, true)
	if err != nil {
		return result.Fail[cradomain.CraEntry](s.failureFor(err, "cra_entry"))
	}
	return result.OK(*entry)
}

func (s *Service) ListEntries(ctx context.Context, actor identity.Actor, req cradomain.ListEntriesRequest) result.Result[[]cradomain.CraEntry] {
	cra, err := s.getReport(ctx, actor, req.CraID)
	if err != nil {
		return result.Fail[[]cradomain.CraEntry](s.failureFor(err, "cra"))
	}

	stmt := s.db.WithContext(ctx)
	if req.IncludeDeleted {
		stmt = stmt.Unscoped()
	}

	var entries []cradomain.CraEntry
	err = stmt.
		Joins("JOIN cra_entry_links ON cra_entry_links.entry_id = cra_entries.id").
		Where("cra_entry_links.cra_id = ?", cra.ID).
		Order("cra_entries.entry_date ASC, cra_entries.id ASC").
		Find(&entries).Error
	if err != nil {
		return result.Fail[[]cradomain.CraEntry](s.failureFor(err, "cra_entry"))
	}
	if err := s.resolveMissions(s.db.WithContext(ctx), entries); err != nil {
		return result.Fail[[]cradomain.CraEntry](s.failureFor(err, "cra_entry"))
	}
	return result.OK(entries)
}

// missionOnReport reports whether the mission is attached to the report.
func (s *Service) missionOnReport(tx *gorm.DB, craID, missionID snowflake.ID) (bool, error) {
	var n int64
	err := tx.Model(&cradomain.CraMission{}).
		Where("cra_id = ? AND mission_id = ?", craID, missionID).
		Count(&n).Error
	return n > 0, err
}

// entryOnReport fetches an entry through its report link. Soft-deleted
// entries are only visible when includeDeleted is set.
func (s *Service) entryOnReport(tx *gorm.DB, craID, entryID snowflake.ID, includeDeleted bool) (*cradomain.CraEntry, error) {
	var n int64
	err := tx.Model(&cradomain.CraEntryLink{}).
		Where("cra_id = ? AND entry_id = ?", craID, entryID).
		Count(&n).Error
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, cradomain.ErrNotFound
	}

	stmt := tx
	if includeDeleted {
		stmt = tx.Unscoped()
	}
	var entry cradomain.CraEntry
	if err := stmt.First(&entry, "id = ?", entryID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, cradomain.ErrNotFound
		}
		return nil, err
	}

	var em cradomain.EntryMission
	err = tx.First(&em, "entry_id = ?", entryID).Error
	switch {
	case err == nil:
		entry.MissionID = em.MissionID
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		return nil, err
	}
	return &entry, nil
}

// isDuplicate checks, inside the caller's transaction, whether an active
// entry already occupies the (report, mission, date) triple.
func (s *Service) isDuplicate(tx *gorm.DB, craID, missionID snowflake.ID, date time.Time, excludeEntryID snowflake.ID) (bool, error) {
	stmt := tx.
		Table("cra_entries").
		Joins("JOIN cra_entry_links ON cra_entry_links.entry_id = cra_entries.id").
		Where("cra_entry_links.cra_id = ?", craID).
		Where("cra_entries.entry_date = ?", date).
		Where("cra_entries.deleted_at IS NULL")

	if missionID != 0 {
		stmt = stmt.
			Joins("JOIN entry_missions ON entry_missions.entry_id = cra_entries.id").
			Where("entry_missions.mission_id = ?", missionID)
	} else {
		stmt = stmt.
			Joins("LEFT JOIN entry_missions ON entry_missions.entry_id = cra_entries.id").
			Where("entry_missions.entry_id IS NULL")
	}
	if excludeEntryID != 0 {
		stmt = stmt.Where("cra_entries.id <> ?", excludeEntryID)
	}

	var n int64
	if err := stmt.Count(&n).Error; err != nil {
		return false, err
	}
	return n > 0, nil
}

// insertGuard claims the (report, mission, date) triple. The unique index
// on the guard table is the authoritative duplicate safeguard; losing the
// insert race surfaces as duplicate_entry, same as the early check.
func (s *Service) insertGuard(tx *gorm.DB, craID, missionID snowflake.ID, date time.Time, entryID snowflake.ID) error {
	guard := cradomain.CraEntryGuard{
		ID:        s.genID.Generate(),
		CraID:     craID,
		MissionID: missionID,
		EntryDate: date,
		EntryID:   entryID,
	}
	res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&guard)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return cradomain.ErrDuplicateEntry
	}
	return nil
}

func (s *Service) dropGuard(tx *gorm.DB, craID, entryID snowflake.ID) error {
	return tx.Where("cra_id = ? AND entry_id = ?", craID, entryID).
		Delete(&cradomain.CraEntryGuard{}).Error
}
