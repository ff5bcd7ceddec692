package service

import (
	"encoding/json"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	cradomain "github.com/indielance/cra/internal/cra/domain"
	"github.com/indielance/cra/internal/cra/validation"
)

// recalculate recomputes total_days and total_amount from the report's
// active entries and persists both on the report row. It runs inside the
// caller's transaction, after every entry mutation, and is idempotent:
// the same entry set always produces the same totals.
func (s *Service) recalculate(tx *gorm.DB, cra *cradomain.Cra) error {
	entries, err := s.activeEntries(tx, cra.ID)
	if err != nil {
		return err
	}

	totalDays := decimal.Zero
	totalAmount := decimal.Zero
	for _, e := range entries {
		totalDays = totalDays.Add(e.Quantity)
		totalAmount = totalAmount.Add(e.Quantity.Mul(decimal.NewFromInt(e.UnitPrice)))
	}
	amount := totalAmount.Round(0).IntPart()

	now := s.clock.Now()
	if err := tx.Model(cra).Updates(map[string]any{
		"total_days":   totalDays,
		"total_amount": amount,
		"updated_at":   now,
	}).Error; err != nil {
		return err
	}
	cra.TotalDays = totalDays
	cra.TotalAmount = amount
	cra.UpdatedAt = now
	return nil
}

// activeEntries loads the non-deleted entries linked to the report, with
// their mission attachment resolved.
func (s *Service) activeEntries(tx *gorm.DB, craID snowflake.ID) ([]cradomain.CraEntry, error) {
	var entries []cradomain.CraEntry
	err := tx.
		Joins("JOIN cra_entry_links ON cra_entry_links.entry_id = cra_entries.id").
		Where("cra_entry_links.cra_id = ?", craID).
		Order("cra_entries.entry_date ASC, cra_entries.id ASC").
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	if err := s.resolveMissions(tx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// resolveMissions fills CraEntry.MissionID from the entry_missions link.
func (s *Service) resolveMissions(tx *gorm.DB, entries []cradomain.CraEntry) error {
	if len(entries) == 0 {
		return nil
	}
	ids := make([]snowflake.ID, 0, len(entries))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}

	var links []cradomain.EntryMission
	if err := tx.Where("entry_id IN ?", ids).Find(&links).Error; err != nil {
		return err
	}
	byEntry := make(map[snowflake.ID]snowflake.ID, len(links))
	for _, l := range links {
		byEntry[l.EntryID] = l.MissionID
	}
	for i := range entries {
		entries[i].MissionID = byEntry[entries[i].ID]
	}
	return nil
}

type snapshotEntry struct {
	ID          string  `json:"id"`
	Date        string  `json:"date"`
	Quantity    string  `json:"quantity"`
	UnitPrice   int64   `json:"unit_price"`
	MissionID   string  `json:"mission_id,omitempty"`
	Description *string `json:"description,omitempty"`
}

// writeSnapshot freezes the report's entries and totals at lock time into
// an immutable row, in the same transaction as the status flip.
func (s *Service) writeSnapshot(tx *gorm.DB, cra *cradomain.Cra, lockedAt time.Time) error {
	entries, err := s.activeEntries(tx, cra.ID)
	if err != nil {
		return err
	}

	frozen := make([]snapshotEntry, 0, len(entries))
	for _, e := range entries {
		item := snapshotEntry{
			ID:          e.ID.String(),
			Date:        e.EntryDate.Format(validation.DateLayout),
			Quantity:    e.Quantity.String(),
			UnitPrice:   e.UnitPrice,
			Description: e.Description,
		}
		if e.MissionID != 0 {
			item.MissionID = e.MissionID.String()
		}
		frozen = append(frozen, item)
	}
	payload, err := json.Marshal(frozen)
	if err != nil {
		return err
	}

	snapshot := cradomain.CraSnapshot{
		ID:          s.genID.Generate(),
		CraID:       cra.ID,
		TotalDays:   cra.TotalDays,
		TotalAmount: cra.TotalAmount,
		Currency:    cra.Currency,
		LockedAt:    lockedAt,
		Entries:     datatypes.JSON(payload),
		CreatedAt:   lockedAt,
	}
	return tx.Create(&snapshot).Error
}
