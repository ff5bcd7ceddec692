// Package domain contains persistence models and the service contract for
// activity reports (CRA) and their entries.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// CraStatus represents report lifecycle states.
type CraStatus string

const (
	CraStatusDraft     CraStatus = "draft"
	CraStatusSubmitted CraStatus = "submitted"
	CraStatusLocked    CraStatus = "locked"
)

// CanTransitionTo reports whether the transition is a legal single step.
// Transitions only advance: draft -> submitted -> locked.
func (s CraStatus) CanTransitionTo(next CraStatus) bool {
	switch s {
	case CraStatusDraft:
		return next == CraStatusSubmitted
	case CraStatusSubmitted:
		return next == CraStatusLocked
	default:
		return false
	}
}

// Cra is a monthly activity report. Totals are maintained by the service on
// every entry mutation, never computed lazily on read.
type Cra struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	Month       int             `gorm:"not null" json:"month"`
	Year        int             `gorm:"not null" json:"year"`
	Currency    string          `gorm:"type:text;not null" json:"currency"`
	Status      CraStatus       `gorm:"type:text;not null;default:'draft'" json:"status"`
	TotalDays   decimal.Decimal `gorm:"type:numeric(8,2);not null;default:0" json:"total_days"`
	TotalAmount int64           `gorm:"not null;default:0" json:"total_amount"`
	LockedAt    *time.Time      `gorm:"" json:"locked_at,omitempty"`
	CreatedBy   snowflake.ID    `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Cra) TableName() string { return "cras" }

// CraEntry is a dated line item. Deletion is always logical; soft-deleted
// entries stay fetchable by id but are excluded from totals, duplicate
// checks, and default listings.
type CraEntry struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	EntryDate   time.Time       `gorm:"type:date;not null;index" json:"date"`
	Quantity    decimal.Decimal `gorm:"type:numeric(6,2);not null" json:"quantity"`
	UnitPrice   int64           `gorm:"not null" json:"unit_price"`
	Description *string         `gorm:"type:text" json:"description,omitempty"`
	CreatedBy   snowflake.ID    `gorm:"not null;index" json:"created_by"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
	DeletedAt   gorm.DeletedAt  `gorm:"index" json:"deleted_at,omitempty"`

	// MissionID is resolved from the entry_missions link on reads.
	MissionID snowflake.ID `gorm:"-" json:"mission_id,omitempty"`
}

// TableName sets the database table name.
func (CraEntry) TableName() string { return "cra_entries" }

// CraEntryLink attaches an entry to a report.
type CraEntryLink struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CraID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_cra_entry,priority:1" json:"cra_id"`
	EntryID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_cra_entry,priority:2" json:"entry_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CraEntryLink) TableName() string { return "cra_entry_links" }

// CraMission attaches a mission to a report. A mission appears at most once
// per report.
type CraMission struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CraID     snowflake.ID `gorm:"not null;index;uniqueIndex:ux_cra_mission,priority:1" json:"cra_id"`
	MissionID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_cra_mission,priority:2" json:"mission_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CraMission) TableName() string { return "cra_missions" }

// EntryMission attaches an entry to the mission it bills against.
type EntryMission struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	EntryID   snowflake.ID `gorm:"not null;index;uniqueIndex:ux_entry_mission,priority:1" json:"entry_id"`
	MissionID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_entry_mission,priority:2" json:"mission_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (EntryMission) TableName() string { return "entry_missions" }

// CraEntryGuard is the storage-level duplicate safeguard: one active entry
// per (report, mission, date). Guard rows are inserted with the entry,
// moved when it is rescheduled, and removed when it is soft-deleted; the
// unique index on the triple closes the race the in-transaction check
// cannot. MissionID is zero for entries billed without a mission.
type CraEntryGuard struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CraID     snowflake.ID `gorm:"not null;uniqueIndex:ux_entry_guard_triple,priority:1" json:"cra_id"`
	MissionID snowflake.ID `gorm:"not null;uniqueIndex:ux_entry_guard_triple,priority:2" json:"mission_id"`
	EntryDate time.Time    `gorm:"type:date;not null;uniqueIndex:ux_entry_guard_triple,priority:3" json:"entry_date"`
	EntryID   snowflake.ID `gorm:"not null;index" json:"entry_id"`
}

// TableName sets the database table name.
func (CraEntryGuard) TableName() string { return "cra_entry_guards" }

// CraSnapshot is the immutable record written when a report is locked.
type CraSnapshot struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	CraID       snowflake.ID    `gorm:"not null;uniqueIndex:ux_cra_snapshot" json:"cra_id"`
	TotalDays   decimal.Decimal `gorm:"type:numeric(8,2);not null" json:"total_days"`
	TotalAmount int64           `gorm:"not null" json:"total_amount"`
	Currency    string          `gorm:"type:text;not null" json:"currency"`
	LockedAt    time.Time       `gorm:"not null" json:"locked_at"`
	Entries     datatypes.JSON  `gorm:"type:jsonb" json:"entries"`
	CreatedAt   time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CraSnapshot) TableName() string { return "cra_snapshots" }
