// Package domain contains persistence models for missions.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Kind distinguishes how a mission is billed.
type Kind string

const (
	KindTimeBased  Kind = "time_based"
	KindFixedPrice Kind = "fixed_price"
)

// ValidKind reports whether kind is a known billing mode.
func ValidKind(kind Kind) bool {
	switch kind {
	case KindTimeBased, KindFixedPrice:
		return true
	default:
		return false
	}
}

// Mission is a billable client engagement entries are billed against.
type Mission struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	Kind      Kind         `gorm:"type:text;not null" json:"kind"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Mission) TableName() string { return "missions" }

// CompanyMission links a mission to a company.
type CompanyMission struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_company_mission,priority:1" json:"company_id"`
	MissionID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_company_mission,priority:2" json:"mission_id"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CompanyMission) TableName() string { return "company_missions" }

type CreateMissionRequest struct {
	CompanyID snowflake.ID `json:"company_id"`
	Name      string       `json:"name"`
	Kind      Kind         `json:"kind"`
}

type Service interface {
	Create(ctx context.Context, req CreateMissionRequest) (Mission, error)
	ListByCompany(ctx context.Context, companyID snowflake.ID) ([]Mission, error)
}

var (
	ErrInvalidName    = errors.New("missing_input")
	ErrInvalidKind    = errors.New("invalid_mission_kind")
	ErrCompanyMissing = errors.New("not_found")
)
