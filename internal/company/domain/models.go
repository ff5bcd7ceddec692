// Package domain contains persistence models for companies and memberships.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
)

// Role is a company-level permission tier. The join chain
// user -> company -> mission -> report derives report visibility from it.
type Role string

const (
	RoleIndependent Role = "independent"
	RoleClient      Role = "client"
)

// ValidRole reports whether role is one of the known tiers.
func ValidRole(role Role) bool {
	switch role {
	case RoleIndependent, RoleClient:
		return true
	default:
		return false
	}
}

// Company groups users and missions.
type Company struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"type:text;not null" json:"name"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
	UpdatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"updated_at"`
}

// TableName sets the database table name.
func (Company) TableName() string { return "companies" }

// CompanyMember associates a user with a company under a role.
type CompanyMember struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	CompanyID snowflake.ID `gorm:"not null;index;uniqueIndex:ux_company_user,priority:1" json:"company_id"`
	UserID    snowflake.ID `gorm:"not null;index;uniqueIndex:ux_company_user,priority:2" json:"user_id"`
	Role      Role         `gorm:"type:text;not null" json:"role"`
	CreatedAt time.Time    `gorm:"not null;default:CURRENT_TIMESTAMP" json:"created_at"`
}

// TableName sets the database table name.
func (CompanyMember) TableName() string { return "company_members" }
