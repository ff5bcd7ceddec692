package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"

	"github.com/indielance/cra/internal/identity"
	"github.com/indielance/cra/internal/result"
)

// CreateReportRequest opens a new draft report for a billing period.
type CreateReportRequest struct {
	Month    int    `json:"month"`
	Year     int    `json:"year"`
	Currency string `json:"currency"`
}

// CreateEntryRequest adds a dated line item to a draft report. MissionID is
// optional; when set, the mission must already be attached to the report.
type CreateEntryRequest struct {
	CraID       snowflake.ID    `json:"cra_id"`
	MissionID   snowflake.ID    `json:"mission_id"`
	Date        string          `json:"date"`
	Quantity    decimal.Decimal `json:"quantity"`
	UnitPrice   int64           `json:"unit_price"`
	Description string          `json:"description"`
}

// UpdateEntryRequest patches an existing entry. Nil fields are left as-is.
type UpdateEntryRequest struct {
	CraID       snowflake.ID     `json:"-"`
	EntryID     snowflake.ID     `json:"-"`
	Date        *string          `json:"date"`
	Quantity    *decimal.Decimal `json:"quantity"`
	UnitPrice   *int64           `json:"unit_price"`
	Description *string          `json:"description"`
	MissionID   *snowflake.ID    `json:"mission_id"`
}

// ListEntriesRequest filters the entry listing of one report.
type ListEntriesRequest struct {
	CraID          snowflake.ID
	IncludeDeleted bool
}

// Service is the CRA lifecycle engine. Every operation takes the acting
// user explicitly and returns a uniform result: business conditions ride
// the failure branch, never a panic or a bare error.
type Service interface {
	CreateReport(ctx context.Context, actor identity.Actor, req CreateReportRequest) result.Result[Cra]
	GetReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[Cra]
	ListReports(ctx context.Context, actor identity.Actor) result.Result[[]Cra]
	SubmitReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[Cra]
	LockReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[Cra]
	DestroyReport(ctx context.Context, actor identity.Actor, id snowflake.ID) result.Result[Cra]

	AttachMission(ctx context.Context, actor identity.Actor, craID, missionID snowflake.ID) result.Result[CraMission]

	CreateEntry(ctx context.Context, actor identity.Actor, req CreateEntryRequest) result.Result[CraEntry]
	UpdateEntry(ctx context.Context, actor identity.Actor, req UpdateEntryRequest) result.Result[CraEntry]
	DeleteEntry(ctx context.Context, actor identity.Actor, craID, entryID snowflake.ID) result.Result[CraEntry]
	GetEntry(ctx context.Context, actor identity.Actor, craID, entryID snowflake.ID) result.Result[CraEntry]
	ListEntries(ctx context.Context, actor identity.Actor, req ListEntriesRequest) result.Result[[]CraEntry]
}
