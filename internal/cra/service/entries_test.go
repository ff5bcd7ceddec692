package service

import (
	"testing"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	cradomain "github.com/indielance/cra/internal/cra/domain"
	"github.com/indielance/cra/internal/result"
)

func (e *env) reloadReport(t *testing.T, id snowflake.ID) cradomain.Cra {
	t.Helper()
	var cra cradomain.Cra
	require.NoError(t, e.db.First(&cra, "id = ?", id).Error)
	return cra
}

func TestCreateEntryRecalculatesTotals(t *testing.T) {
	e := newEnv(t)
	actor, companyID := e.independentUser(t)
	cra := e.newReport(t, actor)
	missionID := e.newMission(t, companyID)
	e.attachMission(t, actor, cra.ID, missionID)

	e.addEntry(t, actor, cra.ID, missionID, "2025-01-10", "1.0", 50_000)

	reloaded := e.reloadReport(t, cra.ID)
	assert.True(t, reloaded.TotalDays.Equal(decimal.RequireFromString("1.0")), "total_days=%s", reloaded.TotalDays)
	assert.Equal(t, int64(50_000), reloaded.TotalAmount)

	e.addEntry(t, actor, cra.ID, missionID, "2025-01-11", "0.5", 50_000)

	reloaded = e.reloadReport(t, cra.ID)
	assert.True(t, reloaded.TotalDays.Equal(decimal.RequireFromString("1.5")), "total_days=%s", reloaded.TotalDays)
	assert.Equal(t, int64(75_000), reloaded.TotalAmount)
}

func TestCreateEntryDuplicateTriple(t *testing.T) {
	e := newEnv(t)
	actor, companyID := e.independentUser(t)
	cra := e.newReport(t, actor)
	first := e.newMission(t, companyID)
	second := e.newMission(t, companyID)
	e.attachMission(t, actor, cra.ID, first)
	e.attachMission(t, actor, cra.ID, second)

	e.addEntry(t, actor, cra.ID, first, "2025-01-10", "1.0", 50_000)

	res := e.svc.CreateEntry(e.ctx, actor, cradomain.CreateEntryRequest{
		CraID:     cra.ID,
		MissionID: first,
		Date:      "2025-01-10",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: 40_000,
	})
	assertFailure(t, res, result.StatusConflict, "duplicate_entry")

	// a different mission on the same date is a distinct triple
	e.addEntry(t, actor, cra.ID, second, "2025-01-10", "1.0", 40_000)

	// entries without a mission collide among themselves as well
	e.addEntry(t, actor, cra.ID, 0, "2025-01-12", "0.5", 30_000)
	res = e.svc.CreateEntry(e.ctx, actor, cradomain.CreateEntryRequest{
		CraID:     cra.ID,
		Date:      "2025-01-12",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: 30_000,
	})
	assertFailure(t, res, result.StatusConflict, "duplicate_entry")
}

func TestCreateEntryValidation(t *testing.T) {
	e := newEnv(t)
	actor, _ := e.independentUser(t)
	cra := e.newReport(t, actor)

	res := e.svc.CreateEntry(e.ctx, actor, cradomain.CreateEntryRequest{
		CraID: cra.ID, Date: "2025-02-01", Quantity: decimal.NewFromInt(1), UnitPrice: 50_000,
	})
	assertFailure(t, res, result.StatusBadRequest, "future_date_not_allowed")

	res = e.svc.CreateEntry(e.ctx, actor, cradomain.CreateEntryRequest{
		CraID: cra.ID, Date: "2025-01-10", Quantity: decimal.Zero, UnitPrice: 50_000,
	})
	assertFailure(t, res, result.StatusBadRequest, "invalid_quantity")

	res = e.svc.CreateEntry(e.ctx, actor, cradomain.CreateEntryRequest{
		CraID: cra.ID, Date: "2025-01-10", Quantity: decimal.NewFromInt(1), UnitPrice: 0,
	})
	assertFailure(t, res, result.StatusBadRequest, "invalid_unit_price")

	long := make([]byte, 501)
	for i := range long {
		long[i] = 'x'
	}
	res = e.svc.CreateEntry(e.ctx, actor, cradomain.CreateEntryRequest{
		CraID: cra.ID, Date: "2025-01-10", Quantity: decimal.NewFromInt(1), UnitPrice: 50_000,
		Description: string(long),
	})
	assertFailure(t, res, result.StatusBadRequest, "description_too_long")
}

func TestCreateEntryMissionMustBeAttached(t *testing.T) {
	e := newEnv(t)
	actor, companyID := e.independentUser(t)
	cra := e.newReport(t, actor)
	missionID := e.newMission(t, companyID)

	res := e.svc.CreateEntry(e.ctx, actor, cradomain.CreateEntryRequest{
		CraID:     cra.ID,
		MissionID: missionID,
		Date:      "2025-01-10",
		Quantity:  decimal.NewFromInt(1),
		UnitPrice: 50_000,
	})
	assertFailure(t, res, result.StatusBadRequest, "mission_not_on_report")
}

func TestUpdateEntry(t *testing.T) {
	e := newEnv(t)
	actor, companyID := e.independentUser(t)
	cra := e.newReport(t, actor)
	missionID := e.newMission(t, companyID)
	e.attachMission(t, actor, cra.ID, missionID)

	entry := e.addEntry(t, actor, cra.ID, missionID, "2025-01-10", "1.0", 50_000)
	e.addEntry(t, actor, cra.ID, missionID, "2025-01-11", "1.0", 50_000)

	q := decimal.RequireFromString("0.5")
	res := e.svc.UpdateEntry(e.ctx, actor, cradomain.UpdateEntryRequest{
		CraID:    cra.ID,
		EntryID:  entry.ID,
		Quantity: &q,
	})
	require.True(t, res.OK(), "%v", res.Failure())
	assert.True(t, res.Data().Quantity.Equal(q))

	reloaded := e.reloadReport(t, cra.ID)
	assert.True(t, reloaded.TotalDays.Equal(decimal.RequireFromString("1.5")), "total_days=%s", reloaded.TotalDays)
	assert.Equal(t, int64(75_000), reloaded.TotalAmount)

	// moving onto an occupied (mission, date) slot is refused
	date := "2025-01-11"
	res = e.svc.UpdateEntry(e.ctx, actor, cradomain.UpdateEntryRequest{
		CraID:   cra.ID,
		EntryID: entry.ID,
		Date:    &date,
	})
	assertFailure(t, res, result.StatusConflict, "duplicate_entry")

	// moving to a free date releases the old slot
	free := "2025-01-12"
	res = e.svc.UpdateEntry(e.ctx, actor, cradomain.UpdateEntryRequest{
		CraID:   cra.ID,
		EntryID: entry.ID,
		Date:    &free,
	})
	require.True(t, res.OK(), "%v", res.Failure())

	e.addEntry(t, actor, cra.ID, missionID, "2025-01-10", "1.0", 50_000)
}

func TestDeleteEntrySoftDeletes(t *testing.T) {
	e := newEnv(t)
	actor, companyID := e.independentUser(t)
	cra := e.newReport(t, actor)
	missionID := e.newMission(t, companyID)
	e.attachMission(t, actor, cra.ID, missionID)

	entry := e.addEntry(t, actor, cra.ID, missionID, "2025-01-10", "1.0", 50_000)

	res := e.svc.DeleteEntry(e.ctx, actor, cra.ID, entry.ID)
	require.True(t, res.OK(), "%v", res.Failure())

	// totals no longer count the deleted entry
	reloaded := e.reloadReport(t, cra.ID)
	assert.True(t, reloaded.TotalDays.IsZero(), "total_days=%s", reloaded.TotalDays)
	assert.Zero(t, reloaded.TotalAmount)

	// excluded from the default listing
	listed := e.svc.ListEntries(e.ctx, actor, cradomain.ListEntriesRequest{CraID: cra.ID})
	require.True(t, listed.OK())
	assert.Empty(t, listed.Data())

	// visible when deleted entries are requested
	listed = e.svc.ListEntries(e.ctx, actor, cradomain.ListEntriesRequest{CraID: cra.ID, IncludeDeleted: true})
	require.True(t, listed.OK())
	require.Len(t, listed.Data(), 1)

	// still fetchable by id
	got := e.svc.GetEntry(e.ctx, actor, cra.ID, entry.ID)
	require.True(t, got.OK(), "%v", got.Failure())
	assert.Equal(t, entry.ID, got.Data().ID)

	// the triple is free again
	e.addEntry(t, actor, cra.ID, missionID, "2025-01-10", "1.0", 50_000)

	// a deleted entry cannot be updated
	q := decimal.NewFromInt(2)
	updateRes := e.svc.UpdateEntry(e.ctx, actor, cradomain.UpdateEntryRequest{
		CraID:    cra.ID,
		EntryID:  entry.ID,
		Quantity: &q,
	})
	assertFailure(t, updateRes, result.StatusNotFound, "not_found")
}

func TestRecalculateIsIdempotent(t *testing.T) {
	e := newEnv(t)
	actor, companyID := e.independentUser(t)
	cra := e.newReport(t, actor)
	missionID := e.newMission(t, companyID)
	e.attachMission(t, actor, cra.ID, missionID)

	e.addEntry(t, actor, cra.ID, missionID, "2025-01-10", "1.25", 40_000)
	e.addEntry(t, actor, cra.ID, missionID, "2025-01-11", "0.75", 40_000)

	reloaded := e.reloadReport(t, cra.ID)
	require.NoError(t, e.impl.recalculate(e.db, &reloaded))
	first := e.reloadReport(t, cra.ID)

	require.NoError(t, e.impl.recalculate(e.db, &first))
	second := e.reloadReport(t, cra.ID)

	assert.True(t, first.TotalDays.Equal(second.TotalDays))
	assert.Equal(t, first.TotalAmount, second.TotalAmount)
	assert.True(t, second.TotalDays.Equal(decimal.RequireFromString("2.0")), "total_days=%s", second.TotalDays)
	assert.Equal(t, int64(80_000), second.TotalAmount)
}

func TestEntryMissionResolution(t *testing.T) {
	e := newEnv(t)
	actor, companyID := e.independentUser(t)
	cra := e.newReport(t, actor)
	missionID := e.newMission(t, companyID)
	e.attachMission(t, actor, cra.ID, missionID)

	entry := e.addEntry(t, actor, cra.ID, missionID, "2025-01-10", "1.0", 50_000)

	got := e.svc.GetEntry(e.ctx, actor, cra.ID, entry.ID)
	require.True(t, got.OK(), "%v", got.Failure())
	assert.Equal(t, missionID, got.Data().MissionID)

	listed := e.svc.ListEntries(e.ctx, actor, cradomain.ListEntriesRequest{CraID: cra.ID})
	require.True(t, listed.OK())
	require.Len(t, listed.Data(), 1)
	assert.Equal(t, missionID, listed.Data()[0].MissionID)
}
