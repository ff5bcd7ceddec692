package access

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	companydomain "github.com/indielance/cra/internal/company/domain"
	cradomain "github.com/indielance/cra/internal/cra/domain"
	missiondomain "github.com/indielance/cra/internal/mission/domain"
)

type fixture struct {
	db   *gorm.DB
	ctrl *Control
	node *snowflake.Node
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&companydomain.Company{},
		&companydomain.CompanyMember{},
		&missiondomain.Mission{},
		&missiondomain.CompanyMission{},
		&cradomain.Cra{},
		&cradomain.CraMission{},
	))

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	return &fixture{
		db:   db,
		ctrl: NewControl(ControlParam{DB: db, Log: zap.NewNop()}),
		node: node,
	}
}

func (f *fixture) addCompany(t *testing.T) snowflake.ID {
	t.Helper()
	company := companydomain.Company{ID: f.node.Generate(), Name: "acme"}
	require.NoError(t, f.db.Create(&company).Error)
	return company.ID
}

func (f *fixture) addMember(t *testing.T, companyID, userID snowflake.ID, role companydomain.Role) {
	t.Helper()
	member := companydomain.CompanyMember{
		ID:        f.node.Generate(),
		CompanyID: companyID,
		UserID:    userID,
		Role:      role,
	}
	require.NoError(t, f.db.Create(&member).Error)
}

func (f *fixture) addMission(t *testing.T, companyID snowflake.ID) snowflake.ID {
	t.Helper()
	mission := missiondomain.Mission{ID: f.node.Generate(), Name: "backend", Kind: missiondomain.KindTimeBased}
	require.NoError(t, f.db.Create(&mission).Error)
	link := missiondomain.CompanyMission{ID: f.node.Generate(), CompanyID: companyID, MissionID: mission.ID}
	require.NoError(t, f.db.Create(&link).Error)
	return mission.ID
}

func (f *fixture) addReport(t *testing.T, creator snowflake.ID, missionIDs ...snowflake.ID) cradomain.Cra {
	t.Helper()
	cra := cradomain.Cra{
		ID:        f.node.Generate(),
		Month:     1,
		Year:      2025,
		Currency:  "EUR",
		Status:    cradomain.CraStatusDraft,
		CreatedBy: creator,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	require.NoError(t, f.db.Create(&cra).Error)
	for _, missionID := range missionIDs {
		link := cradomain.CraMission{ID: f.node.Generate(), CraID: cra.ID, MissionID: missionID}
		require.NoError(t, f.db.Create(&link).Error)
	}
	return cra
}

func TestAccessibleReportIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.node.Generate()
	colleague := f.node.Generate()
	outsider := f.node.Generate()

	companyID := f.addCompany(t)
	f.addMember(t, companyID, creator, companydomain.RoleIndependent)
	f.addMember(t, companyID, colleague, companydomain.RoleClient)

	missionID := f.addMission(t, companyID)
	shared := f.addReport(t, creator, missionID)
	private := f.addReport(t, creator)

	ids, err := f.ctrl.AccessibleReportIDs(ctx, creator)
	require.NoError(t, err)
	assert.True(t, ids.Contains(shared.ID))
	assert.True(t, ids.Contains(private.ID))

	// colleague only reaches reports through the mission join
	ids, err = f.ctrl.AccessibleReportIDs(ctx, colleague)
	require.NoError(t, err)
	assert.True(t, ids.Contains(shared.ID))
	assert.False(t, ids.Contains(private.ID))

	ids, err = f.ctrl.AccessibleReportIDs(ctx, outsider)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAccessibleMissionIDs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	member := f.node.Generate()
	outsider := f.node.Generate()

	companyID := f.addCompany(t)
	f.addMember(t, companyID, member, companydomain.RoleIndependent)
	missionID := f.addMission(t, companyID)

	ids, err := f.ctrl.AccessibleMissionIDs(ctx, member)
	require.NoError(t, err)
	assert.True(t, ids.Contains(missionID))

	ids, err = f.ctrl.AccessibleMissionIDs(ctx, outsider)
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestAuthorizeAccess(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	creator := f.node.Generate()
	colleague := f.node.Generate()
	outsider := f.node.Generate()

	companyID := f.addCompany(t)
	f.addMember(t, companyID, creator, companydomain.RoleIndependent)
	f.addMember(t, companyID, colleague, companydomain.RoleClient)
	missionID := f.addMission(t, companyID)
	cra := f.addReport(t, creator, missionID)

	assert.NoError(t, f.ctrl.AuthorizeAccess(ctx, creator, &cra))
	assert.NoError(t, f.ctrl.AuthorizeAccess(ctx, colleague, &cra))
	assert.ErrorIs(t, f.ctrl.AuthorizeAccess(ctx, outsider, &cra), cradomain.ErrForbidden)
}

func TestAuthorizeModification(t *testing.T) {
	f := newFixture(t)

	creator := f.node.Generate()
	other := f.node.Generate()
	cra := f.addReport(t, creator)

	assert.NoError(t, f.ctrl.AuthorizeModification(creator, &cra))
	assert.ErrorIs(t, f.ctrl.AuthorizeModification(other, &cra), cradomain.ErrForbidden)

	cra.Status = cradomain.CraStatusSubmitted
	assert.ErrorIs(t, f.ctrl.AuthorizeModification(creator, &cra), cradomain.ErrReportSubmitted)

	cra.Status = cradomain.CraStatusLocked
	assert.ErrorIs(t, f.ctrl.AuthorizeModification(creator, &cra), cradomain.ErrReportLocked)
}

func TestHasIndependentRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	independent := f.node.Generate()
	client := f.node.Generate()

	companyID := f.addCompany(t)
	f.addMember(t, companyID, independent, companydomain.RoleIndependent)
	f.addMember(t, companyID, client, companydomain.RoleClient)

	ok, err := f.ctrl.HasIndependentRole(ctx, independent)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.ctrl.HasIndependentRole(ctx, client)
	require.NoError(t, err)
	assert.False(t, ok)
}
