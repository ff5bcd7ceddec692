// Package e2e drives the full report lifecycle over HTTP: company and
// mission setup, report creation, entries, submit, lock, and the audit
// trail, all against the real router and services on an in-memory database.
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"

	auditdomain "github.com/indielance/cra/internal/audit/domain"
	auditrepo "github.com/indielance/cra/internal/audit/repository"
	auditservice "github.com/indielance/cra/internal/audit/service"
	"github.com/indielance/cra/internal/clock"
	companydomain "github.com/indielance/cra/internal/company/domain"
	companyservice "github.com/indielance/cra/internal/company/service"
	"github.com/indielance/cra/internal/config"
	"github.com/indielance/cra/internal/cra/access"
	cradomain "github.com/indielance/cra/internal/cra/domain"
	craservice "github.com/indielance/cra/internal/cra/service"
	"github.com/indielance/cra/internal/cra/validation"
	missiondomain "github.com/indielance/cra/internal/mission/domain"
	missionservice "github.com/indielance/cra/internal/mission/service"
	"github.com/indielance/cra/internal/server"
)

var (
	metricsOnce sync.Once
	httpMetrics *server.HTTPMetrics
)

// metrics registers prometheus collectors once per test binary.
func metrics() *server.HTTPMetrics {
	metricsOnce.Do(func() {
		httpMetrics = server.NewHTTPMetrics()
	})
	return httpMetrics
}

type harness struct {
	t      *testing.T
	router http.Handler
	db     *gorm.DB
}

func newHarness(t *testing.T) *harness {
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
		&cradomain.CraEntry{},
		&cradomain.CraEntryLink{},
		&cradomain.CraMission{},
		&cradomain.EntryMission{},
		&cradomain.CraEntryGuard{},
		&cradomain.CraSnapshot{},
		&auditdomain.AuditLog{},
	))

	log := zap.NewNop()
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 1, 20, 12, 0, 0, 0, time.UTC))

	auditSvc := auditservice.NewService(auditservice.Params{
		DB: db, Log: log, GenID: node, Clock: clk, Repo: auditrepo.Provide(),
	})
	craSvc := craservice.NewService(craservice.ServiceParam{
		DB:        db,
		Log:       log,
		GenID:     node,
		Clock:     clk,
		Validator: validation.NewEngineWithPolicy(validation.CurrentPolicy(), clk, []string{"EUR", "USD"}),
		Access:    access.NewControl(access.ControlParam{DB: db, Log: log}),
		Audit:     auditSvc,
	})
	companySvc := companyservice.NewService(companyservice.ServiceParam{DB: db, Log: log, GenID: node})
	missionSvc := missionservice.NewService(missionservice.ServiceParam{DB: db, Log: log, GenID: node})

	cfg := config.Config{AppVersion: "test", HTTPAddr: ":0"}
	engine := server.NewEngine(cfg, log, metrics())
	server.NewServer(server.ServerParams{
		Gin:        engine,
		Cfg:        cfg,
		Log:        log,
		DB:         db,
		CraSvc:     craSvc,
		CompanySvc: companySvc,
		MissionSvc: missionSvc,
		AuditSvc:   auditSvc,
	})

	return &harness{t: t, router: engine, db: db}
}

// call performs one request as the given user and decodes the envelope.
func (h *harness) call(method, path, userID string, body any) (int, map[string]json.RawMessage) {
	h.t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(h.t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if userID != "" {
		req.Header.Set(server.HeaderUser, userID)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)

	envelope := map[string]json.RawMessage{}
	if len(rec.Body.Bytes()) > 0 {
		require.NoError(h.t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	}
	return rec.Code, envelope
}

func (h *harness) data(envelope map[string]json.RawMessage, out any) {
	h.t.Helper()
	raw, ok := envelope["data"]
	require.True(h.t, ok, "expected data envelope, got %v", envelope)
	require.NoError(h.t, json.Unmarshal(raw, out))
}

func (h *harness) errorCode(envelope map[string]json.RawMessage) string {
	h.t.Helper()
	raw, ok := envelope["error"]
	require.True(h.t, ok, "expected error envelope, got %v", envelope)
	var failure struct {
		Code string `json:"error_code"`
	}
	require.NoError(h.t, json.Unmarshal(raw, &failure))
	return failure.Code
}

func TestReportLifecycleOverHTTP(t *testing.T) {
	h := newHarness(t)

	const freelancer = "1001"
	const client = "1002"
	const outsider = "4242"

	// -------- Company and mission setup --------
	status, env := h.call("POST", "/api/companies", freelancer, map[string]any{"name": "Acme"})
	require.Equal(t, http.StatusCreated, status)
	var company struct {
		ID string `json:"id"`
	}
	h.data(env, &company)

	for user, role := range map[string]string{freelancer: "independent", client: "client"} {
		status, _ = h.call("POST", "/api/companies/"+company.ID+"/members", freelancer, map[string]any{
			"user_id": user, "role": role,
		})
		require.Equal(t, http.StatusCreated, status)
	}

	status, env = h.call("POST", "/api/companies/"+company.ID+"/missions", freelancer, map[string]any{
		"name": "backend", "kind": "time_based",
	})
	require.Equal(t, http.StatusCreated, status)
	var mission struct {
		ID string `json:"id"`
	}
	h.data(env, &mission)

	// -------- Draft report --------
	status, env = h.call("POST", "/api/cras", freelancer, map[string]any{
		"month": 1, "year": 2025, "currency": "eur",
	})
	require.Equal(t, http.StatusCreated, status)
	var report struct {
		ID       string `json:"id"`
		Status   string `json:"status"`
		Currency string `json:"currency"`
	}
	h.data(env, &report)
	assert.Equal(t, "draft", report.Status)
	assert.Equal(t, "EUR", report.Currency)

	// clients cannot open reports
	status, env = h.call("POST", "/api/cras", client, map[string]any{
		"month": 1, "year": 2025, "currency": "EUR",
	})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient_permissions", h.errorCode(env))

	// submit before any entry exists is refused
	status, env = h.call("POST", "/api/cras/"+report.ID+"/submit", freelancer, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "cra_has_no_entries", h.errorCode(env))

	// -------- Entries --------
	status, _ = h.call("POST", "/api/cras/"+report.ID+"/missions", freelancer, map[string]any{
		"mission_id": mission.ID,
	})
	require.Equal(t, http.StatusCreated, status)

	status, env = h.call("POST", "/api/cras/"+report.ID+"/entries", freelancer, map[string]any{
		"mission_id": mission.ID, "date": "2025-01-10", "quantity": "1.0", "unit_price": 50000,
	})
	require.Equal(t, http.StatusCreated, status)
	var entry struct {
		ID string `json:"id"`
	}
	h.data(env, &entry)

	// a second entry on the same mission and date is a duplicate
	status, env = h.call("POST", "/api/cras/"+report.ID+"/entries", freelancer, map[string]any{
		"mission_id": mission.ID, "date": "2025-01-10", "quantity": "0.5", "unit_price": 50000,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "duplicate_entry", h.errorCode(env))

	// totals reflect the single entry
	status, env = h.call("GET", "/api/cras/"+report.ID, freelancer, nil)
	require.Equal(t, http.StatusOK, status)
	var fetched struct {
		TotalDays   string `json:"total_days"`
		TotalAmount int64  `json:"total_amount"`
	}
	h.data(env, &fetched)
	assert.Equal(t, int64(50000), fetched.TotalAmount)

	// the client can read through the mission join but not mutate
	status, _ = h.call("GET", "/api/cras/"+report.ID, client, nil)
	assert.Equal(t, http.StatusOK, status)
	status, env = h.call("POST", "/api/cras/"+report.ID+"/submit", client, nil)
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "insufficient_permissions", h.errorCode(env))

	// outsiders see nothing
	status, _ = h.call("GET", "/api/cras/"+report.ID, outsider, nil)
	assert.Equal(t, http.StatusForbidden, status)

	// -------- Submit and lock --------
	status, env = h.call("POST", "/api/cras/"+report.ID+"/submit", freelancer, nil)
	require.Equal(t, http.StatusOK, status)
	h.data(env, &report)
	assert.Equal(t, "submitted", report.Status)

	// submitted reports refuse new entries
	status, env = h.call("POST", "/api/cras/"+report.ID+"/entries", freelancer, map[string]any{
		"date": "2025-01-11", "quantity": "1.0", "unit_price": 50000,
	})
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_cra_state", h.errorCode(env))

	status, env = h.call("POST", "/api/cras/"+report.ID+"/lock", freelancer, nil)
	require.Equal(t, http.StatusOK, status)
	h.data(env, &report)
	assert.Equal(t, "locked", report.Status)

	// locking twice is an invalid transition
	status, env = h.call("POST", "/api/cras/"+report.ID+"/lock", freelancer, nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "invalid_transition", h.errorCode(env))

	// a snapshot exists for the locked report
	var snapshots int64
	require.NoError(t, h.db.Model(&cradomain.CraSnapshot{}).Count(&snapshots).Error)
	assert.Equal(t, int64(1), snapshots)

	// -------- Audit trail --------
	status, env = h.call("GET", "/api/audit-logs", freelancer, nil)
	require.Equal(t, http.StatusOK, status)
	var logs []struct {
		Action string `json:"action"`
	}
	require.Contains(t, env, "audit_logs")
	require.NoError(t, json.Unmarshal(env["audit_logs"], &logs))
	actions := make(map[string]bool, len(logs))
	for _, l := range logs {
		actions[l.Action] = true
	}
	assert.True(t, actions["cra.created"])
	assert.True(t, actions["cra.submitted"])
	assert.True(t, actions["cra.locked"])
}

func TestAuthenticationRequired(t *testing.T) {
	h := newHarness(t)

	status, env := h.call("GET", "/api/cras", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthorized", h.errorCode(env))

	status, _ = h.call("GET", "/api/cras", "not-a-number", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	// health does not require an actor
	status, _ = h.call("GET", "/health", "", nil)
	assert.Equal(t, http.StatusOK, status)
}
