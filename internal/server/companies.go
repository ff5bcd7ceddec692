package server

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/indielance/cra/internal/audit/domain"
	companydomain "github.com/indielance/cra/internal/company/domain"
	"github.com/indielance/cra/internal/identity"
	missiondomain "github.com/indielance/cra/internal/mission/domain"
	"github.com/indielance/cra/internal/result"
	"github.com/indielance/cra/pkg/db/pagination"
)

// supportFailure maps the plain errors of the company and mission services
// onto the same failure envelope the engine uses.
func supportFailure(err error) *result.Failure {
	switch {
	case errors.Is(err, companydomain.ErrCompanyMissing),
		errors.Is(err, missiondomain.ErrCompanyMissing):
		return result.NotFound("company")
	case errors.Is(err, companydomain.ErrMemberExists):
		return result.Conflict("member_exists", "user is already a member of this company")
	case errors.Is(err, companydomain.ErrInvalidName),
		errors.Is(err, companydomain.ErrInvalidRole),
		errors.Is(err, missiondomain.ErrInvalidName),
		errors.Is(err, missiondomain.ErrInvalidKind):
		return result.BadRequest(err.Error(), "invalid request")
	default:
		return result.Internal("")
	}
}

func (s *Server) CreateCompany(c *gin.Context) {
	var req companydomain.CreateCompanyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request", "malformed request body")
		return
	}

	company, err := s.companySvc.Create(c.Request.Context(), req)
	if err != nil {
		abortFailure(c, supportFailure(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": company})
}

func (s *Server) AddCompanyMember(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req companydomain.AddMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request", "malformed request body")
		return
	}
	req.CompanyID = id

	member, err := s.companySvc.AddMember(c.Request.Context(), req)
	if err != nil {
		abortFailure(c, supportFailure(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": member})
}

func (s *Server) ListCompanyMembers(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	members, err := s.companySvc.ListMembers(c.Request.Context(), id)
	if err != nil {
		abortFailure(c, supportFailure(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": members})
}

func (s *Server) CreateMission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req missiondomain.CreateMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request", "malformed request body")
		return
	}
	req.CompanyID = id

	mission, err := s.missionSvc.Create(c.Request.Context(), req)
	if err != nil {
		abortFailure(c, supportFailure(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": mission})
}

func (s *Server) ListCompanyMissions(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	missions, err := s.missionSvc.ListByCompany(c.Request.Context(), id)
	if err != nil {
		abortFailure(c, supportFailure(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": missions})
}

func (s *Server) ListAuditLogs(c *gin.Context) {
	var page pagination.Pagination
	if err := c.ShouldBindQuery(&page); err != nil {
		abortBadRequest(c, "invalid_request", "malformed query parameters")
		return
	}

	req := auditdomain.ListAuditLogRequest{
		Pagination: page,
		Action:     c.Query("action"),
		TargetType: c.Query("target_type"),
		TargetID:   c.Query("target_id"),
	}
	if raw := c.Query("actor_id"); raw != "" {
		id, ok := identity.ParseActorID(raw)
		if !ok {
			abortBadRequest(c, "invalid_request", "malformed actor_id")
			return
		}
		req.ActorID = id
	}
	if raw := c.Query("start_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortBadRequest(c, "invalid_request", "malformed start_at")
			return
		}
		req.StartAt = &t
	}
	if raw := c.Query("end_at"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			abortBadRequest(c, "invalid_request", "malformed end_at")
			return
		}
		req.EndAt = &t
	}

	resp, err := s.auditSvc.List(c.Request.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, auditdomain.ErrInvalidPageToken),
			errors.Is(err, auditdomain.ErrInvalidTimeRange):
			abortBadRequest(c, err.Error(), "invalid listing parameters")
		default:
			abortFailure(c, result.Internal("audit_log"))
		}
		return
	}
	c.JSON(http.StatusOK, resp)
}
