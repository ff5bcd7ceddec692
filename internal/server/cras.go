package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"

	cradomain "github.com/indielance/cra/internal/cra/domain"
)

func pathID(c *gin.Context, name string) (snowflake.ID, bool) {
	id, err := snowflake.ParseString(c.Param(name))
	if err != nil || id == 0 {
		abortBadRequest(c, "invalid_id", "malformed resource id")
		return 0, false
	}
	return id, true
}

func (s *Server) CreateReport(c *gin.Context) {
	var req cradomain.CreateReportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request", "malformed request body")
		return
	}
	respond(c, http.StatusCreated, s.crasvc.CreateReport(c.Request.Context(), actor(c), req))
}

func (s *Server) ListReports(c *gin.Context) {
	respond(c, http.StatusOK, s.crasvc.ListReports(c.Request.Context(), actor(c)))
}

func (s *Server) GetReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.crasvc.GetReport(c.Request.Context(), actor(c), id))
}

func (s *Server) DestroyReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.crasvc.DestroyReport(c.Request.Context(), actor(c), id))
}

func (s *Server) SubmitReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.crasvc.SubmitReport(c.Request.Context(), actor(c), id))
}

func (s *Server) LockReport(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.crasvc.LockReport(c.Request.Context(), actor(c), id))
}

type attachMissionRequest struct {
	MissionID snowflake.ID `json:"mission_id"`
}

func (s *Server) AttachMission(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req attachMissionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request", "malformed request body")
		return
	}
	respond(c, http.StatusCreated, s.crasvc.AttachMission(c.Request.Context(), actor(c), id, req.MissionID))
}

func (s *Server) CreateEntry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req cradomain.CreateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request", "malformed request body")
		return
	}
	req.CraID = id
	respond(c, http.StatusCreated, s.crasvc.CreateEntry(c.Request.Context(), actor(c), req))
}

func (s *Server) UpdateEntry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entryID, ok := pathID(c, "entryId")
	if !ok {
		return
	}
	var req cradomain.UpdateEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortBadRequest(c, "invalid_request", "malformed request body")
		return
	}
	req.CraID = id
	req.EntryID = entryID
	respond(c, http.StatusOK, s.crasvc.UpdateEntry(c.Request.Context(), actor(c), req))
}

func (s *Server) DeleteEntry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entryID, ok := pathID(c, "entryId")
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.crasvc.DeleteEntry(c.Request.Context(), actor(c), id, entryID))
}

func (s *Server) GetEntry(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	entryID, ok := pathID(c, "entryId")
	if !ok {
		return
	}
	respond(c, http.StatusOK, s.crasvc.GetEntry(c.Request.Context(), actor(c), id, entryID))
}

func (s *Server) ListEntries(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	includeDeleted, _ := strconv.ParseBool(c.DefaultQuery("include_deleted", "false"))
	respond(c, http.StatusOK, s.crasvc.ListEntries(c.Request.Context(), actor(c), cradomain.ListEntriesRequest{
		CraID:          id,
		IncludeDeleted: includeDeleted,
	}))
}
