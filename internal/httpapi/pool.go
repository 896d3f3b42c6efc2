package httpapi

import (
	"net/http"

	"outreach-crm/internal/audit"
	"outreach-crm/internal/auth"
	"outreach-crm/internal/capacity"
	"outreach-crm/internal/pause"
	"outreach-crm/internal/rbac"

	"github.com/gin-gonic/gin"
)

// --- Capacity ---

func (h Handlers) GetCapacity(c *gin.Context) {
	st, err := h.Capacity.Assess(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func (h Handlers) CapacityCandidates(c *gin.Context) {
	var opts capacity.ClassifyOptions
	if !bindOptional(c, &opts) {
		return
	}
	cands, st, err := h.Capacity.Candidates(c.Request.Context(), opts)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": st, "candidates": cands})
}

type fixRequest struct {
	Candidates []capacity.Candidate `json:"candidates"`
}

// ApplyCapacityFix applies an operator-reviewed candidate list.
func (h Handlers) ApplyCapacityFix(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req fixRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	if len(req.Candidates) == 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "candidates required", "field": "candidates"})
		return
	}
	c.JSON(http.StatusOK, h.Capacity.ApplyFix(c.Request.Context(), req.Candidates, op))
}

func (h Handlers) AutoFixCapacity(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var opts capacity.ClassifyOptions
	if !bindOptional(c, &opts) {
		return
	}
	rep, err := h.Capacity.AutoFix(c.Request.Context(), opts, op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rep)
}

// --- Pauses ---

func (h Handlers) CreatePause(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req pause.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	req.ActorID = op
	res, err := h.Pauses.Pause(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, res)
}

type bulkPauseRequest struct {
	EntityType audit.EntityType `json:"entity_type"`
	EntityIDs  []string         `json:"entity_ids"`
	Duration   pause.Duration   `json:"duration"`
	ReasonCode string           `json:"reason_code"`
	Notes      string           `json:"notes,omitempty"`
}

func (h Handlers) BulkPause(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req bulkPauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	res, err := h.Pauses.BulkPause(c.Request.Context(), req.EntityType, req.EntityIDs, req.Duration, req.ReasonCode, req.Notes, op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) DeletePause(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	res, err := h.Pauses.Unpause(c.Request.Context(), audit.EntityType(c.Param("entity_type")), c.Param("entity_id"), op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

type bulkUnpauseRequest struct {
	EntityType audit.EntityType `json:"entity_type"`
	EntityIDs  []string         `json:"entity_ids"`
}

func (h Handlers) BulkUnpause(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req bulkUnpauseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	res, err := h.Pauses.BulkUnpause(c.Request.Context(), req.EntityType, req.EntityIDs, op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// PauseHistory lists the audit trail for one entity, oldest first.
func (h Handlers) PauseHistory(c *gin.Context) {
	evs, err := h.Audit.History(c.Request.Context(), audit.EntityType(c.Param("entity_type")), c.Param("entity_id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": evs})
}

// --- Stats ---

// StatsToday reports the caller's numbers. Supervisors may pass
// ?operator_id=<id> for another operator or ?scope=all for the whole team.
func (h Handlers) StatsToday(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	target := op
	if other, all := c.Query("operator_id"), c.Query("scope") == "all"; other != "" || all {
		role, _ := auth.Role(c.Request.Context())
		if !rbac.IsSuperAdmin(role) && role != rbac.RoleOwner && role != rbac.RoleManager {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		target = other
		if all {
			target = ""
		}
	}
	st, err := h.Stats.Daily(c.Request.Context(), target)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
