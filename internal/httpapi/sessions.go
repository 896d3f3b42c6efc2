package httpapi

import (
	"context"
	"net/http"

	"outreach-crm/internal/apperr"
	"outreach-crm/internal/calls"
	"outreach-crm/internal/eligibility"
	"outreach-crm/internal/session"

	"github.com/gin-gonic/gin"
)

// PreviewQueue builds a queue without starting a session.
func (h Handlers) PreviewQueue(c *gin.Context) {
	var cfg eligibility.Config
	if !bindOptional(c, &cfg) {
		return
	}
	q, err := h.Queues.Build(c.Request.Context(), cfg)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"size": len(q), "queue": q})
}

func (h Handlers) StartSession(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	var req session.StartRequest
	if !bindOptional(c, &req) {
		return
	}
	req.OperatorID = op

	s, resumed, err := h.Sessions.Start(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusCreated
	if resumed {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{"resumed": resumed, "session": s.View()})
}

// liveSession resolves :id to a session owned by the caller or aborts.
func (h Handlers) liveSession(c *gin.Context) (*session.Session, bool) {
	op, ok := operator(c)
	if !ok {
		return nil, false
	}
	s, err := h.Sessions.Get(c.Param("id"), op)
	if err != nil {
		writeError(c, err)
		return nil, false
	}
	return s, true
}

func (h Handlers) GetSession(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, s.View())
}

func (h Handlers) Advance(c *gin.Context) {
	h.viewOp(c, (*session.Session).Advance)
}

func (h Handlers) Previous(c *gin.Context) {
	h.viewOp(c, (*session.Session).Previous)
}

func (h Handlers) PauseSession(c *gin.Context) {
	h.viewOp(c, (*session.Session).Pause)
}

func (h Handlers) ResumeSession(c *gin.Context) {
	h.viewOp(c, (*session.Session).Resume)
}

func (h Handlers) viewOp(c *gin.Context, op func(*session.Session, context.Context) (session.View, error)) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	v, err := op(s, c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

type skipRequest struct {
	// ContactID targets a queued contact other than the current one.
	ContactID string `json:"contact_id"`
}

func (h Handlers) Skip(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req skipRequest
	if !bindOptional(c, &req) {
		return
	}
	ev, ended, err := s.Skip(c.Request.Context(), req.ContactID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"event": ev, "session_ended": ended, "session": s.View()})
}

type beginCallRequest struct {
	PhoneUsed string `json:"phone_used"`
}

func (h Handlers) BeginCall(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req beginCallRequest
	if !bindOptional(c, &req) {
		return
	}
	pc, err := s.BeginCall(c.Request.Context(), req.PhoneUsed)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

func (h Handlers) EndCall(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	pc, err := s.EndCall(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, pc)
}

type outcomeRequest struct {
	Outcome     string `json:"outcome"`
	Disposition string `json:"disposition"`
}

func (h Handlers) RecordOutcome(c *gin.Context) {
	s, ok := h.liveSession(c)
	if !ok {
		return
	}
	var req outcomeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badJSON(c)
		return
	}
	o, ok := calls.ParseOutcome(req.Outcome)
	if !ok {
		writeError(c, apperr.Invalid("outcome", "unknown outcome "+req.Outcome))
		return
	}
	d, ok := calls.ParseDisposition(req.Disposition)
	if !ok {
		writeError(c, apperr.Invalid("disposition", "unknown disposition "+req.Disposition))
		return
	}
	res, err := s.RecordOutcome(c.Request.Context(), o, d)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h Handlers) EndSession(c *gin.Context) {
	op, ok := operator(c)
	if !ok {
		return
	}
	rec, err := h.Sessions.End(c.Request.Context(), c.Param("id"), op)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}
