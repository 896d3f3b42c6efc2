package httpapi

import (
	"outreach-crm/internal/rbac"

	"github.com/gin-gonic/gin"
)

// Register mounts the dialer API on g. Authentication must already run on g.
func (h Handlers) Register(g *gin.RouterGroup) {
	d := g.Group("/dialer")
	d.Use(rbac.RequireOrg(), rbac.RequireAnyRole(rbac.Dialer...))
	{
		d.POST("/queue/preview", h.PreviewQueue)

		d.POST("/sessions", h.StartSession)
		s := d.Group("/sessions/:id")
		s.GET("", h.GetSession)
		s.POST("/advance", h.Advance)
		s.POST("/previous", h.Previous)
		s.POST("/skip", h.Skip)
		s.POST("/call/start", h.BeginCall)
		s.POST("/call/end", h.EndCall)
		s.POST("/outcome", h.RecordOutcome)
		s.POST("/pause", h.PauseSession)
		s.POST("/resume", h.ResumeSession)
		s.POST("/end", h.EndSession)

		d.GET("/capacity", h.GetCapacity)
		d.POST("/capacity/candidates", h.CapacityCandidates)

		d.POST("/pauses", h.CreatePause)
		d.POST("/pauses/bulk", h.BulkPause)
		d.POST("/pauses/bulk-unpause", h.BulkUnpause)
		d.GET("/pauses/:entity_type/:entity_id", h.PauseHistory)
		d.DELETE("/pauses/:entity_type/:entity_id", h.DeletePause)

		d.GET("/stats/today", h.StatsToday)
	}

	sup := d.Group("/capacity")
	sup.Use(rbac.RequireAnyRole(rbac.Supervisors...))
	{
		sup.POST("/fix", h.ApplyCapacityFix)
		sup.POST("/autofix", h.AutoFixCapacity)
	}
}
