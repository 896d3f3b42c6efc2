package main

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"outreach-crm/internal/httpapi"
	"outreach-crm/internal/metrics"
	"outreach-crm/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
)

// readiness pings the stores behind /healthz.
type readiness struct {
	db  *sql.DB
	rdb *redis.Client
}

func (r readiness) check(ctx context.Context) map[string]string {
	out := map[string]string{"postgres": "ok", "redis": "ok"}
	if err := utils.HealthCheck(ctx, r.db, 2*time.Second); err != nil {
		out["postgres"] = err.Error()
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.rdb.Ping(pingCtx).Err(); err != nil {
		out["redis"] = err.Error()
	}
	return out
}

// registerPublicRoutes mounts health checks and metrics. No auth.
func registerPublicRoutes(r *gin.Engine, ready readiness) {
	r.GET("/healthz", func(c *gin.Context) {
		deps := ready.check(c.Request.Context())
		status := http.StatusOK
		for _, v := range deps {
			if v != "ok" {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"status": http.StatusText(status), "deps": deps})
	})
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{})))
}

// registerProtectedRoutes mounts the dialer API behind bearer auth.
// Keep this file free of business logic.
func registerProtectedRoutes(r *gin.Engine, authMW gin.HandlerFunc, h httpapi.Handlers) {
	v1 := r.Group("/v1")
	v1.Use(authMW)
	h.Register(v1)
}
