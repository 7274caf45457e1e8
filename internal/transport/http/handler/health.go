package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Dependency is a named health probe. A nil Check marks the dependency as
// not configured.
type Dependency struct {
	Name  string
	Check func(ctx context.Context) error
}

type AppInfo struct {
	Name      string
	Version   string
	Env       string
	StartedAt time.Time
}

type HealthHandler struct {
	info     AppInfo
	database Dependency
	optional []Dependency
}

type dependencyStatus struct {
	OK         bool   `json:"ok"`
	Configured bool   `json:"configured"`
	Message    string `json:"message,omitempty"`
}

func NewHealthHandler(info AppInfo, database Dependency, optional ...Dependency) *HealthHandler {
	return &HealthHandler{
		info:     info,
		database: database,
		optional: optional,
	}
}

func (h *HealthHandler) Root(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"app":     h.info.Name,
		"version": h.info.Version,
		"status":  "online",
		"docs":    "/health",
	})
}

// Check reports 503 only when the database is unreachable; optional
// dependencies are listed but do not change the status.
func (h *HealthHandler) Check(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	db := probe(ctx, h.database)
	deps := gin.H{h.database.Name: db}
	for _, d := range h.optional {
		deps[d.Name] = probe(ctx, d)
	}

	status, database, code := "healthy", "connected", http.StatusOK
	if !db.OK {
		status, database, code = "unhealthy", "disconnected", http.StatusServiceUnavailable
	}
	service := "operational"
	if !db.OK {
		service = "degraded"
	}

	c.JSON(code, gin.H{
		"status":     status,
		"database":   database,
		"env":        h.info.Env,
		"uptime_sec": int(time.Since(h.info.StartedAt).Seconds()),
		"services": gin.H{
			"auth":      service,
			"documents": service,
			"search":    service,
			"chat":      service,
		},
		"dependencies": deps,
	})
}

func probe(ctx context.Context, d Dependency) dependencyStatus {
	if d.Check == nil {
		return dependencyStatus{OK: true, Configured: false, Message: "not configured"}
	}
	if err := d.Check(ctx); err != nil {
		return dependencyStatus{OK: false, Configured: true, Message: err.Error()}
	}
	return dependencyStatus{OK: true, Configured: true}
}
