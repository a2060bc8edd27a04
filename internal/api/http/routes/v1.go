package routes

import (
	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ea-backend/config"
	audithttp "github.com/GoSim-25-26J-441/ea-backend/internal/audit/http"
	"github.com/GoSim-25-26J-441/ea-backend/internal/auth"
	impacthttp "github.com/GoSim-25-26J-441/ea-backend/internal/impact/http"
	impactservice "github.com/GoSim-25-26J-441/ea-backend/internal/impact/service"
	inventoryhttp "github.com/GoSim-25-26J-441/ea-backend/internal/inventory/http"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
	usershttp "github.com/GoSim-25-26J-441/ea-backend/internal/users/http"
)

type UserStore interface {
	auth.UserStore
	usershttp.Store
}

type AuditLog interface {
	audithttp.Lister
	usershttp.AuditRecorder
}

type Inventory interface {
	inventoryhttp.Inventory
	impactservice.SnapshotSource
}

type V1Deps struct {
	Auth      config.AuthConfig
	Users     UserStore
	Inventory Inventory
	Analyzer  *impactservice.Analyzer
	Feed      inventoryhttp.ChangeFeed
	Audit     AuditLog
}

// RegisterV1 mounts every /api/v1 route behind user resolution.
func RegisterV1(r *gin.Engine, dep V1Deps) {
	api := r.Group("/api/v1")
	api.Use(auth.WithUser(dep.Users, dep.Auth))

	inventoryhttp.New(dep.Inventory, dep.Analyzer, dep.Feed).Register(api)
	impacthttp.New(dep.Analyzer, dep.Inventory).Register(api)
	usershttp.New(dep.Users, dep.Audit).Register(api)

	auditGroup := api.Group("/audit", auth.Require(users.PermAudit))
	audithttp.New(dep.Audit).Register(auditGroup)
}
