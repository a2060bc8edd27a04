package auth

import (
	"context"
	"log/slog"
	"net/http"
	"slices"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ea-backend/config"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

type UserStore interface {
	EnsureUser(ctx context.Context, u users.UpsertUser) (*users.User, error)
}

// WithUser resolves the caller from X-User-* headers and upserts them.
// Without an X-User-Id header the configured dev user is used; with no dev
// user the request is rejected.
func WithUser(store UserStore, cfg config.AuthConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		ext := strings.TrimSpace(c.GetHeader("X-User-Id"))
		if ext == "" {
			ext = cfg.DevUser
		}
		if ext == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "missing X-User-Id"})
			return
		}

		role := users.RoleViewer
		if slices.Contains(cfg.AdminUsers, ext) {
			role = users.RoleAdmin
		}

		u, err := store.EnsureUser(c.Request.Context(), users.UpsertUser{
			ExternalID:  ext,
			Email:       c.GetHeader("X-User-Email"),
			DisplayName: c.GetHeader("X-User-Name"),
			DefaultRole: role,
		})
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "ensure user failed", "user", ext, "error", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "ensure user: " + err.Error()})
			return
		}

		c.Set(CtxUser, u)
		c.Set(CtxUserDBID, u.ID)
		c.Next()
	}
}

// Require rejects callers whose role lacks p.
func Require(p users.Permission) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := CurrentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
			return
		}
		if !u.Role.Can(p) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"ok": false, "error": "role " + string(u.Role) + " is not permitted"})
			return
		}
		c.Next()
	}
}
