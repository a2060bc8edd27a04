package http

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	auditdomain "github.com/GoSim-25-26J-441/ea-backend/internal/audit/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/auth"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

type Store interface {
	Get(ctx context.Context, id string) (*users.User, error)
	List(ctx context.Context) ([]users.User, error)
	SetRole(ctx context.Context, id string, role users.Role) (*users.User, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e auditdomain.Entry) error
}

type Handler struct {
	store Store
	audit AuditRecorder
}

func New(store Store, audit AuditRecorder) *Handler {
	return &Handler{store: store, audit: audit}
}

// Register mounts the user routes. GET /me is open to any caller; the rest
// need the manage-users permission.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("/me", h.me)

	admin := rg.Group("/users", auth.Require(users.PermManageUsers))
	admin.GET("", h.list)
	admin.GET("/:id", h.get)
	admin.PATCH("/:id/role", h.setRole)
}

func (h *Handler) me(c *gin.Context) {
	u := auth.CurrentUser(c)
	if u == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"ok": false, "error": "unauthenticated"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

func (h *Handler) list(c *gin.Context) {
	items, err := h.store.List(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "users": items})
}

func (h *Handler) get(c *gin.Context) {
	u, err := h.store.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

type setRoleReq struct {
	Role string `json:"role" binding:"required"`
}

func (h *Handler) setRole(c *gin.Context) {
	var req setRoleReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}
	role, err := users.ParseRole(req.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	id := c.Param("id")
	if id == auth.UserDBID(c) {
		writeError(c, users.ErrOwnRoleChange)
		return
	}

	ctx := c.Request.Context()
	before, err := h.store.Get(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	u, err := h.store.SetRole(ctx, id, role)
	if err != nil {
		writeError(c, err)
		return
	}

	if h.audit != nil {
		_ = h.audit.Record(ctx, auditdomain.Entry{
			Actor:      auth.Actor(c),
			Action:     auditdomain.ActionRole,
			EntityType: "user",
			EntityID:   u.ID,
			Details:    map[string]any{"from": string(before.Role), "to": string(u.Role)},
		})
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "user": u})
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, users.ErrUserNotFound):
		status = http.StatusNotFound
	case errors.Is(err, users.ErrInvalidRole), errors.Is(err, users.ErrOwnRoleChange):
		status = http.StatusBadRequest
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
