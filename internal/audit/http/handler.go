package http

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ea-backend/internal/audit/domain"
)

type Lister interface {
	List(ctx context.Context, f domain.Filter) ([]domain.Entry, error)
}

// Handler bundles the dependencies for audit HTTP endpoints.
type Handler struct {
	audit Lister
}

func New(audit Lister) *Handler {
	return &Handler{audit: audit}
}

// Register attaches audit routes to the given router group.
func (h *Handler) Register(rg *gin.RouterGroup) {
	rg.GET("", h.list)
}

func (h *Handler) list(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	entries, err := h.audit.List(c.Request.Context(), domain.Filter{
		EntityType: c.Query("entity_type"),
		EntityID:   c.Query("entity_id"),
		Actor:      c.Query("actor"),
		Limit:      limit,
		Offset:     offset,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "failed to list audit entries"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "entries": entries})
}
