package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ea-backend/internal/auth"
	impact "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	impactservice "github.com/GoSim-25-26J-441/ea-backend/internal/impact/service"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/ingest"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/service"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

// Inventory is the service surface the handlers use.
type Inventory interface {
	CreateArtefact(ctx context.Context, actor string, req domain.CreateArtefactRequest) (*domain.Artefact, error)
	GetArtefact(ctx context.Context, id string) (*domain.Artefact, error)
	ListArtefacts(ctx context.Context, f domain.ArtefactFilter) ([]domain.Artefact, error)
	UpdateArtefact(ctx context.Context, actor, id string, req domain.UpdateArtefactRequest) (*domain.Artefact, error)
	DeleteArtefact(ctx context.Context, actor, id string, summary *impact.ImpactSummary) (int64, error)

	CreateRelationship(ctx context.Context, actor string, req domain.CreateRelationshipRequest) (*domain.Relationship, error)
	GetRelationship(ctx context.Context, id string) (*domain.Relationship, error)
	ListRelationships(ctx context.Context, f domain.RelationshipFilter) ([]domain.Relationship, error)
	UpdateRelationship(ctx context.Context, actor, id string, req domain.UpdateRelationshipRequest) (*domain.Relationship, error)
	DeleteRelationship(ctx context.Context, actor, id string) error

	Import(ctx context.Context, actor string, doc *ingest.Document) (*service.ImportResult, error)
	Snapshot(ctx context.Context) (*impact.Snapshot, error)
}

type ImpactAnalyzer interface {
	Analyze(ctx context.Context, rootID string) (impactservice.Result, error)
}

type ChangeFeed interface {
	Subscribe(ctx context.Context) (<-chan domain.ChangeEvent, error)
}

type Handler struct {
	inv      Inventory
	analyzer ImpactAnalyzer
	feed     ChangeFeed
}

func New(inv Inventory, analyzer ImpactAnalyzer, feed ChangeFeed) *Handler {
	return &Handler{inv: inv, analyzer: analyzer, feed: feed}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	read := rg.Group("", auth.Require(users.PermRead))
	read.GET("/artefacts", h.listArtefacts)
	read.GET("/artefacts/:id", h.getArtefact)
	read.GET("/artefacts/:id/relationships", h.artefactRelationships)
	read.GET("/relationships", h.listRelationships)
	read.GET("/relationships/:id", h.getRelationship)
	read.GET("/graph", h.graph)
	read.GET("/graph/events", h.streamEvents)

	write := rg.Group("", auth.Require(users.PermWrite))
	write.POST("/artefacts", h.createArtefact)
	write.PATCH("/artefacts/:id", h.updateArtefact)
	write.DELETE("/artefacts/:id", h.deleteArtefact)
	write.POST("/relationships", h.createRelationship)
	write.PATCH("/relationships/:id", h.updateRelationship)
	write.DELETE("/relationships/:id", h.deleteRelationship)
	write.POST("/import", h.importGraph)
}

type createArtefactReq struct {
	ID          string   `json:"id" binding:"max=128"`
	Name        string   `json:"name" binding:"required,max=256"`
	Description string   `json:"description"`
	Type        string   `json:"type" binding:"required"`
	RiskLevel   string   `json:"risk_level"`
	Owner       string   `json:"owner"`
	Tags        []string `json:"tags"`
}

func (h *Handler) createArtefact(c *gin.Context) {
	var req createArtefactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: " + err.Error()})
		return
	}

	a, err := h.inv.CreateArtefact(c.Request.Context(), auth.Actor(c), domain.CreateArtefactRequest(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "artefact": a})
}

func (h *Handler) listArtefacts(c *gin.Context) {
	f := domain.ArtefactFilter{
		Type:      impact.ArtefactType(c.Query("type")),
		RiskLevel: impact.RiskLevel(c.Query("risk_level")),
		Search:    c.Query("q"),
		Limit:     queryInt(c, "limit", 0),
		Offset:    queryInt(c, "offset", 0),
	}
	items, err := h.inv.ListArtefacts(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "artefacts": items})
}

func (h *Handler) getArtefact(c *gin.Context) {
	a, err := h.inv.GetArtefact(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "artefact": a})
}

func (h *Handler) artefactRelationships(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")
	if _, err := h.inv.GetArtefact(ctx, id); err != nil {
		writeError(c, err)
		return
	}
	items, err := h.inv.ListRelationships(ctx, domain.RelationshipFilter{ArtefactID: id})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "relationships": items})
}

type updateArtefactReq struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Type        *string  `json:"type"`
	RiskLevel   *string  `json:"risk_level"`
	Owner       *string  `json:"owner"`
	Tags        []string `json:"tags"`
}

func (h *Handler) updateArtefact(c *gin.Context) {
	var req updateArtefactReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	a, err := h.inv.UpdateArtefact(c.Request.Context(), auth.Actor(c), c.Param("id"), domain.UpdateArtefactRequest(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "artefact": a})
}

// deleteArtefact analyzes impact first. When other artefacts depend on the
// target the delete is refused with 409 and the summary, unless the caller
// confirms with ?confirm=true.
func (h *Handler) deleteArtefact(c *gin.Context) {
	ctx := c.Request.Context()
	id := c.Param("id")

	res, err := h.analyzer.Analyze(ctx, id)
	if err != nil {
		writeError(c, err)
		return
	}
	if !res.Found {
		writeError(c, domain.ErrArtefactNotFound)
		return
	}

	// Edges point from dependant to dependency, so whatever relies on id
	// is reached by the upstream walk.
	confirmed, _ := strconv.ParseBool(c.Query("confirm"))
	if dependents := len(res.Summary.Upstream); dependents > 0 && !confirmed {
		c.JSON(http.StatusConflict, gin.H{
			"ok":         false,
			"error":      "artefact has dependents; repeat with confirm=true to delete",
			"dependents": dependents,
			"summary":    res.Summary,
		})
		return
	}

	removed, err := h.inv.DeleteArtefact(ctx, auth.Actor(c), id, &res.Summary)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "relationships_removed": removed, "summary": res.Summary})
}

type createRelationshipReq struct {
	SourceID string `json:"source_id" binding:"required"`
	TargetID string `json:"target_id" binding:"required"`
	Type     string `json:"type"`
	Label    string `json:"label"`
}

func (h *Handler) createRelationship(c *gin.Context) {
	var req createRelationshipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: " + err.Error()})
		return
	}

	r, err := h.inv.CreateRelationship(c.Request.Context(), auth.Actor(c), domain.CreateRelationshipRequest(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ok": true, "relationship": r})
}

func (h *Handler) listRelationships(c *gin.Context) {
	items, err := h.inv.ListRelationships(c.Request.Context(), domain.RelationshipFilter{
		ArtefactID: c.Query("artefact_id"),
		Type:       impact.RelationType(c.Query("type")),
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "relationships": items})
}

func (h *Handler) getRelationship(c *gin.Context) {
	r, err := h.inv.GetRelationship(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "relationship": r})
}

type updateRelationshipReq struct {
	Type  *string `json:"type"`
	Label *string `json:"label"`
}

func (h *Handler) updateRelationship(c *gin.Context) {
	var req updateRelationshipReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body"})
		return
	}

	r, err := h.inv.UpdateRelationship(c.Request.Context(), auth.Actor(c), c.Param("id"), domain.UpdateRelationshipRequest(req))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "relationship": r})
}

func (h *Handler) deleteRelationship(c *gin.Context) {
	if err := h.inv.DeleteRelationship(c.Request.Context(), auth.Actor(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func queryInt(c *gin.Context, key string, def int) int {
	v, err := strconv.Atoi(c.Query(key))
	if err != nil {
		return def
	}
	return v
}

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrArtefactNotFound), errors.Is(err, domain.ErrRelationshipNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrDuplicateArtefact):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrSelfReference),
		errors.Is(err, domain.ErrUnknownEndpoint),
		errors.Is(err, domain.ErrNameRequired),
		errors.Is(err, impact.ErrInvalidArtefactType),
		errors.Is(err, impact.ErrInvalidRiskLevel),
		errors.Is(err, impact.ErrInvalidRelationType):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		slog.ErrorContext(c.Request.Context(), "inventory request failed", "path", c.FullPath(), "error", err)
		c.JSON(status, gin.H{"ok": false, "error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"ok": false, "error": err.Error()})
}
