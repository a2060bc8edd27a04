package http

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ea-backend/internal/auth"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/export"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/service"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

type Analyzer interface {
	Analyze(ctx context.Context, rootID string) (service.Result, error)
	PreviewDeletion(ctx context.Context, rootID string) (service.DeletionPreview, error)
}

type Handler struct {
	analyzer Analyzer
	source   service.SnapshotSource
}

func New(analyzer Analyzer, source service.SnapshotSource) *Handler {
	return &Handler{analyzer: analyzer, source: source}
}

func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("", auth.Require(users.PermRead))
	g.GET("/artefacts/:id/impact", h.impact)
	g.GET("/artefacts/:id/impact/graph.dot", h.impactDOT)
	g.GET("/artefacts/:id/deletion-preview", h.deletionPreview)
	g.POST("/impact/analyze", h.analyzeInline)
}

func (h *Handler) impact(c *gin.Context) {
	res, err := h.analyzer.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !res.Found {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "artefact not found"})
		return
	}

	format, err := export.ParseFormat(c.Query("format"))
	if err != nil || format == export.FormatDOT {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "format must be json or yaml"})
		return
	}
	if format == export.FormatYAML {
		c.Header("Content-Type", "application/yaml; charset=utf-8")
		c.Status(http.StatusOK)
		_ = export.WriteYAML(c.Writer, res)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "impact": res})
}

func (h *Handler) impactDOT(c *gin.Context) {
	ctx := c.Request.Context()
	snap, err := h.source.Snapshot(ctx)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}

	res := service.AnalyzeSnapshot(c.Param("id"), snap)
	if !res.Found {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "artefact not found"})
		return
	}

	title := "Impact of " + res.Root.ID
	if res.Root.Name != "" {
		title = "Impact of " + res.Root.Name
	}
	c.Data(http.StatusOK, "text/vnd.graphviz; charset=utf-8", []byte(export.ToDOT(snap, res.Summary, title)))
}

func (h *Handler) deletionPreview(c *gin.Context) {
	p, err := h.analyzer.PreviewDeletion(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if !p.Found {
		c.JSON(http.StatusNotFound, gin.H{"ok": false, "error": "artefact not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "preview": p})
}

type analyzeReq struct {
	RootID        string                `json:"rootId" binding:"required"`
	Artefacts     []domain.Artefact     `json:"artefacts"`
	Relationships []domain.Relationship `json:"relationships"`
}

// analyzeInline runs the engine over a caller-supplied graph without
// touching the store. Unknown roots yield an empty summary, not an error.
func (h *Handler) analyzeInline(c *gin.Context) {
	var req analyzeReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": "invalid body: " + err.Error()})
		return
	}

	snap := &domain.Snapshot{Artefacts: req.Artefacts, Relationships: req.Relationships}
	res := service.AnalyzeSnapshot(req.RootID, snap)
	c.JSON(http.StatusOK, gin.H{"ok": true, "impact": res})
}
