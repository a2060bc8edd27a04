package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/ea-backend/internal/auth"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/export"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/ingest"
)

const maxImportBytes = 8 << 20

// graph returns the whole store as a snapshot, in JSON or as an
// importable YAML document with ?format=yaml.
func (h *Handler) graph(c *gin.Context) {
	snap, err := h.inv.Snapshot(c.Request.Context())
	if err != nil {
		writeError(c, err)
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
		if err := export.WriteYAML(c.Writer, ingest.FromSnapshot(snap)); err != nil {
			slog.ErrorContext(c.Request.Context(), "write graph yaml failed", "error", err)
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "graph": snap})
}

// importGraph accepts a YAML or JSON document, picked by Content-Type.
func (h *Handler) importGraph(c *gin.Context) {
	body := http.MaxBytesReader(c.Writer, c.Request.Body, maxImportBytes)
	defer body.Close()

	doc, err := ingest.Parse(body, c.ContentType())
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}
	if err := doc.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"ok": false, "error": err.Error()})
		return
	}

	res, err := h.inv.Import(c.Request.Context(), auth.Actor(c), doc)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true, "import": res})
}

// streamEvents pushes graph change events to the client using Server-Sent Events (SSE)
func (h *Handler) streamEvents(c *gin.Context) {
	ctx := c.Request.Context()
	events, err := h.feed.Subscribe(ctx)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"ok": false, "error": "change feed unavailable"})
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "error": "streaming unsupported"})
		return
	}

	// the server write timeout would otherwise cut long-lived streams
	_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})

	fmt.Fprint(c.Writer, "event: ready\ndata: {}\n\n")
	flusher.Flush()

	ticker := time.NewTicker(15 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case ev, open := <-events:
			if !open {
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(c.Writer, "id: %d\nevent: change\ndata: %s\n\n", ev.Revision, data)
			flusher.Flush()
		}
	}
}
