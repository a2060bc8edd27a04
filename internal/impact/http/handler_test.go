package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GoSim-25-26J-441/ea-backend/internal/auth"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/service"
	"github.com/GoSim-25-26J-441/ea-backend/internal/users"
)

type staticSource struct {
	snap *domain.Snapshot
	err  error
}

func (s staticSource) Snapshot(context.Context) (*domain.Snapshot, error) {
	return s.snap, s.err
}

func graph() *domain.Snapshot {
	return &domain.Snapshot{
		Revision: 3,
		Artefacts: []domain.Artefact{
			{ID: "A", Name: "Billing", RiskLevel: domain.RiskHigh},
			{ID: "B", RiskLevel: domain.RiskHigh},
			{ID: "C", RiskLevel: domain.RiskLow},
		},
		Relationships: []domain.Relationship{
			{ID: "e1", Source: "A", Target: "B", Type: domain.RelUses},
			{ID: "e2", Source: "B", Target: "C", Type: domain.RelUses},
			{ID: "e3", Source: "C", Target: "A", Type: domain.RelUses},
		},
	}
}

func setup(t *testing.T, src service.SnapshotSource) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	analyzer, err := service.NewAnalyzer(src, 8)
	require.NoError(t, err)

	r := gin.New()
	api := r.Group("/api/v1", func(c *gin.Context) {
		c.Set(auth.CtxUser, &users.User{ID: "1", ExternalID: "v", Role: users.RoleViewer})
	})
	New(analyzer, src).Register(api)
	return r
}

func get(r http.Handler, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestImpact(t *testing.T) {
	r := setup(t, staticSource{snap: graph()})

	w := get(r, "/api/v1/artefacts/A/impact")
	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		OK     bool           `json:"ok"`
		Impact service.Result `json:"impact"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.True(t, body.OK)
	assert.Equal(t, int64(3), body.Impact.Revision)
	assert.Equal(t, 2, body.Impact.Summary.TotalAffected)
	// B counted in both directions
	assert.Equal(t, 2, body.Impact.Summary.HighRiskCount)
	assert.Equal(t, []domain.ImpactNode{
		{ArtefactID: "C", Direction: domain.Upstream, Depth: 1, ImpactType: domain.ImpactDirect},
		{ArtefactID: "B", Direction: domain.Upstream, Depth: 2, ImpactType: domain.ImpactIndirect},
	}, body.Impact.Summary.Upstream)

	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/artefacts/ghost/impact").Code)
	assert.Equal(t, http.StatusBadRequest, get(r, "/api/v1/artefacts/A/impact?format=xml").Code)

	w = get(r, "/api/v1/artefacts/A/impact?format=yaml")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "totalAffected: 2")
}

func TestImpact_SourceFailure(t *testing.T) {
	r := setup(t, staticSource{err: errors.New("db down")})
	assert.Equal(t, http.StatusInternalServerError, get(r, "/api/v1/artefacts/A/impact").Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/api/v1/artefacts/A/impact/graph.dot").Code)
	assert.Equal(t, http.StatusInternalServerError, get(r, "/api/v1/artefacts/A/deletion-preview").Code)
}

func TestImpactDOT(t *testing.T) {
	r := setup(t, staticSource{snap: graph()})

	w := get(r, "/api/v1/artefacts/A/impact/graph.dot")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/vnd.graphviz; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), `label="Impact of Billing"`)
	assert.Contains(t, w.Body.String(), `"C" -> "A"`)

	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/artefacts/ghost/impact/graph.dot").Code)
}

func TestDeletionPreview(t *testing.T) {
	r := setup(t, staticSource{snap: graph()})

	w := get(r, "/api/v1/artefacts/B/deletion-preview")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removedRelationships"`)
	assert.Contains(t, w.Body.String(), `"e1"`)
	assert.Contains(t, w.Body.String(), `"e2"`)
	assert.NotContains(t, w.Body.String(), `"e3"`)

	assert.Equal(t, http.StatusNotFound, get(r, "/api/v1/artefacts/ghost/deletion-preview").Code)
}

func TestAnalyzeInline(t *testing.T) {
	r := setup(t, staticSource{err: errors.New("store must not be used")})

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/impact/analyze", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		return w
	}

	w := post(`{"rootId":"A","artefacts":[{"id":"A","riskLevel":"low"},{"id":"B","riskLevel":"high"},{"id":"C","riskLevel":"high"}],
		"relationships":[{"source":"A","target":"B"},{"source":"A","target":"C"}]}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), `"totalAffected":2`)
	assert.Contains(t, w.Body.String(), `"highRiskCount":2`)

	w = post(`{"rootId":"ghost","artefacts":[],"relationships":[]}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"found":false`)
	assert.Contains(t, w.Body.String(), `"upstream":[]`)

	assert.Equal(t, http.StatusBadRequest, post(`{"artefacts":[]}`).Code)
}
