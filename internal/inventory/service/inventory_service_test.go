package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auditdomain "github.com/GoSim-25-26J-441/ea-backend/internal/audit/domain"
	impact "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/ingest"
)

// memGraph is an in-memory stand-in for the three repositories.
type memGraph struct {
	mu        sync.Mutex
	arts      map[string]domain.Artefact
	rels      map[string]domain.Relationship
	viewCalls atomic.Int32
	viewDelay time.Duration
	viewGate  chan struct{}
	viewErr   error
}

func newMemGraph() *memGraph {
	return &memGraph{arts: map[string]domain.Artefact{}, rels: map[string]domain.Relationship{}}
}

type memArtefacts struct{ g *memGraph }
type memRelationships struct{ g *memGraph }

func (m memArtefacts) Create(_ context.Context, a *domain.Artefact) error {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	if _, ok := m.g.arts[a.ID]; ok {
		return domain.ErrDuplicateArtefact
	}
	m.g.arts[a.ID] = *a
	return nil
}

func (m memArtefacts) Get(_ context.Context, id string) (*domain.Artefact, error) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	a, ok := m.g.arts[id]
	if !ok {
		return nil, domain.ErrArtefactNotFound
	}
	return &a, nil
}

func (m memArtefacts) List(_ context.Context, f domain.ArtefactFilter) ([]domain.Artefact, error) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	out := []domain.Artefact{}
	for _, a := range m.g.arts {
		if f.Type != "" && a.Type != f.Type {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memArtefacts) Update(_ context.Context, a *domain.Artefact) error {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	if _, ok := m.g.arts[a.ID]; !ok {
		return domain.ErrArtefactNotFound
	}
	m.g.arts[a.ID] = *a
	return nil
}

func (m memArtefacts) Delete(_ context.Context, id string) (int64, error) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	if _, ok := m.g.arts[id]; !ok {
		return 0, domain.ErrArtefactNotFound
	}
	var n int64
	for rid, r := range m.g.rels {
		if r.SourceID == id || r.TargetID == id {
			delete(m.g.rels, rid)
			n++
		}
	}
	delete(m.g.arts, id)
	return n, nil
}

func (m memArtefacts) CountExisting(_ context.Context, ids []string) (int, error) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := m.g.arts[id]; ok {
			n++
		}
	}
	return n, nil
}

func (m memArtefacts) Views(ctx context.Context) ([]impact.Artefact, error) {
	m.g.viewCalls.Add(1)
	time.Sleep(m.g.viewDelay)
	if m.g.viewGate != nil {
		select {
		case <-m.g.viewGate:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if m.g.viewErr != nil {
		return nil, m.g.viewErr
	}
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	out := []impact.Artefact{}
	for _, a := range m.g.arts {
		out = append(out, a.View())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m memRelationships) Create(_ context.Context, r *domain.Relationship) error {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	m.g.rels[r.ID] = *r
	return nil
}

func (m memRelationships) Get(_ context.Context, id string) (*domain.Relationship, error) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	r, ok := m.g.rels[id]
	if !ok {
		return nil, domain.ErrRelationshipNotFound
	}
	return &r, nil
}

func (m memRelationships) List(context.Context, domain.RelationshipFilter) ([]domain.Relationship, error) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	out := []domain.Relationship{}
	for _, r := range m.g.rels {
		out = append(out, r)
	}
	return out, nil
}

func (m memRelationships) Update(_ context.Context, r *domain.Relationship) error {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	m.g.rels[r.ID] = *r
	return nil
}

func (m memRelationships) Delete(_ context.Context, id string) error {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	if _, ok := m.g.rels[id]; !ok {
		return domain.ErrRelationshipNotFound
	}
	delete(m.g.rels, id)
	return nil
}

func (m memRelationships) Views(context.Context) ([]impact.Relationship, error) {
	m.g.mu.Lock()
	defer m.g.mu.Unlock()
	out := []impact.Relationship{}
	for _, r := range m.g.rels {
		out = append(out, r.View())
	}
	return out, nil
}

func (g *memGraph) Import(_ context.Context, arts []domain.Artefact, rels []domain.Relationship) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, a := range arts {
		g.arts[a.ID] = a
	}
	for _, r := range rels {
		g.rels[r.ID] = r
	}
	return nil
}

type fakeRevisions struct {
	mu     sync.Mutex
	rev    int64
	events []domain.ChangeEvent
	err    error
}

func (f *fakeRevisions) Current(context.Context) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rev, nil
}

func (f *fakeRevisions) Bump(_ context.Context, ev domain.ChangeEvent) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	f.rev++
	ev.Revision = f.rev
	f.events = append(f.events, ev)
	return f.rev, nil
}

type fakeAudit struct {
	mu      sync.Mutex
	entries []auditdomain.Entry
}

func (f *fakeAudit) Record(_ context.Context, e auditdomain.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append(f.entries, e)
	return nil
}

func (f *fakeAudit) last() auditdomain.Entry {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.entries[len(f.entries)-1]
}

type fixture struct {
	svc   *InventoryService
	graph *memGraph
	revs  *fakeRevisions
	audit *fakeAudit
}

func newFixture() *fixture {
	g := newMemGraph()
	revs := &fakeRevisions{}
	audit := &fakeAudit{}
	return &fixture{
		svc:   NewInventoryService(memArtefacts{g}, memRelationships{g}, g, revs, audit),
		graph: g,
		revs:  revs,
		audit: audit,
	}
}

func (f *fixture) seed(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		_, err := f.svc.CreateArtefact(context.Background(), "seed", domain.CreateArtefactRequest{
			ID: id, Name: strings.ToUpper(id), Type: "application",
		})
		require.NoError(t, err)
	}
}

func TestInventoryService_CreateArtefact(t *testing.T) {
	ctx := context.Background()

	t.Run("defaults and bookkeeping", func(t *testing.T) {
		f := newFixture()
		a, err := f.svc.CreateArtefact(ctx, "alice", domain.CreateArtefactRequest{Name: "  CRM ", Type: "Application"})
		require.NoError(t, err)

		assert.NotEmpty(t, a.ID)
		assert.Equal(t, "CRM", a.Name)
		assert.Equal(t, impact.TypeApplication, a.Type)
		assert.Equal(t, impact.RiskNone, a.RiskLevel)
		assert.Equal(t, []string{}, a.Tags)

		require.Len(t, f.revs.events, 1)
		assert.Equal(t, "alice", f.revs.events[0].Actor)
		e := f.audit.last()
		assert.Equal(t, auditdomain.ActionCreated, e.Action)
		assert.Equal(t, a.ID, e.EntityID)
	})

	t.Run("validation", func(t *testing.T) {
		f := newFixture()
		_, err := f.svc.CreateArtefact(ctx, "a", domain.CreateArtefactRequest{Name: " ", Type: "data"})
		assert.ErrorIs(t, err, domain.ErrNameRequired)

		_, err = f.svc.CreateArtefact(ctx, "a", domain.CreateArtefactRequest{Name: "X", Type: "widget"})
		assert.ErrorIs(t, err, impact.ErrInvalidArtefactType)

		_, err = f.svc.CreateArtefact(ctx, "a", domain.CreateArtefactRequest{Name: "X", Type: "data", RiskLevel: "severe"})
		assert.ErrorIs(t, err, impact.ErrInvalidRiskLevel)

		assert.Empty(t, f.revs.events)
	})

	t.Run("duplicate id", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "crm")
		_, err := f.svc.CreateArtefact(ctx, "a", domain.CreateArtefactRequest{ID: "crm", Name: "CRM", Type: "data"})
		assert.ErrorIs(t, err, domain.ErrDuplicateArtefact)
	})
}

func TestInventoryService_UpdateArtefact(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t, "crm")
	before := len(f.revs.events)

	high := "HIGH"
	same := "CRM"
	a, err := f.svc.UpdateArtefact(ctx, "bob", "crm", domain.UpdateArtefactRequest{RiskLevel: &high, Name: &same})
	require.NoError(t, err)
	assert.Equal(t, impact.RiskHigh, a.RiskLevel)
	assert.Equal(t, map[string]any{"risk_level": "high"}, f.audit.last().Details)
	assert.Len(t, f.revs.events, before+1)

	t.Run("no-op does not bump", func(t *testing.T) {
		_, err := f.svc.UpdateArtefact(ctx, "bob", "crm", domain.UpdateArtefactRequest{RiskLevel: &high})
		require.NoError(t, err)
		assert.Len(t, f.revs.events, before+1)
	})

	t.Run("missing", func(t *testing.T) {
		_, err := f.svc.UpdateArtefact(ctx, "bob", "ghost", domain.UpdateArtefactRequest{Name: &same})
		assert.ErrorIs(t, err, domain.ErrArtefactNotFound)
	})

	t.Run("blank name", func(t *testing.T) {
		blank := ""
		_, err := f.svc.UpdateArtefact(ctx, "bob", "crm", domain.UpdateArtefactRequest{Name: &blank})
		assert.ErrorIs(t, err, domain.ErrNameRequired)
	})
}

func TestInventoryService_Relationships(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t, "crm", "cdb")

	_, err := f.svc.CreateRelationship(ctx, "a", domain.CreateRelationshipRequest{SourceID: "crm", TargetID: "crm"})
	assert.ErrorIs(t, err, domain.ErrSelfReference)

	_, err = f.svc.CreateRelationship(ctx, "a", domain.CreateRelationshipRequest{SourceID: "crm", TargetID: "ghost"})
	assert.ErrorIs(t, err, domain.ErrUnknownEndpoint)

	_, err = f.svc.CreateRelationship(ctx, "a", domain.CreateRelationshipRequest{SourceID: "crm", TargetID: "cdb", Type: "loves"})
	assert.ErrorIs(t, err, impact.ErrInvalidRelationType)

	r, err := f.svc.CreateRelationship(ctx, "a", domain.CreateRelationshipRequest{SourceID: "crm", TargetID: "cdb"})
	require.NoError(t, err)
	assert.Equal(t, impact.RelDependsOn, r.Type)

	uses := "uses"
	r, err = f.svc.UpdateRelationship(ctx, "a", r.ID, domain.UpdateRelationshipRequest{Type: &uses})
	require.NoError(t, err)
	assert.Equal(t, impact.RelUses, r.Type)

	require.NoError(t, f.svc.DeleteRelationship(ctx, "a", r.ID))
	assert.ErrorIs(t, f.svc.DeleteRelationship(ctx, "a", r.ID), domain.ErrRelationshipNotFound)
}

func TestInventoryService_DeleteArtefact(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	f.seed(t, "crm", "cdb", "web")
	_, err := f.svc.CreateRelationship(ctx, "a", domain.CreateRelationshipRequest{SourceID: "web", TargetID: "crm"})
	require.NoError(t, err)
	_, err = f.svc.CreateRelationship(ctx, "a", domain.CreateRelationshipRequest{SourceID: "crm", TargetID: "cdb"})
	require.NoError(t, err)

	summary := &impact.ImpactSummary{
		RootID:        "crm",
		TotalAffected: 1,
		Upstream:      []impact.ImpactNode{{ArtefactID: "web", Direction: impact.Upstream, Depth: 1, ImpactType: impact.ImpactDirect}},
	}
	removed, err := f.svc.DeleteArtefact(ctx, "admin", "crm", summary)
	require.NoError(t, err)
	assert.Equal(t, int64(2), removed)

	e := f.audit.last()
	assert.Equal(t, auditdomain.ActionDeleted, e.Action)
	assert.Equal(t, int64(2), e.Details["relationships_removed"])
	assert.Equal(t, 1, e.Details["total_affected"])
	assert.Equal(t, 1, e.Details["dependents"])

	_, err = f.svc.DeleteArtefact(ctx, "admin", "crm", nil)
	assert.ErrorIs(t, err, domain.ErrArtefactNotFound)
}

func TestInventoryService_Import(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	doc := &ingest.Document{
		Artefacts: []ingest.ArtefactDoc{
			{ID: "a", Name: "A", Type: "business"},
			{ID: "b", Name: "B", Type: "data", RiskLevel: "high"},
		},
		Relationships: []ingest.RelationshipDoc{{Source: "a", Target: "b"}},
	}
	res, err := f.svc.Import(ctx, "ops", doc)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Artefacts)
	assert.Equal(t, 1, res.Relationships)
	assert.Equal(t, int64(1), res.Revision)
	assert.Equal(t, auditdomain.ActionImported, f.audit.last().Action)

	bad := &ingest.Document{Artefacts: []ingest.ArtefactDoc{{ID: "x"}}}
	_, err = f.svc.Import(ctx, "ops", bad)
	assert.Error(t, err)
}

func TestInventoryService_Snapshot(t *testing.T) {
	ctx := context.Background()

	t.Run("carries revision read before load", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "a", "b")
		_, err := f.svc.CreateRelationship(ctx, "x", domain.CreateRelationshipRequest{SourceID: "a", TargetID: "b"})
		require.NoError(t, err)

		snap, err := f.svc.Snapshot(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(3), snap.Revision)
		assert.Len(t, snap.Artefacts, 2)
		assert.Len(t, snap.Relationships, 1)
	})

	t.Run("empty store gives empty slices", func(t *testing.T) {
		f := newFixture()
		snap, err := f.svc.Snapshot(ctx)
		require.NoError(t, err)
		assert.NotNil(t, snap.Artefacts)
		assert.NotNil(t, snap.Relationships)
	})

	t.Run("concurrent callers share a load", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "a")
		f.graph.viewDelay = 50 * time.Millisecond

		var wg sync.WaitGroup
		for i := 0; i < 8; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := f.svc.Snapshot(ctx)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()
		assert.Less(t, int(f.graph.viewCalls.Load()), 8)
	})

	t.Run("cancelled caller does not fail a shared load", func(t *testing.T) {
		f := newFixture()
		f.seed(t, "a")
		gate := make(chan struct{})
		f.graph.viewGate = gate

		ctxA, cancelA := context.WithCancel(ctx)
		errA := make(chan error, 1)
		go func() {
			_, err := f.svc.Snapshot(ctxA)
			errA <- err
		}()
		require.Eventually(t, func() bool { return f.graph.viewCalls.Load() == 1 }, time.Second, time.Millisecond)

		var snapB *impact.Snapshot
		errB := make(chan error, 1)
		go func() {
			var err error
			snapB, err = f.svc.Snapshot(ctx)
			errB <- err
		}()

		cancelA()
		assert.ErrorIs(t, <-errA, context.Canceled)

		close(gate)
		require.NoError(t, <-errB)
		assert.Len(t, snapB.Artefacts, 1)
	})

	t.Run("load failure", func(t *testing.T) {
		f := newFixture()
		f.graph.viewErr = errors.New("db down")
		_, err := f.svc.Snapshot(ctx)
		assert.ErrorContains(t, err, "db down")
	})
}

func TestInventoryService_BumpFailureDoesNotFailMutation(t *testing.T) {
	f := newFixture()
	f.revs.err = errors.New("redis down")

	_, err := f.svc.CreateArtefact(context.Background(), "a", domain.CreateArtefactRequest{Name: "A", Type: "data"})
	require.NoError(t, err)
	assert.Len(t, f.audit.entries, 1)
}
