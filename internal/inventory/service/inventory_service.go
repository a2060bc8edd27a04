package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	auditdomain "github.com/GoSim-25-26J-441/ea-backend/internal/audit/domain"
	impact "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/ingest"
	"github.com/GoSim-25-26J-441/ea-backend/internal/metrics"
)

type ArtefactStore interface {
	Create(ctx context.Context, a *domain.Artefact) error
	Get(ctx context.Context, id string) (*domain.Artefact, error)
	List(ctx context.Context, f domain.ArtefactFilter) ([]domain.Artefact, error)
	Update(ctx context.Context, a *domain.Artefact) error
	Delete(ctx context.Context, id string) (int64, error)
	CountExisting(ctx context.Context, ids []string) (int, error)
	Views(ctx context.Context) ([]impact.Artefact, error)
}

type RelationshipStore interface {
	Create(ctx context.Context, r *domain.Relationship) error
	Get(ctx context.Context, id string) (*domain.Relationship, error)
	List(ctx context.Context, f domain.RelationshipFilter) ([]domain.Relationship, error)
	Update(ctx context.Context, r *domain.Relationship) error
	Delete(ctx context.Context, id string) error
	Views(ctx context.Context) ([]impact.Relationship, error)
}

type Importer interface {
	Import(ctx context.Context, arts []domain.Artefact, rels []domain.Relationship) error
}

// Revisions hands out graph revisions; every committed mutation bumps it.
type Revisions interface {
	Current(ctx context.Context) (int64, error)
	Bump(ctx context.Context, ev domain.ChangeEvent) (int64, error)
}

type AuditRecorder interface {
	Record(ctx context.Context, e auditdomain.Entry) error
}

// InventoryService owns artefact and relationship lifecycle and produces
// graph snapshots for the impact analyzer.
type InventoryService struct {
	artefacts     ArtefactStore
	relationships RelationshipStore
	importer      Importer
	revisions     Revisions
	audit         AuditRecorder

	snapshots   singleflight.Group
	loadTimeout time.Duration
	now         func() time.Time
}

func NewInventoryService(arts ArtefactStore, rels RelationshipStore, imp Importer, revs Revisions, audit AuditRecorder) *InventoryService {
	return &InventoryService{
		artefacts:     arts,
		relationships: rels,
		importer:      imp,
		revisions:     revs,
		audit:         audit,
		loadTimeout:   30 * time.Second,
		now:           time.Now,
	}
}

// CreateArtefact validates and stores a new artefact. Missing ids are generated.
func (s *InventoryService) CreateArtefact(ctx context.Context, actor string, req domain.CreateArtefactRequest) (*domain.Artefact, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrNameRequired
	}
	typ, err := impact.ParseArtefactType(req.Type)
	if err != nil {
		return nil, err
	}
	risk, err := impact.ParseRiskLevel(req.RiskLevel)
	if err != nil {
		return nil, err
	}

	id := strings.TrimSpace(req.ID)
	if id == "" {
		id = uuid.New().String()
	}
	tags := req.Tags
	if tags == nil {
		tags = []string{}
	}

	a := &domain.Artefact{
		ID:          id,
		Name:        name,
		Description: req.Description,
		Type:        typ,
		RiskLevel:   risk,
		Owner:       req.Owner,
		Tags:        tags,
	}
	if err := s.artefacts.Create(ctx, a); err != nil {
		return nil, err
	}

	s.changed(ctx, actor, domain.EntityArtefact, a.ID, auditdomain.ActionCreated, map[string]any{
		"name": a.Name, "type": string(a.Type), "risk_level": string(a.RiskLevel),
	})
	return a, nil
}

func (s *InventoryService) GetArtefact(ctx context.Context, id string) (*domain.Artefact, error) {
	return s.artefacts.Get(ctx, id)
}

func (s *InventoryService) ListArtefacts(ctx context.Context, f domain.ArtefactFilter) ([]domain.Artefact, error) {
	if f.Limit < 0 {
		f.Limit = 0
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	return s.artefacts.List(ctx, f)
}

// UpdateArtefact applies the non-nil fields of req. The audit entry lists
// the fields that actually changed.
func (s *InventoryService) UpdateArtefact(ctx context.Context, actor, id string, req domain.UpdateArtefactRequest) (*domain.Artefact, error) {
	a, err := s.artefacts.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return nil, domain.ErrNameRequired
		}
		if name != a.Name {
			changes["name"] = name
			a.Name = name
		}
	}
	if req.Description != nil && *req.Description != a.Description {
		changes["description"] = *req.Description
		a.Description = *req.Description
	}
	if req.Type != nil {
		typ, err := impact.ParseArtefactType(*req.Type)
		if err != nil {
			return nil, err
		}
		if typ != a.Type {
			changes["type"] = string(typ)
			a.Type = typ
		}
	}
	if req.RiskLevel != nil {
		risk, err := impact.ParseRiskLevel(*req.RiskLevel)
		if err != nil {
			return nil, err
		}
		if risk != a.RiskLevel {
			changes["risk_level"] = string(risk)
			a.RiskLevel = risk
		}
	}
	if req.Owner != nil && *req.Owner != a.Owner {
		changes["owner"] = *req.Owner
		a.Owner = *req.Owner
	}
	if req.Tags != nil {
		changes["tags"] = req.Tags
		a.Tags = req.Tags
	}

	if len(changes) == 0 {
		return a, nil
	}
	if err := s.artefacts.Update(ctx, a); err != nil {
		return nil, err
	}
	s.changed(ctx, actor, domain.EntityArtefact, a.ID, auditdomain.ActionUpdated, changes)
	return a, nil
}

// DeleteArtefact removes the artefact and every relationship touching it.
// impact, when given, is the analysis taken just before deletion and is
// kept in the audit trail.
func (s *InventoryService) DeleteArtefact(ctx context.Context, actor, id string, impactSummary *impact.ImpactSummary) (int64, error) {
	removed, err := s.artefacts.Delete(ctx, id)
	if err != nil {
		return 0, err
	}

	details := map[string]any{"relationships_removed": removed}
	if impactSummary != nil {
		details["dependents"] = len(impactSummary.Upstream)
		details["total_affected"] = impactSummary.TotalAffected
		details["high_risk_count"] = impactSummary.HighRiskCount
		details["direct_impact"] = len(impactSummary.DirectImpact)
		details["indirect_impact"] = len(impactSummary.IndirectImpact)
	}
	s.changed(ctx, actor, domain.EntityArtefact, id, auditdomain.ActionDeleted, details)
	return removed, nil
}

// CreateRelationship links two existing, distinct artefacts.
func (s *InventoryService) CreateRelationship(ctx context.Context, actor string, req domain.CreateRelationshipRequest) (*domain.Relationship, error) {
	src, dst := strings.TrimSpace(req.SourceID), strings.TrimSpace(req.TargetID)
	if src == "" || dst == "" {
		return nil, domain.ErrUnknownEndpoint
	}
	if src == dst {
		return nil, domain.ErrSelfReference
	}

	typ := impact.RelDependsOn
	if strings.TrimSpace(req.Type) != "" {
		t, err := impact.ParseRelationType(req.Type)
		if err != nil {
			return nil, err
		}
		typ = t
	}

	n, err := s.artefacts.CountExisting(ctx, []string{src, dst})
	if err != nil {
		return nil, err
	}
	if n != 2 {
		return nil, domain.ErrUnknownEndpoint
	}

	r := &domain.Relationship{
		ID:       uuid.New().String(),
		SourceID: src,
		TargetID: dst,
		Type:     typ,
		Label:    req.Label,
	}
	if err := s.relationships.Create(ctx, r); err != nil {
		return nil, err
	}

	s.changed(ctx, actor, domain.EntityRelationship, r.ID, auditdomain.ActionCreated, map[string]any{
		"source_id": r.SourceID, "target_id": r.TargetID, "type": string(r.Type),
	})
	return r, nil
}

func (s *InventoryService) GetRelationship(ctx context.Context, id string) (*domain.Relationship, error) {
	return s.relationships.Get(ctx, id)
}

func (s *InventoryService) ListRelationships(ctx context.Context, f domain.RelationshipFilter) ([]domain.Relationship, error) {
	return s.relationships.List(ctx, f)
}

// UpdateRelationship changes type or label. Endpoints are immutable;
// delete and recreate to rewire.
func (s *InventoryService) UpdateRelationship(ctx context.Context, actor, id string, req domain.UpdateRelationshipRequest) (*domain.Relationship, error) {
	r, err := s.relationships.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]any{}
	if req.Type != nil {
		typ, err := impact.ParseRelationType(*req.Type)
		if err != nil {
			return nil, err
		}
		if typ != r.Type {
			changes["type"] = string(typ)
			r.Type = typ
		}
	}
	if req.Label != nil && *req.Label != r.Label {
		changes["label"] = *req.Label
		r.Label = *req.Label
	}
	if len(changes) == 0 {
		return r, nil
	}

	if err := s.relationships.Update(ctx, r); err != nil {
		return nil, err
	}
	s.changed(ctx, actor, domain.EntityRelationship, r.ID, auditdomain.ActionUpdated, changes)
	return r, nil
}

func (s *InventoryService) DeleteRelationship(ctx context.Context, actor, id string) error {
	if err := s.relationships.Delete(ctx, id); err != nil {
		return err
	}
	s.changed(ctx, actor, domain.EntityRelationship, id, auditdomain.ActionDeleted, nil)
	return nil
}

// ImportResult reports what a bulk import wrote.
type ImportResult struct {
	Artefacts     int   `json:"artefacts"`
	Relationships int   `json:"relationships"`
	Revision      int64 `json:"revision"`
}

// Import validates doc and upserts it in a single transaction.
func (s *InventoryService) Import(ctx context.Context, actor string, doc *ingest.Document) (*ImportResult, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	arts, rels := doc.ToInventory()
	if err := s.importer.Import(ctx, arts, rels); err != nil {
		return nil, err
	}

	rev := s.changed(ctx, actor, domain.EntityGraph, "", auditdomain.ActionImported, map[string]any{
		"artefacts": len(arts), "relationships": len(rels),
	})
	return &ImportResult{Artefacts: len(arts), Relationships: len(rels), Revision: rev}, nil
}

// Snapshot loads the whole graph. The revision is read before the tables so
// a concurrent write can only make the snapshot newer than its label, never
// older. Concurrent callers share a single load.
//
// The shared load is detached from any one caller's cancellation and bounded
// by its own timeout; a caller that goes away only stops waiting.
func (s *InventoryService) Snapshot(ctx context.Context) (*impact.Snapshot, error) {
	ch := s.snapshots.DoChan("snapshot", func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.loadTimeout)
		defer cancel()
		return s.loadSnapshot(lctx)
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-ch:
		metrics.RecordSnapshotLoad(r.Err)
		if r.Err != nil {
			return nil, r.Err
		}
		return r.Val.(*impact.Snapshot), nil
	}
}

func (s *InventoryService) loadSnapshot(ctx context.Context) (*impact.Snapshot, error) {
	rev, err := s.revisions.Current(ctx)
	if err != nil {
		return nil, err
	}

	var (
		arts []impact.Artefact
		rels []impact.Relationship
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		arts, err = s.artefacts.Views(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rels, err = s.relationships.Views(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}

	if arts == nil {
		arts = []impact.Artefact{}
	}
	if rels == nil {
		rels = []impact.Relationship{}
	}
	return &impact.Snapshot{Revision: rev, Artefacts: arts, Relationships: rels}, nil
}

// changed runs the post-commit bookkeeping for a mutation and returns the
// new revision (0 if the bump failed). The write is already durable, so
// failures here are logged rather than returned.
func (s *InventoryService) changed(ctx context.Context, actor, entity, id, action string, details map[string]any) int64 {
	metrics.RecordMutation(entity, action)

	rev, err := s.revisions.Bump(ctx, domain.ChangeEvent{
		EntityType: entity,
		EntityID:   id,
		Action:     action,
		Actor:      actor,
		At:         s.now().UTC(),
	})
	if err != nil {
		slog.ErrorContext(ctx, "graph revision bump failed", "entity_type", entity, "entity_id", id, "error", err)
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, auditdomain.Entry{
			Actor:      actor,
			Action:     action,
			EntityType: entity,
			EntityID:   id,
			Details:    details,
		})
	}
	return rev
}
