package service

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/report"
	"github.com/GoSim-25-26J-441/ea-backend/internal/metrics"
)

// SnapshotSource supplies consistent copies of the graph store.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (*domain.Snapshot, error)
}

// Result is one analysis of a root artefact against a snapshot.
type Result struct {
	Root     *domain.Artefact     `json:"root,omitempty"`
	Found    bool                 `json:"found"`
	Revision int64                `json:"revision"`
	Closure  domain.Closure       `json:"-"`
	Summary  domain.ImpactSummary `json:"summary"`
	Cached   bool                 `json:"cached"`
}

// DeletionPreview describes what removing an artefact would do.
type DeletionPreview struct {
	Result
	RemovedRelationships []domain.Relationship `json:"removedRelationships"`
}

type cacheKey struct {
	revision int64
	root     string
}

// Analyzer runs impact analysis over store snapshots. Results are cached
// per (revision, root); a new revision makes old entries unreachable and
// they age out of the LRU.
type Analyzer struct {
	source SnapshotSource
	cache  *lru.Cache[cacheKey, Result]
}

// NewAnalyzer creates an analyzer. cacheSize <= 0 disables caching.
func NewAnalyzer(source SnapshotSource, cacheSize int) (*Analyzer, error) {
	a := &Analyzer{source: source}
	if cacheSize > 0 {
		c, err := lru.New[cacheKey, Result](cacheSize)
		if err != nil {
			return nil, fmt.Errorf("create impact cache: %w", err)
		}
		a.cache = c
	}
	return a, nil
}

// Analyze computes the impact of rootID on the current graph. An unknown
// root is not an error: the result has Found=false and empty lists.
func (a *Analyzer) Analyze(ctx context.Context, rootID string) (Result, error) {
	snap, err := a.source.Snapshot(ctx)
	if err != nil {
		return Result{}, err
	}

	key := cacheKey{revision: snap.Revision, root: rootID}
	if a.cache != nil {
		if res, ok := a.cache.Get(key); ok {
			metrics.RecordImpactCacheHit()
			res = res.clone()
			res.Cached = true
			return res, nil
		}
	}

	res := AnalyzeSnapshot(rootID, snap)
	if a.cache != nil {
		a.cache.Add(key, res.clone())
	}

	slog.DebugContext(ctx, "impact analyzed",
		"root", rootID, "revision", snap.Revision,
		"upstream", len(res.Closure.Upstream), "downstream", len(res.Closure.Downstream))
	return res, nil
}

// PreviewDeletion analyzes rootID and lists the relationships a delete
// would cascade to.
func (a *Analyzer) PreviewDeletion(ctx context.Context, rootID string) (DeletionPreview, error) {
	snap, err := a.source.Snapshot(ctx)
	if err != nil {
		return DeletionPreview{}, err
	}
	return PreviewDeletion(rootID, snap), nil
}

// AnalyzeSnapshot is the uncached analysis of a caller-supplied snapshot.
func AnalyzeSnapshot(rootID string, snap *domain.Snapshot) Result {
	start := time.Now()
	byID := snap.ArtefactsByID()
	closure, summary := report.Analyze(rootID, snap)

	res := Result{
		Found:    true,
		Revision: snap.Revision,
		Closure:  closure,
		Summary:  summary,
	}
	if root, ok := byID[rootID]; ok {
		res.Root = &root
	} else {
		res.Found = false
	}

	metrics.RecordImpactAnalysis(time.Since(start), summary.TotalAffected)
	return res
}

func PreviewDeletion(rootID string, snap *domain.Snapshot) DeletionPreview {
	p := DeletionPreview{
		Result:               AnalyzeSnapshot(rootID, snap),
		RemovedRelationships: []domain.Relationship{},
	}
	for _, r := range snap.Relationships {
		if r.Source == rootID || r.Target == rootID {
			p.RemovedRelationships = append(p.RemovedRelationships, r)
		}
	}
	return p
}

// clone copies the slices of r so callers never share backing arrays with
// the cache.
func (r Result) clone() Result {
	if r.Root != nil {
		root := *r.Root
		r.Root = &root
	}
	r.Closure = domain.Closure{
		Upstream:   slices.Clone(r.Closure.Upstream),
		Downstream: slices.Clone(r.Closure.Downstream),
	}
	r.Summary.DirectImpact = slices.Clone(r.Summary.DirectImpact)
	r.Summary.IndirectImpact = slices.Clone(r.Summary.IndirectImpact)
	r.Summary.Upstream = slices.Clone(r.Summary.Upstream)
	r.Summary.Downstream = slices.Clone(r.Summary.Downstream)
	return r
}
