package report

import (
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/impact/engine"
)

// Summarize derives counts and categorized lists from a closure.
// Upstream entries are dependencies, so only downstream counts towards
// TotalAffected. Unresolved artefact ids have unknown risk.
func Summarize(rootID string, closure domain.Closure, artefactsByID map[string]domain.Artefact) domain.ImpactSummary {
	s := domain.ImpactSummary{
		RootID:         rootID,
		TotalAffected:  len(closure.Downstream),
		DirectImpact:   []domain.ImpactNode{},
		IndirectImpact: []domain.ImpactNode{},
		Upstream:       nonNil(closure.Upstream),
		Downstream:     nonNil(closure.Downstream),
	}

	for _, list := range [][]domain.ImpactNode{s.Upstream, s.Downstream} {
		for _, n := range list {
			if n.ImpactType == domain.ImpactDirect {
				s.DirectImpact = append(s.DirectImpact, n)
			} else {
				s.IndirectImpact = append(s.IndirectImpact, n)
			}
			if a, ok := artefactsByID[n.ArtefactID]; ok && a.RiskLevel == domain.RiskHigh {
				s.HighRiskCount++
			}
		}
	}
	return s
}

// Analyze runs the closure engine over a snapshot and summarizes the result.
func Analyze(rootID string, snap *domain.Snapshot) (domain.Closure, domain.ImpactSummary) {
	byID := snap.ArtefactsByID()
	closure := engine.ComputeClosure(rootID, snap.Relationships, byID)
	return closure, Summarize(rootID, closure, byID)
}

func nonNil(in []domain.ImpactNode) []domain.ImpactNode {
	if in == nil {
		return []domain.ImpactNode{}
	}
	return in
}
