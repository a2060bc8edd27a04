package domain

// Artefact is the read-only view of an inventory item used by the analyzer.
type Artefact struct {
	ID        string       `json:"id" yaml:"id"`
	Name      string       `json:"name,omitempty" yaml:"name,omitempty"`
	Type      ArtefactType `json:"type,omitempty" yaml:"type,omitempty"`
	RiskLevel RiskLevel    `json:"riskLevel" yaml:"riskLevel"`
}

// Relationship is a directed edge: Source depends on / uses / manages Target.
type Relationship struct {
	ID     string       `json:"id,omitempty" yaml:"id,omitempty"`
	Source string       `json:"source" yaml:"source"`
	Target string       `json:"target" yaml:"target"`
	Type   RelationType `json:"type,omitempty" yaml:"type,omitempty"`
	Label  string       `json:"label,omitempty" yaml:"label,omitempty"`
}

// Snapshot is an immutable copy of the graph store at a given revision.
type Snapshot struct {
	Revision      int64          `json:"revision" yaml:"revision"`
	Artefacts     []Artefact     `json:"artefacts" yaml:"artefacts"`
	Relationships []Relationship `json:"relationships" yaml:"relationships"`
}

// ArtefactsByID indexes the snapshot's artefacts. Later duplicates win.
func (s *Snapshot) ArtefactsByID() map[string]Artefact {
	out := make(map[string]Artefact, len(s.Artefacts))
	for _, a := range s.Artefacts {
		out[a.ID] = a
	}
	return out
}

type ImpactNode struct {
	ArtefactID string     `json:"artefactId" yaml:"artefactId"`
	Direction  Direction  `json:"direction" yaml:"direction"`
	Depth      int        `json:"depth" yaml:"depth"`
	ImpactType ImpactType `json:"impactType" yaml:"impactType"`
}

type Closure struct {
	Upstream   []ImpactNode `json:"upstream" yaml:"upstream"`
	Downstream []ImpactNode `json:"downstream" yaml:"downstream"`
}

// Empty reports whether neither direction reached any artefact.
func (c Closure) Empty() bool {
	return len(c.Upstream) == 0 && len(c.Downstream) == 0
}

type ImpactSummary struct {
	RootID         string       `json:"rootId" yaml:"rootId"`
	TotalAffected  int          `json:"totalAffected" yaml:"totalAffected"`
	DirectImpact   []ImpactNode `json:"directImpact" yaml:"directImpact"`
	IndirectImpact []ImpactNode `json:"indirectImpact" yaml:"indirectImpact"`
	HighRiskCount  int          `json:"highRiskCount" yaml:"highRiskCount"`
	Upstream       []ImpactNode `json:"upstream" yaml:"upstream"`
	Downstream     []ImpactNode `json:"downstream" yaml:"downstream"`
}
