package domain

import (
	"time"

	impact "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
)

// Artefact is an inventory item: a business process, application, data
// store, technology, security control or integration component.
type Artefact struct {
	ID          string              `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description,omitempty"`
	Type        impact.ArtefactType `json:"type"`
	RiskLevel   impact.RiskLevel    `json:"risk_level"`
	Owner       string              `json:"owner,omitempty"`
	Tags        []string            `json:"tags"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
}

// View returns the projection the impact analyzer reads.
func (a Artefact) View() impact.Artefact {
	return impact.Artefact{ID: a.ID, Name: a.Name, Type: a.Type, RiskLevel: a.RiskLevel}
}

type Relationship struct {
	ID        string              `json:"id"`
	SourceID  string              `json:"source_id"`
	TargetID  string              `json:"target_id"`
	Type      impact.RelationType `json:"type"`
	Label     string              `json:"label,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

func (r Relationship) View() impact.Relationship {
	return impact.Relationship{ID: r.ID, Source: r.SourceID, Target: r.TargetID, Type: r.Type, Label: r.Label}
}

type CreateArtefactRequest struct {
	ID          string
	Name        string
	Description string
	Type        string
	RiskLevel   string
	Owner       string
	Tags        []string
}

// UpdateArtefactRequest carries optional fields; nil leaves the value unchanged.
type UpdateArtefactRequest struct {
	Name        *string
	Description *string
	Type        *string
	RiskLevel   *string
	Owner       *string
	Tags        []string
}

type ArtefactFilter struct {
	Type      impact.ArtefactType
	RiskLevel impact.RiskLevel
	Search    string
	Limit     int
	Offset    int
}

type CreateRelationshipRequest struct {
	SourceID string
	TargetID string
	Type     string
	Label    string
}

type UpdateRelationshipRequest struct {
	Type  *string
	Label *string
}

type RelationshipFilter struct {
	ArtefactID string
	Type       impact.RelationType
}

// ChangeEvent is published whenever the graph changes.
type ChangeEvent struct {
	Revision   int64     `json:"revision"`
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	Action     string    `json:"action"`
	Actor      string    `json:"actor,omitempty"`
	At         time.Time `json:"at"`
}

const (
	EntityArtefact     = "artefact"
	EntityRelationship = "relationship"
	EntityGraph        = "graph"
)
