package ingest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	impact "github.com/GoSim-25-26J-441/ea-backend/internal/impact/domain"
	"github.com/GoSim-25-26J-441/ea-backend/internal/inventory/domain"
)

// Document is the import/export format for a whole inventory graph.
type Document struct {
	Artefacts     []ArtefactDoc     `json:"artefacts" yaml:"artefacts" validate:"dive"`
	Relationships []RelationshipDoc `json:"relationships" yaml:"relationships" validate:"dive"`
}

type ArtefactDoc struct {
	ID          string   `json:"id" yaml:"id" validate:"required,max=128"`
	Name        string   `json:"name" yaml:"name" validate:"required,max=256"`
	Description string   `json:"description,omitempty" yaml:"description,omitempty"`
	Type        string   `json:"type" yaml:"type" validate:"required,oneof=business data application technology security integration"`
	RiskLevel   string   `json:"riskLevel,omitempty" yaml:"riskLevel,omitempty" validate:"omitempty,oneof=high medium low none"`
	Owner       string   `json:"owner,omitempty" yaml:"owner,omitempty"`
	Tags        []string `json:"tags,omitempty" yaml:"tags,omitempty"`
}

type RelationshipDoc struct {
	ID     string `json:"id,omitempty" yaml:"id,omitempty"`
	Source string `json:"source" yaml:"source" validate:"required,nefield=Target"`
	Target string `json:"target" yaml:"target" validate:"required"`
	Type   string `json:"type,omitempty" yaml:"type,omitempty" validate:"omitempty,oneof=supports uses depends_on manages integrates_with"`
	Label  string `json:"label,omitempty" yaml:"label,omitempty"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func ParseYAML(r io.Reader) (*Document, error) {
	var doc Document
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return &doc, nil
		}
		return nil, fmt.Errorf("parse yaml: %w", err)
	}
	return &doc, nil
}

func ParseJSON(r io.Reader) (*Document, error) {
	var doc Document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return &doc, nil
}

// Parse picks the decoder from a file name or content type.
func Parse(r io.Reader, hint string) (*Document, error) {
	h := strings.ToLower(hint)
	if strings.HasSuffix(h, ".json") || strings.Contains(h, "json") {
		return ParseJSON(r)
	}
	return ParseYAML(r)
}

// Validate checks field rules and cross-references: artefact ids are unique,
// relationship ids are unique when given.
//
// Relationships may point at ids outside the document; the store rejects
// them on import, the analyzer treats them as opaque nodes.
func (d *Document) Validate() error {
	if err := validate.Struct(d); err != nil {
		return fmt.Errorf("invalid document: %w", err)
	}

	seen := make(map[string]bool, len(d.Artefacts))
	for _, a := range d.Artefacts {
		if seen[a.ID] {
			return fmt.Errorf("invalid document: duplicate artefact id %q", a.ID)
		}
		seen[a.ID] = true
	}

	relIDs := make(map[string]bool, len(d.Relationships))
	for _, r := range d.Relationships {
		if r.ID == "" {
			continue
		}
		if relIDs[r.ID] {
			return fmt.Errorf("invalid document: duplicate relationship id %q", r.ID)
		}
		relIDs[r.ID] = true
	}
	return nil
}

// ToInventory converts a validated document into store records, assigning
// ids to relationships that have none.
func (d *Document) ToInventory() ([]domain.Artefact, []domain.Relationship) {
	arts := make([]domain.Artefact, 0, len(d.Artefacts))
	for _, a := range d.Artefacts {
		risk := impact.RiskLevel(a.RiskLevel)
		if risk == "" {
			risk = impact.RiskNone
		}
		tags := a.Tags
		if tags == nil {
			tags = []string{}
		}
		arts = append(arts, domain.Artefact{
			ID:          a.ID,
			Name:        a.Name,
			Description: a.Description,
			Type:        impact.ArtefactType(a.Type),
			RiskLevel:   risk,
			Owner:       a.Owner,
			Tags:        tags,
		})
	}

	rels := make([]domain.Relationship, 0, len(d.Relationships))
	for _, r := range d.Relationships {
		id := r.ID
		if id == "" {
			id = uuid.New().String()
		}
		typ := impact.RelationType(r.Type)
		if typ == "" {
			typ = impact.RelDependsOn
		}
		rels = append(rels, domain.Relationship{ID: id, SourceID: r.Source, TargetID: r.Target, Type: typ, Label: r.Label})
	}
	return arts, rels
}

// ToSnapshot builds an analyzer snapshot straight from the document.
func (d *Document) ToSnapshot() *impact.Snapshot {
	arts, rels := d.ToInventory()
	snap := &impact.Snapshot{
		Artefacts:     make([]impact.Artefact, 0, len(arts)),
		Relationships: make([]impact.Relationship, 0, len(rels)),
	}
	for _, a := range arts {
		snap.Artefacts = append(snap.Artefacts, a.View())
	}
	for _, r := range rels {
		snap.Relationships = append(snap.Relationships, r.View())
	}
	return snap
}

// FromSnapshot renders a snapshot back into a document for export.
func FromSnapshot(s *impact.Snapshot) *Document {
	doc := &Document{
		Artefacts:     make([]ArtefactDoc, 0, len(s.Artefacts)),
		Relationships: make([]RelationshipDoc, 0, len(s.Relationships)),
	}
	for _, a := range s.Artefacts {
		doc.Artefacts = append(doc.Artefacts, ArtefactDoc{ID: a.ID, Name: a.Name, Type: string(a.Type), RiskLevel: string(a.RiskLevel)})
	}
	for _, r := range s.Relationships {
		doc.Relationships = append(doc.Relationships, RelationshipDoc{ID: r.ID, Source: r.Source, Target: r.Target, Type: string(r.Type), Label: r.Label})
	}
	return doc
}
