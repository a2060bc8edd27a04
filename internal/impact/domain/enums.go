package domain

import (
	"fmt"
	"strings"
)

type RiskLevel string

const (
	RiskHigh   RiskLevel = "high"
	RiskMedium RiskLevel = "medium"
	RiskLow    RiskLevel = "low"
	RiskNone   RiskLevel = "none"
)

// Severity orders risk levels; unknown levels rank below none.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskHigh:
		return 3
	case RiskMedium:
		return 2
	case RiskLow:
		return 1
	case RiskNone:
		return 0
	default:
		return -1
	}
}

func ParseRiskLevel(s string) (RiskLevel, error) {
	r := RiskLevel(strings.ToLower(strings.TrimSpace(s)))
	if r == "" {
		return RiskNone, nil
	}
	if r.Severity() < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidRiskLevel, s)
	}
	return r, nil
}

type ArtefactType string

const (
	TypeBusiness    ArtefactType = "business"
	TypeData        ArtefactType = "data"
	TypeApplication ArtefactType = "application"
	TypeTechnology  ArtefactType = "technology"
	TypeSecurity    ArtefactType = "security"
	TypeIntegration ArtefactType = "integration"
)

var artefactTypes = map[ArtefactType]bool{
	TypeBusiness:    true,
	TypeData:        true,
	TypeApplication: true,
	TypeTechnology:  true,
	TypeSecurity:    true,
	TypeIntegration: true,
}

func ParseArtefactType(s string) (ArtefactType, error) {
	t := ArtefactType(strings.ToLower(strings.TrimSpace(s)))
	if !artefactTypes[t] {
		return "", fmt.Errorf("%w: %q", ErrInvalidArtefactType, s)
	}
	return t, nil
}

type RelationType string

const (
	RelSupports       RelationType = "supports"
	RelUses           RelationType = "uses"
	RelDependsOn      RelationType = "depends_on"
	RelManages        RelationType = "manages"
	RelIntegratesWith RelationType = "integrates_with"
)

var relationTypes = map[RelationType]bool{
	RelSupports:       true,
	RelUses:           true,
	RelDependsOn:      true,
	RelManages:        true,
	RelIntegratesWith: true,
}

func ParseRelationType(s string) (RelationType, error) {
	t := RelationType(strings.ToLower(strings.TrimSpace(s)))
	if !relationTypes[t] {
		return "", fmt.Errorf("%w: %q", ErrInvalidRelationType, s)
	}
	return t, nil
}

type Direction string

const (
	Upstream   Direction = "upstream"
	Downstream Direction = "downstream"
)

type ImpactType string

const (
	ImpactDirect   ImpactType = "direct"
	ImpactIndirect ImpactType = "indirect"
)

// ImpactTypeForDepth classifies a traversal depth; only depth 1 is direct.
func ImpactTypeForDepth(depth int) ImpactType {
	if depth == 1 {
		return ImpactDirect
	}
	return ImpactIndirect
}
