package domain

import "errors"

var (
	ErrInvalidRiskLevel    = errors.New("invalid risk level")
	ErrInvalidArtefactType = errors.New("invalid artefact type")
	ErrInvalidRelationType = errors.New("invalid relation type")
)
