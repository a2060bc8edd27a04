package domain

import "errors"

var (
	ErrArtefactNotFound     = errors.New("artefact not found")
	ErrRelationshipNotFound = errors.New("relationship not found")
	ErrDuplicateArtefact    = errors.New("artefact already exists")
	ErrSelfReference        = errors.New("relationship source and target must differ")
	ErrUnknownEndpoint      = errors.New("relationship endpoint does not exist")
	ErrNameRequired         = errors.New("name required")
)
