package users

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrUserNotFound   = errors.New("user not found")
	ErrInvalidRole    = errors.New("invalid role")
	ErrOwnRoleChange  = errors.New("cannot change your own role")
	ErrExternalIDReqd = errors.New("external user id required")
)

type Role string

const (
	RoleAdmin     Role = "admin"
	RoleArchitect Role = "architect"
	RoleAuditor   Role = "auditor"
	RoleViewer    Role = "viewer"
)

func ParseRole(s string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(s)))
	switch r {
	case RoleAdmin, RoleArchitect, RoleAuditor, RoleViewer:
		return r, nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
}

type Permission int

const (
	PermRead Permission = iota
	PermWrite
	PermAudit
	PermManageUsers
)

var grants = map[Role][]Permission{
	RoleAdmin:     {PermRead, PermWrite, PermAudit, PermManageUsers},
	RoleArchitect: {PermRead, PermWrite},
	RoleAuditor:   {PermRead, PermAudit},
	RoleViewer:    {PermRead},
}

func (r Role) Can(p Permission) bool {
	for _, g := range grants[r] {
		if g == p {
			return true
		}
	}
	return false
}

type User struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	Email       string    `json:"email,omitempty"`
	DisplayName string    `json:"display_name,omitempty"`
	Role        Role      `json:"role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// UpsertUser is the identity presented on a request. DefaultRole applies
// only when the user is first created.
type UpsertUser struct {
	ExternalID  string
	Email       string
	DisplayName string
	DefaultRole Role
}
