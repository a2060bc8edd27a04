package domain

import "time"

// Entry is one audit log record describing a change to the inventory.
type Entry struct {
	ID         string         `json:"id"`
	Actor      string         `json:"actor"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

const (
	ActionCreated  = "created"
	ActionUpdated  = "updated"
	ActionDeleted  = "deleted"
	ActionImported = "imported"
	ActionRole     = "role_changed"
)

type Filter struct {
	EntityType string
	EntityID   string
	Actor      string
	Limit      int
	Offset     int
}
