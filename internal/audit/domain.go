// Package audit records every tracked mutation as an immutable, append-only
// trail. Entries are written in the same transaction as the business mutation
// they describe; there is no update or delete path on purpose.
package audit

import (
	"context"
	"encoding/json"
	"time"

	"github.com/veritas-erp/veritas-erp/internal/shared"
)

// Action enumerates the recordable operations.
type Action string

const (
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionLogin  Action = "login"
	ActionLogout Action = "logout"
	ActionRead   Action = "read"
)

// Valid reports whether the action belongs to the closed set.
func (a Action) Valid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionLogin, ActionLogout, ActionRead:
		return true
	}
	return false
}

// Entry is one immutable audit record. Old/NewValues hold snapshots of only
// the relevant fields, serialized per entity type. The entity reference is
// weak: the trail survives deletion of the entity it describes.
type Entry struct {
	ID         int64
	UserID     *int64
	Action     Action
	EntityType string
	EntityID   string
	OldValues  json.RawMessage
	NewValues  json.RawMessage
	IPAddress  string
	UserAgent  string
	Timestamp  time.Time
}

// NewEntry builds an entry stamped with the actor attached to ctx. A missing
// actor yields a system-initiated entry (null user).
func NewEntry(ctx context.Context, action Action, entityType, entityID string) Entry {
	actor := shared.ActorFromContext(ctx)
	return Entry{
		UserID:     actor.UserID,
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		IPAddress:  actor.IPAddress,
		UserAgent:  actor.UserAgent,
	}
}

// Filters narrow an audit query. Every field is independently optional.
type Filters struct {
	UserID     *int64
	Action     Action
	EntityType string
	Start      time.Time
	End        time.Time
	Search     string
}
