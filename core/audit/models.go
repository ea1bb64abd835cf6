package audit

import "time"

// Actions
const (
	ActionUserRegistered   = "USER_REGISTERED"
	ActionUserLogin        = "USER_LOGIN"
	ActionUserNameChanged  = "USER_NAME_CHANGED"
	ActionGroupCreated     = "GROUP_CREATED"
	ActionGroupJoined      = "GROUP_JOINED"
	ActionGroupLeft        = "GROUP_LEFT"
	ActionGroupAutoDeleted = "GROUP_AUTO_DELETED"
	ActionGroupToggled     = "GROUP_TOGGLED"
	ActionMessagePosted    = "MESSAGE_POSTED"
	ActionMessageReported  = "MESSAGE_REPORTED"
	ActionMessageDeleted   = "MESSAGE_DELETED"
	ActionMessageResolved  = "MESSAGE_RESOLVED"
	ActionReactionAdded    = "REACTION_ADDED"
	ActionReactionRemoved  = "REACTION_REMOVED"
)

// Entity types
const (
	EntityUser    = "user"
	EntityGroup   = "group"
	EntityMessage = "message"
)

// ActorSystem is recorded for actions no user performed directly.
const ActorSystem = "system"

// Event is one audit trail entry. EntityType, EntityID and Detail are optional.
type Event struct {
	ID         string    `json:"id"`
	Actor      string    `json:"actor"`
	Action     string    `json:"action"`
	EntityType string    `json:"entityType,omitempty"`
	EntityID   string    `json:"entityId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	CreatedAt  time.Time `json:"timestamp"`
}

type QueryFilter struct {
	Limit  int    `query:"limit"`
	Actor  string `query:"actor"`
	Action string `query:"action"`
}
