package core

// Live event types pushed to group subscribers.
const (
	EventMessageCreated  = "message.created"
	EventMessageDeleted  = "message.deleted"
	EventReactionToggled = "reaction.toggled"
	EventGroupUpdated    = "group.updated"
	EventGroupDeleted    = "group.deleted"
)

type Event struct {
	Type    string      `json:"type"`
	GroupID string      `json:"groupId"`
	Data    interface{} `json:"data,omitempty"`
}

// Notifier fans events out to the live subscribers of a group.
// Notify must not block on slow subscribers.
type Notifier interface {
	Notify(evt Event)
	// Unsubscribe closes userName's subscriptions to the group. Events notified afterwards never reach them.
	Unsubscribe(groupID, userName string)
}
