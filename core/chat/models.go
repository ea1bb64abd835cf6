package chat

import (
	"encoding/json"
	"time"
)

const (
	// RetentionLimit is the number of live (non-deleted) messages a group keeps.
	RetentionLimit = 50
	// MaxTextLen is the maximum length of a sanitized message, in characters.
	MaxTextLen = 500
)

// Reaction emojis
const (
	EmojiThumbsUp  = "👍"
	EmojiHeart     = "❤️"
	EmojiLightbulb = "💡"
)

var AllowedEmojis = []string{EmojiThumbsUp, EmojiHeart, EmojiLightbulb}

func IsAllowedEmoji(emoji string) bool {
	for _, e := range AllowedEmojis {
		if e == emoji {
			return true
		}
	}
	return false
}

// State is the moderation state of a message.
//
//	active   -> reported (report)
//	reported -> active   (resolve)
//	active, reported -> deleted (delete; terminal)
type State string

const (
	StateActive   State = "active"
	StateReported State = "reported"
	StateDeleted  State = "deleted"
)

var transitions = map[State][]State{
	StateActive:   {StateReported, StateDeleted},
	StateReported: {StateActive, StateDeleted},
}

// CanTransition reports whether a message in state s may move to state to.
func (s State) CanTransition(to State) bool {
	for _, st := range transitions[s] {
		if st == to {
			return true
		}
	}
	return false
}

// Sources lists the states from which `to` can be reached.
func Sources(to State) []State {
	var states []State
	for from, tos := range transitions {
		for _, st := range tos {
			if st == to {
				states = append(states, from)
			}
		}
	}
	return states
}

func (s State) IsLive() bool { return s != StateDeleted }

// Reactions maps an emoji to the names of the users who reacted with it, in reaction order.
type Reactions map[string][]string

type Message struct {
	ID        string    `json:"id"`
	GroupID   string    `json:"groupId"`
	Author    string    `json:"author"`
	Text      string    `json:"text"`
	State     State     `json:"-"`
	CreatedAt time.Time `json:"timestamp"` // UTC
	Reactions Reactions `json:"reactions"`
}

func (m Message) IsReported() bool { return m.State == StateReported }

func (m Message) MarshalJSON() ([]byte, error) {
	type alias Message
	reactions := m.Reactions
	if reactions == nil {
		reactions = Reactions{}
	}
	return json.Marshal(struct {
		alias
		Reported  bool      `json:"reported"`
		Reactions Reactions `json:"reactions"`
	}{
		alias:     alias(m),
		Reported:  m.IsReported(),
		Reactions: reactions,
	})
}

type Reaction struct {
	MessageID string    `json:"messageId"`
	UserName  string    `json:"userName"`
	Emoji     string    `json:"emoji"`
	CreatedAt time.Time `json:"createdAt"`
}

// ReactionAction is the outcome of a reaction toggle.
type ReactionAction string

const (
	ReactionAdded   ReactionAction = "added"
	ReactionRemoved ReactionAction = "removed"
)

// ReportedMessage is a message awaiting moderation, with its course and group.
type ReportedMessage struct {
	ID          string    `json:"id"`
	Text        string    `json:"text"`
	Author      string    `json:"author"`
	CreatedAt   time.Time `json:"timestamp"`
	CourseCode  string    `json:"courseCode"`
	CourseTitle string    `json:"courseTitle"`
	GroupID     string    `json:"groupId"`
	GroupName   string    `json:"groupName"`
}

// Actor is the caller of a moderation operation. IsAdmin comes from the authenticated session, never from the name.
type Actor struct {
	Name    string
	IsAdmin bool
}

// NewMessage holds the raw text a member posts.
type NewMessage struct {
	Text string `json:"text"`
}

// LastActivity is the user's most recent live message and the group it was posted in.
type LastActivity struct {
	MessageID  string    `json:"-"`
	CreatedAt  time.Time `json:"lastActive"`
	GroupID    string    `json:"groupId"`
	GroupName  string    `json:"groupName"`
	CourseCode string    `json:"courseCode"`
}
