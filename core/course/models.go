package course

// Roster statuses
const (
	StatusInGroup = "IN_GROUP"
	StatusOpen    = "OPEN"
)

type Course struct {
	Code  string `json:"code" yaml:"code"`
	Title string `json:"title" yaml:"title"`
}

// RosterEntry is a user who has engaged with the course, and whether they currently belong to one of its groups.
type RosterEntry struct {
	Name   string `json:"name"`
	Status string `json:"status"`
}
