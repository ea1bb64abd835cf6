package group

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dismod47/GroupChatProject/core"
)

// MaxSize is the maximum number of members in a group.
const MaxSize = 5

type Group struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	CourseCode  string    `json:"courseCode"`
	CreatorName string    `json:"creatorName"`
	IsOpen      bool      `json:"isOpen"`
	Members     []string  `json:"members"`
	CreatedAt   time.Time `json:"createdAt"` // UTC
}

func (g Group) HasMember(userName string) bool {
	for _, m := range g.Members {
		if m == userName {
			return true
		}
	}
	return false
}

// Summary is a group as listed on its course page.
type Summary struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Size        int    `json:"size"`
	MaxSize     int    `json:"maxSize"`
	IsOpen      bool   `json:"isOpen"`
	CreatorName string `json:"creatorName"`
}

// Membership is a group the user belongs to, across all courses.
type Membership struct {
	GroupID     string `json:"groupId"`
	GroupName   string `json:"groupName"`
	CourseCode  string `json:"courseCode"`
	CourseTitle string `json:"courseTitle"`
	IsOpen      bool   `json:"isOpen"`
	Size        int    `json:"size"`
	MaxSize     int    `json:"maxSize"`
}

// LeaveResult holds the refreshed group, or Archived when the last member left and the group was deleted.
type LeaveResult struct {
	Group    *Group `json:"group"`
	Archived bool   `json:"archived"`
}

// NewGroup contains information needed to create a new Group.
type NewGroup struct {
	Name string `json:"name" validate:"required,max=80"`
}

func (ng *NewGroup) Validate(validate *validator.Validate) error {
	ng.Name = core.CleanString(ng.Name)
	return validate.Struct(ng)
}

type GetFilter struct {
	ID         string
	CourseCode string
	// ForUpdate locks the group row until the end of the transaction, on engines that support it.
	ForUpdate bool
}
