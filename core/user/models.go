package user

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"

	"github.com/dismod47/GroupChatProject/core"
)

// Roles
const (
	RoleAdmin   = "admin:"
	RoleStudent = "student:"
)

var (
	AdminRoles   = []string{RoleAdmin}
	StudentRoles = []string{RoleStudent}
	AllRoles     = []string{RoleAdmin, RoleStudent}
)

type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"userName"`
	Roles        []string  `json:"roles"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"` // UTC
	UpdatedAt    time.Time `json:"updatedAt"` // UTC
	LastLogin    time.Time `json:"lastLogin"` // UTC
}

func (u *User) SetPassword(pwd string) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(pwd), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	return nil
}

func (u *User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword(u.PasswordHash, []byte(pwd))
}

func (u *User) RoleStartsWith(prefix string) bool {
	for _, role := range u.Roles {
		if strings.HasPrefix(role, prefix) {
			return true
		}
	}
	return false
}

func (u *User) IsAdmin() bool {
	return u.RoleStartsWith(RoleAdmin)
}

func (u *User) IsStudent() bool {
	return u.RoleStartsWith(RoleStudent)
}

// Credentials is what a caller provides to log in, or to sign up when CreateIfMissing is set.
type Credentials struct {
	Name            string `json:"userName" validate:"required,max=50,username"`
	Password        string `json:"password" validate:"required,max=72"`
	CreateIfMissing bool   `json:"createIfNotExists"`
}

func (c *Credentials) Validate(validate *validator.Validate) error {
	c.Name = core.CleanString(c.Name)
	return validate.Struct(c)
}

// NewUser contains information needed to create a new User.
type NewUser struct {
	Name     string   `json:"userName" validate:"required,max=50,username"`
	Password string   `json:"password" validate:"required,max=72"`
	Roles    []string `json:"roles" validate:"omitempty,allroles"`
}

func (nu *NewUser) Validate(validate *validator.Validate) error {
	nu.Name = core.CleanString(nu.Name)
	return validate.Struct(nu)
}

// RenameUser holds a request to change a user's display name. The password is re-checked.
type RenameUser struct {
	NewName  string `json:"newUserName" validate:"required,max=50,username"`
	Password string `json:"password" validate:"required"`
}

func (ru *RenameUser) Validate(validate *validator.Validate) error {
	ru.NewName = core.CleanString(ru.NewName)
	return validate.Struct(ru)
}

type GetFilter struct {
	ID   string
	Name string
}

func (f GetFilter) IsEmpty() bool {
	return f.ID == "" && f.Name == ""
}
