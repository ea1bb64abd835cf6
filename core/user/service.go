package user

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
)

var (
	// errors
	ErrNotFound   = errors.New("user not found")
	ErrUserExists = errors.New("a user with this name already exists")
)

type (
	Repository interface {
		CreateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		GetUser(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (User, error)
		UpdateUser(ctx context.Context, usr User, exec ...core.DBExecutor) (User, error)
		// RenameUser rewrites every reference to oldName: the user row, group memberships, roster entries,
		// message authors, reactions and group creators.
		RenameUser(ctx context.Context, oldName, newName string, exec ...core.DBExecutor) error
	}

	Service struct {
		db       core.DB
		repo     Repository
		auditSvc *audit.Service
		validate *validator.Validate
	}
)

func NewService(db core.DB, repo Repository, auditSvc *audit.Service, validate *validator.Validate) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		auditSvc: auditSvc,
		validate: validate,
	}
}

// Authenticate checks the user's password, or creates the account when it does not exist and createIfMissing is set.
func (svc *Service) Authenticate(ctx context.Context, name, pwd string, createIfMissing bool) (User, error) {
	name = core.CleanString(name)

	usr, err := svc.repo.GetUser(ctx, GetFilter{Name: name})
	switch {
	case err == nil:
		if err = usr.CheckPassword(pwd); err != nil {
			return User{}, core.ErrInvalidPassword
		}
		usr.LastLogin = core.Now()
		if usr, err = svc.repo.UpdateUser(ctx, usr); err != nil {
			return User{}, errors.Wrap(err, "setting lastLogin")
		}
		svc.auditSvc.Record(ctx, audit.Event{Actor: usr.Name, Action: audit.ActionUserLogin, EntityType: audit.EntityUser, EntityID: usr.Name})
		return usr, nil

	case errors.Cause(err) != ErrNotFound:
		return User{}, errors.Wrap(err, "finding user by name")

	case !createIfMissing:
		return User{}, core.ErrUserNotFound
	}

	nu := NewUser{Name: name, Password: pwd, Roles: StudentRoles}
	if err = nu.Validate(svc.validate); err != nil {
		return User{}, err
	}
	if usr, err = svc.create(ctx, nu); err != nil {
		return User{}, err
	}
	svc.auditSvc.Record(ctx, audit.Event{Actor: usr.Name, Action: audit.ActionUserRegistered, EntityType: audit.EntityUser, EntityID: usr.Name})
	return usr, nil
}

// Create adds a new account. nu must already be validated.
func (svc *Service) Create(ctx context.Context, nu NewUser) (User, error) {
	return svc.create(ctx, nu)
}

func (svc *Service) create(ctx context.Context, nu NewUser) (User, error) {
	now := core.Now()
	usr := User{
		Name:      nu.Name,
		Roles:     nu.Roles,
		CreatedAt: now,
		UpdatedAt: now,
		LastLogin: now,
	}
	if len(usr.Roles) == 0 {
		usr.Roles = StudentRoles
	}
	if err := usr.SetPassword(nu.Password); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr, err := svc.repo.CreateUser(ctx, usr)
	if err != nil {
		if errors.Cause(err) == ErrUserExists {
			return User{}, core.ErrUsernameTaken
		}
		return User{}, errors.Wrap(err, "creating user")
	}
	return usr, nil
}

func (svc *Service) GetByID(ctx context.Context, id string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{ID: id})
}

func (svc *Service) GetByName(ctx context.Context, name string) (User, error) {
	return svc.repo.GetUser(ctx, GetFilter{Name: core.CleanString(name)})
}

// Rename changes the user's name everywhere it is referenced, in one transaction.
func (svc *Service) Rename(ctx context.Context, oldName string, ru RenameUser) (User, error) {
	var usr User
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		usr, err = svc.repo.GetUser(ctx, GetFilter{Name: oldName}, tx)
		if err != nil {
			if errors.Cause(err) == ErrNotFound {
				return core.ErrUserNotFound
			}
			return errors.Wrap(err, "finding user by name")
		}
		if err = usr.CheckPassword(ru.Password); err != nil {
			return core.ErrInvalidPassword
		}

		if _, err = svc.repo.GetUser(ctx, GetFilter{Name: ru.NewName}, tx); err == nil {
			return core.ErrUsernameTaken
		} else if errors.Cause(err) != ErrNotFound {
			return errors.Wrap(err, "checking name uniqueness")
		}

		if err = svc.repo.RenameUser(ctx, oldName, ru.NewName, tx); err != nil {
			if errors.Cause(err) == ErrUserExists {
				return core.ErrUsernameTaken
			}
			return errors.Wrap(err, "renaming user")
		}
		usr.Name = ru.NewName
		return nil
	})
	if err != nil {
		return User{}, err
	}

	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      oldName,
		Action:     audit.ActionUserNameChanged,
		EntityType: audit.EntityUser,
		EntityID:   oldName,
		Detail:     "To: " + ru.NewName,
	})
	return usr, nil
}

// SetPassword replaces the user's password without checking the previous one.
func (svc *Service) SetPassword(ctx context.Context, name, pwd string) (User, error) {
	usr, err := svc.GetByName(ctx, name)
	if err != nil {
		return User{}, err
	}
	if err = usr.SetPassword(pwd); err != nil {
		return User{}, errors.Wrap(err, "hashing password")
	}
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}

// SetRoles replaces the user's roles.
func (svc *Service) SetRoles(ctx context.Context, usr User, roles []string) (User, error) {
	usr.Roles = roles
	usr.UpdatedAt = core.Now()
	return svc.repo.UpdateUser(ctx, usr)
}
