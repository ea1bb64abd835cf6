package group

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/course"
)

var (
	// errors
	ErrNotFound      = errors.New("group not found")
	ErrAlreadyMember = errors.New("user already belongs to a group of this course")
)

type (
	Repository interface {
		CreateGroup(ctx context.Context, grp Group, exec ...core.DBExecutor) (Group, error)
		// GetGroup returns the group with its members. CourseCode, when set, must match too.
		GetGroup(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Group, error)
		QueryGroups(ctx context.Context, courseCode string, exec ...core.DBExecutor) ([]Summary, error)
		QueryMemberships(ctx context.Context, userName string, exec ...core.DBExecutor) ([]Membership, error)
		// GetMemberGroupID returns the group userName belongs to in courseCode, or ErrNotFound.
		GetMemberGroupID(ctx context.Context, courseCode, userName string, exec ...core.DBExecutor) (string, error)
		IsMember(ctx context.Context, groupID, userName string, exec ...core.DBExecutor) (bool, error)
		CountMembers(ctx context.Context, groupID string, exec ...core.DBExecutor) (int, error)
		// AddMember returns ErrAlreadyMember if userName already belongs to a group of courseCode.
		AddMember(ctx context.Context, groupID, courseCode, userName string, exec ...core.DBExecutor) error
		RemoveMember(ctx context.Context, groupID, userName string, exec ...core.DBExecutor) (bool, error)
		// DeleteGroup deletes the group, its members and messages.
		DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error
		// ToggleOpen flips is_open in a single statement.
		ToggleOpen(ctx context.Context, id string, exec ...core.DBExecutor) error
	}

	Service struct {
		db         core.DB
		repo       Repository
		courseRepo course.Repository
		auditSvc   *audit.Service
		notifier   core.Notifier
	}
)

func NewService(db core.DB, repo Repository, courseRepo course.Repository, auditSvc *audit.Service, notifier core.Notifier) *Service {
	return &Service{
		db:         db,
		repo:       repo,
		courseRepo: courseRepo,
		auditSvc:   auditSvc,
		notifier:   notifier,
	}
}

// resolveGroup finds the group by id within hintCourse first, then by id alone.
// The returned group's CourseCode, not the hint, governs every later check.
func (svc *Service) resolveGroup(ctx context.Context, id, hintCourse string, lock bool, exec ...core.DBExecutor) (Group, error) {
	if hintCourse != "" {
		grp, err := svc.repo.GetGroup(ctx, GetFilter{ID: id, CourseCode: hintCourse, ForUpdate: lock}, exec...)
		if err == nil {
			return grp, nil
		}
		if errors.Cause(err) != ErrNotFound {
			return Group{}, errors.Wrap(err, "finding group in course")
		}
	}

	grp, err := svc.repo.GetGroup(ctx, GetFilter{ID: id, ForUpdate: lock}, exec...)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Group{}, core.ErrGroupNotFound
		}
		return Group{}, errors.Wrap(err, "finding group")
	}
	return grp, nil
}

// checkNotInCourse fails with ALREADY_IN_GROUP, pointing at the existing group, if userName has a group in courseCode.
func (svc *Service) checkNotInCourse(ctx context.Context, courseCode, userName string, exec core.DBExecutor) error {
	groupID, err := svc.repo.GetMemberGroupID(ctx, courseCode, userName, exec)
	if err == nil {
		return core.ErrAlreadyInGroup.WithGroupID(groupID)
	}
	if errors.Cause(err) != ErrNotFound {
		return errors.Wrap(err, "checking course membership")
	}
	return nil
}

// alreadyInGroup builds ALREADY_IN_GROUP after a concurrent insert won the course's unique slot. It reads outside the
// rolled back transaction; the bare error is returned only if that group was left in the meantime.
func (svc *Service) alreadyInGroup(ctx context.Context, courseCode, userName string) error {
	groupID, err := svc.repo.GetMemberGroupID(ctx, courseCode, userName)
	if err != nil {
		return core.ErrAlreadyInGroup
	}
	return core.ErrAlreadyInGroup.WithGroupID(groupID)
}

// Create creates an open group in courseCode with creatorName as owner and sole member.
func (svc *Service) Create(ctx context.Context, courseCode string, ng NewGroup, creatorName string) (Group, error) {
	courseCode = core.CleanString(courseCode)
	if _, err := svc.courseRepo.GetCourse(ctx, courseCode); err != nil {
		return Group{}, err
	}

	var grp Group
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		if err := svc.checkNotInCourse(ctx, courseCode, creatorName, tx); err != nil {
			return err
		}

		var err error
		grp, err = svc.repo.CreateGroup(ctx, Group{
			ID:          uuid.New().String(),
			Name:        ng.Name,
			CourseCode:  courseCode,
			CreatorName: creatorName,
			IsOpen:      true,
			CreatedAt:   core.Now(),
		}, tx)
		if err != nil {
			return errors.Wrap(err, "creating group")
		}

		if err = svc.repo.AddMember(ctx, grp.ID, courseCode, creatorName, tx); err != nil {
			if errors.Cause(err) == ErrAlreadyMember {
				return err
			}
			return errors.Wrap(err, "adding creator")
		}
		grp.Members = []string{creatorName}

		return errors.Wrap(svc.courseRepo.AddToRoster(ctx, courseCode, creatorName, tx), "adding to roster")
	})
	if errors.Cause(err) == ErrAlreadyMember {
		return Group{}, svc.alreadyInGroup(ctx, courseCode, creatorName)
	}
	if err != nil {
		return Group{}, err
	}

	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      creatorName,
		Action:     audit.ActionGroupCreated,
		EntityType: audit.EntityGroup,
		EntityID:   grp.ID,
		Detail:     "Course: " + courseCode,
	})
	return grp, nil
}

// Join adds userName to the group. The member count is re-read under the group lock, inside the insert's transaction.
func (svc *Service) Join(ctx context.Context, hintCourse, groupID, userName string) (Group, error) {
	var grp Group
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if grp, err = svc.resolveGroup(ctx, groupID, core.CleanString(hintCourse), true, tx); err != nil {
			return err
		}
		if err = svc.checkNotInCourse(ctx, grp.CourseCode, userName, tx); err != nil {
			return err
		}
		if !grp.IsOpen {
			return core.ErrGroupClosed
		}

		count, err := svc.repo.CountMembers(ctx, grp.ID, tx)
		if err != nil {
			return errors.Wrap(err, "counting members")
		}
		if count >= MaxSize {
			return core.ErrGroupFull
		}

		if err = svc.repo.AddMember(ctx, grp.ID, grp.CourseCode, userName, tx); err != nil {
			if errors.Cause(err) == ErrAlreadyMember {
				return err
			}
			return errors.Wrap(err, "adding member")
		}
		if err = svc.courseRepo.AddToRoster(ctx, grp.CourseCode, userName, tx); err != nil {
			return errors.Wrap(err, "adding to roster")
		}

		grp, err = svc.repo.GetGroup(ctx, GetFilter{ID: grp.ID}, tx)
		return errors.Wrap(err, "refreshing group")
	})
	if errors.Cause(err) == ErrAlreadyMember {
		return Group{}, svc.alreadyInGroup(ctx, grp.CourseCode, userName)
	}
	if err != nil {
		return Group{}, err
	}

	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      userName,
		Action:     audit.ActionGroupJoined,
		EntityType: audit.EntityGroup,
		EntityID:   grp.ID,
		Detail:     "Course: " + grp.CourseCode,
	})
	svc.notify(core.Event{Type: core.EventGroupUpdated, GroupID: grp.ID, Data: grp})
	return grp, nil
}

// Leave removes userName from the group, deleting the group when nobody is left.
func (svc *Service) Leave(ctx context.Context, hintCourse, groupID, userName string) (LeaveResult, error) {
	var (
		grp    Group
		result LeaveResult
	)
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		if grp, err = svc.resolveGroup(ctx, groupID, core.CleanString(hintCourse), true, tx); err != nil {
			if errors.Is(err, core.ErrGroupNotFound) {
				return core.ErrNotMember
			}
			return err
		}

		removed, err := svc.repo.RemoveMember(ctx, grp.ID, userName, tx)
		if err != nil {
			return errors.Wrap(err, "removing member")
		}
		if !removed {
			return core.ErrNotMember
		}

		count, err := svc.repo.CountMembers(ctx, grp.ID, tx)
		if err != nil {
			return errors.Wrap(err, "counting members")
		}
		if count == 0 {
			result.Archived = true
			return errors.Wrap(svc.repo.DeleteGroup(ctx, grp.ID, tx), "deleting empty group")
		}

		refreshed, err := svc.repo.GetGroup(ctx, GetFilter{ID: grp.ID}, tx)
		if err != nil {
			return errors.Wrap(err, "refreshing group")
		}
		result.Group = &refreshed
		return nil
	})
	if err != nil {
		return LeaveResult{}, err
	}

	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      userName,
		Action:     audit.ActionGroupLeft,
		EntityType: audit.EntityGroup,
		EntityID:   grp.ID,
		Detail:     "Course: " + grp.CourseCode,
	})
	if result.Archived {
		svc.auditSvc.Record(ctx, audit.Event{
			Actor:      audit.ActorSystem,
			Action:     audit.ActionGroupAutoDeleted,
			EntityType: audit.EntityGroup,
			EntityID:   grp.ID,
			Detail:     "Course: " + grp.CourseCode,
		})
		svc.notify(core.Event{Type: core.EventGroupDeleted, GroupID: grp.ID})
	} else {
		svc.unsubscribe(grp.ID, userName)
		svc.notify(core.Event{Type: core.EventGroupUpdated, GroupID: grp.ID, Data: result.Group})
	}
	return result, nil
}

// ToggleStatus opens or closes the group to new members. Concurrent toggles are last-write-wins.
func (svc *Service) ToggleStatus(ctx context.Context, hintCourse, groupID, userName string) (Group, error) {
	grp, err := svc.resolveGroup(ctx, groupID, core.CleanString(hintCourse), false)
	if err != nil {
		return Group{}, err
	}
	if !grp.HasMember(userName) {
		return Group{}, core.ErrNotMember
	}

	if err = svc.repo.ToggleOpen(ctx, grp.ID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Group{}, core.ErrGroupNotFound
		}
		return Group{}, errors.Wrap(err, "toggling group status")
	}
	if grp, err = svc.repo.GetGroup(ctx, GetFilter{ID: grp.ID}); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return Group{}, core.ErrGroupNotFound
		}
		return Group{}, errors.Wrap(err, "refreshing group")
	}

	status := "CLOSED"
	if grp.IsOpen {
		status = "OPEN"
	}
	svc.auditSvc.Record(ctx, audit.Event{
		Actor:      userName,
		Action:     audit.ActionGroupToggled,
		EntityType: audit.EntityGroup,
		EntityID:   grp.ID,
		Detail:     "Status: " + status,
	})
	svc.notify(core.Event{Type: core.EventGroupUpdated, GroupID: grp.ID, Data: grp})
	return grp, nil
}

// Get returns the group, looked up in hintCourse first and then in every course.
func (svc *Service) Get(ctx context.Context, hintCourse, groupID string) (Group, error) {
	return svc.resolveGroup(ctx, groupID, core.CleanString(hintCourse), false)
}

// QueryByCourse lists the course's groups, newest first.
func (svc *Service) QueryByCourse(ctx context.Context, courseCode string) ([]Summary, error) {
	groups, err := svc.repo.QueryGroups(ctx, core.CleanString(courseCode))
	return groups, errors.Wrap(err, "querying groups")
}

// MemberGroupID returns the id of the group userName belongs to in courseCode, or "" if none.
func (svc *Service) MemberGroupID(ctx context.Context, courseCode, userName string) (string, error) {
	groupID, err := svc.repo.GetMemberGroupID(ctx, core.CleanString(courseCode), userName)
	if err != nil {
		if errors.Cause(err) == ErrNotFound {
			return "", nil
		}
		return "", errors.Wrap(err, "finding member group")
	}
	return groupID, nil
}

// QueryUserGroups lists the groups userName belongs to across all courses, newest first.
func (svc *Service) QueryUserGroups(ctx context.Context, userName string) ([]Membership, error) {
	memberships, err := svc.repo.QueryMemberships(ctx, userName)
	return memberships, errors.Wrap(err, "querying memberships")
}

func (svc *Service) IsMember(ctx context.Context, groupID, userName string) (bool, error) {
	ok, err := svc.repo.IsMember(ctx, groupID, userName)
	return ok, errors.Wrap(err, "checking membership")
}

func (svc *Service) notify(evt core.Event) {
	if svc.notifier != nil {
		svc.notifier.Notify(evt)
	}
}

func (svc *Service) unsubscribe(groupID, userName string) {
	if svc.notifier != nil {
		svc.notifier.Unsubscribe(groupID, userName)
	}
}
