package sqlxrepos

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/storage/database"
)

const groupColumns = "id, name, course_code, creator_name, is_open, created_at"

type groupRow struct {
	ID          string    `db:"id"`
	Name        string    `db:"name"`
	CourseCode  string    `db:"course_code"`
	CreatorName string    `db:"creator_name"`
	IsOpen      bool      `db:"is_open"`
	CreatedAt   time.Time `db:"created_at"`
}

func (row groupRow) toGroup(members []string) group.Group {
	if members == nil {
		members = []string{}
	}
	return group.Group{
		ID:          row.ID,
		Name:        row.Name,
		CourseCode:  row.CourseCode,
		CreatorName: row.CreatorName,
		IsOpen:      row.IsOpen,
		Members:     members,
		CreatedAt:   row.CreatedAt.UTC(),
	}
}

type groupRepository struct {
	repository
}

var _ group.Repository = (*groupRepository)(nil)

func NewGroupRepository(db core.DBExecutor) *groupRepository {
	return &groupRepository{repository{db: db}}
}

func (repo *groupRepository) CreateGroup(ctx context.Context, grp group.Group, exec ...core.DBExecutor) (group.Group, error) {
	row := groupRow{
		ID:          grp.ID,
		Name:        grp.Name,
		CourseCode:  grp.CourseCode,
		CreatorName: grp.CreatorName,
		IsOpen:      grp.IsOpen,
		CreatedAt:   grp.CreatedAt,
	}
	q := "INSERT INTO study_groups (" + groupColumns + ") " +
		"VALUES (:id, :name, :course_code, :creator_name, :is_open, :created_at)"
	if _, err := namedExec(ctx, repo.getExec(exec), q, row); err != nil {
		return group.Group{}, errors.Wrap(err, "inserting group")
	}
	return row.toGroup(grp.Members), nil
}

func (repo *groupRepository) GetGroup(ctx context.Context, filter group.GetFilter, exec ...core.DBExecutor) (group.Group, error) {
	e := repo.getExec(exec)

	q := "SELECT " + groupColumns + " FROM study_groups WHERE id = ?"
	args := []interface{}{filter.ID}
	if filter.CourseCode != "" {
		q += " AND course_code = ?"
		args = append(args, filter.CourseCode)
	}
	if filter.ForUpdate && database.IsPostgres(e) {
		q += " FOR UPDATE"
	}

	var row groupRow
	if err := getContext(ctx, e, &row, q, args...); err != nil {
		if isNoRows(err) {
			return group.Group{}, group.ErrNotFound
		}
		return group.Group{}, errors.Wrap(err, "selecting group")
	}

	var members []string
	err := selectContext(ctx, e, &members,
		"SELECT user_name FROM group_members WHERE group_id = ? ORDER BY joined_at, user_name", row.ID)
	if err != nil {
		return group.Group{}, errors.Wrap(err, "selecting members")
	}
	return row.toGroup(members), nil
}

func (repo *groupRepository) QueryGroups(ctx context.Context, courseCode string, exec ...core.DBExecutor) ([]group.Summary, error) {
	var rows []struct {
		ID          string `db:"id"`
		Name        string `db:"name"`
		CreatorName string `db:"creator_name"`
		IsOpen      bool   `db:"is_open"`
		Size        int    `db:"size"`
	}
	q := `SELECT g.id, g.name, g.creator_name, g.is_open, COUNT(m.user_name) AS size
		FROM study_groups g
		LEFT JOIN group_members m ON m.group_id = g.id
		WHERE g.course_code = ?
		GROUP BY g.id, g.name, g.creator_name, g.is_open, g.created_at
		ORDER BY g.created_at DESC, g.id`
	if err := selectContext(ctx, repo.getExec(exec), &rows, q, courseCode); err != nil {
		return nil, errors.Wrap(err, "selecting groups")
	}

	groups := make([]group.Summary, 0, len(rows))
	for _, row := range rows {
		groups = append(groups, group.Summary{
			ID:          row.ID,
			Name:        row.Name,
			Size:        row.Size,
			MaxSize:     group.MaxSize,
			IsOpen:      row.IsOpen,
			CreatorName: row.CreatorName,
		})
	}
	return groups, nil
}

func (repo *groupRepository) QueryMemberships(ctx context.Context, userName string, exec ...core.DBExecutor) ([]group.Membership, error) {
	var rows []struct {
		GroupID     string `db:"group_id"`
		GroupName   string `db:"group_name"`
		CourseCode  string `db:"course_code"`
		CourseTitle string `db:"course_title"`
		IsOpen      bool   `db:"is_open"`
		Size        int    `db:"size"`
	}
	q := `SELECT g.id AS group_id, g.name AS group_name, g.course_code, c.title AS course_title, g.is_open,
			(SELECT COUNT(*) FROM group_members mm WHERE mm.group_id = g.id) AS size
		FROM group_members m
		JOIN study_groups g ON g.id = m.group_id
		JOIN courses c ON c.code = g.course_code
		WHERE m.user_name = ?
		ORDER BY g.created_at DESC, g.id`
	if err := selectContext(ctx, repo.getExec(exec), &rows, q, userName); err != nil {
		return nil, errors.Wrap(err, "selecting memberships")
	}

	memberships := make([]group.Membership, 0, len(rows))
	for _, row := range rows {
		memberships = append(memberships, group.Membership{
			GroupID:     row.GroupID,
			GroupName:   row.GroupName,
			CourseCode:  row.CourseCode,
			CourseTitle: row.CourseTitle,
			IsOpen:      row.IsOpen,
			Size:        row.Size,
			MaxSize:     group.MaxSize,
		})
	}
	return memberships, nil
}

func (repo *groupRepository) GetMemberGroupID(ctx context.Context, courseCode, userName string, exec ...core.DBExecutor) (string, error) {
	var groupID string
	err := getContext(ctx, repo.getExec(exec), &groupID,
		"SELECT group_id FROM group_members WHERE course_code = ? AND user_name = ?", courseCode, userName)
	if err != nil {
		if isNoRows(err) {
			return "", group.ErrNotFound
		}
		return "", errors.Wrap(err, "selecting member group")
	}
	return groupID, nil
}

func (repo *groupRepository) IsMember(ctx context.Context, groupID, userName string, exec ...core.DBExecutor) (bool, error) {
	var count int
	err := getContext(ctx, repo.getExec(exec), &count,
		"SELECT COUNT(*) FROM group_members WHERE group_id = ? AND user_name = ?", groupID, userName)
	if err != nil {
		return false, errors.Wrap(err, "counting membership")
	}
	return count > 0, nil
}

func (repo *groupRepository) CountMembers(ctx context.Context, groupID string, exec ...core.DBExecutor) (int, error) {
	var count int
	err := getContext(ctx, repo.getExec(exec), &count, "SELECT COUNT(*) FROM group_members WHERE group_id = ?", groupID)
	return count, errors.Wrap(err, "counting members")
}

func (repo *groupRepository) AddMember(ctx context.Context, groupID, courseCode, userName string, exec ...core.DBExecutor) error {
	_, err := execAffected(ctx, repo.getExec(exec),
		"INSERT INTO group_members (group_id, course_code, user_name, joined_at) VALUES (?, ?, ?, ?)",
		groupID, courseCode, userName, core.Now())
	if err != nil {
		if database.IsUniqueViolation(err) {
			return group.ErrAlreadyMember
		}
		return errors.Wrap(err, "inserting member")
	}
	return nil
}

func (repo *groupRepository) RemoveMember(ctx context.Context, groupID, userName string, exec ...core.DBExecutor) (bool, error) {
	n, err := execAffected(ctx, repo.getExec(exec),
		"DELETE FROM group_members WHERE group_id = ? AND user_name = ?", groupID, userName)
	if err != nil {
		return false, errors.Wrap(err, "deleting member")
	}
	return n > 0, nil
}

func (repo *groupRepository) DeleteGroup(ctx context.Context, id string, exec ...core.DBExecutor) error {
	_, err := execAffected(ctx, repo.getExec(exec), "DELETE FROM study_groups WHERE id = ?", id)
	return errors.Wrap(err, "deleting group")
}

func (repo *groupRepository) ToggleOpen(ctx context.Context, id string, exec ...core.DBExecutor) error {
	n, err := execAffected(ctx, repo.getExec(exec), "UPDATE study_groups SET is_open = NOT is_open WHERE id = ?", id)
	if err != nil {
		return errors.Wrap(err, "toggling group")
	}
	if n == 0 {
		return group.ErrNotFound
	}
	return nil
}
