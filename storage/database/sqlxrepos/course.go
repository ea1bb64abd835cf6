package sqlxrepos

import (
	"context"

	"github.com/pkg/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/course"
)

type courseRow struct {
	Code  string `db:"code"`
	Title string `db:"title"`
}

type courseRepository struct {
	repository
}

var _ course.Repository = (*courseRepository)(nil)

func NewCourseRepository(db core.DBExecutor) *courseRepository {
	return &courseRepository{repository{db: db}}
}

func (repo *courseRepository) QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]course.Course, error) {
	var rows []courseRow
	if err := selectContext(ctx, repo.getExec(exec), &rows, "SELECT code, title FROM courses ORDER BY code"); err != nil {
		return nil, errors.Wrap(err, "selecting courses")
	}
	courses := make([]course.Course, 0, len(rows))
	for _, row := range rows {
		courses = append(courses, course.Course(row))
	}
	return courses, nil
}

func (repo *courseRepository) GetCourse(ctx context.Context, code string, exec ...core.DBExecutor) (course.Course, error) {
	var row courseRow
	if err := getContext(ctx, repo.getExec(exec), &row, "SELECT code, title FROM courses WHERE code = ?", code); err != nil {
		if isNoRows(err) {
			return course.Course{}, course.ErrNotFound
		}
		return course.Course{}, errors.Wrap(err, "selecting course")
	}
	return course.Course(row), nil
}

func (repo *courseRepository) UpsertCourses(ctx context.Context, courses []course.Course, exec ...core.DBExecutor) (int, error) {
	e := repo.getExec(exec)
	var n int
	for _, c := range courses {
		_, err := execAffected(ctx, e,
			"INSERT INTO courses (code, title) VALUES (?, ?) ON CONFLICT (code) DO UPDATE SET title = excluded.title",
			c.Code, c.Title)
		if err != nil {
			return n, errors.Wrapf(err, "upserting course %s", c.Code)
		}
		n++
	}
	return n, nil
}

func (repo *courseRepository) AddToRoster(ctx context.Context, code, userName string, exec ...core.DBExecutor) error {
	_, err := execAffected(ctx, repo.getExec(exec),
		"INSERT INTO course_roster (course_code, user_name, joined_at) VALUES (?, ?, ?) ON CONFLICT DO NOTHING",
		code, userName, core.Now())
	return errors.Wrap(err, "inserting roster entry")
}

func (repo *courseRepository) QueryRoster(ctx context.Context, code string, exec ...core.DBExecutor) ([]course.RosterEntry, error) {
	var rows []struct {
		Name    string `db:"name"`
		InGroup bool   `db:"in_group"`
	}
	q := `SELECT r.user_name AS name, m.user_name IS NOT NULL AS in_group
		FROM course_roster r
		LEFT JOIN group_members m ON m.course_code = r.course_code AND m.user_name = r.user_name
		WHERE r.course_code = ?
		ORDER BY r.joined_at, r.user_name`
	if err := selectContext(ctx, repo.getExec(exec), &rows, q, code); err != nil {
		return nil, errors.Wrap(err, "selecting roster")
	}

	roster := make([]course.RosterEntry, 0, len(rows))
	for _, row := range rows {
		status := course.StatusOpen
		if row.InGroup {
			status = course.StatusInGroup
		}
		roster = append(roster, course.RosterEntry{Name: row.Name, Status: status})
	}
	return roster, nil
}
