package course

import (
	"context"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/dismod47/GroupChatProject/core"
)

var (
	// errors
	ErrNotFound = errors.New("course not found")
)

type (
	Repository interface {
		QueryCourses(ctx context.Context, exec ...core.DBExecutor) ([]Course, error)
		GetCourse(ctx context.Context, code string, exec ...core.DBExecutor) (Course, error)
		UpsertCourses(ctx context.Context, courses []Course, exec ...core.DBExecutor) (int, error)
		// AddToRoster records userName on the course roster. It is a no-op if already there.
		AddToRoster(ctx context.Context, code, userName string, exec ...core.DBExecutor) error
		QueryRoster(ctx context.Context, code string, exec ...core.DBExecutor) ([]RosterEntry, error)
	}

	Service struct {
		db   core.DB
		repo Repository
	}
)

func NewService(db core.DB, repo Repository) *Service {
	return &Service{db: db, repo: repo}
}

func (svc *Service) QueryAll(ctx context.Context) ([]Course, error) {
	courses, err := svc.repo.QueryCourses(ctx)
	return courses, errors.Wrap(err, "querying courses")
}

func (svc *Service) Get(ctx context.Context, code string) (Course, error) {
	return svc.repo.GetCourse(ctx, core.CleanString(code))
}

// RosterWithStatus lists everyone on the course roster with IN_GROUP or OPEN.
func (svc *Service) RosterWithStatus(ctx context.Context, code string) ([]RosterEntry, error) {
	roster, err := svc.repo.QueryRoster(ctx, core.CleanString(code))
	return roster, errors.Wrap(err, "querying roster")
}

// Seed upserts the courses listed in the YAML document and returns how many were written.
func (svc *Service) Seed(ctx context.Context, data []byte) (int, error) {
	var doc struct {
		Courses []Course `yaml:"courses"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return 0, errors.Wrap(err, "parsing courses")
	}

	courses := make([]Course, 0, len(doc.Courses))
	for _, c := range doc.Courses {
		c.Code = core.CleanString(c.Code)
		c.Title = core.CleanString(c.Title)
		if c.Code == "" || c.Title == "" {
			return 0, errors.Errorf("invalid course entry %q", c.Code)
		}
		courses = append(courses, c)
	}

	var n int
	err := core.RunInTx(ctx, svc.db, func(tx core.DBExecutor) error {
		var err error
		n, err = svc.repo.UpsertCourses(ctx, courses, tx)
		return err
	})
	return n, errors.Wrap(err, "upserting courses")
}
