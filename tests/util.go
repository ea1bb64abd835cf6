package testutil

import (
	"context"
	"io"
	"log"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
	logsvc "github.com/dismod47/GroupChatProject/services/logger"
	"github.com/dismod47/GroupChatProject/storage/database"
)

// NewConfig returns a test configuration backed by a fresh sqlite file in t's temp dir.
func NewConfig(t *testing.T) *core.Config {
	t.Helper()
	dir := t.TempDir()
	return &core.Config{
		Env:       "TEST",
		Build:     "test",
		AppName:   "StudyGroups",
		SecretKey: "test-secret",
		TestMode:  true,
		WorkDir:   dir,
		Server: core.ServerConfig{
			Host:                      ":0",
			AllowedOrigins:            []string{"*"},
			ReadTimeout:               5 * time.Second,
			WriteTimeout:              5 * time.Second,
			ShutdownTimeout:           5 * time.Second,
			JWTExpirationDelta:        time.Hour,
			JWTRefreshExpirationDelta: 24 * time.Hour,
		},
		Database: core.DatabaseConfig{
			Engine: database.EngineSQLite,
			Path:   filepath.Join(dir, "test.db"),
		},
		Moderation: core.ModerationConfig{
			ReportWindow: 7 * 24 * time.Hour,
		},
	}
}

// PrepareDB opens and migrates the config's database. It is closed when the test ends.
func PrepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("database.Open() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db); err != nil {
		t.Fatalf("database.Migrate() failed: %v", err)
	}
	return db
}

func NewLogger(conf *core.Config) *logsvc.RollbarLogger {
	return logsvc.NewRollbarLogger(log.New(io.Discard, "", 0), conf)
}

func CreateUser(t *testing.T, repo user.Repository, name, pwd string, roles []string) user.User {
	t.Helper()
	now := core.Now()
	usr := user.User{
		Name:      name,
		Roles:     roles,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func CreateCourses(t *testing.T, repo course.Repository, courses ...course.Course) {
	t.Helper()
	if _, err := repo.UpsertCourses(context.Background(), courses); err != nil {
		t.Fatalf("createCourses() failed: %v", err)
	}
}

// CreateGroup inserts a group with the given members, the first one being its creator.
func CreateGroup(t *testing.T, repo group.Repository, courseCode, name string, isOpen bool, members ...string) group.Group {
	t.Helper()
	ctx := context.Background()
	grp, err := repo.CreateGroup(ctx, group.Group{
		ID:          core.CleanString(courseCode) + "-" + name,
		Name:        name,
		CourseCode:  courseCode,
		CreatorName: members[0],
		IsOpen:      isOpen,
		CreatedAt:   core.Now(),
	})
	if err != nil {
		t.Fatalf("createGroup() failed: %v", err)
	}
	for _, m := range members {
		if err = repo.AddMember(ctx, grp.ID, courseCode, m); err != nil {
			t.Fatalf("createGroup() failed: %v", err)
		}
	}
	grp.Members = members
	return grp
}

// Notifier records the events it receives.
type Notifier struct {
	mu           sync.Mutex
	events       []core.Event
	unsubscribed []string // groupID/userName
}

var _ core.Notifier = (*Notifier)(nil)

func (n *Notifier) Notify(evt core.Event) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, evt)
}

func (n *Notifier) Unsubscribe(groupID, userName string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.unsubscribed = append(n.unsubscribed, groupID+"/"+userName)
}

// Unsubscribed returns the `groupID/userName` pairs unsubscribed so far, in order.
func (n *Notifier) Unsubscribed() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.unsubscribed...)
}

func (n *Notifier) Events() []core.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]core.Event(nil), n.events...)
}

// Types returns the types of the recorded events, in order.
func (n *Notifier) Types() []string {
	var types []string
	for _, evt := range n.Events() {
		types = append(types, evt.Type)
	}
	return types
}
