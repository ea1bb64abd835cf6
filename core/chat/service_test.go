package chat_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
	"github.com/dismod47/GroupChatProject/storage/database/sqlxrepos"
	testutil "github.com/dismod47/GroupChatProject/tests"
)

var (
	owner = chat.Actor{Name: "alice"}
	admin = chat.Actor{Name: "root", IsAdmin: true}
)

type fixture struct {
	svc      *chat.Service
	repo     chat.Repository
	grp      group.Group
	other    group.Group
	auditSvc *audit.Service
	notifier *testutil.Notifier
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)

	userRepo := sqlxrepos.NewUserRepository(db)
	groupRepo := sqlxrepos.NewGroupRepository(db)
	repo := sqlxrepos.NewMessageRepository(db)
	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db), testutil.NewLogger(conf))
	notifier := new(testutil.Notifier)

	testutil.CreateCourses(t, sqlxrepos.NewCourseRepository(db),
		course.Course{Code: "CS101", Title: "Intro to CS"},
		course.Course{Code: "MATH201", Title: "Calculus II"},
	)
	for _, name := range []string{"alice", "bob", "carol"} {
		testutil.CreateUser(t, userRepo, name, "", user.StudentRoles)
	}
	testutil.CreateUser(t, userRepo, "root", "", user.AdminRoles)

	return fixture{
		svc:      chat.NewService(db, repo, groupRepo, auditSvc, notifier, conf),
		repo:     repo,
		grp:      testutil.CreateGroup(t, groupRepo, "CS101", "study", true, "alice", "bob"),
		other:    testutil.CreateGroup(t, groupRepo, "MATH201", "calc", true, "carol"),
		auditSvc: auditSvc,
		notifier: notifier,
	}
}

func (f fixture) post(t *testing.T, author, text string) chat.Message {
	t.Helper()
	msg, err := f.svc.Add(context.Background(), f.grp.ID, author, chat.NewMessage{Text: text})
	require.NoError(t, err)
	return msg
}

func texts(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.Text)
	}
	return out
}

func TestService_Add(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	tests := []struct {
		name    string
		groupID string
		author  string
		text    string
		want    string
		wantErr error
	}{
		{name: "not a member", groupID: f.grp.ID, author: "carol", text: "hi", wantErr: core.ErrNotMember},
		{name: "unknown group", groupID: "missing", author: "alice", text: "hi", wantErr: core.ErrNotMember},
		{name: "empty", groupID: f.grp.ID, author: "alice", text: "   ", wantErr: core.ErrEmptyMessage},
		{name: "only markup", groupID: f.grp.ID, author: "alice", text: "<p> </p>", wantErr: core.ErrEmptyMessage},
		{name: "sanitized", groupID: f.grp.ID, author: "bob", text: "  <b>hello</b>   world ", want: "hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := f.svc.Add(ctx, tt.groupID, tt.author, chat.NewMessage{Text: tt.text})
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.NotEmpty(t, msg.ID)
			assert.Equal(t, tt.want, msg.Text)
			assert.Equal(t, tt.author, msg.Author)
			assert.Equal(t, f.grp.ID, msg.GroupID)
			assert.False(t, msg.IsReported())
		})
	}

	assert.Equal(t, []string{core.EventMessageCreated}, f.notifier.Types())
}

func TestService_Add_retention(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	first := f.post(t, "alice", "msg 0")
	for i := 1; i < chat.RetentionLimit+5; i++ {
		f.post(t, "alice", fmt.Sprintf("msg %d", i))
	}

	msgs, err := f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	require.Len(t, msgs, chat.RetentionLimit)
	assert.Equal(t, "msg 5", msgs[0].Text)
	assert.Equal(t, fmt.Sprintf("msg %d", chat.RetentionLimit+4), msgs[len(msgs)-1].Text)

	_, err = f.repo.GetMessage(ctx, first.ID)
	assert.Equal(t, chat.ErrNotFound, errors.Cause(err), "purged messages are gone for good")

	// soft-deleted messages are not counted
	require.NoError(t, f.svc.Delete(ctx, f.grp.ID, msgs[len(msgs)-1].ID, owner))
	msgs, err = f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, chat.RetentionLimit-1)

	f.post(t, "bob", "after delete")
	msgs, err = f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	assert.Len(t, msgs, chat.RetentionLimit)
	assert.Equal(t, "msg 5", msgs[0].Text)
	assert.Equal(t, "after delete", msgs[len(msgs)-1].Text)
}

func TestService_Query(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.svc.Query(ctx, "missing")
	assert.True(t, errors.Is(err, core.ErrGroupNotFound))

	msgs, err := f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	m1 := f.post(t, "alice", "first")
	f.post(t, "bob", "second")

	_, err = f.svc.ToggleReaction(ctx, m1.ID, "bob", chat.EmojiThumbsUp)
	require.NoError(t, err)
	_, err = f.svc.ToggleReaction(ctx, m1.ID, "alice", chat.EmojiThumbsUp)
	require.NoError(t, err)
	_, err = f.svc.ToggleReaction(ctx, m1.ID, "alice", chat.EmojiHeart)
	require.NoError(t, err)

	msgs, err = f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, texts(msgs))
	assert.Equal(t, chat.Reactions{
		chat.EmojiThumbsUp: {"bob", "alice"},
		chat.EmojiHeart:    {"alice"},
	}, msgs[0].Reactions)
	assert.Equal(t, chat.Reactions{}, msgs[1].Reactions)
}

func TestService_Report(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg := f.post(t, "bob", "spam")

	err := f.svc.Report(ctx, f.other.ID, msg.ID, "carol")
	assert.True(t, errors.Is(err, core.ErrMessageNotFound), "message of another group")

	err = f.svc.Report(ctx, f.grp.ID, "missing", "alice")
	assert.True(t, errors.Is(err, core.ErrMessageNotFound))

	require.NoError(t, f.svc.Report(ctx, f.grp.ID, msg.ID, "alice"))
	require.NoError(t, f.svc.Report(ctx, f.grp.ID, msg.ID, "alice"), "reporting twice is a no-op")

	msgs, err := f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].IsReported(), "reported messages stay visible")

	reported, err := f.svc.QueryReported(ctx)
	require.NoError(t, err)
	require.Len(t, reported, 1)
	assert.Equal(t, chat.ReportedMessage{
		ID:          msg.ID,
		Text:        "spam",
		Author:      "bob",
		CreatedAt:   msg.CreatedAt,
		CourseCode:  "CS101",
		CourseTitle: "Intro to CS",
		GroupID:     f.grp.ID,
		GroupName:   "study",
	}, reported[0])

	require.NoError(t, f.svc.Delete(ctx, f.grp.ID, msg.ID, owner))
	err = f.svc.Report(ctx, f.grp.ID, msg.ID, "alice")
	assert.True(t, errors.Is(err, core.ErrMessageDeleted))

	reported, err = f.svc.QueryReported(ctx)
	require.NoError(t, err)
	assert.Empty(t, reported, "deleted messages leave the moderation queue")
}

func TestService_QueryReported_window(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	now := core.Now
	defer func() { core.Now = now }()

	core.Now = func() time.Time { return now().Add(-8 * 24 * time.Hour) }
	old := f.post(t, "alice", "old news")
	core.Now = now
	recent := f.post(t, "alice", "fresh")

	require.NoError(t, f.svc.Report(ctx, f.grp.ID, old.ID, "bob"))
	require.NoError(t, f.svc.Report(ctx, f.grp.ID, recent.ID, "bob"))

	reported, err := f.svc.QueryReported(ctx)
	require.NoError(t, err)
	require.Len(t, reported, 1)
	assert.Equal(t, recent.ID, reported[0].ID)
}

func TestService_Resolve(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg := f.post(t, "bob", "borderline")
	require.NoError(t, f.svc.Report(ctx, f.grp.ID, msg.ID, "alice"))

	err := f.svc.Resolve(ctx, msg.ID, owner)
	assert.True(t, errors.Is(err, core.ErrNotOwner), "only admins resolve")

	err = f.svc.Resolve(ctx, "missing", admin)
	assert.True(t, errors.Is(err, core.ErrMessageNotFound))

	require.NoError(t, f.svc.Resolve(ctx, msg.ID, admin))
	reported, err := f.svc.QueryReported(ctx)
	require.NoError(t, err)
	assert.Empty(t, reported)

	// may be reported again
	require.NoError(t, f.svc.Report(ctx, f.grp.ID, msg.ID, "alice"))
	got, err := f.repo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, chat.StateReported, got.State)
}

func TestService_Delete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	m1 := f.post(t, "bob", "one")
	m2 := f.post(t, "bob", "two")

	tests := []struct {
		name      string
		groupID   string
		messageID string
		actor     chat.Actor
		wantErr   error
	}{
		{name: "unknown group", groupID: "missing", messageID: m1.ID, actor: owner, wantErr: core.ErrGroupNotFound},
		{name: "not the owner", groupID: f.grp.ID, messageID: m1.ID, actor: chat.Actor{Name: "bob"}, wantErr: core.ErrNotOwner},
		{name: "unknown message", groupID: f.grp.ID, messageID: "missing", actor: owner, wantErr: core.ErrMessageNotFound},
		{name: "message of another group", groupID: f.other.ID, messageID: m1.ID, actor: chat.Actor{Name: "carol"}, wantErr: core.ErrMessageNotFound},
		{name: "owner", groupID: f.grp.ID, messageID: m1.ID, actor: owner},
		{name: "twice", groupID: f.grp.ID, messageID: m1.ID, actor: owner},
		{name: "admin without group", messageID: m2.ID, actor: admin},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := f.svc.Delete(ctx, tt.groupID, tt.messageID, tt.actor)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				return
			}
			assert.NoError(t, err)
		})
	}

	msgs, err := f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs)

	events, err := f.auditSvc.QueryRecent(ctx, audit.QueryFilter{Action: audit.ActionMessageDeleted}, nil)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "root", events[0].Actor)
	assert.Equal(t, "Group: "+f.grp.ID+" (admin)", events[0].Detail)
	assert.Equal(t, "alice", events[1].Actor)

	assert.Equal(t, []string{
		core.EventMessageCreated,
		core.EventMessageCreated,
		core.EventMessageDeleted,
		core.EventMessageDeleted,
	}, f.notifier.Types())
}

func TestService_ToggleReaction(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	msg := f.post(t, "alice", "react to me")

	_, err := f.svc.ToggleReaction(ctx, msg.ID, "bob", "🎉")
	assert.True(t, errors.Is(err, core.ErrInvalidEmoji))

	_, err = f.svc.ToggleReaction(ctx, "missing", "bob", chat.EmojiHeart)
	assert.True(t, errors.Is(err, core.ErrMessageNotFound))

	action, err := f.svc.ToggleReaction(ctx, msg.ID, "bob", chat.EmojiLightbulb)
	require.NoError(t, err)
	assert.Equal(t, chat.ReactionAdded, action)

	action, err = f.svc.ToggleReaction(ctx, msg.ID, "bob", chat.EmojiLightbulb)
	require.NoError(t, err)
	assert.Equal(t, chat.ReactionRemoved, action)

	msgs, err := f.svc.Query(ctx, f.grp.ID)
	require.NoError(t, err)
	assert.Empty(t, msgs[0].Reactions)

	require.NoError(t, f.svc.Delete(ctx, f.grp.ID, msg.ID, owner))
	_, err = f.svc.ToggleReaction(ctx, msg.ID, "bob", chat.EmojiLightbulb)
	assert.True(t, errors.Is(err, core.ErrMessageNotFound), "deleted messages take no reactions")
}

func TestService_LastActivity(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	act, err := f.svc.LastActivity(ctx, "bob")
	require.NoError(t, err)
	assert.Nil(t, act)

	f.post(t, "bob", "older")
	last := f.post(t, "bob", "latest")

	act, err = f.svc.LastActivity(ctx, "bob")
	require.NoError(t, err)
	require.NotNil(t, act)
	assert.Equal(t, chat.LastActivity{
		MessageID:  last.ID,
		CreatedAt:  last.CreatedAt,
		GroupID:    f.grp.ID,
		GroupName:  "study",
		CourseCode: "CS101",
	}, *act)
}
