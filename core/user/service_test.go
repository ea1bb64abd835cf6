package user_test

import (
	"context"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
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

type fixture struct {
	svc        *user.Service
	repo       user.Repository
	groupRepo  group.Repository
	courseRepo course.Repository
	msgRepo    chat.Repository
	auditSvc   *audit.Service
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	repo := sqlxrepos.NewUserRepository(db)
	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db), testutil.NewLogger(conf))
	courseRepo := sqlxrepos.NewCourseRepository(db)
	testutil.CreateCourses(t, courseRepo, course.Course{Code: "CS101", Title: "Intro to CS"})

	return fixture{
		svc:        user.NewService(db, repo, auditSvc, validate),
		repo:       repo,
		groupRepo:  sqlxrepos.NewGroupRepository(db),
		courseRepo: courseRepo,
		msgRepo:    sqlxrepos.NewMessageRepository(db),
		auditSvc:   auditSvc,
	}
}

func (f fixture) actions(t *testing.T) []string {
	events, err := f.auditSvc.QueryRecent(context.Background(), audit.QueryFilter{}, []core.DBOrdering{{Field: "created_at", Ascending: true}})
	require.NoError(t, err)
	actions := make([]string, 0, len(events))
	for _, evt := range events {
		actions = append(actions, evt.Action)
	}
	return actions
}

func TestService_Authenticate(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	usr, err := f.svc.Authenticate(ctx, "  alice ", "s3cret!", true)
	require.NoError(t, err)
	assert.NotEmpty(t, usr.ID)
	assert.Equal(t, "alice", usr.Name)
	assert.Equal(t, user.StudentRoles, usr.Roles)
	assert.False(t, usr.IsAdmin())

	tests := []struct {
		name            string
		userName        string
		pwd             string
		createIfMissing bool
		wantErr         error
	}{
		{name: "existing user", userName: "alice", pwd: "s3cret!"},
		{name: "existing user with create flag", userName: "alice", pwd: "s3cret!", createIfMissing: true},
		{name: "wrong password", userName: "alice", pwd: "nope!!", createIfMissing: true, wantErr: core.ErrInvalidPassword},
		{name: "unknown user", userName: "bob", pwd: "s3cret!", wantErr: core.ErrUserNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.svc.Authenticate(ctx, tt.userName, tt.pwd, tt.createIfMissing)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, usr.ID, got.ID)
		})
	}

	t.Run("weak password on sign up", func(t *testing.T) {
		_, err := f.svc.Authenticate(ctx, "bob", "123456", true)
		var verrs validator.ValidationErrors
		require.True(t, errors.As(err, &verrs), "got %v", err)
		assert.Equal(t, "password", verrs[0].Field())
		assert.Equal(t, "pwdnotallnum", verrs[0].Tag())

		_, err = f.repo.GetUser(ctx, user.GetFilter{Name: "bob"})
		assert.Equal(t, user.ErrNotFound, errors.Cause(err))
	})

	assert.Equal(t, []string{
		audit.ActionUserRegistered,
		audit.ActionUserLogin,
		audit.ActionUserLogin,
	}, f.actions(t))
}

func TestService_Rename(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	alice := testutil.CreateUser(t, f.repo, "alice", "s3cret!", user.StudentRoles)
	testutil.CreateUser(t, f.repo, "bob", "s3cret!", user.StudentRoles)
	grp := testutil.CreateGroup(t, f.groupRepo, "CS101", "study", true, "alice", "bob")
	require.NoError(t, f.courseRepo.AddToRoster(ctx, "CS101", "alice"))
	msg, err := f.msgRepo.CreateMessage(ctx, chat.Message{
		ID:        "m1",
		GroupID:   grp.ID,
		Author:    "alice",
		Text:      "hi",
		State:     chat.StateActive,
		CreatedAt: core.Now(),
	})
	require.NoError(t, err)
	require.NoError(t, f.msgRepo.CreateReaction(ctx, chat.Reaction{
		MessageID: msg.ID,
		UserName:  "alice",
		Emoji:     chat.EmojiThumbsUp,
		CreatedAt: core.Now(),
	}))

	tests := []struct {
		name    string
		oldName string
		ru      user.RenameUser
		wantErr error
	}{
		{name: "unknown user", oldName: "carol", ru: user.RenameUser{NewName: "caroline", Password: "s3cret!"}, wantErr: core.ErrUserNotFound},
		{name: "wrong password", oldName: "alice", ru: user.RenameUser{NewName: "alicia", Password: "nope!!"}, wantErr: core.ErrInvalidPassword},
		{name: "name taken", oldName: "alice", ru: user.RenameUser{NewName: "bob", Password: "s3cret!"}, wantErr: core.ErrUsernameTaken},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := f.svc.Rename(ctx, tt.oldName, tt.ru)
			assert.True(t, errors.Is(err, tt.wantErr), "got %v, want %v", err, tt.wantErr)
		})
	}

	renamed, err := f.svc.Rename(ctx, "alice", user.RenameUser{NewName: "alicia", Password: "s3cret!"})
	require.NoError(t, err)
	assert.Equal(t, alice.ID, renamed.ID)
	assert.Equal(t, "alicia", renamed.Name)

	_, err = f.svc.GetByName(ctx, "alice")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	got, err := f.groupRepo.GetGroup(ctx, group.GetFilter{ID: grp.ID})
	require.NoError(t, err)
	assert.Equal(t, "alicia", got.CreatorName)
	assert.ElementsMatch(t, []string{"alicia", "bob"}, got.Members)

	storedMsg, err := f.msgRepo.GetMessage(ctx, msg.ID)
	require.NoError(t, err)
	assert.Equal(t, "alicia", storedMsg.Author)

	reactions, err := f.msgRepo.QueryReactions(ctx, []string{msg.ID})
	require.NoError(t, err)
	require.Len(t, reactions, 1)
	assert.Equal(t, "alicia", reactions[0].UserName)

	roster, err := f.courseRepo.QueryRoster(ctx, "CS101")
	require.NoError(t, err)
	assert.Equal(t, []course.RosterEntry{{Name: "alicia", Status: course.StatusInGroup}}, roster)

	assert.Equal(t, []string{audit.ActionUserNameChanged}, f.actions(t))
}

func TestService_SetPassword(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	testutil.CreateUser(t, f.repo, "alice", "s3cret!", user.StudentRoles)

	_, err := f.svc.SetPassword(ctx, "nobody", "n3w-pwd!")
	assert.Equal(t, user.ErrNotFound, errors.Cause(err))

	usr, err := f.svc.SetPassword(ctx, "alice", "n3w-pwd!")
	require.NoError(t, err)
	assert.NoError(t, usr.CheckPassword("n3w-pwd!"))

	usr, err = f.svc.SetRoles(ctx, usr, user.AdminRoles)
	require.NoError(t, err)
	stored, err := f.svc.GetByID(ctx, usr.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsAdmin())
	assert.NoError(t, stored.CheckPassword("n3w-pwd!"))
}
