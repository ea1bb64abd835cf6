package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/dismod47/GroupChatProject/apps/api/echo"
	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
	testutil "github.com/dismod47/GroupChatProject/tests"
)

func Test_courseApi_list(t *testing.T) {
	f := setup(t)
	alice := testutil.CreateUser(t, f.userRepo, "alice", "s3cret!", user.StudentRoles)

	rec := f.serve(http.MethodGet, "/v1/courses", "")
	checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)}, rec)

	rec = f.serve(http.MethodGet, "/v1/courses", getToken(t, alice))
	checkCodeAndData(t, httpTest{
		wantCode: http.StatusOK,
		wantData: marchallObj(t, []course.Course{
			{Code: "CS101", Title: "Intro to CS"},
			{Code: "MATH201", Title: "Calculus II"},
		}),
	}, rec)
}

func Test_courseApi_createGroup(t *testing.T) {
	f := setup(t)
	alice := testutil.CreateUser(t, f.userRepo, "alice", "s3cret!", user.StudentRoles)
	token := getToken(t, alice)

	body := func(name string) []byte { return marchallObj(t, group.NewGroup{Name: name}) }

	rec := f.serve(http.MethodPost, "/v1/courses/CS101/groups", token, body("study"))
	require.Equal(t, http.StatusCreated, rec.Code)
	var grp group.Group
	unmarchallObj(t, rec, &grp)
	assert.NotEmpty(t, grp.ID)
	assert.Equal(t, "study", grp.Name)
	assert.Equal(t, "CS101", grp.CourseCode)
	assert.Equal(t, "alice", grp.CreatorName)
	assert.True(t, grp.IsOpen)
	assert.Equal(t, []string{"alice"}, grp.Members)

	tests := []httpTest{
		{
			name:     "missing name",
			path:     "/v1/courses/MATH201/groups",
			body:     body("   "),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"name": "this field is required"}),
		},
		{
			name:     "unknown course",
			path:     "/v1/courses/NOPE42/groups",
			body:     body("study"),
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "course not found"}),
		},
		{
			name:     "already in a group of the course",
			path:     "/v1/courses/CS101/groups",
			body:     body("another"),
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, appErr(core.ErrAlreadyInGroup, grp.ID)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(http.MethodPost, tt.path, token, tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_courseApi_retrieve(t *testing.T) {
	f := setup(t)
	alice := testutil.CreateUser(t, f.userRepo, "alice", "s3cret!", user.StudentRoles)
	testutil.CreateUser(t, f.userRepo, "bob", "s3cret!", user.StudentRoles)
	testutil.CreateUser(t, f.userRepo, "carol", "s3cret!", user.StudentRoles)
	token := getToken(t, alice)

	ctx := context.Background()
	grp := testutil.CreateGroup(t, f.groupRepo, "CS101", "study", false, "alice", "bob")
	for _, name := range []string{"alice", "bob", "carol"} {
		require.NoError(t, f.courseRepo.AddToRoster(ctx, "CS101", name))
	}

	rec := f.serve(http.MethodGet, "/v1/courses/NOPE42", token)
	checkCodeAndData(t, httpTest{wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "course not found"})}, rec)

	rec = f.serve(http.MethodGet, "/v1/courses/CS101", token)
	require.Equal(t, http.StatusOK, rec.Code)

	var detail echoapi.CourseDetail
	unmarchallObj(t, rec, &detail)
	assert.Equal(t, course.Course{Code: "CS101", Title: "Intro to CS"}, detail.Course)
	assert.Equal(t, []group.Summary{
		{ID: grp.ID, Name: "study", Size: 2, MaxSize: group.MaxSize, IsOpen: false, CreatorName: "alice"},
	}, detail.Groups)
	assert.ElementsMatch(t, []course.RosterEntry{
		{Name: "alice", Status: course.StatusInGroup},
		{Name: "bob", Status: course.StatusInGroup},
		{Name: "carol", Status: course.StatusOpen},
	}, detail.Roster)
}

func Test_groupApi_retrieve(t *testing.T) {
	f := setup(t)
	alice := testutil.CreateUser(t, f.userRepo, "alice", "s3cret!", user.StudentRoles)
	carol := testutil.CreateUser(t, f.userRepo, "carol", "s3cret!", user.StudentRoles)
	root := testutil.CreateUser(t, f.userRepo, "root", "s3cret!", user.AdminRoles)
	grp := testutil.CreateGroup(t, f.groupRepo, "CS101", "study", true, "alice")

	_, err := f.chatSvc.Add(context.Background(), grp.ID, "alice", chat.NewMessage{Text: "hi there"})
	require.NoError(t, err)

	tests := []struct {
		name         string
		token        string
		path         string
		wantCode     int
		wantMember   bool
		wantMessages int
	}{
		{name: "member", token: getToken(t, alice), path: "/v1/groups/" + grp.ID, wantCode: http.StatusOK, wantMember: true, wantMessages: 1},
		{name: "course hint", token: getToken(t, alice), path: "/v1/groups/" + grp.ID + "?course=CS101", wantCode: http.StatusOK, wantMember: true, wantMessages: 1},
		{name: "wrong course hint", token: getToken(t, alice), path: "/v1/groups/" + grp.ID + "?course=MATH201", wantCode: http.StatusOK, wantMember: true, wantMessages: 1},
		{name: "non member", token: getToken(t, carol), path: "/v1/groups/" + grp.ID, wantCode: http.StatusOK},
		{name: "admin", token: getToken(t, root), path: "/v1/groups/" + grp.ID, wantCode: http.StatusOK, wantMessages: 1},
		{name: "unknown group", token: getToken(t, alice), path: "/v1/groups/nope", wantCode: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(http.MethodGet, tt.path, tt.token)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var detail echoapi.GroupDetail
			unmarchallObj(t, rec, &detail)
			assert.Equal(t, grp.ID, detail.ID)
			assert.Equal(t, group.MaxSize, detail.MaxSize)
			assert.Equal(t, tt.wantMember, detail.IsMember)
			assert.Len(t, detail.Messages, tt.wantMessages)
		})
	}
}

func Test_groupApi_membership(t *testing.T) {
	f := setup(t)
	users := make(map[string]string)
	for _, name := range []string{"alice", "bob", "carol", "dave", "erin", "frank"} {
		users[name] = getToken(t, testutil.CreateUser(t, f.userRepo, name, "s3cret!", user.StudentRoles))
	}
	grp := testutil.CreateGroup(t, f.groupRepo, "CS101", "study", true, "alice", "bob", "carol", "dave")
	other := testutil.CreateGroup(t, f.groupRepo, "CS101", "other", true, "frank")
	path := func(action string) string { return "/v1/groups/" + grp.ID + "/" + action }

	tests := []httpTest{
		{
			name:     "already in another group of the course",
			method:   http.MethodPost,
			path:     path("join"),
			token:    users["frank"],
			wantCode: http.StatusConflict,
			wantData: marchallObj(t, appErr(core.ErrAlreadyInGroup, other.ID)),
		},
		{
			name:     "join unknown group",
			method:   http.MethodPost,
			path:     "/v1/groups/nope/join",
			token:    users["erin"],
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, appErr(core.ErrGroupNotFound)),
		},
		{name: "join fills the group", method: http.MethodPost, path: path("join"), token: users["erin"], wantCode: http.StatusOK},
		{
			name:     "leave as non member",
			method:   http.MethodPost,
			path:     path("leave"),
			token:    users["frank"],
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, appErr(core.ErrNotMember)),
		},
		{
			name:     "toggle as non member",
			method:   http.MethodPost,
			path:     path("toggle"),
			token:    users["frank"],
			wantCode: http.StatusForbidden,
			wantData: marchallObj(t, appErr(core.ErrNotMember)),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := f.serve(tt.method, tt.path, tt.token)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("full", func(t *testing.T) {
		rec := f.serve(http.MethodPost, "/v1/groups/"+other.ID+"/leave", users["frank"])
		require.Equal(t, http.StatusOK, rec.Code)
		checkCodeAndData(t, httpTest{wantCode: http.StatusOK, wantData: []byte(`{"group": null, "archived": true}`)}, rec)

		rec = f.serve(http.MethodPost, path("join"), users["frank"])
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, appErr(core.ErrGroupFull))}, rec)
	})

	t.Run("closed", func(t *testing.T) {
		rec := f.serve(http.MethodPost, path("leave"), users["erin"])
		require.Equal(t, http.StatusOK, rec.Code)
		var result group.LeaveResult
		unmarchallObj(t, rec, &result)
		assert.False(t, result.Archived)
		require.NotNil(t, result.Group)
		assert.Len(t, result.Group.Members, 4)

		rec = f.serve(http.MethodPost, path("toggle"), users["bob"])
		require.Equal(t, http.StatusOK, rec.Code)
		var toggled group.Group
		unmarchallObj(t, rec, &toggled)
		assert.False(t, toggled.IsOpen)

		rec = f.serve(http.MethodPost, path("join"), users["frank"])
		checkCodeAndData(t, httpTest{wantCode: http.StatusBadRequest, wantData: marchallObj(t, appErr(core.ErrGroupClosed))}, rec)
	})
}
