package tests

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	echoapi "github.com/dismod47/GroupChatProject/apps/api/echo"
	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
	appfs "github.com/dismod47/GroupChatProject/fs"
	"github.com/dismod47/GroupChatProject/services/realtime"
	"github.com/dismod47/GroupChatProject/storage/database/sqlxrepos"
	testutil "github.com/dismod47/GroupChatProject/tests"
)

var errMissingToken = httpErr{Error: "missing or malformed jwt"}

type fixture struct {
	app        *echoapi.Server
	db         *sqlx.DB
	hub        *realtime.Hub
	userRepo   user.Repository
	courseRepo course.Repository
	groupRepo  group.Repository
	chatSvc    *chat.Service
}

func setup(t *testing.T) fixture {
	conf := testutil.NewConfig(t)
	db := testutil.PrepareDB(t, conf)
	logger := testutil.NewLogger(conf)

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	hub := realtime.NewHub(logger, conf)
	go hub.Run()
	t.Cleanup(hub.Close)

	// repos
	userRepo := sqlxrepos.NewUserRepository(db)
	courseRepo := sqlxrepos.NewCourseRepository(db)
	groupRepo := sqlxrepos.NewGroupRepository(db)
	msgRepo := sqlxrepos.NewMessageRepository(db)

	// services
	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db), logger)
	chatSvc := chat.NewService(db, msgRepo, groupRepo, auditSvc, hub, conf)
	seed, err := appfs.FS.ReadFile(appfs.CoursesSeedPath)
	if err != nil {
		t.Fatalf("reading courses seed: %v", err)
	}

	app := echoapi.NewServer(conf, logger, validate, translator, &echoapi.Deps{
		UserSvc:     user.NewService(db, userRepo, auditSvc, validate),
		CourseSvc:   course.NewService(db, courseRepo),
		GroupSvc:    group.NewService(db, groupRepo, courseRepo, auditSvc, hub),
		ChatSvc:     chatSvc,
		AuditSvc:    auditSvc,
		Subscriber:  hub,
		CoursesSeed: seed,
	})

	testutil.CreateCourses(t, courseRepo,
		course.Course{Code: "CS101", Title: "Intro to CS"},
		course.Course{Code: "MATH201", Title: "Calculus II"},
	)

	return fixture{
		app:        app,
		db:         db,
		hub:        hub,
		userRepo:   userRepo,
		courseRepo: courseRepo,
		groupRepo:  groupRepo,
		chatSvc:    chatSvc,
	}
}

// serve runs the request against the server and returns the recorder.
func (f fixture) serve(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	f.app.ServeHTTP(rec, req)
	return rec
}

type httpErr struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	GroupID string `json:"groupId,omitempty"`
}

func appErr(err *core.AppError, groupID ...string) httpErr {
	herr := httpErr{Error: err.Code, Message: err.Message}
	if len(groupID) > 0 {
		herr.GroupID = groupID[0]
	}
	return herr
}

type httpTest struct {
	name     string
	method   string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func getToken(t *testing.T, usr user.User) string {
	token, err := echoapi.GenerateToken(echoapi.GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
	}
	return data
}

func unmarchallObj(t *testing.T, rec *httptest.ResponseRecorder, obj interface{}) {
	if err := json.Unmarshal(rec.Body.Bytes(), obj); err != nil {
		t.Fatalf("unmarchallObj(%s): %v", rec.Body.String(), err)
	}
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
