package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/dismod47/GroupChatProject/apps/api/echo"
	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/chat"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/group"
	"github.com/dismod47/GroupChatProject/core/user"
	appfs "github.com/dismod47/GroupChatProject/fs"
	logsvc "github.com/dismod47/GroupChatProject/services/logger"
	"github.com/dismod47/GroupChatProject/services/realtime"
	"github.com/dismod47/GroupChatProject/storage/database"
	"github.com/dismod47/GroupChatProject/storage/database/sqlxrepos"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type ServicesParam struct {
	dig.In
	UserSvc   *user.Service
	CourseSvc *course.Service
	GroupSvc  *group.Service
	ChatSvc   *chat.Service
	AuditSvc  *audit.Service
	Hub       *realtime.Hub
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newNotifier(hub *realtime.Hub) core.Notifier {
	return hub
}

func newDeps(p ServicesParam) *echoapi.Deps {
	seed, err := appfs.FS.ReadFile(appfs.CoursesSeedPath)
	if err != nil {
		log.Fatal(errors.Wrap(err, "reading course catalog").Error())
	}

	return &echoapi.Deps{
		UserSvc:     p.UserSvc,
		CourseSvc:   p.CourseSvc,
		GroupSvc:    p.GroupSvc,
		ChatSvc:     p.ChatSvc,
		AuditSvc:    p.AuditSvc,
		Subscriber:  p.Hub,
		CoursesSeed: seed,
	}
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository, dig.As(new(user.Repository))))
	must(c.Provide(sqlxrepos.NewCourseRepository, dig.As(new(course.Repository))))
	must(c.Provide(sqlxrepos.NewGroupRepository, dig.As(new(group.Repository))))
	must(c.Provide(sqlxrepos.NewMessageRepository, dig.As(new(chat.Repository))))
	must(c.Provide(sqlxrepos.NewAuditRepository, dig.As(new(audit.Repository))))

	// services
	must(c.Provide(realtime.NewHub))
	must(c.Provide(newNotifier))
	must(c.Provide(audit.NewService))
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(group.NewService))
	must(c.Provide(chat.NewService))

	must(c.Provide(newDeps))
	must(c.Provide(echoapi.NewServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
