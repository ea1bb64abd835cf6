package main

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/audit"
	"github.com/dismod47/GroupChatProject/core/course"
	"github.com/dismod47/GroupChatProject/core/user"
	logsvc "github.com/dismod47/GroupChatProject/services/logger"
	"github.com/dismod47/GroupChatProject/storage/database"
	"github.com/dismod47/GroupChatProject/storage/database/sqlxrepos"
)

func main() {
	conf := core.NewConfig()
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile), conf)

	// set up DB
	if err := database.CreateIfNotExist(conf); err != nil {
		logger.Fatal(fmt.Sprintf("creating database: %v", err), err)
	}
	db, err := database.Open(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("opening database: %v", err), err)
	}
	if err = database.Ping(db.DB, 5); err != nil {
		logger.Fatal(fmt.Sprintf("pinging database: %v", err), err)
	}
	if err = database.SetupMigrations(db); err != nil {
		logger.Fatal(fmt.Sprintf("setting up migrations: %v", err), err)
	}

	validate := validator.New()
	_en := en.New()
	translator, _ := ut.New(_en, _en).GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	auditSvc := audit.NewService(sqlxrepos.NewAuditRepository(db), logger)

	// start CLI
	cli := commandLine{
		db:        db,
		validate:  validate,
		usrSvc:    user.NewService(db, sqlxrepos.NewUserRepository(db), auditSvc, validate),
		courseSvc: course.NewService(db, sqlxrepos.NewCourseRepository(db)),
	}
	err = cli.run(os.Args)
	_ = db.Close()
	if err != nil {
		if err != errHelp {
			logger.Error(fmt.Sprintf("error: %v", err), err)
		}
		os.Exit(1)
	}
}
