package logsvc

import (
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/dismod47/GroupChatProject/core"
	"github.com/dismod47/GroupChatProject/core/user"
)

// RollbarLogger reports to Rollbar (when a token is configured) and mirrors every entry to a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	rollbar.SetEnabled(conf.RollbarToken != "" && !conf.TestMode)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// Close waits for queued reports to be sent.
func (l RollbarLogger) Close() {
	rollbar.Close()
}

// expected fmt: msg | error, map[string]interface{}, user.User
func (l RollbarLogger) prepare(msg string, args []interface{}) (string, []interface{}) {
	var usrName string
	newArgs := make([]interface{}, 0, len(args)+1)
	newArgs = append(newArgs, msg)
	for _, arg := range args {
		// set logged in User
		if usr, ok := arg.(user.User); ok {
			if usrName == "" { // only set one User
				rollbar.SetPerson(usr.ID, usr.Name, "")
				usrName = usr.Name
			}
		} else {
			newArgs = append(newArgs, arg)
		}
	}
	if usrName == "" {
		rollbar.ClearPerson()
	}
	return usrName, newArgs
}

func (l RollbarLogger) print(level, usrName, msg string, args []interface{}) {
	if usrName != "" {
		l.std.Printf("%s [%s] %s", level, usrName, msg)
	} else {
		l.std.Printf("%s %s", level, msg)
	}
	for _, arg := range args {
		if _, ok := arg.(user.User); ok {
			continue
		}
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	usrName, rArgs := l.prepare(msg, args)
	rollbar.Debug(rArgs...)
	l.print("DEBUG", usrName, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	usrName, rArgs := l.prepare(msg, args)
	rollbar.Info(rArgs...)
	l.print("INFO", usrName, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	usrName, rArgs := l.prepare(msg, args)
	rollbar.Warning(rArgs...)
	l.print("WARN", usrName, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	usrName, rArgs := l.prepare(msg, args)
	rollbar.Error(rArgs...)
	l.print("ERROR", usrName, msg, args)
}

func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	usrName, rArgs := l.prepare(msg, args)
	rollbar.Critical(rArgs...)
	l.print("FATAL", usrName, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
