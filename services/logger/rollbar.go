package logsvc

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/user"
)

// RollbarLogger reports to its own rollbar.Client and echoes every entry to std.
type RollbarLogger struct {
	std    *log.Logger
	client *rollbar.Client
}

var _ core.Logger = (*RollbarLogger)(nil)

// NewRollbarLogger returns a core.Logger reporting to rollbar and echoing to std.
// Reporting is disabled in debug & test mode, or when no token is configured.
func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	client := rollbar.New(conf.RollbarToken, conf.Env, conf.Build, conf.Server.Host, "")
	client.SetStackTracer(errors.StackTracer)
	client.SetEnabled(!(conf.Debug || conf.TestMode) && conf.RollbarToken != "")
	return &RollbarLogger{std: std, client: client}
}

// Close waits for the queued reports to be sent.
func (l RollbarLogger) Close() {
	_ = l.client.Close()
}

// entry is a log call split into what rollbar expects.
type entry struct {
	err    error
	extras map[string]interface{}
	person *rollbar.Person
}

// newEntry reads args, expected fmt: error, map[string]interface{}, user.User.
// Extra maps are merged. Any other arg is kept under the "details" extra.
// The first user is reported as the rollbar person, never echoed.
func newEntry(args []interface{}) entry {
	e := entry{extras: make(map[string]interface{})}
	var details []interface{}
	for _, arg := range args {
		switch v := arg.(type) {
		case user.User:
			if e.person == nil {
				e.person = &rollbar.Person{Id: v.ID, Username: v.Username, Email: v.Email}
			}
		case error:
			if e.err == nil {
				e.err = v
			} else {
				details = append(details, v.Error())
			}
		case map[string]interface{}:
			for key, val := range v {
				e.extras[key] = val
			}
		default:
			details = append(details, v)
		}
	}
	if len(details) > 0 {
		e.extras["details"] = details
	}
	return e
}

func (e entry) context() context.Context {
	ctx := context.Background()
	if e.person != nil {
		ctx = rollbar.NewPersonContext(ctx, e.person)
	}
	return ctx
}

func (l RollbarLogger) report(level, msg string, e entry) {
	if e.err == nil {
		l.client.MessageWithExtrasAndContext(e.context(), level, msg, e.extras)
		return
	}
	extras := make(map[string]interface{}, len(e.extras)+1)
	for key, val := range e.extras {
		extras[key] = val
	}
	extras["message"] = msg
	l.client.ErrorWithExtrasAndContext(e.context(), level, e.err, extras)
}

func (l RollbarLogger) print(level, msg string, e entry) {
	line := strings.ToUpper(level) + ": " + msg
	if len(e.extras) > 0 {
		keys := make([]string, 0, len(e.extras))
		for key := range e.extras {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, 0, len(keys))
		for _, key := range keys {
			pairs = append(pairs, fmt.Sprintf("%s=%v", key, e.extras[key]))
		}
		line += " [" + strings.Join(pairs, " ") + "]"
	}
	l.std.Println(line)
	if e.err != nil {
		l.std.Printf("%+v\n", e.err)
	}
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	e := newEntry(args)
	l.report(level, msg, e)
	l.print(level, msg, e)
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) {
	l.log(rollbar.DEBUG, msg, args)
}

func (l RollbarLogger) Info(msg string, args ...interface{}) {
	l.log(rollbar.INFO, msg, args)
}

func (l RollbarLogger) Warn(msg string, args ...interface{}) {
	l.log(rollbar.WARN, msg, args)
}

func (l RollbarLogger) Error(msg string, args ...interface{}) {
	l.log(rollbar.ERR, msg, args)
}

// Fatal flushes the pending reports before exiting.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	l.Close()
	l.std.Fatal(msg)
}
