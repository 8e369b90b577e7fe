// Package appctx carries the per-process application context shared by the
// chat and admin controllers: who the user is and where notifications go.
package appctx

import (
	"strings"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
)

type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notifier is the notification banner sink.
type Notifier interface {
	Notify(level Level, message string)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(level Level, message string)

func (f NotifierFunc) Notify(level Level, message string) { f(level, message) }

type User struct {
	ID   string
	Name string
}

type Context struct {
	User     User
	Notifier Notifier
}

func New(user User, notifier Notifier) (*Context, error) {
	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		return nil, errors.New("appctx: user id must not be empty")
	}
	if notifier == nil {
		return nil, errors.New("appctx: notifier must not be nil")
	}
	return &Context{User: user, Notifier: notifier}, nil
}

// LogNotifier writes notifications to a zerolog logger.
type LogNotifier struct {
	Logger zerolog.Logger
}

func (n LogNotifier) Notify(level Level, message string) {
	var ev *zerolog.Event
	switch level {
	case LevelError:
		ev = n.Logger.Error()
	case LevelWarning:
		ev = n.Logger.Warn()
	default:
		ev = n.Logger.Info()
	}
	ev.Str("kind", string(level)).Msg(message)
}
