package review

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Level is the severity of a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelInfo:
		return "info"
	case LevelSuccess:
		return "success"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Notice is a user-facing message about the outcome of an operation.
type Notice struct {
	Level      Level
	Message    string
	MaterialID int64 // 0 for collection-wide notices
	Err        error
	At         time.Time
}

// Notifier receives notices. Implementations must not block.
type Notifier interface {
	Notify(Notice)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Notice)

func (f NotifierFunc) Notify(n Notice) { f(n) }

// Notices is a buffered channel notifier. Notices are dropped when the
// buffer is full.
type Notices chan Notice

func (ch Notices) Notify(n Notice) {
	select {
	case ch <- n:
	default:
	}
}

// Multi fans a notice out to every non-nil notifier.
func Multi(ns ...Notifier) Notifier {
	return NotifierFunc(func(n Notice) {
		for _, x := range ns {
			if x != nil {
				x.Notify(n)
			}
		}
	})
}

// LogNotifier writes notices to log.
func LogNotifier(log logrus.FieldLogger) Notifier {
	return NotifierFunc(func(n Notice) {
		entry := log.WithField("notice", n.Level.String())
		if n.MaterialID != 0 {
			entry = entry.WithField("material_id", n.MaterialID)
		}
		if n.Err != nil {
			entry.WithError(n.Err).Error(n.Message)
			return
		}
		entry.Info(n.Message)
	})
}

var discardNotices = NotifierFunc(func(Notice) {})

func notice(level Level, id int64, msg string, err error) Notice {
	return Notice{Level: level, Message: msg, MaterialID: id, Err: err, At: time.Now()}
}
