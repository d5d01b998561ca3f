// Package logging builds the process logger.
package logging

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options selects the level and sink.
type Options struct {
	Level string
	File  string // empty means Fallback
	// Fallback is used when File is empty. nil discards output, which the
	// TUI relies on to keep the alternate screen clean.
	Fallback io.Writer
	JSON     bool
}

// New returns a configured logger and a function that closes its file sink.
func New(opts Options) (*logrus.Logger, func() error, error) {
	logger := logrus.New()
	closer := func() error { return nil }

	level := opts.Level
	if level == "" {
		level = "info"
	}
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return nil, closer, fmt.Errorf("log level: %w", err)
	}
	logger.SetLevel(lvl)

	switch {
	case opts.File != "":
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, closer, fmt.Errorf("opening log file: %w", err)
		}
		logger.SetOutput(f)
		closer = f.Close
	case opts.Fallback != nil:
		logger.SetOutput(opts.Fallback)
	default:
		logger.SetOutput(io.Discard)
	}

	if opts.JSON {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger, closer, nil
}
