package logging

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Options controls where and how verbosely a component logs.
// Dir defaults to "logs". Stderr sends output to standard error instead of a file;
// stdout is never used because the stdio transport owns it.
type Options struct {
	Dir    string
	Level  string
	Stderr bool
}

// New creates a logger that writes to <dir>/<component>.log and returns it with a cleanup.
func New(component string, opts Options) (*logrus.Entry, func(), error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	level := logrus.InfoLevel
	if opts.Level != "" {
		lvl, err := logrus.ParseLevel(opts.Level)
		if err != nil {
			return nil, nil, err
		}
		level = lvl
	}
	logger.SetLevel(level)

	if opts.Stderr {
		logger.SetOutput(os.Stderr)
		return logger.WithField("component", component), func() {}, nil
	}

	dir := opts.Dir
	if dir == "" {
		dir = "logs"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, nil, err
	}
	path := filepath.Join(dir, component+".log")
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}

	logger.SetOutput(f)
	return logger.WithField("component", component), func() { _ = f.Close() }, nil
}

// Discard returns a logger that drops everything. Used by tests and library callers
// that do not care about logs.
func Discard() *logrus.Entry {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logrus.NewEntry(logger)
}
