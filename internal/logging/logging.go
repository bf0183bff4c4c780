// Package logging builds the durable run log shared by all components.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Options sizes the rotating log file.
type Options struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New creates a logger that writes to a size-rotated file and echoes to
// stderr. The file is the durable record consulted after failed runs; the
// stderr copy serves interactive invocations.
//
// The returned closer flushes and closes the file sink.
func New(prefix string, opts Options) (*log.Logger, io.Closer) {
	rotator := &lumberjack.Logger{
		Filename:   opts.Path,
		MaxSize:    opts.MaxSizeMB,
		MaxBackups: opts.MaxBackups,
		MaxAge:     opts.MaxAgeDays,
	}

	w := io.MultiWriter(rotator, os.Stderr)
	return log.New(w, prefix, log.LstdFlags), rotator
}
