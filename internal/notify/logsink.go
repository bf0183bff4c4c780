package notify

import (
	"context"
	"log"
	"os"
)

// LogSink records sync outcomes on the run log. It is composed in front of
// the mailer so every outcome lands in the durable log even when email
// delivery is skipped or fails.
type LogSink struct {
	logger *log.Logger
}

// NewLogSink creates a sink writing to the given logger.
//
// If logger is nil, a default logger writing to stderr is used.
func NewLogSink(logger *log.Logger) *LogSink {
	if logger == nil {
		logger = log.New(os.Stderr, "[notify] ", log.LstdFlags)
	}
	return &LogSink{logger: logger}
}

// Notify implements Sink. It never fails.
func (s *LogSink) Notify(_ context.Context, msg Message) error {
	if msg.Success {
		s.logger.Printf("Sync succeeded: kind=%s window=%s..%s rows=%d",
			msg.Kind, msg.Start, msg.End, msg.RowsProcessed)
		return nil
	}
	s.logger.Printf("Sync FAILED: kind=%s window=%s..%s error=%s",
		msg.Kind, msg.Start, msg.End, msg.ErrorText)
	return nil
}
