// Package notify reports sync outcomes out-of-band.
//
// A sink receives one structured message per sync run, success or failure.
// Delivery is best-effort: a sink failure is the caller's to log, never to
// raise, so it cannot mask the sync result itself.
package notify

import (
	"context"
	"errors"
)

// Message is the structured outcome handed to a sink, exactly once per run.
type Message struct {
	Success       bool
	Kind          string
	Start         string // YYYY-MM-DD
	End           string // YYYY-MM-DD
	RowsProcessed int
	ErrorText     string // set when Success is false
}

// Sink delivers a sync outcome out-of-band.
type Sink interface {
	Notify(ctx context.Context, msg Message) error
}

// multi fans one message out to several sinks.
type multi struct {
	sinks []Sink
}

// Multi returns a sink that delivers to every given sink. All sinks are
// attempted even when earlier ones fail; their errors are joined.
func Multi(sinks ...Sink) Sink {
	return &multi{sinks: sinks}
}

// Notify implements Sink.
func (m *multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, s := range m.sinks {
		if err := s.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
