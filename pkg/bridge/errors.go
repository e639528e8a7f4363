package bridge

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrForcedExit indicates a second stop signal arrived while sinks were
	// still shutting down.
	ErrForcedExit = errors.New("forced exit")
)

// Sink operations reported in SinkError.
const (
	OpFrame     = "frame"
	OpLinkState = "link"
	OpRun       = "run"
)

// SinkError is a failure of one sink.
type SinkError struct {
	Sink string
	Op   string
	Err  error
}

// Error implements error.
func (e *SinkError) Error() string {
	return fmt.Sprintf("sink %s %s: %v", e.Sink, e.Op, e.Err)
}

// Unwrap returns the sink's own error.
func (e *SinkError) Unwrap() error {
	return e.Err
}

// SinkErrors collects the sink failures of one poll or of shutdown.
type SinkErrors []*SinkError

// Error implements error.
func (e SinkErrors) Error() string {
	msgs := make([]string, len(e))
	for n, err := range e {
		msgs[n] = err.Error()
	}
	return strings.Join(msgs, "; ")
}

// Sinks returns the names of failed sinks, in order, without duplicates.
func (e SinkErrors) Sinks() []string {
	var names []string
	seen := make(map[string]bool)
	for _, err := range e {
		if !seen[err.Sink] {
			seen[err.Sink] = true
			names = append(names, err.Sink)
		}
	}
	return names
}

func (e *SinkErrors) add(sink interface{}, op string, err error) {
	if err != nil {
		*e = append(*e, &SinkError{Sink: SinkName(sink), Op: op, Err: err})
	}
}

func (e SinkErrors) errorOrNil() error {
	if len(e) == 0 {
		return nil
	}
	return e
}
