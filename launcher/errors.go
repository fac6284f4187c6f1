package launcher

import (
	"errors"
	"fmt"
)

// ErrNoRunHistory is returned when a task has no prior run to attach a new
// launch to.
var ErrNoRunHistory = errors.New("task has no run history")

// UnexpectedFileTypeError is returned when a task input carries a file type
// the adapter has no slot for. It signals a contract violation by the task
// producer and is never retried.
type UnexpectedFileTypeError struct {
	FileType string
}

func (e *UnexpectedFileTypeError) Error() string {
	return "unexpected file type: " + e.FileType
}

// AdapterError wraps any failure while building or dispatching a launch.
type AdapterError struct {
	LaunchType LaunchType
	Timestamp  string
	Err        error
}

func (e *AdapterError) Error() string {
	msg := fmt.Sprintf("error during handling of %s run request on TS %s", e.LaunchType, e.Timestamp)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AdapterError) Unwrap() error {
	return e.Err
}

// IsAdapterError reports whether err is or wraps an *AdapterError.
func IsAdapterError(err error) bool {
	var ae *AdapterError
	return errors.As(err, &ae)
}
