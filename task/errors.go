package task

import "errors"

// ErrTaskNotFound is returned by task lookups when the task manager has no
// task for the requested timestamp.
var ErrTaskNotFound = errors.New("task not found")
