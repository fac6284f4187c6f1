// Package task provides the task-manager view of a schedulable unit of work.
// Field names follow the task-manager wire format (camelCase JSON) so
// snapshots can be decoded straight from HTTP responses and stream messages.
package task

import (
	"time"
)

// Status is the lifecycle state reported by the task manager.
type Status string

const (
	StatusNotCreated  Status = "NOT_CREATED"
	StatusCreated     Status = "CREATED"
	StatusReady       Status = "READY"
	StatusPending     Status = "PENDING"
	StatusRunning     Status = "RUNNING"
	StatusSuccess     Status = "SUCCESS"
	StatusError       Status = "ERROR"
	StatusStopping    Status = "STOPPING"
	StatusInterrupted Status = "INTERRUPTED"
)

// AllStatuses lists every status known to the task manager.
var AllStatuses = []Status{
	StatusNotCreated,
	StatusCreated,
	StatusReady,
	StatusPending,
	StatusRunning,
	StatusSuccess,
	StatusError,
	StatusStopping,
	StatusInterrupted,
}

// IsLaunchable reports whether a task in this status may be (re)launched:
// never started, previously completed or previously failed.
func (s Status) IsLaunchable() bool {
	switch s {
	case StatusReady, StatusSuccess, StatusError:
		return true
	default:
		return false
	}
}

// IsReady reports whether the task has all inputs and has never run since.
func (s Status) IsReady() bool {
	return s == StatusReady
}

// String returns the status as it appears on the wire.
func (s Status) String() string {
	return string(s)
}

// ProcessFile references an input artifact stored in object storage.
type ProcessFile struct {
	FilePath             string     `json:"filePath"`
	FileType             string     `json:"fileType"`
	ProcessFileStatus    string     `json:"processFileStatus,omitempty"`
	Filename             string     `json:"filename"`
	DocumentID           string     `json:"documentId,omitempty"`
	LastModificationDate *time.Time `json:"lastModificationDate,omitempty"`
}

// FileKey identifies a file for run-history membership tests.
type FileKey struct {
	Path     string
	FileType string
	Filename string
}

// Key returns the identity of the file: path, type and name.
func (f ProcessFile) Key() FileKey {
	return FileKey{Path: f.FilePath, FileType: f.FileType, Filename: f.Filename}
}

// ProcessRun is one prior execution of a task with the files it consumed.
type ProcessRun struct {
	ID            string        `json:"id"`
	ExecutionDate time.Time     `json:"executionDate"`
	Inputs        []ProcessFile `json:"inputs"`
}

// Parameter is a task parameter as stored by the task manager.
type Parameter struct {
	ID            string `json:"id"`
	ParameterType string `json:"parameterType"`
	Value         string `json:"value"`
	DefaultValue  string `json:"defaultValue"`
}

// Snapshot is an immutable point-in-time view of a task.
type Snapshot struct {
	ID         string        `json:"id"`
	Timestamp  time.Time     `json:"timestamp"`
	Status     Status        `json:"status"`
	Inputs     []ProcessFile `json:"inputs"`
	RunHistory []ProcessRun  `json:"runHistory"`
	Parameters []Parameter   `json:"parameters,omitempty"`
}

// TimestampString formats the task timestamp the way it is logged and
// reported in errors.
func (s *Snapshot) TimestampString() string {
	if s == nil {
		return ""
	}
	return s.Timestamp.Format(time.RFC3339)
}
