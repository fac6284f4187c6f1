package launcher

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/c360studio/semstreams/message"
)

// LaunchType distinguishes operator-triggered from event-triggered launches.
type LaunchType string

const (
	LaunchManual    LaunchType = "manual"
	LaunchAutomatic LaunchType = "automatic"
)

func (t LaunchType) automatic() bool {
	return t == LaunchAutomatic
}

// LaunchRequestType is the message type of launch requests sent to the
// compute service.
var LaunchRequestType = message.Type{
	Domain:   "corevalid",
	Category: "launch",
	Version:  "v1",
}

// FileResource is an input file resolved to a short-lived URL.
type FileResource struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
}

// TaskParameter is a caller-supplied run parameter.
type TaskParameter struct {
	ID            string `json:"id"`
	ParameterType string `json:"parameter_type"`
	Value         string `json:"value"`
	DefaultValue  string `json:"default_value"`
}

// LaunchRequest is the payload handed to the compute service.
type LaunchRequest struct {
	ID                    string          `json:"id"`
	CurrentRunID          string          `json:"current_run_id"`
	Timestamp             time.Time       `json:"timestamp"`
	CnecRam               *FileResource   `json:"cnec_ram,omitempty"`
	Vertices              *FileResource   `json:"vertices,omitempty"`
	LaunchedAutomatically bool            `json:"launched_automatically"`
	Parameters            []TaskParameter `json:"parameters,omitempty"`
}

// Schema returns the message type for this payload.
func (r *LaunchRequest) Schema() message.Type {
	return LaunchRequestType
}

// Validate validates the payload.
func (r *LaunchRequest) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("id is required")
	}
	if r.CurrentRunID == "" {
		return fmt.Errorf("current_run_id is required")
	}
	return nil
}

// MarshalJSON marshals the request to JSON.
func (r *LaunchRequest) MarshalJSON() ([]byte, error) {
	type Alias LaunchRequest
	return json.Marshal((*Alias)(r))
}

// UnmarshalJSON unmarshals the request from JSON.
func (r *LaunchRequest) UnmarshalJSON(data []byte) error {
	type Alias LaunchRequest
	return json.Unmarshal(data, (*Alias)(r))
}
