package joblauncher

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/c360studio/corevalid-adapter/launcher"
	"github.com/c360studio/corevalid-adapter/task"
)

// maxRequestBodySize limits POST body sizes.
const maxRequestBodySize = 1 << 20 // 1 MB

// RegisterHTTPHandlers registers the job-launcher HTTP handlers under prefix.
// An empty prefix mounts them at the root. Handlers are registered as:
//
//	POST <prefix>/start/{timestamp}
//	GET  <prefix>/launches/{timestamp}
func (c *Component) RegisterHTTPHandlers(prefix string, mux *http.ServeMux) {
	if !strings.HasPrefix(prefix, "/") {
		prefix = "/" + prefix
	}
	if !strings.HasSuffix(prefix, "/") {
		prefix = prefix + "/"
	}

	mux.HandleFunc("POST "+prefix+"start/{timestamp}", c.handleStart)
	mux.HandleFunc("GET "+prefix+"launches/{timestamp}", c.handleLaunchStatus)
}

// parameterRequest is one entry of the optional parameter list sent with a
// manual launch. Name and Title are display fields and are not forwarded.
type parameterRequest struct {
	ID           string `json:"id"`
	Name         string `json:"name,omitempty"`
	Type         string `json:"type"`
	Title        string `json:"title,omitempty"`
	Value        string `json:"value"`
	DefaultValue string `json:"defaultValue"`
}

// launchStatusResponse is returned by GET launches/{timestamp}.
type launchStatusResponse struct {
	Timestamp string `json:"timestamp"`
	InFlight  bool   `json:"in_flight"`
}

// handleStart handles POST /start/{timestamp}.
// 200 on launch or silent no-op, 404 when the task manager does not know the
// timestamp, 400 for a malformed body or a rejected launch, 500 otherwise.
func (c *Component) handleStart(w http.ResponseWriter, r *http.Request) {
	timestamp := r.PathValue("timestamp")
	if timestamp == "" {
		http.Error(w, "Timestamp required", http.StatusBadRequest)
		return
	}

	params, err := decodeParameters(http.MaxBytesReader(w, r.Body, maxRequestBodySize))
	if err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	err = c.manual.LaunchJob(r.Context(), timestamp, params)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusOK)
	case errors.Is(err, task.ErrTaskNotFound):
		http.Error(w, "Task not found", http.StatusNotFound)
	case launcher.IsAdapterError(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		c.logger.Error("Manual launch failed",
			"timestamp", launcher.SanitizeForLog(timestamp),
			"error", err)
		http.Error(w, "Launch failed", http.StatusInternalServerError)
	}
}

// handleLaunchStatus reports whether a manual launch is in flight.
func (c *Component) handleLaunchStatus(w http.ResponseWriter, r *http.Request) {
	timestamp := r.PathValue("timestamp")

	held, err := c.manual.InFlight(r.Context(), timestamp)
	if err != nil {
		c.logger.Error("Failed to read launch marker", "error", err)
		http.Error(w, "Marker backend unavailable", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(launchStatusResponse{Timestamp: timestamp, InFlight: held}); err != nil {
		c.logger.Warn("Failed to encode response", "error", err)
	}
}

// decodeParameters reads the optional parameter list. An empty body yields
// no parameters.
func decodeParameters(body io.Reader) ([]launcher.TaskParameter, error) {
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, nil
	}

	var req []parameterRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, err
	}

	params := make([]launcher.TaskParameter, 0, len(req))
	for _, p := range req {
		params = append(params, launcher.TaskParameter{
			ID:            p.ID,
			ParameterType: p.Type,
			Value:         p.Value,
			DefaultValue:  p.DefaultValue,
		})
	}
	return params, nil
}
