package joblauncher

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/c360studio/corevalid-adapter/launcher"
	"github.com/c360studio/corevalid-adapter/task"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(c *Component, method, path, body string) *httptest.ResponseRecorder {
	mux := http.NewServeMux()
	c.RegisterHTTPHandlers("", mux)

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	return w
}

func TestHandleStart_WithParameters(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestComponent(stubLookup{snap: readySnapshot()}, runner, nil)

	body := `[{"id":"id","name":"name","type":"type","title":"title","value":"value","defaultValue":"defaultValue"}]`
	w := serve(c, http.MethodPost, "/start/2025-10-02T14:30Z", body)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Empty(t, w.Body.String())

	reqs := runner.requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, "t1", reqs[0].ID)
	assert.False(t, reqs[0].LaunchedAutomatically)
	assert.Equal(t, []launcher.TaskParameter{
		{ID: "id", ParameterType: "type", Value: "value", DefaultValue: "defaultValue"},
	}, reqs[0].Parameters)
}

func TestHandleStart_StatusCodes(t *testing.T) {
	noHistory := readySnapshot()
	noHistory.RunHistory = nil
	running := readySnapshot()
	running.Status = task.StatusRunning

	tests := []struct {
		name     string
		lookup   stubLookup
		runner   *recordingRunner
		body     string
		wantCode int
		wantRuns int
	}{
		{name: "launched without body", lookup: stubLookup{snap: readySnapshot()}, wantCode: http.StatusOK, wantRuns: 1},
		{name: "empty parameter list", lookup: stubLookup{snap: readySnapshot()}, body: "[]", wantCode: http.StatusOK, wantRuns: 1},
		{name: "absent task is a silent no-op", lookup: stubLookup{}, wantCode: http.StatusOK},
		{name: "not ready is a silent no-op", lookup: stubLookup{snap: running}, wantCode: http.StatusOK},
		{name: "unknown task", lookup: stubLookup{err: task.ErrTaskNotFound}, wantCode: http.StatusNotFound},
		{name: "no run history", lookup: stubLookup{snap: noHistory}, wantCode: http.StatusBadRequest},
		{
			name:     "downstream failure",
			lookup:   stubLookup{snap: readySnapshot()},
			runner:   &recordingRunner{err: errors.New("broker down")},
			wantCode: http.StatusBadRequest,
			wantRuns: 1,
		},
		{name: "malformed body", lookup: stubLookup{snap: readySnapshot()}, body: `{"id":`, wantCode: http.StatusBadRequest},
		{name: "lookup transport failure", lookup: stubLookup{err: errors.New("connection refused")}, wantCode: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			runner := tt.runner
			if runner == nil {
				runner = &recordingRunner{}
			}
			c := newTestComponent(tt.lookup, runner, nil)

			w := serve(c, http.MethodPost, "/start/2025-10-02T14:30Z", tt.body)

			assert.Equal(t, tt.wantCode, w.Code, w.Body.String())
			assert.Len(t, runner.requests(), tt.wantRuns)
		})
	}
}

func TestHandleStart_AdapterErrorBody(t *testing.T) {
	snap := readySnapshot()
	snap.RunHistory = nil
	c := newTestComponent(stubLookup{snap: snap}, &recordingRunner{}, nil)

	w := serve(c, http.MethodPost, "/start/2025-10-02T14:30Z", "")

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "error during handling of manual run request on TS 2025-10-02T14:30:00Z")
}

func TestHandleStart_MethodNotAllowed(t *testing.T) {
	c := newTestComponent(stubLookup{snap: readySnapshot()}, &recordingRunner{}, nil)

	w := serve(c, http.MethodGet, "/start/2025-10-02T14:30Z", "")
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestHandleStart_Prefix(t *testing.T) {
	runner := &recordingRunner{}
	c := newTestComponent(stubLookup{snap: readySnapshot()}, runner, nil)

	mux := http.NewServeMux()
	c.RegisterHTTPHandlers("job-launcher", mux)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/job-launcher/start/2025-10-02T14:30Z", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, runner.requests(), 1)
}

func TestHandleLaunchStatus(t *testing.T) {
	c := newTestComponent(stubLookup{snap: readySnapshot()}, &recordingRunner{}, nil)

	w := serve(c, http.MethodGet, "/launches/2025-10-02T14:30Z", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp launchStatusResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "2025-10-02T14:30Z", resp.Timestamp)
	assert.False(t, resp.InFlight)
}

func TestDecodeParameters(t *testing.T) {
	params, err := decodeParameters(strings.NewReader("  \n"))
	require.NoError(t, err)
	assert.Nil(t, params)

	params, err = decodeParameters(strings.NewReader(`[{"id":"a","type":"BOOLEAN","value":"true"},{"id":"b","defaultValue":"1"}]`))
	require.NoError(t, err)
	assert.Equal(t, []launcher.TaskParameter{
		{ID: "a", ParameterType: "BOOLEAN", Value: "true"},
		{ID: "b", DefaultValue: "1"},
	}, params)

	_, err = decodeParameters(strings.NewReader(`{"id":"a"}`))
	assert.Error(t, err)
}
