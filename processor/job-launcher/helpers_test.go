package joblauncher

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/c360studio/corevalid-adapter/launcher"
	"github.com/c360studio/corevalid-adapter/task"
)

type stubLookup struct {
	snap *task.Snapshot
	err  error
}

func (s stubLookup) GetTaskByTimestamp(context.Context, string) (*task.Snapshot, error) {
	return s.snap, s.err
}

type recordingRunner struct {
	mu   sync.Mutex
	reqs []*launcher.LaunchRequest
	err  error
}

func (r *recordingRunner) Run(_ context.Context, req *launcher.LaunchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, req)
	return r.err
}

func (r *recordingRunner) requests() []*launcher.LaunchRequest {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]*launcher.LaunchRequest(nil), r.reqs...)
}

type stubURLs struct{}

func (stubURLs) GenerateURL(path string, expiryHours int) (string, error) {
	return fmt.Sprintf("https://minio.test/gridcapa%s?expires=%dh", path, expiryHours), nil
}

var fixtureTime = time.Date(2025, 10, 2, 14, 30, 0, 0, time.UTC)

func readySnapshot() *task.Snapshot {
	inputs := []task.ProcessFile{
		{FilePath: "/CNEC-RAM", FileType: launcher.FileTypeCnecRam, Filename: "cnec-ram"},
		{FilePath: "/VERTICES", FileType: launcher.FileTypeVertices, Filename: "vertices"},
	}
	return &task.Snapshot{
		ID:        "t1",
		Timestamp: fixtureTime,
		Status:    task.StatusReady,
		Inputs:    inputs,
		RunHistory: []task.ProcessRun{
			{ID: "run-1", ExecutionDate: fixtureTime.Add(-time.Hour), Inputs: append([]task.ProcessFile(nil), inputs...)},
		},
	}
}

// newTestComponent wires a Component around fakes, bypassing NATS.
func newTestComponent(lookup launcher.TaskLookup, runner launcher.Runner, triggers []string) *Component {
	logger := slog.Default()
	metrics := launcher.NewMetrics()
	adapter := launcher.NewAdapter(launcher.NewFileMapper(stubURLs{}, nil), runner, logger, metrics)
	return &Component{
		name:    componentName,
		config:  DefaultConfig(),
		logger:  logger,
		metrics: metrics,
		adapter: adapter,
		manual:  launcher.NewManualLauncher(launcher.NewMemoryMarkers(), lookup, adapter, logger, metrics),
		auto:    launcher.NewAutoLauncher(launcher.NewTriggerFilter(triggers), adapter, logger, metrics),
	}
}
