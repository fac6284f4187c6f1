package launcher

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/c360studio/corevalid-adapter/task"
)

type fakeURLs struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (f *fakeURLs) GenerateURL(path string, expiryHours int) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, path)
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("https://store.test%s?expires=%dh", path, expiryHours), nil
}

type fakeRunner struct {
	mu    sync.Mutex
	reqs  []*LaunchRequest
	err   error
	block chan struct{}
}

func (f *fakeRunner) Run(_ context.Context, req *LaunchRequest) error {
	if f.block != nil {
		<-f.block
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, req)
	return f.err
}

func (f *fakeRunner) requests() []*LaunchRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*LaunchRequest(nil), f.reqs...)
}

type fakeLookup struct {
	mu    sync.Mutex
	calls int
	fn    func(ts string) (*task.Snapshot, error)
}

func (f *fakeLookup) GetTaskByTimestamp(_ context.Context, ts string) (*task.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.fn(ts)
}

func (f *fakeLookup) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

var testTimestamp = time.Date(2025, 10, 2, 14, 30, 0, 0, time.UTC)

func cnecRamFile() task.ProcessFile {
	return task.ProcessFile{FilePath: "/CNEC-RAM", FileType: FileTypeCnecRam, Filename: "cnec-ram", ProcessFileStatus: "VALIDATED"}
}

func verticesFile() task.ProcessFile {
	return task.ProcessFile{FilePath: "/VERTICES", FileType: FileTypeVertices, Filename: "vertices", ProcessFileStatus: "VALIDATED"}
}

func snapshotWithStatus(status task.Status) *task.Snapshot {
	inputs := []task.ProcessFile{cnecRamFile(), verticesFile()}
	return &task.Snapshot{
		ID:        "t1",
		Timestamp: testTimestamp,
		Status:    status,
		Inputs:    inputs,
		RunHistory: []task.ProcessRun{
			{ID: "run-1", ExecutionDate: testTimestamp.Add(-time.Hour), Inputs: append([]task.ProcessFile(nil), inputs...)},
		},
	}
}

func newTestAdapter(urls *fakeURLs, runner *fakeRunner, metrics *Metrics) *Adapter {
	return NewAdapter(NewFileMapper(urls, nil), runner, nil, metrics)
}
