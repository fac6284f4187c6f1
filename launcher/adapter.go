// Package launcher turns task snapshots into compute launch requests.
//
// Adapter builds and dispatches a request for one snapshot. ManualLauncher
// wraps it for operator-triggered launches and guarantees at most one
// launch per timestamp is in flight. AutoLauncher handles task-update events
// and drops updates that bring no new trigger file.
package launcher

import (
	"context"
	"log/slog"

	"github.com/c360studio/corevalid-adapter/task"
)

// Runner sends a launch request to the compute service.
type Runner interface {
	Run(ctx context.Context, req *LaunchRequest) error
}

// Adapter builds launch requests and hands them to a Runner.
type Adapter struct {
	mapper  *FileMapper
	runner  Runner
	logger  *slog.Logger
	metrics *Metrics
}

// NewAdapter creates an Adapter. metrics may be nil.
func NewAdapter(mapper *FileMapper, runner Runner, logger *slog.Logger, metrics *Metrics) *Adapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Adapter{
		mapper:  mapper,
		runner:  runner,
		logger:  logger,
		metrics: metrics,
	}
}

// HandleManual launches snap with caller-supplied parameters.
func (a *Adapter) HandleManual(ctx context.Context, snap *task.Snapshot, params []TaskParameter) error {
	return a.handle(ctx, snap, LaunchManual, params)
}

// HandleAuto launches snap on behalf of a task-update event.
func (a *Adapter) HandleAuto(ctx context.Context, snap *task.Snapshot) error {
	return a.handle(ctx, snap, LaunchAutomatic, nil)
}

// handle checks readiness, then builds and dispatches. Every failure past
// the readiness check is returned as an *AdapterError.
func (a *Adapter) handle(ctx context.Context, snap *task.Snapshot, launchType LaunchType, params []TaskParameter) error {
	ts := snap.TimestampString()
	logger := a.logger.With("launch_type", launchType, "timestamp", ts, "task_id", snap.ID)

	if !snap.Status.IsLaunchable() {
		logger.Warn("Task not ready, run request ignored", "status", snap.Status)
		a.metrics.launch(launchType, outcomeNotReady)
		return nil
	}

	logger.Info("Handling run request")

	req, err := a.BuildRequest(snap, launchType, params)
	if err == nil {
		err = a.runner.Run(ctx, req)
	}
	if err != nil {
		a.metrics.launch(launchType, outcomeFailed)
		return &AdapterError{LaunchType: launchType, Timestamp: ts, Err: err}
	}

	a.metrics.launch(launchType, outcomeDispatched)
	logger.Info("Run request dispatched", "current_run_id", req.CurrentRunID)
	return nil
}

// BuildRequest assembles the request for snap without dispatching it.
func (a *Adapter) BuildRequest(snap *task.Snapshot, launchType LaunchType, params []TaskParameter) (*LaunchRequest, error) {
	runID, err := CurrentRunID(snap.RunHistory)
	if err != nil {
		a.logger.Warn("Run request rejected, task has no run history",
			"launch_type", launchType,
			"timestamp", snap.TimestampString())
		return nil, err
	}

	files, err := a.mapper.Map(snap.Inputs)
	if err != nil {
		return nil, err
	}

	return &LaunchRequest{
		ID:                    snap.ID,
		CurrentRunID:          runID,
		Timestamp:             snap.Timestamp,
		CnecRam:               files.CnecRam,
		Vertices:              files.Vertices,
		LaunchedAutomatically: launchType.automatic(),
		Parameters:            params,
	}, nil
}
