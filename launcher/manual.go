package launcher

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/c360studio/corevalid-adapter/task"
)

// TaskLookup fetches a task snapshot by its timestamp.
// A nil snapshot with a nil error means the task is absent.
type TaskLookup interface {
	GetTaskByTimestamp(ctx context.Context, timestamp string) (*task.Snapshot, error)
}

// ManualLauncher serves operator-triggered launches.
type ManualLauncher struct {
	markers MarkerSet
	lookup  TaskLookup
	adapter *Adapter
	logger  *slog.Logger
	metrics *Metrics
}

// NewManualLauncher creates a launcher owning markers.
func NewManualLauncher(markers MarkerSet, lookup TaskLookup, adapter *Adapter, logger *slog.Logger, metrics *Metrics) *ManualLauncher {
	if logger == nil {
		logger = slog.Default()
	}
	return &ManualLauncher{
		markers: markers,
		lookup:  lookup,
		adapter: adapter,
		logger:  logger,
		metrics: metrics,
	}
}

// LaunchJob launches the task at timestamp unless another manual launch of
// the same timestamp is in flight, in which case it returns nil without
// doing anything. Absent and not-ready tasks are logged and return nil.
// Lookup errors and *AdapterError are returned after the marker is released.
func (m *ManualLauncher) LaunchJob(ctx context.Context, timestamp string, params []TaskParameter) error {
	safeTS := SanitizeForLog(timestamp)
	logger := m.logger.With("timestamp", safeTS)
	logger.Info("Received order to launch task")

	added, err := m.markers.TryAdd(ctx, timestamp)
	if err != nil {
		return fmt.Errorf("mark %s in flight: %w", safeTS, err)
	}
	if !added {
		logger.Warn("Task already being launched, ignoring request")
		m.metrics.duplicate()
		return nil
	}
	m.metrics.acquired()
	defer m.release(ctx, timestamp, logger)

	snap, err := m.lookup.GetTaskByTimestamp(ctx, timestamp)
	if err != nil {
		logger.Error("Failed to retrieve task", "error", err)
		return err
	}
	if snap == nil {
		logger.Error("Failed to launch task: could not retrieve task from the task-manager")
		m.metrics.taskNotFound()
		return nil
	}

	if !snap.Status.IsLaunchable() {
		logger.Warn("Failed to launch task because it is not ready yet",
			"task_id", snap.ID,
			"status", snap.Status)
		return nil
	}

	if err := m.adapter.HandleManual(ctx, snap, params); err != nil {
		logger.Error("Launch failed", "task_id", snap.ID, "error", err)
		return err
	}
	return nil
}

// release removes the marker. It runs even if ctx was cancelled.
func (m *ManualLauncher) release(ctx context.Context, timestamp string, logger *slog.Logger) {
	m.metrics.released()
	if err := m.markers.Remove(context.WithoutCancel(ctx), timestamp); err != nil {
		logger.Error("Failed to remove task from tasks being launched", "error", err)
		return
	}
	logger.Debug("Removed task from tasks being launched")
}

// InFlight reports whether a manual launch of timestamp is in progress.
func (m *ManualLauncher) InFlight(ctx context.Context, timestamp string) (bool, error) {
	return m.markers.Contains(ctx, timestamp)
}
