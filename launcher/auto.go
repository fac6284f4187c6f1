package launcher

import (
	"context"
	"log/slog"

	"github.com/c360studio/corevalid-adapter/task"
)

// AutoLauncher reacts to task-update events.
type AutoLauncher struct {
	filter  *TriggerFilter
	adapter *Adapter
	logger  *slog.Logger
	metrics *Metrics
}

// NewAutoLauncher creates an AutoLauncher.
func NewAutoLauncher(filter *TriggerFilter, adapter *Adapter, logger *slog.Logger, metrics *Metrics) *AutoLauncher {
	if logger == nil {
		logger = slog.Default()
	}
	return &AutoLauncher{
		filter:  filter,
		adapter: adapter,
		logger:  logger,
		metrics: metrics,
	}
}

// HandleUpdate launches snap if it is READY and brings a new trigger file.
// Failures and panics are logged, never propagated, so the update stream
// keeps flowing. It reports whether a launch was dispatched.
func (a *AutoLauncher) HandleUpdate(ctx context.Context, snap *task.Snapshot) (launched bool) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("Panic while handling task update", "panic", r)
			launched = false
		}
	}()

	if snap == nil {
		a.logger.Warn("Ignoring empty task update")
		return false
	}
	if !snap.Status.IsReady() {
		a.logger.Debug("Ignoring task update, task not ready",
			"task_id", snap.ID,
			"status", snap.Status)
		return false
	}
	if !a.filter.ShouldLaunch(snap) {
		a.logger.Debug("Ignoring task update, all trigger files already used",
			"task_id", snap.ID,
			"timestamp", snap.TimestampString())
		a.metrics.suppressedAuto()
		return false
	}

	if err := a.adapter.HandleAuto(ctx, snap); err != nil {
		a.logger.Error("Automatic launch failed",
			"task_id", snap.ID,
			"timestamp", snap.TimestampString(),
			"error", err)
		return false
	}
	return true
}
