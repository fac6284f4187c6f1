package launcher

import "github.com/c360studio/corevalid-adapter/task"

// CurrentRunID returns the ID of the most recent run in history.
// Runs sharing the latest execution date resolve to the first one listed.
// The history slice is not reordered.
func CurrentRunID(history []task.ProcessRun) (string, error) {
	if len(history) == 0 {
		return "", ErrNoRunHistory
	}

	latest := 0
	for i := 1; i < len(history); i++ {
		if history[i].ExecutionDate.After(history[latest].ExecutionDate) {
			latest = i
		}
	}
	return history[latest].ID, nil
}
