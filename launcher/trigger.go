package launcher

import "github.com/c360studio/corevalid-adapter/task"

// TriggerFilter decides whether a task update concerns a trigger file that
// no previous run has consumed yet.
type TriggerFilter struct {
	types map[string]struct{}
}

// NewTriggerFilter creates a filter for the given file types. An empty list
// disables filtering.
func NewTriggerFilter(fileTypes []string) *TriggerFilter {
	types := make(map[string]struct{}, len(fileTypes))
	for _, ft := range fileTypes {
		if ft != "" {
			types[ft] = struct{}{}
		}
	}
	return &TriggerFilter{types: types}
}

// Enabled reports whether any trigger file type is configured.
func (f *TriggerFilter) Enabled() bool {
	return f != nil && len(f.types) > 0
}

// ShouldLaunch returns false when filtering is enabled and every current
// trigger file already appears in the task's run history.
func (f *TriggerFilter) ShouldLaunch(snap *task.Snapshot) bool {
	if !f.Enabled() {
		return true
	}
	return !f.allTriggerFilesUsed(snap)
}

// allTriggerFilesUsed reports whether every input of a trigger type was
// consumed by some previous run. Vacuously true when the task has no
// trigger inputs.
func (f *TriggerFilter) allTriggerFilesUsed(snap *task.Snapshot) bool {
	used := make(map[task.FileKey]struct{})
	for _, run := range snap.RunHistory {
		for _, in := range run.Inputs {
			used[in.Key()] = struct{}{}
		}
	}

	for _, in := range snap.Inputs {
		if _, trigger := f.types[in.FileType]; !trigger {
			continue
		}
		if _, ok := used[in.Key()]; !ok {
			return false
		}
	}
	return true
}
