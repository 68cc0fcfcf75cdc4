package stack

// Factory picks the ITaskManager implementation for a request by the
// target package's isSystemUI flag (spec.md §4.3).
type Factory struct {
	Standard ITaskManager
	SystemUI ITaskManager
}

// For returns the manager that owns requests for a package flagged
// isSystemUI or not.
func (f Factory) For(isSystemUI bool) ITaskManager {
	if isSystemUI {
		return f.SystemUI
	}
	return f.Standard
}
