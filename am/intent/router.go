package intent

import (
	"fmt"

	"github.com/open-vela/amd/am/structs"
)

// Sink identifies a built-in system-prefix target (spec.md §4.4): "if
// the resolved target begins with @target., the router dispatches to a
// built-in sink".
type Sink int

const (
	SinkNone Sink = iota
	SinkTopResume
	SinkApplicationForeground
	SinkApplicationHome
)

// PackageManager is the subset of the package manager client the
// router needs: static metadata lookup by package name.
type PackageManager interface {
	Lookup(packageName string) (structs.PackageInfo, bool)
}

// LiveTaskChecker reports whether a package currently has a live task
// in the standard manager, used by rule 1 of spec.md §4.4 ("if
// componentName is empty and the package has a live task, treat as a
// switch-to-task").
type LiveTaskChecker interface {
	HasLiveTask(packageName string) bool
}

// Resolution is the router's output: either a concrete component to
// launch, a switch-to-an-existing-task instruction, or a built-in sink.
type Resolution struct {
	Sink Sink // non-zero if this resolved to a built-in system target

	PackageName  string
	ClassName    string // empty when SwitchToTask is true
	SwitchToTask bool   // the package already has a live task; bring it forward instead of launching
}

// Router resolves an Intent into a Resolution (spec.md §4.4).
type Router struct {
	pm      PackageManager
	actions *ActionTable
	tasks   LiveTaskChecker
}

// NewRouter creates a Router.
func NewRouter(pm PackageManager, actions *ActionTable, tasks LiveTaskChecker) *Router {
	return &Router{pm: pm, actions: actions, tasks: tasks}
}

// Resolve implements the three-step resolution of spec.md §4.4 for a
// single-target request (ACTIVITY component type is the normal case
// for startActivity; SERVICE for startService/bindService).
func (r *Router) Resolve(i *structs.Intent, componentType structs.ComponentType) (Resolution, error) {
	if sink, ok := systemSink(i.Target); ok {
		return Resolution{Sink: sink}, nil
	}

	if i.Target != "" {
		return r.resolveTarget(i.Target, componentType)
	}

	if i.Action == "" {
		return Resolution{}, fmt.Errorf("am: intent has neither target nor action")
	}
	entry, ok := r.actions.ResolveOne(i.Action, componentType)
	if !ok {
		return Resolution{}, fmt.Errorf("am: no component registered for action %q", i.Action)
	}
	return Resolution{PackageName: entry.PackageName, ClassName: entry.ClassName}, nil
}

// ResolveAll is the multi-target resolver used for action-addressed
// broadcasts, returning every matching component (spec.md §4.4, §4.7).
func (r *Router) ResolveAll(i *structs.Intent, componentType structs.ComponentType) ([]Resolution, error) {
	if i.Target != "" {
		res, err := r.resolveTarget(i.Target, componentType)
		if err != nil {
			return nil, err
		}
		return []Resolution{res}, nil
	}
	if i.Action == "" {
		return nil, fmt.Errorf("am: intent has neither target nor action")
	}
	entries := r.actions.ResolveAll(i.Action, componentType)
	out := make([]Resolution, 0, len(entries))
	for _, e := range entries {
		out = append(out, Resolution{PackageName: e.PackageName, ClassName: e.ClassName})
	}
	return out, nil
}

func (r *Router) resolveTarget(target string, componentType structs.ComponentType) (Resolution, error) {
	pkg, class := splitTarget(target)
	info, ok := r.pm.Lookup(pkg)
	if !ok {
		return Resolution{}, fmt.Errorf("am: unknown package %q", pkg)
	}

	if class == "" {
		if r.tasks != nil && r.tasks.HasLiveTask(pkg) && componentType == structs.ComponentActivity {
			return Resolution{PackageName: pkg, SwitchToTask: true}, nil
		}
		if info.EntryClass == "" {
			return Resolution{}, fmt.Errorf("am: package %q declares no entry activity", pkg)
		}
		return Resolution{PackageName: pkg, ClassName: info.EntryClass}, nil
	}

	switch componentType {
	case structs.ComponentActivity:
		if _, ok := info.FindActivity(class); !ok {
			return Resolution{}, fmt.Errorf("am: %s has no activity %q", pkg, class)
		}
	case structs.ComponentService:
		if _, ok := info.FindService(class); !ok {
			return Resolution{}, fmt.Errorf("am: %s has no service %q", pkg, class)
		}
	}
	return Resolution{PackageName: pkg, ClassName: class}, nil
}

func splitTarget(target string) (pkg, class string) {
	for i := len(target) - 1; i >= 0; i-- {
		if target[i] == '/' {
			return target[:i], target[i+1:]
		}
	}
	return target, ""
}

func systemSink(target string) (Sink, bool) {
	switch target {
	case structs.TargetTopResume:
		return SinkTopResume, true
	case structs.TargetApplicationForeground:
		return SinkApplicationForeground, true
	case structs.TargetApplicationHome:
		return SinkApplicationHome, true
	default:
		return SinkNone, false
	}
}
