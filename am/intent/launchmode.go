package intent

import "github.com/open-vela/amd/am/structs"

// CallerContext describes the activity (if any) that initiated a
// launch, needed by the caller-context rule (spec.md §4.4).
type CallerContext struct {
	// HasActivity is false when the caller has no activity context at
	// all (e.g. a service calling startActivity).
	HasActivity bool
	LaunchMode  structs.LaunchMode // the caller activity's own launch mode
	TaskTag     string             // the caller activity's owning task
}

// Finder locates an existing live instance of an activity across every
// task the owning ITaskManager tracks, and the current top of a given
// task — both needed to apply SINGLE_TOP/SINGLE_TASK/SINGLE_INSTANCE
// reuse rules (spec.md §4.4).
type Finder interface {
	FindByUniqueName(uniqueName string) (act *structs.ActivityRecord, taskTag string, found bool)
	TopOfTask(taskTag string) (*structs.ActivityRecord, bool)
}

// Plan is the launch-mode policy's decision for one startActivity
// request (spec.md §4.4): either reuse an existing instance (Reuse)
// via turnToActivity, or push a fresh one, in both cases carrying the
// flags pushNewActivity/turnToActivity needs.
type Plan struct {
	Mode  structs.LaunchMode
	Flags structs.Flag

	Reuse           bool
	Existing        *structs.ActivityRecord
	ExistingTaskTag string

	// TaskTag is the affinity a fresh push should land in: the caller's
	// task unless NEW_TASK forces a dedicated one.
	TaskTag string
}

// ResolvePlan applies spec.md §4.4's launch-mode policy, entry-activity
// rule, and caller-context rule, in that order, and returns the
// resulting Plan.
func ResolvePlan(uniqueName, packageName string, info structs.ActivityInfo, caller CallerContext, finder Finder) Plan {
	mode := info.LaunchMode
	taskAffinity := info.TaskAffinity
	if taskAffinity == "" {
		taskAffinity = packageName
	}
	var flags structs.Flag

	// Entry activity rule (spec.md §4.4): forced NEW_TASK with task
	// affinity == package name, downgraded to SINGLE_INSTANCE.
	if info.IsEntry {
		mode = structs.LaunchSingleInstance
		taskAffinity = packageName
		flags |= structs.FlagNewTask
	}

	// Caller context rule (spec.md §4.4): no caller activity context, or
	// either side is SINGLE_INSTANCE, forces NEW_TASK.
	if !caller.HasActivity || caller.LaunchMode == structs.LaunchSingleInstance || mode == structs.LaunchSingleInstance {
		flags |= structs.FlagNewTask
	}

	callerTaskTag := caller.TaskTag
	if flags.Has(structs.FlagNewTask) {
		callerTaskTag = taskAffinity
	}

	switch mode {
	case structs.LaunchSingleInstance:
		if act, taskTag, ok := finder.FindByUniqueName(uniqueName); ok {
			return Plan{Mode: mode, Flags: flags, Reuse: true, Existing: act, ExistingTaskTag: taskTag, TaskTag: taskAffinity}
		}
		return Plan{Mode: mode, Flags: flags, TaskTag: taskAffinity}

	case structs.LaunchSingleTask:
		if act, taskTag, ok := finder.FindByUniqueName(uniqueName); ok {
			return Plan{Mode: mode, Flags: flags | structs.FlagClearTop, Reuse: true, Existing: act, ExistingTaskTag: taskTag, TaskTag: taskTag}
		}
		return Plan{Mode: mode, Flags: flags, TaskTag: callerTaskTag}

	case structs.LaunchSingleTop:
		if caller.HasActivity {
			if top, ok := finder.TopOfTask(caller.TaskTag); ok && top.UniqueName == uniqueName {
				return Plan{Mode: mode, Flags: flags | structs.FlagSingleTop, Reuse: true, Existing: top, ExistingTaskTag: caller.TaskTag, TaskTag: caller.TaskTag}
			}
		}
		return Plan{Mode: mode, Flags: flags, TaskTag: callerTaskTag}

	default: // STANDARD: always fresh on top of the caller's task.
		return Plan{Mode: mode, Flags: flags, TaskTag: callerTaskTag}
	}
}
