package structs

// ActivityStatus is the activity lifecycle state (spec.md §4.2). The
// *-ING values are transient states the lifecycle driver parks an
// activity in while it waits for the matching client status report;
// they are never a lifecycleTransition target, only a current state.
type ActivityStatus int

const (
	ActivityCreating ActivityStatus = iota
	ActivityCreated
	ActivityStarting
	ActivityStarted
	ActivityResuming
	ActivityResumed
	ActivityPausing
	ActivityPaused
	ActivityStopping
	ActivityStopped
	ActivityDestroying
	ActivityDestroyed
)

var activityStatusNames = map[ActivityStatus]string{
	ActivityCreating:   "CREATING",
	ActivityCreated:    "CREATED",
	ActivityStarting:   "STARTING",
	ActivityStarted:    "STARTED",
	ActivityResuming:   "RESUMING",
	ActivityResumed:    "RESUMED",
	ActivityPausing:    "PAUSING",
	ActivityPaused:     "PAUSED",
	ActivityStopping:   "STOPPING",
	ActivityStopped:    "STOPPED",
	ActivityDestroying: "DESTROYING",
	ActivityDestroyed:  "DESTROYED",
}

func (s ActivityStatus) String() string {
	if n, ok := activityStatusNames[s]; ok {
		return n
	}
	return "UNKNOWN"
}

// WireStatus is the activity status as it travels across the transport
// (spec.md §6): only stable states are ever reported by a client, the
// *-ING values are server-internal.
type WireStatus int32

const (
	WireInit      WireStatus = 0
	WireCreated   WireStatus = 2
	WireStarted   WireStatus = 4
	WireResumed   WireStatus = 6
	WirePaused    WireStatus = 8
	WireStopped   WireStatus = 10
	WireDestroyed WireStatus = 12
)

// FromWire converts a client-reported stable wire status into the
// matching server-internal ActivityStatus.
func (w WireStatus) FromWire() ActivityStatus {
	switch w {
	case WireCreated:
		return ActivityCreated
	case WireStarted:
		return ActivityStarted
	case WireResumed:
		return ActivityResumed
	case WirePaused:
		return ActivityPaused
	case WireStopped:
		return ActivityStopped
	case WireDestroyed:
		return ActivityDestroyed
	default:
		return ActivityCreating
	}
}

// LaunchMode is the activity's declared reconciliation policy for
// repeated invocations (spec.md §4.4).
type LaunchMode int

const (
	LaunchStandard LaunchMode = iota
	LaunchSingleTop
	LaunchSingleTask
	LaunchSingleInstance
)

func (m LaunchMode) String() string {
	switch m {
	case LaunchStandard:
		return "STANDARD"
	case LaunchSingleTop:
		return "SINGLE_TOP"
	case LaunchSingleTask:
		return "SINGLE_TASK"
	case LaunchSingleInstance:
		return "SINGLE_INSTANCE"
	default:
		return "UNKNOWN"
	}
}

// ActivityRecord is a single launched instance of a declared activity.
type ActivityRecord struct {
	UniqueName  string // "pkg/cls"
	Token       Token
	CallerToken Token
	RequestCode int32
	LaunchMode  LaunchMode
	Status      ActivityStatus
	Intent      *Intent

	Pid         int    // owning AppRecord's pid, denormalized for fast lookup
	PackageName string // owning package, used for task affinity defaults
	TaskTag     string // affinity tag of the ActivityStack holding this record

	// Foreground is true while this activity's stack is the manager's
	// active task; used by the priority list to decide head-of-list
	// placement.
	Foreground bool
}

// ClassName returns the "cls" half of the unique name.
func (a *ActivityRecord) ClassName() string {
	for i := len(a.UniqueName) - 1; i >= 0; i-- {
		if a.UniqueName[i] == '/' {
			return a.UniqueName[i+1:]
		}
	}
	return a.UniqueName
}

// IsAlive reports whether the record still occupies a primary-index
// slot; DESTROYED records are kept only transiently while pending-task
// waiters drain.
func (a *ActivityRecord) IsAlive() bool {
	return a.Status != ActivityDestroyed
}
