package stack

import "github.com/open-vela/amd/am/structs"

// Event is a broadcast-style notification forwarded between the two
// task managers (spec.md §4.3: "A StartActivityEvent dispatched from
// the Standard manager stops all SystemUI activities").
type Event struct {
	Kind EventKind
}

// EventKind discriminates stack-level events forwarded via onEvent.
type EventKind int

const (
	// StartActivityEvent fires whenever the Standard manager is about to
	// bring a new activity to the foreground; SystemUIManager responds by
	// tearing down every overlay, since overlays sit above the foreground
	// app and must not survive a foreground change underneath them.
	StartActivityEvent EventKind = iota
)

// ActivityDriver is the subset of lifecycle.ActivityDriver a task
// manager needs to actually move an activity through its lifecycle.
// Kept as an interface here so am/stack never imports am/lifecycle.
type ActivityDriver interface {
	Transition(act *structs.ActivityRecord, target structs.ActivityStatus, intent *structs.Intent)
	AbnormalExit(act *structs.ActivityRecord)
}

// ITaskManager is the common operation contract both the Standard
// back-stack manager and the SystemUI overlay manager implement
// (spec.md §4.3). The system picks an implementation per request by
// the target package's isSystemUI flag.
type ITaskManager interface {
	SwitchTaskToActive(task *ActivityStack, intent *structs.Intent)
	PushNewActivity(task *ActivityStack, newAct *structs.ActivityRecord, flags structs.Flag)
	TurnToActivity(task *ActivityStack, act *structs.ActivityRecord, intent *structs.Intent, flags structs.Flag)
	FinishActivity(act *structs.ActivityRecord)
	MoveTaskToBackground(task *ActivityStack)
	DeleteActivity(act *structs.ActivityRecord)
	GetActiveTask() *ActivityStack
	FindTask(taskTag string) *ActivityStack
	OnEvent(ev Event)
}
