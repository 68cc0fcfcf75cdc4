package stack

import (
	"github.com/hashicorp/go-hclog"
	"github.com/open-vela/amd/am/structs"
)

// SystemUIManager is the flat overlay task manager (spec.md §4.3):
// overlay activities do not pause each other on push, every activity
// in a SystemUI task resumes and stops together, and the whole set is
// torn down whenever the Standard manager starts a new foreground
// activity underneath it.
type SystemUIManager struct {
	tasks  []*ActivityStack
	driver ActivityDriver
	logger hclog.Logger
}

// NewSystemUIManager creates an empty overlay manager.
func NewSystemUIManager(driver ActivityDriver, logger hclog.Logger) *SystemUIManager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &SystemUIManager{driver: driver, logger: logger.Named("stack.systemui")}
}

// GetActiveTask returns the overlay task whose root is RESUMED, or nil.
func (m *SystemUIManager) GetActiveTask() *ActivityStack {
	for _, t := range m.tasks {
		if root := t.Root(); root != nil && root.Status == structs.ActivityResumed {
			return t
		}
	}
	return nil
}

// FindTask returns the overlay task tagged taskTag, or nil.
func (m *SystemUIManager) FindTask(taskTag string) *ActivityStack {
	for _, t := range m.tasks {
		if t.TaskTag == taskTag {
			return t
		}
	}
	return nil
}

func (m *SystemUIManager) removeTask(task *ActivityStack) {
	for i, t := range m.tasks {
		if t == task {
			m.tasks = append(m.tasks[:i], m.tasks[i+1:]...)
			return
		}
	}
}

// SwitchTaskToActive resumes every activity of task without pausing
// any existing overlay (spec.md §4.3: overlays coexist).
func (m *SystemUIManager) SwitchTaskToActive(task *ActivityStack, intent *structs.Intent) {
	found := false
	for _, t := range m.tasks {
		if t == task {
			found = true
			break
		}
	}
	if !found {
		m.tasks = append(m.tasks, task)
	}
	task.Iterate(func(a *structs.ActivityRecord) bool {
		m.driver.Transition(a, structs.ActivityResumed, intent)
		return true
	})
}

// PushNewActivity adds newAct to task (creating it in the overlay set
// if new) and resumes the whole task together.
func (m *SystemUIManager) PushNewActivity(task *ActivityStack, newAct *structs.ActivityRecord, flags structs.Flag) {
	found := false
	for _, t := range m.tasks {
		if t == task {
			found = true
			break
		}
	}
	if !found {
		m.tasks = append(m.tasks, task)
	}
	task.Push(newAct)
	m.driver.Transition(newAct, structs.ActivityResumed, nil)
}

// TurnToActivity re-resumes act with the new intent; overlay
// activities never pause each other so there is no CLEAR_TOP/CLEAR_TASK
// distinction to make here.
func (m *SystemUIManager) TurnToActivity(task *ActivityStack, act *structs.ActivityRecord, intent *structs.Intent, flags structs.Flag) {
	m.driver.Transition(act, structs.ActivityResumed, intent)
}

// FinishActivity destroys act; if its task becomes empty, drops the task.
func (m *SystemUIManager) FinishActivity(act *structs.ActivityRecord) {
	for _, t := range m.tasks {
		if t.FindByToken(act.Token) != nil {
			t.RemoveByRef(act)
			m.driver.Transition(act, structs.ActivityDestroyed, nil)
			if t.Size() == 0 {
				m.removeTask(t)
			}
			return
		}
	}
}

// MoveTaskToBackground stops every activity in task together (spec.md
// §4.3: overlay tasks stop as a unit).
func (m *SystemUIManager) MoveTaskToBackground(task *ActivityStack) {
	task.Iterate(func(a *structs.ActivityRecord) bool {
		m.driver.Transition(a, structs.ActivityStopped, nil)
		return true
	})
}

// DeleteActivity tears down act's whole overlay task after an
// abnormal exit, since overlay activities live and die together.
func (m *SystemUIManager) DeleteActivity(act *structs.ActivityRecord) {
	for _, t := range m.tasks {
		if t.FindByToken(act.Token) == nil {
			continue
		}
		t.Iterate(func(a *structs.ActivityRecord) bool {
			m.driver.AbnormalExit(a)
			return true
		})
		m.removeTask(t)
		return
	}
	m.driver.AbnormalExit(act)
}

// Tasks returns every overlay task currently tracked. Used by
// am/manager's dump(fd) (spec.md §6).
func (m *SystemUIManager) Tasks() []*ActivityStack {
	out := make([]*ActivityStack, len(m.tasks))
	copy(out, m.tasks)
	return out
}

// OnEvent stops every overlay activity when the Standard manager
// starts a new foreground activity (spec.md §4.3).
func (m *SystemUIManager) OnEvent(ev Event) {
	if ev.Kind != StartActivityEvent {
		return
	}
	for _, t := range m.tasks {
		t.Iterate(func(a *structs.ActivityRecord) bool {
			m.driver.Transition(a, structs.ActivityStopped, nil)
			return true
		})
	}
}
