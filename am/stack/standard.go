package stack

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/open-vela/amd/am/structs"
	"github.com/open-vela/amd/am/taskboard"
)

// RequestTimeoutMs mirrors lifecycle.RequestTimeoutMs for WAIT_RESUME
// commits issued directly by the task manager (spec.md §5).
const RequestTimeoutMs = 50 * time.Second

// ForegroundNotifier lets the standard manager tell the priority list
// when a task's foreground status changes, without am/stack importing
// am/priority directly.
type ForegroundNotifier interface {
	OnTaskForeground(pid int, foreground bool)
}

// StandardManager is the home-task-pivoted back-stack manager (spec.md
// §4.3): `[active] ... [foreground tasks] ... [home] ... [background
// tasks]`.
type StandardManager struct {
	allTasks []*ActivityStack
	homeTask *ActivityStack
	active   *ActivityStack

	driver   ActivityDriver
	board    *taskboard.Board
	notifier ForegroundNotifier
	logger   hclog.Logger

	// overlayNotify is invoked whenever a new activity is about to take
	// the foreground, so the SystemUI manager can tear itself down
	// (spec.md §4.3).
	overlayNotify func(Event)
}

// NewStandardManager creates a manager with no home task yet; call
// InitHomeTask before routing any request to it.
func NewStandardManager(driver ActivityDriver, board *taskboard.Board, notifier ForegroundNotifier, overlayNotify func(Event), logger hclog.Logger) *StandardManager {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &StandardManager{driver: driver, board: board, notifier: notifier, overlayNotify: overlayNotify, logger: logger.Named("stack.standard")}
}

// InitHomeTask seeds the home task: creates+resumes its root activity
// and marks it foreground (spec.md §4.3).
func (m *StandardManager) InitHomeTask(task *ActivityStack, root *structs.ActivityRecord) {
	task.Push(root)
	m.homeTask = task
	m.allTasks = append(m.allTasks, task)
	m.active = task
	root.Foreground = true
	m.notifyForeground(root, true)
	m.driver.Transition(root, structs.ActivityResumed, nil)
}

func (m *StandardManager) notifyForeground(act *structs.ActivityRecord, foreground bool) {
	if m.notifier != nil {
		m.notifier.OnTaskForeground(act.Pid, foreground)
	}
}

// GetActiveTask returns the currently active (frontmost) task.
func (m *StandardManager) GetActiveTask() *ActivityStack { return m.active }

// HomeTask returns the home task seeded by InitHomeTask, or nil if
// InitHomeTask hasn't run yet.
func (m *StandardManager) HomeTask() *ActivityStack { return m.homeTask }

// Tasks returns every task currently tracked, front to back. Used by
// am/manager's dump(fd) (spec.md §6).
func (m *StandardManager) Tasks() []*ActivityStack {
	out := make([]*ActivityStack, len(m.allTasks))
	copy(out, m.allTasks)
	return out
}

// FindTask returns the task tagged taskTag, or nil.
func (m *StandardManager) FindTask(taskTag string) *ActivityStack {
	for _, t := range m.allTasks {
		if t.TaskTag == taskTag {
			return t
		}
	}
	return nil
}

func (m *StandardManager) removeTask(task *ActivityStack) {
	for i, t := range m.allTasks {
		if t == task {
			m.allTasks = append(m.allTasks[:i], m.allTasks[i+1:]...)
			return
		}
	}
}

func (m *StandardManager) pushTaskToFront(task *ActivityStack) {
	m.removeTask(task)
	m.allTasks = append([]*ActivityStack{task}, m.allTasks...)
	m.active = task
}

// commitWaitResume registers a WAIT_RESUME pending task (spec.md §4.3,
// §5: "WAIT_RESUME holds the old-top's destroy ... until the new top is
// RESUMED") that runs fn once act reaches RESUMED (or times out, in
// which case fn still runs so the stack never wedges on a lost report).
//
// The event this waits for is fired by the lifecycle driver's
// OnSettled hook (wired in am/manager), not by this package directly:
// ActivityWaitResume/act.Token/ActivityResumed is the contract between
// the two.
func (m *StandardManager) commitWaitResume(act *structs.ActivityRecord, fn func()) {
	m.board.Commit(&waitResumeTask{
		label: taskboard.Label{Kind: taskboard.ActivityWaitResume}.
			WithToken(act.Token).WithState(int(structs.ActivityResumed)),
		fn:     fn,
		logger: m.logger,
		unique: act.UniqueName,
	}, RequestTimeoutMs)
}

// SwitchTaskToActive brings task to the front (spec.md §4.3).
func (m *StandardManager) SwitchTaskToActive(task *ActivityStack, intent *structs.Intent) {
	if task == m.active {
		return
	}
	if m.overlayNotify != nil {
		m.overlayNotify(Event{Kind: StartActivityEvent})
	}
	if oldTop := m.active.Top(); oldTop != nil {
		m.driver.Transition(oldTop, structs.ActivityPaused, nil)
	}
	newTop := task.Top()
	if newTop == nil {
		m.pushTaskToFront(task)
		m.updateForegroundFlags()
		return
	}
	m.commitWaitResume(newTop, func() {
		m.pushTaskToFront(task)
		m.updateForegroundFlags()
	})
	m.driver.Transition(newTop, structs.ActivityResumed, intent)
}

// updateForegroundFlags recomputes Foreground per spec.md §4.3: the new
// front (if not home) is foreground; every other task (except home,
// which is always the pivot) is backgrounded.
func (m *StandardManager) updateForegroundFlags() {
	for _, t := range m.allTasks {
		if t == m.homeTask {
			continue
		}
		fg := t == m.active
		t.Iterate(func(a *structs.ActivityRecord) bool {
			if a.Foreground != fg {
				a.Foreground = fg
				m.notifyForeground(a, fg)
			}
			return true
		})
	}
}

// PushNewActivity pauses the current top, optionally drains task (if
// CLEAR_TASK), pushes newAct, and drives it toward RESUMED (spec.md
// §4.3).
func (m *StandardManager) PushNewActivity(task *ActivityStack, newAct *structs.ActivityRecord, flags structs.Flag) {
	if m.overlayNotify != nil {
		m.overlayNotify(Event{Kind: StartActivityEvent})
	}
	if oldTop := m.active.Top(); oldTop != nil && oldTop != newAct {
		m.driver.Transition(oldTop, structs.ActivityPaused, nil)
	}
	if flags.Has(structs.FlagClearTask) {
		m.drainTask(task)
	}
	task.Push(newAct)
	m.commitWaitResume(newAct, func() {
		m.pushTaskToFront(task)
		m.updateForegroundFlags()
	})
	m.driver.Transition(newAct, structs.ActivityResumed, nil)
}

// drainTask destroys every activity in task, top to bottom.
func (m *StandardManager) drainTask(task *ActivityStack) {
	for {
		top := task.PopTop()
		if top == nil {
			return
		}
		m.driver.Transition(top, structs.ActivityDestroyed, nil)
	}
}

// TurnToActivity re-delivers intent to act if it is already top;
// otherwise destroy-pops above it (CLEAR_TOP) and resumes it with the
// new intent (spec.md §4.3).
func (m *StandardManager) TurnToActivity(task *ActivityStack, act *structs.ActivityRecord, intent *structs.Intent, flags structs.Flag) {
	if m.overlayNotify != nil {
		m.overlayNotify(Event{Kind: StartActivityEvent})
	}
	if task.Top() == act {
		// act is already RESUMED, so a plain Transition to RESUMED is a
		// same-state no-op per the activity transition table — it would
		// settle immediately without ever calling the client, silently
		// dropping the re-delivered intent. Force a real step by parking
		// act in PAUSED first; NextActivityStep(PAUSED, RESUMED) then
		// drives a genuine RESUMING hop that actually issues
		// ScheduleResumeActivity with intent (spec.md §4.4's SINGLE_TOP
		// re-delivery case).
		act.Status = structs.ActivityPaused
		m.commitWaitResume(act, func() {
			m.pushTaskToFront(task)
			m.updateForegroundFlags()
		})
		m.driver.Transition(act, structs.ActivityResumed, intent)
		return
	}
	if flags.Has(structs.FlagClearTop) {
		for _, above := range task.Above(act) {
			task.RemoveByRef(above)
			m.driver.Transition(above, structs.ActivityDestroyed, nil)
		}
	}
	m.commitWaitResume(act, func() {
		m.pushTaskToFront(task)
		m.updateForegroundFlags()
	})
	m.driver.Transition(act, structs.ActivityResumed, intent)
}

// FinishActivity destroys everything above act, destroys act itself,
// and repairs the active task's top (spec.md §4.3).
func (m *StandardManager) FinishActivity(act *structs.ActivityRecord) {
	task := m.taskOf(act)
	if task == nil {
		return
	}
	for _, above := range task.Above(act) {
		task.RemoveByRef(above)
		m.driver.Transition(above, structs.ActivityDestroyed, nil)
	}
	task.RemoveByRef(act)
	m.driver.Transition(act, structs.ActivityDestroyed, nil)

	if task == m.active {
		m.resumeActiveTop(task)
	}
}

// resumeActiveTop resumes task's new top if any remain; otherwise pops
// task off allTasks and resumes the next front's top (spec.md §4.3).
func (m *StandardManager) resumeActiveTop(task *ActivityStack) {
	if top := task.Top(); top != nil {
		m.driver.Transition(top, structs.ActivityResumed, nil)
		return
	}
	if task == m.homeTask {
		return
	}
	m.removeTask(task)
	for _, t := range m.allTasks {
		m.active = t
		if top := t.Top(); top != nil {
			m.driver.Transition(top, structs.ActivityResumed, nil)
		}
		break
	}
	m.updateForegroundFlags()
}

func (m *StandardManager) taskOf(act *structs.ActivityRecord) *ActivityStack {
	for _, t := range m.allTasks {
		if t.FindByToken(act.Token) != nil {
			return t
		}
	}
	return nil
}

// MoveTaskToBackground moves task behind home (or the next
// non-home foreground task) and resumes the new front's top (spec.md
// §4.3).
func (m *StandardManager) MoveTaskToBackground(task *ActivityStack) {
	if task != m.active {
		return
	}
	next := m.homeTask
	for _, t := range m.allTasks {
		if t != task && t != m.homeTask {
			next = t
			break
		}
	}
	m.pushTaskToFront(next)
	if top := next.Top(); top != nil {
		m.driver.Transition(top, structs.ActivityResumed, nil)
	}
	m.updateForegroundFlags()
}

// DeleteActivity cascades a destroy from act's position after an
// abnormal process exit (spec.md §4.3, §4.5): no client round-trip, no
// WAIT_RESUME, just AbnormalExit all the way up.
func (m *StandardManager) DeleteActivity(act *structs.ActivityRecord) {
	task := m.taskOf(act)
	if task == nil {
		m.driver.AbnormalExit(act)
		return
	}
	for _, above := range task.Above(act) {
		task.RemoveByRef(above)
		m.driver.AbnormalExit(above)
	}
	task.RemoveByRef(act)
	m.driver.AbnormalExit(act)

	if task == m.active {
		if top := task.Top(); top != nil {
			m.driver.Transition(top, structs.ActivityResumed, nil)
		} else if task != m.homeTask {
			m.removeTask(task)
			if len(m.allTasks) > 0 {
				m.active = m.allTasks[0]
				if top := m.active.Top(); top != nil {
					m.driver.Transition(top, structs.ActivityResumed, nil)
				}
			}
			m.updateForegroundFlags()
		}
	}
	if task.Size() == 0 && task != m.homeTask {
		m.removeTask(task)
	}
}

// OnEvent is a no-op for the Standard manager: it is the source of
// StartActivityEvent, not a subscriber.
func (m *StandardManager) OnEvent(ev Event) {}

// waitResumeTask implements taskboard.Task for a single WAIT_RESUME
// commit (spec.md §4.3).
type waitResumeTask struct {
	label  taskboard.Label
	fn     func()
	logger hclog.Logger
	unique string
}

func (t *waitResumeTask) Label() taskboard.Label { return t.label }
func (t *waitResumeTask) SingleShot() bool       { return true }
func (t *waitResumeTask) Execute(event taskboard.Label) {
	t.fn()
}
func (t *waitResumeTask) Timeout() {
	t.logger.Warn("wait-resume timed out, proceeding anyway", "activity", t.unique)
	t.fn()
}
