package lifecycle

import (
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/open-vela/amd/am/structs"
	"github.com/open-vela/amd/am/taskboard"
)

// RequestTimeoutMs is the default pending-task deadline (spec.md §5).
const RequestTimeoutMs = 50 * time.Second

// ActivityClient is the subset of outbound client methods (spec.md §6)
// the activity driver needs to issue a single transition step.
type ActivityClient interface {
	ScheduleLaunchActivity(endpoint structs.EndpointToken, act *structs.ActivityRecord) error
	ScheduleStartActivity(endpoint structs.EndpointToken, token structs.Token) error
	ScheduleResumeActivity(endpoint structs.EndpointToken, token structs.Token, intent *structs.Intent) error
	SchedulePauseActivity(endpoint structs.EndpointToken, token structs.Token) error
	ScheduleStopActivity(endpoint structs.EndpointToken, token structs.Token) error
	ScheduleDestroyActivity(endpoint structs.EndpointToken, token structs.Token) error
}

// EndpointResolver looks up the transport endpoint owning an activity,
// by pid. The driver never talks to AppRecord directly to keep it
// decoupled from am/manager's indices.
type EndpointResolver interface {
	EndpointForPid(pid int) (structs.EndpointToken, bool)
}

// ActivityDriver drives one activity from its current status toward a
// requested target status, one step per event-loop turn, re-entering on
// each ACTIVITY_STATUS_REPORT until current == target (spec.md §4.2).
type ActivityDriver struct {
	board     *taskboard.Board
	client    ActivityClient
	endpoints EndpointResolver
	logger    hclog.Logger

	// OnSettled, if set, is invoked once current == target for an
	// activity (including the trivial zero-step case), letting the
	// stack/task-manager layer chain the next operation (e.g. a
	// WAIT_RESUME commit) without the driver knowing about tasks.
	OnSettled func(act *structs.ActivityRecord)
}

func NewActivityDriver(board *taskboard.Board, client ActivityClient, endpoints EndpointResolver, logger hclog.Logger) *ActivityDriver {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ActivityDriver{board: board, client: client, endpoints: endpoints, logger: logger.Named("lifecycle.activity")}
}

// Transition requests that act eventually reach target, issuing exactly
// one schedule call now and re-entering via the pending-task board as
// status reports arrive.
func (d *ActivityDriver) Transition(act *structs.ActivityRecord, target structs.ActivityStatus, intent *structs.Intent) {
	next, ok := NextActivityStep(act.Status, target)
	if !ok {
		if d.OnSettled != nil {
			d.OnSettled(act)
		}
		return
	}

	endpoint, found := d.endpoints.EndpointForPid(act.Pid)
	if !found {
		d.logger.Warn("no endpoint for pid, dropping transition", "pid", act.Pid, "activity", act.UniqueName)
		return
	}

	act.Status = next
	// The wait is committed before the schedule call, so a client that
	// reports back from inside the call still finds it on the board. If
	// the call fails, the wait is left on the board.
	d.board.Commit(&activityStepTask{
		driver: d,
		act:    act,
		target: target,
		label:  taskboard.Label{Kind: taskboard.ActivityStatusReport}.WithToken(act.Token),
	}, RequestTimeoutMs)

	if err := d.issue(endpoint, act, next, intent); err != nil {
		d.logger.Error("schedule call failed", "activity", act.UniqueName, "status", next, "error", err)
	}
}

func (d *ActivityDriver) issue(endpoint structs.EndpointToken, act *structs.ActivityRecord, next structs.ActivityStatus, intent *structs.Intent) error {
	switch next {
	case structs.ActivityCreating:
		return d.client.ScheduleLaunchActivity(endpoint, act)
	case structs.ActivityStarting:
		return d.client.ScheduleStartActivity(endpoint, act.Token)
	case structs.ActivityResuming:
		if intent == nil {
			intent = act.Intent
		}
		return d.client.ScheduleResumeActivity(endpoint, act.Token, intent)
	case structs.ActivityPausing:
		return d.client.SchedulePauseActivity(endpoint, act.Token)
	case structs.ActivityStopping:
		return d.client.ScheduleStopActivity(endpoint, act.Token)
	case structs.ActivityDestroying:
		return d.client.ScheduleDestroyActivity(endpoint, act.Token)
	}
	return nil
}

// ReportStatus is called by the transport's reportActivityStatus
// handler; it triggers any pending ACTIVITY_STATUS_REPORT task for the
// token (spec.md §6 inbound method table).
func (d *ActivityDriver) ReportStatus(token structs.Token, wire structs.WireStatus) {
	d.board.Trigger(taskboard.Label{
		Kind:  taskboard.ActivityStatusReport,
		Token: token,
		State: int(wire),
	})
}

// AbnormalExit transitions act straight to DESTROYED without contacting
// the client, and releases any waiter (spec.md §4.5, §7: "does not
// contact the client and fires the same pending-task labels to release
// any waiters").
func (d *ActivityDriver) AbnormalExit(act *structs.ActivityRecord) {
	act.Status = structs.ActivityDestroyed
	d.board.Trigger(taskboard.Label{
		Kind:  taskboard.ActivityStatusReport,
		Token: act.Token,
		State: int(structs.WireDestroyed),
	})
	if d.OnSettled != nil {
		d.OnSettled(act)
	}
}

// activityStepTask re-enters ActivityDriver.Transition whenever its
// activity's status report arrives, until it reaches target.
type activityStepTask struct {
	driver *ActivityDriver
	act    *structs.ActivityRecord
	target structs.ActivityStatus
	label  taskboard.Label
}

func (t *activityStepTask) Label() taskboard.Label { return t.label }
func (t *activityStepTask) SingleShot() bool        { return true }

func (t *activityStepTask) Execute(event taskboard.Label) {
	t.act.Status = structs.WireStatus(event.State).FromWire()
	t.driver.Transition(t.act, t.target, nil)
}

func (t *activityStepTask) Timeout() {
	t.driver.logger.Warn("activity transition timed out", "activity", t.act.UniqueName, "status", t.act.Status, "target", t.target)
	// Left in its transient state per spec.md §7: "a later status report
	// or process death will resynchronize."
}
