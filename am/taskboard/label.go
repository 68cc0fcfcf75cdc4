package taskboard

import "github.com/open-vela/amd/am/structs"

// Kind is the primary integer discriminant of a pending-task label
// (spec.md §4.1).
type Kind int

const (
	AppAttach Kind = iota
	ActivityStatusReport
	ActivityWaitResume
	ServiceStatusReport
	ActivityDelayDestroy
)

func (k Kind) String() string {
	switch k {
	case AppAttach:
		return "APP_ATTACH"
	case ActivityStatusReport:
		return "ACTIVITY_STATUS_REPORT"
	case ActivityWaitResume:
		return "ACTIVITY_WAIT_RESUME"
	case ServiceStatusReport:
		return "SERVICE_STATUS_REPORT"
	case ActivityDelayDestroy:
		return "ACTIVITY_DELAY_DESTROY"
	default:
		return "UNKNOWN"
	}
}

// Label identifies what a pending Task is waiting for. Payload fields
// are optional: a zero value means "don't care", so a task can match on
// kind alone, or narrow to a specific token/pid/state.
type Label struct {
	Kind  Kind
	Token structs.Token
	Pid   int
	State int // desired ActivityStatus/ServiceStatus, interpreted by the caller

	// Multi marks a fired Event as MULTI_TRIGGER (spec.md §4.1): Board.Trigger
	// keeps scanning past a single-shot match instead of stopping at the
	// first one. It has no effect when set on a task's registration label.
	Multi bool

	hasToken bool
	hasPid   bool
	hasState bool
}

// WithToken narrows the label to a specific token.
func (l Label) WithToken(t structs.Token) Label {
	l.Token, l.hasToken = t, true
	return l
}

// WithPid narrows the label to a specific pid.
func (l Label) WithPid(pid int) Label {
	l.Pid, l.hasPid = pid, true
	return l
}

// WithState narrows the label to a specific desired state.
func (l Label) WithState(state int) Label {
	l.State, l.hasState = state, true
	return l
}

// Matches implements spec.md §4.1's label equality: "kind equals and all
// payload fields present in the task equal those in the event". l is
// the task's label (the potentially-narrowed side); event is the fired
// Label, which should always carry concrete payload values.
func (l Label) Matches(event Label) bool {
	if l.Kind != event.Kind {
		return false
	}
	if l.hasToken && l.Token != event.Token {
		return false
	}
	if l.hasPid && l.Pid != event.Pid {
		return false
	}
	if l.hasState && l.State != event.State {
		return false
	}
	return true
}
