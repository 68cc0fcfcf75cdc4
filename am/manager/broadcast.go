package manager

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/open-vela/amd/am/stack"
	"github.com/open-vela/amd/am/structs"
)

// receiverEntry is one registerReceiver registration: a client-chosen
// token addressing a component inside a specific pid (spec.md §4.7).
type receiverEntry struct {
	Token structs.Token
	Pid   int
}

// RegisterReceiver implements the inbound registerReceiver method
// (spec.md §4.7, §6).
func (m *Manager) RegisterReceiver(action string, receiver structs.Token, pid int) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.receivers[action] = append(m.receivers[action], receiverEntry{Token: receiver, Pid: pid})
	return structs.StatusOK
}

// UnregisterReceiver implements the inbound unregisterReceiver method:
// removes receiver from every action list and prunes emptied entries
// (spec.md §4.7).
func (m *Manager) UnregisterReceiver(receiver structs.Token) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for action, list := range m.receivers {
		kept := list[:0]
		for _, e := range list {
			if e.Token != receiver {
				kept = append(kept, e)
			}
		}
		if len(kept) == 0 {
			delete(m.receivers, action)
		} else {
			m.receivers[action] = kept
		}
	}
}

// SendBroadcast implements the inbound sendBroadcast method: every
// registered receiver for intent.Action is invoked synchronously
// (spec.md §4.7, §5: "delivered in registration order for a given
// action").
func (m *Manager) SendBroadcast(i *structs.Intent) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return structs.StatusFor(m.sendBroadcast(i))
}

func (m *Manager) sendBroadcast(i *structs.Intent) error {
	var errs *multierror.Error
	for _, e := range m.receivers[i.Action] {
		endpoint, ok := m.dispatcher.EndpointForPid(e.Pid)
		if !ok {
			// The receiver's process has already died; UnregisterReceiver
			// will prune it once observed, nothing to deliver to now.
			continue
		}
		if err := m.dispatcher.ScheduleReceiveIntent(endpoint, e.Token, i); err != nil {
			errs = multierror.Append(errs, err)
		}
	}
	return errs.ErrorOrNil()
}

// PostIntent implements the inbound postIntent method (spec.md §4.7):
// resolves Target to a single live component and delivers intent via
// scheduleReceiveIntent.
func (m *Manager) PostIntent(i *structs.Intent) structs.StatusCode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return structs.StatusFor(m.postIntent(i))
}

func (m *Manager) postIntent(i *structs.Intent) error {
	switch i.Target {
	case structs.TargetTopResume, structs.TargetApplicationForeground:
		return m.deliverToTaskTop(m.standard.GetActiveTask(), i)
	case structs.TargetApplicationHome:
		return m.deliverToTaskTop(m.standard.HomeTask(), i)
	}

	pkg, class := i.TargetPackage()
	if pkg == "" {
		return fmt.Errorf("am: postIntent with empty target: %w", structs.ErrBadValue)
	}
	app, ok := m.appByPackage(pkg)
	if !ok {
		return fmt.Errorf("am: %s not running: %w", pkg, structs.ErrDeadObject)
	}
	if class == "" {
		return m.dispatcher.ScheduleReceiveIntent(app.Endpoint, structs.Token(app.Endpoint), i)
	}

	uniqueName := pkg + "/" + class
	for _, tok := range app.Activities {
		if act := m.activityByToken(tok); act != nil && act.UniqueName == uniqueName {
			return m.dispatcher.ScheduleReceiveIntent(app.Endpoint, act.Token, i)
		}
	}
	for _, tok := range app.Services {
		if svc := m.serviceByToken(tok); svc != nil && svc.Name == uniqueName {
			return m.dispatcher.ScheduleReceiveIntent(app.Endpoint, svc.Token, i)
		}
	}
	return fmt.Errorf("am: %s has no live component %s: %w", pkg, class, structs.ErrDeadObject)
}

func (m *Manager) deliverToTaskTop(task *stack.ActivityStack, i *structs.Intent) error {
	if task == nil {
		return fmt.Errorf("am: no task to deliver to: %w", structs.ErrBadValue)
	}
	act := task.Top()
	if act == nil {
		return fmt.Errorf("am: task has no top activity: %w", structs.ErrBadValue)
	}
	endpoint, ok := m.dispatcher.EndpointForPid(act.Pid)
	if !ok {
		return fmt.Errorf("am: no endpoint for pid %d: %w", act.Pid, structs.ErrDeadObject)
	}
	return m.dispatcher.ScheduleReceiveIntent(endpoint, act.Token, i)
}
