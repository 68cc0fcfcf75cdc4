package manager

import (
	"github.com/hashicorp/go-multierror"
	"github.com/open-vela/amd/am/structs"
)

// Run starts the background exit-pump goroutine that turns spawner
// process-exit notifications into HandleAppExit calls (spec.md §4.8
// step 1: "register child-exit signal → procAppTerminated"). The
// goroutine exits when the caller closes stop or the spawner's exit
// channel is closed.
func (m *Manager) Run(stop <-chan struct{}) {
	go func() {
		exits := m.spawner.Exits()
		for {
			select {
			case ev, ok := <-exits:
				if !ok {
					return
				}
				m.HandleAppExit(ev.Pid)
			case <-stop:
				return
			}
		}
	}()
}

// SystemReady implements the boot sequence (spec.md §4.8). Step 1
// (registering the child-exit signal) is Run, called separately at
// agent startup so the exit pump is live before any process is
// spawned; SystemReady covers steps 2-5.
func (m *Manager) SystemReady(userSetupComplete bool) error {
	m.mu.Lock()
	mode := m.runMode
	m.mu.Unlock()
	if mode == RunModeSilence || mode == RunModeDebug {
		return nil
	}

	var errs *multierror.Error

	if err := m.deliverActionBroadcast(structs.ActionBootReady); err != nil {
		errs = multierror.Append(errs, err)
	}

	m.mu.Lock()
	_, hasBootGuide := m.actions.ResolveOne(structs.ActionBootGuide, structs.ComponentActivity)
	m.mu.Unlock()

	action := structs.ActionHome
	if !userSetupComplete && hasBootGuide {
		action = structs.ActionBootGuide
	}
	if err := m.startActivityByAction(action); err != nil {
		errs = multierror.Append(errs, err)
	}

	if err := m.deliverActionBroadcast(structs.ActionBootCompleted); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func (m *Manager) startActivityByAction(action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.startActivity("", &structs.Intent{Action: action}, 0)
}

// deliverActionBroadcast wakes every manifest-registered component for
// action (spec.md §4.8's "broadcast ACTION_BOOT_READY (for both
// component types)"): unlike sendBroadcast's dynamic receivers list,
// this resolves through the intent router's ActionTable so components
// that aren't running yet still get launched/started, the way a
// manifest-declared boot receiver would on a real device.
func (m *Manager) deliverActionBroadcast(action string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	i := &structs.Intent{Action: action}
	var errs *multierror.Error
	for _, ct := range []structs.ComponentType{structs.ComponentActivity, structs.ComponentService} {
		resolutions, err := m.router.ResolveAll(i, ct)
		if err != nil {
			continue // nothing registered for this action/type; not an error
		}
		for _, res := range resolutions {
			target := res.PackageName + "/" + res.ClassName
			switch ct {
			case structs.ComponentActivity:
				if err := m.startActivity("", &structs.Intent{Target: target, Action: action}, 0); err != nil {
					errs = multierror.Append(errs, err)
				}
			case structs.ComponentService:
				if err := m.startService(&structs.Intent{Target: target, Action: action}); err != nil {
					errs = multierror.Append(errs, err)
				}
			}
		}
	}
	return errs.ErrorOrNil()
}
