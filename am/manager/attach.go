package manager

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/open-vela/amd/am/structs"
	"github.com/open-vela/amd/am/taskboard"
	"github.com/open-vela/amd/am/transport"
)

// attachingEntry tracks one spawned-but-not-yet-attached package
// (spec.md §4.5). pendingLaunches accumulates a closure per queued
// request; all of them run once attachApplication resolves the pid.
type attachingEntry struct {
	pid             int
	packageName     string
	pendingLaunches []func(pid int)
}

// RequestAttach asks a not-yet-running package's process to be
// spawned, queuing launch to run once the client calls
// attachApplication (spec.md §4.5). A second RequestAttach for the
// same still-attaching package is queued alongside the first when the
// package declares isSupportMultiTask; otherwise it is rejected so the
// caller can retry shortly (the original's "wait a moment" behavior,
// spec.md §9 Open Question, resolved per SPEC_FULL.md's Supplemented
// features).
func (m *Manager) RequestAttach(pkg structs.PackageInfo, launch func(pid int)) error {
	if entry, ok := m.attaching[pkg.PackageName]; ok {
		if !pkg.SupportMulti {
			return fmt.Errorf("am: %s is still attaching, wait a moment: %w", pkg.PackageName, structs.ErrInvalidOperation)
		}
		entry.pendingLaunches = append(entry.pendingLaunches, launch)
		return nil
	}

	pid, err := m.spawner.Spawn(pkg.ExecFile, []string{pkg.PackageName})
	if err != nil {
		return fmt.Errorf("am: spawn %s: %w: %v", pkg.PackageName, structs.ErrInvalidOperation, err)
	}

	entry := &attachingEntry{pid: pid, packageName: pkg.PackageName, pendingLaunches: []func(pid int){launch}}
	m.attaching[pkg.PackageName] = entry
	m.attachingByPid[pid] = pkg.PackageName

	m.board.Commit(&appAttachTask{
		mgr:   m,
		entry: entry,
		label: taskboard.Label{Kind: taskboard.AppAttach}.WithPid(pid),
	}, requestTimeout)
	return nil
}

// AttachApplication implements the inbound attachApplication method
// (spec.md §4.5, §6). pid/uid are trusted from the transport layer, as
// the spec directs; this shim takes them as explicit parameters since
// there is no real socket-credential channel to read them from.
func (m *Manager) AttachApplication(pid, uid int, client transport.ClientThread) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	packageName, ok := m.attachingByPid[pid]
	if !ok {
		m.logger.Warn("attachApplication from unknown pid", "pid", pid)
		return int(structs.StatusBadValue)
	}
	entry := m.attaching[packageName]
	delete(m.attaching, packageName)
	delete(m.attachingByPid, pid)

	pkg, _ := m.pkgs.Lookup(packageName)
	endpoint := structs.EndpointToken(fmt.Sprintf("ep:%d", pid))
	app := &structs.AppRecord{Pid: pid, Uid: uid, PackageName: packageName, IsSystemUI: pkg.IsSystemUI, Endpoint: endpoint, Status: structs.AppRunning}
	if err := m.insertApp(app); err != nil {
		m.logger.Error("insert app failed", "error", err)
		return int(structs.StatusFailedTransaction)
	}
	m.dispatcher.Register(pid, endpoint, client)
	m.priorities.Add(pid, false, structs.PriorityMiddle)

	m.board.Trigger(taskboard.Label{Kind: taskboard.AppAttach, Pid: pid})
	return int(structs.StatusOK)
}

// appAttachTask re-enters once attachApplication resolves entry's pid,
// running every queued launch closure (spec.md §4.5).
type appAttachTask struct {
	mgr   *Manager
	entry *attachingEntry
	label taskboard.Label
}

func (t *appAttachTask) Label() taskboard.Label { return t.label }
func (t *appAttachTask) SingleShot() bool       { return true }

func (t *appAttachTask) Execute(event taskboard.Label) {
	for _, fn := range t.entry.pendingLaunches {
		fn(t.entry.pid)
	}
}

func (t *appAttachTask) Timeout() {
	t.mgr.logger.Warn("app attach timed out", "package", t.entry.packageName, "pid", t.entry.pid)
	delete(t.mgr.attaching, t.entry.packageName)
	delete(t.mgr.attachingByPid, t.entry.pid)
}

// HandleAppExit implements procAppTerminated (spec.md §4.5): the
// SIGCHLD-style reaction to a client process dying, whether cleanly or
// by crash.
func (m *Manager) HandleAppExit(pid int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.handleAppExit(pid)
}

func (m *Manager) handleAppExit(pid int) {
	app, ok := m.appByPid(pid)
	if !ok {
		return
	}
	app.Status = structs.AppStopped

	isSystemUI := app.IsSystemUI
	tm := m.stacks.For(isSystemUI)
	for _, tok := range append([]structs.Token(nil), app.Activities...) {
		if act := m.activityByToken(tok); act != nil {
			tm.DeleteActivity(act)
			m.deleteActivity(act)
		}
	}
	for _, tok := range append([]structs.Token(nil), app.Services...) {
		if svc := m.serviceByToken(tok); svc != nil {
			m.svcDriver.AbnormalExit(svc)
			m.deleteService(svc)
		}
	}

	m.dispatcher.Unregister(pid)
	m.priorities.Remove(pid)
	m.deleteApp(app)

	m.sendBroadcast(&structs.Intent{Action: structs.BroadcastAppExit, Data: app.PackageName})

	if m.standard.GetActiveTask() == nil && m.runMode == RunModeNormal {
		if err := m.startActivity("", &structs.Intent{Action: structs.ActionHome}, 0); err != nil {
			m.logger.Warn("relaunch home after app exit failed", "error", err)
		}
	}
}

// RequestStop implements priority.Executor: ask every activity/service
// of pid to stop gracefully, the LMK's first eviction step (spec.md
// §4.6).
func (m *Manager) RequestStop(pid int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	app, ok := m.appByPid(pid)
	if !ok {
		return fmt.Errorf("am: pid %d not found: %w", pid, structs.ErrDeadObject)
	}
	var errs *multierror.Error
	for _, tok := range app.Activities {
		if act := m.activityByToken(tok); act != nil && act.IsAlive() {
			m.actDriver.Transition(act, structs.ActivityStopped, nil)
		}
	}
	for _, tok := range app.Services {
		if svc := m.serviceByToken(tok); svc != nil && svc.IsAlive() {
			m.svcDriver.Stop(svc)
		}
	}
	return errs.ErrorOrNil()
}

// ForceKill implements priority.Executor, delegating to the spawner's
// SIGTERM fallback.
func (m *Manager) ForceKill(pid int) error {
	return m.spawner.ForceKill(pid)
}

// IsAlive implements priority.Executor.
func (m *Manager) IsAlive(pid int) bool {
	return m.spawner.IsAlive(pid)
}
