package manager

import (
	"fmt"
	"io"

	"github.com/open-vela/amd/am/stack"
	"github.com/open-vela/amd/am/structs"
	"github.com/ryanuber/columnize"
)

// Dump implements the inbound dump(fd) method (spec.md §6): tasks,
// services, and the priority list, plus the intent-action table (a
// supplemented feature carried over from the original's
// ActivityManagerService::dump).
func (m *Manager) Dump(w io.Writer) {
	m.mu.Lock()
	defer m.mu.Unlock()

	fmt.Fprintln(w, "Tasks:")
	fmt.Fprintln(w, m.dumpTasks())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Services:")
	fmt.Fprintln(w, m.dumpServices())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Priority list:")
	fmt.Fprintln(w, m.dumpPriorities())
	fmt.Fprintln(w)

	fmt.Fprintln(w, "Intent actions:")
	fmt.Fprintln(w, m.dumpActions())
}

func (m *Manager) dumpTasks() string {
	lines := []string{"TASK | ACTIVITY | STATUS | PID | FOREGROUND"}
	emit := func(tasks []*stack.ActivityStack) {
		for _, t := range tasks {
			t.Iterate(func(a *structs.ActivityRecord) bool {
				lines = append(lines, fmt.Sprintf("%s | %s | %s | %d | %v", t.TaskTag, a.UniqueName, a.Status, a.Pid, a.Foreground))
				return true
			})
		}
	}
	emit(m.standard.Tasks())
	emit(m.systemUI.Tasks())
	if len(lines) == 1 {
		lines = append(lines, "(none) | | | |")
	}
	return columnize.SimpleFormat(lines)
}

func (m *Manager) dumpServices() string {
	lines := []string{"SERVICE | STATUS | PID | STARTED | CONNECTIONS"}
	svcs := m.listServices()
	if len(svcs) == 0 {
		lines = append(lines, "(none) | | | |")
	}
	for _, s := range svcs {
		lines = append(lines, fmt.Sprintf("%s | %s | %d | %v | %d", s.Name, s.Status, s.Pid, s.Started, len(s.Connections)))
	}
	return columnize.SimpleFormat(lines)
}

func (m *Manager) dumpPriorities() string {
	lines := []string{"PID | LEVEL | OOM SCORE | BACKGROUND"}
	pids := m.priorities.Pids()
	if len(pids) == 0 {
		lines = append(lines, "(none) | | |")
	}
	for _, pid := range pids {
		info, ok := m.priorities.Get(pid)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("%d | %s | %d | %v", pid, info.PriorityLevel, info.OomScore, m.priorities.IsBackground(pid)))
	}
	return columnize.SimpleFormat(lines)
}

func (m *Manager) dumpActions() string {
	lines := []string{"ACTION | PACKAGE | CLASS | TYPE"}
	actions := m.actions.Actions()
	if len(actions) == 0 {
		lines = append(lines, "(none) | | |")
	}
	for _, action := range actions {
		for _, e := range m.actions.EntriesFor(action) {
			typ := "ACTIVITY"
			if e.Type == structs.ComponentService {
				typ = "SERVICE"
			}
			lines = append(lines, fmt.Sprintf("%s | %s | %s | %s", action, e.PackageName, e.ClassName, typ))
		}
	}
	return columnize.SimpleFormat(lines)
}
