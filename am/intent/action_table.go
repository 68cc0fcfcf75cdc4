// Package intent implements the intent router and launch-mode policy
// (spec.md §4.4): resolving a target string or action into a concrete
// package/component, and deciding how a launch reconciles with any
// existing instance per the activity's declared launch mode.
package intent

import (
	"sync"

	"github.com/open-vela/amd/am/structs"
)

// ActionEntry is one registration in the IntentAction table: "action X
// is handled by package P's component C" (spec.md §4.4).
type ActionEntry struct {
	PackageName string
	ClassName   string
	Type        structs.ComponentType
}

// ActionTable maps an action string to the components registered for
// it, split by component type (spec.md §4.4: "look up action in the
// IntentAction table for the requested component-type").
type ActionTable struct {
	mu      sync.Mutex
	entries map[string][]ActionEntry
}

// NewActionTable creates an empty table.
func NewActionTable() *ActionTable {
	return &ActionTable{entries: make(map[string][]ActionEntry)}
}

// Register adds e under action. Called once per declared <action>
// element in a package's manifest at install/scan time.
func (t *ActionTable) Register(action string, e ActionEntry) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[action] = append(t.entries[action], e)
}

// Unregister removes every entry for packageName under action (used
// when a package is uninstalled or its manifest is rescanned).
func (t *ActionTable) Unregister(action, packageName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	list := t.entries[action]
	out := list[:0]
	for _, e := range list {
		if e.PackageName != packageName {
			out = append(out, e)
		}
	}
	if len(out) == 0 {
		delete(t.entries, action)
	} else {
		t.entries[action] = out
	}
}

// ResolveOne returns the first registered entry for action matching
// componentType (the "single-target resolver" of spec.md §4.4).
func (t *ActionTable) ResolveOne(action string, componentType structs.ComponentType) (ActionEntry, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, e := range t.entries[action] {
		if e.Type == componentType {
			return e, true
		}
	}
	return ActionEntry{}, false
}

// Actions returns every action string with at least one registered
// entry, in no particular order. Used by am/manager's dump(fd) to
// print the intent-action table (a supplemented feature carried over
// from the original's ActivityManagerService::dump).
func (t *ActionTable) Actions() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]string, 0, len(t.entries))
	for action := range t.entries {
		out = append(out, action)
	}
	return out
}

// EntriesFor returns every registered entry for action, across both
// component types.
func (t *ActionTable) EntriesFor(action string) []ActionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ActionEntry, len(t.entries[action]))
	copy(out, t.entries[action])
	return out
}

// ResolveAll returns every registered entry for action matching
// componentType (the "multi-target resolver" of spec.md §4.4, used for
// broadcasts with no explicit target).
func (t *ActionTable) ResolveAll(action string, componentType structs.ComponentType) []ActionEntry {
	t.mu.Lock()
	defer t.mu.Unlock()
	var out []ActionEntry
	for _, e := range t.entries[action] {
		if e.Type == componentType {
			out = append(out, e)
		}
	}
	return out
}
