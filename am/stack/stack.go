// Package stack implements the navigation task stack and the two task
// managers (standard back-stack and SystemUI overlay) sharing a common
// ITaskManager contract (spec.md §4.3).
package stack

import "github.com/open-vela/amd/am/structs"

// ActivityStack is an ordered list of ActivityRecord sharing a task
// affinity tag (spec.md §3, §4.3). Index 0 is the root (bottom); the
// last element is the top.
type ActivityStack struct {
	TaskTag string
	acts    []*structs.ActivityRecord
}

// NewActivityStack creates an empty stack tagged taskTag.
func NewActivityStack(taskTag string) *ActivityStack {
	return &ActivityStack{TaskTag: taskTag}
}

// Push appends act to the top of the stack.
func (s *ActivityStack) Push(act *structs.ActivityRecord) {
	act.TaskTag = s.TaskTag
	s.acts = append(s.acts, act)
}

// PopTop removes and returns the top activity, or nil if empty.
func (s *ActivityStack) PopTop() *structs.ActivityRecord {
	if len(s.acts) == 0 {
		return nil
	}
	top := s.acts[len(s.acts)-1]
	s.acts = s.acts[:len(s.acts)-1]
	return top
}

// Top returns the top activity without removing it, or nil if empty.
func (s *ActivityStack) Top() *structs.ActivityRecord {
	if len(s.acts) == 0 {
		return nil
	}
	return s.acts[len(s.acts)-1]
}

// Root returns the bottom-most activity, or nil if empty.
func (s *ActivityStack) Root() *structs.ActivityRecord {
	if len(s.acts) == 0 {
		return nil
	}
	return s.acts[0]
}

// Size reports the number of activities currently in the stack.
func (s *ActivityStack) Size() int { return len(s.acts) }

// FindByUniqueName returns the first (top-most) match, or nil.
func (s *ActivityStack) FindByUniqueName(uniqueName string) *structs.ActivityRecord {
	for i := len(s.acts) - 1; i >= 0; i-- {
		if s.acts[i].UniqueName == uniqueName {
			return s.acts[i]
		}
	}
	return nil
}

// FindByToken returns the activity with the given token, or nil.
func (s *ActivityStack) FindByToken(tok structs.Token) *structs.ActivityRecord {
	for _, a := range s.acts {
		if a.Token == tok {
			return a
		}
	}
	return nil
}

// Iterate walks the stack bottom to top, stopping early if fn returns false.
func (s *ActivityStack) Iterate(fn func(act *structs.ActivityRecord) bool) {
	for _, a := range s.acts {
		if !fn(a) {
			return
		}
	}
}

// RemoveByRef removes act's occurrence by identity, preserving order.
func (s *ActivityStack) RemoveByRef(act *structs.ActivityRecord) bool {
	for i, a := range s.acts {
		if a == act {
			s.acts = append(s.acts[:i], s.acts[i+1:]...)
			return true
		}
	}
	return false
}

// Above returns every activity strictly above act (exclusive), bottom
// to top, or nil if act is not found or is already the top.
func (s *ActivityStack) Above(act *structs.ActivityRecord) []*structs.ActivityRecord {
	for i, a := range s.acts {
		if a == act {
			return append([]*structs.ActivityRecord(nil), s.acts[i+1:]...)
		}
	}
	return nil
}
