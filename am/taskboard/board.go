package taskboard

import (
	"sync"
	"time"

	"github.com/hashicorp/go-hclog"
)

// Task is one in-flight server-side orchestration step waiting on an
// asynchronous client status report (spec.md §3, §4.1).
type Task interface {
	// Label is the criteria this task is waiting on.
	Label() Label
	// SingleShot reports whether Trigger should stop scanning after this
	// task matches, or keep going (used by callers that fan one event
	// out to several waiters).
	SingleShot() bool
	// Execute runs when a fired Event matches Label.
	Execute(event Label)
	// Timeout runs once if the task's deadline elapses before a match.
	Timeout()
}

type entry struct {
	task  Task
	done  bool
	timer *time.Timer
}

// Board is the pending-task registry (spec.md §4.1). All exported
// methods are intended to be called from the server's single reactor
// goroutine; the mutex exists only to make the board safe to exercise
// directly from concurrent test goroutines and from the real timer
// goroutines Go's runtime fires time.AfterFunc callbacks on before they
// reach the loop.
type Board struct {
	mu      sync.Mutex
	entries []*entry
	debug   bool
	logger  hclog.Logger
}

// New creates an empty Board. When debug is true, deadlines are never
// armed ("timeouts are ignored (treat as UINT_MAX)", spec.md §4.1).
func New(logger hclog.Logger, debug bool) *Board {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Board{logger: logger.Named("taskboard"), debug: debug}
}

// Commit registers task. If timeout is non-zero and the board is not in
// debug mode, a deadline is armed: if no matching Trigger arrives first,
// task.Timeout() runs once and the task is dropped.
func (b *Board) Commit(task Task, timeout time.Duration) {
	b.mu.Lock()
	e := &entry{task: task}
	b.entries = append(b.entries, e)
	if timeout > 0 && !b.debug {
		e.timer = time.AfterFunc(timeout, func() { b.fireTimeout(e) })
	}
	b.mu.Unlock()
}

func (b *Board) fireTimeout(e *entry) {
	b.mu.Lock()
	if e.done {
		b.mu.Unlock()
		return
	}
	e.done = true
	b.mu.Unlock()

	b.logger.Debug("pending task timed out", "label", e.task.Label().Kind)
	e.task.Timeout()
	b.purge()
}

// Trigger delivers event to every not-yet-done task whose label matches
// it, in insertion order, exactly per spec.md §4.1: stop after the first
// single-shot match unless the event itself is MULTI_TRIGGER (Multi).
func (b *Board) Trigger(event Label) {
	b.mu.Lock()
	// Snapshot under lock; Execute may re-entrantly Commit or Trigger,
	// so we must not hold the lock while invoking task callbacks.
	snapshot := make([]*entry, len(b.entries))
	copy(snapshot, b.entries)
	b.mu.Unlock()

	for _, e := range snapshot {
		b.mu.Lock()
		if e.done {
			b.mu.Unlock()
			continue
		}
		label := e.task.Label()
		if !label.Matches(event) {
			b.mu.Unlock()
			continue
		}
		e.done = true
		if e.timer != nil {
			e.timer.Stop()
		}
		singleShot := e.task.SingleShot()
		b.mu.Unlock()

		e.task.Execute(event)

		if singleShot && !event.Multi {
			b.purge()
			return
		}
	}
	b.purge()
}

// purge drops done entries. Called lazily (spec.md §4.1: "Tasks marked
// done-but-still-present ... are purged lazily on the next iteration")
// rather than during Trigger's own scan, so a re-entrant Trigger call
// from within Execute never mutates the slice Trigger is iterating.
func (b *Board) purge() {
	b.mu.Lock()
	defer b.mu.Unlock()
	live := b.entries[:0]
	for _, e := range b.entries {
		if !e.done {
			live = append(live, e)
		}
	}
	b.entries = live
}

// Len reports the number of entries still on the board, done or not;
// used by am/metrics to export pending-task-board depth.
func (b *Board) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}
