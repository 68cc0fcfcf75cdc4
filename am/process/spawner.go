// Package process implements the process spawner (spec.md §1: "a call
// that forks and execs a binary with arguments and returns a pid; a
// SIGCHLD-like notification channel reports terminations").
package process

import (
	"fmt"
	"os"
	"os/exec"
	"sync"
	"syscall"

	"github.com/hashicorp/go-hclog"
)

// Spawner launches a client application binary and returns its pid.
type Spawner interface {
	Spawn(execFile string, args []string) (pid int, err error)
}

// ExitEvent is one spawner-exit notification (spec.md §4.5's
// "SIGCHLD-style notification"), delivered onto the reactor loop.
type ExitEvent struct {
	Pid int
	Err error // non-nil if the wait itself failed, not if the child merely exited non-zero
}

// ExecSpawner is the default Spawner: fork+exec via os/exec, with a
// background goroutine per child that waits for it and forwards an
// ExitEvent. It also exposes ForceKill/IsAlive so am/manager can wire
// it into priority.Executor alongside the normal graceful-stop path.
type ExecSpawner struct {
	logger hclog.Logger
	exits  chan ExitEvent

	mu    sync.Mutex
	procs map[int]*os.Process
}

// NewExecSpawner creates an ExecSpawner. The exits channel is buffered
// generously since the reactor loop may be busy when several children
// exit in a burst.
func NewExecSpawner(logger hclog.Logger) *ExecSpawner {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &ExecSpawner{
		logger: logger.Named("process"),
		exits:  make(chan ExitEvent, 64),
		procs:  make(map[int]*os.Process),
	}
}

// Spawn forks+execs execFile with args, and arms a waiter goroutine
// that reports the exit onto Exits().
func (s *ExecSpawner) Spawn(execFile string, args []string) (int, error) {
	cmd := exec.Command(execFile, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("am: spawn %s: %w", execFile, err)
	}

	pid := cmd.Process.Pid
	s.mu.Lock()
	s.procs[pid] = cmd.Process
	s.mu.Unlock()

	go func() {
		_, err := cmd.Process.Wait()
		s.mu.Lock()
		delete(s.procs, pid)
		s.mu.Unlock()
		s.exits <- ExitEvent{Pid: pid, Err: err}
	}()

	s.logger.Info("spawned client process", "exec", execFile, "args", args, "pid", pid)
	return pid, nil
}

// Exits is the SIGCHLD-style notification channel the manager's reactor
// loop drains to run procAppTerminated (spec.md §4.5).
func (s *ExecSpawner) Exits() <-chan ExitEvent { return s.exits }

// IsAlive reports whether pid is still a tracked live child.
func (s *ExecSpawner) IsAlive(pid int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.procs[pid]
	return ok
}

// ForceKill sends the LMK fallback SIGTERM (spec.md §4.6).
func (s *ExecSpawner) ForceKill(pid int) error {
	s.mu.Lock()
	proc, ok := s.procs[pid]
	s.mu.Unlock()
	if !ok {
		return nil
	}
	return proc.Signal(syscall.SIGTERM)
}
