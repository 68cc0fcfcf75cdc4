package manager

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// RunMode is the persisted run-mode file's single integer (spec.md §6:
// "0 normal, 1 silence, 2 debug").
type RunMode int

const (
	RunModeNormal  RunMode = 0
	RunModeSilence RunMode = 1
	RunModeDebug   RunMode = 2
)

func (r RunMode) String() string {
	switch r {
	case RunModeNormal:
		return "NORMAL"
	case RunModeSilence:
		return "SILENCE"
	case RunModeDebug:
		return "DEBUG"
	default:
		return "UNKNOWN"
	}
}

// LoadRunMode reads the run-mode file at path, defaulting to NORMAL if
// the file doesn't exist yet (first boot).
func LoadRunMode(path string) (RunMode, error) {
	if path == "" {
		return RunModeNormal, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return RunModeNormal, nil
		}
		return RunModeNormal, fmt.Errorf("am: read run-mode file: %w", err)
	}
	n, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return RunModeNormal, fmt.Errorf("am: parse run-mode file: %w", err)
	}
	switch RunMode(n) {
	case RunModeNormal, RunModeSilence, RunModeDebug:
		return RunMode(n), nil
	default:
		return RunModeNormal, fmt.Errorf("am: run-mode file has unknown value %d", n)
	}
}

// SaveRunMode persists mode to path.
func SaveRunMode(path string, mode RunMode) error {
	if path == "" {
		return nil
	}
	if err := os.WriteFile(path, []byte(strconv.Itoa(int(mode))), 0o644); err != nil {
		return fmt.Errorf("am: write run-mode file: %w", err)
	}
	return nil
}

// RunMode returns the manager's current run-mode.
func (m *Manager) RunMode() RunMode {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runMode
}

// SetRunMode updates and persists the run-mode (used by the `amd
// runmode` CLI command).
func (m *Manager) SetRunMode(mode RunMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := SaveRunMode(m.runModePath, mode); err != nil {
		return err
	}
	m.runMode = mode
	return nil
}

// LoadInitialRunMode reads m.runModePath into m.runMode; called once
// during agent startup before SystemReady.
func (m *Manager) LoadInitialRunMode() error {
	mode, err := LoadRunMode(m.runModePath)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.runMode = mode
	m.mu.Unlock()
	return nil
}
