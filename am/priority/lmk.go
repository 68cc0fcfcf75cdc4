package priority

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	humanize "github.com/dustin/go-humanize"
	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/go-multierror"
	"github.com/robfig/cron/v3"
	"github.com/shirou/gopsutil/v3/mem"
)

// ConfigRow is one (freeMemoryThreshold, oomScoreThreshold) pair from
// the LMK config (spec.md §4.6, §6: "LMK config file: lines of
// <freeMemBytes> <oomScore>").
type ConfigRow struct {
	FreeMemThreshold uint64
	OomScoreThreshold int
}

// MaxConfigRows is the cap on rows spec.md §4.6 documents ("up to 5").
const MaxConfigRows = 5

// FallbackDelay is how long the LMK waits after requesting a graceful
// stop before escalating to SIGTERM (spec.md §4.6).
const FallbackDelay = 2000 * time.Millisecond

// MemoryReader reports current free/total system memory. Production
// code uses gopsutil; tests supply a fake.
type MemoryReader interface {
	FreeBytes() (uint64, error)
	TotalBytes() (uint64, error)
}

type gopsutilReader struct{}

func (gopsutilReader) FreeBytes() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Available, nil
}

func (gopsutilReader) TotalBytes() (uint64, error) {
	vm, err := mem.VirtualMemory()
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

// SystemMemoryReader is the gopsutil-backed MemoryReader used outside tests.
func SystemMemoryReader() MemoryReader { return gopsutilReader{} }

// Executor performs the actual termination steps the LMK decides on.
// It is the contract spec.md §1 externalizes as "the process spawner" 's
// counterpart for tearing processes down.
type Executor interface {
	// RequestStop asks pid to stop gracefully (e.g. via the app
	// manager's normal stop-activity/stop-service path).
	RequestStop(pid int) error
	// ForceKill sends the fallback SIGTERM.
	ForceKill(pid int) error
	// IsAlive reports whether pid is still a live process.
	IsAlive(pid int) bool
}

// DefaultConfig derives the default LMK rows from total memory: 10/20/40%
// free-memory thresholds paired index-wise with oom thresholds
// {100,500,700} (spec.md §4.6).
func DefaultConfig(totalMem uint64) []ConfigRow {
	return []ConfigRow{
		{FreeMemThreshold: uint64(float64(totalMem) * 0.10), OomScoreThreshold: 100},
		{FreeMemThreshold: uint64(float64(totalMem) * 0.20), OomScoreThreshold: 500},
		{FreeMemThreshold: uint64(float64(totalMem) * 0.40), OomScoreThreshold: 700},
	}
}

// ParseConfig reads an LMK config file of "<freeMemBytes> <oomScore>"
// lines (spec.md §6), capped at MaxConfigRows.
func ParseConfig(path string) ([]ConfigRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var rows []ConfigRow
	var errs *multierror.Error
	scanner := bufio.NewScanner(f)
	lineNo := 0
	for scanner.Scan() && len(rows) < MaxConfigRows {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) != 2 {
			errs = multierror.Append(errs, fmt.Errorf("lmk config line %d: expected 2 fields, got %d", lineNo, len(fields)))
			continue
		}
		freeBytes, err := strconv.ParseUint(fields[0], 10, 64)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("lmk config line %d: %w", lineNo, err))
			continue
		}
		oomScore, err := strconv.Atoi(fields[1])
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("lmk config line %d: %w", lineNo, err))
			continue
		}
		rows = append(rows, ConfigRow{FreeMemThreshold: freeBytes, OomScoreThreshold: oomScore})
	}
	return rows, errs.ErrorOrNil()
}

// LMK is the low-memory killer (spec.md §4.6): on a memory-pressure
// event or periodic poll, it re-scores the priority list, finds the
// first config row the current free-memory reading has crossed, and
// asks the executor to gracefully stop every pid at or above that
// row's oom threshold, escalating to SIGTERM after FallbackDelay.
type LMK struct {
	list     *List
	executor Executor
	reader   MemoryReader
	logger   hclog.Logger

	mu   sync.Mutex
	rows []ConfigRow

	cron    *cron.Cron
	onEvict func(pid int)
}

// SetEvictHook installs fn to be called once per pid the LMK asks the
// executor to stop, after RequestStop succeeds. am/metrics uses this to
// maintain an eviction counter; nil (the default) disables the hook.
func (k *LMK) SetEvictHook(fn func(pid int)) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.onEvict = fn
}

// NewLMK creates an LMK. If rows is empty, defaults are computed from
// reader.TotalBytes() (spec.md §8: "LMK with zero-length config uses
// the defaults computed from heap size").
func NewLMK(list *List, executor Executor, reader MemoryReader, rows []ConfigRow, logger hclog.Logger) (*LMK, error) {
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	if len(rows) == 0 {
		total, err := reader.TotalBytes()
		if err != nil {
			return nil, fmt.Errorf("am: read total memory for default lmk config: %w", err)
		}
		rows = DefaultConfig(total)
	}
	return &LMK{list: list, executor: executor, reader: reader, rows: rows, logger: logger.Named("lmk")}, nil
}

// StartPolling arms a periodic Check on the given interval using
// robfig/cron, matching spec.md §4.6's "periodic poll" trigger. Call
// Stop to tear it down. cron's "@every" schedules have one-second
// resolution: an interval under one second is rounded up to one second.
func (k *LMK) StartPolling(interval time.Duration) {
	k.cron = cron.New()
	spec := fmt.Sprintf("@every %s", interval)
	if _, err := k.cron.AddFunc(spec, func() { k.Check() }); err != nil {
		k.logger.Error("failed to schedule lmk poll", "error", err)
		return
	}
	k.cron.Start()
}

// Stop halts periodic polling, if started.
func (k *LMK) Stop() {
	if k.cron != nil {
		k.cron.Stop()
	}
}

// OnMemoryPressure is the memory-pressure-event trigger (spec.md §4.6).
func (k *LMK) OnMemoryPressure() error { return k.Check() }

// Check runs one prepare+select+evict cycle.
func (k *LMK) Check() error {
	k.list.Analyse() // the "prepare" callback: policy recomputes all scores

	free, err := k.reader.FreeBytes()
	if err != nil {
		return fmt.Errorf("am: read free memory: %w", err)
	}

	k.mu.Lock()
	rows := k.rows
	k.mu.Unlock()

	for _, row := range rows {
		if free > row.FreeMemThreshold {
			continue
		}
		victims := k.list.PidsAtOrAbove(row.OomScoreThreshold)
		if len(victims) == 0 {
			return nil
		}
		k.logger.Info("low memory, evicting", "free", humanize.Bytes(free), "threshold", humanize.Bytes(row.FreeMemThreshold),
			"oom_cutoff", row.OomScoreThreshold, "victims", victims)

		k.mu.Lock()
		hook := k.onEvict
		k.mu.Unlock()

		var errs *multierror.Error
		for _, pid := range victims {
			if err := k.executor.RequestStop(pid); err != nil {
				errs = multierror.Append(errs, fmt.Errorf("pid %d: %w", pid, err))
				continue
			}
			if hook != nil {
				hook(pid)
			}
			k.scheduleFallback(pid)
		}
		return errs.ErrorOrNil()
	}
	return nil
}

func (k *LMK) scheduleFallback(pid int) {
	time.AfterFunc(FallbackDelay, func() {
		if k.executor.IsAlive(pid) {
			k.logger.Warn("pid still alive after graceful stop, sending fallback SIGTERM", "pid", pid)
			if err := k.executor.ForceKill(pid); err != nil {
				k.logger.Error("fallback kill failed", "pid", pid, "error", err)
			}
		}
	})
}
