// Package metrics wires the core's runtime gauges and counters
// (priority list size, pending task board depth, LMK evictions) into
// hashicorp/go-metrics, exported to Prometheus via its bundled
// prometheus sink. This mirrors how the rest of the corpus emits
// telemetry: call the global metrics.SetGauge/IncrCounter functions
// from wherever the underlying state lives, after a one-time Setup
// call configures the process-wide sink.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/hashicorp/go-hclog"
	gometrics "github.com/hashicorp/go-metrics"
	gmprometheus "github.com/hashicorp/go-metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config controls telemetry collection (spec.md's metrics Non-goal
// covers the transport wire protocol only; the daemon still exposes
// its own operational telemetry the way every corpus agent does).
type Config struct {
	// Enabled turns on the global sink and periodic Collector. Off by
	// default: a headless amd running under test harnesses or a single
	// board should not register a process-global Prometheus sink.
	Enabled bool
	// ServiceName prefixes every metric key (e.g. "amd").
	ServiceName string
	// CollectionInterval is how often the Collector samples the
	// gauges. Zero selects DefaultCollectionInterval.
	CollectionInterval time.Duration
}

// DefaultCollectionInterval is how often gauges are resampled absent
// an explicit Config.CollectionInterval.
const DefaultCollectionInterval = 10 * time.Second

// Setup configures the process-wide go-metrics sink with a Prometheus
// exporter and returns an http.Handler for the /metrics endpoint.
// Call once per process; it is a no-op error for cfg.Enabled == false.
func Setup(cfg Config) (http.Handler, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "amd"
	}

	sink, err := gmprometheus.NewPrometheusSink()
	if err != nil {
		return nil, fmt.Errorf("am: create prometheus metrics sink: %w", err)
	}

	mcfg := gometrics.DefaultConfig(cfg.ServiceName)
	mcfg.EnableHostname = false
	mcfg.EnableRuntimeMetrics = true
	if _, err := gometrics.NewGlobal(mcfg, sink); err != nil {
		return nil, fmt.Errorf("am: install global metrics sink: %w", err)
	}

	return promhttp.Handler(), nil
}

// Gauges is the set of point-in-time readings a Collector samples on
// each tick. Each field mirrors a query the manager already exposes
// for am/manager's Dump command; Collector just re-emits them as
// metrics instead of text.
type Gauges struct {
	// PriorityListSize is priority.List.Len(): how many tracked pids
	// currently carry an OOM score.
	PriorityListSize func() int
	// PendingTaskBoardDepth is taskboard.Board.Len(): how many
	// asynchronous server-side waits are outstanding.
	PendingTaskBoardDepth func() int
}

// Collector periodically samples Gauges and reports them as
// hashicorp/go-metrics gauges under "<service>.priority.list_size" and
// "<service>.taskboard.pending".
type Collector struct {
	gauges   Gauges
	interval time.Duration
	logger   hclog.Logger

	stopCh chan struct{}
}

// NewCollector creates a Collector. gauges' fields that are nil are
// skipped on each tick rather than panicking, so callers may wire only
// the subsystems they have constructed.
func NewCollector(gauges Gauges, interval time.Duration, logger hclog.Logger) *Collector {
	if interval <= 0 {
		interval = DefaultCollectionInterval
	}
	if logger == nil {
		logger = hclog.NewNullLogger()
	}
	return &Collector{gauges: gauges, interval: interval, logger: logger.Named("metrics"), stopCh: make(chan struct{})}
}

// Start runs the sampling loop in a new goroutine until Stop is called.
func (c *Collector) Start() {
	go func() {
		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.sample()
			case <-c.stopCh:
				return
			}
		}
	}()
}

// Stop halts the sampling loop. Safe to call once.
func (c *Collector) Stop() {
	close(c.stopCh)
}

func (c *Collector) sample() {
	if c.gauges.PriorityListSize != nil {
		gometrics.SetGauge([]string{"priority", "list_size"}, float32(c.gauges.PriorityListSize()))
	}
	if c.gauges.PendingTaskBoardDepth != nil {
		gometrics.SetGauge([]string{"taskboard", "pending"}, float32(c.gauges.PendingTaskBoardDepth()))
	}
}

// IncrLMKEviction counts one pid the LMK asked to stop under memory
// pressure (spec.md §4.6). Wire it as the LMK's evict hook:
//
//	lmk.SetEvictHook(func(pid int) { metrics.IncrLMKEviction() })
func IncrLMKEviction() {
	gometrics.IncrCounter([]string{"lmk", "evictions"}, 1)
}
