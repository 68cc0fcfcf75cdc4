// Package agent implements "amd agent": the long-running daemon
// command that builds and runs a manager.Manager until terminated.
package agent

import (
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/hashicorp/go-hclog"
	"github.com/open-vela/amd/am/config"
	"github.com/open-vela/amd/am/manager"
	"github.com/open-vela/amd/am/metrics"
	"github.com/open-vela/amd/am/pkgmanager"
	"github.com/open-vela/amd/command/meta"
	"github.com/posener/complete"
)

// Command implements cli.Command for "amd agent".
type Command struct {
	Meta meta.Meta
}

func (c *Command) Synopsis() string { return "Runs the amd activity/service manager daemon" }

func (c *Command) Help() string {
	return `Usage: amd agent [options]

  Starts the activity/service manager core and blocks until terminated.

Options:
  -config=<path>    Path to the agent's HCL config file.
  -pid-file=<path>  Where to write the agent's pid, for "amd dump"/"amd
                     runmode" to signal.
`
}

func (c *Command) AutocompleteArgs() complete.Predictor { return complete.PredictNothing }

func (c *Command) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-config":   complete.PredictFiles("*.hcl"),
		"-pid-file": complete.PredictFiles("*"),
	}
}

// Run implements cli.Command.
func (c *Command) Run(args []string) int {
	m, logger, cfg, pidFile, code := c.start(args)
	if m == nil {
		return code
	}
	defer m.Close()
	if pidFile != "" {
		defer os.Remove(pidFile)
	}

	logger.Info("amd agent started", "bind_path", cfg.BindPath, "run_mode", m.RunMode())
	c.waitForSignal(m, logger)
	return 0
}

// start parses flags, loads config, and builds+boots a Manager,
// without blocking on signals — split out from Run so tests can drive
// startup and assert on the result without hanging forever in
// waitForSignal. Returns a nil Manager and the exit code to use when
// startup fails.
func (c *Command) start(args []string) (*manager.Manager, hclog.Logger, *config.Config, string, int) {
	var configPath, pidFile string
	fs := c.Meta.FlagSet("agent")
	fs.StringVar(&configPath, "config", "", "path to HCL config file")
	fs.StringVar(&pidFile, "pid-file", "", "path to write the agent's pid")
	if err := fs.Parse(args); err != nil {
		return nil, nil, nil, "", 1
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		c.Meta.UI.Error(fmt.Sprintf("error loading config: %s", err))
		return nil, nil, nil, "", 1
	}
	if err := config.ApplyEnv(cfg, os.Environ()); err != nil {
		c.Meta.UI.Error(fmt.Sprintf("error applying environment overrides: %s", err))
		return nil, nil, nil, "", 1
	}

	logger := hclog.New(&hclog.LoggerOptions{
		Name:   "amd",
		Level:  hclog.LevelFromString(cfg.LogLevel),
		Output: c.Meta.Stderr,
	})

	if pidFile != "" {
		if err := os.WriteFile(pidFile, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
			logger.Error("failed to write pid file", "path", pidFile, "error", err)
			return nil, nil, nil, "", 1
		}
	}

	var fetcher pkgmanager.Fetcher
	if cfg.PackageRoot != "" {
		fetcher = pkgmanager.NewDirFetcher(cfg.PackageRoot)
	}

	pollInterval, err := cfg.LMKPollDuration()
	if err != nil {
		logger.Error("invalid lmk_poll_interval", "error", err)
		return nil, nil, nil, "", 1
	}

	m, err := manager.NewManager(manager.Config{
		Logger:          logger,
		PackageRoot:     fetcher,
		RunModePath:     cfg.RunModePath,
		LMKConfigPath:   cfg.LMKConfigPath,
		LMKPollInterval: pollInterval,
		Metrics:         metrics.Config{Enabled: cfg.Telemetry.Enabled, ServiceName: cfg.Telemetry.ServiceName},
	})
	if err != nil {
		logger.Error("failed to build manager", "error", err)
		return nil, nil, nil, "", 1
	}

	if err := m.LoadInitialRunMode(); err != nil {
		logger.Error("failed to load run mode", "error", err)
		m.Close()
		return nil, nil, nil, "", 1
	}
	if err := m.SystemReady(cfg.UserSetupComplete); err != nil {
		logger.Error("boot sequence failed", "error", err)
		m.Close()
		return nil, nil, nil, "", 1
	}

	return m, logger, cfg, pidFile, 0
}

// waitForSignal blocks until an interrupt/terminate signal arrives,
// servicing SIGUSR1 (dump state) and SIGHUP (reload run mode from
// disk) the way the teacher's agent command handles SIGHUP config
// reloads.
func (c *Command) waitForSignal(m *manager.Manager, logger hclog.Logger) {
	sigCh := make(chan os.Signal, 4)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM, syscall.SIGUSR1, syscall.SIGHUP)
	for sig := range sigCh {
		switch sig {
		case syscall.SIGUSR1:
			m.Dump(c.Meta.Stdout)
		case syscall.SIGHUP:
			if err := m.LoadInitialRunMode(); err != nil {
				logger.Error("failed to reload run mode", "error", err)
			} else {
				logger.Info("run mode reloaded", "run_mode", m.RunMode())
			}
		default:
			logger.Info("received shutdown signal", "signal", sig)
			return
		}
	}
}
