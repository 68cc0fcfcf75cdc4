// Package runmode implements "amd runmode": persists a new run-mode
// to the configured run-mode file and nudges a running agent to pick
// it up via SIGHUP, mirroring command/dump's signal-based operator
// control surface.
package runmode

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/open-vela/amd/am/config"
	"github.com/open-vela/amd/am/manager"
	"github.com/open-vela/amd/command/meta"
	"github.com/posener/complete"
)

// Command implements cli.Command for "amd runmode".
type Command struct {
	Meta meta.Meta
}

func (c *Command) Synopsis() string { return "Gets or sets the amd agent's run mode" }

func (c *Command) Help() string {
	return `Usage: amd runmode [normal|silence|debug] [options]

  With no argument, prints the persisted run mode. With an argument,
  persists the new run mode and signals the running agent (-pid-file)
  to reload it.

Options:
  -config=<path>    Path to the agent's HCL config file (for run_mode_path).
  -pid-file=<path>  Agent pid to SIGHUP after persisting a new mode.
`
}

func (c *Command) AutocompleteArgs() complete.Predictor {
	return complete.PredictSet("normal", "silence", "debug")
}

func (c *Command) AutocompleteFlags() complete.Flags {
	return complete.Flags{
		"-config":   complete.PredictFiles("*.hcl"),
		"-pid-file": complete.PredictFiles("*"),
	}
}

// Run implements cli.Command.
func (c *Command) Run(args []string) int {
	var configPath, pidFile string
	fs := c.Meta.FlagSet("runmode")
	fs.StringVar(&configPath, "config", "", "path to HCL config file")
	fs.StringVar(&pidFile, "pid-file", "", "path to the agent's pid file")
	if err := fs.Parse(args); err != nil {
		return 1
	}

	cfg, err := config.LoadFile(configPath)
	if err != nil {
		c.Meta.UI.Error(fmt.Sprintf("error loading config: %s", err))
		return 1
	}

	switch fs.NArg() {
	case 0:
		mode, err := manager.LoadRunMode(cfg.RunModePath)
		if err != nil {
			c.Meta.UI.Error(fmt.Sprintf("error reading run mode: %s", err))
			return 1
		}
		c.Meta.UI.Output(mode.String())
		return 0
	case 1:
		mode, ok := parseMode(fs.Arg(0))
		if !ok {
			c.Meta.UI.Error(fmt.Sprintf("unknown run mode %q (want normal, silence, or debug)", fs.Arg(0)))
			return 1
		}
		if err := manager.SaveRunMode(cfg.RunModePath, mode); err != nil {
			c.Meta.UI.Error(fmt.Sprintf("error saving run mode: %s", err))
			return 1
		}
		if pidFile != "" {
			if err := signalAgent(pidFile); err != nil {
				c.Meta.UI.Error(fmt.Sprintf("run mode saved, but failed to signal agent: %s", err))
				return 1
			}
		}
		return 0
	default:
		c.Meta.UI.Error("expected at most one argument")
		return 1
	}
}

func parseMode(s string) (manager.RunMode, bool) {
	switch strings.ToLower(s) {
	case "normal":
		return manager.RunModeNormal, true
	case "silence":
		return manager.RunModeSilence, true
	case "debug":
		return manager.RunModeDebug, true
	default:
		return 0, false
	}
}

func signalAgent(pidFile string) error {
	b, err := os.ReadFile(pidFile)
	if err != nil {
		return err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return err
	}
	return syscall.Kill(pid, syscall.SIGHUP)
}
