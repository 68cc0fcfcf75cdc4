// Package dump implements "amd dump": signals a running agent to
// print its task/service/priority-list state (spec.md's dump(fd)
// operation), the way many long-running daemons expose a SIGUSR1
// introspection hook rather than a full RPC for operator tooling.
package dump

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"syscall"

	"github.com/open-vela/amd/command/meta"
	"github.com/posener/complete"
)

// Command implements cli.Command for "amd dump".
type Command struct {
	Meta meta.Meta
}

func (c *Command) Synopsis() string { return "Signals a running amd agent to dump its state" }

func (c *Command) Help() string {
	return `Usage: amd dump -pid-file=<path>

  Sends SIGUSR1 to the agent named by -pid-file, which writes its
  task/service/priority-list dump to its own stdout.
`
}

func (c *Command) AutocompleteArgs() complete.Predictor { return complete.PredictNothing }

func (c *Command) AutocompleteFlags() complete.Flags {
	return complete.Flags{"-pid-file": complete.PredictFiles("*")}
}

// Run implements cli.Command.
func (c *Command) Run(args []string) int {
	var pidFile string
	fs := c.Meta.FlagSet("dump")
	fs.StringVar(&pidFile, "pid-file", "", "path to the agent's pid file")
	if err := fs.Parse(args); err != nil {
		return 1
	}
	if pidFile == "" {
		c.Meta.UI.Error("missing -pid-file")
		return 1
	}

	pid, err := readPid(pidFile)
	if err != nil {
		c.Meta.UI.Error(fmt.Sprintf("error reading pid file: %s", err))
		return 1
	}
	if err := syscall.Kill(pid, syscall.SIGUSR1); err != nil {
		c.Meta.UI.Error(fmt.Sprintf("error signaling agent (pid %d): %s", pid, err))
		return 1
	}
	return 0
}

func readPid(path string) (int, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.Atoi(strings.TrimSpace(string(b)))
}
