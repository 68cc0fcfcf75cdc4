// Command amd is the activity/service manager daemon's CLI entrypoint,
// mirroring the teacher's cmd/nomad: all real logic lives in command/
// and am/, main just wires hashicorp/cli up and exits with its code.
package main

import (
	"os"

	"github.com/hashicorp/cli"
	"github.com/open-vela/amd/command"
)

// Version is the amd release version, overridable at build time with
// -ldflags "-X main.Version=...".
var Version = "dev"

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	c := cli.NewCLI("amd", Version)
	c.Args = args
	c.Commands = command.Commands()

	exitCode, err := c.Run()
	if err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		return 1
	}
	return exitCode
}
