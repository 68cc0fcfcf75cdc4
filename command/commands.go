// Package command wires together amd's CLI subcommands (command/agent,
// command/dump, command/runmode) into the cli.CommandFactory map
// cmd/amd/main.go hands to hashicorp/cli. The core library (am/...)
// has no dependency on this package or on any CLI framework.
package command

import (
	"github.com/hashicorp/cli"
	"github.com/open-vela/amd/command/agent"
	"github.com/open-vela/amd/command/dump"
	"github.com/open-vela/amd/command/meta"
	"github.com/open-vela/amd/command/runmode"
)

// Commands returns every "amd" subcommand factory, for cli.CLI.Commands.
func Commands() map[string]cli.CommandFactory {
	m := meta.New()
	return map[string]cli.CommandFactory{
		"agent": func() (cli.Command, error) {
			return &agent.Command{Meta: m}, nil
		},
		"dump": func() (cli.Command, error) {
			return &dump.Command{Meta: m}, nil
		},
		"runmode": func() (cli.Command, error) {
			return &runmode.Command{Meta: m}, nil
		},
	}
}
