// Package meta holds flags and UI plumbing shared by every amd CLI
// subcommand, kept separate from package command so the subcommand
// packages (command/agent, command/dump, command/runmode) can depend
// on it without an import cycle back through command's top-level
// Commands() registry.
package meta

import (
	"flag"
	"fmt"
	"io"
	"os"
)

// Meta holds flags and UI plumbing shared by every subcommand, the way
// the teacher's command.Meta does.
type Meta struct {
	UI     UI
	Stdout io.Writer
	Stderr io.Writer
}

// UI is the minimal output surface commands write through, so tests
// can capture output without depending on hashicorp/cli's UI type
// directly.
type UI interface {
	Output(string)
	Error(string)
}

// basicUI writes straight to the given writers.
type basicUI struct {
	stdout io.Writer
	stderr io.Writer
}

func (u *basicUI) Output(s string) { fmt.Fprintln(u.stdout, s) }
func (u *basicUI) Error(s string)  { fmt.Fprintln(u.stderr, s) }

// New builds a Meta writing to os.Stdout/os.Stderr.
func New() Meta {
	return Meta{
		UI:     &basicUI{stdout: os.Stdout, stderr: os.Stderr},
		Stdout: os.Stdout,
		Stderr: os.Stderr,
	}
}

// FlagSet returns a flag.FlagSet pre-configured to write usage errors
// to m.Stderr instead of directly to os.Stderr, matching how the
// teacher's Meta.FlagSet behaves.
func (m *Meta) FlagSet(name string) *flag.FlagSet {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)
	fs.SetOutput(m.Stderr)
	return fs
}
