// Package cli is a small App/FlagSet wrapper around the standard flag package, with
// terminal-width-aware help formatting via golang.org/x/term.
package cli

import (
	"flag"
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"
)

// App bundles a name, a standard FlagSet, and an Action run with the remaining
// positional arguments. There are no flag groups, shorthand aliases, or `--` specials.
type App struct {
	Name     string
	Synopsis string
	Flags    *flag.FlagSet
	Action   func(args []string) error
}

func NewApp(name, synopsis string) *App {
	return &App{Name: name, Synopsis: synopsis, Flags: flag.NewFlagSet(name, flag.ContinueOnError)}
}

func (a *App) Run(arguments []string) error {
	a.Flags.Usage = func() { a.printUsage() }
	if err := a.Flags.Parse(arguments); err != nil {
		return err
	}
	if a.Action != nil {
		return a.Action(a.Flags.Args())
	}
	return nil
}

func (a *App) printUsage() {
	width := terminalWidth()
	fmt.Fprintf(os.Stderr, "%s — %s\n\n", a.Name, a.Synopsis)
	fmt.Fprintf(os.Stderr, "usage: %s [flags] [file.ks]\n\n", a.Name)
	fmt.Fprintln(os.Stderr, strings.Repeat("-", min(width, 60)))
	fmt.Fprintln(os.Stderr, "flags:")
	a.Flags.PrintDefaults()
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 20 {
		return 80
	}
	return width
}
