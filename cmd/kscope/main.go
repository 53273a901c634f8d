// Command kscope is the Kaleidoscope REPL/batch driver: it reads top-level constructs
// from stdin or a .ks file, lowers each one through pkg/codegen, and JIT-executes bare
// expressions through pkg/jit.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/kscope-lang/kscope/pkg/cli"
	"github.com/kscope-lang/kscope/pkg/config"
	"github.com/kscope-lang/kscope/pkg/jit"
	"github.com/kscope-lang/kscope/pkg/parser"
	"github.com/kscope-lang/kscope/pkg/util"
)

func main() {
	cfg := config.Default()
	app := cli.NewApp("kscope", "a JIT-compiling Kaleidoscope REPL")
	app.Flags.BoolVar(&cfg.EmitIR, "emit-ir", false, "print QBE IR for each top-level node instead of running it")
	app.Flags.BoolVar(&cfg.Debug, "debug", false, "skip the function-pass pipeline and emit unoptimized IR")
	app.Flags.StringVar(&cfg.CC, "cc", cfg.CC, "linker driver used to build JIT shared objects")
	app.Flags.StringVar(&cfg.BackendTarget, "target", cfg.BackendTarget, "libqbe backend target triple")

	app.Action = func(args []string) error {
		return run(cfg, args)
	}

	if err := app.Run(os.Args[1:]); err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, args []string) error {
	var src io.Reader = os.Stdin
	interactive := true
	if len(args) > 0 {
		f, err := os.Open(args[0])
		if err != nil {
			return err
		}
		defer f.Close()
		src, interactive = f, false
	}

	driver, err := jit.NewDriver(cfg)
	if err != nil {
		return err
	}
	defer driver.Close()

	text, err := io.ReadAll(src)
	if err != nil {
		return err
	}
	p := parser.NewParser(string(text))

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	for {
		if interactive {
			fmt.Fprint(out, "kscope> ")
			out.Flush()
		}
		util.Reset()
		node, more := p.ParseTopLevel()
		if !more {
			return nil
		}
		if util.HadErrors() {
			util.Flush()
			continue
		}

		result, ok := driver.Evaluate(node)
		if !ok || util.HadErrors() {
			util.Flush()
			continue
		}

		switch {
		case cfg.EmitIR:
			fmt.Fprint(out, result.IR)
		case result.Ran:
			fmt.Fprintf(out, "=> %g\n", result.Value)
		default:
			fmt.Fprintf(out, "defined %s\n", result.Defined)
		}
	}
}
