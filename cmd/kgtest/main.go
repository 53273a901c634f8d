// Command kgtest is a golden-IR test harness: it runs each testdata/*.ks fixture through
// the parser and codegen, hashes the emitted QBE IR with xxhash, and compares it against
// a recorded golden hash in testdata/*.golden, to catch unintended regressions in
// lowering or the function-pass pipeline.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/kscope-lang/kscope/pkg/codegen"
	"github.com/kscope-lang/kscope/pkg/config"
	"github.com/kscope-lang/kscope/pkg/parser"
	"github.com/kscope-lang/kscope/pkg/util"
)

func main() {
	update := flag.Bool("update", false, "write new golden hashes instead of comparing")
	dir := flag.String("dir", "testdata", "directory of .ks fixtures")
	flag.Parse()

	fixtures, err := filepath.Glob(filepath.Join(*dir, "*.ks"))
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	failures := 0
	for _, fixture := range fixtures {
		if err := runFixture(fixture, *update); err != nil {
			fmt.Fprintf(os.Stderr, "FAIL %s: %v\n", fixture, err)
			failures++
		} else {
			fmt.Printf("ok   %s\n", fixture)
		}
	}
	if failures > 0 {
		os.Exit(1)
	}
}

func runFixture(path string, update bool) error {
	src, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	ir, err := lowerAll(string(src))
	if err != nil {
		return err
	}
	sum := xxhash.Sum64String(ir)

	goldenPath := strings.TrimSuffix(path, ".ks") + ".golden"
	if update {
		return os.WriteFile(goldenPath, []byte(strconv.FormatUint(sum, 16)), 0o644)
	}

	wantBytes, err := os.ReadFile(goldenPath)
	if err != nil {
		return fmt.Errorf("no golden file (run with -update first): %w", err)
	}
	want, err := strconv.ParseUint(strings.TrimSpace(string(wantBytes)), 16, 64)
	if err != nil {
		return fmt.Errorf("malformed golden file: %w", err)
	}
	if want != sum {
		return fmt.Errorf("IR hash mismatch: got %x, want %x", sum, want)
	}
	return nil
}

// lowerAll parses every top-level node in source and concatenates each one's emitted IR,
// accumulating diagnostics instead of stopping at the first error.
func lowerAll(source string) (string, error) {
	util.Reset()
	ctx := codegen.NewContext(config.Default())
	p := parser.NewParser(source)
	var out strings.Builder
	for {
		node, more := p.ParseTopLevel()
		if !more {
			break
		}
		ctx.ResetModule()
		ctx.BeginTopLevel()
		if ctx.LowerTopLevel(node) {
			out.WriteString(ctx.EmitAssembly())
		}
	}
	if util.HadErrors() {
		diags := util.Diagnostics()
		return "", fmt.Errorf("%d diagnostic(s), first: %s", len(diags), diags[0].String())
	}
	return out.String(), nil
}
