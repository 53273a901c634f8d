// Package config carries the knobs that thread through the codegen and jit packages: which function passes run, which backend target and linker driver to
// use, and whether to print IR instead of running it.
package config

import (
	"runtime"

	"modernc.org/libqbe"
)

// Config is built once by cmd/kscope and threaded by pointer into every package that
// needs it.
type Config struct {
	// Debug skips the function-pass pipeline (OptPasses) entirely, so emitted IR matches
	// what the lowering rules produced with no further rewriting — useful for inspecting
	// a specific construct's raw codegen. Exposed as -debug.
	Debug bool

	// OptPasses is the ordered list of function passes the codegen package's pass
	// manager runs once per function body when Debug is false. Unknown names are
	// ignored rather than rejected.
	OptPasses []string

	// BackendTarget is passed straight to libqbe.Main.
	BackendTarget string

	// CC is the system compiler driver invoked to assemble+link JIT output into a
	// loadable shared object (pkg/jit).
	CC string

	// EmitIR requests QBE IR text on stdout instead of JIT-executing each top-level node.
	EmitIR bool
}

// Default returns a Config with the host's native QBE target, a "cc" linker driver, and
// the full function-pass pipeline enabled.
func Default() *Config {
	return &Config{
		OptPasses:     append([]string(nil), defaultOptPasses...),
		BackendTarget: libqbe.DefaultTarget(runtime.GOOS, runtime.GOARCH),
		CC:            "cc",
	}
}

// defaultOptPasses mirrors codegen.DefaultOptPasses; duplicated here (rather than
// imported) so pkg/config has no dependency on pkg/codegen.
var defaultOptPasses = []string{"mem2reg", "instcombine", "reassociate", "gvn", "simplifycfg"}
