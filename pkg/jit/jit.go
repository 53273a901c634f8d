// Package jit drives a Kaleidoscope REPL/batch session one top-level node at a time:
// lower it to IR, then either link it into the running process (a named def) or
// link, load, and call it immediately (a bare expression). modernc.org/libqbe has no
// in-process execution engine of its own — it only lowers textual IR to target assembly —
// so "JIT-compiling" a module here means assembling and linking that assembly into a
// shared object with the system cc and loading it with dlopen/dlsym.
package jit

import (
	"fmt"
	"os"
	"path/filepath"
	"unsafe"

	"github.com/google/uuid"
	"github.com/kscope-lang/kscope/pkg/ast"
	"github.com/kscope-lang/kscope/pkg/codegen"
	"github.com/kscope-lang/kscope/pkg/config"
)

// Driver runs one Kaleidoscope REPL/batch session: a persistent Context (so the Function
// Prototypes registry survives across top-level nodes), a cache of
// already-linked shared objects, and every module handle loaded so far.
type Driver struct {
	ctx     *codegen.Context
	cfg     *config.Config
	cache   *cache
	scratch string

	// modules holds the dlopen handle of every module this Driver has loaded, kept open
	// for the Driver's whole lifetime. A named def's module is loaded (not just linked)
	// the moment it's defined, with its symbols made globally visible, so a later
	// module's call to it resolves at that later module's own load time — the same
	// shared, ever-growing symbol space that adding several modules to one JIT execution
	// session gets for free.
	modules []unsafe.Pointer
}

func NewDriver(cfg *config.Config) (*Driver, error) {
	scratch, err := os.MkdirTemp("", "kscope-")
	if err != nil {
		return nil, fmt.Errorf("creating scratch directory: %w", err)
	}
	return &Driver{
		ctx:     codegen.NewContext(cfg),
		cfg:     cfg,
		cache:   newCache(),
		scratch: scratch,
	}, nil
}

func (d *Driver) Close() {
	for _, handle := range d.modules {
		closeModule(handle)
	}
	os.RemoveAll(d.scratch)
}

// EvaluateResult is what Evaluate reports back for one top-level node: the assembly/IR
// text for diagnostics (-emit-ir), and, for a JIT-executed __anon_expr, the double it
// returned.
type EvaluateResult struct {
	IR      string
	Ran     bool
	Value   float64
	Defined string // name of the function/extern that was just declared, if any
}

// Evaluate lowers exactly one top-level node. Each node gets a fresh ir.Program
// (Context.ResetModule), so a definition that fails never contaminates the next node's
// module with half-built basic blocks.
func (d *Driver) Evaluate(node *ast.Node) (EvaluateResult, bool) {
	d.ctx.ResetModule()
	d.ctx.BeginTopLevel()

	if !d.ctx.LowerTopLevel(node) {
		return EvaluateResult{}, false
	}

	result := EvaluateResult{IR: d.ctx.EmitAssembly()}
	if d.cfg.EmitIR {
		// -emit-ir prints the IR instead of running the node, so nothing is linked.
		return result, true
	}

	switch node.Type {
	case ast.Prototype:
		result.Defined = node.Data.(ast.PrototypeNode).Name
		return result, true
	case ast.Function:
		proto := node.Data.(ast.FunctionNode).Proto.Data.(ast.PrototypeNode)
		result.Defined = proto.Name
		if proto.Name != ast.AnonExprName {
			// A named definition carries a real body later calls must resolve
			// against, so its module is linked and loaded now, even though
			// nothing calls it yet.
			if err := d.load(result.IR); err != nil {
				return EvaluateResult{}, false
			}
			return result, true
		}
	}

	value, err := d.runAnonExpr(result.IR)
	if err != nil {
		return EvaluateResult{}, false
	}
	result.Ran = true
	result.Value = value
	return result, true
}

// linkAndLoad assembles+links irText into a shared object (through the cache, keyed by
// the IR text's xxhash, so re-evaluating identical IR skips assemble+link) and dlopens
// it, appending the handle to modules so it stays resident.
func (d *Driver) linkAndLoad(irText string) (unsafe.Pointer, error) {
	soPath, ok := d.cache.lookup(irText)
	if !ok {
		var err error
		soPath, err = d.link(irText)
		if err != nil {
			return nil, err
		}
		d.cache.store(irText, soPath)
	}

	handle, err := loadModule(soPath)
	if err != nil {
		return nil, err
	}
	d.modules = append(d.modules, handle)
	return handle, nil
}

// load links and loads a named definition's module without calling anything in it.
func (d *Driver) load(irText string) error {
	_, err := d.linkAndLoad(irText)
	return err
}

// runAnonExpr links, loads, and immediately calls the reserved __anon_expr wrapper
// around a bare top-level expression.
func (d *Driver) runAnonExpr(irText string) (float64, error) {
	handle, err := d.linkAndLoad(irText)
	if err != nil {
		return 0, err
	}
	return callExportedFunc(handle, ast.AnonExprName)
}

func (d *Driver) link(irText string) (string, error) {
	asm, err := codegen.Generate(d.ctx.Prog, d.cfg)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	asmPath := filepath.Join(d.scratch, "mod-"+id+".s")
	soPath := filepath.Join(d.scratch, "mod-"+id+".so")
	if err := os.WriteFile(asmPath, asm.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("writing assembly: %w", err)
	}

	if err := assembleAndLink(d.cfg.CC, asmPath, soPath); err != nil {
		return "", err
	}
	return soPath, nil
}
