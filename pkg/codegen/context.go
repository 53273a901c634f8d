// Package codegen lowers one pkg/ast node at a time into pkg/ir instructions inside the
// Context's current module, runs the function-pass pipeline over each finished function
// body, and prints that module to QBE's textual IR. It does not itself decide when a
// module is "done" or submit anything to a JIT — pkg/jit owns the per-expression module
// lifecycle and calls back into this package once per top-level node.
package codegen

import (
	"fmt"

	"github.com/kscope-lang/kscope/pkg/ast"
	"github.com/kscope-lang/kscope/pkg/config"
	"github.com/kscope-lang/kscope/pkg/ir"
	"github.com/kscope-lang/kscope/pkg/util"
)

// binding is one entry in a scope frame's undo list: the name declared, the stack slot it
// resolves to while in scope, and what the same frame bound that name to before, if
// anything.
type binding struct {
	name     string
	slot     ir.Value
	hadPrior bool
	prior    ir.Value
}

// Context holds everything the lowering rules need for a single module: the IR being
// built, the scope stack of Named Values, the function-pass manager, and the last
// lowering result the JIT Driver reads after each top-level node.
type Context struct {
	Prog    *ir.Program
	Builder *ir.Builder
	passes  *passManager

	// Prototypes is the function prototype registry: every prototype this process has
	// ever seen, independent of which module declared it, so a later module can
	// re-declare (not just look up) a function defined earlier.
	Prototypes map[string]*ast.Node

	named []map[string]ir.Value // stack of scope frames, innermost last
	undo  [][]binding            // parallel stack of per-frame records of each declare

	LastValue    ir.Value
	LastFunc     *ir.Func
	lastFuncText string // fallback text when LastFunc is nil

	jitTopLevel bool
}

func NewContext(cfg *config.Config) *Context {
	return &Context{
		Prog:       ir.NewProgram(),
		Prototypes: make(map[string]*ast.Node),
		passes:     newPassManager(cfg.Debug, cfg.OptPasses),
	}
}

// ResetModule starts a fresh module for the next top-level node while keeping the
// Prototypes registry, implementing a module-per-expression scheme: every top-level
// construct gets its own ir.Program so earlier definitions don't leak unrelated basic
// blocks into a module the JIT is about to compile and run.
func (c *Context) ResetModule() {
	c.Prog = ir.NewProgram()
	c.Builder = ir.NewBuilder(c.Prog)
	c.LastValue = nil
	c.LastFunc = nil
	c.lastFuncText = ""
}

// BeginTopLevel sets the jitTopLevel flag; pkg/jit calls this unconditionally before
// visiting every top-level node, including bare externs.
func (c *Context) BeginTopLevel() { c.jitTopLevel = true }

// consumeJITTopLevel is read-and-cleared once per node by LowerTopLevel, which passes the
// result on to the Prototype/Function lowering rules, so a nested Function or Prototype
// (there are none in this grammar, but the flag is check-once by construction) never
// misreads a stale flag from an earlier node.
func (c *Context) consumeJITTopLevel() bool {
	v := c.jitTopLevel
	c.jitTopLevel = false
	return v
}

func (c *Context) pushScope() {
	c.named = append(c.named, map[string]ir.Value{})
	c.undo = append(c.undo, nil)
}

// popScope restores every name this frame shadowed to its pre-frame value (or leaves it
// unbound if it had none). declare only ever writes into the innermost frame, so
// discarding that frame is enough; the outer frames are left exactly as they were.
func (c *Context) popScope() {
	n := len(c.named) - 1
	c.named, c.undo = c.named[:n], c.undo[:n]
}

// declare binds name to slot in the current (innermost) scope frame, recording in that
// frame's undo list what the same frame previously bound the name to, if anything.
func (c *Context) declare(name string, slot ir.Value) {
	n := len(c.named) - 1
	prior, hadPrior := c.named[n][name]
	c.undo[n] = append(c.undo[n], binding{name: name, slot: slot, hadPrior: hadPrior, prior: prior})
	c.named[n][name] = slot
}

// lookup walks the scope stack innermost-first.
func (c *Context) lookup(name string) (ir.Value, bool) {
	for i := len(c.named) - 1; i >= 0; i-- {
		if v, ok := c.named[i][name]; ok {
			return v, true
		}
	}
	return nil, false
}

// assign rebinds an existing name in whichever frame currently owns it. Returns false if
// the name isn't in scope. The `=` operator does not use it: lowerAssign stores into the
// variable's existing slot instead.
func (c *Context) assign(name string, slot ir.Value) bool {
	for i := len(c.named) - 1; i >= 0; i-- {
		if _, ok := c.named[i][name]; ok {
			c.named[i][name] = slot
			return true
		}
	}
	return false
}

// EmitAssembly renders the last lowered top-level node as QBE IR text. When codegen
// produced no function it returns the text recorded for the node instead (an extern's
// "Read extern: <name>" line), or "Error during compilation" when none was recorded.
func (c *Context) EmitAssembly() string {
	if c.LastFunc == nil {
		if c.lastFuncText != "" {
			return c.lastFuncText
		}
		return "Error during compilation\n"
	}
	return EmitIR(c.Prog)
}

func (c *Context) errorf(line, col int, format string, args ...interface{}) {
	util.Errorf(line, col, format, args...)
}

func (c *Context) fail(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
