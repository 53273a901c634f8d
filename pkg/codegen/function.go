package codegen

import (
	"github.com/kscope-lang/kscope/pkg/ast"
	"github.com/kscope-lang/kscope/pkg/ir"
)

// LowerTopLevel dispatches a single top-level node: a Prototype (extern) or a Function
// (def, or the __anon_expr wrapper around a bare expression). Callers (pkg/jit) call
// BeginTopLevel first.
func (c *Context) LowerTopLevel(node *ast.Node) bool {
	topLevel := c.consumeJITTopLevel()
	switch node.Type {
	case ast.Prototype:
		ok := c.lowerPrototype(node)
		if topLevel {
			c.LastFunc = nil
			if ok {
				c.lastFuncText = "Read extern: " + node.Data.(ast.PrototypeNode).Name + "\n"
			} else {
				c.lastFuncText = ""
			}
		}
		return ok
	case ast.Function:
		return c.lowerFunction(node, topLevel)
	default:
		c.errorf(0, 0, "expected a top-level definition or extern")
		return false
	}
}

// getFunction resolves a callee by name: if it's already known in the current module
// (either a real definition or an extern/re-declared prototype), return it; otherwise
// record it from the Prototypes registry by visiting the Prototype node again, not by
// hand-building a declaration inline.
func (c *Context) getFunction(name string) (*ast.Node, bool) {
	proto, ok := c.Prototypes[name]
	if !ok {
		return nil, false
	}
	if c.Prog.FindFunc(name) == nil {
		if _, known := c.Prog.ExternFunc[name]; !known {
			if !c.lowerPrototype(proto) {
				return nil, false
			}
		}
	}
	return proto, true
}

// lowerPrototype records an extern or cross-module re-declared prototype. It does not
// append anything to Prog.Funcs: a prototype with no body is not a function definition,
// and QBE needs no forward declaration to call $name — the symbol is resolved at link
// time against whichever module actually defines it.
func (c *Context) lowerPrototype(node *ast.Node) bool {
	p := node.Data.(ast.PrototypeNode)

	c.Prototypes[p.Name] = &ast.Node{Type: ast.Prototype, Data: p.Clone()}
	c.Prog.ExternFunc[p.Name] = len(p.Args)
	return true
}

// lowerFunction lowers a def (or the synthetic __anon_expr wrapper): declares the
// prototype, opens an entry block, stores each parameter into a fresh alloca so the body
// can treat parameters and `var` locals identically, then lowers the body and emits ret.
func (c *Context) lowerFunction(node *ast.Node, wasTopLevel bool) bool {
	fn := node.Data.(ast.FunctionNode)
	proto := fn.Proto.Data.(ast.PrototypeNode)

	// Redefining a name is allowed, the same way a REPL session lets you `def` over an
	// earlier definition: each top-level node gets its own fresh module (ResetModule), so
	// the new body simply becomes what getFunction resolves to from here on.
	c.Prototypes[proto.Name] = &ast.Node{Type: ast.Prototype, Data: proto.Clone()}

	params := make([]*ir.Param, len(proto.Args))
	for i, name := range proto.Args {
		params[i] = &ir.Param{Name: name, Typ: ir.TypeD}
	}
	irFn := &ir.Func{Name: proto.Name, Params: params, ReturnType: ir.TypeD}
	c.Prog.Funcs = append(c.Prog.Funcs, irFn)

	c.Builder.SetFunc(irFn)
	c.Builder.AppendBlock("entry")

	// Each parameter arrives as an SSA value named after itself; copy it into a fresh
	// entry-block alloca so the body can reassign it (for a `for` loop variable or a `=`
	// target) identically to a `var` local.
	c.pushScope()
	for _, name := range proto.Args {
		slot := c.Builder.CreateAlloc()
		c.Builder.CreateStore(slot, ir.Temporary{Name: "%" + name})
		c.declare(name, slot)
	}

	val, ok := c.LowerExpr(fn.Body)
	c.popScope()

	if !ok {
		c.Prog.RemoveFunc(proto.Name)
		if wasTopLevel {
			c.LastFunc = nil
			c.lastFuncText = "Error during compilation\n"
		}
		return false
	}

	if !c.Builder.Terminated() {
		c.Builder.CreateRet(val)
	}
	c.passes.run(irFn)

	if wasTopLevel {
		c.LastFunc = irFn
	}
	c.LastValue = val
	return true
}
