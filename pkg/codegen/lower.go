package codegen

import (
	"github.com/kscope-lang/kscope/pkg/ast"
	"github.com/kscope-lang/kscope/pkg/ir"
)

// LowerExpr lowers one expression node into the current block, returning the ir.Value
// it produces: Number, Variable, Unary, Binary, Declaration, Call, If, For.
func (c *Context) LowerExpr(node *ast.Node) (ir.Value, bool) {
	if node == nil {
		return ir.FloatConst{Value: 0}, true
	}
	switch node.Type {
	case ast.Number:
		return c.lowerNumber(node)
	case ast.Variable:
		return c.lowerVariable(node)
	case ast.Unary:
		return c.lowerUnary(node)
	case ast.Binary:
		return c.lowerBinary(node)
	case ast.Declaration:
		return c.lowerDeclaration(node)
	case ast.Call:
		return c.lowerCall(node)
	case ast.If:
		return c.lowerIf(node)
	case ast.For:
		return c.lowerFor(node)
	default:
		c.errorf(0, 0, "unexpected node in expression position")
		return nil, false
	}
}

func (c *Context) lowerNumber(node *ast.Node) (ir.Value, bool) {
	n := node.Data.(ast.NumberNode)
	return ir.FloatConst{Value: n.Value}, true
}

func (c *Context) lowerVariable(node *ast.Node) (ir.Value, bool) {
	v := node.Data.(ast.VariableNode)
	slot, ok := c.lookup(v.Name)
	if !ok {
		c.errorf(0, 0, "unknown variable name '%s'", v.Name)
		return nil, false
	}
	return c.Builder.CreateLoad(slot), true
}

// lowerUnary dispatches to a user-defined `unary<op>` function; Kaleidoscope has no
// built-in unary operators other than the user-definable ones.
func (c *Context) lowerUnary(node *ast.Node) (ir.Value, bool) {
	u := node.Data.(ast.UnaryNode)
	operand, ok := c.LowerExpr(u.Operand)
	if !ok {
		return nil, false
	}
	name := "unary" + string(u.Opcode)
	if _, exists := c.Prototypes[name]; !exists {
		c.errorf(0, 0, "unknown unary operator")
		return nil, false
	}
	return c.Builder.CreateCall(name, []ir.Value{operand}), true
}

// lowerBinary handles assignment (`=`), the built-in arithmetic/comparison operators,
// and falls back to a user-defined `binary<op>` function call for anything else.
func (c *Context) lowerBinary(node *ast.Node) (ir.Value, bool) {
	b := node.Data.(ast.BinaryNode)

	if b.Op == '=' {
		return c.lowerAssign(b)
	}

	lhs, ok := c.LowerExpr(b.Left)
	if !ok {
		return nil, false
	}
	rhs, ok := c.LowerExpr(b.Right)
	if !ok {
		return nil, false
	}

	switch b.Op {
	case '+':
		return c.Builder.CreateFAdd(lhs, rhs), true
	case '-':
		return c.Builder.CreateFSub(lhs, rhs), true
	case '*':
		return c.Builder.CreateFMul(lhs, rhs), true
	case '/':
		return c.Builder.CreateFDiv(lhs, rhs), true
	case '<':
		return c.Builder.CreateBoolToF(c.Builder.CreateFCmpLT(lhs, rhs)), true
	}

	name := "binary" + string(b.Op)
	if _, exists := c.Prototypes[name]; !exists {
		c.errorf(0, 0, "invalid binary operator")
		return nil, false
	}
	return c.Builder.CreateCall(name, []ir.Value{lhs, rhs}), true
}

// lowerAssign requires an lvalue on the left (a bare Variable node); it stores the rhs
// into that variable's existing slot and yields the stored value, like C's `=`.
func (c *Context) lowerAssign(b ast.BinaryNode) (ir.Value, bool) {
	target, ok := b.Left.Data.(ast.VariableNode)
	if !ok {
		c.errorf(0, 0, "destination of '=' must be a variable")
		return nil, false
	}
	slot, ok := c.lookup(target.Name)
	if !ok {
		c.errorf(0, 0, "unknown variable name '%s'", target.Name)
		return nil, false
	}
	val, ok := c.LowerExpr(b.Right)
	if !ok {
		return nil, false
	}
	c.Builder.CreateStore(slot, val)
	return val, true
}

// lowerDeclaration handles `var a = 1, b in body`: each binding gets a fresh entry-block
// alloca, shadowing any outer binding of the same name for the extent of body, then the
// shadow is undone on the way out.
func (c *Context) lowerDeclaration(node *ast.Node) (ir.Value, bool) {
	d := node.Data.(ast.DeclarationNode)
	c.pushScope()
	defer c.popScope()

	for _, binding := range d.Bindings {
		var init ir.Value = ir.FloatConst{Value: 0}
		if binding.Init != nil {
			v, ok := c.LowerExpr(binding.Init)
			if !ok {
				return nil, false
			}
			init = v
		}
		slot := c.allocEntry()
		c.Builder.CreateStore(slot, init)
		c.declare(binding.Name, slot)
	}
	return c.LowerExpr(d.Body)
}

func (c *Context) lowerCall(node *ast.Node) (ir.Value, bool) {
	call := node.Data.(ast.CallNode)
	proto, ok := c.getFunction(call.Callee)
	if !ok {
		c.errorf(0, 0, "unknown function referenced '%s'", call.Callee)
		return nil, false
	}
	p := proto.Data.(ast.PrototypeNode)
	if len(p.Args) != len(call.Args) {
		c.errorf(0, 0, "incorrect number of arguments passed to '%s'", call.Callee)
		return nil, false
	}
	args := make([]ir.Value, len(call.Args))
	for i, a := range call.Args {
		v, ok := c.LowerExpr(a)
		if !ok {
			return nil, false
		}
		args[i] = v
	}
	return c.Builder.CreateCall(call.Callee, args), true
}

// lowerIf requires both arms: an omitted else is reported as an error (by the parser, and
// again here), not lowered as an implicit 0.0. It lowers to a cond-branch plus a merge-block phi, the SSA equivalent of a
// basic-block-per-arm pattern.
func (c *Context) lowerIf(node *ast.Node) (ir.Value, bool) {
	i := node.Data.(ast.IfNode)
	if i.Else == nil {
		c.errorf(0, 0, "Omitted Else are not supported yet")
		return nil, false
	}

	condRaw, ok := c.LowerExpr(i.Cond)
	if !ok {
		return nil, false
	}
	cond := c.Builder.CreateFCmpNE(condRaw, ir.FloatConst{Value: 0})

	startBlock := c.Builder.Block

	thenLabel := c.Builder.AppendBlock("then")
	thenVal, ok := c.LowerExpr(i.Then)
	if !ok {
		return nil, false
	}
	thenEnd := c.Builder.Block

	elseLabel := c.Builder.AppendBlock("else")
	elseVal, ok := c.LowerExpr(i.Else)
	if !ok {
		return nil, false
	}
	elseEnd := c.Builder.Block

	mergeLabel := c.Builder.AppendBlock("ifcont")

	c.Builder.SetBlock(startBlock)
	c.Builder.CreateCondBr(cond, thenLabel.Label, elseLabel.Label)

	c.Builder.SetBlock(thenEnd)
	if !c.Builder.Terminated() {
		c.Builder.CreateJmp(mergeLabel.Label)
	}
	c.Builder.SetBlock(elseEnd)
	if !c.Builder.Terminated() {
		c.Builder.CreateJmp(mergeLabel.Label)
	}

	c.Builder.SetBlock(mergeLabel)
	return c.Builder.CreatePhi([]ir.Value{thenVal, elseVal}, []*ir.Label{thenEnd.Label, elseEnd.Label}), true
}

// lowerFor lowers the canonical Kaleidoscope counted loop: an entry-block alloca for the
// induction variable, a latch that increments it by `step` (default 1), and an exit test
// evaluated after each iteration's body and increment, so the body always runs at least
// once and `end` sees the updated variable.
func (c *Context) lowerFor(node *ast.Node) (ir.Value, bool) {
	f := node.Data.(ast.ForNode)

	start, ok := c.LowerExpr(f.Start)
	if !ok {
		return nil, false
	}
	slot := c.allocEntry()
	c.Builder.CreateStore(slot, start)

	c.pushScope()
	defer c.popScope()
	c.declare(f.VarName, slot)

	preheader := c.Builder.Block
	loopLabel := c.Builder.AppendBlock("loop")
	c.Builder.SetBlock(preheader)
	c.Builder.CreateJmp(loopLabel.Label)
	c.Builder.SetBlock(loopLabel)

	if _, ok := c.LowerExpr(f.Body); !ok {
		return nil, false
	}

	var step ir.Value = ir.FloatConst{Value: 1}
	if f.Step != nil {
		v, ok := c.LowerExpr(f.Step)
		if !ok {
			return nil, false
		}
		step = v
	}
	cur := c.Builder.CreateLoad(slot)
	next := c.Builder.CreateFAdd(cur, step)
	c.Builder.CreateStore(slot, next)

	end, ok := c.LowerExpr(f.End)
	if !ok {
		return nil, false
	}
	cond := c.Builder.CreateFCmpNE(end, ir.FloatConst{Value: 0})

	loopEnd := c.Builder.Block
	afterLabel := c.Builder.AppendBlock("afterloop")
	c.Builder.SetBlock(loopEnd)
	c.Builder.CreateCondBr(cond, loopLabel.Label, afterLabel.Label)
	c.Builder.SetBlock(afterLabel)

	return ir.FloatConst{Value: 0}, true
}

// allocEntry reserves a stack slot in the current function's entry block, regardless of
// where the Builder's insertion point currently is — the mem2reg pass only considers
// allocas that live there.
func (c *Context) allocEntry() ir.Value {
	saved := c.Builder.Block
	c.Builder.SetBlock(c.Builder.Func.Blocks[0])
	slot := c.Builder.CreateAlloc()
	c.Builder.SetBlock(saved)
	return slot
}
