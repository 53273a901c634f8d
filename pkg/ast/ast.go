// Package ast defines the Kaleidoscope abstract syntax tree: a tagged union of expression
// nodes plus the two top-level nodes, Prototype and Function.
package ast

// NodeType is the tag of the union. The code generator switches on this rather than using
// double dispatch.
type NodeType int

const (
	Number NodeType = iota
	Variable
	Unary
	Binary
	Declaration
	Call
	If
	For
	Prototype
	Function
)

// Node is one AST node. Data holds the variant-specific payload (NumberNode, VariableNode,
// ...). Ownership is a strict tree: a parent exclusively owns its children.
type Node struct {
	Type NodeType
	Data interface{}
}

type NumberNode struct {
	Value float64
}

type VariableNode struct {
	Name string
}

type UnaryNode struct {
	Opcode  rune
	Operand *Node
}

type BinaryNode struct {
	Op    rune
	Left  *Node
	Right *Node
}

// Binding is one (name, optional initializer) pair inside a `var ... in ...` declaration.
type Binding struct {
	Name string
	Init *Node // nil means "default to 0.0"
}

type DeclarationNode struct {
	Bindings []Binding
	Body     *Node
}

type CallNode struct {
	Callee string
	Args   []*Node
}

type IfNode struct {
	Cond *Node
	Then *Node
	Else *Node // nil: no else clause; the parser rejects an if with no else
}

type ForNode struct {
	VarName string
	Start   *Node
	End     *Node
	Step    *Node
	Body    *Node
}

// AnonExprName is the reserved prototype name the parser/REPL wraps bare top-level
// expressions in, so they can be JIT-compiled and invoked like any other function.
const AnonExprName = "__anon_expr"

type PrototypeNode struct {
	Name       string
	Args       []string
	IsOperator bool
	Precedence int
}

// Clone deep-copies a PrototypeNode. pkg/codegen's prototype registry stores clones
// because their lifetime exceeds the AST they came from — they are re-emitted into every
// freshly initialized module.
func (p PrototypeNode) Clone() PrototypeNode {
	args := make([]string, len(p.Args))
	copy(args, p.Args)
	return PrototypeNode{Name: p.Name, Args: args, IsOperator: p.IsOperator, Precedence: p.Precedence}
}

type FunctionNode struct {
	Proto *Node // always a Prototype node
	Body  *Node
}

func NewNumber(v float64) *Node            { return &Node{Type: Number, Data: NumberNode{Value: v}} }
func NewVariable(name string) *Node        { return &Node{Type: Variable, Data: VariableNode{Name: name}} }
func NewUnary(op rune, operand *Node) *Node { return &Node{Type: Unary, Data: UnaryNode{Opcode: op, Operand: operand}} }
func NewBinary(op rune, l, r *Node) *Node   { return &Node{Type: Binary, Data: BinaryNode{Op: op, Left: l, Right: r}} }
func NewDeclaration(bindings []Binding, body *Node) *Node {
	return &Node{Type: Declaration, Data: DeclarationNode{Bindings: bindings, Body: body}}
}
func NewCall(callee string, args []*Node) *Node { return &Node{Type: Call, Data: CallNode{Callee: callee, Args: args}} }
func NewIf(cond, then, els *Node) *Node          { return &Node{Type: If, Data: IfNode{Cond: cond, Then: then, Else: els}} }
func NewFor(varName string, start, end, step, body *Node) *Node {
	return &Node{Type: For, Data: ForNode{VarName: varName, Start: start, End: end, Step: step, Body: body}}
}
func NewPrototype(name string, args []string, isOperator bool, precedence int) *Node {
	return &Node{Type: Prototype, Data: PrototypeNode{Name: name, Args: args, IsOperator: isOperator, Precedence: precedence}}
}
func NewFunction(proto, body *Node) *Node { return &Node{Type: Function, Data: FunctionNode{Proto: proto, Body: body}} }

// OperatorName extracts the operator rune from a user-defined operator's mangled name
// (e.g. "binary|" -> '|').
func (p PrototypeNode) OperatorName() rune {
	if !p.IsOperator {
		return 0
	}
	return rune(p.Name[len(p.Name)-1])
}
