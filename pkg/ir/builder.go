package ir

// Builder accumulates instructions into the current basic block of the current function,
// the same insertion-point model llvm::IRBuilder uses. pkg/codegen owns exactly one Builder
// per module and repositions it (SetBlock) as it walks into new basic blocks.
type Builder struct {
	Prog  *Program
	Func  *Func
	Block *BasicBlock
}

func NewBuilder(prog *Program) *Builder { return &Builder{Prog: prog} }

func (b *Builder) SetFunc(f *Func) { b.Func = f }

// AppendBlock creates a new basic block, appends it to the current function, and makes it
// the insertion point.
func (b *Builder) AppendBlock(hint string) *BasicBlock {
	block := &BasicBlock{Label: b.Prog.NewLabel(hint)}
	b.Func.Blocks = append(b.Func.Blocks, block)
	b.Block = block
	return block
}

func (b *Builder) SetBlock(block *BasicBlock) { b.Block = block }

func (b *Builder) emit(inst *Instruction) Value {
	b.Block.Instructions = append(b.Block.Instructions, inst)
	return inst.Result
}

// CreateAlloc reserves a stack slot for a double. All allocas must be emitted into the
// function's entry block so the codegen package's mem2reg pass can promote them; callers
// are responsible for positioning the Builder there first.
func (b *Builder) CreateAlloc() Value {
	t := b.Prog.NewTemp()
	b.emit(&Instruction{Op: OpAlloc, Typ: TypePtr, Result: t})
	return t
}

func (b *Builder) CreateLoad(slot Value) Value {
	t := b.Prog.NewTemp()
	b.emit(&Instruction{Op: OpLoad, Typ: TypeD, Result: t, Args: []Value{slot}})
	return t
}

func (b *Builder) CreateStore(slot, val Value) {
	b.emit(&Instruction{Op: OpStore, Typ: TypeD, Args: []Value{slot, val}})
}

func (b *Builder) createFBinOp(op Op, l, r Value) Value {
	t := b.Prog.NewTemp()
	b.emit(&Instruction{Op: op, Typ: TypeD, Result: t, Args: []Value{l, r}})
	return t
}

func (b *Builder) CreateFAdd(l, r Value) Value { return b.createFBinOp(OpAddF, l, r) }
func (b *Builder) CreateFSub(l, r Value) Value { return b.createFBinOp(OpSubF, l, r) }
func (b *Builder) CreateFMul(l, r Value) Value { return b.createFBinOp(OpMulF, l, r) }
func (b *Builder) CreateFDiv(l, r Value) Value { return b.createFBinOp(OpDivF, l, r) }

func (b *Builder) CreateFNeg(v Value) Value {
	return b.createFBinOp(OpSubF, FloatConst{Value: 0}, v)
}

// createFCmp emits the comparison as a word-typed flag; CreateBoolToF promotes it back
// to a double 0.0/1.0, mirroring the original's fcmp+uitofp pair.
func (b *Builder) createFCmp(op Op, l, r Value) Value {
	t := b.Prog.NewTemp()
	b.emit(&Instruction{Op: op, Typ: TypeW, Result: t, Args: []Value{l, r}})
	return t
}

func (b *Builder) CreateFCmpEQ(l, r Value) Value { return b.createFCmp(OpCEqF, l, r) }
func (b *Builder) CreateFCmpNE(l, r Value) Value { return b.createFCmp(OpCNeF, l, r) }
func (b *Builder) CreateFCmpLT(l, r Value) Value { return b.createFCmp(OpCLtF, l, r) }
func (b *Builder) CreateFCmpGT(l, r Value) Value { return b.createFCmp(OpCGtF, l, r) }
func (b *Builder) CreateFCmpLE(l, r Value) Value { return b.createFCmp(OpCLeF, l, r) }
func (b *Builder) CreateFCmpGE(l, r Value) Value { return b.createFCmp(OpCGeF, l, r) }

func (b *Builder) CreateBoolToF(flag Value) Value {
	t := b.Prog.NewTemp()
	b.emit(&Instruction{Op: OpUWToF, Typ: TypeD, Result: t, Args: []Value{flag}})
	return t
}

func (b *Builder) CreateCall(callee string, args []Value) Value {
	t := b.Prog.NewTemp()
	allArgs := append([]Value{Global{Name: callee}}, args...)
	b.emit(&Instruction{Op: OpCall, Typ: TypeD, Result: t, Args: allArgs})
	return t
}

func (b *Builder) CreateRet(v Value) {
	b.emit(&Instruction{Op: OpRet, Args: []Value{v}})
}

func (b *Builder) CreateJmp(target *Label) {
	b.emit(&Instruction{Op: OpJmp, Args: []Value{*target}})
}

func (b *Builder) CreateCondBr(cond Value, thenL, elseL *Label) {
	b.emit(&Instruction{Op: OpJnz, Args: []Value{cond, *thenL, *elseL}})
}

// CreatePhi emits a phi node merging values from the given predecessor blocks, in the
// same order. This stands in for the entry-block-alloca/load pattern when a merge point
// needs a value directly (e.g. the if/else merge block).
func (b *Builder) CreatePhi(incoming []Value, labels []*Label) Value {
	t := b.Prog.NewTemp()
	b.emit(&Instruction{Op: OpPhi, Typ: TypeD, Result: t, Args: incoming, PhiLabels: labels})
	return t
}

// Terminated reports whether the current block already ends in a control-flow
// instruction, so callers don't append a second terminator (e.g. after an if/else whose
// both arms already jumped to the merge block).
func (b *Builder) Terminated() bool {
	if len(b.Block.Instructions) == 0 {
		return false
	}
	switch b.Block.Instructions[len(b.Block.Instructions)-1].Op {
	case OpRet, OpJmp, OpJnz:
		return true
	default:
		return false
	}
}
