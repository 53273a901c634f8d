package ir

import "testing"

func TestBuilderEmitsEntryBlockAlloca(t *testing.T) {
	prog := NewProgram()
	fn := &Func{Name: "f", Params: []*Param{{Name: "x", Typ: TypeD}}, ReturnType: TypeD}
	prog.Funcs = append(prog.Funcs, fn)

	b := NewBuilder(prog)
	b.SetFunc(fn)
	b.AppendBlock("entry")

	slot := b.CreateAlloc()
	b.CreateStore(slot, FloatConst{Value: 1})
	loaded := b.CreateLoad(slot)
	b.CreateRet(loaded)

	if len(fn.Blocks) != 1 {
		t.Fatalf("expected one block, got %d", len(fn.Blocks))
	}
	instrs := fn.Blocks[0].Instructions
	if len(instrs) != 4 {
		t.Fatalf("expected alloc+store+load+ret, got %d instructions", len(instrs))
	}
	if instrs[0].Op != OpAlloc || instrs[1].Op != OpStore || instrs[2].Op != OpLoad || instrs[3].Op != OpRet {
		t.Fatalf("unexpected instruction sequence: %+v", instrs)
	}
}

func TestBuilderTerminatedDetectsControlFlow(t *testing.T) {
	prog := NewProgram()
	fn := &Func{Name: "f", ReturnType: TypeD}
	prog.Funcs = append(prog.Funcs, fn)
	b := NewBuilder(prog)
	b.SetFunc(fn)
	b.AppendBlock("entry")

	if b.Terminated() {
		t.Fatalf("empty block should not report terminated")
	}
	b.CreateRet(FloatConst{Value: 0})
	if !b.Terminated() {
		t.Fatalf("block ending in ret should report terminated")
	}
}

func TestCreatePhiRecordsIncomingLabels(t *testing.T) {
	prog := NewProgram()
	fn := &Func{Name: "f", ReturnType: TypeD}
	prog.Funcs = append(prog.Funcs, fn)
	b := NewBuilder(prog)
	b.SetFunc(fn)

	thenBlock := b.AppendBlock("then")
	elseBlock := b.AppendBlock("else")
	merge := b.AppendBlock("merge")
	b.SetBlock(merge)

	phi := b.CreatePhi([]Value{FloatConst{Value: 1}, FloatConst{Value: 2}}, []*Label{thenBlock.Label, elseBlock.Label})
	if phi == nil {
		t.Fatalf("expected a phi result value")
	}
	instr := merge.Instructions[0]
	if instr.Op != OpPhi || len(instr.PhiLabels) != 2 {
		t.Fatalf("unexpected phi instruction: %+v", instr)
	}
}

func TestRemoveFunc(t *testing.T) {
	prog := NewProgram()
	prog.Funcs = append(prog.Funcs, &Func{Name: "a"}, &Func{Name: "b"})
	prog.RemoveFunc("a")
	if prog.FindFunc("a") != nil {
		t.Fatalf("expected a to be removed")
	}
	if prog.FindFunc("b") == nil {
		t.Fatalf("expected b to remain")
	}
}
