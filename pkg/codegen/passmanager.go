package codegen

import (
	"fmt"

	"github.com/kscope-lang/kscope/pkg/ir"
)

// DefaultOptPasses is the canonical, ordered pass pipeline run over every function body
// in non-debug mode. A Config may override the list to run a subset, or none.
var DefaultOptPasses = []string{"mem2reg", "instcombine", "reassociate", "gvn", "simplifycfg"}

// passManager runs a named, ordered sequence of function passes, the same role
// llvm::legacy::FunctionPassManager plays around the original's codegen: built once per
// Context and reused for every module, debug mode skips it entirely so the emitted IR reflects exactly what the
// lowering rules produced.
type passManager struct {
	debug bool
	names []string
}

func newPassManager(debug bool, names []string) *passManager {
	return &passManager{debug: debug, names: names}
}

// run applies the configured passes, in order, to a function that has just finished
// lowering (body complete, terminator emitted). Unknown pass names are ignored rather
// than rejected, so a Config carrying a future pass name degrades gracefully.
func (pm *passManager) run(fn *ir.Func) {
	if pm.debug {
		return
	}
	for _, name := range pm.names {
		switch name {
		case "mem2reg":
			mem2reg(fn)
		case "instcombine":
			instcombine(fn)
		case "reassociate":
			reassociate(fn)
		case "gvn":
			gvn(fn)
		case "simplifycfg":
			simplifyCFG(fn)
		}
	}
}

// resultKey returns an instruction's result as a substitution-map key, or false for a
// void instruction (store, jmp, jnz, ret) whose Result is a nil Value.
func resultKey(instr *ir.Instruction) (string, bool) {
	if instr.Result == nil {
		return "", false
	}
	return instr.Result.String(), true
}

// valueKey distinguishes constants by their actual value, unlike Value.String() (which
// FloatConst/IntConst deliberately leave blank — formatValue in printer.go renders their
// text, not String()). Used wherever a pass needs to compare two values for equality.
func valueKey(v ir.Value) string {
	switch val := v.(type) {
	case ir.FloatConst:
		return fmt.Sprintf("f%g", val.Value)
	case ir.IntConst:
		return fmt.Sprintf("i%d", val.Value)
	case ir.Global:
		return "g:" + val.Name
	case ir.Temporary:
		return "t:" + val.Name
	case ir.Label:
		return "l:" + val.Name
	default:
		return ""
	}
}

// substituteArgs rewrites every Temporary argument of instr that subst has a replacement
// for. Constants, globals, and labels never appear as substitution keys, since only a
// promoted alloca's loads (mem2reg) or a folded/deduped instruction's result
// (instcombine, gvn) ever get an entry.
func substituteArgs(instr *ir.Instruction, subst map[string]ir.Value) {
	for i, a := range instr.Args {
		if t, ok := a.(ir.Temporary); ok {
			if v, ok := subst[t.Name]; ok {
				instr.Args[i] = v
			}
		}
	}
}

// mem2reg promotes an alloca to a pure SSA value when the function stores to it exactly
// once: every unreassigned parameter and non-mutated `var` binding qualifies, since
// lowerFunction/lowerDeclaration each emit exactly one CreateStore per slot at the point
// the value becomes available. A `for` loop's induction variable (stored once in the
// preheader, again every latch) and anything rebound with `=` store more than once and
// are left on the stack.
func mem2reg(fn *ir.Func) {
	isAlloc := map[string]bool{}
	storeCount := map[string]int{}
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			switch instr.Op {
			case ir.OpAlloc:
				if k, ok := resultKey(instr); ok {
					isAlloc[k] = true
				}
			case ir.OpStore:
				storeCount[instr.Args[0].String()]++
			}
		}
	}

	promotable := map[string]bool{}
	for slot := range isAlloc {
		if storeCount[slot] == 1 {
			promotable[slot] = true
		}
	}
	if len(promotable) == 0 {
		return
	}

	subst := map[string]ir.Value{}
	storedValue := map[string]ir.Value{}
	for _, b := range fn.Blocks {
		kept := b.Instructions[:0]
		for _, instr := range b.Instructions {
			switch instr.Op {
			case ir.OpAlloc:
				if k, ok := resultKey(instr); ok && promotable[k] {
					continue
				}
			case ir.OpStore:
				slot := instr.Args[0].String()
				if promotable[slot] {
					substituteArgs(instr, subst)
					storedValue[slot] = instr.Args[1]
					continue
				}
			case ir.OpLoad:
				slot := instr.Args[0].String()
				if promotable[slot] {
					if k, ok := resultKey(instr); ok {
						subst[k] = storedValue[slot]
					}
					continue
				}
			}
			substituteArgs(instr, subst)
			kept = append(kept, instr)
		}
		b.Instructions = kept
	}
}

// instcombine folds a binary float instruction whose operands are both already constant,
// substituting the folded constant into every later reference to its result. Division by
// zero is left alone instead of folding silently into Inf/NaN.
func instcombine(fn *ir.Func) {
	subst := map[string]ir.Value{}
	for _, b := range fn.Blocks {
		kept := b.Instructions[:0]
		for _, instr := range b.Instructions {
			substituteArgs(instr, subst)
			if folded, ok := foldConst(instr); ok {
				if k, ok := resultKey(instr); ok {
					subst[k] = folded
				}
				continue
			}
			kept = append(kept, instr)
		}
		b.Instructions = kept
	}
}

func foldConst(instr *ir.Instruction) (ir.Value, bool) {
	if len(instr.Args) != 2 {
		return nil, false
	}
	a, aok := instr.Args[0].(ir.FloatConst)
	b, bok := instr.Args[1].(ir.FloatConst)
	if !aok || !bok {
		return nil, false
	}
	switch instr.Op {
	case ir.OpAddF:
		return ir.FloatConst{Value: a.Value + b.Value}, true
	case ir.OpSubF:
		return ir.FloatConst{Value: a.Value - b.Value}, true
	case ir.OpMulF:
		return ir.FloatConst{Value: a.Value * b.Value}, true
	case ir.OpDivF:
		if b.Value == 0 {
			return nil, false
		}
		return ir.FloatConst{Value: a.Value / b.Value}, true
	}
	return nil, false
}

// reassociate canonicalizes commutative float ops so a constant operand always sits on
// the right. This exposes constant-folding opportunities instcombine's single earlier
// pass could miss (an expression built as `const + temp` rather than `temp + const`) and
// gives gvn's later pass a stable key regardless of how the source wrote the operands.
func reassociate(fn *ir.Func) {
	for _, b := range fn.Blocks {
		for _, instr := range b.Instructions {
			if instr.Op != ir.OpAddF && instr.Op != ir.OpMulF {
				continue
			}
			if len(instr.Args) != 2 {
				continue
			}
			_, lhsConst := instr.Args[0].(ir.FloatConst)
			_, rhsConst := instr.Args[1].(ir.FloatConst)
			if lhsConst && !rhsConst {
				instr.Args[0], instr.Args[1] = instr.Args[1], instr.Args[0]
			}
		}
	}
}

// gvn is local value numbering: within a single block, a second occurrence of the same
// pure operation over the same operands is replaced by a reference to the first one's
// result. It stops at block boundaries rather than attempting a full dominance-based
// numbering — proving a definition in one block dominates a use in another needs the CFG
// analysis this pass doesn't build.
func gvn(fn *ir.Func) {
	for _, b := range fn.Blocks {
		seen := map[string]ir.Value{}
		subst := map[string]ir.Value{}
		kept := b.Instructions[:0]
		for _, instr := range b.Instructions {
			substituteArgs(instr, subst)
			key, isPure := pureKey(instr)
			if isPure {
				if prior, ok := seen[key]; ok {
					if k, ok := resultKey(instr); ok {
						subst[k] = prior
					}
					continue
				}
			}
			kept = append(kept, instr)
			if isPure {
				if instr.Result != nil {
					seen[key] = instr.Result
				}
			}
		}
		b.Instructions = kept
	}
}

func pureKey(instr *ir.Instruction) (string, bool) {
	switch instr.Op {
	case ir.OpAddF, ir.OpSubF, ir.OpMulF, ir.OpDivF,
		ir.OpCEqF, ir.OpCNeF, ir.OpCLtF, ir.OpCGtF, ir.OpCLeF, ir.OpCGeF:
		if len(instr.Args) != 2 {
			return "", false
		}
		return fmt.Sprintf("%d|%s|%s", instr.Op, valueKey(instr.Args[0]), valueKey(instr.Args[1])), true
	case ir.OpUWToF:
		if len(instr.Args) != 1 {
			return "", false
		}
		return fmt.Sprintf("%d|%s", instr.Op, valueKey(instr.Args[0])), true
	}
	return "", false
}

// simplifyCFG removes any block the entry block's terminators can never reach.
func simplifyCFG(fn *ir.Func) {
	if len(fn.Blocks) == 0 {
		return
	}
	byLabel := map[string]*ir.BasicBlock{}
	for _, b := range fn.Blocks {
		byLabel[b.Label.Name] = b
	}

	reachable := map[string]bool{fn.Blocks[0].Label.Name: true}
	queue := []*ir.BasicBlock{fn.Blocks[0]}
	for len(queue) > 0 {
		b := queue[0]
		queue = queue[1:]
		for _, instr := range b.Instructions {
			var targets []string
			switch instr.Op {
			case ir.OpJmp:
				targets = []string{instr.Args[0].String()}
			case ir.OpJnz:
				targets = []string{instr.Args[1].String(), instr.Args[2].String()}
			}
			for _, t := range targets {
				if reachable[t] {
					continue
				}
				reachable[t] = true
				if next, ok := byLabel[t]; ok {
					queue = append(queue, next)
				}
			}
		}
	}

	kept := fn.Blocks[:0]
	for _, b := range fn.Blocks {
		if reachable[b.Label.Name] {
			kept = append(kept, b)
		}
	}
	fn.Blocks = kept
}
