package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/kscope-lang/kscope/pkg/config"
	"github.com/kscope-lang/kscope/pkg/ir"
	"modernc.org/libqbe"
)

// printer walks an ir.Program and emits QBE's textual SSA syntax, then hands it to
// libqbe.Main to produce target assembly. There are no struct types or blits here, and no
// integer arithmetic beyond the word-sized comparison flags that `<` and the if/for
// truthiness tests produce.
type printer struct {
	out  *strings.Builder
	prog *ir.Program
}

// Generate takes a lowered Program and a Config and returns target assembly.
func Generate(prog *ir.Program, cfg *config.Config) (*bytes.Buffer, error) {
	p := &printer{out: &strings.Builder{}, prog: prog}
	p.gen()

	qbeIR := p.out.String()
	var asmBuf bytes.Buffer
	if err := libqbe.Main(cfg.BackendTarget, "module.ssa", strings.NewReader(qbeIR), &asmBuf, nil); err != nil {
		return nil, fmt.Errorf("QBE compilation failed for:\n%s\n\nlibqbe error: %w", qbeIR, err)
	}
	return &asmBuf, nil
}

// EmitIR returns the textual QBE IR without running it through libqbe, used by -emit-ir
// and by the golden-hash test harness in cmd/kgtest.
func EmitIR(prog *ir.Program) string {
	p := &printer{out: &strings.Builder{}, prog: prog}
	p.gen()
	return p.out.String()
}

func (p *printer) gen() {
	for _, fn := range p.prog.Funcs {
		if len(fn.Blocks) == 0 {
			continue
		}
		p.genFunc(fn)
	}
}

func (p *printer) genFunc(fn *ir.Func) {
	fmt.Fprintf(p.out, "\nexport function d $%s(", fn.Name)
	for i, param := range fn.Params {
		fmt.Fprintf(p.out, "d %%%s", param.Name)
		if i < len(fn.Params)-1 {
			p.out.WriteString(", ")
		}
	}
	p.out.WriteString(") {\n")
	for _, block := range fn.Blocks {
		p.genBlock(block)
	}
	p.out.WriteString("}\n")
}

func (p *printer) genBlock(block *ir.BasicBlock) {
	fmt.Fprintf(p.out, "%s\n", p.formatValue(*block.Label))
	for _, instr := range block.Instructions {
		p.genInstr(instr)
	}
}

func (p *printer) genInstr(instr *ir.Instruction) {
	p.out.WriteString("\t")
	switch instr.Op {
	case ir.OpAlloc:
		fmt.Fprintf(p.out, "%s =l alloc8 8\n", p.formatValue(instr.Result))
	case ir.OpLoad:
		fmt.Fprintf(p.out, "%s =d loadd %s\n", p.formatValue(instr.Result), p.formatValue(instr.Args[0]))
	case ir.OpStore:
		fmt.Fprintf(p.out, "stored %s, %s\n", p.formatValue(instr.Args[1]), p.formatValue(instr.Args[0]))
	case ir.OpAddF:
		p.genFBin("add", instr)
	case ir.OpSubF:
		p.genFBin("sub", instr)
	case ir.OpMulF:
		p.genFBin("mul", instr)
	case ir.OpDivF:
		p.genFBin("div", instr)
	case ir.OpCEqF:
		p.genCmp("ceqd", instr)
	case ir.OpCNeF:
		p.genCmp("cned", instr)
	case ir.OpCLtF:
		p.genCmp("cltd", instr)
	case ir.OpCGtF:
		p.genCmp("cgtd", instr)
	case ir.OpCLeF:
		p.genCmp("cled", instr)
	case ir.OpCGeF:
		p.genCmp("cged", instr)
	case ir.OpUWToF:
		fmt.Fprintf(p.out, "%s =d swtof %s\n", p.formatValue(instr.Result), p.formatValue(instr.Args[0]))
	case ir.OpJmp:
		fmt.Fprintf(p.out, "jmp %s\n", p.formatValue(instr.Args[0]))
	case ir.OpJnz:
		fmt.Fprintf(p.out, "jnz %s, %s, %s\n", p.formatValue(instr.Args[0]), p.formatValue(instr.Args[1]), p.formatValue(instr.Args[2]))
	case ir.OpRet:
		if len(instr.Args) > 0 {
			fmt.Fprintf(p.out, "ret %s\n", p.formatValue(instr.Args[0]))
		} else {
			p.out.WriteString("ret\n")
		}
	case ir.OpCall:
		p.genCall(instr)
	case ir.OpPhi:
		p.genPhi(instr)
	default:
		fmt.Fprintf(p.out, "# unhandled op %d\n", instr.Op)
	}
}

func (p *printer) genFBin(mnemonic string, instr *ir.Instruction) {
	fmt.Fprintf(p.out, "%s =d %s %s, %s\n", p.formatValue(instr.Result), mnemonic, p.formatValue(instr.Args[0]), p.formatValue(instr.Args[1]))
}

func (p *printer) genCmp(mnemonic string, instr *ir.Instruction) {
	fmt.Fprintf(p.out, "%s =w %s %s, %s\n", p.formatValue(instr.Result), mnemonic, p.formatValue(instr.Args[0]), p.formatValue(instr.Args[1]))
}

func (p *printer) genCall(instr *ir.Instruction) {
	callee := instr.Args[0]
	if instr.Result != nil {
		fmt.Fprintf(p.out, "%s =d call %s(", p.formatValue(instr.Result), p.formatValue(callee))
	} else {
		fmt.Fprintf(p.out, "call %s(", p.formatValue(callee))
	}
	for i, arg := range instr.Args[1:] {
		fmt.Fprintf(p.out, "d %s", p.formatValue(arg))
		if i < len(instr.Args)-2 {
			p.out.WriteString(", ")
		}
	}
	p.out.WriteString(")\n")
}

func (p *printer) genPhi(instr *ir.Instruction) {
	fmt.Fprintf(p.out, "%s =d phi ", p.formatValue(instr.Result))
	for i, incoming := range instr.Args {
		fmt.Fprintf(p.out, "%s %s", p.formatValue(*instr.PhiLabels[i]), p.formatValue(incoming))
		if i < len(instr.Args)-1 {
			p.out.WriteString(", ")
		}
	}
	p.out.WriteString("\n")
}

func (p *printer) formatValue(v ir.Value) string {
	switch val := v.(type) {
	case ir.FloatConst:
		return fmt.Sprintf("d_%g", val.Value)
	case ir.IntConst:
		return fmt.Sprintf("%d", val.Value)
	case ir.Global:
		return "$" + val.Name
	case ir.Temporary:
		return val.Name
	case ir.Label:
		return val.Name
	default:
		return ""
	}
}
