package codegen

import (
	"strings"
	"testing"

	"github.com/kscope-lang/kscope/pkg/config"
)

func TestDebugModeSkipsOptimization(t *testing.T) {
	ir, diags := lowerSourceWithConfig(t, "1 + 2*3;", &config.Config{Debug: true})
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if !strings.Contains(ir, "mul") || !strings.Contains(ir, "add") {
		t.Fatalf("expected unoptimized mul/add instructions in debug mode:\n%s", ir)
	}
}

func TestOptPassesFoldConstantArithmetic(t *testing.T) {
	cfg := &config.Config{OptPasses: DefaultOptPasses}
	ir, diags := lowerSourceWithConfig(t, "1 + 2*3;", cfg)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if strings.Contains(ir, "mul") || strings.Contains(ir, "add") {
		t.Fatalf("expected constant folding to remove mul/add entirely:\n%s", ir)
	}
	if !strings.Contains(ir, "ret d_7") {
		t.Fatalf("expected the folded constant 7 in the ret instruction:\n%s", ir)
	}
}

func TestOptPassesPromoteUnmutatedAllocas(t *testing.T) {
	cfg := &config.Config{OptPasses: DefaultOptPasses}
	ir, diags := lowerSourceWithConfig(t, "def f(x) x+1; f(2);", cfg)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if strings.Contains(ir, "alloc8") {
		t.Fatalf("expected mem2reg to promote the single-store parameter slot away:\n%s", ir)
	}
	if !strings.Contains(ir, "add") {
		t.Fatalf("expected the add over the promoted parameter to survive:\n%s", ir)
	}
}

func TestOptPassesKeepReassignedAllocasOnTheStack(t *testing.T) {
	cfg := &config.Config{OptPasses: DefaultOptPasses}
	ir, diags := lowerSourceWithConfig(t, "def f() for i = 1, i < 3, 1 in i; f();", cfg)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if !strings.Contains(ir, "alloc8") {
		t.Fatalf("expected the multiply-stored loop induction variable to stay on the stack:\n%s", ir)
	}
}

func TestOptPassesDeduplicateRepeatedSubexpression(t *testing.T) {
	cfg := &config.Config{OptPasses: DefaultOptPasses}
	ir, diags := lowerSourceWithConfig(t, "def f(x) (x+1)-(x+1); f(2);", cfg)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if strings.Count(ir, "add") != 1 {
		t.Fatalf("expected gvn to dedupe the repeated x+1 subexpression down to one add:\n%s", ir)
	}
}

func TestOptPassesUnknownNameIsIgnored(t *testing.T) {
	cfg := &config.Config{OptPasses: []string{"not-a-real-pass"}}
	ir, diags := lowerSourceWithConfig(t, "1 + 2*3;", cfg)
	if len(diags) != 0 {
		t.Fatalf("unexpected diagnostics: %v", diags)
	}
	if !strings.Contains(ir, "mul") || !strings.Contains(ir, "add") {
		t.Fatalf("expected an unrecognized pass name to leave IR untouched:\n%s", ir)
	}
}
