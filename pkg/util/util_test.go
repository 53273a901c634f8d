package util

import "testing"

func TestErrorfRecordsAndHadErrors(t *testing.T) {
	Reset()
	if HadErrors() {
		t.Fatalf("fresh log should report no errors")
	}
	Errorf(1, 2, "boom %d", 42)
	if !HadErrors() {
		t.Fatalf("expected HadErrors after Errorf")
	}
	diags := Diagnostics()
	if len(diags) != 1 || diags[0].Message != "boom 42" {
		t.Fatalf("unexpected diagnostics: %+v", diags)
	}
}

func TestWarnfDoesNotCountAsError(t *testing.T) {
	Reset()
	Warnf(3, 4, "heads up")
	if HadErrors() {
		t.Fatalf("a warning alone should not trip HadErrors")
	}
	if len(Diagnostics()) != 1 {
		t.Fatalf("expected one diagnostic")
	}
}

func TestResetClearsLog(t *testing.T) {
	Errorf(0, 0, "x")
	Reset()
	if len(Diagnostics()) != 0 {
		t.Fatalf("expected empty log after Reset")
	}
}
