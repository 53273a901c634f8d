package ast

import "testing"

func TestPrototypeCloneIsIndependent(t *testing.T) {
	orig := PrototypeNode{Name: "f", Args: []string{"x", "y"}}
	clone := orig.Clone()
	clone.Args[0] = "z"
	if orig.Args[0] != "x" {
		t.Fatalf("Clone should deep-copy Args, mutating the clone changed the original: %v", orig.Args)
	}
}

func TestOperatorNameOnlyForOperators(t *testing.T) {
	plain := PrototypeNode{Name: "foo"}
	if plain.OperatorName() != 0 {
		t.Fatalf("expected 0 for a non-operator prototype")
	}
	op := PrototypeNode{Name: "binary|", IsOperator: true}
	if op.OperatorName() != '|' {
		t.Fatalf("expected '|' as the operator symbol, got %q", op.OperatorName())
	}
}

func TestNewBinaryShape(t *testing.T) {
	node := NewBinary('+', NewNumber(1), NewNumber(2))
	b := node.Data.(BinaryNode)
	if b.Op != '+' {
		t.Fatalf("expected '+' operator")
	}
	if b.Left.Data.(NumberNode).Value != 1 || b.Right.Data.(NumberNode).Value != 2 {
		t.Fatalf("unexpected operands: %+v", b)
	}
}
