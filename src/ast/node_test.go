package ast

import (
	"testing"

	"clc/src/token"
)

func TestNewExprCarriesOperatorAndChildren(t *testing.T) {
	lhs := NewLeaf(Identifier, token.Token{Kind: token.Identifier, Data: "a"})
	rhs := NewLeaf(IntegerLiteral, token.Token{Kind: token.Integer, Data: "1"})
	n := NewExpr(Add, lhs, rhs)
	if n.Kind != Expression {
		t.Fatalf("expected Kind Expression, got %s", n.Kind)
	}
	if n.ExprOp != Add {
		t.Fatalf("expected ExprOp Add, got %s", n.ExprOp)
	}
	if len(n.Children) != 2 || n.Children[0] != lhs || n.Children[1] != rhs {
		t.Fatalf("expected children to be exactly [lhs, rhs]")
	}
}

func TestKindStringOutOfRange(t *testing.T) {
	var k Kind = 999
	if k.String() != "Kind(?)" {
		t.Fatalf("expected Kind(?) for an out-of-range Kind, got %q", k.String())
	}
}

func TestExpressionTypeStringOutOfRange(t *testing.T) {
	var e ExpressionType = 999
	if e.String() != "ExpressionType(?)" {
		t.Fatalf("expected ExpressionType(?) for an out-of-range value, got %q", e.String())
	}
}

func TestNodeStringRendersLeafToken(t *testing.T) {
	n := NewLeaf(Identifier, token.Token{Kind: token.Identifier, Data: "x"})
	want := "Identifier [x]"
	if n.String() != want {
		t.Fatalf("expected %q, got %q", want, n.String())
	}
}

func TestPrintHandlesNilNode(t *testing.T) {
	var n *Node
	// Must not panic; output format is exercised by manual inspection, not
	// asserted here.
	n.Print(0)
}
