package attribute

import (
	"testing"

	"github.com/meplang/meplangc/internal/compiler/opcode"
	"github.com/meplang/meplangc/internal/compiler/word"
	"github.com/meplang/meplangc/internal/syntax/ast"
)

func hexAttr(name, eqName string, hex []byte) ast.Attribute {
	return ast.Attribute{
		Name: name,
		Arg: &ast.AttributeArg{
			Kind: ast.AttributeArgEquality,
			Equality: &ast.AttributeEquality{
				Name:  eqName,
				Value: ast.AttributeEqualityRight{Kind: ast.AttributeEqualityHex, HexLiteral: hex},
			},
		},
	}
}

func TestFromASTAssume(t *testing.T) {
	raw := hexAttr("assume", "msize", []byte{0x20})
	attr, err := FromAST(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.Kind != Assume || attr.Op != opcode.MSIZE {
		t.Fatalf("got %+v", attr)
	}
	want, _ := word.FromBytes([]byte{0x20}, true)
	if attr.Value != want {
		t.Errorf("value = %x, want %x", attr.Value, want)
	}
}

func TestFromASTAssumeNonAssumableOpcode(t *testing.T) {
	raw := hexAttr("assume", "add", []byte{0x01})
	if _, err := FromAST(raw, nil); err == nil {
		t.Fatal("expected error for non-assumable opcode")
	}
}

func TestFromASTAssumeCompileVariable(t *testing.T) {
	raw := ast.Attribute{
		Name: "assume",
		Arg: &ast.AttributeArg{
			Kind: ast.AttributeArgEquality,
			Equality: &ast.AttributeEquality{
				Name:  "chainid",
				Value: ast.AttributeEqualityRight{Kind: ast.AttributeEqualityCompileVar, CompileVariable: "CHAINID"},
			},
		},
	}
	vars := map[string][]byte{"CHAINID": {0x01}}
	attr, err := FromAST(raw, vars)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.Op != opcode.CHAINID {
		t.Errorf("op = %#x, want CHAINID", attr.Op)
	}
}

func TestFromASTAssumeUndefinedCompileVariable(t *testing.T) {
	raw := ast.Attribute{
		Name: "assume",
		Arg: &ast.AttributeArg{
			Kind: ast.AttributeArgEquality,
			Equality: &ast.AttributeEquality{
				Name:  "chainid",
				Value: ast.AttributeEqualityRight{Kind: ast.AttributeEqualityCompileVar, CompileVariable: "MISSING"},
			},
		},
	}
	if _, err := FromAST(raw, nil); err == nil {
		t.Fatal("expected error for undefined compile variable")
	}
}

func TestFromASTClearAssume(t *testing.T) {
	raw := ast.Attribute{Name: "clear_assume", Arg: &ast.AttributeArg{Kind: ast.AttributeArgVariable, Variable: "msize"}}
	attr, err := FromAST(raw, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if attr.Kind != ClearAssume || attr.Op != opcode.MSIZE {
		t.Fatalf("got %+v", attr)
	}
}

func TestFromASTToggles(t *testing.T) {
	attr, err := FromAST(ast.Attribute{Name: "keep"}, nil)
	if err != nil || attr.Kind != Keep {
		t.Fatalf("got %+v, err %v", attr, err)
	}
	attr, err = FromAST(ast.Attribute{Name: "main"}, nil)
	if err != nil || attr.Kind != Main {
		t.Fatalf("got %+v, err %v", attr, err)
	}
	attr, err = FromAST(ast.Attribute{Name: "last"}, nil)
	if err != nil || attr.Kind != Last {
		t.Fatalf("got %+v, err %v", attr, err)
	}
	attr, err = FromAST(ast.Attribute{Name: "disable_optimization"}, nil)
	if err != nil || attr.Kind != Optimization || attr.OptimizationEnabled {
		t.Fatalf("got %+v, err %v", attr, err)
	}
}

func TestFromASTUnknownAttribute(t *testing.T) {
	if _, err := FromAST(ast.Attribute{Name: "bogus"}, nil); err == nil {
		t.Fatal("expected error for unknown attribute")
	}
}

func TestPlacementClassifiers(t *testing.T) {
	main := Attribute{Kind: Main}
	if main.IsContractAttribute() {
		t.Error("Main must not be a contract attribute")
	}
	if !main.IsBlockAttribute() {
		t.Error("Main must be a block attribute")
	}
	if main.IsAbstractBlockAttribute() {
		t.Error("Main must not be an abstract-block attribute")
	}

	assume := Attribute{Kind: Assume}
	if !assume.IsContractAttribute() || !assume.IsBlockItemAttribute() {
		t.Error("Assume should be a contract and block-item attribute")
	}

	opt := Attribute{Kind: Optimization}
	if opt.IsBlockItemAttribute() {
		t.Error("Optimization must not be a block-item attribute")
	}
}

func TestAttributesApplyAndClone(t *testing.T) {
	a := New()
	w, _ := word.FromBytes([]byte{0x20}, true)
	a.Apply(Attribute{Kind: Assume, Op: opcode.MSIZE, Value: w})

	clone := a.Clone()
	clone.Apply(Attribute{Kind: ClearAssume, Op: opcode.MSIZE})

	if _, ok := a.Assumes[opcode.MSIZE]; !ok {
		t.Error("original Attributes should be unaffected by mutating the clone")
	}
	if _, ok := clone.Assumes[opcode.MSIZE]; ok {
		t.Error("clone should have cleared the assume")
	}
}

func TestFindAssumedOpDeterministicTieBreak(t *testing.T) {
	a := New()
	w, _ := word.FromBytes([]byte{0x20}, true)
	a.Assumes[opcode.MSIZE] = w
	a.Assumes[opcode.CHAINID] = w

	op, ok := a.FindAssumedOp(w)
	if !ok {
		t.Fatal("expected a match")
	}
	if op != opcode.CHAINID {
		t.Errorf("expected lowest opcode byte CHAINID (%#x), got %#x", opcode.CHAINID, op)
	}
}

func TestFindAssumedOpNoMatch(t *testing.T) {
	a := New()
	other, _ := word.FromBytes([]byte{0x01}, true)
	if _, ok := a.FindAssumedOp(other); ok {
		t.Error("expected no match against an empty Assumes map")
	}
}
