package bc

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// ifElse assembles `if (x) 1 else 2`.
func ifElse() *Code {
	b := NewBuilder("ifelse")
	ast := sexp.Call("if", sexp.Sym("x"), sexp.ScalarReal(1), sexp.ScalarReal(2))
	els := b.NewLabel()
	b.OpArg(OpGetVar, sexp.Sym("x"))
	b.BrIfNot(ast, els)
	b.OpArg(OpLdConst, sexp.ScalarReal(1))
	b.Op(OpReturn)
	b.Mark(els)
	b.OpArg(OpLdConst, sexp.ScalarReal(2))
	b.Op(OpReturn)
	return b.MustBuild()
}

func TestBuilderResolvesLabels(t *testing.T) {
	code := ifElse()
	if got := code.Instrs[1].Label; got != 4 {
		t.Errorf("BRIFNOT target = %d, want 4", got)
	}
	if diff := cmp.Diff([]Label{4}, code.Instrs[1].Targets()); diff != "" {
		t.Errorf("Targets() mismatch (-want +got):\n%s", diff)
	}
	if code.Version != Version {
		t.Errorf("Version = %d, want %d", code.Version, Version)
	}
}

func TestBuilderInternsConstants(t *testing.T) {
	b := NewBuilder("")
	i := b.Const(sexp.Sym("x"))
	j := b.Const(sexp.ScalarReal(1))
	if k := b.Const(sexp.Sym("x")); k != i {
		t.Errorf("Const(x) again = %d, want %d", k, i)
	}
	if i == j {
		t.Error("distinct constants share an index")
	}
}

func TestBuildUnmarkedLabel(t *testing.T) {
	b := NewBuilder("bad")
	b.Goto(b.NewLabel())
	if _, err := b.Build(); !errors.Is(err, ErrMalformed) {
		t.Errorf("Build() error = %v, want ErrMalformed", err)
	}
}

func TestValidate(t *testing.T) {
	ret := Instr{Op: OpReturn, Call: NoConst, Arg: NoConst, Label: NoLabel}
	tests := []struct {
		name string
		code *Code
		ok   bool
	}{
		{"empty", &Code{}, false},
		{"return", &Code{Instrs: []Instr{ret}}, true},
		{"unknown opcode", &Code{Instrs: []Instr{{Op: 0xFF}}}, false},
		{"constant out of range", &Code{Instrs: []Instr{
			{Op: OpLdConst, Call: NoConst, Arg: 3, Label: NoLabel}, ret,
		}}, false},
		{"label out of range", &Code{Instrs: []Instr{
			{Op: OpGoto, Call: NoConst, Arg: NoConst, Label: 7},
		}}, false},
		{"negative label", &Code{Instrs: []Instr{
			{Op: OpGoto, Call: NoConst, Arg: NoConst, Label: NoLabel},
		}}, false},
		{"switch without numeric labels", &Code{
			Consts: []sexp.SEXP{sexp.Call("switch", sexp.Sym("x"))},
			Instrs: []Instr{{Op: OpSwitch, Call: 0, Arg: NoConst, Label: NoLabel}},
		}, false},
		{"switch with optional names", &Code{
			Consts: []sexp.SEXP{sexp.Call("switch", sexp.Sym("x"))},
			Instrs: []Instr{{Op: OpSwitch, Call: 0, Arg: NoConst, Label: NoLabel, NumLabels: []Label{1}}, ret},
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.code.Validate()
			if tt.ok && err != nil {
				t.Errorf("Validate() = %v, want nil", err)
			}
			if !tt.ok && !errors.Is(err, ErrMalformed) {
				t.Errorf("Validate() = %v, want ErrMalformed", err)
			}
		})
	}
}

func TestOpcodeTable(t *testing.T) {
	if OpAdd.String() != "ADD" {
		t.Errorf("OpAdd.String() = %q, want ADD", OpAdd.String())
	}
	if !OpGoto.IsJump() || OpAdd.IsJump() {
		t.Error("IsJump misclassifies GOTO or ADD")
	}
	if Opcode(0xFF).Valid() {
		t.Error("0xFF should not be a valid opcode")
	}
}

func TestDisassemble(t *testing.T) {
	out := ifElse().Disassemble()
	for _, want := range []string{
		"; === ifelse ===",
		"0000  GETVAR #0(x)",
		"0001  BRIFNOT call=#1(if(x, 1, 2)), L4",
		"0003  RETURN",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Disassemble() missing %q in:\n%s", want, out)
		}
	}
	if got := ifElse().FormatInstr(99); got != "<end of code>" {
		t.Errorf("FormatInstr(99) = %q", got)
	}
}

func TestWireRoundTrip(t *testing.T) {
	b := NewBuilder("wire")
	ast := sexp.Call("switch", sexp.Sym("x"))
	a, d := b.NewLabel(), b.NewLabel()
	b.OpArg(OpLdConst, sexp.Lgl{sexp.True, sexp.NA})
	b.OpArg(OpLdConst, sexp.Int{})
	b.OpArg(OpLdConst, sexp.List{{Tag: "n", Value: sexp.Missing}, {Value: sexp.Nil}})
	b.OpArg(OpLdConst, &sexp.Lang{Fun: sexp.Sym("f"), Args: []sexp.Arg{{Tag: "k", Value: sexp.ScalarStr("v")}}})
	b.Switch(ast, []string{"a", ""}, []Label{a, d}, []Label{a, d})
	b.Mark(a)
	b.Op(OpReturn)
	b.Mark(d)
	b.Op(OpLdNull)
	b.Op(OpReturn)
	code := b.MustBuild()

	data, err := MarshalCode(code)
	if err != nil {
		t.Fatalf("MarshalCode failed: %v", err)
	}
	got, err := UnmarshalCode(data)
	if err != nil {
		t.Fatalf("UnmarshalCode failed: %v", err)
	}
	if diff := cmp.Diff(code.Instrs, got.Instrs); diff != "" {
		t.Errorf("instructions mismatch (-want +got):\n%s", diff)
	}
	if len(got.Consts) != len(code.Consts) {
		t.Fatalf("got %d constants, want %d", len(got.Consts), len(code.Consts))
	}
	for i := range code.Consts {
		if !sexp.Equal(code.Consts[i], got.Consts[i]) {
			t.Errorf("constant %d = %s, want %s", i, got.Consts[i], code.Consts[i])
		}
	}
	if got.Name != "wire" {
		t.Errorf("Name = %q, want wire", got.Name)
	}
}

func TestWireNestedCode(t *testing.T) {
	inner := NewBuilder("inner")
	inner.Op(OpLdTrue).Op(OpReturn)
	b := NewBuilder("outer")
	b.OpArg(OpMakeProm, inner.MustBuild())
	b.Op(OpReturn)

	data, err := MarshalCode(b.MustBuild())
	if err != nil {
		t.Fatalf("MarshalCode failed: %v", err)
	}
	got, err := UnmarshalCode(data)
	if err != nil {
		t.Fatalf("UnmarshalCode failed: %v", err)
	}
	nested, ok := got.Consts[0].(*Code)
	if !ok {
		t.Fatalf("constant 0 is %T, want *Code", got.Consts[0])
	}
	if nested.Name != "inner" || len(nested.Instrs) != 2 {
		t.Errorf("nested code = %s", nested)
	}
}

func TestUnmarshalGarbage(t *testing.T) {
	if _, err := UnmarshalCode([]byte{0xFF, 0x00}); err == nil {
		t.Error("UnmarshalCode of garbage should fail")
	}
}
