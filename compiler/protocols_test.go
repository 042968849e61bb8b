package compiler

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

func promiseOf(sym string) *bc.Code {
	b := bc.NewBuilder("")
	b.OpArg(bc.OpGetVar, sexp.Sym(sym))
	b.Op(bc.OpReturn)
	return b.MustBuild()
}

func TestCallWithPromiseAndTag(t *testing.T) {
	b := bc.NewBuilder("caller")
	ast := sexp.Call("f", sexp.Sym("x"))
	b.OpArg(bc.OpGetFun, sexp.Sym("f"))
	b.OpArg(bc.OpMakeProm, promiseOf("x"))
	b.OpArg(bc.OpPushConstArg, sexp.ScalarReal(1))
	b.OpArg(bc.OpSetTag, sexp.ScalarStr("y"))
	b.Op(bc.OpDoMissing)
	b.OpCall(bc.OpCall, ast)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	calls := stmtsNamed(g, "call")
	if len(calls) != 1 {
		t.Fatalf("got %d calls, want 1:\n%s", len(calls), g)
	}
	call := calls[0].Data().(ir.Call)
	if diff := cmp.Diff([]string{"", "y", ""}, call.Names); diff != "" {
		t.Errorf("argument names mismatch (-want +got):\n%s", diff)
	}
	if call.CallArgs[2] != ir.Value(ir.Missing) {
		t.Errorf("third argument = %v, want the missing marker", call.CallArgs[2])
	}
	if _, ok := call.Fun.(*ir.Stmt).Data().(ir.LdFun); !ok {
		t.Errorf("callee should come from ldfun:\n%s", g)
	}
	prom, ok := call.CallArgs[0].(*ir.Stmt).Data().(ir.MkProm)
	if !ok || prom.Body == nil {
		t.Fatalf("first argument should be a compiled promise:\n%s", g)
	}
	if prom.Body == g || prom.Body.Name() != "caller/promise@1" {
		t.Errorf("promise graph = %q", prom.Body.Name())
	}
	if p := prom.Body.Verify(ir.VerifyOptions{Final: true}); len(p) != 0 {
		t.Errorf("promise graph problems: %v", p)
	}
}

func TestPromiseOfExpression(t *testing.T) {
	b := bc.NewBuilder("lazy")
	b.OpArg(bc.OpGetFun, sexp.Sym("f"))
	b.OpArg(bc.OpMakeProm, sexp.Sym("x"))
	b.OpCall(bc.OpCall, sexp.Call("f", sexp.Sym("x")))
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)
	proms := stmtsNamed(g, "mkprom")
	if len(proms) != 1 || proms[0].Data().(ir.MkProm).Body != nil {
		t.Errorf("a non-bytecode promise should keep its expression:\n%s", g)
	}
}

func TestBuiltinCallsAndDots(t *testing.T) {
	b := bc.NewBuilder("dots")
	b.OpArg(bc.OpGetBuiltin, sexp.Sym("c"))
	b.Op(bc.OpDoDots)
	b.Op(bc.OpPushTrueArg)
	b.OpCall(bc.OpCallBuiltin, sexp.Call("c", sexp.Sym("..."), sexp.ScalarLgl(sexp.True)))
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	cs := stmtsNamed(g, "c")
	if len(cs) != 1 {
		t.Fatalf("got %d calls to c, want 1:\n%s", len(cs), g)
	}
	c := cs[0].Data().(ir.CallBuiltin)
	if diff := cmp.Diff([]string{"...", ""}, c.Names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	if c.Env == nil {
		t.Error("c is unsafe and should see the environment")
	}
	if len(stmtsNamed(g, "lddots")) != 1 {
		t.Errorf("dots are not loaded:\n%s", g)
	}
}

func TestUnknownBuiltinIsUnsupported(t *testing.T) {
	b := bc.NewBuilder("unknown")
	b.OpArg(bc.OpGetBuiltin, sexp.Sym("no.such.builtin"))
	b.OpCall(bc.OpCallBuiltin, sexp.Call("no.such.builtin"))
	b.Op(bc.OpReturn)
	_, err := Compile(b.MustBuild(), Options{})
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Errorf("Compile() error = %v, want UnsupportedError", err)
	}
}

func TestCallSpecial(t *testing.T) {
	b := bc.NewBuilder("quote")
	b.OpCall(bc.OpCallSpecial, sexp.Call("quote", sexp.Sym("x")))
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)
	q := stmtsNamed(g, "quote")
	if len(q) != 1 {
		t.Fatalf("got %d quote calls, want 1:\n%s", len(q), g)
	}
	if q[0].Data().(ir.CallBuiltin).AST == nil {
		t.Error("special call should carry its AST")
	}
}

func closureCode(body sexp.SEXP) *bc.Code {
	b := bc.NewBuilder("outer")
	formals := sexp.List{{Tag: "x", Value: sexp.Missing}}
	b.OpArg(bc.OpMakeClosure, sexp.List{{Value: formals}, {Value: body}})
	b.Op(bc.OpReturn)
	return b.MustBuild()
}

func TestMakeClosure(t *testing.T) {
	g := mustCompile(t, closureCode(promiseOf("x")), strict)
	cls := stmtsNamed(g, "mkcls")
	if len(cls) != 1 {
		t.Fatalf("got %d closures, want 1:\n%s", len(cls), g)
	}
	if body := cls[0].Data().(ir.MkCls).Body; body == nil || body.Name() != "outer/closure@0" {
		t.Errorf("closure body = %v", body)
	}
}

func TestClosureFallback(t *testing.T) {
	ast := sexp.Call("+", sexp.Sym("x"), sexp.ScalarReal(1))

	_, err := Compile(closureCode(ast), Options{})
	var missing *MissingBodyError
	if !errors.As(err, &missing) {
		t.Fatalf("Compile() error = %v, want MissingBodyError", err)
	}
	if missing.Body != ast.String() {
		t.Errorf("Body = %q, want %q", missing.Body, ast.String())
	}

	var seen sexp.SEXP
	fallback := func(formals, body sexp.SEXP) (*ir.CFG, error) {
		seen = body
		return ir.New("fallback"), nil
	}
	g := mustCompile(t, closureCode(ast), Options{Verify: true, ClosureFallback: fallback})
	if !sexp.Equal(seen, ast) {
		t.Errorf("fallback saw %v, want %v", seen, ast)
	}
	if body := stmtsNamed(g, "mkcls")[0].Data().(ir.MkCls).Body; body == nil || body.Name() != "fallback" {
		t.Errorf("closure body = %v, want the fallback graph", body)
	}

	boom := errors.New("boom")
	_, err = Compile(closureCode(ast), Options{ClosureFallback: func(sexp.SEXP, sexp.SEXP) (*ir.CFG, error) {
		return nil, boom
	}})
	if !errors.Is(err, boom) {
		t.Errorf("Compile() error = %v, want the fallback's error", err)
	}
}

func TestMaxNesting(t *testing.T) {
	inner := bc.NewBuilder("inner")
	inner.OpArg(bc.OpGetFun, sexp.Sym("g"))
	inner.OpArg(bc.OpMakeProm, promiseOf("y"))
	inner.OpCall(bc.OpCall, sexp.Call("g", sexp.Sym("y")))
	inner.Op(bc.OpReturn)

	b := bc.NewBuilder("outer")
	b.OpArg(bc.OpGetFun, sexp.Sym("f"))
	b.OpArg(bc.OpMakeProm, inner.MustBuild())
	b.OpCall(bc.OpCall, sexp.Call("f", sexp.Call("g", sexp.Sym("y"))))
	b.Op(bc.OpReturn)
	code := b.MustBuild()

	mustCompile(t, code, Options{MaxNesting: 2})
	_, err := Compile(code, Options{MaxNesting: 1})
	var unsupported *UnsupportedError
	if !errors.As(err, &unsupported) {
		t.Errorf("Compile() error = %v, want UnsupportedError", err)
	}
}

func TestNestedFailurePropagates(t *testing.T) {
	bad := bc.NewBuilder("bad")
	bad.Op(bc.OpLdNull)
	bad.Op(bc.OpLdNull)
	bad.Op(bc.OpReturn)

	b := bc.NewBuilder("outer")
	b.OpArg(bc.OpGetFun, sexp.Sym("f"))
	b.OpArg(bc.OpMakeProm, bad.MustBuild())
	b.OpCall(bc.OpCall, sexp.Call("f"))
	b.Op(bc.OpReturn)
	_, err := Compile(b.MustBuild(), Options{})
	var internal *InternalError
	if !errors.As(err, &internal) || internal.Code != "bad" {
		t.Errorf("Compile() error = %v, want the promise's internal error", err)
	}
}

// charSwitch assembles `switch(x, a = 1, 2)`.
func charSwitch() *bc.Code {
	b := bc.NewBuilder("chrswitch")
	ast := sexp.Call("switch", sexp.Sym("x"))
	la, l2, dflt, end := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.Switch(ast, []string{"a", ""}, []bc.Label{la, l2}, []bc.Label{la, l2, dflt})
	b.Mark(la)
	b.OpArg(bc.OpLdConst, sexp.ScalarReal(1))
	b.Goto(end)
	b.Mark(l2)
	b.OpArg(bc.OpLdConst, sexp.ScalarReal(2))
	b.Goto(end)
	b.Mark(dflt)
	b.Op(bc.OpLdNull)
	b.Mark(end)
	b.Op(bc.OpReturn)
	return b.MustBuild()
}

func TestCharacterSwitch(t *testing.T) {
	g := mustCompile(t, charSwitch(), strict)
	for name, want := range map[string]int{
		"is.vector":    1,
		"is.factor":    1,
		"is.character": 1,
		"as.integer":   1,
		"warning":      1,
		"stop":         1,
		"==":           4, // length check, one name, two numeric alternatives
	} {
		if n := len(stmtsNamed(g, name)); n != want {
			t.Errorf("got %d %s calls, want %d:\n%s", n, name, want, g)
		}
	}
	var returns, unreachable int
	for _, b := range g.Exits() {
		switch b.Jump().Data().(type) {
		case ir.Return:
			returns++
		case ir.Unreachable:
			unreachable++
		}
	}
	if returns != 1 || unreachable != 1 {
		t.Errorf("got %d returns and %d unreachable exits, want 1 and 1", returns, unreachable)
	}
}

func TestNumericSwitchWithoutNames(t *testing.T) {
	b := bc.NewBuilder("numswitch")
	ast := sexp.Call("switch", sexp.Sym("x"))
	l1, dflt, end := b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.Switch(ast, nil, nil, []bc.Label{l1, dflt})
	b.Mark(l1)
	b.OpArg(bc.OpLdConst, sexp.ScalarReal(1))
	b.Goto(end)
	b.Mark(dflt)
	b.Op(bc.OpLdNull)
	b.Mark(end)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	// Character values cannot select an unnamed alternative.
	if n := len(stmtsNamed(g, "stop")); n != 2 {
		t.Errorf("got %d stop calls, want 2:\n%s", n, g)
	}
}

func TestNumericSwitchEmptyAlternative(t *testing.T) {
	b := bc.NewBuilder("empty")
	ast := sexp.Call("switch", sexp.Sym("x"))
	le, l2, dflt, end := b.NewLabel(), b.NewLabel(), b.NewLabel(), b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.Switch(ast, nil, nil, []bc.Label{le, l2, dflt})
	b.Mark(le)
	b.OpArg(bc.OpGetBuiltin, sexp.Sym("stop"))
	b.OpArg(bc.OpPushConstArg, sexp.ScalarStr("empty alternative in numeric switch"))
	b.OpCall(bc.OpCallBuiltin, sexp.Call("stop", sexp.ScalarStr("empty alternative in numeric switch")))
	b.Mark(l2)
	b.OpArg(bc.OpLdConst, sexp.ScalarReal(2))
	b.Goto(end)
	b.Mark(dflt)
	b.Op(bc.OpLdNull)
	b.Mark(end)
	b.Op(bc.OpReturn)
	mustCompile(t, b.MustBuild(), strict)
}

func TestSwitchNameCountMismatch(t *testing.T) {
	b := bc.NewBuilder("mismatch")
	l := b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.Switch(sexp.Call("switch", sexp.Sym("x")), []string{"a", "b", ""}, []bc.Label{l}, []bc.Label{l})
	b.Mark(l)
	b.Op(bc.OpReturn)
	_, err := Compile(b.MustBuild(), Options{})
	if !errors.Is(err, bc.ErrMalformed) {
		t.Errorf("Compile() error = %v, want ErrMalformed", err)
	}
}

func TestSubsetDispatch(t *testing.T) {
	b := bc.NewBuilder("subset")
	ast := sexp.Call("[", sexp.Sym("x"), sexp.Sym("i"))
	end := b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.OpCallLabel(bc.OpStartSubset, ast, end)
	b.OpArg(bc.OpGetVar, sexp.Sym("i"))
	b.Op(bc.OpPushArg)
	b.Op(bc.OpDfltSubset)
	b.Mark(end)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	d := stmtsNamed(g, "dispatch")
	if len(d) != 1 || d[0].Data().(ir.Dispatch).Op != "[" {
		t.Fatalf("want one [ dispatch:\n%s", g)
	}
	sub := stmtsNamed(g, "[")
	if len(sub) != 1 || len(sub[0].Data().(ir.CallBuiltin).CallArgs) != 2 {
		t.Fatalf("want one default [ call with two arguments:\n%s", g)
	}
	exits := g.Exits()
	if len(exits) != 1 || len(exits[0].Phis()) != 1 || exits[0].Phis()[0].Len() != 2 {
		t.Errorf("dispatch and default should merge:\n%s", g)
	}
}

func TestSubassignDispatch(t *testing.T) {
	b := bc.NewBuilder("subassign")
	ast := sexp.Call("[<-", sexp.Sym("x"), sexp.Sym("i"), sexp.Sym("v"))
	end := b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.OpArg(bc.OpGetVar, sexp.Sym("v"))
	b.OpCallLabel(bc.OpStartSubassign, ast, end)
	b.OpArg(bc.OpGetVar, sexp.Sym("i"))
	b.Op(bc.OpPushArg)
	b.Op(bc.OpDfltSubassign)
	b.Mark(end)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	sub := stmtsNamed(g, "[<-")
	if len(sub) != 1 {
		t.Fatalf("want one default [<- call:\n%s", g)
	}
	if diff := cmp.Diff([]string{"", "", "value"}, sub[0].Data().(ir.CallBuiltin).Names); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
	d := stmtsNamed(g, "dispatch")
	if len(d) != 1 || len(d[0].Data().(ir.Dispatch).Extra) != 1 {
		t.Errorf("dispatch should carry the value:\n%s", g)
	}
}

func TestFastSubsetDispatch(t *testing.T) {
	b := bc.NewBuilder("vecsubset")
	ast := sexp.Call("[", sexp.Sym("x"), sexp.Sym("i"))
	end := b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.OpCallLabel(bc.OpStartSubsetN, ast, end)
	b.OpArg(bc.OpGetVar, sexp.Sym("i"))
	b.OpCall(bc.OpVecSubset, ast)
	b.Mark(end)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)
	if len(stmtsNamed(g, "dispatch")) != 1 || len(stmtsNamed(g, "[")) != 1 {
		t.Errorf("want a dispatch and a [ call:\n%s", g)
	}
}

func TestPlainVecSubset(t *testing.T) {
	b := bc.NewBuilder("mat")
	ast := sexp.Call("[", sexp.Sym("m"), sexp.Sym("i"), sexp.Sym("j"))
	b.OpArg(bc.OpGetVar, sexp.Sym("m"))
	b.OpArg(bc.OpGetVar, sexp.Sym("i"))
	b.OpArg(bc.OpGetVar, sexp.Sym("j"))
	b.OpCall(bc.OpMatSubset, ast)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)
	sub := stmtsNamed(g, "[")
	if len(sub) != 1 || len(sub[0].Data().(ir.CallBuiltin).CallArgs) != 3 {
		t.Errorf("want [ with three arguments:\n%s", g)
	}
}

// callTo returns the call whose callee is looked up by name as sym.
func callTo(t *testing.T, g *ir.CFG, sym string) *ir.Stmt {
	t.Helper()
	for _, s := range stmtsNamed(g, "call") {
		f, ok := s.Data().(ir.Call).Fun.(*ir.Stmt)
		if !ok {
			continue
		}
		if ld, ok := f.Data().(ir.LdFun); ok && ld.Sym == sym {
			return s
		}
	}
	t.Fatalf("no call to %s:\n%s", sym, g)
	return nil
}

func sameArgs(got []ir.Value, want ...ir.Value) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

// `names(x) <- v`
func TestComplexAssignment(t *testing.T) {
	b := bc.NewBuilder("assign")
	ast := sexp.Call("names<-", sexp.Sym("*tmp*"), sexp.Sym("v"))
	b.OpArg(bc.OpGetVar, sexp.Sym("v"))
	b.OpArg(bc.OpStartAssign, sexp.Sym("x"))
	b.OpArg(bc.OpGetFun, sexp.Sym("names<-"))
	b.Op(bc.OpPushNullArg)
	b.OpCallArg(bc.OpSetterCall, ast, sexp.Sym("v"))
	b.OpArg(bc.OpEndAssign, sexp.Sym("x"))
	b.Op(bc.OpInvisible)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	forces := stmtsNamed(g, "force")
	if len(forces) != 2 {
		t.Fatalf("got %d forces, want v and x:\n%s", len(forces), g)
	}
	v, x := forces[0], forces[1]

	setter := callTo(t, g, "names<-")
	call := setter.Data().(ir.Call)
	if !sameArgs(call.CallArgs, x, v) {
		t.Errorf("setter arguments = %v, want (%s, %s):\n%s", call.CallArgs, x, v, g)
	}
	if diff := cmp.Diff([]string{"", "value"}, call.Names); diff != "" {
		t.Errorf("setter names mismatch (-want +got):\n%s", diff)
	}
	writes := stmtsNamed(g, "write")
	if len(writes) != 1 || writes[0].Data().(ir.WriteVar).Value != ir.Value(setter) {
		t.Fatalf("the setter result should be written back:\n%s", g)
	}
	ret := g.Entry().Jump().Data().(ir.Return)
	if ret.Value != ir.Value(v) {
		t.Errorf("assignment should return the right-hand side:\n%s", g)
	}
}

// `names(x)[2] <- v`
func TestNestedComplexAssignment(t *testing.T) {
	b := bc.NewBuilder("nested")
	b.OpArg(bc.OpGetVar, sexp.Sym("v"))
	b.OpArg(bc.OpStartAssign, sexp.Sym("x"))
	b.OpArg(bc.OpGetFun, sexp.Sym("names"))
	b.Op(bc.OpPushNullArg)
	b.OpCall(bc.OpGetterCall, sexp.Call("names", sexp.Sym("*tmp*")))
	b.Op(bc.OpSwap)
	b.OpArg(bc.OpGetFun, sexp.Sym("[<-"))
	b.Op(bc.OpPushNullArg)
	b.OpArg(bc.OpPushConstArg, sexp.ScalarReal(2))
	b.OpCallArg(bc.OpSetterCall, sexp.Call("[<-", sexp.Sym("*tmp*"), sexp.ScalarReal(2), sexp.Sym("v")), sexp.Sym("v"))
	b.OpArg(bc.OpGetFun, sexp.Sym("names<-"))
	b.Op(bc.OpPushNullArg)
	b.OpCallArg(bc.OpSetterCall, sexp.Call("names<-", sexp.Sym("*tmp*"), sexp.Sym("*vtmp*")), sexp.Sym("*vtmp*"))
	b.OpArg(bc.OpEndAssign, sexp.Sym("x"))
	b.Op(bc.OpInvisible)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	forces := stmtsNamed(g, "force")
	if len(forces) != 2 {
		t.Fatalf("got %d forces, want v and x:\n%s", len(forces), g)
	}
	v, x := forces[0], forces[1]

	getter := callTo(t, g, "names")
	if args := getter.Data().(ir.Call).CallArgs; !sameArgs(args, x) {
		t.Errorf("getter arguments = %v, want (%s)", args, x)
	}

	sub := callTo(t, g, "[<-")
	call := sub.Data().(ir.Call)
	if len(call.CallArgs) != 3 || call.CallArgs[0] != ir.Value(getter) || call.CallArgs[2] != ir.Value(v) {
		t.Fatalf("[<- arguments = %v, want (%s, 2, %s):\n%s", call.CallArgs, getter, v, g)
	}
	if c, ok := call.CallArgs[1].(*ir.Const); !ok || !sexp.Equal(c.Value(), sexp.ScalarReal(2)) {
		t.Errorf("index = %v, want literal 2", call.CallArgs[1])
	}
	if diff := cmp.Diff([]string{"", "", "value"}, call.Names); diff != "" {
		t.Errorf("[<- names mismatch (-want +got):\n%s", diff)
	}

	setter := callTo(t, g, "names<-")
	if args := setter.Data().(ir.Call).CallArgs; !sameArgs(args, x, sub) {
		t.Errorf("names<- arguments = %v, want (%s, %s)", args, x, sub)
	}
	writes := stmtsNamed(g, "write")
	if len(writes) != 1 || writes[0].Data().(ir.WriteVar).Value != ir.Value(setter) {
		t.Errorf("the outer setter result should be written back:\n%s", g)
	}
	if ret := g.Entry().Jump().Data().(ir.Return); ret.Value != ir.Value(v) {
		t.Errorf("assignment should return the right-hand side:\n%s", g)
	}
}

// `x[i] <- v` with the subassignment dispatched inside the assignment: the
// right-hand side reaches ENDASSIGN through a phi.
func TestAssignmentThroughDispatch(t *testing.T) {
	b := bc.NewBuilder("subassign")
	ast := sexp.Call("[<-", sexp.Sym("*tmp*"), sexp.Sym("i"), sexp.Sym("v"))
	end := b.NewLabel()
	b.OpArg(bc.OpGetVar, sexp.Sym("v"))
	b.OpArg(bc.OpStartAssign, sexp.Sym("x"))
	b.OpCallLabel(bc.OpStartSubassign, ast, end)
	b.OpArg(bc.OpGetVar, sexp.Sym("i"))
	b.Op(bc.OpPushArg)
	b.Op(bc.OpDfltSubassign)
	b.Mark(end)
	b.OpArg(bc.OpEndAssign, sexp.Sym("x"))
	b.Op(bc.OpInvisible)
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)

	exits := g.Exits()
	if len(exits) != 1 || len(exits[0].Phis()) != 2 {
		t.Fatalf("want one exit merging the right-hand side and the result:\n%s", g)
	}
	phis := exits[0].Phis()
	if ret := exits[0].Jump().Data().(ir.Return); ret.Value != ir.Value(phis[0]) {
		t.Errorf("assignment should return the merged right-hand side:\n%s", g)
	}
	writes := stmtsNamed(g, "write")
	if len(writes) != 1 || writes[0].Data().(ir.WriteVar).Value != ir.Value(phis[1]) {
		t.Errorf("the merged result should be written back:\n%s", g)
	}
}

func TestComplexAssignmentErrors(t *testing.T) {
	tests := []struct {
		name  string
		build func(b *bc.Builder)
	}{
		{"setter without placeholder", func(b *bc.Builder) {
			b.OpArg(bc.OpGetVar, sexp.Sym("v"))
			b.OpArg(bc.OpStartAssign, sexp.Sym("x"))
			b.OpArg(bc.OpGetFun, sexp.Sym("names<-"))
			b.OpCallArg(bc.OpSetterCall, sexp.Call("names<-", sexp.Sym("x"), sexp.Sym("v")), sexp.Sym("v"))
			b.OpArg(bc.OpEndAssign, sexp.Sym("x"))
		}},
		{"getter without placeholder", func(b *bc.Builder) {
			b.OpArg(bc.OpGetVar, sexp.Sym("v"))
			b.OpArg(bc.OpStartAssign, sexp.Sym("x"))
			b.OpArg(bc.OpGetFun, sexp.Sym("names"))
			b.OpArg(bc.OpPushConstArg, sexp.ScalarReal(1))
			b.OpCall(bc.OpGetterCall, sexp.Call("names", sexp.Sym("x")))
		}},
		{"right-hand side lost", func(b *bc.Builder) {
			b.OpArg(bc.OpLdConst, sexp.ScalarReal(1))
			b.OpArg(bc.OpStartAssign, sexp.Sym("x"))
			b.Op(bc.OpPop)
			b.Op(bc.OpSwap)
			b.OpArg(bc.OpEndAssign, sexp.Sym("x"))
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := bc.NewBuilder("bad")
			tt.build(b)
			b.Op(bc.OpInvisible)
			b.Op(bc.OpReturn)
			_, err := Compile(b.MustBuild(), Options{})
			var internal *InternalError
			if !errors.As(err, &internal) {
				t.Errorf("Compile() error = %v, want InternalError", err)
			}
		})
	}
}

func TestUnbalancedAssignment(t *testing.T) {
	b := bc.NewBuilder("unbalanced")
	b.Op(bc.OpLdNull)
	b.OpArg(bc.OpStartAssign, sexp.Sym("x"))
	b.OpArg(bc.OpEndAssign, sexp.Sym("y"))
	b.Op(bc.OpReturn)
	_, err := Compile(b.MustBuild(), Options{})
	var internal *InternalError
	if !errors.As(err, &internal) {
		t.Errorf("Compile() error = %v, want InternalError", err)
	}
}

func TestDollar(t *testing.T) {
	b := bc.NewBuilder("dollar")
	b.OpArg(bc.OpGetVar, sexp.Sym("x"))
	b.OpCallArg(bc.OpDollar, sexp.Call("$", sexp.Sym("x"), sexp.Sym("a")), sexp.Sym("a"))
	b.Op(bc.OpReturn)
	g := mustCompile(t, b.MustBuild(), strict)
	if len(stmtsNamed(g, "$")) != 1 {
		t.Errorf("want one $ call:\n%s", g)
	}
}
