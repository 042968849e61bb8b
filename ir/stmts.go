package ir

import (
	"strings"

	"github.com/PRL-PRG/r-compile-server-sub002/fun"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// StmtData is the immutable payload of a statement. Each variant enumerates
// its own arguments; there is no reflective traversal.
type StmtData interface {
	Name() string
	// Args lists every value the statement reads, in a fixed order.
	Args() []Value
	// MapArgs returns a copy with every argument replaced by f(arg).
	MapArgs(f func(Value) Value) StmtData
	// IsVoid reports that the statement produces no value.
	IsVoid() bool
}

// detailer is implemented by payloads with non-value operands worth printing.
type detailer interface {
	Detail() string
}

func mapAll(vs []Value, f func(Value) Value) []Value {
	if vs == nil {
		return nil
	}
	out := make([]Value, len(vs))
	for i, v := range vs {
		out[i] = f(v)
	}
	return out
}

func mapOpt(v Value, f func(Value) Value) Value {
	if v == nil {
		return nil
	}
	return f(v)
}

func withOpt(vs []Value, opt ...Value) []Value {
	for _, v := range opt {
		if v != nil {
			vs = append(vs, v)
		}
	}
	return vs
}

// ReadVar looks a variable up in an environment. The result may be a promise.
// Super starts the lookup in the enclosing environment.
type ReadVar struct {
	Env    Value
	Sym    string
	MissOK bool
	Super  bool
}

func (ReadVar) Name() string    { return "read" }
func (d ReadVar) Args() []Value { return []Value{d.Env} }
func (d ReadVar) MapArgs(f func(Value) Value) StmtData {
	d.Env = f(d.Env)
	return d
}
func (ReadVar) IsVoid() bool { return false }
func (d ReadVar) Detail() string {
	s := d.Sym
	if d.Super {
		s += " super"
	}
	if d.MissOK {
		s += " missok"
	}
	return s
}

// Force evaluates a promise, returning non-promises unchanged.
type Force struct {
	Value Value
	Env   Value
}

func (Force) Name() string    { return "force" }
func (d Force) Args() []Value { return []Value{d.Value, d.Env} }
func (d Force) MapArgs(f func(Value) Value) StmtData {
	d.Value, d.Env = f(d.Value), f(d.Env)
	return d
}
func (Force) IsVoid() bool { return false }

// WriteVar assigns a variable; Super assigns in the enclosing scope (<<-).
type WriteVar struct {
	Env   Value
	Sym   string
	Value Value
	Super bool
}

func (d WriteVar) Name() string {
	if d.Super {
		return "write<<"
	}
	return "write"
}
func (d WriteVar) Args() []Value { return []Value{d.Env, d.Value} }
func (d WriteVar) MapArgs(f func(Value) Value) StmtData {
	d.Env, d.Value = f(d.Env), f(d.Value)
	return d
}
func (WriteVar) IsVoid() bool     { return true }
func (d WriteVar) Detail() string { return d.Sym }

// FunScope says where LdFun starts looking.
type FunScope uint8

const (
	ScopeLocal FunScope = iota
	ScopeGlobal
	ScopeSym
)

// LdFun looks a function up by name, skipping non-function bindings.
type LdFun struct {
	Env   Value
	Sym   string
	Scope FunScope
}

func (LdFun) Name() string    { return "ldfun" }
func (d LdFun) Args() []Value { return []Value{d.Env} }
func (d LdFun) MapArgs(f func(Value) Value) StmtData {
	d.Env = f(d.Env)
	return d
}
func (LdFun) IsVoid() bool { return false }
func (d LdFun) Detail() string {
	switch d.Scope {
	case ScopeGlobal:
		return d.Sym + " global"
	case ScopeSym:
		return d.Sym + " sym"
	}
	return d.Sym
}

// CheckFun asserts that a computed value is callable.
type CheckFun struct {
	Value Value
}

func (CheckFun) Name() string    { return "checkfun" }
func (d CheckFun) Args() []Value { return []Value{d.Value} }
func (d CheckFun) MapArgs(f func(Value) Value) StmtData {
	d.Value = f(d.Value)
	return d
}
func (CheckFun) IsVoid() bool { return false }

// LdDots reads the ... binding for splicing into a call.
type LdDots struct {
	Env Value
}

func (LdDots) Name() string    { return "lddots" }
func (d LdDots) Args() []Value { return []Value{d.Env} }
func (d LdDots) MapArgs(f func(Value) Value) StmtData {
	d.Env = f(d.Env)
	return d
}
func (LdDots) IsVoid() bool { return false }

// CallBuiltin calls a registry builtin. Env is nil for safe builtins, which
// cannot observe the caller's environment.
type CallBuiltin struct {
	Fun      *fun.Builtin
	CallArgs []Value
	Names    []string
	AST      sexp.SEXP
	Env      Value
}

func (CallBuiltin) Name() string { return "builtin" }
func (d CallBuiltin) Args() []Value {
	return withOpt(append([]Value(nil), d.CallArgs...), d.Env)
}
func (d CallBuiltin) MapArgs(f func(Value) Value) StmtData {
	d.CallArgs = mapAll(d.CallArgs, f)
	d.Env = mapOpt(d.Env, f)
	return d
}
func (CallBuiltin) IsVoid() bool { return false }
func (d CallBuiltin) Detail() string {
	return d.Fun.Name + names(d.Names)
}

// Call calls an arbitrary function value with (optionally named) arguments.
type Call struct {
	Fun      Value
	CallArgs []Value
	Names    []string
	AST      sexp.SEXP
	Env      Value
}

func (Call) Name() string { return "call" }
func (d Call) Args() []Value {
	out := append([]Value{d.Fun}, d.CallArgs...)
	return append(out, d.Env)
}
func (d Call) MapArgs(f func(Value) Value) StmtData {
	d.Fun = f(d.Fun)
	d.CallArgs = mapAll(d.CallArgs, f)
	d.Env = f(d.Env)
	return d
}
func (Call) IsVoid() bool     { return false }
func (d Call) Detail() string { return names(d.Names) }

// Dispatch performs S3/S4 dispatch of an overridable operator on an object
// target, re-evaluating the remaining arguments from the call's AST.
type Dispatch struct {
	Op     string
	Target Value
	Extra  []Value
	AST    sexp.SEXP
	Env    Value
}

func (Dispatch) Name() string { return "dispatch" }
func (d Dispatch) Args() []Value {
	out := append([]Value{d.Target}, d.Extra...)
	return append(out, d.Env)
}
func (d Dispatch) MapArgs(f func(Value) Value) StmtData {
	d.Target = f(d.Target)
	d.Extra = mapAll(d.Extra, f)
	d.Env = f(d.Env)
	return d
}
func (Dispatch) IsVoid() bool     { return false }
func (d Dispatch) Detail() string { return d.Op }

// IsObject tests whether a value carries a class attribute.
type IsObject struct {
	Value Value
}

func (IsObject) Name() string    { return "isobj" }
func (d IsObject) Args() []Value { return []Value{d.Value} }
func (d IsObject) MapArgs(f func(Value) Value) StmtData {
	d.Value = f(d.Value)
	return d
}
func (IsObject) IsVoid() bool { return false }

// MkProm creates a promise. Body is the promise's compiled CFG; Code is the
// bytecode it was compiled from, or the expression for eager literals.
type MkProm struct {
	Body *CFG
	Code sexp.SEXP
	Env  Value
}

func (MkProm) Name() string    { return "mkprom" }
func (d MkProm) Args() []Value { return []Value{d.Env} }
func (d MkProm) MapArgs(f func(Value) Value) StmtData {
	d.Env = f(d.Env)
	return d
}
func (MkProm) IsVoid() bool { return false }

// MkCls creates a closure. Body is nil only when the closure body is an AST
// compiled lazily elsewhere.
type MkCls struct {
	Formals sexp.SEXP
	Body    *CFG
	Code    sexp.SEXP
	Env     Value
}

func (MkCls) Name() string    { return "mkcls" }
func (d MkCls) Args() []Value { return []Value{d.Env} }
func (d MkCls) MapArgs(f func(Value) Value) StmtData {
	d.Env = f(d.Env)
	return d
}
func (MkCls) IsVoid() bool { return false }

// ToForSeq converts the value iterated by a for loop to an indexable sequence.
type ToForSeq struct {
	Value Value
}

func (ToForSeq) Name() string    { return "toforseq" }
func (d ToForSeq) Args() []Value { return []Value{d.Value} }
func (d ToForSeq) MapArgs(f func(Value) Value) StmtData {
	d.Value = f(d.Value)
	return d
}
func (ToForSeq) IsVoid() bool { return false }

// Length is the vector length as an integer scalar.
type Length struct {
	Value Value
}

func (Length) Name() string    { return "length" }
func (d Length) Args() []Value { return []Value{d.Value} }
func (d Length) MapArgs(f func(Value) Value) StmtData {
	d.Value = f(d.Value)
	return d
}
func (Length) IsVoid() bool { return false }

// ForElt extracts element Index (1-based) of a for-loop sequence.
type ForElt struct {
	Seq   Value
	Index Value
}

func (ForElt) Name() string    { return "forelt" }
func (d ForElt) Args() []Value { return []Value{d.Seq, d.Index} }
func (d ForElt) MapArgs(f func(Value) Value) StmtData {
	d.Seq, d.Index = f(d.Seq), f(d.Index)
	return d
}
func (ForElt) IsVoid() bool { return false }

// CheckTrueFalse coerces a condition to a non-NA logical scalar or errors.
type CheckTrueFalse struct {
	Value Value
}

func (CheckTrueFalse) Name() string    { return "chktf" }
func (d CheckTrueFalse) Args() []Value { return []Value{d.Value} }
func (d CheckTrueFalse) MapArgs(f func(Value) Value) StmtData {
	d.Value = f(d.Value)
	return d
}
func (CheckTrueFalse) IsVoid() bool { return false }

// AsLogical coerces to a logical scalar, keeping NA.
type AsLogical struct {
	Value Value
}

func (AsLogical) Name() string    { return "aslgl" }
func (d AsLogical) Args() []Value { return []Value{d.Value} }
func (d AsLogical) MapArgs(f func(Value) Value) StmtData {
	d.Value = f(d.Value)
	return d
}
func (AsLogical) IsVoid() bool { return false }

// IsBaseFun tests that Sym still resolves to the base function of that name.
type IsBaseFun struct {
	Sym string
	Env Value
}

func (IsBaseFun) Name() string    { return "isbase" }
func (d IsBaseFun) Args() []Value { return []Value{d.Env} }
func (d IsBaseFun) MapArgs(f func(Value) Value) StmtData {
	d.Env = f(d.Env)
	return d
}
func (IsBaseFun) IsVoid() bool     { return false }
func (d IsBaseFun) Detail() string { return d.Sym }

// EvalAST evaluates an expression with the AST interpreter.
type EvalAST struct {
	AST sexp.SEXP
	Env Value
}

func (EvalAST) Name() string    { return "eval" }
func (d EvalAST) Args() []Value { return []Value{d.Env} }
func (d EvalAST) MapArgs(f func(Value) Value) StmtData {
	d.Env = f(d.Env)
	return d
}
func (EvalAST) IsVoid() bool     { return false }
func (d EvalAST) Detail() string { return d.AST.String() }

// SetVisible sets the interpreter's visibility flag.
type SetVisible struct {
	Visible bool
}

func (d SetVisible) Name() string {
	if d.Visible {
		return "visible"
	}
	return "invisible"
}
func (SetVisible) Args() []Value                        { return nil }
func (d SetVisible) MapArgs(func(Value) Value) StmtData { return d }
func (SetVisible) IsVoid() bool                         { return true }

func names(ns []string) string {
	if len(ns) == 0 {
		return ""
	}
	named := false
	for _, n := range ns {
		if n != "" {
			named = true
			break
		}
	}
	if !named {
		return ""
	}
	return " [" + strings.Join(ns, ",") + "]"
}
