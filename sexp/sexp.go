// Package sexp is a small model of boxed R values, just enough to populate
// bytecode constant pools: symbols, scalar and vector literals, calls
// (language objects), lists and the missing-argument marker.
//
// Values are immutable once constructed. Nested bytecode is not defined here;
// package bc provides a Code type that satisfies SEXP so it can sit in a pool.
package sexp

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Type identifies the kind of a boxed value.
type Type uint8

const (
	NilType Type = iota
	SymType
	LglType
	IntType
	RealType
	StrType
	LangType
	ListType
	MissingType
	BCodeType
)

var typeNames = [...]string{
	NilType:     "NULL",
	SymType:     "symbol",
	LglType:     "logical",
	IntType:     "integer",
	RealType:    "double",
	StrType:     "character",
	LangType:    "language",
	ListType:    "list",
	MissingType: "missing",
	BCodeType:   "bytecode",
}

func (t Type) String() string {
	if int(t) < len(typeNames) {
		return typeNames[t]
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// SEXP is any boxed value.
type SEXP interface {
	Type() Type
	String() string
}

type nilSXP struct{}

func (nilSXP) Type() Type     { return NilType }
func (nilSXP) String() string { return "NULL" }

// Nil is R's NULL.
var Nil SEXP = nilSXP{}

type missingSXP struct{}

func (missingSXP) Type() Type     { return MissingType }
func (missingSXP) String() string { return "<missing>" }

// Missing is the missing-argument marker (R_MissingArg).
var Missing SEXP = missingSXP{}

// Sym is a symbol.
type Sym string

func (Sym) Type() Type       { return SymType }
func (s Sym) String() string { return string(s) }

// Logical is a three-valued R logical.
type Logical int8

const (
	False Logical = 0
	True  Logical = 1
	NA    Logical = -1
)

func (l Logical) String() string {
	switch l {
	case True:
		return "TRUE"
	case False:
		return "FALSE"
	default:
		return "NA"
	}
}

// Lgl is a logical vector.
type Lgl []Logical

func (Lgl) Type() Type { return LglType }
func (v Lgl) String() string {
	return vecString(len(v), func(i int) string { return v[i].String() })
}

// Int is an integer vector.
type Int []int

func (Int) Type() Type { return IntType }
func (v Int) String() string {
	return vecString(len(v), func(i int) string { return strconv.Itoa(v[i]) + "L" })
}

// Real is a double vector.
type Real []float64

func (Real) Type() Type { return RealType }
func (v Real) String() string {
	return vecString(len(v), func(i int) string {
		if math.IsNaN(v[i]) {
			return "NaN"
		}
		return strconv.FormatFloat(v[i], 'g', -1, 64)
	})
}

// Str is a character vector.
type Str []string

func (Str) Type() Type { return StrType }
func (v Str) String() string {
	return vecString(len(v), func(i int) string { return strconv.Quote(v[i]) })
}

// Arg is one optionally tagged element of a call or list.
type Arg struct {
	Tag   string
	Value SEXP
}

func (a Arg) String() string {
	if a.Tag == "" {
		return a.Value.String()
	}
	return a.Tag + "=" + a.Value.String()
}

// Lang is a call: a function expression applied to arguments.
type Lang struct {
	Fun  SEXP
	Args []Arg
}

func (*Lang) Type() Type { return LangType }
func (l *Lang) String() string {
	parts := make([]string, len(l.Args))
	for i, a := range l.Args {
		parts[i] = a.String()
	}
	return l.Fun.String() + "(" + strings.Join(parts, ", ") + ")"
}

// FunName returns the called symbol's name, if the function position is a
// symbol.
func (l *Lang) FunName() (string, bool) {
	s, ok := l.Fun.(Sym)
	return string(s), ok
}

// List is a generic vector with optional tags.
type List []Arg

func (List) Type() Type { return ListType }
func (l List) String() string {
	parts := make([]string, len(l))
	for i, a := range l {
		parts[i] = a.String()
	}
	return "list(" + strings.Join(parts, ", ") + ")"
}

func vecString(n int, elt func(int) string) string {
	if n == 1 {
		return elt(0)
	}
	parts := make([]string, n)
	for i := range parts {
		parts[i] = elt(i)
	}
	return "c(" + strings.Join(parts, ", ") + ")"
}

// Convenience constructors for scalars.

func ScalarInt(i int) Int       { return Int{i} }
func ScalarReal(f float64) Real { return Real{f} }
func ScalarStr(s string) Str    { return Str{s} }
func ScalarLgl(l Logical) Lgl   { return Lgl{l} }

// Call builds a call to the named function with untagged arguments.
func Call(fun string, args ...SEXP) *Lang {
	l := &Lang{Fun: Sym(fun)}
	for _, a := range args {
		l.Args = append(l.Args, Arg{Value: a})
	}
	return l
}

// IsSymbol reports whether s is the symbol called name.
func IsSymbol(s SEXP, name string) bool {
	sym, ok := s.(Sym)
	return ok && string(sym) == name
}

// AsScalarString reifies a length-1 character vector or a symbol into a Go
// string.
func AsScalarString(s SEXP) (string, bool) {
	switch v := s.(type) {
	case Str:
		if len(v) == 1 {
			return v[0], true
		}
	case Sym:
		return string(v), true
	}
	return "", false
}

// Len returns the vector length of s; non-vectors have length 1 except NULL.
func Len(s SEXP) int {
	switch v := s.(type) {
	case nilSXP:
		return 0
	case Lgl:
		return len(v)
	case Int:
		return len(v)
	case Real:
		return len(v)
	case Str:
		return len(v)
	case List:
		return len(v)
	}
	return 1
}

// Equal reports structural equality. Doubles compare bitwise so NaN equals
// itself, which is what constant deduplication wants.
func Equal(a, b SEXP) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Type() != b.Type() {
		return false
	}
	switch x := a.(type) {
	case nilSXP, missingSXP:
		return true
	case Sym:
		return x == b.(Sym)
	case Lgl:
		y := b.(Lgl)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case Int:
		y := b.(Int)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case Real:
		y := b.(Real)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if math.Float64bits(x[i]) != math.Float64bits(y[i]) {
				return false
			}
		}
		return true
	case Str:
		y := b.(Str)
		if len(x) != len(y) {
			return false
		}
		for i := range x {
			if x[i] != y[i] {
				return false
			}
		}
		return true
	case *Lang:
		y := b.(*Lang)
		return Equal(x.Fun, y.Fun) && argsEqual(x.Args, y.Args)
	case List:
		return argsEqual(x, b.(List))
	}
	// Opaque values (bytecode) compare by identity.
	return a == b
}

func argsEqual(a, b []Arg) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].Tag != b[i].Tag || !Equal(a[i].Value, b[i].Value) {
			return false
		}
	}
	return true
}
