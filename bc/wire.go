package bc

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// Decoded programs are exchanged between tools as canonical CBOR. This is a
// fixture format for already-decoded code, not R's serialized bytecode.

var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("bc: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

type wireCode struct {
	Version int         `cbor:"1,keyasint"`
	Name    string      `cbor:"2,keyasint,omitempty"`
	Instrs  []wireInstr `cbor:"3,keyasint"`
	Consts  []wireValue `cbor:"4,keyasint"`
}

type wireInstr struct {
	Op    uint8 `cbor:"1,keyasint"`
	Call  int   `cbor:"2,keyasint"`
	Arg   int   `cbor:"3,keyasint"`
	Label int   `cbor:"4,keyasint"`
	N     int   `cbor:"5,keyasint,omitempty"`
	Chr   []int `cbor:"6,keyasint,omitempty"`
	Num   []int `cbor:"7,keyasint,omitempty"`
}

type wireValue struct {
	Kind uint8      `cbor:"1,keyasint"`
	Sym  string     `cbor:"2,keyasint,omitempty"`
	Lgl  []int8     `cbor:"3,keyasint,omitempty"`
	Int  []int      `cbor:"4,keyasint,omitempty"`
	Real []float64  `cbor:"5,keyasint,omitempty"`
	Str  []string   `cbor:"6,keyasint,omitempty"`
	Fun  *wireValue `cbor:"7,keyasint,omitempty"`
	Args []wireArg  `cbor:"8,keyasint,omitempty"`
	Code *wireCode  `cbor:"9,keyasint,omitempty"`
	Len  int        `cbor:"10,keyasint,omitempty"` // vector length, so empty vectors survive omitempty
}

type wireArg struct {
	Tag   string    `cbor:"1,keyasint,omitempty"`
	Value wireValue `cbor:"2,keyasint"`
}

// MarshalCode serializes decoded code to canonical CBOR.
func MarshalCode(c *Code) ([]byte, error) {
	w, err := toWireCode(c)
	if err != nil {
		return nil, err
	}
	return cborEncMode.Marshal(w)
}

// UnmarshalCode deserializes code produced by MarshalCode and validates it.
func UnmarshalCode(data []byte) (*Code, error) {
	var w wireCode
	if err := cbor.Unmarshal(data, &w); err != nil {
		return nil, fmt.Errorf("bc: unmarshal code: %w", err)
	}
	c, err := fromWireCode(&w)
	if err != nil {
		return nil, fmt.Errorf("bc: unmarshal code: %w", err)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

func toWireCode(c *Code) (*wireCode, error) {
	w := &wireCode{Version: c.Version, Name: c.Name}
	for _, in := range c.Instrs {
		w.Instrs = append(w.Instrs, wireInstr{
			Op:    uint8(in.Op),
			Call:  in.Call,
			Arg:   in.Arg,
			Label: int(in.Label),
			N:     in.N,
			Chr:   labelsToInts(in.ChrLabels),
			Num:   labelsToInts(in.NumLabels),
		})
	}
	for i, k := range c.Consts {
		v, err := toWireValue(k)
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		w.Consts = append(w.Consts, v)
	}
	return w, nil
}

func toWireValue(s sexp.SEXP) (wireValue, error) {
	w := wireValue{Kind: uint8(s.Type()), Len: sexp.Len(s)}
	switch v := s.(type) {
	case sexp.Sym:
		w.Sym = string(v)
	case sexp.Lgl:
		for _, l := range v {
			w.Lgl = append(w.Lgl, int8(l))
		}
	case sexp.Int:
		w.Int = v
	case sexp.Real:
		w.Real = v
	case sexp.Str:
		w.Str = v
	case *sexp.Lang:
		fun, err := toWireValue(v.Fun)
		if err != nil {
			return w, err
		}
		w.Fun = &fun
		if w.Args, err = toWireArgs(v.Args); err != nil {
			return w, err
		}
	case sexp.List:
		var err error
		if w.Args, err = toWireArgs(v); err != nil {
			return w, err
		}
	case *Code:
		code, err := toWireCode(v)
		if err != nil {
			return w, err
		}
		w.Code = code
	default:
		if s.Type() != sexp.NilType && s.Type() != sexp.MissingType {
			return w, fmt.Errorf("cannot encode %s", s.Type())
		}
	}
	return w, nil
}

func toWireArgs(args []sexp.Arg) ([]wireArg, error) {
	out := make([]wireArg, 0, len(args))
	for _, a := range args {
		v, err := toWireValue(a.Value)
		if err != nil {
			return nil, err
		}
		out = append(out, wireArg{Tag: a.Tag, Value: v})
	}
	return out, nil
}

func fromWireCode(w *wireCode) (*Code, error) {
	c := &Code{Version: w.Version, Name: w.Name}
	for _, in := range w.Instrs {
		c.Instrs = append(c.Instrs, Instr{
			Op:        Opcode(in.Op),
			Call:      in.Call,
			Arg:       in.Arg,
			Label:     Label(in.Label),
			N:         in.N,
			ChrLabels: intsToLabels(in.Chr),
			NumLabels: intsToLabels(in.Num),
		})
	}
	for i := range w.Consts {
		v, err := fromWireValue(&w.Consts[i])
		if err != nil {
			return nil, fmt.Errorf("constant %d: %w", i, err)
		}
		c.Consts = append(c.Consts, v)
	}
	return c, nil
}

func fromWireValue(w *wireValue) (sexp.SEXP, error) {
	switch sexp.Type(w.Kind) {
	case sexp.NilType:
		return sexp.Nil, nil
	case sexp.MissingType:
		return sexp.Missing, nil
	case sexp.SymType:
		return sexp.Sym(w.Sym), nil
	case sexp.LglType:
		v := make(sexp.Lgl, w.Len)
		for i := range v {
			if i < len(w.Lgl) {
				v[i] = sexp.Logical(w.Lgl[i])
			}
		}
		return v, nil
	case sexp.IntType:
		v := make(sexp.Int, w.Len)
		copy(v, w.Int)
		return v, nil
	case sexp.RealType:
		v := make(sexp.Real, w.Len)
		copy(v, w.Real)
		return v, nil
	case sexp.StrType:
		v := make(sexp.Str, w.Len)
		copy(v, w.Str)
		return v, nil
	case sexp.LangType:
		if w.Fun == nil {
			return nil, fmt.Errorf("%w: call without function", ErrMalformed)
		}
		fun, err := fromWireValue(w.Fun)
		if err != nil {
			return nil, err
		}
		args, err := fromWireArgs(w.Args)
		if err != nil {
			return nil, err
		}
		return &sexp.Lang{Fun: fun, Args: args}, nil
	case sexp.ListType:
		args, err := fromWireArgs(w.Args)
		if err != nil {
			return nil, err
		}
		return sexp.List(args), nil
	case sexp.BCodeType:
		if w.Code == nil {
			return nil, fmt.Errorf("%w: bytecode constant without code", ErrMalformed)
		}
		return fromWireCode(w.Code)
	}
	return nil, fmt.Errorf("%w: unknown constant kind %d", ErrMalformed, w.Kind)
}

func fromWireArgs(ws []wireArg) ([]sexp.Arg, error) {
	var out []sexp.Arg
	for i := range ws {
		v, err := fromWireValue(&ws[i].Value)
		if err != nil {
			return nil, err
		}
		out = append(out, sexp.Arg{Tag: ws[i].Tag, Value: v})
	}
	return out, nil
}

func labelsToInts(ls []Label) []int {
	if ls == nil {
		return nil
	}
	out := make([]int, len(ls))
	for i, l := range ls {
		out[i] = int(l)
	}
	return out
}

func intsToLabels(is []int) []Label {
	if is == nil {
		return nil
	}
	out := make([]Label, len(is))
	for i, v := range is {
		out[i] = Label(v)
	}
	return out
}
