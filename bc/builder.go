package bc

import (
	"fmt"

	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// Builder assembles decoded bytecode. Labels are created up front, used as
// operands, and bound to an instruction index with Mark; Build resolves them.
type Builder struct {
	name   string
	instrs []Instr
	consts []sexp.SEXP
	marks  []int // label id -> instruction index, -1 while unbound
}

// NewBuilder returns an empty assembler.
func NewBuilder(name string) *Builder {
	return &Builder{name: name}
}

// Const interns v in the constant pool and returns its index.
func (b *Builder) Const(v sexp.SEXP) int {
	for i, k := range b.consts {
		if _, isCode := k.(*Code); isCode {
			continue
		}
		if sexp.Equal(k, v) {
			return i
		}
	}
	b.consts = append(b.consts, v)
	return len(b.consts) - 1
}

// NewLabel allocates an unbound label.
func (b *Builder) NewLabel() Label {
	b.marks = append(b.marks, -1)
	return Label(len(b.marks) - 1)
}

// Mark binds l to the next emitted instruction.
func (b *Builder) Mark(l Label) {
	b.marks[l] = len(b.instrs)
}

// PC is the index the next instruction will have.
func (b *Builder) PC() int { return len(b.instrs) }

// Emit appends a raw instruction; label operands are builder labels.
func (b *Builder) Emit(in Instr) *Builder {
	b.instrs = append(b.instrs, in)
	return b
}

// Op emits an instruction without operands.
func (b *Builder) Op(op Opcode) *Builder {
	return b.Emit(Instr{Op: op, Call: NoConst, Arg: NoConst, Label: NoLabel})
}

// OpArg emits an instruction whose single operand is a constant.
func (b *Builder) OpArg(op Opcode, arg sexp.SEXP) *Builder {
	return b.Emit(Instr{Op: op, Call: NoConst, Arg: b.Const(arg), Label: NoLabel})
}

// OpCall emits an instruction carrying only the originating call.
func (b *Builder) OpCall(op Opcode, call sexp.SEXP) *Builder {
	return b.Emit(Instr{Op: op, Call: b.Const(call), Arg: NoConst, Label: NoLabel})
}

// OpCallN emits an instruction carrying a call and an immediate.
func (b *Builder) OpCallN(op Opcode, call sexp.SEXP, n int) *Builder {
	return b.Emit(Instr{Op: op, Call: b.Const(call), Arg: NoConst, Label: NoLabel, N: n})
}

// OpCallLabel emits an instruction carrying a call and a jump target.
func (b *Builder) OpCallLabel(op Opcode, call sexp.SEXP, l Label) *Builder {
	return b.Emit(Instr{Op: op, Call: b.Const(call), Arg: NoConst, Label: l})
}

// OpCallArg emits an instruction carrying a call and a constant operand.
func (b *Builder) OpCallArg(op Opcode, call, arg sexp.SEXP) *Builder {
	return b.Emit(Instr{Op: op, Call: b.Const(call), Arg: b.Const(arg), Label: NoLabel})
}

// Goto emits an unconditional jump.
func (b *Builder) Goto(l Label) *Builder {
	return b.Emit(Instr{Op: OpGoto, Call: NoConst, Arg: NoConst, Label: l})
}

// BrIfNot emits a conditional jump taken when the popped condition is false.
func (b *Builder) BrIfNot(call sexp.SEXP, l Label) *Builder {
	return b.OpCallLabel(OpBrIfNot, call, l)
}

// StartFor emits STARTFOR; step is the label of the matching STEPFOR.
func (b *Builder) StartFor(call sexp.SEXP, sym string, step Label) *Builder {
	return b.Emit(Instr{Op: OpStartFor, Call: b.Const(call), Arg: b.Const(sexp.Sym(sym)), Label: step})
}

// StartLoopCntxt emits STARTLOOPCNTXT.
func (b *Builder) StartLoopCntxt(isFor bool, end Label) *Builder {
	n := 0
	if isFor {
		n = 1
	}
	return b.Emit(Instr{Op: OpStartLoopCntxt, Call: NoConst, Arg: NoConst, Label: end, N: n})
}

// EndLoopCntxt emits ENDLOOPCNTXT.
func (b *Builder) EndLoopCntxt(isFor bool) *Builder {
	n := 0
	if isFor {
		n = 1
	}
	return b.Emit(Instr{Op: OpEndLoopCntxt, Call: NoConst, Arg: NoConst, Label: NoLabel, N: n})
}

// Switch emits SWITCH. names may be nil for a purely numeric switch, in which
// case chr may be nil too.
func (b *Builder) Switch(call sexp.SEXP, names []string, chr, num []Label) *Builder {
	arg := NoConst
	if names != nil {
		arg = b.Const(sexp.Str(names))
	}
	return b.Emit(Instr{Op: OpSwitch, Call: b.Const(call), Arg: arg, Label: NoLabel, ChrLabels: chr, NumLabels: num})
}

// Build resolves labels and returns the code. It fails on unbound labels and
// on anything Validate rejects.
func (b *Builder) Build() (*Code, error) {
	resolve := func(l Label) (Label, error) {
		if l == NoLabel {
			return NoLabel, nil
		}
		if int(l) >= len(b.marks) || b.marks[l] < 0 {
			return NoLabel, fmt.Errorf("%w: label %d never marked", ErrMalformed, l)
		}
		return Label(b.marks[l]), nil
	}
	resolveAll := func(ls []Label) ([]Label, error) {
		if ls == nil {
			return nil, nil
		}
		out := make([]Label, len(ls))
		for i, l := range ls {
			r, err := resolve(l)
			if err != nil {
				return nil, err
			}
			out[i] = r
		}
		return out, nil
	}

	code := &Code{
		Version: Version,
		Name:    b.name,
		Instrs:  make([]Instr, len(b.instrs)),
		Consts:  append([]sexp.SEXP(nil), b.consts...),
	}
	for pc, in := range b.instrs {
		var err error
		if in.Label, err = resolve(in.Label); err != nil {
			return nil, fmt.Errorf("pc %d: %w", pc, err)
		}
		if in.ChrLabels, err = resolveAll(in.ChrLabels); err != nil {
			return nil, fmt.Errorf("pc %d: %w", pc, err)
		}
		if in.NumLabels, err = resolveAll(in.NumLabels); err != nil {
			return nil, fmt.Errorf("pc %d: %w", pc, err)
		}
		code.Instrs[pc] = in
	}
	if err := code.Validate(); err != nil {
		return nil, err
	}
	return code, nil
}

// MustBuild is Build for programs known to be well formed.
func (b *Builder) MustBuild() *Code {
	code, err := b.Build()
	if err != nil {
		panic(fmt.Sprintf("bc: %v", err))
	}
	return code
}
