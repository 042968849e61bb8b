// Package bc models decoded R bytecode: an ordered sequence of tagged
// instructions plus a constant pool of boxed values.
//
// Decoding the serialized bytecode format is someone else's job; this package
// only describes the decoded form, checks that its indices are in range,
// renders it for diagnostics, and provides an assembler used by tests and
// tools to produce well-formed programs.
package bc

import (
	"errors"
	"fmt"

	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// ErrMalformed is wrapped by every validation failure.
var ErrMalformed = errors.New("malformed bytecode")

// Label is a jump target: the index of the instruction control transfers to.
type Label int

// NoLabel marks an unused label operand.
const NoLabel Label = -1

// NoConst marks an unused constant-pool operand.
const NoConst = -1

// Version is the bytecode version produced by the assembler.
const Version = 12

// Instr is one decoded instruction. Which operand fields are meaningful is
// described by Op.Info().Operands.
type Instr struct {
	Op    Opcode
	Call  int   // constant index of the originating call, or NoConst
	Arg   int   // constant index of the primary operand, or NoConst
	Label Label // jump target, or NoLabel
	N     int   // immediate operand

	// SWITCH only: one target per name (the last is the default) and one
	// target per numeric alternative plus a trailing default.
	ChrLabels []Label
	NumLabels []Label
}

// Targets returns every label the instruction may jump to, in operand order.
func (in Instr) Targets() []Label {
	ops := in.Op.Info().Operands
	var out []Label
	if ops&UsesLabel != 0 && in.Label != NoLabel {
		out = append(out, in.Label)
	}
	if ops&UsesSwitch != 0 {
		out = append(out, in.ChrLabels...)
		out = append(out, in.NumLabels...)
	}
	return out
}

// Code is a decoded bytecode body: a function, promise or closure body.
// It satisfies sexp.SEXP so nested code can live in a constant pool.
type Code struct {
	Version int
	Name    string // optional, for diagnostics
	Instrs  []Instr
	Consts  []sexp.SEXP
}

func (*Code) Type() sexp.Type { return sexp.BCodeType }

func (c *Code) String() string {
	if c.Name != "" {
		return fmt.Sprintf("<bytecode %s: %d instrs>", c.Name, len(c.Instrs))
	}
	return fmt.Sprintf("<bytecode: %d instrs>", len(c.Instrs))
}

// Const returns constant idx, failing on an out-of-range index.
func (c *Code) Const(idx int) (sexp.SEXP, error) {
	if idx < 0 || idx >= len(c.Consts) {
		return nil, fmt.Errorf("%w: constant index %d out of range [0,%d)", ErrMalformed, idx, len(c.Consts))
	}
	return c.Consts[idx], nil
}

// Validate checks every opcode, constant index and label. It does not check
// stack discipline; that is only discovered by simulation.
func (c *Code) Validate() error {
	if len(c.Instrs) == 0 {
		return fmt.Errorf("%w: empty code", ErrMalformed)
	}
	for pc, in := range c.Instrs {
		if err := c.validateInstr(in); err != nil {
			return fmt.Errorf("pc %d (%s): %w", pc, in.Op, err)
		}
	}
	return nil
}

func (c *Code) validateInstr(in Instr) error {
	if !in.Op.Valid() {
		return fmt.Errorf("%w: unknown opcode 0x%02X", ErrMalformed, byte(in.Op))
	}
	info := in.Op.Info()
	if info.Operands&UsesCall != 0 {
		if _, err := c.Const(in.Call); err != nil {
			return fmt.Errorf("call operand: %w", err)
		}
	}
	if info.Operands&UsesArg != 0 && !(info.ArgOptional && in.Arg == NoConst) {
		if _, err := c.Const(in.Arg); err != nil {
			return fmt.Errorf("operand: %w", err)
		}
	}
	if info.Operands&UsesLabel != 0 && !c.validLabel(in.Label) {
		return fmt.Errorf("%w: label %d out of range", ErrMalformed, in.Label)
	}
	if info.Operands&UsesSwitch != 0 {
		for _, l := range in.ChrLabels {
			if !c.validLabel(l) {
				return fmt.Errorf("%w: switch label %d out of range", ErrMalformed, l)
			}
		}
		if len(in.NumLabels) == 0 {
			return fmt.Errorf("%w: switch without numeric labels", ErrMalformed)
		}
		for _, l := range in.NumLabels {
			if !c.validLabel(l) {
				return fmt.Errorf("%w: switch label %d out of range", ErrMalformed, l)
			}
		}
	}
	return nil
}

func (c *Code) validLabel(l Label) bool {
	return l >= 0 && int(l) < len(c.Instrs)
}
