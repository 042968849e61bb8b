package compiler

import (
	"fmt"
	"strings"

	"github.com/PRL-PRG/r-compile-server-sub002/ir"
)

// Site locates a compilation failure.
type Site struct {
	Code  string // name of the code being compiled
	PC    int
	Instr string // disassembled instruction at PC
	// Block and Index are the cursor: the block being filled and the
	// position the next statement would take.
	Block ir.BBID
	Index int
	// CFG is the graph as far as it was built.
	CFG *ir.CFG
}

func (s *Site) where() string {
	name := s.Code
	if name == "" {
		name = "<anonymous>"
	}
	if s.Instr == "" {
		return name
	}
	return fmt.Sprintf("%s pc %d (%s)", name, s.PC, s.Instr)
}

// InternalError reports malformed input or a broken compiler invariant. When
// the input failed validation, Err wraps bc.ErrMalformed.
type InternalError struct {
	Site
	Msg string
	Err error
	// Problems holds verifier findings when the failure came from the final
	// verification pass.
	Problems []ir.Problem
}

func (e *InternalError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s: internal error: %s", e.where(), e.Msg)
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	for _, p := range e.Problems {
		sb.WriteString("\n  " + p.String())
	}
	return sb.String()
}

func (e *InternalError) Unwrap() error { return e.Err }

// UnsupportedError reports a construct the compiler does not handle.
// Callers may fall back to interpreting the original code.
type UnsupportedError struct {
	Site
	Msg string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: unsupported: %s", e.where(), e.Msg)
}

// MissingBodyError reports a closure whose body is an AST when no fallback
// compiler was provided.
type MissingBodyError struct {
	Site
	Body string
}

func (e *MissingBodyError) Error() string {
	return fmt.Sprintf("%s: closure body is not bytecode and no fallback is set: %s", e.where(), e.Body)
}

// failure carries a typed error out of the walk.
type failure struct {
	err error
}

func (c *compiler) site() Site {
	s := Site{Code: c.code.Name, PC: c.pc, CFG: c.g}
	if c.pc >= 0 && c.pc < len(c.code.Instrs) {
		s.Instr = c.code.FormatInstr(c.pc)
	}
	if c.bb != nil {
		s.Block = c.bb.ID()
		s.Index = c.bb.NumStmts()
	}
	return s
}

func (c *compiler) internalf(format string, args ...any) {
	panic(failure{&InternalError{Site: c.site(), Msg: fmt.Sprintf(format, args...)}})
}

func (c *compiler) internalErr(err error, format string, args ...any) {
	panic(failure{&InternalError{Site: c.site(), Msg: fmt.Sprintf(format, args...), Err: err}})
}

func (c *compiler) unsupportedf(format string, args ...any) {
	panic(failure{&UnsupportedError{Site: c.site(), Msg: fmt.Sprintf(format, args...)}})
}
