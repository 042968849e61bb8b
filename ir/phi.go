package ir

import (
	"errors"
	"fmt"
)

// ErrDuplicateInput is returned when a phi already has an input from a block.
var ErrDuplicateInput = errors.New("ir: duplicate phi input")

// PhiInput is one incoming edge of a phi.
type PhiInput struct {
	Block *BB
	Value Value
}

// Phi merges values flowing in from predecessor blocks.
type Phi struct {
	id      NodeID
	bb      *BB
	inputs  []PhiInput
	removed bool
}

func (p *Phi) ID() NodeID      { return p.id }
func (p *Phi) CFG() *CFG       { return p.bb.cfg }
func (p *Phi) Origin() *Origin { return nil }
func (p *Phi) BB() *BB         { return p.bb }
func (p *Phi) Removed() bool   { return p.removed }
func (p *Phi) Len() int        { return len(p.inputs) }
func (p *Phi) String() string  { return p.id.String() }
func (*Phi) isValue()          {}

// Inputs returns a copy of the inputs in insertion order.
func (p *Phi) Inputs() []PhiInput {
	return append([]PhiInput(nil), p.inputs...)
}

// Input returns the value flowing in from bb.
func (p *Phi) Input(bb *BB) (Value, bool) {
	for _, in := range p.inputs {
		if in.Block == bb {
			return in.Value, true
		}
	}
	return nil, false
}

// AddInput appends an input. Each incoming block may appear once.
func (p *Phi) AddInput(bb *BB, v Value) error {
	if _, dup := p.Input(bb); dup {
		return fmt.Errorf("%w: %s already has an input from %s", ErrDuplicateInput, p.id, bb)
	}
	p.inputs = append(p.inputs, PhiInput{Block: bb, Value: v})
	p.bb.cfg.record(HistoryEntry{
		Cmd:    CmdPhiInput,
		Block:  p.bb.id,
		Node:   p.id,
		Detail: fmt.Sprintf("%s: %s", bb, v.ID()),
	})
	return nil
}

func (p *Phi) mapInputs(f func(Value) Value) bool {
	changed := false
	for i, in := range p.inputs {
		if nv := f(in.Value); nv != in.Value {
			p.inputs[i].Value = nv
			changed = true
		}
	}
	return changed
}
