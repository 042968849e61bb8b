// Package ir is the SSA intermediate representation: a control-flow graph of
// basic blocks holding phi parameters, statements and one terminating jump.
//
// # Identity
//
// Every referenceable thing is a Node with an id. Graph-owned nodes draw ids
// from their CFG; shared constants belong to no graph and draw ids from a
// process-wide counter, so they are globally unique. Instructions are stable
// wrappers around immutable payloads: replacing a payload keeps the wrapper,
// so references held by other nodes stay valid.
//
// # Invariants
//
// The substrate enforces only local invariants (one jump per block, no
// duplicate phi inputs). Global ones such as reachability, phi arity per
// predecessor and definition before use are checked by Verify, which reports
// problems instead of failing fast. Removal never scrubs references; dangling
// uses are left for Verify to find.
package ir

import (
	"fmt"
	"sync/atomic"

	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// NodeID identifies a node. Positive ids are graph-local; negative ids belong
// to graph-less nodes.
type NodeID int

func (id NodeID) String() string {
	if id < 0 {
		return fmt.Sprintf("%%g%d", -id)
	}
	return fmt.Sprintf("%%%d", id)
}

var globalIDs atomic.Int64

func nextGlobalID() NodeID {
	return NodeID(-globalIDs.Add(1))
}

// Origin records the bytecode instruction a node was compiled from.
type Origin struct {
	PC int
	Op string
}

func (o *Origin) String() string {
	if o == nil {
		return ""
	}
	return fmt.Sprintf("%s@%d", o.Op, o.PC)
}

// Node is anything that can be referenced.
type Node interface {
	ID() NodeID
	// CFG is the owning graph, or nil for shared constants.
	CFG() *CFG
	Origin() *Origin
}

// Value is a node that can be used as an argument.
type Value interface {
	Node
	isValue()
}

// Const is a graph-less literal wrapping a boxed value.
type Const struct {
	id  NodeID
	val sexp.SEXP
}

// NewConst wraps v in a fresh literal node.
func NewConst(v sexp.SEXP) *Const {
	return &Const{id: nextGlobalID(), val: v}
}

func (c *Const) ID() NodeID       { return c.id }
func (c *Const) CFG() *CFG        { return nil }
func (c *Const) Origin() *Origin  { return nil }
func (c *Const) Value() sexp.SEXP { return c.val }
func (c *Const) String() string   { return c.val.String() }
func (*Const) isValue()           {}

// Shared literals.
var (
	Null    = NewConst(sexp.Nil)
	True    = NewConst(sexp.ScalarLgl(sexp.True))
	False   = NewConst(sexp.ScalarLgl(sexp.False))
	Missing = NewConst(sexp.Missing)
)

// Param is a graph-owned value defined on entry, such as the closure
// environment. It is referenceable from every block.
type Param struct {
	id   NodeID
	cfg  *CFG
	name string
}

func (p *Param) ID() NodeID      { return p.id }
func (p *Param) CFG() *CFG       { return p.cfg }
func (p *Param) Origin() *Origin { return nil }
func (p *Param) Name() string    { return p.name }
func (p *Param) String() string  { return p.name }
func (*Param) isValue()          {}
