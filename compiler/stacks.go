package compiler

import (
	"github.com/PRL-PRG/r-compile-server-sub002/fun"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

type loopKind uint8

const (
	loopFor loopKind = iota
	loopWhile
)

func (k loopKind) String() string {
	if k == loopFor {
		return "for"
	}
	return "while"
}

// forStateSize is how many operand-stack slots a running for loop holds:
// the sequence, its length and the current index.
const forStateSize = 3

// loopCtx is a loop whose next/break targets are known.
type loopCtx struct {
	kind loopKind
	body *ir.BB
	cont *ir.BB // where next goes
	end  *ir.BB // where break goes
	sym  string // for loops: the loop variable
}

// pendingCall collects arguments between the instruction that names the
// function and the one that performs the call. Exactly one of fun and
// builtin is set.
type pendingCall struct {
	fun     ir.Value
	builtin *fun.Builtin
	args    []ir.Value
	names   []string
}

func (p *pendingCall) add(v ir.Value, name string) {
	p.args = append(p.args, v)
	p.names = append(p.names, name)
}

func (p *pendingCall) describe() string {
	if p.builtin != nil {
		return p.builtin.Name
	}
	return p.fun.ID().String()
}

// assignCtx is a complex assignment between STARTASSIGN and ENDASSIGN. rhs
// must still be below the updated value when the assignment ends.
type assignCtx struct {
	super bool
	sym   string
	rhs   ir.Value
}

// dispatchCtx is an overridable operator whose object case has been split
// off. fast marks the *_N forms, whose arguments stay on the operand stack.
type dispatchCtx struct {
	op    string
	merge *ir.BB
	fast  bool
	ast   sexp.SEXP
}

func (c *compiler) startCall(p pendingCall) {
	c.calls = append(c.calls, p)
}

func (c *compiler) topCall() *pendingCall {
	if len(c.calls) == 0 {
		c.internalf("no call in progress")
	}
	return &c.calls[len(c.calls)-1]
}

func (c *compiler) popCall() pendingCall {
	p := *c.topCall()
	c.calls = c.calls[:len(c.calls)-1]
	return p
}

func (c *compiler) popDispatch(op string, fast bool) dispatchCtx {
	if len(c.dispatches) == 0 {
		c.internalf("no %s dispatch in progress", op)
	}
	d := c.dispatches[len(c.dispatches)-1]
	if d.op != op || d.fast != fast {
		c.internalf("closing %s dispatch, but %s is open", op, d.op)
	}
	c.dispatches = c.dispatches[:len(c.dispatches)-1]
	return d
}

func (c *compiler) forLoops() int {
	n := 0
	for _, l := range c.loops {
		if l.kind == loopFor {
			n++
		}
	}
	return n
}
