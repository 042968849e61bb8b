package compiler

import (
	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
)

type dispatchOp struct {
	op     string
	assign bool
}

// Operators whose default case is a pending builtin call closed by DFLT*.
var startDispatchOps = map[bc.Opcode]dispatchOp{
	bc.OpStartSubset:     {"[", false},
	bc.OpStartSubset2:    {"[[", false},
	bc.OpStartC:          {"c", false},
	bc.OpStartSubassign:  {"[<-", true},
	bc.OpStartSubassign2: {"[[<-", true},
}

var dfltDispatchOps = map[bc.Opcode]dispatchOp{
	bc.OpDfltSubset:     {"[", false},
	bc.OpDfltSubset2:    {"[[", false},
	bc.OpDfltC:          {"c", false},
	bc.OpDfltSubassign:  {"[<-", true},
	bc.OpDfltSubassign2: {"[[<-", true},
}

// Operators whose default case takes its arguments from the operand stack.
var startFastDispatchOps = map[bc.Opcode]dispatchOp{
	bc.OpStartSubsetN:     {"[", false},
	bc.OpStartSubset2N:    {"[[", false},
	bc.OpStartSubassignN:  {"[<-", true},
	bc.OpStartSubassign2N: {"[[<-", true},
}

type fastSubsetOp struct {
	dispatchOp
	nidx int // number of indices; -1 takes it from the instruction
}

var fastSubsetOps = map[bc.Opcode]fastSubsetOp{
	bc.OpVecSubset:     {dispatchOp{"[", false}, 1},
	bc.OpMatSubset:     {dispatchOp{"[", false}, 2},
	bc.OpSubsetN:       {dispatchOp{"[", false}, -1},
	bc.OpVecSubset2:    {dispatchOp{"[[", false}, 1},
	bc.OpMatSubset2:    {dispatchOp{"[[", false}, 2},
	bc.OpSubset2N:      {dispatchOp{"[[", false}, -1},
	bc.OpVecSubassign:  {dispatchOp{"[<-", true}, 1},
	bc.OpMatSubassign:  {dispatchOp{"[<-", true}, 2},
	bc.OpSubassignN:    {dispatchOp{"[<-", true}, -1},
	bc.OpVecSubassign2: {dispatchOp{"[[<-", true}, 1},
	bc.OpMatSubassign2: {dispatchOp{"[[<-", true}, 2},
	bc.OpSubassign2N:   {dispatchOp{"[[<-", true}, -1},
}

// startDispatch splits on whether the target is an object. Objects dispatch
// and jump straight to the merge label; everything else starts a builtin
// call with the target as first argument.
//
//	[.. x]     -> call op(x, ...)
//	[.. x rhs] -> call op(x, ...), [.. rhs]
func (c *compiler) startDispatch(in bc.Instr, d dispatchOp) {
	ast := c.callAST(in)
	var rhs ir.Value
	if d.assign {
		rhs = c.pop()
	}
	x := c.pop()
	merge := c.label(in.Label)
	isObj := c.emit(ir.IsObject{Value: x})
	obj, plain := c.newBlock(), c.newBlock()
	c.branch(isObj, obj, plain)

	c.moveTo(obj)
	dsp := ir.Dispatch{Op: d.op, Target: x, AST: ast, Env: c.g.Env()}
	if d.assign {
		dsp.Extra = []ir.Value{rhs}
	}
	c.push(c.emit(dsp))
	c.gotoBlock(merge)

	c.moveTo(plain)
	b, ok := c.opts.Registry.Lookup(d.op)
	if !ok {
		c.internalf("builtin %q is not registered", d.op)
	}
	c.startCall(pendingCall{builtin: b, args: []ir.Value{x}, names: []string{""}})
	if d.assign {
		c.push(rhs)
	}
	c.dispatches = append(c.dispatches, dispatchCtx{op: d.op, merge: merge, ast: ast})
}

// dfltDispatch performs the default case opened by startDispatch.
func (c *compiler) dfltDispatch(d dispatchOp) {
	ctx := c.popDispatch(d.op, false)
	var rhs ir.Value
	if d.assign {
		rhs = c.pop()
	}
	p := c.popCall()
	if p.builtin == nil || p.builtin.Name != d.op {
		c.internalf("default %s closes call to %s", d.op, p.describe())
	}
	args, names := p.args, p.names
	if d.assign {
		args = append(args, rhs)
		names = append(names, "value")
	}
	c.push(c.callBuiltin(p.builtin, ctx.ast, args, names))
}

// startFastDispatch is startDispatch for the *_N forms: on the plain path
// the target stays on the stack for the matching subset instruction.
func (c *compiler) startFastDispatch(in bc.Instr, d dispatchOp) {
	ast := c.callAST(in)
	x := c.peek(0)
	if d.assign {
		x = c.peek(1)
	}
	merge := c.label(in.Label)
	isObj := c.emit(ir.IsObject{Value: x})
	obj, plain := c.newBlock(), c.newBlock()
	c.branch(isObj, obj, plain)

	c.moveTo(obj)
	dsp := ir.Dispatch{Op: d.op, AST: ast, Env: c.g.Env()}
	if d.assign {
		dsp.Extra = []ir.Value{c.pop()}
	}
	dsp.Target = c.pop()
	c.push(c.emit(dsp))
	c.gotoBlock(merge)

	c.moveTo(plain)
	c.dispatches = append(c.dispatches, dispatchCtx{op: d.op, merge: merge, fast: true, ast: ast})
}

// fastSubset compiles VECSUBSET and friends:
//
//	[.. x i1..in]     -> [.. op(x, i1..in)]
//	[.. x rhs i1..in] -> [.. op(x, i1..in, value=rhs)]
//
// It closes the fast dispatch of the same operator if one is open.
func (c *compiler) fastSubset(in bc.Instr, s fastSubsetOp) {
	n := s.nidx
	if n < 0 {
		n = in.N
	}
	idx := c.popN(n)
	var rhs ir.Value
	if s.assign {
		rhs = c.pop()
	}
	x := c.pop()
	args := append([]ir.Value{x}, idx...)
	var names []string
	if s.assign {
		args = append(args, rhs)
		names = make([]string, len(args))
		names[len(names)-1] = "value"
	}
	if k := len(c.dispatches); k > 0 && c.dispatches[k-1].fast && c.dispatches[k-1].op == s.op {
		c.dispatches = c.dispatches[:k-1]
	}
	c.push(c.builtin(s.op, c.callAST(in), args, names))
}
