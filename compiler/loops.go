package compiler

import (
	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

var (
	zero = ir.NewConst(sexp.ScalarInt(0))
	one  = ir.NewConst(sexp.ScalarInt(1))
)

// startFor compiles STARTFOR and the loop's step block, then leaves the
// cursor at the top of the body.
//
//	init: seq' = toforseq(seq); n = length(seq'); goto step(seq', n, 0)
//	step: i' = i + 1; if i' > n goto end else body
//	body: x = forelt(seq', i'); ...; goto step
//
// The sequence, length and index stay on the operand stack until ENDFOR.
func (c *compiler) startFor(in bc.Instr) {
	sym := c.symbol(in.Arg)
	stepPC := int(in.Label)
	stepIn := c.code.Instrs[stepPC]
	if stepIn.Op != bc.OpStepFor {
		c.internalErr(bc.ErrMalformed, "STARTFOR points at %s, not STEPFOR", stepIn.Op)
	}
	if int(stepIn.Label) != c.pc+1 {
		c.internalErr(bc.ErrMalformed, "STEPFOR loops back to %d, body starts at %d", stepIn.Label, c.pc+1)
	}
	step := c.label(in.Label)
	body := c.label(stepIn.Label)
	end := c.label(bc.Label(stepPC + 1))

	seq := c.emit(ir.ToForSeq{Value: c.pop()})
	n := c.emit(ir.Length{Value: seq})
	c.push(seq, n, zero)
	c.gotoBlock(step)

	startPC := c.pc
	c.pc = stepPC
	c.moveTo(step)
	next := c.builtin("+", nil, []ir.Value{c.pop(), one}, nil)
	c.push(next)
	past := c.builtin(">", nil, []ir.Value{next, c.peek(1)}, nil)
	c.branch(past, end, body)
	c.pc = startPC

	loop := &loopCtx{kind: loopFor, body: body, cont: step, end: end, sym: sym}
	c.loops = append(c.loops, loop)
	c.done[step] = loop

	c.moveTo(body)
	elt := c.emit(ir.ForElt{Seq: c.peek(2), Index: c.peek(0)})
	c.emit(ir.WriteVar{Env: c.g.Env(), Sym: sym, Value: elt})
}

// leaveFor runs when the walk reaches a for loop's STEPFOR: the step block
// is already built, so the loop is closed and the cursor moves to its end.
func (c *compiler) leaveFor(step *ir.BB, loop *loopCtx) {
	if len(c.loops) == 0 || c.loops[len(c.loops)-1] != loop {
		c.internalf("for loop at %s closes out of order", step)
	}
	c.loops = c.loops[:len(c.loops)-1]
	c.bb = nil
	c.moveTo(loop.end)
}

func (c *compiler) endFor() {
	c.popN(forStateSize)
	c.push(ir.Null)
}

func (c *compiler) startLoopCntxt(in bc.Instr) {
	if in.N != 0 {
		c.unsupportedf("loop context for a for loop")
	}
	c.loops = append(c.loops, &loopCtx{
		kind: loopWhile,
		body: c.labels[c.pc+1],
		cont: c.labels[c.pc+1],
		end:  c.label(in.Label),
	})
}

func (c *compiler) endLoopCntxt(in bc.Instr) {
	if in.N != 0 {
		c.unsupportedf("loop context for a for loop")
	}
	if len(c.loops) == 0 || c.loops[len(c.loops)-1].kind != loopWhile {
		c.internalf("ENDLOOPCNTXT without a matching STARTLOOPCNTXT")
	}
	c.loops = c.loops[:len(c.loops)-1]
}

func (c *compiler) loopJump(brk bool) {
	if len(c.loops) == 0 {
		c.unsupportedf("%s outside a loop the compiler tracks", c.code.Instrs[c.pc].Op)
	}
	top := c.loops[len(c.loops)-1]
	if brk {
		c.gotoBlock(top.end)
	} else {
		c.gotoBlock(top.cont)
	}
}
