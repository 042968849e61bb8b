package compiler

import (
	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

const (
	msgSwitchLength  = "EXPR must be a length 1 vector"
	msgSwitchFactor  = "EXPR is a \"factor\", treated as integer.\n Consider using 'switch(as.character( * ), ...)' instead."
	msgSwitchNumeric = "numeric EXPR required for 'switch' without named alternatives"
)

// switchOp expands SWITCH into a decision tree:
//
//	check:   is.vector(v) && length(v) == 1, else stop
//	factor:  is.factor(v) warns and continues as numeric
//	chr:     is.character(v) compares against each name; the last label is
//	         the default
//	numeric: as.integer(v) == i picks the i-th label; anything else takes
//	         the last one
//
// The scrutinee stays on the stack until the tree reaches a comparison
// chain, since the numeric block has two predecessors.
func (c *compiler) switchOp(in bc.Instr) {
	ast := c.callAST(in)
	var names []string
	if in.Arg != bc.NoConst {
		switch v := c.constant(in.Arg).(type) {
		case sexp.Str:
			names = v
		default:
			if v.Type() != sexp.NilType {
				c.internalErr(bc.ErrMalformed, "switch names are %s", v.Type())
			}
		}
	}
	if names != nil && len(in.ChrLabels) != len(names) {
		c.internalErr(bc.ErrMalformed, "%d switch names but %d character labels", len(names), len(in.ChrLabels))
	}

	v := c.peek(0)
	isVec := c.builtin("is.vector", nil, []ir.Value{v}, nil)
	n := c.emit(ir.Length{Value: v})
	single := c.builtin("==", nil, []ir.Value{n, one}, nil)
	ok := c.builtin("&&", nil, []ir.Value{isVec, single}, nil)
	checked, bad := c.newBlock(), c.newBlock()
	c.branch(ok, checked, bad)
	c.moveTo(bad)
	c.stop(ast, msgSwitchLength)

	c.moveTo(checked)
	numeric := c.newBlock()
	isFactor := c.builtin("is.factor", nil, []ir.Value{c.peek(0)}, nil)
	factor, other := c.newBlock(), c.newBlock()
	c.branch(isFactor, factor, other)
	c.moveTo(factor)
	c.builtin("warning", ast, []ir.Value{ir.NewConst(sexp.ScalarStr(msgSwitchFactor))}, nil)
	c.gotoBlock(numeric)

	c.moveTo(other)
	isChr := c.builtin("is.character", nil, []ir.Value{c.peek(0)}, nil)
	chr := c.newBlock()
	c.branch(isChr, chr, numeric)
	c.moveTo(chr)
	if names == nil {
		c.stop(ast, msgSwitchNumeric)
	} else {
		s := c.pop()
		keys := make([]ir.Value, len(names)-1)
		for i, name := range names[:len(names)-1] {
			keys[i] = ir.NewConst(sexp.ScalarStr(name))
		}
		c.chain(s, keys, in.ChrLabels)
	}

	c.moveTo(numeric)
	idx := c.builtin("as.integer", nil, []ir.Value{c.pop()}, nil)
	keys := make([]ir.Value, len(in.NumLabels)-1)
	for i := range keys {
		keys[i] = ir.NewConst(sexp.ScalarInt(i + 1))
		c.stops[c.label(in.NumLabels[i])] = true
	}
	c.chain(idx, keys, in.NumLabels)
}

// chain compares v against each key in turn, jumping to the matching label;
// the label after the last key is the default.
func (c *compiler) chain(v ir.Value, keys []ir.Value, labels []bc.Label) {
	for i, k := range keys {
		eq := c.builtin("==", nil, []ir.Value{v, k}, nil)
		next := c.newBlock()
		c.branch(eq, c.label(labels[i]), next)
		c.moveTo(next)
	}
	c.gotoBlock(c.label(labels[len(labels)-1]))
}
