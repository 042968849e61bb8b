package ir

import (
	"fmt"
	"slices"
)

// VerifyOptions selects which checks run.
type VerifyOptions struct {
	// Final additionally requires every block to be terminated and every phi
	// to merge at least two values.
	Final bool
}

// Problem is one verifier finding.
type Problem struct {
	Block BBID   `cbor:"1,keyasint"`
	Node  NodeID `cbor:"2,keyasint,omitempty"`
	Desc  string `cbor:"3,keyasint"`
	// History is the index of the newest history entry about the offending
	// node or block, or -1.
	History int `cbor:"4,keyasint"`
}

func (p Problem) String() string {
	where := p.Block.String()
	if p.Node != NoNode {
		where += " " + p.Node.String()
	}
	if p.History >= 0 {
		return fmt.Sprintf("%s: %s (history #%d)", where, p.Desc, p.History)
	}
	return fmt.Sprintf("%s: %s", where, p.Desc)
}

type verifier struct {
	g        *CFG
	opts     VerifyOptions
	problems []Problem
}

// Verify checks the graph's global invariants and returns what it finds. It
// never modifies the graph.
//
// A value is in scope in block B if it is a constant or parameter, is defined
// earlier in B, or is in scope at the end of B's sole predecessor.
func (g *CFG) Verify(opts VerifyOptions) []Problem {
	v := &verifier{g: g, opts: opts}
	reached := g.reachable()
	for _, b := range g.Blocks() {
		if !reached[b.id] {
			v.report(b.id, NoNode, "unreachable")
			continue
		}
		v.checkBlock(b)
	}
	return v.problems
}

func (v *verifier) report(b BBID, n NodeID, format string, args ...any) {
	v.problems = append(v.problems, Problem{
		Block:   b,
		Node:    n,
		Desc:    fmt.Sprintf(format, args...),
		History: v.g.lastTouching(b, n),
	})
}

func (g *CFG) reachable() map[BBID]bool {
	seen := map[BBID]bool{}
	stack := []*BB{g.entry}
	for len(stack) > 0 {
		b := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[b.id] || g.blocks[b.id] != b {
			continue
		}
		seen[b.id] = true
		stack = append(stack, b.Succs()...)
	}
	return seen
}

func (v *verifier) checkBlock(b *BB) {
	v.checkPhis(b)
	for i, s := range b.stmts {
		for _, a := range s.data.Args() {
			v.checkValue(b, i, s.id, a)
		}
	}
	switch {
	case b.jump == nil:
		v.report(b.id, NoNode, "no jump")
	case b.jump.IsPlaceholder():
		if v.opts.Final {
			v.report(b.id, b.jump.id, "block is still open")
		}
	default:
		for _, a := range b.jump.data.Args() {
			v.checkValue(b, len(b.stmts), b.jump.id, a)
		}
		for _, t := range b.jump.data.Targets() {
			if t == nil || v.g.blocks[t.id] != t {
				v.report(b.id, b.jump.id, "jump to unregistered block %v", t)
			}
		}
	}
}

func (v *verifier) checkPhis(b *BB) {
	for _, p := range b.phis {
		for _, in := range p.inputs {
			if !b.HasPred(in.Block) {
				v.report(b.id, p.id, "input from %s, which is not a predecessor", in.Block)
				continue
			}
			v.checkValue(in.Block, -1, p.id, in.Value)
		}
		for _, pred := range b.preds {
			if _, ok := p.Input(pred); !ok {
				v.report(b.id, p.id, "no input from predecessor %s", pred)
			}
		}
		if len(b.preds) <= 1 && len(p.inputs) > 1 {
			v.report(b.id, p.id, "%d inputs in a block with %d predecessors", len(p.inputs), len(b.preds))
		}
		if v.opts.Final && len(p.inputs) < 2 {
			v.report(b.id, p.id, "phi has %d inputs", len(p.inputs))
		}
	}
}

// checkValue checks that a is usable by user, positioned before statement
// idx of b; idx < 0 means the end of b.
func (v *verifier) checkValue(b *BB, idx int, user NodeID, a Value) {
	if a == nil {
		v.report(b.id, user, "nil argument")
		return
	}
	switch n := a.(type) {
	case *Const:
		return
	case *Param:
		if n.cfg != v.g {
			v.report(b.id, user, "uses %s of another graph", n.id)
		}
		return
	case *Stmt:
		if n.bb.cfg != v.g {
			v.report(b.id, user, "uses %s of another graph", n.id)
			return
		}
		if n.removed {
			v.report(b.id, user, "uses removed %s", n.id)
			return
		}
		if n.data.IsVoid() {
			v.report(b.id, user, "uses void %s (%s) as a value", n.id, n.data.Name())
			return
		}
	case *Phi:
		if n.bb.cfg != v.g {
			v.report(b.id, user, "uses %s of another graph", n.id)
			return
		}
		if n.removed {
			v.report(b.id, user, "uses removed %s", n.id)
			return
		}
	}
	if !v.inScope(a, b, idx) {
		v.report(b.id, user, "uses %s, which is not in scope", a.ID())
	}
}

func (v *verifier) inScope(a Value, b *BB, idx int) bool {
	var def *BB
	pos := -1
	switch n := a.(type) {
	case *Stmt:
		def = n.bb
		pos = slices.Index(def.stmts, n)
	case *Phi:
		def = n.bb
	default:
		return true
	}
	if def == b {
		return idx < 0 || pos < idx
	}
	cur := b
	for range len(v.g.blocks) {
		if len(cur.preds) != 1 {
			return false
		}
		cur = cur.preds[0]
		if cur == def {
			return true
		}
	}
	return false
}
