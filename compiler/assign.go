package compiler

import (
	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
)

// startAssign opens a complex assignment such as x[i] <- v. With the
// right-hand side on top of the stack it pushes the variable's current value
// and the right-hand side again:
//
//	[.. rhs] -> [.. rhs lhs rhs]
func (c *compiler) startAssign(in bc.Instr, super bool) {
	sym := c.symbol(in.Arg)
	rhs := c.peek(0)
	env := c.g.Env()
	r := c.emit(ir.ReadVar{Env: env, Sym: sym, Super: super})
	lhs := c.emit(ir.Force{Value: r, Env: env})
	c.push(lhs, rhs)
	c.assigns = append(c.assigns, assignCtx{super: super, sym: sym, rhs: rhs})
}

// endAssign stores the updated value, leaving the original right-hand side
// as the value of the assignment.
func (c *compiler) endAssign(in bc.Instr, super bool) {
	sym := c.symbol(in.Arg)
	if len(c.assigns) == 0 {
		c.internalf("assignment to %s was never started", sym)
	}
	top := c.assigns[len(c.assigns)-1]
	if top.sym != sym || top.super != super {
		c.internalf("assignment to %s closes assignment to %s", sym, top.sym)
	}
	c.assigns = c.assigns[:len(c.assigns)-1]
	v := c.pop()
	if len(c.stack) == 0 || !carries(c.peek(0), top.rhs) {
		c.internalf("assignment to %s does not leave its right-hand side on the stack", sym)
	}
	c.emit(ir.WriteVar{Env: c.g.Env(), Sym: sym, Value: v, Super: super})
}

// setterCall calls a replacement function f<- as f<-(x, args..., value=rhs).
// The call's first argument is the NULL placeholder pushed for x.
//
//	[.. x rhs] -> [.. f<-(x, args..., value=rhs)]
func (c *compiler) setterCall(in bc.Instr) {
	rhs := c.pop()
	x := c.pop()
	p := c.popCall()
	args, names := c.withTarget(p, x)
	args = append(args, rhs)
	names = append(names, "value")
	c.push(c.applyPending(p, in, args, names))
}

// getterCall calls f(x, args...) for the inner parts of nested complex
// assignments such as names(x)[2] <- v. The target stays on the stack and
// the SWAP that follows puts the right-hand side back on top.
//
//	[.. x rhs] -> [.. x rhs f(x, args...)]
func (c *compiler) getterCall(in bc.Instr) {
	x := c.peek(1)
	p := c.popCall()
	args, names := c.withTarget(p, x)
	c.push(c.applyPending(p, in, args, names))
}

// withTarget substitutes x for the placeholder first argument of p.
func (c *compiler) withTarget(p pendingCall, x ir.Value) ([]ir.Value, []string) {
	if len(p.args) == 0 || p.args[0] != ir.Value(ir.Null) {
		c.internalf("replacement call to %s has no placeholder for its target", p.describe())
	}
	args := append([]ir.Value{x}, p.args[1:]...)
	names := append([]string(nil), p.names...)
	return args, names
}

// carries reports whether v is rhs, or a phi all of whose inputs carry it.
func carries(v, rhs ir.Value) bool {
	seen := map[*ir.Phi]bool{}
	var walk func(ir.Value) bool
	walk = func(v ir.Value) bool {
		if v == rhs {
			return true
		}
		p, ok := v.(*ir.Phi)
		if !ok || p.Len() == 0 {
			return false
		}
		if seen[p] {
			return true
		}
		seen[p] = true
		for _, in := range p.Inputs() {
			if !walk(in.Value) {
				return false
			}
		}
		return true
	}
	return walk(v)
}

func (c *compiler) applyPending(p pendingCall, in bc.Instr, args []ir.Value, names []string) *ir.Stmt {
	if p.builtin != nil {
		return c.callBuiltin(p.builtin, c.callAST(in), args, names)
	}
	return c.emit(ir.Call{Fun: p.fun, CallArgs: args, Names: names, AST: c.callAST(in), Env: c.g.Env()})
}

func (c *compiler) dollar(in bc.Instr) {
	x := c.pop()
	sym := ir.NewConst(c.constant(in.Arg))
	c.push(c.builtin("$", c.callAST(in), []ir.Value{x, sym}, nil))
}

func (c *compiler) dollarGets(in bc.Instr) {
	rhs := c.pop()
	x := c.pop()
	sym := ir.NewConst(c.constant(in.Arg))
	c.push(c.builtin("$<-", c.callAST(in), []ir.Value{x, sym, rhs}, []string{"", "", "value"}))
}
