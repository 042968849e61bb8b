package compiler

import (
	"fmt"

	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/fun"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// builtin emits a call to a registered builtin.
func (c *compiler) builtin(name string, ast sexp.SEXP, args []ir.Value, names []string) *ir.Stmt {
	b, ok := c.opts.Registry.Lookup(name)
	if !ok {
		c.internalf("builtin %q is not registered", name)
	}
	return c.callBuiltin(b, ast, args, names)
}

// callBuiltin emits a builtin call. Only unsafe builtins see the environment.
func (c *compiler) callBuiltin(b *fun.Builtin, ast sexp.SEXP, args []ir.Value, names []string) *ir.Stmt {
	var env ir.Value
	if !b.Safe {
		env = c.g.Env()
	}
	return c.emit(ir.CallBuiltin{Fun: b, CallArgs: args, Names: names, AST: ast, Env: env})
}

// stop emits an error call and ends the block.
func (c *compiler) stop(ast sexp.SEXP, msg string) {
	c.builtin("stop", ast, []ir.Value{ir.NewConst(sexp.ScalarStr(msg))}, nil)
	c.exit(ir.Unreachable{})
}

func (c *compiler) getFun(in bc.Instr, scope ir.FunScope) {
	f := c.emit(ir.LdFun{Env: c.g.Env(), Sym: c.symbol(in.Arg), Scope: scope})
	c.startCall(pendingCall{fun: f})
}

func (c *compiler) checkFun() {
	f := c.emit(ir.CheckFun{Value: c.pop()})
	c.startCall(pendingCall{fun: f})
}

func (c *compiler) getBuiltin(in bc.Instr, kind fun.Kind) {
	b, err := c.opts.Registry.LookupKind(c.symbol(in.Arg), kind)
	if err != nil {
		c.unsupportedf("%v", err)
	}
	c.startCall(pendingCall{builtin: b})
}

func (c *compiler) makeProm(in bc.Instr) {
	v := c.constant(in.Arg)
	var prom *ir.Stmt
	if code, ok := v.(*bc.Code); ok {
		body := c.nested(code, "promise")
		prom = c.emit(ir.MkProm{Body: body, Code: code, Env: c.g.Env()})
	} else {
		prom = c.emit(ir.MkProm{Code: v, Env: c.g.Env()})
	}
	c.topCall().add(prom, "")
}

func (c *compiler) setTag(in bc.Instr) {
	tag := c.symbol(in.Arg)
	p := c.topCall()
	if len(p.args) == 0 {
		c.internalf("SETTAG %q before any argument", tag)
	}
	p.names[len(p.names)-1] = tag
}

func (c *compiler) doDots() {
	d := c.emit(ir.LdDots{Env: c.g.Env()})
	c.topCall().add(d, "...")
}

func (c *compiler) call(in bc.Instr) {
	p := c.popCall()
	if p.fun == nil {
		c.internalf("CALL of builtin %s", p.builtin.Name)
	}
	c.push(c.emit(ir.Call{
		Fun:      p.fun,
		CallArgs: p.args,
		Names:    p.names,
		AST:      c.callAST(in),
		Env:      c.g.Env(),
	}))
}

func (c *compiler) callBuiltinOp(in bc.Instr) {
	p := c.popCall()
	if p.builtin == nil {
		c.internalf("CALLBUILTIN of non-builtin %s", p.describe())
	}
	c.push(c.callBuiltin(p.builtin, c.callAST(in), p.args, p.names))
}

func (c *compiler) callSpecial(in bc.Instr) {
	ast := c.callAST(in)
	lang, ok := ast.(*sexp.Lang)
	if !ok {
		c.internalErr(bc.ErrMalformed, "CALLSPECIAL of %s", ast.Type())
	}
	name, ok := lang.FunName()
	if !ok {
		c.internalErr(bc.ErrMalformed, "CALLSPECIAL of an anonymous function")
	}
	b, err := c.opts.Registry.LookupKind(name, fun.KindSpecial)
	if err != nil {
		c.unsupportedf("%v", err)
	}
	c.push(c.callBuiltin(b, ast, nil, nil))
}

// makeClosure compiles MAKECLOSURE, whose operand is (formals, body, ...).
func (c *compiler) makeClosure(in bc.Instr) {
	v := c.constant(in.Arg)
	parts, ok := v.(sexp.List)
	if !ok || len(parts) < 2 {
		c.internalErr(bc.ErrMalformed, "MAKECLOSURE operand is %s", v.Type())
	}
	formals, body := parts[0].Value, parts[1].Value
	var cls ir.StmtData
	switch b := body.(type) {
	case *bc.Code:
		cls = ir.MkCls{Formals: formals, Body: c.nested(b, "closure"), Code: b, Env: c.g.Env()}
	default:
		if c.opts.ClosureFallback == nil {
			panic(failure{&MissingBodyError{Site: c.site(), Body: body.String()}})
		}
		g, err := c.opts.ClosureFallback(formals, body)
		if err != nil {
			c.internalErr(err, "closure fallback")
		}
		cls = ir.MkCls{Formals: formals, Body: g, Code: body, Env: c.g.Env()}
	}
	c.push(c.emit(cls))
}

// nested compiles a promise or closure body into its own graph.
func (c *compiler) nested(code *bc.Code, kind string) *ir.CFG {
	if c.depth+1 > c.opts.MaxNesting {
		c.unsupportedf("%s nested more than %d deep", kind, c.opts.MaxNesting)
	}
	name := code.Name
	if name == "" {
		name = fmt.Sprintf("%s/%s@%d", c.code.Name, kind, c.pc)
	}
	g := ir.New(name)
	if err := compileAt(g, code, c.opts, c.depth+1); err != nil {
		panic(failure{err})
	}
	nestedCompiledTotal.Inc()
	return g
}
