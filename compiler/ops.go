package compiler

import (
	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/fun"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

// Instructions that pop two operands and call a builtin.
var binaryOps = map[bc.Opcode]string{
	bc.OpAdd:     "+",
	bc.OpSub:     "-",
	bc.OpMul:     "*",
	bc.OpDiv:     "/",
	bc.OpExpt:    "^",
	bc.OpEq:      "==",
	bc.OpNe:      "!=",
	bc.OpLt:      "<",
	bc.OpLe:      "<=",
	bc.OpGe:      ">=",
	bc.OpGt:      ">",
	bc.OpAnd:     "&",
	bc.OpOr:      "|",
	bc.OpColon:   ":",
	bc.OpLogBase: "log",
}

// Instructions that pop one operand and call a builtin.
var unaryOps = map[bc.Opcode]string{
	bc.OpUMinus:      "-",
	bc.OpUPlus:       "+",
	bc.OpSqrt:        "sqrt",
	bc.OpExp:         "exp",
	bc.OpNot:         "!",
	bc.OpLog:         "log",
	bc.OpSeqAlong:    "seq_along",
	bc.OpSeqLen:      "seq_len",
	bc.OpIsNull:      "is.null",
	bc.OpIsLogical:   "is.logical",
	bc.OpIsInteger:   "is.integer",
	bc.OpIsDouble:    "is.double",
	bc.OpIsComplex:   "is.complex",
	bc.OpIsCharacter: "is.character",
	bc.OpIsSymbol:    "is.symbol",
	bc.OpIsObject:    "is.object",
	bc.OpIsNumeric:   "is.numeric",
}

// step compiles one instruction at the cursor.
func (c *compiler) step(in bc.Instr) {
	if name, ok := binaryOps[in.Op]; ok {
		args := c.popN(2)
		c.push(c.builtin(name, c.callAST(in), args, nil))
		return
	}
	if name, ok := unaryOps[in.Op]; ok {
		x := c.pop()
		c.push(c.builtin(name, c.callAST(in), []ir.Value{x}, nil))
		return
	}
	if d, ok := startDispatchOps[in.Op]; ok {
		c.startDispatch(in, d)
		return
	}
	if d, ok := dfltDispatchOps[in.Op]; ok {
		c.dfltDispatch(d)
		return
	}
	if d, ok := startFastDispatchOps[in.Op]; ok {
		c.startFastDispatch(in, d)
		return
	}
	if s, ok := fastSubsetOps[in.Op]; ok {
		c.fastSubset(in, s)
		return
	}

	switch in.Op {
	case bc.OpBCMismatch, bc.OpPrintValue, bc.OpSetLoopVal, bc.OpReturnJmp:
		c.unsupportedf("%s", in.Op)

	// Control flow and stack
	case bc.OpReturn:
		c.ret()
	case bc.OpGoto:
		c.gotoBlock(c.label(in.Label))
	case bc.OpBrIfNot:
		cond := c.emit(ir.CheckTrueFalse{Value: c.pop()})
		next := c.newBlock()
		c.branch(cond, next, c.label(in.Label))
		c.moveTo(next)
	case bc.OpPop:
		c.pop()
	case bc.OpDup:
		c.push(c.peek(0))
	case bc.OpDup2nd:
		c.push(c.peek(1))
	case bc.OpSwap:
		top := c.pop()
		below := c.pop()
		c.push(top, below)
	case bc.OpInvisible:
		c.emit(ir.SetVisible{Visible: false})
	case bc.OpVisible:
		c.emit(ir.SetVisible{Visible: true})

	// Loops
	case bc.OpStartLoopCntxt:
		c.startLoopCntxt(in)
	case bc.OpEndLoopCntxt:
		c.endLoopCntxt(in)
	case bc.OpDoLoopNext:
		c.loopJump(false)
	case bc.OpDoLoopBreak:
		c.loopJump(true)
	case bc.OpStartFor:
		c.startFor(in)
	case bc.OpStepFor:
		c.internalf("STEPFOR reached outside its for loop")
	case bc.OpEndFor:
		c.endFor()

	// Constants and variables
	case bc.OpLdConst:
		c.push(ir.NewConst(c.constant(in.Arg)))
	case bc.OpLdNull:
		c.push(ir.Null)
	case bc.OpLdTrue:
		c.push(ir.True)
	case bc.OpLdFalse:
		c.push(ir.False)
	case bc.OpGetVar, bc.OpDDVal:
		c.getVar(in, false)
	case bc.OpGetVarMissOK, bc.OpDDValMissOK:
		c.getVar(in, true)
	case bc.OpSetVar:
		c.emit(ir.WriteVar{Env: c.g.Env(), Sym: c.symbol(in.Arg), Value: c.peek(0)})
	case bc.OpSetVar2:
		c.emit(ir.WriteVar{Env: c.g.Env(), Sym: c.symbol(in.Arg), Value: c.peek(0), Super: true})

	// Calls
	case bc.OpGetFun:
		c.getFun(in, ir.ScopeLocal)
	case bc.OpGetGlobFun:
		c.getFun(in, ir.ScopeGlobal)
	case bc.OpGetSymFun:
		c.getFun(in, ir.ScopeSym)
	case bc.OpCheckFun:
		c.checkFun()
	case bc.OpGetBuiltin:
		c.getBuiltin(in, fun.KindBuiltin)
	case bc.OpGetIntlBuiltin:
		c.getBuiltin(in, fun.KindInternal)
	case bc.OpMakeProm:
		c.makeProm(in)
	case bc.OpDoMissing:
		c.topCall().add(ir.Missing, "")
	case bc.OpSetTag:
		c.setTag(in)
	case bc.OpDoDots:
		c.doDots()
	case bc.OpPushArg:
		v := c.pop()
		c.topCall().add(v, "")
	case bc.OpPushConstArg:
		c.topCall().add(ir.NewConst(c.constant(in.Arg)), "")
	case bc.OpPushNullArg:
		c.topCall().add(ir.Null, "")
	case bc.OpPushTrueArg:
		c.topCall().add(ir.True, "")
	case bc.OpPushFalseArg:
		c.topCall().add(ir.False, "")
	case bc.OpCall:
		c.call(in)
	case bc.OpCallBuiltin:
		c.callBuiltinOp(in)
	case bc.OpCallSpecial:
		c.callSpecial(in)
	case bc.OpMakeClosure:
		c.makeClosure(in)

	// Short-circuit logic. The first operand decides whether the second is
	// evaluated; both paths meet at the label with one logical on the stack.
	case bc.OpAnd1st:
		l := c.emit(ir.AsLogical{Value: c.pop()})
		c.push(l)
		isFalse := c.builtin("!", nil, []ir.Value{l}, nil)
		next := c.newBlock()
		c.branch(isFalse, c.label(in.Label), next)
		c.moveTo(next)
	case bc.OpOr1st:
		l := c.emit(ir.AsLogical{Value: c.pop()})
		c.push(l)
		next := c.newBlock()
		c.branch(l, c.label(in.Label), next)
		c.moveTo(next)
	case bc.OpAnd2nd:
		c.shortCircuit2nd(in, "&&")
	case bc.OpOr2nd:
		c.shortCircuit2nd(in, "||")

	// Complex assignment
	case bc.OpStartAssign:
		c.startAssign(in, false)
	case bc.OpStartAssign2:
		c.startAssign(in, true)
	case bc.OpEndAssign:
		c.endAssign(in, false)
	case bc.OpEndAssign2:
		c.endAssign(in, true)
	case bc.OpSetterCall:
		c.setterCall(in)
	case bc.OpGetterCall:
		c.getterCall(in)
	case bc.OpDollar:
		c.dollar(in)
	case bc.OpDollarGets:
		c.dollarGets(in)

	// Builtins with extra operands
	case bc.OpMath1:
		b, err := c.opts.Registry.Variant(fun.Math1, in.N)
		if err != nil {
			c.internalErr(bc.ErrMalformed, "%v", err)
		}
		x := c.pop()
		c.push(c.callBuiltin(b, c.callAST(in), []ir.Value{x}, nil))
	case bc.OpDotCall:
		args := c.popN(in.N + 1)
		c.push(c.builtin(".Call", c.callAST(in), args, nil))
	case bc.OpDotsErr:
		c.stop(c.callAST(in), "'...' used in an incorrect context")

	case bc.OpSwitch:
		c.switchOp(in)
	case bc.OpBaseGuard:
		c.baseGuard(in)

	// Reference-count hints have no IR.
	case bc.OpIncLnk, bc.OpDecLnk, bc.OpDecLnkN, bc.OpIncLnkStk, bc.OpDecLnkStk:

	default:
		c.internalErr(bc.ErrMalformed, "unhandled opcode %s", in.Op)
	}
}

func (c *compiler) getVar(in bc.Instr, missOK bool) {
	env := c.g.Env()
	r := c.emit(ir.ReadVar{Env: env, Sym: c.symbol(in.Arg), MissOK: missOK})
	c.push(c.emit(ir.Force{Value: r, Env: env}))
}

// ret compiles RETURN. Only the state of enclosing for loops may remain on
// the stack; everything else must have been consumed.
func (c *compiler) ret() {
	v := c.pop()
	if len(c.calls) > 0 || len(c.assigns) > 0 || len(c.dispatches) > 0 {
		c.internalf("return with %d calls, %d assignments and %d dispatches open",
			len(c.calls), len(c.assigns), len(c.dispatches))
	}
	if want := forStateSize * c.forLoops(); len(c.stack) != want {
		c.internalf("return leaves %d values on the stack, expected %d", len(c.stack), want)
	}
	c.exit(ir.Return{Value: v})
}

func (c *compiler) shortCircuit2nd(in bc.Instr, name string) {
	y := c.emit(ir.AsLogical{Value: c.pop()})
	x := c.pop()
	c.push(c.builtin(name, c.callAST(in), []ir.Value{x, y}, nil))
}

// baseGuard checks that the called function is still the base one. If not,
// the call is evaluated from its AST and control skips the inlined code.
func (c *compiler) baseGuard(in bc.Instr) {
	ast := c.constant(in.Arg)
	lang, ok := ast.(*sexp.Lang)
	if !ok {
		c.internalErr(bc.ErrMalformed, "BASEGUARD operand is %s", ast.Type())
	}
	name, ok := lang.FunName()
	if !ok {
		c.internalErr(bc.ErrMalformed, "BASEGUARD of an anonymous function")
	}
	env := c.g.Env()
	isBase := c.emit(ir.IsBaseFun{Sym: name, Env: env})
	fast, slow := c.newBlock(), c.newBlock()
	c.branch(isBase, fast, slow)
	c.moveTo(slow)
	c.push(c.emit(ir.EvalAST{AST: ast, Env: env}))
	c.gotoBlock(c.label(in.Label))
	c.moveTo(fast)
}
