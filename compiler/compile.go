// Package compiler translates decoded R bytecode into an SSA control-flow
// graph.
//
// Compilation is a single walk over the instruction stream that simulates the
// interpreter's operand stack with SSA values. Jump targets get their blocks
// up front; everything else (fall-through blocks, loop steps, switch decision
// trees, dispatch guards) is synthesized during the walk. Values that are live
// across a block boundary travel through phis: the first predecessor to reach
// a block creates one phi per live value and every later predecessor must
// supply the same number of inputs.
package compiler

import (
	"errors"
	"time"

	"github.com/tliron/commonlog"

	"github.com/PRL-PRG/r-compile-server-sub002/bc"
	"github.com/PRL-PRG/r-compile-server-sub002/fun"
	"github.com/PRL-PRG/r-compile-server-sub002/ir"
	"github.com/PRL-PRG/r-compile-server-sub002/sexp"
)

var log = commonlog.GetLogger("rcompile.compiler")

// DefaultMaxNesting bounds how deeply promises and closures nest.
const DefaultMaxNesting = 64

// ClosureFallback compiles a closure whose body is an AST rather than
// bytecode.
type ClosureFallback func(formals, body sexp.SEXP) (*ir.CFG, error)

// Options configures a compilation.
type Options struct {
	// Registry resolves builtins; nil means fun.Default().
	Registry *fun.Registry
	// ClosureFallback handles AST closure bodies. Without it such closures
	// fail with MissingBodyError.
	ClosureFallback ClosureFallback
	// MaxNesting limits nested promise/closure compilation; 0 means
	// DefaultMaxNesting.
	MaxNesting int
	// KeepSingleInputPhis skips the final phi cleanup.
	KeepSingleInputPhis bool
	// Verify runs the verifier on the finished graph and turns any problem
	// into an InternalError.
	Verify bool
}

// Compile compiles code into a fresh graph named after it.
func Compile(code *bc.Code, opts Options) (*ir.CFG, error) {
	g := ir.New(code.Name)
	if err := CompileInto(g, code, opts); err != nil {
		return g, err
	}
	return g, nil
}

// CompileInto compiles code into g, which must be empty: a lone entry block
// ending in the NeverReturns placeholder. On failure g holds the partial
// graph.
func CompileInto(g *ir.CFG, code *bc.Code, opts Options) error {
	start := time.Now()
	err := compileAt(g, code, opts, 0)
	compileDuration.UpdateDuration(start)
	recordOutcome(err)
	if err == nil {
		blockCount.Update(float64(g.Len()))
	}
	return err
}

func compileAt(g *ir.CFG, code *bc.Code, opts Options, depth int) (err error) {
	if opts.Registry == nil {
		opts.Registry = fun.Default()
	}
	if opts.MaxNesting <= 0 {
		opts.MaxNesting = DefaultMaxNesting
	}
	c := &compiler{
		opts:   opts,
		code:   code,
		g:      g,
		depth:  depth,
		pc:     -1,
		labels: make(map[int]*ir.BB),
		seeded: make(map[*ir.BB]bool),
		done:   make(map[*ir.BB]*loopCtx),
		stops:  make(map[*ir.BB]bool),
	}
	defer func() {
		if r := recover(); r != nil {
			f, ok := r.(failure)
			if !ok {
				panic(r)
			}
			err = f.err
		}
	}()
	log.Debugf("compiling %q (%d instructions, depth %d)", code.Name, len(code.Instrs), depth)
	c.checkEmpty()
	c.allocateLabels()
	c.walk()
	c.finish()
	log.Debugf("compiled %q into %d blocks", code.Name, g.Len())
	return nil
}

// compiler is the working state of one compilation.
type compiler struct {
	opts  Options
	code  *bc.Code
	g     *ir.CFG
	depth int

	pc    int
	bb    *ir.BB // cursor; nil while skipping unreachable code
	stack []ir.Value

	loops      []*loopCtx
	calls      []pendingCall
	assigns    []assignCtx
	dispatches []dispatchCtx

	labels map[int]*ir.BB
	seeded map[*ir.BB]bool
	// done holds for-loop step blocks, which are filled in at STARTFOR.
	done map[*ir.BB]*loopCtx
	// stops holds numeric switch targets that may fall through after stop().
	stops map[*ir.BB]bool
}

func (c *compiler) checkEmpty() {
	blocks := c.g.Blocks()
	e := c.g.Entry()
	if len(blocks) != 1 || e.NumStmts() != 0 || len(e.Phis()) != 0 || e.Jump() == nil || !e.Jump().IsPlaceholder() {
		c.internalf("target graph %q is not empty", c.g.Name())
	}
}

// allocateLabels validates the code and gives every jump target a block.
func (c *compiler) allocateLabels() {
	if err := c.code.Validate(); err != nil {
		c.internalErr(err, "invalid bytecode")
	}
	for pc, in := range c.code.Instrs {
		for _, l := range in.Targets() {
			c.labelAt(int(l))
		}
		switch in.Op {
		case bc.OpStartFor:
			// The loop's end follows its STEPFOR.
			if int(in.Label)+1 >= len(c.code.Instrs) {
				c.pc = pc
				c.internalErr(bc.ErrMalformed, "for loop without an end")
			}
			c.labelAt(int(in.Label) + 1)
		case bc.OpStartLoopCntxt:
			c.labelAt(pc + 1)
		}
	}
}

func (c *compiler) labelAt(pc int) *ir.BB {
	if b, ok := c.labels[pc]; ok {
		return b
	}
	b := c.g.AddBlock()
	c.labels[pc] = b
	return b
}

// label returns the block of a jump target.
func (c *compiler) label(l bc.Label) *ir.BB {
	b, ok := c.labels[int(l)]
	if !ok {
		c.internalf("no block for label %d", l)
	}
	if b.Removed() {
		c.internalf("jump to label %d, whose block was removed as dead", l)
	}
	return b
}

func (c *compiler) walk() {
	c.bb = c.g.Entry()
	for c.pc = 0; c.pc < len(c.code.Instrs); c.pc++ {
		if lb, ok := c.labels[c.pc]; ok && lb != c.bb {
			if c.bb != nil && c.bb.IsOpen() {
				c.fallThrough(lb)
			}
			if loop, ok := c.done[lb]; ok {
				c.leaveFor(lb, loop)
				continue
			}
			if lb.NumPreds() == 0 && len(lb.Phis()) == 0 {
				log.Debugf("%s: removing dead %s at pc %d", c.code.Name, lb, c.pc)
				if err := c.g.RemoveBlock(lb); err != nil {
					c.internalErr(err, "remove dead block")
				}
				c.bb = nil
				continue
			}
			c.moveTo(lb)
		}
		if c.bb == nil {
			continue
		}
		c.step(c.code.Instrs[c.pc])
	}
	if c.bb != nil {
		c.internalf("control falls off the end of the code")
	}
}

func (c *compiler) finish() {
	if !c.opts.KeepSingleInputPhis {
		if n := c.g.EliminateSingleInputPhis(); n > 0 {
			log.Debugf("%s: eliminated %d single-input phis", c.code.Name, n)
		}
	}
	if c.opts.Verify {
		if problems := c.g.Verify(ir.VerifyOptions{Final: true}); len(problems) > 0 {
			c.pc = -1
			c.bb = nil
			panic(failure{&InternalError{Site: c.site(), Msg: "verification failed", Problems: problems}})
		}
	}
}

// ---------------------------------------------------------------------------
// Stack
// ---------------------------------------------------------------------------

func (c *compiler) push(vs ...ir.Value) {
	c.stack = append(c.stack, vs...)
}

func (c *compiler) pop() ir.Value {
	if len(c.stack) == 0 {
		c.internalf("pop from empty stack")
	}
	v := c.stack[len(c.stack)-1]
	c.stack = c.stack[:len(c.stack)-1]
	return v
}

// popN pops n values and returns them bottom first.
func (c *compiler) popN(n int) []ir.Value {
	if len(c.stack) < n {
		c.internalf("pop %d from stack of %d", n, len(c.stack))
	}
	vs := append([]ir.Value(nil), c.stack[len(c.stack)-n:]...)
	c.stack = c.stack[:len(c.stack)-n]
	return vs
}

// peek returns the value i slots below the top.
func (c *compiler) peek(i int) ir.Value {
	if len(c.stack) <= i {
		c.internalf("peek %d into stack of %d", i, len(c.stack))
	}
	return c.stack[len(c.stack)-1-i]
}

// ---------------------------------------------------------------------------
// Blocks and jumps
// ---------------------------------------------------------------------------

// live lists every value that must survive a block boundary: the operand
// stack followed by the function and arguments of each pending call.
func (c *compiler) live() []ir.Value {
	vs := append([]ir.Value(nil), c.stack...)
	for _, pc := range c.calls {
		if pc.fun != nil {
			vs = append(vs, pc.fun)
		}
		vs = append(vs, pc.args...)
	}
	return vs
}

// restore is the inverse of live. The operand stack takes whatever the
// pending calls do not claim, so its height follows the incoming values.
func (c *compiler) restore(vs []ir.Value) {
	n := 0
	for _, pc := range c.calls {
		if pc.fun != nil {
			n++
		}
		n += len(pc.args)
	}
	if n > len(vs) {
		c.internalf("block carries %d values, pending calls hold %d", len(vs), n)
	}
	h := len(vs) - n
	c.stack = append([]ir.Value(nil), vs[:h]...)
	i := h
	for k := range c.calls {
		pc := &c.calls[k]
		if pc.fun != nil {
			pc.fun = vs[i]
			i++
		}
		i += copy(pc.args, vs[i:])
	}
}

func (c *compiler) origin() *ir.Origin {
	if c.pc < 0 || c.pc >= len(c.code.Instrs) {
		return nil
	}
	return &ir.Origin{PC: c.pc, Op: c.code.Instrs[c.pc].Op.String()}
}

func (c *compiler) emit(data ir.StmtData) *ir.Stmt {
	return c.bb.Append(data, c.origin())
}

// jump terminates the cursor block, passes the live values to every target
// and stops the cursor.
func (c *compiler) jump(data ir.JumpData) {
	from := c.bb
	if _, err := from.SetJump(data, c.origin()); err != nil {
		c.internalErr(err, "terminate %s", from)
	}
	vals := c.live()
	for _, t := range from.Succs() {
		c.bridge(from, t, vals)
	}
	c.bb = nil
}

func (c *compiler) gotoBlock(t *ir.BB) {
	c.jump(ir.Goto{Target: t})
}

func (c *compiler) branch(cond ir.Value, ifTrue, ifFalse *ir.BB) {
	if ifTrue == ifFalse {
		c.gotoBlock(ifTrue)
		return
	}
	c.jump(ir.Branch{Cond: cond, IfTrue: ifTrue, IfFalse: ifFalse})
}

// exit terminates the cursor block with a jump that has no successors.
func (c *compiler) exit(data ir.JumpData) {
	if _, err := c.bb.SetJump(data, c.origin()); err != nil {
		c.internalErr(err, "terminate %s", c.bb)
	}
	c.bb = nil
}

// bridge adds from's live values to the phis of to.
func (c *compiler) bridge(from, to *ir.BB, vals []ir.Value) {
	if to.IsEntry() {
		c.internalf("jump back to the entry block")
	}
	if !c.seeded[to] {
		c.seeded[to] = true
		for _, v := range vals {
			to.AddPhi(from, v)
		}
		return
	}
	phis := to.Phis()
	if len(phis) != len(vals) {
		c.internalf("%s reaches %s with %d live values, expected %d", from, to, len(vals), len(phis))
	}
	for i, p := range phis {
		if err := p.AddInput(from, vals[i]); err != nil {
			c.internalErr(err, "bridge %s to %s", from, to)
		}
	}
}

// moveTo makes b the cursor and its phis the live values.
func (c *compiler) moveTo(b *ir.BB) {
	phis := b.Phis()
	vals := make([]ir.Value, len(phis))
	for i, p := range phis {
		vals[i] = p
	}
	c.restore(vals)
	c.bb = b
}

// fallThrough ends the cursor block with a goto to the block at the next
// label.
func (c *compiler) fallThrough(lb *ir.BB) {
	if c.stops[c.bb] && c.seeded[lb] && len(c.live()) == len(lb.Phis())+1 && c.endsInStop() {
		// A stop() for an empty numeric switch alternative runs into the next
		// case with its result still on the stack.
		c.pop()
	}
	c.gotoBlock(lb)
}

func (c *compiler) endsInStop() bool {
	stmts := c.bb.Stmts()
	if len(stmts) == 0 {
		return false
	}
	switch d := stmts[len(stmts)-1].Data().(type) {
	case ir.CallBuiltin:
		return d.Fun.Name == "stop"
	case ir.Call:
		if l, ok := d.AST.(*sexp.Lang); ok {
			name, _ := l.FunName()
			return name == "stop"
		}
	}
	return false
}

// newBlock adds a block that is not a jump target in the bytecode.
func (c *compiler) newBlock() *ir.BB {
	return c.g.AddBlock()
}

// ---------------------------------------------------------------------------
// Constant pool
// ---------------------------------------------------------------------------

func (c *compiler) constant(idx int) sexp.SEXP {
	v, err := c.code.Const(idx)
	if err != nil {
		c.internalErr(err, "constant %d", idx)
	}
	return v
}

func (c *compiler) symbol(idx int) string {
	v := c.constant(idx)
	s, ok := sexp.AsScalarString(v)
	if !ok {
		c.internalErr(bc.ErrMalformed, "constant %d is %s, expected a symbol", idx, v.Type())
	}
	return s
}

// callAST returns the call a builtin instruction was compiled from, or nil.
func (c *compiler) callAST(in bc.Instr) sexp.SEXP {
	if in.Op.Info().Operands&bc.UsesCall == 0 || in.Call == bc.NoConst {
		return nil
	}
	return c.constant(in.Call)
}

// ---------------------------------------------------------------------------
// Outcome
// ---------------------------------------------------------------------------

func recordOutcome(err error) {
	var (
		internal    *InternalError
		unsupported *UnsupportedError
		missing     *MissingBodyError
	)
	switch {
	case err == nil:
		compiledTotal.Inc()
	case errors.As(err, &unsupported), errors.As(err, &missing):
		unsupportedTotal.Inc()
	case errors.As(err, &internal):
		internalErrorsTotal.Inc()
	default:
		log.Warningf("untyped compile error: %v", err)
		internalErrorsTotal.Inc()
	}
}
