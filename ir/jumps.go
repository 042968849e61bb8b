package ir

// JumpData is the immutable payload of a block terminator.
type JumpData interface {
	Name() string
	Args() []Value
	MapArgs(f func(Value) Value) JumpData
	// Targets lists successor blocks. Exits have none.
	Targets() []*BB
	// ReplaceTarget returns a copy with every occurrence of from replaced by to.
	ReplaceTarget(from, to *BB) JumpData
}

func swap(b, from, to *BB) *BB {
	if b == from {
		return to
	}
	return b
}

// Goto transfers control unconditionally.
type Goto struct {
	Target *BB
}

func (Goto) Name() string                         { return "goto" }
func (Goto) Args() []Value                        { return nil }
func (d Goto) MapArgs(func(Value) Value) JumpData { return d }
func (d Goto) Targets() []*BB                     { return []*BB{d.Target} }
func (d Goto) ReplaceTarget(from, to *BB) JumpData {
	d.Target = swap(d.Target, from, to)
	return d
}

// Branch picks IfTrue when Cond is TRUE and IfFalse otherwise.
type Branch struct {
	Cond    Value
	IfTrue  *BB
	IfFalse *BB
}

func (Branch) Name() string     { return "branch" }
func (d Branch) Args() []Value  { return []Value{d.Cond} }
func (d Branch) Targets() []*BB { return []*BB{d.IfTrue, d.IfFalse} }
func (d Branch) MapArgs(f func(Value) Value) JumpData {
	d.Cond = f(d.Cond)
	return d
}
func (d Branch) ReplaceTarget(from, to *BB) JumpData {
	d.IfTrue = swap(d.IfTrue, from, to)
	d.IfFalse = swap(d.IfFalse, from, to)
	return d
}

// Return exits the function with a value.
type Return struct {
	Value Value
}

func (Return) Name() string    { return "return" }
func (d Return) Args() []Value { return []Value{d.Value} }
func (Return) Targets() []*BB  { return nil }
func (d Return) MapArgs(f func(Value) Value) JumpData {
	d.Value = f(d.Value)
	return d
}
func (d Return) ReplaceTarget(*BB, *BB) JumpData { return d }

// Unreachable marks a point control never reaches, such as after stop().
type Unreachable struct{}

func (Unreachable) Name() string                         { return "unreachable" }
func (Unreachable) Args() []Value                        { return nil }
func (d Unreachable) MapArgs(func(Value) Value) JumpData { return d }
func (Unreachable) Targets() []*BB                       { return nil }
func (d Unreachable) ReplaceTarget(*BB, *BB) JumpData    { return d }

// NeverReturns is the placeholder terminator of a block under construction.
// A block ending in it is still open.
type NeverReturns struct{}

func (NeverReturns) Name() string                         { return "<open>" }
func (NeverReturns) Args() []Value                        { return nil }
func (d NeverReturns) MapArgs(func(Value) Value) JumpData { return d }
func (NeverReturns) Targets() []*BB                       { return nil }
func (d NeverReturns) ReplaceTarget(*BB, *BB) JumpData    { return d }
