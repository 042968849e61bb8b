package ir

import "fmt"

// Stmt is a statement inside a basic block. The wrapper is the node's identity;
// the payload can be swapped with Replace.
type Stmt struct {
	id      NodeID
	bb      *BB
	data    StmtData
	origin  *Origin
	removed bool
}

func (s *Stmt) ID() NodeID      { return s.id }
func (s *Stmt) CFG() *CFG       { return s.bb.cfg }
func (s *Stmt) Origin() *Origin { return s.origin }
func (s *Stmt) BB() *BB         { return s.bb }
func (s *Stmt) Data() StmtData  { return s.data }
func (s *Stmt) Removed() bool   { return s.removed }
func (*Stmt) isValue()          {}

// Replace swaps the payload in place. Every reference to s now sees data.
func (s *Stmt) Replace(data StmtData) {
	old := s.data
	s.data = data
	s.bb.cfg.record(HistoryEntry{
		Cmd:    CmdReplace,
		Block:  s.bb.id,
		Node:   s.id,
		Detail: fmt.Sprintf("%s -> %s", old.Name(), data.Name()),
	})
}

func (s *Stmt) String() string { return s.id.String() }

// Jump is a block terminator. Like Stmt, the wrapper outlives payload swaps.
type Jump struct {
	id     NodeID
	bb     *BB
	data   JumpData
	origin *Origin
}

func (j *Jump) ID() NodeID      { return j.id }
func (j *Jump) CFG() *CFG       { return j.bb.cfg }
func (j *Jump) Origin() *Origin { return j.origin }
func (j *Jump) BB() *BB         { return j.bb }
func (j *Jump) Data() JumpData  { return j.data }

// Replace swaps the payload, updating predecessor sets and exit membership.
func (j *Jump) Replace(data JumpData) {
	j.bb.ReplaceJump(data, j.origin)
}

// IsPlaceholder reports whether the jump is the NeverReturns placeholder.
func (j *Jump) IsPlaceholder() bool {
	_, ok := j.data.(NeverReturns)
	return ok
}
