package ir

import (
	"errors"
	"fmt"
	"slices"
)

// ErrJumpExists is returned by SetJump on a block that is already terminated.
var ErrJumpExists = errors.New("ir: block already has a jump")

// BBID identifies a block within its CFG.
type BBID int

func (id BBID) String() string { return fmt.Sprintf("BB%d", int(id)) }

// BB is a basic block: phis, then statements, then one jump.
type BB struct {
	id      BBID
	cfg     *CFG
	phis    []*Phi
	stmts   []*Stmt
	jump    *Jump
	preds   []*BB
	removed bool
}

func (b *BB) ID() BBID       { return b.id }
func (b *BB) CFG() *CFG      { return b.cfg }
func (b *BB) Removed() bool  { return b.removed }
func (b *BB) String() string { return b.id.String() }
func (b *BB) Phis() []*Phi   { return slices.Clone(b.phis) }
func (b *BB) Stmts() []*Stmt { return slices.Clone(b.stmts) }
func (b *BB) Preds() []*BB   { return slices.Clone(b.preds) }
func (b *BB) NumPreds() int  { return len(b.preds) }
func (b *BB) Jump() *Jump    { return b.jump }
func (b *BB) IsEntry() bool  { return b.cfg.entry == b }
func (b *BB) NumStmts() int  { return len(b.stmts) }
func (b *BB) HasPred(p *BB) bool {
	return slices.Contains(b.preds, p)
}

// Succs lists the jump targets, without duplicates.
func (b *BB) Succs() []*BB {
	if b.jump == nil {
		return nil
	}
	var out []*BB
	for _, t := range b.jump.data.Targets() {
		if !slices.Contains(out, t) {
			out = append(out, t)
		}
	}
	return out
}

// IsOpen reports whether the block can still receive a terminator.
func (b *BB) IsOpen() bool {
	return b.jump == nil || b.jump.IsPlaceholder()
}

// IsExit reports whether the block ends in a jump with no targets.
func (b *BB) IsExit() bool {
	return b.jump != nil && !b.jump.IsPlaceholder() && len(b.jump.data.Targets()) == 0
}

// Append adds a statement at the end of the block.
func (b *BB) Append(data StmtData, origin *Origin) *Stmt {
	return b.Insert(len(b.stmts), data, origin)
}

// Insert adds a statement before index i.
func (b *BB) Insert(i int, data StmtData, origin *Origin) *Stmt {
	s := &Stmt{id: b.cfg.nextNodeID(), bb: b, data: data, origin: origin}
	b.stmts = slices.Insert(b.stmts, i, s)
	b.cfg.record(HistoryEntry{
		Cmd:     CmdInsert,
		Block:   b.id,
		Node:    s.id,
		Outputs: []NodeID{s.id},
		Detail:  fmt.Sprintf("%d: %s", i, data.Name()),
	})
	return s
}

// RemoveStmt detaches s. References to it are left dangling.
func (b *BB) RemoveStmt(s *Stmt) {
	i := slices.Index(b.stmts, s)
	if i < 0 {
		return
	}
	b.stmts = slices.Delete(b.stmts, i, i+1)
	s.removed = true
	b.cfg.record(HistoryEntry{Cmd: CmdRemoveStmt, Block: b.id, Node: s.id})
}

// AddEmptyPhi adds a phi with no inputs.
func (b *BB) AddEmptyPhi() *Phi {
	p := &Phi{id: b.cfg.nextNodeID(), bb: b}
	b.phis = append(b.phis, p)
	b.cfg.record(HistoryEntry{
		Cmd:     CmdAddPhi,
		Block:   b.id,
		Node:    p.id,
		Outputs: []NodeID{p.id},
	})
	return p
}

// AddPhi adds a phi whose first input is v from first.
func (b *BB) AddPhi(first *BB, v Value) *Phi {
	p := b.AddEmptyPhi()
	// A fresh phi has no inputs, so there is no duplicate to report.
	_ = p.AddInput(first, v)
	return p
}

// RemovePhi detaches p. References to it are left dangling.
func (b *BB) RemovePhi(p *Phi) {
	i := slices.Index(b.phis, p)
	if i < 0 {
		return
	}
	b.phis = slices.Delete(b.phis, i, i+1)
	p.removed = true
	b.cfg.record(HistoryEntry{Cmd: CmdRemovePhi, Block: b.id, Node: p.id})
}

// SetJump terminates an open block.
func (b *BB) SetJump(data JumpData, origin *Origin) (*Jump, error) {
	if !b.IsOpen() {
		return nil, fmt.Errorf("%w: %s ends in %s", ErrJumpExists, b, b.jump.data.Name())
	}
	return b.ReplaceJump(data, origin), nil
}

// ReplaceJump installs data as the terminator, keeping the jump's identity if
// there already is one. Predecessor sets of old and new targets and the CFG's
// exit set are updated together.
func (b *BB) ReplaceJump(data JumpData, origin *Origin) *Jump {
	if b.jump != nil {
		for _, t := range b.Succs() {
			t.removePred(b)
		}
	} else {
		b.jump = &Jump{id: b.cfg.nextNodeID(), bb: b}
	}
	b.jump.data = data
	if origin != nil {
		b.jump.origin = origin
	}
	for _, t := range b.Succs() {
		t.addPred(b)
	}
	if b.IsExit() {
		b.cfg.exits[b.id] = b
	} else {
		delete(b.cfg.exits, b.id)
	}
	b.cfg.record(HistoryEntry{
		Cmd:    CmdSetJump,
		Block:  b.id,
		Node:   b.jump.id,
		Detail: data.Name(),
	})
	return b.jump
}

func (b *BB) addPred(p *BB) {
	if !slices.Contains(b.preds, p) {
		b.preds = append(b.preds, p)
	}
}

func (b *BB) removePred(p *BB) {
	if i := slices.Index(b.preds, p); i >= 0 {
		b.preds = slices.Delete(b.preds, i, i+1)
	}
}
