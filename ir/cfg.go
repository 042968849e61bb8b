package ir

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// ErrRemoveEntry is returned when asked to remove the entry block.
var ErrRemoveEntry = errors.New("ir: cannot remove the entry block")

// EnvName is the name of the closure environment parameter.
const EnvName = "env"

// CFG is a function body in SSA form. Blocks live in an id-keyed arena and
// refer to each other by pointer; removing a block unregisters it.
type CFG struct {
	name    string
	nodeIDs NodeID
	blockID BBID
	entry   *BB
	blocks  map[BBID]*BB
	exits   map[BBID]*BB
	history []HistoryEntry
	env     *Param
}

// New returns a graph with an entry block ending in the NeverReturns
// placeholder.
func New(name string) *CFG {
	g := &CFG{
		name:   name,
		blocks: make(map[BBID]*BB),
		exits:  make(map[BBID]*BB),
	}
	g.env = &Param{id: g.nextNodeID(), cfg: g, name: EnvName}
	g.entry = g.AddBlock()
	g.entry.ReplaceJump(NeverReturns{}, nil)
	return g
}

func (g *CFG) Name() string { return g.name }
func (g *CFG) Entry() *BB   { return g.entry }
func (g *CFG) Env() *Param  { return g.env }
func (g *CFG) Len() int     { return len(g.blocks) }

func (g *CFG) nextNodeID() NodeID {
	g.nodeIDs++
	return g.nodeIDs
}

// AddBlock registers a new empty block without a jump.
func (g *CFG) AddBlock() *BB {
	b := &BB{id: g.blockID, cfg: g}
	g.blockID++
	g.blocks[b.id] = b
	g.record(HistoryEntry{Cmd: CmdAddBlock, Block: b.id})
	return b
}

// RemoveBlock unregisters b, marks its contents removed and drops the edges
// to its successors. Uses of its values elsewhere are not scrubbed.
func (g *CFG) RemoveBlock(b *BB) error {
	if b == g.entry {
		return ErrRemoveEntry
	}
	if g.blocks[b.id] != b {
		return fmt.Errorf("ir: %s is not registered in %s", b, g.name)
	}
	for _, t := range b.Succs() {
		t.removePred(b)
	}
	for _, p := range b.phis {
		p.removed = true
	}
	for _, s := range b.stmts {
		s.removed = true
	}
	b.removed = true
	delete(g.blocks, b.id)
	delete(g.exits, b.id)
	g.record(HistoryEntry{Cmd: CmdRemoveBlock, Block: b.id})
	return nil
}

// Block looks a registered block up by id.
func (g *CFG) Block(id BBID) (*BB, bool) {
	b, ok := g.blocks[id]
	return b, ok
}

// Blocks returns the registered blocks ordered by id.
func (g *CFG) Blocks() []*BB {
	return sortedBlocks(g.blocks)
}

// Exits returns the blocks whose jump has no targets, ordered by id.
func (g *CFG) Exits() []*BB {
	return sortedBlocks(g.exits)
}

// History returns the structural edit log.
func (g *CFG) History() []HistoryEntry {
	return slices.Clone(g.history)
}

func (g *CFG) record(e HistoryEntry) {
	g.history = append(g.history, e)
}

func sortedBlocks(m map[BBID]*BB) []*BB {
	ids := slices.Sorted(maps.Keys(m))
	out := make([]*BB, len(ids))
	for i, id := range ids {
		out[i] = m[id]
	}
	return out
}
