package ir

import "fmt"

// Cmd names a structural edit.
type Cmd string

const (
	CmdAddBlock    Cmd = "add-block"
	CmdRemoveBlock Cmd = "remove-block"
	CmdInsert      Cmd = "insert"
	CmdReplace     Cmd = "replace"
	CmdRemoveStmt  Cmd = "remove-stmt"
	CmdAddPhi      Cmd = "add-phi"
	CmdPhiInput    Cmd = "phi-input"
	CmdRemovePhi   Cmd = "remove-phi"
	CmdSetJump     Cmd = "set-jump"
)

// NoNode marks a history entry that does not concern a single node.
const NoNode NodeID = 0

// HistoryEntry is one edit. Block is the affected block; Node the affected
// node, if any; Outputs the nodes the edit created.
type HistoryEntry struct {
	Cmd     Cmd      `cbor:"1,keyasint"`
	Block   BBID     `cbor:"2,keyasint"`
	Node    NodeID   `cbor:"3,keyasint,omitempty"`
	Outputs []NodeID `cbor:"4,keyasint,omitempty"`
	Detail  string   `cbor:"5,keyasint,omitempty"`
}

func (e HistoryEntry) String() string {
	s := fmt.Sprintf("%s %s", e.Cmd, e.Block)
	if e.Node != NoNode {
		s += " " + e.Node.String()
	}
	if e.Detail != "" {
		s += " " + e.Detail
	}
	return s
}

// lastTouching returns the index of the newest entry about node, or failing
// that about block, or -1.
func (g *CFG) lastTouching(block BBID, node NodeID) int {
	if node != NoNode {
		for i := len(g.history) - 1; i >= 0; i-- {
			if g.history[i].Node == node {
				return i
			}
		}
	}
	for i := len(g.history) - 1; i >= 0; i-- {
		if g.history[i].Block == block {
			return i
		}
	}
	return -1
}
