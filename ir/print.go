package ir

import (
	"fmt"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// Format renders the graph as a listing with blocks in id order.
func (g *CFG) Format() string {
	var sb strings.Builder
	p := printer{w: &sb}
	p.graph(g, g.Blocks())
	return sb.String()
}

func (g *CFG) String() string { return g.Format() }

// Fingerprint hashes the listing with blocks and nodes renumbered in
// depth-first order from the entry. Graphs that differ only in numbering get
// the same fingerprint.
func (g *CFG) Fingerprint() uint64 {
	order := g.dfsOrder()
	p := printer{
		blocks: make(map[BBID]int, len(order)),
		nodes:  map[NodeID]int{g.env.id: 0},
	}
	for i, b := range order {
		p.blocks[b.id] = i
	}
	next := 1
	number := func(id NodeID) {
		p.nodes[id] = next
		next++
	}
	for _, b := range order {
		for _, ph := range b.phis {
			number(ph.id)
		}
		for _, s := range b.stmts {
			number(s.id)
		}
		if b.jump != nil {
			number(b.jump.id)
		}
	}
	var sb strings.Builder
	p.w = &sb
	p.graph(g, order)
	return xxhash.Sum64String(sb.String())
}

// dfsOrder lists reachable blocks in depth-first preorder following jump
// targets in order, then unreachable ones by id.
func (g *CFG) dfsOrder() []*BB {
	var order []*BB
	seen := map[BBID]bool{}
	var visit func(b *BB)
	visit = func(b *BB) {
		if seen[b.id] || g.blocks[b.id] != b {
			return
		}
		seen[b.id] = true
		order = append(order, b)
		for _, s := range b.Succs() {
			visit(s)
		}
	}
	visit(g.entry)
	for _, b := range g.Blocks() {
		if !seen[b.id] {
			order = append(order, b)
		}
	}
	return order
}

type printer struct {
	w      *strings.Builder
	blocks map[BBID]int
	nodes  map[NodeID]int
}

func (p *printer) block(b *BB) string {
	if p.blocks == nil {
		return b.String()
	}
	if n, ok := p.blocks[b.id]; ok {
		return fmt.Sprintf("BB%d", n)
	}
	return "BB?"
}

func (p *printer) node(id NodeID) string {
	if p.nodes == nil {
		return id.String()
	}
	if n, ok := p.nodes[id]; ok {
		return fmt.Sprintf("%%%d", n)
	}
	return "%?"
}

func (p *printer) value(v Value) string {
	switch n := v.(type) {
	case nil:
		return "<nil>"
	case *Const:
		return n.String()
	case *Param:
		return n.name
	}
	return p.node(v.ID())
}

func (p *printer) values(vs []Value) string {
	parts := make([]string, len(vs))
	for i, v := range vs {
		parts[i] = p.value(v)
	}
	return strings.Join(parts, ", ")
}

func (p *printer) graph(g *CFG, order []*BB) {
	if p.nodes == nil {
		fmt.Fprintf(p.w, "cfg %s\n", g.name)
	}
	for _, b := range order {
		p.bb(b)
	}
}

func (p *printer) bb(b *BB) {
	fmt.Fprintf(p.w, "%s:", p.block(b))
	if len(b.preds) > 0 {
		preds := make([]string, len(b.preds))
		for i, pr := range b.preds {
			preds[i] = p.block(pr)
		}
		fmt.Fprintf(p.w, " <- %s", strings.Join(preds, " "))
	}
	p.w.WriteByte('\n')
	for _, ph := range b.phis {
		ins := make([]string, len(ph.inputs))
		for i, in := range ph.inputs {
			ins[i] = p.block(in.Block) + ": " + p.value(in.Value)
		}
		fmt.Fprintf(p.w, "  %s = phi [%s]\n", p.node(ph.id), strings.Join(ins, ", "))
	}
	for _, s := range b.stmts {
		p.w.WriteString("  ")
		if !s.data.IsVoid() {
			fmt.Fprintf(p.w, "%s = ", p.node(s.id))
		}
		fmt.Fprintf(p.w, "%s(%s)", s.data.Name(), p.values(s.data.Args()))
		if d, ok := s.data.(detailer); ok && d.Detail() != "" {
			fmt.Fprintf(p.w, " %s", d.Detail())
		}
		p.w.WriteByte('\n')
	}
	if b.jump == nil {
		p.w.WriteString("  <no jump>\n")
		return
	}
	p.w.WriteString("  " + b.jump.data.Name())
	if args := b.jump.data.Args(); len(args) > 0 {
		p.w.WriteString(" " + p.values(args))
	}
	for _, t := range b.jump.data.Targets() {
		p.w.WriteString(" " + p.block(t))
	}
	p.w.WriteByte('\n')
}
