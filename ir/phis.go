package ir

import "slices"

// EliminateSingleInputPhis replaces every phi with exactly one input by that
// input and removes it, repeating until none are left. It returns how many
// phis were removed. Phis whose only input is themselves are kept.
func (g *CFG) EliminateSingleInputPhis() int {
	total := 0
	for {
		var order []*Phi
		repl := map[*Phi]Value{}
		for _, b := range g.Blocks() {
			for _, p := range b.phis {
				if len(p.inputs) == 1 && p.inputs[0].Value != Value(p) {
					order = append(order, p)
					repl[p] = p.inputs[0].Value
				}
			}
		}
		// Collapse chains; drop cycles of single-input phis.
		for _, p := range order {
			v, seen := repl[p], []*Phi{p}
			for {
				q, ok := v.(*Phi)
				if !ok {
					break
				}
				next, ok := repl[q]
				if !ok {
					break
				}
				if slices.Contains(seen, q) {
					v = nil
					break
				}
				seen = append(seen, q)
				v = next
			}
			if v == nil {
				delete(repl, p)
				continue
			}
			repl[p] = v
		}
		order = slices.DeleteFunc(order, func(p *Phi) bool {
			_, ok := repl[p]
			return !ok
		})
		if len(order) == 0 {
			return total
		}
		g.substitute(func(v Value) Value {
			if p, ok := v.(*Phi); ok {
				if r, ok := repl[p]; ok {
					return r
				}
			}
			return v
		})
		for _, p := range order {
			p.bb.RemovePhi(p)
		}
		total += len(order)
	}
}

// substitute rewrites every use in the graph through f. Payloads are
// replaced only where an argument actually changes.
func (g *CFG) substitute(f func(Value) Value) {
	changed := func(args []Value) bool {
		for _, a := range args {
			if f(a) != a {
				return true
			}
		}
		return false
	}
	for _, b := range g.Blocks() {
		for _, p := range b.phis {
			if p.mapInputs(f) {
				g.record(HistoryEntry{Cmd: CmdReplace, Block: b.id, Node: p.id, Detail: "phi inputs"})
			}
		}
		for _, s := range b.stmts {
			if changed(s.data.Args()) {
				s.Replace(s.data.MapArgs(f))
			}
		}
		if j := b.jump; j != nil && changed(j.data.Args()) {
			// Targets are unchanged, so predecessor order must be left alone.
			j.data = j.data.MapArgs(f)
			g.record(HistoryEntry{Cmd: CmdReplace, Block: b.id, Node: j.id, Detail: j.data.Name()})
		}
	}
}
