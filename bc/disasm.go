package bc

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the code.
func (c *Code) Disassemble() string {
	var sb strings.Builder

	if c.Name != "" {
		sb.WriteString(fmt.Sprintf("; === %s ===\n", c.Name))
	}
	sb.WriteString(fmt.Sprintf("; R bytecode v%d\n", c.Version))

	if len(c.Consts) > 0 {
		sb.WriteString("; Constants:\n")
		for i, k := range c.Consts {
			display := k.String()
			if len(display) > 40 {
				display = display[:37] + "..."
			}
			display = strings.ReplaceAll(display, "\n", "\\n")
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, display))
		}
		sb.WriteString("\n")
	}

	sb.WriteString("; Code:\n")
	for pc := range c.Instrs {
		sb.WriteString(fmt.Sprintf("%04d  %s\n", pc, c.FormatInstr(pc)))
	}
	return sb.String()
}

// FormatInstr renders the instruction at pc with its operands resolved
// against the constant pool where possible.
func (c *Code) FormatInstr(pc int) string {
	if pc < 0 || pc >= len(c.Instrs) {
		return "<end of code>"
	}
	in := c.Instrs[pc]
	info := in.Op.Info()

	var parts []string
	if info.Operands&UsesCall != 0 {
		parts = append(parts, "call="+c.constString(in.Call))
	}
	if info.Operands&UsesArg != 0 {
		parts = append(parts, c.constString(in.Arg))
	}
	if info.Operands&UsesN != 0 {
		parts = append(parts, fmt.Sprintf("%d", in.N))
	}
	if info.Operands&UsesLabel != 0 {
		parts = append(parts, fmt.Sprintf("L%d", in.Label))
	}
	if info.Operands&UsesSwitch != 0 {
		parts = append(parts, "chr="+labelList(in.ChrLabels), "num="+labelList(in.NumLabels))
	}
	if len(parts) == 0 {
		return info.Name
	}
	return info.Name + " " + strings.Join(parts, ", ")
}

func (c *Code) constString(idx int) string {
	if idx == NoConst {
		return "-"
	}
	k, err := c.Const(idx)
	if err != nil {
		return fmt.Sprintf("#%d?", idx)
	}
	s := k.String()
	if len(s) > 24 {
		s = s[:21] + "..."
	}
	return fmt.Sprintf("#%d(%s)", idx, s)
}

func labelList(ls []Label) string {
	if ls == nil {
		return "nil"
	}
	parts := make([]string, len(ls))
	for i, l := range ls {
		parts[i] = fmt.Sprintf("L%d", l)
	}
	return "[" + strings.Join(parts, " ") + "]"
}
