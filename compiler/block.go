package compiler

import "github.com/scoutsky/filterc/filter"

// CompileBlock recursively compiles node — a Block or a Condition — in
// ctx (C7). Custom blocks tagged isTrue=false are skipped here; they are
// handled by the pipeline assembler via the projected-boolean channel
// (§4.9) instead of being folded into an ordinary $and/$or.
func CompileBlock(c *Compiler, node filter.Node, ctx Context) map[string]any {
	switch n := node.(type) {
	case *filter.Condition:
		return c.CompileCondition(n, ctx)

	case *filter.Block:
		if n.IsNamedFalseBlock() {
			return map[string]any{}
		}
		var parts []map[string]any
		for _, child := range n.Children {
			frag := CompileBlock(c, child, ctx)
			if len(frag) == 0 {
				continue
			}
			parts = append(parts, frag)
		}
		return combine(n.Logic, parts)

	default:
		return map[string]any{}
	}
}

// CompileNamedBlockBody compiles b's children under its own logic,
// ignoring b's own IsNamedFalseBlock marker — used by the pipeline
// assembler to materialize the sanitized boolean field a named
// isTrue=false block projects (§4.9). Nested named-false blocks inside
// b's children are still skipped normally by CompileBlock.
func CompileNamedBlockBody(c *Compiler, b *filter.Block, ctx Context) map[string]any {
	var parts []map[string]any
	for _, child := range b.Children {
		frag := CompileBlock(c, child, ctx)
		if len(frag) == 0 {
			continue
		}
		parts = append(parts, frag)
	}
	return combine(b.Logic, parts)
}

// combine applies §4.4's combination rule: zero parts vanish, one part
// passes through unwrapped, many parts are wrapped under $and/$or.
func combine(logic filter.Logic, parts []map[string]any) map[string]any {
	switch len(parts) {
	case 0:
		return map[string]any{}
	case 1:
		return parts[0]
	default:
		key := "$and"
		if logic == filter.Or {
			key = "$or"
		}
		arr := make([]any, len(parts))
		for i, p := range parts {
			arr[i] = p
		}
		return map[string]any{key: arr}
	}
}
