package pipeline

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// FormatPipeline renders p as a canonical, 2-space-indented textual form
// (C11/§6.2). Map keys are sorted so the rendering is stable across
// invocations (P1) even though Go map iteration order is not.
func FormatPipeline(p Pipeline) string {
	var b strings.Builder
	b.WriteString("[\n")
	for i, stage := range p {
		writeValue(&b, map[string]any(stage), 1)
		if i < len(p)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString("]")
	return b.String()
}

func writeValue(b *strings.Builder, v any, depth int) {
	switch val := v.(type) {
	case map[string]any:
		writeDoc(b, val, depth)
	case Stage:
		writeDoc(b, map[string]any(val), depth)
	case []any:
		writeArray(b, val, depth)
	default:
		b.WriteString(scalarString(val))
	}
}

func writeDoc(b *strings.Builder, doc map[string]any, depth int) {
	if len(doc) == 0 {
		b.WriteString("{}")
		return
	}
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	indent := strings.Repeat("  ", depth)
	closeIndent := strings.Repeat("  ", depth-1)
	b.WriteString("{\n")
	for i, k := range keys {
		b.WriteString(indent)
		b.WriteString(quote(k))
		b.WriteString(": ")
		writeValue(b, doc[k], depth+1)
		if i < len(keys)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(closeIndent)
	b.WriteString("}")
}

func writeArray(b *strings.Builder, arr []any, depth int) {
	if len(arr) == 0 {
		b.WriteString("[]")
		return
	}
	indent := strings.Repeat("  ", depth)
	closeIndent := strings.Repeat("  ", depth-1)
	b.WriteString("[\n")
	for i, el := range arr {
		b.WriteString(indent)
		writeValue(b, el, depth+1)
		if i < len(arr)-1 {
			b.WriteString(",")
		}
		b.WriteString("\n")
	}
	b.WriteString(closeIndent)
	b.WriteString("]")
}

func quote(s string) string {
	return strconv.Quote(s)
}

func scalarString(v any) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case string:
		return quote(t)
	case bool:
		return strconv.FormatBool(t)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case float64:
		return strconv.FormatFloat(t, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", t)
	}
}
