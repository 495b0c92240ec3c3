package ir

import (
	"fmt"
	"strings"
)

// String renders f as a three-address listing, one instruction per line
// prefixed by its dense index and any labels placed immediately before it.
func (f *Function) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "function %s(", f.Name)
	for i, a := range f.Arguments {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "%s: %s", a.Title, a.Datatype)
	}
	fmt.Fprintf(&b, ") -> %s\n", f.ReturnType)

	for _, idx := range f.orderedIndices() {
		for _, l := range f.Labels[idx] {
			fmt.Fprintf(&b, "%s:\n", l)
		}
		fmt.Fprintf(&b, "  %d: %s\n", idx, f.Instructions[idx])
	}
	// A label may be placed one index past the last instruction (the
	// function's implicit exit point).
	if labels, ok := f.Labels[f.nextIndex]; ok {
		for _, l := range labels {
			fmt.Fprintf(&b, "%s:\n", l)
		}
	}
	return b.String()
}
