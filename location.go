package gdtf

import (
	"fmt"
	"strings"
)

// Loc builds element/attribute paths in a chain-safe way and creates Problems.
// Paths look like /GDTF/FixtureType/Geometries/Geometry[2]/@Model, where the
// bracketed index is the 0-based position among same-tag siblings.
type Loc struct {
	parts []string
}

// Root returns the path of the document root.
func Root() Loc { return Loc{} }

// At parses a rendered path back into a Loc. Useful for tests and for record
// builders that carry their location as a string.
func At(path string) Loc {
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if p == "" {
			continue
		}
		parts = append(parts, p)
	}
	return Loc{parts: parts}
}

// Child appends an element step.
func (l Loc) Child(tag string) Loc {
	return Loc{parts: append(append([]string{}, l.parts...), tag)}
}

// ChildAt appends an element step with its 0-based index among same-tag
// siblings, used when the tag alone is ambiguous.
func (l Loc) ChildAt(tag string, i int) Loc {
	return Loc{parts: append(append([]string{}, l.parts...), fmt.Sprintf("%s[%d]", tag, i))}
}

// Attr appends an attribute step. It must be the final step of a path.
func (l Loc) Attr(name string) Loc {
	return Loc{parts: append(append([]string{}, l.parts...), "@"+name)}
}

// Path renders the location.
func (l Loc) Path() string {
	if len(l.parts) == 0 {
		return "/"
	}
	return "/" + strings.Join(l.parts, "/")
}

// Problem creates a Problem at this location. kv pairs fill Params.
func (l Loc) Problem(kind, msg string, kv ...any) Problem {
	var m map[string]any
	if len(kv) > 0 {
		m = map[string]any{}
		for i := 0; i+1 < len(kv); i += 2 {
			m[fmt.Sprint(kv[i])] = kv[i+1]
		}
	}
	return Problem{Kind: kind, Location: l.Path(), Message: msg, Params: m}
}
