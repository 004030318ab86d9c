package gdtf

import (
	"fmt"
	"strings"
)

// NoIndex marks an absent cross-reference. Every non-negative index stored
// anywhere in a Fixture is guaranteed dereferenceable.
const NoIndex = -1

// BreakOffset pairs a DMX break with the offset applied to channels
// instantiated through a geometry reference.
type BreakOffset struct {
	Break  Break
	Offset DMXAddress
}

// Offsets holds the Break children of a geometry reference. Normal entries
// have unique breaks and keep insertion order; Overwrite is used when a
// channel of the referenced geometry declares "Overwrite" as its break.
type Offsets struct {
	Normal    []BreakOffset
	Overwrite *BreakOffset
}

func (o Offsets) clone() Offsets {
	out := Offsets{Normal: append([]BreakOffset(nil), o.Normal...)}
	if o.Overwrite != nil {
		ov := *o.Overwrite
		out.Overwrite = &ov
	}
	return out
}

// GeometryNode is one node of the frozen geometry forest. Parent and Children
// are indices into the owning Geometries; Model indexes the fixture's model
// list; Template indexes the instantiated template for reference nodes.
// Instantiated marks nodes that exist only as template copies; they are
// addressable like any other node but are skipped when lowering back to the
// intermediate model, because the serialized form derives them again.
type GeometryNode struct {
	Name         Name
	Kind         GeometryKind
	Parent       int // NoIndex for top-level nodes
	Children     []int
	Model        int // NoIndex when no model is linked
	Template     int // NoIndex unless Kind == GeometryReference and resolution succeeded
	Offsets      Offsets
	Instantiated bool
}

// Geometries is the geometry forest, stored as a flat arena addressed by
// stable integer index. Lookups are linear scans over the ordered slice;
// there is no hashed adjacency and no shared pointers, which is deliberate.
type Geometries struct {
	nodes []GeometryNode
}

// Len returns the number of nodes, including instantiated template copies.
func (g *Geometries) Len() int { return len(g.nodes) }

// Node returns a copy of the node at index i. The copy shares nothing with
// the arena: mutating it, or a copy of an instantiated subtree, never affects
// the original.
func (g *Geometries) Node(i int) (GeometryNode, bool) {
	if i < 0 || i >= len(g.nodes) {
		return GeometryNode{}, false
	}
	n := g.nodes[i]
	n.Children = append([]int(nil), n.Children...)
	n.Offsets = n.Offsets.clone()
	return n, true
}

// Find returns the index of the geometry with the given document-wide unique
// Name.
func (g *Geometries) Find(name Name) (int, bool) {
	for i := range g.nodes {
		if g.nodes[i].Name == name {
			return i, true
		}
	}
	return NoIndex, false
}

// IsTopLevel reports whether node i has no parent. Out-of-range indices
// report true, mirroring the tolerant read API of the rest of the package.
func (g *Geometries) IsTopLevel(i int) bool {
	if i < 0 || i >= len(g.nodes) {
		return true
	}
	return g.nodes[i].Parent == NoIndex
}

// TopLevelOf walks parent links from i up to its top-level ancestor.
func (g *Geometries) TopLevelOf(i int) int {
	for i >= 0 && i < len(g.nodes) && g.nodes[i].Parent != NoIndex {
		i = g.nodes[i].Parent
	}
	return i
}

// QualifiedName renders the dot-separated ancestor path of node i, e.g.
// "Base.Yoke.Head". The dot cannot occur inside a Name, so the rendering is
// unambiguous.
func (g *Geometries) QualifiedName(i int) string {
	if i < 0 || i >= len(g.nodes) {
		return ""
	}
	var parts []string
	for j := i; j != NoIndex; j = g.nodes[j].Parent {
		parts = append(parts, g.nodes[j].Name.String())
	}
	for l, r := 0, len(parts)-1; l < r; l, r = l+1, r-1 {
		parts[l], parts[r] = parts[r], parts[l]
	}
	return strings.Join(parts, ".")
}

// TopLevel returns the indices of the top-level nodes in insertion order.
func (g *Geometries) TopLevel() []int {
	var out []int
	for i := range g.nodes {
		if g.nodes[i].Parent == NoIndex {
			out = append(out, i)
		}
	}
	return out
}

// inSubtreeOf reports whether node i is root itself or one of its descendants
// via parent links.
func (g *Geometries) inSubtreeOf(i, root int) bool {
	for j := i; j != NoIndex; {
		if j == root {
			return true
		}
		if j < 0 || j >= len(g.nodes) {
			return false
		}
		j = g.nodes[j].Parent
	}
	return false
}

// insert appends a node without any validation. Callers (the domain builder
// and the public Add* API) are responsible for the container invariants.
func (g *Geometries) insert(n GeometryNode) int {
	g.nodes = append(g.nodes, n)
	return len(g.nodes) - 1
}

// Hard errors of the public construction API. A programmatic caller must not
// silently lose data, so the mitigations applied during file parsing become
// errors here.
var (
	ErrDuplicateName       = fmt.Errorf("duplicate Name")
	ErrUnknownIndex        = fmt.Errorf("index out of range")
	ErrTopLevelReference   = fmt.Errorf("GeometryReference is not allowed as top-level geometry")
	ErrReferenceChild      = fmt.Errorf("GeometryReference cannot have explicit children")
	ErrTemplateNotTopLevel = fmt.Errorf("referenced template geometry must be top-level")
	ErrTemplateIsReference = fmt.Errorf("referenced template geometry must not itself be a reference")
	ErrNonTopLevelGeometry = fmt.Errorf("referenced geometry must be top-level")
	ErrGeometryOutsideMode = fmt.Errorf("channel geometry must be inside the mode's geometry tree")
	ErrTemplateCycle       = fmt.Errorf("template instantiation would reference an ancestor")
)
