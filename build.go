package gdtf

import "fmt"

// Build constructs the cross-validated domain model from the intermediate
// model. It always succeeds: every structural or semantic anomaly is recorded
// on the ledger together with the mitigation applied, and the result is an
// internally consistent best-effort Fixture. Build never panics and never
// leaves a dangling index.
func Build(raw *RawGDTF, ps *Problems) *Fixture {
	f := NewFixture()
	f.DataVersion = raw.DataVersion
	f.Name = raw.FixtureType.Name
	f.ShortName = raw.FixtureType.ShortName
	f.LongName = raw.FixtureType.LongName
	f.Manufacturer = raw.FixtureType.Manufacturer
	f.Description = raw.FixtureType.Description
	f.FixtureTypeID = raw.FixtureType.FixtureTypeID
	f.CanHaveChildren = raw.FixtureType.CanHaveChildren
	f.Thumbnail = raw.FixtureType.Thumbnail
	if raw.FixtureType.RefFT != nil {
		id := *raw.FixtureType.RefFT
		f.RefFT = &id
	}

	buildModels(raw, f, ps)
	buildGeometries(raw, f, ps)
	buildModes(raw, f, ps)
	return f
}

// buildModels registers models in declaration order. Policy on duplicate
// model Names: the later entry is dropped.
func buildModels(raw *RawGDTF, f *Fixture, ps *Problems) {
	for _, m := range raw.FixtureType.Models {
		if _, ok := f.FindModel(m.Name); ok {
			p := At(m.Loc).Problem(KindDuplicateName, fmt.Sprintf("duplicate Model name %q", m.Name))
			p.Action = "dropping later entry"
			*ps = AppendProblems(*ps, p)
			continue
		}
		f.models = append(f.models, Model{
			Name: m.Name, Length: m.Length, Width: m.Width, Height: m.Height,
			PrimitiveType: m.PrimitiveType, File: m.File,
		})
	}
}

// buildGeometries runs the five resolution passes over the flat geometry
// records: insertion with deduplication, parent linking, cycle excision,
// template instantiation, and the freeze implied by never touching node
// order again.
func buildGeometries(raw *RawGDTF, f *Fixture, ps *Problems) {
	g := &f.geometries

	// Pass 1: insert records in declaration order. Duplicate document-wide
	// Names are renamed "<name> (duplicate N)"; a reference declared at top
	// level is dropped outright, since instantiating it could only produce
	// an unaddressable subtree.
	var work []geomWork
	for _, rec := range raw.FixtureType.Geometries {
		if rec.Kind == GeometryReference && rec.Parent.IsZero() {
			p := At(rec.Loc).Problem(KindTopLevelReference,
				fmt.Sprintf("unexpected GeometryReference %q as top-level Geometry", rec.Name))
			p.Action = "dropping node"
			*ps = AppendProblems(*ps, p)
			continue
		}
		name, ok := uniqueGeometryName(g, rec.Name, At(rec.Loc), ps)
		if !ok {
			continue
		}
		model := NoIndex
		if !rec.Model.IsZero() {
			if mi, ok := f.FindModel(rec.Model); ok {
				model = mi
			} else {
				p := At(rec.Loc).Attr("Model").Problem(KindUnknownModel,
					fmt.Sprintf("unknown Model %q referenced", rec.Model))
				p.Action = "leaving geometry without model"
				*ps = AppendProblems(*ps, p)
			}
		}
		i := g.insert(GeometryNode{
			Name: name, Kind: rec.Kind, Parent: NoIndex, Model: model, Template: NoIndex,
			Offsets: offsetsFromBreaks(rec, ps),
		})
		work = append(work, geomWork{node: i, parent: rec.Parent, template: rec.Template, loc: rec.Loc})
	}

	// Pass 2: resolve parent Names. Forward references are legal, which is
	// why this runs only once every node exists. A general geometry that
	// loses its declared parent turns top-level; a reference in the same
	// situation would become a top-level reference, which pass 1 forbids, so
	// it is dropped instead. A parent that resolves to a reference is refused
	// as well, since references own only their instantiated copies.
	drop := map[int]bool{}
	for _, w := range work {
		if w.parent.IsZero() {
			continue
		}
		pi, ok := g.Find(w.parent)
		switch {
		case !ok:
			p := At(w.loc).Problem(KindUnknownGeometry,
				fmt.Sprintf("unknown Geometry %q referenced as parent", w.parent))
			p.Action = orphanAction(g, w.node, drop)
			*ps = AppendProblems(*ps, p)
		case pi == w.node:
			// Declared itself as parent; the cycle pass would catch longer
			// loops, a self-loop is excised right here.
			p := At(w.loc).Problem(KindParentCycle,
				fmt.Sprintf("geometry %q is its own parent", w.parent))
			p.Action = orphanAction(g, w.node, drop)
			*ps = AppendProblems(*ps, p)
		case g.nodes[pi].Kind == GeometryReference:
			p := At(w.loc).Problem(KindReferenceChild,
				fmt.Sprintf("GeometryReference %q referenced as parent", w.parent))
			p.Action = orphanAction(g, w.node, drop)
			*ps = AppendProblems(*ps, p)
		default:
			g.nodes[w.node].Parent = pi
		}
	}

	// Pass 3: excise parent cycles. Every node on a cycle becomes top-level.
	// Cycle members always have an incoming parent link, and pass 2 only
	// links general geometries as parents, so excision never strands a
	// reference at top level.
	exciseParentCycles(g, work, ps)

	// Compact dropped references out of the arena before any index escapes
	// into children slices or the work list.
	work = removeDropped(g, work, drop)

	// Children slices are derived from the now-final parent links.
	for i := range g.nodes {
		if pi := g.nodes[i].Parent; pi != NoIndex {
			g.nodes[pi].Children = append(g.nodes[pi].Children, i)
		}
	}

	// Pass 4: resolve templates and instantiate, in declaration order.
	for _, w := range work {
		if g.nodes[w.node].Kind != GeometryReference {
			continue
		}
		if w.template.IsZero() {
			continue // already reported at record finalization
		}
		loc := At(w.loc)
		ti, ok := g.Find(w.template)
		if !ok {
			p := loc.Problem(KindUnknownGeometry, fmt.Sprintf("unknown Geometry %q referenced", w.template))
			p.Action = "leaving reference without children"
			*ps = AppendProblems(*ps, p)
			continue
		}
		if !g.IsTopLevel(ti) {
			p := loc.Problem(KindNonTopLevelGeometry,
				fmt.Sprintf("non-top-level Geometry %q referenced in GeometryReference %q", w.template, g.nodes[w.node].Name))
			p.Action = "leaving reference without children"
			*ps = AppendProblems(*ps, p)
			continue
		}
		if g.nodes[ti].Kind == GeometryReference {
			p := loc.Problem(KindReferenceNotTemplate,
				fmt.Sprintf("GeometryReference %q referenced as template", w.template))
			p.Action = "leaving reference without children"
			*ps = AppendProblems(*ps, p)
			continue
		}
		if g.TopLevelOf(w.node) == ti {
			p := loc.Problem(KindTemplateCycle,
				fmt.Sprintf("GeometryReference %q instantiates its own ancestor %q", g.nodes[w.node].Name, w.template))
			p.Action = "leaving reference without children"
			*ps = AppendProblems(*ps, p)
			continue
		}
		g.nodes[w.node].Template = ti
		instantiateTemplate(g, w.node, ps)
	}
}

// uniqueGeometryName returns want when free, otherwise logs one
// duplicate_name Problem and returns the first free "<want> (duplicate N)".
// The false return means deduplication failed and the record is dropped.
func uniqueGeometryName(g *Geometries, want Name, loc Loc, ps *Problems) (Name, bool) {
	if _, taken := g.Find(want); !taken {
		return want, true
	}
	p := loc.Problem(KindDuplicateName, fmt.Sprintf("duplicate Geometry name %q", want))
	for n := 1; n < 10_000; n++ {
		cand, err := NameStrict(fmt.Sprintf("%s (duplicate %d)", want, n))
		if err != nil {
			break
		}
		if _, taken := g.Find(cand); !taken {
			p.Action = fmt.Sprintf("renamed to %q", cand)
			*ps = AppendProblems(*ps, p)
			return cand, true
		}
	}
	p.Action = "deduplication failed, dropping node"
	*ps = AppendProblems(*ps, p)
	return Name{}, false
}

// offsetsFromBreaks derives the domain Offsets from the raw Break children.
// The last Break child provides the Overwrite offset; the earlier ones are
// the normal offsets, first declaration winning on duplicate breaks. The
// overwrite break also appears among the normal offsets unless already
// declared.
func offsetsFromBreaks(rec RawGeometry, ps *Problems) Offsets {
	var o Offsets
	if len(rec.Breaks) == 0 {
		return o
	}
	last := rec.Breaks[len(rec.Breaks)-1]
	o.Overwrite = &BreakOffset{Break: last.Break, Offset: last.Offset}
	for _, rb := range rec.Breaks[:len(rec.Breaks)-1] {
		if hasBreak(o.Normal, rb.Break) {
			p := At(rec.Loc).Problem(KindDuplicateBreak,
				fmt.Sprintf("duplicate DMXBreak %d in GeometryReference %q", rb.Break, rec.Name))
			p.Action = "keeping first value"
			*ps = AppendProblems(*ps, p)
			continue
		}
		o.Normal = append(o.Normal, BreakOffset{Break: rb.Break, Offset: rb.Offset})
	}
	if !hasBreak(o.Normal, last.Break) {
		o.Normal = append(o.Normal, BreakOffset{Break: last.Break, Offset: last.Offset})
	}
	return o
}

func hasBreak(s []BreakOffset, b Break) bool {
	for _, e := range s {
		if e.Break == b {
			return true
		}
	}
	return false
}

// geomWork tracks one inserted geometry record through the resolution passes.
type geomWork struct {
	node     int
	parent   Name // declared parent, zero for top-level
	template Name // declared template, references only
	loc      string
}

// exciseParentCycles walks parent chains with a three-color marking. Nodes on
// a cycle are turned top-level, one Problem each, so the forest stays
// traversable.
func exciseParentCycles(g *Geometries, work []geomWork, ps *Problems) {
	const (
		white = iota
		gray
		black
	)
	loc := make(map[int]string, len(work))
	for _, w := range work {
		loc[w.node] = w.loc
	}
	state := make([]int8, len(g.nodes))
	for i := range g.nodes {
		if state[i] != white {
			continue
		}
		var path []int
		j := i
		for j != NoIndex && state[j] == white {
			state[j] = gray
			path = append(path, j)
			j = g.nodes[j].Parent
		}
		if j != NoIndex && state[j] == gray {
			// j closes a cycle; everything from j onward in path is on it.
			cut := 0
			for k, n := range path {
				if n == j {
					cut = k
					break
				}
			}
			for _, n := range path[cut:] {
				p := At(loc[n]).Problem(KindParentCycle,
					fmt.Sprintf("geometry %q is part of a parent cycle", g.nodes[n].Name))
				p.Action = "treating node as top-level"
				*ps = AppendProblems(*ps, p)
				g.nodes[n].Parent = NoIndex
			}
		}
		for _, n := range path {
			state[n] = black
		}
	}
}

// orphanAction applies the fallback for a node whose declared parent could
// not be linked and returns the mitigation text for the Problem being logged.
// General geometries become top-level; a reference cannot legally sit at top
// level and is flagged for removal instead.
func orphanAction(g *Geometries, i int, drop map[int]bool) string {
	if g.nodes[i].Kind == GeometryReference {
		drop[i] = true
		return "dropping reference node"
	}
	return "treating node as top-level"
}

// removeDropped compacts flagged nodes out of the arena and remaps the
// surviving indices. It runs before children are derived and before any
// template is resolved, so parent links are the only indices to rewrite;
// dropped nodes are references, which are never parents.
func removeDropped(g *Geometries, work []geomWork, drop map[int]bool) []geomWork {
	if len(drop) == 0 {
		return work
	}
	remap := make([]int, len(g.nodes))
	n := 0
	for i := range g.nodes {
		if drop[i] {
			remap[i] = NoIndex
			continue
		}
		remap[i] = n
		g.nodes[n] = g.nodes[i]
		n++
	}
	g.nodes = g.nodes[:n]
	for i := range g.nodes {
		if pi := g.nodes[i].Parent; pi != NoIndex {
			g.nodes[i].Parent = remap[pi]
		}
	}
	kept := work[:0]
	for _, w := range work {
		if drop[w.node] {
			continue
		}
		w.node = remap[w.node]
		kept = append(kept, w)
	}
	return kept
}

// instantiateTemplate deep-copies the resolved template's descendants under
// the reference node ref. Copies are renamed "<reference> <original>" and
// marked Instantiated so lowering skips them. Nested references inside the
// copied subtree are resolved recursively; the templates chain acts as the
// ancestor guard against self-referential templates.
func instantiateTemplate(g *Geometries, ref int, ps *Problems) {
	resolveReferenceChildren(g, ref, nil, ps)
}

func resolveReferenceChildren(g *Geometries, ref int, templates []int, ps *Problems) {
	ti := g.nodes[ref].Template
	if ti == NoIndex {
		return
	}
	for _, t := range templates {
		if t == ti {
			p := Root().Problem(KindTemplateCycle,
				fmt.Sprintf("template %q instantiates itself through GeometryReference %q", g.nodes[ti].Name, g.nodes[ref].Name))
			p.Action = "leaving reference without children"
			*ps = AppendProblems(*ps, p)
			g.nodes[ref].Template = NoIndex
			return
		}
	}
	templates = append(templates, ti)
	refName := g.nodes[ref].Name
	for _, c := range append([]int(nil), g.nodes[ti].Children...) {
		copyGeometrySubtree(g, c, ref, refName, templates, ps)
	}
}

func copyGeometrySubtree(g *Geometries, src, parent int, refName Name, templates []int, ps *Problems) {
	want := NameFixed(fmt.Sprintf("%s %s", refName, g.nodes[src].Name), Root(), nil)
	name, ok := uniqueGeometryName(g, want, Root(), ps)
	if !ok {
		return
	}
	n := GeometryNode{
		Name:         name,
		Kind:         g.nodes[src].Kind,
		Parent:       parent,
		Model:        g.nodes[src].Model,
		Template:     g.nodes[src].Template,
		Offsets:      g.nodes[src].Offsets.clone(),
		Instantiated: true,
	}
	i := g.insert(n)
	g.nodes[parent].Children = append(g.nodes[parent].Children, i)
	if g.nodes[src].Kind == GeometryReference {
		resolveReferenceChildren(g, i, templates, ps)
		return
	}
	for _, c := range append([]int(nil), g.nodes[src].Children...) {
		copyGeometrySubtree(g, c, i, refName, templates, ps)
	}
}

// buildModes resolves each mode and its channels. Policy: duplicate mode or
// channel Names drop the later entry; an unresolvable or misplaced geometry
// link is cleared while the owning entity is kept.
func buildModes(raw *RawGDTF, f *Fixture, ps *Problems) {
	g := &f.geometries
	for _, rm := range raw.FixtureType.Modes {
		if _, ok := f.FindMode(rm.Name); ok {
			p := At(rm.Loc).Problem(KindDuplicateName, fmt.Sprintf("duplicate DMXMode name %q", rm.Name))
			p.Action = "dropping later entry"
			*ps = AppendProblems(*ps, p)
			continue
		}
		mode := Mode{Name: rm.Name, Description: rm.Description, Geometry: NoIndex}
		if !rm.Geometry.IsZero() {
			gi, ok := g.Find(rm.Geometry)
			switch {
			case !ok:
				p := At(rm.Loc).Attr("Geometry").Problem(KindUnknownGeometry,
					fmt.Sprintf("unknown Geometry %q referenced", rm.Geometry))
				p.Action = "clearing mode geometry"
				*ps = AppendProblems(*ps, p)
			case !g.IsTopLevel(gi):
				p := At(rm.Loc).Attr("Geometry").Problem(KindNonTopLevelGeometry,
					fmt.Sprintf("non-top-level Geometry %q referenced by DMXMode %q", rm.Geometry, rm.Name))
				p.Action = "clearing mode geometry, keeping mode"
				*ps = AppendProblems(*ps, p)
			default:
				mode.Geometry = gi
			}
		}
		for _, rc := range rm.Channels {
			if hasChannel(mode.Channels, rc.Name) {
				p := At(rc.Loc).Problem(KindDuplicateName,
					fmt.Sprintf("duplicate DMXChannel name %q in DMXMode %q", rc.Name, rm.Name))
				p.Action = "dropping later entry"
				*ps = AppendProblems(*ps, p)
				continue
			}
			ch := Channel{
				Name: rc.Name, Break: rc.Break,
				Offsets: append([]int(nil), rc.Offsets...),
				Geometry: NoIndex, Default: rc.Default,
			}
			if !rc.Geometry.IsZero() {
				gi, ok := g.Find(rc.Geometry)
				switch {
				case !ok:
					p := At(rc.Loc).Attr("Geometry").Problem(KindUnknownGeometry,
						fmt.Sprintf("unknown Geometry %q referenced", rc.Geometry))
					p.Action = "clearing channel geometry"
					*ps = AppendProblems(*ps, p)
				case mode.Geometry == NoIndex || !g.inSubtreeOf(gi, mode.Geometry):
					p := At(rc.Loc).Attr("Geometry").Problem(KindGeometryOutsideMode,
						fmt.Sprintf("Geometry %q lies outside the geometry tree of DMXMode %q", rc.Geometry, rm.Name))
					p.Action = "clearing channel geometry, keeping channel"
					*ps = AppendProblems(*ps, p)
				default:
					ch.Geometry = gi
				}
			}
			mode.Channels = append(mode.Channels, ch)
		}
		f.modes = append(f.modes, mode)
	}
}

func hasChannel(s []Channel, name Name) bool {
	for i := range s {
		if s[i].Name == name {
			return true
		}
	}
	return false
}
