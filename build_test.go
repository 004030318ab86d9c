package gdtf_test

import (
	"testing"

	"github.com/fixturekit/gdtf"
)

func mustName(t *testing.T, s string) gdtf.Name {
	t.Helper()
	n, err := gdtf.NameStrict(s)
	if err != nil {
		t.Fatalf("NameStrict(%q): %v", s, err)
	}
	return n
}

func rawWith(t *testing.T, geometries []gdtf.RawGeometry) *gdtf.RawGDTF {
	t.Helper()
	raw := &gdtf.RawGDTF{DataVersion: gdtf.V1_2}
	raw.FixtureType.Name = mustName(t, "Fixture")
	raw.FixtureType.CanHaveChildren = true
	raw.FixtureType.Geometries = geometries
	return raw
}

func geom(t *testing.T, name, parent string) gdtf.RawGeometry {
	t.Helper()
	g := gdtf.RawGeometry{Name: mustName(t, name), Kind: gdtf.GeometryGeneral}
	if parent != "" {
		g.Parent = mustName(t, parent)
	}
	return g
}

func geomRef(t *testing.T, name, parent, template string) gdtf.RawGeometry {
	t.Helper()
	g := gdtf.RawGeometry{Name: mustName(t, name), Kind: gdtf.GeometryReference}
	if parent != "" {
		g.Parent = mustName(t, parent)
	}
	if template != "" {
		g.Template = mustName(t, template)
	}
	return g
}

func TestBuild_ForwardParentReference(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Head", "Yoke"),
		geom(t, "Yoke", "Base"),
		geom(t, "Base", ""),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if len(ps) != 0 {
		t.Fatalf("unexpected problems: %v", ps)
	}
	g := f.Geometries()
	head, _ := g.Find(mustName(t, "Head"))
	if got := g.QualifiedName(head); got != "Base.Yoke.Head" {
		t.Fatalf("QualifiedName = %q", got)
	}
	if tl := g.TopLevel(); len(tl) != 1 {
		t.Fatalf("top-level = %v", tl)
	}
}

func TestBuild_UnknownParentBecomesTopLevel(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{geom(t, "Orphan", "Ghost")})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindUnknownGeometry) {
		t.Fatalf("expected unknown geometry problem, got %v", ps)
	}
	g := f.Geometries()
	i, ok := g.Find(mustName(t, "Orphan"))
	if !ok || !g.IsTopLevel(i) {
		t.Fatalf("orphan should be kept as top-level")
	}
}

func TestBuild_ParentCycleExcised(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "A", "B"),
		geom(t, "B", "A"),
		geom(t, "C", "A"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	var cycles int
	for _, p := range ps {
		if p.Kind == gdtf.KindParentCycle {
			cycles++
		}
	}
	if cycles != 2 {
		t.Fatalf("expected 2 parent_cycle problems, got %v", ps)
	}
	g := f.Geometries()
	a, _ := g.Find(mustName(t, "A"))
	b, _ := g.Find(mustName(t, "B"))
	c, _ := g.Find(mustName(t, "C"))
	if !g.IsTopLevel(a) || !g.IsTopLevel(b) {
		t.Fatalf("cycle members should become top-level")
	}
	// The node hanging off the cycle keeps its parent.
	if n, _ := g.Node(c); n.Parent != a {
		t.Fatalf("C should remain a child of A, got parent %d", n.Parent)
	}
}

func TestBuild_SelfParentExcised(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{geom(t, "Loop", "Loop")})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindParentCycle) {
		t.Fatalf("expected parent_cycle problem, got %v", ps)
	}
	i, _ := f.Geometries().Find(mustName(t, "Loop"))
	if !f.Geometries().IsTopLevel(i) {
		t.Fatalf("self-parented node should be top-level")
	}
}

func TestBuild_DuplicateGeometryNameRenamed(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Base", ""),
		geom(t, "Pixel", "Base"),
		geom(t, "Pixel", "Base"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	var dups int
	for _, p := range ps {
		if p.Kind == gdtf.KindDuplicateName {
			dups++
		}
	}
	if dups != 1 {
		t.Fatalf("expected exactly one duplicate_name problem, got %v", ps)
	}
	g := f.Geometries()
	if _, ok := g.Find(mustName(t, "Pixel")); !ok {
		t.Fatalf("first Pixel should keep its name")
	}
	renamed, ok := g.Find(mustName(t, "Pixel (duplicate 1)"))
	if !ok {
		t.Fatalf("second Pixel should be renamed deterministically")
	}
	if n, _ := g.Node(renamed); n.Parent == gdtf.NoIndex {
		t.Fatalf("renamed node should keep its parent link")
	}
}

func TestBuild_UnknownModelCleared(t *testing.T) {
	raw := rawWith(t, nil)
	g := geom(t, "Base", "")
	g.Model = mustName(t, "Ghost")
	raw.FixtureType.Geometries = []gdtf.RawGeometry{g}
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindUnknownModel) {
		t.Fatalf("expected unknown_model problem, got %v", ps)
	}
	i, _ := f.Geometries().Find(mustName(t, "Base"))
	if n, _ := f.Geometries().Node(i); n.Model != gdtf.NoIndex {
		t.Fatalf("model link should be cleared, got %d", n.Model)
	}
}

func TestBuild_TopLevelReferenceDropped(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Tmpl", ""),
		geomRef(t, "Ref", "", "Tmpl"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindTopLevelReference) {
		t.Fatalf("expected top_level_reference problem, got %v", ps)
	}
	if _, ok := f.Geometries().Find(mustName(t, "Ref")); ok {
		t.Fatalf("top-level reference should be dropped")
	}
}

func TestBuild_ReferenceWithUnknownParentDropped(t *testing.T) {
	g := geomRef(t, "Ref", "Ghost", "Tmpl")
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Tmpl", ""),
		geom(t, "InTmpl", "Tmpl"),
		g,
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindUnknownGeometry) {
		t.Fatalf("expected unknown_geometry problem, got %v", ps)
	}
	// Turning the reference top-level would violate the placement rule that
	// pass 1 enforces for declared top-level references, so it is dropped.
	gs := f.Geometries()
	if _, ok := gs.Find(mustName(t, "Ref")); ok {
		t.Fatalf("orphaned reference should be dropped")
	}
	for _, i := range gs.TopLevel() {
		if n, _ := gs.Node(i); n.Kind == gdtf.GeometryReference {
			t.Fatalf("top-level reference %q survived", n.Name)
		}
	}
	if _, ok := gs.Find(mustName(t, "Ref InTmpl")); ok {
		t.Fatalf("dropped reference should not be instantiated")
	}
	assertNoDanglingIndices(t, f)
}

func TestBuild_SelfParentedReferenceDropped(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Tmpl", ""),
		geomRef(t, "Ref", "Ref", "Tmpl"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindParentCycle) {
		t.Fatalf("expected parent_cycle problem, got %v", ps)
	}
	if _, ok := f.Geometries().Find(mustName(t, "Ref")); ok {
		t.Fatalf("self-parented reference should be dropped")
	}
	assertNoDanglingIndices(t, f)
}

func TestBuild_ReferenceRefusedAsParent(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Tmpl", ""),
		geom(t, "Main", ""),
		geomRef(t, "Ref", "Main", "Tmpl"),
		geom(t, "Sneaky", "Ref"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindReferenceChild) {
		t.Fatalf("expected reference_child problem, got %v", ps)
	}
	g := f.Geometries()
	si, ok := g.Find(mustName(t, "Sneaky"))
	if !ok || !g.IsTopLevel(si) {
		t.Fatalf("node with a reference parent should fall back to top-level")
	}
	ri, _ := g.Find(mustName(t, "Ref"))
	rn, _ := g.Node(ri)
	for _, c := range rn.Children {
		if c == si {
			t.Fatalf("reference must not gain explicit children")
		}
	}
	assertNoDanglingIndices(t, f)
}

func TestBuild_TemplateInstantiation(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Tmpl", ""),
		geom(t, "Arm", "Tmpl"),
		geom(t, "Tip", "Arm"),
		geom(t, "Main", ""),
		geomRef(t, "Ref1", "Main", "Tmpl"),
		geomRef(t, "Ref2", "Main", "Tmpl"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if len(ps) != 0 {
		t.Fatalf("unexpected problems: %v", ps)
	}
	g := f.Geometries()
	// 6 declared nodes plus 2 copies per reference.
	if g.Len() != 10 {
		t.Fatalf("Len = %d", g.Len())
	}
	for _, ref := range []string{"Ref1", "Ref2"} {
		ri, ok := g.Find(mustName(t, ref))
		if !ok {
			t.Fatalf("reference %q missing", ref)
		}
		rn, _ := g.Node(ri)
		if len(rn.Children) != 1 {
			t.Fatalf("%s children = %v", ref, rn.Children)
		}
		arm, _ := g.Node(rn.Children[0])
		if arm.Name.String() != ref+" Arm" || !arm.Instantiated {
			t.Fatalf("%s copy = %+v", ref, arm)
		}
		if len(arm.Children) != 1 {
			t.Fatalf("copied subtree should be deep, got %v", arm.Children)
		}
		tip, _ := g.Node(arm.Children[0])
		if tip.Name.String() != ref+" Tip" {
			t.Fatalf("nested copy name = %q", tip.Name)
		}
	}
	// Copies are independent of the template.
	ti, _ := g.Find(mustName(t, "Tmpl"))
	tn, _ := g.Node(ti)
	if len(tn.Children) != 1 {
		t.Fatalf("template children changed: %v", tn.Children)
	}
}

func TestBuild_TemplateOwnAncestorRejected(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Top", ""),
		geom(t, "Inner", "Top"),
		geomRef(t, "Ref", "Inner", "Top"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindTemplateCycle) {
		t.Fatalf("expected template_cycle problem, got %v", ps)
	}
	ri, _ := f.Geometries().Find(mustName(t, "Ref"))
	if n, _ := f.Geometries().Node(ri); len(n.Children) != 0 {
		t.Fatalf("cyclic reference should stay childless, got %v", n.Children)
	}
}

func TestBuild_MutualTemplateCycleTerminates(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "T1", ""),
		geomRef(t, "R2", "T1", "T2"),
		geom(t, "T2", ""),
		geomRef(t, "R1", "T2", "T1"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindTemplateCycle) {
		t.Fatalf("expected template_cycle problem, got %v", ps)
	}
	assertNoDanglingIndices(t, f)
}

func TestBuild_NonTopLevelTemplateRejected(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Top", ""),
		geom(t, "Inner", "Top"),
		geom(t, "Main", ""),
		geomRef(t, "Ref", "Main", "Inner"),
	})
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindNonTopLevelGeometry) {
		t.Fatalf("expected non_top_level_geometry problem, got %v", ps)
	}
	ri, _ := f.Geometries().Find(mustName(t, "Ref"))
	if n, _ := f.Geometries().Node(ri); len(n.Children) != 0 {
		t.Fatalf("reference should stay childless")
	}
}

func TestBuild_ModeGeometryRules(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{
		geom(t, "Base", ""),
		geom(t, "Head", "Base"),
		geom(t, "Other", ""),
	})
	raw.FixtureType.Modes = []gdtf.RawMode{
		{Name: mustName(t, "NonTop"), Geometry: mustName(t, "Head")},
		{Name: mustName(t, "Ghost"), Geometry: mustName(t, "Nope")},
		{
			Name:     mustName(t, "Good"),
			Geometry: mustName(t, "Base"),
			Channels: []gdtf.RawChannel{
				{Name: mustName(t, "Dim"), Break: 1, Offsets: []int{1}, Geometry: mustName(t, "Head")},
				{Name: mustName(t, "Stray"), Break: 1, Offsets: []int{2}, Geometry: mustName(t, "Other")},
			},
		},
	}
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)

	// A mode pointing at a nested geometry loses the link but stays.
	if !ps.HasKind(gdtf.KindNonTopLevelGeometry) {
		t.Fatalf("expected non_top_level_geometry problem, got %v", ps)
	}
	mi, ok := f.FindMode(mustName(t, "NonTop"))
	if !ok {
		t.Fatalf("mode with bad geometry link must be kept")
	}
	if m, _ := f.Mode(mi); m.Geometry != gdtf.NoIndex {
		t.Fatalf("mode geometry should be cleared, got %d", m.Geometry)
	}

	if !ps.HasKind(gdtf.KindUnknownGeometry) {
		t.Fatalf("expected unknown_geometry problem, got %v", ps)
	}

	gi, _ := f.FindMode(mustName(t, "Good"))
	m, _ := f.Mode(gi)
	if len(m.Channels) != 2 {
		t.Fatalf("channels = %+v", m.Channels)
	}
	if m.Channels[0].Geometry == gdtf.NoIndex {
		t.Fatalf("in-subtree channel geometry should resolve")
	}
	if !ps.HasKind(gdtf.KindGeometryOutsideMode) {
		t.Fatalf("expected geometry_outside_mode problem, got %v", ps)
	}
	if m.Channels[1].Geometry != gdtf.NoIndex {
		t.Fatalf("outside-subtree channel geometry should be cleared")
	}
}

func TestBuild_DuplicateModesAndChannelsDropped(t *testing.T) {
	raw := rawWith(t, []gdtf.RawGeometry{geom(t, "Base", "")})
	raw.FixtureType.Modes = []gdtf.RawMode{
		{Name: mustName(t, "M"), Description: "first", Geometry: mustName(t, "Base")},
		{Name: mustName(t, "M"), Description: "second", Geometry: mustName(t, "Base")},
		{
			Name:     mustName(t, "N"),
			Geometry: mustName(t, "Base"),
			Channels: []gdtf.RawChannel{
				{Name: mustName(t, "Dim"), Break: 1, Offsets: []int{1}},
				{Name: mustName(t, "Dim"), Break: 1, Offsets: []int{2}},
			},
		},
	}
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	var dups int
	for _, p := range ps {
		if p.Kind == gdtf.KindDuplicateName {
			dups++
		}
	}
	if dups != 2 {
		t.Fatalf("expected 2 duplicate_name problems, got %v", ps)
	}
	if len(f.Modes()) != 2 {
		t.Fatalf("modes = %+v", f.Modes())
	}
	mi, _ := f.FindMode(mustName(t, "M"))
	if m, _ := f.Mode(mi); m.Description != "first" {
		t.Fatalf("earlier mode should win, got %q", m.Description)
	}
	ni, _ := f.FindMode(mustName(t, "N"))
	n, _ := f.Mode(ni)
	if len(n.Channels) != 1 || n.Channels[0].Offsets[0] != 1 {
		t.Fatalf("earlier channel should win, got %+v", n.Channels)
	}
}

func TestBuild_DuplicateModelDropped(t *testing.T) {
	raw := rawWith(t, nil)
	raw.FixtureType.Models = []gdtf.RawModel{
		{Name: mustName(t, "Body"), Length: 1},
		{Name: mustName(t, "Body"), Length: 2},
	}
	var ps gdtf.Problems
	f := gdtf.Build(raw, &ps)
	if !ps.HasKind(gdtf.KindDuplicateName) {
		t.Fatalf("expected duplicate_name problem, got %v", ps)
	}
	models := f.Models()
	if len(models) != 1 || models[0].Length != 1 {
		t.Fatalf("models = %+v", models)
	}
}

// assertNoDanglingIndices checks the central structural guarantee: every index
// stored anywhere in the fixture is dereferenceable.
func assertNoDanglingIndices(t *testing.T, f *gdtf.Fixture) {
	t.Helper()
	g := f.Geometries()
	for i := 0; i < g.Len(); i++ {
		n, ok := g.Node(i)
		if !ok {
			t.Fatalf("node %d unreadable", i)
		}
		for _, idx := range append([]int{n.Parent, n.Template}, n.Children...) {
			if idx == gdtf.NoIndex {
				continue
			}
			if _, ok := g.Node(idx); !ok {
				t.Fatalf("node %d holds dangling index %d", i, idx)
			}
		}
		if n.Model != gdtf.NoIndex {
			if _, ok := f.Model(n.Model); !ok {
				t.Fatalf("node %d holds dangling model index %d", i, n.Model)
			}
		}
	}
	for _, m := range f.Modes() {
		if m.Geometry != gdtf.NoIndex {
			if _, ok := g.Node(m.Geometry); !ok {
				t.Fatalf("mode %q holds dangling geometry index", m.Name)
			}
		}
		for _, c := range m.Channels {
			if c.Geometry != gdtf.NoIndex {
				if _, ok := g.Node(c.Geometry); !ok {
					t.Fatalf("channel %q holds dangling geometry index", c.Name)
				}
			}
		}
	}
}
