package gdtf_test

import (
	"errors"
	"testing"

	"github.com/fixturekit/gdtf"
)

func TestFixture_AddModel(t *testing.T) {
	f := gdtf.NewFixture()
	i, err := f.AddModel(gdtf.Model{Name: mustName(t, "Body"), Length: 0.5})
	if err != nil || i != 0 {
		t.Fatalf("AddModel = %d, %v", i, err)
	}
	if _, err := f.AddModel(gdtf.Model{Name: mustName(t, "Body")}); !errors.Is(err, gdtf.ErrDuplicateName) {
		t.Fatalf("duplicate model: %v", err)
	}
}

func TestFixture_AddGeometry(t *testing.T) {
	f := gdtf.NewFixture()
	base, err := f.AddTopLevelGeometry(mustName(t, "Base"), gdtf.NoIndex)
	if err != nil {
		t.Fatalf("AddTopLevelGeometry: %v", err)
	}
	if _, err := f.AddTopLevelGeometry(mustName(t, "Base"), gdtf.NoIndex); !errors.Is(err, gdtf.ErrDuplicateName) {
		t.Fatalf("duplicate geometry: %v", err)
	}
	if _, err := f.AddTopLevelGeometry(mustName(t, "Bad"), 7); !errors.Is(err, gdtf.ErrUnknownIndex) {
		t.Fatalf("bad model index: %v", err)
	}
	if _, err := f.AddChildGeometry(99, mustName(t, "Child"), gdtf.NoIndex); !errors.Is(err, gdtf.ErrUnknownIndex) {
		t.Fatalf("bad parent index: %v", err)
	}
	head, err := f.AddChildGeometry(base, mustName(t, "Head"), gdtf.NoIndex)
	if err != nil {
		t.Fatalf("AddChildGeometry: %v", err)
	}
	g := f.Geometries()
	if got := g.QualifiedName(head); got != "Base.Head" {
		t.Fatalf("QualifiedName = %q", got)
	}
	n, _ := g.Node(base)
	if len(n.Children) != 1 || n.Children[0] != head {
		t.Fatalf("children = %v", n.Children)
	}
}

func TestFixture_AddGeometryReference(t *testing.T) {
	f := gdtf.NewFixture()
	tmpl, _ := f.AddTopLevelGeometry(mustName(t, "Pixel"), gdtf.NoIndex)
	dot, _ := f.AddChildGeometry(tmpl, mustName(t, "Dot"), gdtf.NoIndex)
	base, _ := f.AddTopLevelGeometry(mustName(t, "Base"), gdtf.NoIndex)

	ref, err := f.AddGeometryReference(base, mustName(t, "Ref"), tmpl, gdtf.Offsets{})
	if err != nil {
		t.Fatalf("AddGeometryReference: %v", err)
	}
	g := f.Geometries()
	rn, _ := g.Node(ref)
	if rn.Kind != gdtf.GeometryReference || rn.Template != tmpl {
		t.Fatalf("reference node = %+v", rn)
	}
	if len(rn.Children) != 1 {
		t.Fatalf("instantiated children = %v", rn.Children)
	}
	copyNode, _ := g.Node(rn.Children[0])
	if copyNode.Name.String() != "Ref Dot" || !copyNode.Instantiated {
		t.Fatalf("template copy = %+v", copyNode)
	}

	// Growing the template afterwards does not propagate into the reference.
	if _, err := f.AddChildGeometry(tmpl, mustName(t, "Late"), gdtf.NoIndex); err != nil {
		t.Fatalf("AddChildGeometry: %v", err)
	}
	rn, _ = g.Node(ref)
	if len(rn.Children) != 1 {
		t.Fatalf("reference should keep its instantiation, got %v", rn.Children)
	}

	if _, err := f.AddChildGeometry(ref, mustName(t, "Under"), gdtf.NoIndex); !errors.Is(err, gdtf.ErrReferenceChild) {
		t.Fatalf("child under reference: %v", err)
	}
	if _, err := f.AddGeometryReference(base, mustName(t, "RefDot"), dot, gdtf.Offsets{}); !errors.Is(err, gdtf.ErrTemplateNotTopLevel) {
		t.Fatalf("nested template: %v", err)
	}
	if _, err := f.AddGeometryReference(base, mustName(t, "RefRef"), ref, gdtf.Offsets{}); !errors.Is(err, gdtf.ErrTemplateNotTopLevel) {
		t.Fatalf("reference as template: %v", err)
	}
	if _, err := f.AddGeometryReference(base, mustName(t, "Self"), base, gdtf.Offsets{}); !errors.Is(err, gdtf.ErrTemplateCycle) {
		t.Fatalf("ancestor template: %v", err)
	}
}

func TestFixture_AddGeometryReferenceFailureRollsBack(t *testing.T) {
	f := gdtf.NewFixture()
	t1, _ := f.AddTopLevelGeometry(mustName(t, "T1"), gdtf.NoIndex)
	t2, _ := f.AddTopLevelGeometry(mustName(t, "T2"), gdtf.NoIndex)
	if _, err := f.AddGeometryReference(t2, mustName(t, "R1"), t1, gdtf.Offsets{}); err != nil {
		t.Fatalf("AddGeometryReference: %v", err)
	}
	g := f.Geometries()
	lenBefore := g.Len()

	// Closing the loop between the two templates fails deep inside
	// instantiation, after nodes were already inserted.
	if _, err := f.AddGeometryReference(t1, mustName(t, "R2"), t2, gdtf.Offsets{}); err == nil {
		t.Fatalf("expected instantiation failure")
	}
	if g.Len() != lenBefore {
		t.Fatalf("arena grew on the error branch: %d -> %d", lenBefore, g.Len())
	}
	if _, ok := g.Find(mustName(t, "R2")); ok {
		t.Fatalf("failed reference left in the arena")
	}
	n, _ := g.Node(t1)
	if len(n.Children) != 0 {
		t.Fatalf("parent children not rolled back: %v", n.Children)
	}
	// The fixture is still fully usable afterwards.
	if _, err := f.AddChildGeometry(t1, mustName(t, "Arm"), gdtf.NoIndex); err != nil {
		t.Fatalf("AddChildGeometry after rollback: %v", err)
	}
}

func TestFixture_AddModeAndChannel(t *testing.T) {
	f := gdtf.NewFixture()
	base, _ := f.AddTopLevelGeometry(mustName(t, "Base"), gdtf.NoIndex)
	head, _ := f.AddChildGeometry(base, mustName(t, "Head"), gdtf.NoIndex)
	other, _ := f.AddTopLevelGeometry(mustName(t, "Other"), gdtf.NoIndex)

	if _, err := f.AddMode(mustName(t, "M"), "", head); !errors.Is(err, gdtf.ErrNonTopLevelGeometry) {
		t.Fatalf("non-top-level mode geometry: %v", err)
	}
	m, err := f.AddMode(mustName(t, "M"), "Standard", base)
	if err != nil {
		t.Fatalf("AddMode: %v", err)
	}
	if _, err := f.AddMode(mustName(t, "M"), "", gdtf.NoIndex); !errors.Is(err, gdtf.ErrDuplicateName) {
		t.Fatalf("duplicate mode: %v", err)
	}

	if _, err := f.AddChannel(m, gdtf.Channel{Name: mustName(t, "Dim"), Break: 1, Offsets: []int{1}, Geometry: head}); err != nil {
		t.Fatalf("AddChannel: %v", err)
	}
	if _, err := f.AddChannel(m, gdtf.Channel{Name: mustName(t, "Dim"), Break: 1, Geometry: head}); !errors.Is(err, gdtf.ErrDuplicateName) {
		t.Fatalf("duplicate channel: %v", err)
	}
	if _, err := f.AddChannel(m, gdtf.Channel{Name: mustName(t, "Stray"), Break: 1, Geometry: other}); !errors.Is(err, gdtf.ErrGeometryOutsideMode) {
		t.Fatalf("outside-subtree channel geometry: %v", err)
	}
}
