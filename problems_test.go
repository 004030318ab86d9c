package gdtf_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/fixturekit/gdtf"
)

func TestProblems_ErrorSummary(t *testing.T) {
	ps := gdtf.Problems{
		{Kind: gdtf.KindAttributeMissing, Location: "/a"},
		{Kind: gdtf.KindDuplicateName, Location: "/b"},
		{Kind: gdtf.KindUnknownGeometry, Location: "/c"},
		{Kind: gdtf.KindParentCycle, Location: "/d"},
	}
	s := ps.Error()
	if !strings.Contains(s, "duplicate_name at /b") {
		t.Fatalf("summary missing entry: %q", s)
	}
	if !strings.Contains(s, "total 4") {
		t.Fatalf("summary missing total: %q", s)
	}
	if (gdtf.Problems{}).Error() != "" {
		t.Fatalf("empty ledger should summarize empty")
	}
}

func TestProblem_Class(t *testing.T) {
	tests := []struct {
		kind string
		want gdtf.Class
	}{
		{gdtf.KindAttributeMissing, gdtf.ClassParsing},
		{gdtf.KindUnknownGeometry, gdtf.ClassParsing},
		{gdtf.KindDuplicateName, gdtf.ClassParsing},
		{gdtf.KindNonTopLevelGeometry, gdtf.ClassDomain},
		{gdtf.KindGeometryOutsideMode, gdtf.ClassDomain},
		{gdtf.KindTopLevelReference, gdtf.ClassDomain},
		{gdtf.KindReferenceChild, gdtf.ClassDomain},
	}
	for _, tt := range tests {
		if got := (gdtf.Problem{Kind: tt.kind}).Class(); got != tt.want {
			t.Errorf("Class(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestProblems_OfClassKeepsOrder(t *testing.T) {
	ps := gdtf.Problems{
		{Kind: gdtf.KindNonTopLevelGeometry, Location: "/1"},
		{Kind: gdtf.KindAttributeMissing, Location: "/2"},
		{Kind: gdtf.KindGeometryOutsideMode, Location: "/3"},
	}
	dom := ps.OfClass(gdtf.ClassDomain)
	if len(dom) != 2 || dom[0].Location != "/1" || dom[1].Location != "/3" {
		t.Fatalf("OfClass = %v", dom)
	}
}

func TestAsProblems(t *testing.T) {
	var err error = gdtf.Problems{{Kind: gdtf.KindUnexpected}}
	ps, ok := gdtf.AsProblems(err)
	if !ok || len(ps) != 1 {
		t.Fatalf("AsProblems failed: %v %v", ps, ok)
	}
	if _, ok := gdtf.AsProblems(errors.New("other")); ok {
		t.Fatalf("AsProblems matched a plain error")
	}
}

func TestLocPaths(t *testing.T) {
	l := gdtf.Root().Child("GDTF").Child("FixtureType").ChildAt("Geometry", 2).Attr("Model")
	if got := l.Path(); got != "/GDTF/FixtureType/Geometry[2]/@Model" {
		t.Fatalf("Path() = %q", got)
	}
	if gdtf.Root().Path() != "/" {
		t.Fatalf("root path = %q", gdtf.Root().Path())
	}
	p := gdtf.At("/GDTF/FixtureType").Problem(gdtf.KindNodeMissing, "missing", "name", "Geometries")
	if p.Location != "/GDTF/FixtureType" || p.Params["name"] != "Geometries" {
		t.Fatalf("Problem = %+v", p)
	}
}
