package gdtf

import (
	"errors"
	"fmt"
	"strings"
)

// Problem kinds (exported consts for IDE completion and type safety by convention)
const (
	KindNodeMissing      = "node_missing"
	KindAttributeMissing = "attribute_missing"
	KindInvalidAttribute = "invalid_attribute"
	KindInvalidName      = "invalid_name"
	KindUnexpectedNode   = "unexpected_node"
	KindDuplicateName    = "duplicate_name"
	KindDuplicateBreak   = "duplicate_break"
	KindUnknownGeometry  = "unknown_geometry"
	KindUnknownModel     = "unknown_model"
	KindResourceMissing  = "resource_missing"
	KindParentCycle      = "parent_cycle"
	KindTemplateCycle    = "template_cycle"
	// Domain pass (placement/business semantics)
	KindNonTopLevelGeometry  = "non_top_level_geometry"
	KindTopLevelReference    = "top_level_reference"
	KindGeometryOutsideMode  = "geometry_outside_mode"
	KindReferenceNotTemplate = "reference_not_template"
	KindReferenceChild       = "reference_child"
	// Internal inconsistency that was still recovered from. Seeing this kind
	// means a bug in this library, not in the input file.
	KindUnexpected = "unexpected"
)

// Class partitions Problem kinds into the two validation tiers.
type Class int

const (
	ClassParsing Class = iota // structural: the referenced thing does not exist, or a value is malformed
	ClassDomain               // semantic: the referenced thing exists but violates a placement rule
)

// Problem is a single recovered anomaly in a GDTF file. It never aborts
// processing; the Action field records the mitigation that kept the pipeline
// going.
type Problem struct {
	Kind     string // One of the kinds listed above.
	Location string // Element/attribute path (for example: /GDTF/FixtureType/Geometries/Geometry[2]/@Model).
	Message  string
	Action   string // Mitigation taken (for example: "renamed to 'Head (duplicate 1)'").
	// Params carries structured parameters (e.g., {"name":"Head", "parent":"Base"})
	// for reporting and observability.
	Params map[string]any
}

// Class reports which validation tier produced the Problem.
func (p Problem) Class() Class {
	switch p.Kind {
	case KindNonTopLevelGeometry, KindTopLevelReference, KindGeometryOutsideMode, KindReferenceNotTemplate, KindReferenceChild:
		return ClassDomain
	}
	return ClassParsing
}

func (p Problem) String() string {
	if p.Action == "" {
		return fmt.Sprintf("%s at %s: %s", p.Kind, p.Location, p.Message)
	}
	return fmt.Sprintf("%s at %s: %s; %s", p.Kind, p.Location, p.Message, p.Action)
}

// Problems is the ordered ledger of anomalies collected across all pipeline
// stages. It implements error so a call site that treats any anomaly as fatal
// can return it directly.
type Problems []Problem

// Error summarizes the first few problems.
func (ps Problems) Error() string {
	if len(ps) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	n := len(ps)
	lim := n
	if lim > maxShown {
		lim = maxShown
	}
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		it := ps[i]
		// e.g. duplicate_name at /GDTF/FixtureType/Geometries/Geometry[2]
		fmt.Fprintf(b, "%s at %s", it.Kind, it.Location)
	}
	if n > lim {
		fmt.Fprintf(b, "; ... (total %d)", n)
	}
	return b.String()
}

// HasKind reports whether any problem of the given kind was recorded.
func (ps Problems) HasKind(kind string) bool {
	for _, p := range ps {
		if p.Kind == kind {
			return true
		}
	}
	return false
}

// OfClass returns the problems belonging to the given validation tier,
// preserving order.
func (ps Problems) OfClass(c Class) Problems {
	var out Problems
	for _, p := range ps {
		if p.Class() == c {
			out = append(out, p)
		}
	}
	return out
}

// AppendProblems appends problems to the destination, initializing the slice
// when needed.
func AppendProblems(dst Problems, more ...Problem) Problems {
	if dst == nil {
		dst = Problems{}
	}
	dst = append(dst, more...)
	return dst
}

// AsProblems extracts Problems from an error using errors.As internally.
func AsProblems(err error) (Problems, bool) {
	if err == nil {
		return nil, false
	}
	var ps Problems
	if errors.As(err, &ps) {
		return ps, true
	}
	return nil, false
}

// ParseError is the hard-failure tier: the input could not be interpreted as
// a GDTF document at all. No partial Fixture is produced alongside it.
type ParseError struct {
	Op    string // "parse", "archive", ...
	Cause error
}

func (e *ParseError) Error() string { return fmt.Sprintf("gdtf %s: %v", e.Op, e.Cause) }
func (e *ParseError) Unwrap() error { return e.Cause }
