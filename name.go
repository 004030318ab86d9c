package gdtf

import (
	"fmt"
	"strings"
)

// Name is the validated identifier used for lookups across a whole GDTF
// document.
//
// A Name is a UTF-8 string with restricted characters. Per DIN SPEC
// 15800:2022-02 Annex C the disallowed code points are:
//   - U+0000..=U+001F (control)
//   - U+0021 (!)
//   - U+0024 ($)
//   - U+0026 (&)
//   - U+002C (,)
//   - U+002E (.)
//   - U+003F (?)
//   - U+005B..=U+005E ([\]^)
//   - U+007B..=U+007F ({|}~ and DEL)
//
// Uniqueness is a container invariant, not a Name invariant: collections of
// Names (geometry forest, mode list, ...) enforce it on insert.
type Name struct {
	s string
}

// tofu replaces disallowed runes in fixed-mode construction.
const tofu = '□'

func forbiddenRune(r rune) bool {
	switch {
	case r <= 0x1f:
		return true
	case r == '!' || r == '$' || r == '&' || r == ',' || r == '.' || r == '?':
		return true
	case r >= '[' && r <= '^':
		return true
	case r >= '{' && r <= 0x7f:
		return true
	}
	return false
}

func substituteForbidden(s string) (fixed string, invalid string) {
	var b strings.Builder
	var inv strings.Builder
	for _, r := range s {
		if forbiddenRune(r) {
			inv.WriteRune(r)
			b.WriteRune(tofu)
			continue
		}
		b.WriteRune(r)
	}
	return b.String(), inv.String()
}

// NameStrict validates s as a Name. It fails on empty input and on any
// forbidden code point.
func NameStrict(s string) (Name, error) {
	if s == "" {
		return Name{}, fmt.Errorf("empty Name")
	}
	fixed, invalid := substituteForbidden(s)
	if invalid != "" {
		return Name{fixed}, fmt.Errorf("invalid Name due to chars %q; replaced with '□'", invalid)
	}
	return Name{fixed}, nil
}

// NameFixed always returns a usable Name, substituting forbidden code points
// with '□'. When a substitution occurred a Problem of kind invalid_name at loc
// is appended to ps.
func NameFixed(s string, loc Loc, ps *Problems) Name {
	fixed, invalid := substituteForbidden(s)
	if invalid != "" && ps != nil {
		p := loc.Problem(KindInvalidName, fmt.Sprintf("invalid chars %q in Name %q", invalid, s))
		p.Action = fmt.Sprintf("replaced with %q", fixed)
		*ps = AppendProblems(*ps, p)
	}
	return Name{fixed}
}

// DefaultName constructs the stand-in Name for an element that carries no
// usable Name attribute, based on the XML tag and the 0-based node index in
// its parent.
func DefaultName(tag string, index int) Name {
	n, _ := NameStrict(fmt.Sprintf("%s %d", tag, index+1))
	return n
}

// IsZero reports whether the Name is the empty string.
func (n Name) IsZero() bool { return n.s == "" }

func (n Name) String() string { return n.s }
