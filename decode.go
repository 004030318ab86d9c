package gdtf

import (
	"fmt"

	"github.com/google/uuid"

	"github.com/fixturekit/gdtf/internal/xmldom"
)

// DecodeDescription parses description.xml bytes into the intermediate model.
// It never fails for content reasons; only input that is not well-formed XML
// or that carries no GDTF root element is a hard error, because then not a
// single record can be recovered.
func DecodeDescription(data []byte) (*RawGDTF, Problems, error) {
	root, err := xmldom.Parse(data)
	if err != nil {
		return nil, nil, &ParseError{Op: "parse", Cause: err}
	}
	gdtfNode := findGDTF(root)
	if gdtfNode == nil {
		return nil, nil, &ParseError{Op: "parse", Cause: fmt.Errorf("root node 'GDTF' not found")}
	}

	var ps Problems
	raw := &RawGDTF{DataVersion: V1_2}
	loc := Root().Child("GDTF")

	if v, ok := gdtfNode.Attr("DataVersion"); ok {
		dv, err := ParseDataVersion(v)
		if err != nil {
			invalidAttr(loc, "DataVersion", v, "assuming 1.2", err, &ps)
		}
		raw.DataVersion = dv
	} else {
		p := loc.Attr("DataVersion").Problem(KindAttributeMissing, "missing attribute \"DataVersion\"")
		p.Action = "assuming 1.2"
		ps = AppendProblems(ps, p)
	}

	decodeFixtureType(gdtfNode, loc, raw, &ps)
	return raw, ps, nil
}

func findGDTF(n *xmldom.Node) *xmldom.Node {
	if n.Tag == "GDTF" {
		return n
	}
	for _, c := range n.Children {
		if found := findGDTF(c); found != nil {
			return found
		}
	}
	return nil
}

func decodeFixtureType(gdtfNode *xmldom.Node, loc Loc, raw *RawGDTF, ps *Problems) {
	ft, ok := gdtfNode.Child("FixtureType")
	if !ok {
		p := loc.Child("FixtureType").Problem(KindNodeMissing, "missing node 'FixtureType' as child of 'GDTF'")
		p.Action = "returning empty fixture type"
		*ps = AppendProblems(*ps, p)
		return
	}
	loc = loc.Child("FixtureType")
	out := &raw.FixtureType

	assignString := func(attr string, dst *string) {
		if v, ok := ft.Attr(attr); ok {
			*dst = v
			return
		}
		p := loc.Attr(attr).Problem(KindAttributeMissing, fmt.Sprintf("missing attribute %q", attr))
		p.Action = "using empty string"
		*ps = AppendProblems(*ps, p)
	}

	if v, ok := ft.Attr("Name"); ok {
		out.Name = NameFixed(v, loc.Attr("Name"), ps)
	} else {
		p := loc.Attr("Name").Problem(KindAttributeMissing, "missing attribute \"Name\"")
		p.Action = "using empty name"
		*ps = AppendProblems(*ps, p)
	}
	assignString("ShortName", &out.ShortName)
	assignString("LongName", &out.LongName)
	assignString("Manufacturer", &out.Manufacturer)
	assignString("Description", &out.Description)

	if v, ok := ft.Attr("FixtureTypeID"); ok {
		out.FixtureTypeID = parseUUIDAttr(loc, "FixtureTypeID", v, ps)
	} else {
		p := loc.Attr("FixtureTypeID").Problem(KindAttributeMissing, "missing attribute \"FixtureTypeID\"")
		p.Action = "using nil UUID"
		*ps = AppendProblems(*ps, p)
	}
	// RefFT is optional; the GDTF Builder writes it as the empty string when unset.
	if v, ok := ft.Attr("RefFT"); ok && v != "" {
		id, err := uuid.Parse(v)
		if err != nil {
			invalidAttr(loc, "RefFT", v, "ignoring RefFT", err, ps)
		} else {
			out.RefFT = &id
		}
	}
	out.CanHaveChildren = true
	if v, ok := ft.Attr("CanHaveChildren"); ok {
		b, err := ParseYesNo(v)
		if err != nil {
			invalidAttr(loc, "CanHaveChildren", v, "assuming Yes", err, ps)
		}
		out.CanHaveChildren = b
	}
	if v, ok := ft.Attr("Thumbnail"); ok {
		out.Thumbnail = v
	}

	decodeModels(ft, loc, out, ps)
	decodeGeometries(ft, loc, out, ps)
	decodeModes(ft, loc, out, ps)
}

func decodeModels(ft *xmldom.Node, loc Loc, out *RawFixtureType, ps *Problems) {
	models, ok := ft.Child("Models")
	if !ok {
		return
	}
	loc = loc.Child("Models")
	for i, n := range models.ChildrenByTag("Model") {
		b := NewRawModelBuilder(loc.ChildAt("Model", i), i)
		if v, ok := n.Attr("Name"); ok {
			b.Name(v)
		}
		if v, ok := n.Attr("Length"); ok {
			b.Length(v)
		}
		if v, ok := n.Attr("Width"); ok {
			b.Width(v)
		}
		if v, ok := n.Attr("Height"); ok {
			b.Height(v)
		}
		if v, ok := n.Attr("PrimitiveType"); ok {
			b.PrimitiveType(v)
		}
		if v, ok := n.Attr("File"); ok {
			b.File(v)
		}
		out.Models = append(out.Models, b.Finalize(ps))
	}
}

func decodeGeometries(ft *xmldom.Node, loc Loc, out *RawFixtureType, ps *Problems) {
	geometries, ok := ft.Child("Geometries")
	if !ok {
		p := loc.Child("Geometries").Problem(KindNodeMissing, "missing node 'Geometries' as child of 'FixtureType'")
		p.Action = "leaving geometries empty"
		*ps = AppendProblems(*ps, p)
		return
	}
	decodeGeometryChildren(geometries, loc.Child("Geometries"), Name{}, out, ps)
}

// decodeGeometryChildren flattens the nested geometry elements into the flat,
// order-preserving record list. The declared parent of a nested record is the
// locally-validated Name of its enclosing record; an explicit Parent attribute
// overrides nesting, which is how flat files with forward references are
// expressed.
func decodeGeometryChildren(n *xmldom.Node, loc Loc, parent Name, out *RawFixtureType, ps *Problems) {
	for _, c := range n.Children {
		i := n.IndexAmongSiblings(c)
		cloc := loc.ChildAt(c.Tag, i)
		var kind GeometryKind
		switch c.Tag {
		case "Geometry":
			kind = GeometryGeneral
		case "GeometryReference":
			kind = GeometryReference
		default:
			p := cloc.Problem(KindUnexpectedNode, fmt.Sprintf("unexpected node <%s>", c.Tag))
			p.Action = "ignoring node and its children"
			*ps = AppendProblems(*ps, p)
			continue
		}

		b := NewRawGeometryBuilder(kind, cloc, i)
		if !parent.IsZero() {
			b.Parent(parent.String())
		}
		if v, ok := c.Attr("Name"); ok {
			b.Name(v)
		}
		if v, ok := c.Attr("Parent"); ok {
			b.Parent(v)
		}
		if v, ok := c.Attr("Model"); ok {
			b.Model(v)
		}
		if kind == GeometryReference {
			if v, ok := c.Attr("Geometry"); ok {
				b.Template(v)
			}
			for _, bc := range c.Children {
				if bc.Tag != "Break" {
					p := cloc.Child(bc.Tag).Problem(KindUnexpectedNode, fmt.Sprintf("unexpected node <%s>", bc.Tag))
					p.Action = "ignoring node"
					*ps = AppendProblems(*ps, p)
					continue
				}
				dmxBreak, breakSet := bc.Attr("DMXBreak")
				dmxOffset, offsetSet := bc.Attr("DMXOffset")
				b.Break(dmxBreak, dmxOffset, breakSet, offsetSet)
			}
		}
		rec := b.Finalize(ps)
		out.Geometries = append(out.Geometries, rec)
		if kind == GeometryGeneral {
			decodeGeometryChildren(c, cloc, rec.Name, out, ps)
		}
	}
}

func decodeModes(ft *xmldom.Node, loc Loc, out *RawFixtureType, ps *Problems) {
	modes, ok := ft.Child("DMXModes")
	if !ok {
		p := loc.Child("DMXModes").Problem(KindNodeMissing, "missing node 'DMXModes' as child of 'FixtureType'")
		p.Action = "leaving DMX modes empty"
		*ps = AppendProblems(*ps, p)
		return
	}
	loc = loc.Child("DMXModes")
	for i, n := range modes.ChildrenByTag("DMXMode") {
		mloc := loc.ChildAt("DMXMode", i)
		b := NewRawModeBuilder(mloc, i)
		if v, ok := n.Attr("Name"); ok {
			b.Name(v)
		}
		if v, ok := n.Attr("Description"); ok {
			b.Description(v)
		}
		if v, ok := n.Attr("Geometry"); ok {
			b.Geometry(v)
		}
		if channels, ok := n.Child("DMXChannels"); ok {
			cloc := mloc.Child("DMXChannels")
			for j, cn := range channels.ChildrenByTag("DMXChannel") {
				cb := NewRawChannelBuilder(cloc.ChildAt("DMXChannel", j), j)
				if v, ok := cn.Attr("Name"); ok {
					cb.Name(v)
				}
				if v, ok := cn.Attr("DMXBreak"); ok {
					cb.Break(v)
				}
				if v, ok := cn.Attr("Offset"); ok {
					cb.Offset(v)
				}
				if v, ok := cn.Attr("Geometry"); ok {
					cb.Geometry(v)
				}
				if v, ok := cn.Attr("Default"); ok {
					cb.Default(v)
				}
				b.Channel(cb.Finalize(ps))
			}
		} else {
			p := mloc.Child("DMXChannels").Problem(KindNodeMissing, "missing node 'DMXChannels' as child of 'DMXMode'")
			p.Action = "leaving channels empty"
			*ps = AppendProblems(*ps, p)
		}
		out.Modes = append(out.Modes, b.Finalize(ps))
	}
}
