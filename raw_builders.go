package gdtf

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// The Raw*Builder types assemble records incrementally. Attribute discovery
// order in the file does not map to construction order, so every setter may
// be called at any point before Finalize. Finalize is called exactly once;
// it applies the local validation rules, substitutes defaults for anything
// missing or malformed, and logs one Problem per deviation.

type rawAttr struct {
	value string
	set   bool
}

func (a *rawAttr) setTo(v string) { a.value, a.set = v, true }

// missing logs an attribute_missing Problem and returns false when the
// attribute was never set.
func (a *rawAttr) missing(loc Loc, name, action string, ps *Problems) bool {
	if a.set {
		return false
	}
	p := loc.Attr(name).Problem(KindAttributeMissing, fmt.Sprintf("missing attribute %q", name))
	p.Action = action
	*ps = AppendProblems(*ps, p)
	return true
}

// invalid logs an invalid_attribute Problem for a value that failed local
// validation.
func invalidAttr(loc Loc, name, value, action string, err error, ps *Problems) {
	p := loc.Attr(name).Problem(KindInvalidAttribute,
		fmt.Sprintf("could not parse attribute %s=%q: %v", name, value, err))
	p.Action = action
	*ps = AppendProblems(*ps, p)
}

// RawGeometryBuilder assembles one RawGeometry.
type RawGeometryBuilder struct {
	loc   Loc
	index int
	kind  GeometryKind

	name, parent, model, template rawAttr
	breaks                        [][2]rawAttr // DMXBreak, DMXOffset per Break child
}

// NewRawGeometryBuilder starts a record for the index-th same-kind sibling at
// loc.
func NewRawGeometryBuilder(kind GeometryKind, loc Loc, index int) *RawGeometryBuilder {
	return &RawGeometryBuilder{loc: loc, index: index, kind: kind}
}

func (b *RawGeometryBuilder) Name(s string) *RawGeometryBuilder     { b.name.setTo(s); return b }
func (b *RawGeometryBuilder) Parent(s string) *RawGeometryBuilder   { b.parent.setTo(s); return b }
func (b *RawGeometryBuilder) Model(s string) *RawGeometryBuilder    { b.model.setTo(s); return b }
func (b *RawGeometryBuilder) Template(s string) *RawGeometryBuilder { b.template.setTo(s); return b }

// Break records one Break child. Either attribute may be empty-and-unset.
func (b *RawGeometryBuilder) Break(dmxBreak, dmxOffset string, breakSet, offsetSet bool) *RawGeometryBuilder {
	b.breaks = append(b.breaks, [2]rawAttr{
		{value: dmxBreak, set: breakSet},
		{value: dmxOffset, set: offsetSet},
	})
	return b
}

// Finalize converts the builder into its record, logging Problems for missing
// or malformed fields. The record is always usable.
func (b *RawGeometryBuilder) Finalize(ps *Problems) RawGeometry {
	g := RawGeometry{Kind: b.kind, Loc: b.loc.Path()}

	if b.name.missing(b.loc, "Name", "using default name", ps) {
		g.Name = DefaultName(b.kind.String(), b.index)
	} else {
		g.Name = NameFixed(b.name.value, b.loc.Attr("Name"), ps)
		if g.Name.IsZero() {
			g.Name = DefaultName(b.kind.String(), b.index)
		}
	}
	if b.parent.set {
		g.Parent = NameFixed(b.parent.value, b.loc.Attr("Parent"), ps)
	}
	if b.model.set {
		g.Model = NameFixed(b.model.value, b.loc.Attr("Model"), ps)
	}
	if b.kind == GeometryReference {
		if !b.template.missing(b.loc, "Geometry", "leaving reference without template", ps) {
			g.Template = NameFixed(b.template.value, b.loc.Attr("Geometry"), ps)
		}
	}
	for i, pair := range b.breaks {
		loc := b.loc.ChildAt("Break", i)
		rb := RawBreak{Break: DefaultBreak, Offset: DefaultDMXAddress}
		if pair[0].set {
			v, err := ParseBreak(pair[0].value)
			if err != nil {
				invalidAttr(loc, "DMXBreak", pair[0].value, "using break 1", err, ps)
			}
			rb.Break = v
		}
		if pair[1].set {
			v, err := ParseDMXAddress(pair[1].value)
			if err != nil {
				invalidAttr(loc, "DMXOffset", pair[1].value, "using offset 1", err, ps)
				v = DefaultDMXAddress
			}
			rb.Offset = v
		}
		g.Breaks = append(g.Breaks, rb)
	}
	return g
}

// RawModelBuilder assembles one RawModel.
type RawModelBuilder struct {
	loc   Loc
	index int

	name, length, width, height, primitive, file rawAttr
}

func NewRawModelBuilder(loc Loc, index int) *RawModelBuilder {
	return &RawModelBuilder{loc: loc, index: index}
}

func (b *RawModelBuilder) Name(s string) *RawModelBuilder          { b.name.setTo(s); return b }
func (b *RawModelBuilder) Length(s string) *RawModelBuilder        { b.length.setTo(s); return b }
func (b *RawModelBuilder) Width(s string) *RawModelBuilder         { b.width.setTo(s); return b }
func (b *RawModelBuilder) Height(s string) *RawModelBuilder        { b.height.setTo(s); return b }
func (b *RawModelBuilder) PrimitiveType(s string) *RawModelBuilder { b.primitive.setTo(s); return b }
func (b *RawModelBuilder) File(s string) *RawModelBuilder          { b.file.setTo(s); return b }

func (b *RawModelBuilder) Finalize(ps *Problems) RawModel {
	m := RawModel{Loc: b.loc.Path(), PrimitiveType: "Undefined"}
	if b.name.missing(b.loc, "Name", "using default name", ps) {
		m.Name = DefaultName("Model", b.index)
	} else {
		m.Name = NameFixed(b.name.value, b.loc.Attr("Name"), ps)
		if m.Name.IsZero() {
			m.Name = DefaultName("Model", b.index)
		}
	}
	m.Length = b.dimension("Length", &b.length, ps)
	m.Width = b.dimension("Width", &b.width, ps)
	m.Height = b.dimension("Height", &b.height, ps)
	if b.primitive.set {
		if !validPrimitiveType(b.primitive.value) {
			invalidAttr(b.loc, "PrimitiveType", b.primitive.value, "using Undefined",
				fmt.Errorf("not in the PrimitiveType vocabulary"), ps)
		} else {
			m.PrimitiveType = b.primitive.value
		}
	}
	if b.file.set {
		m.File = b.file.value
	}
	return m
}

func (b *RawModelBuilder) dimension(attr string, a *rawAttr, ps *Problems) float64 {
	if !a.set {
		return 0
	}
	v, err := strconv.ParseFloat(a.value, 64)
	if err != nil {
		invalidAttr(b.loc, attr, a.value, "using 0", err, ps)
		return 0
	}
	return v
}

// primitiveTypes is the closed PrimitiveType vocabulary of the format.
var primitiveTypes = []string{
	"Undefined", "Cube", "Cylinder", "Sphere", "Base", "Yoke", "Head",
	"Scanner", "Conventional", "Pigtail", "Base1_1", "Scanner1_1",
	"Conventional1_1",
}

func validPrimitiveType(s string) bool {
	for _, t := range primitiveTypes {
		if t == s {
			return true
		}
	}
	return false
}

// RawModeBuilder assembles one RawMode. Channels are finalized separately and
// attached via Channel.
type RawModeBuilder struct {
	loc   Loc
	index int

	name, description, geometry rawAttr
	channels                    []RawChannel
}

func NewRawModeBuilder(loc Loc, index int) *RawModeBuilder {
	return &RawModeBuilder{loc: loc, index: index}
}

func (b *RawModeBuilder) Name(s string) *RawModeBuilder        { b.name.setTo(s); return b }
func (b *RawModeBuilder) Description(s string) *RawModeBuilder { b.description.setTo(s); return b }
func (b *RawModeBuilder) Geometry(s string) *RawModeBuilder    { b.geometry.setTo(s); return b }
func (b *RawModeBuilder) Channel(c RawChannel) *RawModeBuilder {
	b.channels = append(b.channels, c)
	return b
}

func (b *RawModeBuilder) Finalize(ps *Problems) RawMode {
	m := RawMode{Loc: b.loc.Path(), Channels: b.channels}
	if b.name.missing(b.loc, "Name", "using default name", ps) {
		m.Name = DefaultName("DMXMode", b.index)
	} else {
		m.Name = NameFixed(b.name.value, b.loc.Attr("Name"), ps)
		if m.Name.IsZero() {
			m.Name = DefaultName("DMXMode", b.index)
		}
	}
	if !b.description.missing(b.loc, "Description", "using empty string", ps) {
		m.Description = b.description.value
	}
	if !b.geometry.missing(b.loc, "Geometry", "leaving mode without geometry", ps) {
		m.Geometry = NameFixed(b.geometry.value, b.loc.Attr("Geometry"), ps)
	}
	return m
}

// RawChannelBuilder assembles one RawChannel.
type RawChannelBuilder struct {
	loc   Loc
	index int

	name, dmxBreak, offset, geometry, def rawAttr
}

func NewRawChannelBuilder(loc Loc, index int) *RawChannelBuilder {
	return &RawChannelBuilder{loc: loc, index: index}
}

func (b *RawChannelBuilder) Name(s string) *RawChannelBuilder     { b.name.setTo(s); return b }
func (b *RawChannelBuilder) Break(s string) *RawChannelBuilder    { b.dmxBreak.setTo(s); return b }
func (b *RawChannelBuilder) Offset(s string) *RawChannelBuilder   { b.offset.setTo(s); return b }
func (b *RawChannelBuilder) Geometry(s string) *RawChannelBuilder { b.geometry.setTo(s); return b }
func (b *RawChannelBuilder) Default(s string) *RawChannelBuilder  { b.def.setTo(s); return b }

func (b *RawChannelBuilder) Finalize(ps *Problems) RawChannel {
	c := RawChannel{Loc: b.loc.Path(), Break: DefaultBreak}
	if b.name.missing(b.loc, "Name", "using default name", ps) {
		c.Name = DefaultName("DMXChannel", b.index)
	} else {
		c.Name = NameFixed(b.name.value, b.loc.Attr("Name"), ps)
		if c.Name.IsZero() {
			c.Name = DefaultName("DMXChannel", b.index)
		}
	}
	if b.dmxBreak.set {
		v, err := ParseBreak(b.dmxBreak.value)
		if err != nil {
			invalidAttr(b.loc, "DMXBreak", b.dmxBreak.value, "using break 1", err, ps)
		}
		c.Break = v
	}
	if b.offset.set {
		c.Offsets = parseOffsets(b.loc, b.offset.value, ps)
	}
	if !b.geometry.missing(b.loc, "Geometry", "leaving channel without geometry", ps) {
		c.Geometry = NameFixed(b.geometry.value, b.loc.Attr("Geometry"), ps)
	}
	if b.def.set {
		v, err := strconv.ParseUint(b.def.value, 10, 32)
		if err != nil {
			invalidAttr(b.loc, "Default", b.def.value, "using 0", err, ps)
			v = 0
		}
		c.Default = uint32(v)
	}
	return c
}

// parseOffsets parses the comma-separated byte offset list, e.g. "1,2".
// "None" is the format's way of saying the channel occupies no address.
// At most four bytes are supported per channel.
func parseOffsets(loc Loc, s string, ps *Problems) []int {
	if s == "" || s == "None" {
		return nil
	}
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || v < 1 || v > 512 {
			invalidAttr(loc, "Offset", s, "dropping offset entry",
				fmt.Errorf("offset %q out of range", part), ps)
			continue
		}
		out = append(out, v)
	}
	if len(out) > 4 {
		invalidAttr(loc, "Offset", s, "keeping the first four",
			fmt.Errorf("more than 4 byte offsets"), ps)
		out = out[:4]
	}
	return out
}

// parseUUIDAttr handles the UUID-valued fixture attributes.
func parseUUIDAttr(loc Loc, name, value string, ps *Problems) uuid.UUID {
	id, err := uuid.Parse(value)
	if err != nil {
		invalidAttr(loc, name, value, "using nil UUID", err, ps)
		return uuid.Nil
	}
	return id
}
