package gdtf

// Lower converts a Fixture back into the intermediate model. It is total:
// every field of a valid Fixture has a representable value. Instantiated
// template copies are skipped, since parsing derives them again; geometry
// records are emitted in depth-first order so that a parent always precedes
// its children.
func Lower(f *Fixture) *RawGDTF {
	raw := &RawGDTF{
		DataVersion: f.DataVersion,
		FixtureType: RawFixtureType{
			Name:            f.Name,
			ShortName:       f.ShortName,
			LongName:        f.LongName,
			Manufacturer:    f.Manufacturer,
			Description:     f.Description,
			FixtureTypeID:   f.FixtureTypeID,
			CanHaveChildren: f.CanHaveChildren,
			Thumbnail:       f.Thumbnail,
		},
	}
	if f.RefFT != nil {
		id := *f.RefFT
		raw.FixtureType.RefFT = &id
	}

	for _, m := range f.models {
		raw.FixtureType.Models = append(raw.FixtureType.Models, RawModel{
			Name: m.Name, Length: m.Length, Width: m.Width, Height: m.Height,
			PrimitiveType: m.PrimitiveType, File: m.File,
		})
	}

	g := &f.geometries
	for _, i := range g.TopLevel() {
		lowerGeometry(g, f, i, Name{}, raw)
	}

	for i := range f.modes {
		m := &f.modes[i]
		rm := RawMode{Name: m.Name, Description: m.Description}
		if m.Geometry != NoIndex {
			rm.Geometry = g.nodes[m.Geometry].Name
		}
		for _, c := range m.Channels {
			rc := RawChannel{
				Name: c.Name, Break: c.Break,
				Offsets: append([]int(nil), c.Offsets...),
				Default: c.Default,
			}
			if c.Geometry != NoIndex {
				rc.Geometry = g.nodes[c.Geometry].Name
			}
			rm.Channels = append(rm.Channels, rc)
		}
		raw.FixtureType.Modes = append(raw.FixtureType.Modes, rm)
	}
	return raw
}

func lowerGeometry(g *Geometries, f *Fixture, i int, parent Name, raw *RawGDTF) {
	n := &g.nodes[i]
	if n.Instantiated {
		return
	}
	rec := RawGeometry{Name: n.Name, Kind: n.Kind, Parent: parent}
	if n.Model != NoIndex {
		rec.Model = f.models[n.Model].Name
	}
	if n.Kind == GeometryReference {
		if n.Template != NoIndex {
			rec.Template = g.nodes[n.Template].Name
		}
		rec.Breaks = breaksFromOffsets(n.Offsets)
	}
	raw.FixtureType.Geometries = append(raw.FixtureType.Geometries, rec)
	for _, c := range n.Children {
		lowerGeometry(g, f, c, n.Name, raw)
	}
}

// breaksFromOffsets inverts offsetsFromBreaks: the normal entries come first,
// the overwrite entry last. The trailing normal entry is omitted when it is
// the overwrite pair itself, because parsing re-derives it.
func breaksFromOffsets(o Offsets) []RawBreak {
	if o.Overwrite == nil {
		var out []RawBreak
		for _, e := range o.Normal {
			out = append(out, RawBreak{Break: e.Break, Offset: e.Offset})
		}
		return out
	}
	normal := o.Normal
	if ln := len(normal); ln > 0 && normal[ln-1] == *o.Overwrite {
		normal = normal[:ln-1]
	}
	var out []RawBreak
	for _, e := range normal {
		out = append(out, RawBreak{Break: e.Break, Offset: e.Offset})
	}
	return append(out, RawBreak{Break: o.Overwrite.Break, Offset: o.Overwrite.Offset})
}

// normalize brings API-supplied Offsets into the same shape offsetsFromBreaks
// produces, so lowering and reparsing reproduce them exactly.
func (o *Offsets) normalize() {
	if o.Overwrite == nil && len(o.Normal) > 0 {
		last := o.Normal[len(o.Normal)-1]
		o.Overwrite = &last
	}
	if o.Overwrite != nil && !hasBreak(o.Normal, o.Overwrite.Break) {
		o.Normal = append(o.Normal, *o.Overwrite)
	}
}
