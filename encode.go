package gdtf

import (
	"bytes"
	"strconv"
	"strings"

	"github.com/fixturekit/gdtf/internal/xmldom"
)

// EncodeDescription serializes the intermediate model into description.xml
// bytes. It is total barring writer failure: a RawGDTF, however partial,
// always has a serialized form.
//
// Nesting is reconstructed from the declared parent Names. A record whose
// parent has not been emitted keeps its Parent attribute and sits directly
// under Geometries; decoding understands that form, so no information is
// lost for such files either.
func EncodeDescription(raw *RawGDTF) ([]byte, error) {
	root := &xmldom.Node{Tag: "GDTF"}
	root.SetAttr("DataVersion", raw.DataVersion.String())

	ft := &xmldom.Node{Tag: "FixtureType"}
	root.Children = append(root.Children, ft)
	in := &raw.FixtureType
	ft.SetAttr("Name", in.Name.String())
	ft.SetAttr("ShortName", in.ShortName)
	ft.SetAttr("LongName", in.LongName)
	ft.SetAttr("Manufacturer", in.Manufacturer)
	ft.SetAttr("Description", in.Description)
	ft.SetAttr("FixtureTypeID", in.FixtureTypeID.String())
	if in.Thumbnail != "" {
		ft.SetAttr("Thumbnail", in.Thumbnail)
	}
	refFT := ""
	if in.RefFT != nil {
		refFT = in.RefFT.String()
	}
	ft.SetAttr("RefFT", refFT)
	ft.SetAttr("CanHaveChildren", FormatYesNo(in.CanHaveChildren))

	if len(in.Models) > 0 {
		models := &xmldom.Node{Tag: "Models"}
		ft.Children = append(ft.Children, models)
		for _, m := range in.Models {
			n := &xmldom.Node{Tag: "Model"}
			n.SetAttr("Name", m.Name.String())
			n.SetAttr("Length", formatFloat(m.Length))
			n.SetAttr("Width", formatFloat(m.Width))
			n.SetAttr("Height", formatFloat(m.Height))
			n.SetAttr("PrimitiveType", m.PrimitiveType)
			if m.File != "" {
				n.SetAttr("File", m.File)
			}
			models.Children = append(models.Children, n)
		}
	}

	geometries := &xmldom.Node{Tag: "Geometries"}
	ft.Children = append(ft.Children, geometries)
	byName := map[string]*xmldom.Node{}
	for _, rec := range in.Geometries {
		n := &xmldom.Node{Tag: rec.Kind.String()}
		n.SetAttr("Name", rec.Name.String())
		if !rec.Model.IsZero() {
			n.SetAttr("Model", rec.Model.String())
		}
		if rec.Kind == GeometryReference {
			if !rec.Template.IsZero() {
				n.SetAttr("Geometry", rec.Template.String())
			}
			for _, b := range rec.Breaks {
				bn := &xmldom.Node{Tag: "Break"}
				bn.SetAttr("DMXBreak", strconv.Itoa(int(b.Break)))
				bn.SetAttr("DMXOffset", b.Offset.String())
				n.Children = append(n.Children, bn)
			}
		}
		parent := geometries
		if !rec.Parent.IsZero() {
			if pn, ok := byName[rec.Parent.String()]; ok {
				parent = pn
			} else {
				n.SetAttr("Parent", rec.Parent.String())
			}
		}
		parent.Children = append(parent.Children, n)
		if rec.Kind == GeometryGeneral {
			byName[rec.Name.String()] = n
		}
	}

	modes := &xmldom.Node{Tag: "DMXModes"}
	ft.Children = append(ft.Children, modes)
	for _, m := range in.Modes {
		mn := &xmldom.Node{Tag: "DMXMode"}
		mn.SetAttr("Name", m.Name.String())
		mn.SetAttr("Description", m.Description)
		if !m.Geometry.IsZero() {
			mn.SetAttr("Geometry", m.Geometry.String())
		}
		channels := &xmldom.Node{Tag: "DMXChannels"}
		mn.Children = append(mn.Children, channels)
		for _, c := range m.Channels {
			cn := &xmldom.Node{Tag: "DMXChannel"}
			cn.SetAttr("Name", c.Name.String())
			cn.SetAttr("DMXBreak", strconv.Itoa(int(c.Break)))
			cn.SetAttr("Offset", formatOffsets(c.Offsets))
			if !c.Geometry.IsZero() {
				cn.SetAttr("Geometry", c.Geometry.String())
			}
			cn.SetAttr("Default", strconv.FormatUint(uint64(c.Default), 10))
			channels.Children = append(channels.Children, cn)
		}
		modes.Children = append(modes.Children, mn)
	}

	var buf bytes.Buffer
	if err := xmldom.Encode(&buf, root); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOffsets(offsets []int) string {
	if len(offsets) == 0 {
		return "None"
	}
	parts := make([]string, len(offsets))
	for i, o := range offsets {
		parts[i] = strconv.Itoa(o)
	}
	return strings.Join(parts, ",")
}
