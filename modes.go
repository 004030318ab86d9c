package gdtf

import "fmt"

// Mode is one DMX mode. Geometry indexes the fixture's geometry forest and,
// when set, always points at a top-level node. NoIndex means the mode has no
// usable geometry link; the mode itself is still part of the model.
type Mode struct {
	Name        Name
	Description string
	Geometry    int
	Channels    []Channel
}

// Channel is one DMX channel of a mode. Geometry indexes the geometry forest;
// when set it always lies inside the owning mode's geometry subtree.
type Channel struct {
	Name     Name
	Break    Break
	Offsets  []int
	Geometry int
	Default  uint32
}

// FindMode returns the index of the mode with the given Name.
func (f *Fixture) FindMode(name Name) (int, bool) {
	for i := range f.modes {
		if f.modes[i].Name == name {
			return i, true
		}
	}
	return NoIndex, false
}

// AddMode adds a DMX mode and returns its index. geometry must be NoIndex or
// a top-level geometry.
func (f *Fixture) AddMode(name Name, description string, geometry int) (int, error) {
	if _, ok := f.FindMode(name); ok {
		return NoIndex, fmt.Errorf("mode %q: %w", name, ErrDuplicateName)
	}
	if geometry != NoIndex {
		if geometry < 0 || geometry >= f.geometries.Len() {
			return NoIndex, fmt.Errorf("geometry %d: %w", geometry, ErrUnknownIndex)
		}
		if !f.geometries.IsTopLevel(geometry) {
			return NoIndex, fmt.Errorf("geometry %q: %w", f.geometries.nodes[geometry].Name, ErrNonTopLevelGeometry)
		}
	}
	f.modes = append(f.modes, Mode{Name: name, Description: description, Geometry: geometry})
	return len(f.modes) - 1, nil
}

// AddChannel adds a channel to the mode at index mode and returns the channel
// index within that mode. geometry must be NoIndex or lie inside the mode's
// geometry subtree.
func (f *Fixture) AddChannel(mode int, c Channel) (int, error) {
	if mode < 0 || mode >= len(f.modes) {
		return NoIndex, fmt.Errorf("mode %d: %w", mode, ErrUnknownIndex)
	}
	m := &f.modes[mode]
	for i := range m.Channels {
		if m.Channels[i].Name == c.Name {
			return NoIndex, fmt.Errorf("channel %q: %w", c.Name, ErrDuplicateName)
		}
	}
	if c.Geometry != NoIndex {
		if c.Geometry < 0 || c.Geometry >= f.geometries.Len() {
			return NoIndex, fmt.Errorf("geometry %d: %w", c.Geometry, ErrUnknownIndex)
		}
		if m.Geometry == NoIndex || !f.geometries.inSubtreeOf(c.Geometry, m.Geometry) {
			return NoIndex, fmt.Errorf("geometry %q: %w", f.geometries.nodes[c.Geometry].Name, ErrGeometryOutsideMode)
		}
	}
	c.Offsets = append([]int(nil), c.Offsets...)
	m.Channels = append(m.Channels, c)
	return len(m.Channels) - 1, nil
}
