package gdtf

import "github.com/google/uuid"

// The Raw* types are the syntax-shaped intermediate model. Each record mirrors
// one element of description.xml and is validated only in isolation; nothing
// here knows about siblings, containers or referential integrity. Geometries
// are kept as a flat, order-preserving list with the declared parent Name, so
// a record never owns another record.
//
// RawGDTF is produced by DecodeDescription and consumed by Build; Lower
// produces one from a Fixture for serialization.

// RawGDTF is the intermediate model root.
type RawGDTF struct {
	DataVersion DataVersion
	FixtureType RawFixtureType
}

// RawFixtureType mirrors the FixtureType element.
type RawFixtureType struct {
	Name            Name
	ShortName       string
	LongName        string
	Manufacturer    string
	Description     string
	FixtureTypeID   uuid.UUID
	RefFT           *uuid.UUID
	CanHaveChildren bool
	Thumbnail       string

	Models     []RawModel
	Geometries []RawGeometry
	Modes      []RawMode
}

// GeometryKind discriminates the two geometry element flavors.
type GeometryKind int

const (
	GeometryGeneral GeometryKind = iota
	GeometryReference
)

func (k GeometryKind) String() string {
	if k == GeometryReference {
		return "GeometryReference"
	}
	return "Geometry"
}

// RawGeometry is one geometry element. Parent is the declared parent Name;
// a zero Parent means top-level. Template is set for reference-kind records
// only and names the geometry whose subtree the reference instantiates.
type RawGeometry struct {
	Name     Name
	Kind     GeometryKind
	Parent   Name
	Model    Name
	Template Name
	Breaks   []RawBreak
	Loc      string
}

// RawBreak is one Break child of a GeometryReference.
type RawBreak struct {
	Break  Break
	Offset DMXAddress
}

// RawModel mirrors the Model element.
type RawModel struct {
	Name          Name
	Length        float64
	Width         float64
	Height        float64
	PrimitiveType string
	File          string
	Loc           string
}

// RawMode mirrors the DMXMode element.
type RawMode struct {
	Name        Name
	Description string
	Geometry    Name
	Channels    []RawChannel
	Loc         string
}

// RawChannel mirrors the DMXChannel element.
type RawChannel struct {
	Name     Name
	Break    Break
	Offsets  []int
	Geometry Name
	Default  uint32
	Loc      string
}
