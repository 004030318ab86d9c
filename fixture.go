package gdtf

import (
	"fmt"

	"github.com/google/uuid"
)

// Fixture is the cross-validated domain model of one GDTF fixture type.
// After every successful construction step all structural invariants hold:
// Names are unique within their collection, every stored index is in bounds,
// and placement rules (top-level mode geometries, top-level templates) are
// satisfied.
//
// A Fixture is produced either by the domain builder (Build, via Parse) or
// built from scratch through the Add* methods, which enforce the same rules
// but report violations as hard errors instead of ledger Problems.
type Fixture struct {
	DataVersion     DataVersion
	Name            Name
	ShortName       string
	LongName        string
	Manufacturer    string
	Description     string
	FixtureTypeID   uuid.UUID
	RefFT           *uuid.UUID
	CanHaveChildren bool
	Thumbnail       string

	geometries Geometries
	models     []Model
	modes      []Mode
}

// Model is one entry of the fixture's flat model collection, referenced from
// geometry nodes by index.
type Model struct {
	Name          Name
	Length        float64
	Width         float64
	Height        float64
	PrimitiveType string
	File          string
}

// NewFixture returns an empty fixture with the current default DataVersion.
func NewFixture() *Fixture {
	return &Fixture{DataVersion: V1_2, CanHaveChildren: true}
}

// Geometries exposes the read API of the geometry forest.
func (f *Fixture) Geometries() *Geometries { return &f.geometries }

// Models returns the model collection in index order.
func (f *Fixture) Models() []Model { return append([]Model(nil), f.models...) }

// Model returns the model at index i.
func (f *Fixture) Model(i int) (Model, bool) {
	if i < 0 || i >= len(f.models) {
		return Model{}, false
	}
	return f.models[i], true
}

// FindModel returns the index of the model with the given Name.
func (f *Fixture) FindModel(name Name) (int, bool) {
	for i := range f.models {
		if f.models[i].Name == name {
			return i, true
		}
	}
	return NoIndex, false
}

// Modes returns the DMX mode collection in index order. Channel slices are
// copied; the caller cannot reach the fixture's own storage through them.
func (f *Fixture) Modes() []Mode {
	out := make([]Mode, len(f.modes))
	for i, m := range f.modes {
		m.Channels = append([]Channel(nil), m.Channels...)
		out[i] = m
	}
	return out
}

// Mode returns the mode at index i.
func (f *Fixture) Mode(i int) (Mode, bool) {
	if i < 0 || i >= len(f.modes) {
		return Mode{}, false
	}
	m := f.modes[i]
	m.Channels = append([]Channel(nil), m.Channels...)
	return m, true
}

// AddModel registers a model and returns its stable index.
func (f *Fixture) AddModel(m Model) (int, error) {
	if _, ok := f.FindModel(m.Name); ok {
		return NoIndex, fmt.Errorf("model %q: %w", m.Name, ErrDuplicateName)
	}
	f.models = append(f.models, m)
	return len(f.models) - 1, nil
}

// AddTopLevelGeometry adds a general geometry without a parent and returns
// its index. model may be NoIndex.
func (f *Fixture) AddTopLevelGeometry(name Name, model int) (int, error) {
	if err := f.checkGeometryName(name); err != nil {
		return NoIndex, err
	}
	if err := f.checkModelIndex(model); err != nil {
		return NoIndex, err
	}
	return f.geometries.insert(GeometryNode{
		Name: name, Kind: GeometryGeneral, Parent: NoIndex, Model: model, Template: NoIndex,
	}), nil
}

// AddChildGeometry adds a general geometry under parent and returns its index.
func (f *Fixture) AddChildGeometry(parent int, name Name, model int) (int, error) {
	if parent < 0 || parent >= f.geometries.Len() {
		return NoIndex, fmt.Errorf("parent %d: %w", parent, ErrUnknownIndex)
	}
	if f.geometries.nodes[parent].Kind == GeometryReference {
		return NoIndex, fmt.Errorf("parent %q: %w", f.geometries.nodes[parent].Name, ErrReferenceChild)
	}
	if err := f.checkGeometryName(name); err != nil {
		return NoIndex, err
	}
	if err := f.checkModelIndex(model); err != nil {
		return NoIndex, err
	}
	i := f.geometries.insert(GeometryNode{
		Name: name, Kind: GeometryGeneral, Parent: parent, Model: model, Template: NoIndex,
	})
	f.geometries.nodes[parent].Children = append(f.geometries.nodes[parent].Children, i)
	return i, nil
}

// AddGeometryReference adds a reference geometry under parent, instantiating
// a copy of the template subtree as its children. The template must be an
// existing top-level general geometry outside the reference's own ancestor
// chain. Instantiation happens at call time; growing the template afterwards
// does not propagate into existing references.
func (f *Fixture) AddGeometryReference(parent int, name Name, template int, offsets Offsets) (int, error) {
	if parent < 0 || parent >= f.geometries.Len() {
		return NoIndex, fmt.Errorf("parent %d: %w", parent, ErrUnknownIndex)
	}
	if f.geometries.nodes[parent].Kind == GeometryReference {
		return NoIndex, fmt.Errorf("parent %q: %w", f.geometries.nodes[parent].Name, ErrReferenceChild)
	}
	if template < 0 || template >= f.geometries.Len() {
		return NoIndex, fmt.Errorf("template %d: %w", template, ErrUnknownIndex)
	}
	if !f.geometries.IsTopLevel(template) {
		return NoIndex, fmt.Errorf("template %q: %w", f.geometries.nodes[template].Name, ErrTemplateNotTopLevel)
	}
	if f.geometries.nodes[template].Kind == GeometryReference {
		return NoIndex, fmt.Errorf("template %q: %w", f.geometries.nodes[template].Name, ErrTemplateIsReference)
	}
	if f.geometries.TopLevelOf(parent) == template {
		return NoIndex, fmt.Errorf("template %q: %w", f.geometries.nodes[template].Name, ErrTemplateCycle)
	}
	if err := f.checkGeometryName(name); err != nil {
		return NoIndex, err
	}
	offsets = offsets.clone()
	offsets.normalize()

	// Instantiation can still fail on a template cycle reachable only
	// through nested references. Snapshot so the failure branch leaves the
	// arena exactly as it was; everything instantiation touches sits at
	// indices >= the snapshot length, except the parent's children slice.
	nodesBefore := f.geometries.Len()
	childrenBefore := len(f.geometries.nodes[parent].Children)

	i := f.geometries.insert(GeometryNode{
		Name: name, Kind: GeometryReference, Parent: parent, Model: NoIndex,
		Template: template, Offsets: offsets,
	})
	f.geometries.nodes[parent].Children = append(f.geometries.nodes[parent].Children, i)

	var ps Problems
	instantiateTemplate(&f.geometries, i, &ps)
	for _, p := range ps {
		if p.Kind != KindDuplicateName {
			f.geometries.nodes = f.geometries.nodes[:nodesBefore]
			f.geometries.nodes[parent].Children = f.geometries.nodes[parent].Children[:childrenBefore]
			return NoIndex, fmt.Errorf("instantiating template %q: %s", f.geometries.nodes[template].Name, p.Message)
		}
	}
	return i, nil
}

func (f *Fixture) checkGeometryName(name Name) error {
	if _, ok := f.geometries.Find(name); ok {
		return fmt.Errorf("geometry %q: %w", name, ErrDuplicateName)
	}
	return nil
}

func (f *Fixture) checkModelIndex(model int) error {
	if model != NoIndex && (model < 0 || model >= len(f.models)) {
		return fmt.Errorf("model %d: %w", model, ErrUnknownIndex)
	}
	return nil
}
