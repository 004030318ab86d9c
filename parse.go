package gdtf

import (
	"fmt"
	"io"
	"sort"

	"github.com/klauspost/compress/zip"
)

// ParsedFixture bundles the best-effort domain model with the full Problem
// ledger. A caller that ignores Problems still holds an internally consistent
// Fixture; a caller that inspects them can tell "we guessed" apart from "we
// found nothing wrong".
type ParsedFixture struct {
	Fixture  *Fixture
	Problems Problems
}

// Parse runs the full pipeline on description.xml bytes. The only hard
// failures are non-well-formed XML and a missing GDTF root; everything else
// lands on the ledger.
func Parse(description []byte) (*ParsedFixture, error) {
	raw, ps, err := DecodeDescription(description)
	if err != nil {
		return nil, err
	}
	f := Build(raw, &ps)
	return &ParsedFixture{Fixture: f, Problems: ps}, nil
}

// ParseReader reads all of r and parses it as description.xml.
func ParseReader(r io.Reader) (*ParsedFixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &ParseError{Op: "parse", Cause: err}
	}
	return Parse(data)
}

// ParseArchive opens a GDTF zip archive, parses the description.xml entry and
// checks that resources referenced by the fixture exist among the archive
// entries. A missing or unreadable description.xml is a hard failure; a
// missing resource is a Problem.
func ParseArchive(r io.ReaderAt, size int64) (*ParsedFixture, error) {
	zr, err := zip.NewReader(r, size)
	if err != nil {
		return nil, &ParseError{Op: "archive", Cause: err}
	}
	var desc *zip.File
	entries := map[string]bool{}
	for _, f := range zr.File {
		entries[f.Name] = true
		if f.Name == "description.xml" {
			desc = f
		}
	}
	if desc == nil {
		return nil, &ParseError{Op: "archive", Cause: fmt.Errorf("'description.xml' not found in GDTF zip archive")}
	}
	rc, err := desc.Open()
	if err != nil {
		return nil, &ParseError{Op: "archive", Cause: err}
	}
	data, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil, &ParseError{Op: "archive", Cause: err}
	}

	parsed, err := Parse(data)
	if err != nil {
		return nil, err
	}
	checkResources(parsed.Fixture, entries, &parsed.Problems)
	return parsed, nil
}

// checkResources verifies that file references in the fixture point at
// entries actually present in the archive. The thumbnail is referenced
// without extension and may be provided as PNG or SVG.
func checkResources(f *Fixture, entries map[string]bool, ps *Problems) {
	if f.Thumbnail != "" && !entries[f.Thumbnail+".png"] && !entries[f.Thumbnail+".svg"] {
		p := Root().Child("GDTF").Child("FixtureType").Attr("Thumbnail").Problem(KindResourceMissing,
			fmt.Sprintf("thumbnail %q has no matching archive entry", f.Thumbnail))
		p.Action = "keeping the reference"
		*ps = AppendProblems(*ps, p)
	}
	for i, m := range f.Models() {
		if m.File == "" {
			continue
		}
		if !entries["models/3ds/"+m.File+".3ds"] && !entries["models/gltf/"+m.File+".glb"] {
			p := Root().Child("GDTF").Child("FixtureType").Child("Models").ChildAt("Model", i).Attr("File").
				Problem(KindResourceMissing, fmt.Sprintf("model file %q has no matching archive entry", m.File))
			p.Action = "keeping the reference"
			*ps = AppendProblems(*ps, p)
		}
	}
}

// SerializeDescription lowers the fixture and serializes description.xml
// bytes.
func SerializeDescription(f *Fixture) ([]byte, error) {
	return EncodeDescription(Lower(f))
}

// WriteArchive serializes the fixture into a GDTF zip archive on w. Entries
// are stored uncompressed, which is what the reference tooling emits.
// resources maps entry names (e.g. "thumbnail.png") to their content.
func WriteArchive(w io.Writer, f *Fixture, resources map[string][]byte) error {
	description, err := SerializeDescription(f)
	if err != nil {
		return err
	}
	zw := zip.NewWriter(w)
	ew, err := zw.CreateHeader(&zip.FileHeader{Name: "description.xml", Method: zip.Store})
	if err != nil {
		return err
	}
	if _, err := ew.Write(description); err != nil {
		return err
	}
	names := make([]string, 0, len(resources))
	for name := range resources {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ew, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			return err
		}
		if _, err := ew.Write(resources[name]); err != nil {
			return err
		}
	}
	return zw.Close()
}
