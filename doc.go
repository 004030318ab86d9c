// Package gdtf reads and writes GDTF fixture type descriptions.
//
// The package provides:
//
//   - A forgiving three-stage pipeline: description.xml bytes -> intermediate
//     model (DecodeDescription) -> cross-validated domain model (Build), and
//     back again (Lower, EncodeDescription)
//   - A stable anomaly model via Problems (kind, location path, mitigation);
//     parsing never fails for content reasons and never panics
//   - A validating construction API on Fixture for building fixtures from
//     scratch, bypassing parsing entirely
//   - Zip archive helpers (ParseArchive, WriteArchive)
//
// Design policy:
//
//   - Keep only public APIs in the root package; the XML tree detail lives
//     under internal/.
//   - Geometry trees are flat index-addressed arenas; references between parts
//     of the document are resolved to integer indices exactly once, at build
//     time, and stay dereferenceable forever after.
//   - The problem-report export lives under report/.
//   - Prefer black-box testing against public APIs.
//
// Typical usage:
//
//	parsed, err := gdtf.Parse(description)
//	if err != nil { ... }            // not GDTF at all
//	use(parsed.Fixture)              // best-effort, internally consistent
//	inspect(parsed.Problems)         // every deviation, in order
package gdtf
