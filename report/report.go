// Package report renders a Problem ledger for external tooling (console
// diffing, snapshot comparison). The output is ordered exactly like the
// ledger so that two runs over the same file diff cleanly.
package report

import (
	"io"

	json "github.com/goccy/go-json"

	"github.com/fixturekit/gdtf"
)

// Entry is the serialized form of one Problem.
type Entry struct {
	Kind     string         `json:"kind"`
	Class    string         `json:"class"`
	Location string         `json:"location"`
	Message  string         `json:"message"`
	Action   string         `json:"action,omitempty"`
	Params   map[string]any `json:"params,omitempty"`
}

func entries(ps gdtf.Problems) []Entry {
	out := make([]Entry, len(ps))
	for i, p := range ps {
		class := "parsing"
		if p.Class() == gdtf.ClassDomain {
			class = "domain"
		}
		out[i] = Entry{
			Kind:     p.Kind,
			Class:    class,
			Location: p.Location,
			Message:  p.Message,
			Action:   p.Action,
			Params:   p.Params,
		}
	}
	return out
}

// Marshal renders the ledger as a JSON array.
func Marshal(ps gdtf.Problems) ([]byte, error) {
	return json.Marshal(entries(ps))
}

// WriteJSON writes the ledger as indented JSON, one stable artifact per run.
func WriteJSON(w io.Writer, ps gdtf.Problems) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(entries(ps))
}
