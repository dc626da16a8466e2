package composer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkuwise/pkuwise/internal/profile"
	"github.com/pkuwise/pkuwise/internal/retrieval"
)

// Context holds the two textual blocks injected into the system prompt:
// retrieved corpus excerpts with provenance, and the user's clinical details.
type Context struct {
	Documents string
	Profile   string
}

// Fallback text for profile fields that were never filled in. Allergies get
// "None" because an empty list is a meaningful answer; scalar fields get
// "N/A" because absence means unknown.
const (
	fallbackUnknown = "N/A"
	fallbackNone    = "None"
)

// AssembleContext renders retrieved matches and the user's profile into the
// two prompt blocks. Pure: no I/O, deterministic for identical inputs.
//
// Each match becomes a two-line source/content block; blocks are joined by a
// blank line in the order retrieval produced them. Zero matches yield an
// empty Documents string, which the prompt composer treats as "no grounding
// available" rather than an error.
func AssembleContext(matches []retrieval.Match, p profile.Profile) Context {
	return Context{
		Documents: renderDocuments(matches),
		Profile:   renderProfile(p),
	}
}

func renderDocuments(matches []retrieval.Match) string {
	if len(matches) == 0 {
		return ""
	}
	blocks := make([]string, len(matches))
	for i, m := range matches {
		blocks[i] = fmt.Sprintf("- Source: %s\n- Content: %s", m.Source, m.Content)
	}
	return strings.Join(blocks, "\n\n")
}

// renderProfile emits a fixed set of recognized fields. Unrecognized profile
// attributes never reach the prompt: this bounds prompt size and keeps
// unrelated clinical data out of the completion call.
func renderProfile(p profile.Profile) string {
	name := p.Name
	if name == "" {
		name = fallbackUnknown
	}

	tolerance := fallbackUnknown
	if p.HasPheTolerance() {
		tolerance = formatMg(p.PheToleranceMg) + " mg/day"
	}

	allergies := fallbackNone
	if len(p.Allergies) > 0 {
		allergies = strings.Join(p.Allergies, ", ")
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Patient name: %s\n", name)
	fmt.Fprintf(&sb, "PHE Tolerance: %s\n", tolerance)
	fmt.Fprintf(&sb, "Allergies: %s", allergies)
	return sb.String()
}

// formatMg renders a milligram quantity without trailing zeros (300, 62.5).
func formatMg(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
