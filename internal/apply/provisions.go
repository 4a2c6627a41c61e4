package apply

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/uscchron/chronicle/internal/model"
)

var (
	markerPrefixRe  = regexp.MustCompile(`^\(([0-9A-Za-z]+)\)`)
	redesignateRe   = regexp.MustCompile(`designating the ([a-z]+(?:, [a-z]+)*(?:,? and [a-z]+)?) sentences? as (?:subsections?|paragraphs?) \(([0-9A-Za-z])\)(?:,? \(([0-9A-Za-z])\))*(?:,? and \(([0-9A-Za-z])\))?`)
	strikeSubsecsRe = regexp.MustCompile(`striking subsections? \(([0-9A-Za-z])\)(?: and \(([0-9A-Za-z])\))? and inserting`)
)

var ordinals = map[string]int{
	"first": 1, "second": 2, "third": 3, "fourth": 4, "fifth": 5,
	"sixth": 6, "seventh": 7, "eighth": 8, "ninth": 9, "tenth": 10,
}

// PatchProvisions applies the same changes folded through Apply to a
// section's structured provision tree, per spec.md §4.6. Structural
// operations that cannot be located in plain text are resolved by parsing
// their Description for a marker range, which text-level folding cannot do.
func PatchProvisions(parent []model.ProvisionLine, changes []*model.LawChange) []model.ProvisionLine {
	lines := append([]model.ProvisionLine(nil), parent...)

	for _, c := range changes {
		switch c.ChangeType {
		case model.ChangeRedesignate:
			lines = applyRedesignation(lines, c)
		case model.ChangeModify, model.ChangeDelete:
			lines = patchByText(lines, c)
		case model.ChangeAdd:
			lines = applyStructuralAdd(lines, c)
		case model.ChangeRepeal:
			// Repeal clears content at the text level; C7 marks is_deleted and
			// does not need the provision tree rewritten.
		}
	}

	return renumber(lines)
}

// patchByText tries the same textual replacement cascade Apply uses, line
// by line, falling back to a structural range replacement described by the
// change's Description when no line's content contains old_text.
func patchByText(lines []model.ProvisionLine, c *model.LawChange) []model.ProvisionLine {
	if c.OldText == nil {
		return lines
	}
	replacement := ""
	if c.NewText != nil {
		replacement = *c.NewText
	}

	for i := range lines {
		if out, ok := replaceFirst(lines[i].Content, *c.OldText, replacement); ok {
			lines[i].Content = out
			return lines
		}
	}

	if c.Description != nil {
		if start, end, ok := findMarkerRange(lines, *c.Description); ok {
			return spliceRange(lines, start, end, replacement)
		}
	}

	return lines
}

// findMarkerRange parses a description like "striking subsections (a) and
// (b) and inserting the following" into the line index range those markers
// span.
func findMarkerRange(lines []model.ProvisionLine, description string) (int, int, bool) {
	m := strikeSubsecsRe.FindStringSubmatch(description)
	if m == nil {
		return 0, 0, false
	}
	startMarker := "(" + m[1] + ")"
	endMarker := startMarker
	if m[2] != "" {
		endMarker = "(" + m[2] + ")"
	}

	start, end := -1, -1
	for i, l := range lines {
		if l.Marker == startMarker && start == -1 {
			start = i
		}
		if l.Marker == endMarker {
			end = i
		}
	}
	if start == -1 || end == -1 || end < start {
		return 0, 0, false
	}
	return start, end, true
}

// spliceRange replaces lines[start:end+1] with lines derived from
// replacement, one per non-empty line, marker taken from a leading "(x)"
// prefix.
func spliceRange(lines []model.ProvisionLine, start, end int, replacement string) []model.ProvisionLine {
	var replacementLines []model.ProvisionLine
	for _, raw := range strings.Split(replacement, "\n") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		marker := ""
		if m := markerPrefixRe.FindStringSubmatch(raw); m != nil {
			marker = "(" + m[1] + ")"
		}
		replacementLines = append(replacementLines, model.ProvisionLine{
			Marker:  marker,
			Depth:   0,
			Content: raw,
		})
	}

	out := append([]model.ProvisionLine(nil), lines[:start]...)
	out = append(out, replacementLines...)
	out = append(out, lines[end+1:]...)
	return out
}

// applyStructuralAdd appends a new provision line derived from NewText for
// every Add, taking its marker from a leading "(x)" prefix when present
// (e.g. a wholly new subsection with its own marker).
func applyStructuralAdd(lines []model.ProvisionLine, c *model.LawChange) []model.ProvisionLine {
	if c.NewText == nil {
		return lines
	}
	marker := ""
	content := strings.TrimSpace(*c.NewText)
	if m := markerPrefixRe.FindStringSubmatch(content); m != nil {
		marker = "(" + m[1] + ")"
	}
	return append(lines, model.ProvisionLine{Marker: marker, Depth: 0, Content: content})
}

// applyRedesignation parses prose like "designating the first, second, and
// third sentences as subsections (a), (c), and (d)" into an ordinal->marker
// map and relabels the corresponding provision lines' markers. It runs at
// this change's position in the change list, not ahead of the others.
func applyRedesignation(lines []model.ProvisionLine, c *model.LawChange) []model.ProvisionLine {
	if c.Description == nil {
		return lines
	}
	m := redesignateRe.FindStringSubmatch(*c.Description)
	if m == nil {
		return lines
	}

	list := strings.ReplaceAll(m[1], ", and ", ", ")
	ordinalWords := strings.Split(strings.ReplaceAll(list, " and ", ", "), ", ")
	markers := []string{m[2], m[3], m[4]}

	mi := 0
	for _, word := range ordinalWords {
		word = strings.TrimSpace(word)
		n, ok := ordinals[word]
		if !ok {
			continue
		}
		if mi >= len(markers) || markers[mi] == "" {
			break
		}
		idx := n - 1
		if idx >= 0 && idx < len(lines) {
			lines[idx].Marker = "(" + markers[mi] + ")"
		}
		mi++
	}

	return lines
}

// renumber assigns sequential LineNumbers after splicing.
func renumber(lines []model.ProvisionLine) []model.ProvisionLine {
	for i := range lines {
		lines[i].LineNumber = i + 1
	}
	return lines
}

// SectionCitation synthesizes a full_citation for a newly added section, in
// the absence of a parent snapshot to inherit one from.
func SectionCitation(title int, section string) string {
	return strconv.Itoa(title) + " U.S.C. § " + section
}
