package markup

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/uscchron/chronicle/internal/model"
)

// CodifiedSection is one parsed section from a title's authoritative XML,
// the output of codified-text mode (spec.md §4.2.1).
type CodifiedSection struct {
	SectionNumber        string
	Heading              string
	TextContent          string
	NormalizedProvisions []model.ProvisionLine
	Notes                string
	NormalizedNotes      []model.NoteEntry
	FullCitation         string
}

// StructuralGroup is one node of the title → chapter → subchapter → …
// navigation tree. The core does not rely on it for correctness (spec.md
// §4.2); it is retained for completeness and for any downstream navigation
// consumer.
type StructuralGroup struct {
	Kind     string // "title", "chapter", "subchapter", ...
	Number   string
	Heading  string
	Children []*StructuralGroup
}

// CodifiedTitle is the full parse result for one title's XML.
type CodifiedTitle struct {
	TitleNumber int
	Sections    []CodifiedSection
	Groups      *StructuralGroup
}

// subsectionTags are the structural elements codified-text XML nests
// arbitrarily deep, per spec.md §4.2: subsection/paragraph/subparagraph/
// clause/subclause.
var subsectionTags = map[string]bool{
	"subsection": true, "paragraph": true, "subparagraph": true,
	"clause": true, "subclause": true, "item": true, "subitem": true,
}

// groupTags are the structural navigation containers, outermost first.
var groupTags = []string{"title", "chapter", "subchapter", "part", "subpart"}

// ParseCodifiedTitle parses one title's legal-markup XML (codified-text
// mode). It returns ErrMalformed for non-well-formed XML and
// ErrMissingTitle when no title number can be resolved.
func ParseCodifiedTitle(data []byte) (*CodifiedTitle, error) {
	root, err := parseXMLTree(data)
	if err != nil {
		return nil, err
	}

	titleNode := root.find("title")
	if titleNode == nil {
		titleNode = root // some archives put identifier attrs on the doc root
	}

	titleNum, ok := resolveTitleNumber(titleNode)
	if !ok {
		return nil, ErrMissingTitle
	}

	sections := root.findAll("section")
	result := &CodifiedTitle{TitleNumber: titleNum}

	for _, sNode := range sections {
		sec, err := parseSection(sNode)
		if err != nil {
			continue // malformed individual sections are skipped, not fatal
		}
		result.Sections = append(result.Sections, sec)
	}

	result.Groups = buildGroupTree(root)

	return result, nil
}

// resolveTitleNumber looks for a "num" attribute or identifier attribute
// carrying the title number, tolerating both namespace forms since the node
// tree already strips prefixes.
func resolveTitleNumber(n *node) (int, bool) {
	for _, attrName := range []string{"num", "identifier", "title"} {
		if v, ok := n.attr(attrName); ok {
			if num, ok := extractLeadingInt(v); ok {
				return num, true
			}
		}
	}
	// Fall back to a heading like "TITLE 15—COMMERCE AND TRADE"
	if heading := firstChildText(n, "heading"); heading != "" {
		if num, ok := extractTitleFromHeading(heading); ok {
			return num, true
		}
	}
	return 0, false
}

func extractLeadingInt(s string) (int, bool) {
	s = strings.TrimPrefix(s, "/us/usc/t")
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return 0, false
	}
	n, err := strconv.Atoi(s[:i])
	if err != nil {
		return 0, false
	}
	return n, true
}

func extractTitleFromHeading(heading string) (int, bool) {
	fields := strings.Fields(heading)
	for i, f := range fields {
		if strings.EqualFold(f, "TITLE") && i+1 < len(fields) {
			num := strings.TrimSuffix(fields[i+1], "—")
			num = strings.Split(num, "—")[0]
			if n, err := strconv.Atoi(strings.TrimSpace(num)); err == nil {
				return n, true
			}
		}
	}
	return 0, false
}

func firstChildText(n *node, name string) string {
	for _, c := range n.Children {
		if c.Name == name {
			return c.flattenText()
		}
	}
	return ""
}

// parseSection converts one <section> node into a CodifiedSection, building
// the flattened plain text, the structured provision tree, and notes.
func parseSection(sNode *node) (CodifiedSection, error) {
	number, ok := sNode.attr("num")
	if !ok {
		number, ok = sNode.attr("identifier")
		if !ok {
			return CodifiedSection{}, fmt.Errorf("%w: section missing number", ErrMalformed)
		}
	}
	number = normalizeSectionNumber(number)

	heading := firstChildText(sNode, "heading")

	var provisions []model.ProvisionLine
	lineNum := 0
	collectProvisions(sNode, 0, &lineNum, &provisions)

	notesNode := sNode.find("notes")
	var notesText string
	var normalizedNotes []model.NoteEntry
	if notesNode != nil {
		notesText = notesNode.flattenText()
		normalizedNotes = extractNoteEntries(notesNode)
	}

	return CodifiedSection{
		SectionNumber:        number,
		Heading:              heading,
		TextContent:          model.RenderProvisions(provisions),
		NormalizedProvisions: provisions,
		Notes:                notesText,
		NormalizedNotes:      normalizedNotes,
		FullCitation:         fmt.Sprintf("%s", number),
	}, nil
}

// normalizeSectionNumber trims a leading "s" or path-style prefix some
// archives use ("/us/usc/t15/s78a-3a" → "78a-3a").
func normalizeSectionNumber(raw string) string {
	if idx := strings.LastIndex(raw, "/s"); idx >= 0 {
		return raw[idx+2:]
	}
	return strings.TrimPrefix(raw, "s")
}

// collectProvisions walks subsection/paragraph/subparagraph/clause/subclause
// children, emitting one ProvisionLine per content-bearing node. depth
// tracks nesting; lineNum is a shared counter so lines are numbered
// sequentially across the whole section.
func collectProvisions(n *node, depth int, lineNum *int, out *[]model.ProvisionLine) {
	// Direct section-level text before any subsection is the header line.
	if depth == 0 {
		if text := firstChildText(n, "chapeau"); text != "" {
			*out = append(*out, model.ProvisionLine{
				LineNumber: *lineNum, Depth: depth, IsHeader: true, Content: text,
			})
			*lineNum++
		} else if text := directText(n); text != "" {
			*out = append(*out, model.ProvisionLine{
				LineNumber: *lineNum, Depth: depth, IsHeader: true, Content: text,
			})
			*lineNum++
		}
	}

	for _, c := range n.Children {
		if !subsectionTags[c.Name] {
			continue
		}
		marker := extractMarker(c)
		chapeau := firstChildText(c, "chapeau")
		content := chapeau
		if content == "" {
			content = directText(c)
		}
		line := model.ProvisionLine{
			LineNumber: *lineNum,
			Marker:     marker,
			Depth:      depth + 1,
			IsHeader:   false,
			Content:    strings.TrimSpace(marker + " " + content),
		}
		*out = append(*out, line)
		*lineNum++
		collectProvisions(c, depth+1, lineNum, out)
	}
}

// extractMarker returns a node's designator like "(a)" or "(1)", from a "num"
// attribute if present, else synthesized as empty.
func extractMarker(n *node) string {
	if v, ok := n.attr("num"); ok {
		v = strings.TrimSpace(v)
		if v != "" && !strings.HasPrefix(v, "(") {
			v = "(" + v + ")"
		}
		return v
	}
	return ""
}

// directText returns text content of n that is not inside a nested
// subsection-like child (i.e. the node's own chapeau/text content).
func directText(n *node) string {
	var b strings.Builder
	for _, c := range n.Children {
		if subsectionTags[c.Name] || c.Name == "notes" {
			continue
		}
		c.writeText(&b)
	}
	if n.Text != "" {
		b.WriteString(n.Text)
	}
	return collapseWhitespace(b.String())
}

// extractNoteEntries parses <note> children into structured NoteEntry
// values, categorized by their "topic" attribute when present.
func extractNoteEntries(notesNode *node) []model.NoteEntry {
	var entries []model.NoteEntry
	for _, noteNode := range notesNode.findAll("note") {
		category := "statutory"
		if topic, ok := noteNode.attr("topic"); ok {
			category = topic
		}
		entries = append(entries, model.NoteEntry{
			Category: category,
			Text:     noteNode.flattenText(),
		})
	}
	return entries
}

// buildGroupTree builds the navigation tree of structural containers
// (title → chapter → subchapter → …). It is best-effort: the core does not
// depend on it for correctness (spec.md §4.2).
func buildGroupTree(root *node) *StructuralGroup {
	titleNode := root.find("title")
	if titleNode == nil {
		return nil
	}
	return buildGroup(titleNode, "title")
}

func buildGroup(n *node, kind string) *StructuralGroup {
	num, _ := n.attr("num")
	g := &StructuralGroup{
		Kind:    kind,
		Number:  num,
		Heading: firstChildText(n, "heading"),
	}
	for _, childKind := range groupTags {
		if childKind == kind {
			continue
		}
		for _, c := range n.Children {
			if c.Name == childKind {
				g.Children = append(g.Children, buildGroup(c, childKind))
			}
		}
	}
	return g
}
