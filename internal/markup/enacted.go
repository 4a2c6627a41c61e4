package markup

import (
	"regexp"
	"strconv"
	"strings"
)

// actionTags are the amendment action elements/words enacted-law XML marks,
// per spec.md §4.2.2.
var actionTags = map[string]bool{
	"amend": true, "delete": true, "insert": true, "repeal": true,
	"substitute": true, "redesignate": true, "add": true, "enact": true,
	"repealAndReserve": true, "noChange": true, "conform": true,
}

// SectionRef is one /us/usc/t<N>/s<S>[/path] reference parsed from an href.
type SectionRef struct {
	TitleNumber   int
	SectionNumber string
	SubsectionPath string
}

var hrefPattern = regexp.MustCompile(`/us/usc/t(\d+)/s([0-9]+[a-zA-Z\-]*)(/[^\s"']*)?`)

// Candidate is one raw amendment instruction tuple, before classification
// (spec.md §4.2.2). C2 never classifies — that is C3's job.
type Candidate struct {
	Actions         map[string]bool
	QuotedTexts     []string
	SectionRefs     []SectionRef
	SurroundingText string
	Offset          int
}

// ParseEnactedLaw parses one enacted law's XML into candidate amendment
// instructions (spec.md §4.2.2).
func ParseEnactedLaw(data []byte) ([]Candidate, error) {
	root, err := parseXMLTree(data)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	offset := 0
	walkForInstructions(root, &candidates, &offset)
	return candidates, nil
}

// walkForInstructions finds the outermost section/subsection/paragraph/
// subparagraph/clause/subclause nodes that carry an amendment action (an
// action-tagged descendant or an action verb in their text) and builds a
// Candidate from each one's text.
func walkForInstructions(n *node, out *[]Candidate, offset *int) {
	instructionTags := map[string]bool{
		"subsection": true, "paragraph": true, "subparagraph": true,
		"clause": true, "subclause": true, "section": true,
	}

	if instructionTags[n.Name] {
		if c, ok := buildCandidate(n, *offset); ok {
			*out = append(*out, c)
			*offset += len(c.SurroundingText)
			return // don't descend further — avoid duplicate nested candidates
		}
	}

	for _, c := range n.Children {
		walkForInstructions(c, out, offset)
	}
}

// buildCandidate inspects n's direct text and action-tagged children to
// build one Candidate, returning ok=false if n carries no amendment action.
func buildCandidate(n *node, offset int) (Candidate, bool) {
	text := n.flattenText()

	actions := findActions(n, text)
	if len(actions) == 0 {
		return Candidate{}, false
	}

	quoted := extractQuotedTexts(n, text)
	refs := extractSectionRefs(n, text)

	return Candidate{
		Actions:         actions,
		QuotedTexts:     quoted,
		SectionRefs:     refs,
		SurroundingText: text,
		Offset:          offset,
	}, true
}

// findActions collects every action tag present either as an element name
// among n's descendants or as a verb ("is amended by striking", "is
// repealed") in the flattened text.
func findActions(n *node, text string) map[string]bool {
	actions := map[string]bool{}

	var walk func(*node)
	walk = func(c *node) {
		if actionTags[c.Name] {
			actions[c.Name] = true
		}
		for _, cc := range c.Children {
			walk(cc)
		}
	}
	walk(n)

	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "striking") && strings.Contains(lower, "inserting"):
		actions["delete"] = true
		actions["insert"] = true
	case strings.Contains(lower, "substituting"):
		actions["substitute"] = true
	case strings.Contains(lower, "is repealed") || strings.Contains(lower, "repealed and reserved"):
		actions["repeal"] = true
	case strings.Contains(lower, "striking"):
		actions["delete"] = true
	case strings.Contains(lower, "inserting") || strings.Contains(lower, "adding at the end"):
		actions["insert"] = true
	case strings.Contains(lower, "redesignating"):
		actions["redesignate"] = true
	case strings.Contains(lower, "is amended"):
		actions["amend"] = true
	}

	return actions
}

var quotedTextPattern = regexp.MustCompile(`["\x{201c}]([^"\x{201d}]+)["\x{201d}]`)

// extractQuotedTexts returns quoted strings in document order: first from
// <quotedContent>/<quote> child elements (authoritative), then from
// quotation marks in the flattened text as a fallback.
func extractQuotedTexts(n *node, text string) []string {
	var out []string
	var walk func(*node)
	walk = func(c *node) {
		for _, cc := range c.Children {
			if cc.Name == "quote" || cc.Name == "quotedContent" {
				out = append(out, strings.TrimSpace(cc.flattenText()))
			}
			walk(cc)
		}
	}
	walk(n)
	if len(out) == 0 {
		for _, m := range quotedTextPattern.FindAllStringSubmatch(text, -1) {
			out = append(out, strings.TrimSpace(m[1]))
		}
	}
	return out
}

// extractSectionRefs parses href attributes on <ref> elements into
// SectionRef values.
func extractSectionRefs(n *node, text string) []SectionRef {
	var out []SectionRef
	seen := map[string]bool{}

	for _, refNode := range n.findAll("ref") {
		if href, ok := refNode.attr("href"); ok {
			if ref, ok := parseHref(href); ok && !seen[href] {
				out = append(out, ref)
				seen[href] = true
			}
		}
	}
	for _, m := range hrefPattern.FindAllString(text, -1) {
		if seen[m] {
			continue
		}
		if ref, ok := parseHref(m); ok {
			out = append(out, ref)
			seen[m] = true
		}
	}
	return out
}

func parseHref(href string) (SectionRef, bool) {
	m := hrefPattern.FindStringSubmatch(href)
	if m == nil {
		return SectionRef{}, false
	}
	titleNum, err := strconv.Atoi(m[1])
	if err != nil {
		return SectionRef{}, false
	}
	return SectionRef{
		TitleNumber:    titleNum,
		SectionNumber:  m[2],
		SubsectionPath: strings.TrimPrefix(m[3], "/"),
	}, true
}
