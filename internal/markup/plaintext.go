package markup

import (
	"regexp"
	"strconv"
	"strings"
)

// Plain-text fallback patterns, used when enacted-law XML is absent or
// malformed (spec.md §4.2 "Plain-text fallback"). Grounded in the same
// strike/insert/redesignate phrasing regexes used elsewhere in the pack's
// amendment-recognition code, adapted to emit the Candidate tuple shape C2
// uses for both parsing modes.
var (
	plainUSCCitation = regexp.MustCompile(
		`(?i)\((\d+)\s+U\.S\.C\.\s+(\d+[a-zA-Z\-]*)\)`)
	plainSectionOfTitle = regexp.MustCompile(
		`(?i)section\s+(\d+[a-zA-Z\-]*)\s+of\s+title\s+(\d+)`)
	plainStrikeInsert = regexp.MustCompile(
		`(?i)striking\s+["\x{201c}]([^"\x{201d}]+)["\x{201d}]\s+and\s+inserting\s+["\x{201c}]([^"\x{201d}]+)["\x{201d}]`)
	plainRepeal = regexp.MustCompile(`(?i)is\s+(?:hereby\s+)?repealed`)
	plainInsertOnly = regexp.MustCompile(
		`(?i)inserting\s+["\x{201c}]([^"\x{201d}]+)["\x{201d}]`)
	plainAddAtEnd = regexp.MustCompile(`(?i)adding\s+at\s+the\s+end\s+the\s+following`)
	plainRedesignate = regexp.MustCompile(
		`(?i)redesignating\s+(?:subsection|paragraph|section)\s+\(([a-zA-Z0-9]+)\)\s+as\s+(?:subsection|paragraph|section)\s+\(([a-zA-Z0-9]+)\)`)
	plainIsAmended = regexp.MustCompile(`(?i)is\s+amended`)
)

// ScanPlainText extracts candidate amendment instructions from plain law
// text using regex heuristics, for use when no XML is available. It yields
// the same Candidate shape ParseEnactedLaw produces. The candidates carry no
// marker of their plain-text origin, and C3 scores them by the same rules
// as XML candidates.
func ScanPlainText(text string) ([]Candidate, error) {
	var candidates []Candidate

	sentences := splitAmendmentSentences(text)
	offset := 0
	for _, sentence := range sentences {
		if c, ok := scanSentence(sentence, offset); ok {
			candidates = append(candidates, c)
		}
		offset += len(sentence)
	}

	return candidates, nil
}

// splitAmendmentSentences breaks text around "is amended" anchors and
// standalone repeal sentences, each becoming one candidate's surrounding
// text window.
func splitAmendmentSentences(text string) []string {
	var sentences []string

	anchors := plainIsAmended.FindAllStringIndex(text, -1)
	if len(anchors) == 0 {
		if plainRepeal.MatchString(text) {
			sentences = append(sentences, text)
		}
		return sentences
	}

	for i, loc := range anchors {
		start := lastSentenceBoundary(text, loc[0])
		end := len(text)
		if i+1 < len(anchors) {
			end = lastSentenceBoundary(text, anchors[i+1][0])
		}
		if start < end {
			sentences = append(sentences, text[start:end])
		}
	}
	return sentences
}

func lastSentenceBoundary(text string, before int) int {
	idx := strings.LastIndexByte(text[:before], '.')
	if idx < 0 {
		return 0
	}
	return idx + 1
}

func scanSentence(sentence string, offset int) (Candidate, bool) {
	actions := map[string]bool{}
	var quoted []string
	var refs []SectionRef

	switch {
	case plainStrikeInsert.MatchString(sentence):
		m := plainStrikeInsert.FindStringSubmatch(sentence)
		actions["delete"] = true
		actions["insert"] = true
		quoted = append(quoted, strings.TrimSpace(m[1]), strings.TrimSpace(m[2]))
	case plainRedesignate.MatchString(sentence):
		actions["redesignate"] = true
	case plainRepeal.MatchString(sentence):
		actions["repeal"] = true
	case plainAddAtEnd.MatchString(sentence):
		actions["add"] = true
		for _, m := range plainInsertOnly.FindAllStringSubmatch(sentence, -1) {
			quoted = append(quoted, strings.TrimSpace(m[1]))
		}
	case plainInsertOnly.MatchString(sentence):
		actions["insert"] = true
		for _, m := range plainInsertOnly.FindAllStringSubmatch(sentence, -1) {
			quoted = append(quoted, strings.TrimSpace(m[1]))
		}
	case plainIsAmended.MatchString(sentence):
		actions["amend"] = true
	default:
		return Candidate{}, false
	}

	if m := plainUSCCitation.FindStringSubmatch(sentence); m != nil {
		if title, err := strconv.Atoi(m[1]); err == nil {
			refs = append(refs, SectionRef{TitleNumber: title, SectionNumber: m[2]})
		}
	} else if m := plainSectionOfTitle.FindStringSubmatch(sentence); m != nil {
		if title, err := strconv.Atoi(m[2]); err == nil {
			refs = append(refs, SectionRef{TitleNumber: title, SectionNumber: m[1]})
		}
	}

	return Candidate{
		Actions:         actions,
		QuotedTexts:     quoted,
		SectionRefs:     refs,
		SurroundingText: sentence,
		Offset:          offset,
	}, true
}
