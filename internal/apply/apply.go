// Package apply implements C6, the pure text applicator: it takes a
// section's current text and one classified amendment and returns the text
// after the amendment, or a reason it could not be applied. Apply never
// touches storage or markup parsing; it is a pure function of its inputs,
// per spec.md §4.6.
package apply

import (
	"regexp"
	"strings"

	"github.com/uscchron/chronicle/internal/model"
)

// Status is the outcome of applying one change to one section's text.
type Status string

const (
	Applied  Status = "applied"
	Skipped  Status = "skipped"
	NoChange Status = "no_change"
	Failed   Status = "failed"
)

// Result is the outcome of Apply.
type Result struct {
	Text   *string
	Status Status
	Reason string
}

// Apply folds one change onto text and returns the resulting text, per the
// operation dispatch in spec.md §4.6. text is nil when the section does not
// yet exist (only Add may create it).
func Apply(text *string, change *model.LawChange) Result {
	switch change.ChangeType {
	case model.ChangeModify:
		return applyModify(text, change)
	case model.ChangeDelete:
		return applyDelete(text, change)
	case model.ChangeAdd:
		return applyAdd(text, change)
	case model.ChangeRepeal:
		return Result{Text: nil, Status: Applied, Reason: "repealed"}
	case model.ChangeRedesignate, model.ChangeTransfer, model.ChangeAddNote:
		// Structural moves carry no text of their own to fold; C7 handles
		// redesignation against the provision tree separately.
		return Result{Text: text, Status: Skipped, Reason: "structural change, no text to apply"}
	default:
		return Result{Text: text, Status: Failed, Reason: "unrecognized change type"}
	}
}

func applyModify(text *string, change *model.LawChange) Result {
	if text == nil {
		return Result{Text: nil, Status: Failed, Reason: "modify target has no existing text"}
	}
	if change.OldText == nil {
		return Result{Text: text, Status: Failed, Reason: "modify missing old_text"}
	}
	replacement := ""
	if change.NewText != nil {
		replacement = *change.NewText
	}
	out, ok := replaceFirst(*text, *change.OldText, replacement)
	if !ok {
		return Result{Text: text, Status: Failed, Reason: "old_text not found by exact, whitespace, or case-insensitive match"}
	}
	if out == *text {
		return Result{Text: text, Status: NoChange, Reason: "replacement identical to original"}
	}
	return Result{Text: &out, Status: Applied}
}

func applyDelete(text *string, change *model.LawChange) Result {
	if text == nil {
		return Result{Text: nil, Status: Failed, Reason: "delete target has no existing text"}
	}
	if change.OldText == nil {
		return Result{Text: text, Status: Failed, Reason: "delete missing old_text"}
	}
	out, ok := replaceFirst(*text, *change.OldText, "")
	if !ok {
		return Result{Text: text, Status: Failed, Reason: "old_text not found by exact, whitespace, or case-insensitive match"}
	}
	return Result{Text: &out, Status: Applied}
}

func applyAdd(text *string, change *model.LawChange) Result {
	if change.NewText == nil {
		return Result{Text: text, Status: Failed, Reason: "add missing new_text"}
	}
	if text == nil {
		out := *change.NewText
		return Result{Text: &out, Status: Applied}
	}
	out := strings.TrimRight(*text, "\n") + "\n" + *change.NewText
	return Result{Text: &out, Status: Applied}
}

// replaceFirst finds old in text using the three-stage matching cascade of
// spec.md §4.6 (exact, whitespace-normalized, case-insensitive
// whitespace-normalized) and replaces the first match with replacement.
func replaceFirst(text, old, replacement string) (string, bool) {
	if idx := strings.Index(text, old); idx >= 0 {
		return text[:idx] + replacement + text[idx+len(old):], true
	}

	if span, ok := findNormalized(text, old, false); ok {
		return text[:span[0]] + replacement + text[span[1]:], true
	}

	if span, ok := findNormalized(text, old, true); ok {
		return text[:span[0]] + replacement + text[span[1]:], true
	}

	return text, false
}

// findNormalized locates old within text after collapsing runs of
// whitespace to a single token boundary, optionally case-insensitively,
// and returns the byte span of the match in the ORIGINAL text.
func findNormalized(text, old string, foldCase bool) ([2]int, bool) {
	fields := strings.Fields(old)
	if len(fields) == 0 {
		return [2]int{}, false
	}
	for i, f := range fields {
		fields[i] = regexp.QuoteMeta(f)
	}
	pattern := strings.Join(fields, `\s+`)
	flags := ""
	if foldCase {
		flags = "(?i)"
	}
	re, err := regexp.Compile(flags + pattern)
	if err != nil {
		return [2]int{}, false
	}
	loc := re.FindStringIndex(text)
	if loc == nil {
		return [2]int{}, false
	}
	return [2]int{loc[0], loc[1]}, true
}
