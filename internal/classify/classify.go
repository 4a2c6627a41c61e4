// Package classify implements C3, the pure-function amendment classifier:
// it maps one markup.Candidate onto zero or one model.LawChange, per the
// first-match action-set cascade in spec.md §4.3. It never parses XML and
// never touches storage — Classify is a pure function of its input.
package classify

import (
	"strings"
	"time"

	"github.com/uscchron/chronicle/internal/markup"
	"github.com/uscchron/chronicle/internal/model"
)

const (
	confidenceBoth = 0.98
	confidenceOne  = 0.95
	confidenceNone = 0.90
)

// Classify converts one candidate into a LawChange, attributed to lawRef and
// dated effectiveDate. It returns ok=false only when the candidate carries
// no section reference at all and no actionable text — spec.md §4.3 still
// wants a needs_review record for ambiguous-but-present amendments, so the
// only true rejection is "nothing here to record".
func Classify(c markup.Candidate, lawRef string, effectiveDate time.Time) (*model.LawChange, bool) {
	actions := stripAmendWrapper(c.Actions)

	variant, oldIdx, newIdx := classifyVariant(actions)

	var ref *markup.SectionRef
	if len(c.SectionRefs) > 0 {
		ref = &c.SectionRefs[0]
	}

	if ref == nil && len(c.QuotedTexts) == 0 && len(actions) == 0 {
		return nil, false
	}

	change := &model.LawChange{
		LawRef:            lawRef,
		ChangeType:        variant,
		EffectiveDate:     effectiveDate,
		PositionQualifier: qualifierFor(c.SurroundingText),
	}

	if ref != nil {
		change.TitleNumber = ref.TitleNumber
		change.SectionNumber = ref.SectionNumber
		if ref.SubsectionPath != "" {
			change.SubsectionPath = &ref.SubsectionPath
		}
	}

	if oldIdx >= 0 && oldIdx < len(c.QuotedTexts) {
		t := c.QuotedTexts[oldIdx]
		change.OldText = &t
	}
	if newIdx >= 0 && newIdx < len(c.QuotedTexts) {
		t := c.QuotedTexts[newIdx]
		change.NewText = &t
	}
	// substitute with only one quoted text: that text is the replacement.
	if actions["substitute"] && len(c.QuotedTexts) == 1 {
		change.OldText = nil
		t := c.QuotedTexts[0]
		change.NewText = &t
	}

	desc := strings.TrimSpace(c.SurroundingText)
	if len(desc) > 0 {
		change.Description = &desc
	}

	change.Confidence = confidenceFor(ref, c.QuotedTexts)
	change.NeedsReview = needsReview(ref, variant, actions)

	return change, true
}

// stripAmendWrapper drops the generic "amend" wrapper tag whenever a more
// specific action is also present, per spec.md §4.3.
func stripAmendWrapper(actions map[string]bool) map[string]bool {
	if len(actions) <= 1 {
		return actions
	}
	hasSpecific := false
	for k := range actions {
		if k != "amend" {
			hasSpecific = true
			break
		}
	}
	if !hasSpecific {
		return actions
	}
	out := make(map[string]bool, len(actions))
	for k, v := range actions {
		if k != "amend" {
			out[k] = v
		}
	}
	return out
}

// classifyVariant runs the first-match cascade of spec.md §4.3 and reports
// which QuotedTexts index (if any) holds the old/new text.
func classifyVariant(actions map[string]bool) (variant model.ChangeType, oldIdx, newIdx int) {
	switch {
	case actions["delete"] && actions["insert"]:
		return model.ChangeModify, 0, 1
	case actions["substitute"]:
		return model.ChangeModify, 0, 1
	case actions["delete"]:
		return model.ChangeDelete, 0, -1
	case actions["insert"]:
		return model.ChangeAdd, -1, 0
	case actions["add"], actions["enact"]:
		return model.ChangeAdd, -1, 0
	case actions["repeal"], actions["repealAndReserve"]:
		return model.ChangeRepeal, -1, -1
	case actions["redesignate"]:
		return model.ChangeRedesignate, -1, -1
	default:
		return model.ChangeModify, -1, -1
	}
}

// qualifierFor detects "at the end" / "each place it appears" phrasing that
// changes how C6 applies the edit (spec.md §4.3, open question (b): parsed
// here but not yet consumed by the applicator).
func qualifierFor(text string) model.PositionQualifier {
	lower := strings.ToLower(text)
	switch {
	case strings.Contains(lower, "each place") || strings.Contains(lower, "each occurrence"):
		return model.PositionEachOccurrence
	case strings.Contains(lower, "at the end"):
		return model.PositionAtEnd
	default:
		return model.PositionNone
	}
}

// confidenceFor scores 0.98 when both a section reference and at least one
// quoted text are present, 0.95 when exactly one of the two is present, and
// 0.90 otherwise (spec.md §4.3).
func confidenceFor(ref *markup.SectionRef, quoted []string) float64 {
	hasRef := ref != nil
	hasQuoted := len(quoted) > 0
	switch {
	case hasRef && hasQuoted:
		return confidenceBoth
	case hasRef || hasQuoted:
		return confidenceOne
	default:
		return confidenceNone
	}
}

// needsReview flags changes with no resolvable section reference, or whose
// variant came from the general/structural fallback rather than a specific
// action (spec.md §4.3).
func needsReview(ref *markup.SectionRef, variant model.ChangeType, actions map[string]bool) bool {
	if ref == nil {
		return true
	}
	if len(actions) == 0 {
		return true
	}
	if variant == model.ChangeModify && actions["amend"] && !actions["delete"] &&
		!actions["insert"] && !actions["substitute"] {
		return true
	}
	return false
}

// ClassifyAll classifies every candidate, dropping only the ones Classify
// rejects outright.
func ClassifyAll(candidates []markup.Candidate, lawRef string, effectiveDate time.Time) []*model.LawChange {
	var out []*model.LawChange
	for _, c := range candidates {
		if change, ok := Classify(c, lawRef, effectiveDate); ok {
			out = append(out, change)
		}
	}
	return out
}
