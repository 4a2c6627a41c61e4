package classify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/uscchron/chronicle/internal/markup"
	"github.com/uscchron/chronicle/internal/model"
)

var effectiveDate = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

func TestClassifyStrikeAndInsert(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"delete": true, "insert": true},
		QuotedTexts:     []string{"old phrase", "new phrase"},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 15, SectionNumber: "78a"}},
		SurroundingText: "Section 78a is amended by striking \"old phrase\" and inserting \"new phrase\".",
	}

	change, ok := Classify(c, "118-47", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeModify, change.ChangeType)
	require.NotNil(t, change.OldText)
	require.NotNil(t, change.NewText)
	assert.Equal(t, "old phrase", *change.OldText)
	assert.Equal(t, "new phrase", *change.NewText)
	assert.Equal(t, 15, change.TitleNumber)
	assert.Equal(t, "78a", change.SectionNumber)
	assert.Equal(t, 0.98, change.Confidence)
	assert.False(t, change.NeedsReview)
}

func TestClassifySubstituteSingleQuote(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"substitute": true},
		QuotedTexts:     []string{"replacement text"},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 26, SectionNumber: "501"}},
		SurroundingText: "by substituting \"replacement text\"",
	}

	change, ok := Classify(c, "118-1", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeModify, change.ChangeType)
	assert.Nil(t, change.OldText)
	require.NotNil(t, change.NewText)
	assert.Equal(t, "replacement text", *change.NewText)
}

func TestClassifyDeleteOnly(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"delete": true},
		QuotedTexts:     []string{"obsolete clause"},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 5, SectionNumber: "552"}},
		SurroundingText: "by striking \"obsolete clause\"",
	}

	change, ok := Classify(c, "118-2", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeDelete, change.ChangeType)
	require.NotNil(t, change.OldText)
	assert.Equal(t, "obsolete clause", *change.OldText)
	assert.Nil(t, change.NewText)
}

func TestClassifyInsertOnly(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"insert": true},
		QuotedTexts:     []string{"new clause"},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 5, SectionNumber: "552"}},
		SurroundingText: "by inserting \"new clause\"",
	}

	change, ok := Classify(c, "118-2", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeAdd, change.ChangeType)
	assert.Nil(t, change.OldText)
	require.NotNil(t, change.NewText)
	assert.Equal(t, "new clause", *change.NewText)
}

func TestClassifyRepeal(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"repeal": true},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 5, SectionNumber: "552a"}},
		SurroundingText: "Section 552a is repealed.",
	}

	change, ok := Classify(c, "118-3", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeRepeal, change.ChangeType)
	assert.Nil(t, change.OldText)
	assert.Nil(t, change.NewText)
	assert.Equal(t, 0.95, change.Confidence)
}

func TestClassifyRedesignate(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"redesignate": true},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 15, SectionNumber: "78a"}},
		SurroundingText: "redesignating subsection (c) as subsection (d)",
	}

	change, ok := Classify(c, "118-4", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeRedesignate, change.ChangeType)
	assert.NotNil(t, change.Description)
}

func TestClassifyAmendWrapperStripped(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"amend": true, "insert": true},
		QuotedTexts:     []string{"tacked-on text"},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 7, SectionNumber: "2012"}},
		SurroundingText: "is amended by adding at the end the following",
	}

	change, ok := Classify(c, "118-5", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeAdd, change.ChangeType)
}

func TestClassifyGeneralAmendNeedsReview(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"amend": true},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 7, SectionNumber: "2012"}},
		SurroundingText: "Section 2012 is amended.",
	}

	change, ok := Classify(c, "118-6", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.ChangeModify, change.ChangeType)
	assert.True(t, change.NeedsReview)
	assert.Equal(t, 0.95, change.Confidence)
}

func TestClassifyMissingSectionRefNeedsReview(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"delete": true, "insert": true},
		QuotedTexts:     []string{"a", "b"},
		SurroundingText: "striking \"a\" and inserting \"b\"",
	}

	change, ok := Classify(c, "118-7", effectiveDate)
	require.True(t, ok)
	assert.True(t, change.NeedsReview)
	assert.Equal(t, 0.95, change.Confidence)
}

func TestClassifyEmptyCandidateRejected(t *testing.T) {
	_, ok := Classify(markup.Candidate{}, "118-8", effectiveDate)
	assert.False(t, ok)
}

func TestClassifyPositionQualifierAtEnd(t *testing.T) {
	c := markup.Candidate{
		Actions:         map[string]bool{"add": true},
		QuotedTexts:     []string{"new final clause"},
		SectionRefs:     []markup.SectionRef{{TitleNumber: 7, SectionNumber: "2012"}},
		SurroundingText: "by adding at the end the following new clause",
	}

	change, ok := Classify(c, "118-9", effectiveDate)
	require.True(t, ok)
	assert.Equal(t, model.PositionAtEnd, change.PositionQualifier)
}

func TestClassifyAllSkipsEmptyCandidates(t *testing.T) {
	candidates := []markup.Candidate{
		{Actions: map[string]bool{"repeal": true}, SectionRefs: []markup.SectionRef{{TitleNumber: 1, SectionNumber: "1"}}},
		{},
	}
	changes := ClassifyAll(candidates, "118-10", effectiveDate)
	assert.Len(t, changes, 1)
}
