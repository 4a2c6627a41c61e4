package model

import "time"

// ChangeType is the closed set of amendment operation variants produced by
// the classifier (C3) and consumed by the text applicator (C6) and revision
// builder (C7). Modeled as a single record with a tag, per spec.md §9's
// design note, rather than an inheritance hierarchy.
type ChangeType string

const (
	ChangeModify      ChangeType = "modify"
	ChangeDelete      ChangeType = "delete"
	ChangeAdd         ChangeType = "add"
	ChangeRepeal      ChangeType = "repeal"
	ChangeRedesignate ChangeType = "redesignate"
	ChangeTransfer    ChangeType = "transfer"
	ChangeAddNote     ChangeType = "add_note"
)

// PositionQualifier records an amendment instruction qualifier C3 parses
// and C6 does not specially apply (spec.md §9 open question (b)): it is kept
// on the record for visibility, not acted on.
type PositionQualifier string

const (
	PositionNone        PositionQualifier = ""
	PositionAtEnd       PositionQualifier = "at_end"
	PositionEachOccurrence PositionQualifier = "each_occurrence"
)

// LawChange is one amendment operation scoped to one section, produced by
// the classifier (C3) and consumed by the revision builder (C7).
type LawChange struct {
	ChangeID        int64
	LawRef          string
	TitleNumber     int
	SectionNumber   string
	ChangeType      ChangeType
	OldText         *string
	NewText         *string
	EffectiveDate   time.Time
	Description     *string
	SubsectionPath  *string
	PositionQualifier PositionQualifier

	// Confidence and NeedsReview are produced by the classifier (§4.3) and
	// surfaced to operators; they do not change how C6/C7 apply the change.
	Confidence  float64
	NeedsReview bool
}
