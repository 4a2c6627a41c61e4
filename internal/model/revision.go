// Package model holds the data types shared across chronicle's pipeline:
// Revision, SectionSnapshot, and LawChange, as specified in spec.md §3.
package model

import "time"

// RevisionVariant distinguishes a ground-truth snapshot revision from one
// derived by applying an enacted law's amendments.
type RevisionVariant string

const (
	GroundTruth RevisionVariant = "ground_truth"
	Derived     RevisionVariant = "derived"
)

// RevisionStatus tracks a revision through its ingest lifecycle.
type RevisionStatus string

const (
	StatusPending   RevisionStatus = "pending"
	StatusIngesting RevisionStatus = "ingesting"
	StatusIngested  RevisionStatus = "ingested"
	StatusFailed    RevisionStatus = "failed"
)

// Revision is one node in the append-only revision graph (C5). Exactly one
// revision has SequenceNumber 0 and a nil ParentRevisionID — the bootstrap.
type Revision struct {
	RevisionID      string
	Variant         RevisionVariant
	SequenceNumber  int64
	ParentRevisionID *string
	EffectiveDate   time.Time
	IsGroundTruth   bool
	Status          RevisionStatus
	Summary         string

	// Exactly one of these is set, matching Variant.
	ReleasePointRef *string // registry tag, e.g. "113-21"
	LawRef          *string // enacted-law identifier, e.g. "113-47"
}

// IsRoot reports whether r is the bootstrap revision.
func (r *Revision) IsRoot() bool {
	return r.SequenceNumber == 0 && r.ParentRevisionID == nil
}
