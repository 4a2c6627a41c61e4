// Package checkpoint implements C11: after each ground-truth ingest,
// compares derived state against ground-truth state and records whether
// they agree.
package checkpoint

import (
	"context"
	"fmt"

	"github.com/uscchron/chronicle/internal/diff"
	"github.com/uscchron/chronicle/internal/logging"
	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

// Classification mirrors spec.md §4.11's per-key outcome.
type Classification string

const (
	Match             Classification = "match"
	Mismatch          Classification = "mismatch"
	OnlyInDerived     Classification = "only_in_derived"
	OnlyInGroundTruth Classification = "only_in_ground_truth"
)

// MismatchDetail is one of the first N mismatches reported.
type MismatchDetail struct {
	Key            model.SectionKey
	Classification Classification
	Description    string
}

// Result is the outcome of one checkpoint comparison (spec.md's
// CheckpointResult).
type Result struct {
	GroundTruthRevisionID string
	DerivedRevisionID     string
	MatchCount            int
	MismatchCount         int
	OnlyInDerivedCount    int
	OnlyInGroundTruthCount int
	Mismatches            []MismatchDetail
	IsClean               bool
}

// Validator is C11.
type Validator struct {
	store          *postgres.Store
	maxReported    int
	logger         *logging.Logger
}

func New(store *postgres.Store, maxReported int, logger *logging.Logger) *Validator {
	if maxReported <= 0 {
		maxReported = 20
	}
	return &Validator{store: store, maxReported: maxReported, logger: logger.With("checkpoint")}
}

// Validate compares groundTruthRevisionID against derivedRevisionID, per
// spec.md §4.11's four-step procedure.
func (v *Validator) Validate(ctx context.Context, groundTruthRevisionID, derivedRevisionID string) (*Result, error) {
	diffs, err := diff.Diff(ctx, v.store, derivedRevisionID, groundTruthRevisionID)
	if err != nil {
		return nil, fmt.Errorf("compute section diff: %w", err)
	}

	result := &Result{
		GroundTruthRevisionID: groundTruthRevisionID,
		DerivedRevisionID:     derivedRevisionID,
	}

	for _, d := range diffs {
		switch d.Classification {
		case diff.Unchanged:
			result.MatchCount++
		case diff.Modified:
			result.MismatchCount++
			v.recordMismatch(result, d.Key, Mismatch, d.Description)
		case diff.Added:
			// present in ground truth (B side), absent in derived (A side).
			result.OnlyInGroundTruthCount++
			v.recordMismatch(result, d.Key, OnlyInGroundTruth, "")
		case diff.Deleted:
			// present in derived, absent in ground truth.
			result.OnlyInDerivedCount++
			v.recordMismatch(result, d.Key, OnlyInDerived, "")
		}
	}

	result.IsClean = result.MismatchCount == 0 && result.OnlyInDerivedCount == 0 && result.OnlyInGroundTruthCount == 0

	if !result.IsClean {
		v.logger.Warn("checkpoint found divergence", logging.Fields{
			"ground_truth": groundTruthRevisionID, "derived": derivedRevisionID,
			"mismatches": result.MismatchCount, "only_in_derived": result.OnlyInDerivedCount,
			"only_in_ground_truth": result.OnlyInGroundTruthCount,
		})
	}

	return result, nil
}

func (v *Validator) recordMismatch(result *Result, key model.SectionKey, class Classification, description string) {
	if len(result.Mismatches) >= v.maxReported {
		return
	}
	result.Mismatches = append(result.Mismatches, MismatchDetail{Key: key, Classification: class, Description: description})
}
