// Package diff implements C12: a pairwise section-level diff between two
// revisions, classifying each section as added, modified, deleted, or
// unchanged.
package diff

import (
	"context"
	"fmt"

	"github.com/google/go-cmp/cmp"

	"github.com/uscchron/chronicle/internal/model"
	"github.com/uscchron/chronicle/internal/store/postgres"
)

// Classification is one section's comparison outcome.
type Classification string

const (
	Added     Classification = "added"
	Modified  Classification = "modified"
	Deleted   Classification = "deleted"
	Unchanged Classification = "unchanged"
)

// SectionDiff is one entry in a Diff result.
type SectionDiff struct {
	Key            model.SectionKey
	Classification Classification
	Description    string
}

// Diff compares every section present in at least one of revisionA,
// revisionB (spec.md §4.12).
func Diff(ctx context.Context, store *postgres.Store, revisionA, revisionB string) ([]SectionDiff, error) {
	sectionsA, err := store.GetAllSectionsAt(ctx, revisionA)
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", revisionA, err)
	}
	sectionsB, err := store.GetAllSectionsAt(ctx, revisionB)
	if err != nil {
		return nil, fmt.Errorf("materialize %s: %w", revisionB, err)
	}

	byKeyA := indexByKey(sectionsA)
	byKeyB := indexByKey(sectionsB)

	seen := make(map[model.SectionKey]bool, len(byKeyA)+len(byKeyB))
	var out []SectionDiff

	for key, a := range byKeyA {
		seen[key] = true
		b, ok := byKeyB[key]
		if !ok {
			out = append(out, SectionDiff{Key: key, Classification: Deleted})
			continue
		}
		if hashesEqual(a, b) {
			out = append(out, SectionDiff{Key: key, Classification: Unchanged})
		} else {
			out = append(out, SectionDiff{Key: key, Classification: Modified, Description: describe(a, b)})
		}
	}
	for key := range byKeyB {
		if seen[key] {
			continue
		}
		out = append(out, SectionDiff{Key: key, Classification: Added})
	}

	return out, nil
}

func indexByKey(snaps []*model.SectionSnapshot) map[model.SectionKey]*model.SectionSnapshot {
	out := make(map[model.SectionKey]*model.SectionSnapshot, len(snaps))
	for _, s := range snaps {
		out[s.Key()] = s
	}
	return out
}

func hashesEqual(a, b *model.SectionSnapshot) bool {
	return stringPtrEqual(a.TextHash, b.TextHash) && stringPtrEqual(a.NotesHash, b.NotesHash)
}

func stringPtrEqual(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// describe produces a short structural comparison beyond hash inequality,
// for the "first N mismatches with a short character-level diff
// description" requirement (spec.md §4.11).
func describe(a, b *model.SectionSnapshot) string {
	return cmp.Diff(a.NormalizedProvisions, b.NormalizedProvisions, cmp.Comparer(func(x, y model.ProvisionLine) bool {
		return x.Marker == y.Marker && x.Content == y.Content
	}))
}
